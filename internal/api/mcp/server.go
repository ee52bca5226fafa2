package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/study-flamingo/iq-mcp-sub000/internal/graph"
	"github.com/study-flamingo/iq-mcp-sub000/internal/storage"
	"github.com/study-flamingo/iq-mcp-sub000/pkg/types"
)

const (
	serverName      = "iq"
	serverVersion   = "1.0.0"
	protocolVersion = "2024-11-05"
)

// Server implements the Model Context Protocol (MCP) over JSON-RPC 2.0.
// It exposes the knowledge graph as a set of callable tools for AI
// assistants. All graph semantics live in the graph manager; this layer
// only translates between wire shapes and manager calls.
type Server struct {
	manager   *graph.Manager
	logger    *log.Logger
	sessionID string // unique ID generated once per server lifetime
}

// ServerOption is a functional option for configuring a Server.
type ServerOption func(*Server)

// WithServerLogger overrides the default stderr logger. Handy in tests;
// never point this at stdout, which is reserved for protocol framing.
func WithServerLogger(logger *log.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP server around a graph manager.
func NewServer(manager *graph.Manager, opts ...ServerOption) *Server {
	s := &Server{
		manager:   manager,
		logger:    log.New(os.Stderr, "iq-mcp: ", log.LstdFlags),
		sessionID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger.Printf("session ID: %s", s.sessionID)
	return s
}

// SessionID returns the identifier generated for this server lifetime.
func (s *Server) SessionID() string {
	return s.sessionID
}

// HandleRequest processes a single JSON-RPC 2.0 request and returns the
// encoded response. A nil response with a nil error means the request was
// a notification and no response frame should be written.
func (s *Server) HandleRequest(ctx context.Context, requestJSON []byte) ([]byte, error) {
	var req JSONRPCRequest
	if err := json.Unmarshal(requestJSON, &req); err != nil {
		return s.errorResponse(nil, ErrCodeParseError, "Parse error", err.Error())
	}

	if req.JSONRPC != "2.0" {
		return s.errorResponse(req.ID, ErrCodeInvalidRequest, "Invalid JSON-RPC version", nil)
	}

	// Notifications get no response frame.
	if req.Method == "initialized" || strings.HasPrefix(req.Method, "notifications/") {
		return nil, nil
	}

	var result interface{}
	var err error

	switch req.Method {
	// Standard MCP protocol methods
	case "initialize":
		result, err = s.handleInitialize(ctx, req.Params)
	case "ping":
		result = map[string]interface{}{}
	case "tools/list":
		result, err = s.handleToolsList(ctx, req.Params)
	case "tools/call":
		result, err = s.handleToolsCall(ctx, req.Params)

	// Native JSON-RPC methods (kept for direct callers that skip tools/call)
	case "create_entities":
		result, err = s.handleCreateEntities(ctx, req.Params)
	case "create_relations":
		result, err = s.handleCreateRelations(ctx, req.Params)
	case "apply_observations":
		result, err = s.handleApplyObservations(ctx, req.Params)
	case "cleanup_outdated_observations":
		result, err = s.handleCleanup(ctx, req.Params)
	case "get_observations_by_durability":
		result, err = s.handleObservationsByDurability(ctx, req.Params)
	case "delete_entities":
		result, err = s.handleDeleteEntities(ctx, req.Params)
	case "delete_observations":
		result, err = s.handleDeleteObservations(ctx, req.Params)
	case "delete_relations":
		result, err = s.handleDeleteRelations(ctx, req.Params)
	case "search_nodes":
		result, err = s.handleSearchNodes(ctx, req.Params)
	case "open_nodes":
		result, err = s.handleOpenNodes(ctx, req.Params)
	case "merge_entities":
		result, err = s.handleMergeEntities(ctx, req.Params)
	case "update_user_info":
		result, err = s.handleUpdateUserInfo(ctx, req.Params)
	case "read_graph":
		result, err = s.handleReadGraph(ctx, req.Params)
	default:
		return s.errorResponse(req.ID, ErrCodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method), nil)
	}

	if err != nil {
		code := ErrCodeServerError
		if errors.Is(err, storage.ErrInvalidInput) {
			code = ErrCodeInvalidParams
		}
		return s.errorResponse(req.ID, code, err.Error(), nil)
	}

	return s.successResponse(req.ID, result)
}

// CreateEntities adds new entities to the graph, skipping name collisions.
func (s *Server) CreateEntities(ctx context.Context, args CreateEntitiesArgs) (*CreateEntitiesResult, error) {
	entities := make([]types.Entity, 0, len(args.Entities))
	for _, in := range args.Entities {
		entities = append(entities, in.entity())
	}
	created, err := s.manager.CreateEntities(ctx, entities)
	if err != nil {
		return nil, err
	}
	return &CreateEntitiesResult{Entities: created}, nil
}

// CreateRelations adds new relations, canonicalizing endpoints first.
func (s *Server) CreateRelations(ctx context.Context, args CreateRelationsArgs) (*CreateRelationsResult, error) {
	relations := make([]types.Relation, 0, len(args.Relations))
	for _, in := range args.Relations {
		relations = append(relations, in.relation())
	}
	created, err := s.manager.CreateRelations(ctx, relations)
	if err != nil {
		return nil, err
	}
	return &CreateRelationsResult{Relations: created}, nil
}

// ApplyObservations attaches observations to existing entities with
// per-request partial-failure semantics.
func (s *Server) ApplyObservations(ctx context.Context, args ApplyObservationsArgs) (*graph.ApplyObservationsResult, error) {
	requests := make([]graph.ObservationRequest, 0, len(args.Observations))
	for _, in := range args.Observations {
		requests = append(requests, in.request())
	}
	return s.manager.ApplyObservations(ctx, requests)
}

// CleanupOutdatedObservations removes observations past their durability
// window and reports what was removed.
func (s *Server) CleanupOutdatedObservations(ctx context.Context) (*graph.CleanupResult, error) {
	return s.manager.CleanupOutdatedObservations(ctx)
}

// ObservationsByDurability groups one entity's observations into the four
// durability buckets.
func (s *Server) ObservationsByDurability(ctx context.Context, args DurabilityArgs) (*graph.DurabilityBuckets, error) {
	return s.manager.ObservationsByDurability(ctx, args.EntityName)
}

// DeleteEntities removes entities and every relation touching them.
func (s *Server) DeleteEntities(ctx context.Context, args DeleteEntitiesArgs) (*graph.DeleteEntitiesResult, error) {
	return s.manager.DeleteEntities(ctx, args.EntityNames)
}

// DeleteObservations removes observations by exact content match.
func (s *Server) DeleteObservations(ctx context.Context, args DeleteObservationsArgs) (*graph.DeleteObservationsResult, error) {
	deletions := make([]graph.ObservationDeletion, 0, len(args.Deletions))
	for _, in := range args.Deletions {
		deletions = append(deletions, in.deletion())
	}
	return s.manager.DeleteObservations(ctx, deletions)
}

// DeleteRelations removes the given relation triples.
func (s *Server) DeleteRelations(ctx context.Context, args DeleteRelationsArgs) (*DeleteRelationsResult, error) {
	relations := make([]types.Relation, 0, len(args.Relations))
	for _, in := range args.Relations {
		relations = append(relations, in.relation())
	}
	removed, err := s.manager.DeleteRelations(ctx, relations)
	if err != nil {
		return nil, err
	}
	return &DeleteRelationsResult{Relations: removed}, nil
}

// SearchNodes runs a substring search across the graph.
func (s *Server) SearchNodes(ctx context.Context, args SearchNodesArgs) (*types.KnowledgeGraph, error) {
	return s.manager.SearchNodes(ctx, args.Query)
}

// OpenNodes returns the sub-graph for the named entities.
func (s *Server) OpenNodes(ctx context.Context, args OpenNodesArgs) (*types.KnowledgeGraph, error) {
	return s.manager.OpenNodes(ctx, args.Names)
}

// MergeEntities merges two or more entities into one.
func (s *Server) MergeEntities(ctx context.Context, args MergeEntitiesArgs) (*MergeEntitiesResult, error) {
	merged, err := s.manager.MergeEntities(ctx, args.NewName, args.EntityNames)
	if err != nil {
		return nil, err
	}
	return &MergeEntitiesResult{Entity: merged}, nil
}

// UpdateUserInfo replaces the stored user identity wholesale. When the
// caller supplies name parts but no names list, the variants are derived
// here so the alias resolver can match any of them later.
func (s *Server) UpdateUserInfo(ctx context.Context, args UpdateUserInfoArgs) (*UpdateUserInfoResult, error) {
	if args.UserInfo == nil {
		return nil, fmt.Errorf("%w: user_info is required", storage.ErrInvalidInput)
	}

	info := args.UserInfo
	if len(info.Names) == 0 {
		derived, err := types.UserIdentifierFromParts(types.NameParts{
			PreferredName: info.PreferredName,
			FirstName:     info.FirstName,
			LastName:      info.LastName,
			MiddleNames:   info.MiddleNames,
			Nickname:      info.Nickname,
			Prefixes:      info.Prefixes,
			Suffixes:      info.Suffixes,
			Pronouns:      info.Pronouns,
			Emails:        info.Emails,
		})
		switch {
		case err == nil:
			derived.LinkedEntityID = info.LinkedEntityID
			info = derived
		case errors.Is(err, types.ErrNoNameParts):
			// A preferred name alone is a complete identity.
			info.Names = []string{strings.TrimSpace(info.PreferredName)}
		default:
			return nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
		}
	}

	if err := s.manager.UpdateUserInfo(ctx, info); err != nil {
		return nil, err
	}
	return &UpdateUserInfoResult{UserInfo: info}, nil
}

// ReadGraph returns the full graph snapshot plus a hint telling callers
// whether a real user identity has been stored yet.
func (s *Server) ReadGraph(ctx context.Context) (*ReadGraphResult, error) {
	g, missing, err := s.manager.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &ReadGraphResult{
		UserInfo:        g.UserInfo,
		Entities:        g.Entities,
		Relations:       g.Relations,
		UserInfoMissing: missing,
	}, nil
}

// handleCreateEntities handles the create_entities JSON-RPC method.
func (s *Server) handleCreateEntities(ctx context.Context, params interface{}) (interface{}, error) {
	var args CreateEntitiesArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.CreateEntities(ctx, args)
}

// handleCreateRelations handles the create_relations JSON-RPC method.
func (s *Server) handleCreateRelations(ctx context.Context, params interface{}) (interface{}, error) {
	var args CreateRelationsArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.CreateRelations(ctx, args)
}

// handleApplyObservations handles the apply_observations JSON-RPC method.
func (s *Server) handleApplyObservations(ctx context.Context, params interface{}) (interface{}, error) {
	var args ApplyObservationsArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.ApplyObservations(ctx, args)
}

// handleCleanup handles the cleanup_outdated_observations JSON-RPC method.
func (s *Server) handleCleanup(ctx context.Context, _ interface{}) (interface{}, error) {
	return s.CleanupOutdatedObservations(ctx)
}

// handleObservationsByDurability handles get_observations_by_durability.
func (s *Server) handleObservationsByDurability(ctx context.Context, params interface{}) (interface{}, error) {
	var args DurabilityArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.ObservationsByDurability(ctx, args)
}

// handleDeleteEntities handles the delete_entities JSON-RPC method.
func (s *Server) handleDeleteEntities(ctx context.Context, params interface{}) (interface{}, error) {
	var args DeleteEntitiesArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.DeleteEntities(ctx, args)
}

// handleDeleteObservations handles the delete_observations JSON-RPC method.
func (s *Server) handleDeleteObservations(ctx context.Context, params interface{}) (interface{}, error) {
	var args DeleteObservationsArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.DeleteObservations(ctx, args)
}

// handleDeleteRelations handles the delete_relations JSON-RPC method.
func (s *Server) handleDeleteRelations(ctx context.Context, params interface{}) (interface{}, error) {
	var args DeleteRelationsArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.DeleteRelations(ctx, args)
}

// handleSearchNodes handles the search_nodes JSON-RPC method.
func (s *Server) handleSearchNodes(ctx context.Context, params interface{}) (interface{}, error) {
	var args SearchNodesArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.SearchNodes(ctx, args)
}

// handleOpenNodes handles the open_nodes JSON-RPC method.
func (s *Server) handleOpenNodes(ctx context.Context, params interface{}) (interface{}, error) {
	var args OpenNodesArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.OpenNodes(ctx, args)
}

// handleMergeEntities handles the merge_entities JSON-RPC method.
func (s *Server) handleMergeEntities(ctx context.Context, params interface{}) (interface{}, error) {
	var args MergeEntitiesArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.MergeEntities(ctx, args)
}

// handleUpdateUserInfo handles the update_user_info JSON-RPC method.
func (s *Server) handleUpdateUserInfo(ctx context.Context, params interface{}) (interface{}, error) {
	var args UpdateUserInfoArgs
	if err := s.unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return s.UpdateUserInfo(ctx, args)
}

// handleReadGraph handles the read_graph JSON-RPC method.
func (s *Server) handleReadGraph(ctx context.Context, _ interface{}) (interface{}, error) {
	return s.ReadGraph(ctx)
}

// handleInitialize handles the MCP initialize handshake.
func (s *Server) handleInitialize(_ context.Context, params interface{}) (interface{}, error) {
	var p MCPInitializeParams
	if err := s.unmarshalParams(params, &p); err != nil {
		return nil, err
	}
	if p.ClientInfo.Name != "" {
		s.logger.Printf("client connected: %s %s", p.ClientInfo.Name, p.ClientInfo.Version)
	}
	return MCPInitializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: MCPServerCapabilities{
			Tools: &MCPToolsCapability{},
		},
		ServerInfo: MCPServerInfo{
			Name:    serverName,
			Version: serverVersion,
		},
	}, nil
}

// handleToolsList handles the MCP tools/list request.
func (s *Server) handleToolsList(_ context.Context, _ interface{}) (interface{}, error) {
	return MCPToolsListResult{Tools: s.buildToolsList()}, nil
}

// handleToolsCall handles the MCP tools/call request by dispatching to the
// native method handlers. Tool-level failures are reported inside the
// result with isError set, per the MCP spec, rather than as JSON-RPC
// errors.
func (s *Server) handleToolsCall(ctx context.Context, params interface{}) (interface{}, error) {
	var p MCPToolCallParams
	if err := s.unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	// Re-marshal arguments so they pass through the same param decoding as
	// native JSON-RPC calls.
	argsJSON, err := json.Marshal(p.Arguments)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal arguments: %w", err)
	}
	var rawParams interface{}
	if err := json.Unmarshal(argsJSON, &rawParams); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}

	var result interface{}
	var handlerErr error

	switch p.Name {
	case "create_entities":
		result, handlerErr = s.handleCreateEntities(ctx, rawParams)
	case "create_relations":
		result, handlerErr = s.handleCreateRelations(ctx, rawParams)
	case "apply_observations":
		result, handlerErr = s.handleApplyObservations(ctx, rawParams)
	case "cleanup_outdated_observations":
		result, handlerErr = s.handleCleanup(ctx, rawParams)
	case "get_observations_by_durability":
		result, handlerErr = s.handleObservationsByDurability(ctx, rawParams)
	case "delete_entities":
		result, handlerErr = s.handleDeleteEntities(ctx, rawParams)
	case "delete_observations":
		result, handlerErr = s.handleDeleteObservations(ctx, rawParams)
	case "delete_relations":
		result, handlerErr = s.handleDeleteRelations(ctx, rawParams)
	case "search_nodes":
		result, handlerErr = s.handleSearchNodes(ctx, rawParams)
	case "open_nodes":
		result, handlerErr = s.handleOpenNodes(ctx, rawParams)
	case "merge_entities":
		result, handlerErr = s.handleMergeEntities(ctx, rawParams)
	case "update_user_info":
		result, handlerErr = s.handleUpdateUserInfo(ctx, rawParams)
	case "read_graph":
		result, handlerErr = s.handleReadGraph(ctx, rawParams)
	default:
		return &MCPToolCallResult{
			Content: []MCPToolCallContent{{Type: "text", Text: fmt.Sprintf("unknown tool: %s", p.Name)}},
			IsError: true,
		}, nil
	}

	if handlerErr != nil {
		return &MCPToolCallResult{
			Content: []MCPToolCallContent{{Type: "text", Text: handlerErr.Error()}},
			IsError: true,
		}, nil
	}

	text, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &MCPToolCallResult{
		Content: []MCPToolCallContent{{Type: "text", Text: string(text)}},
	}, nil
}

// buildToolsList returns the canonical list of MCP tool definitions.
func (s *Server) buildToolsList() []MCPTool {
	observationItems := map[string]interface{}{
		"oneOf": []interface{}{
			map[string]interface{}{"type": "string", "description": "Observation content (durability defaults to short_term)"},
			map[string]interface{}{
				"type":     "object",
				"required": []string{"content"},
				"properties": map[string]interface{}{
					"content":    map[string]interface{}{"type": "string", "description": "Observation content"},
					"durability": map[string]interface{}{"type": "string", "description": "How long the fact stays relevant: permanent, long_term, short_term, temporary"},
				},
			},
		},
	}
	relationItems := map[string]interface{}{
		"type":     "object",
		"required": []string{"from", "to", "relationType"},
		"properties": map[string]interface{}{
			"from":         map[string]interface{}{"type": "string", "description": "Source entity name or alias"},
			"to":           map[string]interface{}{"type": "string", "description": "Target entity name or alias"},
			"relationType": map[string]interface{}{"type": "string", "description": "Relation type in active voice (e.g. works_at, knows)"},
		},
	}

	return []MCPTool{
		{
			Name: "create_entities",
			Description: "Create new entities in the knowledge graph. Entities whose name or aliases collide " +
				"with an existing entity are skipped; the result lists only the entities actually created. " +
				"Observations may be plain strings or objects with an explicit durability " +
				"(permanent, long_term, short_term, temporary; default short_term).",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"entities"},
				"properties": map[string]interface{}{
					"entities": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type":     "object",
							"required": []string{"name", "entityType"},
							"properties": map[string]interface{}{
								"name":         map[string]interface{}{"type": "string", "description": "Canonical entity name (required)"},
								"entityType":   map[string]interface{}{"type": "string", "description": "Entity category, e.g. person, place, project (required)"},
								"observations": map[string]interface{}{"type": "array", "items": observationItems, "description": "Initial observations about the entity"},
								"aliases":      map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Alternative names that should resolve to this entity"},
								"icon":         map[string]interface{}{"type": "string", "description": "Optional emoji or short icon label"},
							},
						},
						"description": "Entities to create",
					},
				},
			},
		},
		{
			Name: "create_relations",
			Description: "Create relations between entities. Endpoints are resolved through aliases to canonical " +
				"names and duplicate triples are skipped; the result lists only the relations actually added. " +
				"Endpoints do not have to exist yet.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"relations"},
				"properties": map[string]interface{}{
					"relations": map[string]interface{}{
						"type":        "array",
						"items":       relationItems,
						"description": "Relations to create",
					},
				},
			},
		},
		{
			Name: "apply_observations",
			Description: "Attach new observations to existing entities. Each request resolves its entity by name " +
				"or alias (case-insensitive); unknown entities are reported as per-request failures without " +
				"aborting the batch. Observation content already present on the entity is skipped.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"observations"},
				"properties": map[string]interface{}{
					"observations": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type":     "object",
							"required": []string{"entityName", "observations"},
							"properties": map[string]interface{}{
								"entityName":   map[string]interface{}{"type": "string", "description": "Entity name or alias"},
								"observations": map[string]interface{}{"type": "array", "items": observationItems, "description": "Observations to add"},
							},
						},
						"description": "Per-entity observation batches",
					},
				},
			},
		},
		{
			Name: "cleanup_outdated_observations",
			Description: "Remove observations whose durability window has lapsed: long_term after 360 days, " +
				"short_term after 90, temporary after 30. Permanent observations never expire. Returns counts " +
				"and the removed observations.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "get_observations_by_durability",
			Description: "Group an entity's observations into durability buckets (permanent, long_term, short_term, temporary).",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"entityName"},
				"properties": map[string]interface{}{
					"entityName": map[string]interface{}{"type": "string", "description": "Entity name or alias"},
				},
			},
		},
		{
			Name: "delete_entities",
			Description: "Delete entities and every relation touching them, regardless of direction. Names are " +
				"resolved through aliases; names that do not resolve are skipped.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"entityNames"},
				"properties": map[string]interface{}{
					"entityNames": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Entities to delete (names or aliases)"},
				},
			},
		},
		{
			Name: "delete_observations",
			Description: "Delete specific observations from entities by exact content match. Entities that do not " +
				"resolve are skipped silently.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"deletions"},
				"properties": map[string]interface{}{
					"deletions": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type":     "object",
							"required": []string{"entityName", "observations"},
							"properties": map[string]interface{}{
								"entityName":   map[string]interface{}{"type": "string", "description": "Entity name or alias"},
								"observations": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Exact observation contents to remove"},
							},
						},
						"description": "Per-entity deletion requests",
					},
				},
			},
		},
		{
			Name:        "delete_relations",
			Description: "Delete relations. Endpoints are resolved through aliases before matching the stored triples.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"relations"},
				"properties": map[string]interface{}{
					"relations": map[string]interface{}{
						"type":        "array",
						"items":       relationItems,
						"description": "Relations to delete",
					},
				},
			},
		},
		{
			Name: "search_nodes",
			Description: "Case-insensitive substring search across entity names, types, aliases, and observation " +
				"content. Returns matching entities plus the relations between them. An empty query returns the " +
				"whole graph.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"query"},
				"properties": map[string]interface{}{
					"query": map[string]interface{}{"type": "string", "description": "Search query"},
				},
			},
		},
		{
			Name: "open_nodes",
			Description: "Open specific entities by name or alias. Returns the found entities plus the relations " +
				"between them; names that do not resolve are dropped silently.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"names"},
				"properties": map[string]interface{}{
					"names": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Entity names or aliases to open"},
				},
			},
		},
		{
			Name: "merge_entities",
			Description: "Merge two or more entities into one. Observations are unioned, aliases accumulate " +
				"(including the old names), relations are re-pointed at the merged entity, and the source " +
				"entities are removed. Fails if newName collides with an entity outside the merge set.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"newName", "entityNames"},
				"properties": map[string]interface{}{
					"newName":     map[string]interface{}{"type": "string", "description": "Canonical name for the merged entity (may match one of the merged entities)"},
					"entityNames": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Entities to merge (at least two names or aliases)"},
				},
			},
		},
		{
			Name: "update_user_info",
			Description: "Replace the stored user identity wholesale. When the names list is omitted, name " +
				"variants are derived from the parts (first/middle/last names, prefixes, suffixes, nickname) so " +
				"any of them resolves to the user later.",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"user_info"},
				"properties": map[string]interface{}{
					"user_info": map[string]interface{}{
						"type":     "object",
						"required": []string{"preferred_name"},
						"properties": map[string]interface{}{
							"preferred_name":   map[string]interface{}{"type": "string", "description": "How the user wants to be addressed (required)"},
							"first_name":       map[string]interface{}{"type": "string", "description": "Legal first name"},
							"last_name":        map[string]interface{}{"type": "string", "description": "Legal last name"},
							"middle_names":     map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Middle names, in order"},
							"nickname":         map[string]interface{}{"type": "string", "description": "Informal name"},
							"prefixes":         map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Honorifics such as Dr. or Prof."},
							"suffixes":         map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Qualifiers such as PhD or Jr."},
							"pronouns":         map[string]interface{}{"type": "string", "description": "Preferred pronouns"},
							"emails":           map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Known email addresses"},
							"linked_entity_id": map[string]interface{}{"type": "string", "description": "ID of the user's own entity in the graph, if one exists"},
						},
						"description": "The complete replacement identity",
					},
				},
			},
		},
		{
			Name: "read_graph",
			Description: "Read the entire knowledge graph. The result includes user_info_missing=true when no " +
				"real user identity has been stored yet; in that case ask the user how they would like to be " +
				"addressed and call update_user_info.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// unmarshalParams converts the loosely-typed params value into dest via a
// JSON round trip.
func (s *Server) unmarshalParams(params interface{}, dest interface{}) error {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	return nil
}

// successResponse creates a JSON-RPC success response.
func (s *Server) successResponse(id interface{}, result interface{}) ([]byte, error) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	}
	return json.Marshal(resp)
}

// errorResponse creates a JSON-RPC error response.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) ([]byte, error) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	}
	return json.Marshal(resp)
}

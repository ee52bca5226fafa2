package mcp

import (
	"encoding/json"

	"github.com/study-flamingo/iq-mcp-sub000/internal/graph"
	"github.com/study-flamingo/iq-mcp-sub000/pkg/types"
)

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      interface{} `json:"id,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
	ID      interface{}   `json:"id"`
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// JSON-RPC 2.0 error codes.
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
	ErrCodeServerError    = -32000
)

// MCPInitializeParams contains the parameters sent by the client during the
// initialize handshake.
type MCPInitializeParams struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities,omitempty"`
	ClientInfo      MCPClientInfo          `json:"clientInfo,omitempty"`
}

// MCPClientInfo identifies the connecting client.
type MCPClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// MCPInitializeResult is the server's half of the initialize handshake.
type MCPInitializeResult struct {
	ProtocolVersion string                `json:"protocolVersion"`
	Capabilities    MCPServerCapabilities `json:"capabilities"`
	ServerInfo      MCPServerInfo         `json:"serverInfo"`
}

// MCPServerCapabilities advertises what the server supports.
type MCPServerCapabilities struct {
	Tools *MCPToolsCapability `json:"tools,omitempty"`
}

// MCPToolsCapability is the (currently empty) tools capability object.
type MCPToolsCapability struct{}

// MCPServerInfo identifies this server to the client.
type MCPServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// MCPTool describes a single callable tool for tools/list.
type MCPTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// MCPToolsListResult is the response payload for tools/list.
type MCPToolsListResult struct {
	Tools []MCPTool `json:"tools"`
}

// MCPToolCallParams contains the parameters for a tools/call request.
type MCPToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// MCPToolCallContent is a single content block in a tool call result.
type MCPToolCallContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// MCPToolCallResult is the response payload for tools/call.
type MCPToolCallResult struct {
	Content []MCPToolCallContent `json:"content"`
	IsError bool                 `json:"isError,omitempty"`
}

// ObservationEntry is one observation in a tool argument. Clients send either
// a bare string ("prefers dark mode") or an object with an explicit
// durability ({"content": "...", "durability": "permanent"}), so unmarshalling
// accepts both forms.
type ObservationEntry struct {
	Content    string `json:"content"`
	Durability string `json:"durability,omitempty"`
}

// UnmarshalJSON accepts both the bare-string and the object form.
func (e *ObservationEntry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.Content = s
		return nil
	}
	type alias ObservationEntry
	var aux alias
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*e = ObservationEntry(aux)
	return nil
}

// EntityInput is one entity in a create_entities call.
type EntityInput struct {
	Name         string             `json:"name"`
	EntityType   string             `json:"entity_type"`
	Observations []ObservationEntry `json:"observations,omitempty"`
	Aliases      []string           `json:"aliases,omitempty"`
	Icon         string             `json:"icon,omitempty"`
}

// UnmarshalJSON handles the case where some MCP clients send the camelCase
// key "entityType" instead of "entity_type". Both spellings are accepted; the
// snake_case key wins when both are present.
func (e *EntityInput) UnmarshalJSON(data []byte) error {
	type alias EntityInput
	aux := &struct {
		EntityTypeCamel string `json:"entityType,omitempty"`
		*alias
	}{alias: (*alias)(e)}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if e.EntityType == "" {
		e.EntityType = aux.EntityTypeCamel
	}
	return nil
}

// RelationInput is one relation triple in a create_relations or
// delete_relations call. Clients variously send "from"/"to"/"relationType"
// (the original wire format) or "from_entity"/"to_entity"/"relation_type";
// both are accepted.
type RelationInput struct {
	From         string `json:"from_entity"`
	To           string `json:"to_entity"`
	RelationType string `json:"relation_type"`
}

// UnmarshalJSON accepts both key spellings for each field.
func (r *RelationInput) UnmarshalJSON(data []byte) error {
	type alias RelationInput
	aux := &struct {
		FromShort    string `json:"from,omitempty"`
		ToShort      string `json:"to,omitempty"`
		RelTypeCamel string `json:"relationType,omitempty"`
		*alias
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if r.From == "" {
		r.From = aux.FromShort
	}
	if r.To == "" {
		r.To = aux.ToShort
	}
	if r.RelationType == "" {
		r.RelationType = aux.RelTypeCamel
	}
	return nil
}

// ObservationRequestInput is one per-entity request in an apply_observations
// call. "entityName" and "contents" (the original wire format) are accepted
// alongside "entity_name" and "observations".
type ObservationRequestInput struct {
	EntityName   string             `json:"entity_name"`
	Observations []ObservationEntry `json:"observations,omitempty"`
}

// UnmarshalJSON accepts both key spellings and the legacy "contents" list.
func (o *ObservationRequestInput) UnmarshalJSON(data []byte) error {
	type alias ObservationRequestInput
	aux := &struct {
		EntityNameCamel string             `json:"entityName,omitempty"`
		Contents        []ObservationEntry `json:"contents,omitempty"`
		*alias
	}{alias: (*alias)(o)}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if o.EntityName == "" {
		o.EntityName = aux.EntityNameCamel
	}
	if len(o.Observations) == 0 {
		o.Observations = aux.Contents
	}
	return nil
}

// ObservationDeletionInput is one per-entity request in a delete_observations
// call. Deletion matches on exact observation content.
type ObservationDeletionInput struct {
	EntityName   string   `json:"entity_name"`
	Observations []string `json:"observations,omitempty"`
}

// UnmarshalJSON accepts "entityName" and the legacy "contents" list.
func (o *ObservationDeletionInput) UnmarshalJSON(data []byte) error {
	type alias ObservationDeletionInput
	aux := &struct {
		EntityNameCamel string   `json:"entityName,omitempty"`
		Contents        []string `json:"contents,omitempty"`
		*alias
	}{alias: (*alias)(o)}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if o.EntityName == "" {
		o.EntityName = aux.EntityNameCamel
	}
	if len(o.Observations) == 0 {
		o.Observations = aux.Contents
	}
	return nil
}

// CreateEntitiesArgs contains arguments for the create_entities tool.
type CreateEntitiesArgs struct {
	Entities []EntityInput `json:"entities"`
}

// CreateEntitiesResult lists the entities actually created (collisions are
// filtered out, so this may be shorter than the input).
type CreateEntitiesResult struct {
	Entities []*types.Entity `json:"entities"`
}

// CreateRelationsArgs contains arguments for the create_relations tool.
type CreateRelationsArgs struct {
	Relations []RelationInput `json:"relations"`
}

// CreateRelationsResult lists the relations actually added.
type CreateRelationsResult struct {
	Relations []types.Relation `json:"relations"`
}

// ApplyObservationsArgs contains arguments for the apply_observations tool.
type ApplyObservationsArgs struct {
	Observations []ObservationRequestInput `json:"observations"`
}

// DurabilityArgs contains arguments for get_observations_by_durability.
type DurabilityArgs struct {
	EntityName string `json:"entity_name"`
}

// UnmarshalJSON accepts both "entity_name" and "entityName".
func (a *DurabilityArgs) UnmarshalJSON(data []byte) error {
	type alias DurabilityArgs
	aux := &struct {
		EntityNameCamel string `json:"entityName,omitempty"`
		*alias
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if a.EntityName == "" {
		a.EntityName = aux.EntityNameCamel
	}
	return nil
}

// DeleteEntitiesArgs contains arguments for the delete_entities tool.
type DeleteEntitiesArgs struct {
	EntityNames []string `json:"entity_names"`
}

// UnmarshalJSON accepts both "entity_names" and "entityNames".
func (a *DeleteEntitiesArgs) UnmarshalJSON(data []byte) error {
	type alias DeleteEntitiesArgs
	aux := &struct {
		EntityNamesCamel []string `json:"entityNames,omitempty"`
		*alias
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if len(a.EntityNames) == 0 {
		a.EntityNames = aux.EntityNamesCamel
	}
	return nil
}

// DeleteObservationsArgs contains arguments for the delete_observations tool.
type DeleteObservationsArgs struct {
	Deletions []ObservationDeletionInput `json:"deletions"`
}

// DeleteRelationsArgs contains arguments for the delete_relations tool.
type DeleteRelationsArgs struct {
	Relations []RelationInput `json:"relations"`
}

// DeleteRelationsResult lists the relations that were removed.
type DeleteRelationsResult struct {
	Relations []types.Relation `json:"relations"`
}

// SearchNodesArgs contains arguments for the search_nodes tool.
type SearchNodesArgs struct {
	Query string `json:"query"`
}

// OpenNodesArgs contains arguments for the open_nodes tool.
type OpenNodesArgs struct {
	Names []string `json:"names"`
}

// MergeEntitiesArgs contains arguments for the merge_entities tool.
type MergeEntitiesArgs struct {
	NewName     string   `json:"new_name"`
	EntityNames []string `json:"entity_names"`
}

// UnmarshalJSON accepts camelCase spellings for both fields.
func (a *MergeEntitiesArgs) UnmarshalJSON(data []byte) error {
	type alias MergeEntitiesArgs
	aux := &struct {
		NewNameCamel     string   `json:"newName,omitempty"`
		EntityNamesCamel []string `json:"entityNames,omitempty"`
		*alias
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if a.NewName == "" {
		a.NewName = aux.NewNameCamel
	}
	if len(a.EntityNames) == 0 {
		a.EntityNames = aux.EntityNamesCamel
	}
	return nil
}

// MergeEntitiesResult carries the merged entity.
type MergeEntitiesResult struct {
	Entity *types.Entity `json:"entity"`
}

// UpdateUserInfoArgs contains arguments for the update_user_info tool. The
// identity may arrive nested under "user_info" or as a flat object at the
// argument top level; both are accepted.
type UpdateUserInfoArgs struct {
	UserInfo *types.UserIdentifier `json:"user_info"`
}

// UnmarshalJSON accepts the nested and the flattened form.
func (a *UpdateUserInfoArgs) UnmarshalJSON(data []byte) error {
	type alias UpdateUserInfoArgs
	aux := &struct {
		UserInfoCamel *types.UserIdentifier `json:"userInfo,omitempty"`
		*alias
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if a.UserInfo == nil {
		a.UserInfo = aux.UserInfoCamel
	}
	if a.UserInfo == nil {
		var flat types.UserIdentifier
		if err := json.Unmarshal(data, &flat); err == nil && flat.PreferredName != "" {
			a.UserInfo = &flat
		}
	}
	return nil
}

// UpdateUserInfoResult carries the identity as stored, including any derived
// name variants.
type UpdateUserInfoResult struct {
	UserInfo *types.UserIdentifier `json:"user_info"`
}

// ReadGraphResult is the full graph snapshot. UserInfoMissing is true when no
// real user identity has been stored yet; callers should prompt for one and
// call update_user_info.
type ReadGraphResult struct {
	UserInfo        *types.UserIdentifier `json:"user_info,omitempty"`
	Entities        []*types.Entity       `json:"entities"`
	Relations       []types.Relation      `json:"relations"`
	UserInfoMissing bool                  `json:"user_info_missing,omitempty"`
}

// entity converts the wire-level input into the domain type. Observation
// timestamps are stamped by the graph manager, not the client.
func (e EntityInput) entity() types.Entity {
	obs := make([]types.Observation, 0, len(e.Observations))
	for _, entry := range e.Observations {
		obs = append(obs, types.Observation{
			Content:    entry.Content,
			Durability: types.Durability(entry.Durability),
		})
	}
	return types.Entity{
		Name:         e.Name,
		EntityType:   e.EntityType,
		Observations: obs,
		Aliases:      e.Aliases,
		Icon:         e.Icon,
	}
}

// relation converts the wire-level input into the domain triple.
func (r RelationInput) relation() types.Relation {
	return types.Relation{
		FromEntity:   r.From,
		ToEntity:     r.To,
		RelationType: r.RelationType,
	}
}

// request converts the wire-level input into a graph observation request.
func (o ObservationRequestInput) request() graph.ObservationRequest {
	in := make([]graph.ObservationInput, 0, len(o.Observations))
	for _, entry := range o.Observations {
		in = append(in, graph.ObservationInput{
			Content:    entry.Content,
			Durability: types.Durability(entry.Durability),
		})
	}
	return graph.ObservationRequest{
		EntityName:   o.EntityName,
		Observations: in,
	}
}

// deletion converts the wire-level input into a graph observation deletion.
func (o ObservationDeletionInput) deletion() graph.ObservationDeletion {
	return graph.ObservationDeletion{
		EntityName:   o.EntityName,
		Observations: o.Observations,
	}
}

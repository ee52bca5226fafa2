package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/study-flamingo/iq-mcp-sub000/internal/storage"
	"github.com/study-flamingo/iq-mcp-sub000/pkg/types"
)

// SearchNodes returns the sub-graph matching a case-insensitive
// substring query over entity names, types, aliases, and observation
// contents. The empty query matches everything.
func (m *Manager) SearchNodes(ctx context.Context, query string) (*types.KnowledgeGraph, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, _, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	matched := []*types.Entity{}
	for _, e := range g.Entities {
		if entityMatchesQuery(e, needle) {
			matched = append(matched, e)
		}
	}
	return subgraph(matched, g.Relations), nil
}

// OpenNodes returns the sub-graph for the named entities. Unresolvable
// names are dropped silently and duplicates collapse.
func (m *Manager) OpenNodes(ctx context.Context, names []string) (*types.KnowledgeGraph, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, _, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	matched := []*types.Entity{}
	for _, name := range names {
		e := findEntity(g, strings.TrimSpace(name))
		if e == nil || seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		matched = append(matched, e)
	}
	return subgraph(matched, g.Relations), nil
}

// ObservationsByDurability groups one entity's observations into the
// four durability buckets. Unknown durabilities land in short_term.
func (m *Manager) ObservationsByDurability(ctx context.Context, entityName string) (*DurabilityBuckets, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, _, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	entity := findEntity(g, strings.TrimSpace(entityName))
	if entity == nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, entityName)
	}

	buckets := &DurabilityBuckets{
		EntityName: entity.Name,
		Permanent:  []types.Observation{},
		LongTerm:   []types.Observation{},
		ShortTerm:  []types.Observation{},
		Temporary:  []types.Observation{},
	}
	for _, obs := range entity.Observations {
		switch obs.Durability {
		case types.DurabilityPermanent:
			buckets.Permanent = append(buckets.Permanent, obs)
		case types.DurabilityLongTerm:
			buckets.LongTerm = append(buckets.LongTerm, obs)
		case types.DurabilityTemporary:
			buckets.Temporary = append(buckets.Temporary, obs)
		default:
			buckets.ShortTerm = append(buckets.ShortTerm, obs)
		}
	}
	return buckets, nil
}

func entityMatchesQuery(e *types.Entity, needle string) bool {
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(e.Name), needle) ||
		strings.Contains(strings.ToLower(e.EntityType), needle) {
		return true
	}
	for _, alias := range e.Aliases {
		if strings.Contains(strings.ToLower(alias), needle) {
			return true
		}
	}
	for _, obs := range e.Observations {
		if strings.Contains(strings.ToLower(obs.Content), needle) {
			return true
		}
	}
	return false
}

// subgraph keeps only the relations whose both endpoints are in the
// entity set. UserInfo stays nil on sub-graph results.
func subgraph(entities []*types.Entity, relations []types.Relation) *types.KnowledgeGraph {
	names := make(map[string]bool, len(entities))
	for _, e := range entities {
		names[e.Name] = true
	}
	kept := []types.Relation{}
	for _, r := range relations {
		if names[r.FromEntity] && names[r.ToEntity] {
			kept = append(kept, r)
		}
	}
	return &types.KnowledgeGraph{Entities: entities, Relations: kept}
}

package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/study-flamingo/iq-mcp-sub000/internal/storage"
	"github.com/study-flamingo/iq-mcp-sub000/pkg/types"
)

// DeleteEntities removes the named entities and cascades to every
// relation touching them. Unresolvable names are dropped with a
// warning; an empty input list is a validation error.
func (m *Manager) DeleteEntities(ctx context.Context, names []string) (*DeleteEntitiesResult, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: entity names list is empty", storage.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	g, _, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	doomedNames := map[string]bool{} // canonical names
	doomedIDs := map[string]bool{}
	deleted := []string{}
	for _, name := range names {
		entity := findEntity(g, strings.TrimSpace(name))
		if entity == nil {
			m.logger.Printf("delete_entities: %q not found, skipping", name)
			continue
		}
		if doomedIDs[entity.ID] {
			continue
		}
		doomedNames[entity.Name] = true
		doomedIDs[entity.ID] = true
		deleted = append(deleted, entity.Name)
	}

	relationsRemoved := 0
	if len(doomedIDs) > 0 {
		entities := make([]*types.Entity, 0, len(g.Entities))
		for _, e := range g.Entities {
			if !doomedIDs[e.ID] {
				entities = append(entities, e)
			}
		}
		g.Entities = entities

		relations := make([]types.Relation, 0, len(g.Relations))
		for _, r := range g.Relations {
			if doomedNames[r.FromEntity] || doomedNames[r.ToEntity] {
				relationsRemoved++
				continue
			}
			relations = append(relations, r)
		}
		g.Relations = relations

		if g.UserInfo != nil && g.UserInfo.LinkedEntityID != "" && doomedIDs[g.UserInfo.LinkedEntityID] {
			m.logger.Printf("delete_entities: clearing deleted linked entity %s from user info",
				g.UserInfo.LinkedEntityID)
			g.UserInfo.LinkedEntityID = ""
		}
	}

	if err := m.saveLocked(ctx, g); err != nil {
		return nil, err
	}
	return &DeleteEntitiesResult{Deleted: deleted, RelationsRemoved: relationsRemoved}, nil
}

// DeleteObservations removes observations by exact content match.
// Items naming an unknown entity are skipped silently.
func (m *Manager) DeleteObservations(ctx context.Context, deletions []ObservationDeletion) (*DeleteObservationsResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, _, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	result := &DeleteObservationsResult{Results: []EntityObservationsRemoved{}}
	for _, del := range deletions {
		entity := findEntity(g, strings.TrimSpace(del.EntityName))
		if entity == nil {
			continue
		}

		goners := make(map[string]bool, len(del.Observations))
		for _, content := range del.Observations {
			goners[content] = true
		}

		removed := []string{}
		kept := make([]types.Observation, 0, len(entity.Observations))
		for _, obs := range entity.Observations {
			if goners[obs.Content] {
				removed = append(removed, obs.Content)
				continue
			}
			kept = append(kept, obs)
		}
		entity.Observations = kept

		if len(removed) > 0 {
			result.Results = append(result.Results, EntityObservationsRemoved{
				EntityName: entity.Name,
				Removed:    removed,
			})
		}
	}

	if err := m.saveLocked(ctx, g); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteRelations removes exact-triple matches after canonicalizing
// endpoints. Triples that are not present are ignored.
func (m *Manager) DeleteRelations(ctx context.Context, relations []types.Relation) ([]types.Relation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, _, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	goners := make(map[types.Relation]bool, len(relations))
	for _, in := range relations {
		goners[types.Relation{
			FromEntity:   canonicalName(g, strings.TrimSpace(in.FromEntity)),
			ToEntity:     canonicalName(g, strings.TrimSpace(in.ToEntity)),
			RelationType: strings.TrimSpace(in.RelationType),
		}] = true
	}

	removed := []types.Relation{}
	kept := make([]types.Relation, 0, len(g.Relations))
	for _, r := range g.Relations {
		if goners[r] {
			removed = append(removed, r)
			continue
		}
		kept = append(kept, r)
	}
	g.Relations = kept

	if err := m.saveLocked(ctx, g); err != nil {
		return nil, err
	}
	return removed, nil
}

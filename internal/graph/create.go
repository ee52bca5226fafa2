package graph

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/study-flamingo/iq-mcp-sub000/pkg/types"
)

// CreateEntities adds the entities whose names do not collide with any
// live name or alias (case-insensitive) and returns only that subset.
// Colliding or empty-named inputs are dropped with a log line, never an
// error. Client-supplied ids and observation timestamps are ignored;
// both are assigned here.
func (m *Manager) CreateEntities(ctx context.Context, entities []types.Entity) ([]*types.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, _, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	created := []*types.Entity{}
	for _, in := range entities {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			m.logger.Printf("create_entities: dropping entity with empty name")
			continue
		}
		if nameTaken(g, name) {
			m.logger.Printf("create_entities: %q already exists, skipping", name)
			continue
		}

		e := &types.Entity{
			ID:         uuid.NewString(),
			Name:       name,
			EntityType: strings.TrimSpace(in.EntityType),
			Icon:       strings.TrimSpace(in.Icon),
		}
		for _, alias := range in.Aliases {
			alias = strings.TrimSpace(alias)
			if alias == "" || e.Matches(alias) {
				continue // duplicate of the name or an earlier alias
			}
			if nameTaken(g, alias) {
				m.logger.Printf("create_entities: alias %q on %q collides, dropping alias", alias, name)
				continue
			}
			e.Aliases = append(e.Aliases, alias)
		}
		e.Observations = make([]types.Observation, 0, len(in.Observations))
		for _, obs := range in.Observations {
			content := strings.TrimSpace(obs.Content)
			if content == "" || e.HasObservation(content) {
				continue
			}
			e.Observations = append(e.Observations, types.NewObservation(content, obs.Durability, now))
		}

		// Appending before the next input is examined makes the
		// collision check cover the batch itself.
		g.Entities = append(g.Entities, e)
		created = append(created, e)
	}

	if err := m.saveLocked(ctx, g); err != nil {
		return nil, err
	}
	return created, nil
}

// CreateRelations adds the relations that are not already present,
// canonicalizing endpoints through alias resolution first. Endpoints
// without a live entity are kept as given; dangling edges are legal.
func (m *Manager) CreateRelations(ctx context.Context, relations []types.Relation) ([]types.Relation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, _, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	created := []types.Relation{}
	for _, in := range relations {
		r := types.Relation{
			FromEntity:   canonicalName(g, strings.TrimSpace(in.FromEntity)),
			ToEntity:     canonicalName(g, strings.TrimSpace(in.ToEntity)),
			RelationType: strings.TrimSpace(in.RelationType),
		}
		if !r.Complete() {
			m.logger.Printf("create_relations: dropping incomplete triple %q -[%q]-> %q",
				in.FromEntity, in.RelationType, in.ToEntity)
			continue
		}
		if g.HasRelation(r) {
			continue
		}
		g.Relations = append(g.Relations, r)
		created = append(created, r)
	}

	if err := m.saveLocked(ctx, g); err != nil {
		return nil, err
	}
	return created, nil
}

// ApplyObservations adds observations to existing entities. Requests
// naming an unknown entity, and items with empty content, are recorded
// as failures without stopping the rest of the batch.
func (m *Manager) ApplyObservations(ctx context.Context, requests []ObservationRequest) (*ApplyObservationsResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, _, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	result := &ApplyObservationsResult{Results: []EntityObservations{}}
	for _, req := range requests {
		entity := findEntity(g, strings.TrimSpace(req.EntityName))
		if entity == nil {
			result.Failures = append(result.Failures, RequestFailure{
				EntityName: req.EntityName,
				Reason:     "entity not found",
			})
			continue
		}

		added := []types.Observation{}
		for _, in := range req.Observations {
			content := strings.TrimSpace(in.Content)
			if content == "" {
				result.Failures = append(result.Failures, RequestFailure{
					EntityName: entity.Name,
					Reason:     "empty observation content",
				})
				continue
			}
			if entity.HasObservation(content) {
				continue
			}
			obs := types.NewObservation(content, in.Durability, now)
			entity.Observations = append(entity.Observations, obs)
			added = append(added, obs)
		}
		result.Results = append(result.Results, EntityObservations{
			EntityName: entity.Name,
			Added:      added,
		})
	}

	if err := m.saveLocked(ctx, g); err != nil {
		return nil, err
	}
	return result, nil
}

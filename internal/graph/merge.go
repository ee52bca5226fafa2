package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/study-flamingo/iq-mcp-sub000/internal/storage"
	"github.com/study-flamingo/iq-mcp-sub000/pkg/types"
)

// MergeEntities combines several entities into one named newName. The
// merge is atomic: any validation, conflict, or missing-entity error
// returns before anything is persisted, leaving the graph untouched.
//
// The merged entity takes the majority entity type (ties broken by
// first encounter), the union of observations (first occurrence of
// each content wins, original timestamps kept), the union of former
// names and aliases as its alias list, and a fresh id. Relations are
// rewritten onto the new name and deduplicated keeping each triple's
// last occurrence; self-loops produced by the rewrite are kept.
func (m *Manager) MergeEntities(ctx context.Context, newName string, entityNames []string) (*types.Entity, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, fmt.Errorf("%w: new name is required", storage.ErrInvalidInput)
	}
	if len(entityNames) == 0 {
		return nil, fmt.Errorf("%w: entity names list is empty", storage.ErrInvalidInput)
	}
	for _, name := range entityNames {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: entity names must be non-empty", storage.ErrInvalidInput)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	g, _, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	// Resolve the merge set, collapsing identifiers that reach the same
	// entity. Unresolvable names are collected into one error.
	var (
		merged  []*types.Entity
		missing []string
		inSet   = map[string]bool{} // by entity id
	)
	for _, name := range entityNames {
		e := findEntity(g, strings.TrimSpace(name))
		if e == nil {
			missing = append(missing, strings.TrimSpace(name))
			continue
		}
		if inSet[e.ID] {
			continue
		}
		inSet[e.ID] = true
		merged = append(merged, e)
	}

	if existing := findEntity(g, newName); existing != nil && !inSet[existing.ID] {
		return nil, fmt.Errorf("%w: %q already names another entity", storage.ErrConflict, newName)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, strings.Join(missing, ", "))
	}

	oldNames := make(map[string]bool, len(merged))
	for _, e := range merged {
		oldNames[e.Name] = true
	}

	entity := &types.Entity{
		ID:           uuid.NewString(),
		Name:         newName,
		EntityType:   majorityType(merged),
		Observations: unionObservations(merged),
		Aliases:      mergedAliases(merged, newName),
		Icon:         firstIcon(merged),
	}

	entities := make([]*types.Entity, 0, len(g.Entities))
	for _, e := range g.Entities {
		if inSet[e.ID] {
			continue
		}
		entities = append(entities, e)
	}
	g.Entities = append(entities, entity)

	rewritten := make([]types.Relation, 0, len(g.Relations))
	for _, r := range g.Relations {
		if oldNames[r.FromEntity] {
			r.FromEntity = newName
		}
		if oldNames[r.ToEntity] {
			r.ToEntity = newName
		}
		rewritten = append(rewritten, r)
	}
	g.Relations = dedupKeepLast(rewritten)

	if g.UserInfo != nil && g.UserInfo.LinkedEntityID != "" && inSet[g.UserInfo.LinkedEntityID] {
		g.UserInfo.LinkedEntityID = entity.ID
	}

	if err := m.saveLocked(ctx, g); err != nil {
		return nil, err
	}
	m.logger.Printf("merged %d entities into %q", len(merged), newName)
	return entity, nil
}

// majorityType picks the most common entity type in the merge set,
// breaking ties by first encounter.
func majorityType(merged []*types.Entity) string {
	counts := map[string]int{}
	order := []string{}
	for _, e := range merged {
		if counts[e.EntityType] == 0 {
			order = append(order, e.EntityType)
		}
		counts[e.EntityType]++
	}

	winner := ""
	best := 0
	for _, t := range order {
		if counts[t] > best {
			winner = t
			best = counts[t]
		}
	}
	return winner
}

// unionObservations concatenates observations in merge order, keeping
// the first occurrence of each content with its original timestamp.
func unionObservations(merged []*types.Entity) []types.Observation {
	seen := map[string]bool{}
	union := []types.Observation{}
	for _, e := range merged {
		for _, obs := range e.Observations {
			if seen[obs.Content] {
				continue
			}
			seen[obs.Content] = true
			union = append(union, obs)
		}
	}
	return union
}

// mergedAliases unions the former names and aliases of the merge set,
// minus anything case-insensitively equal to newName, sorted.
func mergedAliases(merged []*types.Entity, newName string) []string {
	var all []string
	for _, e := range merged {
		all = append(all, e.Name)
		all = append(all, e.Aliases...)
	}

	seen := map[string]bool{}
	out := []string{}
	for _, alias := range all {
		key := strings.ToLower(alias)
		if seen[key] || strings.EqualFold(alias, newName) {
			continue
		}
		seen[key] = true
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

// firstIcon returns the first non-empty icon in merge order.
func firstIcon(merged []*types.Entity) string {
	for _, e := range merged {
		if e.Icon != "" {
			return e.Icon
		}
	}
	return ""
}

// dedupKeepLast removes duplicate triples, keeping each triple's last
// occurrence in its position.
func dedupKeepLast(relations []types.Relation) []types.Relation {
	seen := map[types.Relation]bool{}
	out := make([]types.Relation, 0, len(relations))
	for i := len(relations) - 1; i >= 0; i-- {
		if seen[relations[i]] {
			continue
		}
		seen[relations[i]] = true
		out = append(out, relations[i])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

package graph

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/study-flamingo/iq-mcp-sub000/internal/storage"
	"github.com/study-flamingo/iq-mcp-sub000/internal/storage/jsonl"
	"github.com/study-flamingo/iq-mcp-sub000/pkg/types"
)

// newTestManager creates a manager over a real JSONL store in a temp
// directory, so operations exercise the full load/save cycle.
func newTestManager(t *testing.T) (*Manager, *jsonl.Store) {
	t.Helper()
	store := jsonl.New(filepath.Join(t.TempDir(), "memory.jsonl"))
	return NewManager(store), store
}

func mustCreate(t *testing.T, m *Manager, entities ...types.Entity) []*types.Entity {
	t.Helper()
	created, err := m.CreateEntities(context.Background(), entities)
	if err != nil {
		t.Fatalf("create entities: %v", err)
	}
	return created
}

func TestCreateEntitiesAssignsIDs(t *testing.T) {
	m, _ := newTestManager(t)

	created := mustCreate(t, m, types.Entity{
		ID:         "client-supplied",
		Name:       "Alice",
		EntityType: "person",
		Observations: []types.Observation{
			{Content: "likes tea"},
		},
	})

	if len(created) != 1 {
		t.Fatalf("got %d created, want 1", len(created))
	}
	e := created[0]
	if e.ID == "" || e.ID == "client-supplied" {
		t.Errorf("expected a server-assigned id, got %q", e.ID)
	}
	if len(e.Observations) != 1 {
		t.Fatalf("got %d observations, want 1", len(e.Observations))
	}
	obs := e.Observations[0]
	if obs.Timestamp == nil {
		t.Error("expected a server-assigned timestamp")
	}
	if obs.Durability != types.DurabilityShortTerm {
		t.Errorf("durability = %q, want defaulted short_term", obs.Durability)
	}
}

func TestCreateEntitiesFiltersCollisions(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	mustCreate(t, m,
		types.Entity{Name: "Alice", EntityType: "person", Aliases: []string{"Ally"}},
	)

	// Same names again, in different case, plus a collision with an
	// alias and an intra-batch duplicate.
	created, err := m.CreateEntities(ctx, []types.Entity{
		{Name: "alice", EntityType: "person"},
		{Name: "ALLY", EntityType: "person"},
		{Name: "Bob", EntityType: "person"},
		{Name: "bob", EntityType: "person"},
		{Name: "", EntityType: "person"},
	})
	if err != nil {
		t.Fatalf("create entities: %v", err)
	}
	if len(created) != 1 || created[0].Name != "Bob" {
		t.Fatalf("expected only Bob to be created, got %+v", created)
	}

	// A full repeat creates nothing.
	repeat, err := m.CreateEntities(ctx, []types.Entity{
		{Name: "Alice", EntityType: "person"},
		{Name: "Bob", EntityType: "person"},
	})
	if err != nil {
		t.Fatalf("create entities: %v", err)
	}
	if len(repeat) != 0 {
		t.Errorf("expected empty created list on repeat, got %+v", repeat)
	}
}

func TestCreateEntitiesDropsCollidingAlias(t *testing.T) {
	m, _ := newTestManager(t)

	mustCreate(t, m, types.Entity{Name: "Alice", EntityType: "person"})
	created := mustCreate(t, m, types.Entity{
		Name:    "Bob",
		Aliases: []string{"alice", "Bobby", "bobby", "Bob"},
	})

	if len(created) != 1 {
		t.Fatalf("got %d created, want 1", len(created))
	}
	aliases := created[0].Aliases
	if len(aliases) != 1 || aliases[0] != "Bobby" {
		t.Errorf("aliases = %v, want [Bobby]", aliases)
	}
}

func TestCreateRelationsDeduplicates(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	mustCreate(t, m,
		types.Entity{Name: "Alice", EntityType: "person", Aliases: []string{"Ally"}},
		types.Entity{Name: "Acme", EntityType: "company"},
	)

	created, err := m.CreateRelations(ctx, []types.Relation{
		{FromEntity: "Ally", ToEntity: "Acme", RelationType: "works_at"},
		{FromEntity: "Alice", ToEntity: "Acme", RelationType: "works_at"},
		{FromEntity: "Alice", ToEntity: "Nowhere", RelationType: "visited"},
	})
	if err != nil {
		t.Fatalf("create relations: %v", err)
	}

	// The alias canonicalizes to Alice, so the first two collapse; the
	// dangling endpoint is legal and kept as given.
	if len(created) != 2 {
		t.Fatalf("got %d created, want 2: %+v", len(created), created)
	}
	if created[0].FromEntity != "Alice" {
		t.Errorf("endpoint not canonicalized: %+v", created[0])
	}
	if created[1].ToEntity != "Nowhere" {
		t.Errorf("dangling endpoint rewritten: %+v", created[1])
	}

	again, err := m.CreateRelations(ctx, []types.Relation{
		{FromEntity: "alice", ToEntity: "Acme", RelationType: "works_at"},
	})
	if err != nil {
		t.Fatalf("create relations: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("expected duplicate triple to be skipped, got %+v", again)
	}
}

func TestApplyObservations(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	mustCreate(t, m, types.Entity{
		Name:         "Alice",
		EntityType:   "person",
		Aliases:      []string{"Ally"},
		Observations: []types.Observation{{Content: "likes tea"}},
	})

	result, err := m.ApplyObservations(ctx, []ObservationRequest{
		{
			EntityName: "ally", // resolves through the alias
			Observations: []ObservationInput{
				{Content: "likes tea"}, // already present
				{Content: "plays chess", Durability: types.DurabilityPermanent},
				{Content: "plays chess"}, // duplicate within the request
				{Content: "   "},
			},
		},
		{EntityName: "Nobody", Observations: []ObservationInput{{Content: "x"}}},
	})
	if err != nil {
		t.Fatalf("apply observations: %v", err)
	}

	if len(result.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(result.Results))
	}
	added := result.Results[0]
	if added.EntityName != "Alice" {
		t.Errorf("entity name = %q, want canonical Alice", added.EntityName)
	}
	if len(added.Added) != 1 || added.Added[0].Content != "plays chess" {
		t.Errorf("added = %+v, want just plays chess", added.Added)
	}
	if added.Added[0].Durability != types.DurabilityPermanent {
		t.Errorf("durability = %q, want permanent", added.Added[0].Durability)
	}

	// One failure for the unknown entity, one for the blank content.
	if len(result.Failures) != 2 {
		t.Fatalf("got %d failures, want 2: %+v", len(result.Failures), result.Failures)
	}

	graph, err := m.ReadGraph(ctx)
	if err != nil {
		t.Fatalf("read graph: %v", err)
	}
	if n := len(graph.Entities[0].Observations); n != 2 {
		t.Errorf("persisted observations = %d, want 2", n)
	}
}

func TestDeleteEntitiesCascades(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	mustCreate(t, m,
		types.Entity{Name: "A", EntityType: "person"},
		types.Entity{Name: "B", EntityType: "person"},
		types.Entity{Name: "C", EntityType: "person"},
	)
	if _, err := m.CreateRelations(ctx, []types.Relation{
		{FromEntity: "A", ToEntity: "B", RelationType: "knows"},
		{FromEntity: "B", ToEntity: "C", RelationType: "knows"},
	}); err != nil {
		t.Fatalf("create relations: %v", err)
	}

	result, err := m.DeleteEntities(ctx, []string{"B", "Ghost"})
	if err != nil {
		t.Fatalf("delete entities: %v", err)
	}
	if len(result.Deleted) != 1 || result.Deleted[0] != "B" {
		t.Errorf("deleted = %v, want [B]", result.Deleted)
	}
	if result.RelationsRemoved != 2 {
		t.Errorf("relations removed = %d, want 2", result.RelationsRemoved)
	}

	graph, err := m.ReadGraph(ctx)
	if err != nil {
		t.Fatalf("read graph: %v", err)
	}
	if len(graph.Entities) != 2 {
		t.Errorf("got %d entities, want A and C", len(graph.Entities))
	}
	if len(graph.Relations) != 0 {
		t.Errorf("expected zero relations after cascade, got %v", graph.Relations)
	}
}

func TestDeleteEntitiesEmptyListIsError(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.DeleteEntities(context.Background(), nil)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("got %v, want ErrInvalidInput", err)
	}
}

func TestDeleteEntitiesClearsLinkedEntity(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	created := mustCreate(t, m, types.Entity{Name: "Ada", EntityType: "person"})
	user, err := types.UserIdentifierFromParts(types.NameParts{
		PreferredName: "Ada", FirstName: "Ada", LastName: "Lovelace",
	})
	if err != nil {
		t.Fatalf("build user: %v", err)
	}
	user.LinkedEntityID = created[0].ID
	if err := m.UpdateUserInfo(ctx, user); err != nil {
		t.Fatalf("update user info: %v", err)
	}

	if _, err := m.DeleteEntities(ctx, []string{"Ada"}); err != nil {
		t.Fatalf("delete entities: %v", err)
	}

	graph, err := m.ReadGraph(ctx)
	if err != nil {
		t.Fatalf("read graph: %v", err)
	}
	if graph.UserInfo.LinkedEntityID != "" {
		t.Errorf("linked entity id = %q, want cleared", graph.UserInfo.LinkedEntityID)
	}
}

func TestDeleteObservations(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	mustCreate(t, m, types.Entity{
		Name: "Alice",
		Observations: []types.Observation{
			{Content: "likes tea"},
			{Content: "plays chess"},
		},
	})

	result, err := m.DeleteObservations(ctx, []ObservationDeletion{
		{EntityName: "alice", Observations: []string{"likes tea", "never recorded"}},
		{EntityName: "Ghost", Observations: []string{"whatever"}},
	})
	if err != nil {
		t.Fatalf("delete observations: %v", err)
	}

	if len(result.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(result.Results))
	}
	if got := result.Results[0].Removed; len(got) != 1 || got[0] != "likes tea" {
		t.Errorf("removed = %v, want [likes tea]", got)
	}

	graph, _ := m.ReadGraph(ctx)
	if n := len(graph.Entities[0].Observations); n != 1 {
		t.Errorf("remaining observations = %d, want 1", n)
	}
}

func TestDeleteRelations(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	mustCreate(t, m,
		types.Entity{Name: "Alice", Aliases: []string{"Ally"}},
		types.Entity{Name: "Acme"},
	)
	if _, err := m.CreateRelations(ctx, []types.Relation{
		{FromEntity: "Alice", ToEntity: "Acme", RelationType: "works_at"},
		{FromEntity: "Acme", ToEntity: "Alice", RelationType: "employs"},
	}); err != nil {
		t.Fatalf("create relations: %v", err)
	}

	removed, err := m.DeleteRelations(ctx, []types.Relation{
		{FromEntity: "ally", ToEntity: "Acme", RelationType: "works_at"},
		{FromEntity: "Alice", ToEntity: "Acme", RelationType: "never_existed"},
	})
	if err != nil {
		t.Fatalf("delete relations: %v", err)
	}
	if len(removed) != 1 || removed[0].RelationType != "works_at" {
		t.Errorf("removed = %v, want the works_at triple", removed)
	}

	graph, _ := m.ReadGraph(ctx)
	if len(graph.Relations) != 1 || graph.Relations[0].RelationType != "employs" {
		t.Errorf("remaining relations = %v, want just employs", graph.Relations)
	}
}

func TestOpenNodesResolvesAliases(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	mustCreate(t, m,
		types.Entity{Name: "Alice", EntityType: "person", Aliases: []string{"Ally"}},
		types.Entity{Name: "Bob", EntityType: "person"},
	)
	if _, err := m.CreateRelations(ctx, []types.Relation{
		{FromEntity: "Alice", ToEntity: "Bob", RelationType: "knows"},
	}); err != nil {
		t.Fatalf("create relations: %v", err)
	}

	sub, err := m.OpenNodes(ctx, []string{"Ally", "ally", "Ghost", "Bob"})
	if err != nil {
		t.Fatalf("open nodes: %v", err)
	}

	// "Ally" and "ally" resolve to the same entity and collapse.
	if len(sub.Entities) != 2 {
		t.Fatalf("got %d entities, want 2", len(sub.Entities))
	}
	if sub.Entities[0].Name != "Alice" {
		t.Errorf("first entity = %q, want Alice", sub.Entities[0].Name)
	}
	if len(sub.Relations) != 1 {
		t.Errorf("got %d relations, want the knows edge", len(sub.Relations))
	}
	if sub.UserInfo != nil {
		t.Error("sub-graph results must not carry user info")
	}
}

func TestSearchNodes(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	mustCreate(t, m,
		types.Entity{
			Name:       "Alice",
			EntityType: "person",
			Aliases:    []string{"Ally"},
			Observations: []types.Observation{
				{Content: "enjoys hiking in the Alps"},
			},
		},
		types.Entity{Name: "Acme", EntityType: "company"},
		types.Entity{Name: "Basel", EntityType: "place"},
	)
	if _, err := m.CreateRelations(ctx, []types.Relation{
		{FromEntity: "Alice", ToEntity: "Acme", RelationType: "works_at"},
		{FromEntity: "Alice", ToEntity: "Basel", RelationType: "lives_in"},
	}); err != nil {
		t.Fatalf("create relations: %v", err)
	}

	cases := []struct {
		query string
		want  int
	}{
		{"ALICE", 1},   // name, case-insensitive
		{"ally", 1},    // alias
		{"company", 1}, // entity type
		{"alps", 1},    // observation content
		{"a", 3},       // substring across all three
		{"", 3},        // empty query matches everything
		{"zzz", 0},
	}
	for _, tc := range cases {
		sub, err := m.SearchNodes(ctx, tc.query)
		if err != nil {
			t.Fatalf("search %q: %v", tc.query, err)
		}
		if len(sub.Entities) != tc.want {
			t.Errorf("search %q: got %d entities, want %d", tc.query, len(sub.Entities), tc.want)
		}
	}

	// Only relations with both endpoints matched survive.
	sub, err := m.SearchNodes(ctx, "alice")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(sub.Relations) != 0 {
		t.Errorf("expected no relations for a single-entity match, got %v", sub.Relations)
	}
}

func TestObservationsByDurability(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	mustCreate(t, m, types.Entity{
		Name: "Alice",
		Observations: []types.Observation{
			{Content: "born in Basel", Durability: types.DurabilityPermanent},
			{Content: "works at Acme", Durability: types.DurabilityLongTerm},
			{Content: "learning Go", Durability: types.DurabilityShortTerm},
			{Content: "travelling this week", Durability: types.DurabilityTemporary},
		},
	})

	buckets, err := m.ObservationsByDurability(ctx, "ALICE")
	if err != nil {
		t.Fatalf("observations by durability: %v", err)
	}
	if buckets.EntityName != "Alice" {
		t.Errorf("entity name = %q, want Alice", buckets.EntityName)
	}
	if len(buckets.Permanent) != 1 || len(buckets.LongTerm) != 1 ||
		len(buckets.ShortTerm) != 1 || len(buckets.Temporary) != 1 {
		t.Errorf("unexpected bucket sizes: %+v", buckets)
	}

	_, err = m.ObservationsByDurability(ctx, "Ghost")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestUpdateUserInfo(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, missing, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !missing {
		t.Error("expected user info to start missing")
	}

	user, err := types.UserIdentifierFromParts(types.NameParts{
		PreferredName: "Ada", FirstName: "Ada", LastName: "Lovelace",
	})
	if err != nil {
		t.Fatalf("build user: %v", err)
	}
	if err := m.UpdateUserInfo(ctx, user); err != nil {
		t.Fatalf("update user info: %v", err)
	}

	graph, missing, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if missing {
		t.Error("expected user info to be present after update")
	}
	if graph.UserInfo.PreferredName != "Ada" {
		t.Errorf("preferred name = %q, want Ada", graph.UserInfo.PreferredName)
	}

	if err := m.UpdateUserInfo(ctx, &types.UserIdentifier{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("got %v, want ErrInvalidInput for empty preferred name", err)
	}
}

func TestChangeListenerFiresAfterSave(t *testing.T) {
	store := jsonl.New(filepath.Join(t.TempDir(), "memory.jsonl"))

	var notified int
	m := NewManager(store, WithChangeListener(func(g *types.KnowledgeGraph) {
		notified++
	}))

	mustCreate(t, m, types.Entity{Name: "Alice"})
	if _, err := m.SearchNodes(context.Background(), "alice"); err != nil {
		t.Fatalf("search: %v", err)
	}

	// One save happened (the create); the read must not notify.
	if notified != 1 {
		t.Errorf("listener fired %d times, want 1", notified)
	}
}

package graph

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/study-flamingo/iq-mcp-sub000/internal/storage"
	"github.com/study-flamingo/iq-mcp-sub000/pkg/types"
)

func TestMergeEntitiesUnionsObservations(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	mustCreate(t, m,
		types.Entity{Name: "Bob", EntityType: "person", Observations: []types.Observation{
			{Content: "works at Acme"},
		}},
		types.Entity{Name: "Robert", EntityType: "person", Observations: []types.Observation{
			{Content: "works at Acme"},
			{Content: "plays chess"},
		}},
	)

	merged, err := m.MergeEntities(ctx, "Robert Smith", []string{"Bob", "Robert"})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	// The shared observation collapses to one copy.
	if len(merged.Observations) != 2 {
		t.Fatalf("got %d observations, want 2: %+v", len(merged.Observations), merged.Observations)
	}
	if merged.Observations[0].Content != "works at Acme" || merged.Observations[1].Content != "plays chess" {
		t.Errorf("unexpected union order: %+v", merged.Observations)
	}

	graph, _ := m.ReadGraph(ctx)
	if len(graph.Entities) != 1 {
		t.Errorf("got %d entities, want only the merged one", len(graph.Entities))
	}
}

func TestMergeEntitiesConflictLeavesGraphUnchanged(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	mustCreate(t, m,
		types.Entity{Name: "A", EntityType: "person"},
		types.Entity{Name: "B", EntityType: "person"},
		types.Entity{Name: "C", EntityType: "person"},
	)
	if _, err := m.CreateRelations(ctx, []types.Relation{
		{FromEntity: "A", ToEntity: "B", RelationType: "knows"},
	}); err != nil {
		t.Fatalf("create relations: %v", err)
	}

	_, err := m.MergeEntities(ctx, "c", []string{"A", "B"})
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}

	graph, _ := m.ReadGraph(ctx)
	if len(graph.Entities) != 3 {
		t.Errorf("got %d entities, want untouched 3", len(graph.Entities))
	}
	if len(graph.Relations) != 1 {
		t.Errorf("got %d relations, want untouched 1", len(graph.Relations))
	}
}

func TestMergeEntitiesNewNameInsideMergeSet(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	mustCreate(t, m,
		types.Entity{Name: "Bob", EntityType: "person"},
		types.Entity{Name: "Bobby", EntityType: "person"},
	)

	// Reusing a merge member's name is not a conflict.
	merged, err := m.MergeEntities(ctx, "Bob", []string{"Bob", "Bobby"})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.Name != "Bob" {
		t.Errorf("name = %q, want Bob", merged.Name)
	}
	if len(merged.Aliases) != 1 || merged.Aliases[0] != "Bobby" {
		t.Errorf("aliases = %v, want [Bobby]", merged.Aliases)
	}
}

func TestMergeEntitiesMissingMembers(t *testing.T) {
	m, _ := newTestManager(t)

	mustCreate(t, m, types.Entity{Name: "A", EntityType: "person"})

	_, err := m.MergeEntities(context.Background(), "Z", []string{"A", "Ghost", "Phantom"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	for _, name := range []string{"Ghost", "Phantom"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not mention %s", err, name)
		}
	}
}

func TestMergeEntitiesValidation(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		newName string
		members []string
	}{
		{"empty new name", "  ", []string{"A"}},
		{"empty member list", "Z", nil},
		{"blank member", "Z", []string{"A", " "}},
	}
	for _, tc := range cases {
		if _, err := m.MergeEntities(ctx, tc.newName, tc.members); !errors.Is(err, storage.ErrInvalidInput) {
			t.Errorf("%s: got %v, want ErrInvalidInput", tc.name, err)
		}
	}
}

func TestMergeEntitiesRewritesRelations(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	mustCreate(t, m,
		types.Entity{Name: "Bob", EntityType: "person"},
		types.Entity{Name: "Robert", EntityType: "person"},
		types.Entity{Name: "Acme", EntityType: "company"},
	)
	if _, err := m.CreateRelations(ctx, []types.Relation{
		{FromEntity: "Bob", ToEntity: "Acme", RelationType: "works_at"},
		{FromEntity: "Robert", ToEntity: "Acme", RelationType: "works_at"},
		{FromEntity: "Bob", ToEntity: "Robert", RelationType: "same_person_as"},
	}); err != nil {
		t.Fatalf("create relations: %v", err)
	}

	merged, err := m.MergeEntities(ctx, "Robert Smith", []string{"Bob", "Robert"})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	graph, _ := m.ReadGraph(ctx)

	// The two works_at edges collapse onto the new name; the edge
	// between the merged pair becomes a self-loop and is kept.
	want := map[types.Relation]bool{
		{FromEntity: "Robert Smith", ToEntity: "Acme", RelationType: "works_at"}:              true,
		{FromEntity: "Robert Smith", ToEntity: "Robert Smith", RelationType: "same_person_as"}: true,
	}
	if len(graph.Relations) != len(want) {
		t.Fatalf("relations = %v, want %d of them", graph.Relations, len(want))
	}
	for _, r := range graph.Relations {
		if !want[r] {
			t.Errorf("unexpected relation %+v", r)
		}
	}

	if merged.EntityType != "person" {
		t.Errorf("entity type = %q, want person", merged.EntityType)
	}
}

func TestMergeEntitiesMajorityTypeAndIcon(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	mustCreate(t, m,
		types.Entity{Name: "A", EntityType: "project"},
		types.Entity{Name: "B", EntityType: "person", Icon: "🤖"},
		types.Entity{Name: "C", EntityType: "person", Icon: "👤"},
	)

	merged, err := m.MergeEntities(ctx, "Z", []string{"A", "B", "C"})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.EntityType != "person" {
		t.Errorf("entity type = %q, want majority person", merged.EntityType)
	}
	if merged.Icon != "🤖" {
		t.Errorf("icon = %q, want first non-empty in merge order", merged.Icon)
	}
}

func TestMergeEntitiesTieBreaksByFirstEncounter(t *testing.T) {
	m, _ := newTestManager(t)

	mustCreate(t, m,
		types.Entity{Name: "A", EntityType: "project"},
		types.Entity{Name: "B", EntityType: "person"},
	)

	merged, err := m.MergeEntities(context.Background(), "Z", []string{"A", "B"})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.EntityType != "project" {
		t.Errorf("entity type = %q, want first-encountered project", merged.EntityType)
	}
}

func TestMergeEntitiesAliasUnion(t *testing.T) {
	m, _ := newTestManager(t)

	mustCreate(t, m,
		types.Entity{Name: "Bob", EntityType: "person", Aliases: []string{"Bobby"}},
		types.Entity{Name: "Robert", EntityType: "person", Aliases: []string{"Rob", "robert smith"}},
	)

	merged, err := m.MergeEntities(context.Background(), "Robert Smith", []string{"Bob", "Robert"})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	// Former names plus aliases, minus the new name (case-insensitive),
	// sorted. "robert smith" equals the new name and is excluded.
	want := []string{"Bob", "Bobby", "Rob", "Robert"}
	if len(merged.Aliases) != len(want) {
		t.Fatalf("aliases = %v, want %v", merged.Aliases, want)
	}
	for i, alias := range want {
		if merged.Aliases[i] != alias {
			t.Errorf("aliases[%d] = %q, want %q", i, merged.Aliases[i], alias)
		}
	}
}

func TestMergeEntitiesGetsFreshID(t *testing.T) {
	m, _ := newTestManager(t)

	created := mustCreate(t, m,
		types.Entity{Name: "A", EntityType: "person"},
		types.Entity{Name: "B", EntityType: "person"},
	)

	merged, err := m.MergeEntities(context.Background(), "AB", []string{"A", "B"})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	for _, e := range created {
		if merged.ID == e.ID {
			t.Errorf("merged entity reused id %s", e.ID)
		}
	}
}

func TestMergeEntitiesRepointsLinkedEntity(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	created := mustCreate(t, m,
		types.Entity{Name: "Ada", EntityType: "person"},
		types.Entity{Name: "Ada L", EntityType: "person"},
	)
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

	merged, err := m.MergeEntities(ctx, "Ada Lovelace", []string{"Ada", "Ada L"})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	graph, _ := m.ReadGraph(ctx)
	if graph.UserInfo.LinkedEntityID != merged.ID {
		t.Errorf("linked entity id = %q, want repointed to %q", graph.UserInfo.LinkedEntityID, merged.ID)
	}
}

func TestMergeEntitiesCollapsesAliasesOfSameEntity(t *testing.T) {
	m, _ := newTestManager(t)

	mustCreate(t, m,
		types.Entity{Name: "Alice", EntityType: "person", Aliases: []string{"Ally"}},
		types.Entity{Name: "Bob", EntityType: "person"},
	)

	// "Alice" and "Ally" resolve to the same entity; the merge set has
	// two members, not three.
	merged, err := m.MergeEntities(context.Background(), "Z", []string{"Alice", "Ally", "Bob"})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	want := []string{"Alice", "Ally", "Bob"}
	if len(merged.Aliases) != len(want) {
		t.Fatalf("aliases = %v, want %v", merged.Aliases, want)
	}
}

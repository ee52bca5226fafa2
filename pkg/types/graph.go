// Package types defines the wire-visible data structures of the
// knowledge graph: entities, observations with durability, relations,
// the user identity, and the graph container they all hang off.
package types

// KnowledgeGraph is the full persisted state: the user's identity plus
// every entity and relation. Sub-graph results from search and open
// leave UserInfo nil.
type KnowledgeGraph struct {
	UserInfo  *UserIdentifier `json:"user_info,omitempty"`
	Entities  []*Entity       `json:"entities"`
	Relations []Relation      `json:"relations"`
}

// NewKnowledgeGraph returns an empty graph with the placeholder user.
func NewKnowledgeGraph() *KnowledgeGraph {
	return &KnowledgeGraph{
		UserInfo:  DefaultUserIdentifier(),
		Entities:  []*Entity{},
		Relations: []Relation{},
	}
}

// HasRelation reports whether the exact triple is already present.
func (g *KnowledgeGraph) HasRelation(r Relation) bool {
	for _, existing := range g.Relations {
		if existing == r {
			return true
		}
	}
	return false
}

// ObservationCount sums the observations across all entities.
func (g *KnowledgeGraph) ObservationCount() int {
	n := 0
	for _, e := range g.Entities {
		n += len(e.Observations)
	}
	return n
}

// EntityByID returns the entity with the given id, or nil.
func (g *KnowledgeGraph) EntityByID(id string) *Entity {
	for _, e := range g.Entities {
		if e.ID == id {
			return e
		}
	}
	return nil
}

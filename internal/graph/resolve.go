package graph

import "github.com/study-flamingo/iq-mcp-sub000/pkg/types"

// findEntity resolves an identifier to an entity: a single pass over
// the graph in storage order, matching each entity's canonical name
// first and then its aliases, case-insensitively. First match wins.
func findEntity(g *types.KnowledgeGraph, identifier string) *types.Entity {
	if identifier == "" {
		return nil
	}
	for _, e := range g.Entities {
		if e.Matches(identifier) {
			return e
		}
	}
	return nil
}

// canonicalName maps an identifier to its entity's canonical name, or
// returns the identifier unchanged when nothing matches.
func canonicalName(g *types.KnowledgeGraph, identifier string) string {
	if e := findEntity(g, identifier); e != nil {
		return e.Name
	}
	return identifier
}

// nameTaken reports whether candidate collides with any live entity
// name or alias, case-insensitively.
func nameTaken(g *types.KnowledgeGraph, candidate string) bool {
	return findEntity(g, candidate) != nil
}

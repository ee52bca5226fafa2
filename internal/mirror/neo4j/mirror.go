// Package neo4j provides a Neo4j replica of the knowledge graph, mapping
// entities to nodes and relations to typed-by-property edges.
package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/study-flamingo/iq-mcp-sub000/pkg/types"
)

// Mirror replicates graph snapshots into a Neo4j database. Entities become
// (:Entity) nodes, relations become [:RELATES {type}] edges, and the user
// identity becomes a single (:UserInfo) node.
type Mirror struct {
	driver neo4j.DriverWithContext
}

// New connects to Neo4j and verifies connectivity.
func New(ctx context.Context, uri, user, password string) (*Mirror, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify neo4j connectivity: %w", err)
	}
	return &Mirror{driver: driver}, nil
}

// Name identifies the mirror in logs.
func (m *Mirror) Name() string { return "neo4j" }

// Replicate replaces the replica's contents with the snapshot. The wipe and
// the rebuild run in the same write session.
func (m *Mirror) Replicate(ctx context.Context, g *types.KnowledgeGraph) error {
	session := m.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	if _, err := session.Run(ctx, "MATCH (n) WHERE n:Entity OR n:UserInfo DETACH DELETE n", nil); err != nil {
		return fmt.Errorf("failed to clear replica: %w", err)
	}

	for _, e := range g.Entities {
		contents := make([]string, 0, len(e.Observations))
		durabilities := make([]string, 0, len(e.Observations))
		for _, obs := range e.Observations {
			contents = append(contents, obs.Content)
			durabilities = append(durabilities, string(obs.Durability))
		}
		_, err := session.Run(ctx, `
			CREATE (e:Entity {
				id: $id,
				name: $name,
				entity_type: $entityType,
				icon: $icon,
				aliases: $aliases,
				observations: $observations,
				durabilities: $durabilities
			})
		`, map[string]interface{}{
			"id":           e.ID,
			"name":         e.Name,
			"entityType":   e.EntityType,
			"icon":         e.Icon,
			"aliases":      e.Aliases,
			"observations": contents,
			"durabilities": durabilities,
		})
		if err != nil {
			return fmt.Errorf("failed to create entity %s: %w", e.Name, err)
		}
	}

	for _, r := range g.Relations {
		// Endpoints may be dangling; MERGE creates a bare named node then.
		_, err := session.Run(ctx, `
			MERGE (from:Entity {name: $from})
			MERGE (to:Entity {name: $to})
			CREATE (from)-[:RELATES {type: $relationType}]->(to)
		`, map[string]interface{}{
			"from":         r.FromEntity,
			"to":           r.ToEntity,
			"relationType": r.RelationType,
		})
		if err != nil {
			return fmt.Errorf("failed to create relation: %w", err)
		}
	}

	if g.UserInfo != nil {
		_, err := session.Run(ctx, `
			CREATE (u:UserInfo {
				preferred_name: $preferredName,
				names: $names,
				pronouns: $pronouns,
				linked_entity_id: $linkedEntityID
			})
		`, map[string]interface{}{
			"preferredName":  g.UserInfo.PreferredName,
			"names":          g.UserInfo.Names,
			"pronouns":       g.UserInfo.Pronouns,
			"linkedEntityID": g.UserInfo.LinkedEntityID,
		})
		if err != nil {
			return fmt.Errorf("failed to create user info: %w", err)
		}
	}

	return nil
}

// Close closes the Neo4j driver connection.
func (m *Mirror) Close() error {
	return m.driver.Close(context.Background())
}

// Package postgres provides a PostgreSQL replica of the knowledge graph.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/study-flamingo/iq-mcp-sub000/pkg/types"
)

// Schema contains the SQL statements to create the replica schema.
// Aliases and the user identity are stored as JSONB so external consumers
// can query into them.
const Schema = `
CREATE TABLE IF NOT EXISTS entities (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    icon        TEXT,
    aliases     JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS observations (
    entity_id  TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
    content    TEXT NOT NULL,
    durability TEXT NOT NULL,
    created_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS relations (
    from_entity   TEXT NOT NULL,
    to_entity     TEXT NOT NULL,
    relation_type TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS user_info (
    id      INTEGER PRIMARY KEY CHECK (id = 1),
    payload JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(name);
CREATE INDEX IF NOT EXISTS idx_observations_entity ON observations(entity_id);
CREATE INDEX IF NOT EXISTS idx_relations_from ON relations(from_entity);
CREATE INDEX IF NOT EXISTS idx_relations_to ON relations(to_entity);
`

// Mirror replicates graph snapshots into a PostgreSQL database.
type Mirror struct {
	db *sql.DB
}

// New connects to PostgreSQL with the given DSN and ensures the schema.
func New(dsn string) (*Mirror, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mirror database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to mirror database: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create mirror schema: %w", err)
	}
	return &Mirror{db: db}, nil
}

// Name identifies the mirror in logs.
func (m *Mirror) Name() string { return "postgres" }

// Replicate replaces the replica's contents with the snapshot in one
// transaction.
func (m *Mirror) Replicate(ctx context.Context, g *types.KnowledgeGraph) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"observations", "entities", "relations", "user_info"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, e := range g.Entities {
		aliases, err := json.Marshal(e.Aliases)
		if err != nil {
			return fmt.Errorf("failed to marshal aliases for %s: %w", e.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO entities (id, name, entity_type, icon, aliases) VALUES ($1, $2, $3, $4, $5)",
			e.ID, e.Name, e.EntityType, e.Icon, string(aliases)); err != nil {
			return fmt.Errorf("failed to insert entity %s: %w", e.Name, err)
		}
		for _, obs := range e.Observations {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO observations (entity_id, content, durability, created_at) VALUES ($1, $2, $3, $4)",
				e.ID, obs.Content, string(obs.Durability), obs.Timestamp); err != nil {
				return fmt.Errorf("failed to insert observation for %s: %w", e.Name, err)
			}
		}
	}

	for _, r := range g.Relations {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO relations (from_entity, to_entity, relation_type) VALUES ($1, $2, $3)",
			r.FromEntity, r.ToEntity, r.RelationType); err != nil {
			return fmt.Errorf("failed to insert relation: %w", err)
		}
	}

	if g.UserInfo != nil {
		payload, err := json.Marshal(g.UserInfo)
		if err != nil {
			return fmt.Errorf("failed to marshal user info: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_info (id, payload) VALUES (1, $1)", string(payload)); err != nil {
			return fmt.Errorf("failed to insert user info: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit replication: %w", err)
	}
	return nil
}

// Close closes the replica database.
func (m *Mirror) Close() error {
	return m.db.Close()
}

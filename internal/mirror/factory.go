package mirror

import (
	"context"
	"fmt"

	"github.com/study-flamingo/iq-mcp-sub000/internal/config"
	"github.com/study-flamingo/iq-mcp-sub000/internal/mirror/neo4j"
	"github.com/study-flamingo/iq-mcp-sub000/internal/mirror/postgres"
	"github.com/study-flamingo/iq-mcp-sub000/internal/mirror/sqlite"
)

// FromConfig builds the mirror selected by cfg. It returns (nil, nil) when
// mirroring is disabled.
func FromConfig(ctx context.Context, cfg config.MirrorConfig) (Mirror, error) {
	switch cfg.Engine {
	case "", "none":
		return nil, nil
	case "sqlite":
		return sqlite.New(cfg.SQLitePath)
	case "postgres":
		return postgres.New(cfg.PostgresDSN)
	case "neo4j":
		return neo4j.New(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
	default:
		return nil, fmt.Errorf("unknown mirror engine: %q", cfg.Engine)
	}
}

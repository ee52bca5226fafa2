// Package mirror replicates knowledge graph snapshots into an external
// database (SQLite, PostgreSQL, or Neo4j) for querying outside the MCP
// surface. Replication is one-way and asynchronous: the JSONL store stays
// the source of truth, and a mirror that is down never blocks or fails a
// graph operation.
package mirror

import (
	"context"
	"log"
	"os"
	"sync"

	"github.com/study-flamingo/iq-mcp-sub000/pkg/types"
)

// Mirror receives full graph snapshots. Implementations own their schema
// mapping; Replicate must leave the replica equal to the given snapshot.
type Mirror interface {
	// Name identifies the mirror in logs ("sqlite", "postgres", "neo4j").
	Name() string
	// Replicate replaces the replica's contents with the snapshot.
	Replicate(ctx context.Context, g *types.KnowledgeGraph) error
	// Close releases the underlying connection.
	Close() error
}

// Syncer forwards graph change notifications to a Mirror from a background
// goroutine. Only the most recent pending snapshot is kept: replicating an
// intermediate state is pointless when a newer full snapshot exists.
// Replica writes run behind a circuit breaker so a dead mirror degrades to
// cheap rejected calls instead of piling up timeouts.
type Syncer struct {
	mirror  Mirror
	breaker *CircuitBreaker
	logger  *log.Logger

	pending chan *types.KnowledgeGraph
	wg      sync.WaitGroup
}

// SyncerOption is a functional option for configuring a Syncer.
type SyncerOption func(*Syncer)

// WithSyncerLogger overrides the default stderr logger.
func WithSyncerLogger(logger *log.Logger) SyncerOption {
	return func(s *Syncer) {
		s.logger = logger
	}
}

// WithBreaker overrides the default circuit breaker configuration.
func WithBreaker(breaker *CircuitBreaker) SyncerOption {
	return func(s *Syncer) {
		s.breaker = breaker
	}
}

// NewSyncer creates a Syncer around the given mirror. Call Start to begin
// replication and Stop to drain and shut down.
func NewSyncer(m Mirror, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		mirror:  m,
		breaker: NewCircuitBreaker(),
		logger:  log.New(os.Stderr, "mirror: ", log.LstdFlags),
		pending: make(chan *types.KnowledgeGraph, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notify queues a snapshot for replication, replacing any snapshot still
// waiting. It never blocks, so it is safe to register directly as a graph
// change listener.
func (s *Syncer) Notify(g *types.KnowledgeGraph) {
	for {
		select {
		case s.pending <- g:
			return
		default:
		}
		// Channel full: discard the stale snapshot and retry.
		select {
		case <-s.pending:
		default:
		}
	}
}

// Start launches the replication goroutine. It runs until ctx is cancelled.
func (s *Syncer) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
	s.logger.Printf("replicating to %s", s.mirror.Name())
}

// Wait blocks until the replication goroutine has exited.
func (s *Syncer) Wait() {
	s.wg.Wait()
}

func (s *Syncer) run(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case g := <-s.pending:
			s.replicate(ctx, g)
		}
	}
}

func (s *Syncer) replicate(ctx context.Context, g *types.KnowledgeGraph) {
	_, err := s.breaker.Execute(ctx, func() (interface{}, error) {
		return nil, s.mirror.Replicate(ctx, g)
	})
	if err != nil {
		s.logger.Printf("replication to %s failed: %v", s.mirror.Name(), err)
		return
	}
	s.logger.Printf("replicated %d entities, %d relations to %s",
		len(g.Entities), len(g.Relations), s.mirror.Name())
}

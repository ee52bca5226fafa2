// Package graph implements the knowledge-graph manager: the single
// writer that owns the store and applies every mutation as a
// load, mutate, cleanup, save transaction.
package graph

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/study-flamingo/iq-mcp-sub000/internal/storage"
	"github.com/study-flamingo/iq-mcp-sub000/pkg/types"
)

// ChangeListener receives the snapshot that was just persisted.
// Listeners run on the writer's goroutine, must return quickly, and
// must treat the snapshot as read-only.
type ChangeListener func(graph *types.KnowledgeGraph)

// Manager owns all reads and writes of the knowledge graph. Mutating
// operations hold the write lock across the whole load → mutate →
// cleanup → save span; reads share the read lock. The process running
// the Manager is the only writer of the store file.
type Manager struct {
	store     storage.GraphStore
	logger    *log.Logger
	listeners []ChangeListener

	mu sync.RWMutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger overrides the default stderr logger.
func WithLogger(logger *log.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithChangeListener registers a listener invoked after every
// successful save with the persisted snapshot.
func WithChangeListener(fn ChangeListener) Option {
	return func(m *Manager) {
		m.listeners = append(m.listeners, fn)
	}
}

// NewManager creates a Manager on top of the given store.
func NewManager(store storage.GraphStore, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		logger: log.New(os.Stderr, "graph: ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// saveLocked runs decay cleanup and persists the graph. Callers hold
// the write lock. Every write path funnels through here, which is what
// keeps the cleanup-before-every-save rule honest.
func (m *Manager) saveLocked(ctx context.Context, g *types.KnowledgeGraph) error {
	if result := cleanupGraph(g, time.Now().UTC()); result.ObservationsRemoved > 0 {
		m.logger.Printf("removed %d expired observations before save", result.ObservationsRemoved)
	}
	if err := m.store.Save(ctx, g); err != nil {
		return err
	}
	m.notify(g)
	return nil
}

func (m *Manager) notify(g *types.KnowledgeGraph) {
	for _, fn := range m.listeners {
		fn(g)
	}
}

// ReadGraph returns the full persisted graph.
func (m *Manager) ReadGraph(ctx context.Context) (*types.KnowledgeGraph, error) {
	g, _, err := m.Snapshot(ctx)
	return g, err
}

// Snapshot returns the full graph together with a flag reporting
// whether the user identity still needs to be collected.
func (m *Manager) Snapshot(ctx context.Context) (*types.KnowledgeGraph, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store.Load(ctx)
}

// UpdateUserInfo replaces the stored user identity wholesale.
func (m *Manager) UpdateUserInfo(ctx context.Context, info *types.UserIdentifier) error {
	if info == nil || strings.TrimSpace(info.PreferredName) == "" {
		return fmt.Errorf("%w: preferred name is required", storage.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	g, _, err := m.store.Load(ctx)
	if err != nil {
		return err
	}
	g.UserInfo = info
	return m.saveLocked(ctx, g)
}

// ReplaceGraph swaps in a complete replacement snapshot. Restore and
// bulk import go through here so they get the same cleanup-and-notify
// treatment as every other write.
func (m *Manager) ReplaceGraph(ctx context.Context, g *types.KnowledgeGraph) error {
	if g == nil {
		return fmt.Errorf("%w: nil graph", storage.ErrInvalidInput)
	}
	if g.UserInfo == nil {
		g.UserInfo = types.DefaultUserIdentifier()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(ctx, g)
}

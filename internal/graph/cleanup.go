package graph

import (
	"context"
	"time"

	"github.com/study-flamingo/iq-mcp-sub000/pkg/types"
)

// expiryThresholdDays maps each durability class to the age in days
// past which an observation expires: 12 months for long_term, 3 for
// short_term, 1 for temporary, at 30 days per month. Ages are compared
// strictly, so an observation exactly at its threshold survives.
// Permanent and unrecognized durabilities never expire.
var expiryThresholdDays = map[types.Durability]float64{
	types.DurabilityLongTerm:  360,
	types.DurabilityShortTerm: 90,
	types.DurabilityTemporary: 30,
}

// cleanupGraph removes expired observations in place and heals missing
// timestamps by assigning now. The pass is idempotent: once the
// expired observations are gone, a second run removes nothing.
func cleanupGraph(g *types.KnowledgeGraph, now time.Time) *CleanupResult {
	result := &CleanupResult{}
	for _, e := range g.Entities {
		result.EntitiesProcessed++

		kept := make([]types.Observation, 0, len(e.Observations))
		for _, obs := range e.Observations {
			age, ok := obs.AgeDays(now)
			if !ok {
				// Legacy observation without a timestamp: start its
				// clock now instead of treating it as expired.
				ts := now
				obs.Timestamp = &ts
				kept = append(kept, obs)
				continue
			}

			threshold, decays := expiryThresholdDays[obs.Durability]
			if decays && age > threshold {
				result.ObservationsRemoved++
				result.Removed = append(result.Removed, RemovedObservation{
					EntityName: e.Name,
					Content:    obs.Content,
					Durability: obs.Durability,
					AgeDays:    age,
				})
				continue
			}
			kept = append(kept, obs)
		}
		e.Observations = kept
	}
	return result
}

// CleanupOutdatedObservations runs a decay pass over the whole graph
// and persists the result only when something was removed.
func (m *Manager) CleanupOutdatedObservations(ctx context.Context) (*CleanupResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, _, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	result := cleanupGraph(g, time.Now().UTC())
	if result.ObservationsRemoved > 0 {
		for _, r := range result.Removed {
			m.logger.Printf("cleanup: removed %q from %s (%s, %.0f days old)",
				r.Content, r.EntityName, r.Durability, r.AgeDays)
		}
		if err := m.store.Save(ctx, g); err != nil {
			return nil, err
		}
		m.notify(g)
	}
	return result, nil
}

package graph

import "github.com/study-flamingo/iq-mcp-sub000/pkg/types"

// ObservationRequest asks to add observations to one entity.
type ObservationRequest struct {
	EntityName   string             `json:"entity_name"`
	Observations []ObservationInput `json:"observations"`
}

// ObservationInput is one observation to add. Timestamps are always
// assigned server-side; there is deliberately no field for one here.
type ObservationInput struct {
	Content    string           `json:"content"`
	Durability types.Durability `json:"durability,omitempty"`
}

// ObservationDeletion asks to remove observations from one entity by
// exact content match.
type ObservationDeletion struct {
	EntityName   string   `json:"entity_name"`
	Observations []string `json:"observations"`
}

// ApplyObservationsResult reports what each request added, plus the
// per-item failures that did not stop the batch.
type ApplyObservationsResult struct {
	Results  []EntityObservations `json:"results"`
	Failures []RequestFailure     `json:"failures,omitempty"`
}

// EntityObservations lists the observations added to one entity.
type EntityObservations struct {
	EntityName string              `json:"entity_name"`
	Added      []types.Observation `json:"added_observations"`
}

// RequestFailure records one per-item failure inside a batch operation.
type RequestFailure struct {
	EntityName string `json:"entity_name"`
	Reason     string `json:"reason"`
}

// DeleteEntitiesResult reports a delete cascade.
type DeleteEntitiesResult struct {
	Deleted          []string `json:"deleted"`
	RelationsRemoved int      `json:"relations_removed"`
}

// DeleteObservationsResult reports the observations removed per entity.
type DeleteObservationsResult struct {
	Results []EntityObservationsRemoved `json:"results"`
}

// EntityObservationsRemoved lists the contents removed from one entity.
type EntityObservationsRemoved struct {
	EntityName string   `json:"entity_name"`
	Removed    []string `json:"removed_observations"`
}

// DurabilityBuckets groups one entity's observations by durability.
type DurabilityBuckets struct {
	EntityName string              `json:"entity_name"`
	Permanent  []types.Observation `json:"permanent"`
	LongTerm   []types.Observation `json:"long_term"`
	ShortTerm  []types.Observation `json:"short_term"`
	Temporary  []types.Observation `json:"temporary"`
}

// CleanupResult reports one decay cleanup pass.
type CleanupResult struct {
	EntitiesProcessed   int                  `json:"entities_processed"`
	ObservationsRemoved int                  `json:"observations_removed"`
	Removed             []RemovedObservation `json:"removed,omitempty"`
}

// RemovedObservation identifies one expired observation.
type RemovedObservation struct {
	EntityName string           `json:"entity_name"`
	Content    string           `json:"content"`
	Durability types.Durability `json:"durability"`
	AgeDays    float64          `json:"age_days"`
}

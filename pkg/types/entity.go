package types

import (
	"strings"
	"time"
)

// Durability classifies how long an observation stays relevant before
// decay cleanup removes it. The expiry thresholds live in internal/graph.
type Durability string

const (
	DurabilityPermanent Durability = "permanent"  // Never expires
	DurabilityLongTerm  Durability = "long_term"  // Expires after 12 months
	DurabilityShortTerm Durability = "short_term" // Expires after 3 months
	DurabilityTemporary Durability = "temporary"  // Expires after 1 month
)

// DefaultDurability is assigned when an observation arrives without an
// explicit durability class.
const DefaultDurability = DurabilityShortTerm

// ValidDurabilities contains all recognized durability values.
var ValidDurabilities = []Durability{
	DurabilityPermanent,
	DurabilityLongTerm,
	DurabilityShortTerm,
	DurabilityTemporary,
}

// Valid reports whether d is one of the recognized durability classes.
func (d Durability) Valid() bool {
	for _, v := range ValidDurabilities {
		if d == v {
			return true
		}
	}
	return false
}

// NormalizeDurability maps the empty string to DefaultDurability and
// canonicalizes the case of recognized values. Unknown non-empty values
// are returned unchanged so corrupt data stays visible instead of being
// silently rewritten.
func NormalizeDurability(d Durability) Durability {
	folded := Durability(strings.ToLower(strings.TrimSpace(string(d))))
	if folded == "" {
		return DefaultDurability
	}
	if folded.Valid() {
		return folded
	}
	return d
}

// Observation is a single timestamped fact attached to an entity.
type Observation struct {
	Content    string     `json:"content"`             // The fact itself
	Durability Durability `json:"durability"`          // Decay class (defaults to short_term)
	Timestamp  *time.Time `json:"timestamp,omitempty"` // When recorded (UTC); nil on legacy data until cleanup heals it
}

// NewObservation builds an observation with the given recording time.
// Timestamps are always assigned server-side, never taken from clients.
func NewObservation(content string, durability Durability, at time.Time) Observation {
	ts := at.UTC()
	return Observation{
		Content:    content,
		Durability: NormalizeDurability(durability),
		Timestamp:  &ts,
	}
}

// AgeDays returns the observation's age in days at the given instant.
// The second return is false when the observation has no timestamp.
func (o Observation) AgeDays(now time.Time) (float64, bool) {
	if o.Timestamp == nil {
		return 0, false
	}
	return now.Sub(*o.Timestamp).Hours() / 24, true
}

// Entity is a node in the knowledge graph: a person, project, place,
// concept, or anything else worth remembering across sessions.
type Entity struct {
	ID           string        `json:"id"`                // Stable opaque identifier (UUID), never reused
	Name         string        `json:"name"`              // Canonical name, unique among live names and aliases
	EntityType   string        `json:"entity_type"`       // Free-form type ("person", "project", "place", ...)
	Observations []Observation `json:"observations"`      // Timestamped facts about the entity
	Aliases      []string      `json:"aliases,omitempty"` // Alternative names, same uniqueness domain as names
	Icon         string        `json:"icon,omitempty"`    // Optional display hint (emoji or icon name)
}

// Matches reports whether identifier equals the entity's name or any of
// its aliases, case-insensitively.
func (e *Entity) Matches(identifier string) bool {
	if strings.EqualFold(e.Name, identifier) {
		return true
	}
	for _, alias := range e.Aliases {
		if strings.EqualFold(alias, identifier) {
			return true
		}
	}
	return false
}

// HasObservation reports whether the entity already records content.
// Observation identity is the exact content string.
func (e *Entity) HasObservation(content string) bool {
	for _, obs := range e.Observations {
		if obs.Content == content {
			return true
		}
	}
	return false
}

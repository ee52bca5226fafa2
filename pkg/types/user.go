package types

import (
	"errors"
	"strings"
)

// Placeholder names written when no real user identity is configured.
// A stored user matching one of these is treated as missing so the
// assistant knows to ask for a real name.
const (
	placeholderUser       = "default_user"
	placeholderUserLegacy = "__default_user__"
)

// UserIdentifier stores the identity of the primary user of the memory
// graph, including the list of name variants derived from its parts.
// Exactly one is persisted per graph.
type UserIdentifier struct {
	PreferredName  string   `json:"preferred_name"`             // How the user wants to be addressed
	FirstName      string   `json:"first_name,omitempty"`       // Legal first name
	LastName       string   `json:"last_name,omitempty"`        // Legal last name
	MiddleNames    []string `json:"middle_names,omitempty"`     // Middle names, in order
	Nickname       string   `json:"nickname,omitempty"`         // Informal name
	Prefixes       []string `json:"prefixes,omitempty"`         // Honorifics ("Dr.", "Prof.")
	Suffixes       []string `json:"suffixes,omitempty"`         // Qualifiers ("PhD", "Jr.")
	Pronouns       string   `json:"pronouns,omitempty"`         // Preferred pronouns
	Emails         []string `json:"emails,omitempty"`           // Known email addresses
	LinkedEntityID string   `json:"linked_entity_id,omitempty"` // ID of the user's own entity, if one exists
	Names          []string `json:"names,omitempty"`            // Derived name variants, see UserIdentifierFromParts
}

// DefaultUserIdentifier returns the placeholder identity stored until
// the user provides a real name. It round-trips as still-missing.
func DefaultUserIdentifier() *UserIdentifier {
	return &UserIdentifier{
		PreferredName: placeholderUser,
		Names:         []string{placeholderUser},
	}
}

// IsDefault reports whether the identity is absent or still the
// placeholder written by a fresh install.
func (u *UserIdentifier) IsDefault() bool {
	if u == nil {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(u.PreferredName)) {
	case "", placeholderUser, placeholderUserLegacy:
		return true
	}
	return false
}

// NameParts is the raw input for constructing a UserIdentifier.
type NameParts struct {
	PreferredName string   `json:"preferred_name"`
	FirstName     string   `json:"first_name,omitempty"`
	LastName      string   `json:"last_name,omitempty"`
	MiddleNames   []string `json:"middle_names,omitempty"`
	Nickname      string   `json:"nickname,omitempty"`
	Prefixes      []string `json:"prefixes,omitempty"`
	Suffixes      []string `json:"suffixes,omitempty"`
	Pronouns      string   `json:"pronouns,omitempty"`
	Emails        []string `json:"emails,omitempty"`
}

// ErrNoNameParts is returned when the parts contain no usable name
// components beyond the preferred name.
var ErrNoNameParts = errors.New("at least one of first, middle, or last name is required")

// ErrNoPreferredName is returned when the preferred name is empty.
var ErrNoPreferredName = errors.New("preferred name is required")

// UserIdentifierFromParts builds a UserIdentifier and derives its Names
// list from the parts:
//
//   - the base name (first + last, falling back to middle names when
//     both are absent),
//   - the full name (first + middles + last) when it differs,
//   - each prefix applied to the base, with and without each suffix,
//   - the base with each suffix alone,
//   - the nickname and preferred name when distinct.
//
// The result is deduplicated case-insensitively, first-seen casing kept.
func UserIdentifierFromParts(p NameParts) (*UserIdentifier, error) {
	preferred := strings.TrimSpace(p.PreferredName)
	if preferred == "" {
		return nil, ErrNoPreferredName
	}

	first := strings.TrimSpace(p.FirstName)
	last := strings.TrimSpace(p.LastName)
	middles := trimNonEmpty(p.MiddleNames)
	nickname := strings.TrimSpace(p.Nickname)
	prefixes := trimNonEmpty(p.Prefixes)
	suffixes := trimNonEmpty(p.Suffixes)

	var base []string
	if first != "" {
		base = append(base, first)
	}
	if last != "" {
		base = append(base, last)
	}

	var full []string
	if first != "" {
		full = append(full, first)
	}
	full = append(full, middles...)
	if last != "" {
		full = append(full, last)
	}
	if len(full) == 0 {
		return nil, ErrNoNameParts
	}
	if len(base) == 0 {
		base = middles
	}

	baseName := strings.Join(base, " ")
	fullName := strings.Join(full, " ")

	names := []string{baseName}
	if !strings.EqualFold(fullName, baseName) {
		names = append(names, fullName)
	}
	for _, prefix := range prefixes {
		names = append(names, prefix+" "+baseName)
		for _, suffix := range suffixes {
			names = append(names, prefix+" "+baseName+", "+suffix)
		}
	}
	for _, suffix := range suffixes {
		names = append(names, baseName+", "+suffix)
	}
	if nickname != "" {
		names = append(names, nickname)
	}
	names = append(names, preferred)

	return &UserIdentifier{
		PreferredName: preferred,
		FirstName:     first,
		LastName:      last,
		MiddleNames:   middles,
		Nickname:      nickname,
		Prefixes:      prefixes,
		Suffixes:      suffixes,
		Pronouns:      strings.TrimSpace(p.Pronouns),
		Emails:        trimNonEmpty(p.Emails),
		Names:         dedupeFold(names),
	}, nil
}

// trimNonEmpty trims each element and drops the empty ones.
func trimNonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// dedupeFold removes case-insensitive duplicates, keeping first-seen
// casing and order.
func dedupeFold(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

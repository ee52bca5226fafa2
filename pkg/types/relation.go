package types

// Relation is a directed, typed edge between two entities, identified by
// the exact (from, to, type) triple. Endpoints hold canonical entity
// names; edges whose endpoints have no live entity are permitted.
type Relation struct {
	FromEntity   string `json:"from_entity"`   // Source entity name
	ToEntity     string `json:"to_entity"`     // Target entity name
	RelationType string `json:"relation_type"` // Edge label ("works_at", "knows", ...)
}

// Complete reports whether all three triple components are present.
func (r Relation) Complete() bool {
	return r.FromEntity != "" && r.ToEntity != "" && r.RelationType != ""
}

// Touches reports whether the relation starts or ends at the named
// entity (exact match on canonical names).
func (r Relation) Touches(entityName string) bool {
	return r.FromEntity == entityName || r.ToEntity == entityName
}

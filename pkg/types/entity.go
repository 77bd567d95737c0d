package types

import "time"

// Entity is a named narrative actor, place, or object. Identity is
// immutable; attributes mutate in place through EntityUpdate deltas.
type Entity struct {
	EntityID   string `json:"entity_id"`
	UniverseID string `json:"universe_id"`
	// OriginID is the stable lineage id: empty for natively created
	// entities, otherwise the id of the ultimate ancestor across clones.
	OriginID  string    `json:"origin_id,omitempty"`
	Kind      string    `json:"kind"`
	Name      string    `json:"name"`
	Attrs     Attrs     `json:"attrs,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StableID returns the identity used for cross-universe comparison:
// the origin lineage id when present, the entity id otherwise.
func (e *Entity) StableID() string {
	if e.OriginID != "" {
		return e.OriginID
	}
	return e.EntityID
}

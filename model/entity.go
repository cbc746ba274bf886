package model

import (
	"time"

	"github.com/google/uuid"
)

// Entity is a canonical graph node. The id is always derived from the
// canonical key, never client-supplied, so re-ingesting the same record
// converges on the same stored node.
type Entity struct {
	ID          uuid.UUID `json:"id"`
	PrimaryType string    `json:"primary_type"`
	// ExtraTypes holds every distinct type ever merged into this id beyond
	// the primary one. Applied as additive labels on the stored node.
	ExtraTypes []string  `json:"extra_types,omitempty"`
	Properties Metadata  `json:"properties,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HasType reports whether the entity carries the given type as its primary
// or as an extra label.
func (e *Entity) HasType(t string) bool {
	if e.PrimaryType == t {
		return true
	}
	for _, x := range e.ExtraTypes {
		if x == t {
			return true
		}
	}
	return false
}

// Relationship is a canonical directed edge between two resolved entities.
// SourceID and TargetID are always distinct and both must exist in the
// resolved node set at write time.
type Relationship struct {
	SourceID   uuid.UUID `json:"source_id"`
	TargetID   uuid.UUID `json:"target_id"`
	Type       string    `json:"type"`
	Properties Metadata  `json:"properties,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Key returns the dedup key for a relationship.
func (r *Relationship) Key() RelationshipKey {
	return RelationshipKey{SourceID: r.SourceID, TargetID: r.TargetID, Type: r.Type}
}

// RelationshipKey identifies a relationship by (source, target, type).
type RelationshipKey struct {
	SourceID uuid.UUID
	TargetID uuid.UUID
	Type     string
}

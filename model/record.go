package model

import (
	"fmt"
	"strings"
)

// RecordKind distinguishes node records from edge records at the
// extraction boundary.
type RecordKind string

const (
	RecordKindNode RecordKind = "node"
	RecordKindEdge RecordKind = "edge"
)

// RawRecord is untrusted extractor output. Ids may be missing or duplicated
// and properties have arbitrary shape; nothing downstream trusts a RawRecord
// until it has passed canonicalization and merging.
type RawRecord struct {
	Kind       RecordKind `json:"kind"`
	Type       string     `json:"type"`
	Properties Metadata   `json:"properties,omitempty"`
	// SourceID is the extractor-supplied id, if any. For edge records the
	// endpoint ids live in Properties under "source" and "target".
	SourceID string `json:"source_id,omitempty"`
}

// Extraction is the result of running the extractor over one chunk of text.
type Extraction struct {
	Nodes []RawRecord `json:"nodes"`
	Edges []RawRecord `json:"edges"`
}

// Validate rejects structurally invalid records early instead of letting
// ambiguity propagate into the graph. A missing type is a data-quality
// defect, reported as ErrMalformedRecord.
func (r *RawRecord) Validate() error {
	if r.Kind != RecordKindNode && r.Kind != RecordKindEdge {
		return fmt.Errorf("%w: unknown record kind %q", ErrMalformedRecord, r.Kind)
	}
	if strings.TrimSpace(r.Type) == "" {
		return fmt.Errorf("%w: missing type", ErrMalformedRecord)
	}
	if r.Kind == RecordKindEdge {
		if strings.TrimSpace(r.StringProperty("source")) == "" || strings.TrimSpace(r.StringProperty("target")) == "" {
			return fmt.Errorf("%w: edge record missing source or target", ErrMalformedRecord)
		}
	}
	return nil
}

// StringProperty returns the named property as a trimmed string, or ""
// when absent or not a string.
func (r *RawRecord) StringProperty(key string) string {
	if r.Properties == nil {
		return ""
	}
	if v, ok := r.Properties[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// FloatProperty returns the named property as a float64 when it is any
// numeric JSON shape, with ok=false otherwise.
func (r *RawRecord) FloatProperty(key string) (float64, bool) {
	if r.Properties == nil {
		return 0, false
	}
	switch v := r.Properties[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

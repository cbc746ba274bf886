package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IDNamespace is the fixed namespace for deriving chunk and entity ids.
// The constant is load-bearing: changing it breaks id stability across runs.
var IDNamespace = uuid.MustParse("3f8b15a1-66c9-4e21-92b4-0e6fc0c77b3e")

// Chunk is an immutable slice of a source document. Identified by a
// deterministic id derived from (docId, seq), so re-ingesting a document
// produces the same chunk ids.
type Chunk struct {
	ID        uuid.UUID `json:"id"`
	DocID     string    `json:"doc_id"`
	Seq       int       `json:"seq"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	StartPos  *int      `json:"start_pos,omitempty"`
	EndPos    *int      `json:"end_pos,omitempty"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	// Similarity is populated on retrieval results only
	Similarity *float64 `json:"similarity,omitempty"`
}

// NewChunkID derives the deterministic chunk id for (docID, seq).
func NewChunkID(docID string, seq int) uuid.UUID {
	return uuid.NewSHA1(IDNamespace, []byte(fmt.Sprintf("%s|%d", docID, seq)))
}

// Mention is a provenance edge from a chunk to a resolved entity, optionally
// carrying the matched text span. Always Chunk to Entity, never Chunk to Chunk.
type Mention struct {
	ChunkID    uuid.UUID `json:"chunk_id"`
	EntityID   uuid.UUID `json:"entity_id"`
	SpanStart  *int      `json:"span_start,omitempty"`
	SpanEnd    *int      `json:"span_end,omitempty"`
	Surface    string    `json:"surface,omitempty"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// HasSpan reports whether the mention carries a literal text span.
func (m *Mention) HasSpan() bool {
	return m.SpanStart != nil && m.SpanEnd != nil
}

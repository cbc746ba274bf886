package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewChunkID(t *testing.T) {
	t.Run("Same document and sequence always yield the same id", func(t *testing.T) {
		first := NewChunkID("doc-1", 0)
		second := NewChunkID("doc-1", 0)

		assert.Equal(t, first, second, "Expected deterministic chunk ids")
	})

	t.Run("Different sequences yield different ids", func(t *testing.T) {
		assert.NotEqual(t, NewChunkID("doc-1", 0), NewChunkID("doc-1", 1))
	})

	t.Run("Different documents yield different ids", func(t *testing.T) {
		assert.NotEqual(t, NewChunkID("doc-1", 0), NewChunkID("doc-2", 0))
	})

	t.Run("Chunk ids are version 5 UUIDs", func(t *testing.T) {
		id := NewChunkID("doc-1", 0)
		assert.Equal(t, 5, int(id.Version()), "Expected a name-based SHA1 uuid")
	})
}

func TestMentionHasSpan(t *testing.T) {
	t.Run("Mention with both positions has a span", func(t *testing.T) {
		start, end := 0, 7
		m := Mention{SpanStart: &start, SpanEnd: &end}
		assert.True(t, m.HasSpan())
	})

	t.Run("Mention without positions is span-less", func(t *testing.T) {
		m := Mention{}
		assert.False(t, m.HasSpan())
	})
}

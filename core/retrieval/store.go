package retrieval

import (
	"github.com/google/uuid"
	"github.com/mineral-labs/lodegraph/model"
)

// ChunkReader resolves seed chunk ids against the stored chunks.
type ChunkReader interface {
	SelectChunksByIDs(ids []uuid.UUID) ([]*model.Chunk, error)
}

// NodeReader is the node access the retriever needs from the store.
type NodeReader interface {
	SelectNodesByIDs(ids []uuid.UUID) ([]*model.Entity, error)
}

// RelationshipReader is the adjacency access the retriever needs from the
// store. Implementations must return rows in a stable order for the same
// input, or retrieval loses its determinism.
type RelationshipReader interface {
	SelectRelationshipsForNodes(nodeIDs []uuid.UUID, relTypes []string) ([]*model.Relationship, error)
}

// MentionReader resolves chunks to the entities they mention.
type MentionReader interface {
	SelectMentionsByChunks(chunkIDs []uuid.UUID) ([]*model.Mention, error)
}

// TextIndex ranks chunks against a query embedding.
type TextIndex interface {
	SelectChunksBySimilarity(embedding []float32, topK int) ([]*model.Chunk, error)
}

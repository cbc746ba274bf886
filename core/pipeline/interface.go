package pipeline

import (
	"context"

	"github.com/mineral-labs/lodegraph/model"
)

// DefaultEmbeddingDim is the dimensionality of the default embedding model
// (all-MiniLM-L6-v2).
const DefaultEmbeddingDim = 384

// ChunkFunc splits a document into chunks. Implementations must be
// deterministic: the same (docID, text) yields the same chunks with the
// same ids, which is what makes re-ingestion idempotent.
type ChunkFunc func(docID string, text string) ([]*model.Chunk, error)

// EmbedFunc generates an embedding for a piece of text
type EmbedFunc func(text string) ([]float32, error)

// ExtractFunc extracts raw node and edge records from a chunk of text.
// Output is untrusted; canonicalization and merging happen downstream.
type ExtractFunc func(ctx context.Context, text string) (*model.Extraction, error)

// Pipeline combines chunking, embedding and extraction.
type Pipeline struct {
	Chunker   ChunkFunc
	Embedder  EmbedFunc
	Extractor ExtractFunc // Optional
}

// NewPipeline creates a new processing pipeline
func NewPipeline(chunker ChunkFunc, embedder EmbedFunc) *Pipeline {
	return &Pipeline{
		Chunker:  chunker,
		Embedder: embedder,
	}
}

// SetExtractor sets the extraction function
func (p *Pipeline) SetExtractor(extractor ExtractFunc) {
	p.Extractor = extractor
}

// ProcessingResult contains embedded chunks and their per-chunk extractions.
// Extractions is index-aligned with Chunks; a nil entry marks a chunk whose
// extraction failed and was skipped.
type ProcessingResult struct {
	Chunks       []*model.Chunk
	Extractions  []*model.Extraction
	ChunksFailed int
}

// Process chunks and embeds a document, then runs extraction over the
// chunks. Chunking or embedding failures are fatal; per-chunk extraction
// failures are skipped and counted.
func (p *Pipeline) Process(ctx context.Context, docID string, text string) (*ProcessingResult, error) {
	chunks, err := p.Chunker(docID, text)
	if err != nil {
		return nil, err
	}

	for _, chunk := range chunks {
		embedding, err := p.Embedder(chunk.Content)
		if err != nil {
			return nil, err
		}
		chunk.Embedding = embedding
	}

	result := &ProcessingResult{
		Chunks:      chunks,
		Extractions: make([]*model.Extraction, len(chunks)),
	}

	if p.Extractor != nil && len(chunks) > 0 {
		pool := NewExtractionPool(p.Extractor, nil)
		extractions, failed, err := pool.Run(ctx, chunks)
		if err != nil {
			return nil, err
		}
		result.Extractions = extractions
		result.ChunksFailed = failed
	}

	return result, nil
}

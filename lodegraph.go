package lodegraph

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/mineral-labs/lodegraph/core/canonical"
	"github.com/mineral-labs/lodegraph/core/pipeline"
	"github.com/mineral-labs/lodegraph/core/provenance"
	"github.com/mineral-labs/lodegraph/core/retrieval"
	"github.com/mineral-labs/lodegraph/database"
	"github.com/mineral-labs/lodegraph/helper"
	"github.com/mineral-labs/lodegraph/model"
	loadSql "github.com/mineral-labs/lodegraph/sql"
)

// Lodegraph provides a unified interface to the ingestion pipeline, the
// graph store and subgraph retrieval
type Lodegraph struct {
	DB            *helper.Database
	Documents     *database.DocumentsDBHandler
	Chunks        *database.ChunksDBHandler
	Nodes         *database.NodesDBHandler
	Relationships *database.RelationshipsDBHandler
	Mentions      *database.MentionsDBHandler
	Writer        *database.GraphWriter
	Retriever     *retrieval.Retriever
	Pipeline      *pipeline.Pipeline // Optional chunking pipeline
	// Logging
	log *slog.Logger
}

// NewLodegraph creates a new Lodegraph instance with all handlers initialized
func NewLodegraph(config *helper.DatabaseConfiguration, embeddingDim int) (*Lodegraph, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("lodegraph", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create all handlers in dependency order (nodes before relationships
	// and mentions, chunks before mentions)
	// force=false to not reload if functions already exist
	documents, err := database.NewDocumentsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create documents handler", err)
	}

	chunks, err := database.NewChunksDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create chunks handler", err)
	}

	nodes, err := database.NewNodesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create nodes handler", err)
	}

	relationships, err := database.NewRelationshipsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create relationships handler", err)
	}

	mentions, err := database.NewMentionsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create mentions handler", err)
	}

	writer, err := database.NewGraphWriter(db, false)
	if err != nil {
		return nil, helper.NewError("create graph writer", err)
	}

	retriever := retrieval.NewRetriever(chunks, nodes, relationships, mentions, logger)

	return &Lodegraph{
		DB:            db,
		Documents:     documents,
		Chunks:        chunks,
		Nodes:         nodes,
		Relationships: relationships,
		Mentions:      mentions,
		Writer:        writer,
		Retriever:     retriever,
		log:           logger,
	}, nil
}

// Close closes the database connection
func (l *Lodegraph) Close() error {
	if l.DB != nil && l.DB.Instance != nil {
		return l.DB.Close()
	}
	return nil
}

// SetPipeline sets the chunking pipeline for document processing
func (l *Lodegraph) SetPipeline(p *pipeline.Pipeline) {
	l.Pipeline = p
}

// UseDefaultPipeline sets up the default sentence chunking, embedding and
// extraction pipeline. Embedding uses the all-MiniLM-L6-v2 model
// (384 dimensions), extraction the distilbert NER model.
func (l *Lodegraph) UseDefaultPipeline() error {
	embedder, err := pipeline.DefaultEmbedder()
	if err != nil {
		return helper.NewError("create default embedder", err)
	}
	extractor, err := pipeline.DefaultExtractor()
	if err != nil {
		return helper.NewError("create default extractor", err)
	}

	l.Pipeline = pipeline.NewPipeline(pipeline.DefaultChunker(), embedder)
	l.Pipeline.SetExtractor(extractor)
	return nil
}

// IngestDocument runs a document through the full ingestion path:
// 1. Registering the document metadata (without content)
// 2. Chunking and embedding the content, storing all chunks
// 3. Extracting raw records per chunk (failed chunks are skipped and counted)
// 4. Canonicalizing and merging the records into entities and relationships
// 5. Writing the batch to the graph in one transaction
// 6. Linking every chunk to its extracted entities via mention records
// The document's Content field is used for processing but not stored.
func (l *Lodegraph) IngestDocument(ctx context.Context, doc *model.Document) (*model.IngestStats, error) {
	if l.Pipeline == nil {
		return nil, helper.NewError("ingest document", fmt.Errorf("pipeline not set, use SetPipeline() first"))
	}
	if doc.Content == "" {
		return nil, helper.NewError("ingest document", fmt.Errorf("document content is empty"))
	}

	// Store content temporarily and clear it before DB insert
	content := doc.Content
	doc.Content = ""

	if err := l.Documents.InsertDocument(doc); err != nil {
		return nil, storageError("insert document", err)
	}

	l.log.Info("Registered document", slog.String("doc_id", doc.DocID), slog.String("title", doc.Title))

	result, err := l.Pipeline.Process(ctx, doc.DocID, content)
	if err != nil {
		return nil, helper.NewError("process document", err)
	}

	stats := &model.IngestStats{
		ChunksTotal:  len(result.Chunks),
		ChunksFailed: result.ChunksFailed,
	}

	for i, chunk := range result.Chunks {
		if err := l.Chunks.InsertChunk(chunk); err != nil {
			return nil, storageError(fmt.Sprintf("insert chunk %d", i), err)
		}
	}

	// Collect every raw record across chunks into one batch so duplicate
	// entities merge across chunk boundaries. recordChunk keeps the chunk
	// index of every record so mentions can be attributed afterwards.
	var records []model.RawRecord
	var recordChunk []int
	for i, extraction := range result.Extractions {
		if extraction == nil {
			continue
		}
		stats.ChunksExtracted++
		for _, node := range extraction.Nodes {
			records = append(records, node)
			recordChunk = append(recordChunk, i)
		}
		for _, edge := range extraction.Edges {
			records = append(records, edge)
			recordChunk = append(recordChunk, i)
		}
	}

	if len(records) == 0 {
		l.log.Info("No records extracted", slog.String("doc_id", doc.DocID), slog.Int("chunks", stats.ChunksTotal))
		return stats, nil
	}

	resolver := canonical.NewResolver(l.log)
	resolution := resolver.Resolve(records)
	stats.Resolve = resolution.Stats

	written, err := l.Writer.WriteBatch(ctx, resolution.Entities, resolution.Relationships)
	if err != nil {
		return nil, err
	}
	stats.Write = *written

	mentionsWritten, err := l.writeMentions(result.Chunks, recordChunk, resolution)
	if err != nil {
		return nil, err
	}
	stats.MentionsWritten = mentionsWritten

	l.log.Info("Ingested document",
		slog.String("doc_id", doc.DocID),
		slog.Int("chunks", stats.ChunksTotal),
		slog.Int("entities", stats.Write.NodesWritten),
		slog.Int("relationships", stats.Write.RelsWritten),
		slog.Int("mentions", stats.MentionsWritten),
	)

	return stats, nil
}

// writeMentions links every chunk to the entities resolved from its records,
// using the resolver's record-to-entity mapping so anonymous entities keep
// their provenance too.
func (l *Lodegraph) writeMentions(chunks []*model.Chunk, recordChunk []int, resolution *canonical.Resolution) (int, error) {
	entitiesByChunk := make(map[int][]*model.Entity)
	seen := make(map[int]map[uuid.UUID]bool)
	for j, id := range resolution.EntityByRecord {
		if id == uuid.Nil {
			continue
		}
		chunkIdx := recordChunk[j]
		if seen[chunkIdx] == nil {
			seen[chunkIdx] = make(map[uuid.UUID]bool)
		}
		if seen[chunkIdx][id] {
			continue
		}
		seen[chunkIdx][id] = true
		if entity := resolution.EntityByID(id); entity != nil {
			entitiesByChunk[chunkIdx] = append(entitiesByChunk[chunkIdx], entity)
		}
	}

	written := 0
	for i, chunk := range chunks {
		for _, mention := range provenance.BuildMentions(chunk, entitiesByChunk[i]) {
			m := mention
			if err := l.Mentions.InsertMention(&m); err != nil {
				return written, storageError("insert mention", err)
			}
			written++
		}
	}
	return written, nil
}

// Ingest canonicalizes, merges and writes a batch of raw records directly,
// bypassing the document pipeline. Malformed records are skipped and counted
// in the returned stats, never fatal.
func (l *Lodegraph) Ingest(ctx context.Context, records []model.RawRecord) (*model.IngestStats, error) {
	resolver := canonical.NewResolver(l.log)
	resolution := resolver.Resolve(records)

	stats := &model.IngestStats{Resolve: resolution.Stats}

	written, err := l.Writer.WriteBatch(ctx, resolution.Entities, resolution.Relationships)
	if err != nil {
		return nil, err
	}
	stats.Write = *written

	return stats, nil
}

// Query answers a text question with a bounded subgraph: the query is
// embedded, the most similar chunks seed the retrieval, and the seeds expand
// into their mentioned entities and neighborhood.
func (l *Lodegraph) Query(ctx context.Context, query string, config *model.QueryConfig) (*model.Subgraph, error) {
	if l.Pipeline == nil || l.Pipeline.Embedder == nil {
		return nil, helper.NewError("query", fmt.Errorf("pipeline with embedder not set, use SetPipeline() first"))
	}

	cfg := model.DefaultQueryConfig()
	if config != nil {
		cfg = *config
	}

	embedding, err := l.Pipeline.Embedder(query)
	if err != nil {
		return nil, helper.NewError("generate embedding", err)
	}

	chunks, err := l.Chunks.SelectChunksBySimilarity(embedding, cfg.TopK)
	if err != nil {
		return nil, storageError("similarity search", err)
	}

	seeds := make([]model.SeedMatch, 0, len(chunks))
	for _, chunk := range chunks {
		seed := model.SeedMatch{ChunkID: chunk.ID}
		if chunk.Similarity != nil {
			seed.Score = *chunk.Similarity
		}
		seeds = append(seeds, seed)
	}

	return l.Retriever.FetchSubgraph(ctx, seeds, &cfg.Fetch)
}

// FetchSubgraph expands pre-ranked seed chunks into a bounded subgraph
func (l *Lodegraph) FetchSubgraph(ctx context.Context, seeds []model.SeedMatch, config *model.FetchConfig) (*model.Subgraph, error) {
	return l.Retriever.FetchSubgraph(ctx, seeds, config)
}

// ResetGraph deletes all nodes, relationships and mentions. Documents and
// chunks survive, so a re-ingestion can rebuild the graph from stored text.
func (l *Lodegraph) ResetGraph(ctx context.Context) error {
	return l.Writer.Reset(ctx)
}

// ChangeIndexType changes the vector index type between HNSW and IVFFlat
func (l *Lodegraph) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	return l.Chunks.ChangeIndexType(ctx, indexType, params)
}

func storageError(context string, err error) error {
	return helper.NewError(context, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err))
}

package lodegraph

import (
	"context"
	"testing"

	"github.com/mineral-labs/lodegraph/core/pipeline"
	"github.com/mineral-labs/lodegraph/helper"
	"github.com/mineral-labs/lodegraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEmbeddingDim = 4

// testEmbedder creates a simple deterministic embedder for testing
func testEmbedder() pipeline.EmbedFunc {
	return func(text string) ([]float32, error) {
		return []float32{1, 0, 0, 0}, nil
	}
}

// testExtractor emits two linked equipment records for every chunk
func testExtractor() pipeline.ExtractFunc {
	return func(ctx context.Context, text string) (*model.Extraction, error) {
		return &model.Extraction{
			Nodes: []model.RawRecord{
				{
					Kind:     model.RecordKindNode,
					Type:     "Equipment",
					SourceID: "n1",
					Properties: model.Metadata{
						"name":        "jaw crusher",
						"original_id": "eq-001",
					},
				},
				{
					Kind:     model.RecordKindNode,
					Type:     "Equipment",
					SourceID: "n2",
					Properties: model.Metadata{
						"name":        "ball mill",
						"original_id": "eq-002",
					},
				},
			},
			Edges: []model.RawRecord{
				{
					Kind:       model.RecordKindEdge,
					Type:       "FEEDS",
					Properties: model.Metadata{"source": "n1", "target": "n2"},
				},
			},
		}, nil
	}
}

func initLodegraph(t *testing.T) *Lodegraph {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")

	l, err := NewLodegraph(dbConfig, testEmbeddingDim)
	require.NoError(t, err, "failed to create lodegraph")
	require.NotNil(t, l, "expected lodegraph to be non-nil")

	t.Cleanup(func() {
		l.Close()
	})

	return l
}

func TestNewLodegraph(t *testing.T) {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err)

	t.Run("Valid call NewLodegraph", func(t *testing.T) {
		l, err := NewLodegraph(dbConfig, testEmbeddingDim)
		require.NoError(t, err, "Expected NewLodegraph to not return an error")
		require.NotNil(t, l, "Expected NewLodegraph to return a non-nil instance")
		assert.NotNil(t, l.DB, "Expected lodegraph to have a database instance")
		assert.NotNil(t, l.Documents, "Expected lodegraph to have documents handler")
		assert.NotNil(t, l.Chunks, "Expected lodegraph to have chunks handler")
		assert.NotNil(t, l.Nodes, "Expected lodegraph to have nodes handler")
		assert.NotNil(t, l.Relationships, "Expected lodegraph to have relationships handler")
		assert.NotNil(t, l.Mentions, "Expected lodegraph to have mentions handler")
		assert.NotNil(t, l.Writer, "Expected lodegraph to have a graph writer")
		assert.NotNil(t, l.Retriever, "Expected lodegraph to have a retriever")
		assert.Nil(t, l.Pipeline, "Expected pipeline to be nil initially")

		err = l.Close()
		assert.NoError(t, err, "Expected Close to not return an error")
	})

	t.Run("Lodegraph with nil database handles Close gracefully", func(t *testing.T) {
		l := &Lodegraph{}

		err := l.Close()
		assert.NoError(t, err, "Expected Close to handle nil DB gracefully")
	})
}

func TestSetPipeline(t *testing.T) {
	l := initLodegraph(t)

	t.Run("Set pipeline successfully", func(t *testing.T) {
		p := pipeline.NewPipeline(pipeline.SentenceChunker(5), testEmbedder())

		l.SetPipeline(p)

		assert.Equal(t, p, l.Pipeline, "Expected pipeline to match")
	})

	t.Run("Set pipeline to nil", func(t *testing.T) {
		l.SetPipeline(nil)

		assert.Nil(t, l.Pipeline, "Expected pipeline to be nil")
	})
}

func TestIngestDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("Ingest document end to end", func(t *testing.T) {
		l := initLodegraph(t)
		p := pipeline.NewPipeline(pipeline.SentenceChunker(5), testEmbedder())
		p.SetExtractor(testExtractor())
		l.SetPipeline(p)

		doc := &model.Document{
			DocID:   "doc-ingest-1",
			Title:   "Crushing circuit",
			Content: "The jaw crusher feeds the ball mill.",
		}

		stats, err := l.IngestDocument(ctx, doc)
		require.NoError(t, err, "Expected ingestion to succeed")
		require.NotNil(t, stats)

		assert.Equal(t, 1, stats.ChunksTotal)
		assert.Equal(t, 1, stats.ChunksExtracted)
		assert.Equal(t, 0, stats.ChunksFailed)
		assert.Equal(t, 2, stats.Write.NodesWritten, "Expected both entities written")
		assert.Equal(t, 1, stats.Write.RelsWritten, "Expected the FEEDS relationship written")
		assert.Equal(t, 2, stats.MentionsWritten, "Expected one mention per entity")

		// Document metadata stored without content
		stored, err := l.Documents.SelectDocument("doc-ingest-1")
		require.NoError(t, err)
		assert.Equal(t, "Crushing circuit", stored.Title)

		chunks, err := l.Chunks.SelectChunksByDocument("doc-ingest-1")
		require.NoError(t, err)
		assert.Len(t, chunks, 1)
	})

	t.Run("Re-ingesting the same document is idempotent", func(t *testing.T) {
		l := initLodegraph(t)
		p := pipeline.NewPipeline(pipeline.SentenceChunker(5), testEmbedder())
		p.SetExtractor(testExtractor())
		l.SetPipeline(p)

		doc := func() *model.Document {
			return &model.Document{
				DocID:   "doc-ingest-2",
				Title:   "Crushing circuit",
				Content: "The jaw crusher feeds the ball mill.",
			}
		}

		_, err := l.IngestDocument(ctx, doc())
		require.NoError(t, err)
		nodesBefore, err := l.Nodes.CountNodes()
		require.NoError(t, err)
		chunksBefore, err := l.Chunks.CountChunks()
		require.NoError(t, err)

		_, err = l.IngestDocument(ctx, doc())
		require.NoError(t, err)

		nodesAfter, err := l.Nodes.CountNodes()
		require.NoError(t, err)
		chunksAfter, err := l.Chunks.CountChunks()
		require.NoError(t, err)
		assert.Equal(t, nodesBefore, nodesAfter, "Expected no new nodes on re-ingestion")
		assert.Equal(t, chunksBefore, chunksAfter, "Expected no new chunks on re-ingestion")
	})

	t.Run("Anonymous entities keep their provenance", func(t *testing.T) {
		l := initLodegraph(t)
		p := pipeline.NewPipeline(pipeline.SentenceChunker(5), testEmbedder())
		p.SetExtractor(func(ctx context.Context, text string) (*model.Extraction, error) {
			return &model.Extraction{
				Nodes: []model.RawRecord{
					{
						Kind:       model.RecordKindNode,
						Type:       "Observation",
						Properties: model.Metadata{"note": "unnamed reading"},
					},
				},
			}, nil
		})
		l.SetPipeline(p)

		stats, err := l.IngestDocument(ctx, &model.Document{
			DocID:   "doc-ingest-3",
			Title:   "Shift log",
			Content: "Vibration spiked during the night shift.",
		})
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Write.NodesWritten)
		assert.Equal(t, 1, stats.MentionsWritten, "Expected a mention even for an entity without a name")
	})

	t.Run("Ingest without pipeline fails", func(t *testing.T) {
		l := initLodegraph(t)

		_, err := l.IngestDocument(ctx, &model.Document{DocID: "doc-x", Content: "text"})
		assert.Error(t, err, "Expected ingestion without a pipeline to fail")
	})

	t.Run("Ingest empty content fails", func(t *testing.T) {
		l := initLodegraph(t)
		l.SetPipeline(pipeline.NewPipeline(pipeline.SentenceChunker(5), testEmbedder()))

		_, err := l.IngestDocument(ctx, &model.Document{DocID: "doc-y"})
		assert.Error(t, err, "Expected empty content to fail")
	})
}

func TestIngest(t *testing.T) {
	ctx := context.Background()

	t.Run("Ingest raw records directly", func(t *testing.T) {
		l := initLodegraph(t)

		records := []model.RawRecord{
			{
				Kind:       model.RecordKindNode,
				Type:       "Process",
				Properties: model.Metadata{"name": "Primary Crushing"},
			},
			{
				Kind:       model.RecordKindNode,
				Type:       "Process",
				Properties: model.Metadata{"name": "Grinding"},
			},
			{
				Kind:       model.RecordKindNode,
				Type:       "Process",
				Properties: model.Metadata{"name": "Primary Crushing"},
			},
		}

		stats, err := l.Ingest(ctx, records)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Resolve.NodesIn)
		assert.Equal(t, 2, stats.Resolve.NodesOut, "Expected duplicate records merged")
		assert.Equal(t, 2, stats.Write.NodesWritten)
	})
}

func TestQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("Query returns the mentioned entities and their neighborhood", func(t *testing.T) {
		l := initLodegraph(t)
		p := pipeline.NewPipeline(pipeline.SentenceChunker(5), testEmbedder())
		p.SetExtractor(testExtractor())
		l.SetPipeline(p)

		_, err := l.IngestDocument(ctx, &model.Document{
			DocID:   "doc-query-1",
			Title:   "Crushing circuit",
			Content: "The jaw crusher feeds the ball mill.",
		})
		require.NoError(t, err)

		subgraph, err := l.Query(ctx, "what feeds the mill", nil)
		require.NoError(t, err)
		require.NotNil(t, subgraph)
		assert.False(t, subgraph.Empty(), "Expected a non-empty subgraph for matching chunks")

		labels := make(map[string]bool)
		for _, node := range subgraph.Nodes {
			labels[node.Label] = true
		}
		assert.True(t, labels["Chunk"], "Expected the seed chunk as a node")
		assert.True(t, labels["Equipment"])
		assert.Equal(t, "Chunk", subgraph.Nodes[0].Label, "Expected the seed chunk first")

		edgeTypes := make(map[string]bool)
		for _, edge := range subgraph.Edges {
			edgeTypes[edge.Type] = true
		}
		assert.True(t, edgeTypes["MENTIONS"], "Expected mention edges from the seed chunk")
		assert.True(t, edgeTypes["FEEDS"], "Expected the FEEDS edge in the neighborhood")
	})

	t.Run("Query without pipeline fails", func(t *testing.T) {
		l := initLodegraph(t)

		_, err := l.Query(ctx, "anything", nil)
		assert.Error(t, err, "Expected query without an embedder to fail")
	})
}

func TestResetGraph(t *testing.T) {
	ctx := context.Background()

	t.Run("Reset deletes the graph but keeps documents and chunks", func(t *testing.T) {
		l := initLodegraph(t)
		p := pipeline.NewPipeline(pipeline.SentenceChunker(5), testEmbedder())
		p.SetExtractor(testExtractor())
		l.SetPipeline(p)

		_, err := l.IngestDocument(ctx, &model.Document{
			DocID:   "doc-reset-1",
			Title:   "Crushing circuit",
			Content: "The jaw crusher feeds the ball mill.",
		})
		require.NoError(t, err)

		err = l.ResetGraph(ctx)
		require.NoError(t, err)

		nodes, err := l.Nodes.CountNodes()
		require.NoError(t, err)
		assert.Equal(t, int64(0), nodes, "Expected all nodes deleted")

		mentions, err := l.Mentions.CountMentions()
		require.NoError(t, err)
		assert.Equal(t, int64(0), mentions, "Expected all mentions deleted")

		chunks, err := l.Chunks.SelectChunksByDocument("doc-reset-1")
		require.NoError(t, err)
		assert.NotEmpty(t, chunks, "Expected chunks to survive a graph reset")
	})
}

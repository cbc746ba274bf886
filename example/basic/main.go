package main

import (
	"context"
	"fmt"
	"log"

	"github.com/mineral-labs/lodegraph"
	"github.com/mineral-labs/lodegraph/core/pipeline"
	"github.com/mineral-labs/lodegraph/helper"
	"github.com/mineral-labs/lodegraph/model"
)

const sampleContent = `The primary crushing circuit receives run-of-mine ore from the pit.

The jaw crusher feeds the ball mill through a conveyor system.
The ball mill grinds the ore to a fine slurry before flotation.

The flotation circuit uses reagents to separate the copper concentrate.
Tailings from flotation are pumped to the tailings storage facility.`

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	l, err := lodegraph.NewLodegraph(dbConfig, pipeline.DefaultEmbeddingDim)
	if err != nil {
		log.Fatalf("Failed to create lodegraph: %v", err)
	}
	defer l.Close()

	// Set up the default pipeline (sentence chunking + embeddings + NER)
	if err := l.UseDefaultPipeline(); err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}

	doc := &model.Document{
		DocID:   "crushing-circuit",
		Title:   "Primary Crushing Circuit",
		Source:  "basic_example",
		Content: sampleContent,
		Metadata: model.Metadata{
			"site":  "example mine",
			"topic": "comminution",
		},
	}

	// Ingest: chunk, embed, extract, canonicalize and write in one call
	fmt.Println("Ingesting document...")
	stats, err := l.IngestDocument(context.Background(), doc)
	if err != nil {
		log.Fatalf("Failed to ingest document: %v", err)
	}
	fmt.Printf("Ingested %d chunks (%d failed extraction)\n", stats.ChunksTotal, stats.ChunksFailed)
	fmt.Printf("Wrote %d entities, %d relationships, %d mentions\n",
		stats.Write.NodesWritten, stats.Write.RelsWritten, stats.MentionsWritten)

	// Answer a question with a bounded subgraph
	queryText := "What feeds the ball mill?"

	fmt.Printf("\nQuerying: %s\n", queryText)

	config := model.DefaultQueryConfig()
	config.TopK = 5
	config.Fetch.Hops = 2

	subgraph, err := l.Query(context.Background(), queryText, &config)
	if err != nil {
		log.Fatalf("Failed to query: %v", err)
	}

	fmt.Printf("\nFound %d nodes and %d edges:\n", len(subgraph.Nodes), len(subgraph.Edges))
	for _, node := range subgraph.Nodes {
		fmt.Printf("  [%s] %v\n", node.Label, node.Properties["name"])
	}
	for _, edge := range subgraph.Edges {
		fmt.Printf("  %s -%s-> %s\n", edge.SourceID, edge.Type, edge.TargetID)
	}

	fmt.Println("\nBasic example completed successfully!")
}

package model

import "github.com/google/uuid"

// SeedMatch is one ranked text-index hit: the retriever consumes only the
// chunk id and its score.
type SeedMatch struct {
	ChunkID uuid.UUID `json:"chunk_id"`
	Score   float64   `json:"score"`
}

// NodeView is a node as returned by subgraph retrieval: id, primary label
// and the merged properties.
type NodeView struct {
	ID         uuid.UUID `json:"id"`
	Label      string    `json:"label"`
	Properties Metadata  `json:"properties,omitempty"`
}

// EdgeView is an edge as returned by subgraph retrieval. The retriever
// guarantees both endpoints appear in the accompanying node list.
type EdgeView struct {
	SourceID   uuid.UUID `json:"source"`
	TargetID   uuid.UUID `json:"target"`
	Type       string    `json:"type"`
	Properties Metadata  `json:"properties,omitempty"`
}

// Subgraph is the bounded result of a retrieval call. Nodes lists the seed
// chunks first, then the entities reached from them.
type Subgraph struct {
	Nodes []NodeView `json:"nodes"`
	Edges []EdgeView `json:"edges"`
}

// Empty reports whether the subgraph contains no nodes. An empty subgraph
// is a valid "nothing found" answer, distinct from a store error.
func (s *Subgraph) Empty() bool {
	return len(s.Nodes) == 0
}

// WriteStats summarizes one graph write batch.
type WriteStats struct {
	NodesWritten int `json:"nodes_written"`
	RelsWritten  int `json:"rels_written"`
}

// ResolveStats counts what canonicalization and merging did to a batch.
// Conflicts and drops are recovered locally; they surface here for
// observability only.
type ResolveStats struct {
	NodesIn          int `json:"nodes_in"`
	NodesOut         int `json:"nodes_out"`
	EdgesIn          int `json:"edges_in"`
	EdgesOut         int `json:"edges_out"`
	MergeConflicts   int `json:"merge_conflicts"`
	MalformedRecords int `json:"malformed_records"`
	SelfLoopsDropped int `json:"self_loops_dropped"`
	DanglingDropped  int `json:"dangling_dropped"`
}

// IngestStats summarizes one document ingestion run. A batch always reports
// per-chunk successes and failures instead of failing wholesale on one bad
// chunk.
type IngestStats struct {
	ChunksTotal     int          `json:"chunks_total"`
	ChunksExtracted int          `json:"chunks_extracted"`
	ChunksFailed    int          `json:"chunks_failed"`
	MentionsWritten int          `json:"mentions_written"`
	Resolve         ResolveStats `json:"resolve"`
	Write           WriteStats   `json:"write"`
}

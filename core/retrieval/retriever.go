// Package retrieval turns ranked text-index hits into a bounded, connected
// subgraph. Retrieval is read-only and deterministic: the same store state
// and the same seeds always produce the same subgraph.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mineral-labs/lodegraph/helper"
	"github.com/mineral-labs/lodegraph/model"
)

// MentionsEdgeType is the edge type linking a seed chunk to an entity it
// mentions in retrieval results.
const MentionsEdgeType = "MENTIONS"

// ChunkLabel is the node label of seed chunks in retrieval results.
const ChunkLabel = "Chunk"

// Retriever expands seed chunks into a subgraph via mention lookup and
// whitelist-bounded traversal.
type Retriever struct {
	chunks        ChunkReader
	nodes         NodeReader
	relationships RelationshipReader
	mentions      MentionReader
	log           *slog.Logger
}

// NewRetriever creates a retriever over the given store readers.
func NewRetriever(chunks ChunkReader, nodes NodeReader, relationships RelationshipReader, mentions MentionReader, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		chunks:        chunks,
		nodes:         nodes,
		relationships: relationships,
		mentions:      mentions,
		log:           logger,
	}
}

// FetchSubgraph resolves seed chunks to their mentioned entities, expands
// outward up to config.Hops over whitelisted relationship types, and returns
// the bounded subgraph:
//
//  1. Seeds scored below the threshold are dropped; surviving chunk ids are
//     deduplicated in rank order and resolved against the stored chunks.
//  2. Resolved chunks become the first result nodes, followed by the
//     entities their stored mentions point to.
//  3. Breadth-first expansion follows whitelisted relationships in both
//     directions, hop by hop. Hops 0 returns exactly the seed chunks and
//     their directly mentioned entities.
//  4. Every chunk-to-entity mention surfaces as a MENTIONS edge carrying the
//     span provenance, whether or not traversal rediscovered the entity.
//  5. The node budget truncates in discovery order: seed chunks, then seed
//     entities, then hop-expanded neighbors.
//  6. Edges with a truncated endpoint are dropped: every returned edge has
//     both endpoints in the node list.
//
// No resolvable seeds is an empty subgraph, not an error. A store failure
// returns an error matching model.ErrStorageUnavailable.
func (r *Retriever) FetchSubgraph(ctx context.Context, seeds []model.SeedMatch, config *model.FetchConfig) (*model.Subgraph, error) {
	cfg := model.DefaultFetchConfig()
	if config != nil {
		cfg = *config
	}
	if err := cfg.Validate(); err != nil {
		return nil, helper.NewError("fetch config validation", err)
	}
	whitelist := cfg.RelationWhitelist
	if whitelist == nil {
		whitelist = model.DefaultRelationWhitelist
	}

	var chunkIDs []uuid.UUID
	seenSeeds := make(map[uuid.UUID]bool)
	for _, seed := range seeds {
		if seed.Score < cfg.ScoreThreshold || seenSeeds[seed.ChunkID] {
			continue
		}
		seenSeeds[seed.ChunkID] = true
		chunkIDs = append(chunkIDs, seed.ChunkID)
	}
	if len(chunkIDs) == 0 {
		return &model.Subgraph{}, nil
	}

	chunks, err := r.chunks.SelectChunksByIDs(chunkIDs)
	if err != nil {
		return nil, storageError("select chunks", err)
	}
	if len(chunks) == 0 {
		return &model.Subgraph{}, nil
	}
	resolvedIDs := make([]uuid.UUID, 0, len(chunks))
	for _, chunk := range chunks {
		resolvedIDs = append(resolvedIDs, chunk.ID)
	}

	mentions, err := r.mentions.SelectMentionsByChunks(resolvedIDs)
	if err != nil {
		return nil, storageError("select mentions", err)
	}

	// Discovery order: seed chunks first, then seed entities in mention
	// order. Mention provenance is keyed by (chunk, entity) pair for the
	// MENTIONS edges.
	order := append([]uuid.UUID(nil), resolvedIDs...)
	discovered := make(map[uuid.UUID]bool, len(order))
	for _, id := range order {
		discovered[id] = true
	}

	type mentionPair struct {
		chunkID  uuid.UUID
		entityID uuid.UUID
	}
	var pairs []mentionPair
	provenance := make(map[mentionPair][]model.Metadata)
	var seedEntities []uuid.UUID
	for _, mention := range mentions {
		if !discovered[mention.EntityID] {
			discovered[mention.EntityID] = true
			order = append(order, mention.EntityID)
			seedEntities = append(seedEntities, mention.EntityID)
		}
		pair := mentionPair{chunkID: mention.ChunkID, entityID: mention.EntityID}
		if _, ok := provenance[pair]; !ok {
			pairs = append(pairs, pair)
		}
		provenance[pair] = append(provenance[pair], mentionProvenance(mention))
	}

	// Hop-by-hop expansion. The store returns adjacency in a fixed order,
	// so discovery order is stable across calls.
	var rels []*model.Relationship
	seenEdges := make(map[model.RelationshipKey]bool)
	frontier := append([]uuid.UUID(nil), seedEntities...)
	for hop := 0; hop < cfg.Hops && len(frontier) > 0 && len(whitelist) > 0; hop++ {
		adjacency, err := r.relationships.SelectRelationshipsForNodes(frontier, whitelist)
		if err != nil {
			return nil, storageError("select relationships", err)
		}

		var next []uuid.UUID
		for _, rel := range adjacency {
			if !seenEdges[rel.Key()] {
				seenEdges[rel.Key()] = true
				rels = append(rels, rel)
			}
			for _, id := range []uuid.UUID{rel.SourceID, rel.TargetID} {
				if !discovered[id] {
					discovered[id] = true
					order = append(order, id)
					next = append(next, id)
				}
			}
		}
		frontier = next
	}

	// Budget truncation in discovery order keeps seed chunks and seed
	// entities preferentially.
	if len(order) > cfg.NodeBudget {
		r.log.Debug("Truncating subgraph to node budget",
			slog.Int("discovered", len(order)),
			slog.Int("budget", cfg.NodeBudget),
		)
		order = order[:cfg.NodeBudget]
	}
	kept := make(map[uuid.UUID]bool, len(order))
	for _, id := range order {
		kept[id] = true
	}

	var entityIDs []uuid.UUID
	chunkByID := make(map[uuid.UUID]*model.Chunk, len(chunks))
	for _, chunk := range chunks {
		chunkByID[chunk.ID] = chunk
	}
	for _, id := range order {
		if _, ok := chunkByID[id]; !ok {
			entityIDs = append(entityIDs, id)
		}
	}

	entities, err := r.nodes.SelectNodesByIDs(entityIDs)
	if err != nil {
		return nil, storageError("select nodes", err)
	}
	entityByID := make(map[uuid.UUID]*model.Entity, len(entities))
	for _, entity := range entities {
		entityByID[entity.ID] = entity
	}

	subgraph := &model.Subgraph{}
	for _, id := range order {
		if chunk, ok := chunkByID[id]; ok {
			subgraph.Nodes = append(subgraph.Nodes, chunkNodeView(chunk))
			continue
		}
		entity, ok := entityByID[id]
		if !ok {
			kept[id] = false
			continue
		}

		props := entity.Properties.Clone()
		if len(entity.ExtraTypes) > 0 {
			props["extra_types"] = entity.ExtraTypes
		}
		subgraph.Nodes = append(subgraph.Nodes, model.NodeView{
			ID:         entity.ID,
			Label:      entity.PrimaryType,
			Properties: props,
		})
	}

	// Never return an edge pointing outside the node list. Mention edges
	// come first, one per (chunk, entity) pair.
	for _, pair := range pairs {
		if !kept[pair.chunkID] || !kept[pair.entityID] {
			continue
		}
		subgraph.Edges = append(subgraph.Edges, model.EdgeView{
			SourceID:   pair.chunkID,
			TargetID:   pair.entityID,
			Type:       MentionsEdgeType,
			Properties: model.Metadata{"mentions": provenance[pair]},
		})
	}
	for _, rel := range rels {
		if !kept[rel.SourceID] || !kept[rel.TargetID] {
			continue
		}
		subgraph.Edges = append(subgraph.Edges, model.EdgeView{
			SourceID:   rel.SourceID,
			TargetID:   rel.TargetID,
			Type:       rel.Type,
			Properties: rel.Properties,
		})
	}

	return subgraph, nil
}

func chunkNodeView(chunk *model.Chunk) model.NodeView {
	props := chunk.Metadata.Clone()
	props["doc_id"] = chunk.DocID
	props["seq"] = chunk.Seq
	props["content"] = chunk.Content
	return model.NodeView{
		ID:         chunk.ID,
		Label:      ChunkLabel,
		Properties: props,
	}
}

func mentionProvenance(mention *model.Mention) model.Metadata {
	prov := model.Metadata{
		"confidence": mention.Confidence,
	}
	if mention.Surface != "" {
		prov["surface"] = mention.Surface
	}
	if mention.HasSpan() {
		prov["span_start"] = *mention.SpanStart
		prov["span_end"] = *mention.SpanEnd
	}
	return prov
}

// storageError marks a store failure as retryable, distinct from an empty
// result.
func storageError(context string, err error) error {
	return helper.NewError(context, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err))
}

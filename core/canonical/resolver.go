package canonical

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/google/uuid"
	"github.com/mineral-labs/lodegraph/model"
)

// Resolution is the deduplicated output of resolving one batch of raw
// records. Entities and Relationships preserve first-discovery order.
type Resolution struct {
	Entities      []*model.Entity
	Relationships []*model.Relationship
	// IDBySource maps extractor-supplied ids to canonical ids so edge
	// endpoints and mention records can be remapped.
	IDBySource map[string]uuid.UUID
	// EntityByRecord is index-aligned with the input batch and maps each
	// node record to its resolved entity id, uuid.Nil for edge records and
	// skipped records. Callers use it to attribute entities back to the
	// chunk a record came from without re-deriving keys.
	EntityByRecord []uuid.UUID
	Stats          model.ResolveStats
}

// EntityByID returns the resolved entity for a canonical id, or nil.
func (r *Resolution) EntityByID(id uuid.UUID) *model.Entity {
	for _, e := range r.Entities {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// Resolver turns duplicate-prone raw extraction output into canonical
// entities and relationships. Merge semantics:
//   - node property conflicts: last-write-wins (most recently merged value)
//   - edge collisions on (source, target, type): first-write-wins
//
// The asymmetry is intentional: node properties accrete corrections over
// time, while the first extraction of an edge carries its context.
type Resolver struct {
	log *slog.Logger
	// DisambiguateAnonymous appends a per-batch ordinal to keys that carry
	// neither a name nor an original id, so unrelated same-typed records do
	// not collapse into one node. Costs cross-run idempotence for those
	// records only.
	DisambiguateAnonymous bool
}

// NewResolver creates a resolver with anonymous-record disambiguation on.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		log:                   logger,
		DisambiguateAnonymous: true,
	}
}

// Resolve canonicalizes and merges a batch of raw records. Malformed records
// are counted and skipped, never fatal; the stats carry every recovered
// defect for observability.
func (rv *Resolver) Resolve(records []model.RawRecord) *Resolution {
	res := &Resolution{
		IDBySource:     make(map[string]uuid.UUID),
		EntityByRecord: make([]uuid.UUID, len(records)),
	}
	byID := make(map[uuid.UUID]*model.Entity)
	anonSeq := 0

	// Nodes first so every edge endpoint can be remapped afterwards.
	for i := range records {
		r := &records[i]
		if r.Kind != model.RecordKindNode {
			continue
		}
		res.Stats.NodesIn++

		key, err := Key(r)
		if err != nil {
			res.Stats.MalformedRecords++
			rv.log.Warn("Skipping malformed node record", slog.String("type", r.Type), slog.String("error", err.Error()))
			continue
		}
		if rv.DisambiguateAnonymous && IsDegenerate(key) {
			key = fmt.Sprintf("%s#%d", key, anonSeq)
			anonSeq++
		}
		id := ID(key)
		res.EntityByRecord[i] = id

		if r.SourceID != "" {
			res.IDBySource[r.SourceID] = id
		}
		if orig := r.StringProperty("original_id"); orig != "" {
			res.IDBySource[orig] = id
		}

		if existing, ok := byID[id]; ok {
			res.Stats.MergeConflicts += rv.mergeEntity(existing, r)
		} else {
			entity := &model.Entity{
				ID:          id,
				PrimaryType: r.Type,
				Properties:  r.Properties.Clone(),
			}
			entity.Properties["canonical_key"] = key
			byID[id] = entity
			res.Entities = append(res.Entities, entity)
		}
	}

	// Edges: remap endpoints, drop self-loops and danglers, dedupe
	// first-write-wins on (source, target, type).
	seenEdges := make(map[model.RelationshipKey]bool)
	for i := range records {
		r := &records[i]
		if r.Kind != model.RecordKindEdge {
			continue
		}
		res.Stats.EdgesIn++

		if err := r.Validate(); err != nil {
			res.Stats.MalformedRecords++
			rv.log.Warn("Skipping malformed edge record", slog.String("type", r.Type), slog.String("error", err.Error()))
			continue
		}

		sourceID, ok := rv.resolveEndpoint(r.StringProperty("source"), res.IDBySource, byID)
		if !ok {
			res.Stats.DanglingDropped++
			continue
		}
		targetID, ok := rv.resolveEndpoint(r.StringProperty("target"), res.IDBySource, byID)
		if !ok {
			res.Stats.DanglingDropped++
			continue
		}

		if sourceID == targetID {
			res.Stats.SelfLoopsDropped++
			continue
		}

		props := r.Properties.Clone()
		delete(props, "source")
		delete(props, "target")

		rel := &model.Relationship{
			SourceID:   sourceID,
			TargetID:   targetID,
			Type:       r.Type,
			Properties: props,
		}
		if seenEdges[rel.Key()] {
			// First-seen edge keeps its properties
			continue
		}
		seenEdges[rel.Key()] = true
		res.Relationships = append(res.Relationships, rel)
	}

	res.Stats.NodesOut = len(res.Entities)
	res.Stats.EdgesOut = len(res.Relationships)

	return res
}

// mergeEntity unions an incoming record into an existing entity and returns
// the number of property conflicts resolved (last write wins). Distinct
// incoming types accumulate as extra labels; superseded names are kept as
// aliases so no surface form is lost.
func (rv *Resolver) mergeEntity(existing *model.Entity, incoming *model.RawRecord) int {
	conflicts := 0

	if incoming.Type != existing.PrimaryType && !existing.HasType(incoming.Type) {
		existing.ExtraTypes = append(existing.ExtraTypes, incoming.Type)
	}

	for k, v := range incoming.Properties {
		old, had := existing.Properties[k]
		// Values can be slices or maps from decoded JSON, which are not
		// comparable with ==.
		if had && !reflect.DeepEqual(old, v) {
			if k == "name" {
				if s, ok := old.(string); ok && s != "" {
					existing.Properties["aliases"] = appendDistinct(aliasList(existing.Properties["aliases"]), s)
				}
			}
			conflicts++
		}
		existing.Properties[k] = v
	}

	return conflicts
}

// resolveEndpoint maps an extractor-supplied endpoint reference to a
// canonical id present in the resolved node set. Unresolvable endpoints are
// never auto-created as placeholder nodes.
func (rv *Resolver) resolveEndpoint(ref string, bySource map[string]uuid.UUID, byID map[uuid.UUID]*model.Entity) (uuid.UUID, bool) {
	if id, ok := bySource[ref]; ok {
		return id, true
	}
	// The extractor may already emit canonical uuids
	if id, err := uuid.Parse(ref); err == nil {
		if _, ok := byID[id]; ok {
			return id, true
		}
	}
	return uuid.Nil, false
}

func aliasList(v interface{}) []string {
	switch a := v.(type) {
	case []string:
		return a
	case []interface{}:
		out := make([]string, 0, len(a))
		for _, e := range a {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func appendDistinct(list []string, s string) []string {
	for _, e := range list {
		if e == s {
			return list
		}
	}
	return append(list, s)
}

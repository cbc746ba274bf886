package canonical

import (
	"testing"

	"github.com/google/uuid"
	"github.com/mineral-labs/lodegraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func edgeRecord(relType, source, target string) model.RawRecord {
	return model.RawRecord{
		Kind:       model.RecordKindEdge,
		Type:       relType,
		Properties: model.Metadata{"source": source, "target": target},
	}
}

func TestResolverNodes(t *testing.T) {
	t.Run("Duplicate records merge into one entity", func(t *testing.T) {
		resolver := NewResolver(nil)

		a := nodeRecord("Equipment", "Crusher", "")
		a.Properties["power_kw"] = 75.0
		b := nodeRecord("Equipment", "Crusher", "")
		b.Properties["power_kw"] = 90.0
		b.Properties["vendor"] = "Metso"

		res := resolver.Resolve([]model.RawRecord{a, b})

		require.Len(t, res.Entities, 1)
		entity := res.Entities[0]
		assert.Equal(t, 90.0, entity.Properties["power_kw"], "Expected the later value to win")
		assert.Equal(t, "Metso", entity.Properties["vendor"])
		assert.Equal(t, 2, res.Stats.NodesIn)
		assert.Equal(t, 1, res.Stats.NodesOut)
		assert.Equal(t, 1, res.Stats.MergeConflicts)
	})

	t.Run("Name variants with the same original id converge", func(t *testing.T) {
		resolver := NewResolver(nil)

		a := nodeRecord("Equipment", "jaw_crusher", "eq-001")
		b := nodeRecord("Equipment", "Jaw Crusher Unit 1", "eq-001")

		res := resolver.Resolve([]model.RawRecord{a, b})

		require.Len(t, res.Entities, 1)
		entity := res.Entities[0]
		assert.Equal(t, "Jaw Crusher Unit 1", entity.Properties["name"])
		aliases, ok := entity.Properties["aliases"].([]string)
		require.True(t, ok, "Expected the superseded name to be kept as an alias")
		assert.Contains(t, aliases, "jaw_crusher")
	})

	t.Run("Differing incoming type accumulates as extra label", func(t *testing.T) {
		resolver := NewResolver(nil)

		a := nodeRecord("Equipment", "", "eq-001")
		b := model.RawRecord{
			Kind:       model.RecordKindNode,
			Type:       "Asset",
			Properties: model.Metadata{"original_id": "eq-001"},
		}

		res := resolver.Resolve([]model.RawRecord{a, b})

		require.Len(t, res.Entities, 1)
		entity := res.Entities[0]
		assert.Equal(t, "Equipment", entity.PrimaryType, "Expected the first type to stay primary")
		assert.Equal(t, []string{"Asset"}, entity.ExtraTypes)
		assert.True(t, entity.HasType("Asset"))
	})

	t.Run("Slice-valued properties merge without panicking", func(t *testing.T) {
		resolver := NewResolver(nil)

		a := nodeRecord("Equipment", "Crusher", "eq-001")
		a.Properties["tags"] = []interface{}{"primary", "fixed"}
		b := nodeRecord("Equipment", "Crusher", "eq-001")
		b.Properties["tags"] = []interface{}{"primary", "mobile"}

		res := resolver.Resolve([]model.RawRecord{a, b})

		require.Len(t, res.Entities, 1)
		entity := res.Entities[0]
		assert.Equal(t, []interface{}{"primary", "mobile"}, entity.Properties["tags"], "Expected the later slice to win")
		assert.Equal(t, 1, res.Stats.MergeConflicts)
	})

	t.Run("Equal slice-valued properties are not conflicts", func(t *testing.T) {
		resolver := NewResolver(nil)

		a := nodeRecord("Equipment", "Crusher", "eq-001")
		a.Properties["tags"] = []interface{}{"primary"}
		b := nodeRecord("Equipment", "Crusher", "eq-001")
		b.Properties["tags"] = []interface{}{"primary"}

		res := resolver.Resolve([]model.RawRecord{a, b})

		require.Len(t, res.Entities, 1)
		assert.Equal(t, 0, res.Stats.MergeConflicts, "Expected deep-equal values to merge silently")
	})

	t.Run("Every node record maps to its resolved entity", func(t *testing.T) {
		resolver := NewResolver(nil)

		named := nodeRecord("Equipment", "Crusher", "")
		named.SourceID = "n1"
		anonymous := model.RawRecord{Kind: model.RecordKindNode, Type: "Observation"}
		malformed := model.RawRecord{Kind: model.RecordKindNode, Type: "  "}
		edge := edgeRecord("FEEDS", "n1", "n1")

		res := resolver.Resolve([]model.RawRecord{named, anonymous, malformed, edge})

		require.Len(t, res.EntityByRecord, 4)
		assert.Equal(t, res.Entities[0].ID, res.EntityByRecord[0])
		assert.Equal(t, res.Entities[1].ID, res.EntityByRecord[1], "Expected anonymous records to map to their entity")
		assert.Equal(t, uuid.Nil, res.EntityByRecord[2], "Expected skipped records to map to nil")
		assert.Equal(t, uuid.Nil, res.EntityByRecord[3], "Expected edge records to map to nil")
	})

	t.Run("Malformed records are skipped and counted", func(t *testing.T) {
		resolver := NewResolver(nil)

		good := nodeRecord("Equipment", "Crusher", "")
		bad := model.RawRecord{Kind: model.RecordKindNode, Type: "  "}

		res := resolver.Resolve([]model.RawRecord{good, bad})

		assert.Len(t, res.Entities, 1)
		assert.Equal(t, 1, res.Stats.MalformedRecords)
	})

	t.Run("Anonymous records do not collapse", func(t *testing.T) {
		resolver := NewResolver(nil)

		a := model.RawRecord{Kind: model.RecordKindNode, Type: "Equipment"}
		b := model.RawRecord{Kind: model.RecordKindNode, Type: "Equipment"}

		res := resolver.Resolve([]model.RawRecord{a, b})

		assert.Len(t, res.Entities, 2, "Expected unrelated anonymous records to stay distinct")
	})

	t.Run("Resolution is deterministic across runs", func(t *testing.T) {
		records := []model.RawRecord{
			nodeRecord("Equipment", "Crusher", ""),
			nodeRecord("Process", "Crushing", ""),
		}

		first := NewResolver(nil).Resolve(records)
		second := NewResolver(nil).Resolve(records)

		require.Len(t, first.Entities, 2)
		require.Len(t, second.Entities, 2)
		assert.Equal(t, first.Entities[0].ID, second.Entities[0].ID)
		assert.Equal(t, first.Entities[1].ID, second.Entities[1].ID)
	})
}

func TestResolverEdges(t *testing.T) {
	t.Run("Endpoints are remapped to canonical ids", func(t *testing.T) {
		resolver := NewResolver(nil)

		crusher := nodeRecord("Equipment", "Crusher", "")
		crusher.SourceID = "n1"
		mill := nodeRecord("Equipment", "Mill", "")
		mill.SourceID = "n2"

		res := resolver.Resolve([]model.RawRecord{crusher, mill, edgeRecord("FEEDS", "n1", "n2")})

		require.Len(t, res.Relationships, 1)
		rel := res.Relationships[0]
		assert.Equal(t, res.IDBySource["n1"], rel.SourceID)
		assert.Equal(t, res.IDBySource["n2"], rel.TargetID)
		assert.Equal(t, "FEEDS", rel.Type)
		assert.NotContains(t, rel.Properties, "source", "Expected endpoint refs stripped from properties")
	})

	t.Run("Duplicate edges keep the first properties", func(t *testing.T) {
		resolver := NewResolver(nil)

		crusher := nodeRecord("Equipment", "Crusher", "")
		crusher.SourceID = "n1"
		mill := nodeRecord("Equipment", "Mill", "")
		mill.SourceID = "n2"

		first := edgeRecord("FEEDS", "n1", "n2")
		first.Properties["rate"] = "high"
		second := edgeRecord("FEEDS", "n1", "n2")
		second.Properties["rate"] = "low"

		res := resolver.Resolve([]model.RawRecord{crusher, mill, first, second})

		require.Len(t, res.Relationships, 1)
		assert.Equal(t, "high", res.Relationships[0].Properties["rate"], "Expected first write to win on edges")
		assert.Equal(t, 2, res.Stats.EdgesIn)
		assert.Equal(t, 1, res.Stats.EdgesOut)
	})

	t.Run("Self loops are dropped", func(t *testing.T) {
		resolver := NewResolver(nil)

		a := nodeRecord("Equipment", "jaw_crusher", "eq-001")
		a.SourceID = "n1"
		b := nodeRecord("Equipment", "Jaw Crusher Unit 1", "eq-001")
		b.SourceID = "n2"

		res := resolver.Resolve([]model.RawRecord{a, b, edgeRecord("FEEDS", "n1", "n2")})

		assert.Empty(t, res.Relationships, "Expected the merged endpoints to drop the edge as a self loop")
		assert.Equal(t, 1, res.Stats.SelfLoopsDropped)
	})

	t.Run("Dangling edges are dropped", func(t *testing.T) {
		resolver := NewResolver(nil)

		crusher := nodeRecord("Equipment", "Crusher", "")
		crusher.SourceID = "n1"

		res := resolver.Resolve([]model.RawRecord{crusher, edgeRecord("FEEDS", "n1", "unknown")})

		assert.Empty(t, res.Relationships)
		assert.Equal(t, 1, res.Stats.DanglingDropped)
	})

	t.Run("Edges without endpoints are malformed", func(t *testing.T) {
		resolver := NewResolver(nil)

		res := resolver.Resolve([]model.RawRecord{{
			Kind:       model.RecordKindEdge,
			Type:       "FEEDS",
			Properties: model.Metadata{"source": "n1"},
		}})

		assert.Empty(t, res.Relationships)
		assert.Equal(t, 1, res.Stats.MalformedRecords)
	})
}

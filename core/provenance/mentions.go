// Package provenance links source chunks to resolved entities via
// span-annotated mention records, so every node in the graph keeps an
// auditable trail back to the text it came from.
package provenance

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mineral-labs/lodegraph/model"
)

// Confidence tiers by surface provenance. An exact extractor surface beats
// the canonical name, which beats an alias; a span-less fallback mention
// scores lowest.
const (
	confSurface  = 0.90
	confName     = 0.88
	confAlias    = 0.82
	confSpanless = 0.65
)

// BuildMentions scans the chunk text for each entity's surface forms and
// emits one Mention per matched span. Matching is case-insensitive with
// word-boundary checks: a hit inside a larger alphanumeric token does not
// count. An entity attributed to this chunk with no literal span still gets
// exactly one span-less Mention, so no entity ever loses its provenance
// edge to the originating chunk.
func BuildMentions(chunk *model.Chunk, entities []*model.Entity) []model.Mention {
	var mentions []model.Mention
	seen := make(map[mentionKey]bool)

	for _, entity := range entities {
		found := false
		for _, cand := range candidateSurfaces(entity) {
			for _, span := range findSpans(chunk.Content, cand.text) {
				m := model.Mention{
					ChunkID:    chunk.ID,
					EntityID:   entity.ID,
					SpanStart:  intPtr(span.start),
					SpanEnd:    intPtr(span.end),
					Surface:    chunk.Content[span.start:span.end],
					Confidence: resolveConfidence(entity, cand.base),
				}
				key := mentionKey{entity.ID.String(), span.start, span.end}
				if seen[key] {
					continue
				}
				seen[key] = true
				mentions = append(mentions, m)
				found = true
			}
		}

		if !found {
			key := mentionKey{entityID: entity.ID.String(), start: -1, end: -1}
			if seen[key] {
				continue
			}
			seen[key] = true
			mentions = append(mentions, model.Mention{
				ChunkID:    chunk.ID,
				EntityID:   entity.ID,
				Surface:    stringProperty(entity, "name"),
				Confidence: resolveConfidence(entity, confSpanless),
			})
		}
	}

	return mentions
}

type mentionKey struct {
	entityID string
	start    int
	end      int
}

type surfaceCandidate struct {
	text string
	base float64
}

// candidateSurfaces yields the strings to search for, highest-confidence
// first, deduplicated case-insensitively.
func candidateSurfaces(entity *model.Entity) []surfaceCandidate {
	var out []surfaceCandidate
	yielded := make(map[string]bool)

	push := func(s string, base float64) {
		s = strings.TrimSpace(s)
		if s == "" || yielded[strings.ToLower(s)] {
			return
		}
		yielded[strings.ToLower(s)] = true
		out = append(out, surfaceCandidate{text: s, base: base})
	}

	push(stringProperty(entity, "surface"), confSurface)
	push(stringProperty(entity, "name"), confName)
	for _, alias := range aliasStrings(entity) {
		push(alias, confAlias)
	}

	return out
}

type span struct {
	start int
	end   int
}

// findSpans returns every case-insensitive occurrence of needle in text
// whose boundaries are not inside a larger alphanumeric token.
func findSpans(text, needle string) []span {
	if text == "" || needle == "" {
		return nil
	}

	lowerText := strings.ToLower(text)
	lowerNeedle := strings.ToLower(needle)

	var spans []span
	offset := 0
	for {
		idx := strings.Index(lowerText[offset:], lowerNeedle)
		if idx < 0 {
			break
		}
		start := offset + idx
		end := start + len(lowerNeedle)

		if isWordBoundary(text, start, end) {
			spans = append(spans, span{start: start, end: end})
		}
		offset = start + 1
	}

	return spans
}

// isWordBoundary checks that the match is not a substring of a larger
// alphanumeric token.
func isWordBoundary(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// resolveConfidence blends an extractor-provided confidence into the
// surface-tier base, keeping the span-type signal dominant.
func resolveConfidence(entity *model.Entity, base float64) float64 {
	raw, ok := floatProperty(entity, "confidence")
	if !ok {
		return round4(base)
	}
	return round4(math.Min(1.0, 0.6*base+0.4*raw))
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}

func stringProperty(entity *model.Entity, key string) string {
	if entity.Properties == nil {
		return ""
	}
	if s, ok := entity.Properties[key].(string); ok {
		return s
	}
	return ""
}

func floatProperty(entity *model.Entity, key string) (float64, bool) {
	if entity.Properties == nil {
		return 0, false
	}
	switch v := entity.Properties[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

func intPtr(i int) *int {
	return &i
}

// aliasStrings pulls the accumulated alias list off an entity, tolerating
// both []string (fresh merges) and []interface{} (round-tripped JSONB).
func aliasStrings(entity *model.Entity) []string {
	if entity.Properties == nil {
		return nil
	}
	switch a := entity.Properties["aliases"].(type) {
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

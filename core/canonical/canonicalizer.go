package canonical

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mineral-labs/lodegraph/model"
)

// Key derives the canonical identity key of a node record:
// lower(type) + "|" + lower(trim(name)) + "|" + lower(trim(originalId or suppliedId)).
// Errors only on structurally invalid input; canonicalization is a pure
// function of the record.
func Key(r *model.RawRecord) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	if r.Kind != model.RecordKindNode {
		return "", fmt.Errorf("%w: canonical keys apply to node records, got %s", model.ErrMalformedRecord, r.Kind)
	}

	typ := strings.ToLower(strings.TrimSpace(r.Type))
	name := strings.ToLower(r.StringProperty("name"))

	orig := r.StringProperty("original_id")
	if orig == "" {
		orig = strings.TrimSpace(r.SourceID)
	}
	orig = strings.ToLower(orig)

	// A stable original id anchors identity on its own: name variants of the
	// same upstream id ("jaw_crusher" vs "Jaw Crusher Unit 1" for eq-001)
	// must converge on one node.
	if orig != "" {
		name = ""
	}

	return typ + "|" + name + "|" + orig, nil
}

// ID derives the version-5 UUID for a canonical key. Identical keys yield
// identical ids across processes and runs, which is what makes repeated
// ingestion of the same document idempotent.
func ID(key string) uuid.UUID {
	return uuid.NewSHA1(model.IDNamespace, []byte(key))
}

// Canonicalize resolves a node record to its canonical key and id.
func Canonicalize(r *model.RawRecord) (string, uuid.UUID, error) {
	key, err := Key(r)
	if err != nil {
		return "", uuid.Nil, err
	}
	return key, ID(key), nil
}

// IsDegenerate reports whether a key collapsed to "type||" because the
// record carried neither a name nor an original id. Unrelated same-typed
// records would collide on such a key.
func IsDegenerate(key string) bool {
	return strings.HasSuffix(key, "||")
}

package model

import "fmt"

// MaxHops is the hard ceiling on subgraph expansion depth. The bound doubles
// as backpressure against pathologically dense neighborhoods.
const MaxHops = 2

// DefaultRelationWhitelist is the set of relationship types eligible for
// traversal when a request does not supply its own.
var DefaultRelationWhitelist = []string{
	"USES_EQUIPMENT",
	"INCLUDES_PROCESS",
	"HAS_SCENARIO",
	"FEEDS",
	"OUTPUTS",
	"PART_OF",
	"LOCATED_IN",
	"REQUIRES",
	"POWERED_BY",
	"HAS_MATERIAL",
	"HAS_EQUIPMENT",
	"NEXT",
	"PRECEDES",
}

// FetchConfig bounds one subgraph retrieval.
type FetchConfig struct {
	// Hops limits expansion from the seed entities (0 disables expansion)
	Hops int `json:"hops"`
	// NodeBudget caps the returned node count via deterministic
	// discovery-order truncation
	NodeBudget int `json:"node_budget"`
	// RelationWhitelist lists the relationship types traversal may follow
	RelationWhitelist []string `json:"relation_whitelist,omitempty"`
	// ScoreThreshold drops seed matches scored below it
	ScoreThreshold float64 `json:"score_threshold"`
}

// DefaultFetchConfig returns a sensible default configuration.
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		Hops:              1,
		NodeBudget:        50,
		RelationWhitelist: DefaultRelationWhitelist,
		ScoreThreshold:    0.0,
	}
}

// Validate checks the bounds a retrieval request must satisfy.
func (c *FetchConfig) Validate() error {
	if c.Hops < 0 || c.Hops > MaxHops {
		return fmt.Errorf("hops must be between 0 and %d, got %d", MaxHops, c.Hops)
	}
	if c.NodeBudget <= 0 {
		return fmt.Errorf("node budget must be positive, got %d", c.NodeBudget)
	}
	return nil
}

// QueryConfig configures a full text-to-subgraph query.
type QueryConfig struct {
	// TopK is the number of text-index matches to seed from
	TopK  int         `json:"top_k"`
	Fetch FetchConfig `json:"fetch"`
}

// DefaultQueryConfig returns a sensible default configuration.
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		TopK:  8,
		Fetch: DefaultFetchConfig(),
	}
}

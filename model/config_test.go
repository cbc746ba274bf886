package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultFetchConfig(t *testing.T) {
	t.Run("Returns correct default values", func(t *testing.T) {
		config := DefaultFetchConfig()

		assert.Equal(t, 1, config.Hops, "Default Hops should be 1")
		assert.Equal(t, 50, config.NodeBudget, "Default NodeBudget should be 50")
		assert.Equal(t, DefaultRelationWhitelist, config.RelationWhitelist)
		assert.Equal(t, 0.0, config.ScoreThreshold)
	})

	t.Run("Defaults validate", func(t *testing.T) {
		config := DefaultFetchConfig()
		assert.NoError(t, config.Validate())
	})
}

func TestFetchConfigValidate(t *testing.T) {
	t.Run("Hops within bounds", func(t *testing.T) {
		for hops := 0; hops <= MaxHops; hops++ {
			config := DefaultFetchConfig()
			config.Hops = hops
			assert.NoError(t, config.Validate(), "Expected hops %d to validate", hops)
		}
	})

	t.Run("Negative hops rejected", func(t *testing.T) {
		config := DefaultFetchConfig()
		config.Hops = -1
		assert.Error(t, config.Validate())
	})

	t.Run("Hops above the ceiling rejected", func(t *testing.T) {
		config := DefaultFetchConfig()
		config.Hops = MaxHops + 1
		assert.Error(t, config.Validate())
	})

	t.Run("Non-positive node budget rejected", func(t *testing.T) {
		config := DefaultFetchConfig()
		config.NodeBudget = 0
		assert.Error(t, config.Validate())
	})
}

func TestDefaultQueryConfig(t *testing.T) {
	t.Run("Returns correct default values", func(t *testing.T) {
		config := DefaultQueryConfig()

		assert.Equal(t, 8, config.TopK, "Default TopK should be 8")
		assert.NoError(t, config.Fetch.Validate())
	})
}

func TestDefaultRelationWhitelist(t *testing.T) {
	t.Run("Whitelist covers the core relation types", func(t *testing.T) {
		assert.Contains(t, DefaultRelationWhitelist, "FEEDS")
		assert.Contains(t, DefaultRelationWhitelist, "PART_OF")
		assert.Contains(t, DefaultRelationWhitelist, "USES_EQUIPMENT")
		assert.NotContains(t, DefaultRelationWhitelist, "MENTIONED_WITH", "Co-occurrence relations are not traversable")
	})
}

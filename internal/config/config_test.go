package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestNewDefaults(t *testing.T) {
	cfg := New(viper.New())

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 1000, cfg.Engine.PageSize)
	assert.Equal(t, 500, cfg.Engine.WriteBatchSize)
	assert.Equal(t, "100", cfg.Engine.UnitCostEstimate)
	assert.Equal(t, 5*time.Minute, cfg.Engine.JobTimeout())
	assert.Equal(t, 10*time.Minute, cfg.Engine.LockTTL())
	assert.Equal(t, time.UTC, cfg.Engine.Location())
	assert.False(t, cfg.Cache.Enabled)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Empty(t, cfg.Engine.StyleCosts)
}

func TestNewReadsEnvironment(t *testing.T) {
	t.Setenv("ENGINE_PAGE_SIZE", "250")
	t.Setenv("ENGINE_JOB_TIMEOUT_SECONDS", "30")
	t.Setenv("CACHE_ENABLED", "true")
	t.Setenv("ENGINE_STYLE_COSTS", `{"S1":"12.50","S2":"80"}`)

	cfg := New(viper.New())

	assert.Equal(t, 250, cfg.Engine.PageSize)
	assert.Equal(t, 30*time.Second, cfg.Engine.JobTimeout())
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, map[string]string{"S1": "12.50", "S2": "80"}, cfg.Engine.StyleCosts)
}

func TestLocationFallsBackToUTC(t *testing.T) {
	e := EngineConfig{Timezone: "Not/AZone"}
	assert.Equal(t, time.UTC, e.Location())
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ProviderOpenRouter, cfg.AI.Provider)
	assert.Equal(t, []string{"osave", "dali", "dti"}, cfg.Catalog.Stores)
	assert.Equal(t, PricingModeEstimate, cfg.Pricing.Mode)
	assert.Equal(t, UnresolvedExclude, cfg.Pricing.UnresolvedPolicy)
	assert.Equal(t, 20*time.Second, cfg.Pricing.OracleTimeout)
	assert.Equal(t, time.Second, cfg.DedupWindow)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("CATALOG_STORES", "OSAVE, dali ,pampanga_market")
	t.Setenv("PRICING_MODE", "WebScrape")
	t.Setenv("PRICING_UNRESOLVED_POLICY", "zero")
	t.Setenv("ORACLE_TIMEOUT", "5s")
	t.Setenv("AI_PROVIDER", "gemini")
	t.Setenv("AI_KEY", "legacy-key-1234567")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"osave", "dali", "pampanga_market"}, cfg.Catalog.Stores)
	assert.Equal(t, PricingModeWebscrape, cfg.Pricing.Mode)
	assert.Equal(t, UnresolvedZero, cfg.Pricing.UnresolvedPolicy)
	assert.Equal(t, 5*time.Second, cfg.Pricing.OracleTimeout)
	assert.Equal(t, ProviderGemini, cfg.AI.Provider)
	assert.Equal(t, "legacy-key-1234567", cfg.Gemini.APIKey)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"pricing mode", "PRICING_MODE", "scrape-everything"},
		{"unresolved policy", "PRICING_UNRESOLVED_POLICY", "guess"},
		{"provider", "AI_PROVIDER", "carrier-pigeon"},
		{"duplicate store", "CATALOG_STORES", "osave,osave"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "sk-o...wxyz", maskAPIKey("sk-or-abcdefwxyz"))
}

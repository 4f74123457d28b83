package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "callsight.db", cfg.DBPath)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), cfg.Baseline)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoadBadBaseline(t *testing.T) {
	t.Setenv("BASELINE_DATE", "yesterday")
	_, err := Load()
	assert.Error(t, err, "a malformed baseline must fail startup, not default silently")
}

func TestLoadBaselineOverride(t *testing.T) {
	t.Setenv("BASELINE_DATE", "2023-06-15")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC), cfg.Baseline)
}

func TestRequireVendor(t *testing.T) {
	assert.Error(t, Config{}.RequireVendor())
	cfg := Config{
		VendorBaseURL:      "https://api.example.com",
		VendorClientID:     "id",
		VendorClientSecret: "secret",
		VendorDatasetID:    "ds",
	}
	assert.NoError(t, cfg.RequireVendor())
}

func TestRequireLLM(t *testing.T) {
	assert.Error(t, Config{}.RequireLLM())
	assert.NoError(t, Config{UseMockLLM: true}.RequireLLM())
	assert.NoError(t, Config{LLMGatewayURL: "https://llm", LLMAPIKey: "k"}.RequireLLM())
}

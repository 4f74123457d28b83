// Package config builds runtime configuration from the environment. Anything
// required but missing is a startup failure; no work begins without it.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// DefaultBaseline is the fixed cutoff before which no data is ever fetched,
// regardless of what stale stored timestamps suggest.
const DefaultBaseline = "2024-01-01"

type Config struct {
	DBPath   string
	Baseline time.Time

	VendorBaseURL      string
	VendorClientID     string
	VendorClientSecret string
	VendorDatasetID    string

	LLMGatewayURL string
	LLMAPIKey     string
	LLMModel      string
	UseMockLLM    bool

	Port      string
	OutputDir string
}

// Load reads the environment. Only values with sane defaults are defaulted;
// vendor and LLM credentials are validated by the commands that need them.
func Load() (Config, error) {
	baselineRaw := envOr("BASELINE_DATE", DefaultBaseline)
	baseline, err := time.Parse("2006-01-02", baselineRaw)
	if err != nil {
		return Config{}, fmt.Errorf("parse BASELINE_DATE %q: %w", baselineRaw, err)
	}

	return Config{
		DBPath:   envOr("DB_PATH", "callsight.db"),
		Baseline: baseline,

		VendorBaseURL:      os.Getenv("VENDOR_BASE_URL"),
		VendorClientID:     os.Getenv("VENDOR_CLIENT_ID"),
		VendorClientSecret: os.Getenv("VENDOR_CLIENT_SECRET"),
		VendorDatasetID:    os.Getenv("VENDOR_DATASET_ID"),

		LLMGatewayURL: os.Getenv("LLM_GATEWAY_URL"),
		LLMAPIKey:     os.Getenv("LLM_API_KEY"),
		LLMModel:      envOr("LLM_MODEL", "gpt-4o-mini"),
		UseMockLLM:    os.Getenv("USE_MOCK_LLM") == "true",

		Port:      envOr("PORT", "8080"),
		OutputDir: envOr("OUTPUT_DIR", "reports"),
	}, nil
}

// RequireVendor fails when the remote-sync credentials are incomplete.
func (c Config) RequireVendor() error {
	if c.VendorBaseURL == "" || c.VendorClientID == "" || c.VendorClientSecret == "" || c.VendorDatasetID == "" {
		return errors.New("vendor source not configured: set VENDOR_BASE_URL, VENDOR_CLIENT_ID, VENDOR_CLIENT_SECRET, VENDOR_DATASET_ID")
	}
	return nil
}

// RequireLLM fails when the classifier gateway is unset and no offline mode
// was requested.
func (c Config) RequireLLM() error {
	if c.UseMockLLM {
		return nil
	}
	if c.LLMGatewayURL == "" || c.LLMAPIKey == "" {
		return errors.New("llm gateway not configured: set LLM_GATEWAY_URL and LLM_API_KEY, or USE_MOCK_LLM=true")
	}
	return nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

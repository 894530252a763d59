package testsupport

import (
	"path/filepath"
	"testing"

	"eventimporter/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Ticketmaster.APIKey = "test"
	cfgVal.LLM.APIKey = "test"
	cfgVal.LLM.Model = "test/extract-model"
	cfgVal.LLM.VisionModel = "test/vision-model"

	cfg := &cfgVal
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithTicketmasterKey sets the Ticketmaster API key on the test config.
func WithTicketmasterKey(key string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Ticketmaster.APIKey = key
	}
}

// WithLLMEndpoint points the LLM client at a test server.
func WithLLMEndpoint(baseURL string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.LLM.BaseURL = baseURL
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Import contains timing and behavior knobs for the import pipeline.
type Import struct {
	// TotalTimeout bounds a whole import in seconds; exceeding it cancels
	// the in-flight strategy and fails the import.
	TotalTimeout int `toml:"total_timeout"`
	// AttemptTimeout bounds a single strategy attempt in seconds; exceeding
	// it moves on to the next strategy.
	AttemptTimeout   int  `toml:"attempt_timeout"`
	GenreEnhancement bool `toml:"genre_enhancement"`
	MaxGenres        int  `toml:"max_genres"`
	ImageEnhancement bool `toml:"image_enhancement"`
}

// ResidentAdvisor contains configuration for the Resident Advisor GraphQL API.
type ResidentAdvisor struct {
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url"`
}

// Ticketmaster contains configuration for the Ticketmaster Discovery API.
type Ticketmaster struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// Render contains configuration for the page rendering backend used by the
// web strategy: a remote extract API or a locally driven headless browser.
type Render struct {
	Backend        string `toml:"backend"`
	Endpoint       string `toml:"endpoint"`
	APIKey         string `toml:"api_key"`
	BrowserURL     string `toml:"browser_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// LLM contains shared LLM connection settings used by the extraction port.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	VisionModel    string `toml:"vision_model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ImageSearch contains configuration for flyer/poster candidate search.
type ImageSearch struct {
	GoogleAPIKey  string `toml:"google_api_key"`
	GoogleCSEID   string `toml:"google_cse_id"`
	MaxCandidates int    `toml:"max_candidates"`
	MinWidth      int    `toml:"min_width"`
	MinHeight     int    `toml:"min_height"`
	MaxImageMiB   int    `toml:"max_image_mib"`
}

// Submission contains configuration for forwarding cached events to
// third-party services. Endpoint and AuthToken configure the generic
// webhook delivery used by live submit runs; service-specific adapters
// plug in through the submit.Sink interface instead.
type Submission struct {
	DefaultService string `toml:"default_service"`
	Endpoint       string `toml:"endpoint"`
	AuthToken      string `toml:"auth_token"`
	RequestTimeout int    `toml:"request_timeout"`
	MaxRetries     int    `toml:"max_retries"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Imports        bool   `toml:"imports"`
	Submissions    bool   `toml:"submissions"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the event importer.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Import: pipeline timeouts and enhancement toggles
//   - ResidentAdvisor / Ticketmaster: structured event APIs
//   - Render: rendered-page fetching for the web strategy
//   - LLM: shared connection settings for the extraction port
//   - ImageSearch: flyer/poster candidate search and rating
//   - Submission: third-party forwarding defaults
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths           Paths           `toml:"paths"`
	Import          Import          `toml:"import"`
	ResidentAdvisor ResidentAdvisor `toml:"resident_advisor"`
	Ticketmaster    Ticketmaster    `toml:"ticketmaster"`
	Render          Render          `toml:"render"`
	LLM             LLM             `toml:"llm"`
	ImageSearch     ImageSearch     `toml:"image_search"`
	Submission      Submission      `toml:"submission"`
	Notifications   Notifications   `toml:"notifications"`
	Logging         Logging         `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/eventimporter/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("eventimporter.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the importer writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "events.db")
}

// SubmitLockPath returns the lock file serializing submission batch runs.
func (c *Config) SubmitLockPath() string {
	return filepath.Join(c.Paths.DataDir, "submit.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains common LLM settings used across features. VisionModel
// falls back to the text model when no dedicated vision model is configured.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	VisionModel    string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// GetLLM returns the shared LLM connection settings for extraction.
func (c *Config) GetLLM() LLMConfig {
	cfg := LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		VisionModel:    strings.TrimSpace(c.LLM.VisionModel),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = cfg.Model
	}
	return cfg
}

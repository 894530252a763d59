package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"eventimporter/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeysAndExpandsPaths(t *testing.T) {
	t.Setenv("TICKETMASTER_API_KEY", "tm-key")
	t.Setenv("ZYTE_API_KEY", "render-key")
	t.Setenv("OPENROUTER_API_KEY", "llm-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "eventimporter")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Ticketmaster.APIKey != "tm-key" {
		t.Fatalf("expected Ticketmaster key from env, got %q", cfg.Ticketmaster.APIKey)
	}
	if cfg.Render.APIKey != "render-key" {
		t.Fatalf("expected render key from env, got %q", cfg.Render.APIKey)
	}
	if cfg.LLM.APIKey != "llm-key" {
		t.Fatalf("expected LLM key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Render.Backend != "remote" {
		t.Fatalf("unexpected render backend: %q", cfg.Render.Backend)
	}
	if cfg.ResidentAdvisor.BaseURL != config.Default().ResidentAdvisor.BaseURL {
		t.Fatalf("unexpected RA base url: %q", cfg.ResidentAdvisor.BaseURL)
	}
	if !cfg.Import.GenreEnhancement {
		t.Fatal("expected genre enhancement enabled by default")
	}
	if cfg.Import.AttemptTimeout > cfg.Import.TotalTimeout {
		t.Fatalf("attempt timeout %d exceeds total %d", cfg.Import.AttemptTimeout, cfg.Import.TotalTimeout)
	}
	if got := cfg.DatabasePath(); got != filepath.Join(wantData, "events.db") {
		t.Fatalf("unexpected database path: %q", got)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "eventimporter.toml")

	body := strings.Join([]string{
		"[paths]",
		`data_dir = "` + filepath.Join(tempDir, "data") + `"`,
		`log_dir = "` + filepath.Join(tempDir, "logs") + `"`,
		"[import]",
		"total_timeout = 300",
		"attempt_timeout = 45",
		"[ticketmaster]",
		`api_key = "file-key"`,
		"[submission]",
		`default_service = "TicketFairy"`,
		`endpoint = "https://hooks.example.com/events"`,
		`auth_token = " secret-token "`,
		"[logging]",
		`format = "json"`,
		`level = "debug"`,
	}, "\n")
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Import.TotalTimeout != 300 || cfg.Import.AttemptTimeout != 45 {
		t.Fatalf("unexpected import timeouts: %+v", cfg.Import)
	}
	if cfg.Ticketmaster.APIKey != "file-key" {
		t.Fatalf("unexpected ticketmaster key: %q", cfg.Ticketmaster.APIKey)
	}
	if cfg.Submission.DefaultService != "TicketFairy" {
		t.Fatalf("unexpected default service: %q", cfg.Submission.DefaultService)
	}
	if cfg.Submission.Endpoint != "https://hooks.example.com/events" {
		t.Fatalf("unexpected submission endpoint: %q", cfg.Submission.Endpoint)
	}
	if cfg.Submission.AuthToken != "secret-token" {
		t.Fatalf("expected trimmed auth token, got %q", cfg.Submission.AuthToken)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "attempt exceeds total",
			body: "[import]\ntotal_timeout = 30\nattempt_timeout = 60\n",
			want: "attempt_timeout",
		},
		{
			name: "bad render backend",
			body: "[render]\nbackend = \"carrier-pigeon\"\n",
			want: "render.backend",
		},
		{
			name: "bad log format",
			body: "[logging]\nformat = \"xml\"\n",
			want: "logging.format",
		},
		{
			name: "cse id without api key",
			body: "[image_search]\ngoogle_cse_id = \"abc\"\n",
			want: "image_search",
		},
		{
			name: "bad submission endpoint",
			body: "[submission]\nendpoint = \"ftp://example.com/hook\"\n",
			want: "submission.endpoint",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("GOOGLE_API_KEY", "")
			t.Setenv("GOOGLE_CSE_ID", "")
			configPath := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(configPath, []byte(tc.body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(configPath)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("TICKETMASTER_API_KEY", "")
	t.Setenv("ZYTE_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GOOGLE_CSE_ID", "")

	configPath := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(configPath); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	cfg, _, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load of sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Render.Endpoint != config.Default().Render.Endpoint {
		t.Fatalf("sample render endpoint drifted: %q", cfg.Render.Endpoint)
	}
	if cfg.LLM.Model != config.Default().LLM.Model {
		t.Fatalf("sample llm model drifted: %q", cfg.LLM.Model)
	}
}

func TestVisionModelFallsBackToTextModel(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Model = "text-model"
	cfg.LLM.VisionModel = ""
	if got := cfg.GetLLM().VisionModel; got != "text-model" {
		t.Fatalf("expected fallback to text model, got %q", got)
	}
	cfg.LLM.VisionModel = "vision-model"
	if got := cfg.GetLLM().VisionModel; got != "vision-model" {
		t.Fatalf("expected vision model, got %q", got)
	}
}

package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"eventimporter/internal/config"
	"eventimporter/internal/events"
	"eventimporter/internal/store"
	"eventimporter/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *store.Store
	configPath string
	baseDir    string
}

// setupCLITestEnv builds an isolated config file and store for one test.
// Options mutate the config before it is written, so tests can point
// endpoints at httptest servers.
func setupCLITestEnv(t *testing.T, opts ...func(*config.Config)) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t)
	cfg.Render.APIKey = "test"
	cfg.Import.GenreEnhancement = false
	cfg.Import.ImageEnhancement = false
	cfg.Submission.DefaultService = "TicketFairy"
	for _, opt := range opts {
		opt(cfg)
	}

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	st := testsupport.MustOpenStore(t, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		store:      st,
		configPath: configPath,
		baseDir:    base,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[import]
total_timeout = %d
attempt_timeout = %d
genre_enhancement = %t
image_enhancement = %t

[ticketmaster]
api_key = %q

[render]
backend = %q
endpoint = %q
api_key = %q

[llm]
api_key = %q
base_url = %q
model = %q

[submission]
default_service = %q
endpoint = %q
auth_token = %q
`,
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Import.TotalTimeout,
		cfg.Import.AttemptTimeout,
		cfg.Import.GenreEnhancement,
		cfg.Import.ImageEnhancement,
		cfg.Ticketmaster.APIKey,
		cfg.Render.Backend,
		cfg.Render.Endpoint,
		cfg.Render.APIKey,
		cfg.LLM.APIKey,
		cfg.LLM.BaseURL,
		cfg.LLM.Model,
		cfg.Submission.DefaultService,
		cfg.Submission.Endpoint,
		cfg.Submission.AuthToken,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func seedEvent(t *testing.T, env *cliTestEnv, title, sourceURL string) *store.Entry {
	t.Helper()
	return testsupport.SaveRecord(t, env.store, &events.Record{
		Title:     title,
		Venue:     "Basement",
		Date:      "2026-06-05",
		Lineup:    []string{"DJ Fixture"},
		SourceURL: sourceURL,
	})
}

func seedSubmission(t *testing.T, env *cliTestEnv, eventID int64, service string, status store.SubmissionStatus) *store.Submission {
	t.Helper()
	ctx := context.Background()
	sub, _, err := env.store.EnsurePendingSubmission(ctx, eventID, service, "batch-seed")
	if err != nil {
		t.Fatalf("seed submission: %v", err)
	}
	switch status {
	case store.SubmissionSuccess:
		err = env.store.MarkSubmissionSuccess(ctx, sub.ID, `{"ok":true}`)
	case store.SubmissionFailed:
		err = env.store.MarkSubmissionFailed(ctx, sub.ID, "service down")
	case store.SubmissionDryRun:
		err = env.store.MarkSubmissionDryRun(ctx, sub.ID)
	case store.SubmissionPending:
	}
	if err != nil {
		t.Fatalf("settle seeded submission: %v", err)
	}
	settled, err := env.store.GetSubmission(ctx, sub.ID)
	if err != nil {
		t.Fatalf("reload seeded submission: %v", err)
	}
	return settled
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

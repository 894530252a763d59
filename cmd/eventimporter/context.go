package main

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"eventimporter/internal/config"
	"eventimporter/internal/importer"
	"eventimporter/internal/images"
	"eventimporter/internal/llm"
	"eventimporter/internal/logging"
	"eventimporter/internal/notifications"
	"eventimporter/internal/progress"
	"eventimporter/internal/render"
	"eventimporter/internal/sources"
	"eventimporter/internal/sources/imagesrc"
	"eventimporter/internal/sources/ra"
	"eventimporter/internal/sources/ticketmaster"
	"eventimporter/internal/sources/web"
	"eventimporter/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolvedPath, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolvedPath
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// configLocation reports where the loaded configuration came from and
// whether a file actually existed there.
func (c *commandContext) configLocation() (string, bool, error) {
	if _, err := c.ensureConfig(); err != nil {
		return "", false, err
	}
	return c.configPath, c.configExists, nil
}

// pipelineLogger returns a logger writing the configured format to the log
// file only. Terminal output stays reserved for command results.
func (c *commandContext) pipelineLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg := c.configValue()
		if cfg == nil || strings.TrimSpace(cfg.Paths.LogDir) == "" {
			c.logger = logging.NewNop()
			return
		}
		logPath := filepath.Join(cfg.Paths.LogDir, "eventimporter.log")
		logger, err := logging.New(logging.Options{
			Level:            cfg.Logging.Level,
			Format:           cfg.Logging.Format,
			OutputPaths:      []string{logPath},
			ErrorOutputPaths: []string{logPath},
		})
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

// notifier builds the ntfy notification service from the loaded config; a
// noop service comes back when no topic is configured.
func (c *commandContext) notifier() notifications.Service {
	return notifications.NewService(c.configValue())
}

func (c *commandContext) withStore(fn func(st *store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

// buildImporter wires the full extraction stack: render backend, LLM
// extraction port, image finder, the strategy registry, and optional genre
// enhancement and notifications.
func (c *commandContext) buildImporter(st *store.Store, hub *progress.Hub) (*importer.Importer, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger := c.pipelineLogger()

	llmClient := llm.NewClient(cfg.GetLLM())
	renderer, err := render.New(cfg.Render, logger)
	if err != nil {
		return nil, err
	}
	finder := images.NewFinder(cfg.ImageSearch, logger)

	var webFinder *images.Finder
	if cfg.Import.ImageEnhancement {
		webFinder = finder
	}
	webSource := web.NewSource(renderer, llmClient, webFinder, logger)
	imageSource := imagesrc.NewSource(finder, llmClient, logger)

	var apis []sources.Source
	if cfg.ResidentAdvisor.Enabled {
		raClient, err := ra.NewClient(cfg.ResidentAdvisor.BaseURL)
		if err != nil {
			return nil, err
		}
		apis = append(apis, ra.NewSource(raClient, logger))
	}
	if strings.TrimSpace(cfg.Ticketmaster.APIKey) != "" {
		tmClient, err := ticketmaster.NewClient(cfg.Ticketmaster.APIKey, cfg.Ticketmaster.BaseURL)
		if err != nil {
			return nil, err
		}
		apis = append(apis, ticketmaster.NewSource(tmClient, logger))
	}

	registry, err := sources.NewRegistry(webSource, imageSource, apis...)
	if err != nil {
		return nil, err
	}

	var genres importer.GenreInferrer
	if cfg.Import.GenreEnhancement {
		genres = llmClient
	}
	notifier := notifications.NewService(cfg)

	return importer.New(cfg.Import, registry, st, hub, genres, notifier, logger), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"eventimporter/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set llm.api_key and render.api_key before importing events.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, exists, err := ctx.configLocation()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}

			fmt.Fprintln(out, "Paths")
			writeDetail(out, "Data dir", cfg.Paths.DataDir)
			writeDetail(out, "Log dir", cfg.Paths.LogDir)
			writeDetail(out, "Database", cfg.DatabasePath())

			fmt.Fprintln(out, "Import")
			writeDetail(out, "Total budget", fmt.Sprintf("%ds", cfg.Import.TotalTimeout))
			writeDetail(out, "Attempt", fmt.Sprintf("%ds", cfg.Import.AttemptTimeout))
			writeDetail(out, "Genres", yesNo(cfg.Import.GenreEnhancement))
			writeDetail(out, "Images", yesNo(cfg.Import.ImageEnhancement))

			fmt.Fprintln(out, "Strategies")
			writeDetail(out, "RA API", yesNo(cfg.ResidentAdvisor.Enabled))
			writeDetail(out, "Ticketmaster", yesNo(strings.TrimSpace(cfg.Ticketmaster.APIKey) != ""))
			writeDetail(out, "Render", fmt.Sprintf("%s (key: %s)", cfg.Render.Backend, yesNo(strings.TrimSpace(cfg.Render.APIKey) != "")))
			writeDetail(out, "LLM model", cfg.LLM.Model)
			writeDetail(out, "Vision model", cfg.GetLLM().VisionModel)
			writeDetail(out, "LLM key", yesNo(strings.TrimSpace(cfg.LLM.APIKey) != ""))
			writeDetail(out, "Image search", yesNo(strings.TrimSpace(cfg.ImageSearch.GoogleAPIKey) != "" && strings.TrimSpace(cfg.ImageSearch.GoogleCSEID) != ""))

			fmt.Fprintln(out, "Submission")
			writeDetail(out, "Service", displayValue(cfg.Submission.DefaultService))
			writeDetail(out, "Endpoint", yesNo(strings.TrimSpace(cfg.Submission.Endpoint) != ""))
			writeDetail(out, "Auth token", yesNo(strings.TrimSpace(cfg.Submission.AuthToken) != ""))

			fmt.Fprintln(out, "Notifications")
			writeDetail(out, "Topic", yesNo(strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""))

			fmt.Fprintln(out, "Logging")
			writeDetail(out, "Level", cfg.Logging.Level)
			writeDetail(out, "Format", cfg.Logging.Format)
			return nil
		},
	}
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Validate ensures the configuration is usable. Credentials for individual
// extraction strategies are optional: strategies without configuration are
// left out of the registry rather than failing config load.
func (c *Config) Validate() error {
	if err := c.validateImport(); err != nil {
		return err
	}
	if err := c.validateSources(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateImageSearch(); err != nil {
		return err
	}
	if err := c.validateSubmission(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateImport() error {
	if err := ensurePositiveMap(map[string]int{
		"import.total_timeout":          c.Import.TotalTimeout,
		"import.attempt_timeout":        c.Import.AttemptTimeout,
		"import.max_genres":             c.Import.MaxGenres,
		"render.timeout_seconds":        c.Render.TimeoutSeconds,
		"llm.timeout_seconds":           c.LLM.TimeoutSeconds,
		"submission.request_timeout":    c.Submission.RequestTimeout,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Import.AttemptTimeout > c.Import.TotalTimeout {
		return errors.New("import.attempt_timeout must not exceed import.total_timeout")
	}
	return nil
}

func (c *Config) validateSources() error {
	if err := validateHTTPURL("resident_advisor.base_url", c.ResidentAdvisor.BaseURL); err != nil {
		return err
	}
	return validateHTTPURL("ticketmaster.base_url", c.Ticketmaster.BaseURL)
}

func (c *Config) validateRender() error {
	switch c.Render.Backend {
	case "remote", "browser":
	default:
		return fmt.Errorf("render.backend must be \"remote\" or \"browser\", got %q", c.Render.Backend)
	}
	return validateHTTPURL("render.endpoint", c.Render.Endpoint)
}

func (c *Config) validateImageSearch() error {
	if c.ImageSearch.MaxCandidates > 10 {
		return errors.New("image_search.max_candidates must be 10 or fewer (search API page size)")
	}
	if (c.ImageSearch.GoogleAPIKey == "") != (c.ImageSearch.GoogleCSEID == "") {
		return errors.New("image_search.google_api_key and image_search.google_cse_id must be set together")
	}
	return nil
}

func (c *Config) validateSubmission() error {
	if c.Submission.MaxRetries > 10 {
		return errors.New("submission.max_retries must be 10 or fewer")
	}
	if c.Submission.Endpoint != "" {
		return validateHTTPURL("submission.endpoint", c.Submission.Endpoint)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}

func validateHTTPURL(field, value string) error {
	parsed, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", field, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", field, value)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

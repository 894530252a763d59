package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeImport()
	c.normalizeSources()
	c.normalizeRender()
	c.normalizeLLM()
	c.normalizeImageSearch()
	c.normalizeSubmission()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeImport() {
	if c.Import.TotalTimeout <= 0 {
		c.Import.TotalTimeout = defaultTotalTimeout
	}
	if c.Import.AttemptTimeout <= 0 {
		c.Import.AttemptTimeout = defaultAttemptTimeout
	}
	if c.Import.AttemptTimeout > c.Import.TotalTimeout {
		c.Import.AttemptTimeout = c.Import.TotalTimeout
	}
	if c.Import.MaxGenres <= 0 {
		c.Import.MaxGenres = defaultMaxGenres
	}
}

func (c *Config) normalizeSources() {
	c.ResidentAdvisor.BaseURL = strings.TrimSpace(c.ResidentAdvisor.BaseURL)
	if c.ResidentAdvisor.BaseURL == "" {
		c.ResidentAdvisor.BaseURL = defaultRABaseURL
	}

	if c.Ticketmaster.APIKey == "" {
		if value, ok := os.LookupEnv("TICKETMASTER_API_KEY"); ok {
			c.Ticketmaster.APIKey = value
		}
	}
	c.Ticketmaster.APIKey = strings.TrimSpace(c.Ticketmaster.APIKey)
	c.Ticketmaster.BaseURL = strings.TrimSpace(c.Ticketmaster.BaseURL)
	if c.Ticketmaster.BaseURL == "" {
		c.Ticketmaster.BaseURL = defaultTicketmasterBaseURL
	}
}

func (c *Config) normalizeRender() {
	c.Render.Backend = strings.ToLower(strings.TrimSpace(c.Render.Backend))
	if c.Render.Backend == "" {
		c.Render.Backend = defaultRenderBackend
	}
	if c.Render.APIKey == "" {
		if value, ok := os.LookupEnv("ZYTE_API_KEY"); ok {
			c.Render.APIKey = value
		}
	}
	c.Render.APIKey = strings.TrimSpace(c.Render.APIKey)
	c.Render.Endpoint = strings.TrimSpace(c.Render.Endpoint)
	if c.Render.Endpoint == "" {
		c.Render.Endpoint = defaultRenderEndpoint
	}
	c.Render.BrowserURL = strings.TrimSpace(c.Render.BrowserURL)
	if c.Render.TimeoutSeconds <= 0 {
		c.Render.TimeoutSeconds = defaultRenderTimeoutSeconds
	}
}

func (c *Config) normalizeLLM() {
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = value
		}
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.VisionModel = strings.TrimSpace(c.LLM.VisionModel)
	if strings.TrimSpace(c.LLM.Title) == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeImageSearch() {
	if c.ImageSearch.GoogleAPIKey == "" {
		if value, ok := os.LookupEnv("GOOGLE_API_KEY"); ok {
			c.ImageSearch.GoogleAPIKey = value
		}
	}
	if c.ImageSearch.GoogleCSEID == "" {
		if value, ok := os.LookupEnv("GOOGLE_CSE_ID"); ok {
			c.ImageSearch.GoogleCSEID = value
		}
	}
	c.ImageSearch.GoogleAPIKey = strings.TrimSpace(c.ImageSearch.GoogleAPIKey)
	c.ImageSearch.GoogleCSEID = strings.TrimSpace(c.ImageSearch.GoogleCSEID)
	if c.ImageSearch.MaxCandidates <= 0 {
		c.ImageSearch.MaxCandidates = defaultImageMaxCandidates
	}
	if c.ImageSearch.MinWidth <= 0 {
		c.ImageSearch.MinWidth = defaultImageMinWidth
	}
	if c.ImageSearch.MinHeight <= 0 {
		c.ImageSearch.MinHeight = defaultImageMinHeight
	}
	if c.ImageSearch.MaxImageMiB <= 0 {
		c.ImageSearch.MaxImageMiB = defaultImageMaxMiB
	}
}

func (c *Config) normalizeSubmission() {
	c.Submission.DefaultService = strings.TrimSpace(c.Submission.DefaultService)
	c.Submission.Endpoint = strings.TrimSpace(c.Submission.Endpoint)
	c.Submission.AuthToken = strings.TrimSpace(c.Submission.AuthToken)
	if c.Submission.RequestTimeout <= 0 {
		c.Submission.RequestTimeout = defaultSubmitRequestTimeout
	}
	if c.Submission.MaxRetries < 0 {
		c.Submission.MaxRetries = defaultSubmitMaxRetries
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

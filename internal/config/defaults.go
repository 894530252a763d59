package config

const (
	defaultDataDir        = "~/.local/share/eventimporter"
	defaultLogDir         = "~/.local/share/eventimporter/logs"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultTotalTimeout   = 120
	defaultAttemptTimeout = 60
	defaultMaxGenres      = 4

	defaultRABaseURL           = "https://ra.co/graphql"
	defaultTicketmasterBaseURL = "https://app.ticketmaster.com/discovery/v2"

	defaultRenderBackend        = "remote"
	defaultRenderEndpoint       = "https://api.zyte.com/v1/extract"
	defaultRenderTimeoutSeconds = 90

	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel          = "google/gemini-3-flash-preview"
	defaultLLMTitle          = "Event Importer"
	defaultLLMTimeoutSeconds = 60

	defaultImageMaxCandidates = 5
	defaultImageMinWidth      = 500
	defaultImageMinHeight     = 500
	defaultImageMaxMiB        = 2

	defaultSubmitRequestTimeout = 30
	defaultSubmitMaxRetries     = 3

	defaultNotifyRequestTimeout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Import: Import{
			TotalTimeout:     defaultTotalTimeout,
			AttemptTimeout:   defaultAttemptTimeout,
			GenreEnhancement: true,
			MaxGenres:        defaultMaxGenres,
			ImageEnhancement: true,
		},
		ResidentAdvisor: ResidentAdvisor{
			Enabled: true,
			BaseURL: defaultRABaseURL,
		},
		Ticketmaster: Ticketmaster{
			BaseURL: defaultTicketmasterBaseURL,
		},
		Render: Render{
			Backend:        defaultRenderBackend,
			Endpoint:       defaultRenderEndpoint,
			TimeoutSeconds: defaultRenderTimeoutSeconds,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		ImageSearch: ImageSearch{
			MaxCandidates: defaultImageMaxCandidates,
			MinWidth:      defaultImageMinWidth,
			MinHeight:     defaultImageMinHeight,
			MaxImageMiB:   defaultImageMaxMiB,
		},
		Submission: Submission{
			RequestTimeout: defaultSubmitRequestTimeout,
			MaxRetries:     defaultSubmitMaxRetries,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Imports:        true,
			Submissions:    true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

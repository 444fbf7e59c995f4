package config

const (
	defaultDataDir      = "~/.local/share/callsense"
	defaultLogDir       = "~/.local/share/callsense/logs"
	defaultDocumentsDir = "~/.local/share/callsense/documents"

	defaultBaseURL           = "https://www.screener.in"
	defaultUserAgent         = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	defaultIndexTimeout      = 30
	defaultFetchTimeout      = 60
	defaultStartYear         = 2015
	defaultEndYear           = 2026
	defaultMaxLinks          = 300
	defaultMinWords          = 100
	defaultRequestsPerSecond = 1.0

	defaultScoringModel   = "ProsusAI/finbert"
	defaultScoringTimeout = 30
	defaultMaxTokens      = 450
	defaultWeights        = "canonical"

	defaultFlushEvery = 10

	defaultLogFormat = "text"
	defaultLogLevel  = "info"

	defaultAPIBind = "127.0.0.1:7643"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:      defaultDataDir,
			LogDir:       defaultLogDir,
			DocumentsDir: defaultDocumentsDir,
		},
		Source: Source{
			BaseURL:           defaultBaseURL,
			UserAgent:         defaultUserAgent,
			IndexTimeout:      defaultIndexTimeout,
			FetchTimeout:      defaultFetchTimeout,
			StartYear:         defaultStartYear,
			EndYear:           defaultEndYear,
			MaxLinks:          defaultMaxLinks,
			MinWords:          defaultMinWords,
			RequestsPerSecond: defaultRequestsPerSecond,
		},
		Scoring: Scoring{
			Model:          defaultScoringModel,
			TimeoutSeconds: defaultScoringTimeout,
			MaxTokens:      defaultMaxTokens,
			Weights:        defaultWeights,
		},
		Workflow: Workflow{
			FlushEvery: defaultFlushEvery,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		API: API{
			Bind: defaultAPIBind,
		},
	}
}

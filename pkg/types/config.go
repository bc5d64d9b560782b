package types

import "time"

// Compiled-in defaults. The backend contract treats these as client policy.
const (
	DefaultBaseURL   = "http://localhost:8001"
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "mosaic/0.1"
	DefaultLimit     = 12
	DefaultThreshold = 0.3
	DefaultStoreDir  = ".mosaic"
)

// HTTPConfig holds shared HTTP settings for every backend call.
type HTTPConfig struct {
	// BaseURL is the backend origin, e.g. "http://localhost:8001".
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Timeout bounds non-streaming requests. The research stream is bounded
	// only by its context.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is sent with every request.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// APIToken, when set, is sent as a bearer token.
	APIToken string `json:"api_token,omitempty" yaml:"api_token,omitempty"`
}

// SearchConfig holds the search parameters and filters.
type SearchConfig struct {
	// Limit is the number of results requested (default 12).
	Limit int `json:"limit" yaml:"limit"`

	// Threshold is the minimum similarity the backend should return (default 0.3).
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// AIOnly restricts results to LLM-verified posts.
	AIOnly bool `json:"ai_only" yaml:"ai_only"`

	// SGOnly restricts results and trends to Singapore-based posts.
	SGOnly bool `json:"sg_only" yaml:"sg_only"`
}

// LogConfig selects slog level and handler.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// StoreConfig locates the session journal.
type StoreConfig struct {
	// Dir holds sessions.db. Empty means .mosaic in the working directory.
	Dir string `json:"dir" yaml:"dir"`
}

// ClientConfig groups all client settings.
type ClientConfig struct {
	HTTP   HTTPConfig   `json:"http" yaml:"http"`
	Search SearchConfig `json:"search" yaml:"search"`
	Log    LogConfig    `json:"log" yaml:"log"`
	Store  StoreConfig  `json:"store" yaml:"store"`

	// MetricsFile, when set, receives a Prometheus textfile dump on exit.
	MetricsFile string `json:"metrics_file,omitempty" yaml:"metrics_file,omitempty"`

	// RenderMarkdown renders the final synthesis through the markdown
	// formatter instead of showing raw text.
	RenderMarkdown bool `json:"render_markdown" yaml:"render_markdown"`
}

// WithDefaults fills zero fields with the compiled-in defaults.
func (c ClientConfig) WithDefaults() ClientConfig {
	if c.HTTP.BaseURL == "" {
		c.HTTP.BaseURL = DefaultBaseURL
	}
	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = DefaultTimeout
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = DefaultUserAgent
	}
	if c.Search.Limit <= 0 {
		c.Search.Limit = DefaultLimit
	}
	if c.Search.Threshold <= 0 {
		c.Search.Threshold = DefaultThreshold
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	return c
}

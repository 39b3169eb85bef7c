package config

import "time"

// PaginationMode selects how a leading page=N query parameter is collapsed during normalization
type PaginationMode string

const (
	PaginationPreserve PaginationMode = "preserve" // keep parameters that follow page=N&
	PaginationDrop     PaginationMode = "drop"     // drop the whole query
)

// Report formats accepted in report_formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatXLSX = "xlsx"
)

// AppConfig holds the application configuration for a single-domain crawl
type AppConfig struct {
	BaseURL            string           `yaml:"base_url"`
	DomainSuffix       string           `yaml:"domain_suffix"`
	UserAgent          string           `yaml:"user_agent"`
	AcceptLanguage     string           `yaml:"accept_language,omitempty"`
	PaginationMode     PaginationMode   `yaml:"pagination_mode,omitempty"`
	NumWorkers         int              `yaml:"num_workers"`
	MaxRetries         int              `yaml:"max_retries,omitempty"`
	InitialRetryDelay  time.Duration    `yaml:"initial_retry_delay,omitempty"`
	MaxRetryDelay      time.Duration    `yaml:"max_retry_delay,omitempty"`
	MaxBodyBytes       int64            `yaml:"max_body_bytes,omitempty"`
	GlobalCrawlTimeout time.Duration    `yaml:"global_crawl_timeout,omitempty"`
	HTTPClientSettings HTTPClientConfig `yaml:"http_client_settings,omitempty"`
	StateDir           string           `yaml:"state_dir"`
	PersistState       bool             `yaml:"persist_state,omitempty"`
	CheckpointInterval int              `yaml:"checkpoint_interval,omitempty"` // Results between frontier checkpoints
	DBGCInterval       time.Duration    `yaml:"db_gc_interval,omitempty"`
	OutputDir          string           `yaml:"output_dir"`
	ReportBaseName     string           `yaml:"report_basename,omitempty"`
	ReportFormats      []string         `yaml:"report_formats,omitempty"`
	MetricsAddr        string           `yaml:"metrics_addr,omitempty"` // Empty disables the /metrics endpoint
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"`
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"` // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`
}

// HasFormat reports whether the given report format is enabled
func (c *AppConfig) HasFormat(format string) bool {
	for _, f := range c.ReportFormats {
		if f == format {
			return true
		}
	}
	return false
}

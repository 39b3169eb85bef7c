package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Sriram-PR/link-auditor/pkg/utils"
)

const (
	DefaultUserAgent      = "link-auditor/1.0"
	DefaultAcceptLanguage = "en-US,en;q=0.9"
	DefaultMaxBodyBytes   = 10 << 20
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// Required: BaseURL
	if strings.TrimSpace(c.BaseURL) == "" {
		return nil, fmt.Errorf("%w: base_url is required", utils.ErrConfigValidation)
	}
	base, parseErr := url.Parse(c.BaseURL)
	if parseErr != nil {
		return nil, fmt.Errorf("%w: base_url %q: %w", utils.ErrConfigValidation, c.BaseURL, parseErr)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Hostname() == "" {
		return nil, fmt.Errorf("%w: base_url %q must be an absolute http(s) URL", utils.ErrConfigValidation, c.BaseURL)
	}

	// DomainSuffix
	c.DomainSuffix = strings.ToLower(strings.TrimSpace(c.DomainSuffix))
	if c.DomainSuffix == "" {
		c.DomainSuffix = strings.ToLower(base.Hostname())
		warnings = append(warnings, fmt.Sprintf("domain_suffix is empty, defaulting to base_url host '%s'", c.DomainSuffix))
	}
	if !strings.HasSuffix(strings.ToLower(base.Hostname()), c.DomainSuffix) {
		return warnings, fmt.Errorf("%w: base_url host %q is outside domain_suffix %q",
			utils.ErrConfigValidation, base.Hostname(), c.DomainSuffix)
	}

	if c.UserAgent == "" {
		warnings = append(warnings, fmt.Sprintf("user_agent is empty, defaulting to '%s'", DefaultUserAgent))
		c.UserAgent = DefaultUserAgent
	}
	if c.AcceptLanguage == "" {
		c.AcceptLanguage = DefaultAcceptLanguage
	}

	// PaginationMode
	switch c.PaginationMode {
	case "":
		c.PaginationMode = PaginationPreserve
	case PaginationPreserve, PaginationDrop:
	default:
		return warnings, fmt.Errorf("%w: pagination_mode %q must be '%s' or '%s'",
			utils.ErrConfigValidation, c.PaginationMode, PaginationPreserve, PaginationDrop)
	}

	// NumWorkers
	if c.NumWorkers <= 0 {
		warnings = append(warnings, "num_workers should be > 0, defaulting to 1 (sequential)")
		c.NumWorkers = 1
	}

	// MaxRetries
	if c.MaxRetries < 0 {
		warnings = append(warnings, "max_retries cannot be negative, setting to 0")
		c.MaxRetries = 0
	}

	// Retry delays (only if retries enabled)
	if c.MaxRetries > 0 {
		if c.InitialRetryDelay <= 0 {
			c.InitialRetryDelay = 1 * time.Second
		}
		if c.MaxRetryDelay <= 0 {
			c.MaxRetryDelay = 30 * time.Second
		}
	}

	// InitialRetryDelay > MaxRetryDelay check
	if c.InitialRetryDelay > c.MaxRetryDelay && c.MaxRetryDelay > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"initial_retry_delay (%v) > max_retry_delay (%v), using max_retry_delay for initial",
			c.InitialRetryDelay, c.MaxRetryDelay))
		c.InitialRetryDelay = c.MaxRetryDelay
	}

	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}

	// GlobalCrawlTimeout
	if c.GlobalCrawlTimeout < 0 {
		warnings = append(warnings, "global_crawl_timeout cannot be negative, disabling timeout")
		c.GlobalCrawlTimeout = 0
	}

	c.validateHTTPClientSettings()

	// StateDir
	if c.StateDir == "" {
		if c.PersistState {
			warnings = append(warnings, "state_dir is empty, defaulting to './crawler_state'")
		}
		c.StateDir = "./crawler_state"
	}
	if c.CheckpointInterval <= 0 {
		c.CheckpointInterval = 50
	}
	if c.DBGCInterval <= 0 {
		c.DBGCInterval = 10 * time.Minute
	}

	// Output
	if c.OutputDir == "" {
		warnings = append(warnings, "output_dir is empty, defaulting to './results'")
		c.OutputDir = "./results"
	}
	if c.ReportBaseName == "" {
		c.ReportBaseName = "results"
	} else {
		c.ReportBaseName = utils.SanitizeFilename(c.ReportBaseName)
	}
	if err := c.validateReportFormats(); err != nil {
		return warnings, err
	}

	return warnings, nil
}

func (c *AppConfig) validateReportFormats() error {
	if len(c.ReportFormats) == 0 {
		c.ReportFormats = []string{FormatJSON}
		return nil
	}
	seen := make(map[string]bool, len(c.ReportFormats))
	formats := make([]string, 0, len(c.ReportFormats))
	for _, f := range c.ReportFormats {
		f = strings.ToLower(strings.TrimSpace(f))
		switch f {
		case FormatJSON, FormatYAML, FormatXLSX:
		default:
			return fmt.Errorf("%w: unknown report format %q (want json, yaml or xlsx)", utils.ErrConfigValidation, f)
		}
		if !seen[f] {
			seen[f] = true
			formats = append(formats, f)
		}
	}
	c.ReportFormats = formats
	return nil
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.Timeout <= 0 {
		h.Timeout = 45 * time.Second
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 2
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}

package utils

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrInvalidURL       = errors.New("invalid URL")                     // Reference could not be resolved to an absolute URL
	ErrFetch            = errors.New("fetch failed")                    // Network-level failure, no HTTP response available
	ErrRequestCreation  = errors.New("failed to create HTTP request")   // Request could not be built
	ErrResponseBodyRead = errors.New("failed to read response body")    // Body read failed mid-stream
	ErrParsing          = errors.New("parsing error")                   // Wraps YAML/JSON decode errors
	ErrFilesystem       = errors.New("filesystem error")                // Wraps os errors
	ErrDatabase         = errors.New("database error")                  // Wraps badger errors
	ErrConfigValidation = errors.New("configuration validation error")
	ErrJobNotFound      = errors.New("job not found")
)

// CategorizeError maps an error to a predefined category string for logging/metrics.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	// Context errors win over everything else: a cancelled fetch is not a site problem
	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrFetch) {
		return "System_ContextDeadlineExceeded"
	}

	switch {
	case errors.Is(err, ErrResponseBodyRead):
		return "Fetch_BodyRead"
	case errors.Is(err, ErrFetch):
		return categorizeNetworkError(err)
	case errors.Is(err, ErrRequestCreation):
		return "Internal_RequestCreation"
	case errors.Is(err, ErrInvalidURL):
		return "URL_Invalid"
	case errors.Is(err, ErrParsing):
		errMsg := err.Error()
		if strings.Contains(errMsg, "YAML") || strings.Contains(errMsg, "yaml") {
			return "Content_ParsingYAML"
		}
		if strings.Contains(errMsg, "JSON") || strings.Contains(errMsg, "json") {
			return "Content_ParsingJSON"
		}
		return "Content_ParsingOther"
	case errors.Is(err, ErrFilesystem):
		if errors.Is(err, os.ErrPermission) {
			return "Filesystem_Permission"
		}
		if errors.Is(err, os.ErrNotExist) {
			return "Filesystem_NotExist"
		}
		if errors.Is(err, os.ErrExist) {
			return "Filesystem_Exist"
		}
		return "Filesystem_Other"
	case errors.Is(err, ErrDatabase):
		return "Database_Other"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	case errors.Is(err, ErrJobNotFound):
		return "Job_NotFound"
	}

	// Unwrapped network errors straight from net/http
	return categorizeNetworkError(err)
}

// categorizeNetworkError inspects the underlying transport error of a failed fetch.
func categorizeNetworkError(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "Fetch_DNSLookup"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Fetch_Timeout"
	}

	lowerErrMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lowerErrMsg, "timeout"), strings.Contains(lowerErrMsg, "deadline exceeded"):
		return "Fetch_Timeout"
	case strings.Contains(lowerErrMsg, "connection refused"):
		return "Fetch_ConnectionRefused"
	case strings.Contains(lowerErrMsg, "no such host"):
		return "Fetch_DNSLookup"
	case strings.Contains(lowerErrMsg, "tls"), strings.Contains(lowerErrMsg, "certificate"):
		return "Fetch_TLS"
	case strings.Contains(lowerErrMsg, "reset by peer"):
		return "Fetch_ConnectionReset"
	case strings.Contains(lowerErrMsg, "broken pipe"):
		return "Fetch_BrokenPipe"
	case strings.Contains(lowerErrMsg, "eof"):
		return "Fetch_UnexpectedEOF"
	}

	if errors.Is(err, ErrFetch) {
		return "Fetch_Other"
	}
	return "Unknown"
}

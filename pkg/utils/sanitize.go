package utils

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	invalidFilenameChars   = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)
	consecutiveUnderscores = regexp.MustCompile(`_+`)
)

const maxFilenameLength = 100

// SanitizeFilename cleans a string to be safe for use as a filename component.
// Used for report basenames and per-host output directories.
func SanitizeFilename(name string) string {
	sanitized := invalidFilenameChars.ReplaceAllString(name, "_")
	sanitized = consecutiveUnderscores.ReplaceAllString(sanitized, "_")
	sanitized = strings.Trim(sanitized, "_ .")

	if len(sanitized) > maxFilenameLength {
		sanitized = strings.Trim(sanitized[:maxFilenameLength], "_ .")
	}
	if sanitized == "" {
		sanitized = "untitled"
	}
	return sanitized
}

// HostSlug returns a filename-safe form of the hostname in rawURL,
// falling back to sanitizing the whole string when it does not parse.
func HostSlug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return SanitizeFilename(rawURL)
	}
	return SanitizeFilename(strings.ToLower(u.Hostname()))
}

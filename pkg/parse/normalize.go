package parse

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/Sriram-PR/link-auditor/pkg/config"
	"github.com/Sriram-PR/link-auditor/pkg/utils"
)

// leadingPageParam matches a page=N parameter at the start of a raw query, with its trailing separator
var leadingPageParam = regexp.MustCompile(`^page=\d+(?:&|$)`)

// urlWhitespace is stripped from hrefs before parsing, the way browsers clean attribute values
var urlWhitespace = strings.NewReplacer("\t", "", "\n", "", "\r", "")

// Normalize resolves href against baseURL and returns the canonical string used
// for visited/queue comparisons.
// It lowercases the scheme and host, removes default ports, turns an empty path into "/",
// strips the fragment, and collapses a leading page=N query parameter into a bare trailing "?"
// on a slash-terminated path. Normalizing an already normalized URL returns it unchanged.
func Normalize(href, baseURL string, mode config.PaginationMode) (string, error) {
	resolved, err := resolve(href, baseURL)
	if err != nil {
		return "", err
	}

	resolved.Fragment = ""
	resolved.RawFragment = ""
	collapsePagination(resolved, mode)

	return resolved.String(), nil
}

// Resolve turns ref into an absolute URL relative to baseURL in canonical host form.
// Unlike Normalize it keeps the fragment and the query untouched; it is used for Location headers.
func Resolve(ref, baseURL string) (string, error) {
	resolved, err := resolve(ref, baseURL)
	if err != nil {
		return "", err
	}
	return resolved.String(), nil
}

func resolve(ref, baseURL string) (*url.URL, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("%w: base %q: %w", utils.ErrInvalidURL, baseURL, err)
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("%w: base %q is not absolute", utils.ErrInvalidURL, baseURL)
	}

	refURL, err := url.Parse(urlWhitespace.Replace(strings.TrimSpace(ref)))
	if err != nil {
		return nil, fmt.Errorf("%w: reference %q: %w", utils.ErrInvalidURL, ref, err)
	}

	resolved := base.ResolveReference(refURL)
	canonicalize(resolved)
	return resolved, nil
}

// canonicalize applies the host-level rules a browser URL parser applies on serialization
func canonicalize(u *url.URL) {
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	// Remove default ports
	if host, port, err := net.SplitHostPort(u.Host); err == nil {
		if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
			if strings.Contains(host, ":") {
				host = "[" + host + "]" // IPv6 literal
			}
			u.Host = host
		}
	}

	if u.Path == "" && u.Opaque == "" && u.Host != "" {
		u.Path = "/"
	}
}

func collapsePagination(u *url.URL, mode config.PaginationMode) {
	if !leadingPageParam.MatchString(u.RawQuery) {
		return
	}

	rest := u.RawQuery
	for {
		loc := leadingPageParam.FindStringIndex(rest)
		if loc == nil {
			break
		}
		rest = rest[loc[1]:]
	}
	if mode == config.PaginationDrop {
		rest = ""
	}

	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
		if u.RawPath != "" {
			u.RawPath += "/"
		}
	}
	u.RawQuery = rest
	u.ForceQuery = rest == ""
}

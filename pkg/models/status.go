package models

// ResponseKind is the engine's classification of a fetched response
type ResponseKind string

const (
	ResponseKindUnset    ResponseKind = ""         // Zero value = not classified
	ResponseKindRedirect ResponseKind = "redirect" // 3xx with a usable Location header
	ResponseKindHTML     ResponseKind = "html"     // 200 text/html page under the base URL, links are followed
	ResponseKindOther    ResponseKind = "other"    // Anything else, recorded only
)

// String implements fmt.Stringer for logging
func (k ResponseKind) String() string {
	if k == "" {
		return "unset"
	}
	return string(k)
}

// IsValid returns true if the kind is a known classification
func (k ResponseKind) IsValid() bool {
	switch k {
	case ResponseKindRedirect, ResponseKindHTML, ResponseKindOther:
		return true
	}
	return false
}

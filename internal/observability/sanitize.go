package observability

import (
	"strings"
	"unicode"
)

// sanitizeString strips control characters and truncates to limit runes so
// request data cannot forge log lines.
func sanitizeString(value string, limit int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
	if limit > 0 {
		if runes := []rune(cleaned); len(runes) > limit {
			cleaned = string(runes[:limit])
		}
	}
	return cleaned
}

// SanitizeRoute cleans a route pattern for logging.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return sanitizeString(route, 180)
}

// SanitizeUserID limits identifiers written to logs.
func SanitizeUserID(uid string) string {
	return sanitizeString(uid, 64)
}

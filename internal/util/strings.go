package util

import (
	"strings"
	"unicode/utf8"
)

// truncationMarker is appended to bodies that were cut by TruncateBody.
const truncationMarker = "...(truncated)"

// SafeTruncate safely truncates a string to maxLen bytes without panicking.
// Returns the original string if it's shorter than maxLen, otherwise returns
// the longest prefix of at most maxLen bytes that does not split a UTF-8
// encoded character.
//
// If maxLen is negative, it's treated as 0 and returns an empty string.
//
// Example:
//
//	SafeTruncate("very-long-token-abc123", 8) // Returns: "very-lon"
//	SafeTruncate("short", 10)                  // Returns: "short"
//	SafeTruncate("test", -1)                   // Returns: ""
func SafeTruncate(s string, maxLen int) string {
	if maxLen < 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// TruncateBody converts an upstream response body into a printable string of at
// most maxLen bytes (plus a marker when something was cut). Surrounding whitespace
// is trimmed so error messages stay on one line where possible.
func TruncateBody(body []byte, maxLen int) string {
	s := strings.TrimSpace(string(body))
	if maxLen < 0 || len(s) <= maxLen {
		return s
	}
	return SafeTruncate(s, maxLen) + truncationMarker
}

// FirstNonEmpty returns the first value that is not empty after trimming whitespace.
// Configuration layers are passed in precedence order.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

package validation

import (
	"regexp"
	"strings"
)

var cityCleanRegex = regexp.MustCompile(`[^a-z0-9]`)

// IsNotEmpty checks if string is not empty after trimming
func IsNotEmpty(s string) bool {
	return strings.TrimSpace(s) != ""
}

// TrimAndValidate trims string and validates it's not empty
func TrimAndValidate(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	return trimmed, trimmed != ""
}

// NormalizeCity lowercases, trims and strips every character outside [a-z0-9].
// The result may be empty for all-punctuation input.
func NormalizeCity(city string) string {
	return cityCleanRegex.ReplaceAllString(strings.ToLower(strings.TrimSpace(city)), "")
}

// NormalizeDescriptor lowercases and trims a condition descriptor without
// stripping characters.
func NormalizeDescriptor(desc string) string {
	return strings.ToLower(strings.TrimSpace(desc))
}

// IsValidConsent validates a privacy consent decision value
func IsValidConsent(decision string) bool {
	return decision == "granted" || decision == "denied"
}

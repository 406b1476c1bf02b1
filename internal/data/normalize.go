package data

import (
	"regexp"
	"strings"
)

var countryCodeRegex = regexp.MustCompile(`^[A-Z]{2,3}:\s*`)

// NormalizeChannelName standardizes a channel name for search matching by
// removing common country prefixes, separators and casing differences.
func NormalizeChannelName(name string) string {
	normalized := strings.TrimSpace(name)
	normalized = countryCodeRegex.ReplaceAllString(normalized, "")
	normalized = strings.ToLower(normalized)

	replacements := []struct {
		old string
		new string
	}{
		{" ", ""},
		{"-", ""},
		{"_", ""},
		{".", ""},
		{"&", "and"},
		{"+", "plus"},
	}

	for _, r := range replacements {
		normalized = strings.ReplaceAll(normalized, r.old, r.new)
	}

	return normalized
}

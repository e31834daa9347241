package sitegen

import (
	"strings"
	"unicode"
)

// NormalizePackageName normalizes a variant name for use as a simple index
// package name, following PEP 503: lowercase, runs of non-alphanumeric
// characters collapse to a single hyphen, no leading or trailing separators.
func NormalizePackageName(name string) string {
	if name == "" {
		return ""
	}

	var result strings.Builder
	prevWasSeparator := false
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(unicode.ToLower(r))
			prevWasSeparator = false
		} else if !prevWasSeparator {
			result.WriteRune('-')
			prevWasSeparator = true
		}
	}

	return strings.Trim(result.String(), "-_")
}

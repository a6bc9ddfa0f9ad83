// Package strings provides string-slice cleanup used on request inputs.
package strings

import (
	"strings"
)

// DedupeAndTrim removes empty and duplicate entries after trimming
// whitespace. Order is preserved.
//
//	DedupeAndTrim([]string{"  foo ", "bar", "foo", "", "  "})
//	// []string{"foo", "bar"}
func DedupeAndTrim(values []string) []string {
	return dedupe(values, func(s string) string { return s })
}

// DedupeAndTrimUpper is DedupeAndTrim with upper-casing, for code lists
// such as jurisdictions ("se", "SE " and "Se" collapse to "SE").
func DedupeAndTrimUpper(values []string) []string {
	return dedupe(values, strings.ToUpper)
}

// DedupeAndTrimLower is DedupeAndTrim with lower-casing, for category names.
func DedupeAndTrimLower(values []string) []string {
	return dedupe(values, strings.ToLower)
}

func dedupe(values []string, fold func(string) string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		cleaned := fold(strings.TrimSpace(v))
		if cleaned == "" {
			continue
		}
		if _, ok := seen[cleaned]; ok {
			continue
		}
		seen[cleaned] = struct{}{}
		result = append(result, cleaned)
	}
	return result
}

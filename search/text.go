package search

import "strings"

// containsAnyKeyword reports whether text contains at least one keyword as a
// case-insensitive substring. Blank keywords are skipped; with no usable
// keywords nothing matches, so an empty keyword list filters everything out.
func containsAnyKeyword(text string, keywords []string) bool {
	lowered := strings.ToLower(text)
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// Package util holds small helpers shared across solarboat's packages:
// string collections and the bounded worker pool.
package util

import "strings"

// ListContainsElement returns true if the given list contains the given
// element.
func ListContainsElement(list []string, element string) bool {
	for _, item := range list {
		if item == element {
			return true
		}
	}

	return false
}

// RemoveDuplicatesFromList removes duplicate elements from the list,
// keeping the first occurrence of each value and preserving order.
func RemoveDuplicatesFromList(list []string) []string {
	out := []string{}
	present := make(map[string]bool)

	for _, item := range list {
		if !present[item] {
			present[item] = true
			out = append(out, item)
		}
	}

	return out
}

// SplitCSV splits a comma-separated CLI flag value into a trimmed,
// non-empty slice of strings. An empty input yields nil, matching the
// "flag not provided" sentinel the Config Store's CLIOverrides rely on.
func SplitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

// Package utils holds small helpers shared across packages: logging
// construction, vector math, and text trimming.
package utils

// Truncate cuts s to at most maxLen bytes and appends "..." when it was
// cut. A non-positive maxLen disables truncation.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

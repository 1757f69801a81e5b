// Package util holds text helpers for terminal output.
package util

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Ellipsis marks truncated text.
const Ellipsis = "..."

// TruncateString shortens s to at most maxLen runes, ending with Ellipsis
// when anything was cut. It does not understand escape codes; use
// TruncateANSI for styled text.
func TruncateString(s string, maxLen int) string {
	if maxLen <= len(Ellipsis) {
		return Ellipsis
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-len(Ellipsis)]) + Ellipsis
}

// TruncateANSI shortens s to at most maxWidth terminal columns, keeping
// escape sequences intact.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= len(Ellipsis) {
		return Ellipsis
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth, Ellipsis)
}

// FirstLine returns the first non-blank line of s, with an Ellipsis appended
// when more lines follow.
func FirstLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	first := strings.TrimRight(lines[0], "\r \t")
	if len(lines) > 1 {
		return first + " " + Ellipsis
	}
	return first
}

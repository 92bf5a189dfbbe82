package util

import "github.com/charmbracelet/x/ansi"

// MakeHyperlink wraps displayText in an OSC 8 hyperlink to url. Terminals
// without support show the text alone.
func MakeHyperlink(url, displayText string) string {
	return ansi.SetHyperlink(url) + displayText + ansi.ResetHyperlink()
}

// TruncateText cuts s to maxWidth terminal cells, ending in "…" when
// anything was dropped. Wide runes count as two cells.
func TruncateText(s string, maxWidth int) string {
	if maxWidth <= 0 || ansi.StringWidth(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth, "…")
}

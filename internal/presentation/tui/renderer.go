package tui

import (
	"github.com/charmbracelet/glamour"
)

// DefaultWordWrap is used when the terminal width is unknown.
const DefaultWordWrap = 100

// NewRenderer returns a function that renders markdown using glamour.
// Generated queries are rendered as code blocks, so wrapping stays wide.
func NewRenderer(width int) func(string) (string, error) {
	if width <= 0 {
		width = DefaultWordWrap
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

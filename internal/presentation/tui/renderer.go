package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// When the terminal renderer cannot be built it falls back to plain text.
func NewRenderer(wordWrap int) func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Detect light/dark background
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return Plain
	}
	return r.Render
}

// Plain strips nothing and only normalizes the trailing newline.
func Plain(markdown string) (string, error) {
	return strings.TrimRight(markdown, "\n") + "\n", nil
}

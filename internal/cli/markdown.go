package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown renders recommendation text for the terminal.
type Markdown struct {
	renderer *glamour.TermRenderer
}

// NewMarkdown creates a renderer wrapping at width. With plain set the
// output carries no ANSI styling.
func NewMarkdown(width int, plain bool) (*Markdown, error) {
	style := glamour.WithAutoStyle()
	if plain {
		style = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return &Markdown{renderer: r}, nil
}

// Render returns the formatted text. If rendering fails the input is
// returned unchanged.
func (m *Markdown) Render(text string) string {
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n") + "\n"
}

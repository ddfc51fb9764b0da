// Package markdown renders markdown for the terminal.
package markdown

import (
	"github.com/charmbracelet/glamour"
)

// Renderer wraps a glamour renderer configured for one width.
type Renderer struct {
	renderer *glamour.TermRenderer
	width    int
}

// New creates a renderer using the named glamour standard style
// ("dark", "light", "notty"). An empty style means "dark".
func New(width int, style string) (*Renderer, error) {
	if style == "" {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &Renderer{renderer: r, width: width}, nil
}

// Width returns the configured word wrap width.
func (r *Renderer) Width() int {
	return r.width
}

// Render transforms markdown to styled terminal output.
func (r *Renderer) Render(markdown string) (string, error) {
	return r.renderer.Render(markdown)
}

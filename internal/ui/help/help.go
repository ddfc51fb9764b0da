// Package help contains the key help overlay.
package help

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/barangay/internal/keys"
	"github.com/zjrosen/barangay/internal/log"
	"github.com/zjrosen/barangay/internal/ui/markdown"
	"github.com/zjrosen/barangay/internal/ui/overlay"
	"github.com/zjrosen/barangay/internal/ui/styles"
)

const boxWidth = 64

// Model renders the key help as markdown in a centered box.
type Model struct {
	style    string
	width    int
	height   int
	rendered string
}

// New creates a help overlay using the given glamour style.
func New(style string) Model {
	return Model{style: style}
}

// SetSize updates the viewport dimensions and renders the document once.
func (m Model) SetSize(width, height int) Model {
	m.width = width
	m.height = height
	if m.rendered == "" {
		m.rendered = render(m.style)
	}
	return m
}

func render(style string) string {
	r, err := markdown.New(boxWidth-4, style)
	var out string
	if err == nil {
		out, err = r.Render(Markdown())
	}
	if err != nil {
		log.ErrorErr(log.CatUI, "render help", err)
		out = Markdown()
	}
	return strings.Trim(out, "\n")
}

// Markdown returns the help document source.
func Markdown() string {
	var b strings.Builder
	b.WriteString("# Keyboard shortcuts\n")
	for _, section := range keys.HelpSections() {
		fmt.Fprintf(&b, "\n## %s\n\n| Key | Action |\n| --- | --- |\n", section.Title)
		for _, binding := range section.Bindings {
			h := binding.Help()
			fmt.Fprintf(&b, "| `%s` | %s |\n", h.Key, h.Desc)
		}
	}
	b.WriteString("\nA resident can hold only one active official position. " +
		"The form checks this automatically after you pick a resident.\n")
	return b.String()
}

// View renders the help box.
func (m Model) View() string {
	doc := m.rendered
	if doc == "" {
		doc = render(m.style)
	}
	height := min(lipgloss.Height(doc)+2, max(m.height-2, 3))
	return styles.RenderPanel(doc, "Help (? to close)", boxWidth, height, true)
}

// Overlay draws the help box centered over bg.
func (m Model) Overlay(bg string) string {
	return overlay.Place(overlay.Config{Width: m.width, Height: m.height}, m.View(), bg)
}

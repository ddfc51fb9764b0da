package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const (
	cornerTopLeft     = "╭"
	cornerTopRight    = "╮"
	cornerBottomLeft  = "╰"
	cornerBottomRight = "╯"
	lineHorizontal    = "─"
	lineVertical      = "│"
)

// RenderPanel draws content in a rounded box with the title embedded in the
// top edge: ╭─ Title ───╮. Content is clipped to the box; height <= 0 sizes
// the box to the content.
func RenderPanel(content, title string, width, height int, focused bool) string {
	var borderColor lipgloss.TerminalColor = BorderDefaultColor
	if focused {
		borderColor = BorderFocusColor
	}
	border := lipgloss.NewStyle().Foreground(borderColor)

	inner := max(width-2, 1)
	lines := strings.Split(content, "\n")
	if height > 0 {
		rows := max(height-2, 1)
		if len(lines) > rows {
			lines = lines[:rows]
		}
		for len(lines) < rows {
			lines = append(lines, "")
		}
	}

	var b strings.Builder
	b.WriteString(panelTop(title, inner, border))
	for _, line := range lines {
		line = ansi.Truncate(line, inner, "…")
		if pad := inner - ansi.StringWidth(line); pad > 0 {
			line += strings.Repeat(" ", pad)
		}
		b.WriteString("\n")
		b.WriteString(border.Render(lineVertical) + line + border.Render(lineVertical))
	}
	b.WriteString("\n")
	b.WriteString(border.Render(cornerBottomLeft + strings.Repeat(lineHorizontal, inner) + cornerBottomRight))
	return b.String()
}

func panelTop(title string, inner int, border lipgloss.Style) string {
	// "─ " + title + " " needs at least four cells around a one-cell title.
	if title == "" || inner < 5 {
		return border.Render(cornerTopLeft + strings.Repeat(lineHorizontal, inner) + cornerTopRight)
	}
	title = ansi.Truncate(title, inner-4, "…")
	rest := inner - 3 - ansi.StringWidth(title)
	return border.Render(cornerTopLeft+lineHorizontal+" ") +
		TitleStyle.Render(title) +
		border.Render(" "+strings.Repeat(lineHorizontal, rest)+cornerTopRight)
}

// Package overlay draws one rendered block on top of another without
// clearing the screen underneath.
package overlay

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Position is the anchor of the foreground block.
type Position int

const (
	Center Position = iota
	Bottom
)

// Config describes the viewport the background fills.
type Config struct {
	Width    int
	Height   int
	Position Position
	PadY     int // rows kept free below a Bottom block
}

// Place splices fg into bg, cell by cell, keeping the ANSI styling of both.
func Place(cfg Config, fg, bg string) string {
	bgLines := strings.Split(bg, "\n")
	for len(bgLines) < cfg.Height {
		bgLines = append(bgLines, strings.Repeat(" ", cfg.Width))
	}
	fgLines := strings.Split(fg, "\n")

	x := max((cfg.Width-lipgloss.Width(fg))/2, 0)
	y := max((cfg.Height-len(fgLines))/2, 0)
	if cfg.Position == Bottom {
		y = max(cfg.Height-len(fgLines)-cfg.PadY, 0)
	}

	for i, line := range fgLines {
		row := y + i
		if row >= len(bgLines) {
			break
		}
		bgLines[row] = splice(bgLines[row], line, x)
	}
	return strings.Join(bgLines, "\n")
}

func splice(bg, fg string, x int) string {
	left := ansi.Truncate(bg, x, "")
	if w := ansi.StringWidth(left); w < x {
		left += strings.Repeat(" ", x-w)
	}
	end := x + ansi.StringWidth(fg)
	var right string
	if end < ansi.StringWidth(bg) {
		right = ansi.TruncateLeft(bg, end, "")
	}
	return left + fg + right
}

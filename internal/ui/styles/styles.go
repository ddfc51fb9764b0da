// Package styles contains Lip Gloss style definitions.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Text hierarchy
	TextPrimaryColor   = lipgloss.AdaptiveColor{Light: "#333333", Dark: "#CCCCCC"}
	TextSecondaryColor = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BBBBBB"}
	TextMutedColor     = lipgloss.AdaptiveColor{Light: "#888888", Dark: "#696969"} // hints, footers

	BorderDefaultColor = lipgloss.AdaptiveColor{Light: "#BBBBBB", Dark: "#696969"}
	BorderFocusColor   = lipgloss.AdaptiveColor{Light: "#54A0FF", Dark: "#54A0FF"}

	// Check states
	StatusSuccessColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	StatusWarningColor = lipgloss.AdaptiveColor{Light: "#E1A100", Dark: "#FECA57"}
	StatusErrorColor   = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}
	StatusInfoColor    = lipgloss.AdaptiveColor{Light: "#54A0FF", Dark: "#54A0FF"}

	// Official status
	OfficialActiveColor   = StatusSuccessColor
	OfficialInactiveColor = TextMutedColor

	SelectionIndicatorColor = lipgloss.AdaptiveColor{Light: "#000000", Dark: "#FFFFFF"}
	SelectionBgColor        = lipgloss.AdaptiveColor{Light: "#D6E9FF", Dark: "#2D3E50"}

	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(TextPrimaryColor)
	LabelStyle = lipgloss.NewStyle().Foreground(TextSecondaryColor)
	ValueStyle = lipgloss.NewStyle().Foreground(TextPrimaryColor)
	MutedStyle = lipgloss.NewStyle().Foreground(TextMutedColor)
	HintStyle  = lipgloss.NewStyle().Foreground(TextMutedColor).Italic(true)

	ErrorStyle   = lipgloss.NewStyle().Foreground(StatusErrorColor).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(StatusWarningColor)
	SuccessStyle = lipgloss.NewStyle().Foreground(StatusSuccessColor)

	SelectionIndicatorStyle = lipgloss.NewStyle().Bold(true).Foreground(SelectionIndicatorColor)
	SelectedRowStyle        = lipgloss.NewStyle().Bold(true).Background(SelectionBgColor)

	StatusBarStyle = lipgloss.NewStyle().Foreground(TextSecondaryColor).Padding(0, 1)

	// Toasts
	ToastBorderSuccessColor = StatusSuccessColor
	ToastBorderErrorColor   = StatusErrorColor
	ToastBorderInfoColor    = StatusInfoColor
)

// BannerStyle frames a block message (conflicts, validation errors).
func BannerStyle(color lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(color).
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(color).
		PaddingLeft(1)
}

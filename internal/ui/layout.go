package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notesync/internal/theme"
)

// Layout manages the terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height left for the main content area.
func (l Layout) ContentHeight() int {
	return max(l.Height-l.HeaderHeight-l.StatusBarHeight, 0)
}

// RenderHeader renders the title bar with the sync status on the right.
func (l Layout) RenderHeader(title string, syncStatus string) string {
	titleRendered := theme.HeaderStyle.Render(title)
	statusRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(syncStatus)

	return l.fill(theme.HeaderStyle, titleRendered, statusRendered)
}

// RenderStatusBar renders the bottom bar. A non-empty message replaces
// the key hints; isErr switches to the error colors.
func (l Layout) RenderStatusBar(hints, message string, isErr bool) string {
	style := theme.StatusBarStyle
	text := hints
	if message != "" {
		text = message
		if isErr {
			style = theme.ErrorBarStyle
		}
	}
	return l.fill(style, style.Render(text))
}

// fill pads the rendered parts to the full width, placing the filler
// before the last part when there are several.
func (l Layout) fill(style lipgloss.Style, parts ...string) string {
	used := 0
	for _, p := range parts {
		used += lipgloss.Width(p)
	}
	filler := lipgloss.NewStyle().
		Width(max(l.Width-used, 0)).
		Background(style.GetBackground()).
		Render("")

	if len(parts) == 1 {
		return lipgloss.JoinHorizontal(lipgloss.Top, parts[0], filler)
	}
	row := append([]string{}, parts[:len(parts)-1]...)
	row = append(row, filler, parts[len(parts)-1])
	return lipgloss.JoinHorizontal(lipgloss.Top, row...)
}

// RenderWithFrame joins the header, content area, and status bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}

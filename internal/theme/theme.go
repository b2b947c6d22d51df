package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notesync/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for the application title bar.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// ErrorBarStyle replaces StatusBarStyle while an error is shown.
var ErrorBarStyle = StatusBarStyle.
	Background(ColorRed)

// DetailPanelStyle wraps the note view and help panels.
var DetailPanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// ListItemStyle is the base style for rows in the note list.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedItemStyle highlights the focused row.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

// DimmedStyle renders secondary text such as folders and times.
var DimmedStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// StateStyle returns a color-coded badge style for a note sync state.
func StateStyle(state model.NoteState) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch state {
	case model.StateLocalNew:
		return base.Foreground(ColorGreen)
	case model.StateLocallyEdited:
		return base.Foreground(ColorYellow)
	case model.StateNeedsMerge:
		return base.Foreground(ColorMagenta)
	case model.StateLocallyDeleted:
		return base.Foreground(ColorRed)
	default:
		return base.Foreground(ColorGray)
	}
}

// StateLabel returns the short badge text for a note sync state.
func StateLabel(state model.NoteState) string {
	switch state {
	case model.StateLocalNew:
		return "NEW"
	case model.StateLocallyEdited:
		return "MOD"
	case model.StateNeedsMerge:
		return "MRG"
	case model.StateLocallyDeleted:
		return "DEL"
	default:
		return " ✓ "
	}
}

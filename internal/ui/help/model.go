package help

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notesync/internal/keys"
	"github.com/nhle/notesync/internal/model"
	"github.com/nhle/notesync/internal/theme"
)

// legend explains the state badges shown in the note list.
var legend = []struct {
	state model.NoteState
	text  string
}{
	{model.StateSyncedClean, "in sync with the server"},
	{model.StateLocalNew, "created here, uploaded on the next sync"},
	{model.StateLocallyEdited, "edited here, uploaded on the next sync"},
	{model.StateNeedsMerge, "edited on both sides, press m to merge"},
	{model.StateLocallyDeleted, "removed from the server on the next sync"},
}

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// View renders the key bindings and the badge legend.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	m.help.Width = m.width - 4
	m.help.ShowAll = true

	var b strings.Builder
	for _, l := range legend {
		badge := theme.StateStyle(l.state).Render(theme.StateLabel(l.state))
		fmt.Fprintf(&b, "%s %s\n", badge, theme.DimmedStyle.Render(l.text))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Keyboard Shortcuts"),
		m.help.View(m.keys),
		"",
		titleStyle.Render("Note States"),
		b.String(),
	)

	return theme.DetailPanelStyle.
		Width(max(m.width-4, 0)).
		Height(max(m.height-4, 0)).
		Render(content)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}

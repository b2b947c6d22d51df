package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notesync/internal/keys"
	"github.com/nhle/notesync/internal/model"
	"github.com/nhle/notesync/internal/notes"
	"github.com/nhle/notesync/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// NoteLoadedMsg carries the note to display. Note is nil when it could
// not be loaded.
type NoteLoadedMsg struct {
	Note *model.Note
	Err  error
}

// Model is the read-only note view.
type Model struct {
	note     *model.Note
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
	loading  bool
}

// New creates a new note view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Update handles messages for the note view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case NoteLoadedMsg:
		m.SetNote(msg.Note)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Back) {
			return m, func() tea.Msg {
				return BackMsg{}
			}
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the note view.
func (m Model) View() string {
	placeholder := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.loading {
		return placeholder.Render("Loading note...")
	}
	if m.note == nil {
		return placeholder.Render("No note selected")
	}
	return m.viewport.View()
}

// Note returns the displayed note, if any.
func (m Model) Note() (*model.Note, bool) {
	return m.note, m.note != nil
}

// renderContent builds the content string for the viewport.
func (m Model) renderContent() string {
	if m.note == nil {
		return ""
	}
	n := m.note
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(n.Subject()))

	state := n.State()
	sections = append(sections, theme.StateStyle(state).Render(string(state)))
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	row := func(label, value string) {
		sections = append(sections, fmt.Sprintf("%s %s",
			metaStyle.Render(fmt.Sprintf("%-10s", label+":")),
			valStyle.Render(value)))
	}

	row("UUID", n.UUID())
	row("Folder", n.Folder())
	if !n.Metadata.Date.IsZero() {
		row("Modified", n.Metadata.Date.Local().Format("2006-01-02 15:04"))
	}
	if n.NeedsMerge() {
		row("Revisions", fmt.Sprintf("%d, press m to merge", len(n.Bodies)))
	}

	separator := lipgloss.NewStyle().
		Foreground(theme.ColorSubtle).
		Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	sections = append(sections, "", separator, "")

	body := notes.Text(*n)
	if strings.TrimSpace(body) == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("Empty note")
	}
	sections = append(sections, body)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetNote updates the displayed note and re-renders the content.
func (m *Model) SetNote(n *model.Note) {
	m.note = n
	m.loading = false
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	if m.note != nil {
		m.viewport.SetContent(m.renderContent())
	}
}

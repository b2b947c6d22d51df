package notelist

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notesync/internal/keys"
	"github.com/nhle/notesync/internal/model"
	"github.com/nhle/notesync/internal/notes"
	"github.com/nhle/notesync/internal/theme"
)

// NotesLoadedMsg is sent when notes have been loaded from the store.
type NotesLoadedMsg struct {
	Notes []model.Note
	Err   error
}

// SelectedNoteMsg is sent when the user opens a note.
type SelectedNoteMsg struct {
	UUID string
}

// Model is the note list view.
type Model struct {
	list        list.Model
	notes       *notes.Service
	keys        *keys.KeyMap
	showDeleted bool
	width       int
	height      int
}

// New creates a new note list model.
func New(svc *notes.Service, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, NoteDelegate{}, width, height)
	l.Title = "Notes"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		notes:  svc,
		keys:   k,
		width:  width,
		height: height,
	}
}

// Init loads the initial notes.
func (m Model) Init() tea.Cmd {
	return m.LoadNotes()
}

// Update handles messages for the list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case NotesLoadedMsg:
		items := make([]list.Item, len(msg.Notes))
		for i, n := range msg.Notes {
			items[i] = NoteItem{Note: n}
		}
		return m, m.list.SetItems(items)

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Select):
			n, ok := m.Selected()
			if !ok {
				return m, nil
			}
			return m, func() tea.Msg {
				return SelectedNoteMsg{UUID: n.UUID()}
			}

		case key.Matches(msg, m.keys.Trash):
			m.showDeleted = !m.showDeleted
			m.list.Title = "Notes"
			if m.showDeleted {
				m.list.Title = "Deleted notes"
			}
			return m, m.LoadNotes()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// Filtering reports whether the list is capturing keys for its filter.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// Selected returns the note under the cursor.
func (m Model) Selected() (model.Note, bool) {
	item, ok := m.list.SelectedItem().(NoteItem)
	if !ok {
		return model.Note{}, false
	}
	return item.Note, true
}

// ShowingDeleted reports whether the list shows tombstoned notes.
func (m Model) ShowingDeleted() bool {
	return m.showDeleted
}

// View renders the list or the empty state.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}
	return m.list.View()
}

func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.showDeleted {
		return style.Render("No deleted notes.\n\nPress t to go back.")
	}
	return style.Render("No notes yet.\n\nPress n to write one or s to sync.")
}

// LoadNotes returns a tea.Cmd that reads the notes for the current mode.
func (m Model) LoadNotes() tea.Cmd {
	svc := m.notes
	opts := notes.ListOptions{Deleted: m.showDeleted}
	return func() tea.Msg {
		found, err := svc.List(context.Background(), opts)
		return NotesLoadedMsg{Notes: found, Err: err}
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}

package notelist

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/notesync/internal/model"
	"github.com/nhle/notesync/internal/theme"
)

// NoteItem wraps a model.Note so it can be used in a bubbles/list.
type NoteItem struct {
	Note model.Note
}

// FilterValue returns the string used for fuzzy filtering.
func (i NoteItem) FilterValue() string { return i.Note.Subject() }

// Title returns the note title.
func (i NoteItem) Title() string {
	if s := i.Note.Subject(); s != "" {
		return s
	}
	return "(untitled)"
}

// Description returns the folder and age of the note.
func (i NoteItem) Description() string {
	return fmt.Sprintf("%s | %s", i.Note.Folder(), relativeTime(i.Note.Metadata.Date, time.Now()))
}

// NoteDelegate implements list.ItemDelegate for one-line note rows.
type NoteDelegate struct{}

// Height returns the number of lines each item takes.
func (d NoteDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d NoteDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d NoteDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a row: state badge, title, folder and age.
func (d NoteDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ni, ok := item.(NoteItem)
	if !ok {
		return
	}

	state := ni.Note.State()
	badge := theme.StateStyle(state).Render(theme.StateLabel(state))
	line := fmt.Sprintf("%s %s  %s", badge, ni.Title(), theme.DimmedStyle.Render(ni.Description()))

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}
	fmt.Fprint(w, line)
}

// relativeTime returns a human-friendly age of t relative to now.
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	case d < 365*24*time.Hour:
		return t.Format("Jan 02")
	default:
		return t.Format("Jan 02 2006")
	}
}

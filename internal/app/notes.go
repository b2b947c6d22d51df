package app

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/notesync/internal/editor"
	"github.com/nhle/notesync/internal/model"
	"github.com/nhle/notesync/internal/notes"
	"github.com/nhle/notesync/internal/ui/detail"
)

// editKind says what an editor session was opened for.
type editKind int

const (
	editNew editKind = iota
	editNote
	editMerge
)

// editorDoneMsg is sent when the suspended editor exits.
type editorDoneMsg struct {
	kind editKind
	uuid string
	file *editor.File
	err  error
}

// noteSavedMsg is sent after a note change has been stored.
type noteSavedMsg struct {
	status string
	err    error
}

// openEditor suspends the UI and runs the editor on initial.
func (m *Model) openEditor(kind editKind, uuid, initial string) tea.Cmd {
	f, err := m.editor.Open(initial)
	if err != nil {
		return func() tea.Msg {
			return noteSavedMsg{err: model.Wrap(model.NoteEditError, err, "opening editor")}
		}
	}
	return tea.ExecProcess(f.Command(context.Background()), func(err error) tea.Msg {
		return editorDoneMsg{kind: kind, uuid: uuid, file: f, err: err}
	})
}

// startEdit opens the selected note, or its merge view, in the editor.
func (m *Model) startEdit(n model.Note, kind editKind) tea.Cmd {
	switch {
	case kind == editNote && n.NeedsMerge():
		return m.fail(model.Errorf(model.NoteNeedsMerge, "%q has unresolved revisions, press m to merge", n.Subject()))
	case kind == editMerge && !n.NeedsMerge():
		return m.fail(model.Errorf(model.NoteEditError, "%q has nothing to merge", n.Subject()))
	case kind == editMerge:
		return m.openEditor(kind, n.UUID(), notes.MergeView(n))
	default:
		return m.openEditor(kind, n.UUID(), n.FirstBody().Text)
	}
}

// saveEdited stores what the editor produced. An unchanged buffer saves
// nothing, which is also how a merge is abandoned.
func (m *Model) saveEdited(msg editorDoneMsg) tea.Cmd {
	svc := m.notes
	return func() tea.Msg {
		defer msg.file.Remove()
		if msg.err != nil {
			return noteSavedMsg{err: model.Wrap(model.NoteEditError, msg.err, "running editor")}
		}
		text, err := msg.file.Read()
		if err != nil {
			return noteSavedMsg{err: model.Wrap(model.NoteEditError, err, "reading editor buffer")}
		}
		if !msg.file.Changed(text) {
			return noteSavedMsg{status: "Nothing changed"}
		}

		ctx := context.Background()
		switch msg.kind {
		case editNew:
			n, err := svc.Create(ctx, text)
			if err != nil {
				return noteSavedMsg{err: err}
			}
			return noteSavedMsg{status: fmt.Sprintf("Created %s", n.Subject())}
		}

		n, err := svc.Find(ctx, msg.uuid)
		if err != nil {
			return noteSavedMsg{err: err}
		}
		if msg.kind == editMerge {
			err = svc.ResolveMerge(ctx, n, text)
		} else {
			err = svc.Update(ctx, n, text)
		}
		if err != nil {
			return noteSavedMsg{err: err}
		}
		return noteSavedMsg{status: fmt.Sprintf("Saved %s", n.Subject())}
	}
}

// toggleDeleted flips the tombstone of a note.
func (m *Model) toggleDeleted(n model.Note) tea.Cmd {
	svc := m.notes
	return func() tea.Msg {
		deleted := !n.Metadata.LocallyDeleted
		if err := svc.SetDeleted(context.Background(), &n, deleted); err != nil {
			return noteSavedMsg{err: err}
		}
		if deleted {
			return noteSavedMsg{status: fmt.Sprintf("Deleted %s, removed from the server on the next sync", n.Subject())}
		}
		return noteSavedMsg{status: fmt.Sprintf("Restored %s", n.Subject())}
	}
}

// loadNote fetches one note for the detail view.
func (m *Model) loadNote(uuid string) tea.Cmd {
	svc := m.notes
	return func() tea.Msg {
		n, err := svc.Find(context.Background(), uuid)
		return detail.NoteLoadedMsg{Note: n, Err: err}
	}
}

// fail returns a command reporting err in the status bar.
func (m *Model) fail(err error) tea.Cmd {
	return func() tea.Msg {
		return noteSavedMsg{err: err}
	}
}

// describe renders an error for the status bar.
func describe(err error) string {
	var e *model.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

package app

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notesync/internal/editor"
	"github.com/nhle/notesync/internal/model"
	"github.com/nhle/notesync/internal/notes"
	"github.com/nhle/notesync/internal/sync"
	"github.com/nhle/notesync/internal/ui/notelist"
	"github.com/nhle/notesync/tests/testutil"
)

func newTestModel(t *testing.T) (Model, *notes.Service) {
	t.Helper()
	svc := notes.NewService(testutil.NewTestStore(t), &model.Profile{Email: "me@example.com", Folder: "Notes"})
	w := sync.NewWorker(func(context.Context) (*sync.Report, error) { return &sync.Report{}, nil })
	m := New(svc, &editor.Editor{Command: "true"}, w)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model), svc
}

func press(m Model, r rune) (Model, tea.Cmd) {
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	return updated.(Model), cmd
}

func TestModel_View(t *testing.T) {
	m, _ := newTestModel(t)
	view := m.View()
	assert.Contains(t, view, "notesync")
	assert.Contains(t, view, "not synced")
	assert.Contains(t, view, "No notes yet")
}

func TestModel_SyncOutcomes(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = press(m, 's')
	assert.True(t, m.syncing)
	assert.Equal(t, "syncing", m.syncStatus())

	m, _ = press(m, 's')
	assert.Equal(t, "A sync is already running", m.status)

	updated, cmd := m.Update(sync.OutcomeMsg{
		Kind:     sync.OutcomeSuccess,
		Finished: time.Date(2024, 1, 1, 9, 30, 0, 0, time.Local),
		Report: &sync.Report{Results: []sync.Result{
			{Kind: sync.AddLocally, Subject: "One"},
			{Kind: sync.AddRemotely, Subject: "Two"},
		}},
	})
	m = updated.(Model)
	assert.NotNil(t, cmd)
	assert.False(t, m.syncing)
	assert.Equal(t, "synced 09:30", m.syncStatus())
	assert.Equal(t, "Sync done, 2 change(s)", m.status)

	updated, _ = m.Update(sync.OutcomeMsg{
		Kind: sync.OutcomeFailure,
		Err:  model.Errorf(model.UpdateSyncError, "server went away"),
	})
	m = updated.(Model)
	assert.True(t, m.statusErr)
	assert.Equal(t, "server went away", m.status)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "Sync done, nothing to do", summarize(nil))
	msg := summarize(&sync.Report{Results: []sync.Result{
		{Kind: sync.AddLocally, Subject: "One"},
		{Kind: sync.DeleteRemote, Subject: "Two", Err: errors.New("timeout")},
	}})
	assert.Contains(t, msg, "1 of 2 failed")
	assert.Contains(t, msg, "Action DeleteRemote Failed Two (timeout)")
}

func TestModel_EditRefusesDivergedNote(t *testing.T) {
	m, _ := newTestModel(t)
	diverged := model.Note{
		Metadata: model.Metadata{UUID: "A"},
		Bodies: []model.Body{
			{MessageID: "<1>", Text: "# One"},
			{MessageID: "<2>", Text: "# Two"},
		},
	}
	updated, _ := m.Update(notelist.NotesLoadedMsg{Notes: []model.Note{diverged}})
	m = updated.(Model)

	_, cmd := press(m, 'e')
	require.NotNil(t, cmd)
	saved, ok := cmd().(noteSavedMsg)
	require.True(t, ok)
	assert.ErrorIs(t, saved.err, model.ErrNeedsMerge)
}

func TestModel_SaveEdited(t *testing.T) {
	m, svc := newTestModel(t)
	ctx := context.Background()

	f, err := m.editor.Open("")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.Path, []byte("# Shopping\n\n- milk"), 0o600))

	msg := m.saveEdited(editorDoneMsg{kind: editNew, file: f})().(noteSavedMsg)
	require.NoError(t, msg.err)
	assert.Equal(t, "Created Shopping", msg.status)
	_, err = os.Stat(f.Path)
	assert.True(t, os.IsNotExist(err))

	note, err := svc.Find(ctx, "Shopping")
	require.NoError(t, err)

	f, err = m.editor.Open(note.FirstBody().Text)
	require.NoError(t, err)
	msg = m.saveEdited(editorDoneMsg{kind: editNote, uuid: note.UUID(), file: f})().(noteSavedMsg)
	require.NoError(t, msg.err)
	assert.Equal(t, "Nothing changed", msg.status)

	updated, _ := m.Update(msg)
	m = updated.(Model)
	assert.Equal(t, "Nothing changed", m.status)
	assert.False(t, m.statusErr)
}

func TestModel_ToggleDeleted(t *testing.T) {
	m, svc := newTestModel(t)
	ctx := context.Background()
	note, err := svc.Create(ctx, "# Old")
	require.NoError(t, err)

	msg := m.toggleDeleted(*note)().(noteSavedMsg)
	require.NoError(t, msg.err)
	assert.Contains(t, msg.status, "Deleted Old")

	stored, err := svc.Find(ctx, note.UUID())
	require.NoError(t, err)
	assert.True(t, stored.Metadata.LocallyDeleted)
}

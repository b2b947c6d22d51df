package notes

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notesync/internal/model"
	"github.com/nhle/notesync/tests/testutil"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) *Service {
	t.Helper()
	s := NewService(testutil.NewTestStore(t), &model.Profile{
		Email:  "Me <me@example.com>",
		Folder: "Notes",
	})
	s.Now = func() time.Time { return fixedNow }
	return s
}

func TestIsUUID(t *testing.T) {
	assert.True(t, IsUUID("3F2504E0-4F89-11D3-9A0C-0305E82C3301"))
	assert.True(t, IsUUID("3f2504e0-4f89-11d3-9a0c-0305e82c3301"))
	assert.False(t, IsUUID("Groceries"))
	assert.False(t, IsUUID("3F2504E0-4F89-11D3-9A0C"))
}

func TestCreate(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	note, err := s.Create(ctx, "# Groceries\n\n- milk")
	require.NoError(t, err)
	assert.True(t, IsUUID(note.UUID()))
	assert.Equal(t, strings.ToUpper(note.UUID()), note.UUID())
	assert.Equal(t, "<"+note.UUID()+"@example.com>", note.FirstBody().MessageID)
	assert.True(t, note.Metadata.New)
	assert.Equal(t, "Notes", note.Metadata.Subfolder)

	found, err := s.Find(ctx, strings.ToLower(note.UUID()))
	require.NoError(t, err)
	assert.Equal(t, note.UUID(), found.UUID())

	found, err = s.Find(ctx, "groc")
	require.NoError(t, err)
	assert.Equal(t, note.UUID(), found.UUID())
}

func TestCreate_Empty(t *testing.T) {
	_, err := newService(t).Create(context.Background(), "  \n")
	assert.ErrorIs(t, err, model.ErrInsertion)
	assert.Equal(t, 30, model.ExitCode(err))
}

func TestFind_NotFound(t *testing.T) {
	_, err := newService(t).Find(context.Background(), "nothing here")
	assert.ErrorIs(t, err, model.ErrNoteNotFound)
	assert.Equal(t, 34, model.ExitCode(err))
}

func TestUpdate_NewNoteKeepsNoOldID(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	note, err := s.Create(ctx, "# Draft")
	require.NoError(t, err)
	firstID := note.FirstBody().MessageID

	require.NoError(t, s.Update(ctx, note, "# Draft 2"))
	assert.NotEqual(t, firstID, note.FirstBody().MessageID)
	assert.False(t, note.FirstBody().HasOldRemote())
	assert.False(t, note.Metadata.Edited)
}

func TestUpdate_SyncedNoteRecordsOldID(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	note, err := s.Create(ctx, "# Synced")
	require.NoError(t, err)

	// Pretend the note has been uploaded.
	note.Metadata.New = false
	note.Bodies[0].UID = 7
	require.NoError(t, s.Store.Update(ctx, *note))
	syncedID := note.FirstBody().MessageID

	require.NoError(t, s.Update(ctx, note, "# Synced\n\nmore"))
	assert.Equal(t, syncedID, note.FirstBody().OldRemoteMessageID)
	assert.True(t, note.Metadata.Edited)

	// A second edit before syncing keeps pointing at the synced revision.
	require.NoError(t, s.Update(ctx, note, "# Synced\n\neven more"))
	assert.Equal(t, syncedID, note.FirstBody().OldRemoteMessageID)

	stored, err := s.Store.FetchSingle(ctx, note.UUID())
	require.NoError(t, err)
	assert.Equal(t, "# Synced\n\neven more", stored.FirstBody().Text)
	assert.Equal(t, model.StateLocallyEdited, stored.State())
}

func TestUpdate_Refusals(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	note, err := s.Create(ctx, "# Same")
	require.NoError(t, err)

	assert.ErrorIs(t, s.Update(ctx, note, "# Same\n"), model.ErrContentNotChanged)

	require.NoError(t, s.Store.AppendBody(ctx, model.Body{MessageID: "<other>", Text: "x", MetadataUUID: note.UUID()}))
	merged, err := s.Find(ctx, note.UUID())
	require.NoError(t, err)
	err = s.Update(ctx, merged, "new text")
	assert.ErrorIs(t, err, model.ErrNeedsMerge)
	assert.Equal(t, 32, model.ExitCode(err))
}

func TestResolveMerge_KeepsAllParents(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	note, err := s.Create(ctx, "# List\nmilk\neggs")
	require.NoError(t, err)

	note.Metadata.New = false
	note.Metadata.Edited = true
	note.Bodies[0].OldRemoteMessageID = "<base>"
	require.NoError(t, s.Store.Update(ctx, *note))
	require.NoError(t, s.Store.AppendBody(ctx, model.Body{
		MessageID: "<remote>", Text: "# List\nmilk\nbread", MetadataUUID: note.UUID(),
	}))

	diverged, err := s.Find(ctx, note.UUID())
	require.NoError(t, err)
	view := MergeView(*diverged)
	assert.Contains(t, view, "< ")
	assert.Contains(t, view, "> ")
	assert.Equal(t, view, Text(*diverged))

	localID := note.FirstBody().MessageID
	require.NoError(t, s.ResolveMerge(ctx, diverged, "# List\nmilk\neggs\nbread"))
	require.Len(t, diverged.Bodies, 1)
	assert.ElementsMatch(t,
		[]string{"<base>", "<remote>", localID},
		diverged.FirstBody().Supersedes())
	assert.True(t, diverged.Metadata.Edited)

	err = s.ResolveMerge(ctx, diverged, "again")
	assert.ErrorIs(t, err, model.ErrEdit)
}

func TestSetDeleted(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	note, err := s.Create(ctx, "# Bye")
	require.NoError(t, err)

	require.NoError(t, s.SetDeleted(ctx, note, true))
	live, err := s.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, live)

	gone, err := s.List(ctx, ListOptions{Deleted: true})
	require.NoError(t, err)
	require.Len(t, gone, 1)
	assert.Equal(t, note.UUID(), gone[0].UUID())

	require.NoError(t, s.SetDeleted(ctx, note, false))
	live, err = s.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, live, 1)
}

func TestInteractive(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	s.Edit = func(_ context.Context, initial string) (string, error) {
		return initial + "# Typed", nil
	}
	note, err := s.NewInteractive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "# Typed", note.FirstBody().Text)

	s.Edit = func(_ context.Context, initial string) (string, error) {
		return initial + "\nmore", nil
	}
	edited, err := s.EditInteractive(ctx, "Typed")
	require.NoError(t, err)
	assert.Equal(t, "# Typed\nmore", edited.FirstBody().Text)

	s.Edit = func(context.Context, string) (string, error) {
		return "", errors.New("editor crashed")
	}
	_, err = s.EditInteractive(ctx, "Typed")
	assert.ErrorIs(t, err, model.ErrEdit)

	_, err = s.MergeInteractive(ctx, "Typed")
	assert.ErrorIs(t, err, model.ErrEdit)
}

func TestMergeInteractive_Declined(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	note, err := s.Create(ctx, "# Pick")
	require.NoError(t, err)
	require.NoError(t, s.Store.AppendBody(ctx, model.Body{MessageID: "<zz>", Text: "# Pick other", MetadataUUID: note.UUID()}))

	s.Edit = func(_ context.Context, initial string) (string, error) { return "# Picked", nil }
	s.Confirm = func(string) (bool, error) { return false, nil }
	_, err = s.MergeInteractive(ctx, note.UUID())
	assert.ErrorIs(t, err, model.ErrEdit)

	s.Confirm = func(string) (bool, error) { return true, nil }
	require.NoError(t, s.ResolveByUUID(ctx, note.UUID()))

	stored, err := s.Find(ctx, note.UUID())
	require.NoError(t, err)
	assert.False(t, stored.NeedsMerge())
	assert.Equal(t, "# Picked", stored.FirstBody().Text)
}

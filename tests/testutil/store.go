// Package testutil provides shared helpers for tests that need a real
// note store.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/notesync/internal/model"
	"github.com/nhle/notesync/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// NewNote returns an unsynced single-body note in the default folder.
func NewNote(uuid, messageID, text string, date time.Time) model.Note {
	return model.Note{
		Metadata: model.Metadata{
			UUID:        uuid,
			Subfolder:   model.DefaultFolder,
			New:         true,
			Date:        date,
			MimeVersion: model.DefaultMimeVersion,
		},
		Bodies: []model.Body{{MessageID: messageID, Text: text, MetadataUUID: uuid}},
	}
}

// SeedNotes inserts notes into s, failing the test on the first error.
func SeedNotes(t *testing.T, s store.Store, notes ...model.Note) {
	t.Helper()
	for _, n := range notes {
		if err := s.Insert(context.Background(), n); err != nil {
			t.Fatalf("seeding note %s: %v", n.UUID(), err)
		}
	}
}

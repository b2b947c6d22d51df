package store

import (
	"context"
	"errors"

	"github.com/nhle/notesync/internal/model"
)

var (
	// ErrNotFound is returned when a note does not exist in the store.
	ErrNotFound = errors.New("note not found")

	// ErrAlreadyExists is returned by Insert when the UUID is taken.
	ErrAlreadyExists = errors.New("note already exists")

	// ErrNoBodies is returned when a write would leave a note without a
	// body.
	ErrNoBodies = errors.New("note has no body")
)

// NoteFilter narrows ListNotes.
type NoteFilter struct {
	Deleted   *bool   // tombstoned only (true), live only (false), or all (nil)
	Subfolder *string // exact remote folder, or nil (all)
}

// Store is the local note store consumed by the sync engine and the note
// operations. Writes are serialized; every multi-row mutation is atomic.
type Store interface {
	// FetchAllNotes returns every note with its bodies loaded.
	FetchAllNotes(ctx context.Context) ([]model.Note, error)

	// FetchSingle returns the note with the given UUID or ErrNotFound.
	FetchSingle(ctx context.Context, uuid string) (*model.Note, error)

	// FetchSingleByName returns the first note whose title starts with
	// prefix (case-insensitive) or ErrNotFound.
	FetchSingleByName(ctx context.Context, prefix string) (*model.Note, error)

	// ListNotes returns the notes matching filter, most recent first.
	ListNotes(ctx context.Context, filter NoteFilter) ([]model.Note, error)

	// Insert adds a new note; it fails with ErrAlreadyExists if the UUID
	// is present.
	Insert(ctx context.Context, note model.Note) error

	// Update replaces a note's metadata and body set.
	Update(ctx context.Context, note model.Note) error

	// ReplaceBodies swaps all bodies of one note.
	ReplaceBodies(ctx context.Context, uuid string, bodies []model.Body) error

	// AppendBody adds one more body to an existing note.
	AppendBody(ctx context.Context, body model.Body) error

	// Delete removes a note and its bodies.
	Delete(ctx context.Context, uuid string) error
}

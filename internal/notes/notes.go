// Package notes implements the user-facing note operations on top of the
// local store: create, edit, merge resolution, tombstoning and lookup.
// Nothing here talks to the server; changes reach it on the next sync.
package notes

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/notesync/internal/model"
	"github.com/nhle/notesync/internal/store"
	"github.com/nhle/notesync/internal/sync"
)

// uuidPattern matches a canonical 8-4-4-4-12 hex UUID.
var uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// EditFunc lets the user edit text and returns the result.
type EditFunc func(ctx context.Context, initial string) (string, error)

// ConfirmFunc asks a yes/no question.
type ConfirmFunc func(title string) (bool, error)

// Service runs note operations for one profile.
type Service struct {
	Store   store.Store
	Profile *model.Profile

	// Edit and Confirm are only needed by the interactive operations.
	Edit    EditFunc
	Confirm ConfirmFunc

	Now func() time.Time
}

// NewService creates a Service over s for profile p.
func NewService(s store.Store, p *model.Profile) *Service {
	return &Service{Store: s, Profile: p, Now: time.Now}
}

// IsUUID reports whether id looks like a note UUID rather than a title.
func IsUUID(id string) bool {
	return uuidPattern.MatchString(id)
}

// Find resolves a UUID or a title prefix to a note.
func (s *Service) Find(ctx context.Context, id string) (*model.Note, error) {
	var (
		note *model.Note
		err  error
	)
	if IsUUID(id) {
		note, err = s.Store.FetchSingle(ctx, id)
		if errors.Is(err, store.ErrNotFound) && id != strings.ToUpper(id) {
			note, err = s.Store.FetchSingle(ctx, strings.ToUpper(id))
		}
	} else {
		note, err = s.Store.FetchSingleByName(ctx, id)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, model.Wrap(model.NoteNotFound, err, fmt.Sprintf("no note matches %q", id))
	}
	if err != nil {
		return nil, err
	}
	return note, nil
}

// Create stores a new local note with text as its only body.
func (s *Service) Create(ctx context.Context, text string) (*model.Note, error) {
	if strings.TrimSpace(text) == "" {
		return nil, model.Errorf(model.NoteInsertionError, "refusing to create an empty note")
	}

	id := strings.ToUpper(uuid.NewString())
	note := model.Note{
		Metadata: model.Metadata{
			UUID:        id,
			Subfolder:   s.folder(),
			New:         true,
			Date:        s.now(),
			MimeVersion: model.DefaultMimeVersion,
		},
		Bodies: []model.Body{{
			MessageID:    s.messageID(id),
			Text:         text,
			MetadataUUID: id,
		}},
	}
	if err := s.Store.Insert(ctx, note); err != nil {
		return nil, model.Wrap(model.NoteInsertionError, err, "storing new note")
	}
	return &note, nil
}

// Update replaces the content of a note with text as a new revision.
func (s *Service) Update(ctx context.Context, note *model.Note, text string) error {
	if note.NeedsMerge() {
		return model.Errorf(model.NoteNeedsMerge, "%q has unresolved revisions, merge it first", note.Subject())
	}
	prev := note.FirstBody()
	if strings.TrimSpace(text) == strings.TrimSpace(prev.Text) {
		return model.Errorf(model.NoteContentNotChanged, "%q was not changed", note.Subject())
	}
	if strings.TrimSpace(text) == "" {
		return model.Errorf(model.NoteEditError, "refusing to save an empty note")
	}

	old := prev.OldRemoteMessageID
	if old == "" && !note.Metadata.New {
		old = prev.MessageID
	}

	updated := *note
	updated.Bodies = []model.Body{{
		MessageID:          s.messageID(strings.ToUpper(uuid.NewString())),
		Text:               text,
		MetadataUUID:       note.UUID(),
		OldRemoteMessageID: old,
	}}
	updated.Metadata.Edited = !note.Metadata.New
	updated.Metadata.Date = s.now()

	if err := s.Store.Update(ctx, updated); err != nil {
		return model.Wrap(model.NoteEditError, err, "storing edited note")
	}
	*note = updated
	return nil
}

// ResolveMerge replaces every revision of a diverged note with text. The
// new revision supersedes all parents and everything they superseded.
func (s *Service) ResolveMerge(ctx context.Context, note *model.Note, text string) error {
	if !note.NeedsMerge() {
		return model.Errorf(model.NoteEditError, "%q has nothing to merge", note.Subject())
	}
	if strings.TrimSpace(text) == "" {
		return model.Errorf(model.NoteEditError, "refusing to save an empty note")
	}

	var parents []string
	for _, b := range note.Bodies {
		parents = append(parents, b.MessageID)
		parents = append(parents, b.Supersedes()...)
	}

	resolved := *note
	resolved.Bodies = []model.Body{{
		MessageID:          s.messageID(strings.ToUpper(uuid.NewString())),
		Text:               text,
		MetadataUUID:       note.UUID(),
		OldRemoteMessageID: model.JoinMessageIDs(parents),
	}}
	resolved.Metadata.Edited = true
	resolved.Metadata.New = false
	resolved.Metadata.Date = s.now()

	if err := s.Store.Update(ctx, resolved); err != nil {
		return model.Wrap(model.NoteEditError, err, "storing merged note")
	}
	*note = resolved
	return nil
}

// MergeView returns the conflict-annotated text offered for resolution.
func MergeView(note model.Note) string {
	return sync.MergeNote(note)
}

// Text returns what print shows for a note: its content, or the merge
// view while revisions are unresolved.
func Text(note model.Note) string {
	if note.NeedsMerge() {
		return MergeView(note)
	}
	return note.FirstBody().Text
}

// SetDeleted sets or clears the tombstone of a note.
func (s *Service) SetDeleted(ctx context.Context, note *model.Note, deleted bool) error {
	if note.Metadata.LocallyDeleted == deleted {
		return nil
	}
	updated := *note
	updated.Metadata.LocallyDeleted = deleted
	if err := s.Store.Update(ctx, updated); err != nil {
		return model.Wrap(model.NoteEditError, err, "updating tombstone")
	}
	*note = updated
	return nil
}

// ListOptions selects which notes List returns.
type ListOptions struct {
	// Deleted lists only tombstoned notes; otherwise they are hidden.
	Deleted bool
}

// List returns notes, most recent first.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]model.Note, error) {
	deleted := opts.Deleted
	notes, err := s.Store.ListNotes(ctx, store.NoteFilter{Deleted: &deleted})
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	return notes, nil
}

// NewInteractive opens the editor on an empty buffer and stores the
// result as a new note.
func (s *Service) NewInteractive(ctx context.Context) (*model.Note, error) {
	text, err := s.Edit(ctx, "")
	if err != nil {
		return nil, model.Wrap(model.NoteInsertionError, err, "editing new note")
	}
	return s.Create(ctx, text)
}

// EditInteractive opens the note in the editor and stores the result.
func (s *Service) EditInteractive(ctx context.Context, id string) (*model.Note, error) {
	note, err := s.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if note.NeedsMerge() {
		return nil, model.Errorf(model.NoteNeedsMerge, "%q has unresolved revisions, merge it first", note.Subject())
	}

	text, err := s.Edit(ctx, note.FirstBody().Text)
	if err != nil {
		return nil, model.Wrap(model.NoteEditError, err, "editing note")
	}
	if err := s.Update(ctx, note, text); err != nil {
		return nil, err
	}
	return note, nil
}

// MergeInteractive opens the merge view in the editor and, after
// confirmation, stores the resolved note.
func (s *Service) MergeInteractive(ctx context.Context, id string) (*model.Note, error) {
	note, err := s.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !note.NeedsMerge() {
		return nil, model.Errorf(model.NoteEditError, "%q has nothing to merge", note.Subject())
	}

	text, err := s.Edit(ctx, MergeView(*note))
	if err != nil {
		return nil, model.Wrap(model.NoteEditError, err, "editing merge")
	}

	if s.Confirm != nil {
		ok, err := s.Confirm(fmt.Sprintf("Save merged %q?", model.SubjectFromText(text)))
		if err != nil {
			return nil, model.Wrap(model.NoteEditError, err, "confirming merge")
		}
		if !ok {
			return nil, model.Errorf(model.NoteEditError, "merge of %q abandoned", note.Subject())
		}
	}

	if err := s.ResolveMerge(ctx, note, text); err != nil {
		return nil, err
	}
	return note, nil
}

// ResolveByUUID runs MergeInteractive for a note the sync pass just
// diverged.
func (s *Service) ResolveByUUID(ctx context.Context, id string) error {
	_, err := s.MergeInteractive(ctx, id)
	return err
}

func (s *Service) folder() string {
	if s.Profile != nil && s.Profile.Folder != "" {
		return s.Profile.Folder
	}
	return model.DefaultFolder
}

func (s *Service) messageID(id string) string {
	domain := "localhost"
	if s.Profile != nil {
		domain = s.Profile.Domain()
	}
	return fmt.Sprintf("<%s@%s>", id, domain)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

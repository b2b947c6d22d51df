package sync

import (
	"context"
	"fmt"
	"log"

	"github.com/nhle/notesync/internal/convert"
	"github.com/nhle/notesync/internal/mail"
	"github.com/nhle/notesync/internal/model"
	"github.com/nhle/notesync/internal/store"
)

// Resolver is called after a merge action has appended the remote
// revision, with the UUID of the note that now needs merging.
type Resolver func(ctx context.Context, uuid string) error

// Executor applies planned actions against the store and the mail
// service. One failing action never stops the others.
type Executor struct {
	Store store.Store
	Mail  mail.Service

	// Resolve, when set, is run after each successful merge action.
	Resolve Resolver

	// DryRun skips execution entirely.
	DryRun bool
}

// Execute runs actions in order and returns one result per executed
// action. It stops early only when ctx is cancelled; the remaining
// actions are left for the next pass.
func (e *Executor) Execute(ctx context.Context, actions []Action) []Result {
	if e.DryRun {
		return nil
	}

	results := make([]Result, 0, len(actions))
	for _, a := range actions {
		if err := ctx.Err(); err != nil {
			log.Printf("[sync] cancelled with %d actions pending", len(actions)-len(results))
			break
		}

		r := Result{Kind: a.Kind, UUID: a.UUID, Subject: a.Subject()}
		if err := e.apply(ctx, a); err != nil {
			r.Err = model.Wrap(model.UpdateSyncError, err, fmt.Sprintf("%s %s", a.Kind, a.UUID))
		}
		log.Printf("[sync] %s", r)
		results = append(results, r)
	}
	return results
}

func (e *Executor) apply(ctx context.Context, a Action) error {
	switch a.Kind {
	case AddLocally:
		return e.addLocally(ctx, a)
	case AddRemotely:
		return e.pushRemote(ctx, a, nil)
	case UpdateRemotely:
		return e.pushRemote(ctx, a, a.Remote)
	case UpdateLocally:
		return e.updateLocally(ctx, a)
	case DeleteLocally:
		return e.Store.Delete(ctx, a.UUID)
	case DeleteRemote:
		return e.deleteRemote(ctx, a)
	case Merge:
		return e.merge(ctx, a)
	default:
		return fmt.Errorf("unknown action %q", a.Kind)
	}
}

func (e *Executor) addLocally(ctx context.Context, a Action) error {
	bodies, err := e.fetchBodies(ctx, a.UUID, a.Remote)
	if err != nil {
		return err
	}

	latest := a.Remote.Latest()
	note := model.Note{
		Metadata: model.Metadata{
			UUID:        a.UUID,
			Subfolder:   latest.Folder,
			Date:        latest.Date(),
			MimeVersion: latest.MimeVersion(),
		},
		Bodies: bodies,
	}
	return e.Store.Insert(ctx, note)
}

// pushRemote uploads the local revision, then removes the remote
// revisions it supersedes. When an earlier pass already uploaded it, only
// the removal is repeated.
func (e *Executor) pushRemote(
	ctx context.Context,
	a Action,
	remote model.RemoteNoteHeaderCollection,
) error {
	if a.Local == nil {
		return fmt.Errorf("no local note for %s", a.UUID)
	}
	note := *a.Local
	if note.NeedsMerge() {
		return model.Errorf(model.NoteNeedsMerge, "note %s needs merge", a.UUID)
	}
	body := note.FirstBody()

	var uid uint32
	var superseded model.RemoteNoteHeaderCollection
	for _, r := range remote {
		if r.MessageID() == body.MessageID {
			uid = r.UID
			continue
		}
		superseded = append(superseded, r)
	}

	if uid == 0 {
		html, err := convert.MarkdownToHTML(body.Text)
		if err != nil {
			return err
		}
		uid, err = e.Mail.AppendNote(ctx, note, html)
		if err != nil {
			return fmt.Errorf("uploading note: %w", err)
		}
	} else {
		log.Printf("[sync] %s already uploaded as UID %d", a.UUID, uid)
	}

	if len(superseded) > 0 {
		if err := e.Mail.DeleteMessages(ctx, superseded); err != nil {
			return fmt.Errorf("removing superseded revisions: %w", err)
		}
	}

	body.UID = uid
	body.OldRemoteMessageID = ""
	body.MetadataUUID = note.UUID()
	note.Bodies = []model.Body{body}
	note.Metadata.New = false
	note.Metadata.Edited = false
	if note.Metadata.MimeVersion == "" {
		note.Metadata.MimeVersion = model.DefaultMimeVersion
	}

	return e.Store.Update(ctx, note)
}

func (e *Executor) updateLocally(ctx context.Context, a Action) error {
	if a.Local == nil {
		return fmt.Errorf("no local note for %s", a.UUID)
	}
	bodies, err := e.fetchBodies(ctx, a.UUID, a.Remote)
	if err != nil {
		return err
	}

	note := *a.Local
	latest := a.Remote.Latest()
	note.Bodies = bodies
	note.Metadata.Subfolder = latest.Folder
	if d := latest.Date(); !d.IsZero() {
		note.Metadata.Date = d
	}
	if mv := latest.MimeVersion(); mv != "" {
		note.Metadata.MimeVersion = mv
	}
	note.Metadata.New = false
	note.Metadata.Edited = false

	return e.Store.Update(ctx, note)
}

func (e *Executor) deleteRemote(ctx context.Context, a Action) error {
	if err := e.Mail.DeleteMessages(ctx, a.Remote); err != nil {
		return fmt.Errorf("deleting remote revisions: %w", err)
	}
	return e.Store.Delete(ctx, a.UUID)
}

// merge appends the remote revision next to the local edit, leaving the
// note in the needs-merge state.
func (e *Executor) merge(ctx context.Context, a Action) error {
	bodies, err := e.fetchBodies(ctx, a.UUID, a.Remote)
	if err != nil {
		return err
	}
	for _, b := range bodies {
		if err := e.Store.AppendBody(ctx, b); err != nil {
			return fmt.Errorf("appending remote revision: %w", err)
		}
	}

	if e.Resolve != nil {
		if err := e.Resolve(ctx, a.UUID); err != nil {
			log.Printf("[sync] merge of %s left pending: %v", a.UUID, err)
		}
	}
	return nil
}

// fetchBodies downloads every revision in the group. Nothing is returned
// unless all of them succeed.
func (e *Executor) fetchBodies(
	ctx context.Context,
	uuid string,
	remote model.RemoteNoteHeaderCollection,
) ([]model.Body, error) {
	bodies := make([]model.Body, 0, len(remote))
	for _, r := range remote {
		html, err := e.Mail.FetchNoteContent(ctx, r.Folder, r.UID)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", r.MessageID(), err)
		}
		text, err := convert.HTMLToMarkdown(html)
		if err != nil {
			return nil, err
		}
		bodies = append(bodies, model.Body{
			MessageID:    r.MessageID(),
			Text:         text,
			UID:          r.UID,
			MetadataUUID: uuid,
		})
	}
	return bodies, nil
}

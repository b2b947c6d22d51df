package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/notesync/internal/convert"
	"github.com/nhle/notesync/internal/mail"
	"github.com/nhle/notesync/internal/model"
)

// fakeMail is an in-memory mail.Service. Messages are encoded with the
// real wire codec so headers look exactly like the server's.
type fakeMail struct {
	messages []fakeMessage
	nextUID  uint32

	headersErr error
	failFetch  map[string]bool // by message id
	failAppend bool
	failDelete bool

	appends int
	deletes int
}

type fakeMessage struct {
	meta model.RemoteNoteMetaData
	html string
}

var _ mail.Service = (*fakeMail)(nil)

func newFakeMail() *fakeMail {
	return &fakeMail{failFetch: make(map[string]bool)}
}

func (f *fakeMail) FetchHeaders(_ context.Context) ([]model.RemoteNoteMetaData, error) {
	if f.headersErr != nil {
		return nil, f.headersErr
	}
	out := make([]model.RemoteNoteMetaData, 0, len(f.messages))
	for _, m := range f.messages {
		out = append(out, m.meta)
	}
	return out, nil
}

func (f *fakeMail) FetchNoteContent(_ context.Context, folder string, uid uint32) (string, error) {
	for _, m := range f.messages {
		if m.meta.Folder == folder && m.meta.UID == uid {
			if f.failFetch[m.meta.MessageID()] {
				return "", errors.New("connection reset")
			}
			return m.html, nil
		}
	}
	return "", fmt.Errorf("message UID %d not found in %s", uid, folder)
}

func (f *fakeMail) AppendNote(_ context.Context, note model.Note, html string) (uint32, error) {
	if f.failAppend {
		return 0, errors.New("append rejected")
	}
	raw, err := mail.BuildMessage(mail.EnvelopeFor(note, "Me <me@example.com>"), html)
	if err != nil {
		return 0, err
	}
	fields, err := mail.ParseHeaders(raw)
	if err != nil {
		return 0, err
	}

	folder := note.Metadata.Subfolder
	if folder == "" {
		folder = model.DefaultFolder
	}
	f.nextUID++
	f.appends++
	f.messages = append(f.messages, fakeMessage{
		meta: model.RemoteNoteMetaData{Headers: fields, Folder: folder, UID: f.nextUID},
		html: html,
	})
	return f.nextUID, nil
}

func (f *fakeMail) DeleteMessages(_ context.Context, messages []model.RemoteNoteMetaData) error {
	if f.failDelete {
		return errors.New("expunge rejected")
	}
	drop := make(map[string]bool)
	for _, m := range messages {
		drop[fmt.Sprintf("%s/%d", m.Folder, m.UID)] = true
	}
	kept := f.messages[:0]
	for _, m := range f.messages {
		if drop[fmt.Sprintf("%s/%d", m.meta.Folder, m.meta.UID)] {
			f.deletes++
			continue
		}
		kept = append(kept, m)
	}
	f.messages = kept
	return nil
}

// put simulates another device writing a revision of uuid.
func (f *fakeMail) put(uuid, messageID, text string, date time.Time) {
	html, err := convert.MarkdownToHTML(text)
	if err != nil {
		panic(err)
	}
	note := model.Note{
		Metadata: model.Metadata{UUID: uuid, Subfolder: model.DefaultFolder, Date: date},
		Bodies:   []model.Body{{MessageID: messageID, Text: text}},
	}
	if _, err := f.AppendNote(context.Background(), note, html); err != nil {
		panic(err)
	}
}

// replace simulates another device editing uuid: every existing revision
// is removed and a new one written.
func (f *fakeMail) replace(uuid, messageID, text string, date time.Time) {
	var old []model.RemoteNoteMetaData
	for _, m := range f.messages {
		if m.meta.NoteUUID() == uuid {
			old = append(old, m.meta)
		}
	}
	_ = f.DeleteMessages(context.Background(), old)
	f.put(uuid, messageID, text, date)
}

func (f *fakeMail) messageIDs(uuid string) []string {
	var ids []string
	for _, m := range f.messages {
		if m.meta.NoteUUID() == uuid {
			ids = append(ids, m.meta.MessageID())
		}
	}
	return ids
}

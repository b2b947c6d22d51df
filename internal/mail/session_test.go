package mail

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapserver"
	"github.com/emersion/go-imap/v2/imapserver/imapmemserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notesync/internal/model"
)

const (
	testUser     = "me"
	testPassword = "secret"
)

// newTestServer starts an in-memory IMAP server on a random local port
// and returns a Config that reaches it.
func newTestServer(t *testing.T, folders ...string) Config {
	t.Helper()

	user := imapmemserver.NewUser(testUser, testPassword)
	for _, f := range folders {
		require.NoError(t, user.Create(f, nil))
	}
	mem := imapmemserver.New()
	mem.AddUser(user)

	srv := imapserver.New(&imapserver.Options{
		NewSession: func(*imapserver.Conn) (imapserver.Session, *imapserver.GreetingData, error) {
			return mem.NewSession(), nil, nil
		},
		Caps: imap.CapSet{
			imap.CapIMAP4rev1: {},
			imap.CapIMAP4rev2: {},
		},
		InsecureAuth: true,
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		_ = srv.Serve(ln)
	}()
	t.Cleanup(func() { _ = srv.Close() })

	return Config{
		Address:  ln.Addr().String(),
		Username: testUser,
		Password: testPassword,
		Insecure: true,
		Folder:   model.DefaultFolder,
		From:     "Me <me@example.com>",
	}
}

func dialTest(t *testing.T, cfg Config) *Session {
	t.Helper()
	s, err := Dial(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sessionNote(uuid, messageID, folder, text string) model.Note {
	return model.Note{
		Metadata: model.Metadata{
			UUID:      uuid,
			Subfolder: folder,
			Date:      time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		Bodies: []model.Body{{MessageID: messageID, Text: text}},
	}
}

func TestSession_AppendFetchDelete(t *testing.T) {
	ctx := context.Background()
	s := dialTest(t, newTestServer(t))

	// The note mailbox does not exist yet and is created on upload.
	note := sessionNote("N1", "<N1@example.com>", "", "# Groceries")
	uid, err := s.AppendNote(ctx, note, "<h1>Groceries</h1>")
	require.NoError(t, err)
	assert.NotZero(t, uid)

	headers, err := s.FetchHeaders(ctx)
	require.NoError(t, err)
	require.Len(t, headers, 1)
	assert.Equal(t, model.DefaultFolder, headers[0].Folder)
	assert.Equal(t, uid, headers[0].UID)
	assert.Equal(t, "<N1@example.com>", headers[0].MessageID())
	assert.Equal(t, "N1", headers[0].NoteUUID())

	body, err := s.FetchNoteContent(ctx, model.DefaultFolder, uid)
	require.NoError(t, err)
	assert.Contains(t, body, "<h1>Groceries</h1>")

	require.NoError(t, s.DeleteMessages(ctx, headers))
	headers, err = s.FetchHeaders(ctx)
	require.NoError(t, err)
	assert.Empty(t, headers)
}

func TestSession_ListsNoteSubfolders(t *testing.T) {
	ctx := context.Background()
	s := dialTest(t, newTestServer(t, "INBOX", "Notes", "Notes/Work"))

	for _, n := range []model.Note{
		sessionNote("A", "<A@example.com>", "Notes", "# A"),
		sessionNote("B", "<B@example.com>", "Notes/Work", "# B"),
		sessionNote("C", "<C@example.com>", "INBOX", "# C"),
	} {
		_, err := s.AppendNote(ctx, n, "<p>x</p>")
		require.NoError(t, err)
	}

	headers, err := s.FetchHeaders(ctx)
	require.NoError(t, err)
	folders := make(map[string]string)
	for _, h := range headers {
		folders[h.NoteUUID()] = h.Folder
	}
	assert.Equal(t, map[string]string{"A": "Notes", "B": "Notes/Work"}, folders)
}

func TestSession_DeleteWithoutUIDSearchesMessageID(t *testing.T) {
	ctx := context.Background()
	s := dialTest(t, newTestServer(t))

	keep := sessionNote("K", "<K@example.com>", "", "# Keep")
	drop := sessionNote("D", "<D@example.com>", "", "# Drop")
	_, err := s.AppendNote(ctx, keep, "<p>keep</p>")
	require.NoError(t, err)
	_, err = s.AppendNote(ctx, drop, "<p>drop</p>")
	require.NoError(t, err)

	raw, err := BuildMessage(EnvelopeFor(drop, "Me <me@example.com>"), "<p>drop</p>")
	require.NoError(t, err)
	fields, err := ParseHeaders(raw)
	require.NoError(t, err)

	err = s.DeleteMessages(ctx, []model.RemoteNoteMetaData{
		{Headers: fields, Folder: model.DefaultFolder},
	})
	require.NoError(t, err)

	headers, err := s.FetchHeaders(ctx)
	require.NoError(t, err)
	require.Len(t, headers, 1)
	assert.Equal(t, "<K@example.com>", headers[0].MessageID())
}

func TestDial_WrongPassword(t *testing.T) {
	cfg := newTestServer(t)
	cfg.Password = "nope"

	_, err := Dial(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
}

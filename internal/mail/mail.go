// Package mail talks to the IMAP server that holds the remote copy of the
// notes. Every note revision is one message; its folder is the note's
// subfolder.
package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/notesync/internal/model"
)

// Service is the remote side of a sync pass.
type Service interface {
	// FetchHeaders returns the headers of every live message in the note
	// folder and its subfolders.
	FetchHeaders(ctx context.Context) ([]model.RemoteNoteMetaData, error)

	// FetchNoteContent returns the decoded HTML body of one message.
	FetchNoteContent(ctx context.Context, folder string, uid uint32) (string, error)

	// AppendNote uploads the first body of note as a new message in the
	// note's subfolder, rendered as html, and returns its UID.
	AppendNote(ctx context.Context, note model.Note, html string) (uint32, error)

	// DeleteMessages flags the given messages deleted and expunges them.
	DeleteMessages(ctx context.Context, messages []model.RemoteNoteMetaData) error
}

// AuthError indicates that the IMAP server rejected the credentials.
type AuthError struct {
	Username string
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (imap): %s", e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

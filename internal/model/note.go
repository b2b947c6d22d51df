package model

import (
	"io"
	"mime/quotedprintable"
	"sort"
	"strings"
	"time"
)

// DefaultMimeVersion is the Mime-Version header value written on every
// uploaded note revision.
const DefaultMimeVersion = `1.0 (Mac OS X Notes 4.6 \(879.10\))`

// DefaultFolder is the remote mailbox new notes are uploaded to.
const DefaultFolder = "Notes"

// Metadata holds the per-note state shared by all of its bodies.
type Metadata struct {
	// UUID is minted at creation and never changes.
	UUID string

	// Subfolder is the remote mailbox path, verbatim as the server sent it.
	Subfolder string

	// LocallyDeleted is the tombstone flag.
	LocallyDeleted bool

	// New marks notes that have never been uploaded.
	New bool

	// Edited marks notes changed locally since the last successful sync.
	Edited bool

	// Date is the last-known modification time.
	Date time.Time

	MimeVersion string
}

// Body is one revision of a note's content.
type Body struct {
	// MessageID identifies this revision; it changes on every edit.
	MessageID string

	// Text is the Markdown content.
	Text string

	// UID is the IMAP UID of this revision on the server, or 0 when the
	// revision has not been uploaded.
	UID uint32

	// MetadataUUID references the owning note.
	MetadataUUID string

	// OldRemoteMessageID is a comma-separated list of message ids this
	// revision supersedes. Empty once the remote has acknowledged it.
	OldRemoteMessageID string
}

// Supersedes splits OldRemoteMessageID into its message ids.
func (b Body) Supersedes() []string {
	return SplitMessageIDs(b.OldRemoteMessageID)
}

// HasOldRemote reports whether this revision is an unsynced local edit.
func (b Body) HasOldRemote() bool {
	return strings.TrimSpace(b.OldRemoteMessageID) != ""
}

// Note couples a note's metadata with its bodies. A note with more than
// one body has diverged and needs a merge.
type Note struct {
	Metadata Metadata
	Bodies   []Body
}

// UUID returns the note identity.
func (n Note) UUID() string {
	return n.Metadata.UUID
}

// NeedsMerge reports whether the note carries concurrent revisions.
func (n Note) NeedsMerge() bool {
	return len(n.Bodies) > 1
}

// FirstBody returns the first body, or the zero Body for a note without
// any.
func (n Note) FirstBody() Body {
	if len(n.Bodies) == 0 {
		return Body{}
	}
	return n.Bodies[0]
}

// MessageIDs returns the message ids of all bodies, sorted.
func (n Note) MessageIDs() []string {
	ids := make([]string, 0, len(n.Bodies))
	for _, b := range n.Bodies {
		ids = append(ids, b.MessageID)
	}
	sort.Strings(ids)
	return ids
}

// SortedBodies returns a copy of the bodies ordered by message id.
func (n Note) SortedBodies() []Body {
	out := make([]Body, len(n.Bodies))
	copy(out, n.Bodies)
	sort.Slice(out, func(i, j int) bool {
		return out[i].MessageID < out[j].MessageID
	})
	return out
}

// Subject derives the note title from the first non-empty line of the
// first body, without Markdown heading markers.
func (n Note) Subject() string {
	return SubjectFromText(n.FirstBody().Text)
}

// Folder returns the display form of the note's subfolder.
func (n Note) Folder() string {
	return DisplayFolder(n.Metadata.Subfolder)
}

// State classifies the note for display and for reasoning about sync.
func (n Note) State() NoteState {
	switch {
	case n.Metadata.LocallyDeleted:
		return StateLocallyDeleted
	case n.NeedsMerge():
		return StateNeedsMerge
	case n.Metadata.New:
		return StateLocalNew
	case n.Metadata.Edited || n.FirstBody().HasOldRemote():
		return StateLocallyEdited
	default:
		return StateSyncedClean
	}
}

// NoteState is the per-note sync state.
type NoteState string

const (
	StateSyncedClean    NoteState = "synced"
	StateLocalNew       NoteState = "new"
	StateLocallyEdited  NoteState = "edited"
	StateLocallyDeleted NoteState = "deleted"
	StateNeedsMerge     NoteState = "needs merge"
)

// SubjectFromText returns the first non-empty line of text with leading
// '#' markers and surrounding whitespace removed.
func SubjectFromText(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimLeft(line, "#"))
		if line != "" {
			return line
		}
	}
	return ""
}

// SplitMessageIDs parses a comma-separated message id list, dropping
// empty entries.
func SplitMessageIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		id = strings.TrimSpace(id)
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// JoinMessageIDs sorts and de-duplicates ids and joins them with commas.
func JoinMessageIDs(ids []string) string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

// DisplayFolder decodes a quoted-printable folder path for display.
// Undecodable input is returned unchanged.
func DisplayFolder(raw string) string {
	decoded, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(raw)))
	if err != nil {
		return raw
	}
	return string(decoded)
}

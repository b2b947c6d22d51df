package model

import (
	"net/mail"
	"sort"
	"strings"
	"time"
)

// Header names carried by every note message.
const (
	HeaderUUID           = "X-Universally-Unique-Identifier"
	HeaderMessageID      = "Message-Id"
	HeaderSubject        = "Subject"
	HeaderDate           = "Date"
	HeaderMimeVersion    = "Mime-Version"
	HeaderTypeIdentifier = "X-Uniform-Type-Identifier"
	HeaderCreatedDate    = "X-Mail-Created-Date"
	HeaderFrom           = "From"
)

// NoteTypeIdentifier is the X-Uniform-Type-Identifier of note messages.
const NoteTypeIdentifier = "com.apple.mail-note"

// HeaderField is a single header key/value pair.
type HeaderField struct {
	Key   string
	Value string
}

// RemoteNoteMetaData is the header view of one message on the server.
type RemoteNoteMetaData struct {
	// Headers preserves the order the server returned them in.
	Headers []HeaderField
	Folder  string
	UID     uint32
}

// Header returns the first value for key, matched case-insensitively.
func (r RemoteNoteMetaData) Header(key string) string {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Key, key) {
			return h.Value
		}
	}
	return ""
}

// NoteUUID returns the X-Universally-Unique-Identifier header.
func (r RemoteNoteMetaData) NoteUUID() string {
	return strings.TrimSpace(r.Header(HeaderUUID))
}

// MessageID returns the Message-Id header.
func (r RemoteNoteMetaData) MessageID() string {
	return strings.TrimSpace(r.Header(HeaderMessageID))
}

// Subject returns the Subject header.
func (r RemoteNoteMetaData) Subject() string {
	return r.Header(HeaderSubject)
}

// MimeVersion returns the Mime-Version header.
func (r RemoteNoteMetaData) MimeVersion() string {
	return r.Header(HeaderMimeVersion)
}

// Date parses the Date header. The zero time is returned when the header
// is missing or malformed.
func (r RemoteNoteMetaData) Date() time.Time {
	t, err := mail.ParseDate(r.Header(HeaderDate))
	if err != nil {
		return time.Time{}
	}
	return t
}

// RemoteNoteHeaderCollection is every remote message sharing one note
// UUID. More than one entry means the remote carries concurrent revisions.
type RemoteNoteHeaderCollection []RemoteNoteMetaData

// UUID returns the note UUID shared by the collection.
func (c RemoteNoteHeaderCollection) UUID() string {
	if len(c) == 0 {
		return ""
	}
	return c[0].NoteUUID()
}

// MessageIDs returns the sorted message ids of the collection.
func (c RemoteNoteHeaderCollection) MessageIDs() []string {
	ids := make([]string, 0, len(c))
	for _, r := range c {
		ids = append(ids, r.MessageID())
	}
	sort.Strings(ids)
	return ids
}

// SingleMessageID returns the message id when the collection holds exactly
// one message with a non-empty id.
func (c RemoteNoteHeaderCollection) SingleMessageID() (string, bool) {
	if len(c) != 1 {
		return "", false
	}
	id := c[0].MessageID()
	return id, id != ""
}

// Contains reports whether messageID is one of the collection's ids.
func (c RemoteNoteHeaderCollection) Contains(messageID string) bool {
	for _, r := range c {
		if r.MessageID() == messageID {
			return true
		}
	}
	return false
}

// Latest returns the entry with the most recent Date header. Ties keep
// the earlier entry.
func (c RemoteNoteHeaderCollection) Latest() RemoteNoteMetaData {
	var latest RemoteNoteMetaData
	for i, r := range c {
		if i == 0 || r.Date().After(latest.Date()) {
			latest = r
		}
	}
	return latest
}

// Subject returns the subject of the most recent entry.
func (c RemoteNoteHeaderCollection) Subject() string {
	return c.Latest().Subject()
}

// GroupedRemoteNoteHeaders maps note UUIDs to their remote collections.
type GroupedRemoteNoteHeaders map[string]RemoteNoteHeaderCollection

// UUIDs returns the group keys, sorted.
func (g GroupedRemoteNoteHeaders) UUIDs() []string {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BySize returns the groups ordered by descending size, then UUID.
func (g GroupedRemoteNoteHeaders) BySize() []RemoteNoteHeaderCollection {
	out := make([]RemoteNoteHeaderCollection, 0, len(g))
	for _, k := range g.UUIDs() {
		out = append(out, g[k])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i]) > len(out[j])
	})
	return out
}

// Group collapses remote headers by note UUID. Messages without a UUID
// header are not notes and are dropped. Each group is ordered by message
// id so the result does not depend on input order.
func Group(headers []RemoteNoteMetaData) GroupedRemoteNoteHeaders {
	grouped := make(GroupedRemoteNoteHeaders)
	for _, h := range headers {
		id := h.NoteUUID()
		if id == "" {
			continue
		}
		grouped[id] = append(grouped[id], h)
	}
	for _, c := range grouped {
		sort.SliceStable(c, func(i, j int) bool {
			if c[i].MessageID() != c[j].MessageID() {
				return c[i].MessageID() < c[j].MessageID()
			}
			if c[i].Folder != c[j].Folder {
				return c[i].Folder < c[j].Folder
			}
			return c[i].UID < c[j].UID
		})
	}
	return grouped
}

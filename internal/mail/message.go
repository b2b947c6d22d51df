package mail

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/textproto"

	"github.com/nhle/notesync/internal/model"
)

// dateLayout is the RFC 2822 form used for Date and X-Mail-Created-Date.
const dateLayout = time.RFC1123Z

// Envelope carries the per-revision values written into an uploaded note.
type Envelope struct {
	From        string
	MessageID   string
	UUID        string
	Subject     string
	Date        time.Time
	MimeVersion string
}

// EnvelopeFor builds the upload envelope for the first body of note.
func EnvelopeFor(note model.Note, from string) Envelope {
	date := note.Metadata.Date
	if date.IsZero() {
		date = time.Now()
	}
	mimeVersion := note.Metadata.MimeVersion
	if mimeVersion == "" {
		mimeVersion = model.DefaultMimeVersion
	}
	return Envelope{
		From:        from,
		MessageID:   note.FirstBody().MessageID,
		UUID:        note.UUID(),
		Subject:     note.Subject(),
		Date:        date,
		MimeVersion: mimeVersion,
	}
}

// WriteMessage writes a complete note message with an HTML body to w.
// Header fields go out in the order Apple Notes writes them.
func WriteMessage(w io.Writer, env Envelope, html string) error {
	var h message.Header

	// textproto writes fields in reverse insertion order.
	h.SetText(model.HeaderSubject, env.Subject)
	h.Add(model.HeaderUUID, env.UUID)
	h.Add(model.HeaderMessageID, env.MessageID)
	h.Add(model.HeaderFrom, env.From)
	h.Add(model.HeaderCreatedDate, env.Date.Format(dateLayout))
	h.Add(model.HeaderDate, env.Date.Format(dateLayout))
	h.Add(model.HeaderMimeVersion, env.MimeVersion)
	h.Add("Content-Transfer-Encoding", "quoted-printable")
	h.Add("Content-Type", "text/html; charset=utf-8")
	h.Add(model.HeaderTypeIdentifier, model.NoteTypeIdentifier)

	mw, err := message.CreateWriter(w, h)
	if err != nil {
		return fmt.Errorf("creating message writer: %w", err)
	}
	if _, err := io.WriteString(mw, html); err != nil {
		return fmt.Errorf("writing message body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("closing message writer: %w", err)
	}
	return nil
}

// BuildMessage returns the encoded message as bytes.
func BuildMessage(env Envelope, html string) ([]byte, error) {
	var b bytes.Buffer
	if err := WriteMessage(&b, env, html); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// ParseHeaders turns a raw header block into fields in wire order.
// Encoded words are decoded where possible.
func ParseHeaders(raw []byte) ([]model.HeaderField, error) {
	th, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	h := message.Header{Header: th}
	var fields []model.HeaderField
	for f := h.Fields(); f.Next(); {
		value, err := f.Text()
		if err != nil {
			value = f.Value()
		}
		fields = append(fields, model.HeaderField{Key: f.Key(), Value: value})
	}
	return fields, nil
}

// ParseBody extracts the HTML (or plain text) body of a raw message,
// undoing its transfer encoding.
func ParseBody(raw []byte) (string, error) {
	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return "", fmt.Errorf("parsing message: %w", err)
	}

	var body string
	found := false
	walkErr := entity.Walk(func(_ []int, part *message.Entity, err error) error {
		if found || err != nil {
			return nil
		}
		mediaType, _, _ := part.Header.ContentType()
		if mediaType != "" && !strings.HasPrefix(mediaType, "text/") {
			return nil
		}
		b, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			return fmt.Errorf("reading body: %w", readErr)
		}
		body = string(b)
		found = mediaType == "text/html"
		return nil
	})
	if walkErr != nil {
		return "", fmt.Errorf("walking message: %w", walkErr)
	}
	return body, nil
}

package mail

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/notesync/internal/model"
)

// Config holds what a Session needs to reach the server.
type Config struct {
	Address  string // host:port
	Username string
	Password string
	// StartTLS upgrades a plain connection instead of dialing TLS.
	StartTLS bool
	// Insecure skips TLS entirely. Only for servers on a trusted local
	// link, such as a mail bridge on localhost.
	Insecure bool
	// Folder is the root note mailbox; subfolders are matched by prefix.
	Folder string
	// From is written into the From header of uploaded notes.
	From string
}

// ConfigFromProfile maps a profile and its resolved password to a Config.
func ConfigFromProfile(p *model.Profile, password string) Config {
	folder := p.Folder
	if folder == "" {
		folder = model.DefaultFolder
	}
	return Config{
		Address:  p.Address(),
		Username: p.Username,
		Password: password,
		StartTLS: p.IMAPPort == 143,
		Insecure: p.IMAPInsecure,
		Folder:   folder,
		From:     p.Email,
	}
}

// Session is one authenticated IMAP connection. It is not safe for
// concurrent use; a sync pass opens one and closes it when done.
type Session struct {
	cfg    Config
	client *imapclient.Client

	// mailboxes caches the names seen by the last LIST.
	mailboxes map[string]bool
	// selected is the currently selected mailbox and whether it is
	// read-only.
	selected string
	readOnly bool
}

var _ Service = (*Session)(nil)

// Dial connects, authenticates and returns a ready Session. The caller
// must Close it.
func Dial(ctx context.Context, cfg Config) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var client *imapclient.Client
	var err error

	switch {
	case cfg.Insecure:
		client, err = imapclient.DialInsecure(cfg.Address, nil)
	case cfg.StartTLS:
		client, err = imapclient.DialStartTLS(cfg.Address, nil)
	default:
		client, err = imapclient.DialTLS(cfg.Address, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", cfg.Address, err)
	}

	if err := client.Login(cfg.Username, cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &AuthError{
			Username: cfg.Username,
			Message: fmt.Sprintf(
				"authentication failed for %s: %v",
				cfg.Username, err,
			),
		}
	}

	log.Printf("[imap] connected to %s as %s", cfg.Address, cfg.Username)
	return &Session{cfg: cfg, client: client, mailboxes: make(map[string]bool)}, nil
}

// Close logs out and releases the connection.
func (s *Session) Close() error {
	if err := s.client.Logout().Wait(); err != nil {
		_ = s.client.Close()
		return fmt.Errorf("logging out: %w", err)
	}
	return nil
}

// FetchHeaders lists the note mailboxes and returns the header block of
// every message not flagged deleted.
func (s *Session) FetchHeaders(ctx context.Context) ([]model.RemoteNoteMetaData, error) {
	folders, err := s.listFolders()
	if err != nil {
		return nil, err
	}

	var out []model.RemoteNoteMetaData
	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		headers, err := s.fetchFolderHeaders(folder)
		if err != nil {
			return nil, err
		}
		log.Printf("[imap] %d messages in %s", len(headers), folder)
		out = append(out, headers...)
	}
	return out, nil
}

// FetchNoteContent downloads the full message and returns its body.
func (s *Session) FetchNoteContent(ctx context.Context, folder string, uid uint32) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.selectMailbox(folder, true); err != nil {
		return "", err
	}

	section := &imap.FetchItemBodySection{Peek: true}
	msgs, err := s.client.Fetch(imap.UIDSetNum(imap.UID(uid)), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	}).Collect()
	if err != nil {
		return "", fmt.Errorf("fetching message %d in %s: %w", uid, folder, err)
	}
	if len(msgs) == 0 {
		return "", fmt.Errorf("message UID %d not found in %s", uid, folder)
	}

	raw := msgs[0].FindBodySection(section)
	if raw == nil {
		return "", fmt.Errorf("message UID %d in %s has no body", uid, folder)
	}
	return ParseBody(raw)
}

// AppendNote uploads the note's first body and returns the new UID.
func (s *Session) AppendNote(ctx context.Context, note model.Note, html string) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	folder := note.Metadata.Subfolder
	if folder == "" {
		folder = s.cfg.Folder
	}
	if err := s.ensureMailbox(folder); err != nil {
		return 0, err
	}

	env := EnvelopeFor(note, s.cfg.From)
	raw, err := BuildMessage(env, html)
	if err != nil {
		return 0, err
	}

	cmd := s.client.Append(folder, int64(len(raw)), &imap.AppendOptions{
		Flags: []imap.Flag{imap.FlagSeen},
		Time:  env.Date,
	})
	if _, err := cmd.Write(raw); err != nil {
		return 0, fmt.Errorf("writing message to %s: %w", folder, err)
	}
	if err := cmd.Close(); err != nil {
		return 0, fmt.Errorf("closing append to %s: %w", folder, err)
	}
	data, err := cmd.Wait()
	if err != nil {
		return 0, fmt.Errorf("appending to %s: %w", folder, err)
	}
	if data != nil && data.UID != 0 {
		return uint32(data.UID), nil
	}

	// Servers without UIDPLUS do not report the UID; look it up.
	return s.searchMessageID(folder, env.MessageID)
}

// DeleteMessages flags the messages \Seen and \Deleted, then expunges
// each touched folder.
func (s *Session) DeleteMessages(ctx context.Context, messages []model.RemoteNoteMetaData) error {
	byFolder := make(map[string][]model.RemoteNoteMetaData)
	var order []string
	for _, m := range messages {
		if _, ok := byFolder[m.Folder]; !ok {
			order = append(order, m.Folder)
		}
		byFolder[m.Folder] = append(byFolder[m.Folder], m)
	}

	for _, folder := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.deleteInFolder(folder, byFolder[folder]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) deleteInFolder(folder string, messages []model.RemoteNoteMetaData) error {
	if err := s.selectMailbox(folder, false); err != nil {
		return err
	}

	var uids []imap.UID
	for _, m := range messages {
		uid := m.UID
		if uid == 0 {
			found, err := s.searchMessageID(folder, m.MessageID())
			if err != nil {
				return err
			}
			uid = found
		}
		uids = append(uids, imap.UID(uid))
	}

	err := s.client.Store(imap.UIDSetNum(uids...), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen, imap.FlagDeleted},
	}, nil).Close()
	if err != nil {
		return fmt.Errorf("flagging %d messages in %s: %w", len(uids), folder, err)
	}

	if err := s.client.Expunge().Close(); err != nil {
		return fmt.Errorf("expunging %s: %w", folder, err)
	}
	log.Printf("[imap] deleted %d messages in %s", len(uids), folder)
	return nil
}

// listFolders returns the note folder and its subfolders.
func (s *Session) listFolders() ([]string, error) {
	list, err := s.client.List("", s.cfg.Folder+"*", nil).Collect()
	if err != nil {
		return nil, fmt.Errorf("listing mailboxes: %w", err)
	}

	s.mailboxes = make(map[string]bool, len(list))
	var folders []string
	for _, data := range list {
		s.mailboxes[data.Mailbox] = true
		if hasAttr(data.Attrs, imap.MailboxAttrNoSelect) {
			continue
		}
		folders = append(folders, data.Mailbox)
	}
	return folders, nil
}

func (s *Session) fetchFolderHeaders(folder string) ([]model.RemoteNoteMetaData, error) {
	if err := s.selectMailbox(folder, true); err != nil {
		return nil, err
	}

	searchData, err := s.client.UIDSearch(&imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagDeleted},
	}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", folder, err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	section := &imap.FetchItemBodySection{
		Specifier: imap.PartSpecifierHeader,
		Peek:      true,
	}
	msgs, err := s.client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	}).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetching headers in %s: %w", folder, err)
	}

	out := make([]model.RemoteNoteMetaData, 0, len(msgs))
	for _, buf := range msgs {
		raw := buf.FindBodySection(section)
		if raw == nil {
			continue
		}
		fields, err := ParseHeaders(raw)
		if err != nil {
			log.Printf("[imap] skipping UID %d in %s: %v", buf.UID, folder, err)
			continue
		}
		out = append(out, model.RemoteNoteMetaData{
			Headers: fields,
			Folder:  folder,
			UID:     uint32(buf.UID),
		})
	}
	return out, nil
}

// ensureMailbox creates folder unless it is known to exist.
func (s *Session) ensureMailbox(folder string) error {
	if s.mailboxes[folder] {
		return nil
	}
	if err := s.client.Create(folder, nil).Wait(); err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("creating mailbox %s: %w", folder, err)
	}
	s.mailboxes[folder] = true
	return nil
}

func (s *Session) selectMailbox(folder string, readOnly bool) error {
	if s.selected == folder && (readOnly || !s.readOnly) {
		return nil
	}
	_, err := s.client.Select(folder, &imap.SelectOptions{ReadOnly: readOnly}).Wait()
	if err != nil {
		s.selected = ""
		return fmt.Errorf("selecting %s: %w", folder, err)
	}
	s.selected = folder
	s.readOnly = readOnly
	return nil
}

func (s *Session) searchMessageID(folder, messageID string) (uint32, error) {
	if err := s.selectMailbox(folder, true); err != nil {
		return 0, err
	}
	data, err := s.client.UIDSearch(&imap.SearchCriteria{
		Header: []imap.SearchCriteriaHeaderField{
			{Key: model.HeaderMessageID, Value: messageID},
		},
	}, nil).Wait()
	if err != nil {
		return 0, fmt.Errorf("searching %s for %s: %w", folder, messageID, err)
	}
	uids := data.AllUIDs()
	if len(uids) == 0 {
		return 0, fmt.Errorf("message %s not found in %s", messageID, folder)
	}
	return uint32(uids[len(uids)-1]), nil
}

func hasAttr(attrs []imap.MailboxAttr, want imap.MailboxAttr) bool {
	for _, a := range attrs {
		if strings.EqualFold(string(a), string(want)) {
			return true
		}
	}
	return false
}

// isAlreadyExists reports whether a CREATE failed because the mailbox is
// already there.
func isAlreadyExists(err error) bool {
	var imapErr *imap.Error
	if errors.As(err, &imapErr) && imapErr.Code == imap.ResponseCodeAlreadyExists {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "exists")
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/notesync/internal/model"
)

// dateLayout is the RFC-2822 layout dates are persisted in.
const dateLayout = time.RFC1123Z

var (
	metadataColumns = []string{
		"uuid", "subfolder", "locally_deleted", `"new"`, "edited", "date", "mime_version",
	}
	bodyColumns = []string{
		"message_id", "text", "uid", "old_remote_message_id", "metadata_uuid",
	}
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)

// metadataRow mirrors one row of the metadata table.
type metadataRow struct {
	UUID           string `db:"uuid"`
	Subfolder      string `db:"subfolder"`
	LocallyDeleted bool   `db:"locally_deleted"`
	New            bool   `db:"new"`
	Edited         bool   `db:"edited"`
	Date           string `db:"date"`
	MimeVersion    string `db:"mime_version"`
}

// bodyRow mirrors one row of the body table.
type bodyRow struct {
	MessageID          string         `db:"message_id"`
	Text               string         `db:"text"`
	UID                sql.NullInt64  `db:"uid"`
	OldRemoteMessageID sql.NullString `db:"old_remote_message_id"`
	MetadataUUID       string         `db:"metadata_uuid"`
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// A single connection serializes writes and keeps ":memory:" databases
	// on one handle.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// FetchAllNotes returns every note with its bodies, ordered by UUID.
func (s *SQLiteStore) FetchAllNotes(ctx context.Context) ([]model.Note, error) {
	q := sq.Select(metadataColumns...).From("metadata").OrderBy("uuid")
	notes, err := loadNotes(ctx, s.db, q)
	if err != nil {
		return nil, fmt.Errorf("fetching all notes: %w", err)
	}
	return notes, nil
}

// FetchSingle returns one note by UUID.
func (s *SQLiteStore) FetchSingle(ctx context.Context, uuid string) (*model.Note, error) {
	q := sq.Select(metadataColumns...).From("metadata").Where(sq.Eq{"uuid": uuid})
	notes, err := loadNotes(ctx, s.db, q)
	if err != nil {
		return nil, fmt.Errorf("fetching note %s: %w", uuid, err)
	}
	if len(notes) == 0 {
		return nil, fmt.Errorf("fetching note %s: %w", uuid, ErrNotFound)
	}
	return &notes[0], nil
}

// FetchSingleByName returns the most recent note whose title starts with
// prefix, ignoring case.
func (s *SQLiteStore) FetchSingleByName(ctx context.Context, prefix string) (*model.Note, error) {
	notes, err := s.ListNotes(ctx, NoteFilter{})
	if err != nil {
		return nil, err
	}

	want := strings.ToLower(strings.TrimSpace(prefix))
	for i := range notes {
		if strings.HasPrefix(strings.ToLower(notes[i].Subject()), want) {
			return &notes[i], nil
		}
	}
	return nil, fmt.Errorf("fetching note named %q: %w", prefix, ErrNotFound)
}

// ListNotes returns notes matching filter, most recent first.
func (s *SQLiteStore) ListNotes(ctx context.Context, filter NoteFilter) ([]model.Note, error) {
	q := sq.Select(metadataColumns...).From("metadata").OrderBy("uuid")
	if filter.Deleted != nil {
		q = q.Where(sq.Eq{"locally_deleted": boolToInt(*filter.Deleted)})
	}
	if filter.Subfolder != nil {
		q = q.Where(sq.Eq{"subfolder": *filter.Subfolder})
	}

	notes, err := loadNotes(ctx, s.db, q)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}

	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].Metadata.Date.After(notes[j].Metadata.Date)
	})
	return notes, nil
}

// Insert adds a new note and its bodies in one transaction.
func (s *SQLiteStore) Insert(ctx context.Context, note model.Note) error {
	if len(note.Bodies) == 0 {
		return fmt.Errorf("inserting note %s: %w", note.UUID(), ErrNoBodies)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	exists, err := metadataExists(ctx, tx, note.UUID())
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("inserting note %s: %w", note.UUID(), ErrAlreadyExists)
	}

	m := toMetadataRow(note.Metadata)
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO metadata (
			uuid, subfolder, locally_deleted, "new", edited, date, mime_version
		) VALUES (
			:uuid, :subfolder, :locally_deleted, :new, :edited, :date, :mime_version
		)`, m)
	if err != nil {
		return fmt.Errorf("inserting metadata %s: %w", note.UUID(), err)
	}

	if err := insertBodies(ctx, tx, note.UUID(), note.Bodies); err != nil {
		return err
	}

	return tx.Commit()
}

// Update replaces a note's metadata and its full body set atomically.
func (s *SQLiteStore) Update(ctx context.Context, note model.Note) error {
	if len(note.Bodies) == 0 {
		return fmt.Errorf("updating note %s: %w", note.UUID(), ErrNoBodies)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	m := toMetadataRow(note.Metadata)
	result, err := tx.NamedExecContext(ctx, `
		UPDATE metadata SET
			subfolder = :subfolder, locally_deleted = :locally_deleted,
			"new" = :new, edited = :edited, date = :date,
			mime_version = :mime_version
		WHERE uuid = :uuid`, m)
	if err != nil {
		return fmt.Errorf("updating metadata %s: %w", note.UUID(), err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("updating note %s: %w", note.UUID(), ErrNotFound)
	}

	if err := swapBodies(ctx, tx, note.UUID(), note.Bodies); err != nil {
		return err
	}

	return tx.Commit()
}

// ReplaceBodies swaps all bodies of one note atomically.
func (s *SQLiteStore) ReplaceBodies(ctx context.Context, uuid string, bodies []model.Body) error {
	if len(bodies) == 0 {
		return fmt.Errorf("replacing bodies of %s: %w", uuid, ErrNoBodies)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	exists, err := metadataExists(ctx, tx, uuid)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("replacing bodies of %s: %w", uuid, ErrNotFound)
	}

	if err := swapBodies(ctx, tx, uuid, bodies); err != nil {
		return err
	}

	return tx.Commit()
}

// AppendBody adds a body to an existing note.
func (s *SQLiteStore) AppendBody(ctx context.Context, body model.Body) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	exists, err := metadataExists(ctx, tx, body.MetadataUUID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("appending body to %s: %w", body.MetadataUUID, ErrNotFound)
	}

	if err := insertBodies(ctx, tx, body.MetadataUUID, []model.Body{body}); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes a note. Bodies go with it through the foreign key
// cascade.
func (s *SQLiteStore) Delete(ctx context.Context, uuid string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM metadata WHERE uuid = ?", uuid)
	if err != nil {
		return fmt.Errorf("deleting note %s: %w", uuid, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("deleting note %s: %w", uuid, ErrNotFound)
	}
	return nil
}

// loadNotes runs the metadata query and attaches each note's bodies.
func loadNotes(
	ctx context.Context,
	q sqlx.QueryerContext,
	metaQuery sq.SelectBuilder,
) ([]model.Note, error) {
	query, args, err := metaQuery.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building metadata query: %w", err)
	}

	var metas []metadataRow
	if err := sqlx.SelectContext(ctx, q, &metas, query, args...); err != nil {
		return nil, fmt.Errorf("querying metadata: %w", err)
	}
	if len(metas) == 0 {
		return nil, nil
	}

	uuids := make([]string, 0, len(metas))
	for _, m := range metas {
		uuids = append(uuids, m.UUID)
	}

	query, args, err = sq.Select(bodyColumns...).
		From("body").
		Where(sq.Eq{"metadata_uuid": uuids}).
		OrderBy("metadata_uuid", "message_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building body query: %w", err)
	}

	var bodies []bodyRow
	if err := sqlx.SelectContext(ctx, q, &bodies, query, args...); err != nil {
		return nil, fmt.Errorf("querying bodies: %w", err)
	}

	byNote := make(map[string][]model.Body, len(metas))
	for _, b := range bodies {
		byNote[b.MetadataUUID] = append(byNote[b.MetadataUUID], b.toBody())
	}

	notes := make([]model.Note, 0, len(metas))
	for _, m := range metas {
		notes = append(notes, model.Note{
			Metadata: m.toMetadata(),
			Bodies:   byNote[m.UUID],
		})
	}
	return notes, nil
}

func metadataExists(ctx context.Context, tx *sqlx.Tx, uuid string) (bool, error) {
	var count int
	if err := tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM metadata WHERE uuid = ?", uuid); err != nil {
		return false, fmt.Errorf("checking note %s: %w", uuid, err)
	}
	return count > 0, nil
}

// swapBodies deletes every body of uuid and inserts the new set.
func swapBodies(ctx context.Context, tx *sqlx.Tx, uuid string, bodies []model.Body) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM body WHERE metadata_uuid = ?", uuid); err != nil {
		return fmt.Errorf("clearing bodies of %s: %w", uuid, err)
	}
	return insertBodies(ctx, tx, uuid, bodies)
}

func insertBodies(ctx context.Context, tx *sqlx.Tx, uuid string, bodies []model.Body) error {
	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO body (
			message_id, text, uid, old_remote_message_id, metadata_uuid
		) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing body insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range bodies {
		b.MetadataUUID = uuid
		row := toBodyRow(b)
		_, err := stmt.ExecContext(ctx,
			row.MessageID, row.Text, row.UID, row.OldRemoteMessageID, row.MetadataUUID,
		)
		if err != nil {
			return fmt.Errorf("inserting body %s of %s: %w", b.MessageID, uuid, err)
		}
	}
	return nil
}

func toMetadataRow(m model.Metadata) metadataRow {
	date := ""
	if !m.Date.IsZero() {
		date = m.Date.Format(dateLayout)
	}
	return metadataRow{
		UUID:           m.UUID,
		Subfolder:      m.Subfolder,
		LocallyDeleted: m.LocallyDeleted,
		New:            m.New,
		Edited:         m.Edited,
		Date:           date,
		MimeVersion:    m.MimeVersion,
	}
}

func (r metadataRow) toMetadata() model.Metadata {
	var date time.Time
	if r.Date != "" {
		if t, err := time.Parse(dateLayout, r.Date); err == nil {
			date = t
		}
	}
	return model.Metadata{
		UUID:           r.UUID,
		Subfolder:      r.Subfolder,
		LocallyDeleted: r.LocallyDeleted,
		New:            r.New,
		Edited:         r.Edited,
		Date:           date,
		MimeVersion:    r.MimeVersion,
	}
}

func toBodyRow(b model.Body) bodyRow {
	row := bodyRow{
		MessageID:    b.MessageID,
		Text:         b.Text,
		MetadataUUID: b.MetadataUUID,
	}
	if b.UID != 0 {
		row.UID = sql.NullInt64{Int64: int64(b.UID), Valid: true}
	}
	if b.HasOldRemote() {
		row.OldRemoteMessageID = sql.NullString{String: b.OldRemoteMessageID, Valid: true}
	}
	return row
}

func (r bodyRow) toBody() model.Body {
	b := model.Body{
		MessageID:    r.MessageID,
		Text:         r.Text,
		MetadataUUID: r.MetadataUUID,
	}
	if r.UID.Valid {
		b.UID = uint32(r.UID.Int64)
	}
	if r.OldRemoteMessageID.Valid {
		b.OldRemoteMessageID = r.OldRemoteMessageID.String
	}
	return b
}

// IsNotFound reports whether err means the note does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

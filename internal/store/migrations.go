package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS metadata (
	uuid            TEXT PRIMARY KEY,
	subfolder       TEXT NOT NULL DEFAULT 'Notes',
	locally_deleted INTEGER NOT NULL DEFAULT 0 CHECK(locally_deleted IN (0, 1)),
	"new"           INTEGER NOT NULL DEFAULT 1 CHECK("new" IN (0, 1)),
	edited          INTEGER NOT NULL DEFAULT 0 CHECK(edited IN (0, 1)),
	date            TEXT NOT NULL DEFAULT '',
	mime_version    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS body (
	message_id            TEXT PRIMARY KEY,
	text                  TEXT NOT NULL DEFAULT '',
	uid                   INTEGER,
	old_remote_message_id TEXT,
	metadata_uuid         TEXT NOT NULL REFERENCES metadata(uuid) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_body_metadata_uuid ON body(metadata_uuid);
CREATE INDEX IF NOT EXISTS idx_metadata_locally_deleted ON metadata(locally_deleted);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}

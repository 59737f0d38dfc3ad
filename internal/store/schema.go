package store

import "context"

// schema is applied on startup; every statement is idempotent so both the
// api and the worker can run it without coordination.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	uid          TEXT PRIMARY KEY,
	email        TEXT NOT NULL UNIQUE,
	password     TEXT NOT NULL,
	role         TEXT NOT NULL,
	student_id   TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS attendees (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	email        TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS deleted_attendees (
	id           TEXT PRIMARY KEY,
	original_id  TEXT NOT NULL,
	name         TEXT NOT NULL,
	email        TEXT NOT NULL,
	deleted_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS attendance_days (
	day          TEXT PRIMARY KEY,
	records      JSONB NOT NULL DEFAULT '{}'::jsonb,
	present      INT NOT NULL DEFAULT 0,
	absent       INT NOT NULL DEFAULT 0,
	leave        INT NOT NULL DEFAULT 0,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS assignments (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	due_date     TIMESTAMPTZ,
	status_map   JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS submissions (
	id            TEXT PRIMARY KEY,
	assignment_id TEXT NOT NULL,
	student_id    TEXT NOT NULL,
	notes         TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'submitted',
	grade         TEXT NOT NULL DEFAULT '',
	feedback      TEXT NOT NULL DEFAULT '',
	submitted_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS submissions_assignment_idx ON submissions (assignment_id);
`

// EnsureSchema creates any missing tables.
func (d *DB) EnsureSchema(ctx context.Context) error {
	_, err := d.Client.ExecContext(ctx, schema)
	return err
}

package db

import (
	"database/sql"
	"fmt"
)

// migrations is an ordered list of SQL statements to run.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		username      TEXT    NOT NULL UNIQUE,
		email         TEXT    NOT NULL UNIQUE,
		password_hash TEXT    NOT NULL,
		department    TEXT    NOT NULL DEFAULT '',
		role          TEXT    NOT NULL DEFAULT 'employee' CHECK (role IN ('admin', 'employee', 'security')),
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS visitors (
		id                    INTEGER PRIMARY KEY AUTOINCREMENT,
		full_name             TEXT    NOT NULL,
		email                 TEXT    NOT NULL DEFAULT '',
		phone                 TEXT    NOT NULL DEFAULT '',
		company               TEXT    NOT NULL DEFAULT '',
		purpose               TEXT    NOT NULL DEFAULT '',
		host_id               INTEGER NOT NULL REFERENCES users(id),
		photo_path            TEXT,
		badge_id              TEXT    NOT NULL UNIQUE,
		status                TEXT    NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending', 'approved', 'rejected', 'checked_in', 'checked_out')),
		check_in_time         DATETIME,
		check_out_time        DATETIME,
		pre_approved          INTEGER NOT NULL DEFAULT 0,
		approval_window_start DATETIME,
		approval_window_end   DATETIME,
		created_at            DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_visitors_host_id ON visitors(host_id)`,
	`CREATE TABLE IF NOT EXISTS meeting_requests (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		requestor_id   INTEGER  NOT NULL REFERENCES users(id),
		purpose        TEXT     NOT NULL,
		schedule_start DATETIME NOT NULL,
		schedule_end   DATETIME NOT NULL,
		meet_link      TEXT     NOT NULL,
		notes          TEXT     NOT NULL DEFAULT '',
		created_at     DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS meeting_recipients (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		meeting_id      INTEGER NOT NULL REFERENCES meeting_requests(id) ON DELETE CASCADE,
		recipient_id    INTEGER NOT NULL REFERENCES users(id),
		status          TEXT    NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
		response_reason TEXT,
		responded_at    DATETIME,
		UNIQUE (meeting_id, recipient_id)
	)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    INTEGER NOT NULL REFERENCES users(id),
		content    TEXT    NOT NULL,
		role       TEXT    NOT NULL CHECK (role IN ('user', 'assistant', 'system')),
		path       TEXT    NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT     PRIMARY KEY,
		user_id    INTEGER  NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		expires_at DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS passkey_credentials (
		id              TEXT    PRIMARY KEY,
		user_id         INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name            TEXT    NOT NULL DEFAULT '',
		credential_json TEXT    NOT NULL,
		created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}

// migrate runs all migrations in order.
func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}

	// Column additions check for the column first, so they are idempotent.
	columnMigrations := []struct {
		table, column, definition string
	}{
		{"meeting_requests", "call_started", "INTEGER NOT NULL DEFAULT 0"},
	}

	for _, cm := range columnMigrations {
		if err := addColumnIfNotExists(db, cm.table, cm.column, cm.definition); err != nil {
			return fmt.Errorf("adding %s.%s: %w", cm.table, cm.column, err)
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(db *sql.DB, table, column, definition string) error {
	exists, err := columnExists(db, table, column)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}

func columnExists(db *sql.DB, table, column string) (found bool, err error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("checking table info: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue any
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return false, fmt.Errorf("scanning column info: %w", err)
		}
		if name == column {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("iterating columns: %w", err)
	}

	return false, nil
}

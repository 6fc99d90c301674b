package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
	}{
		{
			name: "creates new database",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "frontdesk.db")
			},
		},
		{
			name: "creates nested directories",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "a", "b", "frontdesk.db")
			},
		},
		{
			name: "opens existing database",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "frontdesk.db")
				d, err := Open(path)
				if err != nil {
					t.Fatalf("setup: %v", err)
				}
				if err := d.Close(); err != nil {
					t.Fatalf("setup close: %v", err)
				}
				return path
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.setup(t)
			d, err := Open(path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer func() {
				if err := d.Close(); err != nil {
					t.Errorf("close: %v", err)
				}
			}()

			if _, err := os.Stat(path); os.IsNotExist(err) {
				t.Error("database file was not created")
			}
		})
	}
}

func TestWALMode(t *testing.T) {
	d := openTestDB(t)

	var mode string
	if err := d.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want %q", mode, "wal")
	}
}

func TestForeignKeys(t *testing.T) {
	d := openTestDB(t)

	var fk int
	if err := d.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func TestMigrations(t *testing.T) {
	tests := []struct {
		name  string
		table string
		cols  []string
	}{
		{
			name:  "users table exists",
			table: "users",
			cols:  []string{"id", "username", "email", "password_hash", "department", "role", "created_at"},
		},
		{
			name:  "visitors table exists",
			table: "visitors",
			cols: []string{"id", "full_name", "email", "phone", "company", "purpose", "host_id", "photo_path",
				"badge_id", "status", "check_in_time", "check_out_time", "pre_approved",
				"approval_window_start", "approval_window_end", "created_at"},
		},
		{
			name:  "meeting_requests table exists",
			table: "meeting_requests",
			cols:  []string{"id", "requestor_id", "purpose", "schedule_start", "schedule_end", "meet_link", "notes", "created_at", "call_started"},
		},
		{
			name:  "meeting_recipients table exists",
			table: "meeting_recipients",
			cols:  []string{"id", "meeting_id", "recipient_id", "status", "response_reason", "responded_at"},
		},
		{
			name:  "chat_messages table exists",
			table: "chat_messages",
			cols:  []string{"id", "user_id", "content", "role", "path", "created_at"},
		},
		{
			name:  "sessions table exists",
			table: "sessions",
			cols:  []string{"id", "user_id", "expires_at", "created_at"},
		},
		{
			name:  "passkey_credentials table exists",
			table: "passkey_credentials",
			cols:  []string{"id", "user_id", "name", "credential_json", "created_at"},
		},
	}

	d := openTestDB(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols := tableColumns(t, d, tt.table)
			if len(cols) != len(tt.cols) {
				t.Fatalf("got %d columns, want %d: %v", len(cols), len(tt.cols), cols)
			}
			for i, want := range tt.cols {
				if cols[i] != want {
					t.Errorf("column %d = %q, want %q", i, cols[i], want)
				}
			}
		})
	}
}

func TestVisitorStatusConstraint(t *testing.T) {
	d := openTestDB(t)
	hostID := insertTestUser(t, d, "host")

	insert := `INSERT INTO visitors (full_name, host_id, badge_id, status) VALUES (?, ?, ?, ?)`

	tests := []struct {
		status  string
		wantErr bool
	}{
		{"pending", false},
		{"approved", false},
		{"rejected", false},
		{"checked_in", false},
		{"checked_out", false},
		{"cancelled", true},
		{"", true},
	}

	for i, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			_, err := d.Exec(insert, "Jane Doe", hostID, fmt.Sprintf("VIS-%d", i), tt.status)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestBadgeUnique(t *testing.T) {
	d := openTestDB(t)
	hostID := insertTestUser(t, d, "host")

	insert := `INSERT INTO visitors (full_name, host_id, badge_id) VALUES (?, ?, ?)`
	if _, err := d.Exec(insert, "A", hostID, "VIS-1"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := d.Exec(insert, "B", hostID, "VIS-1"); err == nil {
		t.Error("expected unique violation for duplicate badge_id")
	}
}

func TestCascadeDeleteRecipients(t *testing.T) {
	d := openTestDB(t)
	requestor := insertTestUser(t, d, "requestor")
	recipient := insertTestUser(t, d, "recipient")

	res, err := d.Exec(
		`INSERT INTO meeting_requests (requestor_id, purpose, schedule_start, schedule_end, meet_link) VALUES (?, ?, ?, ?, ?)`,
		requestor, "sync", "2025-04-10 09:00:00", "2025-04-10 10:00:00", "https://meet.example.com/abc",
	)
	if err != nil {
		t.Fatalf("insert meeting: %v", err)
	}
	meetingID, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("last insert id: %v", err)
	}

	if _, err := d.Exec(`INSERT INTO meeting_recipients (meeting_id, recipient_id) VALUES (?, ?)`, meetingID, recipient); err != nil {
		t.Fatalf("insert recipient: %v", err)
	}

	if _, err := d.Exec(`DELETE FROM meeting_requests WHERE id = ?`, meetingID); err != nil {
		t.Fatalf("delete meeting: %v", err)
	}

	var count int
	if err := d.QueryRow(`SELECT COUNT(*) FROM meeting_recipients WHERE meeting_id = ?`, meetingID).Scan(&count); err != nil {
		t.Fatalf("count recipients: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 recipients after cascade delete, got %d", count)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frontdesk.db")

	// Open twice; migrations must not fail on the second run.
	d1, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := d1.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}

	d2, err := Open(path)
	if err != nil {
		t.Fatalf("second open (idempotency): %v", err)
	}
	if err := d2.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestWithTxCommits(t *testing.T) {
	d := openTestDB(t)

	err := WithTx(context.Background(), d, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO users (username, email, password_hash) VALUES ('a', 'a@example.com', 'x')`)
		return err
	})
	if err != nil {
		t.Fatalf("with tx: %v", err)
	}

	if n := countUsers(t, d); n != 1 {
		t.Errorf("users = %d, want 1", n)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	d := openTestDB(t)
	boom := errors.New("boom")

	err := WithTx(context.Background(), d, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO users (username, email, password_hash) VALUES ('a', 'a@example.com', 'x')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}

	if n := countUsers(t, d); n != 0 {
		t.Errorf("users = %d, want 0 after rollback", n)
	}
}

func TestDefaultPath(t *testing.T) {
	p, err := DefaultPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if filepath.Base(p) != "frontdesk.db" {
		t.Errorf("expected filename frontdesk.db, got %s", filepath.Base(p))
	}

	dir := filepath.Base(filepath.Dir(p))
	if dir != "fd" {
		t.Errorf("expected directory fd, got %s", dir)
	}
}

// openTestDB creates a temporary database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frontdesk.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close test db: %v", err)
		}
	})
	return d
}

func insertTestUser(t *testing.T, d *sql.DB, username string) int64 {
	t.Helper()
	res, err := d.Exec(
		`INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)`,
		username, username+"@example.com", "hash",
	)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("last insert id: %v", err)
	}
	return id
}

func countUsers(t *testing.T, d *sql.DB) int {
	t.Helper()
	var n int
	if err := d.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		t.Fatalf("count users: %v", err)
	}
	return n
}

// tableColumns returns column names for a table using PRAGMA table_info.
func tableColumns(t *testing.T, d *sql.DB, table string) []string {
	t.Helper()
	rows, err := d.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		t.Fatalf("pragma table_info(%s): %v", table, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			t.Errorf("close rows: %v", err)
		}
	}()

	var cols []string
	for rows.Next() {
		var cid int
		var name, typ string
		var notnull int
		var dflt *string
		var pk int
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			t.Fatalf("scan: %v", err)
		}
		cols = append(cols, name)
	}
	return cols
}

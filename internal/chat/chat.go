// Package chat stores the per-user assistant chat transcript.
package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evcraddock/frontdesk/internal/db"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ErrValidation is returned for an empty message or an unknown role.
var ErrValidation = errors.New("invalid chat message")

// Message is one entry in a user's transcript. Path is the page the user
// was on when the message was written.
type Message struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Role      Role      `json:"role"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// Repository provides data access for chat messages.
type Repository struct {
	q   db.Querier
	now func() time.Time
}

// NewRepository creates a chat repository.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q, now: time.Now}
}

// Save appends a user or assistant message.
func (r *Repository) Save(ctx context.Context, userID int64, role Role, content, path string) (*Message, error) {
	if role != RoleUser && role != RoleAssistant {
		return nil, fmt.Errorf("%w: role must be user or assistant", ErrValidation)
	}
	return r.insert(ctx, userID, role, content, path)
}

// SaveSystem appends a system context message.
func (r *Repository) SaveSystem(ctx context.Context, userID int64, content, path string) (*Message, error) {
	return r.insert(ctx, userID, RoleSystem, content, path)
}

// History returns a user's messages oldest first, limited to one page path
// when path is non-empty.
func (r *Repository) History(ctx context.Context, userID int64, path string) (messages []*Message, err error) {
	query := "SELECT id, content, role, path, created_at FROM chat_messages WHERE user_id = ?"
	args := []any{userID}
	if path != "" {
		query += " AND path = ?"
		args = append(args, path)
	}
	query += " ORDER BY created_at, id"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing chat messages: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	messages = []*Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Content, &m.Role, &m.Path, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning chat message: %w", err)
		}
		messages = append(messages, &m)
	}

	return messages, rows.Err()
}

// LatestSystem returns the most recent system message, or nil if there is none.
func (r *Repository) LatestSystem(ctx context.Context, userID int64, path string) (*Message, error) {
	query := "SELECT id, content, role, path, created_at FROM chat_messages WHERE user_id = ? AND role = ?"
	args := []any{userID, RoleSystem}
	if path != "" {
		query += " AND path = ?"
		args = append(args, path)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT 1"

	var m Message
	err := r.q.QueryRowContext(ctx, query, args...).Scan(&m.ID, &m.Content, &m.Role, &m.Path, &m.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying system message: %w", err)
	}
	return &m, nil
}

func (r *Repository) insert(ctx context.Context, userID int64, role Role, content, path string) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}

	m := &Message{Content: content, Role: role, Path: strings.TrimSpace(path), Timestamp: r.now().UTC()}
	result, err := r.q.ExecContext(ctx,
		"INSERT INTO chat_messages (user_id, content, role, path, created_at) VALUES (?, ?, ?, ?, ?)",
		userID, m.Content, m.Role, m.Path, m.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting chat message: %w", err)
	}

	m.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting insert id: %w", err)
	}
	return m, nil
}

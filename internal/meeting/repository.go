package meeting

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evcraddock/frontdesk/internal/db"
)

const meetingColumns = "id, requestor_id, purpose, schedule_start, schedule_end, meet_link, notes, call_started, created_at"

// Repository provides data access for meeting requests.
type Repository struct {
	q db.Querier
}

// NewRepository creates a meeting repository.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

// Insert stores a meeting and one pending recipient row per recipient.
func (r *Repository) Insert(ctx context.Context, m *Meeting, recipients []int64) (*Meeting, error) {
	result, err := r.q.ExecContext(ctx,
		`INSERT INTO meeting_requests (requestor_id, purpose, schedule_start, schedule_end, meet_link, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.RequestorID, m.Purpose, m.ScheduleStart.UTC(), m.ScheduleEnd.UTC(), m.MeetLink, m.Notes, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting meeting: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting insert id: %w", err)
	}

	for _, rid := range recipients {
		if _, err := r.q.ExecContext(ctx,
			"INSERT INTO meeting_recipients (meeting_id, recipient_id, status) VALUES (?, ?, ?)",
			id, rid, Pending,
		); err != nil {
			return nil, fmt.Errorf("inserting recipient %d: %w", rid, err)
		}
	}

	return r.GetByID(ctx, id)
}

// GetByID returns a meeting with its recipients, or ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Meeting, error) {
	m, err := scanMeeting(r.q.QueryRowContext(ctx, "SELECT "+meetingColumns+" FROM meeting_requests WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying meeting %d: %w", id, err)
	}

	if err := r.loadRecipients(ctx, []*Meeting{m}); err != nil {
		return nil, err
	}
	return m, nil
}

// GetRecipient returns the recipient row of userID on a meeting, or ErrNotFound.
func (r *Repository) GetRecipient(ctx context.Context, meetingID, userID int64) (*Recipient, error) {
	var rc Recipient
	err := r.q.QueryRowContext(ctx,
		`SELECT id, meeting_id, recipient_id, status, response_reason, responded_at
		 FROM meeting_recipients WHERE meeting_id = ? AND recipient_id = ?`,
		meetingID, userID,
	).Scan(&rc.ID, &rc.MeetingID, &rc.RecipientID, &rc.Status, &rc.ResponseReason, &rc.RespondedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying recipient: %w", err)
	}
	return &rc, nil
}

// UpdateRecipient persists a recipient's response.
func (r *Repository) UpdateRecipient(ctx context.Context, rc *Recipient) error {
	var respondedAt *time.Time
	if rc.RespondedAt != nil {
		t := rc.RespondedAt.UTC()
		respondedAt = &t
	}
	result, err := r.q.ExecContext(ctx,
		"UPDATE meeting_recipients SET status = ?, response_reason = ?, responded_at = ? WHERE id = ?",
		rc.Status, rc.ResponseReason, respondedAt, rc.ID,
	)
	if err != nil {
		return fmt.Errorf("updating recipient: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCallStarted flags a meeting's video call as started.
func (r *Repository) SetCallStarted(ctx context.Context, id int64) error {
	if _, err := r.q.ExecContext(ctx, "UPDATE meeting_requests SET call_started = 1 WHERE id = ?", id); err != nil {
		return fmt.Errorf("starting call: %w", err)
	}
	return nil
}

// ListByRequestor returns the meetings a user sent, newest first.
func (r *Repository) ListByRequestor(ctx context.Context, userID int64) ([]*Meeting, error) {
	return r.list(ctx, "SELECT "+meetingColumns+" FROM meeting_requests WHERE requestor_id = ? ORDER BY id DESC", userID)
}

// ListByRecipient returns the meetings a user was invited to, newest first.
// With pendingOnly, meetings the user has already answered are left out.
func (r *Repository) ListByRecipient(ctx context.Context, userID int64, pendingOnly bool) ([]*Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meeting_requests
		WHERE id IN (SELECT meeting_id FROM meeting_recipients WHERE recipient_id = ?`
	args := []any{userID}
	if pendingOnly {
		query += " AND status = ?"
		args = append(args, Pending)
	}
	query += ") ORDER BY id DESC"
	return r.list(ctx, query, args...)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) (meetings []*Meeting, err error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing meetings: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning meeting: %w", err)
		}
		meetings = append(meetings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating meetings: %w", err)
	}

	if err := r.loadRecipients(ctx, meetings); err != nil {
		return nil, err
	}
	return meetings, nil
}

// loadRecipients fills in the recipients of each meeting.
func (r *Repository) loadRecipients(ctx context.Context, meetings []*Meeting) (err error) {
	if len(meetings) == 0 {
		return nil
	}

	byID := make(map[int64]*Meeting, len(meetings))
	placeholders := make([]byte, 0, 2*len(meetings))
	args := make([]any, 0, len(meetings))
	for i, m := range meetings {
		m.Recipients = []Recipient{}
		byID[m.ID] = m
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, m.ID)
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT id, meeting_id, recipient_id, status, response_reason, responded_at
		 FROM meeting_recipients WHERE meeting_id IN (`+string(placeholders)+`) ORDER BY id`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("listing recipients: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		var rc Recipient
		if err := rows.Scan(&rc.ID, &rc.MeetingID, &rc.RecipientID, &rc.Status, &rc.ResponseReason, &rc.RespondedAt); err != nil {
			return fmt.Errorf("scanning recipient: %w", err)
		}
		m := byID[rc.MeetingID]
		m.Recipients = append(m.Recipients, rc)
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMeeting(s scanner) (*Meeting, error) {
	var m Meeting
	err := s.Scan(&m.ID, &m.RequestorID, &m.Purpose, &m.ScheduleStart, &m.ScheduleEnd,
		&m.MeetLink, &m.Notes, &m.CallStarted, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

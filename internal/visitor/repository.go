package visitor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evcraddock/frontdesk/internal/db"
)

const visitorColumns = `id, full_name, email, phone, company, purpose, host_id, photo_path, badge_id, status,
	check_in_time, check_out_time, pre_approved, approval_window_start, approval_window_end, created_at`

// Repository provides data access for visitors. It works against a plain
// *sql.DB or against a *sql.Tx acting as a unit of work.
type Repository struct {
	q db.Querier
}

// NewRepository creates a visitor repository.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

// Insert stores a new visitor and returns it as read back from the database.
func (r *Repository) Insert(ctx context.Context, v *Visitor) (*Visitor, error) {
	result, err := r.q.ExecContext(ctx,
		`INSERT INTO visitors (full_name, email, phone, company, purpose, host_id, photo_path, badge_id, status,
			pre_approved, approval_window_start, approval_window_end, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.FullName, v.Email, v.Phone, v.Company, v.Purpose, v.HostID, v.PhotoPath, v.BadgeID, v.Status,
		v.PreApproved, utcPtr(v.WindowStart), utcPtr(v.WindowEnd), time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting visitor: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting insert id: %w", err)
	}

	return r.GetByID(ctx, id)
}

// GetByID returns a visitor by ID, or ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Visitor, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+visitorColumns+" FROM visitors WHERE id = ?", id)
	v, err := scanVisitor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying visitor %d: %w", id, err)
	}
	return v, nil
}

// Update persists the mutable lifecycle fields of v.
func (r *Repository) Update(ctx context.Context, v *Visitor) error {
	result, err := r.q.ExecContext(ctx,
		"UPDATE visitors SET status = ?, check_in_time = ?, check_out_time = ? WHERE id = ?",
		v.Status, utcPtr(v.CheckInTime), utcPtr(v.CheckOutTime), v.ID,
	)
	if err != nil {
		return fmt.Errorf("updating visitor: %w", err)
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

// List returns every visitor within scope, newest first.
func (r *Repository) List(ctx context.Context, scope Scope) (visitors []*Visitor, err error) {
	where, args := scope.where()
	rows, err := r.q.QueryContext(ctx, "SELECT "+visitorColumns+" FROM visitors"+where+" ORDER BY id DESC", args...)
	if err != nil {
		return nil, fmt.Errorf("listing visitors: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		v, err := scanVisitor(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning visitor: %w", err)
		}
		visitors = append(visitors, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating visitors: %w", err)
	}

	return visitors, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVisitor(s scanner) (*Visitor, error) {
	var v Visitor
	err := s.Scan(
		&v.ID, &v.FullName, &v.Email, &v.Phone, &v.Company, &v.Purpose, &v.HostID, &v.PhotoPath,
		&v.BadgeID, &v.Status, &v.CheckInTime, &v.CheckOutTime, &v.PreApproved,
		&v.WindowStart, &v.WindowEnd, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// utcPtr normalizes timestamps to UTC before they are written.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

package visitor

import (
	"context"
	"fmt"
	"time"

	"github.com/evcraddock/frontdesk/internal/auth"
)

// Store is the unit of work a lifecycle operation runs against. The caller
// opens it (usually a Repository over a *sql.Tx) and commits or rolls back.
type Store interface {
	Insert(ctx context.Context, v *Visitor) (*Visitor, error)
	GetByID(ctx context.Context, id int64) (*Visitor, error)
	Update(ctx context.Context, v *Visitor) error
}

// HostDirectory reports whether a user ID exists and may host visitors.
type HostDirectory interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// Engine validates and applies visitor lifecycle transitions.
type Engine struct {
	badges BadgeGenerator
	hosts  HostDirectory
}

// NewEngine creates a lifecycle engine. hosts may be nil, in which case
// host IDs are only checked for presence.
func NewEngine(badges BadgeGenerator, hosts HostDirectory) *Engine {
	return &Engine{badges: badges, hosts: hosts}
}

// Register creates a walk-in visitor awaiting host approval.
func (e *Engine) Register(ctx context.Context, store Store, in RegisterInput) (*Visitor, error) {
	d := in.Details.normalized()
	if err := d.validate(); err != nil {
		return nil, err
	}
	if err := e.checkHost(ctx, in.HostID); err != nil {
		return nil, err
	}

	badge, err := e.badges.Next(WalkInPrefix)
	if err != nil {
		return nil, err
	}

	return store.Insert(ctx, newVisitor(d, in.HostID, badge, Pending, false))
}

// PreApprove creates an approved visitor hosted by creatorID that may only
// check in during the given window.
func (e *Engine) PreApprove(ctx context.Context, store Store, creatorID int64, in PreApproveInput) (*Visitor, error) {
	d := in.Details.normalized()
	if err := d.validate(); err != nil {
		return nil, err
	}
	if in.WindowStart.IsZero() || in.WindowEnd.IsZero() {
		return nil, &ValidationError{Field: "approval_window", Reason: "start and end are required"}
	}
	if !in.WindowStart.Before(in.WindowEnd) {
		return nil, &ValidationError{Field: "approval_window", Reason: "end must be after start"}
	}
	if err := e.checkHost(ctx, creatorID); err != nil {
		return nil, err
	}

	badge, err := e.badges.Next(PreApprovedPrefix)
	if err != nil {
		return nil, err
	}

	v := newVisitor(d, creatorID, badge, Approved, true)
	start, end := in.WindowStart, in.WindowEnd
	v.WindowStart, v.WindowEnd = &start, &end

	return store.Insert(ctx, v)
}

// Approve marks the visitor approved. The caller must host the visitor or be an admin.
func (e *Engine) Approve(ctx context.Context, store Store, caller auth.Caller, id int64) (*Visitor, error) {
	return e.decide(ctx, store, caller, id, ActionApprove)
}

// Reject marks the visitor rejected. The caller must host the visitor or be an admin.
func (e *Engine) Reject(ctx context.Context, store Store, caller auth.Caller, id int64) (*Visitor, error) {
	return e.decide(ctx, store, caller, id, ActionReject)
}

// ResetToPending puts the visitor back to pending regardless of its status.
// Check-in and check-out timestamps are kept as history.
func (e *Engine) ResetToPending(ctx context.Context, store Store, caller auth.Caller, id int64) (*Visitor, error) {
	return e.decide(ctx, store, caller, id, ActionReset)
}

// CheckIn admits an approved visitor at now. Repeating it on a visitor that
// is already checked in is a no-op reported as AlreadyDone.
func (e *Engine) CheckIn(ctx context.Context, store Store, id int64, now time.Time) (*Visitor, Outcome, error) {
	v, err := store.GetByID(ctx, id)
	if err != nil {
		return nil, Performed, err
	}

	outcome, err := transition(v.Status, ActionCheckIn)
	if err != nil {
		return nil, Performed, err
	}
	if outcome == AlreadyDone {
		return v, AlreadyDone, nil
	}

	if v.PreApproved && !v.InWindow(now) {
		return nil, Performed, &WindowError{Start: *v.WindowStart, End: *v.WindowEnd, At: now}
	}

	v.Status = CheckedIn
	if v.CheckInTime == nil {
		v.CheckInTime = &now
	}
	if err := store.Update(ctx, v); err != nil {
		return nil, Performed, err
	}
	return v, Performed, nil
}

// CheckOut releases a checked-in visitor at now. Repeating it on a visitor
// that is already checked out is a no-op reported as AlreadyDone.
func (e *Engine) CheckOut(ctx context.Context, store Store, id int64, now time.Time) (*Visitor, Outcome, error) {
	v, err := store.GetByID(ctx, id)
	if err != nil {
		return nil, Performed, err
	}

	outcome, err := transition(v.Status, ActionCheckOut)
	if err != nil {
		return nil, Performed, err
	}
	if outcome == AlreadyDone {
		return v, AlreadyDone, nil
	}

	v.Status = CheckedOut
	if v.CheckOutTime == nil {
		v.CheckOutTime = &now
	}
	if err := store.Update(ctx, v); err != nil {
		return nil, Performed, err
	}
	return v, Performed, nil
}

// decide applies a host decision. Checks run in a fixed order: existence,
// then authorization, then status.
func (e *Engine) decide(ctx context.Context, store Store, caller auth.Caller, id int64, a Action) (*Visitor, error) {
	v, err := store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanManage(caller, v) {
		return nil, ErrForbidden
	}

	if _, err := transition(v.Status, a); err != nil {
		return nil, err
	}

	v.Status = a.Target()
	if err := store.Update(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (e *Engine) checkHost(ctx context.Context, hostID int64) error {
	if hostID <= 0 {
		return &ValidationError{Field: "host_id", Reason: "is required"}
	}
	if e.hosts == nil {
		return nil
	}

	ok, err := e.hosts.Exists(ctx, hostID)
	if err != nil {
		return fmt.Errorf("looking up host: %w", err)
	}
	if !ok {
		return &ValidationError{Field: "host_id", Reason: "does not match a user"}
	}
	return nil
}

func newVisitor(d Details, hostID int64, badge string, status Status, preApproved bool) *Visitor {
	v := &Visitor{
		FullName:    d.FullName,
		Email:       d.Email,
		Phone:       d.Phone,
		Company:     d.Company,
		Purpose:     d.Purpose,
		HostID:      hostID,
		BadgeID:     badge,
		Status:      status,
		PreApproved: preApproved,
	}
	if d.PhotoPath != "" {
		p := d.PhotoPath
		v.PhotoPath = &p
	}
	return v
}

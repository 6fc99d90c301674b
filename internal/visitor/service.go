package visitor

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/evcraddock/frontdesk/internal/auth"
	"github.com/evcraddock/frontdesk/internal/db"
	"github.com/evcraddock/frontdesk/internal/notify"
)

// Directory resolves hosts for validation and notification.
type Directory interface {
	HostDirectory
	EmailOf(ctx context.Context, id int64) (string, error)
}

// Notifier delivers a message after a lifecycle change has committed.
type Notifier interface {
	Notify(ctx context.Context, msg notify.Message)
}

// Recorder counts lifecycle actions.
type Recorder interface {
	RecordTransition(action, outcome string)
}

// Service runs each lifecycle operation in its own transaction and sends
// notifications once it commits.
type Service struct {
	db       *sql.DB
	engine   *Engine
	hosts    Directory
	notifier Notifier
	recorder Recorder
	now      func() time.Time
}

// NewService creates a visitor service.
func NewService(database *sql.DB, badges BadgeGenerator, hosts Directory, notifier Notifier, recorder Recorder) *Service {
	return &Service{
		db:       database,
		engine:   NewEngine(badges, hosts),
		hosts:    hosts,
		notifier: notifier,
		recorder: recorder,
		now:      time.Now,
	}
}

// Register creates a walk-in visitor and tells the host.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Visitor, error) {
	var v *Visitor
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		v, err = s.engine.Register(ctx, NewRepository(tx), in)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "visitor registered", "id", v.ID, "badge", v.BadgeID, "host", v.HostID)
	if email, err := s.hosts.EmailOf(ctx, v.HostID); err != nil {
		slog.WarnContext(ctx, "looking up host email", "host", v.HostID, "err", err)
	} else {
		s.notifier.Notify(ctx, RegisteredNotice(v, email))
	}
	return v, nil
}

// PreApprove creates a pre-approved visitor hosted by caller.
func (s *Service) PreApprove(ctx context.Context, caller auth.Caller, in PreApproveInput) (*Visitor, error) {
	var v *Visitor
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		v, err = s.engine.PreApprove(ctx, NewRepository(tx), caller.ID, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "visitor pre-approved", "id", v.ID, "badge", v.BadgeID, "host", v.HostID)
	s.notifier.Notify(ctx, PreApprovedNotice(v))
	return v, nil
}

// Approve approves a visitor on behalf of caller.
func (s *Service) Approve(ctx context.Context, caller auth.Caller, id int64) (*Visitor, error) {
	return s.decide(ctx, ActionApprove, caller, id, s.engine.Approve)
}

// Reject rejects a visitor on behalf of caller.
func (s *Service) Reject(ctx context.Context, caller auth.Caller, id int64) (*Visitor, error) {
	return s.decide(ctx, ActionReject, caller, id, s.engine.Reject)
}

// ResetToPending puts a visitor back to pending on behalf of caller.
func (s *Service) ResetToPending(ctx context.Context, caller auth.Caller, id int64) (*Visitor, error) {
	return s.decide(ctx, ActionReset, caller, id, s.engine.ResetToPending)
}

// CheckIn admits a visitor at the current time.
func (s *Service) CheckIn(ctx context.Context, id int64) (*Visitor, Outcome, error) {
	return s.stamp(ctx, ActionCheckIn, id, s.engine.CheckIn)
}

// CheckOut releases a visitor at the current time.
func (s *Service) CheckOut(ctx context.Context, id int64) (*Visitor, Outcome, error) {
	return s.stamp(ctx, ActionCheckOut, id, s.engine.CheckOut)
}

// Get returns one visitor if it lies within scope, else ErrNotFound.
func (s *Service) Get(ctx context.Context, scope Scope, id int64) (*Visitor, error) {
	v, err := NewRepository(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.Contains(v) {
		return nil, ErrNotFound
	}
	return v, nil
}

// List returns every visitor within scope, newest first.
func (s *Service) List(ctx context.Context, scope Scope) ([]*Visitor, error) {
	return NewRepository(s.db).List(ctx, scope)
}

type decideFunc func(context.Context, Store, auth.Caller, int64) (*Visitor, error)

func (s *Service) decide(ctx context.Context, a Action, caller auth.Caller, id int64, fn decideFunc) (*Visitor, error) {
	var v *Visitor
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		v, err = fn(ctx, NewRepository(tx), caller, id)
		return err
	})
	s.record(a, Performed, err)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "visitor "+a.String(), "id", v.ID, "status", v.Status, "caller", caller.ID)
	if msg, ok := Notice(a, v); ok {
		s.notifier.Notify(ctx, msg)
	}
	return v, nil
}

type stampFunc func(context.Context, Store, int64, time.Time) (*Visitor, Outcome, error)

func (s *Service) stamp(ctx context.Context, a Action, id int64, fn stampFunc) (*Visitor, Outcome, error) {
	var v *Visitor
	var outcome Outcome
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		v, outcome, err = fn(ctx, NewRepository(tx), id, s.now())
		return err
	})
	s.record(a, outcome, err)
	if err != nil {
		return nil, Performed, err
	}
	if outcome == AlreadyDone {
		return v, AlreadyDone, nil
	}

	slog.InfoContext(ctx, "visitor "+a.String(), "id", v.ID, "badge", v.BadgeID)
	if msg, ok := Notice(a, v); ok {
		s.notifier.Notify(ctx, msg)
	}
	return v, Performed, nil
}

func (s *Service) record(a Action, outcome Outcome, err error) {
	if s.recorder == nil {
		return
	}
	s.recorder.RecordTransition(a.String(), outcomeLabel(outcome, err))
}

func outcomeLabel(outcome Outcome, err error) string {
	switch {
	case err == nil:
		return outcome.String()
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrWindowExpired):
		return "window_expired"
	default:
		return "error"
	}
}

package meeting

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/evcraddock/frontdesk/internal/db"
	"github.com/evcraddock/frontdesk/internal/notify"
)

// Directory resolves users for validation and notification.
type Directory interface {
	Exists(ctx context.Context, id int64) (bool, error)
	EmailOf(ctx context.Context, id int64) (string, error)
}

// Notifier delivers a message after a change has committed.
type Notifier interface {
	Notify(ctx context.Context, msg notify.Message)
}

// Service runs meeting operations in transactions.
type Service struct {
	db       *sql.DB
	users    Directory
	notifier Notifier
	now      func() time.Time
}

// NewService creates a meeting service.
func NewService(database *sql.DB, users Directory, notifier Notifier) *Service {
	return &Service{db: database, users: users, notifier: notifier, now: time.Now}
}

// Create sends a meeting request from requestorID to every recipient.
func (s *Service) Create(ctx context.Context, requestorID int64, in CreateInput) (*Meeting, error) {
	in = in.normalized()
	if err := in.validate(); err != nil {
		return nil, err
	}
	for _, id := range in.Recipients {
		ok, err := s.users.Exists(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("looking up recipient: %w", err)
		}
		if !ok {
			return nil, &ValidationError{Field: "recipients", Reason: fmt.Sprintf("recipient %d does not exist", id)}
		}
	}

	var m *Meeting
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		m, err = NewRepository(tx).Insert(ctx, &Meeting{
			RequestorID:   requestorID,
			Purpose:       in.Purpose,
			ScheduleStart: in.ScheduleStart,
			ScheduleEnd:   in.ScheduleEnd,
			MeetLink:      in.MeetLink,
			Notes:         in.Notes,
		}, in.Recipients)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "meeting requested", "id", m.ID, "requestor", requestorID, "recipients", len(in.Recipients))
	s.notifier.Notify(ctx, notify.Message{
		To:      s.emails(ctx, in.Recipients),
		Subject: "Meeting request: " + m.Purpose,
		Body: fmt.Sprintf("You have a new meeting request.\n\nPurpose: %s\nWhen: %s to %s\nLink: %s\n\n%s",
			m.Purpose, m.ScheduleStart.Format(time.RFC1123), m.ScheduleEnd.Format(time.RFC1123), m.MeetLink, m.Notes),
	})
	return m, nil
}

// Approve records userID's acceptance of a meeting.
func (s *Service) Approve(ctx context.Context, userID, meetingID int64) (*Recipient, error) {
	return s.respond(ctx, userID, meetingID, Approved, "")
}

// Reject records userID's refusal of a meeting with an optional reason.
func (s *Service) Reject(ctx context.Context, userID, meetingID int64, reason string) (*Recipient, error) {
	return s.respond(ctx, userID, meetingID, Rejected, reason)
}

func (s *Service) respond(ctx context.Context, userID, meetingID int64, status Status, reason string) (*Recipient, error) {
	var rc *Recipient
	var m *Meeting
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := NewRepository(tx)
		var err error
		rc, err = repo.GetRecipient(ctx, meetingID, userID)
		if err != nil {
			return err
		}
		if rc.Status != Pending {
			return ErrAlreadyResponded
		}

		now := s.now()
		rc.Status = status
		rc.RespondedAt = &now
		if status == Rejected && reason != "" {
			rc.ResponseReason = &reason
		}
		if err := repo.UpdateRecipient(ctx, rc); err != nil {
			return err
		}

		m, err = repo.GetByID(ctx, meetingID)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "meeting "+string(status), "id", meetingID, "recipient", userID)
	body := fmt.Sprintf("Your meeting request %q was %s.", m.Purpose, status)
	if rc.ResponseReason != nil {
		body += "\n\nReason: " + *rc.ResponseReason
	}
	s.notifier.Notify(ctx, notify.Message{
		To:      s.emails(ctx, []int64{m.RequestorID}),
		Subject: "Meeting " + string(status) + ": " + m.Purpose,
		Body:    body,
	})
	return rc, nil
}

// StartCall marks the meeting's call as started. Only the requestor may.
func (s *Service) StartCall(ctx context.Context, userID, meetingID int64) (*Meeting, error) {
	var m *Meeting
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := NewRepository(tx)
		var err error
		m, err = repo.GetByID(ctx, meetingID)
		if err != nil {
			return err
		}
		if m.RequestorID != userID {
			return ErrForbidden
		}
		if err := repo.SetCallStarted(ctx, meetingID); err != nil {
			return err
		}
		m.CallStarted = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Incoming returns meetings awaiting userID's response.
func (s *Service) Incoming(ctx context.Context, userID int64) ([]*Meeting, error) {
	return NewRepository(s.db).ListByRecipient(ctx, userID, true)
}

// Received returns every meeting userID was invited to.
func (s *Service) Received(ctx context.Context, userID int64) ([]*Meeting, error) {
	return NewRepository(s.db).ListByRecipient(ctx, userID, false)
}

// Outgoing returns every meeting userID sent.
func (s *Service) Outgoing(ctx context.Context, userID int64) ([]*Meeting, error) {
	return NewRepository(s.db).ListByRequestor(ctx, userID)
}

func (s *Service) emails(ctx context.Context, ids []int64) []string {
	var out []string
	for _, id := range ids {
		email, err := s.users.EmailOf(ctx, id)
		if err != nil {
			slog.WarnContext(ctx, "looking up email", "user", id, "err", err)
			continue
		}
		out = append(out, email)
	}
	return out
}

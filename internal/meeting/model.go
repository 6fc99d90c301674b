// Package meeting manages video meeting requests between staff members.
package meeting

import (
	"strings"
	"time"
)

// Status is a recipient's response to a meeting request.
type Status string

const (
	Pending  Status = "pending"
	Approved Status = "approved"
	Rejected Status = "rejected"
)

// Meeting is a request from one user to meet one or more recipients.
type Meeting struct {
	ID            int64       `json:"id"`
	RequestorID   int64       `json:"requestor_id"`
	Purpose       string      `json:"purpose"`
	ScheduleStart time.Time   `json:"schedule_start"`
	ScheduleEnd   time.Time   `json:"schedule_end"`
	MeetLink      string      `json:"meet_link"`
	Notes         string      `json:"notes"`
	CallStarted   bool        `json:"call_started"`
	CreatedAt     time.Time   `json:"created_at"`
	Recipients    []Recipient `json:"recipients"`
}

// Recipient is one invitee and their response.
type Recipient struct {
	ID             int64      `json:"id"`
	MeetingID      int64      `json:"meeting_id"`
	RecipientID    int64      `json:"recipient_id"`
	Status         Status     `json:"status"`
	ResponseReason *string    `json:"response_reason"`
	RespondedAt    *time.Time `json:"responded_at"`
}

// CreateInput is the payload for a new meeting request.
type CreateInput struct {
	Recipients    []int64
	Purpose       string
	ScheduleStart time.Time
	ScheduleEnd   time.Time
	MeetLink      string
	Notes         string
}

func (in CreateInput) normalized() CreateInput {
	out := CreateInput{
		Purpose:       strings.TrimSpace(in.Purpose),
		ScheduleStart: in.ScheduleStart,
		ScheduleEnd:   in.ScheduleEnd,
		MeetLink:      strings.TrimSpace(in.MeetLink),
		Notes:         strings.TrimSpace(in.Notes),
	}
	seen := make(map[int64]bool, len(in.Recipients))
	for _, id := range in.Recipients {
		if !seen[id] {
			seen[id] = true
			out.Recipients = append(out.Recipients, id)
		}
	}
	return out
}

func (in CreateInput) validate() error {
	switch {
	case len(in.Recipients) == 0:
		return &ValidationError{Field: "recipients", Reason: "at least one recipient is required"}
	case in.ScheduleStart.IsZero() || in.ScheduleEnd.IsZero():
		return &ValidationError{Field: "schedule", Reason: "start and end are required"}
	case !in.ScheduleEnd.After(in.ScheduleStart):
		return &ValidationError{Field: "schedule", Reason: "end time must be after start time"}
	case in.Purpose == "":
		return &ValidationError{Field: "purpose", Reason: "purpose is required"}
	case in.MeetLink == "":
		return &ValidationError{Field: "meet_link", Reason: "video meet link is required"}
	}
	for _, id := range in.Recipients {
		if id <= 0 {
			return &ValidationError{Field: "recipients", Reason: "recipient ids must be positive"}
		}
	}
	return nil
}

// Package visitor provides the visitor domain model, its lifecycle engine,
// access scoping, and data access.
package visitor

import (
	"strings"
	"time"
)

// Visitor is one visit by one person, hosted by an employee.
type Visitor struct {
	ID           int64      `json:"id"`
	FullName     string     `json:"full_name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	Company      string     `json:"company"`
	Purpose      string     `json:"purpose"`
	HostID       int64      `json:"host_id"`
	BadgeID      string     `json:"badge_id"`
	Status       Status     `json:"status"`
	CheckInTime  *time.Time `json:"check_in_time"`
	CheckOutTime *time.Time `json:"check_out_time"`
	PreApproved  bool       `json:"pre_approved"`
	WindowStart  *time.Time `json:"approval_window_start"`
	WindowEnd    *time.Time `json:"approval_window_end"`
	PhotoPath    *string    `json:"photo_path"`
	CreatedAt    time.Time  `json:"created_at"`
}

// HasWindow reports whether both ends of the approval window are set.
func (v *Visitor) HasWindow() bool {
	return v.WindowStart != nil && v.WindowEnd != nil
}

// InWindow reports whether t lies within the approval window, inclusive on
// both ends. A visitor without a window has no constraint.
func (v *Visitor) InWindow(t time.Time) bool {
	if !v.HasWindow() {
		return true
	}
	return !t.Before(*v.WindowStart) && !t.After(*v.WindowEnd)
}

// HasPhoto reports whether a photo reference is stored.
func (v *Visitor) HasPhoto() bool {
	return v.PhotoPath != nil && *v.PhotoPath != ""
}

// Contact returns the email if present, else the phone number.
func (v *Visitor) Contact() string {
	if v.Email != "" {
		return v.Email
	}
	return v.Phone
}

// Details are the descriptive fields supplied when a visitor is created.
type Details struct {
	FullName  string
	Email     string
	Phone     string
	Company   string
	Purpose   string
	PhotoPath string
}

func (d Details) normalized() Details {
	return Details{
		FullName:  strings.TrimSpace(d.FullName),
		Email:     strings.ToLower(strings.TrimSpace(d.Email)),
		Phone:     strings.TrimSpace(d.Phone),
		Company:   strings.TrimSpace(d.Company),
		Purpose:   strings.TrimSpace(d.Purpose),
		PhotoPath: strings.TrimSpace(d.PhotoPath),
	}
}

func (d Details) validate() error {
	if d.FullName == "" {
		return &ValidationError{Field: "full_name", Reason: "is required"}
	}
	if d.Email == "" && d.Phone == "" {
		return &ValidationError{Field: "email", Reason: "or phone is required"}
	}
	if d.Purpose == "" {
		return &ValidationError{Field: "purpose", Reason: "is required"}
	}
	return nil
}

// RegisterInput is the payload for a walk-in registration.
type RegisterInput struct {
	Details
	HostID int64
}

// PreApproveInput is the payload for a pre-approved visit.
type PreApproveInput struct {
	Details
	WindowStart time.Time
	WindowEnd   time.Time
}

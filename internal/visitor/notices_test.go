package visitor

import (
	"strings"
	"testing"
	"time"
)

func TestNotice(t *testing.T) {
	v := &Visitor{FullName: "Ada", Email: "ada@example.com", Phone: "555", BadgeID: "VIS-1"}

	tests := []struct {
		action  Action
		send    bool
		subject string
	}{
		{ActionApprove, true, "approved"},
		{ActionReject, true, "declined"},
		{ActionCheckOut, true, "Thank you"},
		{ActionCheckIn, false, ""},
		{ActionReset, false, ""},
	}

	for _, tt := range tests {
		msg, ok := Notice(tt.action, v)
		if ok != tt.send {
			t.Errorf("%s: send = %v, want %v", tt.action, ok, tt.send)
			continue
		}
		if !ok {
			continue
		}
		if len(msg.To) != 1 || msg.To[0] != "ada@example.com" {
			t.Errorf("%s: to = %v", tt.action, msg.To)
		}
		if !strings.Contains(msg.Subject, tt.subject) {
			t.Errorf("%s: subject = %q, want it to contain %q", tt.action, msg.Subject, tt.subject)
		}
	}
}

func TestRegisteredNotice(t *testing.T) {
	v := &Visitor{FullName: "Ada", Phone: "555", Purpose: "Interview", BadgeID: "VIS-1"}

	msg := RegisteredNotice(v, "host@example.com")
	if len(msg.To) != 1 || msg.To[0] != "host@example.com" {
		t.Errorf("to = %v, want host", msg.To)
	}
	for _, want := range []string{"Ada", "Interview", "VIS-1"} {
		if !strings.Contains(msg.Subject+msg.Body, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestPreApprovedNotice(t *testing.T) {
	start := time.Date(2025, 4, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	v := &Visitor{FullName: "Alan", Phone: "555", BadgeID: "PRE-1", WindowStart: &start, WindowEnd: &end}

	msg := PreApprovedNotice(v)
	if msg.To[0] != "555" {
		t.Errorf("to = %v, want phone", msg.To)
	}
	if !strings.Contains(msg.Body, "PRE-1") || !strings.Contains(msg.Body, "Check-in window") {
		t.Errorf("body = %q", msg.Body)
	}
}

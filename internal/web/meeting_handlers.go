package web

import (
	"context"
	"net/http"

	"github.com/evcraddock/frontdesk/internal/meeting"
)

type meetingRequest struct {
	Recipients    []int64 `json:"recipients"`
	Purpose       string  `json:"purpose"`
	ScheduleStart string  `json:"schedule_start"`
	ScheduleEnd   string  `json:"schedule_end"`
	MeetLink      string  `json:"meet_link"`
	GoogleMeet    string  `json:"google_meet_link"`
	Notes         string  `json:"notes"`
}

func (s *Server) handleCreateMeeting(w http.ResponseWriter, r *http.Request) {
	c, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req meetingRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	in := meeting.CreateInput{
		Recipients: req.Recipients,
		Purpose:    req.Purpose,
		MeetLink:   req.MeetLink,
		Notes:      req.Notes,
	}
	if in.MeetLink == "" {
		in.MeetLink = req.GoogleMeet
	}

	var err error
	if in.ScheduleStart, err = parseTime(req.ScheduleStart, s.cfg.Location); err != nil {
		apiError(w, "Invalid date format for schedule times", http.StatusBadRequest)
		return
	}
	if in.ScheduleEnd, err = parseTime(req.ScheduleEnd, s.cfg.Location); err != nil {
		apiError(w, "Invalid date format for schedule times", http.StatusBadRequest)
		return
	}

	m, err := s.meetings.Create(r.Context(), c.ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	apiJSON(w, map[string]any{"message": "Meeting request sent successfully", "meeting": m}, http.StatusCreated)
}

func (s *Server) handleApproveMeeting(w http.ResponseWriter, r *http.Request) {
	c, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rc, err := s.meetings.Approve(r.Context(), c.ID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	apiJSON(w, map[string]any{"message": "Meeting approved successfully", "recipient": rc}, http.StatusOK)
}

func (s *Server) handleRejectMeeting(w http.ResponseWriter, r *http.Request) {
	c, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if !decodeJSON(w, r, &req, true) {
		return
	}
	rc, err := s.meetings.Reject(r.Context(), c.ID, id, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	apiJSON(w, map[string]any{"message": "Meeting rejected successfully", "recipient": rc}, http.StatusOK)
}

func (s *Server) handleStartCall(w http.ResponseWriter, r *http.Request) {
	c, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	m, err := s.meetings.StartCall(r.Context(), c.ID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	apiJSON(w, map[string]any{"message": "Call started successfully", "meeting": m}, http.StatusOK)
}

type listMeetingsFunc func(context.Context, int64) ([]*meeting.Meeting, error)

func (s *Server) meetingList(fn listMeetingsFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := requireCaller(w, r)
		if !ok {
			return
		}
		meetings, err := fn(r.Context(), c.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if meetings == nil {
			meetings = []*meeting.Meeting{}
		}
		apiJSON(w, map[string]any{"meetings": meetings}, http.StatusOK)
	}
}

package web

import (
	"net/http"

	"github.com/evcraddock/frontdesk/internal/chat"
)

type chatRequest struct {
	Content string `json:"content"`
	Role    string `json:"role"`
	Path    string `json:"path"`
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	c, ok := requireCaller(w, r)
	if !ok {
		return
	}
	messages, err := s.chat.History(r.Context(), c.ID, r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	apiJSON(w, map[string]any{"messages": messages}, http.StatusOK)
}

// handleChatMessage stores one turn of the conversation; role defaults to user.
func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	c, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req chatRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	role := chat.Role(req.Role)
	if role == "" {
		role = chat.RoleUser
	}

	m, err := s.chat.Save(r.Context(), c.ID, role, req.Content, req.Path)
	if err != nil {
		writeError(w, r, err)
		return
	}
	apiJSON(w, m, http.StatusCreated)
}

func (s *Server) handleSaveSystemMessage(w http.ResponseWriter, r *http.Request) {
	c, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req chatRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	m, err := s.chat.SaveSystem(r.Context(), c.ID, req.Content, req.Path)
	if err != nil {
		writeError(w, r, err)
		return
	}
	apiJSON(w, m, http.StatusCreated)
}

// handleGetSystemMessage returns the latest system message as a list of at
// most one.
func (s *Server) handleGetSystemMessage(w http.ResponseWriter, r *http.Request) {
	c, ok := requireCaller(w, r)
	if !ok {
		return
	}
	m, err := s.chat.LatestSystem(r.Context(), c.ID, r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	messages := []*chat.Message{}
	if m != nil {
		messages = append(messages, m)
	}
	apiJSON(w, map[string]any{"messages": messages}, http.StatusOK)
}

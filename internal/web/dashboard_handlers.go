package web

import (
	"net/http"

	"github.com/evcraddock/frontdesk/internal/dashboard"
	"github.com/evcraddock/frontdesk/internal/visitor"
)

// handleStats computes the dashboard report over the caller's scope. The
// optional tz parameter chooses the calendar day that counts as today.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	c, ok := requireCaller(w, r)
	if !ok {
		return
	}
	loc, err := s.requestLocation(r)
	if err != nil {
		apiError(w, err.Error(), http.StatusBadRequest)
		return
	}

	visitors, err := s.visitors.List(r.Context(), visitor.ScopeFor(c.Role, c.ID))
	if err != nil {
		writeError(w, r, err)
		return
	}
	apiJSON(w, dashboard.Compute(visitors, s.now().In(loc)), http.StatusOK)
}

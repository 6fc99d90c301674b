package visitor

import "github.com/evcraddock/frontdesk/internal/auth"

// Scope is the set of visitor records a caller may read.
type Scope struct {
	all    bool
	hostID int64
}

// ScopeFor resolves the read scope for a caller: admins and security see
// every visitor, everyone else only the visitors they host.
func ScopeFor(role auth.Role, id int64) Scope {
	if role.SeesAllVisitors() {
		return Scope{all: true}
	}
	return Scope{hostID: id}
}

// Contains reports whether v is visible within the scope.
func (s Scope) Contains(v *Visitor) bool {
	return s.all || v.HostID == s.hostID
}

// where renders the scope as a SQL filter.
func (s Scope) where() (string, []any) {
	if s.all {
		return "", nil
	}
	return " WHERE host_id = ?", []any{s.hostID}
}

// CanManage is the write-authorization rule shared by approve, reject and
// reset: the caller must host the visitor or be an admin. It is independent
// of Scope; security staff can read every visitor but decide on none.
func CanManage(c auth.Caller, v *Visitor) bool {
	return c.IsAdmin() || c.ID == v.HostID
}

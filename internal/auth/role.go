package auth

import (
	"context"
	"net/http"
)

// Role is a user's role within the organisation.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
	RoleSecurity Role = "security"
)

// ValidRoles is the set of allowed roles.
var ValidRoles = []Role{RoleAdmin, RoleEmployee, RoleSecurity}

// IsValid checks if a role is recognized.
func (r Role) IsValid() bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// SeesAllVisitors reports whether the role may read every visitor record
// rather than only the ones it hosts.
func (r Role) SeesAllVisitors() bool {
	return r == RoleAdmin || r == RoleSecurity
}

// Caller identifies the authenticated user behind a request.
type Caller struct {
	ID   int64
	Role Role
}

// IsAdmin reports whether the caller has the admin role.
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

type callerKey struct{}

// WithCaller returns a copy of ctx carrying the caller.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext returns the caller stored by RequireAuth.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

// CallerFromRequest is a shorthand for CallerFromContext(r.Context()).
func CallerFromRequest(r *http.Request) (Caller, bool) {
	return CallerFromContext(r.Context())
}

package visitor

import (
	"testing"

	"github.com/evcraddock/frontdesk/internal/auth"
)

func TestScopeFor(t *testing.T) {
	mine := &Visitor{HostID: 7}
	theirs := &Visitor{HostID: 8}

	tests := []struct {
		role       auth.Role
		all        bool
		seesMine   bool
		seesTheirs bool
	}{
		{auth.RoleAdmin, true, true, true},
		{auth.RoleSecurity, true, true, true},
		{auth.RoleEmployee, false, true, false},
		{auth.Role("contractor"), false, true, false},
	}

	for _, tt := range tests {
		s := ScopeFor(tt.role, 7)
		filter, args := s.where()
		if (filter == "") != tt.all {
			t.Errorf("%s: where() = %q, want unrestricted %v", tt.role, filter, tt.all)
		}
		if !tt.all && (len(args) != 1 || args[0] != int64(7)) {
			t.Errorf("%s: where() args = %v, want [7]", tt.role, args)
		}
		if s.Contains(mine) != tt.seesMine {
			t.Errorf("%s: Contains(mine) = %v, want %v", tt.role, s.Contains(mine), tt.seesMine)
		}
		if s.Contains(theirs) != tt.seesTheirs {
			t.Errorf("%s: Contains(theirs) = %v, want %v", tt.role, s.Contains(theirs), tt.seesTheirs)
		}
	}
}

func TestCanManage(t *testing.T) {
	v := &Visitor{HostID: 7}

	tests := []struct {
		name   string
		caller auth.Caller
		want   bool
	}{
		{"host", auth.Caller{ID: 7, Role: auth.RoleEmployee}, true},
		{"admin", auth.Caller{ID: 1, Role: auth.RoleAdmin}, true},
		{"security", auth.Caller{ID: 2, Role: auth.RoleSecurity}, false},
		{"other employee", auth.Caller{ID: 3, Role: auth.RoleEmployee}, false},
	}
	for _, tt := range tests {
		if got := CanManage(tt.caller, v); got != tt.want {
			t.Errorf("%s: CanManage = %v, want %v", tt.name, got, tt.want)
		}
	}
}

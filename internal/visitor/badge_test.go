package visitor

import (
	"strings"
	"testing"
	"time"
)

func TestULIDBadgesUnique(t *testing.T) {
	b := NewULIDBadges()
	b.now = func() time.Time { return time.Date(2025, 4, 10, 9, 0, 0, 0, time.UTC) }

	seen := make(map[string]bool)
	for range 100 {
		id, err := b.Next(WalkInPrefix)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !strings.HasPrefix(id, "VIS-") {
			t.Errorf("id = %q, want VIS- prefix", id)
		}
		if seen[id] {
			t.Fatalf("duplicate badge %q", id)
		}
		seen[id] = true
	}
}

func TestULIDBadgesPrefix(t *testing.T) {
	b := NewULIDBadges()

	pre, err := b.Next(PreApprovedPrefix)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if !strings.HasPrefix(pre, "PRE-") || len(pre) != len("PRE-")+26 {
		t.Errorf("id = %q, want PRE- followed by a ULID", pre)
	}

	bare, err := b.Next("")
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if len(bare) != 26 {
		t.Errorf("id = %q, want bare ULID", bare)
	}
}

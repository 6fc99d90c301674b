package visitor

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Badge prefixes distinguish walk-in registrations from pre-approved visits.
const (
	WalkInPrefix      = "VIS"
	PreApprovedPrefix = "PRE"
)

// BadgeGenerator issues badge IDs that are never reused.
type BadgeGenerator interface {
	Next(prefix string) (string, error)
}

// ULIDBadges issues badge IDs of the form PREFIX-<ULID>.
type ULIDBadges struct {
	now func() time.Time
}

// NewULIDBadges creates a ULID-backed badge generator.
func NewULIDBadges() *ULIDBadges {
	return &ULIDBadges{now: time.Now}
}

// Next returns a fresh badge ID with the given prefix.
func (b *ULIDBadges) Next(prefix string) (string, error) {
	id, err := ulid.New(ulid.Timestamp(b.now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generating badge id: %w", err)
	}
	if prefix == "" {
		return id.String(), nil
	}
	return prefix + "-" + id.String(), nil
}

package mailbox

import (
	"strings"

	"github.com/pkg/errors"
)

// PersistencePolicy decides what a send does when the snapshot write fails.
type PersistencePolicy int

const (
	// BestEffort keeps the message in memory and reports success. The storage medium
	// may be ephemeral, so availability wins over durability.
	BestEffort PersistencePolicy = iota
	// Strict rejects the send with ErrPersistence and leaves the slot untouched.
	Strict
)

// ParsePersistencePolicy accepts "best_effort" (or "") and "strict".
func ParsePersistencePolicy(s string) (PersistencePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "best_effort", "best-effort":
		return BestEffort, nil
	case "strict":
		return Strict, nil
	}
	return BestEffort, errors.Errorf("unknown persistence policy %q", s)
}

func (p PersistencePolicy) String() string {
	if p == Strict {
		return "strict"
	}
	return "best_effort"
}

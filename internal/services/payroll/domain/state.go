package domain

import (
	"time"

	"github.com/louisbranch/fheworlds/internal/fhe/handle"
)

// Status is the lifecycle position of a participant.
type Status string

const (
	StatusUnjoined Status = "unjoined"
	StatusJoined   Status = "joined"
	StatusClaimed  Status = "claimed"
)

// State is one participant record. The zero value is an unjoined identity.
type State struct {
	Identity      string
	Joined        bool
	Claimed       bool
	CountryHandle handle.Handle
	SalaryHandle  handle.Handle
	JoinedAt      time.Time
	ClaimedAt     time.Time
}

// Status derives the lifecycle position from the flags.
func (s State) Status() Status {
	switch {
	case s.Claimed:
		return StatusClaimed
	case s.Joined:
		return StatusJoined
	default:
		return StatusUnjoined
	}
}

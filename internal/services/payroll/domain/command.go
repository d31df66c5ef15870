package domain

import (
	"time"

	apperrors "github.com/louisbranch/fheworlds/internal/platform/errors"
)

// CommandType names an intent against a participant.
type CommandType string

const (
	CommandTypeJoin  CommandType = "payroll.join"
	CommandTypeClaim CommandType = "payroll.claim"
)

// Command is a request to change one participant's state.
type Command struct {
	Type        CommandType
	Identity    string
	RequestID   string
	PayloadJSON []byte
}

// Rejection captures why a command was declined.
type Rejection struct {
	Code    apperrors.Code
	Message string
}

// Decision is the pure outcome of deciding a command.
type Decision struct {
	Events     []Event
	Rejections []Rejection
}

// Accept returns a decision that emits events.
func Accept(events ...Event) Decision {
	return Decision{Events: append([]Event(nil), events...)}
}

// Reject returns a decision carrying rejections.
func Reject(rejections ...Rejection) Decision {
	return Decision{Rejections: append([]Rejection(nil), rejections...)}
}

// Err returns the first rejection as a domain error, or nil when accepted.
func (d Decision) Err() error {
	if len(d.Rejections) == 0 {
		return nil
	}
	r := d.Rejections[0]
	return apperrors.New(r.Code, r.Message)
}

// EventType names a fact about a participant.
type EventType string

const (
	EventTypeJoined  EventType = "participant.joined"
	EventTypeClaimed EventType = "salary.claimed"
)

// Event is an immutable fact recorded by the ledger.
type Event struct {
	Type        EventType
	Identity    string
	RequestID   string
	Timestamp   time.Time
	PayloadJSON []byte
}

// NewEvent builds an event caused by cmd.
func NewEvent(cmd Command, eventType EventType, payloadJSON []byte, now time.Time) Event {
	return Event{
		Type:        eventType,
		Identity:    cmd.Identity,
		RequestID:   cmd.RequestID,
		Timestamp:   now,
		PayloadJSON: payloadJSON,
	}
}

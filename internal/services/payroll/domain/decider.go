package domain

import (
	"encoding/json"
	"time"

	apperrors "github.com/louisbranch/fheworlds/internal/platform/errors"
)

// Decide returns the decision for cmd against state. Guards run before any
// event is built, so a rejected command leaves no trace.
func Decide(state State, cmd Command, now func() time.Time) Decision {
	if now == nil {
		now = time.Now
	}
	switch cmd.Type {
	case CommandTypeJoin:
		return decideJoin(state, cmd, now)
	case CommandTypeClaim:
		return decideClaim(state, cmd, now)
	default:
		return Reject(Rejection{Code: apperrors.CodeUnknown, Message: "unsupported command " + string(cmd.Type)})
	}
}

func decideJoin(state State, cmd Command, now func() time.Time) Decision {
	if state.Joined {
		return Reject(Rejection{Code: apperrors.CodeAlreadyJoined, Message: "participant already joined"})
	}
	var payload JoinPayload
	if err := json.Unmarshal(cmd.PayloadJSON, &payload); err != nil {
		return Reject(Rejection{Code: apperrors.CodeProofInvalid, Message: "join payload is malformed"})
	}
	if payload.CountryHandle.IsEmpty() || payload.SalaryHandle.IsEmpty() {
		return Reject(Rejection{Code: apperrors.CodeProofInvalid, Message: "join requires country and salary handles"})
	}
	payloadJSON, _ := json.Marshal(payload)
	return Accept(NewEvent(cmd, EventTypeJoined, payloadJSON, now().UTC()))
}

func decideClaim(state State, cmd Command, now func() time.Time) Decision {
	if !state.Joined {
		return Reject(Rejection{Code: apperrors.CodeNotJoined, Message: "participant has not joined"})
	}
	if state.Claimed {
		return Reject(Rejection{Code: apperrors.CodeSalaryAlreadyClaimed, Message: "salary already claimed"})
	}
	payloadJSON, _ := json.Marshal(ClaimPayload{SalaryHandle: state.SalaryHandle})
	return Accept(NewEvent(cmd, EventTypeClaimed, payloadJSON, now().UTC()))
}

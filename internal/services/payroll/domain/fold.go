package domain

import "encoding/json"

// Fold applies evt to state. Unknown events leave state unchanged.
func Fold(state State, evt Event) State {
	if state.Identity == "" {
		state.Identity = evt.Identity
	}
	switch evt.Type {
	case EventTypeJoined:
		var payload JoinPayload
		_ = json.Unmarshal(evt.PayloadJSON, &payload)
		state.Joined = true
		state.CountryHandle = payload.CountryHandle
		state.SalaryHandle = payload.SalaryHandle
		state.JoinedAt = evt.Timestamp
	case EventTypeClaimed:
		state.Claimed = true
		state.ClaimedAt = evt.Timestamp
	}
	return state
}

// Replay folds events over the zero state.
func Replay(identity string, events []Event) State {
	state := State{Identity: identity}
	for _, evt := range events {
		state = Fold(state, evt)
	}
	return state
}

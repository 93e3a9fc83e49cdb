// Package meeting provides the core types for meeting transcription
// sessions: session state, chairs, transcript segments, and control commands.
package meeting

import "encoding/json"

// State represents the transcription state of a session.
// Exactly one state is in effect at a time.
type State int

const (
	StateIdle State = iota
	StateActive
	StatePaused
	StateError
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StatePaused:
		return "paused"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// MarshalJSON implements json.Marshaler.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *State) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "active":
		*s = StateActive
	case "paused":
		*s = StatePaused
	case "error":
		*s = StateError
	default:
		*s = StateIdle
	}
	return nil
}

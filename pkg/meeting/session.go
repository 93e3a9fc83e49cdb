package meeting

import (
	"time"

	"github.com/google/uuid"
)

// Session is the durable record of one meeting transcription session.
// One instance exists per process lifetime; it is created on start, mutated
// in place by the session store, and deleted only on explicit clear.
//
// The record is persisted wholesale via msgpack on every mutation.
type Session struct {
	ID        string    `msgpack:"id"`
	StartedAt time.Time `msgpack:"started_at"`
	Channel   string    `msgpack:"channel"`
	Chairs    []Chair   `msgpack:"chairs"`
	State     State     `msgpack:"state"`
}

// Chair is a participant identity authorized to issue pause/resume commands.
// Chairs are unique by nick within a session.
type Chair struct {
	Nick    string    `msgpack:"nick"`
	AddedAt time.Time `msgpack:"added_at"`
	AddedBy string    `msgpack:"added_by,omitempty"`
}

// NewSession creates a session in the Idle state with the given chairs.
func NewSession(channel string, chairs []string) *Session {
	now := time.Now()
	s := &Session{
		ID:        "session-" + uuid.NewString(),
		StartedAt: now,
		Channel:   channel,
		State:     StateIdle,
	}
	for _, nick := range chairs {
		s.Chairs = append(s.Chairs, Chair{Nick: nick, AddedAt: now})
	}
	return s
}

// HasChair reports whether nick is a chair of this session.
func (s *Session) HasChair(nick string) bool {
	for _, c := range s.Chairs {
		if c.Nick == nick {
			return true
		}
	}
	return false
}

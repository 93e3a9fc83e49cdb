// Package session manages the durable meeting session record and its state
// machine. The store is the single source of truth: every mutation is written
// through to the key-value store before the corresponding state-change event
// is published, and reads fall back to the persisted record when the
// in-memory copy is absent.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/scribewire/scribewire/pkg/bus"
	"github.com/scribewire/scribewire/pkg/kv"
	"github.com/scribewire/scribewire/pkg/meeting"
)

// recordKey is the single key holding the serialized session record.
const recordKey = "transcription:session:current"

// ErrNoSession is returned when a mutation is attempted with no session
// present. All mutation paths are expected to follow Create; hitting this is
// a programming-contract violation, not a recoverable condition.
var ErrNoSession = errors.New("session: no active session")

// Store owns the session record. Safe for concurrent use, but the record
// itself is last-write-wins: a single writer at a time is assumed.
type Store struct {
	mu      sync.Mutex
	kv      kv.Store
	bus     bus.Bus
	session *meeting.Session
}

// NewStore creates a Store over the given key-value store and bus.
func NewStore(kvStore kv.Store, b bus.Bus) *Store {
	return &Store{kv: kvStore, bus: b}
}

// Create constructs a new session in the Idle state and persists it.
func (st *Store) Create(ctx context.Context, channel string, chairs []string) (*meeting.Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.session = meeting.NewSession(channel, chairs)
	if err := st.saveLocked(ctx); err != nil {
		return nil, err
	}
	slog.Info("session: created", "id", st.session.ID, "channel", channel, "chairs", chairs)
	return st.session, nil
}

// Session returns the current session, reading through to the persisted
// record when no in-memory copy exists. Returns ErrNoSession when neither is
// present.
func (st *Store) Session(ctx context.Context) (*meeting.Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.session != nil {
		return st.session, nil
	}
	data, err := st.kv.Get(ctx, recordKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("session: load record: %w", err)
	}
	var s meeting.Session
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("session: decode record: %w", err)
	}
	st.session = &s
	return st.session, nil
}

// UpdateState transitions the session to newState, persists the record, and
// then publishes the state-change event. The order is strict: the mutation is
// durable before any consumer can observe it.
func (st *Store) UpdateState(ctx context.Context, newState meeting.State, reason string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.session == nil {
		return ErrNoSession
	}

	previous := st.session.State
	st.session.State = newState
	if err := st.saveLocked(ctx); err != nil {
		st.session.State = previous
		return err
	}

	env, err := bus.NewStateChange(meeting.StateChange{
		Previous: previous,
		New:      newState,
		Reason:   reason,
	})
	if err != nil {
		return err
	}
	if err := st.bus.Publish(ctx, bus.StateChanges, env); err != nil {
		return fmt.Errorf("session: publish state change: %w", err)
	}

	slog.Info("session: state", "previous", previous, "new", newState, "reason", reason)
	return nil
}

// AddChair adds a chair. Idempotent: an existing nick is left untouched.
func (st *Store) AddChair(ctx context.Context, nick, addedBy string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.session == nil {
		return ErrNoSession
	}
	if st.session.HasChair(nick) {
		return nil
	}
	st.session.Chairs = append(st.session.Chairs, meeting.Chair{
		Nick:    nick,
		AddedAt: time.Now(),
		AddedBy: addedBy,
	})
	return st.saveLocked(ctx)
}

// RemoveChair removes a chair by nick.
func (st *Store) RemoveChair(ctx context.Context, nick string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.session == nil {
		return ErrNoSession
	}
	chairs := st.session.Chairs[:0]
	for _, c := range st.session.Chairs {
		if c.Nick != nick {
			chairs = append(chairs, c)
		}
	}
	st.session.Chairs = chairs
	return st.saveLocked(ctx)
}

// IsChair reports whether nick is a chair of the current session. False when
// no session exists.
func (st *Store) IsChair(nick string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.session != nil && st.session.HasChair(nick)
}

// State returns the last known in-memory state, falling back to Idle when no
// session exists.
func (st *Store) State() meeting.State {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.session == nil {
		return meeting.StateIdle
	}
	return st.session.State
}

// Clear deletes the session record and drops the in-memory copy.
func (st *Store) Clear(ctx context.Context) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.session = nil
	return st.kv.Delete(ctx, recordKey)
}

// saveLocked overwrites the persisted record wholesale.
func (st *Store) saveLocked(ctx context.Context) error {
	data, err := msgpack.Marshal(st.session)
	if err != nil {
		return fmt.Errorf("session: encode record: %w", err)
	}
	if err := st.kv.Set(ctx, recordKey, data); err != nil {
		return fmt.Errorf("session: persist record: %w", err)
	}
	return nil
}

package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/scribewire/scribewire/pkg/jsontime"
	"github.com/scribewire/scribewire/pkg/meeting"
)

// ConnState is the connection lifecycle state of the Manager.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
	Closed
	Errored
)

// String returns the string representation of the state.
func (cs ConnState) String() string {
	switch cs {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	case Errored:
		return "errored"
	default:
		return "disconnected"
	}
}

// DefaultBackoff is the fixed capped delay after a failed connection attempt
// before another attempt is permitted.
const DefaultBackoff = 5 * time.Second

// ErrBackoff is returned by Connect while the backoff window from a previous
// failure has not yet elapsed.
var ErrBackoff = errors.New("speech: connect backoff in effect")

// Manager owns exactly one live engine session at a time. Concurrent connect
// attempts collapse into the single in-flight attempt; a failed attempt
// schedules a fixed backoff deadline blocking re-entry until it elapses.
//
// Final, non-blank results are surfaced to the segment callback with the
// speaker label "Speaker N" from the result's diarization tag ("Speaker 0"
// when absent). Interim results are discarded.
type Manager struct {
	engine    Engine
	cfg       Config
	onSegment func(meeting.TranscriptSegment)

	mu         sync.Mutex
	state      ConnState
	session    Session
	connecting bool
	retryAt    time.Time

	backoff time.Duration
	now     func() time.Time
}

// NewManager creates a Manager. The segment callback is invoked from the
// session's receive goroutine for every surfaced segment.
func NewManager(engine Engine, cfg Config, onSegment func(meeting.TranscriptSegment)) *Manager {
	return &Manager{
		engine:    engine,
		cfg:       cfg,
		onSegment: onSegment,
		state:     Disconnected,
		backoff:   DefaultBackoff,
		now:       time.Now,
	}
}

// State returns the current connection state.
func (m *Manager) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connected reports whether a live session is established.
func (m *Manager) Connected() bool {
	return m.State() == Connected
}

// Connect establishes an engine session. A call while already connected or
// while another call is in flight is a no-op. During the backoff window it
// fails with ErrBackoff. On failure the connection handle is cleared and the
// backoff deadline is scheduled; session state elsewhere is left untouched.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state == Connected || m.connecting {
		m.mu.Unlock()
		return nil
	}
	if m.now().Before(m.retryAt) {
		m.mu.Unlock()
		return ErrBackoff
	}
	m.connecting = true
	m.state = Connecting
	m.mu.Unlock()

	sess, err := m.engine.Open(ctx, m.cfg)

	m.mu.Lock()
	m.connecting = false
	if err != nil {
		m.state = Disconnected
		m.retryAt = m.now().Add(m.backoff)
		m.mu.Unlock()
		slog.Error("speech: connect failed", "err", err, "retry_in", m.backoff)
		return fmt.Errorf("speech: connect: %w", err)
	}
	m.session = sess
	m.state = Connected
	m.mu.Unlock()

	slog.Info("speech: connected")
	go m.recvLoop(sess)
	return nil
}

// TryConnect starts a connection attempt in the background if one is neither
// established, in flight, nor blocked by the backoff window. The caller is
// not notified of the outcome; audio is dropped until a later attempt
// succeeds.
func (m *Manager) TryConnect(ctx context.Context) {
	m.mu.Lock()
	eligible := m.state != Connected && !m.connecting && !m.now().Before(m.retryAt)
	m.mu.Unlock()
	if !eligible {
		return
	}
	go func() {
		if err := m.Connect(ctx); err != nil && !errors.Is(err, ErrBackoff) {
			slog.Debug("speech: background connect failed", "err", err)
		}
	}()
}

// Send forwards one audio frame to the live session. When not connected the
// frame is silently dropped with a warning: at-most-once, best-effort, no
// queueing.
func (m *Manager) Send(data []byte) {
	m.mu.Lock()
	if m.state != Connected || m.session == nil {
		m.mu.Unlock()
		slog.Warn("speech: cannot send audio: not connected")
		return
	}
	sess := m.session
	m.mu.Unlock()

	if err := sess.Send(data); err != nil {
		slog.Error("speech: send audio", "err", err)
	}
}

// Disconnect requests graceful termination of the live session, if any.
// Subsequent sends no-op.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	sess := m.session
	m.session = nil
	m.state = Disconnected
	m.mu.Unlock()

	if sess != nil {
		sess.Close()
	}
}

func (m *Manager) recvLoop(sess Session) {
	for r := range sess.Results() {
		if !r.IsFinal {
			continue
		}
		if strings.TrimSpace(r.Transcript) == "" {
			continue
		}
		label := "Speaker 0"
		if r.SpeakerIndex != nil {
			label = fmt.Sprintf("Speaker %d", *r.SpeakerIndex)
		}
		m.onSegment(meeting.TranscriptSegment{
			Speaker:    label,
			Text:       r.Transcript,
			Timestamp:  jsontime.Milli(m.now()),
			Confidence: r.Confidence,
		})
	}

	err := sess.Err()
	m.mu.Lock()
	if m.session == sess {
		m.session = nil
		if err != nil {
			m.state = Errored
		} else {
			m.state = Closed
		}
	}
	m.mu.Unlock()

	if err != nil {
		slog.Error("speech: session ended", "err", err)
	} else {
		slog.Info("speech: session closed")
	}
}

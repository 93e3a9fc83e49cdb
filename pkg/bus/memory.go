package bus

import (
	"context"
	"log/slog"
	"sync"
)

// Memory is an in-process Bus. It is used in tests and when the gateway and
// bot run inside one process. Delivery is best-effort: a subscriber that
// falls behind its buffer has messages dropped, never queued unboundedly.
type Memory struct {
	mu     sync.Mutex
	subs   map[*memorySub]struct{}
	closed bool
}

// NewMemory creates a new in-process Bus.
func NewMemory() *Memory {
	return &Memory{subs: make(map[*memorySub]struct{})}
}

const memorySubBuffer = 256

type memorySub struct {
	bus      *Memory
	channels map[Channel]struct{}
	msgs     chan Message
	once     sync.Once
}

func (m *Memory) Publish(_ context.Context, ch Channel, env Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for sub := range m.subs {
		if _, ok := sub.channels[ch]; !ok {
			continue
		}
		select {
		case sub.msgs <- Message{Channel: ch, Envelope: env}:
		default:
			slog.Warn("bus: subscriber buffer full, dropping message", "channel", ch, "type", env.Type)
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, channels ...Channel) (Subscription, error) {
	sub := &memorySub{
		bus:      m,
		channels: make(map[Channel]struct{}, len(channels)),
		msgs:     make(chan Message, memorySubBuffer),
	}
	for _, ch := range channels {
		sub.channels[ch] = struct{}{}
	}

	m.mu.Lock()
	m.subs[sub] = struct{}{}
	m.mu.Unlock()

	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			sub.Close()
		}()
	}
	return sub, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	subs := make([]*memorySub, 0, len(m.subs))
	for sub := range m.subs {
		subs = append(subs, sub)
	}
	m.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	return nil
}

func (s *memorySub) Messages() <-chan Message {
	return s.msgs
}

func (s *memorySub) Close() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		s.bus.mu.Unlock()
		close(s.msgs)
	})
	return nil
}

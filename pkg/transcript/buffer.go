// Package transcript coalesces a stream of small transcript fragments into
// coherent delivery-ready lines.
//
// A single buffer accumulates consecutive fragments from one speaker. The
// buffer flushes when the speaker changes, when the rendered line reaches the
// maximum length, when the inactivity timer expires, or when Flush is called
// explicitly (e.g. before a state-change banner).
package transcript

import (
	"sync"
	"time"
)

const (
	// DefaultMaxLineLength is the flush threshold for the rendered line,
	// leaving room for chat protocol overhead.
	DefaultMaxLineLength = 400

	// DefaultFlushDelay is the inactivity window after which a pending
	// buffer is flushed.
	DefaultFlushDelay = 3000 * time.Millisecond
)

// Buffer accumulates transcript fragments per speaker. One Buffer is scoped
// to one session. Safe for concurrent use.
type Buffer struct {
	mu sync.Mutex

	speaker string
	text    string

	timer flushTimer
	gen   uint64 // invalidates callbacks from superseded timers

	emit       func(line string)
	maxLineLen int
	flushDelay time.Duration
	newTimer   func(d time.Duration, f func()) flushTimer
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithMaxLineLength overrides the flush threshold for the rendered line.
func WithMaxLineLength(n int) Option {
	return func(b *Buffer) { b.maxLineLen = n }
}

// WithFlushDelay overrides the inactivity flush window.
func WithFlushDelay(d time.Duration) Option {
	return func(b *Buffer) { b.flushDelay = d }
}

// NewBuffer creates a Buffer that calls emit with each flushed line.
// The emit callback runs synchronously: when a flush returns, the line has
// been delivered.
func NewBuffer(emit func(line string), opts ...Option) *Buffer {
	b := &Buffer{
		emit:       emit,
		maxLineLen: DefaultMaxLineLength,
		flushDelay: DefaultFlushDelay,
		newTimer:   afterFunc,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Append adds a fragment for the given speaker. If the pending buffer belongs
// to a different speaker, it is flushed first. Fragments are joined by a
// single space. The buffer flushes immediately once the rendered line reaches
// the maximum length; otherwise the inactivity timer is rearmed.
func (b *Buffer) Append(speaker, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.speaker != "" && b.speaker != speaker {
		b.flushLocked()
	}
	if b.speaker == "" {
		b.speaker = speaker
	}
	if b.text != "" {
		b.text += " "
	}
	b.text += text

	if len(b.render()) >= b.maxLineLen {
		b.flushLocked()
		return
	}
	b.rearmLocked()
}

// Flush emits the pending line, if any, cancels the inactivity timer, and
// clears the buffer. It returns after the line has been delivered, so callers
// may safely announce state changes once Flush returns.
func (b *Buffer) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

// Close cancels any pending timer and discards the buffer without emitting.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancelTimerLocked()
	b.speaker, b.text = "", ""
}

func (b *Buffer) render() string {
	return b.speaker + ": " + b.text
}

func (b *Buffer) flushLocked() {
	b.cancelTimerLocked()
	if b.text == "" {
		b.speaker = ""
		return
	}
	line := b.render()
	b.speaker, b.text = "", ""
	b.emit(line)
}

// rearmLocked replaces any pending timer with a fresh single-shot one. The
// generation counter makes a superseded timer's callback a no-op even if it
// has already fired and is waiting on the mutex.
func (b *Buffer) rearmLocked() {
	b.cancelTimerLocked()
	b.gen++
	gen := b.gen
	b.timer = b.newTimer(b.flushDelay, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if gen != b.gen {
			return
		}
		b.flushLocked()
	})
}

func (b *Buffer) cancelTimerLocked() {
	b.gen++
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

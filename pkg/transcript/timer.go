package transcript

import "time"

// flushTimer is a cancelable single-shot timer. Stop is idempotent.
type flushTimer interface {
	Stop() bool
}

// afterFunc schedules f to run once after d. It exists as an indirection so
// tests can substitute a manually-triggered timer.
func afterFunc(d time.Duration, f func()) flushTimer {
	return time.AfterFunc(d, f)
}

package speaker

import (
	"testing"
	"time"
)

func newTestResolver(start time.Time) (*Resolver, *time.Time) {
	r := NewResolver()
	now := start
	r.now = func() time.Time { return now }
	return r, &now
}

func TestResolveUnmappedWithoutHints(t *testing.T) {
	r, _ := newTestResolver(time.Unix(1000, 0))
	if got := r.Resolve("Speaker 2"); got != "Speaker 2" {
		t.Fatalf("Resolve = %q, want unresolved label", got)
	}
}

func TestResolveNonSpeakerLabelPassthrough(t *testing.T) {
	r, _ := newTestResolver(time.Unix(1000, 0))
	r.UpdateActiveSpeakers([]Hint{{ParticipantID: 1, Name: "Alice"}})
	for _, label := range []string{"Alice", "speaker 1", "Speaker", "Speaker x"} {
		if got := r.Resolve(label); got != label {
			t.Fatalf("Resolve(%q) = %q, want passthrough", label, got)
		}
	}
}

func TestResolveAssignsFirstFreshUnassignedHint(t *testing.T) {
	r, _ := newTestResolver(time.Unix(1000, 0))
	r.UpdateActiveSpeakers([]Hint{
		{ParticipantID: 1, Name: "Alice"},
		{ParticipantID: 2, Name: "Bob"},
	})

	if got := r.Resolve("Speaker 0"); got != "Alice" {
		t.Fatalf("Resolve(Speaker 0) = %q, want Alice", got)
	}
	// Alice is taken now; the next index gets the next name, never Alice twice.
	if got := r.Resolve("Speaker 1"); got != "Bob" {
		t.Fatalf("Resolve(Speaker 1) = %q, want Bob", got)
	}
}

func TestResolveIgnoresStaleHints(t *testing.T) {
	r, now := newTestResolver(time.Unix(1000, 0))
	r.UpdateActiveSpeakers([]Hint{{ParticipantID: 1, Name: "Alice"}})

	*now = now.Add(3001 * time.Millisecond)
	if got := r.Resolve("Speaker 0"); got != "Speaker 0" {
		t.Fatalf("Resolve with stale hints = %q, want unresolved", got)
	}

	// A fresh snapshot makes the next attempt succeed.
	r.UpdateActiveSpeakers([]Hint{{ParticipantID: 1, Name: "Alice"}})
	if got := r.Resolve("Speaker 0"); got != "Alice" {
		t.Fatalf("Resolve after fresh update = %q, want Alice", got)
	}
}

func TestResolveMappingIsSticky(t *testing.T) {
	r, _ := newTestResolver(time.Unix(1000, 0))
	r.UpdateActiveSpeakers([]Hint{{ParticipantID: 1, Name: "Alice"}})
	if got := r.Resolve("Speaker 0"); got != "Alice" {
		t.Fatalf("Resolve = %q, want Alice", got)
	}

	// Later hint updates never change an established mapping.
	r.UpdateActiveSpeakers([]Hint{{ParticipantID: 2, Name: "Bob"}})
	if got := r.Resolve("Speaker 0"); got != "Alice" {
		t.Fatalf("Resolve after new hints = %q, want Alice", got)
	}
}

func TestSnapshotReplacementIsWholesale(t *testing.T) {
	r, _ := newTestResolver(time.Unix(1000, 0))
	r.UpdateActiveSpeakers([]Hint{{ParticipantID: 1, Name: "Alice"}})
	r.UpdateActiveSpeakers([]Hint{{ParticipantID: 2, Name: "Bob"}})

	// Alice's hint was discarded by the second update.
	if got := r.Resolve("Speaker 0"); got != "Bob" {
		t.Fatalf("Resolve = %q, want Bob", got)
	}
}

func TestAddParticipantRenamesExistingMapping(t *testing.T) {
	r, _ := newTestResolver(time.Unix(1000, 0))
	r.UpdateActiveSpeakers([]Hint{{ParticipantID: 7, Name: "Guest"}})
	if got := r.Resolve("Speaker 0"); got != "Guest" {
		t.Fatalf("Resolve = %q, want Guest", got)
	}

	r.AddParticipant(7, "Carol")
	if got := r.Resolve("Speaker 0"); got != "Carol" {
		t.Fatalf("Resolve after rename = %q, want Carol", got)
	}
}

func TestRemoveParticipantKeepsMapping(t *testing.T) {
	r, _ := newTestResolver(time.Unix(1000, 0))
	r.UpdateActiveSpeakers([]Hint{{ParticipantID: 1, Name: "Alice"}})
	if got := r.Resolve("Speaker 0"); got != "Alice" {
		t.Fatalf("Resolve = %q, want Alice", got)
	}

	r.RemoveParticipant(1)
	if got := r.Resolve("Speaker 0"); got != "Alice" {
		t.Fatalf("Resolve after leave = %q, want Alice", got)
	}
}

func TestReset(t *testing.T) {
	r, _ := newTestResolver(time.Unix(1000, 0))
	r.UpdateActiveSpeakers([]Hint{{ParticipantID: 1, Name: "Alice"}})
	if got := r.Resolve("Speaker 0"); got != "Alice" {
		t.Fatalf("Resolve = %q, want Alice", got)
	}

	r.Reset()
	if got := r.Resolve("Speaker 0"); got != "Speaker 0" {
		t.Fatalf("Resolve after reset = %q, want unresolved", got)
	}
}

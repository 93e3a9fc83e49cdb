// Package speaker maps diarization speaker indices ("Speaker 0", "Speaker 1",
// ...) to real participant names using active-speaker metadata from the
// audio source.
//
// Strategy: the audio source reports every few hundred milliseconds who is
// currently speaking. When the speech engine emits a transcript for an index
// that has no mapping yet, the resolver assumes the currently active
// participant is that voice and creates the mapping. Once established, a
// mapping persists for the session.
//
// Concurrent speakers competing for assignment resolve in snapshot order:
// the first caller wins. This is an accepted heuristic limitation.
package speaker

import (
	"log/slog"
	"regexp"
	"strconv"
	"sync"
	"time"
)

// freshnessWindow is the maximum age an active-speaker hint may have to be
// eligible for a new mapping assignment.
const freshnessWindow = 3000 * time.Millisecond

var speakerLabel = regexp.MustCompile(`^Speaker (\d+)$`)

// Hint is one entry of an active-speaker snapshot.
type Hint struct {
	ParticipantID int64
	Name          string
}

type hint struct {
	Hint
	at time.Time
}

type mapping struct {
	name          string
	participantID int64
}

// Resolver resolves diarization indices to participant names. One Resolver is
// scoped to one session; create a fresh one (or call Reset) when a new
// session starts. Safe for concurrent use.
type Resolver struct {
	mu sync.Mutex

	// diarization index → resolved mapping
	indexToName map[int]*mapping
	// names already assigned, to avoid mapping one name to two indices
	assigned map[string]struct{}
	// most recent active-speaker snapshot, replaced wholesale on update
	active []hint

	now func() time.Time
}

// NewResolver creates an empty Resolver.
func NewResolver() *Resolver {
	return &Resolver{
		indexToName: make(map[int]*mapping),
		assigned:    make(map[string]struct{}),
		now:         time.Now,
	}
}

// UpdateActiveSpeakers replaces the prior snapshot wholesale, stamping every
// entry with the current time. Earlier hints are discarded entirely.
func (r *Resolver) UpdateActiveSpeakers(speakers []Hint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.active = make([]hint, len(speakers))
	for i, s := range speakers {
		r.active[i] = hint{Hint: s, at: now}
	}
}

// AddParticipant handles a participant joining. If the participant is already
// mapped to an index, only the display name of that mapping is updated.
func (r *Resolver) AddParticipant(participantID int64, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.indexToName {
		if m.participantID == participantID {
			m.name = name
			break
		}
	}
}

// RemoveParticipant handles a participant leaving. Mappings are kept intact:
// diarization indices stay stable even after the participant disconnects.
func (r *Resolver) RemoveParticipant(participantID int64) {}

// Resolve maps a "Speaker N" label to a real name. An existing mapping is
// returned as-is, ignoring later hint updates. Otherwise the current snapshot
// is scanned in its given order for the first fresh hint whose name is not
// already assigned to another index; on a hit the mapping is created and
// returned. With no hit the original label is returned unresolved, to be
// retried on the next call with fresh hints.
func (r *Resolver) Resolve(label string) string {
	m := speakerLabel.FindStringSubmatch(label)
	if m == nil {
		return label
	}
	index, err := strconv.Atoi(m[1])
	if err != nil {
		return label
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.indexToName[index]; ok {
		return existing.name
	}

	now := r.now()
	for _, h := range r.active {
		if now.Sub(h.at) > freshnessWindow {
			continue
		}
		if _, taken := r.assigned[h.Name]; taken {
			continue
		}
		r.indexToName[index] = &mapping{name: h.Name, participantID: h.ParticipantID}
		r.assigned[h.Name] = struct{}{}
		slog.Info("speaker: mapped", "index", index, "name", h.Name)
		return h.Name
	}

	return label
}

// Reset clears all mappings, assigned names, and the snapshot. Used when
// starting a new session.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexToName = make(map[int]*mapping)
	r.assigned = make(map[string]struct{})
	r.active = nil
}

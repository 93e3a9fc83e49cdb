// Package bus provides the typed publish/subscribe abstraction connecting the
// audio gateway and the chat bot. Three logical channels carry JSON envelopes:
// control commands, transcript events, and state changes.
//
// Delivery is best-effort and at-least-once at most. Ordering is guaranteed
// only per channel per publisher, and there is no built-in deduplication.
// Durability and redelivery are the transport's responsibility, not this
// package's.
package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/scribewire/scribewire/pkg/jsontime"
	"github.com/scribewire/scribewire/pkg/meeting"
)

// Channel is a logical bus channel.
type Channel string

const (
	// Commands carries control commands from the chat bot to the gateway.
	Commands Channel = "transcription:commands"

	// TranscriptEvents carries resolved transcript segments to consumers.
	TranscriptEvents Channel = "transcription:events"

	// StateChanges carries session state transitions to consumers.
	StateChanges Channel = "transcription:state"
)

// Envelope event types.
const (
	TypeTranscript  = "transcript"
	TypeStateChange = "state_change"
	TypeCommand     = "command"
)

// Envelope is the wire format carried on every channel.
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp jsontime.Milli  `json:"timestamp"`
}

// Message is an envelope delivered to a subscriber, tagged with its channel.
type Message struct {
	Channel  Channel
	Envelope Envelope
}

// Bus is the publish/subscribe interface.
type Bus interface {
	// Publish sends an envelope on a channel. Best-effort: a publish with no
	// subscribers is not an error.
	Publish(ctx context.Context, ch Channel, env Envelope) error

	// Subscribe starts delivery for the given channels. The subscription is
	// torn down when ctx is canceled or Close is called.
	Subscribe(ctx context.Context, channels ...Channel) (Subscription, error)

	// Close releases transport resources.
	Close() error
}

// Subscription delivers messages for subscribed channels.
type Subscription interface {
	// Messages returns the delivery channel. It is closed when the
	// subscription ends.
	Messages() <-chan Message

	// Close tears down the subscription.
	Close() error
}

func newEnvelope(typ string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("bus: marshal %s: %w", typ, err)
	}
	return Envelope{Type: typ, Data: raw, Timestamp: jsontime.NowEpochMilli()}, nil
}

// NewTranscript builds a transcript envelope.
func NewTranscript(seg meeting.TranscriptSegment) (Envelope, error) {
	return newEnvelope(TypeTranscript, seg)
}

// NewStateChange builds a state-change envelope.
func NewStateChange(sc meeting.StateChange) (Envelope, error) {
	return newEnvelope(TypeStateChange, sc)
}

// NewCommand builds a command envelope.
func NewCommand(cmd meeting.Command) (Envelope, error) {
	return newEnvelope(TypeCommand, cmd)
}

// Transcript decodes the envelope payload as a transcript segment.
// Returns an error if the envelope carries a different event type.
func (e Envelope) Transcript() (meeting.TranscriptSegment, error) {
	var seg meeting.TranscriptSegment
	if e.Type != TypeTranscript {
		return seg, fmt.Errorf("bus: envelope type %q is not %s", e.Type, TypeTranscript)
	}
	if err := json.Unmarshal(e.Data, &seg); err != nil {
		return seg, fmt.Errorf("bus: decode transcript: %w", err)
	}
	return seg, nil
}

// StateChange decodes the envelope payload as a state change.
func (e Envelope) StateChange() (meeting.StateChange, error) {
	var sc meeting.StateChange
	if e.Type != TypeStateChange {
		return sc, fmt.Errorf("bus: envelope type %q is not %s", e.Type, TypeStateChange)
	}
	if err := json.Unmarshal(e.Data, &sc); err != nil {
		return sc, fmt.Errorf("bus: decode state change: %w", err)
	}
	return sc, nil
}

// Command decodes the envelope payload as a control command.
func (e Envelope) Command() (meeting.Command, error) {
	var cmd meeting.Command
	if e.Type != TypeCommand {
		return cmd, fmt.Errorf("bus: envelope type %q is not %s", e.Type, TypeCommand)
	}
	if err := json.Unmarshal(e.Data, &cmd); err != nil {
		return cmd, fmt.Errorf("bus: decode command: %w", err)
	}
	return cmd, nil
}

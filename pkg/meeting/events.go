package meeting

import "github.com/scribewire/scribewire/pkg/jsontime"

// TranscriptSegment is one final speech-engine result. Segments are immutable
// once emitted; the Speaker label is rewritten exactly once by the speaker
// resolver before publication.
type TranscriptSegment struct {
	Speaker    string         `json:"speaker"`
	Text       string         `json:"text"`
	Timestamp  jsontime.Milli `json:"timestamp"`
	Confidence float64        `json:"confidence"`
}

// StateChange describes a session state transition.
type StateChange struct {
	Previous State  `json:"previousState"`
	New      State  `json:"newState"`
	Reason   string `json:"reason,omitempty"`
}

// CommandType identifies a control command.
type CommandType string

const (
	CommandPause       CommandType = "pause"
	CommandResume      CommandType = "resume"
	CommandStatus      CommandType = "status"
	CommandSetChair    CommandType = "set_chair"
	CommandRemoveChair CommandType = "remove_chair"
)

// Command is a transient control command issued from the chat channel.
// Commands are never persisted.
type Command struct {
	Type        CommandType       `json:"type"`
	TriggeredBy string            `json:"triggeredBy"`
	Timestamp   jsontime.Milli    `json:"timestamp"`
	Args        map[string]string `json:"args,omitempty"`
}

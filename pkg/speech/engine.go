// Package speech drives the streaming speech-recognition session: the engine
// collaborator interface, a websocket engine implementation, and the Manager
// that owns the connection lifecycle (lazy connect, backoff, frame
// forwarding).
package speech

import "context"

// Config holds the fixed session parameters for a recognition session.
// Audio is always raw PCM, 16 kHz, mono, 16-bit little-endian.
type Config struct {
	Model          string `json:"model" yaml:"model"`
	Language       string `json:"language" yaml:"language"`
	Diarize        bool   `json:"diarize" yaml:"diarize"`
	Punctuate      bool   `json:"punctuate" yaml:"punctuate"`
	InterimResults bool   `json:"interim_results" yaml:"interim_results"`
}

// DefaultConfig returns the session parameters used by the gateway.
func DefaultConfig() Config {
	return Config{
		Model:          "nova-2",
		Language:       "en",
		Diarize:        true,
		Punctuate:      true,
		InterimResults: true,
	}
}

// Result is one recognition result from the engine. SpeakerIndex is nil when
// the result carries no diarization tag.
type Result struct {
	IsFinal      bool
	Transcript   string
	Confidence   float64
	SpeakerIndex *int
}

// Engine opens recognition sessions. Implementations wrap a vendor protocol.
type Engine interface {
	Open(ctx context.Context, cfg Config) (Session, error)
}

// Session is one live recognition session.
type Session interface {
	// Send forwards one audio frame. Best-effort, never buffers.
	Send(data []byte) error

	// Results returns the result channel. It is closed when the session
	// ends; Err reports the terminal error, if any.
	Results() <-chan Result

	// Err returns the error that ended the session, or nil after a clean
	// close. Valid once Results is closed.
	Err() error

	// Close requests graceful termination.
	Close() error
}

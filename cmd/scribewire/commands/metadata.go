package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// speakerUpdateFrame builds a speaker_update metadata frame from id:name
// pairs given on the command line.
func speakerUpdateFrame(pairs []string) ([]byte, error) {
	type activeSpeaker struct {
		UserID int64  `json:"userId"`
		Name   string `json:"name"`
	}
	speakers := make([]activeSpeaker, 0, len(pairs))
	for _, p := range pairs {
		id, name, ok := strings.Cut(p, ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid speaker %q, want id:name", p)
		}
		uid, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid speaker id %q: %w", id, err)
		}
		speakers = append(speakers, activeSpeaker{UserID: uid, Name: name})
	}
	return json.Marshal(map[string]any{
		"type":           "speaker_update",
		"activeSpeakers": speakers,
	})
}

package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Metadata frame types sent by the audio source on the websocket text path.
const (
	metaParticipantJoined = "participant_joined"
	metaParticipantLeft   = "participant_left"
	metaSpeakerUpdate     = "speaker_update"
)

type participantJoined struct {
	Type   string `json:"type"`
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
}

type participantLeft struct {
	Type   string `json:"type"`
	UserID int64  `json:"userId"`
}

type activeSpeaker struct {
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
}

type speakerUpdate struct {
	Type           string          `json:"type"`
	ActiveSpeakers []activeSpeaker `json:"activeSpeakers"`
}

// metadataSchemas validates inbound frames before they touch the resolver.
var metadataSchemas = map[string]*jsonschema.Resolved{
	metaParticipantJoined: mustResolve[participantJoined](),
	metaParticipantLeft:   mustResolve[participantLeft](),
	metaSpeakerUpdate:     mustResolve[speakerUpdate](),
}

func mustResolve[T any]() *jsonschema.Resolved {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		panic(err)
	}
	r, err := s.Resolve(nil)
	if err != nil {
		panic(err)
	}
	return r
}

// validateMetadata checks a raw frame against the schema for its declared
// type. Returns the type on success.
func validateMetadata(data []byte) (string, error) {
	var hdr struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &hdr); err != nil {
		return "", fmt.Errorf("malformed metadata frame: %w", err)
	}
	resolved, ok := metadataSchemas[hdr.Type]
	if !ok {
		return "", fmt.Errorf("unknown metadata type %q", hdr.Type)
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return "", fmt.Errorf("malformed metadata frame: %w", err)
	}
	if err := resolved.Validate(instance); err != nil {
		return "", fmt.Errorf("invalid %s frame: %w", hdr.Type, err)
	}
	return hdr.Type, nil
}

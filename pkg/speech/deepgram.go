package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
)

// DefaultDeepgramURL is the Deepgram streaming endpoint.
const DefaultDeepgramURL = "wss://api.deepgram.com/v1/listen"

// Deepgram is an Engine backed by the Deepgram live transcription API.
// Audio goes out as binary websocket frames; results come back as JSON text
// messages.
type Deepgram struct {
	// APIKey authenticates the session. Required.
	APIKey string

	// URL overrides the streaming endpoint. Defaults to DefaultDeepgramURL.
	URL string

	// Dialer overrides the websocket dialer. Defaults to
	// websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

var _ Engine = (*Deepgram)(nil)

// Open establishes a live transcription session.
func (d *Deepgram) Open(ctx context.Context, cfg Config) (Session, error) {
	endpoint := d.URL
	if endpoint == "" {
		endpoint = DefaultDeepgramURL
	}
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	q := url.Values{}
	q.Set("model", cfg.Model)
	q.Set("language", cfg.Language)
	q.Set("diarize", strconv.FormatBool(cfg.Diarize))
	q.Set("punctuate", strconv.FormatBool(cfg.Punctuate))
	q.Set("interim_results", strconv.FormatBool(cfg.InterimResults))
	q.Set("smart_format", "true")
	q.Set("encoding", "linear16")
	q.Set("sample_rate", "16000")
	q.Set("channels", "1")

	header := http.Header{}
	header.Set("Authorization", "Token "+d.APIKey)

	conn, resp, err := dialer.DialContext(ctx, endpoint+"?"+q.Encode(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("speech: websocket connect failed: %w, status=%s", err, resp.Status)
		}
		return nil, fmt.Errorf("speech: websocket connect failed: %w", err)
	}

	s := &deepgramSession{
		conn:    conn,
		results: make(chan Result, 100),
		closeCh: make(chan struct{}),
	}
	go s.recvLoop()
	return s, nil
}

type deepgramSession struct {
	conn    *websocket.Conn
	results chan Result
	closeCh chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

var _ Session = (*deepgramSession)(nil)

func (s *deepgramSession) Send(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (s *deepgramSession) Results() <-chan Result {
	return s.results
}

func (s *deepgramSession) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *deepgramSession) setErr(err error) {
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
}

// Close requests graceful termination: a CloseStream control message followed
// by connection teardown. Safe to call more than once.
func (s *deepgramSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.closeCh)
		s.writeMu.Lock()
		s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
		s.writeMu.Unlock()
		s.conn.Close()
	})
	return nil
}

func (s *deepgramSession) recvLoop() {
	defer close(s.results)
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closeCh:
				// Expected teardown.
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.setErr(fmt.Errorf("speech: ws read: %w", err))
				}
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		result, ok := parseDeepgramMessage(data)
		if !ok {
			continue
		}
		select {
		case s.results <- result:
		case <-s.closeCh:
			return
		}
	}
}

// deepgramMessage is the vendor result shape:
// {is_final, speech_final, channel:{alternatives:[{transcript, confidence,
// words:[{word, speaker}]}]}}.
type deepgramMessage struct {
	Type        string `json:"type"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
			Words      []struct {
				Word    string `json:"word"`
				Speaker *int   `json:"speaker"`
			} `json:"words"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// parseDeepgramMessage decodes one vendor message into a Result. Non-result
// messages and payloads with no alternatives are dropped.
func parseDeepgramMessage(data []byte) (Result, bool) {
	var msg deepgramMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Result{}, false
	}
	if msg.Type != "" && msg.Type != "Results" {
		return Result{}, false
	}
	alts := msg.Channel.Alternatives
	if len(alts) == 0 {
		return Result{}, false
	}
	r := Result{
		IsFinal:    msg.IsFinal || msg.SpeechFinal,
		Transcript: alts[0].Transcript,
		Confidence: alts[0].Confidence,
	}
	if len(alts[0].Words) > 0 {
		r.SpeakerIndex = alts[0].Words[0].Speaker
	}
	return r, true
}

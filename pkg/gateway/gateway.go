// Package gateway is the audio ingress side of the coordinator. It accepts a
// websocket stream of raw PCM frames interleaved with JSON metadata frames,
// feeds audio to the speech engine while the session is active, resolves
// diarization labels to participant names, and publishes finished transcript
// segments on the bus. It also executes control commands arriving on the
// commands channel.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/scribewire/scribewire/pkg/bus"
	"github.com/scribewire/scribewire/pkg/meeting"
	"github.com/scribewire/scribewire/pkg/session"
	"github.com/scribewire/scribewire/pkg/speaker"
	"github.com/scribewire/scribewire/pkg/speech"
)

// Options configures a Gateway.
type Options struct {
	Store  *session.Store
	Bus    bus.Bus
	Engine speech.Engine
	Speech speech.Config
	Logger *slog.Logger
}

// Gateway wires the audio source, speech engine, speaker resolver and session
// store together.
type Gateway struct {
	store    *session.Store
	bus      bus.Bus
	speech   *speech.Manager
	resolver *speaker.Resolver
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	runCtx context.Context
}

// New creates a Gateway. The speech engine stays disconnected until the first
// audio frame arrives for an active session.
func New(opts Options) *Gateway {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	g := &Gateway{
		store:    opts.Store,
		bus:      opts.Bus,
		resolver: speaker.NewResolver(),
		log:      log.With("component", "gateway"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  8192,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	g.speech = speech.NewManager(opts.Engine, opts.Speech, g.handleSegment)
	return g
}

// Start creates the session record and transitions it to active.
func (g *Gateway) Start(ctx context.Context, channel string, chairs []string) error {
	sess, err := g.store.Create(ctx, channel, chairs)
	if err != nil {
		return err
	}
	// Mappings from a previous session do not carry over.
	g.resolver.Reset()
	g.log.Info("session created", "session_id", sess.ID, "channel", channel, "chairs", chairs)
	return g.store.UpdateState(ctx, meeting.StateActive, "Started")
}

// Stop tears down the engine session and transitions the session to idle.
func (g *Gateway) Stop(ctx context.Context) error {
	g.speech.Disconnect()
	return g.store.UpdateState(ctx, meeting.StateIdle, "Stopped")
}

// Run processes control commands from the bus until ctx is canceled.
func (g *Gateway) Run(ctx context.Context) error {
	g.mu.Lock()
	g.runCtx = ctx
	g.mu.Unlock()

	sub, err := g.bus.Subscribe(ctx, bus.Commands)
	if err != nil {
		return err
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.Messages():
			if !ok {
				return nil
			}
			g.handleCommand(ctx, msg.Envelope)
		}
	}
}

// lifetimeCtx returns the Run context, or Background before Run starts.
// Engine connections outlive individual websocket clients.
func (g *Gateway) lifetimeCtx() context.Context {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.runCtx != nil {
		return g.runCtx
	}
	return context.Background()
}

// ServeHTTP upgrades the connection and consumes audio and metadata frames
// until the client disconnects.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer conn.Close()
	g.log.Info("audio source connected", "remote", r.RemoteAddr)

	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				g.log.Warn("audio source read", "err", err)
			} else {
				g.log.Info("audio source disconnected", "remote", r.RemoteAddr)
			}
			return
		}
		switch typ {
		case websocket.BinaryMessage:
			g.handleAudio(data)
		case websocket.TextMessage:
			g.handleMetadata(data)
		}
	}
}

// handleAudio forwards one PCM frame to the engine. Frames are dropped while
// the session is not active, and while no engine connection exists; the first
// frame that finds the engine down kicks off a background connect.
func (g *Gateway) handleAudio(data []byte) {
	if g.store.State() != meeting.StateActive {
		return
	}
	if !g.speech.Connected() {
		g.speech.TryConnect(g.lifetimeCtx())
		return
	}
	g.speech.Send(data)
}

// handleMetadata validates and applies one metadata frame. Malformed or
// unknown frames are logged and ignored.
func (g *Gateway) handleMetadata(data []byte) {
	typ, err := validateMetadata(data)
	if err != nil {
		g.log.Warn("dropping metadata frame", "err", err)
		return
	}
	switch typ {
	case metaParticipantJoined:
		var m participantJoined
		if err := json.Unmarshal(data, &m); err != nil {
			g.log.Warn("dropping metadata frame", "err", err)
			return
		}
		g.resolver.AddParticipant(m.UserID, m.Name)
	case metaParticipantLeft:
		var m participantLeft
		if err := json.Unmarshal(data, &m); err != nil {
			g.log.Warn("dropping metadata frame", "err", err)
			return
		}
		g.resolver.RemoveParticipant(m.UserID)
	case metaSpeakerUpdate:
		var m speakerUpdate
		if err := json.Unmarshal(data, &m); err != nil {
			g.log.Warn("dropping metadata frame", "err", err)
			return
		}
		hints := make([]speaker.Hint, len(m.ActiveSpeakers))
		for i, s := range m.ActiveSpeakers {
			hints[i] = speaker.Hint{ParticipantID: s.UserID, Name: s.Name}
		}
		g.resolver.UpdateActiveSpeakers(hints)
	}
}

// handleSegment rewrites the diarization label and publishes the segment.
// Segments arriving while the session is not active are dropped: the engine
// may still flush results after a pause.
func (g *Gateway) handleSegment(seg meeting.TranscriptSegment) {
	if g.store.State() != meeting.StateActive {
		g.log.Debug("dropping segment, session not active", "speaker", seg.Speaker)
		return
	}
	seg.Speaker = g.resolver.Resolve(seg.Speaker)

	env, err := bus.NewTranscript(seg)
	if err != nil {
		g.log.Error("encode transcript event", "err", err)
		return
	}
	if err := g.bus.Publish(g.lifetimeCtx(), bus.TranscriptEvents, env); err != nil {
		g.log.Error("publish transcript event", "err", err)
	}
}

// Package bot renders the live transcript into a chat channel and feeds chat
// commands back onto the bus. It consumes transcript and state-change events,
// batches fragments through the transcript buffer, and announces state
// transitions with a banner line.
package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/scribewire/scribewire/pkg/bus"
	"github.com/scribewire/scribewire/pkg/chat"
	"github.com/scribewire/scribewire/pkg/command"
	"github.com/scribewire/scribewire/pkg/meeting"
	"github.com/scribewire/scribewire/pkg/transcript"
)

// DefaultReconnectDelay is the pause between transport reconnect attempts.
const DefaultReconnectDelay = 5 * time.Second

const greeting = "Transcription bot ready. Type !help for commands."

// Options configures a Bot.
type Options struct {
	Transport chat.Transport
	Bus       bus.Bus
	Router    *command.Router

	// Channel is the chat channel transcript lines are written to.
	Channel string

	// ReconnectDelay overrides DefaultReconnectDelay when positive.
	ReconnectDelay time.Duration

	Logger *slog.Logger
}

// Bot is the transcript consumer.
type Bot struct {
	transport chat.Transport
	bus       bus.Bus
	router    *command.Router
	channel   string
	reconnect time.Duration
	log       *slog.Logger

	buf *transcript.Buffer

	mu     sync.Mutex
	state  meeting.State
	runCtx context.Context
}

// New creates a Bot and registers its transport handlers.
func New(opts Options) *Bot {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	reconnect := opts.ReconnectDelay
	if reconnect <= 0 {
		reconnect = DefaultReconnectDelay
	}
	b := &Bot{
		transport: opts.Transport,
		bus:       opts.Bus,
		router:    opts.Router,
		channel:   opts.Channel,
		reconnect: reconnect,
		log:       log.With("component", "bot"),
		state:     meeting.StateIdle,
	}
	b.buf = transcript.NewBuffer(func(line string) {
		b.transport.Say(b.channel, line)
	})
	b.transport.SetHandlers(chat.Handlers{
		OnJoined:  b.handleJoined,
		OnMessage: b.handleChat,
	})
	return b
}

// Run consumes bus events and keeps the chat transport connected until ctx is
// canceled. The transport is redialed after a fixed delay when the connection
// drops.
func (b *Bot) Run(ctx context.Context) error {
	b.mu.Lock()
	b.runCtx = ctx
	b.mu.Unlock()

	sub, err := b.bus.Subscribe(ctx, bus.TranscriptEvents, bus.StateChanges)
	if err != nil {
		return err
	}
	defer sub.Close()

	go b.consume(ctx, sub)

	for {
		if err := b.transport.Run(ctx); err != nil {
			b.log.Warn("chat connection lost", "err", err, "retry_in", b.reconnect)
		}
		select {
		case <-ctx.Done():
			b.buf.Close()
			return nil
		case <-time.After(b.reconnect):
		}
	}
}

func (b *Bot) consume(ctx context.Context, sub bus.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Messages():
			if !ok {
				return
			}
			b.handleEvent(msg)
		}
	}
}

func (b *Bot) handleEvent(msg bus.Message) {
	switch msg.Channel {
	case bus.TranscriptEvents:
		seg, err := msg.Envelope.Transcript()
		if err != nil {
			b.log.Warn("dropping transcript event", "err", err)
			return
		}
		if b.lastState() != meeting.StateActive {
			return
		}
		b.buf.Append(seg.Speaker, seg.Text)

	case bus.StateChanges:
		sc, err := msg.Envelope.StateChange()
		if err != nil {
			b.log.Warn("dropping state change", "err", err)
			return
		}
		// Pending text belongs to the old state and must land before the
		// banner.
		b.buf.Flush()
		b.setLastState(sc.New)
		b.transport.Say(b.channel, banner(sc))
	}
}

func (b *Bot) handleJoined(channel string) {
	b.transport.Say(channel, greeting)
}

func (b *Bot) handleChat(msg chat.Message) {
	if msg.Channel != b.channel {
		return
	}
	b.mu.Lock()
	ctx := b.runCtx
	b.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	reply, err := b.router.Handle(ctx, msg.Nick, msg.Text)
	if err != nil {
		b.log.Error("command failed", "nick", msg.Nick, "err", err)
		return
	}
	for _, line := range strings.Split(reply, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		b.transport.Say(b.channel, line)
	}
}

func (b *Bot) lastState() meeting.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Bot) setLastState(s meeting.State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = s
}

func banner(sc meeting.StateChange) string {
	var text string
	switch sc.New {
	case meeting.StateActive:
		text = "▶️ Transcription ACTIVE"
	case meeting.StatePaused:
		text = "⏸ Transcription PAUSED"
	case meeting.StateIdle:
		text = "⏹ Transcription STOPPED"
	case meeting.StateError:
		text = "⚠️ Transcription ERROR"
	default:
		text = "Transcription " + sc.New.String()
	}
	if sc.Reason != "" {
		text += " (" + sc.Reason + ")"
	}
	return text
}

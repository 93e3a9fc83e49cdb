// Package command parses chat text into control commands and publishes them
// on the command channel.
//
// Replies follow the announcement discipline of the system: pause and resume
// return no direct reply because the eventual state-change broadcast is the
// sole user-visible confirmation, which avoids double announcements. Chair
// changes reply optimistically, independent of whether the store applies
// them.
package command

import (
	"context"
	"strings"
	"sync"

	"github.com/scribewire/scribewire/pkg/bus"
	"github.com/scribewire/scribewire/pkg/jsontime"
	"github.com/scribewire/scribewire/pkg/meeting"
)

// DefaultPrefix marks chat text as a command.
const DefaultPrefix = "!"

// Router turns chat messages into bus commands. Safe for concurrent use.
type Router struct {
	bus    bus.Bus
	prefix string

	mu     sync.Mutex
	scribe bool
}

// Option configures a Router.
type Option func(*Router)

// WithPrefix overrides the command prefix.
func WithPrefix(p string) Option {
	return func(r *Router) { r.prefix = p }
}

// NewRouter creates a Router publishing on the given bus.
func NewRouter(b bus.Bus, opts ...Option) *Router {
	r := &Router{bus: b, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle processes one chat message from nick. The returned reply is empty
// when the message is not a command, the command is unrecognized, or the
// command answers via a later broadcast.
func (r *Router) Handle(ctx context.Context, nick, text string) (string, error) {
	if !strings.HasPrefix(text, r.prefix) {
		return "", nil
	}

	parts := strings.Fields(text[len(r.prefix):])
	if len(parts) == 0 {
		return "", nil
	}
	name := strings.ToLower(parts[0])
	args := parts[1:]

	switch name {
	case "pause":
		// No reply: the state-change broadcast announces the result.
		return "", r.publish(ctx, meeting.CommandPause, nick, nil)

	case "resume":
		return "", r.publish(ctx, meeting.CommandResume, nick, nil)

	case "status":
		if err := r.publish(ctx, meeting.CommandStatus, nick, nil); err != nil {
			return "", err
		}
		return "🔍 Checking transcription status...", nil

	case "chair":
		if len(args) == 0 {
			return "Usage: " + r.prefix + "chair <nick> - Add a meeting chair", nil
		}
		if err := r.publish(ctx, meeting.CommandSetChair, nick, map[string]string{"nick": args[0]}); err != nil {
			return "", err
		}
		return "✓ Added " + args[0] + " as meeting chair", nil

	case "unchair":
		if len(args) == 0 {
			return "Usage: " + r.prefix + "unchair <nick> - Remove a meeting chair", nil
		}
		if err := r.publish(ctx, meeting.CommandRemoveChair, nick, map[string]string{"nick": args[0]}); err != nil {
			return "", err
		}
		return "✓ Removed " + args[0] + " as meeting chair", nil

	case "scribe":
		// Local toggle only, no bus effect.
		r.mu.Lock()
		r.scribe = !r.scribe
		on := r.scribe
		r.mu.Unlock()
		if on {
			return "scribe+", nil
		}
		return "scribe-", nil

	case "help":
		return r.helpText(), nil

	default:
		return "", nil
	}
}

func (r *Router) publish(ctx context.Context, typ meeting.CommandType, nick string, args map[string]string) error {
	env, err := bus.NewCommand(meeting.Command{
		Type:        typ,
		TriggeredBy: nick,
		Timestamp:   jsontime.NowEpochMilli(),
		Args:        args,
	})
	if err != nil {
		return err
	}
	return r.bus.Publish(ctx, bus.Commands, env)
}

func (r *Router) helpText() string {
	p := r.prefix
	return strings.Join([]string{
		"Available commands:",
		"  " + p + "pause  - Pause transcription (chairs only)",
		"  " + p + "resume - Resume transcription (chairs only)",
		"  " + p + "status - Show transcription status",
		"  " + p + "chair <nick> - Add a meeting chair",
		"  " + p + "unchair <nick> - Remove a meeting chair",
		"  " + p + "scribe - Toggle scribe mode (scribe+/scribe-)",
		"  " + p + "help   - Show this help message",
	}, "\n")
}

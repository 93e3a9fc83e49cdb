package gateway

import (
	"context"

	"github.com/scribewire/scribewire/pkg/bus"
	"github.com/scribewire/scribewire/pkg/meeting"
)

// handleCommand executes one control command. Pause and resume require the
// issuer to be a chair; unauthorized requests are logged and dropped without
// a reply. Chair management is open to any participant.
func (g *Gateway) handleCommand(ctx context.Context, env bus.Envelope) {
	cmd, err := env.Command()
	if err != nil {
		g.log.Warn("dropping malformed command", "err", err)
		return
	}

	switch cmd.Type {
	case meeting.CommandPause:
		if !g.store.IsChair(cmd.TriggeredBy) {
			g.log.Warn("unauthorized pause", "nick", cmd.TriggeredBy)
			return
		}
		if g.store.State() != meeting.StateActive {
			g.log.Info("pause ignored, session not active", "state", g.store.State())
			return
		}
		if err := g.store.UpdateState(ctx, meeting.StatePaused, "Paused by "+cmd.TriggeredBy); err != nil {
			g.log.Error("pause", "err", err)
		}

	case meeting.CommandResume:
		if !g.store.IsChair(cmd.TriggeredBy) {
			g.log.Warn("unauthorized resume", "nick", cmd.TriggeredBy)
			return
		}
		if g.store.State() != meeting.StatePaused {
			g.log.Info("resume ignored, session not paused", "state", g.store.State())
			return
		}
		if err := g.store.UpdateState(ctx, meeting.StateActive, "Resumed by "+cmd.TriggeredBy); err != nil {
			g.log.Error("resume", "err", err)
		}

	case meeting.CommandStatus:
		g.log.Info("status requested",
			"nick", cmd.TriggeredBy,
			"state", g.store.State(),
			"engine", g.speech.State())

	case meeting.CommandSetChair:
		nick := cmd.Args["nick"]
		if nick == "" {
			g.log.Warn("set_chair without nick", "triggered_by", cmd.TriggeredBy)
			return
		}
		if err := g.store.AddChair(ctx, nick, cmd.TriggeredBy); err != nil {
			g.log.Error("set chair", "nick", nick, "err", err)
		}

	case meeting.CommandRemoveChair:
		nick := cmd.Args["nick"]
		if nick == "" {
			g.log.Warn("remove_chair without nick", "triggered_by", cmd.TriggeredBy)
			return
		}
		if err := g.store.RemoveChair(ctx, nick); err != nil {
			g.log.Error("remove chair", "nick", nick, "err", err)
		}

	default:
		g.log.Warn("unknown command", "type", cmd.Type)
	}
}

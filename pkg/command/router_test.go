package command_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/scribewire/scribewire/pkg/bus"
	"github.com/scribewire/scribewire/pkg/command"
	"github.com/scribewire/scribewire/pkg/meeting"
)

func newTestRouter(t *testing.T, opts ...command.Option) (*command.Router, bus.Subscription) {
	t.Helper()
	b := bus.NewMemory()
	sub, err := b.Subscribe(context.Background(), bus.Commands)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	t.Cleanup(func() {
		sub.Close()
		b.Close()
	})
	return command.NewRouter(b, opts...), sub
}

func recvCommand(t *testing.T, sub bus.Subscription) meeting.Command {
	t.Helper()
	select {
	case m, ok := <-sub.Messages():
		if !ok {
			t.Fatal("subscription closed")
		}
		cmd, err := m.Envelope.Command()
		if err != nil {
			t.Fatalf("Command: %v", err)
		}
		return cmd
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for command")
	}
	return meeting.Command{}
}

func expectNoCommand(t *testing.T, sub bus.Subscription) {
	t.Helper()
	select {
	case m := <-sub.Messages():
		t.Fatalf("unexpected command published: %+v", m.Envelope)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPauseResumePublishWithoutReply(t *testing.T) {
	ctx := context.Background()
	r, sub := newTestRouter(t)

	reply, err := r.Handle(ctx, "alice", "!pause")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply != "" {
		t.Fatalf("pause reply = %q, want none", reply)
	}
	cmd := recvCommand(t, sub)
	if cmd.Type != meeting.CommandPause || cmd.TriggeredBy != "alice" {
		t.Fatalf("command = %+v", cmd)
	}

	reply, err = r.Handle(ctx, "bob", "!RESUME")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply != "" {
		t.Fatalf("resume reply = %q, want none", reply)
	}
	cmd = recvCommand(t, sub)
	if cmd.Type != meeting.CommandResume || cmd.TriggeredBy != "bob" {
		t.Fatalf("command = %+v", cmd)
	}
}

func TestStatusAcknowledges(t *testing.T) {
	r, sub := newTestRouter(t)

	reply, err := r.Handle(context.Background(), "alice", "!status")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(reply, "status") {
		t.Fatalf("status reply = %q", reply)
	}
	if cmd := recvCommand(t, sub); cmd.Type != meeting.CommandStatus {
		t.Fatalf("command = %+v", cmd)
	}
}

func TestChairCommands(t *testing.T) {
	ctx := context.Background()
	r, sub := newTestRouter(t)

	reply, err := r.Handle(ctx, "alice", "!chair   bob")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply != "✓ Added bob as meeting chair" {
		t.Fatalf("reply = %q", reply)
	}
	cmd := recvCommand(t, sub)
	if cmd.Type != meeting.CommandSetChair || cmd.Args["nick"] != "bob" || cmd.TriggeredBy != "alice" {
		t.Fatalf("command = %+v", cmd)
	}

	reply, err = r.Handle(ctx, "alice", "!unchair bob")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply != "✓ Removed bob as meeting chair" {
		t.Fatalf("reply = %q", reply)
	}
	cmd = recvCommand(t, sub)
	if cmd.Type != meeting.CommandRemoveChair || cmd.Args["nick"] != "bob" {
		t.Fatalf("command = %+v", cmd)
	}

	// Missing argument: usage text, nothing published.
	reply, err = r.Handle(ctx, "alice", "!chair")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.HasPrefix(reply, "Usage:") {
		t.Fatalf("reply = %q", reply)
	}
	expectNoCommand(t, sub)
}

func TestScribeTogglesLocally(t *testing.T) {
	ctx := context.Background()
	r, sub := newTestRouter(t)

	reply, _ := r.Handle(ctx, "alice", "!scribe")
	if reply != "scribe+" {
		t.Fatalf("first toggle = %q", reply)
	}
	reply, _ = r.Handle(ctx, "alice", "!scribe")
	if reply != "scribe-" {
		t.Fatalf("second toggle = %q", reply)
	}
	expectNoCommand(t, sub)
}

func TestHelpListsCommands(t *testing.T) {
	r, _ := newTestRouter(t)
	reply, err := r.Handle(context.Background(), "alice", "!help")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	for _, want := range []string{"!pause", "!resume", "!status", "!chair", "!scribe", "!help"} {
		if !strings.Contains(reply, want) {
			t.Fatalf("help missing %q:\n%s", want, reply)
		}
	}
}

func TestNonCommandsIgnored(t *testing.T) {
	ctx := context.Background()
	r, sub := newTestRouter(t)

	for _, text := range []string{"hello there", "!", "!bogus", "pause"} {
		reply, err := r.Handle(ctx, "alice", text)
		if err != nil {
			t.Fatalf("Handle(%q): %v", text, err)
		}
		if reply != "" {
			t.Fatalf("Handle(%q) = %q, want no reply", text, reply)
		}
	}
	expectNoCommand(t, sub)
}

func TestCustomPrefix(t *testing.T) {
	r, sub := newTestRouter(t, command.WithPrefix("."))

	reply, err := r.Handle(context.Background(), "alice", ".pause")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply != "" {
		t.Fatalf("reply = %q", reply)
	}
	if cmd := recvCommand(t, sub); cmd.Type != meeting.CommandPause {
		t.Fatalf("command = %+v", cmd)
	}

	// The default prefix is not recognized.
	if reply, _ := r.Handle(context.Background(), "alice", "!pause"); reply != "" {
		t.Fatalf("reply = %q", reply)
	}
	expectNoCommand(t, sub)
}

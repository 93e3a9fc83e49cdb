// Package chat provides the chat transport collaborator: connect, join, say,
// and quit primitives plus inbound message events. The IRC implementation is
// the production transport; tests substitute a recording fake.
package chat

import "context"

// Message is one inbound chat line.
type Message struct {
	Nick    string
	Channel string
	Text    string
}

// Handlers receives transport events. Unset fields are ignored.
type Handlers struct {
	// OnJoined fires after the transport has joined its channel.
	OnJoined func(channel string)

	// OnMessage fires for every inbound channel message.
	OnMessage func(msg Message)
}

// Transport is the chat connection.
type Transport interface {
	// SetHandlers registers event callbacks. Must be called before Run.
	SetHandlers(h Handlers)

	// Run connects and processes events until the connection ends or ctx is
	// canceled. It returns the terminal error, nil on clean shutdown.
	Run(ctx context.Context) error

	// Say sends a message to a target. Dropped with a warning when not
	// connected.
	Say(target, text string)

	// Quit requests a graceful disconnect with the given message.
	Quit(msg string)
}

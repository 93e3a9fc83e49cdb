package chat

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"gopkg.in/irc.v4"
)

// IRCOptions configures the IRC transport.
type IRCOptions struct {
	// Addr is the server address as host:port.
	Addr string

	// TLS enables a TLS connection to the server.
	TLS bool

	// Nick is the connection nickname. Also used as username and realname
	// when those are empty.
	Nick     string
	User     string
	RealName string

	// Channel is joined automatically after registration.
	Channel string

	// SASLLogin and SASLPass enable SASL PLAIN authentication when set.
	SASLLogin string
	SASLPass  string

	Logger *slog.Logger
}

// IRC is a Transport over a single IRC connection.
type IRC struct {
	opts IRCOptions
	log  *slog.Logger

	mu        sync.Mutex
	handlers  Handlers
	client    *irc.Client
	connected bool
}

// NewIRC creates an IRC transport. It does not connect.
func NewIRC(opts IRCOptions) *IRC {
	if opts.User == "" {
		opts.User = opts.Nick
	}
	if opts.RealName == "" {
		opts.RealName = opts.Nick
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &IRC{opts: opts, log: log.With("component", "irc")}
}

func (c *IRC) SetHandlers(h Handlers) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = h
}

// Run dials the server, registers, joins the configured channel and
// dispatches events until the connection ends.
func (c *IRC) Run(ctx context.Context) error {
	var (
		conn net.Conn
		err  error
	)
	if c.opts.TLS {
		conn, err = tls.Dial("tcp", c.opts.Addr, nil)
	} else {
		conn, err = net.Dial("tcp", c.opts.Addr)
	}
	if err != nil {
		return fmt.Errorf("chat: dial %s: %w", c.opts.Addr, err)
	}

	client := irc.NewClient(conn, irc.ClientConfig{
		Nick:      c.opts.Nick,
		User:      c.opts.User,
		Name:      c.opts.RealName,
		SASLLogin: c.opts.SASLLogin,
		SASLPass:  c.opts.SASLPass,
		Handler:   irc.HandlerFunc(c.handle),
	})

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()

	c.log.Info("connecting", "addr", c.opts.Addr, "nick", c.opts.Nick)
	err = client.RunContext(ctx)

	c.mu.Lock()
	c.connected = false
	c.client = nil
	c.mu.Unlock()

	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("chat: connection ended: %w", err)
	}
	return nil
}

func (c *IRC) handle(client *irc.Client, m *irc.Message) {
	switch m.Command {
	case "001":
		c.mu.Lock()
		c.connected = true
		c.mu.Unlock()
		c.log.Info("registered", "nick", client.CurrentNick())
		if c.opts.Channel != "" {
			_ = client.WriteMessage(&irc.Message{Command: "JOIN", Params: []string{c.opts.Channel}})
		}
	case "JOIN":
		if m.Prefix == nil || m.Prefix.Name != client.CurrentNick() {
			return
		}
		channel := ""
		if len(m.Params) > 0 {
			channel = m.Params[0]
		}
		c.log.Info("joined channel", "channel", channel)
		if h := c.snapshot().OnJoined; h != nil {
			h(channel)
		}
	case "PRIVMSG":
		if m.Prefix == nil || len(m.Params) == 0 {
			return
		}
		if h := c.snapshot().OnMessage; h != nil {
			h(Message{
				Nick:    m.Prefix.Name,
				Channel: m.Params[0],
				Text:    m.Trailing(),
			})
		}
	}
}

func (c *IRC) snapshot() Handlers {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handlers
}

// Say sends a PRIVMSG. Messages are dropped with a warning while the
// connection is down.
func (c *IRC) Say(target, text string) {
	c.mu.Lock()
	client, ok := c.client, c.connected
	c.mu.Unlock()
	if !ok || client == nil {
		c.log.Warn("dropping message, not connected", "target", target)
		return
	}
	if err := client.WriteMessage(&irc.Message{Command: "PRIVMSG", Params: []string{target, text}}); err != nil {
		c.log.Warn("send failed", "target", target, "err", err)
	}
}

// Quit sends a QUIT with the given message.
func (c *IRC) Quit(msg string) {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return
	}
	_ = client.WriteMessage(&irc.Message{Command: "QUIT", Params: []string{msg}})
}

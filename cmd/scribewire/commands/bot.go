package commands

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scribewire/scribewire/pkg/bot"
	"github.com/scribewire/scribewire/pkg/chat"
	"github.com/scribewire/scribewire/pkg/command"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the transcript chat bot",
	Long: `Run the transcript chat bot.

Connects to the chat server, renders transcript events from the bus into
the configured channel and relays control commands back onto the bus.`,
	RunE: runBot,
}

func init() {
	rootCmd.AddCommand(botCmd)
}

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Redis.Addr == "" {
		return errors.New("redis.addr is required: the bot needs the shared bus to see gateway events")
	}
	if cfg.IRC.Nick == "" || cfg.IRC.Addr == "" {
		return errors.New("irc.addr and irc.nick are required")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eventBus, err := newBus(ctx, cfg)
	if err != nil {
		return err
	}
	defer eventBus.Close()

	transport := chat.NewIRC(chat.IRCOptions{
		Addr:      cfg.IRC.Addr,
		TLS:       cfg.IRC.TLS,
		Nick:      cfg.IRC.Nick,
		Channel:   cfg.IRC.Channel,
		SASLLogin: cfg.IRC.SASLLogin,
		SASLPass:  cfg.IRC.SASLPass,
	})

	b := bot.New(bot.Options{
		Transport: transport,
		Bus:       eventBus,
		Router:    command.NewRouter(eventBus),
		Channel:   cfg.IRC.Channel,
	})

	err = b.Run(ctx)
	transport.Quit("shutting down")
	return err
}

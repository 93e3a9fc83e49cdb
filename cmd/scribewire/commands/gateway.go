package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/scribewire/scribewire/cmd/scribewire/internal/config"
	"github.com/scribewire/scribewire/pkg/bus"
	"github.com/scribewire/scribewire/pkg/gateway"
	"github.com/scribewire/scribewire/pkg/kv"
	"github.com/scribewire/scribewire/pkg/session"
	"github.com/scribewire/scribewire/pkg/speech"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the audio ingress server",
	Long: `Run the audio ingress server.

Accepts websocket connections carrying interleaved binary PCM frames and
JSON metadata frames, forwards audio to the speech engine while the session
is active, and publishes transcript and state events on the bus.`,
	RunE: runGateway,
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
}

func runGateway(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Engine.APIKey == "" {
		return errors.New("engine.api_key is required")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := kv.NewBadger(kv.BadgerOptions{Dir: cfg.Gateway.DataDir})
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	eventBus, err := newBus(ctx, cfg)
	if err != nil {
		return err
	}
	defer eventBus.Close()

	engine := &speech.Deepgram{APIKey: cfg.Engine.APIKey, URL: cfg.Engine.URL}
	sessions := session.NewStore(store, eventBus)
	gw := gateway.New(gateway.Options{
		Store:  sessions,
		Bus:    eventBus,
		Engine: engine,
		Speech: cfg.Engine.Session,
	})

	if err := gw.Start(ctx, cfg.Gateway.Channel, cfg.Gateway.Chairs); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", gw)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{Addr: cfg.Gateway.Listen, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("gateway listening", "addr", cfg.Gateway.Listen, "channel", cfg.Gateway.Channel)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := gw.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := gw.Stop(shutdownCtx); err != nil {
		slog.Warn("stop session", "err", err)
	}
	return srv.Shutdown(shutdownCtx)
}

// newBus picks Redis when configured, the in-process bus otherwise. The
// in-process bus only reaches subscribers inside the same process.
func newBus(ctx context.Context, cfg *config.Config) (bus.Bus, error) {
	if cfg.Redis.Addr == "" {
		slog.Warn("redis.addr not set, using in-process bus")
		return bus.NewMemory(), nil
	}
	b, err := bus.NewRedis(ctx, bus.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return b, nil
}

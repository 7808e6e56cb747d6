package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/jholhewres/buddy/pkg/buddy/auth"
	"github.com/jholhewres/buddy/pkg/buddy/webui"
)

// newServeCmd creates the `buddy serve` command that runs the web service.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web assistant",
		Long: `Start the HTTP server with the login pages, the chat endpoint and
reminder delivery.

Examples:
  buddy serve
  buddy serve --addr :8080
  buddy serve --config ./config.yaml`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	logger := newLogger(cmd, cfg.Logging, os.Stdout)
	if path != "" {
		logger.Info("config loaded", "path", path)
	}

	rt, err := newRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	if cfg.Auth.Secret == "" {
		logger.Warn("no session secret configured, sessions will not survive a restart")
	}
	sessions := auth.NewSessions(cfg.Auth)

	if err := rt.scheduler.AddFunc("session-sweep", cfg.Scheduler.SessionSweep, func(context.Context) error {
		if n := sessions.Sweep(); n > 0 {
			logger.Debug("expired sessions swept", "count", n)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("registering session sweep: %w", err)
	}

	// Reminders set with `buddy chat` land in job storage; pick them up.
	if cfg.Scheduler.Enabled && cfg.Scheduler.Sync != "" {
		if err := rt.scheduler.AddFunc("reminder-sync", cfg.Scheduler.Sync, func(context.Context) error {
			_, _, err := rt.scheduler.Sync()
			return err
		}); err != nil {
			return fmt.Errorf("registering reminder sync: %w", err)
		}
	}

	server := webui.New(cfg.Server, webui.Deps{
		Responder:     rt.assistant,
		Users:         auth.NewUsers(bcrypt.DefaultCost),
		Sessions:      sessions,
		Notifications: rt.inbox,
		Reminders:     rt.reminders,
		Gatherer:      rt.registry,
	}, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := rt.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
		<-ctx.Done()
		rt.scheduler.Stop()
		return nil
	})

	g.Go(func() error {
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting web UI: %w", err)
		}
		<-ctx.Done()
		server.Stop()
		return nil
	})

	logger.Info("Buddy running. Press Ctrl+C to stop.",
		"name", cfg.Name,
		"address", cfg.Server.Addr,
		"storage", cfg.Storage.Backend,
		"reminders", cfg.Scheduler.Enabled,
	)

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping...")
	}

	select {
	case err := <-done:
		logger.Info("shutdown complete")
		return err
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out after 10s, forcing exit")
		return nil
	}
}

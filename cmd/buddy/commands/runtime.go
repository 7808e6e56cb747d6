package commands

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/jholhewres/buddy/pkg/buddy/assistant"
	"github.com/jholhewres/buddy/pkg/buddy/config"
	"github.com/jholhewres/buddy/pkg/buddy/metrics"
	"github.com/jholhewres/buddy/pkg/buddy/scheduler"
	"github.com/jholhewres/buddy/pkg/buddy/store"
)

// loadConfig resolves the --config flag and loads the configuration.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, path, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return cfg, path, nil
}

// newLogger builds the process logger from the logging section.
// --verbose forces debug.
func newLogger(cmd *cobra.Command, cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")

	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// runtime holds the components shared by serve and chat.
type runtime struct {
	cfg       *config.Config
	logger    *slog.Logger
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	stores    *store.Set
	inbox     *scheduler.Inbox
	reminders *scheduler.Reminders
	scheduler *scheduler.Scheduler
	assistant *assistant.Assistant
}

// newRuntime opens the stores and job storage and wires the assistant.
// The scheduler is created but not started.
func newRuntime(cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.MustNewMetrics(reg)

	stores, err := store.Open(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("opening stores: %w", err)
	}

	jobs, err := openJobStorage(cfg, stores, logger)
	if err != nil {
		stores.Close()
		return nil, err
	}

	inbox := scheduler.NewInbox()
	reminders := scheduler.NewReminders(inbox, m, logger)
	sched := scheduler.New(jobs, reminders.Deliver, logger.With("component", "scheduler"))
	sched.SetLocation(cfg.Location())
	reminders.Bind(sched)

	var hook assistant.ReminderScheduler
	if cfg.Scheduler.Enabled {
		hook = reminders
	}

	return &runtime{
		cfg:       cfg,
		logger:    logger,
		registry:  reg,
		metrics:   m,
		stores:    stores,
		inbox:     inbox,
		reminders: reminders,
		scheduler: sched,
		assistant: assistant.NewFromConfig(assistant.Settings{
			Language: cfg.Language,
			Location: cfg.Location(),
			Services: cfg.Services,
		}, stores, hook, m, logger),
	}, nil
}

// openJobStorage keeps reminder jobs in the shared SQLite database when the
// sqlite backend is used, and in a JSON file otherwise.
func openJobStorage(cfg *config.Config, stores *store.Set, logger *slog.Logger) (scheduler.JobStorage, error) {
	if db, ok := stores.SQLite(); ok {
		if v, err := db.SchemaVersion(); err == nil {
			logger.Info("sqlite store opened", "path", cfg.Storage.SQLitePath, "schema_version", v)
		}
		jobs, err := scheduler.NewSQLiteJobStorage(db.DB)
		if err != nil {
			return nil, fmt.Errorf("opening job storage: %w", err)
		}
		return jobs, nil
	}
	jobs, err := scheduler.NewFileJobStorage(cfg.Scheduler.Storage)
	if err != nil {
		return nil, fmt.Errorf("opening job storage: %w", err)
	}
	return jobs, nil
}

func (rt *runtime) Close() {
	if err := rt.stores.Close(); err != nil {
		rt.logger.Warn("closing stores", "error", err)
	}
}

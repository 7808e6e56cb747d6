// Package config holds the top-level buddy configuration, assembled from the
// sections owned by each component, and its YAML/env loader.
package config

import (
	"time"

	"github.com/jholhewres/buddy/pkg/buddy/auth"
	"github.com/jholhewres/buddy/pkg/buddy/services"
	"github.com/jholhewres/buddy/pkg/buddy/store"
	"github.com/jholhewres/buddy/pkg/buddy/webui"
)

// Config is the top-level configuration.
type Config struct {
	// Name is the assistant's display name.
	Name string `yaml:"name"`

	// Language is the reply translation target.
	Language string `yaml:"language"`

	// Timezone is used for the date/time reply and reminder times
	// (IANA name, e.g. "Asia/Kolkata"; empty = local).
	Timezone string `yaml:"timezone"`

	Server  webui.Config `yaml:"server"`
	Auth    auth.Config  `yaml:"auth"`
	Storage store.Config `yaml:"storage"`

	// Services holds routing, weather, ai, knowledge and cache settings at
	// the top level of the YAML document.
	Services services.Config `yaml:",inline"`

	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SchedulerConfig configures reminder delivery and housekeeping.
type SchedulerConfig struct {
	// Enabled turns on reminder delivery. When false, reminders are only
	// stored and listed.
	Enabled bool `yaml:"enabled"`

	// Storage is the JSON job file for the json storage backend. The sqlite
	// backend keeps jobs in the shared database.
	Storage string `yaml:"storage"`

	// SessionSweep is the cron schedule of the expired-session sweep.
	SessionSweep string `yaml:"session_sweep"`

	// Sync is how often a running server picks up reminder jobs written to
	// job storage by other processes (e.g. `buddy chat`).
	Sync string `yaml:"sync"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Name:     "Buddy",
		Language: "en",
		Server:   webui.DefaultConfig(),
		Auth:     auth.DefaultConfig(),
		Storage:  store.DefaultConfig(),
		Services: services.DefaultConfig(),
		Scheduler: SchedulerConfig{
			Enabled:      true,
			Storage:      "data/jobs.json",
			SessionSweep: "@every 1m",
			Sync:         "@every 15s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Location resolves Timezone, falling back to the local zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

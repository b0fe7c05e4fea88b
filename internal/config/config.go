// Package config holds the settings shared by the commander commands.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Config holds configuration for the commander CLI.
type Config struct {
	LogLevel     string        // Log level: debug, info, warn, error
	LogFormat    string        // Log format: text, json
	Addr         string        // Inspector listen address (serve only)
	TickInterval time.Duration // Wall time between ticks (serve only)
	Slice        float64       // Time slice handed to each tick, in milliseconds
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel:     "info",
		LogFormat:    "text",
		Addr:         ":8080",
		TickInterval: 16 * time.Millisecond,
		Slice:        4,
	}
}

// BindFlags registers the logging flags on fs.
// Root commands bind these as persistent flags.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "Log format (text, json)")
}

// BindServeFlags registers the flags used by a ticking server on fs.
func (c *Config) BindServeFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Addr, "addr", c.Addr, "Inspector listen address")
	fs.DurationVar(&c.TickInterval, "tick-interval", c.TickInterval, "Wall time between ticks")
	fs.Float64Var(&c.Slice, "slice", c.Slice, "Time slice per tick, in milliseconds")
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log format %q: must be text or json", c.LogFormat)
	}
	if c.TickInterval <= 0 {
		return errors.New("tick interval must be positive")
	}
	if c.Slice < 0 {
		return errors.New("slice must not be negative")
	}
	return nil
}

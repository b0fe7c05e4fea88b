package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()

	if c.LogLevel != "info" || c.LogFormat != "text" || c.Addr != ":8080" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
}

func TestBindFlags(t *testing.T) {
	c := DefaultConfig()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	c.BindFlags(fs)
	c.BindServeFlags(fs)

	args := []string{
		"--log-level", "debug",
		"--log-format", "json",
		"--addr", "127.0.0.1:9000",
		"--tick-interval", "50ms",
		"--slice", "2.5",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := Config{
		LogLevel:     "debug",
		LogFormat:    "json",
		Addr:         "127.0.0.1:9000",
		TickInterval: 50 * time.Millisecond,
		Slice:        2.5,
	}
	if c != want {
		t.Fatalf("got %+v, want %+v", c, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"LogFormat", func(c *Config) { c.LogFormat = "xml" }},
		{"TickInterval", func(c *Config) { c.TickInterval = 0 }},
		{"Slice", func(c *Config) { c.Slice = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.edit(&c)
			if err := c.Validate(); err == nil {
				t.Fatal("invalid config validated")
			}
		})
	}
}

package dispatch

import (
	"fmt"
	"time"
)

// Config defines dispatch-related settings.
type Config struct {
	// Workers bounds the number of concurrently running tasks: the
	// assignment loop plus one task per active delivery.
	Workers int `json:"workers"`
	// BackoffMS is the pause between two passes of the assignment loop.
	BackoffMS int `json:"backoff_ms"`
	// UnitDelayMS is the simulated transit time per distance unit.
	UnitDelayMS int `json:"unit_delay_ms"`
	// ShutdownGraceSeconds bounds how long Shutdown waits for deliveries.
	ShutdownGraceSeconds int `json:"shutdown_grace_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Workers == 0 {
		c.Workers = 10
	}
	if c.BackoffMS == 0 {
		c.BackoffMS = 100
	}
	if c.UnitDelayMS == 0 {
		c.UnitDelayMS = 1000
	}
	if c.ShutdownGraceSeconds == 0 {
		c.ShutdownGraceSeconds = 60
	}
}

// Validate checks the settings are usable.
func (c Config) Validate() error {
	if c.Workers < 2 {
		return fmt.Errorf("workers must be at least 2, got %d", c.Workers)
	}
	if c.BackoffMS < 0 || c.UnitDelayMS < 0 || c.ShutdownGraceSeconds < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	return nil
}

func (c Config) Backoff() time.Duration   { return time.Duration(c.BackoffMS) * time.Millisecond }
func (c Config) UnitDelay() time.Duration { return time.Duration(c.UnitDelayMS) * time.Millisecond }
func (c Config) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGraceSeconds) * time.Second
}

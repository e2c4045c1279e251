package lock

import (
	"crypto/rand"
	"io"
	"time"

	"github.com/backkem/senselock/pkg/transport"
	"github.com/pion/logging"
)

// Defaults.
const (
	// DefaultTimeout bounds an operation whose context has no deadline.
	DefaultTimeout = 10 * time.Second

	// DefaultPollInterval is how often a waiting request re-checks that the
	// lock is idle.
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultClockSkew is the largest difference between the lock's clock
	// and ours that passes without a warning.
	DefaultClockSkew = 60 * time.Second
)

// Config configures a Lock.
type Config struct {
	// Peripheral is the lock's BLE device. Required.
	Peripheral transport.Peripheral

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory

	// Timeout applies to operations called with a context without deadline.
	// Default: DefaultTimeout
	Timeout time.Duration

	// PollInterval is how often a request waiting for the lock re-checks.
	// Default: DefaultPollInterval
	PollInterval time.Duration

	// ClockSkew is the tolerated lock clock difference.
	// Default: DefaultClockSkew
	ClockSkew time.Duration

	// EventBuffer sizes the link's event queues.
	// Default: transport.DefaultEventBuffer
	EventBuffer int

	// Rand supplies salts, SPAKE2 scalars and generated names.
	// Default: crypto/rand.Reader
	Rand io.Reader

	// Now returns the local time.
	// Default: time.Now
	Now func() time.Time
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.Peripheral == nil {
		return ErrPeripheralRequired
	}
	return nil
}

// applyDefaults fills in default values for unset fields.
func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}

	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}

	if c.ClockSkew == 0 {
		c.ClockSkew = DefaultClockSkew
	}

	if c.Rand == nil {
		c.Rand = rand.Reader
	}

	if c.Now == nil {
		c.Now = time.Now
	}
}

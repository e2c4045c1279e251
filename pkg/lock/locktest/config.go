package locktest

import (
	"crypto/rand"
	"io"
	"time"

	"github.com/backkem/senselock/pkg/lock"
	"github.com/backkem/senselock/pkg/message"
	"github.com/backkem/senselock/pkg/transport"
	"github.com/pion/logging"
)

// Fixture tokens. DefaultSAT carries the challenge c0..cf with nonce 7 and
// the secret 40..5f.
const (
	DefaultSAT = "5835" +
		"8250c0c1c2c3c4c5c6c7c8c9cacbcccdcecf07" +
		"5820404142434445464748494a4b4c4d4e4f505152535455565758595a5b5c5d5e5f"
	DefaultCAT          = "a0a1a2a3a4a5a6a7a8a9aaabacadaeaf"
	DefaultTemporaryCAT = "b0b1b2b3b4b5b6b7"
	DefaultPIN          = 123456
)

// Error codes the simulated lock answers with.
const (
	CodeUnsupported  int64 = 1
	CodeUnauthorized int64 = 2
	CodeNotFound     int64 = 3
	CodeInvalid      int64 = 4
)

// DefaultLogBatchSize is the number of log entries per response.
const DefaultLogBatchSize = 5

// Config configures a simulated lock.
type Config struct {
	// Pipe is the link the device listens on.
	// Default: transport.NewPipe()
	Pipe *transport.Pipe

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory

	// Paired selects a lock that accepts CAT/SAT. An unpaired lock only
	// accepts pairing with PIN.
	Paired bool

	// PIN is the pairing code entered on the keypad.
	// Default: DefaultPIN
	PIN int

	// CAT and SAT are the hex tokens of the paired owner. Pairing issues
	// them.
	// Default: DefaultCAT, DefaultSAT
	CAT string
	SAT string

	// TemporaryCAT is issued by pairing and traded for CAT by
	// ClaimOwnership.
	// Default: DefaultTemporaryCAT
	TemporaryCAT string

	// PairingNonce is returned by StartPairing.
	// Default: 1
	PairingNonce int64

	// Info and Settings hold the properties read by GetInfo and GetConfig.
	Info     map[int64]message.Value
	Settings map[int64]message.Value

	// Data is the record returned by SetConfig and SetState.
	Data *lock.Data

	// AccessCodes and LogEntries are the stored records.
	AccessCodes []lock.AccessCode
	LogEntries  []lock.LogEntry

	// LogBatchSize is the number of entries per log response, 1 to 5. A
	// size of 1 answers with the bare entry.
	// Default: DefaultLogBatchSize
	LogBatchSize int

	// ClockOffset shifts the clock the lock reports.
	ClockOffset time.Duration

	// Now returns the lock's local time.
	// Default: time.Now
	Now func() time.Time

	// Rand supplies server salts and SPAKE2 scalars.
	// Default: crypto/rand.Reader
	Rand io.Reader
}

// applyDefaults fills in default values for unset fields.
func (c *Config) applyDefaults() {
	if c.Pipe == nil {
		c.Pipe = transport.NewPipe()
	}
	if c.PIN == 0 {
		c.PIN = DefaultPIN
	}
	if c.CAT == "" {
		c.CAT = DefaultCAT
	}
	if c.SAT == "" {
		c.SAT = DefaultSAT
	}
	if c.TemporaryCAT == "" {
		c.TemporaryCAT = DefaultTemporaryCAT
	}
	if c.PairingNonce == 0 {
		c.PairingNonce = 1
	}
	if c.Info == nil {
		c.Info = make(map[int64]message.Value)
	}
	if c.Settings == nil {
		c.Settings = make(map[int64]message.Value)
	}
	if c.Data == nil {
		c.Data = &lock.Data{FirmwareVersion: "10.00.00264232"}
	}
	if c.LogBatchSize <= 0 || c.LogBatchSize > DefaultLogBatchSize {
		c.LogBatchSize = DefaultLogBatchSize
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Rand == nil {
		c.Rand = rand.Reader
	}
}

// Credentials returns the owner tokens of the device.
func (c *Config) Credentials() lock.Credentials {
	return lock.Credentials{CAT: c.CAT, SAT: c.SAT}
}

// Package lock is a client for the lock's secure BLE protocol.
//
// A Lock wraps one peripheral and moves through these states:
//
//	Disconnected ──connect──▶ Connected ──handshake──▶ Secure ──SendCAT──▶ Authorized
//	      ▲                                                                    │
//	      └───────────────────────────── disconnect ───────────────────────────┘
//
// Pair runs once per lock to obtain Credentials; Authorize uses them to
// open a session on every later connection. Commands authorize on demand
// with the cached credentials.
//
// Only one operation talks to the lock at a time. Handshakes fail with
// ErrBusy when another operation holds the lock; requests wait for it to
// become idle until their context or the configured timeout expires.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/backkem/senselock/pkg/session"
	"github.com/backkem/senselock/pkg/transport"
	"github.com/pion/logging"
)

// Lock is a client for a single lock.
type Lock struct {
	config Config
	link   *transport.Link
	log    logging.LeveledLogger

	mu         sync.Mutex
	busy       bool
	authorized bool
	sessions   *session.Pair
	creds      *Credentials

	// accessCodes caches the last full listing. Nil when not cached.
	accessCodes []AccessCode
}

// New creates a Lock for the configured peripheral. The peripheral may be
// disconnected; the connection is opened on first use.
func New(config Config) (*Lock, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	link, err := transport.NewLink(transport.LinkConfig{
		Peripheral:    config.Peripheral,
		EventBuffer:   config.EventBuffer,
		LoggerFactory: config.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}

	l := &Lock{
		config: config,
		link:   link,
	}

	if config.LoggerFactory != nil {
		l.log = config.LoggerFactory.NewLogger("lock")
	}

	config.Peripheral.OnDisconnect(l.handleDisconnect)

	return l, nil
}

// Address returns the peripheral address.
func (l *Lock) Address() string {
	return l.link.Address()
}

// Connected reports whether the GATT connection is up.
func (l *Lock) Connected() bool {
	return l.link.Connected()
}

// Authorized reports whether commands may be sent.
func (l *Lock) Authorized() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.authorized
}

// Busy reports whether an operation currently holds the lock.
func (l *Lock) Busy() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.busy
}

// State returns the current connection state.
func (l *Lock) State() State {
	if !l.link.Connected() {
		return StateDisconnected
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.authorized:
		return StateAuthorized
	case l.sessions != nil:
		return StateSecure
	default:
		return StateConnected
	}
}

// Reset drops the session keys and restarts the packet counter. Cached
// credentials are kept.
func (l *Lock) Reset() {
	l.mu.Lock()
	l.sessions = nil
	l.mu.Unlock()

	l.link.ResetCounter()
}

// Disconnect unsubscribes from notifications and drops the GATT
// connection. It fails with transport.ErrNotConnected when not connected.
func (l *Lock) Disconnect(ctx context.Context) error {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	if err := l.link.Disconnect(ctx); err != nil {
		return timeoutErr(err)
	}
	return nil
}

// handleDisconnect runs when the peripheral drops the connection. The busy
// guard is owned by whichever operation is running and is released by it.
func (l *Lock) handleDisconnect() {
	l.mu.Lock()
	l.authorized = false
	l.mu.Unlock()

	l.Reset()

	if l.log != nil {
		l.log.Infof("lock %s disconnected", l.link.Address())
	}
}

// endSession forgets the session and the authorization.
func (l *Lock) endSession() {
	l.mu.Lock()
	l.sessions = nil
	l.authorized = false
	l.mu.Unlock()
}

// claim takes the exclusive guard or fails immediately with ErrBusy.
func (l *Lock) claim() (release func(), err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.busy {
		return nil, ErrBusy
	}
	l.busy = true
	return l.releaser(), nil
}

// tryClaim takes the guard if the lock is idle and, when secure is set,
// has a session.
func (l *Lock) tryClaim(secure bool) (release func(), ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.busy || (secure && l.sessions == nil) {
		return nil, false
	}
	l.busy = true
	return l.releaser(), true
}

// releaser returns a function that releases the guard once.
func (l *Lock) releaser() func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			l.busy = false
			l.mu.Unlock()
		})
	}
}

// withTimeout applies the configured timeout when ctx has no deadline.
func (l *Lock) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, l.config.Timeout)
}

// timeoutErr marks deadline failures with ErrTimeout.
func timeoutErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}

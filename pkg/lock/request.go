package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/backkem/senselock/pkg/message"
)

// request sends one command and decodes its response. It first waits until
// the lock is idle and, when secure is set, has a session; the guard is
// held until the response arrives or the context expires.
//
// A timeout does not tell whether the lock received the command.
func request[T any](ctx context.Context, l *Lock, cmd message.Command[T], secure bool) (T, error) {
	var zero T

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	release, err := l.waitIdle(ctx, secure)
	if err != nil {
		return zero, err
	}
	defer release()

	if l.log != nil {
		l.log.Debugf("sending %s", cmd.Name)
	}

	raw, err := l.exchange(ctx, cmd.Request)
	if err != nil {
		return zero, timeoutErr(err)
	}

	result, err := cmd.Decode(raw)
	if err != nil {
		if l.log != nil {
			l.log.Debugf("%s failed: %v", cmd.Name, err)
		}
		return zero, fmt.Errorf("lock: %s: %w", cmd.Name, err)
	}
	return result, nil
}

// waitIdle polls until the guard can be taken.
func (l *Lock) waitIdle(ctx context.Context, secure bool) (func(), error) {
	if release, ok := l.tryClaim(secure); ok {
		return release, nil
	}

	ticker := time.NewTicker(l.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, timeoutErr(ctx.Err())
		case <-ticker.C:
			if release, ok := l.tryClaim(secure); ok {
				return release, nil
			}
		}
	}
}

// exchange writes one message and waits for the next data message. Both
// are encrypted when a session exists. Caller holds the guard.
func (l *Lock) exchange(ctx context.Context, req message.Request) ([]byte, error) {
	payload, err := req.Encode()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	sessions := l.sessions
	l.mu.Unlock()

	if sessions != nil {
		if payload, err = sessions.Seal(payload); err != nil {
			return nil, err
		}
	}

	l.link.Drain()
	if err := l.link.Send(ctx, payload, false); err != nil {
		return nil, err
	}

	raw, err := l.link.ReceiveData(ctx)
	if err != nil {
		return nil, err
	}

	if sessions != nil {
		if raw, err = sessions.Open(raw); err != nil {
			return nil, fmt.Errorf("lock: decrypt response: %w", err)
		}
	}
	return raw, nil
}

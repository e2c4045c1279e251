package lock

import (
	"context"
	"io"
	"time"

	"github.com/backkem/senselock/pkg/securechannel"
	"github.com/backkem/senselock/pkg/session"
)

// Authorize opens a secure session and presents the access token. Zero
// credentials select the cached ones. It returns false without doing
// anything when already authorized.
//
// On success the credentials are cached so commands can re-authorize after
// a disconnect.
func (l *Lock) Authorize(ctx context.Context, creds Credentials) (bool, error) {
	return l.authorize(ctx, creds, false, true)
}

// ensureAuthorized authorizes with the cached credentials if needed.
func (l *Lock) ensureAuthorized(ctx context.Context) error {
	_, err := l.authorize(ctx, Credentials{}, false, true)
	return err
}

func (l *Lock) authorize(ctx context.Context, creds Credentials, newDevice, cache bool) (bool, error) {
	l.mu.Lock()
	if l.authorized {
		l.mu.Unlock()
		return false, nil
	}
	if creds.IsZero() {
		if l.creds == nil {
			l.mu.Unlock()
			return false, ErrNoCredentials
		}
		creds = *l.creds
	}
	l.mu.Unlock()

	cat, sat, err := creds.decode()
	if err != nil {
		return false, err
	}

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	if err := l.handshake(ctx, sat); err != nil {
		return false, timeoutErr(err)
	}

	if l.log != nil {
		l.log.Debug("authorizing secure session")
	}

	ts, err := request(ctx, l, SendCAT(cat, newDevice), true)
	if err != nil {
		l.endSession()
		return false, err
	}

	l.checkClock(ts)

	l.mu.Lock()
	l.authorized = true
	if cache {
		l.creds = &creds
	}
	l.mu.Unlock()

	if l.log != nil {
		l.log.Infof("started secure session with lock %s", l.link.Address())
	}
	return true, nil
}

// handshake runs the connection request and the challenge exchange, then
// installs the session keys. It holds the guard throughout.
func (l *Lock) handshake(ctx context.Context, sat *securechannel.SAT) error {
	release, err := l.claim()
	if err != nil {
		return err
	}
	defer release()

	l.endSession()

	if _, err := l.link.Subscribe(ctx); err != nil {
		return err
	}

	if l.log != nil {
		l.log.Debug("calculating client/server session keys")
	}

	clientSalt := make([]byte, securechannel.SaltSize)
	if _, err := io.ReadFull(l.config.Rand, clientSalt); err != nil {
		return err
	}
	req, err := securechannel.ConnectionRequest(clientSalt)
	if err != nil {
		return err
	}
	resp, err := l.connect(ctx, req)
	if err != nil {
		return err
	}
	serverSalt, err := securechannel.ParseConnectionResponse(resp)
	if err != nil {
		return err
	}

	if l.log != nil {
		l.log.Debug("sending authorization challenge")
	}

	challenge, err := securechannel.NewChallenge(sat, clientSalt, serverSalt)
	if err != nil {
		return err
	}
	if err := l.link.Send(ctx, challenge.Message, false); err != nil {
		return err
	}
	answer, err := l.link.ReceiveData(ctx)
	if err != nil {
		return err
	}
	if err := challenge.Verify(answer); err != nil {
		if l.log != nil {
			l.log.Warnf("lock %s failed the challenge", l.link.Address())
		}
		return err
	}

	if l.log != nil {
		l.log.Debug("creating secure session")
	}

	keys, err := securechannel.DeriveSessionKeys(clientSalt, serverSalt, sat.Secret)
	if err != nil {
		return err
	}
	sessions, err := keys.NewSessions(session.RoleClient)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.sessions = sessions
	l.mu.Unlock()
	return nil
}

// connect sends a connection request and returns the lock's reply.
// Caller holds the guard.
func (l *Lock) connect(ctx context.Context, req []byte) ([]byte, error) {
	l.link.Drain()
	if err := l.link.SendControl(ctx, req); err != nil {
		return nil, err
	}
	return l.link.ReceiveInternal(ctx)
}

// checkClock warns when the lock's clock is off. It never fails.
func (l *Lock) checkClock(unix int64) {
	lockTime := time.Unix(unix, 0)
	skew := l.config.Now().Sub(lockTime)
	if skew < 0 {
		skew = -skew
	}
	if skew > l.config.ClockSkew && l.log != nil {
		l.log.Warnf("lock %s clock is off by %s: %s", l.link.Address(), skew.Round(time.Second), lockTime.Format(time.RFC3339))
	}
}

package lock

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/backkem/senselock/pkg/crypto/spake2"
	"github.com/backkem/senselock/pkg/message"
	"github.com/backkem/senselock/pkg/securechannel"
	"github.com/backkem/senselock/pkg/session"
)

// KeypadCode returns the code the user enters on the lock's keypad to
// start pairing with pin: the last six digits of pin followed by a zero.
func KeypadCode(pin int) (string, error) {
	if pin < 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidPIN, pin)
	}
	return fmt.Sprintf("%06d0", pin%1000000), nil
}

// Pair claims an unpaired lock with pin and returns the credentials for
// later sessions. The user must have entered KeypadCode(pin) first.
//
// The lock is disconnected and reset when pairing completes. The returned
// credentials are not cached.
func (l *Lock) Pair(ctx context.Context, pin int) (Credentials, error) {
	if pin < 0 {
		return Credentials{}, fmt.Errorf("%w: %d", ErrInvalidPIN, pin)
	}

	if err := l.openInsecure(ctx); err != nil {
		return Credentials{}, timeoutErr(err)
	}

	if l.log != nil {
		l.log.Debug("sending start pairing message")
	}

	start, err := request(ctx, l, StartPairing(), false)
	if err != nil {
		return Credentials{}, err
	}
	n, ok := start.Int(keyPairingN)
	if !ok {
		return Credentials{}, fmt.Errorf("%w: pairing nonce", message.ErrMissingPayload)
	}
	serverCommitment, ok := start.Bytes(keyCommitment)
	if !ok {
		return Credentials{}, fmt.Errorf("%w: lock commitment", message.ErrMissingPayload)
	}

	clientCommitment, channel, err := l.pairingChannel(pin, serverCommitment)
	if err != nil {
		return Credentials{}, err
	}
	ts, err := channel.SealTimestamp(l.config.Now().Unix())
	if err != nil {
		return Credentials{}, err
	}

	if l.log != nil {
		l.log.Debug("sending pairing timestamp message")
	}

	reply, err := request(ctx, l, SendTimestamp(n, clientCommitment, ts), false)
	if err != nil {
		return Credentials{}, err
	}
	sealed, ok := reply.Bytes(keyTokens)
	if !ok {
		return Credentials{}, fmt.Errorf("%w: tokens", message.ErrMissingPayload)
	}
	tokens, err := channel.OpenTokens(sealed)
	if err != nil {
		return Credentials{}, err
	}

	temporary := Credentials{
		CAT: hex.EncodeToString(tokens.CAT),
		SAT: hex.EncodeToString(tokens.SAT),
	}

	if l.log != nil {
		l.log.Debug("authorizing with temporary access token")
	}

	if _, err := l.authorize(ctx, temporary, true, false); err != nil {
		return Credentials{}, err
	}

	if l.log != nil {
		l.log.Debug("claiming ownership of lock")
	}

	cat, err := request(ctx, l, ClaimOwnership(), true)
	if err != nil {
		return Credentials{}, err
	}
	if _, err := request(ctx, l, CompletePairing(cat), true); err != nil {
		return Credentials{}, err
	}

	if l.log != nil {
		l.log.Infof("paired with lock %s", l.link.Address())
	}

	if err := l.Disconnect(ctx); err != nil {
		return Credentials{}, err
	}
	l.Reset()

	return Credentials{CAT: hex.EncodeToString(cat), SAT: temporary.SAT}, nil
}

// openInsecure subscribes and opens an unencrypted connection, forgetting
// any previous session.
func (l *Lock) openInsecure(ctx context.Context) error {
	release, err := l.claim()
	if err != nil {
		return err
	}
	defer release()

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	l.endSession()

	if _, err := l.link.Subscribe(ctx); err != nil {
		return err
	}

	if l.log != nil {
		l.log.Debug("setting up connection")
	}

	_, err = l.connect(ctx, securechannel.InsecureConnectionRequest())
	return err
}

// pairingChannel runs the client side of SPAKE2 against the lock's
// commitment. It holds the guard so no request interleaves.
func (l *Lock) pairingChannel(pin int, serverCommitment []byte) ([]byte, *securechannel.PairingChannel, error) {
	release, err := l.claim()
	if err != nil {
		return nil, nil, err
	}
	defer release()

	sp := spake2.New(spake2.RoleInitiator, []byte(strconv.Itoa(pin)))
	sp.SetRandom(l.config.Rand)

	commitment, err := sp.Commitment()
	if err != nil {
		return nil, nil, err
	}
	shared, err := sp.ComputeKey(serverCommitment)
	if err != nil {
		return nil, nil, err
	}
	channel, err := securechannel.NewPairingChannel(shared, session.RoleClient)
	if err != nil {
		return nil, nil, err
	}
	return commitment, channel, nil
}

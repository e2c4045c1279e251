package session

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/backkem/senselock/pkg/crypto"
)

// Key material derived from client salt 01..0c, server salt 21..2c and
// secret 40..5f.
var (
	testKey = mustHex("6a2b584ff9d0b9dae78c702f448d2777")
	testID  = mustHex("400f2e04e9e27bac00243f6f5e66049f")
)

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name      string
		key       []byte
		id        []byte
		direction Direction
		wantErr   error
	}{
		{"valid", testKey, testID, DirectionClientToLock, nil},
		{"short key", testKey[:15], testID, DirectionClientToLock, ErrInvalidKey},
		{"long id", testKey, mustHex("400f2e04e9e27bac00243f6f5e66049f00"), DirectionClientToLock, ErrInvalidSessionID},
		{"no direction", testKey, testID, DirectionUnknown, ErrInvalidDirection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.key, tt.id, tt.direction)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSession_EncryptVectors(t *testing.T) {
	s, err := New(testKey, testID, DirectionClientToLock)
	if err != nil {
		t.Fatal(err)
	}

	// GetConfig(5, 16) request, sent twice.
	pt := mustHex("a30108020410a200050110")
	want := []string{
		"727449838ef033eeb2aad2cb70abe8048d0c964591c8da6c92544a",
		"0eb5564a1f85b41934e7b746c0e5da680b16029a43cab5406d1bdd",
	}

	for i, w := range want {
		ct, err := s.Encrypt(pt)
		if err != nil {
			t.Fatalf("Encrypt #%d: %v", i+1, err)
		}
		if got := hex.EncodeToString(ct); got != w {
			t.Errorf("Encrypt #%d = %s, want %s", i+1, got, w)
		}
		if got := s.Counter(); got != byte(i+1) {
			t.Errorf("Counter() = %d, want %d", got, i+1)
		}
	}
}

func TestSession_NonceLayout(t *testing.T) {
	s, _ := New(testKey, testID, DirectionLockToClient)
	nonce := s.nextNonce()

	if len(nonce) != NonceSize {
		t.Fatalf("nonce length = %d, want %d", len(nonce), NonceSize)
	}
	if !bytes.Equal(nonce[:IDSize], testID) {
		t.Error("nonce does not start with the session id")
	}
	if !bytes.Equal(nonce[IDSize:IDSize+PrefixSize], []byte{3, 0, 0}) {
		t.Errorf("nonce prefix = %x", nonce[IDSize:IDSize+PrefixSize])
	}
	if nonce[NonceSize-1] != 1 {
		t.Errorf("first nonce counter = %d, want 1", nonce[NonceSize-1])
	}
}

func TestSession_CounterWraps(t *testing.T) {
	s, _ := New(testKey, testID, DirectionClientToLock)
	for i := 0; i < 255; i++ {
		s.nextNonce()
	}
	if got := s.Counter(); got != 255 {
		t.Fatalf("Counter() = %d, want 255", got)
	}
	if got := s.nextNonce()[NonceSize-1]; got != 0 {
		t.Errorf("counter after 256 nonces = %d, want 0", got)
	}
}

func TestSession_NoNonceReuse(t *testing.T) {
	s, _ := New(testKey, testID, DirectionClientToLock)
	pt := []byte("same plaintext")

	a, _ := s.Encrypt(pt)
	b, _ := s.Encrypt(pt)
	if bytes.Equal(a, b) {
		t.Error("two encryptions produced identical ciphertext")
	}
}

func TestPair_RoundTrip(t *testing.T) {
	client, err := NewPair(testKey, testID, RoleClient)
	if err != nil {
		t.Fatal(err)
	}
	lock, err := NewPair(testKey, testID, RoleLock)
	if err != nil {
		t.Fatal(err)
	}

	for i, msg := range []string{"", "a", "request number three", string(make([]byte, 300))} {
		ct, err := client.Seal([]byte(msg))
		if err != nil {
			t.Fatalf("Seal #%d: %v", i, err)
		}
		pt, err := lock.Open(ct)
		if err != nil {
			t.Fatalf("Open #%d: %v", i, err)
		}
		if string(pt) != msg {
			t.Errorf("round trip #%d mismatch", i)
		}

		reply, _ := lock.Seal(pt)
		back, err := client.Open(reply)
		if err != nil {
			t.Fatalf("client Open #%d: %v", i, err)
		}
		if string(back) != msg {
			t.Errorf("reply #%d mismatch", i)
		}
	}
}

func TestPair_WrongDirectionFails(t *testing.T) {
	client, _ := NewPair(testKey, testID, RoleClient)
	other, _ := NewPair(testKey, testID, RoleClient)

	ct, _ := client.Seal([]byte("hello"))

	// Same role decrypts with the LockToClient prefix.
	_, err := other.Open(ct)
	if !errors.Is(err, crypto.ErrAuthenticationFailed) {
		t.Fatalf("Open() error = %v, want ErrAuthenticationFailed", err)
	}
	if got := other.Inbound().Counter(); got != 1 {
		t.Errorf("counter after failed decrypt = %d, want 1", got)
	}
}

func TestPair_TamperedCiphertext(t *testing.T) {
	client, _ := NewPair(testKey, testID, RoleClient)
	lock, _ := NewPair(testKey, testID, RoleLock)

	ct, _ := client.Seal([]byte("unlock"))
	ct[0] ^= 0x01

	pt, err := lock.Open(ct)
	if !errors.Is(err, crypto.ErrAuthenticationFailed) {
		t.Fatalf("Open() error = %v", err)
	}
	if pt != nil {
		t.Error("partial plaintext returned on failure")
	}
}

func TestNewPair_InvalidRole(t *testing.T) {
	if _, err := NewPair(testKey, testID, RoleUnknown); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("NewPair() error = %v", err)
	}
}

func TestPair_Accessors(t *testing.T) {
	p, _ := NewPair(testKey, testID, RoleLock)
	if p.Role() != RoleLock {
		t.Errorf("Role() = %s", p.Role())
	}
	if p.Outbound().Direction() != DirectionLockToClient {
		t.Errorf("outbound direction = %s", p.Outbound().Direction())
	}
	if p.Inbound().Direction() != DirectionClientToLock {
		t.Errorf("inbound direction = %s", p.Inbound().Direction())
	}
	if !bytes.Equal(p.Outbound().ID(), testID) {
		t.Error("ID() mismatch")
	}
}

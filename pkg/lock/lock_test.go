package lock_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/backkem/senselock/pkg/crypto"
	"github.com/backkem/senselock/pkg/lock"
	"github.com/backkem/senselock/pkg/lock/locktest"
	"github.com/backkem/senselock/pkg/message"
	"github.com/backkem/senselock/pkg/transport"
	"github.com/google/uuid"
	"github.com/pion/logging"
)

var testNow = time.Unix(1700000000, 0)

func fixedNow() time.Time { return testNow }

func newDevice(t *testing.T, config locktest.Config) *locktest.Device {
	t.Helper()
	if config.Now == nil {
		config.Now = fixedNow
	}
	if config.LoggerFactory == nil {
		config.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
	dev, err := locktest.New(config)
	if err != nil {
		t.Fatalf("locktest.New: %v", err)
	}
	t.Cleanup(func() { dev.Close() })
	return dev
}

func newLock(t *testing.T, dev *locktest.Device, seed int64) *lock.Lock {
	t.Helper()
	l, err := lock.New(lock.Config{
		Peripheral:    dev.Peripheral(),
		LoggerFactory: logging.NewDefaultLoggerFactory(),
		Timeout:       2 * time.Second,
		PollInterval:  5 * time.Millisecond,
		Rand:          rand.New(rand.NewSource(seed)),
		Now:           fixedNow,
	})
	if err != nil {
		t.Fatalf("lock.New: %v", err)
	}
	return l
}

// authorizedLock returns a lock authorized against a paired device.
func authorizedLock(t *testing.T, config locktest.Config) (*lock.Lock, *locktest.Device) {
	t.Helper()
	config.Paired = true
	dev := newDevice(t, config)
	l := newLock(t, dev, 1)
	if _, err := l.Authorize(testContext(t), dev.Credentials()); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	return l, dev
}

func boolPtr(b bool) *bool { return &b }

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func protocolCode(err error) int64 {
	var perr *message.ProtocolError
	if errors.As(err, &perr) {
		return perr.Code
	}
	return 0
}

func TestNew_RequiresPeripheral(t *testing.T) {
	if _, err := lock.New(lock.Config{}); !errors.Is(err, lock.ErrPeripheralRequired) {
		t.Errorf("New() error = %v", err)
	}
}

func TestAuthorize(t *testing.T) {
	dev := newDevice(t, locktest.Config{Paired: true})
	l := newLock(t, dev, 1)
	ctx := testContext(t)

	if got := l.State(); got != lock.StateDisconnected {
		t.Fatalf("State() = %s before use", got)
	}

	ok, err := l.Authorize(ctx, dev.Credentials())
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if !ok {
		t.Error("Authorize() = false on first call")
	}
	if got := l.State(); got != lock.StateAuthorized {
		t.Errorf("State() = %s, want %s", got, lock.StateAuthorized)
	}
	if !l.Authorized() || l.Busy() {
		t.Errorf("Authorized, Busy = %t, %t", l.Authorized(), l.Busy())
	}

	ok, err = l.Authorize(ctx, dev.Credentials())
	if err != nil || ok {
		t.Errorf("second Authorize() = %t, %v; want false, nil", ok, err)
	}
	if n := dev.Count(lock.OpSendCAT); n != 1 {
		t.Errorf("device got %d SendCAT, want 1", n)
	}
}

func TestAuthorize_TamperedResponseTag(t *testing.T) {
	dev := newDevice(t, locktest.Config{Paired: true})
	dev.SetTamperTag(true)
	l := newLock(t, dev, 1)

	_, err := l.Authorize(testContext(t), dev.Credentials())
	if !errors.Is(err, crypto.ErrAuthenticationFailed) {
		t.Fatalf("Authorize() error = %v, want authentication failure", err)
	}
	if n := dev.Count(lock.OpSendCAT); n != 0 {
		t.Errorf("device got %d SendCAT after a bad tag", n)
	}
	if l.Authorized() {
		t.Error("authorized after a bad tag")
	}

	dev.SetTamperTag(false)
	if _, err := l.Authorize(testContext(t), dev.Credentials()); err != nil {
		t.Fatalf("Authorize after recovery: %v", err)
	}
}

func TestAuthorize_RejectedCAT(t *testing.T) {
	dev := newDevice(t, locktest.Config{Paired: true})
	l := newLock(t, dev, 1)

	creds := dev.Credentials()
	creds.CAT = "deadbeef"
	_, err := l.Authorize(testContext(t), creds)
	if code := protocolCode(err); code != locktest.CodeUnauthorized {
		t.Fatalf("Authorize() error = %v, want code %d", err, locktest.CodeUnauthorized)
	}
	if got := l.State(); got != lock.StateConnected {
		t.Errorf("State() = %s, want %s", got, lock.StateConnected)
	}

	// Rejected credentials are not cached.
	if _, err := l.GetConfig(testContext(t), 16); !errors.Is(err, lock.ErrNoCredentials) {
		t.Errorf("GetConfig() error = %v, want ErrNoCredentials", err)
	}
}

func TestAuthorize_InvalidCredentials(t *testing.T) {
	dev := newDevice(t, locktest.Config{Paired: true})
	l := newLock(t, dev, 1)

	tests := []struct {
		name  string
		creds lock.Credentials
	}{
		{"missing SAT", lock.Credentials{CAT: locktest.DefaultCAT}},
		{"bad CAT hex", lock.Credentials{CAT: "zz", SAT: locktest.DefaultSAT}},
		{"bad SAT", lock.Credentials{CAT: locktest.DefaultCAT, SAT: "00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Authorize(testContext(t), tt.creds)
			if !errors.Is(err, lock.ErrInvalidCredentials) || !errors.Is(err, lock.ErrValidation) {
				t.Errorf("Authorize() error = %v", err)
			}
		})
	}
	if n := dev.Count(lock.OpSendCAT); n != 0 {
		t.Errorf("device got %d SendCAT", n)
	}
}

func TestCommands_RequireCredentials(t *testing.T) {
	dev := newDevice(t, locktest.Config{Paired: true})
	l := newLock(t, dev, 1)

	if _, err := l.GetInfo(testContext(t), 1); !errors.Is(err, lock.ErrNoCredentials) {
		t.Errorf("GetInfo() error = %v, want ErrNoCredentials", err)
	}
}

func TestPair(t *testing.T) {
	dev := newDevice(t, locktest.Config{Rand: rand.New(rand.NewSource(2))})
	l := newLock(t, dev, 1)
	ctx := testContext(t)

	creds, err := l.Pair(ctx, locktest.DefaultPIN)
	if err != nil {
		t.Fatalf("Pair: %v", err)
	}

	want := lock.Credentials{CAT: locktest.DefaultCAT, SAT: locktest.DefaultSAT}
	if creds != want {
		t.Errorf("Pair() = %+v, want %+v", creds, want)
	}
	if !dev.Paired() {
		t.Error("device not paired")
	}
	if got := dev.PairedAt(); got != testNow.Unix() {
		t.Errorf("device got timestamp %d, want %d", got, testNow.Unix())
	}
	if l.Connected() || l.Authorized() {
		t.Error("lock still connected after pairing")
	}
	for _, op := range []lock.Opcode{lock.OpStartPairing, lock.OpSendTimestamp, lock.OpSendNewCAT, lock.OpClaimOwnership, lock.OpCompletePairing} {
		if n := dev.Count(op); n != 1 {
			t.Errorf("device got %d requests %v, want 1", n, op)
		}
	}

	// The temporary token is not cached.
	if _, err := l.GetConfig(ctx, 16); !errors.Is(err, lock.ErrNoCredentials) {
		t.Errorf("GetConfig() error = %v, want ErrNoCredentials", err)
	}

	if _, err := l.Authorize(ctx, creds); err != nil {
		t.Fatalf("Authorize with paired credentials: %v", err)
	}
}

func TestPair_WrongPIN(t *testing.T) {
	dev := newDevice(t, locktest.Config{})
	l := newLock(t, dev, 1)

	_, err := l.Pair(testContext(t), 654321)
	if code := protocolCode(err); code != locktest.CodeUnauthorized {
		t.Fatalf("Pair() error = %v, want code %d", err, locktest.CodeUnauthorized)
	}
	if dev.Paired() {
		t.Error("device paired with the wrong PIN")
	}
	if n := dev.Count(lock.OpSendNewCAT); n != 0 {
		t.Errorf("device got %d SendNewCAT", n)
	}
}

func TestPair_AlreadyPaired(t *testing.T) {
	dev := newDevice(t, locktest.Config{Paired: true})
	l := newLock(t, dev, 1)

	if _, err := l.Pair(testContext(t), locktest.DefaultPIN); protocolCode(err) == 0 {
		t.Errorf("Pair() error = %v, want a protocol error", err)
	}
}

func TestPair_InvalidPIN(t *testing.T) {
	dev := newDevice(t, locktest.Config{})
	l := newLock(t, dev, 1)

	if _, err := l.Pair(testContext(t), -5); !errors.Is(err, lock.ErrInvalidPIN) {
		t.Errorf("Pair() error = %v", err)
	}
	if dev.Count(lock.OpStartPairing) != 0 {
		t.Error("invalid PIN reached the device")
	}
}

func TestProperties(t *testing.T) {
	l, dev := authorizedLock(t, locktest.Config{
		Info:     map[int64]message.Value{3: message.Text("10.00.00264232 ")},
		Settings: map[int64]message.Value{16: message.Int(30)},
	})
	ctx := testContext(t)

	info, err := l.GetInfo(ctx, 3)
	if err != nil {
		t.Fatalf("GetInfo: %v", err)
	}
	if s, _ := info.Text(); s != "10.00.00264232" {
		t.Errorf("GetInfo() = %s", info)
	}

	v, err := l.GetConfig(ctx, 16)
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if n, _ := v.Int(); n != 30 {
		t.Errorf("GetConfig() = %s", v)
	}

	if _, err := l.GetConfig(ctx, 99); protocolCode(err) != locktest.CodeNotFound {
		t.Errorf("GetConfig(unknown) error = %v", err)
	}

	user := uuid.MustParse("00112233-4455-6677-8899-aabbccddeeff")
	data, err := l.SetState(ctx, 0, 1, user)
	if err != nil {
		t.Fatalf("SetState: %v", err)
	}
	if data.LockState != 1 {
		t.Errorf("LockState = %d, want 1", data.LockState)
	}
	if !bytes.Equal(dev.LastUser(), user[:]) {
		t.Errorf("device saw user %x", dev.LastUser())
	}

	data, err = l.SetConfig(ctx, 16, 45, uuid.Nil)
	if err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	if data.AutoLockDelay != 45 {
		t.Errorf("AutoLockDelay = %d, want 45", data.AutoLockDelay)
	}
	if len(dev.LastUser()) != 16 || bytes.Equal(dev.LastUser(), user[:]) {
		t.Errorf("nil user was not replaced with a random one: %x", dev.LastUser())
	}

	v, err = l.GetConfig(ctx, 16)
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if n, _ := v.Int(); n != 45 {
		t.Errorf("GetConfig() after SetConfig = %s", v)
	}
}

func TestRequest_ProtocolError(t *testing.T) {
	l, dev := authorizedLock(t, locktest.Config{Settings: map[int64]message.Value{16: message.Int(30)}})
	ctx := testContext(t)

	dev.FailNext(77)
	_, err := l.GetConfig(ctx, 16)
	if code := protocolCode(err); code != 77 {
		t.Fatalf("GetConfig() error = %v, want code 77", err)
	}
	if !errors.Is(err, message.ErrProtocol) {
		t.Errorf("error %v does not match ErrProtocol", err)
	}

	// The session survives an error response.
	if _, err := l.GetConfig(ctx, 16); err != nil {
		t.Errorf("GetConfig after error: %v", err)
	}
}

func TestRequest_Timeout(t *testing.T) {
	l, dev := authorizedLock(t, locktest.Config{Settings: map[int64]message.Value{16: message.Int(30)}})
	dev.SetSilent(true)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := l.GetConfig(ctx, 16)
	if !errors.Is(err, lock.ErrTimeout) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("GetConfig() error = %v, want ErrTimeout", err)
	}
	if l.Busy() {
		t.Error("guard held after a timeout")
	}
}

func TestRequest_Cancelled(t *testing.T) {
	l, dev := authorizedLock(t, locktest.Config{Settings: map[int64]message.Value{16: message.Int(30)}})
	dev.SetSilent(true)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := l.GetConfig(ctx, 16)
	if !errors.Is(err, context.Canceled) || errors.Is(err, lock.ErrTimeout) {
		t.Errorf("GetConfig() error = %v, want context.Canceled", err)
	}
}

func TestHandshake_Busy(t *testing.T) {
	l, dev := authorizedLock(t, locktest.Config{Settings: map[int64]message.Value{16: message.Int(30)}})
	dev.SetSilent(true)

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		_, err := l.GetConfig(ctx, 16)
		done <- err
	}()

	deadline := time.Now().Add(time.Second)
	for !l.Busy() {
		if time.Now().After(deadline) {
			t.Fatal("request never took the guard")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := l.Pair(testContext(t), locktest.DefaultPIN); !errors.Is(err, lock.ErrBusy) {
		t.Errorf("Pair() while busy error = %v, want ErrBusy", err)
	}

	if err := <-done; !errors.Is(err, lock.ErrTimeout) {
		t.Errorf("GetConfig() error = %v, want ErrTimeout", err)
	}
}

func TestRequest_Serialized(t *testing.T) {
	l, _ := authorizedLock(t, locktest.Config{Settings: map[int64]message.Value{16: message.Int(30)}})
	ctx := testContext(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := l.GetConfig(ctx, 16)
			if err == nil {
				if n, _ := v.Int(); n != 30 {
					err = errors.New("wrong value " + v.String())
				}
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent GetConfig: %v", err)
		}
	}
}

func TestDisconnect_Reauthorizes(t *testing.T) {
	l, dev := authorizedLock(t, locktest.Config{Settings: map[int64]message.Value{16: message.Int(30)}})
	ctx := testContext(t)

	if err := l.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if l.Authorized() || l.State() != lock.StateDisconnected {
		t.Fatalf("State() = %s after disconnect", l.State())
	}
	if err := l.Disconnect(ctx); !errors.Is(err, transport.ErrNotConnected) {
		t.Errorf("second Disconnect() error = %v", err)
	}

	if _, err := l.GetConfig(ctx, 16); err != nil {
		t.Fatalf("GetConfig after disconnect: %v", err)
	}
	if n := dev.Count(lock.OpSendCAT); n != 2 {
		t.Errorf("device got %d SendCAT, want 2", n)
	}
}

func TestPeripheralDrop_Reauthorizes(t *testing.T) {
	l, dev := authorizedLock(t, locktest.Config{Settings: map[int64]message.Value{16: message.Int(30)}})
	ctx := testContext(t)

	if err := dev.Peripheral().Disconnect(); err != nil {
		t.Fatalf("peripheral Disconnect: %v", err)
	}
	if l.Authorized() {
		t.Fatal("still authorized after the link dropped")
	}

	if _, err := l.GetConfig(ctx, 16); err != nil {
		t.Fatalf("GetConfig after drop: %v", err)
	}
	if !l.Authorized() {
		t.Error("not re-authorized")
	}
}

func testCodes(t *testing.T) []lock.AccessCode {
	t.Helper()
	s, err := lock.NewSchedule(lock.Weekdays, 8, 0, 17, 0)
	if err != nil {
		t.Fatal(err)
	}
	return []lock.AccessCode{
		{ID: uuid.MustParse("10000000-0000-0000-0000-000000000001"), Name: "Owner", Code: 1111},
		{ID: uuid.MustParse("10000000-0000-0000-0000-000000000002"), Name: "Cleaner", Code: 2222, Schedule1: &s},
		{ID: uuid.MustParse("10000000-0000-0000-0000-000000000003"), Name: "Guest", Code: 3333, Blocked: boolPtr(true)},
	}
}

func TestGetAccessCodes(t *testing.T) {
	l, dev := authorizedLock(t, locktest.Config{AccessCodes: testCodes(t)})
	ctx := testContext(t)

	codes, err := l.GetAccessCodes(ctx)
	if err != nil {
		t.Fatalf("GetAccessCodes: %v", err)
	}
	if len(codes) != 3 {
		t.Fatalf("got %d codes, want 3", len(codes))
	}
	for i, want := range []string{"Owner", "Cleaner", "Guest"} {
		if codes[i].Name != want {
			t.Errorf("code %d name = %q, want %q", i, codes[i].Name, want)
		}
	}
	if !codes[1].Schedule1.Has(lock.Monday) || codes[1].Schedule1.Has(lock.Sunday) {
		t.Errorf("schedule = %s", codes[1].Schedule1)
	}
	if !codes[2].IsBlocked() {
		t.Error("Guest not blocked")
	}

	reads := dev.Count(lock.OpRead)
	if reads != 3 {
		t.Errorf("device got %d reads, want 3", reads)
	}

	// Served from the cache.
	codes[0].Name = "changed"
	again, err := l.GetAccessCodes(ctx)
	if err != nil {
		t.Fatalf("GetAccessCodes: %v", err)
	}
	if dev.Count(lock.OpRead) != reads {
		t.Error("second listing hit the device")
	}
	if again[0].Name != "Owner" {
		t.Error("cache shares memory with a returned slice")
	}

	ac, err := l.GetAccessCode(ctx, 2222)
	if err != nil {
		t.Fatalf("GetAccessCode: %v", err)
	}
	if ac.Name != "Cleaner" {
		t.Errorf("GetAccessCode() = %s", ac)
	}
	if _, err := l.GetAccessCode(ctx, 9999); !errors.Is(err, lock.ErrNotFound) {
		t.Errorf("GetAccessCode(missing) error = %v", err)
	}
}

func TestGetAccessCodes_Empty(t *testing.T) {
	l, dev := authorizedLock(t, locktest.Config{})

	codes, err := l.GetAccessCodes(testContext(t))
	if err != nil {
		t.Fatalf("GetAccessCodes: %v", err)
	}
	if codes == nil || len(codes) != 0 {
		t.Errorf("GetAccessCodes() = %v, want empty", codes)
	}
	if dev.Count(lock.OpRead) != 0 {
		t.Error("empty listing read records")
	}

	checks := dev.Count(lock.OpWrite)
	codes, err = l.GetAccessCodes(testContext(t))
	if err != nil {
		t.Fatalf("GetAccessCodes: %v", err)
	}
	if codes == nil || len(codes) != 0 {
		t.Errorf("cached GetAccessCodes() = %v, want empty", codes)
	}
	if dev.Count(lock.OpWrite) != checks {
		t.Error("empty listing was not cached")
	}
}

func TestSetAccessCode_Create(t *testing.T) {
	l, dev := authorizedLock(t, locktest.Config{AccessCodes: testCodes(t)})
	ctx := testContext(t)

	if _, err := l.GetAccessCodes(ctx); err != nil {
		t.Fatal(err)
	}

	ac, err := l.SetAccessCode(ctx, lock.AccessCode{Code: 4444})
	if err != nil {
		t.Fatalf("SetAccessCode: %v", err)
	}
	if ac.ID == uuid.Nil {
		t.Error("no ID assigned")
	}
	if !strings.HasPrefix(ac.Name, "auto-") {
		t.Errorf("Name = %q, want a generated name", ac.Name)
	}
	if ac.Schedule1 == nil || *ac.Schedule1 != lock.DefaultSchedule() {
		t.Errorf("Schedule1 = %v", ac.Schedule1)
	}
	if got := len(dev.AccessCodes()); got != 4 {
		t.Errorf("device has %d codes, want 4", got)
	}

	codes, err := l.GetAccessCodes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(codes) != 4 {
		t.Errorf("listing after create has %d codes; cache not invalidated", len(codes))
	}
}

func TestSetAccessCode_Update(t *testing.T) {
	codes := testCodes(t)
	l, dev := authorizedLock(t, locktest.Config{AccessCodes: codes})
	ctx := testContext(t)

	ac, err := l.SetAccessCode(ctx, lock.AccessCode{ID: codes[2].ID, Code: 3434})
	if err != nil {
		t.Fatalf("SetAccessCode: %v", err)
	}
	if ac.Name != "Guest" || ac.Code != 3434 || ac.ID != codes[2].ID {
		t.Errorf("updated code = %s", ac)
	}
	if !ac.IsBlocked() {
		t.Error("update without Blocked unblocked the code")
	}

	ac, err = l.SetAccessCode(ctx, lock.AccessCode{ID: codes[2].ID, Code: 3434, Blocked: boolPtr(false)})
	if err != nil {
		t.Fatalf("SetAccessCode(unblock): %v", err)
	}
	if ac.IsBlocked() {
		t.Error("explicit Blocked = false kept the code blocked")
	}
	if got := len(dev.AccessCodes()); got != 3 {
		t.Errorf("device has %d codes, want 3", got)
	}

	_, err = l.SetAccessCode(ctx, lock.AccessCode{ID: uuid.MustParse("20000000-0000-0000-0000-000000000000"), Code: 1})
	if !errors.Is(err, lock.ErrNotFound) {
		t.Errorf("SetAccessCode(unknown id) error = %v", err)
	}
}

func TestSetAccessCode_Invalid(t *testing.T) {
	l, dev := authorizedLock(t, locktest.Config{})
	writes := dev.Count(lock.OpWrite)

	bad := lock.Schedule{StartHour: 30, Days: lock.AllDays}
	for _, ac := range []lock.AccessCode{
		{Name: "no code"},
		{Code: 1, Schedule2: &bad},
	} {
		if _, err := l.SetAccessCode(testContext(t), ac); !errors.Is(err, lock.ErrValidation) {
			t.Errorf("SetAccessCode(%s) error = %v", ac, err)
		}
	}
	if dev.Count(lock.OpWrite) != writes {
		t.Error("invalid code reached the device")
	}
}

func TestSetAccessCode_FailedAuthorizationDropsCache(t *testing.T) {
	l, dev := authorizedLock(t, locktest.Config{AccessCodes: testCodes(t)})
	ctx := testContext(t)

	if _, err := l.GetAccessCodes(ctx); err != nil {
		t.Fatal(err)
	}
	reads := dev.Count(lock.OpRead)

	if err := dev.Peripheral().Disconnect(); err != nil {
		t.Fatalf("peripheral Disconnect: %v", err)
	}
	dev.SetTamperTag(true)
	if _, err := l.SetAccessCode(ctx, lock.AccessCode{Code: 4444}); !errors.Is(err, crypto.ErrAuthenticationFailed) {
		t.Fatalf("SetAccessCode() error = %v, want authentication failure", err)
	}
	dev.SetTamperTag(false)

	if _, err := l.GetAccessCodes(ctx); err != nil {
		t.Fatalf("GetAccessCodes: %v", err)
	}
	if dev.Count(lock.OpRead) == reads {
		t.Error("listing after a failed write was served from the cache")
	}
}

func TestDeleteAccessCode(t *testing.T) {
	l, dev := authorizedLock(t, locktest.Config{AccessCodes: testCodes(t)})
	ctx := testContext(t)

	if _, err := l.GetAccessCodes(ctx); err != nil {
		t.Fatal(err)
	}
	if err := l.DeleteAccessCode(ctx, 2222); err != nil {
		t.Fatalf("DeleteAccessCode: %v", err)
	}
	if got := len(dev.AccessCodes()); got != 2 {
		t.Errorf("device has %d codes, want 2", got)
	}
	if _, err := l.GetAccessCode(ctx, 2222); !errors.Is(err, lock.ErrNotFound) {
		t.Errorf("GetAccessCode(deleted) error = %v", err)
	}

	if err := l.DeleteAccessCode(ctx, 2222); protocolCode(err) != locktest.CodeNotFound {
		t.Errorf("second DeleteAccessCode() error = %v", err)
	}
}

func testEntries(n int) []lock.LogEntry {
	entries := make([]lock.LogEntry, n)
	for i := range entries {
		entries[i] = lock.LogEntry{
			Timestamp: testNow.Add(time.Duration(i) * time.Minute),
			Action:    lock.ActionStateAction,
			Event:     lock.EventUnlockedByKeypad,
			User:      []byte{byte(i)},
		}
	}
	return entries
}

func TestGetLogEntries(t *testing.T) {
	tests := []struct {
		name      string
		entries   int
		batch     int
		stop      lock.StopFunc
		want      int
		wantWrite int
	}{
		{"whole log", 7, 5, nil, 7, 3},
		{"single entry batches", 3, 1, nil, 3, 4},
		{"stop after first batch", 12, 5, func([]lock.LogEntry, bool) bool { return true }, 5, 2},
		{"empty log", 0, 5, nil, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, dev := authorizedLock(t, locktest.Config{
				LogEntries:   testEntries(tt.entries),
				LogBatchSize: tt.batch,
			})
			writes := dev.Count(lock.OpWrite)

			entries, err := l.GetLogEntries(testContext(t), lock.DefaultLogGroup, tt.stop)
			if err != nil {
				t.Fatalf("GetLogEntries: %v", err)
			}
			if len(entries) != tt.want {
				t.Fatalf("got %d entries, want %d", len(entries), tt.want)
			}
			for i, e := range entries {
				if !e.Timestamp.Equal(testNow.Add(time.Duration(i)*time.Minute)) || e.Event != lock.EventUnlockedByKeypad {
					t.Errorf("entry %d = %s", i, e)
				}
				if e.UserID() != fmt.Sprintf("%02x", i) {
					t.Errorf("entry %d user = %s", i, e.UserID())
				}
			}
			if got := dev.Count(lock.OpWrite) - writes; got != tt.wantWrite {
				t.Errorf("device got %d log requests, want %d", got, tt.wantWrite)
			}
		})
	}
}

func TestAuthorize_ClockSkewOnlyWarns(t *testing.T) {
	dev := newDevice(t, locktest.Config{Paired: true, ClockOffset: 10 * time.Minute})
	l := newLock(t, dev, 1)

	if _, err := l.Authorize(testContext(t), dev.Credentials()); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if !l.Authorized() {
		t.Error("clock skew prevented authorization")
	}
}

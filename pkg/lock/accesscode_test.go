package lock

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/backkem/senselock/pkg/message"
	"github.com/google/uuid"
)

var testCodeID = uuid.MustParse("0f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0")

func boolPtr(b bool) *bool { return &b }

func TestParseAccessCode(t *testing.T) {
	m := message.NewMap().
		Set(keyID, message.Bytes(testCodeID[:])).
		Set(keyName, message.Text("Front door\x00")).
		Set(keyCode, message.Int(4321)).
		Set(keySchedule2, message.Bytes(make([]byte, ScheduleSize))).
		Set(keyBlocked, message.Int(1)).
		Set(keyStart, message.Int(1700000000))

	ac, err := ParseAccessCode(m)
	if err != nil {
		t.Fatalf("ParseAccessCode: %v", err)
	}
	if ac.ID != testCodeID {
		t.Errorf("ID = %s", ac.ID)
	}
	if ac.Name != "Front door" {
		t.Errorf("Name = %q", ac.Name)
	}
	if ac.Code != 4321 {
		t.Errorf("Code = %d", ac.Code)
	}
	if ac.Schedule1 == nil || *ac.Schedule1 != DefaultSchedule() {
		t.Errorf("Schedule1 = %v, want default", ac.Schedule1)
	}
	if ac.Schedule2 != nil {
		t.Errorf("Schedule2 = %v, want nil for an unused schedule", ac.Schedule2)
	}
	if !ac.IsBlocked() {
		t.Errorf("Blocked = %v", ac.Blocked)
	}
	if !ac.Start.Equal(time.Unix(1700000000, 0)) || !ac.End.IsZero() {
		t.Errorf("Start, End = %v, %v", ac.Start, ac.End)
	}
}

func TestParseAccessCode_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		m       *message.Map
		wantErr error
	}{
		{"short id", message.NewMap().Set(keyID, message.Bytes([]byte{1, 2})), message.ErrMalformed},
		{"short schedule", message.NewMap().Set(keySchedule1, message.Bytes([]byte{1})), ErrInvalidSchedule},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseAccessCode(tt.m); !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseAccessCode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAccessCode_Map(t *testing.T) {
	s2 := Schedule{StartHour: 18, EndHour: 22, Days: Weekend}
	ac := AccessCode{
		ID:        testCodeID,
		Name:      "Guest",
		Code:      1234,
		Schedule2: &s2,
		End:       time.Unix(1800000000, 0),
	}

	m, err := ac.Map()
	if err != nil {
		t.Fatalf("Map: %v", err)
	}

	wantKeys := []int64{keyID, keyName, keyCode, keySchedule1, keySchedule2, keyBlocked, keyEnd}
	keys := m.Keys()
	if len(keys) != len(wantKeys) {
		t.Fatalf("Keys() = %v, want %v", keys, wantKeys)
	}
	for i := range keys {
		if keys[i] != wantKeys[i] {
			t.Fatalf("Keys() = %v, want %v", keys, wantKeys)
		}
	}

	if name, _ := m.Text(keyName); name != "Guest\x00" {
		t.Errorf("name = %q, want NUL terminated", name)
	}
	if b, _ := m.Bytes(keySchedule1); !bytes.Equal(b, DefaultSchedule().Bytes()) {
		t.Errorf("schedule1 = %v, want default", b)
	}
	if blocked, _ := m.Int(keyBlocked); blocked != 0 {
		t.Errorf("blocked = %d", blocked)
	}

	back, err := ParseAccessCode(m)
	if err != nil {
		t.Fatalf("ParseAccessCode: %v", err)
	}
	if back.Name != ac.Name || back.Code != ac.Code || *back.Schedule2 != s2 || !back.End.Equal(ac.End) {
		t.Errorf("ParseAccessCode(Map()) = %s", back)
	}
}

func TestAccessCode_Validate(t *testing.T) {
	bad := Schedule{StartHour: 10, EndHour: 9, Days: AllDays}
	tests := []struct {
		name    string
		ac      AccessCode
		wantErr error
	}{
		{"valid", AccessCode{Code: 1}, nil},
		{"no code", AccessCode{Name: "x"}, ErrInvalidAccessCode},
		{"bad schedule", AccessCode{Code: 1, Schedule1: &bad}, ErrInvalidSchedule},
		{"ends before start", AccessCode{Code: 1, Start: time.Unix(20, 0), End: time.Unix(10, 0)}, ErrInvalidAccessCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ac.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAccessCode_Merge(t *testing.T) {
	s1 := Schedule{StartHour: 7, EndHour: 8, Days: Monday}
	current := AccessCode{
		ID:        testCodeID,
		Name:      "Cleaner",
		Code:      1111,
		Schedule1: &s1,
		Blocked:   boolPtr(true),
		Start:     time.Unix(100, 0),
	}

	got := AccessCode{Code: 2222}.Merge(current)
	if got.ID != testCodeID || got.Name != "Cleaner" || got.Schedule1 != &s1 || !got.Start.Equal(current.Start) {
		t.Errorf("Merge() = %+v", got)
	}
	if got.Code != 2222 {
		t.Errorf("Code = %d, want the update's code", got.Code)
	}
	if !got.IsBlocked() {
		t.Error("unset Blocked did not keep the stored value")
	}

	got = AccessCode{Code: 2222, Blocked: boolPtr(false)}.Merge(current)
	if got.Blocked == nil || *got.Blocked {
		t.Errorf("explicit Blocked = false was overwritten: %v", got.Blocked)
	}
}

func TestDefaultName(t *testing.T) {
	name, err := DefaultName(bytes.NewReader([]byte{0, 1, 35, 36, 71, 255}))
	if err != nil {
		t.Fatalf("DefaultName: %v", err)
	}
	if name != "auto-01z0z3" {
		t.Errorf("DefaultName() = %q", name)
	}

	if _, err := DefaultName(bytes.NewReader([]byte{1})); err == nil {
		t.Error("DefaultName() with a short reader succeeded")
	}
}

package lock

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/backkem/senselock/pkg/message"
	"github.com/google/uuid"
)

// Access code record keys.
const (
	keyID        = 0
	keyName      = 1
	keyCode      = 2
	keySchedule1 = 3
	keySchedule2 = 4
	keyBlocked   = 5
	keyStart     = 6
	keyEnd       = 7
)

// defaultNamePrefix starts the generated name of unnamed access codes.
const defaultNamePrefix = "auto-"

const nameAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// AccessCode is a keypad code stored on the lock.
//
// Optional fields use their zero value for "not set". When an existing code
// is updated, unset fields keep the value stored on the lock.
type AccessCode struct {
	// ID identifies the record. uuid.Nil for a code not yet stored.
	ID uuid.UUID

	// Name is the display name. The wire form is NUL terminated.
	Name string

	// Code is the number entered on the keypad. Required.
	Code int64

	// Schedule1 is the primary weekly schedule. Nil means DefaultSchedule.
	Schedule1 *Schedule

	// Schedule2 is the optional secondary weekly schedule.
	Schedule2 *Schedule

	// Blocked disables the code without deleting it. Nil keeps the stored
	// value on update and is sent as not blocked on create.
	Blocked *bool

	// Start and End bound the validity of the code.
	Start time.Time
	End   time.Time
}

// ParseAccessCode decodes an access code record.
func ParseAccessCode(m *message.Map) (AccessCode, error) {
	var ac AccessCode

	if b, ok := m.Bytes(keyID); ok {
		id, err := uuid.FromBytes(b)
		if err != nil {
			return AccessCode{}, fmt.Errorf("%w: access code id: %w", message.ErrMalformed, err)
		}
		ac.ID = id
	}
	if name, ok := m.Text(keyName); ok {
		ac.Name = strings.TrimRight(name, "\x00")
	}
	ac.Code, _ = m.Int(keyCode)

	if b, ok := m.Bytes(keySchedule1); ok {
		s, err := ParseSchedule(b)
		if err != nil {
			return AccessCode{}, err
		}
		if !s.IsZero() {
			ac.Schedule1 = &s
		}
	}
	if ac.Schedule1 == nil {
		s := DefaultSchedule()
		ac.Schedule1 = &s
	}
	if b, ok := m.Bytes(keySchedule2); ok {
		s, err := ParseSchedule(b)
		if err != nil {
			return AccessCode{}, err
		}
		if !s.IsZero() {
			ac.Schedule2 = &s
		}
	}

	blocked := m.Flag(keyBlocked)
	ac.Blocked = &blocked
	if ts, ok := m.Int(keyStart); ok {
		ac.Start = time.Unix(ts, 0)
	}
	if ts, ok := m.Int(keyEnd); ok {
		ac.End = time.Unix(ts, 0)
	}

	return ac, nil
}

// Validate checks the fields a write needs.
func (ac AccessCode) Validate() error {
	if ac.Code <= 0 {
		return fmt.Errorf("%w: code is required", ErrInvalidAccessCode)
	}
	for _, s := range []*Schedule{ac.Schedule1, ac.Schedule2} {
		if s == nil {
			continue
		}
		if err := s.Validate(); err != nil {
			return err
		}
	}
	if !ac.Start.IsZero() && !ac.End.IsZero() && ac.End.Before(ac.Start) {
		return fmt.Errorf("%w: ends before it starts", ErrInvalidAccessCode)
	}
	return nil
}

// Map encodes the record in ascending key order.
func (ac AccessCode) Map() (*message.Map, error) {
	if err := ac.Validate(); err != nil {
		return nil, err
	}

	schedule1 := DefaultSchedule()
	if ac.Schedule1 != nil {
		schedule1 = *ac.Schedule1
	}

	m := message.NewMap().
		Set(keyID, message.Bytes(ac.ID[:])).
		Set(keyName, message.Text(ac.Name+"\x00")).
		Set(keyCode, message.Int(ac.Code)).
		Set(keySchedule1, message.Bytes(schedule1.Bytes()))
	if ac.Schedule2 != nil {
		m.Set(keySchedule2, message.Bytes(ac.Schedule2.Bytes()))
	}
	m.Set(keyBlocked, flag(ac.IsBlocked()))
	if !ac.Start.IsZero() {
		m.Set(keyStart, message.Int(ac.Start.Unix()))
	}
	if !ac.End.IsZero() {
		m.Set(keyEnd, message.Int(ac.End.Unix()))
	}
	return m, nil
}

// Merge fills the unset fields of ac from current.
func (ac AccessCode) Merge(current AccessCode) AccessCode {
	if ac.ID == uuid.Nil {
		ac.ID = current.ID
	}
	if ac.Name == "" {
		ac.Name = current.Name
	}
	if ac.Schedule1 == nil {
		ac.Schedule1 = current.Schedule1
	}
	if ac.Schedule2 == nil {
		ac.Schedule2 = current.Schedule2
	}
	if ac.Blocked == nil {
		ac.Blocked = current.Blocked
	}
	if ac.Start.IsZero() {
		ac.Start = current.Start
	}
	if ac.End.IsZero() {
		ac.End = current.End
	}
	return ac
}

// IsBlocked reports whether Blocked is set to true.
func (ac AccessCode) IsBlocked() bool {
	return ac.Blocked != nil && *ac.Blocked
}

// String returns a short description for logs.
func (ac AccessCode) String() string {
	return fmt.Sprintf("AccessCode{%s %q code=%d blocked=%t}", ac.ID, ac.Name, ac.Code, ac.IsBlocked())
}

// DefaultName generates a name of the form "auto-xxxxxx" from r.
func DefaultName(r io.Reader) (string, error) {
	var b [6]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = nameAlphabet[int(b[i])%len(nameAlphabet)]
	}
	return defaultNamePrefix + string(b[:]), nil
}

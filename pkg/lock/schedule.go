package lock

import (
	"fmt"
	"strings"
)

// Day is a bitmask of weekdays. Sunday is the most significant bit.
type Day uint8

// Days.
const (
	Sunday    Day = 0b1000000
	Monday    Day = 0b0100000
	Tuesday   Day = 0b0010000
	Wednesday Day = 0b0001000
	Thursday  Day = 0b0000100
	Friday    Day = 0b0000010
	Saturday  Day = 0b0000001

	AllDays  Day = 0b1111111
	Weekend  Day = Sunday | Saturday
	Weekdays Day = Monday | Tuesday | Wednesday | Thursday | Friday
)

// weekdayLetters lists the days in mask order with their short names.
var weekdayLetters = []struct {
	day    Day
	letter byte
}{
	{Sunday, 'U'},
	{Monday, 'M'},
	{Tuesday, 'T'},
	{Wednesday, 'W'},
	{Thursday, 'H'},
	{Friday, 'F'},
	{Saturday, 'S'},
}

// String returns the letters of the days in the mask, e.g. "UMTWHFS".
func (d Day) String() string {
	var sb strings.Builder
	for _, wl := range weekdayLetters {
		if d&wl.day != 0 {
			sb.WriteByte(wl.letter)
		}
	}
	return sb.String()
}

// IsValid reports whether d is a non-empty mask of the seven days.
func (d Day) IsValid() bool {
	return d >= Saturday && d <= AllDays
}

// ScheduleSize is the wire size of a Schedule.
const ScheduleSize = 5

// Schedule is a weekly recurring time window.
//
// Wire format (5 bytes):
//
//	start_hour | start_minute | end_hour | end_minute | days
type Schedule struct {
	StartHour   uint8
	StartMinute uint8
	EndHour     uint8
	EndMinute   uint8
	Days        Day
}

// DefaultSchedule is open every day from 00:00 to 23:59.
func DefaultSchedule() Schedule {
	return Schedule{EndHour: 23, EndMinute: 59, Days: AllDays}
}

// NewSchedule creates a validated schedule. An empty day mask means every
// day.
func NewSchedule(days Day, startHour, startMinute, endHour, endMinute int) (Schedule, error) {
	for _, h := range []int{startHour, endHour} {
		if h < 0 || h > 23 {
			return Schedule{}, fmt.Errorf("%w: hour %d", ErrInvalidSchedule, h)
		}
	}
	for _, m := range []int{startMinute, endMinute} {
		if m < 0 || m > 59 {
			return Schedule{}, fmt.Errorf("%w: minute %d", ErrInvalidSchedule, m)
		}
	}
	if days == 0 {
		days = AllDays
	}

	s := Schedule{
		StartHour:   uint8(startHour),
		StartMinute: uint8(startMinute),
		EndHour:     uint8(endHour),
		EndMinute:   uint8(endMinute),
		Days:        days,
	}
	if err := s.Validate(); err != nil {
		return Schedule{}, err
	}
	return s, nil
}

// ParseSchedule decodes the 5-byte wire form. Values are not range checked;
// the lock is trusted to send what it stores.
func ParseSchedule(b []byte) (Schedule, error) {
	if len(b) != ScheduleSize {
		return Schedule{}, fmt.Errorf("%w: length %d", ErrInvalidSchedule, len(b))
	}
	return Schedule{
		StartHour:   b[0],
		StartMinute: b[1],
		EndHour:     b[2],
		EndMinute:   b[3],
		Days:        Day(b[4]),
	}, nil
}

// Bytes returns the wire form.
func (s Schedule) Bytes() []byte {
	return []byte{s.StartHour, s.StartMinute, s.EndHour, s.EndMinute, byte(s.Days)}
}

// IsZero reports whether every field is zero. The lock reports unused
// schedules this way.
func (s Schedule) IsZero() bool {
	return s == Schedule{}
}

// Validate checks field ranges, that the window does not end before it
// starts, and the day mask.
func (s Schedule) Validate() error {
	if s.StartHour > 23 || s.EndHour > 23 || s.StartMinute > 59 || s.EndMinute > 59 {
		return fmt.Errorf("%w: %s out of range", ErrInvalidSchedule, s.window())
	}
	if s.EndMinutes() < s.StartMinutes() {
		return fmt.Errorf("%w: %s ends before it starts", ErrInvalidSchedule, s.window())
	}
	if !s.Days.IsValid() {
		return fmt.Errorf("%w: %#b", ErrInvalidDays, uint8(s.Days))
	}
	return nil
}

// StartMinutes returns the start of the window in minutes after midnight.
func (s Schedule) StartMinutes() int {
	return int(s.StartHour)*60 + int(s.StartMinute)
}

// EndMinutes returns the end of the window in minutes after midnight.
func (s Schedule) EndMinutes() int {
	return int(s.EndHour)*60 + int(s.EndMinute)
}

// Has reports whether the schedule covers all of the given days.
func (s Schedule) Has(days ...Day) bool {
	for _, d := range days {
		if s.Days&d == 0 {
			return false
		}
	}
	return true
}

// WithDays returns a copy with the given days added.
func (s Schedule) WithDays(days ...Day) Schedule {
	for _, d := range days {
		s.Days |= d & AllDays
	}
	return s
}

// WithoutDays returns a copy with the given days removed. Removing every
// day leaves a schedule for all days, as the lock has no empty schedule.
func (s Schedule) WithoutDays(days ...Day) Schedule {
	for _, d := range days {
		s.Days &^= d
	}
	if s.Days == 0 {
		s.Days = AllDays
	}
	return s
}

// Weekdays returns the day letters, e.g. "MTWHF".
func (s Schedule) Weekdays() string {
	return s.Days.String()
}

func (s Schedule) window() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", s.StartHour, s.StartMinute, s.EndHour, s.EndMinute)
}

// String formats the schedule as "MTWHF 08:00-17:30".
func (s Schedule) String() string {
	return s.Weekdays() + " " + s.window()
}

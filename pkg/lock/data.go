package lock

import (
	"strings"

	"github.com/backkem/senselock/pkg/message"
)

// Lock data record keys.
const (
	keyLockState        = 0
	keyBatteryState     = 12
	keyAlarmMode        = 14
	keyAlarmSensitivity = 15
	keyAutoLockDelay    = 16
	keyOneTouchLocking  = 17
	keyKeypressBeeper   = 18
	keyFirmwareVersion  = 20
)

// Data is the lock status returned by SetConfig and SetState.
type Data struct {
	LockState        int64
	BatteryState     int64
	AlarmMode        int64
	AlarmSensitivity int64
	AutoLockDelay    int64
	OneTouchLocking  bool
	KeypressBeeper   bool
	FirmwareVersion  string

	// Raw holds the complete record, including keys without a field.
	Raw *message.Map
}

// ParseData decodes a lock data record.
func ParseData(v message.Value) (*Data, error) {
	m, err := message.AsMap(v)
	if err != nil {
		return nil, err
	}

	d := &Data{Raw: m}
	d.LockState, _ = m.Int(keyLockState)
	d.BatteryState, _ = m.Int(keyBatteryState)
	d.AlarmMode, _ = m.Int(keyAlarmMode)
	d.AlarmSensitivity, _ = m.Int(keyAlarmSensitivity)
	d.AutoLockDelay, _ = m.Int(keyAutoLockDelay)
	d.OneTouchLocking = m.Flag(keyOneTouchLocking)
	d.KeypressBeeper = m.Flag(keyKeypressBeeper)
	if fw, ok := m.Get(keyFirmwareVersion); ok {
		if s, ok := fw.Text(); ok {
			d.FirmwareVersion = strings.TrimSpace(s)
		} else {
			d.FirmwareVersion = fw.String()
		}
	}
	return d, nil
}

// Map encodes the named fields of d.
func (d *Data) Map() *message.Map {
	return message.NewMap().
		Set(keyLockState, message.Int(d.LockState)).
		Set(keyBatteryState, message.Int(d.BatteryState)).
		Set(keyAlarmMode, message.Int(d.AlarmMode)).
		Set(keyAlarmSensitivity, message.Int(d.AlarmSensitivity)).
		Set(keyAutoLockDelay, message.Int(d.AutoLockDelay)).
		Set(keyOneTouchLocking, flag(d.OneTouchLocking)).
		Set(keyKeypressBeeper, flag(d.KeypressBeeper)).
		Set(keyFirmwareVersion, message.Text(d.FirmwareVersion))
}

func flag(b bool) message.Value {
	if b {
		return message.Int(1)
	}
	return message.Int(0)
}

package lock

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/backkem/senselock/pkg/message"
)

// Log entry record keys.
const (
	keyLogUser      = 0
	keyLogTimestamp = 1
	keyLogAction    = 2
	keyLogEventData = 3

	keyEventDataEvent  = 0
	keyEventDataDevice = 1
)

// LogAction classifies a log entry.
type LogAction int64

const (
	ActionUnknown      LogAction = -1
	ActionStateRead    LogAction = 0
	ActionStateAction  LogAction = 1
	ActionStateCleared LogAction = 4
)

// String returns the action name.
func (a LogAction) String() string {
	switch a {
	case ActionStateRead:
		return "StateRead"
	case ActionStateAction:
		return "StateAction"
	case ActionStateCleared:
		return "StateCleared"
	default:
		return "Unknown"
	}
}

// LogEvent is the event code of a log entry.
type LogEvent int64

// Log events.
const (
	EventUnknown                    LogEvent = -1
	EventUnknown0                   LogEvent = 0
	EventLockedByKeypad             LogEvent = 1
	EventUnlockedByKeypad           LogEvent = 2
	EventLockedByThumbturn          LogEvent = 3
	EventUnlockedByThumbturn        LogEvent = 4
	EventLockedBySchlageButton      LogEvent = 5
	EventLockedByMobileDevice       LogEvent = 6
	EventUnlockedByMobileDevice     LogEvent = 7
	EventLockedByTime               LogEvent = 8
	EventUnlockedByTime             LogEvent = 9
	EventLockJammed                 LogEvent = 10
	EventKeypadDisabledInvalidCode  LogEvent = 11
	EventAlarmTriggered             LogEvent = 12
	EventAccessCodeUserAdded        LogEvent = 14
	EventAccessCodeUserDeleted      LogEvent = 15
	EventMobileUserAdded            LogEvent = 16
	EventMobileUserDeleted          LogEvent = 17
	EventAdminPrivilegeAdded        LogEvent = 18
	EventAdminPrivilegeDeleted      LogEvent = 19
	EventFirmwareUpdated            LogEvent = 20
	EventLowBatteryIndicated        LogEvent = 21
	EventBatteriesReplaced          LogEvent = 22
	EventForcedEntryAlarmSilenced   LogEvent = 23
	EventHallSensorCommError        LogEvent = 27
	EventFDRFailed                  LogEvent = 28
	EventCriticalBatteryState       LogEvent = 29
	EventAllAccessCodeDeleted       LogEvent = 30
	EventFirmwareUpdateFailed       LogEvent = 32
	EventBTFirmwareDownloadFailed   LogEvent = 33
	EventWiFiFirmwareDownloadFailed LogEvent = 34
	EventKeypadDisconnected         LogEvent = 35
	EventWiFiAPDisconnect           LogEvent = 36
	EventWiFiHostDisconnect         LogEvent = 37
	EventWiFiAPConnect              LogEvent = 38
	EventWiFiHostConnect            LogEvent = 39
	EventUserDBFailure              LogEvent = 40
	EventPassageModeActivated       LogEvent = 48
	EventPassageModeDeactivated     LogEvent = 49
	EventLogAlertAlarmTriggered     LogEvent = 51
	EventHistoryCleared             LogEvent = 255
)

var logEventNames = map[LogEvent]string{
	EventUnknown0:                   "UNKNOWN0",
	EventLockedByKeypad:             "LOCKED_BY_KEYPAD",
	EventUnlockedByKeypad:           "UNLOCKED_BY_KEYPAD",
	EventLockedByThumbturn:          "LOCKED_BY_THUMBTURN",
	EventUnlockedByThumbturn:        "UNLOCKED_BY_THUMBTURN",
	EventLockedBySchlageButton:      "LOCKED_BY_SCHLAGE_BUTTON",
	EventLockedByMobileDevice:       "LOCKED_BY_MOBILE_DEVICE",
	EventUnlockedByMobileDevice:     "UNLOCKED_BY_MOBILE_DEVICE",
	EventLockedByTime:               "LOCKED_BY_TIME",
	EventUnlockedByTime:             "UNLOCKED_BY_TIME",
	EventLockJammed:                 "LOCK_JAMMED",
	EventKeypadDisabledInvalidCode:  "KEYPAD_DISABLED_INVALID_CODE",
	EventAlarmTriggered:             "ALARM_TRIGGERED",
	EventAccessCodeUserAdded:        "ACCESS_CODE_USER_ADDED",
	EventAccessCodeUserDeleted:      "ACCESS_CODE_USER_DELETED",
	EventMobileUserAdded:            "MOBILE_USER_ADDED",
	EventMobileUserDeleted:          "MOBILE_USER_DELETED",
	EventAdminPrivilegeAdded:        "ADMIN_PRIVILEGE_ADDED",
	EventAdminPrivilegeDeleted:      "ADMIN_PRIVILEGE_DELETED",
	EventFirmwareUpdated:            "FIRMWARE_UPDATED",
	EventLowBatteryIndicated:        "LOW_BATTERY_INDICATED",
	EventBatteriesReplaced:          "BATTERIES_REPLACED",
	EventForcedEntryAlarmSilenced:   "FORCED_ENTRY_ALARM_SILENCED",
	EventHallSensorCommError:        "HALL_SENSOR_COMM_ERROR",
	EventFDRFailed:                  "FDR_FAILED",
	EventCriticalBatteryState:       "CRITICAL_BATTERY_STATE",
	EventAllAccessCodeDeleted:       "ALL_ACCESS_CODE_DELETED",
	EventFirmwareUpdateFailed:       "FIRMWARE_UPDATE_FAILED",
	EventBTFirmwareDownloadFailed:   "BT_FW_DOWNLOAD_FAILED",
	EventWiFiFirmwareDownloadFailed: "WIFI_FW_DOWNLOAD_FAILED",
	EventKeypadDisconnected:         "KEYPAD_DISCONNECTED",
	EventWiFiAPDisconnect:           "WIFI_AP_DISCONNECT",
	EventWiFiHostDisconnect:         "WIFI_HOST_DISCONNECT",
	EventWiFiAPConnect:              "WIFI_AP_CONNECT",
	EventWiFiHostConnect:            "WIFI_HOST_CONNECT",
	EventUserDBFailure:              "USER_DB_FAILURE",
	EventPassageModeActivated:       "PASSAGE_MODE_ACTIVATED",
	EventPassageModeDeactivated:     "PASSAGE_MODE_DEACTIVATED",
	EventLogAlertAlarmTriggered:     "EVENT_LOG_ALERT_ALARM_TRIGGERED",
	EventHistoryCleared:             "HISTORY_CLEARED",
}

// String returns the event name used by the lock vendor, e.g.
// "LOCKED_BY_KEYPAD".
func (e LogEvent) String() string {
	if name, ok := logEventNames[e]; ok {
		return name
	}
	return "UNKNOWN"
}

// LogEntry is one record of the lock's event log.
type LogEntry struct {
	Timestamp time.Time
	Action    LogAction
	Event     LogEvent

	// User and Device are the raw identifiers attached to the event, nil
	// when absent.
	User   []byte
	Device []byte
}

// ParseLogEntry decodes a log entry record. A cleared-history action
// always yields EventHistoryCleared.
func ParseLogEntry(m *message.Map) (LogEntry, error) {
	e := LogEntry{Action: ActionUnknown, Event: EventUnknown}

	if ts, ok := m.Int(keyLogTimestamp); ok {
		e.Timestamp = time.Unix(ts, 0)
	}
	if a, ok := m.Int(keyLogAction); ok {
		e.Action = LogAction(a)
	}
	if b, ok := m.Bytes(keyLogUser); ok {
		e.User = b
	}

	if v, ok := m.Get(keyLogEventData); ok && !v.IsNull() {
		data, ok := v.Map()
		if !ok {
			return LogEntry{}, fmt.Errorf("%w: log event data is %s", message.ErrMalformed, v.Kind())
		}
		if ev, ok := data.Int(keyEventDataEvent); ok {
			e.Event = LogEvent(ev)
		}
		if b, ok := data.Bytes(keyEventDataDevice); ok {
			e.Device = b
		}
	}

	if e.Action == ActionStateCleared {
		e.Event = EventHistoryCleared
	}
	return e, nil
}

// Map encodes the entry.
func (e LogEntry) Map() *message.Map {
	m := message.NewMap()
	if e.User != nil {
		m.Set(keyLogUser, message.Bytes(e.User))
	}
	m.Set(keyLogTimestamp, message.Int(e.Timestamp.Unix()))
	if e.Action != ActionUnknown {
		m.Set(keyLogAction, message.Int(int64(e.Action)))
	}

	data := message.NewMap()
	if e.Event != EventUnknown && e.Action != ActionStateCleared {
		data.Set(keyEventDataEvent, message.Int(int64(e.Event)))
	}
	if e.Device != nil {
		data.Set(keyEventDataDevice, message.Bytes(e.Device))
	}
	if data.Len() > 0 {
		m.Set(keyLogEventData, message.MapValue(data))
	}
	return m
}

// UserID returns the user identifier in hex, or "" when absent.
func (e LogEntry) UserID() string {
	return hex.EncodeToString(e.User)
}

// DeviceID returns the device identifier in hex, or "" when absent.
func (e LogEntry) DeviceID() string {
	return hex.EncodeToString(e.Device)
}

// String returns a short description for logs.
func (e LogEntry) String() string {
	return fmt.Sprintf("%s %s %s", e.Timestamp.UTC().Format(time.RFC3339), e.Action, e.Event)
}

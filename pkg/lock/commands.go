package lock

import (
	"fmt"

	"github.com/backkem/senselock/pkg/message"
	"github.com/google/uuid"
)

// SendCAT authenticates the session with the access token. The response
// carries the lock's clock.
func SendCAT(cat []byte, newDevice bool) message.Command[int64] {
	op, mode := OpSendCAT, int64(2)
	if newDevice {
		op, mode = OpSendNewCAT, 1
	}
	return message.Command[int64]{
		Name:    "SendCAT",
		Request: op.Request(message.Int(mode), message.Int(0), message.Bytes(cat)),
		Shape:   message.ShapeSimple,
		Parse: func(v message.Value) (int64, error) {
			m, err := message.AsMap(v)
			if err != nil {
				return 0, err
			}
			ts, ok := m.Int(keyTimestamp)
			if !ok {
				return 0, message.ErrMissingPayload
			}
			return ts, nil
		},
	}
}

// StartPairing asks an unpaired lock for its pairing nonce and SPAKE2
// commitment.
func StartPairing() message.Command[*message.Map] {
	return message.Command[*message.Map]{
		Name:    "StartPairing",
		Request: OpStartPairing.Request(),
		Shape:   message.ShapeSimple,
		Parse:   message.AsMap,
	}
}

// SendTimestamp answers StartPairing. Negative nonces are lifted into the
// unsigned 32-bit range.
func SendTimestamp(n int64, commitment, encryptedTimestamp []byte) message.Command[*message.Map] {
	if n < 0 {
		n += 1 << 32
	}
	return message.Command[*message.Map]{
		Name: "SendTimestamp",
		Request: OpSendTimestamp.Request(
			message.Int(n),
			message.Bytes(commitment),
			message.Bytes(encryptedTimestamp),
		),
		Shape: message.ShapeSimple,
		Parse: message.AsMap,
	}
}

// ClaimOwnership exchanges the temporary access token for the final one.
func ClaimOwnership() message.Command[[]byte] {
	return message.Command[[]byte]{
		Name:    "ClaimOwnership",
		Request: OpClaimOwnership.Request(),
		Shape:   message.ShapeSimple,
		Parse: func(v message.Value) ([]byte, error) {
			m, err := message.AsMap(v)
			if err != nil {
				return nil, err
			}
			cat, ok := m.Bytes(keyClaimedCAT)
			if !ok {
				return nil, message.ErrMissingPayload
			}
			return cat, nil
		},
	}
}

// CompletePairing confirms the claimed access token.
func CompletePairing(cat []byte) message.Command[message.Value] {
	return message.Command[message.Value]{
		Name:    "CompletePairing",
		Request: OpCompletePairing.Request(message.Bytes(cat)),
		Shape:   message.ShapeSimple,
		Parse:   message.AsValue,
	}
}

// GetInfo reads one lock information property.
func GetInfo(property int64) message.Command[message.Value] {
	return readProperty("GetInfo", SubsystemInfo, property)
}

// GetConfig reads one lock configuration property.
func GetConfig(property int64) message.Command[message.Value] {
	return readProperty("GetConfig", SubsystemConfig, property)
}

func readProperty(name string, sub Subsystem, property int64) message.Command[message.Value] {
	return message.Command[message.Value]{
		Name:    name,
		Request: OpRead.Request(message.Int(int64(sub)), message.Int(property)),
		Shape:   message.ShapeNested,
		Parse:   message.AsValue,
	}
}

// SetConfig writes a configuration property on behalf of user.
func SetConfig(property int64, value message.Value, user uuid.UUID) message.Command[*Data] {
	return setProperty("SetConfig", SubsystemConfig, property, value, user)
}

// SetState writes a state property on behalf of user.
func SetState(property int64, value message.Value, user uuid.UUID) message.Command[*Data] {
	return setProperty("SetState", SubsystemInfo, property, value, user)
}

func setProperty(name string, sub Subsystem, property int64, value message.Value, user uuid.UUID) message.Command[*Data] {
	arg := message.NewMap().
		Set(0, value).
		Set(1, message.Bytes(user[:]))
	return message.Command[*Data]{
		Name:    name,
		Request: OpSet.Request(message.Int(int64(sub)), message.Int(property), message.MapValue(arg)),
		Shape:   message.ShapeNested,
		Parse:   ParseData,
	}
}

// HasAccessCodes reports whether any access code is stored.
func HasAccessCodes() message.Command[bool] {
	return checkList("HasAccessCodes", SubsystemAccessCodes)
}

// HasLogEntries reports whether the lock has log entries to read.
func HasLogEntries() message.Command[bool] {
	return checkList("HasLogEntries", SubsystemLog)
}

func checkList(name string, sub Subsystem) message.Command[bool] {
	return message.Command[bool]{
		Name: name,
		Request: OpWrite.Request(
			message.Int(int64(sub)),
			message.Int(ListCheck),
			message.MapValue(message.NewMap().Set(0, message.Int(0))),
		),
		Shape: message.ShapeNested,
		Parse: message.AsFlag,
	}
}

// GetAccessCode reads the next access code of the lock's listing.
func GetAccessCode() message.Command[message.Page[AccessCode]] {
	return message.Command[message.Page[AccessCode]]{
		Name:    "GetAccessCode",
		Request: OpRead.Request(message.Int(int64(SubsystemAccessCodes)), message.Int(AccessCodeNext)),
		Shape:   message.ShapeNested,
		Parse: func(v message.Value) (message.Page[AccessCode], error) {
			m, err := message.AsMap(v)
			if err != nil {
				return message.Page[AccessCode]{}, err
			}
			code, err := ParseAccessCode(m)
			if err != nil {
				return message.Page[AccessCode]{}, err
			}
			return message.Page[AccessCode]{More: m.Flag(keyAccessCodeMore), Result: code}, nil
		},
	}
}

// SetAccessCode creates code, or updates it when update is set. The record
// must already carry its identifier and name.
func SetAccessCode(code AccessCode, update bool) (message.Command[message.Value], error) {
	rec, err := code.Map()
	if err != nil {
		return message.Command[message.Value]{}, err
	}
	action := AccessCodeCreate
	if update {
		action = AccessCodeUpdate
	}
	return message.Command[message.Value]{
		Name: "SetAccessCode",
		Request: OpWrite.Request(
			message.Int(int64(SubsystemAccessCodes)),
			message.Int(action),
			message.MapValue(rec),
		),
		Shape: message.ShapeNested,
		Parse: message.AsValue,
	}, nil
}

// DeleteAccessCode removes the access code with the given keypad code.
func DeleteAccessCode(code int64) message.Command[message.Value] {
	return message.Command[message.Value]{
		Name: "DeleteAccessCode",
		Request: OpDelete.Request(
			message.Int(int64(SubsystemAccessCodes)),
			message.Int(AccessCodeDelete),
			message.MapValue(message.NewMap().Set(keyCode, message.Int(code))),
		),
		Shape: message.ShapeNested,
		Parse: message.AsValue,
	}
}

// GetLogEntry reads the next batch of entries from a log group.
func GetLogEntry(group int64) message.Command[message.Page[[]LogEntry]] {
	return message.Command[message.Page[[]LogEntry]]{
		Name:    "GetLogEntry",
		Request: OpWrite.Request(message.Int(int64(SubsystemLog)), message.Int(group)),
		Shape:   message.ShapeNested,
		Parse: func(v message.Value) (message.Page[[]LogEntry], error) {
			m, err := message.AsMap(v)
			if err != nil {
				return message.Page[[]LogEntry]{}, err
			}
			entries, err := ParseLogBatch(m)
			if err != nil {
				return message.Page[[]LogEntry]{}, err
			}
			return message.Page[[]LogEntry]{More: m.Flag(keyLogMore), Result: entries}, nil
		},
	}
}

// ParseLogBatch extracts the entries of a GetLogEntry response. A response
// without indexed entries is itself a single entry.
func ParseLogBatch(m *message.Map) ([]LogEntry, error) {
	if !m.Has(LogBatchKeys[0]) {
		entry, err := ParseLogEntry(m)
		if err != nil {
			return nil, err
		}
		return []LogEntry{entry}, nil
	}

	var entries []LogEntry
	for _, key := range LogBatchKeys {
		v, ok := m.Get(key)
		if !ok || v.IsNull() {
			continue
		}
		em, ok := v.Map()
		if !ok {
			return nil, fmt.Errorf("%w: log entry %d is %s", message.ErrMalformed, key, v.Kind())
		}
		entry, err := ParseLogEntry(em)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

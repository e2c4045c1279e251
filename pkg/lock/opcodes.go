package lock

import "github.com/backkem/senselock/pkg/message"

// Opcode is the [class, type] pair that selects a lock operation.
type Opcode struct {
	Class uint8
	Type  uint8
}

// Request builds a request for this opcode.
func (o Opcode) Request(args ...message.Value) message.Request {
	return message.NewRequest(o.Class, o.Type, args...)
}

// Opcodes.
var (
	OpStartPairing    = Opcode{3, 1}
	OpSendTimestamp   = Opcode{3, 2}
	OpSendCAT         = Opcode{5, 1}
	OpSendNewCAT      = Opcode{5, 3}
	OpDelete          = Opcode{8, 2}
	OpWrite           = Opcode{8, 3}
	OpRead            = Opcode{8, 4}
	OpSet             = Opcode{8, 7}
	OpClaimOwnership  = Opcode{25, 4}
	OpCompletePairing = Opcode{25, 5}
)

// Subsystem is the first argument of data requests (OpDelete, OpWrite,
// OpRead and OpSet).
type Subsystem int64

const (
	SubsystemInfo        Subsystem = 1
	SubsystemLog         Subsystem = 3
	SubsystemAccessCodes Subsystem = 4
	SubsystemConfig      Subsystem = 5
)

// String returns the subsystem name.
func (s Subsystem) String() string {
	switch s {
	case SubsystemInfo:
		return "Info"
	case SubsystemLog:
		return "Log"
	case SubsystemAccessCodes:
		return "AccessCodes"
	case SubsystemConfig:
		return "Config"
	default:
		return "Unknown"
	}
}

// Second argument of access code and log requests.
const (
	AccessCodeCreate int64 = 0
	AccessCodeDelete int64 = 1
	AccessCodeUpdate int64 = 4
	AccessCodeNext   int64 = 5
	ListCheck        int64 = 6
)

// Response keys.
const (
	keyAccessCodeMore = 10
	keyLogMore        = 4
	keyTimestamp      = 1
	keyPairingN       = 0
	keyCommitment     = 1
	keyTokens         = 0
	keyClaimedCAT     = 0
)

// LogBatchKeys are the response keys carrying up to five log entries.
var LogBatchKeys = []int64{10, 11, 12, 13, 14}

package locktest

import (
	"bytes"
	"strconv"

	"github.com/backkem/senselock/pkg/crypto/spake2"
	"github.com/backkem/senselock/pkg/lock"
	"github.com/backkem/senselock/pkg/message"
	"github.com/backkem/senselock/pkg/securechannel"
	"github.com/backkem/senselock/pkg/session"
	"github.com/google/uuid"
)

// pairing is the lock side of an unfinished pairing.
type pairing struct {
	spake   *spake2.SPAKE2
	claimed bool
}

// reply is the outcome of one request: a payload, or an error code.
type reply struct {
	payload message.Value
	code    int64
}

func respond(v message.Value) reply { return reply{payload: v} }

func fail(code int64) reply { return reply{code: code} }

// nested wraps a data command result the way the lock does.
func nested(v message.Value) reply {
	return respond(message.MapValue(message.NewMap().Set(message.KeyResponse, v)))
}

// dispatch handles one decoded request and returns the encoded response,
// or nil when no response is sent.
func (d *Device) dispatch(raw []byte) []byte {
	env, err := message.DecodeEnvelope(raw)
	if err != nil {
		if d.log != nil {
			d.log.Warnf("bad request: %v", err)
		}
		return nil
	}
	op := lock.Opcode{Class: env.Class, Type: env.Type}

	d.mu.Lock()
	d.requests[op]++
	code := d.failNext
	d.failNext = 0
	d.mu.Unlock()

	if d.log != nil {
		d.log.Debugf("request %d/%d", op.Class, op.Type)
	}

	var r reply
	if code != 0 {
		r = fail(code)
	} else {
		r = d.handle(op, env)
	}

	resp := message.NewResponse(env.Class, env.Type, r.payload)
	if r.code != 0 {
		resp = message.NewErrorResponse(env.Class, env.Type, r.code)
	}
	out, err := resp.Encode()
	if err != nil {
		if d.log != nil {
			d.log.Errorf("encode response: %v", err)
		}
		return nil
	}
	return out
}

func (d *Device) handle(op lock.Opcode, env *message.Envelope) reply {
	switch op {
	case lock.OpStartPairing:
		return d.startPairing()
	case lock.OpSendTimestamp:
		return d.receiveTimestamp(env)
	case lock.OpSendCAT, lock.OpSendNewCAT:
		return d.receiveCAT(env, op == lock.OpSendNewCAT)
	}

	d.mu.Lock()
	authorized, newDevice := d.authorized, d.newDevice
	d.mu.Unlock()
	if !authorized {
		return fail(CodeUnauthorized)
	}

	switch op {
	case lock.OpClaimOwnership:
		if !newDevice {
			return fail(CodeUnauthorized)
		}
		return d.claimOwnership()
	case lock.OpCompletePairing:
		if !newDevice {
			return fail(CodeUnauthorized)
		}
		return d.completePairing(env)
	}

	sub, _ := intArg(env, 0)
	switch {
	case op == lock.OpRead && lock.Subsystem(sub) == lock.SubsystemAccessCodes:
		return d.nextAccessCode()
	case op == lock.OpRead:
		return d.readProperty(env, lock.Subsystem(sub))
	case op == lock.OpSet:
		return d.setProperty(env, lock.Subsystem(sub))
	case op == lock.OpWrite && lock.Subsystem(sub) == lock.SubsystemAccessCodes:
		return d.writeAccessCode(env)
	case op == lock.OpWrite && lock.Subsystem(sub) == lock.SubsystemLog:
		return d.readLog(env)
	case op == lock.OpDelete && lock.Subsystem(sub) == lock.SubsystemAccessCodes:
		return d.deleteAccessCode(env)
	default:
		return fail(CodeUnsupported)
	}
}

func (d *Device) startPairing() reply {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.paired || d.state != stateInsecure {
		return fail(CodeUnauthorized)
	}

	sp := spake2.New(spake2.RoleResponder, []byte(strconv.Itoa(d.config.PIN)))
	sp.SetRandom(d.config.Rand)
	commitment, err := sp.Commitment()
	if err != nil {
		return fail(CodeInvalid)
	}
	d.pairing = &pairing{spake: sp}

	return respond(message.MapValue(message.NewMap().
		Set(0, message.Int(d.config.PairingNonce)).
		Set(1, message.Bytes(commitment))))
}

func (d *Device) receiveTimestamp(env *message.Envelope) reply {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pairing == nil {
		return fail(CodeUnauthorized)
	}
	n, _ := intArg(env, 0)
	commitment, _ := bytesArg(env, 1)
	sealed, _ := bytesArg(env, 2)
	if n != d.config.PairingNonce {
		return fail(CodeInvalid)
	}

	shared, err := d.pairing.spake.ComputeKey(commitment)
	if err != nil {
		return fail(CodeInvalid)
	}
	channel, err := securechannel.NewPairingChannel(shared, session.RoleLock)
	if err != nil {
		return fail(CodeInvalid)
	}
	ts, err := channel.OpenTimestamp(sealed)
	if err != nil {
		if d.log != nil {
			d.log.Warn("pairing timestamp failed authentication")
		}
		d.pairing = nil
		return fail(CodeUnauthorized)
	}
	d.pairedAt = ts

	sat, err := d.sat.Encode()
	if err != nil {
		return fail(CodeInvalid)
	}
	tokens, err := channel.SealTokens(securechannel.Tokens{CAT: d.temporaryCAT, SAT: sat})
	if err != nil {
		return fail(CodeInvalid)
	}
	return respond(message.MapValue(message.NewMap().Set(0, message.Bytes(tokens))))
}

func (d *Device) receiveCAT(env *message.Envelope, newDevice bool) reply {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != stateSecure {
		return fail(CodeUnauthorized)
	}
	cat, _ := bytesArg(env, 2)

	var accepted bool
	if newDevice {
		accepted = d.pairing != nil && bytes.Equal(cat, d.temporaryCAT)
	} else {
		accepted = d.paired && bytes.Equal(cat, d.cat)
	}
	if !accepted {
		return fail(CodeUnauthorized)
	}

	d.authorized = true
	d.newDevice = newDevice
	now := d.config.Now().Add(d.config.ClockOffset).Unix()
	return respond(message.MapValue(message.NewMap().Set(1, message.Int(now))))
}

func (d *Device) claimOwnership() reply {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pairing == nil {
		return fail(CodeUnauthorized)
	}
	d.pairing.claimed = true
	return respond(message.MapValue(message.NewMap().Set(0, message.Bytes(d.cat))))
}

func (d *Device) completePairing(env *message.Envelope) reply {
	d.mu.Lock()
	defer d.mu.Unlock()

	cat, _ := bytesArg(env, 0)
	if d.pairing == nil || !d.pairing.claimed || !bytes.Equal(cat, d.cat) {
		return fail(CodeInvalid)
	}
	d.pairing = nil
	d.paired = true

	if d.log != nil {
		d.log.Info("paired")
	}
	return respond(message.MapValue(message.NewMap()))
}

func (d *Device) readProperty(env *message.Envelope, sub lock.Subsystem) reply {
	property, _ := intArg(env, 1)

	props := d.properties(sub)
	if props == nil {
		return fail(CodeUnsupported)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	v, found := props[property]
	if !found {
		return fail(CodeNotFound)
	}
	return nested(v)
}

// setProperty stores the value and mirrors it into the data record under
// the property number.
func (d *Device) setProperty(env *message.Envelope, sub lock.Subsystem) reply {
	property, _ := intArg(env, 1)
	arg, found := env.Arg(2)
	m, isMap := arg.Map()
	if !found || !isMap {
		return fail(CodeInvalid)
	}
	value, found := m.Get(0)
	if !found {
		return fail(CodeInvalid)
	}

	props := d.properties(sub)
	if props == nil {
		return fail(CodeUnsupported)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	props[property] = value
	d.data.Set(property, value)
	if user, found := m.Bytes(1); found {
		d.lastUser = user
	}
	return nested(message.MapValue(d.data))
}

func (d *Device) properties(sub lock.Subsystem) map[int64]message.Value {
	switch sub {
	case lock.SubsystemInfo:
		return d.config.Info
	case lock.SubsystemConfig:
		return d.config.Settings
	default:
		return nil
	}
}

// nextAccessCode returns the record under the listing cursor. The cursor
// rewinds after the last record.
func (d *Device) nextAccessCode() reply {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.accessCodes) == 0 {
		return fail(CodeNotFound)
	}
	if d.codeCursor >= len(d.accessCodes) {
		d.codeCursor = 0
	}

	rec, err := d.accessCodes[d.codeCursor].Map()
	if err != nil {
		return fail(CodeInvalid)
	}
	d.codeCursor++
	more := d.codeCursor < len(d.accessCodes)
	if !more {
		d.codeCursor = 0
	}
	rec.Set(10, flag(more))
	return nested(message.MapValue(rec))
}

func (d *Device) writeAccessCode(env *message.Envelope) reply {
	action, _ := intArg(env, 1)
	if action == lock.ListCheck {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.codeCursor = 0
		return nested(flag(len(d.accessCodes) > 0))
	}

	arg, _ := env.Arg(2)
	m, isMap := arg.Map()
	if !isMap {
		return fail(CodeInvalid)
	}
	ac, err := lock.ParseAccessCode(m)
	if err != nil || ac.ID == uuid.Nil || ac.Code <= 0 {
		return fail(CodeInvalid)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch action {
	case lock.AccessCodeCreate:
		for _, cur := range d.accessCodes {
			if cur.Code == ac.Code || cur.ID == ac.ID {
				return fail(CodeInvalid)
			}
		}
		d.accessCodes = append(d.accessCodes, ac)
	case lock.AccessCodeUpdate:
		i := d.indexByID(ac.ID)
		if i < 0 {
			return fail(CodeNotFound)
		}
		d.accessCodes[i] = ac
	default:
		return fail(CodeUnsupported)
	}
	return nested(message.Int(0))
}

func (d *Device) deleteAccessCode(env *message.Envelope) reply {
	arg, _ := env.Arg(2)
	m, isMap := arg.Map()
	if !isMap {
		return fail(CodeInvalid)
	}
	code, _ := m.Int(2)

	d.mu.Lock()
	defer d.mu.Unlock()
	for i, cur := range d.accessCodes {
		if cur.Code == code {
			d.accessCodes = append(d.accessCodes[:i], d.accessCodes[i+1:]...)
			d.codeCursor = 0
			return nested(message.Int(0))
		}
	}
	return fail(CodeNotFound)
}

// readLog answers a log check, or returns the next batch of entries.
func (d *Device) readLog(env *message.Envelope) reply {
	group, _ := intArg(env, 1)

	d.mu.Lock()
	defer d.mu.Unlock()

	if group == lock.ListCheck {
		d.logCursor = 0
		return nested(flag(len(d.logEntries) > 0))
	}
	if d.logCursor >= len(d.logEntries) {
		return fail(CodeNotFound)
	}

	end := min(d.logCursor+d.config.LogBatchSize, len(d.logEntries))
	batch := d.logEntries[d.logCursor:end]
	d.logCursor = end
	more := end < len(d.logEntries)

	var m *message.Map
	if d.config.LogBatchSize == 1 {
		m = batch[0].Map()
	} else {
		m = message.NewMap()
		for i := range lock.LogBatchKeys {
			key := lock.LogBatchKeys[i]
			if i < len(batch) {
				m.Set(key, message.MapValue(batch[i].Map()))
			} else {
				m.Set(key, message.Null())
			}
		}
	}
	m.Set(4, flag(more))
	return nested(message.MapValue(m))
}

func (d *Device) indexByID(id uuid.UUID) int {
	for i, cur := range d.accessCodes {
		if cur.ID == id {
			return i
		}
	}
	return -1
}

func intArg(env *message.Envelope, i int64) (int64, bool) {
	v, found := env.Arg(i)
	if !found {
		return 0, false
	}
	return v.Int()
}

func bytesArg(env *message.Envelope, i int64) ([]byte, bool) {
	v, found := env.Arg(i)
	if !found {
		return nil, false
	}
	return v.Bytes()
}

func flag(b bool) message.Value {
	if b {
		return message.Int(1)
	}
	return message.Int(0)
}

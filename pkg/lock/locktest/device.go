// Package locktest provides a simulated lock for testing clients without
// hardware.
//
// A Device serves the lock side of a transport.Pipe: connection requests,
// the challenge exchange, encrypted sessions, pairing and the data
// commands. Stored access codes and log entries live in memory.
//
//	dev, _ := locktest.New(locktest.Config{Paired: true})
//	defer dev.Close()
//	l, _ := lock.New(lock.Config{Peripheral: dev.Peripheral()})
//	l.Authorize(ctx, dev.Credentials())
package locktest

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/backkem/senselock/pkg/lock"
	"github.com/backkem/senselock/pkg/message"
	"github.com/backkem/senselock/pkg/securechannel"
	"github.com/backkem/senselock/pkg/session"
	"github.com/backkem/senselock/pkg/transport"
	"github.com/pion/logging"
)

// controlOffset is the counter offset of connection requests. Their headers
// carry a counter nibble of 8 or more.
const controlOffset = 8

// readBufferSize bounds one packet read.
const readBufferSize = 512

// Device is a simulated lock.
type Device struct {
	config Config
	pipe   *transport.Pipe
	conn   net.Conn
	log    logging.LeveledLogger

	sat          *securechannel.SAT
	cat          []byte
	temporaryCAT []byte

	// Owned by the serve loop.
	counter     transport.Counter
	reassembler transport.Reassembler

	mu          sync.Mutex
	state       connState
	clientSalt  []byte
	serverSalt  []byte
	sessions    *session.Pair
	pairing     *pairing
	paired      bool
	authorized  bool
	newDevice   bool
	accessCodes []lock.AccessCode
	codeCursor  int
	logEntries  []lock.LogEntry
	logCursor   int
	data        *message.Map
	lastUser    []byte
	pairedAt    int64
	requests    map[lock.Opcode]int
	failNext    int64
	silent      bool
	tamperTag   bool

	done chan struct{}
}

// connState tracks the handshake of the current connection.
type connState int

const (
	stateIdle connState = iota
	stateInsecure
	stateChallenge
	stateSecure
)

// New starts a simulated lock on the configured pipe. Close stops it.
func New(config Config) (*Device, error) {
	config.applyDefaults()

	sat, err := securechannel.ParseSAT(config.SAT)
	if err != nil {
		return nil, err
	}
	cat, err := hex.DecodeString(config.CAT)
	if err != nil {
		return nil, fmt.Errorf("locktest: CAT: %w", err)
	}
	temporaryCAT, err := hex.DecodeString(config.TemporaryCAT)
	if err != nil {
		return nil, fmt.Errorf("locktest: temporary CAT: %w", err)
	}

	d := &Device{
		config:       config,
		pipe:         config.Pipe,
		conn:         config.Pipe.DeviceConn(),
		sat:          sat,
		cat:          cat,
		temporaryCAT: temporaryCAT,
		paired:       config.Paired,
		accessCodes:  append([]lock.AccessCode(nil), config.AccessCodes...),
		logEntries:   append([]lock.LogEntry(nil), config.LogEntries...),
		data:         config.Data.Map(),
		requests:     make(map[lock.Opcode]int),
		done:         make(chan struct{}),
	}
	if config.LoggerFactory != nil {
		d.log = config.LoggerFactory.NewLogger("locktest")
	}

	go d.serve()
	return d, nil
}

// Peripheral returns the client side of the device's link.
func (d *Device) Peripheral() transport.Peripheral {
	return d.pipe.Peripheral()
}

// Pipe returns the device's link.
func (d *Device) Pipe() *transport.Pipe {
	return d.pipe
}

// Credentials returns the owner tokens.
func (d *Device) Credentials() lock.Credentials {
	return d.config.Credentials()
}

// Close closes the link and waits for the device to stop.
func (d *Device) Close() error {
	err := d.pipe.Close()
	<-d.done
	return err
}

// Paired reports whether the device has an owner.
func (d *Device) Paired() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paired
}

// PairedAt returns the timestamp received while pairing.
func (d *Device) PairedAt() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pairedAt
}

// Count returns how many requests with op the device has received.
func (d *Device) Count(op lock.Opcode) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requests[op]
}

// AccessCodes returns the stored access codes.
func (d *Device) AccessCodes() []lock.AccessCode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]lock.AccessCode(nil), d.accessCodes...)
}

// LastUser returns the user identifier of the last SetConfig or SetState.
func (d *Device) LastUser() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastUser
}

// FailNext answers the next request with an error code.
func (d *Device) FailNext(code int64) {
	d.mu.Lock()
	d.failNext = code
	d.mu.Unlock()
}

// SetSilent makes the device ignore data messages.
func (d *Device) SetSilent(silent bool) {
	d.mu.Lock()
	d.silent = silent
	d.mu.Unlock()
}

// SetTamperTag makes the device answer challenges with a corrupted tag.
func (d *Device) SetTamperTag(tamper bool) {
	d.mu.Lock()
	d.tamperTag = tamper
	d.mu.Unlock()
}

// serve reads packets written by the client until the link closes.
func (d *Device) serve() {
	defer close(d.done)

	buf := make([]byte, readBufferSize)
	for {
		n, err := d.conn.Read(buf)
		if err != nil {
			if !errors.Is(err, io.EOF) && d.log != nil {
				d.log.Debugf("read: %v", err)
			}
			return
		}
		if n == 0 {
			continue
		}
		packet := append([]byte(nil), buf[:n]...)

		if packet[0]>>4 >= controlOffset {
			d.handleControl(packet[1:])
			continue
		}

		ev, err := d.reassembler.Push(packet)
		if err != nil {
			if d.log != nil {
				d.log.Warnf("dropping packet %x: %v", packet, err)
			}
			continue
		}
		if ev != nil && ev.Kind == transport.EventData {
			d.handleData(ev.Data)
		}
	}
}

// handleControl answers a connection request and starts a new connection.
func (d *Device) handleControl(req []byte) {
	secure, clientSalt, err := securechannel.ParseConnectionRequest(req)
	if err != nil {
		if d.log != nil {
			d.log.Warnf("bad connection request %x: %v", req, err)
		}
		return
	}

	d.reassembler.Reset()
	d.counter.Reset()

	d.mu.Lock()
	d.sessions = nil
	d.authorized = false
	d.newDevice = false
	d.clientSalt = clientSalt
	d.serverSalt = nil
	d.state = stateInsecure
	d.mu.Unlock()

	resp := securechannel.InsecureConnectionResponse()
	if secure {
		serverSalt := make([]byte, securechannel.SaltSize)
		if _, err := io.ReadFull(d.config.Rand, serverSalt); err != nil {
			return
		}
		if resp, err = securechannel.ConnectionResponse(serverSalt); err != nil {
			return
		}
		d.mu.Lock()
		d.serverSalt = serverSalt
		d.state = stateChallenge
		d.mu.Unlock()
	}

	if d.log != nil {
		d.log.Debugf("connection request, secure=%t", secure)
	}
	d.writeInternal(resp)
}

// handleData processes one reassembled message.
func (d *Device) handleData(msg []byte) {
	d.mu.Lock()
	state := d.state
	sessions := d.sessions
	silent := d.silent
	d.mu.Unlock()

	if silent {
		return
	}

	switch state {
	case stateChallenge:
		d.answerChallenge(msg)
	case stateSecure:
		plain, err := sessions.Open(msg)
		if err != nil {
			if d.log != nil {
				d.log.Warnf("decrypt request: %v", err)
			}
			return
		}
		resp := d.dispatch(plain)
		if resp == nil {
			return
		}
		sealed, err := sessions.Seal(resp)
		if err != nil {
			return
		}
		d.write(sealed)
	case stateInsecure:
		if resp := d.dispatch(msg); resp != nil {
			d.write(resp)
		}
	default:
		if d.log != nil {
			d.log.Warn("data before connection request")
		}
	}
}

// answerChallenge replies to the client's challenge and opens the session.
func (d *Device) answerChallenge(msg []byte) {
	d.mu.Lock()
	clientSalt, serverSalt, tamper := d.clientSalt, d.serverSalt, d.tamperTag
	d.mu.Unlock()

	tag, err := securechannel.AnswerChallenge(msg, d.sat, clientSalt, serverSalt)
	if err != nil {
		if d.log != nil {
			d.log.Warnf("rejecting challenge: %v", err)
		}
		return
	}
	keys, err := securechannel.DeriveSessionKeys(clientSalt, serverSalt, d.sat.Secret)
	if err != nil {
		return
	}
	sessions, err := keys.NewSessions(session.RoleLock)
	if err != nil {
		return
	}

	if tamper {
		tag[0] ^= 0xff
	}

	d.mu.Lock()
	d.sessions = sessions
	d.state = stateSecure
	d.mu.Unlock()

	d.write(tag)
}

// write sends a data message as notifications.
func (d *Device) write(msg []byte) {
	for _, frag := range transport.Split(msg, false) {
		header, err := d.counter.Header(frag.Type, 0)
		if err != nil {
			return
		}
		if _, err := d.conn.Write(append([]byte{header}, frag.Payload...)); err != nil {
			if d.log != nil {
				d.log.Debugf("write: %v", err)
			}
			return
		}
	}
}

// writeInternal sends a connection-control reply.
func (d *Device) writeInternal(payload []byte) {
	header, err := d.counter.Header(transport.PacketInternal, 0)
	if err != nil {
		return
	}
	if _, err := d.conn.Write(append([]byte{header}, payload...)); err != nil && d.log != nil {
		d.log.Debugf("write: %v", err)
	}
}

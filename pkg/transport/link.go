package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/pion/logging"
)

// DefaultEventBuffer is the number of undelivered events a Link queues per
// kind before dropping new ones.
const DefaultEventBuffer = 16

// LinkConfig configures a Link.
type LinkConfig struct {
	// Peripheral is the lock's BLE device. Required.
	Peripheral Peripheral

	// EventBuffer overrides DefaultEventBuffer.
	EventBuffer int

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Link frames messages onto the lock's TX characteristic and reassembles
// notifications from its RX characteristic.
//
// The GATT connection, service and characteristics are resolved lazily on
// first use and forgotten when the peripheral disconnects, together with
// the subscription and the packet counter.
type Link struct {
	periph Peripheral

	mu         sync.Mutex
	service    Service
	tx         Characteristic
	rx         Characteristic
	subscribed bool

	counter Counter

	rxMu  sync.Mutex
	reasm Reassembler

	internal chan []byte
	data     chan []byte

	log logging.LeveledLogger
}

// NewLink creates a Link over the given peripheral.
func NewLink(config LinkConfig) (*Link, error) {
	if config.Peripheral == nil {
		return nil, ErrNotConnected
	}

	buffer := config.EventBuffer
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}

	l := &Link{
		periph:   config.Peripheral,
		internal: make(chan []byte, buffer),
		data:     make(chan []byte, buffer),
	}

	if config.LoggerFactory != nil {
		l.log = config.LoggerFactory.NewLogger("transport")
	}

	config.Peripheral.OnDisconnect(l.handleDisconnect)

	return l, nil
}

// Address returns the peripheral address.
func (l *Link) Address() string {
	return l.periph.Address()
}

// Connected reports whether the GATT connection is up.
func (l *Link) Connected() bool {
	return l.periph.IsConnected()
}

// Subscribed reports whether RX notifications are active.
func (l *Link) Subscribed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.subscribed
}

// Subscribe starts RX notifications. It returns false if already
// subscribed.
func (l *Link) Subscribe(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.subscribed {
		return false, nil
	}

	rx, err := l.characteristicLocked(ctx, RXCharacteristicUUID)
	if err != nil {
		return false, err
	}

	l.rxMu.Lock()
	l.reasm.Reset()
	l.rxMu.Unlock()

	if err := rx.Subscribe(l.handleNotification); err != nil {
		return false, fmt.Errorf("transport: subscribe: %w", err)
	}

	l.subscribed = true
	if l.log != nil {
		l.log.Debugf("subscribed to notifications from %s", l.periph.Address())
	}
	return true, nil
}

// Unsubscribe stops RX notifications. It returns false if not subscribed.
func (l *Link) Unsubscribe(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.subscribed {
		return false, nil
	}

	rx, err := l.characteristicLocked(ctx, RXCharacteristicUUID)
	if err != nil {
		return false, err
	}

	if err := rx.Unsubscribe(); err != nil {
		return false, fmt.Errorf("transport: unsubscribe: %w", err)
	}

	l.subscribed = false
	return true, nil
}

// Disconnect unsubscribes and drops the GATT connection.
func (l *Link) Disconnect(ctx context.Context) error {
	if !l.periph.IsConnected() {
		return ErrNotConnected
	}

	if _, err := l.Unsubscribe(ctx); err != nil {
		return err
	}

	return l.periph.Disconnect()
}

// ResetCounter returns the packet counter to zero.
func (l *Link) ResetCounter() {
	l.counter.Reset()
}

// Counter returns the value the next packet header will carry.
func (l *Link) Counter() uint8 {
	return l.counter.Value()
}

// Drain discards queued events. Callers drain before sending a request so
// a late reply to an earlier request is not taken as the answer.
func (l *Link) Drain() {
	for {
		select {
		case <-l.internal:
		case <-l.data:
		default:
			return
		}
	}
}

// SendControl writes a connection-control packet. Control packets are
// never fragmented and carry the counter with the control offset.
func (l *Link) SendControl(ctx context.Context, payload []byte) error {
	header, err := l.counter.Header(0, controlOffset)
	if err != nil {
		return err
	}
	return l.write(ctx, append([]byte{header}, payload...))
}

// Send writes msg, fragmenting it as needed.
func (l *Link) Send(ctx context.Context, msg []byte, forceMultipart bool) error {
	for _, frag := range Split(msg, forceMultipart) {
		header, err := l.counter.Header(frag.Type, 0)
		if err != nil {
			return err
		}
		if err := l.write(ctx, append([]byte{header}, frag.Payload...)); err != nil {
			return err
		}
	}
	return nil
}

// ReceiveInternal waits for the next connection-control reply.
func (l *Link) ReceiveInternal(ctx context.Context) ([]byte, error) {
	return receive(ctx, l.internal)
}

// ReceiveData waits for the next complete data message.
func (l *Link) ReceiveData(ctx context.Context) ([]byte, error) {
	return receive(ctx, l.data)
}

func receive(ctx context.Context, ch <-chan []byte) ([]byte, error) {
	select {
	case b := <-ch:
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Link) write(ctx context.Context, packet []byte) error {
	l.mu.Lock()
	tx, err := l.characteristicLocked(ctx, TXCharacteristicUUID)
	l.mu.Unlock()
	if err != nil {
		return err
	}

	if l.log != nil {
		l.log.Tracef("tx %x", packet)
	}

	if err := tx.WriteWithResponse(ctx, packet); err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	return nil
}

// characteristicLocked resolves a characteristic, connecting and looking
// up the service first if needed. Caller holds l.mu.
func (l *Link) characteristicLocked(ctx context.Context, uuid string) (Characteristic, error) {
	switch uuid {
	case TXCharacteristicUUID:
		if l.tx != nil {
			return l.tx, nil
		}
	case RXCharacteristicUUID:
		if l.rx != nil {
			return l.rx, nil
		}
	}

	if l.service == nil {
		if !l.periph.IsConnected() {
			if l.log != nil {
				l.log.Debugf("connecting to %s", l.periph.Address())
			}
			if err := l.periph.Connect(ctx); err != nil {
				return nil, fmt.Errorf("transport: connect: %w", err)
			}
		}

		svc, err := l.periph.Service(ctx, ServiceUUID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrServiceNotFound, err)
		}
		l.service = svc
	}

	char, err := l.service.Characteristic(ctx, uuid)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCharacteristicNotFound, uuid, err)
	}

	switch uuid {
	case TXCharacteristicUUID:
		l.tx = char
	case RXCharacteristicUUID:
		l.rx = char
	}
	return char, nil
}

func (l *Link) handleNotification(packet []byte) {
	if l.log != nil {
		l.log.Tracef("rx %x", packet)
	}

	l.rxMu.Lock()
	ev, err := l.reasm.Push(packet)
	l.rxMu.Unlock()

	if err != nil {
		if l.log != nil {
			l.log.Warnf("unhandled packet %x: %v", packet, err)
		}
		return
	}
	if ev == nil {
		return
	}

	ch := l.data
	if ev.Kind == EventInternal {
		ch = l.internal
	}

	select {
	case ch <- ev.Data:
	default:
		if l.log != nil {
			l.log.Warnf("dropping %s event, queue full", ev.Kind)
		}
	}
}

func (l *Link) handleDisconnect() {
	l.mu.Lock()
	l.service = nil
	l.tx = nil
	l.rx = nil
	l.subscribed = false
	l.mu.Unlock()

	l.rxMu.Lock()
	l.reasm.Reset()
	l.rxMu.Unlock()

	l.counter.Reset()

	if l.log != nil {
		l.log.Debugf("%s disconnected", l.periph.Address())
	}
}

package transport

import (
	"context"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/pion/transport/v3/test"
)

// Pipe endpoint identifiers on the underlying bridge.
const (
	centralEndpoint    = 0
	peripheralEndpoint = 1
)

// maxPacketSize bounds a single read from the bridge.
const maxPacketSize = 512

// NetworkCondition configures radio behavior simulation.
// Use this to test protocol behavior under adverse link conditions.
type NetworkCondition struct {
	// DropRate is the probability of dropping a packet (0.0 - 1.0).
	DropRate float64

	// DelayMin is the minimum delay to add to each packet.
	DelayMin time.Duration

	// DelayMax is the maximum delay to add to each packet.
	// Actual delay is uniformly distributed between DelayMin and DelayMax.
	DelayMax time.Duration
}

// PipeConfig configures a Pipe.
type PipeConfig struct {
	// Address is the simulated device address.
	// Default: "000000000000"
	Address string

	// AutoProcess enables automatic packet delivery in a background goroutine.
	// Default: true
	AutoProcess bool

	// ProcessInterval is how often the auto-processor checks for packets.
	// Default: 1ms
	ProcessInterval time.Duration
}

// DefaultPipeConfig returns the default pipe configuration.
func DefaultPipeConfig() PipeConfig {
	return PipeConfig{
		Address:         "000000000000",
		AutoProcess:     true,
		ProcessInterval: 1 * time.Millisecond,
	}
}

// Pipe is an in-memory BLE link between a central and a lock.
// It wraps pion's test.Bridge: writes to the TX characteristic travel from
// the central endpoint to the device endpoint, and packets the device
// writes come back as RX notifications.
//
// By default, Pipe automatically delivers packets in a background goroutine.
// Use SetAutoProcess(false) or NewPipeWithConfig for manual control.
type Pipe struct {
	bridge *test.Bridge
	periph *PipePeripheral

	mu              sync.RWMutex
	condition       NetworkCondition
	closed          bool
	rng             *rand.Rand
	autoProcess     bool
	processInterval time.Duration
	stopCh          chan struct{}
	wg              sync.WaitGroup
}

// NewPipe creates a new pipe with auto-processing enabled.
func NewPipe() *Pipe {
	return NewPipeWithConfig(DefaultPipeConfig())
}

// NewPipeWithConfig creates a new pipe with the given configuration.
func NewPipeWithConfig(config PipeConfig) *Pipe {
	p := &Pipe{
		bridge:          test.NewBridge(),
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
		autoProcess:     config.AutoProcess,
		processInterval: config.ProcessInterval,
		stopCh:          make(chan struct{}),
	}

	if config.ProcessInterval == 0 {
		p.processInterval = 1 * time.Millisecond
	}

	address := config.Address
	if address == "" {
		address = DefaultPipeConfig().Address
	}
	p.periph = &PipePeripheral{pipe: p, address: address}

	if p.autoProcess {
		p.startAutoProcess()
	}

	return p
}

// startAutoProcess starts the background packet delivery goroutine.
func (p *Pipe) startAutoProcess() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.processInterval)
		defer ticker.Stop()

		for {
			select {
			case <-p.stopCh:
				return
			case <-ticker.C:
				p.bridge.Tick()
			}
		}
	}()
}

// SetAutoProcess enables or disables automatic packet delivery.
// When disabled, you must call Tick() or Process() manually.
func (p *Pipe) SetAutoProcess(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.autoProcess == enabled {
		return
	}

	p.autoProcess = enabled

	if enabled {
		p.stopCh = make(chan struct{})
		p.startAutoProcess()
	} else {
		close(p.stopCh)
		p.wg.Wait()
	}
}

// AutoProcess returns whether auto-processing is enabled.
func (p *Pipe) AutoProcess() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.autoProcess
}

// SetCondition configures link condition simulation.
// The conditions apply to packets in both directions.
func (p *Pipe) SetCondition(cond NetworkCondition) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.condition = cond
}

// Condition returns the current link condition configuration.
func (p *Pipe) Condition() NetworkCondition {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.condition
}

// Peripheral returns the central's view of the device.
func (p *Pipe) Peripheral() *PipePeripheral {
	return p.periph
}

// DeviceConn returns the device endpoint. Each Read yields one packet the
// central wrote to TX; each Write is delivered as one RX notification.
func (p *Pipe) DeviceConn() net.Conn {
	return &conditionedConn{Conn: p.bridge.GetConn1(), pipe: p}
}

// DropNextNotifications discards the next n packets written by the device.
func (p *Pipe) DropNextNotifications(n int) {
	p.bridge.DropNextNWrites(peripheralEndpoint, n)
}

// DropNextWrites discards the next n packets written by the central.
func (p *Pipe) DropNextWrites(n int) {
	p.bridge.DropNextNWrites(centralEndpoint, n)
}

// Pending returns the number of undelivered packets written by the central
// and by the device.
func (p *Pipe) Pending() (fromCentral, fromDevice int) {
	return p.bridge.Len(centralEndpoint), p.bridge.Len(peripheralEndpoint)
}

// Tick delivers one packet in each direction (if available).
// Returns the number of packets delivered (0, 1, or 2).
func (p *Pipe) Tick() int {
	return p.bridge.Tick()
}

// Process delivers all queued packets that have a waiting reader.
// Returns the number of packets delivered.
func (p *Pipe) Process() int {
	count := 0
	for {
		n := p.Tick()
		if n == 0 {
			break
		}
		count += n
	}
	return count
}

// Close closes both endpoints and stops auto-processing. Undelivered
// packets are discarded and blocked readers return io.EOF.
func (p *Pipe) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	var firstErr error
	for _, c := range []net.Conn{p.bridge.GetConn0(), p.bridge.GetConn1()} {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	// The bridge closes a reader only once its queue is empty.
	p.bridge.Drop(centralEndpoint, 0, p.bridge.Len(centralEndpoint))
	p.bridge.Drop(peripheralEndpoint, 0, p.bridge.Len(peripheralEndpoint))
	p.bridge.Tick()

	p.mu.Lock()
	if p.autoProcess {
		close(p.stopCh)
	}
	p.mu.Unlock()
	p.wg.Wait()

	return firstErr
}

func (p *Pipe) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// send applies the link condition and writes one packet.
func (p *Pipe) send(conn net.Conn, b []byte) error {
	drop, delay := p.roll()
	if drop {
		return nil
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	_, err := conn.Write(b)
	return err
}

// roll decides the fate of one packet under the current condition.
func (p *Pipe) roll() (drop bool, delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cond := p.condition
	if cond.DropRate > 0 && p.rng.Float64() < cond.DropRate {
		return true, 0
	}

	if cond.DelayMax > 0 {
		delay = cond.DelayMin
		if cond.DelayMax > cond.DelayMin {
			delay += time.Duration(p.rng.Int63n(int64(cond.DelayMax - cond.DelayMin)))
		}
	}
	return false, delay
}

// conditionedConn applies the pipe's link condition to device writes.
type conditionedConn struct {
	net.Conn
	pipe *Pipe
}

func (c *conditionedConn) Write(b []byte) (int, error) {
	if err := c.pipe.send(c.Conn, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

// PipePeripheral is the central's view of a Pipe. It implements
// Peripheral with the lock's single service and its TX and RX
// characteristics.
type PipePeripheral struct {
	pipe    *Pipe
	address string

	mu           sync.Mutex
	connected    bool
	handler      NotificationHandler
	onDisconnect []func()
	readOnce     sync.Once
}

var _ Peripheral = (*PipePeripheral)(nil)

// Address returns the simulated device address.
func (pp *PipePeripheral) Address() string {
	return pp.address
}

// Connect marks the link connected and starts delivering notifications.
func (pp *PipePeripheral) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if pp.pipe.isClosed() {
		return ErrClosed
	}

	pp.mu.Lock()
	pp.connected = true
	pp.mu.Unlock()

	pp.readOnce.Do(func() {
		go pp.readLoop()
	})
	return nil
}

// Disconnect drops the link and runs the disconnect callbacks.
func (pp *PipePeripheral) Disconnect() error {
	pp.mu.Lock()
	if !pp.connected {
		pp.mu.Unlock()
		return ErrNotConnected
	}
	pp.connected = false
	pp.handler = nil
	callbacks := append([]func(){}, pp.onDisconnect...)
	pp.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
	return nil
}

// IsConnected reports whether the link is up.
func (pp *PipePeripheral) IsConnected() bool {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return pp.connected
}

// OnDisconnect registers fn to run when the link drops.
func (pp *PipePeripheral) OnDisconnect(fn func()) {
	pp.mu.Lock()
	pp.onDisconnect = append(pp.onDisconnect, fn)
	pp.mu.Unlock()
}

// Service returns the lock service.
func (pp *PipePeripheral) Service(ctx context.Context, uuid string) (Service, error) {
	if !pp.IsConnected() {
		return nil, ErrNotConnected
	}
	if uuid != ServiceUUID {
		return nil, ErrServiceNotFound
	}
	return &pipeService{periph: pp}, nil
}

// readLoop delivers device packets to the subscribed handler. Packets that
// arrive while nobody is subscribed are discarded.
func (pp *PipePeripheral) readLoop() {
	conn := pp.pipe.bridge.GetConn0()
	buf := make([]byte, maxPacketSize)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}

		pp.mu.Lock()
		handler := pp.handler
		if !pp.connected {
			handler = nil
		}
		pp.mu.Unlock()

		if handler != nil {
			handler(append([]byte{}, buf[:n]...))
		}
	}
}

type pipeService struct {
	periph *PipePeripheral
}

func (s *pipeService) UUID() string { return ServiceUUID }

func (s *pipeService) Characteristic(ctx context.Context, uuid string) (Characteristic, error) {
	switch uuid {
	case TXCharacteristicUUID, RXCharacteristicUUID:
		return &pipeCharacteristic{periph: s.periph, uuid: uuid}, nil
	}
	return nil, ErrCharacteristicNotFound
}

type pipeCharacteristic struct {
	periph *PipePeripheral
	uuid   string
}

func (c *pipeCharacteristic) UUID() string { return c.uuid }

func (c *pipeCharacteristic) WriteWithResponse(ctx context.Context, data []byte) error {
	if c.uuid != TXCharacteristicUUID {
		return ErrNotSupported
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.periph.IsConnected() {
		return ErrNotConnected
	}
	if c.periph.pipe.isClosed() {
		return ErrClosed
	}
	return c.periph.pipe.send(c.periph.pipe.bridge.GetConn0(), data)
}

func (c *pipeCharacteristic) Subscribe(handler NotificationHandler) error {
	if c.uuid != RXCharacteristicUUID {
		return ErrNotSupported
	}
	if handler == nil {
		return ErrNoHandler
	}

	pp := c.periph
	pp.mu.Lock()
	defer pp.mu.Unlock()
	if !pp.connected {
		return ErrNotConnected
	}
	pp.handler = handler
	return nil
}

func (c *pipeCharacteristic) Unsubscribe() error {
	if c.uuid != RXCharacteristicUUID {
		return ErrNotSupported
	}

	pp := c.periph
	pp.mu.Lock()
	pp.handler = nil
	pp.mu.Unlock()
	return nil
}

package machine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fornellas/slogxt/log"
	"go.bug.st/serial"

	brokerMod "github.com/fwsender/fws/broker"
	"github.com/fwsender/fws/firmware"
	workerMod "github.com/fwsender/fws/worker"
)

var ErrDisconnected = errors.New("not connected")

// Config is the engine configuration surface. Zero values select defaults.
type Config struct {
	// Firmware serial receive buffer capacity, in bytes.
	RxBufferSize int
	// Status query interval.
	PollRate time.Duration
	// Window after which a connection with no received messages is surfaced
	// as stalled.
	WatchdogWindow time.Duration
	// How long Connect waits for the firmware welcome banner before falling
	// back to the conservative capability set.
	ConnectTimeout time.Duration
	BaudRate       int
}

const (
	DefaultPollRate       = 100 * time.Millisecond
	DefaultWatchdogWindow = 5 * time.Second
	DefaultConnectTimeout = 5 * time.Second
	DefaultBaudRate       = 115200
)

func (c Config) withDefaults() Config {
	if c.RxBufferSize <= 0 {
		c.RxBufferSize = firmware.DefaultRxBufferSize
	}
	if c.PollRate <= 0 {
		c.PollRate = DefaultPollRate
	}
	if c.WatchdogWindow <= 0 {
		c.WatchdogWindow = DefaultWatchdogWindow
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.BaudRate <= 0 {
		c.BaudRate = DefaultBaudRate
	}
	return c
}

// Controller brokers commands and events between the application and one
// firmware connection: it drives the reader path (framer, dialect parser,
// flow-control consumption, state machine, event fan-out) and serializes all
// writer paths through the flow-control admission queue.
//
// The flow-control state and the machine state share a single mutual
// exclusion domain (mu): the FIFO pop/admit sequence must never interleave
// with command admission.
type Controller struct {
	protocol   firmware.Protocol
	openPortFn func(context.Context, *serial.Mode) (serial.Port, error)
	config     Config

	mu            sync.Mutex
	port          serial.Port
	flow          *firmware.FlowControl
	outbound      []string
	sm            *stateMachine
	version       *firmware.Version
	caps          firmware.CapabilitySet
	lastStatus    *firmware.StatusReportMessage
	lastMessageAt time.Time
	stalled       bool
	welcomeCh     chan struct{}
	lostCh        chan error

	workerManager *workerMod.WorkerManager
	broker        *brokerMod.Broker[Event]
}

func NewController(
	protocol firmware.Protocol,
	openPortFn func(context.Context, *serial.Mode) (serial.Port, error),
	config Config,
) *Controller {
	config = config.withDefaults()
	return &Controller{
		protocol:   protocol,
		openPortFn: openPortFn,
		config:     config,
		flow:       firmware.NewFlowControl(config.RxBufferSize),
		sm:         newStateMachine(),
		caps:       protocol.Capabilities(firmware.Version{}),
		broker:     brokerMod.NewBroker[Event](),
	}
}

// Events registers a listener. Each produced event is delivered to every
// registered listener exactly once, in production order; a listener that
// stops reading never blocks the others.
func (c *Controller) Events(name string, size int) <-chan Event {
	return c.broker.Subscribe(name, size)
}

func (c *Controller) Unsubscribe(name string) {
	c.broker.Unsubscribe(name)
}

// Connect opens the transport, starts the reader, poller and watchdog
// workers, and waits up to ConnectTimeout for the firmware welcome banner to
// detect version and capabilities. An undetected version is not an error: the
// dialect's most conservative capability set stays in effect.
func (c *Controller) Connect(ctx context.Context) error {
	mode := &serial.Mode{
		BaudRate: c.config.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := c.openPortFn(ctx, mode)
	if err != nil {
		return fmt.Errorf("port open error: %w", err)
	}

	// Polling reads, so the reader worker can observe context cancellation.
	if err := port.SetReadTimeout(100 * time.Millisecond); err != nil {
		return errors.Join(
			fmt.Errorf("error setting read timeout: %w", err),
			port.Close(),
		)
	}

	c.mu.Lock()
	if c.port != nil {
		c.mu.Unlock()
		return errors.Join(errors.New("already connected"), port.Close())
	}
	c.port = port
	c.flow.Reset()
	c.outbound = nil
	c.version = nil
	c.caps = c.protocol.Capabilities(firmware.Version{})
	c.lastStatus = nil
	c.lastMessageAt = time.Now()
	c.stalled = false
	c.welcomeCh = make(chan struct{}, 1)
	c.lostCh = make(chan error, 1)

	c.forceStateLocked(StateConnecting)

	c.workerManager = workerMod.NewWorkerManager(ctx)
	c.workerManager.StartWorker("Message Receiver", c.messageReceiverWorker)
	c.workerManager.StartWorker("Status Poller", c.statusPollerWorker)
	c.workerManager.StartWorker("Watchdog", c.watchdogWorker)
	welcomeCh := c.welcomeCh
	lostCh := c.lostCh
	c.mu.Unlock()

	logger := log.MustLogger(ctx)
	select {
	case <-welcomeCh:
	case <-time.After(c.config.ConnectTimeout):
		logger.Warn(
			"No welcome banner received; using conservative capability set",
			"dialect", c.protocol.Dialect(),
		)
	case err := <-lostCh:
		// Transport died before the firmware announced itself; the receiver
		// already tore the connection down.
		return fmt.Errorf("connection lost waiting for welcome banner: %w", err)
	case <-ctx.Done():
		return errors.Join(ctx.Err(), c.Disconnect(ctx))
	}

	return nil
}

// Disconnect stops all workers, closes the transport and discards all
// flow-control and machine state. Deferred commands are dropped, never
// replayed: firmware-side execution state is unknown after a disconnect.
func (c *Controller) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.port == nil {
		c.mu.Unlock()
		return nil
	}
	workerManager := c.workerManager
	c.mu.Unlock()

	workerManager.Cancel()
	err := workerManager.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port != nil {
		err = errors.Join(err, c.port.Close())
	}
	c.teardownLocked()
	return err
}

// teardownLocked zeroes the connection state and transitions to Disconnected.
func (c *Controller) teardownLocked() {
	c.port = nil
	c.workerManager = nil
	c.flow.Reset()
	c.outbound = nil
	c.lastStatus = nil
	c.stalled = false
	c.forceStateLocked(StateDisconnected)
}

func (c *Controller) forceStateLocked(to State) {
	if from, changed := c.sm.force(to); changed {
		c.publishLocked(StateChangedEvent{From: from, To: to})
	}
}

func (c *Controller) publishLocked(event Event) {
	// Errors only mean there are no subscribers; events are fire-and-forget.
	_ = c.broker.Publish(event)
}

func (c *Controller) messageReceiverWorker(ctx context.Context) error {
	logger := log.MustLogger(ctx)

	c.mu.Lock()
	framer := firmware.NewLineFramer(c.port)
	c.mu.Unlock()

	for {
		line, err := framer.ReadLine(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			// Transport loss is fatal to the connection: reset flow control,
			// drop to Disconnected and surface it; reconnecting is the
			// application's decision.
			c.mu.Lock()
			if c.port != nil {
				closeErr := c.port.Close()
				if closeErr != nil {
					logger.Debug("Port close error", "err", closeErr)
				}
			}
			c.teardownLocked()
			c.publishLocked(ConnectionLostEvent{Err: err})
			if c.lostCh != nil {
				select {
				case c.lostCh <- err:
				default:
				}
			}
			c.mu.Unlock()
			return err
		}

		logger.Debug("Received", "line", line)
		c.handleMessage(ctx, c.protocol.ParseLine(line))
	}
}

//gocyclo:ignore
func (c *Controller) handleMessage(ctx context.Context, m firmware.Message) {
	logger := log.MustLogger(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastMessageAt = time.Now()
	c.stalled = false

	if c.protocol.ConsumesSlot(m) {
		slot, ok := c.flow.Consume()
		if !ok {
			logger.Warn("Firmware acknowledged more commands than outstanding; resynchronizing", "line", m.String())
			c.publishLocked(DiagnosticEvent{
				Text: fmt.Sprintf("flow control resynchronized: unexpected acknowledgement %#v", m.String()),
			})
		} else if errorMessage, isError := m.(*firmware.ErrorMessage); isError {
			c.publishLocked(CommandFailedEvent{
				Line:    slot.Line,
				Code:    errorMessage.Code,
				Message: errorMessage.Text,
			})
		} else {
			c.publishLocked(CommandAcknowledgedEvent{Line: slot.Line})
		}
		c.drainOutboundLocked()
	}

	switch m := m.(type) {
	case *firmware.WelcomeMessage:
		// The firmware announces itself on power up and after any reset;
		// whatever was in flight is gone on the firmware side.
		c.flow.Reset()
		c.outbound = nil
		c.detectVersionLocked(ctx, m.Raw)
	case *firmware.FeedbackMessage:
		// Some dialects (FluidNC) announce their version via feedback lines.
		if c.version == nil {
			c.detectVersionLocked(ctx, m.Raw)
		}
	case *firmware.StatusReportMessage:
		c.lastStatus = m
		c.publishLocked(StatusUpdatedEvent{Report: m})
		if from, to, changed := c.sm.apply(m); changed {
			c.publishLocked(StateChangedEvent{From: from, To: to})
		} else if _, ok := normalizeState(m.MachineState.Name); !ok {
			logger.Warn("Unrecognized machine state; holding previous state", "name", m.MachineState.Name)
		}
	case *firmware.AlarmMessage:
		c.publishLocked(AlarmRaisedEvent{Code: m.Code, Err: m.Error()})
		if from, to, changed := c.sm.apply(m); changed {
			c.publishLocked(StateChangedEvent{From: from, To: to})
		}
	case *firmware.QueueReportMessage:
		// Diagnostic cross-check only: embedded queue depth never replaces
		// the FIFO pop accounting.
		logger.Debug("Queue report", "depth", m.Depth, "inFlight", c.flow.InFlight())
	case *firmware.UnknownMessage:
		logger.Debug("Unknown message", "line", m.Raw)
	}
}

func (c *Controller) detectVersionLocked(ctx context.Context, line string) {
	logger := log.MustLogger(ctx)

	version, ok := c.protocol.DetectVersion(line)
	if ok {
		c.version = &version
		c.caps = c.protocol.Capabilities(version)
		logger.Info("Firmware version detected", "version", version, "dialect", c.protocol.Dialect())
		c.publishLocked(VersionDetectedEvent{Version: version, Capabilities: c.caps})
	}

	select {
	case c.welcomeCh <- struct{}{}:
	default:
	}
}

func (c *Controller) statusPollerWorker(ctx context.Context) error {
	ticker := time.NewTicker(c.config.PollRate)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.Submit(c.protocol.StatusQuery()); err != nil && !errors.Is(err, ErrDisconnected) {
				return fmt.Errorf("status query failed: %w", err)
			}
		}
	}
}

func (c *Controller) watchdogWorker(ctx context.Context) error {
	ticker := time.NewTicker(c.config.WatchdogWindow / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.mu.Lock()
			if c.port != nil && !c.stalled {
				since := time.Since(c.lastMessageAt)
				if since > c.config.WatchdogWindow {
					c.stalled = true
					c.publishLocked(ConnectionStalledEvent{Since: since})
				}
			}
			c.mu.Unlock()
		}
	}
}

func (c *Controller) writeLocked(data []byte) error {
	if c.port == nil {
		return ErrDisconnected
	}
	n, err := c.port.Write(data)
	if err != nil {
		return fmt.Errorf("write to port error: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("write to port error: wrote %d bytes, expected %d", n, len(data))
	}
	return nil
}

// drainOutboundLocked re-attempts admission of deferred commands in original
// submission order, writing each admitted command immediately. Preserving
// order is required: firmwares execute and report in FIFO order.
func (c *Controller) drainOutboundLocked() {
	for len(c.outbound) > 0 {
		line := c.outbound[0]
		admission, err := c.flow.TryAdmit(line)
		if err != nil {
			// Too-large lines are rejected at Submit; getting one here means
			// the buffer size shrank mid-connection, which cannot happen.
			c.publishLocked(DiagnosticEvent{
				Text: fmt.Sprintf("dropping unadmittable command %#v: %v", line, err),
			})
			c.outbound = c.outbound[1:]
			continue
		}
		if admission == firmware.Deferred {
			return
		}
		if err := c.writeLocked([]byte(line + "\n")); err != nil {
			c.publishLocked(DiagnosticEvent{
				Text: fmt.Sprintf("write failed for %#v: %v", line, err),
			})
			return
		}
		c.outbound = c.outbound[1:]
	}
}

// Submit issues a command and returns immediately. Real-time commands are
// written to the transport unconditionally, bypassing flow-control
// accounting. Queued commands enter the outbound queue and are written as
// soon as flow control admits them; admission timing is internal, not
// surfaced.
func (c *Controller) Submit(cmd firmware.Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port == nil {
		return ErrDisconnected
	}

	if cmd.Kind == firmware.CommandRealTime {
		return c.writeLocked([]byte{byte(cmd.Byte)})
	}

	if len(cmd.Line)+1 > c.config.RxBufferSize {
		return fmt.Errorf("%w: %d bytes > %d", firmware.ErrCommandTooLarge, len(cmd.Line)+1, c.config.RxBufferSize)
	}

	c.outbound = append(c.outbound, cmd.Line)
	c.drainOutboundLocked()
	return nil
}

func (c *Controller) submitAll(cmds []firmware.Command) error {
	for _, cmd := range cmds {
		if err := c.Submit(cmd); err != nil {
			return err
		}
	}
	return nil
}

// State returns the current controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sm.State()
}

// Capabilities returns the capability set in effect: derived from the
// detected version, or the dialect's conservative fallback.
func (c *Controller) Capabilities() firmware.CapabilitySet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.caps
}

// Version returns the detected firmware version, or nil when none was
// detected.
func (c *Controller) Version() *firmware.Version {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// LastStatus returns the newest status report, or nil before the first one.
func (c *Controller) LastStatus() *firmware.StatusReportMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastStatus
}

// PendingBytes returns the flow-control bytes currently in flight.
func (c *Controller) PendingBytes() int {
	return c.flow.PendingBytes()
}

// Jog jogs one axis by a relative distance, gated on the capability set.
func (c *Controller) Jog(axis byte, distance, feedRate float64) error {
	caps := c.Capabilities()
	if !caps.Jogging {
		return fmt.Errorf("%w: jogging requires a newer firmware version", firmware.ErrUnsupportedIntent)
	}
	if !caps.HasAxis(axis) {
		return fmt.Errorf("%w: axis %c", firmware.ErrUnsupportedIntent, axis)
	}
	cmds, err := c.protocol.Jog(axis, distance, feedRate)
	if err != nil {
		return err
	}
	return c.submitAll(cmds)
}

func (c *Controller) JogCancel() error {
	cmd, err := c.protocol.JogCancel()
	if err != nil {
		return err
	}
	return c.Submit(cmd)
}

func (c *Controller) SpindleOn(direction firmware.SpindleDirection, speed float64) error {
	caps := c.Capabilities()
	if caps.MaxSpindleSpeed > 0 && speed > float64(caps.MaxSpindleSpeed) {
		return fmt.Errorf("%w: spindle speed %g exceeds maximum %d", firmware.ErrUnsupportedIntent, speed, caps.MaxSpindleSpeed)
	}
	cmd, err := c.protocol.SpindleOn(direction, speed)
	if err != nil {
		return err
	}
	return c.Submit(cmd)
}

func (c *Controller) SpindleOff() error {
	return c.Submit(c.protocol.SpindleOff())
}

func (c *Controller) Home() error {
	return c.Submit(c.protocol.Home())
}

func (c *Controller) Unlock() error {
	return c.Submit(c.protocol.Unlock())
}

func (c *Controller) Probe(probeType firmware.ProbeType, axis byte, target, feedRate float64) error {
	caps := c.Capabilities()
	if !caps.Probing {
		return fmt.Errorf("%w: probing", firmware.ErrUnsupportedIntent)
	}
	if !caps.HasAxis(axis) {
		return fmt.Errorf("%w: axis %c", firmware.ErrUnsupportedIntent, axis)
	}
	cmd, err := c.protocol.Probe(probeType, axis, target, feedRate)
	if err != nil {
		return err
	}
	return c.Submit(cmd)
}

// SoftReset issues the dialect's reset and discards all in-flight
// accounting: whatever the firmware had buffered is gone.
func (c *Controller) SoftReset() error {
	if err := c.Submit(c.protocol.SoftReset()); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flow.Reset()
	c.outbound = nil
	return nil
}

func (c *Controller) FeedHold() error {
	return c.Submit(c.protocol.FeedHold())
}

func (c *Controller) CycleStart() error {
	return c.Submit(c.protocol.CycleStart())
}

// Override issues a real-time override byte, gated on the capability set.
func (c *Controller) Override(cmd firmware.RealTimeCommand) error {
	if !c.Capabilities().RealTimeOverrides {
		return fmt.Errorf("%w: real-time overrides require a newer firmware version", firmware.ErrUnsupportedIntent)
	}
	return c.Submit(firmware.RealTime(cmd))
}

package session

import (
	"bytes"
	"fmt"

	"github.com/mlefort/LambdaGo/internal/debug"
	"github.com/mlefort/LambdaGo/internal/hw/serialport"
	"github.com/mlefort/LambdaGo/internal/protocol"
)

// DefaultSpeed is the documented reliable wheel speed (0 fastest, 7
// slowest are both valid; 6 is what Sutter recommends for 25 mm wheels).
const DefaultSpeed = 6

// Controller is the device session for one Lambda 10-3. It owns the
// transport, the configuration discovered at startup and the single
// pending-command slot.
//
// The controller is strictly sequential: at most one command may be in
// flight, and issuing a new one forces completion of the pending one
// first. It is not safe for concurrent use; callers sharing it across
// goroutines must serialize access themselves.
type Controller struct {
	port     serialport.Transport
	device   *protocol.DeviceConfig
	wheels   []protocol.Channel
	shutters []protocol.Channel

	// pending holds the bytes of the last issued command whose echo
	// has not been consumed yet. nil when idle.
	pending []byte

	// targets is session bookkeeping only: the last commanded position
	// per wheel, updated on issue regardless of completion timing.
	targets [2]int
}

// Connect opens the transport (real serial port, or the mock device when
// mock is true) and establishes a session on it.
func Connect(mock bool, cfg serialport.Config) (*Controller, error) {
	port, err := serialport.New(mock, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	ctrl, err := Open(port)
	if err != nil {
		port.Close()
		return nil, err
	}
	return ctrl, nil
}

// Open establishes a session on an already-open transport: it queries
// the controller configuration, derives the present channels and drives
// the hardware to a known-safe initial state (wheels at position 0,
// shutters in soft mode and closed).
func Open(port serialport.Transport) (*Controller, error) {
	debug.Info("Opening filter wheel and shutter controller")

	c := &Controller{port: port}
	if err := c.resolveConfiguration(); err != nil {
		return nil, err
	}

	wheelNames := make([]string, len(c.wheels))
	for i, w := range c.wheels {
		wheelNames[i] = w.Name()
	}
	shutterNames := make([]string, len(c.shutters))
	for i, s := range c.shutters {
		shutterNames[i] = s.Name()
	}
	debug.Hardware(wheelNames, shutterNames)

	// Deterministic homing before any caller-issued command.
	for _, wheel := range c.wheels {
		if err := c.Move(wheel, 0, DefaultSpeed, true); err != nil {
			return nil, err
		}
	}
	for _, shutter := range c.shutters {
		if err := c.SetShutterMode(shutter, false, true); err != nil {
			return nil, err
		}
		if err := c.SetShutter(shutter, false, true); err != nil {
			return nil, err
		}
	}

	debug.Info("Done opening")
	return c, nil
}

// resolveConfiguration performs the startup query and derives the
// present channel sets. Runs exactly once per session.
func (c *Controller) resolveConfiguration() error {
	if err := c.port.Write(protocol.EncodeQueryConfig()); err != nil {
		return fmt.Errorf("%w: configuration query: %v", ErrProtocol, err)
	}

	frame, err := c.port.Read(protocol.ConfigFrameLen)
	if err != nil {
		return fmt.Errorf("%w: read configuration frame: %v", ErrProtocol, err)
	}
	if len(frame) < protocol.ConfigFrameLen {
		return fmt.Errorf("%w: short configuration frame (%d of %d bytes)",
			protocol.ErrConfiguration, len(frame), protocol.ConfigFrameLen)
	}

	// A shutter-C controller answers with a longer frame; the extra
	// bytes are still buffered after the fixed-length read.
	extra, err := c.port.Buffered()
	if err != nil {
		return fmt.Errorf("%w: poll after configuration frame: %v", ErrProtocol, err)
	}
	if extra == protocol.ConfigFrameLenShutterC-protocol.ConfigFrameLen {
		return fmt.Errorf("%w: controllers with shutter C are not supported",
			protocol.ErrConfiguration)
	}
	if extra != 0 {
		return fmt.Errorf("%w: %d unexpected bytes after configuration frame",
			protocol.ErrConfiguration, extra)
	}

	device, err := protocol.ParseConfigFrame(frame)
	if err != nil {
		return err
	}

	c.device = device
	c.wheels = device.Wheels()
	c.shutters = device.Shutters()
	if len(c.wheels) == 0 && len(c.shutters) == 0 {
		return fmt.Errorf("%w: no filter wheels or shutters connected",
			protocol.ErrConfiguration)
	}
	return nil
}

// Move commands a filter wheel to a position (0-9) at a speed (0-7,
// DefaultSpeed recommended). The wheel is addressed by name ("A"/"B")
// or index (0/1). If block is true the call returns once the controller
// confirms completion; otherwise the echo stays pending until the next
// operation or an explicit Finish.
func (c *Controller) Move(wheel any, position, speed int, block bool) error {
	ch, err := c.wheelChannel(wheel)
	if err != nil {
		return err
	}
	if position < 0 || position > 9 {
		return fmt.Errorf("%w: position %d out of range 0-9", ErrInvalidArgument, position)
	}
	if speed < 0 || speed > 7 {
		return fmt.Errorf("%w: speed %d out of range 0-7", ErrInvalidArgument, speed)
	}

	if err := c.Finish(); err != nil {
		return err
	}

	debug.Move(ch.Name(), position, speed)
	if err := c.issue([]byte{protocol.EncodeMove(ch, position, speed)}); err != nil {
		return err
	}
	c.targets[ch] = position
	if block {
		return c.Finish()
	}
	return nil
}

// SetShutter opens or closes a shutter, addressed by name or index.
func (c *Controller) SetShutter(shutter any, open bool, block bool) error {
	ch, err := c.shutterChannel(shutter)
	if err != nil {
		return err
	}

	if err := c.Finish(); err != nil {
		return err
	}

	debug.Shutter(ch.Name(), StateName(open))
	if err := c.issue([]byte{protocol.EncodeShutterState(ch, open)}); err != nil {
		return err
	}
	if block {
		return c.Finish()
	}
	return nil
}

// SetShutterMode selects a shutter's actuation mode: fast (audible) or
// soft (quiet). The mode is forward-commanded only; the controller does
// not report it back.
func (c *Controller) SetShutterMode(shutter any, fast bool, block bool) error {
	ch, err := c.shutterChannel(shutter)
	if err != nil {
		return err
	}

	if err := c.Finish(); err != nil {
		return err
	}

	debug.Shutter(ch.Name(), "mode "+ModeName(fast))
	if err := c.issue(protocol.EncodeShutterMode(ch, fast)); err != nil {
		return err
	}
	if block {
		return c.Finish()
	}
	return nil
}

// Finish consumes the echo of the pending command, if any. It blocks
// until the controller confirms completion or the transport read times
// out. A no-op when no command is pending.
func (c *Controller) Finish() error {
	if c.pending == nil {
		return nil
	}

	want := protocol.Echo(c.pending)
	got, err := c.port.Read(len(want))
	if err != nil {
		return fmt.Errorf("%w: read echo: %v", ErrProtocol, err)
	}
	if len(got) < len(want) {
		return fmt.Errorf("%w: timed out waiting for echo (% X, got %d of %d bytes)",
			ErrProtocol, c.pending, len(got), len(want))
	}
	if !bytes.Equal(got, want) {
		return fmt.Errorf("%w: unexpected response % X (expected % X)",
			ErrProtocol, got, want)
	}
	c.pending = nil

	// Anything still buffered after the echo means the host and the
	// controller disagree about framing.
	extra, err := c.port.Buffered()
	if err != nil {
		return fmt.Errorf("%w: poll after echo: %v", ErrProtocol, err)
	}
	if extra != 0 {
		return fmt.Errorf("%w: %d residual bytes after echo", ErrProtocol, extra)
	}
	debug.Verbose("-> finished moving")
	return nil
}

// Pending reports whether a command echo is still outstanding.
func (c *Controller) Pending() bool {
	return c.pending != nil
}

// Wheels returns the filter wheel channels detected at startup.
func (c *Controller) Wheels() []protocol.Channel {
	out := make([]protocol.Channel, len(c.wheels))
	copy(out, c.wheels)
	return out
}

// Shutters returns the shutter channels detected at startup.
func (c *Controller) Shutters() []protocol.Channel {
	out := make([]protocol.Channel, len(c.shutters))
	copy(out, c.shutters)
	return out
}

// Device returns the configuration parsed at startup.
func (c *Controller) Device() *protocol.DeviceConfig {
	return c.device
}

// TargetPosition returns the last commanded position of a wheel.
func (c *Controller) TargetPosition(wheel any) (int, error) {
	ch, err := c.wheelChannel(wheel)
	if err != nil {
		return 0, err
	}
	return c.targets[ch], nil
}

// Close parks the hardware (wheels at 0, shutters closed) and releases
// the transport. Not safe to call twice.
func (c *Controller) Close() error {
	err := c.park()
	if cerr := c.port.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err == nil {
		debug.Info("Closed")
	}
	return err
}

func (c *Controller) park() error {
	for _, wheel := range c.wheels {
		if err := c.Move(wheel, 0, DefaultSpeed, true); err != nil {
			return err
		}
	}
	for _, shutter := range c.shutters {
		if err := c.SetShutter(shutter, false, true); err != nil {
			return err
		}
	}
	return nil
}

// issue writes a command and records it as pending.
func (c *Controller) issue(cmd []byte) error {
	if err := c.port.Write(cmd); err != nil {
		return fmt.Errorf("%w: write command: %v", ErrProtocol, err)
	}
	c.pending = cmd
	return nil
}

func (c *Controller) wheelChannel(wheel any) (protocol.Channel, error) {
	ch, err := protocol.ParseChannel(wheel)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if !c.device.HasWheel(ch) {
		return 0, fmt.Errorf("%w: filter wheel %s is not connected", ErrInvalidArgument, ch.Name())
	}
	return ch, nil
}

func (c *Controller) shutterChannel(shutter any) (protocol.Channel, error) {
	ch, err := protocol.ParseChannel(shutter)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if !c.device.HasShutter(ch) {
		return 0, fmt.Errorf("%w: shutter %s is not connected", ErrInvalidArgument, ch.Name())
	}
	return ch, nil
}

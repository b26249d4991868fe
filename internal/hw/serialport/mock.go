package serialport

import (
	"errors"

	"github.com/mlefort/LambdaGo/internal/debug"
	"github.com/mlefort/LambdaGo/internal/protocol"
)

// MockDevice simulates a Lambda 10-3 controller in memory: it answers
// the configuration query with a frame describing the installed modules
// and echoes every other command followed by a carriage return, the way
// the real hardware confirms completion. Used for development on PC and
// for testing.
type MockDevice struct {
	frame  []byte
	rx     []byte   // bytes queued for the host to read
	writes [][]byte // record of host writes

	positions   [2]int
	shutterOpen [2]bool
	fastMode    [2]bool
	closed      bool
}

// NewMockDevice creates a simulated controller with the given wheels and
// shutters installed. Wheels report as 25 mm, shutters as SmartShutters.
func NewMockDevice(wheels, shutters []protocol.Channel) *MockDevice {
	return &MockDevice{frame: ConfigFrame(wheels, shutters)}
}

// SetConfigFrame overrides the configuration frame returned for the next
// query. Used to simulate unsupported hardware topologies.
func (m *MockDevice) SetConfigFrame(frame []byte) {
	m.frame = frame
}

func (m *MockDevice) Write(p []byte) error {
	if m.closed {
		return errors.New("mock device: write after close")
	}
	if len(p) == 0 {
		return errors.New("mock device: empty write")
	}
	debug.TX(p)

	cmd := make([]byte, len(p))
	copy(cmd, p)
	m.writes = append(m.writes, cmd)

	if protocol.IsQueryConfig(cmd[0]) {
		m.rx = append(m.rx, m.frame...)
		return nil
	}

	// Track the simulated hardware state, then confirm with the echo.
	switch {
	case protocol.IsShutterMode(cmd[0]):
		if len(cmd) == 2 && cmd[1] >= 1 && cmd[1] <= 2 {
			m.fastMode[cmd[1]-1] = cmd[0] == 220
		}
	default:
		if sh, open, ok := protocol.DecodeShutterState(cmd[0]); ok {
			m.shutterOpen[sh] = open
		} else {
			wheel, _, position := protocol.DecodeMove(cmd[0])
			m.positions[wheel] = position
		}
	}
	m.rx = append(m.rx, protocol.Echo(cmd)...)
	return nil
}

func (m *MockDevice) Read(n int) ([]byte, error) {
	if m.closed {
		return nil, errors.New("mock device: read after close")
	}
	if n > len(m.rx) {
		n = len(m.rx) // nothing more will arrive: simulated timeout
	}
	out := m.rx[:n]
	m.rx = m.rx[n:]
	debug.RX(out)
	return out, nil
}

func (m *MockDevice) Buffered() (int, error) {
	return len(m.rx), nil
}

func (m *MockDevice) Close() error {
	debug.Trace("Mock device close")
	m.closed = true
	return nil
}

// Writes returns every command written to the device, in order.
func (m *MockDevice) Writes() [][]byte {
	return m.writes
}

// Position returns the simulated position of a wheel.
func (m *MockDevice) Position(wheel protocol.Channel) int {
	return m.positions[wheel]
}

// ShutterIsOpen returns the simulated state of a shutter.
func (m *MockDevice) ShutterIsOpen(shutter protocol.Channel) bool {
	return m.shutterOpen[shutter]
}

// FastMode returns the simulated actuation mode of a shutter.
func (m *MockDevice) FastMode(shutter protocol.Channel) bool {
	return m.fastMode[shutter]
}

// ConfigFrame builds the 31-byte configuration frame a controller with
// the given installed modules would report.
func ConfigFrame(wheels, shutters []protocol.Channel) []byte {
	has := func(set []protocol.Channel, ch protocol.Channel) bool {
		for _, c := range set {
			if c == ch {
				return true
			}
		}
		return false
	}
	field := func(tag string, present bool, code string) string {
		if present {
			return tag + code
		}
		return tag + protocol.CodeNotConnected
	}

	f := "10-3 " +
		field("WA-", has(wheels, protocol.ChannelA), protocol.CodeWheel25) +
		field("WB-", has(wheels, protocol.ChannelB), protocol.CodeWheel25) +
		"WC-" + protocol.CodeNotConnected +
		field("SA-", has(shutters, protocol.ChannelA), protocol.CodeSmartShutter) +
		field("SB-", has(shutters, protocol.ChannelB), protocol.CodeSmartShutter)
	return append([]byte(f), protocol.CR)
}

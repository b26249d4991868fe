package serialport

import (
	"time"

	"github.com/mlefort/LambdaGo/internal/debug"
	"github.com/mlefort/LambdaGo/internal/protocol"
)

// Transport defines the abstract interface for the byte-oriented,
// blocking-with-timeout channel to the controller. This allows plugging
// in the real serial port or a mock device for development on PC.
type Transport interface {
	// Write sends the full byte sequence to the device.
	Write(p []byte) error
	// Read blocks until n bytes arrive or the read timeout elapses.
	// A result shorter than n means the timeout fired.
	Read(n int) ([]byte, error)
	// Buffered returns the number of received bytes not yet consumed.
	Buffered() (int, error)
	Close() error
}

// Config holds the serial link parameters.
type Config struct {
	Port     string
	BaudRate int
	Timeout  time.Duration
}

// New creates a transport based on the chosen mode.
// If mock is true, returns a simulated controller with a full complement
// of wheels and shutters (for dev/test). If mock is false, opens the
// real serial port.
func New(mock bool, cfg Config) (Transport, error) {
	if mock {
		debug.Info("Using MOCK serial device (development mode)")
		all := []protocol.Channel{protocol.ChannelA, protocol.ChannelB}
		return NewMockDevice(all, all), nil
	}
	return Open(cfg.Port, cfg.BaudRate, cfg.Timeout)
}

package serialport

import (
	"fmt"
	"time"

	"github.com/mlefort/LambdaGo/internal/debug"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the fixed rate of the Lambda 10-3 USB link.
	DefaultBaudRate = 128000
	// DefaultTimeout bounds every blocking read. A slow wheel move
	// completes well under this; exceeding it is a wire fault.
	DefaultTimeout = 5 * time.Second
)

// Serial is the real Transport implementation using go.bug.st/serial.
type Serial struct {
	port    serial.Port
	timeout time.Duration
	stash   []byte // bytes drained by Buffered, served to Read first
}

// Open opens the serial port at the given baud rate (8N1 framing) with
// the given read timeout.
func Open(name string, baud int, timeout time.Duration) (*Serial, error) {
	debug.Info("Opening serial port %s (baud=%d, timeout=%v)", name, baud, timeout)

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}
	return &Serial{port: port, timeout: timeout}, nil
}

func (s *Serial) Write(p []byte) error {
	debug.TX(p)
	for len(p) > 0 {
		n, err := s.port.Write(p)
		if err != nil {
			return fmt.Errorf("serial write: %w", err)
		}
		p = p[n:]
	}
	return nil
}

func (s *Serial) Read(n int) ([]byte, error) {
	out := make([]byte, 0, n)
	if len(s.stash) > 0 {
		take := len(s.stash)
		if take > n {
			take = n
		}
		out = append(out, s.stash[:take]...)
		s.stash = s.stash[take:]
	}

	buf := make([]byte, n)
	for len(out) < n {
		k, err := s.port.Read(buf[:n-len(out)])
		if k > 0 {
			out = append(out, buf[:k]...)
		}
		if err != nil {
			return out, fmt.Errorf("serial read: %w", err)
		}
		if k == 0 {
			// Read timeout elapsed: hand back the short result and
			// let the caller classify it.
			break
		}
	}
	debug.RX(out)
	return out, nil
}

// Buffered polls the port without blocking and reports how many received
// bytes are waiting. Polled bytes are stashed and served by the next Read.
func (s *Serial) Buffered() (int, error) {
	if err := s.port.SetReadTimeout(0); err != nil {
		return 0, fmt.Errorf("serial poll: %w", err)
	}

	buf := make([]byte, 64)
	for {
		k, err := s.port.Read(buf)
		if k > 0 {
			s.stash = append(s.stash, buf[:k]...)
		}
		if err != nil {
			_ = s.port.SetReadTimeout(s.timeout)
			return len(s.stash), fmt.Errorf("serial poll: %w", err)
		}
		if k == 0 {
			break
		}
	}

	if err := s.port.SetReadTimeout(s.timeout); err != nil {
		return len(s.stash), fmt.Errorf("serial poll: %w", err)
	}
	return len(s.stash), nil
}

func (s *Serial) Close() error {
	debug.Trace("Serial close")
	return s.port.Close()
}

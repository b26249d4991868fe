package session

import (
	"errors"
	"fmt"
)

// Error taxonomy of the driver. Callers distinguish categories with
// errors.Is; configuration failures additionally match
// protocol.ErrConfiguration.
var (
	// ErrConnection marks a serial port open failure. Fatal at startup.
	ErrConnection = errors.New("connection error")

	// ErrInvalidArgument marks a rejected call: channel not present,
	// numeric parameter out of range or unrecognized symbolic value.
	// Raised before any I/O; the session state is unchanged and the
	// caller may retry with corrected input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrProtocol marks a wire-level failure: echo mismatch, residual
	// bytes after an echo, or a read timeout. Fatal; the session must
	// not be reused without reinitialization.
	ErrProtocol = errors.New("protocol error")
)

// ParseShutterState maps a symbolic shutter state to its boolean form.
func ParseShutterState(s string) (open bool, err error) {
	switch s {
	case "open":
		return true, nil
	case "closed":
		return false, nil
	}
	return false, fmt.Errorf("%w: unknown shutter state %q (want \"open\" or \"closed\")",
		ErrInvalidArgument, s)
}

// ParseShutterMode maps a symbolic actuation mode to its boolean form.
func ParseShutterMode(s string) (fast bool, err error) {
	switch s {
	case "fast":
		return true, nil
	case "soft":
		return false, nil
	}
	return false, fmt.Errorf("%w: unknown shutter mode %q (want \"fast\" or \"soft\")",
		ErrInvalidArgument, s)
}

// StateName returns the symbolic form of a shutter state.
func StateName(open bool) string {
	if open {
		return "open"
	}
	return "closed"
}

// ModeName returns the symbolic form of a shutter actuation mode.
func ModeName(fast bool) string {
	if fast {
		return "fast"
	}
	return "soft"
}

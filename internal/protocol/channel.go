package protocol

import "fmt"

// Channel identifies one of the two addressable sub-devices of a given
// class (wheel A/B or shutter A/B). Wheel and shutter namespaces are
// distinct: wheel A and shutter A are different devices sharing index 0.
type Channel int

const (
	ChannelA Channel = 0
	ChannelB Channel = 1
)

// ParseChannel normalizes a channel identifier to its canonical index.
// The controller is addressed either by name ("A"/"B") or by index (0/1);
// both forms are accepted uniformly. Numeric input in range is returned
// as-is; anything else is an error, never a default.
func ParseChannel(v any) (Channel, error) {
	switch id := v.(type) {
	case Channel:
		if id != ChannelA && id != ChannelB {
			return 0, fmt.Errorf("invalid channel index: %d", int(id))
		}
		return id, nil
	case int:
		if id != 0 && id != 1 {
			return 0, fmt.Errorf("invalid channel index: %d", id)
		}
		return Channel(id), nil
	case string:
		switch id {
		case "A", "a", "0":
			return ChannelA, nil
		case "B", "b", "1":
			return ChannelB, nil
		}
		return 0, fmt.Errorf("invalid channel name: %q", id)
	}
	return 0, fmt.Errorf("invalid channel identifier: %v", v)
}

// Name returns the symbolic form of the channel ("A" or "B").
func (c Channel) Name() string {
	switch c {
	case ChannelA:
		return "A"
	case ChannelB:
		return "B"
	}
	return fmt.Sprintf("?%d", int(c))
}

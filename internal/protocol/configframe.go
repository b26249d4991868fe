package protocol

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks an unsupported or malformed hardware
// configuration reported by the controller at startup. It is fatal:
// the detected topology cannot be driven by this adapter.
var ErrConfiguration = errors.New("unsupported configuration")

const (
	// ConfigFrameLen is the length of a supported configuration frame:
	// a 5-byte header, five 5-character module fields and a trailing CR.
	ConfigFrameLen = 31

	// ConfigFrameLenShutterC is the frame length reported by
	// controllers fitted with a third shutter, which this adapter
	// does not support.
	ConfigFrameLenShutterC = 36

	configHeaderLen = 5
	fieldLen        = 5
)

// Module sub-type codes as reported in the configuration frame.
const (
	CodeWheel25      = "25" // 25 mm filter wheel
	CodeSmartShutter = "IQ" // SmartShutter
	CodeShutterVS    = "VS" // alternate supported shutter
	CodeNotConnected = "NC"
)

// ModuleInfo describes one wheel or shutter slot of the controller.
type ModuleInfo struct {
	Present bool
	Code    string // sub-type code, e.g. "25" or "IQ"; "NC" if absent
}

// DeviceConfig is the parsed result of the startup configuration query.
// It is immutable after ParseConfigFrame and built exactly once per
// session.
type DeviceConfig struct {
	WheelA   ModuleInfo
	WheelB   ModuleInfo
	ShutterA ModuleInfo
	ShutterB ModuleInfo
}

// ParseConfigFrame validates and decodes a 31-byte configuration frame.
// The frame carries a fixed header followed by five fields (wheel A,
// wheel B, wheel C, shutter A, shutter B) whose positional tags must
// match. Wheel C must read not-connected: three-wheel topologies are
// rejected outright, as is the longer frame of shutter-C controllers.
func ParseConfigFrame(frame []byte) (*DeviceConfig, error) {
	if len(frame) == ConfigFrameLenShutterC {
		return nil, fmt.Errorf("%w: controllers with shutter C are not supported", ErrConfiguration)
	}
	if len(frame) != ConfigFrameLen {
		return nil, fmt.Errorf("%w: configuration frame is %d bytes, expected %d",
			ErrConfiguration, len(frame), ConfigFrameLen)
	}

	fields := string(frame[configHeaderLen : configHeaderLen+5*fieldLen])
	wa := fields[0:5]
	wb := fields[5:10]
	wc := fields[10:15]
	sa := fields[15:20]
	sb := fields[20:25]

	if wc != "WC-"+CodeNotConnected {
		return nil, fmt.Errorf("%w: controllers with wheel C are not supported (field %q)",
			ErrConfiguration, wc)
	}

	cfg := &DeviceConfig{}
	var err error
	if cfg.WheelA, err = parseWheelField(wa, "WA-"); err != nil {
		return nil, err
	}
	if cfg.WheelB, err = parseWheelField(wb, "WB-"); err != nil {
		return nil, err
	}
	if cfg.ShutterA, err = parseShutterField(sa, "SA-"); err != nil {
		return nil, err
	}
	if cfg.ShutterB, err = parseShutterField(sb, "SB-"); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseWheelField(field, tag string) (ModuleInfo, error) {
	code, err := fieldCode(field, tag)
	if err != nil {
		return ModuleInfo{}, err
	}
	switch code {
	case CodeWheel25:
		return ModuleInfo{Present: true, Code: code}, nil
	case CodeNotConnected:
		return ModuleInfo{Code: code}, nil
	}
	return ModuleInfo{}, fmt.Errorf("%w: only 25 mm filter wheels are supported (field %q)",
		ErrConfiguration, field)
}

func parseShutterField(field, tag string) (ModuleInfo, error) {
	code, err := fieldCode(field, tag)
	if err != nil {
		return ModuleInfo{}, err
	}
	switch code {
	case CodeSmartShutter, CodeShutterVS:
		return ModuleInfo{Present: true, Code: code}, nil
	case CodeNotConnected:
		return ModuleInfo{Code: code}, nil
	}
	return ModuleInfo{}, fmt.Errorf("%w: unrecognized shutter sub-type (field %q)",
		ErrConfiguration, field)
}

// fieldCode checks the positional tag of a module field and returns its
// two-character sub-type code. A tag in the wrong place means the frame
// is not what this adapter thinks it is: fatal, not recoverable.
func fieldCode(field, tag string) (string, error) {
	if field[:3] != tag {
		return "", fmt.Errorf("%w: module field %q does not match expected tag %q",
			ErrConfiguration, field, tag)
	}
	return field[3:], nil
}

// Wheels returns the channels of the filter wheels detected present.
func (c *DeviceConfig) Wheels() []Channel {
	var out []Channel
	if c.WheelA.Present {
		out = append(out, ChannelA)
	}
	if c.WheelB.Present {
		out = append(out, ChannelB)
	}
	return out
}

// Shutters returns the channels of the shutters detected present.
func (c *DeviceConfig) Shutters() []Channel {
	var out []Channel
	if c.ShutterA.Present {
		out = append(out, ChannelA)
	}
	if c.ShutterB.Present {
		out = append(out, ChannelB)
	}
	return out
}

// HasWheel reports whether the given wheel channel is installed.
func (c *DeviceConfig) HasWheel(ch Channel) bool {
	switch ch {
	case ChannelA:
		return c.WheelA.Present
	case ChannelB:
		return c.WheelB.Present
	}
	return false
}

// HasShutter reports whether the given shutter channel is installed.
func (c *DeviceConfig) HasShutter(ch Channel) bool {
	switch ch {
	case ChannelA:
		return c.ShutterA.Present
	case ChannelB:
		return c.ShutterB.Present
	}
	return false
}

package protocol

// Wire protocol for the Lambda 10-3 controller. Every command is echoed
// back byte for byte followed by a carriage return once the hardware has
// finished executing it; the query-config command instead answers with a
// fixed-length status frame (see configframe.go).

const (
	// CR terminates every command echo.
	CR byte = 0x0D

	// cmdQueryConfig asks the controller for its type and configuration.
	cmdQueryConfig byte = 0xFD

	// shutterBase is the fixed part of a shutter state command:
	// bit 7 (command), bit 5 (shutter class), bit 3 (state change).
	shutterBase byte = 128 + 32 + 8

	shutterOpenBit   byte = 2
	shutterClosedBit byte = 4

	// Shutter actuation mode opcodes. Fast mode is audible; soft mode
	// trades speed for quiet operation.
	opcodeFastMode byte = 220
	opcodeSoftMode byte = 221
)

// EncodeQueryConfig returns the configuration query command.
func EncodeQueryConfig() []byte {
	return []byte{cmdQueryConfig}
}

// EncodeMove packs a wheel move into its single command byte:
// bit 7 selects the wheel, bits 6-4 the speed (0-7), bits 3-0 the
// position (0-9). Callers validate ranges before encoding.
func EncodeMove(wheel Channel, position, speed int) byte {
	return byte(int(wheel)<<7 | speed<<4 | position)
}

// DecodeMove unpacks a move command byte into wheel, speed and position.
func DecodeMove(b byte) (wheel Channel, speed, position int) {
	return Channel(b >> 7), int(b >> 4 & 0x7), int(b & 0xF)
}

// EncodeShutterState packs a shutter open/close into its command byte.
func EncodeShutterState(shutter Channel, open bool) byte {
	b := shutterBase | byte(int(shutter)<<4)
	if open {
		return b | shutterOpenBit
	}
	return b | shutterClosedBit
}

// DecodeShutterState unpacks a shutter state command byte. ok is false
// if b is not a shutter state command.
func DecodeShutterState(b byte) (shutter Channel, open bool, ok bool) {
	state := b &^ (shutterBase | 1<<4)
	if b&shutterBase != shutterBase || (state != shutterOpenBit && state != shutterClosedBit) {
		return 0, false, false
	}
	return Channel(b >> 4 & 1), state == shutterOpenBit, true
}

// EncodeShutterMode builds the two-byte shutter mode command:
// an opcode (fast or soft) followed by the 1-based shutter number.
func EncodeShutterMode(shutter Channel, fast bool) []byte {
	opcode := opcodeSoftMode
	if fast {
		opcode = opcodeFastMode
	}
	return []byte{opcode, byte(shutter) + 1}
}

// IsShutterMode reports whether b opens a two-byte shutter mode command.
func IsShutterMode(b byte) bool {
	return b == opcodeFastMode || b == opcodeSoftMode
}

// IsQueryConfig reports whether b is the configuration query command.
func IsQueryConfig(b byte) bool {
	return b == cmdQueryConfig
}

// Echo returns the confirmation the controller sends once cmd has been
// executed: the command bytes followed by a carriage return.
func Echo(cmd []byte) []byte {
	out := make([]byte, 0, len(cmd)+1)
	out = append(out, cmd...)
	return append(out, CR)
}

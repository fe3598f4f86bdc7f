package protocol

import (
	"errors"
	"fmt"
)

// FramingError indicates bytes that do not form a valid frame: truncated
// input or a bare command whose complement byte does not match its opcode.
type FramingError struct {
	// Reason describes what was wrong with the framing
	Reason string
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("invalid frame: %s", e.Reason)
}

// ChecksumError indicates a structurally valid frame whose trailing
// checksum byte disagrees with the checksum recomputed over its contents.
type ChecksumError struct {
	// Want is the checksum recomputed over the frame contents
	Want byte

	// Got is the checksum byte the frame carried
	Got byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: calculated 0x%02X, frame carries 0x%02X", e.Want, e.Got)
}

// ProtocolError indicates a well-formed reply whose status byte reports a
// failure or violates the expected exchange, such as a non-positive sector
// size or a completion status in the middle of a transfer.
type ProtocolError struct {
	// Operation is the exchange that failed
	Operation string

	// Status is the status byte the bootloader answered with
	Status byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s failed: %s (0x%02X)", e.Operation, StatusName(e.Status), e.Status)
}

// IsFramingError reports whether err is or wraps a *FramingError.
func IsFramingError(err error) bool {
	var fe *FramingError
	return errors.As(err, &fe)
}

// IsChecksumError reports whether err is or wraps a *ChecksumError.
func IsChecksumError(err error) bool {
	var ce *ChecksumError
	return errors.As(err, &ce)
}

// IsProtocolError reports whether err is or wraps a *ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// StatusName returns a human-readable name for an acknowledgment status
// byte.
func StatusName(code byte) string {
	switch code {
	case StatusOK:
		return "ok"
	case StatusComplete:
		return "flash complete"
	case StatusBadChecksum:
		return "checksum rejected"
	case StatusWriteFailed:
		return "flash write failed"
	default:
		return fmt.Sprintf("unknown status 0x%02X", code)
	}
}

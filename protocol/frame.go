package protocol

import "fmt"

// Frame is one command on the wire: an opcode, an optional payload, and a
// trailing checksum over both. A frame with an empty payload encodes as the
// opcode followed by its additive complement, since the checksum of a lone
// opcode is exactly that complement.
type Frame struct {
	// Op is the command opcode
	Op byte

	// Payload is the command payload, possibly empty
	Payload []byte
}

// Encode serializes the frame as opcode ++ payload ++ checksum.
func (f Frame) Encode() []byte {
	buf := make([]byte, 0, len(f.Payload)+2)
	buf = append(buf, f.Op)
	buf = append(buf, f.Payload...)
	buf = append(buf, f.Sum())
	return buf
}

// Sum returns the frame's checksum byte.
func (f Frame) Sum() byte {
	return Sum([]byte{f.Op}, f.Payload)
}

// Decode parses and validates an encoded command frame.
//
// A frame shorter than two bytes, or a bare two-byte command whose second
// byte is not the opcode's complement, fails with *FramingError. A
// payload-carrying frame whose trailing byte disagrees with the recomputed
// checksum fails with *ChecksumError. The returned payload aliases buf.
func Decode(buf []byte) (Frame, error) {
	if len(buf) < 2 {
		return Frame{}, &FramingError{
			Reason: fmt.Sprintf("frame too short: %d bytes", len(buf)),
		}
	}

	op := buf[0]

	// Bare command: the second byte doubles as complement and checksum.
	if len(buf) == 2 {
		if buf[1] != op^0xFF {
			return Frame{}, &FramingError{
				Reason: fmt.Sprintf("opcode 0x%02X paired with 0x%02X, want complement 0x%02X",
					op, buf[1], op^0xFF),
			}
		}
		return Frame{Op: op}, nil
	}

	payload := buf[1 : len(buf)-1]
	want := Sum([]byte{op}, payload)
	if got := buf[len(buf)-1]; got != want {
		return Frame{}, &ChecksumError{Want: want, Got: got}
	}

	return Frame{Op: op, Payload: payload}, nil
}

// AppendSum frames an opcode-less data payload (the file size announcement
// and the firmware chunks) by appending its checksum. The result is always
// a fresh slice; the payload's backing array is never written to, so a
// chunk that aliases a larger firmware image stays intact.
func AppendSum(payload []byte) []byte {
	buf := make([]byte, 0, len(payload)+1)
	buf = append(buf, payload...)
	buf = append(buf, Sum(payload))
	return buf
}

// ParseReply validates a reply frame and strips its trailing checksum,
// returning the payload. Replies carry no opcode or complement, only
// payload plus checksum. The returned payload aliases buf.
func ParseReply(buf []byte) ([]byte, error) {
	if len(buf) < 2 {
		return nil, &FramingError{
			Reason: fmt.Sprintf("reply too short: %d bytes", len(buf)),
		}
	}

	payload := buf[:len(buf)-1]
	want := Sum(payload)
	if got := buf[len(buf)-1]; got != want {
		return nil, &ChecksumError{Want: want, Got: got}
	}

	return payload, nil
}

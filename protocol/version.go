package protocol

import "fmt"

// Version is the fixed 25-byte identification record the bootloader answers
// a version query with. It combines the hardware and firmware version
// fields into one printable string, padded with NUL or space bytes. A record
// of all zero bytes means the bootloader holds no CRC-valid application.
type Version struct {
	// Raw is the record exactly as received
	Raw [VersionLen]byte
}

// ParseVersion interprets a version reply payload.
func ParseVersion(payload []byte) (Version, error) {
	if len(payload) != VersionLen {
		return Version{}, &FramingError{
			Reason: fmt.Sprintf("version record is %d bytes, want %d", len(payload), VersionLen),
		}
	}

	var v Version
	copy(v.Raw[:], payload)
	return v, nil
}

// String renders the record with trailing padding trimmed and any
// non-printable byte replaced by a dot.
func (v Version) String() string {
	end := len(v.Raw)
	for end > 0 && (v.Raw[end-1] == 0x00 || v.Raw[end-1] == ' ') {
		end--
	}

	out := make([]byte, end)
	for i := 0; i < end; i++ {
		b := v.Raw[i]
		if b < 0x20 || b > 0x7E {
			b = '.'
		}
		out[i] = b
	}
	return string(out)
}

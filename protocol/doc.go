// Package protocol implements the wire format of the serial bootloader on
// Creality K1 printer MCUs.
//
// # Protocol Overview
//
// The link is half-duplex request/response over a UART line. Every frame
// ends in a single additive-complement checksum byte computed over the rest
// of the frame:
//
//	Command: [OPCODE][PAYLOAD...][CHECKSUM]
//	Reply:   [PAYLOAD...][CHECKSUM]
//
// The checksum of a lone opcode equals its bitwise complement, so the bare
// commands the bootloader understands are fixed two-byte pairs:
//
//	Version query:     0x00 0xFF -> 25-byte version record + checksum
//	Update request:    0x01 0xFE -> status + checksum
//	App start:         0x02 0xFD -> status + checksum
//	Sector-size query: 0x03 0xFC -> size byte + checksum
//
// Two exchanges carry no opcode at all: the 4-byte little-endian file size
// announcement and the firmware chunks themselves, each followed by its
// checksum. The handshake is a single 0x75 byte that the bootloader echoes
// back; it is only answered inside the acceptance window after MCU power-up.
//
// # Building and Parsing
//
// Commands are built through the Frame type and the opcode-less data frames
// through AppendSum:
//
//	probe := protocol.Frame{Op: protocol.OpGetVersion}.Encode() // 0x00 0xFF
//	chunk := protocol.AppendSum(data)
//
// Replies are validated with ParseReply, which strips the trailing checksum:
//
//	payload, err := protocol.ParseReply(reply)
//
// # Error Handling
//
// Parsing distinguishes garbled framing from corrupted contents:
// *FramingError for truncated frames or a complement byte that does not
// match its opcode, *ChecksumError for a trailing byte that disagrees with
// the recomputed checksum. A reply whose status byte reports a failure is
// surfaced as *ProtocolError.
package protocol

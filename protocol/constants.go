package protocol

// Line speeds for the two serial regimes a K1 MCU exposes.
const (
	// BootloaderBaud is the line speed the serial bootloader listens at.
	BootloaderBaud = 115200

	// ApplicationBaud is the default line speed of a running application
	// firmware. It matters only for delivering the bootloader re-entry
	// request; bootloader exchanges always run at BootloaderBaud.
	ApplicationBaud = 230400
)

// Handshake is the single-byte probe sent to the bootloader and the echo it
// answers with. The bootloader accepts the probe only during its acceptance
// window after MCU power-up.
const Handshake = 0x75

// Command opcodes. A bare command is transmitted as the opcode followed by
// its additive complement (see Frame).
const (
	// OpGetVersion requests the 25-byte hardware/firmware version record
	OpGetVersion = 0x00

	// OpUpdate opens a firmware update; the 4-byte file size announcement
	// and the chunk transfer follow as separate exchanges
	OpUpdate = 0x01

	// OpStartApp hands control from the bootloader to the application
	OpStartApp = 0x02

	// OpGetSectorSize requests the flash write granularity used to size
	// firmware chunks
	OpGetSectorSize = 0x03
)

// Status bytes carried in acknowledgment replies.
const (
	// StatusOK acknowledges a command or a non-final firmware chunk
	StatusOK = 0x75

	// StatusComplete acknowledges the final firmware chunk once the whole
	// image has been written to flash
	StatusComplete = 0x20

	// StatusBadChecksum reports that the bootloader rejected a frame's
	// checksum
	StatusBadChecksum = 0x1F

	// StatusWriteFailed reports a flash write error
	StatusWriteFailed = 0x21
)

// Frame and payload sizes.
const (
	// VersionLen is the length of the version record payload
	VersionLen = 25

	// VersionReplyLen is the full version reply: record plus checksum
	VersionReplyLen = VersionLen + 1

	// AckLen is the length of an acknowledgment reply: status plus checksum
	AckLen = 2

	// SectorReplyLen is the full sector-size reply: size byte plus checksum
	SectorReplyLen = 2

	// FileSizeLen is the length of the little-endian file size announcement
	// before its checksum is appended
	FileSizeLen = 4

	// SectorUnit converts the sector-size byte reported by the bootloader
	// into a chunk byte count (the byte is a multiple of 1 KiB)
	SectorUnit = 1024
)

// RebootMagic is the in-band request a bootloader-aware application watches
// for on its serial line. Writing it at the application's line speed makes
// the MCU reset into the bootloader, which then opens a fresh acceptance
// window.
const RebootMagic = "~ \x1c Request Serial Bootloader!! ~"

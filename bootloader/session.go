package bootloader

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/Fiddl3/k1-mcu-flasher/firmware"
	"github.com/Fiddl3/k1-mcu-flasher/protocol"
)

// Transport is the serial link a Session drives. transport.Port satisfies
// it; tests substitute a scripted fake.
//
// Receive must wait up to timeout for exactly n bytes and report a lapsed
// wait with an error whose Timeout() bool method reports true (the net.Error
// convention). The Session treats any other receive error as fatal.
type Transport interface {
	// Send writes the frame in full
	Send(data []byte) error

	// Receive reads exactly n bytes within the bounded wait
	Receive(n int, timeout time.Duration) ([]byte, error)

	// Baud returns the current line speed
	Baud() int

	// SetBaud switches the line speed on the open port
	SetBaud(baud int) error

	// ResetInput discards bytes already buffered on the receive side
	ResetInput() error
}

// State identifies where a Session is in the protocol sequence.
type State int

const (
	// StateDisconnected is the initial state and where every failed
	// operation lands
	StateDisconnected State = iota

	// StateHandshaking means the probe/echo loop is running
	StateHandshaking

	// StateReady means the handshake is confirmed and no operation is in
	// flight
	StateReady

	// StateQueryingVersion means a version query is in flight
	StateQueryingVersion

	// StateUpdating means a firmware transfer is in flight
	StateUpdating

	// StateStartingApp means an application start is in flight
	StateStartingApp

	// StateRequestingBootloader means a bootloader re-entry sequence is in
	// flight
	StateRequestingBootloader
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateQueryingVersion:
		return "querying version"
	case StateUpdating:
		return "updating"
	case StateStartingApp:
		return "starting app"
	case StateRequestingBootloader:
		return "requesting bootloader"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session drives one connection to an MCU bootloader through the ordered
// protocol stages. The wire protocol is half-duplex with a single request
// in flight, so a Session is not safe for concurrent use; callers expose it
// to one goroutine at a time.
type Session struct {
	transport Transport
	config    Config

	state         State
	handshakeDone bool
}

// New creates a Session over the given transport.
//
// Example:
//
//	port, err := transport.Open("/dev/ttyUSB0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	session := bootloader.New(port,
//	    bootloader.WithLogger(myLogger),
//	    bootloader.WithResponseTimeout(2*time.Second),
//	)
func New(t Transport, opts ...Option) *Session {
	if t == nil {
		panic("transport cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Session{
		transport: t,
		config:    cfg,
		state:     StateDisconnected,
	}
}

// State returns the session's current protocol state.
func (s *Session) State() State {
	return s.state
}

// Handshake confirms the bootloader is listening. It probes with the
// handshake byte and polls for the echo until the acceptance window lapses,
// then fails with *HandshakeTimeoutError. The window exists on the MCU
// side: the bootloader listens for roughly 15 seconds after power-up before
// launching the application, so a second attempt needs a power cycle (or a
// bootloader re-entry request).
//
// A session handshakes at most once; calling Handshake again after success
// is a no-op. Every other operation requires a confirmed handshake first.
func (s *Session) Handshake(ctx context.Context) error {
	if s.handshakeDone {
		return nil
	}
	if s.state != StateDisconnected {
		return &StateError{Op: "handshake", State: s.state}
	}

	s.state = StateHandshaking
	if err := s.handshake(ctx, s.config.HandshakeWindow); err != nil {
		s.fail()
		return err
	}

	s.state = StateReady
	s.handshakeDone = true
	return nil
}

// handshake runs the probe/echo poll loop inside the given window.
func (s *Session) handshake(ctx context.Context, window time.Duration) error {
	deadline := time.Now().Add(window)
	s.logDebug("handshake started",
		"window", window.String(),
		"poll", s.config.HandshakePoll.String(),
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.transport.Send([]byte{protocol.Handshake}); err != nil {
			return err
		}

		reply, err := s.transport.Receive(1, s.config.HandshakePoll)
		switch {
		case err == nil && reply[0] == protocol.Handshake:
			s.logInfo("handshake confirmed")
			return nil
		case err != nil && !isTimeout(err):
			return err
		}

		if !time.Now().Before(deadline) {
			return &HandshakeTimeoutError{Window: window}
		}
	}
}

// Version queries the combined hardware/firmware version record.
func (s *Session) Version(ctx context.Context) (protocol.Version, error) {
	if err := s.begin("version query", StateQueryingVersion); err != nil {
		return protocol.Version{}, err
	}

	v, err := s.version(ctx)
	return v, s.finish(err)
}

func (s *Session) version(ctx context.Context) (protocol.Version, error) {
	payload, err := s.command(ctx, protocol.OpGetVersion, protocol.VersionReplyLen)
	if err != nil {
		return protocol.Version{}, fmt.Errorf("version query: %w", err)
	}

	v, err := protocol.ParseVersion(payload)
	if err != nil {
		return protocol.Version{}, fmt.Errorf("version query: %w", err)
	}

	s.logInfo("version received", "version", v.String())
	return v, nil
}

// UpdateFirmware transfers a firmware image to the MCU. The sequence is
// fixed: query the sector size, announce the transfer and the image size,
// then send the chunks strictly in order, each waiting for its
// acknowledgment before the next goes out. The final chunk must be
// acknowledged with the flash-complete status.
//
// The first failure aborts the whole update and disconnects the session; a
// half-written sector leaves undefined flash content, so the caller must
// restart the transfer from the beginning on a fresh handshake. A failed
// update means the MCU needs a power cycle before it will handshake again.
func (s *Session) UpdateFirmware(ctx context.Context, img *firmware.Image) error {
	if img == nil || img.Len() == 0 {
		return fmt.Errorf("firmware image is empty")
	}

	if err := s.begin("firmware update", StateUpdating); err != nil {
		return err
	}

	err := s.update(ctx, img)
	if err != nil {
		s.logError("update aborted, power-cycle the MCU before retrying", "error", err.Error())
	}
	return s.finish(err)
}

func (s *Session) update(ctx context.Context, img *firmware.Image) error {
	start := time.Now()
	s.reportProgress(Progress{Stage: StageQuery, TotalBytes: img.Len()})

	sector, err := s.querySectorSize(ctx)
	if err != nil {
		return &UpdateError{Stage: StageQuery, Err: err}
	}

	chunker := img.Chunks(sector * protocol.SectorUnit)
	total := chunker.Count()

	s.logDebug("transfer sized",
		"sector", sector,
		"chunk_bytes", sector*protocol.SectorUnit,
		"chunks", total,
		"image_bytes", img.Len(),
	)

	s.reportProgress(Progress{
		Stage:       StageAnnounce,
		TotalChunks: total,
		TotalBytes:  img.Len(),
		Elapsed:     time.Since(start),
	})

	if err := s.requestUpdate(ctx); err != nil {
		return &UpdateError{Stage: StageAnnounce, Err: err}
	}
	if err := s.announceSize(ctx, img.Len()); err != nil {
		return &UpdateError{Stage: StageAnnounce, Err: err}
	}

	sent := 0
	for {
		chunk, ok := chunker.Next()
		if !ok {
			break
		}

		status, err := s.sendChunk(ctx, chunk)
		if err != nil {
			return &UpdateError{Stage: StageTransfer, Chunk: chunk.Index, Err: err}
		}
		if err := checkChunkStatus(status, chunk.Index == total-1); err != nil {
			return &UpdateError{Stage: StageTransfer, Chunk: chunk.Index, Err: err}
		}

		sent += len(chunk.Data)
		s.reportProgress(Progress{
			Stage:       StageTransfer,
			Chunk:       chunk.Index + 1,
			TotalChunks: total,
			BytesSent:   sent,
			TotalBytes:  img.Len(),
			Percentage:  float64(sent) / float64(img.Len()) * 100,
			LastStatus:  status,
			Elapsed:     time.Since(start),
		})
	}

	s.reportProgress(Progress{
		Stage:       StageComplete,
		Chunk:       total,
		TotalChunks: total,
		BytesSent:   sent,
		TotalBytes:  img.Len(),
		Percentage:  100,
		LastStatus:  protocol.StatusComplete,
		Elapsed:     time.Since(start),
	})

	s.logInfo("firmware update complete",
		"bytes", sent,
		"chunks", total,
		"elapsed", time.Since(start).String(),
	)
	return nil
}

// querySectorSize asks the bootloader for its flash write granularity. The
// reply byte counts KiB units; it sizes the transfer chunks and is queried
// fresh for every update.
func (s *Session) querySectorSize(ctx context.Context) (int, error) {
	payload, err := s.command(ctx, protocol.OpGetSectorSize, protocol.SectorReplyLen)
	if err != nil {
		return 0, fmt.Errorf("sector size query: %w", err)
	}

	size := int(payload[0])
	if size <= 0 {
		return 0, &protocol.ProtocolError{Operation: "sector size query", Status: payload[0]}
	}
	return size, nil
}

func (s *Session) requestUpdate(ctx context.Context) error {
	payload, err := s.command(ctx, protocol.OpUpdate, protocol.AckLen)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	if payload[0] != protocol.StatusOK {
		return &protocol.ProtocolError{Operation: "update request", Status: payload[0]}
	}
	return nil
}

func (s *Session) announceSize(ctx context.Context, size int) error {
	var raw [protocol.FileSizeLen]byte
	binary.LittleEndian.PutUint32(raw[:], uint32(size))

	payload, err := s.exchange(ctx, protocol.AppendSum(raw[:]), protocol.AckLen)
	if err != nil {
		return fmt.Errorf("file size announce: %w", err)
	}
	if payload[0] != protocol.StatusOK {
		return &protocol.ProtocolError{Operation: "file size announce", Status: payload[0]}
	}
	return nil
}

func (s *Session) sendChunk(ctx context.Context, chunk firmware.Chunk) (byte, error) {
	frame := make([]byte, 0, len(chunk.Data)+1)
	frame = append(frame, chunk.Data...)
	frame = append(frame, chunk.Sum)

	payload, err := s.exchange(ctx, frame, protocol.AckLen)
	if err != nil {
		return 0, err
	}
	return payload[0], nil
}

// checkChunkStatus interprets a per-chunk acknowledgment. Every chunk but
// the last must be answered with the plain OK status; the last must be
// answered with flash-complete. A premature flash-complete means the MCU's
// write cursor and the host disagree, which is as fatal as a rejection.
func checkChunkStatus(status byte, final bool) error {
	if final {
		if status != protocol.StatusComplete {
			return &protocol.ProtocolError{Operation: "flash completion", Status: status}
		}
		return nil
	}
	if status != protocol.StatusOK {
		return &protocol.ProtocolError{Operation: "chunk transfer", Status: status}
	}
	return nil
}

// StartApp hands control from the bootloader to the flashed application.
// The bootloader validates the application image before jumping to it; a
// missing or negative acknowledgment surfaces as *AppStartError.
func (s *Session) StartApp(ctx context.Context) error {
	if err := s.begin("app start", StateStartingApp); err != nil {
		return err
	}
	return s.finish(s.startApp(ctx))
}

func (s *Session) startApp(ctx context.Context) error {
	payload, err := s.command(ctx, protocol.OpStartApp, protocol.AckLen)
	if err != nil {
		return &AppStartError{Err: err}
	}
	if payload[0] != protocol.StatusOK {
		return &AppStartError{Err: &protocol.ProtocolError{Operation: "app start", Status: payload[0]}}
	}

	s.logInfo("application started")
	return nil
}

// RequestBootloader asks a running application to reset into the bootloader
// without a power cycle. Only applications built with re-entry support act
// on the request. The session must be fresh: the request is written at the
// application's line speed before any handshake has happened.
//
// The sequence probes with a version query first, because the MCU may
// already sit in the bootloader; in that case nothing is sent to the
// application. Otherwise the re-entry magic goes out at the request baud,
// the MCU is given time to reset, and the mode switch is confirmed by a
// fresh handshake and version query at the bootloader speed. On success the
// session is ready for further operations.
func (s *Session) RequestBootloader(ctx context.Context) (protocol.Version, error) {
	if s.handshakeDone || s.state != StateDisconnected {
		return protocol.Version{}, &StateError{Op: "bootloader request", State: s.state}
	}

	s.state = StateRequestingBootloader
	v, err := s.requestBootloader(ctx)
	if err != nil {
		s.fail()
		return protocol.Version{}, err
	}

	s.state = StateReady
	s.handshakeDone = true
	return v, nil
}

func (s *Session) requestBootloader(ctx context.Context) (protocol.Version, error) {
	if v, err := s.version(ctx); err == nil {
		s.logInfo("already in bootloader", "version", v.String())
		return v, nil
	}

	s.logDebug("requesting bootloader re-entry", "baud", s.config.RequestBaud)

	prev := s.transport.Baud()
	if err := s.transport.SetBaud(s.config.RequestBaud); err != nil {
		return protocol.Version{}, fmt.Errorf("switch to request baud: %w", err)
	}
	if err := s.transport.Send([]byte(protocol.RebootMagic)); err != nil {
		return protocol.Version{}, fmt.Errorf("send bootloader request: %w", err)
	}

	// The application needs a moment to act on the request and reset.
	select {
	case <-ctx.Done():
		return protocol.Version{}, ctx.Err()
	case <-time.After(s.config.RequestSettle):
	}

	if err := s.transport.SetBaud(prev); err != nil {
		return protocol.Version{}, fmt.Errorf("restore baud: %w", err)
	}
	if err := s.transport.ResetInput(); err != nil {
		return protocol.Version{}, fmt.Errorf("flush input: %w", err)
	}

	if err := s.handshake(ctx, s.config.HandshakeWindow); err != nil {
		return protocol.Version{}, err
	}
	return s.version(ctx)
}

// begin guards an operation: the handshake must be confirmed and no other
// operation may be in flight.
func (s *Session) begin(op string, next State) error {
	if !s.handshakeDone || s.state != StateReady {
		return &StateError{Op: op, State: s.state}
	}
	s.state = next
	return nil
}

// finish returns the session to ready on success. Any failure disconnects
// the session and revokes the handshake; retrying then takes a fresh
// handshake, and for most failures a power cycle of the MCU first.
func (s *Session) finish(err error) error {
	if err != nil {
		s.fail()
		return err
	}
	s.state = StateReady
	return nil
}

func (s *Session) fail() {
	s.state = StateDisconnected
	s.handshakeDone = false
}

// command runs one bare opcode command and returns the checksum-validated
// reply payload.
func (s *Session) command(ctx context.Context, op byte, replyLen int) ([]byte, error) {
	return s.exchange(ctx, protocol.Frame{Op: op}.Encode(), replyLen)
}

// exchange writes one frame and reads back a reply of replyLen bytes,
// returning the payload with its trailing checksum validated and stripped.
func (s *Session) exchange(ctx context.Context, frame []byte, replyLen int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.logDebug("tx", "len", len(frame), "bytes", fmt.Sprintf("% X", frame))
	if err := s.transport.Send(frame); err != nil {
		return nil, err
	}

	raw, err := s.transport.Receive(replyLen, s.config.ResponseTimeout)
	if err != nil {
		return nil, err
	}
	s.logDebug("rx", "len", len(raw), "bytes", fmt.Sprintf("% X", raw))

	return protocol.ParseReply(raw)
}

// isTimeout reports whether err marks a lapsed bounded wait rather than a
// broken transport.
func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func (s *Session) reportProgress(progress Progress) {
	if s.config.ProgressCallback != nil {
		s.config.ProgressCallback(progress)
	}
}

func (s *Session) logDebug(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, keysAndValues...)
	}
}

func (s *Session) logInfo(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Info(msg, keysAndValues...)
	}
}

func (s *Session) logError(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Error(msg, keysAndValues...)
	}
}

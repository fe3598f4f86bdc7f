package bootloader

import (
	"errors"
	"fmt"
	"time"
)

// HandshakeTimeoutError indicates that the bootloader never echoed the
// handshake probe inside the acceptance window. The window belongs to the
// MCU: its bootloader listens for a fixed time after power-up and then
// launches the application, so once it has lapsed on the device, waiting
// longer on the host cannot help.
type HandshakeTimeoutError struct {
	// Window is the host-side wait that elapsed
	Window time.Duration
}

func (e *HandshakeTimeoutError) Error() string {
	return fmt.Sprintf("no handshake echo within %s, power-cycle the MCU and retry", e.Window)
}

// StateError indicates an operation attempted in a state that does not
// allow it, such as a version query before the handshake.
type StateError struct {
	// Op is the rejected operation
	Op string

	// State is the session state at the time of the call
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s not allowed in state %q", e.Op, e.State)
}

// UpdateError indicates a failed firmware update. The update aborts on the
// first failure because a half-written sector has undefined flash content;
// the whole transfer must be restarted on a fresh handshake.
type UpdateError struct {
	// Stage is the update stage that failed ("query", "announce",
	// "transfer")
	Stage string

	// Chunk is the zero-based index of the failing chunk, meaningful in
	// the transfer stage only
	Chunk int

	// Err is the underlying failure
	Err error
}

func (e *UpdateError) Error() string {
	if e.Stage == StageTransfer {
		return fmt.Sprintf("firmware update failed at chunk %d: %v", e.Chunk, e.Err)
	}
	return fmt.Sprintf("firmware update failed during %s: %v", e.Stage, e.Err)
}

func (e *UpdateError) Unwrap() error {
	return e.Err
}

// AppStartError indicates that the application start command was not
// acknowledged. The bootloader refuses to start an application whose
// integrity check fails.
type AppStartError struct {
	// Err is the underlying failure
	Err error
}

func (e *AppStartError) Error() string {
	return fmt.Sprintf("application start failed: %v", e.Err)
}

func (e *AppStartError) Unwrap() error {
	return e.Err
}

// IsHandshakeTimeout reports whether err is or wraps a
// *HandshakeTimeoutError.
func IsHandshakeTimeout(err error) bool {
	var e *HandshakeTimeoutError
	return errors.As(err, &e)
}

// IsStateError reports whether err is or wraps a *StateError.
func IsStateError(err error) bool {
	var e *StateError
	return errors.As(err, &e)
}

// IsUpdateError reports whether err is or wraps an *UpdateError.
func IsUpdateError(err error) bool {
	var e *UpdateError
	return errors.As(err, &e)
}

// IsAppStartError reports whether err is or wraps an *AppStartError.
func IsAppStartError(err error) bool {
	var e *AppStartError
	return errors.As(err, &e)
}

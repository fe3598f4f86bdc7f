package transport

import (
	"errors"
	"fmt"
	"time"
)

// ConnectionError reports a failed operation on the serial device itself:
// the port could not be opened, written, reconfigured, or closed.
type ConnectionError struct {
	// Device is the serial device path
	Device string

	// Op is the port operation that failed
	Op string

	// Err is the underlying serial layer error
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("serial %s on %s: %v", e.Op, e.Device, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// TimeoutError reports that an expected reply did not arrive in full within
// the bounded wait. The port itself is healthy; the MCU stayed silent.
type TimeoutError struct {
	// Want is the number of bytes the read waited for
	Want int

	// Got is the number of bytes that arrived before the wait elapsed
	Got int

	// Wait is the bounded wait that elapsed
	Wait time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("read timed out after %s: got %d of %d bytes", e.Wait, e.Got, e.Want)
}

// Timeout reports true, following the net.Error convention, so callers can
// recognize a lapsed wait without referring to this package.
func (e *TimeoutError) Timeout() bool {
	return true
}

// IsTimeout reports whether err is or wraps a *TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsConnectionError reports whether err is or wraps a *ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

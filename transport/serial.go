// Package transport owns the serial connection to a K1 MCU: opening the
// port, byte-level sends, bounded receives, and live baud switching for the
// bootloader re-entry request. It performs no retries and keeps no protocol
// state; failures propagate to the caller untouched.
package transport

import (
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/Fiddl3/k1-mcu-flasher/protocol"
)

// Config holds the port configuration.
type Config struct {
	// Baud is the line speed the port is opened at
	Baud int
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Baud: protocol.BootloaderBaud,
	}
}

// Option is a functional option for configuring the port.
type Option func(*Config)

// WithBaud sets the line speed the port is opened at.
// Default is the bootloader speed, 115200.
func WithBaud(baud int) Option {
	return func(c *Config) {
		if baud > 0 {
			c.Baud = baud
		}
	}
}

// Port is an open serial connection to an MCU, 8N1.
type Port struct {
	dev  string
	baud int
	port serial.Port
}

// Open opens the serial device at the configured speed.
//
// Example:
//
//	port, err := transport.Open("/dev/ttyS7")
//	if err != nil {
//	    return err
//	}
//	defer port.Close()
func Open(device string, opts ...Option) (*Port, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	p, err := serial.Open(device, portMode(cfg.Baud))
	if err != nil {
		return nil, &ConnectionError{Device: device, Op: "open", Err: err}
	}

	return &Port{dev: device, baud: cfg.Baud, port: p}, nil
}

// portMode builds the 8N1 mode for a line speed.
func portMode(baud int) *serial.Mode {
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// Device returns the device path the port was opened on.
func (p *Port) Device() string {
	return p.dev
}

// Baud returns the current line speed.
func (p *Port) Baud() int {
	return p.baud
}

// SetBaud switches the open port to a new line speed.
func (p *Port) SetBaud(baud int) error {
	if err := p.port.SetMode(portMode(baud)); err != nil {
		return &ConnectionError{Device: p.dev, Op: "set baud", Err: err}
	}
	p.baud = baud
	return nil
}

// Send writes the whole buffer to the port.
func (p *Port) Send(data []byte) error {
	n, err := p.port.Write(data)
	if err != nil {
		return &ConnectionError{Device: p.dev, Op: "write", Err: err}
	}
	if n != len(data) {
		return &ConnectionError{
			Device: p.dev,
			Op:     "write",
			Err:    fmt.Errorf("wrote %d of %d bytes", n, len(data)),
		}
	}
	return nil
}

// Receive reads exactly n bytes, failing with *TimeoutError once the
// deadline passes. The serial layer reports an idle line as a zero-byte
// read; that idle time counts against the deadline.
func (p *Port) Receive(n int, timeout time.Duration) ([]byte, error) {
	buf := make([]byte, n)
	got := 0
	deadline := time.Now().Add(timeout)

	for got < n {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, &TimeoutError{Want: n, Got: got, Wait: timeout}
		}
		if err := p.port.SetReadTimeout(remaining); err != nil {
			return nil, &ConnectionError{Device: p.dev, Op: "set read timeout", Err: err}
		}

		r, err := p.port.Read(buf[got:])
		if err != nil {
			return nil, &ConnectionError{Device: p.dev, Op: "read", Err: err}
		}
		got += r
	}

	return buf, nil
}

// ResetInput discards unread bytes buffered on the port.
func (p *Port) ResetInput() error {
	if err := p.port.ResetInputBuffer(); err != nil {
		return &ConnectionError{Device: p.dev, Op: "reset input", Err: err}
	}
	return nil
}

// Close closes the port.
func (p *Port) Close() error {
	if err := p.port.Close(); err != nil {
		return &ConnectionError{Device: p.dev, Op: "close", Err: err}
	}
	return nil
}

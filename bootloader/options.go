package bootloader

import (
	"time"

	"github.com/Fiddl3/k1-mcu-flasher/protocol"
)

// Config holds the session configuration.
type Config struct {
	// Logger receives session diagnostics (optional)
	Logger Logger

	// ProgressCallback is called during firmware updates to report
	// progress (optional)
	ProgressCallback ProgressCallback

	// HandshakeWindow bounds the handshake poll loop. It mirrors the
	// acceptance window of the MCU bootloader, which listens for roughly
	// 15 seconds after power-up; stretching the host-side window past that
	// only adds waiting.
	HandshakeWindow time.Duration

	// HandshakePoll is the wait for an echo after each handshake probe
	HandshakePoll time.Duration

	// ResponseTimeout is the wait for a single framed response
	ResponseTimeout time.Duration

	// RequestBaud is the application-mode line speed used to deliver a
	// bootloader re-entry request
	RequestBaud int

	// RequestSettle is the wait for the application to act on a re-entry
	// request and reset
	RequestSettle time.Duration
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		HandshakeWindow: 15 * time.Second,
		HandshakePoll:   500 * time.Millisecond,
		ResponseTimeout: 2 * time.Second,
		RequestBaud:     protocol.ApplicationBaud,
		RequestSettle:   time.Second,
	}
}

// Option is a functional option for configuring the Session.
type Option func(*Config)

// WithLogger sets a logger for session diagnostics.
//
// Example:
//
//	session := bootloader.New(port, bootloader.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithProgressCallback sets a callback to track firmware update progress.
//
// Example:
//
//	session := bootloader.New(port,
//	    bootloader.WithProgressCallback(func(p bootloader.Progress) {
//	        fmt.Printf("%.1f%% complete\n", p.Percentage)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithHandshakeWindow sets how long a handshake polls for the bootloader
// echo. The default matches the bootloader's own acceptance window.
//
// Example:
//
//	session := bootloader.New(port, bootloader.WithHandshakeWindow(20*time.Second))
func WithHandshakeWindow(window time.Duration) Option {
	return func(c *Config) {
		c.HandshakeWindow = window
	}
}

// WithHandshakePoll sets the per-probe echo wait inside the handshake loop.
//
// Example:
//
//	session := bootloader.New(port, bootloader.WithHandshakePoll(250*time.Millisecond))
func WithHandshakePoll(poll time.Duration) Option {
	return func(c *Config) {
		if poll > 0 {
			c.HandshakePoll = poll
		}
	}
}

// WithResponseTimeout sets the wait for a single framed response.
//
// Example:
//
//	session := bootloader.New(port, bootloader.WithResponseTimeout(5*time.Second))
func WithResponseTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.ResponseTimeout = timeout
	}
}

// WithRequestBaud sets the application line speed used to deliver a
// bootloader re-entry request. Default is 230400, the speed a stock K1
// application serial link runs at.
//
// Example:
//
//	session := bootloader.New(port, bootloader.WithRequestBaud(250000))
func WithRequestBaud(baud int) Option {
	return func(c *Config) {
		if baud > 0 {
			c.RequestBaud = baud
		}
	}
}

// WithRequestSettle sets the wait between sending a re-entry request and
// probing for the bootloader.
//
// Example:
//
//	session := bootloader.New(port, bootloader.WithRequestSettle(2*time.Second))
func WithRequestSettle(settle time.Duration) Option {
	return func(c *Config) {
		if settle > 0 {
			c.RequestSettle = settle
		}
	}
}

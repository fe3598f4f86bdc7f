// Package bootloader drives the serial bootloader of Creality K1 series
// MCUs through its ordered protocol stages.
//
// # Overview
//
// A Session owns one connection to an MCU and walks it through an explicit
// state machine:
//
//	Disconnected -> Handshaking -> Ready -> {QueryingVersion | Updating |
//	StartingApp} -> Ready, or Disconnected on any failure
//
// The handshake must succeed before anything else: the MCU bootloader
// listens for the probe only during a short window after power-up, and all
// later operations check the confirmed handshake rather than repeating it.
// The wire protocol is half-duplex with one request in flight, so every
// operation blocks until its response is validated or its wait lapses.
//
// # Basic Usage
//
// Query the version of a freshly powered-up MCU:
//
//	port, err := transport.Open("/dev/ttyS7")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	session := bootloader.New(port)
//	if err := session.Handshake(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	version, err := session.Version(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(version)
//
// # Updating Firmware
//
// An update queries the flash sector size, announces the image, then
// transfers it chunk by chunk, each chunk acknowledged before the next:
//
//	img, err := firmware.Load("mcu.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := session.UpdateFirmware(ctx, img); err != nil {
//	    log.Fatal(err)
//	}
//	if err := session.StartApp(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// A failed update leaves undefined flash content; the session disconnects
// and the transfer must be restarted from the beginning after a fresh
// handshake, which usually means power-cycling the MCU.
//
// # Re-entering The Bootloader
//
// A running application built with re-entry support can be asked to reset
// into the bootloader without a power cycle. This only works on a fresh
// session, before any handshake:
//
//	session := bootloader.New(port)
//	version, err := session.RequestBootloader(ctx)
//
// # Progress Tracking
//
// Track update progress with a callback:
//
//	session := bootloader.New(port,
//	    bootloader.WithProgressCallback(func(p bootloader.Progress) {
//	        fmt.Printf("[%s] %.1f%% - chunk %d/%d\n",
//	            p.Stage, p.Percentage, p.Chunk, p.TotalChunks)
//	    }),
//	)
//
// # Configuration Options
//
// Customize behavior with functional options:
//
//	session := bootloader.New(port,
//	    bootloader.WithLogger(myLogger),
//	    bootloader.WithHandshakeWindow(15*time.Second),
//	    bootloader.WithHandshakePoll(500*time.Millisecond),
//	    bootloader.WithResponseTimeout(2*time.Second),
//	    bootloader.WithRequestBaud(230400),
//	)
//
// # Context Support
//
// All operations take a context for cancellation. A cancelled handshake or
// update stops between exchanges; the caller then closes the port, which is
// the only cleanup the protocol needs.
//
// # Error Handling
//
// The package reports each failure kind with its own type:
//   - HandshakeTimeoutError: no echo inside the acceptance window
//   - StateError: operation not allowed in the current state
//   - UpdateError: any failure during an update, with stage and chunk
//   - AppStartError: application start not acknowledged
//   - protocol.ProtocolError: well-formed but negative MCU response
//
// No operation retries on its own. Retrying against unknown flash state is
// unsafe, so retry policy stays with the caller.
//
// # Transport Independence
//
// A Session speaks through the small Transport interface. transport.Port
// implements it over a real serial device; tests substitute a scripted
// in-memory MCU.
package bootloader

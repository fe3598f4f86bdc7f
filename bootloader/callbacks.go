package bootloader

import "time"

// Update stages reported through Progress.Stage.
const (
	// StageQuery is the sector-size query that sizes the transfer chunks
	StageQuery = "query"

	// StageAnnounce covers the update request and the file size exchange
	StageAnnounce = "announce"

	// StageTransfer is the ordered chunk transfer
	StageTransfer = "transfer"

	// StageComplete marks a fully acknowledged update
	StageComplete = "complete"
)

// Progress contains information about a running firmware update.
// Passed to ProgressCallback after each acknowledged exchange.
type Progress struct {
	// Stage is the current update stage:
	//   "query"    - querying the flash sector size
	//   "announce" - announcing the transfer and the image size
	//   "transfer" - sending firmware chunks
	//   "complete" - update fully acknowledged
	Stage string

	// Chunk is the number of chunks acknowledged so far
	Chunk int

	// TotalChunks is the number of chunks the transfer consists of
	TotalChunks int

	// BytesSent is the number of image bytes acknowledged so far
	BytesSent int

	// TotalBytes is the image size in bytes
	TotalBytes int

	// Percentage is the completion percentage (0.0 to 100.0)
	Percentage float64

	// LastStatus is the most recent acknowledgment status byte
	LastStatus byte

	// Elapsed is the time since the update began
	Elapsed time.Duration
}

// ProgressCallback is called during a firmware update to report progress.
// Implementations should return quickly; the wire protocol is synchronous
// and the next chunk waits for the callback.
//
// Example:
//
//	session := bootloader.New(port,
//	    bootloader.WithProgressCallback(func(p bootloader.Progress) {
//	        fmt.Printf("[%s] %.1f%% - chunk %d/%d\n",
//	            p.Stage, p.Percentage, p.Chunk, p.TotalChunks)
//	    }),
//	)
type ProgressCallback func(Progress)

// Logger is an optional logging interface that can be provided to the
// session. This allows integration with any logging framework.
//
// Example with standard log package:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
//
//	session := bootloader.New(port, bootloader.WithLogger(&StdLogger{}))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}

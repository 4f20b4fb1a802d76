package ports

import "io"

// Logger defines the interface for logging.
//
//go:generate mockgen -source=logger.go -destination=mocks/mock_logger.go -package=mocks
type Logger interface {
	// Debug logs a verbose diagnostic message.
	Debug(msg string)
	// Info logs an informational message.
	Info(msg string)
	// Warn logs a warning message.
	Warn(msg string)
	// Error logs an error along with its cause chain.
	Error(err error)
	// SetOutput changes where log lines are written.
	SetOutput(w io.Writer)
	// SetJSON switches between JSON and pretty output.
	SetJSON(enable bool)
	// SetVerbose enables debug output.
	SetVerbose(enable bool)
}

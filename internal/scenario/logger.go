package scenario

import (
	"fmt"
	"os"
)

// RunLogger provides per-run logging for scenario and consistency
// execution, separate from the global structured logger so parallel runs
// can prefix or silence their own output.
type RunLogger interface {
	// Debug logs debug-level messages (only shown when debug is enabled)
	Debug(format string, args ...interface{})
	// Info logs info-level messages (shown when verbose or debug is enabled)
	Info(format string, args ...interface{})
	// Error logs error-level messages (always shown)
	Error(format string, args ...interface{})
	// IsDebugEnabled returns whether debug logging is enabled
	IsDebugEnabled() bool
}

// stdoutLogger implements RunLogger for CLI mode, writing to stdout/stderr.
type stdoutLogger struct {
	verbose bool
	debug   bool
}

// NewStdoutLogger creates a logger that outputs to stdout/stderr.
func NewStdoutLogger(verbose, debug bool) RunLogger {
	return &stdoutLogger{
		verbose: verbose,
		debug:   debug,
	}
}

func (l *stdoutLogger) Debug(format string, args ...interface{}) {
	if l.debug {
		fmt.Printf(format, args...)
	}
}

func (l *stdoutLogger) Info(format string, args ...interface{}) {
	if l.verbose || l.debug {
		fmt.Printf(format, args...)
	}
}

func (l *stdoutLogger) Error(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
}

func (l *stdoutLogger) IsDebugEnabled() bool {
	return l.debug
}

// silentLogger implements RunLogger for embedded use, suppressing all output.
type silentLogger struct{}

// NewSilentLogger creates a logger that suppresses all output.
func NewSilentLogger() RunLogger {
	return &silentLogger{}
}

func (l *silentLogger) Debug(format string, args ...interface{}) {}
func (l *silentLogger) Info(format string, args ...interface{})  {}
func (l *silentLogger) Error(format string, args ...interface{}) {}
func (l *silentLogger) IsDebugEnabled() bool                     { return false }

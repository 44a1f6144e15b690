// Package logging provides a structured logging system for craftcheck with
// unified log handling and level filtering.
//
// This package is built on Go's standard slog package. All log entries carry a
// timestamp, a level, a subsystem identifier for categorization, the message,
// and optional error information.
//
// # Usage
//
//	import "craftcheck/pkg/logging"
//
//	// Initialize with Info level logging to stdout
//	logging.InitForCLI(logging.LevelInfo, os.Stdout)
//
//	logging.Info("Bootstrap", "Application starting up")
//	logging.Debug("Config", "Loaded configuration from %s", configPath)
//	logging.Warn("Backend", "Backend %s not yet healthy", name)
//	logging.Error("RCON", err, "Failed to connect to %s", addr)
//
// # Subsystem Organization
//
// Logs are organized by subsystem to enable filtering:
//
//   - **Bootstrap**: Application initialization and startup
//   - **Config**: Configuration loading and validation
//   - **RCON**: Binary console-protocol client operations
//   - **Bridge**: Bot-bridge HTTP client operations
//   - **Backend**: Backend lifecycle and dispatch
//   - **Executor**: Scenario execution
//   - **State**: Snapshot capture and comparison
//   - **Consistency**: Cross-backend consistency runs
//
// # Thread Safety
//
// The logging system is fully thread-safe; concurrent logging from multiple
// goroutines is supported via slog's handler model.
package logging

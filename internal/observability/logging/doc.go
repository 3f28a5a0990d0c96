// Package logging provides structured logging utilities with context propagation.
//
// This package wraps the standard library's log/slog package with helper functions
// for common logging patterns used throughout the application.
//
// Key features:
//   - JSON and text output formats
//   - Run ID tagging (WithRunID)
//   - Context-aware logging
//   - Debug or info level, selected by LOG_LEVEL
//
// Example usage:
//
//	import "catchupfeed/internal/observability/logging"
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("application started", slog.String("version", "1.0"))
//	}
//
//	func runPhase(logger *slog.Logger, runID int64) {
//	    logger = logging.WithRunID(logger, runID)
//	    logger.Info("phase started")
//	}
package logging

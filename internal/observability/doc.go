// Package observability provides shared logging infrastructure for the
// pipeline. Each stage (crawl, image, llmorch, driver) registers its own
// Prometheus collectors next to the code that emits them rather than through
// a shared metrics registry, since the pipeline runs as a single process with
// no inbound HTTP surface to instrument centrally.
//
// Subpackages:
//   - logging: structured logging utilities built on log/slog
//
// Example usage:
//
//	import "catchupfeed/internal/observability/logging"
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("driver started")
//	}
package observability

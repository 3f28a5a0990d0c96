// Command catchupfeed is the pipeline driver's one-shot CLI entrypoint: a
// supervisor that sequences the crawl, image-stage, and LLM-enrichment
// phases against a shared SQLite store for a single invocation. See
// cmd/catchupfeed-cron for the scheduled variant.
//
// Composition follows the teacher's cmd/worker/main.go shape (init
// logger, init database, construct per-stage services, dispatch); the
// cron loop is replaced by an explicit flag-selected phase list, since
// this entrypoint runs once per invocation rather than scheduled
// in-process.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"catchupfeed/internal/driver"
	"catchupfeed/internal/observability/logging"
)

func main() {
	fs := flag.NewFlagSet("catchupfeed", flag.ExitOnError)
	var f driver.Flags
	var purge, verify, verbose bool
	fs.BoolVar(&f.Full, "full", false, "run crawl, image, and enrichment phases in sequence")
	fs.BoolVar(&purge, "purge", false, "drop enrichment-derived tables and reset article enrichment flags")
	fs.BoolVar(&f.Mine, "mine", false, "run the crawl phase")
	fs.BoolVar(&f.Images, "images", false, "run the image rendition phase")
	fs.BoolVar(&f.Deepseek, "deepseek", false, "run the LLM enrichment phase")
	fs.BoolVar(&verify, "verify", false, "emit a JSON health report and exit")
	fs.IntVar(&f.ArticlesPerSeed, "articles-per-seed", 2, "override the crawler's per-feed acceptance cap")
	fs.BoolVar(&f.DryRun, "dry-run", false, "log planned actions without performing writes")
	fs.BoolVar(&verbose, "v", false, "enable debug logging")
	fs.BoolVar(&verbose, "verbose", false, "enable debug logging")
	_ = fs.Parse(os.Args[1:])

	logger := initLogger(verbose)
	database := driver.InitDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	d := driver.New(logger, database)

	if verify {
		printJSON(logger, d.Verify(context.Background()))
		return
	}

	if purge {
		if err := d.Purge(f.DryRun); err != nil {
			logger.Error("purge failed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	if !f.AnyPhaseSelected() && !purge {
		logger.Error("no phase selected; pass --full, --mine, --images, --deepseek, --purge, or --verify")
		os.Exit(2)
	}

	if f.AnyPhaseSelected() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		d.RunPipeline(ctx, f)
	}
}

func initLogger(verbose bool) *slog.Logger {
	if verbose {
		os.Setenv("LOG_LEVEL", "debug")
	}
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

func printJSON(logger *slog.Logger, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Error("failed to marshal report", slog.Any("error", err))
		os.Exit(1)
	}
	fmt.Println(string(data))
}

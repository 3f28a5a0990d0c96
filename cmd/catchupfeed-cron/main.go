// Command catchupfeed-cron wraps the pipeline driver with a cron
// schedule and a liveness/readiness HTTP server, for operators who want
// an always-running process instead of invoking cmd/catchupfeed from an
// external scheduler. Adapted directly from the teacher's
// cmd/worker/main.go cron/health composition; the job body is now the
// full driver pipeline instead of a single crawl call.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"catchupfeed/internal/crawl"
	"catchupfeed/internal/driver"
	"catchupfeed/internal/infra/worker"
	"catchupfeed/internal/observability/logging"
)

func main() {
	logger := initLogger()
	database := driver.InitDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	metrics := worker.NewWorkerMetrics()
	metrics.MustRegister()
	cfg, err := worker.LoadConfigFromEnv(logger, metrics)
	if err != nil {
		logger.Error("failed to load cron configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("cron configuration loaded",
		slog.String("cron_schedule", cfg.CronSchedule),
		slog.String("timezone", cfg.Timezone),
		slog.Duration("crawl_timeout", cfg.CrawlTimeout),
		slog.Int("health_port", cfg.HealthPort))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthAddr := fmt.Sprintf(":%d", cfg.HealthPort)
	healthServer := worker.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	d := driver.New(logger, database)
	startCronLoop(logger, d, cfg, metrics, healthServer)
}

func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

func startCronLoop(logger *slog.Logger, d *driver.Driver, cfg *worker.WorkerConfig, metrics *worker.WorkerMetrics, healthServer *worker.HealthServer) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.CronSchedule, func() {
		runPipelineJob(logger, d, cfg, metrics)
	})
	if err != nil {
		logger.Error("failed to add cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()

	healthServer.SetReady(true)
	logger.Info("cron driver started", slog.String("schedule", cfg.CronSchedule), slog.String("timezone", cfg.Timezone))
	select {}
}

func runPipelineJob(logger *slog.Logger, d *driver.Driver, cfg *worker.WorkerConfig, metrics *worker.WorkerMetrics) {
	start := time.Now()
	metrics.RecordJobRun("started")
	logger.Info("pipeline run started")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.CrawlTimeout)
	defer cancel()

	results := d.RunPipeline(ctx, driver.Flags{Full: true})

	metrics.RecordJobDuration(time.Since(start).Seconds())
	if crawlStats, ok := results["crawl"].(*crawl.Stats); ok && crawlStats != nil {
		metrics.RecordFeedsProcessed(crawlStats.Feeds)
	}
	metrics.RecordJobRun("success")
	metrics.RecordLastSuccess()
	logger.Info("pipeline run completed", slog.Any("results", results))
}

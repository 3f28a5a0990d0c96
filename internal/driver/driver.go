// Package driver implements the pipeline supervisor shared by the
// one-shot cmd/catchupfeed CLI and the cmd/catchupfeed-cron scheduler. It
// sequences the crawl, image-stage, and LLM-enrichment phases against a
// shared SQLite store and never writes to the articles table itself;
// every mutation is made by the phase it dispatches to.
package driver

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"catchupfeed/internal/clean"
	"catchupfeed/internal/crawl"
	"catchupfeed/internal/imagestage"
	"catchupfeed/internal/infra/adapter/persistence/sqlite"
	"catchupfeed/internal/infra/db"
	"catchupfeed/internal/llmorch"
	"catchupfeed/internal/observability/logging"
	"catchupfeed/internal/repository"
)

// Flags selects which phases a Driver run performs and how.
type Flags struct {
	Full            bool
	Mine            bool
	Images          bool
	Deepseek        bool
	ArticlesPerSeed int
	DryRun          bool
}

// AnyPhaseSelected reports whether any of Full/Mine/Images/Deepseek is set.
func (f Flags) AnyPhaseSelected() bool {
	return f.Full || f.Mine || f.Images || f.Deepseek
}

// Driver owns the database handle and phase-run bookkeeping shared across
// every phase it dispatches.
type Driver struct {
	Logger    *slog.Logger
	DB        *sql.DB
	PhaseRuns repository.PhaseRunRepository
}

// New wires a Driver against an already-migrated database handle.
func New(logger *slog.Logger, database *sql.DB) *Driver {
	return &Driver{
		Logger:    logger,
		DB:        database,
		PhaseRuns: sqlite.NewPhaseRunRepo(database),
	}
}

// InitDatabase opens the shared store and brings its schema up to date.
// Shared by every entrypoint so the schema bootstrap lives in one place.
func InitDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("migration failed", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// RunPipeline runs the phases selected by f once, writing a
// log/pipeline_results_<runID>.json summary when f.Full is set, and
// returns the per-phase results keyed by phase name.
func (d *Driver) RunPipeline(ctx context.Context, f Flags) map[string]any {
	results := make(map[string]any)
	runID := time.Now().UTC().Format("20060102T150405Z")

	if f.Full || f.Mine {
		results["crawl"] = d.runPhase(ctx, "crawl", runID, f.DryRun, func() (any, error) {
			return d.runCrawlPhase(ctx, f)
		})
	}
	if f.Full || f.Images {
		results["imagestage"] = d.runPhase(ctx, "imagestage", runID, f.DryRun, func() (any, error) {
			return d.runImageStagePhase(ctx)
		})
	}
	if f.Full || f.Deepseek {
		results["enrichment"] = d.runPhase(ctx, "enrichment", runID, f.DryRun, func() (any, error) {
			return d.runEnrichmentPhase(ctx)
		})
	}

	if f.Full {
		d.writePipelineResults(runID, results)
	}
	return results
}

// Purge drops the enrichment-derived tables and resets article
// enrichment flags, the --purge operation.
func (d *Driver) Purge(dryRun bool) error {
	if dryRun {
		d.Logger.Info("dry run: skipping purge")
		return nil
	}
	d.Logger.Info("purging enrichment-derived tables")
	if err := db.MigrateDownEnrichmentOnly(d.DB); err != nil {
		return fmt.Errorf("purge: %w", err)
	}
	return nil
}

// Verify builds the JSON-serializable health report for --verify: basic
// DB connectivity plus the most recent phase_runs entries. Stands in for
// the teacher's HTTP liveness/readiness endpoints since the driver is a
// CLI, not a daemon, and has no socket of its own to probe.
func (d *Driver) Verify(ctx context.Context) map[string]any {
	report := map[string]any{"ts": time.Now().UTC().Format(time.RFC3339)}

	if err := d.DB.PingContext(ctx); err != nil {
		report["database"] = "unreachable"
		report["error"] = err.Error()
	} else {
		report["database"] = "ok"
	}

	recent, err := d.PhaseRuns.Recent(ctx, 10)
	if err != nil {
		d.Logger.Warn("failed to load recent phase runs", slog.Any("error", err))
	}
	runsReport := make([]map[string]any, 0, len(recent))
	for _, r := range recent {
		entry := map[string]any{
			"phase":      r.Phase,
			"started_at": r.StartedAt.Format(time.RFC3339),
		}
		if r.EndedAt != nil {
			entry["ended_at"] = r.EndedAt.Format(time.RFC3339)
		}
		if r.ExitCode != nil {
			entry["exit_code"] = *r.ExitCode
		}
		runsReport = append(runsReport, entry)
	}
	report["recent_runs"] = runsReport
	return report
}

// runPhase wraps a phase's execution with a phase_runs audit record and a
// dedicated log/phase_<name>_<ts>.log file, returning a JSON-serializable
// counts summary for the pipeline results document.
func (d *Driver) runPhase(ctx context.Context, name, runID string, dryRun bool, fn func() (any, error)) any {
	started := time.Now().UTC()
	logFile, closeLog := openPhaseLog(d.Logger, name, runID)
	defer closeLog()

	phaseLogger := slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug}))
	phaseLogger.Info("phase started", slog.String("phase", name), slog.Bool("dry_run", dryRun))

	id, err := d.PhaseRuns.Start(ctx, name, started)
	if err != nil {
		d.Logger.Warn("failed to record phase start", slog.String("phase", name), slog.Any("error", err))
	} else {
		phaseLogger = logging.WithRunID(phaseLogger, id)
	}

	if dryRun {
		phaseLogger.Info("dry run: skipping phase execution", slog.String("phase", name))
		return map[string]any{"dry_run": true}
	}

	counts, runErr := fn()
	exitCode := 0
	if runErr != nil {
		exitCode = 1
		phaseLogger.Error("phase failed", slog.String("phase", name), slog.Any("error", runErr))
		d.Logger.Error("phase failed", slog.String("phase", name), slog.Any("error", runErr))
	} else {
		phaseLogger.Info("phase completed", slog.String("phase", name))
		d.Logger.Info("phase completed", slog.String("phase", name))
	}

	countsJSON, err := json.Marshal(counts)
	if err != nil {
		countsJSON = []byte("{}")
	}
	if id != 0 {
		if err := d.PhaseRuns.Finish(ctx, id, time.Now().UTC(), exitCode, string(countsJSON)); err != nil {
			d.Logger.Warn("failed to record phase finish", slog.String("phase", name), slog.Any("error", err))
		}
	}
	return counts
}

func openPhaseLog(logger *slog.Logger, name, runID string) (*os.File, func()) {
	if err := os.MkdirAll("log", 0o755); err != nil {
		logger.Warn("failed to create log directory, phase log disabled", slog.Any("error", err))
		return devNull(), func() {}
	}
	path := filepath.Join("log", fmt.Sprintf("phase_%s_%s.log", name, runID))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.Warn("failed to open phase log file, writing to /dev/null", slog.String("path", path), slog.Any("error", err))
		return devNull(), func() {}
	}
	return file, func() { _ = file.Close() }
}

func devNull() *os.File {
	f, err := os.Open(os.DevNull)
	if err != nil {
		return os.Stderr
	}
	return f
}

func (d *Driver) writePipelineResults(runID string, results map[string]any) {
	if err := os.MkdirAll("log", 0o755); err != nil {
		d.Logger.Warn("failed to create log directory for pipeline results", slog.Any("error", err))
		return
	}
	path := filepath.Join("log", fmt.Sprintf("pipeline_results_%s.json", runID))
	data, err := json.MarshalIndent(map[string]any{
		"run_id":  runID,
		"ts":      time.Now().UTC().Format(time.RFC3339),
		"results": results,
	}, "", "  ")
	if err != nil {
		d.Logger.Warn("failed to marshal pipeline results", slog.Any("error", err))
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		d.Logger.Warn("failed to write pipeline results", slog.String("path", path), slog.Any("error", err))
		return
	}
	d.Logger.Info("pipeline results written", slog.String("path", path))
}

func (d *Driver) runCrawlPhase(ctx context.Context, f Flags) (any, error) {
	cfg := crawl.LoadConfigFromEnv(d.Logger)
	if f.ArticlesPerSeed > 0 {
		cfg.ArticlesPerSeed = f.ArticlesPerSeed
	}

	thresholds, banned := loadCleanerAssets(d.Logger)

	feeds := sqlite.NewFeedRepo(d.DB)
	articles := sqlite.NewArticleRepo(d.DB)
	crawler := crawl.NewCrawler(feeds, articles, cfg, thresholds, banned, d.Logger)

	return crawler.RunOnce(ctx)
}

func (d *Driver) runImageStagePhase(ctx context.Context) (any, error) {
	cfg := imagestage.LoadConfigFromEnv(d.Logger)
	articles := sqlite.NewArticleRepo(d.DB)
	stage := imagestage.NewStage(articles, cfg, d.Logger)
	return stage.RunOnce(ctx)
}

func (d *Driver) runEnrichmentPhase(ctx context.Context) (any, error) {
	cfg := llmorch.LoadConfigFromEnv(d.Logger)
	articles := sqlite.NewArticleRepo(d.DB)
	metrics := llmorch.NewPrometheusMetrics()

	client, err := d.buildEnrichClient(ctx, cfg, metrics)
	if err != nil {
		return nil, err
	}

	orchestrator := llmorch.NewOrchestrator(articles, client, cfg, metrics, d.Logger)
	succeeded, failed, err := orchestrator.Run(ctx)
	return map[string]any{"succeeded": succeeded, "failed": failed}, err
}

// buildEnrichClient resolves the DeepSeek credential from the apikey
// table. Missing credentials fail the phase rather than silently running
// with a no-op client, so a misconfigured deployment is loud.
func (d *Driver) buildEnrichClient(ctx context.Context, cfg llmorch.Config, metrics llmorch.MetricsRecorder) (llmorch.EnrichClient, error) {
	apiKeys := sqlite.NewAPIKeyRepo(d.DB)
	key, err := apiKeys.Get(ctx, "DeepSeek")
	if err != nil {
		return nil, fmt.Errorf("resolve DeepSeek credential: %w", err)
	}
	d.Logger.Info("resolved DeepSeek credential", slog.Bool("custom_base_url", key.BaseURL != ""))
	return llmorch.NewDeepSeekClient(key.Value, key.BaseURL, cfg, metrics), nil
}

func loadCleanerAssets(logger *slog.Logger) (clean.Thresholds, clean.BannedWords) {
	thresholds := clean.DefaultThresholds()
	if path := os.Getenv("CLEAN_THRESHOLDS_PATH"); path != "" {
		if file, err := os.Open(path); err == nil {
			defer func() { _ = file.Close() }()
			if t, _, err := clean.LoadThresholds(file); err == nil {
				thresholds = t
			} else {
				logger.Warn("failed to parse thresholds file, using defaults", slog.String("path", path), slog.Any("error", err))
			}
		} else {
			logger.Warn("failed to open thresholds file, using defaults", slog.String("path", path), slog.Any("error", err))
		}
	}

	var banned clean.BannedWords
	if path := os.Getenv("CLEAN_BANNED_WORDS_PATH"); path != "" {
		if file, err := os.Open(path); err == nil {
			defer func() { _ = file.Close() }()
			if b, err := clean.LoadBannedWords(file); err == nil {
				banned = b
			} else {
				logger.Warn("failed to parse banned words file", slog.String("path", path), slog.Any("error", err))
			}
		} else {
			logger.Warn("failed to open banned words file", slog.String("path", path), slog.Any("error", err))
		}
	}

	return thresholds, banned
}

// Package crawl implements the Crawler: for each enabled feed it fetches
// the top candidates, cleans their content, selects and downloads a
// representative image, and inserts the result as one canonical article.
// Grounded on internal/usecase/fetch/service.go's per-source worker loop,
// generalized from "one source, unbounded" to "one feed, a hard per-feed
// wall-clock budget".
package crawl

import (
	"fmt"
	"log/slog"
	"time"

	"catchupfeed/internal/pkg/config"
)

// Mode selects the min-image-bytes gate applied during image selection.
// Not surfaced as a Driver flag named in the external CLI surface; exposed
// here as a CRAWL_MODE env var for operators who need the stricter
// collection-run gate without touching code.
type Mode string

const (
	ModeQuick      Mode = "quick"
	ModeBatch      Mode = "batch"
	ModeCollection Mode = "collection"
)

// Config holds every tunable named in the crawler's responsibility
// description: per-feed and per-request budgets, the candidate pool size,
// and the sampling knobs used for reproducible partial runs.
type Config struct {
	ArticlesPerSeed int
	PerFeedTimeout  time.Duration
	HTTPTimeout     time.Duration

	CandidatePoolSize int

	Mode                    Mode
	MinImageBytesQuick      int
	MinImageBytesBatch      int
	MinImageBytesCollection int

	SampleRate int // 1-in-R; 1 means no sampling
	RandomSeed int64

	FeedConcurrency int // number of feeds processed concurrently

	// ImageOutputDir is the directory web renditions are written under.
	// Files are named by a generated identifier, not the article's semantic
	// ID: the ID is only allocated once Insert's transaction commits, after
	// the image file must already exist on disk. See acquireImage.
	ImageOutputDir string
}

// DefaultConfig returns the documented default values from the crawler's
// responsibility description.
func DefaultConfig() Config {
	return Config{
		ArticlesPerSeed:         2,
		PerFeedTimeout:          240 * time.Second,
		HTTPTimeout:             10 * time.Second,
		CandidatePoolSize:       20,
		Mode:                    ModeBatch,
		MinImageBytesQuick:      2 * 1024,
		MinImageBytesBatch:      70 * 1024,
		MinImageBytesCollection: 100 * 1024,
		SampleRate:              1,
		RandomSeed:              1,
		FeedConcurrency:         4,
		ImageOutputDir:          "website/article_image",
	}
}

// MinImageBytes returns the min-image-bytes gate for the configured mode.
func (c Config) MinImageBytes() int {
	switch c.Mode {
	case ModeQuick:
		return c.MinImageBytesQuick
	case ModeCollection:
		return c.MinImageBytesCollection
	default:
		return c.MinImageBytesBatch
	}
}

// Validate aggregates every violation of the crawler's configuration
// invariants into a single error, following the teacher's worker-config
// pattern of reporting all problems at once rather than failing fast on
// the first one.
func (c *Config) Validate() error {
	var errs []error
	if c.ArticlesPerSeed < 1 || c.ArticlesPerSeed > 50 {
		errs = append(errs, fmt.Errorf("articles per seed %d must be in [1, 50]", c.ArticlesPerSeed))
	}
	if c.PerFeedTimeout <= 0 {
		errs = append(errs, fmt.Errorf("per-feed timeout must be positive, got %v", c.PerFeedTimeout))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http timeout must be positive, got %v", c.HTTPTimeout))
	}
	if c.CandidatePoolSize < 1 {
		errs = append(errs, fmt.Errorf("candidate pool size must be positive, got %d", c.CandidatePoolSize))
	}
	if c.SampleRate < 1 {
		errs = append(errs, fmt.Errorf("sample rate must be >= 1, got %d", c.SampleRate))
	}
	if c.FeedConcurrency < 1 || c.FeedConcurrency > 64 {
		errs = append(errs, fmt.Errorf("feed concurrency %d must be in [1, 64]", c.FeedConcurrency))
	}
	if c.ImageOutputDir == "" {
		errs = append(errs, fmt.Errorf("image output dir must not be empty"))
	}
	switch c.Mode {
	case ModeQuick, ModeBatch, ModeCollection, "":
	default:
		errs = append(errs, fmt.Errorf("unknown crawl mode %q", c.Mode))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid crawl config: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads the crawler configuration from the environment,
// fail-open: any missing or unparsable value falls back to the documented
// default and is logged, never aborting the process.
func LoadConfigFromEnv(logger *slog.Logger) Config {
	cfg := DefaultConfig()

	result := config.LoadEnvInt("CRAWL_ARTICLES_PER_SEED", cfg.ArticlesPerSeed, func(v int) error {
		return config.ValidateIntRange(v, 1, 50)
	})
	cfg.ArticlesPerSeed = result.Value.(int)
	logFallback(logger, "articles_per_seed", result)

	result = config.LoadEnvDuration("CRAWL_PER_FEED_TIMEOUT", cfg.PerFeedTimeout, func(d time.Duration) error {
		return config.ValidatePositiveDuration(d)
	})
	cfg.PerFeedTimeout = result.Value.(time.Duration)
	logFallback(logger, "per_feed_timeout", result)

	result = config.LoadEnvDuration("CRAWL_HTTP_TIMEOUT", cfg.HTTPTimeout, func(d time.Duration) error {
		return config.ValidatePositiveDuration(d)
	})
	cfg.HTTPTimeout = result.Value.(time.Duration)
	logFallback(logger, "http_timeout", result)

	result = config.LoadEnvInt("CRAWL_FEED_CONCURRENCY", cfg.FeedConcurrency, func(v int) error {
		return config.ValidateIntRange(v, 1, 64)
	})
	cfg.FeedConcurrency = result.Value.(int)
	logFallback(logger, "feed_concurrency", result)

	modeStr := config.LoadEnvWithFallback("CRAWL_MODE", string(cfg.Mode), func(v string) error {
		switch Mode(v) {
		case ModeQuick, ModeBatch, ModeCollection:
			return nil
		default:
			return fmt.Errorf("unknown crawl mode %q", v)
		}
	})
	cfg.Mode = Mode(modeStr.Value.(string))
	logFallback(logger, "mode", modeStr)

	result = config.LoadEnvInt("CRAWL_SAMPLE_RATE", cfg.SampleRate, func(v int) error {
		return config.ValidateIntRange(v, 1, 1000000)
	})
	cfg.SampleRate = result.Value.(int)
	logFallback(logger, "sample_rate", result)

	cfg.ImageOutputDir = config.LoadEnvString("CRAWL_IMAGE_OUTPUT_DIR", cfg.ImageOutputDir)

	return cfg
}

func logFallback(logger *slog.Logger, field string, result config.ConfigLoadResult) {
	if logger == nil || !result.FallbackApplied {
		return
	}
	for _, w := range result.Warnings {
		logger.Warn("crawl config fallback applied", slog.String("field", field), slog.String("reason", w))
	}
}

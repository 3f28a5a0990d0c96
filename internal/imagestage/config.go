// Package imagestage generates the web and mobile renditions for every
// acquired article image. It walks article_images rows whose
// small_location is still unset, resizing and re-encoding each in turn,
// and resumes from a small JSON checkpoint file rather than a database
// cursor so a restart after a crash never reprocesses work it already
// committed.
package imagestage

import (
	"fmt"
	"log/slog"

	"catchupfeed/internal/pkg/config"
)

// Config holds the stage's resize and compression budget, all of it
// drawn directly from the image stage's documented per-image procedure.
type Config struct {
	WebMaxWidth  int
	WebMaxHeight int

	MobileMaxWidth  int
	MobileMaxHeight int
	MobileMaxBytes  int

	QualityMin int
	QualityMax int

	MinDimension int // floor the dimension-fallback ladder stops at

	BatchSize      int
	CheckpointPath string
}

func DefaultConfig() Config {
	return Config{
		WebMaxWidth:     1024,
		WebMaxHeight:    768,
		MobileMaxWidth:  600,
		MobileMaxHeight: 450,
		MobileMaxBytes:  50 * 1024,
		QualityMin:      40,
		QualityMax:      85,
		MinDimension:    100,
		BatchSize:       50,
		CheckpointPath:  "website/.imagestage_checkpoint.json",
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.WebMaxWidth <= 0 || c.WebMaxHeight <= 0 {
		errs = append(errs, fmt.Errorf("web rendition bounds must be positive"))
	}
	if c.MobileMaxWidth <= 0 || c.MobileMaxHeight <= 0 {
		errs = append(errs, fmt.Errorf("mobile rendition bounds must be positive"))
	}
	if c.MobileMaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("mobile max bytes must be positive"))
	}
	if c.QualityMin < 1 || c.QualityMax > 100 || c.QualityMin > c.QualityMax {
		errs = append(errs, fmt.Errorf("quality range [%d, %d] invalid", c.QualityMin, c.QualityMax))
	}
	if c.MinDimension <= 0 {
		errs = append(errs, fmt.Errorf("min dimension must be positive"))
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch size must be positive"))
	}
	if c.CheckpointPath == "" {
		errs = append(errs, fmt.Errorf("checkpoint path must not be empty"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid imagestage config: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads the stage configuration fail-open: an invalid
// or missing value falls back to the documented default and is logged.
func LoadConfigFromEnv(logger *slog.Logger) Config {
	cfg := DefaultConfig()

	result := config.LoadEnvInt("IMAGESTAGE_BATCH_SIZE", cfg.BatchSize, func(v int) error {
		return config.ValidateIntRange(v, 1, 1000)
	})
	cfg.BatchSize = result.Value.(int)
	logFallback(logger, "batch_size", result)

	result = config.LoadEnvInt("IMAGESTAGE_MOBILE_MAX_BYTES", cfg.MobileMaxBytes, func(v int) error {
		return config.ValidateIntRange(v, 1024, 5*1024*1024)
	})
	cfg.MobileMaxBytes = result.Value.(int)
	logFallback(logger, "mobile_max_bytes", result)

	cfg.CheckpointPath = config.LoadEnvString("IMAGESTAGE_CHECKPOINT_PATH", cfg.CheckpointPath)

	return cfg
}

func logFallback(logger *slog.Logger, field string, result config.ConfigLoadResult) {
	if logger == nil || !result.FallbackApplied {
		return
	}
	for _, w := range result.Warnings {
		logger.Warn("imagestage config fallback applied", slog.String("field", field), slog.String("reason", w))
	}
}

// Package llmorch implements the LLM orchestrator: it claims unprocessed
// articles, dispatches them to a DeepSeek-compatible chat completion
// endpoint for multi-difficulty enrichment, validates the structured
// response, and persists the result. Grounded on the teacher's
// internal/infra/summarizer pair (claude.go/openai.go), generalized from
// "summarize text" to "produce a validated multi-tier enrichment object".
package llmorch

import (
	"fmt"
	"log/slog"
	"time"

	"catchupfeed/internal/pkg/config"
)

// Config holds the configuration for the LLM orchestrator.
// Configuration is loaded from environment variables with fail-open
// fallback to defaults, the way internal/infra/worker.WorkerConfig does.
type Config struct {
	// Model is the chat completion model identifier sent to the
	// DeepSeek-compatible endpoint.
	Model string

	// MaxTokens bounds the response size requested from the provider.
	MaxTokens int

	// RequestTimeout is the per-request wall-clock deadline. No automatic
	// retry is performed on expiry or failure; see DeepSeekClient.Enrich.
	RequestTimeout time.Duration

	// ClaimBatchSize bounds how many article ids a single claim call
	// reserves for one worker iteration.
	ClaimBatchSize int

	// ClaimStaleAfter is how long a claimed-but-unprocessed row must sit
	// before another worker is allowed to reclaim it (crash recovery).
	ClaimStaleAfter time.Duration

	// WorkerCount is the number of goroutines a single RunOnce fans a
	// claimed batch out across. Default 1, capped at 4 to keep
	// provider-side concurrency polite.
	WorkerCount int

	// InterRequestDelay paces a token bucket shared by every worker in
	// the pool, so WorkerCount workers don't multiply request rate.
	InterRequestDelay time.Duration

	// SampleRate is checked by Validate to lie in (0, 1]. The orchestrator
	// does not read it: RunOnce processes every claimed candidate, so no
	// sampling takes place.
	SampleRate float64

	// RandomSeed is carried in the configuration; the orchestrator does
	// not read it.
	RandomSeed int64
}

// DefaultConfig returns an orchestrator configuration with production
// defaults.
func DefaultConfig() Config {
	return Config{
		Model:             "deepseek-chat",
		MaxTokens:         4096,
		RequestTimeout:    60 * time.Second,
		ClaimBatchSize:    10,
		ClaimStaleAfter:   15 * time.Minute,
		WorkerCount:       1,
		InterRequestDelay: 3 * time.Second,
		SampleRate:        1.0,
		RandomSeed:        1,
	}
}

// Validate checks the configuration values are within safe operating
// ranges, aggregating every violation the way WorkerConfig.Validate does.
func (c *Config) Validate() error {
	var errs []error
	if err := config.ValidatePositiveDuration(c.RequestTimeout); err != nil {
		errs = append(errs, fmt.Errorf("request timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.ClaimBatchSize, 1, 200); err != nil {
		errs = append(errs, fmt.Errorf("claim batch size: %w", err))
	}
	if err := config.ValidateIntRange(c.WorkerCount, 1, 4); err != nil {
		errs = append(errs, fmt.Errorf("worker count: %w", err))
	}
	if c.SampleRate <= 0 || c.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("sample rate %v must be in (0, 1]", c.SampleRate))
	}
	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads orchestrator configuration from environment
// variables, falling back to defaults (with a logged warning) on any
// validation failure. It never returns an error: the driver must always
// be able to start.
//
// Environment variables:
//   - DEEPSEEK_MODEL: model identifier (default: deepseek-chat)
//   - DEEPSEEK_MAX_TOKENS: integer 256-8192 (default: 4096)
//   - DEEPSEEK_REQUEST_TIMEOUT: duration, e.g. "60s" (default: 60s)
//   - LLM_CLAIM_BATCH_SIZE: integer 1-200 (default: 10)
//   - LLM_CLAIM_COOLDOWN: duration, e.g. "15m" (default: 15m)
//   - LLM_WORKER_COUNT: integer 1-4 (default: 1)
//   - LLM_INTER_REQUEST_DELAY: duration, e.g. "3s" (default: 3s)
func LoadConfigFromEnv(logger *slog.Logger) Config {
	cfg := DefaultConfig()

	cfg.Model = config.LoadEnvString("DEEPSEEK_MODEL", cfg.Model)

	result := config.LoadEnvInt("DEEPSEEK_MAX_TOKENS", cfg.MaxTokens, func(v int) error {
		return config.ValidateIntRange(v, 256, 8192)
	})
	cfg.MaxTokens = result.Value.(int)
	logFallback(logger, "DeepSeek max tokens", result)

	result = config.LoadEnvDuration("DEEPSEEK_REQUEST_TIMEOUT", cfg.RequestTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 5*time.Second, 10*time.Minute)
	})
	cfg.RequestTimeout = result.Value.(time.Duration)
	logFallback(logger, "DeepSeek request timeout", result)

	result = config.LoadEnvInt("LLM_CLAIM_BATCH_SIZE", cfg.ClaimBatchSize, func(v int) error {
		return config.ValidateIntRange(v, 1, 200)
	})
	cfg.ClaimBatchSize = result.Value.(int)
	logFallback(logger, "LLM claim batch size", result)

	result = config.LoadEnvDuration("LLM_CLAIM_COOLDOWN", cfg.ClaimStaleAfter, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Minute, 4*time.Hour)
	})
	cfg.ClaimStaleAfter = result.Value.(time.Duration)
	logFallback(logger, "LLM claim cooldown", result)

	result = config.LoadEnvInt("LLM_WORKER_COUNT", cfg.WorkerCount, func(v int) error {
		return config.ValidateIntRange(v, 1, 4)
	})
	cfg.WorkerCount = result.Value.(int)
	logFallback(logger, "LLM worker count", result)

	result = config.LoadEnvDuration("LLM_INTER_REQUEST_DELAY", cfg.InterRequestDelay, func(d time.Duration) error {
		return config.ValidateDuration(d, 0, 1*time.Minute)
	})
	cfg.InterRequestDelay = result.Value.(time.Duration)
	logFallback(logger, "LLM inter-request delay", result)

	return cfg
}

func logFallback(logger *slog.Logger, field string, result config.ConfigLoadResult) {
	if !result.FallbackApplied {
		return
	}
	for _, warning := range result.Warnings {
		logger.Warn("configuration fallback applied",
			slog.String("field", field),
			slog.String("warning", warning))
	}
}

package llmorch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"catchupfeed/internal/resilience/circuitbreaker"
)

// EnrichClient dispatches one rendered prompt and returns the provider's
// raw response body. Implementations must not retry internally: the
// orchestrator's design has no automatic retry on LLM failure.
type EnrichClient interface {
	Enrich(ctx context.Context, prompt string) (string, error)
}

// DeepSeekClient implements EnrichClient against a DeepSeek-compatible
// chat completion endpoint. DeepSeek's API is OpenAI-wire-compatible, so
// it is reached through the existing go-openai SDK with BaseURL
// overridden rather than a bespoke HTTP client.
type DeepSeekClient struct {
	client         *openai.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	baseURL        string
	model          string
	maxTokens      int
	timeout        time.Duration
	metrics        MetricsRecorder
}

// NewDeepSeekClient constructs a client bound to apiKey and baseURL. An
// empty baseURL falls back to DeepSeek's public endpoint.
func NewDeepSeekClient(apiKey, baseURL string, cfg Config, metrics MetricsRecorder) *DeepSeekClient {
	oaiCfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		oaiCfg.BaseURL = baseURL
	} else {
		oaiCfg.BaseURL = "https://api.deepseek.com/v1"
	}

	return &DeepSeekClient{
		client:         openai.NewClientWithConfig(oaiCfg),
		circuitBreaker: circuitbreaker.New(circuitbreaker.DeepSeekAPIConfig()),
		baseURL:        oaiCfg.BaseURL,
		model:          cfg.Model,
		maxTokens:      cfg.MaxTokens,
		timeout:        cfg.RequestTimeout,
		metrics:        metrics,
	}
}

// Enrich sends prompt as a single user message and returns the raw
// completion content. Wrapped in the circuit breaker only — deliberately
// not in retry.WithBackoff, per the orchestrator's no-automatic-retry
// design.
func (d *DeepSeekClient) Enrich(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	result, err := d.circuitBreaker.Execute(func() (interface{}, error) {
		return d.doEnrich(ctx, prompt)
	})
	d.metrics.RecordRequestDuration(time.Since(start))

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			slog.Warn("deepseek api circuit breaker open, request rejected",
				slog.String("state", d.circuitBreaker.State().String()))
			return "", &LLMError{Reason: "circuit_open", Err: err}
		}
		return "", &LLMError{Reason: "network", Err: err}
	}
	return result.(string), nil
}

func (d *DeepSeekClient) doEnrich(ctx context.Context, prompt string) (string, error) {
	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     d.model,
		MaxTokens: d.maxTokens,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("deepseek chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("deepseek chat completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// NoOpClient implements EnrichClient by returning a canned, valid
// response. It exists for the driver's --dry-run mode and for tests that
// exercise the claim/persist loop without a live provider.
type NoOpClient struct {
	Response string
}

func (n *NoOpClient) Enrich(_ context.Context, _ string) (string, error) {
	return n.Response, nil
}

package crawl

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"catchupfeed/internal/resilience/circuitbreaker"
	"catchupfeed/internal/resilience/retry"

	"github.com/sony/gobreaker"
)

// articleHTMLFetcher fetches the raw HTML of a candidate article page, the
// way internal/infra/fetcher.ReadabilityFetcher fetches pages for content
// enhancement, but returns the raw body instead of extracted text: the
// Content Cleaner (internal/clean), not go-readability, is the primary
// extraction path here.
type articleHTMLFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	maxBodyBytes   int64
}

func newArticleHTMLFetcher(timeout time.Duration) *articleHTMLFetcher {
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	return &articleHTMLFetcher{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.WebScraperConfig()),
		retryConfig:    retry.WebScraperConfig(),
		maxBodyBytes:   10 * 1024 * 1024,
	}
}

func (f *articleHTMLFetcher) Fetch(ctx context.Context, articleURL string) (string, error) {
	if err := validateArticleURL(articleURL); err != nil {
		return "", &FeedError{Reason: FeedReasonParse, Err: err}
	}

	var html string
	err := retry.WithBackoff(ctx, f.retryConfig, func() error {
		result, err := f.circuitBreaker.Execute(func() (interface{}, error) {
			return f.doFetch(ctx, articleURL)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				return &FeedError{Reason: FeedReasonNetwork, Err: err}
			}
			return err
		}
		html = result.(string)
		return nil
	})
	if err != nil {
		return "", err
	}
	return html, nil
}

func (f *articleHTMLFetcher) doFetch(ctx context.Context, articleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return "", &FeedError{Reason: FeedReasonParse, Err: err}
	}
	req.Header.Set("User-Agent", "CatchUpFeedBot")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FeedError{Reason: FeedReasonNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &FeedError{Reason: FeedReasonNetwork, Err: fmt.Errorf("status %d fetching %s", resp.StatusCode, articleURL)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return "", &FeedError{Reason: FeedReasonNetwork, Err: err}
	}
	return string(body), nil
}

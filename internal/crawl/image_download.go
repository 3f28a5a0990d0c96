package crawl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"catchupfeed/internal/resilience/circuitbreaker"
	"catchupfeed/internal/resilience/retry"

	"github.com/sony/gobreaker"
)

// disallowedImageContentType rejects PNG: the crawler prefers photographic
// formats and PNG is disproportionately used for banners and graphics that
// survive the URL-shape gate.
const disallowedImageContentType = "image/png"

// downloadedImage is the body and derived metadata for one accepted
// candidate image.
type downloadedImage struct {
	Body        []byte
	ContentType string
	Ext         string
}

// imageDownloader fetches a candidate image URL and applies the
// Content-Type and minimum-byte-size gates against the response.
type imageDownloader struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	minBytes       int
}

func newImageDownloader(client *http.Client, minBytes int) *imageDownloader {
	return &imageDownloader{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.ImageFetchConfig()),
		retryConfig:    retry.ImageFetchConfig(),
		minBytes:       minBytes,
	}
}

func (d *imageDownloader) Download(ctx context.Context, imageURL string) (*downloadedImage, error) {
	var result *downloadedImage

	err := retry.WithBackoff(ctx, d.retryConfig, func() error {
		cbResult, err := d.circuitBreaker.Execute(func() (interface{}, error) {
			return d.doDownload(ctx, imageURL)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				return &ImageError{URL: imageURL, Reason: ImageReasonHTTP, Err: err}
			}
			return err
		}
		result = cbResult.(*downloadedImage)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (d *imageDownloader) doDownload(ctx context.Context, imageURL string) (*downloadedImage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, &ImageError{URL: imageURL, Reason: ImageReasonHTTP, Err: err}
	}
	req.Header.Set("User-Agent", "CatchUpFeedBot")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &ImageError{URL: imageURL, Reason: ImageReasonHTTP, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ImageError{URL: imageURL, Reason: ImageReasonHTTP, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, disallowedImageContentType) {
		return nil, &ImageError{URL: imageURL, Reason: ImageReasonContentType, Err: fmt.Errorf("content-type %q not accepted", contentType)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 20*1024*1024))
	if err != nil {
		return nil, &ImageError{URL: imageURL, Reason: ImageReasonHTTP, Err: err}
	}

	if len(body) < d.minBytes {
		return nil, &ImageError{URL: imageURL, Reason: ImageReasonBelowMinBytes, Err: fmt.Errorf("%d bytes < minimum %d", len(body), d.minBytes)}
	}

	return &downloadedImage{
		Body:        body,
		ContentType: contentType,
		Ext:         extForImage(imageURL, contentType),
	}, nil
}

// extForImage picks a file extension from the URL path, falling back to
// the Content-Type when the URL carries no recognizable suffix.
func extForImage(imageURL, contentType string) string {
	if ext := strings.ToLower(path.Ext(strings.SplitN(imageURL, "?", 2)[0])); ext != "" && len(ext) <= 5 {
		return strings.TrimPrefix(ext, ".")
	}
	switch {
	case strings.Contains(contentType, "webp"):
		return "webp"
	case strings.Contains(contentType, "jpeg"), strings.Contains(contentType, "jpg"):
		return "jpg"
	default:
		return "jpg"
	}
}

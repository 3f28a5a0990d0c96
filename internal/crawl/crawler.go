package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"catchupfeed/internal/clean"
	"catchupfeed/internal/domain/entity"
	"catchupfeed/internal/infra/scraper"
	"catchupfeed/internal/repository"
)

// FeedFetcher is the feed-parsing surface the crawler needs, kept as a
// narrow interface so tests can substitute a stub; scraperAdapter
// satisfies it by wrapping internal/infra/scraper.RSSFetcher.
type FeedFetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]FeedItem, error)
}

// FeedItem is one candidate entry parsed from a feed.
type FeedItem struct {
	Title       string
	URL         string
	Content     string
	PublishedAt time.Time
}

// Crawler runs one crawl cycle across every enabled feed.
type Crawler struct {
	Feeds       repository.FeedRepository
	Articles    repository.ArticleRepository
	FeedFetcher FeedFetcher
	Cfg         Config
	Thresholds  clean.Thresholds
	Banned      clean.BannedWords
	Logger      *slog.Logger
	Metrics     MetricsRecorder

	htmlFetcher htmlFetcher
	downloader  imageDownloaderClient
}

// htmlFetcher is the narrow interface *articleHTMLFetcher satisfies; a
// test substitutes a stub to avoid real network access.
type htmlFetcher interface {
	Fetch(ctx context.Context, articleURL string) (string, error)
}

// imageDownloaderClient is the narrow interface *imageDownloader satisfies.
type imageDownloaderClient interface {
	Download(ctx context.Context, imageURL string) (*downloadedImage, error)
}

// NewCrawler wires a Crawler from its dependencies, constructing its
// internal HTTP helpers from Cfg.
func NewCrawler(feeds repository.FeedRepository, articles repository.ArticleRepository, cfg Config, thresholds clean.Thresholds, banned clean.BannedWords, logger *slog.Logger) *Crawler {
	return &Crawler{
		Feeds:       feeds,
		Articles:    articles,
		FeedFetcher: newScraperAdapter(cfg.HTTPTimeout),
		Cfg:         cfg,
		Thresholds:  thresholds,
		Banned:      banned,
		Logger:      logger,
		Metrics:     NewPrometheusMetrics(),
		htmlFetcher: newArticleHTMLFetcher(cfg.HTTPTimeout),
		downloader:  newImageDownloader(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.MinImageBytes()),
	}
}

// scraperAdapter adapts internal/infra/scraper.RSSFetcher's scraper.FeedItem
// return type to this package's own FeedItem and wraps its errors as
// network FeedErrors.
type scraperAdapter struct {
	inner *scraper.RSSFetcher
}

func newScraperAdapter(timeout time.Duration) *scraperAdapter {
	return &scraperAdapter{inner: scraper.NewRSSFetcher(&http.Client{Timeout: timeout})}
}

func (a *scraperAdapter) Fetch(ctx context.Context, feedURL string) ([]FeedItem, error) {
	items, err := a.inner.Fetch(ctx, feedURL)
	if err != nil {
		return nil, &FeedError{Reason: FeedReasonNetwork, Err: err}
	}
	out := make([]FeedItem, 0, len(items))
	for _, it := range items {
		out = append(out, FeedItem{Title: it.Title, URL: it.URL, Content: it.Content, PublishedAt: it.PublishedAt})
	}
	return out, nil
}

// Stats summarizes one RunOnce call across all feeds.
type Stats struct {
	Feeds      int
	Candidates int
	Accepted   int
	Rejected   int
	Duration   time.Duration
}

// cleanCategoryFor maps a category's prompt family to the cleaner's
// length-gate profile. Sports feeds get the relaxed sport floor rather
// than the strict one: nothing in the category row distinguishes a
// strict sports feed from a relaxed one, and relaxed is the more
// permissive default for a source that hasn't been specially tuned.
func cleanCategoryFor(category entity.Category) clean.Category {
	if category.PromptName == entity.PromptSports {
		return clean.CategorySportRelaxed
	}
	return clean.CategoryGeneral
}

// RunOnce crawls every enabled feed once, each under its own per-feed
// timeout, concurrently up to Cfg.FeedConcurrency.
func (c *Crawler) RunOnce(ctx context.Context) (*Stats, error) {
	start := time.Now()
	feeds, err := c.Feeds.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list enabled feeds: %w", err)
	}

	stats := &Stats{Feeds: len(feeds)}
	sem := make(chan struct{}, c.Cfg.FeedConcurrency)
	eg, egCtx := errgroup.WithContext(ctx)

	for _, f := range feeds {
		feed := f
		eg.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			feedCtx, cancel := context.WithTimeout(egCtx, c.Cfg.PerFeedTimeout)
			defer cancel()

			accepted, candidates, rejected := c.processFeed(feedCtx, feed)
			stats.Accepted += accepted
			stats.Candidates += candidates
			stats.Rejected += rejected
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return stats, err
	}
	stats.Duration = time.Since(start)
	if c.Logger != nil {
		c.Logger.Info("crawl cycle completed",
			slog.Int("feeds", stats.Feeds),
			slog.Int("candidates", stats.Candidates),
			slog.Int("accepted", stats.Accepted),
			slog.Int("rejected", stats.Rejected),
			slog.Duration("duration", stats.Duration))
	}
	return stats, nil
}

func (c *Crawler) recordFeedOutcome(err error) {
	if c.Metrics == nil {
		return
	}
	if err == nil {
		c.Metrics.RecordFeedOutcome("ok")
		return
	}
	var feedErr *FeedError
	if errors.As(err, &feedErr) {
		c.Metrics.RecordFeedOutcome(string(feedErr.Reason))
		return
	}
	c.Metrics.RecordFeedOutcome("network")
}

func (c *Crawler) processFeed(ctx context.Context, feed *entity.Feed) (accepted, candidates, rejected int) {
	logger := c.Logger
	items, err := c.FeedFetcher.Fetch(ctx, feed.URL)
	if err != nil {
		if logger != nil {
			logger.Warn("feed fetch failed", slog.Int64("feed_id", feed.ID), slog.String("url", feed.URL), slog.Any("error", err))
		}
		c.recordFeedOutcome(err)
		return 0, 0, 0
	}
	c.recordFeedOutcome(nil)
	if len(items) > c.Cfg.CandidatePoolSize {
		items = items[:c.Cfg.CandidatePoolSize]
	}
	candidates = len(items)

	urls := make([]string, 0, len(items))
	for _, it := range items {
		urls = append(urls, it.URL)
	}
	existsMap, err := c.Articles.ExistsByURLBatch(ctx, urls)
	if err != nil {
		if logger != nil {
			logger.Warn("batch url check failed", slog.Int64("feed_id", feed.ID), slog.Any("error", err))
		}
		return 0, candidates, 0
	}

	category, err := c.Feeds.CategoryByID(ctx, feed.CategoryID)
	if err != nil {
		if logger != nil {
			logger.Warn("category lookup failed", slog.Int64("feed_id", feed.ID), slog.Any("error", err))
		}
		return 0, candidates, 0
	}

	for _, item := range items {
		if accepted >= c.Cfg.ArticlesPerSeed {
			break
		}
		if existsMap[item.URL] {
			rejected++
			if c.Metrics != nil {
				c.Metrics.RecordCandidateOutcome(string(RejectDuplicateURL))
			}
			continue
		}
		if c.acceptCandidate(ctx, feed, *category, item) {
			accepted++
			if c.Metrics != nil {
				c.Metrics.RecordCandidateOutcome("accepted")
			}
		} else {
			rejected++
		}
	}

	safeCtx := context.WithoutCancel(ctx)
	if err := c.Feeds.TouchCrawledAt(safeCtx, feed.ID, time.Now()); err != nil && logger != nil {
		logger.Warn("touch crawled_at failed", slog.Int64("feed_id", feed.ID), slog.Any("error", err))
	}
	return accepted, candidates, rejected
}

func (c *Crawler) acceptCandidate(ctx context.Context, feed *entity.Feed, category entity.Category, item FeedItem) bool {
	logger := c.Logger

	rawHTML, err := c.htmlFetcher.Fetch(ctx, item.URL)
	if err != nil {
		if logger != nil {
			logger.Debug("article fetch failed", slog.String("url", item.URL), slog.Any("error", err))
		}
		return false
	}

	if paragraphCount(rawHTML) == 0 {
		if enhanced, extractErr := extractViaReadability(rawHTML, item.URL); extractErr == nil && enhanced != "" {
			rawHTML = enhanced
		}
	}

	cleaned, rejection := clean.Clean(rawHTML, item.Title, cleanCategoryFor(category), c.Thresholds, c.Banned)
	if rejection != nil {
		if logger != nil {
			logger.Debug("article rejected by cleaner", slog.String("url", item.URL), slog.String("reason", string(rejection.Reason)))
		}
		if c.Metrics != nil {
			c.Metrics.RecordCandidateOutcome(string(rejection.Reason))
		}
		return false
	}

	imageURL, image, err := c.acquireImage(ctx, rawHTML, item.URL)
	if err != nil || image == nil {
		if logger != nil {
			logger.Debug("no acceptable image, skipping article", slog.String("url", item.URL), slog.Any("error", err))
		}
		if c.Metrics != nil {
			c.Metrics.RecordCandidateOutcome(string(RejectNoImage))
		}
		return false
	}

	article := &entity.Article{
		FeedID:      feed.ID,
		Category:    category,
		Title:       item.Title,
		URL:         item.URL,
		Description: item.Content,
		Content:     cleaned.Text,
		PublishedAt: item.PublishedAt,
		CrawledAt:   time.Now(),
	}

	_, err = c.Articles.Insert(ctx, repository.NewArticle{Article: article, Image: image})
	if err != nil {
		if logger != nil {
			logger.Warn("article insert failed", slog.String("url", item.URL), slog.String("image_url", imageURL), slog.Any("error", err))
		}
		return false
	}
	return true
}

// acquireImage selects a candidate image from the article's raw HTML,
// downloads it, and writes it to ImageOutputDir under a generated name.
//
// The article's semantic ID (YYYYMMDDnn) isn't allocated until
// ArticleRepository.Insert's transaction runs, but Insert also requires a
// fully-built *entity.Image, LocalLocation included, as one of its
// arguments, so the file has to exist on disk before the ID that would
// otherwise name it does. Rather than insert a placeholder row and patch
// it afterward (SetImageRendition is reserved for the image stage's later
// mobile rendition, not an initial-insert correction), the image is
// written under a generated UUID instead of the article ID. ImageName and
// LocalLocation carry that UUID; article_images.article_id still links
// the row to its article correctly, so nothing downstream depends on the
// filename matching the ID.
func (c *Crawler) acquireImage(ctx context.Context, rawHTML, articleURL string) (string, *entity.Image, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", nil, &ImageError{URL: articleURL, Reason: ImageReasonNoCandidate, Err: err}
	}

	candidates := selectImageCandidates(doc, articleURL)
	if len(candidates) == 0 {
		return "", nil, &ImageError{URL: articleURL, Reason: ImageReasonNoCandidate, Err: fmt.Errorf("no acceptable candidate found")}
	}

	// Content-Type and byte-size are download-time gates: a candidate that
	// fails one doesn't abort selection, it falls through to the next
	// candidate in priority order, same as a URL-shape gate failure does
	// during selectImageCandidates.
	var lastURL string
	var lastErr error
	for _, imageURL := range candidates {
		downloaded, err := c.downloader.Download(ctx, imageURL)
		if err != nil {
			lastURL, lastErr = imageURL, err
			continue
		}

		name := uuid.NewString() + "." + downloaded.Ext
		localPath := filepath.Join(c.Cfg.ImageOutputDir, name)
		if err := os.MkdirAll(c.Cfg.ImageOutputDir, 0o755); err != nil {
			return imageURL, nil, &ImageError{URL: imageURL, Reason: ImageReasonEncode, Err: err}
		}
		if err := os.WriteFile(localPath, downloaded.Body, 0o644); err != nil {
			return imageURL, nil, &ImageError{URL: imageURL, Reason: ImageReasonEncode, Err: err}
		}

		return imageURL, &entity.Image{
			ImageName:     name,
			OriginalURL:   imageURL,
			LocalLocation: localPath,
		}, nil
	}

	return lastURL, nil, lastErr
}

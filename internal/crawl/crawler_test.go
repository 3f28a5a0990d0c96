package crawl

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catchupfeed/internal/clean"
	"catchupfeed/internal/domain/entity"
	"catchupfeed/internal/repository"
)

type stubFeedFetcher struct {
	items []FeedItem
	err   error
}

func (s *stubFeedFetcher) Fetch(_ context.Context, _ string) ([]FeedItem, error) {
	return s.items, s.err
}

type stubFeedRepo struct {
	feeds    []*entity.Feed
	category *entity.Category
	touched  map[int64]time.Time
}

func (s *stubFeedRepo) ListEnabled(_ context.Context) ([]*entity.Feed, error) { return s.feeds, nil }
func (s *stubFeedRepo) CategoryByID(_ context.Context, _ int64) (*entity.Category, error) {
	return s.category, nil
}
func (s *stubFeedRepo) TouchCrawledAt(_ context.Context, id int64, t time.Time) error {
	if s.touched == nil {
		s.touched = make(map[int64]time.Time)
	}
	s.touched[id] = t
	return nil
}

type stubArticleRepo struct {
	existing  map[string]bool
	inserted  []repository.NewArticle
	insertErr error
}

func (s *stubArticleRepo) Insert(_ context.Context, na repository.NewArticle) (string, error) {
	if s.insertErr != nil {
		return "", s.insertErr
	}
	s.inserted = append(s.inserted, na)
	return "2026073101", nil
}
func (s *stubArticleRepo) ExistsByURLBatch(_ context.Context, urls []string) (map[string]bool, error) {
	out := make(map[string]bool, len(urls))
	for _, u := range urls {
		out[u] = s.existing[u]
	}
	return out, nil
}
func (s *stubArticleRepo) Get(_ context.Context, _ string) (*entity.Article, error) { return nil, nil }
func (s *stubArticleRepo) ImagesPendingRendition(_ context.Context, _ int64, _ int) ([]*entity.Image, error) {
	return nil, nil
}
func (s *stubArticleRepo) SetImageRendition(_ context.Context, _ int64, _ string, _ string) error {
	return nil
}
func (s *stubArticleRepo) ClaimForEnrichment(_ context.Context, _ int64, _ int) ([]string, error) {
	return nil, nil
}
func (s *stubArticleRepo) CompleteEnrichment(_ context.Context, _ string, _ repository.EnrichmentArtifacts) error {
	return nil
}
func (s *stubArticleRepo) FailEnrichment(_ context.Context, _ string, _ string) error { return nil }

type stubHTMLFetcher struct {
	html string
	err  error
}

func (s *stubHTMLFetcher) Fetch(_ context.Context, _ string) (string, error) {
	return s.html, s.err
}

type stubImageDownloader struct {
	img *downloadedImage
	err error
}

func (s *stubImageDownloader) Download(_ context.Context, _ string) (*downloadedImage, error) {
	return s.img, s.err
}

// byURLImageDownloader returns a distinct result per image URL, letting
// tests exercise fallthrough from a gate-rejected candidate to the next
// one in priority order.
type byURLImageDownloader struct {
	results map[string]struct {
		img *downloadedImage
		err error
	}
}

func (s *byURLImageDownloader) Download(_ context.Context, imageURL string) (*downloadedImage, error) {
	r, ok := s.results[imageURL]
	if !ok {
		return nil, &ImageError{URL: imageURL, Reason: ImageReasonHTTP, Err: io.EOF}
	}
	return r.img, r.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCrawler(t *testing.T, feeds *stubFeedRepo, articles *stubArticleRepo, fetcher *stubFeedFetcher, html *stubHTMLFetcher, img *stubImageDownloader) *Crawler {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ImageOutputDir = t.TempDir()
	return &Crawler{
		Feeds:       feeds,
		Articles:    articles,
		FeedFetcher: fetcher,
		Cfg:         cfg,
		Thresholds:  clean.DefaultThresholds(),
		Logger:      testLogger(),
		htmlFetcher: html,
		downloader:  img,
	}
}

func TestRunOnce_AcceptsCandidateWithImage(t *testing.T) {
	feeds := &stubFeedRepo{
		feeds:    []*entity.Feed{{ID: 1, Name: "feed", URL: "https://example.com/feed", CategoryID: 1, Enabled: true}},
		category: &entity.Category{ID: 1, Name: "general", PromptName: entity.PromptDefault},
	}
	articles := &stubArticleRepo{existing: map[string]bool{}}
	fetcher := &stubFeedFetcher{items: []FeedItem{{Title: "headline", URL: "https://example.com/a", PublishedAt: time.Now()}}}
	longParagraph := "This is a sufficiently long paragraph of article text that should clear the cleaner's minimum character thresholds for a general news item without tripping any rejection rule. "
	html := &stubHTMLFetcher{html: "<html><body><article><img src=\"https://example.com/photo.jpg\">" + repeatParagraph(longParagraph, 20) + "</article></body></html>"}
	img := &stubImageDownloader{img: &downloadedImage{Body: []byte("fake-image-bytes"), ContentType: "image/jpeg", Ext: "jpg"}}

	c := newTestCrawler(t, feeds, articles, fetcher, html, img)
	stats, err := c.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Accepted)
	require.Len(t, articles.inserted, 1)
	assert.NotEmpty(t, articles.inserted[0].Image.LocalLocation)
}

func TestRunOnce_FallsThroughToNextCandidateOnDownloadGateFailure(t *testing.T) {
	feeds := &stubFeedRepo{
		feeds:    []*entity.Feed{{ID: 1, Name: "feed", URL: "https://example.com/feed", CategoryID: 1, Enabled: true}},
		category: &entity.Category{ID: 1, Name: "general", PromptName: entity.PromptDefault},
	}
	articles := &stubArticleRepo{existing: map[string]bool{}}
	fetcher := &stubFeedFetcher{items: []FeedItem{{Title: "headline", URL: "https://example.com/a", PublishedAt: time.Now()}}}
	longParagraph := "This is a sufficiently long paragraph of article text that should clear the cleaner's minimum character thresholds for a general news item without tripping any rejection rule. "
	html := &stubHTMLFetcher{html: `<html><head>
		<meta property="og:image" content="https://example.com/og.png">
		<meta name="twitter:image" content="https://example.com/twitter.jpg">
	</head><body><article>` + repeatParagraph(longParagraph, 20) + `</article></body></html>`}

	img := &byURLImageDownloader{results: map[string]struct {
		img *downloadedImage
		err error
	}{
		"https://example.com/og.png": {err: &ImageError{URL: "https://example.com/og.png", Reason: ImageReasonContentType, Err: assert.AnError}},
		"https://example.com/twitter.jpg": {img: &downloadedImage{
			Body: []byte("fake-image-bytes"), ContentType: "image/jpeg", Ext: "jpg",
		}},
	}}

	c := newTestCrawler(t, feeds, articles, fetcher, html, img)
	stats, err := c.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Accepted)
	require.Len(t, articles.inserted, 1)
	assert.Equal(t, "https://example.com/twitter.jpg", articles.inserted[0].Image.OriginalURL)
}

func TestRunOnce_SkipsExistingURL(t *testing.T) {
	feeds := &stubFeedRepo{
		feeds:    []*entity.Feed{{ID: 1, URL: "https://example.com/feed", CategoryID: 1, Enabled: true}},
		category: &entity.Category{ID: 1, PromptName: entity.PromptDefault},
	}
	articles := &stubArticleRepo{existing: map[string]bool{"https://example.com/a": true}}
	fetcher := &stubFeedFetcher{items: []FeedItem{{Title: "t", URL: "https://example.com/a", PublishedAt: time.Now()}}}
	c := newTestCrawler(t, feeds, articles, fetcher, &stubHTMLFetcher{}, &stubImageDownloader{})

	stats, err := c.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Accepted)
	assert.Equal(t, 1, stats.Rejected)
}

func TestRunOnce_FeedFetchFailureIsIsolated(t *testing.T) {
	feeds := &stubFeedRepo{
		feeds: []*entity.Feed{
			{ID: 1, URL: "https://bad.example.com/feed", CategoryID: 1, Enabled: true},
		},
		category: &entity.Category{ID: 1, PromptName: entity.PromptDefault},
	}
	articles := &stubArticleRepo{existing: map[string]bool{}}
	fetcher := &stubFeedFetcher{err: &FeedError{FeedID: 1, Reason: FeedReasonNetwork}}
	c := newTestCrawler(t, feeds, articles, fetcher, &stubHTMLFetcher{}, &stubImageDownloader{})

	stats, err := c.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Accepted)
	assert.Equal(t, 0, stats.Candidates)
}

func TestAcceptCandidate_RespectsArticlesPerSeedCap(t *testing.T) {
	feeds := &stubFeedRepo{
		feeds:    []*entity.Feed{{ID: 1, URL: "https://example.com/feed", CategoryID: 1, Enabled: true}},
		category: &entity.Category{ID: 1, PromptName: entity.PromptDefault},
	}
	items := []FeedItem{
		{Title: "a", URL: "https://example.com/a", PublishedAt: time.Now()},
		{Title: "b", URL: "https://example.com/b", PublishedAt: time.Now()},
		{Title: "c", URL: "https://example.com/c", PublishedAt: time.Now()},
	}
	articles := &stubArticleRepo{existing: map[string]bool{}}
	fetcher := &stubFeedFetcher{items: items}
	longParagraph := "This is a sufficiently long paragraph of article text that should clear the cleaner's minimum character thresholds for a general news item without tripping any rejection rule. "
	html := &stubHTMLFetcher{html: "<html><body><article><img src=\"https://example.com/photo.jpg\">" + repeatParagraph(longParagraph, 20) + "</article></body></html>"}
	img := &stubImageDownloader{img: &downloadedImage{Body: []byte("fake-image-bytes"), ContentType: "image/jpeg", Ext: "jpg"}}

	c := newTestCrawler(t, feeds, articles, fetcher, html, img)
	c.Cfg.ArticlesPerSeed = 2

	stats, err := c.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Accepted)
	assert.Equal(t, 0, stats.Rejected)
}

func repeatParagraph(p string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += "<p>" + p + "</p>"
	}
	return out
}

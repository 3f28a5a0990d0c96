package repository

import (
	"context"

	"catchupfeed/internal/domain/entity"
)

// NewArticle carries everything the crawler has assembled for one accepted
// candidate: the cleaned article plus its image record. Insert commits both
// atomically and performs the YYYYMMDDnn id allocation in the same
// transaction, so a reader never observes an article without its image.
type NewArticle struct {
	Article *entity.Article
	Image   *entity.Image // nil is never valid: the crawler only inserts articles that got an image
}

// ArticleRepository exposes the core-content operations used by the
// crawler, image stage, and LLM orchestrator. There is deliberately no
// generic query method: every access pattern the pipeline needs is named
// here explicitly.
type ArticleRepository interface {
	// Insert allocates the next YYYYMMDDnn id for today (UTC), then inserts
	// the article and its image row in one transaction. Returns
	// entity.ErrDuplicateURL if na.Article.URL already exists, or
	// entity.ErrDailyCapacityExceeded if the day's counter is exhausted.
	Insert(ctx context.Context, na NewArticle) (id string, err error)

	// ExistsByURLBatch reports, for each of urls, whether an article with
	// that url already exists. Used by the crawler to avoid inserting
	// duplicates without one query per candidate.
	ExistsByURLBatch(ctx context.Context, urls []string) (map[string]bool, error)

	// Get retrieves a single article by id.
	Get(ctx context.Context, id string) (*entity.Article, error)

	// ImagesPendingRendition returns article_images rows whose
	// small_location is still unset, ordered by image_id ascending,
	// starting strictly after afterImageID (0 to start from the beginning).
	ImagesPendingRendition(ctx context.Context, afterImageID int64, limit int) ([]*entity.Image, error)

	// SetImageRendition records the produced web/mobile rendition paths
	// for an already-inserted image row.
	SetImageRendition(ctx context.Context, imageID int64, localLocation string, smallLocation string) error

	// ClaimForEnrichment performs the compare-and-set claim described in
	// the LLM orchestrator design and returns the ids it claimed. A row is
	// claimed only if it is unprocessed and either unclaimed or claimed
	// longer ago than staleAfter (crash recovery). limit bounds how many
	// ids are claimed in one call; the orchestrator makes one call per batch.
	ClaimForEnrichment(ctx context.Context, staleAfter int64 /* seconds */, limit int) ([]string, error)

	// CompleteEnrichment persists every enrichment artifact for id and
	// marks the article processed, in one transaction.
	CompleteEnrichment(ctx context.Context, id string, artifacts EnrichmentArtifacts) error

	// FailEnrichment releases the claim on id, increments its failure
	// counter, and records lastErr.
	FailEnrichment(ctx context.Context, id string, lastErr string) error
}

// EnrichmentArtifacts bundles everything CompleteEnrichment must persist
// for a single article in one transaction.
type EnrichmentArtifacts struct {
	Summaries        []entity.Summary
	Keywords         []entity.Keyword
	Questions        []entity.Question
	Comments         []entity.Comment
	BackgroundReads  []entity.BackgroundRead
	ArticleAnalyses  []entity.ArticleAnalysis
	Response         entity.Response
	ZhTitle          string
}

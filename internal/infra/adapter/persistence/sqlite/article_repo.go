package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"catchupfeed/internal/domain/entity"
	"catchupfeed/internal/repository"
)

// ArticleRepo implements repository.ArticleRepository using SQLite.
type ArticleRepo struct {
	db *sql.DB
}

// NewArticleRepo creates a new SQLite-backed article repository.
func NewArticleRepo(db *sql.DB) repository.ArticleRepository {
	return &ArticleRepo{db: db}
}

// Insert allocates the next YYYYMMDDnn id for the current UTC date and
// commits the article together with its image row in a single
// transaction, so a reader can never observe one without the other.
func (r *ArticleRepo) Insert(ctx context.Context, na repository.NewArticle) (string, error) {
	if na.Image == nil {
		return "", fmt.Errorf("Insert: image is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("Insert: BeginTx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM articles WHERE url = ?`, na.Article.URL).Scan(&existing); err == nil {
		return "", fmt.Errorf("Insert: url %q: %w", na.Article.URL, entity.ErrDuplicateURL)
	} else if err != sql.ErrNoRows {
		return "", fmt.Errorf("Insert: check duplicate: %w", err)
	}

	today := time.Now().UTC().Format("20060102")
	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT count(*) FROM articles WHERE id LIKE ?`, today+"%").Scan(&count); err != nil {
		return "", fmt.Errorf("Insert: count same-day rows: %w", err)
	}
	if count >= 99 {
		return "", fmt.Errorf("Insert: day %s: %w", today, entity.ErrDailyCapacityExceeded)
	}
	id := fmt.Sprintf("%s%02d", today, count+1)

	a := na.Article
	_, err = tx.ExecContext(ctx, `
INSERT INTO articles (id, feed_id, category_id, title, url, description, content, published_at, crawled_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, id, a.FeedID, a.Category.ID, a.Title, a.URL, a.Description, a.Content,
		formatNullableTime(a.PublishedAt), a.CrawledAt.UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("Insert: insert article: %w", err)
	}

	img := na.Image
	res, err := tx.ExecContext(ctx, `
INSERT INTO article_images (article_id, image_name, original_url, local_location, new_url)
VALUES (?, ?, ?, ?, ?)
`, id, img.ImageName, img.OriginalURL, img.LocalLocation, img.NewURL)
	if err != nil {
		return "", fmt.Errorf("Insert: insert image: %w", err)
	}
	imageID, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("Insert: image LastInsertId: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE articles SET image_id = ? WHERE id = ?`, imageID, id); err != nil {
		return "", fmt.Errorf("Insert: link image: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("Insert: Commit: %w", err)
	}
	return id, nil
}

func formatNullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// ExistsByURLBatch avoids an N+1 query pattern when the crawler checks a
// whole page of feed candidates for duplicates at once.
func (r *ArticleRepo) ExistsByURLBatch(ctx context.Context, urls []string) (map[string]bool, error) {
	result := make(map[string]bool, len(urls))
	if len(urls) == 0 {
		return result, nil
	}

	// SQLite's bound-parameter limit is 999; the crawler's candidate pool
	// per feed is capped well below that (top 20 entries), but guard anyway.
	const maxPlaceholders = 999
	if len(urls) > maxPlaceholders {
		return nil, fmt.Errorf("ExistsByURLBatch: too many urls (%d > %d)", len(urls), maxPlaceholders)
	}

	placeholders := make([]string, len(urls))
	args := make([]interface{}, len(urls))
	for i, u := range urls {
		placeholders[i] = "?"
		args[i] = u
	}
	query := fmt.Sprintf("SELECT url FROM articles WHERE url IN (%s)", strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ExistsByURLBatch: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("ExistsByURLBatch: Scan: %w", err)
		}
		result[u] = true
	}
	return result, rows.Err()
}

func (r *ArticleRepo) Get(ctx context.Context, id string) (*entity.Article, error) {
	const query = `
SELECT a.id, a.feed_id, a.category_id, c.name, c.prompt_name, a.title, a.url, a.description, a.content,
       a.published_at, a.crawled_at, a.image_id, a.deepseek_processed, a.deepseek_failed,
       a.deepseek_in_progress, a.deepseek_last_error, a.claimed_at, a.processed_at, a.zh_title
FROM articles a
JOIN categories c ON c.id = a.category_id
WHERE a.id = ?
`
	var (
		a                                  entity.Article
		publishedAt, claimedAt, processedAt sql.NullString
		imageID                             sql.NullInt64
		lastError, zhTitle                  sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.FeedID, &a.Category.ID, &a.Category.Name, &a.Category.PromptName,
		&a.Title, &a.URL, &a.Description, &a.Content,
		&publishedAt, &a.CrawledAt, &imageID, &a.DeepseekProcessed, &a.DeepseekFailed,
		&a.DeepseekInProgress, &lastError, &claimedAt, &processedAt, &zhTitle,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("Get(%s): %w", id, entity.ErrNotFound)
		}
		return nil, fmt.Errorf("Get: QueryRowContext: %w", err)
	}
	if imageID.Valid {
		a.ImageID = &imageID.Int64
	}
	a.DeepseekLastError = lastError.String
	a.ZhTitle = zhTitle.String
	if publishedAt.Valid {
		if t, err := time.Parse(time.RFC3339, publishedAt.String); err == nil {
			a.PublishedAt = t
		}
	}
	if claimedAt.Valid {
		if t, err := time.Parse(time.RFC3339, claimedAt.String); err == nil {
			a.ClaimedAt = &t
		}
	}
	if processedAt.Valid {
		if t, err := time.Parse(time.RFC3339, processedAt.String); err == nil {
			a.ProcessedAt = &t
		}
	}
	return &a, nil
}

func (r *ArticleRepo) ImagesPendingRendition(ctx context.Context, afterImageID int64, limit int) ([]*entity.Image, error) {
	const query = `
SELECT id, article_id, image_name, original_url, local_location, small_location, new_url
FROM article_images
WHERE small_location IS NULL AND id > ?
ORDER BY id
LIMIT ?
`
	rows, err := r.db.QueryContext(ctx, query, afterImageID, limit)
	if err != nil {
		return nil, fmt.Errorf("ImagesPendingRendition: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	images := make([]*entity.Image, 0, limit)
	for rows.Next() {
		var img entity.Image
		var small sql.NullString
		if err := rows.Scan(&img.ID, &img.ArticleID, &img.ImageName, &img.OriginalURL,
			&img.LocalLocation, &small, &img.NewURL); err != nil {
			return nil, fmt.Errorf("ImagesPendingRendition: Scan: %w", err)
		}
		if small.Valid {
			img.SmallLocation = &small.String
		}
		images = append(images, &img)
	}
	return images, rows.Err()
}

func (r *ArticleRepo) SetImageRendition(ctx context.Context, imageID int64, localLocation, smallLocation string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE article_images SET local_location = ?, small_location = ? WHERE id = ?`,
		localLocation, smallLocation, imageID)
	if err != nil {
		return fmt.Errorf("SetImageRendition: ExecContext: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("SetImageRendition: RowsAffected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("SetImageRendition(%d): %w", imageID, entity.ErrNotFound)
	}
	return nil
}

// ClaimForEnrichment is the sole coordination primitive between LLM
// orchestrator workers: it atomically flips deepseek_in_progress on a
// bounded batch of eligible rows and returns their ids. Eligibility is
// "never claimed" or "claimed longer than staleAfter seconds ago",
// which lets a restarted worker recover articles orphaned by a crash.
func (r *ArticleRepo) ClaimForEnrichment(ctx context.Context, staleAfter int64, limit int) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ClaimForEnrichment: BeginTx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cutoff := time.Now().UTC().Add(-time.Duration(staleAfter) * time.Second).Format(time.RFC3339)

	rows, err := tx.QueryContext(ctx, `
SELECT id FROM articles
WHERE deepseek_processed = 0
  AND (deepseek_in_progress = 0 OR (deepseek_in_progress = 1 AND claimed_at < ?))
ORDER BY category_id, id
LIMIT ?
`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("ClaimForEnrichment: select candidates: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("ClaimForEnrichment: Scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("ClaimForEnrichment: rows.Err: %w", err)
	}
	_ = rows.Close()

	claimed := make([]string, 0, len(ids))
	now := time.Now().UTC().Format(time.RFC3339)
	for _, id := range ids {
		res, err := tx.ExecContext(ctx, `
UPDATE articles SET deepseek_in_progress = 1, claimed_at = ?
WHERE id = ? AND deepseek_processed = 0
  AND (deepseek_in_progress = 0 OR (deepseek_in_progress = 1 AND claimed_at < ?))
`, now, id, cutoff)
		if err != nil {
			return nil, fmt.Errorf("ClaimForEnrichment: claim %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("ClaimForEnrichment: RowsAffected: %w", err)
		}
		if n == 1 {
			claimed = append(claimed, id)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ClaimForEnrichment: Commit: %w", err)
	}
	return claimed, nil
}

// CompleteEnrichment persists every artifact produced for one article and
// flips it to processed, all inside one transaction.
func (r *ArticleRepo) CompleteEnrichment(ctx context.Context, id string, art repository.EnrichmentArtifacts) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("CompleteEnrichment: BeginTx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, s := range art.Summaries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO article_summaries (article_id, difficulty, body, zh_body) VALUES (?, ?, ?, ?)`,
			id, s.Difficulty, s.Body, nullIfEmpty(s.ZhBody)); err != nil {
			return fmt.Errorf("CompleteEnrichment: insert summary(%s): %w", s.Difficulty, err)
		}
	}
	for _, k := range art.Keywords {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO keywords (article_id, difficulty, word, frequency, explanation) VALUES (?, ?, ?, ?, ?)`,
			id, k.Difficulty, k.Word, k.Frequency, k.Explanation); err != nil {
			return fmt.Errorf("CompleteEnrichment: insert keyword(%s/%s): %w", k.Difficulty, k.Word, err)
		}
	}
	for _, q := range art.Questions {
		choicesJSON, err := json.Marshal(q.Choices)
		if err != nil {
			return fmt.Errorf("CompleteEnrichment: marshal choices: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO questions (article_id, difficulty, prompt, choices_json) VALUES (?, ?, ?, ?)`,
			id, q.Difficulty, q.Prompt, string(choicesJSON)); err != nil {
			return fmt.Errorf("CompleteEnrichment: insert question(%s): %w", q.Difficulty, err)
		}
	}
	for _, c := range art.Comments {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO comments (article_id, difficulty, attitude, body, is_synthesis) VALUES (?, ?, ?, ?, ?)`,
			id, c.Difficulty, c.Attitude, c.Body, c.IsSynthesis); err != nil {
			return fmt.Errorf("CompleteEnrichment: insert comment(%s): %w", c.Difficulty, err)
		}
	}
	for _, b := range art.BackgroundReads {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO background_read (article_id, difficulty, body) VALUES (?, ?, ?)`,
			id, b.Difficulty, b.Body); err != nil {
			return fmt.Errorf("CompleteEnrichment: insert background_read(%s): %w", b.Difficulty, err)
		}
	}
	for _, an := range art.ArticleAnalyses {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO article_analysis (article_id, difficulty, body) VALUES (?, ?, ?)`,
			id, an.Difficulty, an.Body); err != nil {
			return fmt.Errorf("CompleteEnrichment: insert article_analysis(%s): %w", an.Difficulty, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO response (article_id, file_path, size_bytes) VALUES (?, ?, ?)`,
		id, art.Response.FilePath, art.Response.SizeBytes); err != nil {
		return fmt.Errorf("CompleteEnrichment: insert response: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	res, err := tx.ExecContext(ctx, `
UPDATE articles
SET deepseek_processed = 1, deepseek_in_progress = 0, processed_at = ?, zh_title = ?
WHERE id = ?
`, now, art.ZhTitle, id)
	if err != nil {
		return fmt.Errorf("CompleteEnrichment: update article: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("CompleteEnrichment: RowsAffected: %w", err)
	} else if n == 0 {
		return fmt.Errorf("CompleteEnrichment(%s): %w", id, entity.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("CompleteEnrichment: Commit: %w", err)
	}
	return nil
}

func (r *ArticleRepo) FailEnrichment(ctx context.Context, id string, lastErr string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE articles
SET deepseek_in_progress = 0, deepseek_failed = deepseek_failed + 1, deepseek_last_error = ?
WHERE id = ?
`, lastErr, id)
	if err != nil {
		return fmt.Errorf("FailEnrichment: ExecContext: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

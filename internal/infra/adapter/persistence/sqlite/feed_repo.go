// Package sqlite provides the SQLite-backed implementation of the store
// interfaces declared in internal/repository.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"catchupfeed/internal/domain/entity"
	"catchupfeed/internal/repository"
)

// FeedRepo implements repository.FeedRepository using SQLite.
type FeedRepo struct {
	db *sql.DB
}

// NewFeedRepo creates a new SQLite-backed feed repository.
func NewFeedRepo(db *sql.DB) repository.FeedRepository {
	return &FeedRepo{db: db}
}

func (r *FeedRepo) ListEnabled(ctx context.Context) ([]*entity.Feed, error) {
	const query = `
SELECT id, name, url, category_id, enabled, last_crawled_at
FROM feeds
WHERE enabled = 1
ORDER BY id
`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListEnabled: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	feeds := make([]*entity.Feed, 0, 32)
	for rows.Next() {
		var f entity.Feed
		var lastCrawledAt sql.NullString
		if err := rows.Scan(&f.ID, &f.Name, &f.URL, &f.CategoryID, &f.Enabled, &lastCrawledAt); err != nil {
			return nil, fmt.Errorf("ListEnabled: Scan: %w", err)
		}
		if lastCrawledAt.Valid {
			t, err := time.Parse(time.RFC3339, lastCrawledAt.String)
			if err == nil {
				f.LastCrawledAt = &t
			}
		}
		feeds = append(feeds, &f)
	}
	return feeds, rows.Err()
}

func (r *FeedRepo) CategoryByID(ctx context.Context, id int64) (*entity.Category, error) {
	const query = `SELECT id, name, prompt_name FROM categories WHERE id = ?`
	var c entity.Category
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.PromptName)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("CategoryByID(%d): %w", id, entity.ErrNotFound)
		}
		return nil, fmt.Errorf("CategoryByID: QueryRowContext: %w", err)
	}
	return &c, nil
}

func (r *FeedRepo) TouchCrawledAt(ctx context.Context, id int64, t time.Time) error {
	const query = `UPDATE feeds SET last_crawled_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, t.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("TouchCrawledAt: ExecContext: %w", err)
	}
	return nil
}

// Package repository declares the store-facing interfaces consumed by the
// mining pipeline's use cases. Implementations live under
// internal/infra/adapter/persistence.
package repository

import (
	"context"
	"time"

	"catchupfeed/internal/domain/entity"
)

// FeedRepository exposes the configuration-table operations the crawler
// needs against feeds and categories.
type FeedRepository interface {
	ListEnabled(ctx context.Context) ([]*entity.Feed, error)
	CategoryByID(ctx context.Context, id int64) (*entity.Category, error)
	TouchCrawledAt(ctx context.Context, id int64, t time.Time) error
}

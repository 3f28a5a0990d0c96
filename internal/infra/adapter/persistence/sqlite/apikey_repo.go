package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"catchupfeed/internal/domain/entity"
	"catchupfeed/internal/repository"
)

// APIKeyRepo implements repository.APIKeyRepository using SQLite.
type APIKeyRepo struct {
	db *sql.DB
}

// NewAPIKeyRepo creates a new SQLite-backed api key repository.
func NewAPIKeyRepo(db *sql.DB) repository.APIKeyRepository {
	return &APIKeyRepo{db: db}
}

func (r *APIKeyRepo) Get(ctx context.Context, name string) (*entity.APIKey, error) {
	const query = `SELECT name, value, base_url FROM apikey WHERE name = ?`
	var k entity.APIKey
	var baseURL sql.NullString
	err := r.db.QueryRowContext(ctx, query, name).Scan(&k.Name, &k.Value, &baseURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Get(%q): %w", name, entity.ErrNotFound)
		}
		return nil, fmt.Errorf("Get: QueryRowContext: %w", err)
	}
	if baseURL.Valid {
		k.BaseURL = baseURL.String
	}
	return &k, nil
}

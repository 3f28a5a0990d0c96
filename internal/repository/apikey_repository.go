package repository

import (
	"context"

	"catchupfeed/internal/domain/entity"
)

// APIKeyRepository resolves named provider credentials for the LLM
// orchestrator. Credentials live in the store rather than the environment
// so they can be rotated without restarting the driver.
type APIKeyRepository interface {
	// Get returns the credential registered under name, or
	// entity.ErrNotFound if none exists.
	Get(ctx context.Context, name string) (*entity.APIKey, error)
}

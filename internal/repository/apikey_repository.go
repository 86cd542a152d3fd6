package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"StationData.influxDB/internal/models"
)

// APIKeyRepository looks up API keys in Postgres.
type APIKeyRepository struct {
	db DBTX
}

func NewAPIKeyRepository(db DBTX) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// FindByKey returns nil, nil for unknown keys.
func (r *APIKeyRepository) FindByKey(ctx context.Context, key string) (*models.APIKey, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("api key repo: nil db")
	}
	var k models.APIKey
	err := r.db.QueryRowContext(ctx, `
SELECT id, api_key, owner, limit_per_minute, active
FROM api_keys
WHERE api_key = $1`, key).Scan(&k.ID, &k.Key, &k.Owner, &k.LimitPerMinute, &k.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("api key repo: %w", err)
	}
	return &k, nil
}

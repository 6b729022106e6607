package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hikoneportal/transit-api/models"
)

// RouteCacheRepository persists shaped route-search results in Postgres
type RouteCacheRepository struct {
	pool *pgxpool.Pool
}

// NewRouteCacheRepository connects to Postgres and ensures the schema
func NewRouteCacheRepository(databaseURL string) (*RouteCacheRepository, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := &RouteCacheRepository{pool: pool}
	if err := repo.ensureSchema(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure route_cache schema: %w", err)
	}
	return repo, nil
}

// Close releases the connection pool
func (r *RouteCacheRepository) Close() {
	r.pool.Close()
}

func (r *RouteCacheRepository) ensureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS route_cache (
			id UUID PRIMARY KEY,
			from_key TEXT NOT NULL,
			to_key TEXT NOT NULL,
			search_date TEXT NOT NULL,
			search_time TEXT NOT NULL,
			routes_json JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			valid_until TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_route_cache_lookup
			ON route_cache(from_key, to_key, search_date, search_time);
	`)
	return err
}

// Store saves one shaped route search result
func (r *RouteCacheRepository) Store(ctx context.Context, entry models.CachedRoute) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	query := `
		INSERT INTO route_cache (id, from_key, to_key, search_date, search_time, routes_json, created_at, valid_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.FromKey,
		entry.ToKey,
		entry.SearchDate,
		entry.SearchTime,
		entry.Routes,
		entry.CreatedAt.UTC(),
		entry.ValidUntil.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to store cached route: %w", err)
	}
	return nil
}

// Lookup returns the newest still-valid cached result for the search key
func (r *RouteCacheRepository) Lookup(ctx context.Context, fromKey, toKey, searchDate, searchTime string) (json.RawMessage, error) {
	query := `
		SELECT routes_json
		FROM route_cache
		WHERE from_key = $1 AND to_key = $2 AND search_date = $3 AND search_time = $4
		  AND valid_until > NOW()
		ORDER BY created_at DESC
		LIMIT 1
	`

	var routesJSON []byte
	err := r.pool.QueryRow(ctx, query, fromKey, toKey, searchDate, searchTime).Scan(&routesJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to query route cache: %w", err)
	}
	return json.RawMessage(routesJSON), nil
}

// Ping checks datastore connectivity for health reporting
func (r *RouteCacheRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

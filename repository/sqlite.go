package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hikoneportal/transit-api/models"

	_ "modernc.org/sqlite"
)

// ErrCacheMiss is returned when no valid cached route search exists for
// the requested key
var ErrCacheMiss = errors.New("route cache miss")

// SQLiteDB wraps a SQL database connection for SQLite
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB creates a new SQLite database connection
func NewSQLiteDB(dbPath string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal=WAL&_fk=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *SQLiteDB) GetDB() *sql.DB {
	return s.db
}

// SQLiteRouteCacheRepository persists shaped route-search results in SQLite
type SQLiteRouteCacheRepository struct {
	db *sql.DB
}

// NewSQLiteRouteCacheRepository creates the repository and ensures its schema
func NewSQLiteRouteCacheRepository(db *sql.DB) (*SQLiteRouteCacheRepository, error) {
	repo := &SQLiteRouteCacheRepository{db: db}
	if err := repo.ensureSchema(); err != nil {
		return nil, fmt.Errorf("failed to ensure route_cache schema: %w", err)
	}
	return repo, nil
}

func (r *SQLiteRouteCacheRepository) ensureSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS route_cache (
			id TEXT PRIMARY KEY,
			from_key TEXT NOT NULL,
			to_key TEXT NOT NULL,
			search_date TEXT NOT NULL,
			search_time TEXT NOT NULL,
			routes_json TEXT NOT NULL,
			created_at TEXT NOT NULL,
			valid_until TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_route_cache_lookup
			ON route_cache(from_key, to_key, search_date, search_time);
	`)
	return err
}

// Store saves one shaped route search result
func (r *SQLiteRouteCacheRepository) Store(ctx context.Context, entry models.CachedRoute) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	query := `
		INSERT INTO route_cache (id, from_key, to_key, search_date, search_time, routes_json, created_at, valid_until)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID.String(),
		entry.FromKey,
		entry.ToKey,
		entry.SearchDate,
		entry.SearchTime,
		string(entry.Routes),
		entry.CreatedAt.UTC().Format(time.RFC3339),
		entry.ValidUntil.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to store cached route: %w", err)
	}
	return nil
}

// Lookup returns the newest still-valid cached result for the search key
func (r *SQLiteRouteCacheRepository) Lookup(ctx context.Context, fromKey, toKey, searchDate, searchTime string) (json.RawMessage, error) {
	query := `
		SELECT routes_json
		FROM route_cache
		WHERE from_key = ? AND to_key = ? AND search_date = ? AND search_time = ?
		  AND valid_until > ?
		ORDER BY created_at DESC
		LIMIT 1
	`
	now := time.Now().UTC().Format(time.RFC3339)

	var routesJSON string
	err := r.db.QueryRowContext(ctx, query, fromKey, toKey, searchDate, searchTime, now).Scan(&routesJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to query route cache: %w", err)
	}
	return json.RawMessage(routesJSON), nil
}

// Ping checks datastore connectivity for health reporting
func (r *SQLiteRouteCacheRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

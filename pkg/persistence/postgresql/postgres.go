// Package postgresql provides PostgreSQL-backed blob persistence.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"github.com/atelierhq/atelier/pkg/persistence"
	"github.com/atelierhq/atelier/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL. All blobs live
// in one table keyed by path.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPersistence creates a new PostgreSQL persistence layer and runs schema
// migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:     database,
		logger: logger,
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Save upserts the value under the key.
func (p *Persistence) Save(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return persistence.NewStoreError("Save", key, persistence.ErrInvalidKey)
	}

	query := `
		INSERT INTO blobs (key, value, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`

	_, err := p.db.ExecContext(ctx, query, key, value)
	if err != nil {
		return persistence.NewStoreError("Save", key, err)
	}

	return nil
}

// Load returns the value stored under the key.
func (p *Persistence) Load(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, persistence.NewStoreError("Load", key, persistence.ErrInvalidKey)
	}

	var value []byte

	err := p.db.QueryRowContext(ctx, "SELECT value FROM blobs WHERE key = $1", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("Load", key, persistence.ErrKeyNotFound)
		}

		return nil, persistence.NewStoreError("Load", key, err)
	}

	return value, nil
}

// Delete removes the key.
func (p *Persistence) Delete(ctx context.Context, key string) error {
	if key == "" {
		return persistence.NewStoreError("Delete", key, persistence.ErrInvalidKey)
	}

	result, err := p.db.ExecContext(ctx, "DELETE FROM blobs WHERE key = $1", key)
	if err != nil {
		return persistence.NewStoreError("Delete", key, err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return persistence.NewStoreError("Delete", key, err)
	}

	if removed == 0 {
		return persistence.NewStoreError("Delete", key, persistence.ErrKeyNotFound)
	}

	return nil
}

// Keys lists stored keys with the given prefix.
func (p *Persistence) Keys(ctx context.Context, prefix string) ([]string, error) {
	query := "SELECT key FROM blobs WHERE key LIKE $1 || '%' ORDER BY key"

	rows, err := p.db.QueryContext(ctx, query, prefix)
	if err != nil {
		return nil, persistence.NewStoreError("Keys", prefix, err)
	}

	defer func(ctx context.Context, p *Persistence) {
		err := rows.Close()
		if err != nil {
			p.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}(ctx, p)

	keys := make([]string, 0)

	for rows.Next() {
		var key string

		err := rows.Scan(&key)
		if err != nil {
			return nil, persistence.NewStoreError("Keys", prefix, err)
		}

		keys = append(keys, key)
	}

	err = rows.Err()
	if err != nil {
		return nil, persistence.NewStoreError("Keys", prefix, err)
	}

	return keys, nil
}

package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/atelierhq/atelier/pkg/persistence"
	"github.com/atelierhq/atelier/pkg/persistence/file"
	"github.com/atelierhq/atelier/pkg/persistence/postgresql"
	"github.com/atelierhq/atelier/pkg/persistence/redis"
)

var supportedPersistenceProviders = []string{"file", "redis", "postgres", "postgresql"}

// NewPersistence creates the blob store for the database URL. Unrecognized
// schemes fall back to the file store, treating the URL as a directory root.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider := parsePersistenceProvider(databaseURL)

	switch provider {
	case "redis":
		return redis.NewPersistence(ctx, databaseURL)
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://")), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.Split(databaseURL, "://")

	provider := parts[0]
	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}

// Package assets keeps a rolling history of completed generations in the
// persistence store.
package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/atelierhq/atelier/pkg/models"
	"github.com/atelierhq/atelier/pkg/persistence"
)

const (
	// HistoryKey is the blob the history lives under.
	HistoryKey = "assets/history"
	// DefaultHistoryLimit caps how many entries are retained.
	DefaultHistoryLimit = 200
)

// History appends completed generations to a single newest-first blob,
// trimmed to a fixed cap.
type History struct {
	mu     sync.Mutex
	store  persistence.Persistence
	logger *slog.Logger
	limit  int
}

// NewHistory creates an asset history on top of the store. A non-positive
// limit selects the default cap.
func NewHistory(store persistence.Persistence, logger *slog.Logger, limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	return &History{
		store:  store,
		logger: logger,
		limit:  limit,
	}
}

// Record prepends the asset to the history and persists it. Persistence
// failures are returned but leave no partial state behind.
func (h *History) Record(ctx context.Context, asset models.Asset) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	assets, err := h.load(ctx)
	if err != nil {
		return err
	}

	assets = append([]models.Asset{asset}, assets...)
	if len(assets) > h.limit {
		assets = assets[:h.limit]
	}

	value, err := json.Marshal(assets)
	if err != nil {
		return fmt.Errorf("failed to serialize asset history: %w", err)
	}

	err = h.store.Save(ctx, HistoryKey, value)
	if err != nil {
		return fmt.Errorf("failed to persist asset history: %w", err)
	}

	return nil
}

// List returns the history, newest first. A missing blob is an empty
// history, not an error.
func (h *History) List(ctx context.Context) ([]models.Asset, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.load(ctx)
}

// Clear drops the entire history.
func (h *History) Clear(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	err := h.store.Delete(ctx, HistoryKey)
	if err != nil && !persistence.IsKeyNotFound(err) {
		return fmt.Errorf("failed to clear asset history: %w", err)
	}

	return nil
}

func (h *History) load(ctx context.Context) ([]models.Asset, error) {
	value, err := h.store.Load(ctx, HistoryKey)
	if err != nil {
		if persistence.IsKeyNotFound(err) {
			return []models.Asset{}, nil
		}

		return nil, fmt.Errorf("failed to load asset history: %w", err)
	}

	var assets []models.Asset

	err = json.Unmarshal(value, &assets)
	if err != nil {
		// Corrupt blobs reset to an empty history.
		h.logger.Warn("asset history blob is corrupt, resetting", "error", err.Error())

		return []models.Asset{}, nil
	}

	return assets, nil
}

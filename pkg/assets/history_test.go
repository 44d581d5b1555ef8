package assets_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierhq/atelier/pkg/assets"
	"github.com/atelierhq/atelier/pkg/models"
	"github.com/atelierhq/atelier/pkg/persistence/file"
)

func newTestHistory(t *testing.T, limit int) *assets.History {
	t.Helper()

	store := file.NewPersistence(t.TempDir())

	return assets.NewHistory(store, slog.Default(), limit)
}

func testAsset(nodeID, uri string) models.Asset {
	return models.Asset{
		NodeID: nodeID,
		Type:   models.NodeTypeImageGenerator,
		URI:    uri,
		At:     time.Now().UTC(),
	}
}

func TestHistory_RecordAndList(t *testing.T) {
	t.Parallel()

	history := newTestHistory(t, 0)
	ctx := context.Background()

	require.NoError(t, history.Record(ctx, testAsset("node-1", "img://one")))
	require.NoError(t, history.Record(ctx, testAsset("node-2", "img://two")))
	require.NoError(t, history.Record(ctx, testAsset("node-3", "img://three")))

	listed, err := history.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 3)

	// Newest first.
	assert.Equal(t, "img://three", listed[0].URI)
	assert.Equal(t, "img://two", listed[1].URI)
	assert.Equal(t, "img://one", listed[2].URI)
	assert.Equal(t, "node-3", listed[0].NodeID)
	assert.Equal(t, models.NodeTypeImageGenerator, listed[0].Type)
}

func TestHistory_EmptyByDefault(t *testing.T) {
	t.Parallel()

	history := newTestHistory(t, 0)

	listed, err := history.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestHistory_CapsAtLimit(t *testing.T) {
	t.Parallel()

	history := newTestHistory(t, 5)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		uri := fmt.Sprintf("img://%d", i)
		require.NoError(t, history.Record(ctx, testAsset("node-1", uri)))
	}

	listed, err := history.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 5)

	// The oldest entries fell off the end.
	assert.Equal(t, "img://7", listed[0].URI)
	assert.Equal(t, "img://3", listed[4].URI)
}

func TestHistory_Clear(t *testing.T) {
	t.Parallel()

	history := newTestHistory(t, 0)
	ctx := context.Background()

	require.NoError(t, history.Record(ctx, testAsset("node-1", "img://one")))
	require.NoError(t, history.Clear(ctx))

	listed, err := history.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed)

	// Clearing an already-empty history is fine.
	require.NoError(t, history.Clear(ctx))
}

func TestHistory_CorruptBlobResets(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())
	history := assets.NewHistory(store, slog.Default(), 0)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, assets.HistoryKey, []byte("not json")))

	listed, err := history.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed)

	// Recording over a corrupt blob starts a fresh history.
	require.NoError(t, history.Record(ctx, testAsset("node-1", "img://one")))

	listed, err = history.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "img://one", listed[0].URI)
}

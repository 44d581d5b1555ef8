// Package storetest provides the shared behavioral contract every blob store
// backend must satisfy. Backend test suites call Run with a fresh store.
package storetest

import (
	"testing"

	"github.com/atelierhq/atelier/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises the persistence contract against a fresh, empty store.
func Run(t *testing.T, store persistence.Persistence) {
	t.Helper()

	t.Run("save and load round-trip", func(t *testing.T) {
		err := store.Save(t.Context(), "workflows/wf-1", []byte(`{"id":"wf-1"}`))
		require.NoError(t, err)

		value, err := store.Load(t.Context(), "workflows/wf-1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"wf-1"}`, string(value))
	})

	t.Run("save overwrites previous value", func(t *testing.T) {
		require.NoError(t, store.Save(t.Context(), "workflows/wf-2", []byte(`{"v":1}`)))
		require.NoError(t, store.Save(t.Context(), "workflows/wf-2", []byte(`{"v":2}`)))

		value, err := store.Load(t.Context(), "workflows/wf-2")
		require.NoError(t, err)
		assert.JSONEq(t, `{"v":2}`, string(value))
	})

	t.Run("load missing key", func(t *testing.T) {
		_, err := store.Load(t.Context(), "workflows/ghost")
		assert.True(t, persistence.IsKeyNotFound(err))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Save(t.Context(), "workflows/wf-3", []byte(`{}`)))
		require.NoError(t, store.Delete(t.Context(), "workflows/wf-3"))

		_, err := store.Load(t.Context(), "workflows/wf-3")
		assert.True(t, persistence.IsKeyNotFound(err))

		err = store.Delete(t.Context(), "workflows/wf-3")
		assert.True(t, persistence.IsKeyNotFound(err), "deleting an absent key")
	})

	t.Run("keys by prefix", func(t *testing.T) {
		require.NoError(t, store.Save(t.Context(), "assets/history", []byte(`[]`)))

		keys, err := store.Keys(t.Context(), "workflows/")
		require.NoError(t, err)
		assert.Contains(t, keys, "workflows/wf-1")
		assert.Contains(t, keys, "workflows/wf-2")
		assert.NotContains(t, keys, "assets/history")
		assert.NotContains(t, keys, "workflows/wf-3", "deleted keys are not listed")
	})

	t.Run("empty key rejected", func(t *testing.T) {
		err := store.Save(t.Context(), "", []byte(`{}`))
		assert.True(t, persistence.IsInvalidKey(err))
	})

	t.Run("health check", func(t *testing.T) {
		assert.NoError(t, store.HealthCheck(t.Context()))
	})
}

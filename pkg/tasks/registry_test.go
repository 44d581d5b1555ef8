package tasks_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierhq/atelier/pkg/models"
	"github.com/atelierhq/atelier/pkg/tasks"
)

func TestRegistry_Submit(t *testing.T) {
	t.Parallel()

	registry := tasks.NewRegistry(slog.Default())

	task, err := registry.Submit("node-1")
	require.NoError(t, err)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "node-1", task.NodeID)
	assert.Equal(t, models.TaskStatusQueued, task.Status)
	assert.Equal(t, 0, task.Progress)
	assert.Equal(t, 0, task.Attempts)
	assert.False(t, task.CreatedAt.IsZero())
	assert.False(t, task.UpdatedAt.IsZero())

	assert.Equal(t, 1, registry.Count())

	active, ok := registry.ActiveForNode("node-1")
	require.True(t, ok)
	assert.Equal(t, task.ID, active.ID)
}

func TestRegistry_Submit_SecondActiveRejected(t *testing.T) {
	t.Parallel()

	registry := tasks.NewRegistry(slog.Default())

	first, err := registry.Submit("node-1")
	require.NoError(t, err)

	second, err := registry.Submit("node-1")
	require.ErrorIs(t, err, tasks.ErrTaskActive)
	assert.Nil(t, second)

	// The in-flight task is untouched and remains the only record.
	assert.Equal(t, 1, registry.Count())

	active, ok := registry.ActiveForNode("node-1")
	require.True(t, ok)
	assert.Equal(t, first.ID, active.ID)
}

func TestRegistry_Submit_AfterTerminalAllowed(t *testing.T) {
	t.Parallel()

	registry := tasks.NewRegistry(slog.Default())

	first, err := registry.Submit("node-1")
	require.NoError(t, err)

	_, ok := registry.Complete(first.ID, "img://one")
	require.True(t, ok)

	second, err := registry.Submit("node-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, models.TaskStatusQueued, second.Status)
}

func TestRegistry_UpdateProgress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		status       models.TaskStatus
		progress     int
		wantProgress int
	}{
		{
			name:         "processing with progress",
			status:       models.TaskStatusProcessing,
			progress:     45,
			wantProgress: 45,
		},
		{
			name:         "progress clamped to 100",
			status:       models.TaskStatusProcessing,
			progress:     250,
			wantProgress: 100,
		},
		{
			name:         "negative progress clamped to zero",
			status:       models.TaskStatusQueued,
			progress:     -10,
			wantProgress: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			registry := tasks.NewRegistry(slog.Default())

			task, err := registry.Submit("node-1")
			require.NoError(t, err)

			updated, ok := registry.UpdateProgress(task.ID, tt.status, tt.progress)
			require.True(t, ok)
			assert.Equal(t, tt.status, updated.Status)
			assert.Equal(t, tt.wantProgress, updated.Progress)
		})
	}
}

func TestRegistry_UpdateProgress_UnknownTaskDiscarded(t *testing.T) {
	t.Parallel()

	registry := tasks.NewRegistry(slog.Default())

	updated, ok := registry.UpdateProgress("missing", models.TaskStatusProcessing, 50)
	assert.False(t, ok)
	assert.Nil(t, updated)
}

func TestRegistry_Complete(t *testing.T) {
	t.Parallel()

	registry := tasks.NewRegistry(slog.Default())

	task, err := registry.Submit("node-1")
	require.NoError(t, err)

	final, ok := registry.Complete(task.ID, "img://result")
	require.True(t, ok)
	assert.Equal(t, models.TaskStatusCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)
	assert.Equal(t, "img://result", final.Result)

	// Terminal tasks leave the registry entirely.
	assert.Equal(t, 0, registry.Count())

	_, ok = registry.Get(task.ID)
	assert.False(t, ok)

	_, ok = registry.ActiveForNode("node-1")
	assert.False(t, ok)

	_, ok = registry.Complete(task.ID, "img://again")
	assert.False(t, ok)
}

func TestRegistry_Fail(t *testing.T) {
	t.Parallel()

	registry := tasks.NewRegistry(slog.Default())

	task, err := registry.Submit("node-1")
	require.NoError(t, err)

	final, ok := registry.Fail(task.ID, "provider exploded")
	require.True(t, ok)
	assert.Equal(t, models.TaskStatusFailed, final.Status)
	assert.Equal(t, "provider exploded", final.ErrorMessage)

	assert.Equal(t, 0, registry.Count())

	_, ok = registry.Fail(task.ID, "again")
	assert.False(t, ok)
}

func TestRegistry_CancelForNode(t *testing.T) {
	t.Parallel()

	registry := tasks.NewRegistry(slog.Default())

	task, err := registry.Submit("node-1")
	require.NoError(t, err)

	removed, ok := registry.CancelForNode("node-1")
	require.True(t, ok)
	assert.Equal(t, task.ID, removed.ID)

	assert.Equal(t, 0, registry.Count())

	_, ok = registry.CancelForNode("node-1")
	assert.False(t, ok)
}

func TestRegistry_IncrementAttempts(t *testing.T) {
	t.Parallel()

	registry := tasks.NewRegistry(slog.Default())

	task, err := registry.Submit("node-1")
	require.NoError(t, err)

	for want := 1; want <= 3; want++ {
		attempts, ok := registry.IncrementAttempts(task.ID)
		require.True(t, ok)
		assert.Equal(t, want, attempts)
	}

	current, ok := registry.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, 3, current.Attempts)

	_, ok = registry.IncrementAttempts("missing")
	assert.False(t, ok)
}

func TestRegistry_Tasks(t *testing.T) {
	t.Parallel()

	registry := tasks.NewRegistry(slog.Default())

	ids := make([]string, 0, 3)

	for _, nodeID := range []string{"node-1", "node-2", "node-3"} {
		task, err := registry.Submit(nodeID)
		require.NoError(t, err)

		ids = append(ids, task.ID)
	}

	all := registry.Tasks()
	require.Len(t, all, 3)

	got := make([]string, 0, len(all))
	for _, task := range all {
		got = append(got, task.ID)
	}

	assert.ElementsMatch(t, ids, got)
}

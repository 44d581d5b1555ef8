package tasks_test

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierhq/atelier/pkg/tasks"
)

const pollTestInterval = 10 * time.Millisecond

func waitStopped(t *testing.T, poller *tasks.Poller, taskID string) {
	t.Helper()

	deadline := time.After(2 * time.Second)

	for poller.Polling(taskID) {
		select {
		case <-deadline:
			t.Fatal("poll loop did not stop within timeout")
		case <-time.After(pollTestInterval):
		}
	}
}

func TestPoller_StopsOnTerminalResult(t *testing.T) {
	t.Parallel()

	registry := tasks.NewRegistry(slog.Default())
	poller := tasks.NewPoller(registry, slog.Default(), pollTestInterval, 0)

	task, err := registry.Submit("node-1")
	require.NoError(t, err)

	var polls atomic.Int32

	poll := func(_ context.Context) (bool, error) {
		return polls.Add(1) >= 3, nil
	}
	expire := func(_ context.Context, _ int) {
		t.Error("expire must not fire for a terminal result")
	}

	poller.Start(context.Background(), task.ID, poll, expire)
	waitStopped(t, poller, task.ID)

	assert.Equal(t, int32(3), polls.Load())

	current, ok := registry.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, 3, current.Attempts)
}

func TestPoller_ExpiresAfterAttemptBudget(t *testing.T) {
	t.Parallel()

	registry := tasks.NewRegistry(slog.Default())
	poller := tasks.NewPoller(registry, slog.Default(), pollTestInterval, 3)

	task, err := registry.Submit("node-1")
	require.NoError(t, err)

	expired := make(chan int, 1)

	poll := func(_ context.Context) (bool, error) {
		return false, nil
	}
	expire := func(_ context.Context, attempts int) {
		expired <- attempts
	}

	poller.Start(context.Background(), task.ID, poll, expire)

	select {
	case attempts := <-expired:
		assert.Equal(t, 3, attempts)
	case <-time.After(2 * time.Second):
		t.Fatal("expire was not invoked within timeout")
	}

	waitStopped(t, poller, task.ID)
}

func TestPoller_PollErrorsStillConsumeBudget(t *testing.T) {
	t.Parallel()

	registry := tasks.NewRegistry(slog.Default())
	poller := tasks.NewPoller(registry, slog.Default(), pollTestInterval, 2)

	task, err := registry.Submit("node-1")
	require.NoError(t, err)

	expired := make(chan int, 1)

	poll := func(_ context.Context) (bool, error) {
		return false, assert.AnError
	}
	expire := func(_ context.Context, attempts int) {
		expired <- attempts
	}

	poller.Start(context.Background(), task.ID, poll, expire)

	select {
	case attempts := <-expired:
		assert.Equal(t, 2, attempts)
	case <-time.After(2 * time.Second):
		t.Fatal("expire was not invoked within timeout")
	}
}

func TestPoller_StopsWhenTaskCleared(t *testing.T) {
	t.Parallel()

	registry := tasks.NewRegistry(slog.Default())
	poller := tasks.NewPoller(registry, slog.Default(), pollTestInterval, 0)

	task, err := registry.Submit("node-1")
	require.NoError(t, err)

	var polls atomic.Int32

	firstPoll := make(chan struct{}, 1)

	poll := func(_ context.Context) (bool, error) {
		if polls.Add(1) == 1 {
			firstPoll <- struct{}{}
		}

		return false, nil
	}
	expire := func(_ context.Context, _ int) {}

	poller.Start(context.Background(), task.ID, poll, expire)

	select {
	case <-firstPoll:
	case <-time.After(2 * time.Second):
		t.Fatal("first poll did not happen within timeout")
	}

	// Clearing the registry entry stops the loop on its next tick.
	_, ok := registry.CancelForNode("node-1")
	require.True(t, ok)

	waitStopped(t, poller, task.ID)

	frozen := polls.Load()

	time.Sleep(5 * pollTestInterval)
	assert.Equal(t, frozen, polls.Load())
}

func TestPoller_Stop(t *testing.T) {
	t.Parallel()

	registry := tasks.NewRegistry(slog.Default())
	poller := tasks.NewPoller(registry, slog.Default(), pollTestInterval, 0)

	task, err := registry.Submit("node-1")
	require.NoError(t, err)

	var polls atomic.Int32

	poll := func(_ context.Context) (bool, error) {
		polls.Add(1)

		return false, nil
	}
	expire := func(_ context.Context, _ int) {}

	poller.Start(context.Background(), task.ID, poll, expire)
	require.True(t, poller.Polling(task.ID))

	poller.Stop(task.ID)
	assert.False(t, poller.Polling(task.ID))

	// Stopping an unknown task is a no-op.
	poller.Stop("missing")
}

func TestPoller_StartTwiceRunsOneLoop(t *testing.T) {
	t.Parallel()

	registry := tasks.NewRegistry(slog.Default())
	poller := tasks.NewPoller(registry, slog.Default(), pollTestInterval, 0)

	task, err := registry.Submit("node-1")
	require.NoError(t, err)

	poll := func(_ context.Context) (bool, error) {
		return false, nil
	}
	expire := func(_ context.Context, _ int) {}

	poller.Start(context.Background(), task.ID, poll, expire)
	poller.Start(context.Background(), task.ID, poll, expire)

	// A duplicate Start must not leak a second loop; StopAll would hang on
	// an unbalanced wait group.
	done := make(chan struct{})

	go func() {
		poller.StopAll()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("StopAll did not return within timeout")
	}

	assert.False(t, poller.Polling(task.ID))
}

func TestPoller_StopAll(t *testing.T) {
	t.Parallel()

	registry := tasks.NewRegistry(slog.Default())
	poller := tasks.NewPoller(registry, slog.Default(), pollTestInterval, 0)

	poll := func(_ context.Context) (bool, error) {
		return false, nil
	}
	expire := func(_ context.Context, _ int) {}

	taskIDs := make([]string, 0, 2)

	for _, nodeID := range []string{"node-1", "node-2"} {
		task, err := registry.Submit(nodeID)
		require.NoError(t, err)

		poller.Start(context.Background(), task.ID, poll, expire)

		taskIDs = append(taskIDs, task.ID)
	}

	poller.StopAll()

	for _, taskID := range taskIDs {
		assert.False(t, poller.Polling(taskID))
	}
}

func TestPoller_ParentContextCancelStopsLoop(t *testing.T) {
	t.Parallel()

	registry := tasks.NewRegistry(slog.Default())
	poller := tasks.NewPoller(registry, slog.Default(), pollTestInterval, 0)

	task, err := registry.Submit("node-1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	poll := func(_ context.Context) (bool, error) {
		return false, nil
	}
	expire := func(_ context.Context, _ int) {}

	poller.Start(ctx, task.ID, poll, expire)
	cancel()

	waitStopped(t, poller, task.ID)
}

package sim_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierhq/atelier/pkg/models"
	"github.com/atelierhq/atelier/pkg/protocol"
	"github.com/atelierhq/atelier/pkg/providers/sim"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSubmitJob_Synchronous(t *testing.T) {
	t.Parallel()

	service := sim.NewService(testLogger(), 0)

	result, err := service.SubmitJob(context.Background(), models.NodeTypeImageGenerator, &protocol.GenerationRequest{Prompt: "a quiet harbor"})
	require.NoError(t, err)

	assert.False(t, result.Async())
	assert.Equal(t, "sim://image-generator/000001", result.ResultURI)
}

func TestSubmitJob_SynchronousFailure(t *testing.T) {
	t.Parallel()

	service := sim.NewService(testLogger(), 0)

	_, err := service.SubmitJob(context.Background(), models.NodeTypeImageGenerator, &protocol.GenerationRequest{Prompt: "fail: no capacity"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no capacity")
}

func TestAsyncJobAdvancesPerPoll(t *testing.T) {
	t.Parallel()

	service := sim.NewService(testLogger(), 3)
	ctx := context.Background()

	result, err := service.SubmitJob(ctx, models.NodeTypeVideoGenerator, &protocol.GenerationRequest{Prompt: "waves"})
	require.NoError(t, err)
	require.True(t, result.Async())

	status, err := service.GetJobStatus(ctx, result.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusProcessing, status.Status)
	assert.Equal(t, 33, status.Progress)

	status, err = service.GetJobStatus(ctx, result.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusProcessing, status.Status)
	assert.Equal(t, 66, status.Progress)

	status, err = service.GetJobStatus(ctx, result.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, status.Status)
	assert.Equal(t, 100, status.Progress)
	assert.Equal(t, "sim://video-generator/000001", status.ResultURI)

	// Completion releases the handle.
	_, err = service.GetJobStatus(ctx, result.TaskID)
	assert.ErrorIs(t, err, sim.ErrUnknownTask)
}

func TestAsyncScriptedFailure(t *testing.T) {
	t.Parallel()

	service := sim.NewService(testLogger(), 2)
	ctx := context.Background()

	result, err := service.SubmitJob(ctx, models.NodeTypeImageGenerator, &protocol.GenerationRequest{Prompt: "fail: safety rejection"})
	require.NoError(t, err)
	require.True(t, result.Async())

	status, err := service.GetJobStatus(ctx, result.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusProcessing, status.Status)

	status, err = service.GetJobStatus(ctx, result.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, status.Status)
	assert.Equal(t, "safety rejection", status.ErrorMessage)
}

func TestJobsGetDistinctResults(t *testing.T) {
	t.Parallel()

	service := sim.NewService(testLogger(), 1)
	ctx := context.Background()

	first, err := service.SubmitJob(ctx, models.NodeTypeImageGenerator, &protocol.GenerationRequest{Prompt: "one"})
	require.NoError(t, err)

	second, err := service.SubmitJob(ctx, models.NodeTypeImageGenerator, &protocol.GenerationRequest{Prompt: "two"})
	require.NoError(t, err)

	assert.NotEqual(t, first.TaskID, second.TaskID)

	firstStatus, err := service.GetJobStatus(ctx, first.TaskID)
	require.NoError(t, err)

	secondStatus, err := service.GetJobStatus(ctx, second.TaskID)
	require.NoError(t, err)

	assert.NotEqual(t, firstStatus.ResultURI, secondStatus.ResultURI)
}

func TestGetJobStatus_UnknownTask(t *testing.T) {
	t.Parallel()

	service := sim.NewService(testLogger(), 2)

	_, err := service.GetJobStatus(context.Background(), "never-issued")
	assert.ErrorIs(t, err, sim.ErrUnknownTask)
}

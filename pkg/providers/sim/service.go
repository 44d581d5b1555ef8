// Package sim provides a deterministic in-process generation service.
//
// It exists so the engine can run end to end without external providers:
// results are fabricated URIs, async jobs advance by a fixed step per poll,
// and prompts prefixed with "fail:" produce a failed job carrying the rest
// of the prompt as the error message.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/atelierhq/atelier/pkg/models"
	"github.com/atelierhq/atelier/pkg/protocol"
)

// FailPrefix marks a prompt that should end in a scripted failure.
const FailPrefix = "fail:"

// ErrUnknownTask is returned when polling a task the service never issued.
var ErrUnknownTask = errors.New("unknown task")

type job struct {
	nodeType models.NodeType
	seq      int
	polls    int
	failWith string
}

// Service is a scripted generation backend. Zero steps means every submit
// completes synchronously; otherwise each job takes exactly steps polls to
// finish.
type Service struct {
	logger *slog.Logger
	steps  int

	mu   sync.Mutex
	seq  int
	jobs map[string]*job
}

// NewService creates a simulated generation service. steps is the number of
// status polls an async job needs before completing; steps <= 0 makes every
// submission synchronous.
func NewService(logger *slog.Logger, steps int) *Service {
	return &Service{
		logger: logger.With("module", "sim"),
		steps:  steps,
		jobs:   make(map[string]*job),
	}
}

// SubmitJob fabricates a result or task handle without calling anything.
func (s *Service) SubmitJob(ctx context.Context, nodeType models.NodeType, req *protocol.GenerationRequest) (*protocol.SubmitResult, error) {
	failWith := scriptedFailure(req.Prompt)

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	if s.steps <= 0 {
		if failWith != "" {
			return nil, fmt.Errorf("simulated failure: %s", failWith)
		}

		return &protocol.SubmitResult{ResultURI: resultURI(nodeType, seq)}, nil
	}

	taskID := fmt.Sprintf("sim-task-%06d", seq)

	s.mu.Lock()
	s.jobs[taskID] = &job{nodeType: nodeType, seq: seq, failWith: failWith}
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "simulated job accepted", "node_type", nodeType, "task_id", taskID)

	return &protocol.SubmitResult{TaskID: taskID}, nil
}

// GetJobStatus advances the job by one step and reports its state. The final
// step completes the job, or fails it when the prompt scripted a failure.
func (s *Service) GetJobStatus(_ context.Context, taskID string) (*protocol.JobStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[taskID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}

	j.polls++
	if j.polls < s.steps {
		return &protocol.JobStatus{
			Status:   models.TaskStatusProcessing,
			Progress: j.polls * 100 / s.steps,
		}, nil
	}

	delete(s.jobs, taskID)

	if j.failWith != "" {
		return &protocol.JobStatus{
			Status:       models.TaskStatusFailed,
			ErrorMessage: j.failWith,
		}, nil
	}

	return &protocol.JobStatus{
		Status:    models.TaskStatusCompleted,
		Progress:  100,
		ResultURI: resultURI(j.nodeType, j.seq),
	}, nil
}

func scriptedFailure(prompt string) string {
	if !strings.HasPrefix(prompt, FailPrefix) {
		return ""
	}

	msg := strings.TrimSpace(strings.TrimPrefix(prompt, FailPrefix))
	if msg == "" {
		msg = "simulated failure"
	}

	return msg
}

func resultURI(nodeType models.NodeType, seq int) string {
	return fmt.Sprintf("sim://%s/%06d", nodeType, seq)
}

// Package tasks tracks in-flight generation tasks and drives their polling
// lifecycle. The registry holds at most one non-terminal task per node;
// terminal tasks are cleared, never stored.
package tasks

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atelierhq/atelier/pkg/models"
)

// ErrTaskActive is returned by Submit when the node already has a
// non-terminal task registered. A repeated generate request is not queued
// and does not replace the in-flight task.
var ErrTaskActive = errors.New("an active task is already registered for this node")

// Registry is the authoritative record of in-flight generation tasks.
type Registry struct {
	mu     sync.RWMutex
	tasks  map[string]*models.GenerationTask
	byNode map[string]string
	logger *slog.Logger
}

// NewRegistry creates an empty task registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		tasks:  make(map[string]*models.GenerationTask),
		byNode: make(map[string]string),
		logger: logger,
	}
}

// Submit registers a new queued task for the node. It fails with
// ErrTaskActive when a non-terminal task already exists for the node.
func (r *Registry) Submit(nodeID string) (*models.GenerationTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byNode[nodeID]; ok {
		return nil, ErrTaskActive
	}

	now := time.Now().UTC()
	task := &models.GenerationTask{
		ID:        uuid.NewString(),
		NodeID:    nodeID,
		Status:    models.TaskStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.tasks[task.ID] = task
	r.byNode[nodeID] = task.ID

	r.logger.Debug("task registered", "task_id", task.ID, "node_id", nodeID)

	return task.Clone(), nil
}

// Get returns the task with the given id, if it is still registered.
func (r *Registry) Get(taskID string) (*models.GenerationTask, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[taskID]
	if !ok {
		return nil, false
	}

	return task.Clone(), true
}

// ActiveForNode returns the node's in-flight task, if any.
func (r *Registry) ActiveForNode(nodeID string) (*models.GenerationTask, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	taskID, ok := r.byNode[nodeID]
	if !ok {
		return nil, false
	}

	return r.tasks[taskID].Clone(), true
}

// Tasks returns all registered tasks ordered by creation time.
func (r *Registry) Tasks() []*models.GenerationTask {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]*models.GenerationTask, 0, len(r.tasks))
	for _, task := range r.tasks {
		tasks = append(tasks, task.Clone())
	}

	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}

		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})

	return tasks
}

// Count returns the number of registered tasks.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tasks)
}

// IncrementAttempts records one poll attempt against the task and returns
// the updated attempt count. It reports false when the task is no longer
// registered, which tells the poll loop to stop.
func (r *Registry) IncrementAttempts(taskID string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[taskID]
	if !ok {
		return 0, false
	}

	task.Attempts++
	task.UpdatedAt = time.Now().UTC()

	return task.Attempts, true
}

// UpdateProgress applies a non-terminal status update to the task. It
// reports false when the task is no longer registered, in which case the
// update is discarded.
func (r *Registry) UpdateProgress(taskID string, status models.TaskStatus, progress int) (*models.GenerationTask, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[taskID]
	if !ok {
		return nil, false
	}

	task.Status = status
	task.Progress = clampProgress(progress)
	task.UpdatedAt = time.Now().UTC()

	return task.Clone(), true
}

// Complete marks the task completed and clears it from the registry,
// returning the final record. It reports false when the task is no longer
// registered.
func (r *Registry) Complete(taskID, result string) (*models.GenerationTask, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[taskID]
	if !ok {
		return nil, false
	}

	task.Status = models.TaskStatusCompleted
	task.Progress = 100
	task.Result = result
	task.UpdatedAt = time.Now().UTC()

	r.remove(task)

	r.logger.Debug("task completed", "task_id", task.ID, "node_id", task.NodeID)

	return task, true
}

// Fail marks the task failed and clears it from the registry, returning the
// final record. It reports false when the task is no longer registered.
func (r *Registry) Fail(taskID, message string) (*models.GenerationTask, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[taskID]
	if !ok {
		return nil, false
	}

	task.Status = models.TaskStatusFailed
	task.ErrorMessage = message
	task.UpdatedAt = time.Now().UTC()

	r.remove(task)

	r.logger.Debug("task failed", "task_id", task.ID, "node_id", task.NodeID, "error", message)

	return task, true
}

// CancelForNode clears the node's in-flight task without marking it
// terminal, returning the removed record. It reports false when the node
// has no registered task.
func (r *Registry) CancelForNode(nodeID string) (*models.GenerationTask, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	taskID, ok := r.byNode[nodeID]
	if !ok {
		return nil, false
	}

	task := r.tasks[taskID]
	r.remove(task)

	r.logger.Debug("task cancelled", "task_id", task.ID, "node_id", nodeID)

	return task, true
}

// remove deletes the task from both indexes. Callers must hold the lock.
func (r *Registry) remove(task *models.GenerationTask) {
	delete(r.tasks, task.ID)
	delete(r.byNode, task.NodeID)
}

func clampProgress(progress int) int {
	if progress < 0 {
		return 0
	}

	if progress > 100 {
		return 100
	}

	return progress
}

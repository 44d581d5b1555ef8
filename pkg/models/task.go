package models

import "time"

// TaskStatus defines the lifecycle states of a generation task.
type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// IsTerminal reports whether the status is a terminal state.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// GenerationTask is the asynchronous unit of work representing one call to
// the external generation service on behalf of a node. At most one
// non-terminal task exists per node at any time.
type GenerationTask struct {
	ID           string     `json:"task_id"    validate:"required"`
	NodeID       string     `json:"node_id"    validate:"required"`
	Status       TaskStatus `json:"status"`
	Progress     int        `json:"progress"` // 0..100
	Result       string     `json:"result,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Attempts     int        `json:"attempts"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Clone returns a copy of the task record.
func (t *GenerationTask) Clone() *GenerationTask {
	clone := *t

	return &clone
}

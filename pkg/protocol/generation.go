// Package protocol defines the interfaces between the canvas engine and its
// external collaborators: the generation service and the thumbnail renderer.
package protocol

import (
	"context"

	"github.com/atelierhq/atelier/pkg/models"
)

// GenerationRequest carries everything a provider needs to run one generation
// on behalf of a node: the rendered prompt, the node's parameters and the
// upstream media gathered from connected inputs, in input order.
type GenerationRequest struct {
	Prompt string `json:"prompt"`

	// Params are the node's generation parameters, already validated against
	// the node type's schema.
	Params map[string]any `json:"params,omitempty"`

	// SourceImages are upstream image URIs in the node's input order. The
	// order is meaningful for multi-image composition.
	SourceImages []string `json:"source_images,omitempty"`

	// SourceVideo is the upstream video URI for analyzer nodes.
	SourceVideo string `json:"source_video,omitempty"`
}

// SubmitResult is the provider's answer to a job submission: either an
// immediate result or a task handle to poll. Exactly one of the two fields
// is set.
type SubmitResult struct {
	ResultURI string `json:"result_uri,omitempty"`
	TaskID    string `json:"task_id,omitempty"`
}

// Async reports whether the submission returned a task handle to poll
// instead of an immediate result.
func (r *SubmitResult) Async() bool {
	return r.TaskID != ""
}

// JobStatus is one poll observation of an asynchronous job.
type JobStatus struct {
	Status       models.TaskStatus `json:"status"`
	Progress     int               `json:"progress"`
	ResultURI    string            `json:"result_uri,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

// GenerationService is the boundary to the external AI providers. The
// generation orchestrator is its only caller.
type GenerationService interface {
	// SubmitJob submits a generation request for the given node type and
	// returns either a synchronous result or an asynchronous task handle.
	SubmitJob(ctx context.Context, nodeType models.NodeType, req *GenerationRequest) (*SubmitResult, error)

	// GetJobStatus reports the current state of an asynchronous job.
	GetJobStatus(ctx context.Context, taskID string) (*JobStatus, error)
}

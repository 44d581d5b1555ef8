// Package web provides the REST surface over the live canvas: node and
// connection mutations, generation control, pointer interaction, and the
// workflow collection.
package web

import (
	"time"

	"github.com/atelierhq/atelier/pkg/interaction"
	"github.com/atelierhq/atelier/pkg/models"
)

// CreateNodeRequest represents the request body for placing a new node.
type CreateNodeRequest struct {
	Type  string  `json:"type" validate:"required"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Title string  `json:"title,omitempty"`
}

// UpdateNodeRequest represents a partial node update. Absent fields are left
// untouched; geometry fields move or resize through the canvas rules (aspect
// lock, minimum size).
type UpdateNodeRequest struct {
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
	Title  *string  `json:"title,omitempty"`
	Prompt *string  `json:"prompt,omitempty"`

	// Params replaces the node's generation parameters wholesale when present.
	Params map[string]any `json:"params,omitempty"`
}

// ReorderInputsRequest carries the new input order for a node. It must be a
// permutation of the node's current inputs.
type ReorderInputsRequest struct {
	Inputs []string `json:"inputs" validate:"required,min=1"`
}

// CreateConnectionRequest represents the request body for connecting two
// nodes. The wire direction is implicit: from's output port into to's input
// port.
type CreateConnectionRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to"   validate:"required"`
}

// CreateGroupRequest represents the request body for creating a group frame.
type CreateGroupRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Title  string  `json:"title,omitempty"`
}

// UpdateGroupRequest represents a partial group update.
type UpdateGroupRequest struct {
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
	Title  *string  `json:"title,omitempty"`
}

// BatchDeleteRequest names the nodes a multi-select delete removes.
type BatchDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}

// SaveWorkflowRequest represents the request body for saving the canvas as a
// named workflow.
type SaveWorkflowRequest struct {
	Title string `json:"title" validate:"required,min=1"`
}

// RenameWorkflowRequest represents the request body for renaming a stored
// workflow.
type RenameWorkflowRequest struct {
	Title string `json:"title" validate:"required,min=1"`
}

// PointerTarget is the wire form of a resolved hit target. The renderer does
// the hit testing; the engine only receives what the pointer touched.
type PointerTarget struct {
	Kind    string `json:"kind"              validate:"required,oneof=node_body node_title port resize_handle group_body canvas"`
	NodeID  string `json:"node_id,omitempty"`
	GroupID string `json:"group_id,omitempty"`
	Port    string `json:"port,omitempty"    validate:"omitempty,oneof=input output"`
}

// PointerRequest is one pointer event sample in canvas coordinates.
type PointerRequest struct {
	Target   PointerTarget `json:"target"`
	X        float64       `json:"x"`
	Y        float64       `json:"y"`
	Modifier bool          `json:"modifier,omitempty"`
}

// PointerMoveRequest carries only coordinates; moves are target-free.
type PointerMoveRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CommitTitleRequest represents the request body finishing a title edit.
type CommitTitleRequest struct {
	Title string `json:"title"`
}

// RetitleSelectionRequest carries the title applied to every selected node.
type RetitleSelectionRequest struct {
	Title string `json:"title" validate:"required,min=1"`
}

// Target converts the wire form into the machine's resolved target.
func (t PointerTarget) Target() interaction.Target {
	return interaction.Target{
		Kind:    interaction.TargetKind(t.Kind),
		NodeID:  t.NodeID,
		GroupID: t.GroupID,
		Port:    models.Port(t.Port),
	}
}

// InteractionResponse reports the machine's session state after an event.
type InteractionResponse struct {
	State     string               `json:"state"`
	Selection []string             `json:"selection"`
	Viewport  interaction.Viewport `json:"viewport"`
}

// CanvasResponse is the full document the renderer draws from.
type CanvasResponse struct {
	Nodes       []*models.Node       `json:"nodes"`
	Connections []*models.Connection `json:"connections"`
	Groups      []*models.Group      `json:"groups"`
}

// NodeTypeResponse describes one registered node type for the palette.
type NodeTypeResponse struct {
	Type          string         `json:"type"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	DefaultWidth  float64        `json:"default_width"`
	DefaultHeight float64        `json:"default_height"`
	MinWidth      float64        `json:"min_width"`
	MinHeight     float64        `json:"min_height"`
	AspectRatio   float64        `json:"aspect_ratio,omitempty"`
	Generates     bool           `json:"generates"`
	DefaultParams map[string]any `json:"default_params,omitempty"`
	Schema        map[string]any `json:"schema,omitempty"`
}

// WorkflowSummary is the listing projection of a stored workflow: identity
// and thumbnail without the full graph payload.
type WorkflowSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail,omitempty"`
	NodeCount int    `json:"node_count"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// TransformWorkflowSummary projects a stored workflow into its listing form.
func TransformWorkflowSummary(workflow *models.Workflow) WorkflowSummary {
	return WorkflowSummary{
		ID:        workflow.ID,
		Title:     workflow.Title,
		Thumbnail: workflow.Thumbnail,
		NodeCount: len(workflow.Nodes),
		CreatedAt: workflow.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: workflow.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/atelierhq/atelier/pkg/models"
)

// CreateTestNode creates a test node with default values that can be
// overridden.
func CreateTestNode(overrides ...func(*models.Node)) *models.Node {
	node := &models.Node{
		ID:     uuid.New().String(),
		Type:   models.NodeTypeImageGenerator,
		Title:  "Image",
		X:      100,
		Y:      200,
		Status: models.NodeStatusIdle,
		Inputs: []string{},
		Data: models.NodeData{
			Prompt: "a test prompt",
			Params: map[string]any{"aspect_ratio": "4:3", "count": 1},
		},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithID sets the node ID.
func WithID(id string) func(*models.Node) {
	return func(n *models.Node) {
		n.ID = id
	}
}

// WithType sets the node type and clears type-specific defaults.
func WithType(nodeType models.NodeType) func(*models.Node) {
	return func(n *models.Node) {
		n.Type = nodeType
		n.Data.Params = nil
	}
}

// WithTitle sets the node title.
func WithTitle(title string) func(*models.Node) {
	return func(n *models.Node) {
		n.Title = title
	}
}

// WithPosition sets the node position.
func WithPosition(x, y float64) func(*models.Node) {
	return func(n *models.Node) {
		n.X = x
		n.Y = y
	}
}

// WithSize sets an explicit node size.
func WithSize(width, height float64) func(*models.Node) {
	return func(n *models.Node) {
		n.Width = &width
		n.Height = &height
	}
}

// WithStatus sets the node status.
func WithStatus(status models.NodeStatus) func(*models.Node) {
	return func(n *models.Node) {
		n.Status = status
	}
}

// WithPrompt sets the node prompt.
func WithPrompt(prompt string) func(*models.Node) {
	return func(n *models.Node) {
		n.Data.Prompt = prompt
	}
}

// WithParams sets the node's generation parameters.
func WithParams(params map[string]any) func(*models.Node) {
	return func(n *models.Node) {
		n.Data.Params = params
	}
}

// WithInputs sets the node's ordered input IDs.
func WithInputs(ids ...string) func(*models.Node) {
	return func(n *models.Node) {
		n.Inputs = ids
	}
}

// CreateTestWorkflow creates an empty test workflow record.
func CreateTestWorkflow(title string) *models.Workflow {
	now := time.Now().UTC()

	return &models.Workflow{
		ID:          uuid.New().String(),
		Title:       title,
		Nodes:       []*models.Node{},
		Connections: []*models.Connection{},
		Groups:      []*models.Group{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// CreateTestWorkflowWithNodes creates a test workflow holding a prompt node
// wired into an image generator.
func CreateTestWorkflowWithNodes(title string) *models.Workflow {
	workflow := CreateTestWorkflow(title)

	prompt := CreateTestNode(
		WithID("prompt-1"),
		WithType(models.NodeTypePromptInput),
		WithTitle("Prompt"),
		WithPosition(0, 0),
	)
	image := CreateTestNode(
		WithID("image-1"),
		WithPosition(400, 0),
		WithInputs(prompt.ID),
	)

	workflow.Nodes = []*models.Node{prompt, image}
	workflow.Connections = []*models.Connection{CreateTestConnection(prompt.ID, image.ID)}

	return workflow
}

// CreateTestConnection creates a connection between two nodes.
func CreateTestConnection(fromID, toID string) *models.Connection {
	return &models.Connection{
		From: fromID,
		To:   toID,
	}
}

// CreateTestGroup creates a test group frame.
func CreateTestGroup(title string, x, y, width, height float64) *models.Group {
	return &models.Group{
		ID:     uuid.New().String(),
		Title:  title,
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
	}
}

// CreateTestTask creates an in-flight generation task for the node.
func CreateTestTask(nodeID string, overrides ...func(*models.GenerationTask)) *models.GenerationTask {
	now := time.Now().UTC()

	task := &models.GenerationTask{
		ID:        uuid.New().String(),
		NodeID:    nodeID,
		Status:    models.TaskStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, override := range overrides {
		override(task)
	}

	return task
}

// WithTaskStatus sets the task status.
func WithTaskStatus(status models.TaskStatus) func(*models.GenerationTask) {
	return func(task *models.GenerationTask) {
		task.Status = status
	}
}

// WithTaskProgress sets the task progress percentage.
func WithTaskProgress(progress int) func(*models.GenerationTask) {
	return func(task *models.GenerationTask) {
		task.Progress = progress
	}
}

// Package generation bridges a node's generate action to the task registry
// and the external generation service: it builds the per-type request,
// enforces re-entrancy, drives polling and writes results back into node
// data.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/atelierhq/atelier/pkg/assets"
	"github.com/atelierhq/atelier/pkg/canvas"
	"github.com/atelierhq/atelier/pkg/eventbus"
	"github.com/atelierhq/atelier/pkg/events"
	"github.com/atelierhq/atelier/pkg/models"
	"github.com/atelierhq/atelier/pkg/otelhelper"
	"github.com/atelierhq/atelier/pkg/protocol"
	"github.com/atelierhq/atelier/pkg/registry"
	"github.com/atelierhq/atelier/pkg/tasks"
	"github.com/atelierhq/atelier/pkg/template"
)

var (
	// ErrAlreadyRunning is returned when a generate request arrives for a
	// node that already has a task in flight. The request is not queued.
	ErrAlreadyRunning = errors.New("node already has a generation in flight")

	// ErrNotGenerator is returned for node types that never submit work.
	ErrNotGenerator = errors.New("node type does not generate")

	// ErrNoActiveTask is returned by Cancel when the node has nothing to
	// cancel.
	ErrNoActiveTask = errors.New("no active task for node")

	// ErrInvalidParams wraps parameter schema and prompt template failures.
	ErrInvalidParams = errors.New("invalid generation parameters")
)

// Orchestrator coordinates the generate action: canvas state, task registry,
// poller and the external generation service.
type Orchestrator struct {
	canvas   *canvas.Canvas
	types    *registry.Registry
	tasks    *tasks.Registry
	poller   *tasks.Poller
	service  protocol.GenerationService
	eventBus eventbus.EventBus
	history  *assets.History
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewOrchestrator wires the orchestrator to its collaborators.
func NewOrchestrator(
	cv *canvas.Canvas,
	types *registry.Registry,
	taskRegistry *tasks.Registry,
	poller *tasks.Poller,
	service protocol.GenerationService,
	eventBus eventbus.EventBus,
	history *assets.History,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		canvas:   cv,
		types:    types,
		tasks:    taskRegistry,
		poller:   poller,
		service:  service,
		eventBus: eventBus,
		history:  history,
		tracer:   otel.Tracer("atelier/generation"),
		logger:   logger,
	}
}

// Generate submits a generation job for the node. It returns the registered
// task; for synchronous provider results the returned task is already
// terminal and cleared from the registry. A second generate while the node
// is working fails with ErrAlreadyRunning and leaves the in-flight task
// untouched.
func (o *Orchestrator) Generate(ctx context.Context, nodeID string) (*models.GenerationTask, error) {
	node, ok := o.canvas.Node(nodeID)
	if !ok {
		return nil, canvas.ErrNodeNotFound
	}

	def, err := o.types.Definition(node.Type)
	if err != nil {
		return nil, err
	}

	if !def.Generates {
		return nil, fmt.Errorf("%w: %s", ErrNotGenerator, node.Type)
	}

	if node.Status == models.NodeStatusWorking {
		return nil, ErrAlreadyRunning
	}

	req, err := o.buildRequest(node)
	if err != nil {
		return nil, err
	}

	err = o.types.ValidateParams(node.Type, req.Params)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidParams, err.Error())
	}

	task, err := o.tasks.Submit(nodeID)
	if err != nil {
		// Lost the race against a concurrent generate for the same node.
		return nil, ErrAlreadyRunning
	}

	err = o.canvas.SetStatus(nodeID, models.NodeStatusWorking)
	if err != nil {
		o.tasks.CancelForNode(nodeID)

		return nil, err
	}

	_ = o.canvas.UpdateData(nodeID, func(d *models.NodeData) {
		d.Error = ""
		d.Progress = ""
	})

	o.publish(ctx, nodeID, events.TaskSubmitted{
		BaseEvent: events.NewBaseEvent(events.TaskSubmittedEvent),
		TaskID:    task.ID,
		NodeID:    nodeID,
		NodeType:  node.Type,
	})

	submitCtx, span := otelhelper.StartSpan(ctx, o.tracer, "generation.submit",
		attribute.String(otelhelper.NodeIDKey, nodeID),
		attribute.String(otelhelper.NodeTypeKey, string(node.Type)),
		attribute.String(otelhelper.TaskIDKey, task.ID),
	)
	defer span.End()

	result, err := o.service.SubmitJob(submitCtx, node.Type, req)
	if err != nil {
		otelhelper.SetError(span, err)
		o.failTask(ctx, task.ID, fmt.Sprintf("generation submit failed: %s", err.Error()))

		return nil, fmt.Errorf("failed to submit generation job: %w", err)
	}

	if !result.Async() {
		final, ok := o.completeTask(ctx, task.ID, result.ResultURI)
		if !ok {
			// Cancelled while the submit was in flight; report the
			// snapshot we still hold.
			return task, nil
		}

		return final, nil
	}

	o.logger.InfoContext(ctx, "generation job submitted",
		"node_id", nodeID,
		"node_type", node.Type,
		"task_id", task.ID,
		"job_id", result.TaskID)

	o.startPolling(ctx, task.ID, nodeID, result.TaskID)

	return task, nil
}

// Cancel clears the node's in-flight task and returns the node to idle. The
// external service is not contacted; its job finishes unobserved.
func (o *Orchestrator) Cancel(ctx context.Context, nodeID string) (*models.GenerationTask, error) {
	task, ok := o.tasks.CancelForNode(nodeID)
	if !ok {
		return nil, ErrNoActiveTask
	}

	o.poller.Stop(task.ID)

	if o.canvas.NodeExists(nodeID) {
		_ = o.canvas.SetStatus(nodeID, models.NodeStatusIdle)
		_ = o.canvas.UpdateData(nodeID, func(d *models.NodeData) {
			d.Progress = ""
		})
	}

	o.publish(ctx, nodeID, events.TaskCancelled{
		BaseEvent: events.NewBaseEvent(events.TaskCancelledEvent),
		TaskID:    task.ID,
		NodeID:    nodeID,
	})

	o.logger.InfoContext(ctx, "generation cancelled", "node_id", nodeID, "task_id", task.ID)

	return task, nil
}

// CancelAll cancels every in-flight task and returns how many were
// cancelled. Used before a wholesale canvas replace so no task is left
// pointing at a node that no longer exists.
func (o *Orchestrator) CancelAll(ctx context.Context) int {
	cancelled := 0

	for _, task := range o.tasks.Tasks() {
		_, err := o.Cancel(ctx, task.NodeID)
		if err == nil {
			cancelled++
		}
	}

	return cancelled
}

// Close stops every polling loop.
func (o *Orchestrator) Close() {
	o.poller.StopAll()
}

// buildRequest assembles the provider request for the node: rendered
// prompt, templated parameters and the upstream media in input order.
func (o *Orchestrator) buildRequest(node *models.Node) (*protocol.GenerationRequest, error) {
	inputs := o.upstreamNodes(node)
	data := template.Data(node, inputs)

	prompt := node.Data.Prompt
	if template.NeedsTemplating(prompt) {
		rendered, err := template.RenderPrompt(prompt, data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidParams, err.Error())
		}

		prompt = rendered
	}

	if prompt == "" {
		prompt = upstreamPrompt(inputs)
	}

	params, err := renderParams(node.Data.Params, data)
	if err != nil {
		return nil, err
	}

	req := &protocol.GenerationRequest{
		Prompt: prompt,
		Params: params,
	}

	for _, input := range inputs {
		if input.Data.Image != "" {
			req.SourceImages = append(req.SourceImages, input.Data.Image)
		}

		if req.SourceVideo == "" && input.Data.Video != "" {
			req.SourceVideo = input.Data.Video
		}
	}

	req.SourceImages = append(req.SourceImages, node.Data.SourceImages...)

	return req, nil
}

// upstreamNodes resolves the node's ordered input ids against the canvas.
// Inputs whose node has vanished are skipped.
func (o *Orchestrator) upstreamNodes(node *models.Node) []*models.Node {
	inputs := make([]*models.Node, 0, len(node.Inputs))

	for _, id := range node.Inputs {
		input, ok := o.canvas.Node(id)
		if ok {
			inputs = append(inputs, input)
		}
	}

	return inputs
}

// upstreamPrompt joins the text carried by upstream nodes, in input order.
func upstreamPrompt(inputs []*models.Node) string {
	texts := make([]string, 0, len(inputs))

	for _, input := range inputs {
		text := input.Data.Text
		if text == "" {
			text = input.Data.Prompt
		}

		if text != "" {
			texts = append(texts, text)
		}
	}

	return strings.Join(texts, "\n")
}

// renderParams interpolates string parameter values that contain template
// actions; everything else passes through untouched.
func renderParams(params map[string]any, data map[string]any) (map[string]any, error) {
	if params == nil {
		return nil, nil
	}

	rendered := make(map[string]any, len(params))

	for key, value := range params {
		str, ok := value.(string)
		if !ok || !template.NeedsTemplating(str) {
			rendered[key] = value

			continue
		}

		result, err := template.RenderValue(str, data)
		if err != nil {
			return nil, fmt.Errorf("%w: param %q: %s", ErrInvalidParams, key, err.Error())
		}

		rendered[key] = result
	}

	return rendered, nil
}

// startPolling launches the poll loop for an asynchronous job. The loop is
// detached from the request context so it survives the HTTP request that
// triggered it.
func (o *Orchestrator) startPolling(ctx context.Context, taskID, nodeID, jobID string) {
	poll := func(ctx context.Context) (bool, error) {
		return o.pollOnce(ctx, taskID, nodeID, jobID)
	}

	expire := func(ctx context.Context, attempts int) {
		o.failTask(ctx, taskID, fmt.Sprintf("generation timed out after %d poll attempts", attempts))
	}

	o.poller.Start(context.WithoutCancel(ctx), taskID, poll, expire)
}

// pollOnce performs one status check and applies the outcome. It reports
// whether the task reached a terminal state and polling must stop.
func (o *Orchestrator) pollOnce(ctx context.Context, taskID, nodeID, jobID string) (bool, error) {
	pollCtx, span := otelhelper.StartSpan(ctx, o.tracer, "generation.poll",
		attribute.String(otelhelper.NodeIDKey, nodeID),
		attribute.String(otelhelper.TaskIDKey, taskID),
	)
	defer span.End()

	status, err := o.service.GetJobStatus(pollCtx, jobID)
	if err != nil {
		otelhelper.SetError(span, err)

		return false, err
	}

	switch status.Status {
	case models.TaskStatusCompleted:
		o.completeTask(ctx, taskID, status.ResultURI)

		return true, nil
	case models.TaskStatusFailed:
		message := status.ErrorMessage
		if message == "" {
			message = "generation failed"
		}

		o.failTask(ctx, taskID, message)

		return true, nil
	case models.TaskStatusQueued, models.TaskStatusProcessing:
		o.applyProgress(ctx, taskID, status)

		return false, nil
	default:
		return false, fmt.Errorf("unknown job status '%s'", status.Status)
	}
}

// applyProgress records a non-terminal poll observation. Updates for tasks
// that left the registry are discarded.
func (o *Orchestrator) applyProgress(ctx context.Context, taskID string, status *protocol.JobStatus) {
	task, ok := o.tasks.UpdateProgress(taskID, status.Status, status.Progress)
	if !ok {
		return
	}

	_ = o.canvas.UpdateData(task.NodeID, func(d *models.NodeData) {
		d.Progress = fmt.Sprintf("%d%%", task.Progress)
	})

	o.publish(ctx, task.NodeID, events.TaskProgressed{
		BaseEvent: events.NewBaseEvent(events.TaskProgressedEvent),
		TaskID:    task.ID,
		NodeID:    task.NodeID,
		Status:    task.Status,
		Progress:  task.Progress,
	})
}

// completeTask applies a successful result: node data gets the type's
// result field, the node flips to success, the asset history records the
// output and the task leaves the registry. Results for tasks or nodes that
// no longer exist are discarded.
func (o *Orchestrator) completeTask(ctx context.Context, taskID, resultURI string) (*models.GenerationTask, bool) {
	task, ok := o.tasks.Get(taskID)
	if !ok {
		return nil, false
	}

	node, ok := o.canvas.Node(task.NodeID)
	if !ok {
		// The node was removed mid-flight; drop the task silently.
		o.tasks.CancelForNode(task.NodeID)

		return nil, false
	}

	final, ok := o.tasks.Complete(taskID, resultURI)
	if !ok {
		return nil, false
	}

	resultField := models.ResultFieldImage

	def, err := o.types.Definition(node.Type)
	if err == nil && def.ResultField != "" {
		resultField = def.ResultField
	}

	_ = o.canvas.UpdateData(node.ID, func(d *models.NodeData) {
		d.SetResult(resultField, resultURI)
		d.Error = ""
		d.Progress = ""
	})
	_ = o.canvas.SetStatus(node.ID, models.NodeStatusSuccess)

	err = o.history.Record(ctx, models.Asset{
		NodeID: node.ID,
		Type:   node.Type,
		URI:    resultURI,
		At:     time.Now().UTC(),
	})
	if err != nil {
		o.logger.ErrorContext(ctx, "failed to record asset", "node_id", node.ID, "error", err.Error())
	}

	o.publish(ctx, node.ID, events.TaskCompleted{
		BaseEvent: events.NewBaseEvent(events.TaskCompletedEvent),
		TaskID:    final.ID,
		NodeID:    node.ID,
		ResultURI: resultURI,
	})

	o.logger.InfoContext(ctx, "generation completed",
		"node_id", node.ID,
		"task_id", final.ID,
		"result_uri", resultURI)

	return final, true
}

// failTask applies a failure: node data carries the message, the node flips
// to error and the task leaves the registry. Failures for tasks or nodes
// that no longer exist are discarded.
func (o *Orchestrator) failTask(ctx context.Context, taskID, message string) (*models.GenerationTask, bool) {
	task, ok := o.tasks.Get(taskID)
	if !ok {
		return nil, false
	}

	if !o.canvas.NodeExists(task.NodeID) {
		o.tasks.CancelForNode(task.NodeID)

		return nil, false
	}

	final, ok := o.tasks.Fail(taskID, message)
	if !ok {
		return nil, false
	}

	_ = o.canvas.UpdateData(final.NodeID, func(d *models.NodeData) {
		d.Error = message
		d.Progress = ""
	})
	_ = o.canvas.SetStatus(final.NodeID, models.NodeStatusError)

	o.publish(ctx, final.NodeID, events.TaskFailed{
		BaseEvent: events.NewBaseEvent(events.TaskFailedEvent),
		TaskID:    final.ID,
		NodeID:    final.NodeID,
		Error:     message,
	})

	o.logger.WarnContext(ctx, "generation failed",
		"node_id", final.NodeID,
		"task_id", final.ID,
		"error", message)

	return final, true
}

func (o *Orchestrator) publish(ctx context.Context, key string, event eventbus.Event) {
	err := o.eventBus.Publish(ctx, key, event)
	if err != nil {
		o.logger.ErrorContext(ctx, "failed to publish event",
			"event_type", event.GetType(),
			"error", err.Error())
	}
}

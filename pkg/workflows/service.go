// Package workflows persists and restores whole-canvas snapshots: explicit
// saves, wholesale loads, renames, deletes and the scheduled autosave slot.
// The in-memory canvas is always the source of truth; a failed persistence
// call never corrupts it.
package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atelierhq/atelier/pkg/canvas"
	"github.com/atelierhq/atelier/pkg/eventbus"
	"github.com/atelierhq/atelier/pkg/events"
	"github.com/atelierhq/atelier/pkg/models"
	"github.com/atelierhq/atelier/pkg/persistence"
	"github.com/atelierhq/atelier/pkg/protocol"
)

const keyPrefix = "workflows/"

// TaskCanceller stops every in-flight generation before a wholesale canvas
// replace, so no task is left pointing at a node that no longer exists.
type TaskCanceller interface {
	CancelAll(ctx context.Context) int
}

// Service owns the persisted workflow collection for one canvas session.
type Service struct {
	canvas      *canvas.Canvas
	store       persistence.Persistence
	canceller   TaskCanceller
	thumbnailer protocol.Thumbnailer
	eventBus    eventbus.EventBus
	logger      *slog.Logger

	mu       sync.Mutex
	loadedID string
}

// NewService creates a workflow service. The thumbnailer may be nil;
// thumbnails are best effort either way.
func NewService(
	cv *canvas.Canvas,
	store persistence.Persistence,
	canceller TaskCanceller,
	thumbnailer protocol.Thumbnailer,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
) *Service {
	return &Service{
		canvas:      cv,
		store:       store,
		canceller:   canceller,
		thumbnailer: thumbnailer,
		eventBus:    eventBus,
		logger:      logger,
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Service) HealthCheck(ctx context.Context) (string, bool) {
	if s.store == nil {
		return "Persistence layer not initialized", false
	}

	err := s.store.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// LoadedID returns the ID of the workflow the canvas currently mirrors, or
// empty when the canvas holds unsaved work.
func (s *Service) LoadedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadedID
}

// Save captures the current graph as a new workflow. The saved workflow
// becomes the loaded one.
func (s *Service) Save(ctx context.Context, title string) (*models.Workflow, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, NewValidationError("Save", "TITLE_REQUIRED", "workflow title is required", ErrTitleRequired)
	}

	now := time.Now().UTC()

	workflow, err := s.capture(ctx, uuid.New().String(), title, now)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.loadedID = workflow.ID
	s.mu.Unlock()

	s.publish(ctx, workflow.ID, events.WorkflowSaved{
		BaseEvent:  events.NewBaseEvent(events.WorkflowSavedEvent),
		WorkflowID: workflow.ID,
		Title:      workflow.Title,
	})

	s.logger.InfoContext(ctx, "workflow saved",
		"workflow_id", workflow.ID,
		"title", workflow.Title,
		"nodes", len(workflow.Nodes))

	return workflow, nil
}

// Overwrite re-captures the current graph into an existing workflow,
// keeping its title and creation time.
func (s *Service) Overwrite(ctx context.Context, id string) (*models.Workflow, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	workflow, err := s.capture(ctx, existing.ID, existing.Title, existing.CreatedAt)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.loadedID = workflow.ID
	s.mu.Unlock()

	s.publish(ctx, workflow.ID, events.WorkflowSaved{
		BaseEvent:  events.NewBaseEvent(events.WorkflowSavedEvent),
		WorkflowID: workflow.ID,
		Title:      workflow.Title,
	})

	return workflow, nil
}

// Get fetches one workflow by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.Workflow, error) {
	if id == "" {
		return nil, ErrWorkflowNotFound
	}

	payload, err := s.store.Load(ctx, keyPrefix+id)
	if err != nil {
		if persistence.IsKeyNotFound(err) {
			return nil, ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}

	var workflow models.Workflow

	err = json.Unmarshal(payload, &workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to decode workflow '%s': %w", id, err)
	}

	return &workflow, nil
}

// ListRequest contains options for listing workflows.
type ListRequest struct {
	SortBy    string `validate:"omitempty,oneof=title created_at updated_at"`
	SortOrder string `validate:"omitempty,oneof=asc desc"`
	Limit     int    `validate:"min=0"`
	Offset    int    `validate:"min=0"`
}

// List returns the stored workflows sorted per the request; the default
// order is most recently updated first.
func (s *Service) List(ctx context.Context, req ListRequest) ([]*models.Workflow, error) {
	err := s.validateListRequest(&req)
	if err != nil {
		return nil, err
	}

	keys, err := s.store.Keys(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(keys))

	for _, key := range keys {
		workflow, err := s.Get(ctx, strings.TrimPrefix(key, keyPrefix))
		if err != nil {
			// Undecodable records are skipped so one corrupt blob cannot
			// take the listing down.
			s.logger.WarnContext(ctx, "skipping unreadable workflow", "key", key, "error", err.Error())

			continue
		}

		workflows = append(workflows, workflow)
	}

	sortWorkflows(workflows, req.SortBy, req.SortOrder)

	if req.Offset > 0 {
		if req.Offset >= len(workflows) {
			return []*models.Workflow{}, nil
		}

		workflows = workflows[req.Offset:]
	}

	if req.Limit > 0 && req.Limit < len(workflows) {
		workflows = workflows[:req.Limit]
	}

	return workflows, nil
}

// Load replaces the canvas wholesale with the stored snapshot. Every
// in-flight task is cancelled first.
func (s *Service) Load(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	cancelled := s.canceller.CancelAll(ctx)
	if cancelled > 0 {
		s.logger.InfoContext(ctx, "cancelled in-flight tasks before load", "count", cancelled)
	}

	restored := workflow.Clone()

	// A stored snapshot has no live tasks behind it; nodes frozen
	// mid-generation come back idle.
	for _, node := range restored.Nodes {
		if node.Status == models.NodeStatusWorking {
			node.Status = models.NodeStatusIdle
			node.Data.Progress = ""
		}
	}

	s.canvas.Restore(restored)

	s.mu.Lock()
	s.loadedID = workflow.ID
	s.mu.Unlock()

	s.publish(ctx, workflow.ID, events.WorkflowLoaded{
		BaseEvent:  events.NewBaseEvent(events.WorkflowLoadedEvent),
		WorkflowID: workflow.ID,
		Title:      workflow.Title,
	})

	s.logger.InfoContext(ctx, "workflow loaded",
		"workflow_id", workflow.ID,
		"title", workflow.Title,
		"nodes", len(workflow.Nodes))

	return workflow, nil
}

// Rename retitles a stored workflow. The canvas is untouched; renaming the
// loaded workflow only changes the stored record's title.
func (s *Service) Rename(ctx context.Context, id, title string) (*models.Workflow, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, NewValidationError("Rename", "TITLE_REQUIRED", "workflow title is required", ErrTitleRequired)
	}

	workflow, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	workflow.Title = title
	workflow.UpdatedAt = time.Now().UTC()

	err = s.persist(ctx, workflow)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, workflow.ID, events.WorkflowRenamed{
		BaseEvent:  events.NewBaseEvent(events.WorkflowRenamedEvent),
		WorkflowID: workflow.ID,
		Title:      title,
	})

	return workflow, nil
}

// Delete removes a stored workflow. Deleting the loaded workflow does not
// clear the canvas; the canvas simply no longer mirrors a stored record.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.store.Delete(ctx, keyPrefix+id)
	if err != nil {
		if persistence.IsKeyNotFound(err) {
			return ErrWorkflowNotFound
		}

		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	s.mu.Lock()
	if s.loadedID == id {
		s.loadedID = ""
	}
	s.mu.Unlock()

	s.publish(ctx, id, events.WorkflowDeleted{
		BaseEvent:  events.NewBaseEvent(events.WorkflowDeletedEvent),
		WorkflowID: id,
	})

	return nil
}

// capture snapshots the canvas into a workflow record and persists it.
func (s *Service) capture(ctx context.Context, id, title string, createdAt time.Time) (*models.Workflow, error) {
	workflow := s.canvas.Snapshot()
	workflow.ID = id
	workflow.Title = title
	workflow.CreatedAt = createdAt
	workflow.UpdatedAt = time.Now().UTC()

	s.renderThumbnail(ctx, workflow)

	err := s.persist(ctx, workflow)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// renderThumbnail is best effort: a render failure is logged and the save
// proceeds without a thumbnail.
func (s *Service) renderThumbnail(ctx context.Context, workflow *models.Workflow) {
	if s.thumbnailer == nil {
		return
	}

	thumbnail, err := s.thumbnailer.Render(ctx, workflow)
	if err != nil {
		s.logger.WarnContext(ctx, "thumbnail render failed", "workflow_id", workflow.ID, "error", err.Error())

		return
	}

	workflow.Thumbnail = thumbnail
}

func (s *Service) persist(ctx context.Context, workflow *models.Workflow) error {
	payload, err := json.Marshal(workflow)
	if err != nil {
		return fmt.Errorf("failed to encode workflow: %w", err)
	}

	err = s.store.Save(ctx, keyPrefix+workflow.ID, payload)
	if err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}

	return nil
}

func (s *Service) validateListRequest(req *ListRequest) error {
	if req.SortBy == "" {
		req.SortBy = "updated_at"
	}

	if req.SortOrder == "" {
		req.SortOrder = "desc"
	}

	allowedSorts := []string{"title", "created_at", "updated_at"}

	if !slices.Contains(allowedSorts, req.SortBy) {
		return NewValidationError(
			"List",
			"INVALID_SORT_FIELD",
			fmt.Sprintf("invalid sort field '%s', allowed: %s", req.SortBy, strings.Join(allowedSorts, ", ")),
			ErrInvalidSortField,
		)
	}

	if req.SortOrder != "asc" && req.SortOrder != "desc" {
		return NewValidationError(
			"List",
			"INVALID_SORT_ORDER",
			fmt.Sprintf("invalid sort order '%s', allowed: asc, desc", req.SortOrder),
			ErrInvalidSortOrder,
		)
	}

	if req.Offset < 0 {
		req.Offset = 0
	}

	if req.Limit < 0 {
		req.Limit = 0
	}

	return nil
}

func sortWorkflows(workflows []*models.Workflow, sortBy, sortOrder string) {
	sort.SliceStable(workflows, func(i, j int) bool {
		a, b := workflows[i], workflows[j]
		if sortOrder == "desc" {
			a, b = b, a
		}

		switch sortBy {
		case "title":
			return a.Title < b.Title
		case "created_at":
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return a.UpdatedAt.Before(b.UpdatedAt)
		}
	})
}

func (s *Service) publish(ctx context.Context, key string, event eventbus.Event) {
	err := s.eventBus.Publish(ctx, key, event)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to publish event",
			"event_type", event.GetType(),
			"error", err.Error())
	}
}

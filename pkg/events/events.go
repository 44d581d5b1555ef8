// Package events defines event types and structures for canvas, task and
// workflow lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/atelierhq/atelier/pkg/models"
)

type EventType string

// Topic carries every atelier lifecycle event.
const Topic = "atelier.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Canvas mutation events, published on committed interactions.
	NodeAddedEvent         EventType = "node.added"
	NodeMovedEvent         EventType = "node.moved"
	NodeResizedEvent       EventType = "node.resized"
	NodeRetitledEvent      EventType = "node.retitled"
	NodeRemovedEvent       EventType = "node.removed"
	ConnectionCreatedEvent EventType = "connection.created"
	ConnectionRemovedEvent EventType = "connection.removed"
	GroupMovedEvent        EventType = "group.moved"

	// Generation task lifecycle events.
	TaskSubmittedEvent  EventType = "task.submitted"
	TaskProgressedEvent EventType = "task.progressed"
	TaskCompletedEvent  EventType = "task.completed"
	TaskFailedEvent     EventType = "task.failed"
	TaskCancelledEvent  EventType = "task.cancelled"

	// Workflow store lifecycle events.
	WorkflowSavedEvent   EventType = "workflow.saved"
	WorkflowLoadedEvent  EventType = "workflow.loaded"
	WorkflowRenamedEvent EventType = "workflow.renamed"
	WorkflowDeletedEvent EventType = "workflow.deleted"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent creates the shared envelope for a lifecycle event.
func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Metadata:  make(map[string]any),
	}
}

type NodeAdded struct {
	BaseEvent

	NodeID   string          `json:"node_id"`
	NodeType models.NodeType `json:"node_type"`
	X        float64         `json:"x"`
	Y        float64         `json:"y"`
}

func (e NodeAdded) GetType() EventType {
	return NodeAddedEvent
}

type NodeMoved struct {
	BaseEvent

	NodeID string  `json:"node_id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

func (e NodeMoved) GetType() EventType {
	return NodeMovedEvent
}

type NodeResized struct {
	BaseEvent

	NodeID string  `json:"node_id"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (e NodeResized) GetType() EventType {
	return NodeResizedEvent
}

type NodeRetitled struct {
	BaseEvent

	NodeID string `json:"node_id"`
	Title  string `json:"title"`
}

func (e NodeRetitled) GetType() EventType {
	return NodeRetitledEvent
}

type NodeRemoved struct {
	BaseEvent

	NodeID string `json:"node_id"`
}

func (e NodeRemoved) GetType() EventType {
	return NodeRemovedEvent
}

type ConnectionCreated struct {
	BaseEvent

	From string `json:"from"`
	To   string `json:"to"`
}

func (e ConnectionCreated) GetType() EventType {
	return ConnectionCreatedEvent
}

type ConnectionRemoved struct {
	BaseEvent

	From string `json:"from"`
	To   string `json:"to"`
}

func (e ConnectionRemoved) GetType() EventType {
	return ConnectionRemovedEvent
}

// GroupMoved reports a committed group drag: the group's final position and
// the IDs of the nodes that travelled with it.
type GroupMoved struct {
	BaseEvent

	GroupID string   `json:"group_id"`
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	NodeIDs []string `json:"node_ids,omitempty"`
}

func (e GroupMoved) GetType() EventType {
	return GroupMovedEvent
}

type TaskSubmitted struct {
	BaseEvent

	TaskID   string          `json:"task_id"`
	NodeID   string          `json:"node_id"`
	NodeType models.NodeType `json:"node_type"`
}

func (e TaskSubmitted) GetType() EventType {
	return TaskSubmittedEvent
}

type TaskProgressed struct {
	BaseEvent

	TaskID   string            `json:"task_id"`
	NodeID   string            `json:"node_id"`
	Status   models.TaskStatus `json:"status"`
	Progress int               `json:"progress"`
}

func (e TaskProgressed) GetType() EventType {
	return TaskProgressedEvent
}

type TaskCompleted struct {
	BaseEvent

	TaskID    string `json:"task_id"`
	NodeID    string `json:"node_id"`
	ResultURI string `json:"result_uri"`
}

func (e TaskCompleted) GetType() EventType {
	return TaskCompletedEvent
}

type TaskFailed struct {
	BaseEvent

	TaskID string `json:"task_id"`
	NodeID string `json:"node_id"`
	Error  string `json:"error"`
}

func (e TaskFailed) GetType() EventType {
	return TaskFailedEvent
}

type TaskCancelled struct {
	BaseEvent

	TaskID string `json:"task_id"`
	NodeID string `json:"node_id"`
}

func (e TaskCancelled) GetType() EventType {
	return TaskCancelledEvent
}

type WorkflowSaved struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
	Title      string `json:"title"`
}

func (e WorkflowSaved) GetType() EventType {
	return WorkflowSavedEvent
}

type WorkflowLoaded struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
	Title      string `json:"title"`
}

func (e WorkflowLoaded) GetType() EventType {
	return WorkflowLoadedEvent
}

type WorkflowRenamed struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
	Title      string `json:"title"`
}

func (e WorkflowRenamed) GetType() EventType {
	return WorkflowRenamedEvent
}

type WorkflowDeleted struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
}

func (e WorkflowDeleted) GetType() EventType {
	return WorkflowDeletedEvent
}

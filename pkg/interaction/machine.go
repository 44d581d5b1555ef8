// Package interaction implements the pointer-driven state machine that turns
// raw pointer input into canvas mutations. The renderer resolves hit targets
// and feeds pointer samples; the machine owns gesture state, the selection
// set and the viewport, and commits mutations straight into the canvas.
//
// Live preview mutations (position and size during a drag) are written to
// the canvas on every pointer move and stand even when the gesture ends
// abnormally; there is no rollback to the drag-start state. Commit events
// are published only when a gesture actually changed something, so a
// zero-delta click never emits a mutation event.
package interaction

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/atelierhq/atelier/pkg/canvas"
	"github.com/atelierhq/atelier/pkg/eventbus"
	"github.com/atelierhq/atelier/pkg/events"
	"github.com/atelierhq/atelier/pkg/models"
	"github.com/atelierhq/atelier/pkg/registry"
)

// ErrNotEditing is returned by CommitTitle when no title editor is open.
var ErrNotEditing = errors.New("no title edit in progress")

type memberStart struct {
	id string
	x  float64
	y  float64
}

// Machine is the interaction state machine for one canvas session. All
// methods are safe for concurrent use, though pointer events are expected to
// arrive in order from a single input source.
type Machine struct {
	canvas   *canvas.Canvas
	types    *registry.Registry
	eventBus eventbus.EventBus
	logger   *slog.Logger

	mu    sync.Mutex
	state State

	start Pointer
	last  Pointer

	gestureNode  string
	nodeStartX   float64
	nodeStartY   float64
	startWidth   float64
	startHeight  float64
	aspectLocked bool

	gestureGroup string
	groupStartX  float64
	groupStartY  float64
	members      []memberStart

	pendingFrom string
	pendingPort models.Port

	viewport   Viewport
	viewStartX float64
	viewStartY float64

	selection map[string]struct{}
}

// NewMachine creates an idle machine bound to the canvas.
func NewMachine(cv *canvas.Canvas, types *registry.Registry, eventBus eventbus.EventBus, logger *slog.Logger) *Machine {
	return &Machine{
		canvas:    cv,
		types:     types,
		eventBus:  eventBus,
		logger:    logger,
		state:     StateIdle,
		selection: make(map[string]struct{}),
	}
}

// State returns the current gesture state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// Viewport returns the current camera offset.
func (m *Machine) Viewport() Viewport {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.viewport
}

// Selection returns the selected node IDs in sorted order.
func (m *Machine) Selection() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.selection))
	for id := range m.selection {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// ClearSelection empties the selection set.
func (m *Machine) ClearSelection() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.selection = make(map[string]struct{})
}

// PendingConnection reports the grabbed port while a pending edge follows
// the pointer.
func (m *Machine) PendingConnection() (string, models.Port, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateConnectingFromPort {
		return "", "", false
	}

	return m.pendingFrom, m.pendingPort, true
}

// PointerDown starts a gesture for the hit target. A pointer-down while a
// drag gesture is active is ignored; a pointer-down while a title editor is
// open ends the edit without committing and then routes normally.
func (m *Machine) PointerDown(target Target, p Pointer) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateEditingTitle {
		m.reset()
	}

	if m.state != StateIdle {
		return m.state
	}

	m.start = p
	m.last = p

	switch target.Kind {
	case TargetNodeBody:
		node, ok := m.canvas.Node(target.NodeID)
		if !ok {
			return m.state
		}

		m.gestureNode = node.ID
		m.nodeStartX = node.X
		m.nodeStartY = node.Y
		m.transition(StateDraggingNode)

	case TargetNodeTitle:
		if !m.canvas.NodeExists(target.NodeID) {
			return m.state
		}

		m.gestureNode = target.NodeID
		m.transition(StateEditingTitle)

	case TargetPort:
		if !m.canvas.NodeExists(target.NodeID) {
			return m.state
		}

		m.pendingFrom = target.NodeID
		m.pendingPort = target.Port
		m.transition(StateConnectingFromPort)

	case TargetResizeHandle:
		node, ok := m.canvas.Node(target.NodeID)
		if !ok {
			return m.state
		}

		m.gestureNode = node.ID
		m.startWidth, m.startHeight = m.effectiveSize(node)
		m.aspectLocked = false

		if def, err := m.types.Definition(node.Type); err == nil {
			m.aspectLocked = def.AspectLocked()
		}

		m.transition(StateResizingNode)

	case TargetGroupBody:
		group, ok := m.canvas.Group(target.GroupID)
		if !ok {
			return m.state
		}

		m.gestureGroup = group.ID
		m.groupStartX = group.X
		m.groupStartY = group.Y
		m.captureGroupMembers(group)
		m.transition(StateDraggingGroup)

	case TargetCanvas:
		if p.Modifier {
			m.transition(StateMultiSelecting)
		} else {
			m.viewStartX = m.viewport.X
			m.viewStartY = m.viewport.Y
			m.transition(StatePanningCanvas)
		}
	}

	return m.state
}

// PointerMove advances the active gesture, writing live preview mutations
// into the canvas. Moves outside a gesture are ignored.
func (m *Machine) PointerMove(p Pointer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.last = p
	dx := p.X - m.start.X
	dy := p.Y - m.start.Y

	switch m.state {
	case StateDraggingNode:
		err := m.canvas.MoveNode(m.gestureNode, m.nodeStartX+dx, m.nodeStartY+dy)
		if err != nil {
			// Node vanished mid-drag; the gesture has nothing left to move.
			m.reset()
		}

	case StateResizingNode:
		width := m.startWidth + dx
		height := m.startHeight + dy

		var err error
		if m.aspectLocked {
			err = m.canvas.ResizeNode(m.gestureNode, &width, nil)
		} else {
			err = m.canvas.ResizeNode(m.gestureNode, &width, &height)
		}

		if err != nil {
			m.reset()
		}

	case StateDraggingGroup:
		err := m.canvas.MoveGroup(m.gestureGroup, m.groupStartX+dx, m.groupStartY+dy)
		if err != nil {
			m.reset()

			return
		}

		for _, member := range m.members {
			// Members deleted mid-drag drop out; the rest keep moving.
			_ = m.canvas.MoveNode(member.id, member.x+dx, member.y+dy)
		}

	case StatePanningCanvas:
		m.viewport.X = m.viewStartX + dx
		m.viewport.Y = m.viewStartY + dy
	}
}

// PointerUp ends the active gesture: drags commit and publish their final
// geometry, a pending edge connects when released over a compatible port,
// and a marquee replaces the selection set. A pointer-up over the title
// being edited keeps the editor open.
func (m *Machine) PointerUp(ctx context.Context, target Target, p Pointer) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.last = p
	dx := p.X - m.start.X
	dy := p.Y - m.start.Y
	moved := dx != 0 || dy != 0

	switch m.state {
	case StateDraggingNode:
		if moved {
			m.publishNodeMoved(ctx)
		} else {
			m.applyClickSelection()
		}

	case StateResizingNode:
		if moved {
			m.publishNodeResized(ctx)
		}

	case StateDraggingGroup:
		if moved {
			m.publishGroupMoved(ctx)
		}

	case StateConnectingFromPort:
		m.commitPendingEdge(ctx, target)

	case StateMultiSelecting:
		m.applyMarqueeSelection()

	case StatePanningCanvas:
		if !moved {
			m.selection = make(map[string]struct{})
		}

	case StateEditingTitle:
		if target.Kind == TargetNodeTitle && target.NodeID == m.gestureNode {
			return m.state
		}

	case StateIdle:
		return m.state
	}

	m.reset()

	return m.state
}

// Cancel aborts the active gesture on Escape or loss of pointer capture.
// Preview mutations already applied to the canvas stand; drags publish
// their final geometry, while a pending edge, marquee or title edit is
// discarded without any mutation.
func (m *Machine) Cancel(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dx := m.last.X - m.start.X
	dy := m.last.Y - m.start.Y
	moved := dx != 0 || dy != 0

	switch m.state {
	case StateDraggingNode:
		if moved {
			m.publishNodeMoved(ctx)
		}

	case StateResizingNode:
		if moved {
			m.publishNodeResized(ctx)
		}

	case StateDraggingGroup:
		if moved {
			m.publishGroupMoved(ctx)
		}
	}

	m.reset()
}

// CommitTitle applies the edited title to the node under edit and closes the
// editor.
func (m *Machine) CommitTitle(ctx context.Context, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateEditingTitle {
		return ErrNotEditing
	}

	nodeID := m.gestureNode
	m.reset()

	err := m.canvas.SetTitle(nodeID, title)
	if err != nil {
		return err
	}

	m.publish(ctx, nodeID, events.NodeRetitled{
		BaseEvent: events.NewBaseEvent(events.NodeRetitledEvent),
		NodeID:    nodeID,
		Title:     title,
	})

	return nil
}

// effectiveSize resolves the node's rendered size, falling back to the
// type's default for dimensions never set explicitly.
func (m *Machine) effectiveSize(node *models.Node) (float64, float64) {
	width, height := m.types.DefaultSize(node.Type)

	if node.Width != nil {
		width = *node.Width
	}

	if node.Height != nil {
		height = *node.Height
	}

	return width, height
}

// captureGroupMembers snapshots the nodes spatially contained in the group
// bounds at drag start. Membership does not change for the duration of the
// drag, even when a node transiently leaves the original bounds.
func (m *Machine) captureGroupMembers(group *models.Group) {
	ids := m.canvas.NodesWithin(group.X, group.Y, group.Width, group.Height)
	m.members = make([]memberStart, 0, len(ids))

	for _, id := range ids {
		node, ok := m.canvas.Node(id)
		if ok {
			m.members = append(m.members, memberStart{id: node.ID, x: node.X, y: node.Y})
		}
	}
}

// applyClickSelection handles a zero-delta click on a node body: with the
// modifier held the node toggles in and out of the selection, without it
// the selection collapses to just that node.
func (m *Machine) applyClickSelection() {
	if m.start.Modifier {
		if _, ok := m.selection[m.gestureNode]; ok {
			delete(m.selection, m.gestureNode)
		} else {
			m.selection[m.gestureNode] = struct{}{}
		}

		return
	}

	m.selection = map[string]struct{}{m.gestureNode: {}}
}

// applyMarqueeSelection replaces the selection set with the nodes inside
// the normalized marquee rectangle.
func (m *Machine) applyMarqueeSelection() {
	x := min(m.start.X, m.last.X)
	y := min(m.start.Y, m.last.Y)
	width := max(m.start.X, m.last.X) - x
	height := max(m.start.Y, m.last.Y) - y

	m.selection = make(map[string]struct{})
	for _, id := range m.canvas.NodesWithin(x, y, width, height) {
		m.selection[id] = struct{}{}
	}
}

// commitPendingEdge connects the grabbed port to the release target when the
// two are compatible. Incompatible targets, empty canvas drops and canvas
// rejections (duplicate edge, self edge) discard the pending edge silently.
func (m *Machine) commitPendingEdge(ctx context.Context, target Target) {
	if target.Kind != TargetPort || target.NodeID == m.pendingFrom {
		return
	}

	var from, to string

	switch {
	case m.pendingPort == models.PortOutput && target.Port == models.PortInput:
		from, to = m.pendingFrom, target.NodeID
	case m.pendingPort == models.PortInput && target.Port == models.PortOutput:
		from, to = target.NodeID, m.pendingFrom
	default:
		return
	}

	err := m.canvas.Connect(from, models.PortOutput, to, models.PortInput)
	if err != nil {
		m.logger.Debug("pending edge discarded", "from", from, "to", to, "reason", err.Error())

		return
	}

	m.publish(ctx, to, events.ConnectionCreated{
		BaseEvent: events.NewBaseEvent(events.ConnectionCreatedEvent),
		From:      from,
		To:        to,
	})
}

func (m *Machine) publishNodeMoved(ctx context.Context) {
	node, ok := m.canvas.Node(m.gestureNode)
	if !ok {
		return
	}

	m.publish(ctx, node.ID, events.NodeMoved{
		BaseEvent: events.NewBaseEvent(events.NodeMovedEvent),
		NodeID:    node.ID,
		X:         node.X,
		Y:         node.Y,
	})
}

func (m *Machine) publishNodeResized(ctx context.Context) {
	node, ok := m.canvas.Node(m.gestureNode)
	if !ok || node.Width == nil || node.Height == nil {
		return
	}

	m.publish(ctx, node.ID, events.NodeResized{
		BaseEvent: events.NewBaseEvent(events.NodeResizedEvent),
		NodeID:    node.ID,
		Width:     *node.Width,
		Height:    *node.Height,
	})
}

func (m *Machine) publishGroupMoved(ctx context.Context) {
	group, ok := m.canvas.Group(m.gestureGroup)
	if !ok {
		return
	}

	ids := make([]string, 0, len(m.members))
	for _, member := range m.members {
		ids = append(ids, member.id)
	}

	m.publish(ctx, group.ID, events.GroupMoved{
		BaseEvent: events.NewBaseEvent(events.GroupMovedEvent),
		GroupID:   group.ID,
		X:         group.X,
		Y:         group.Y,
		NodeIDs:   ids,
	})
}

// transition moves the machine to the next state after validating it
// against the transition table.
func (m *Machine) transition(to State) {
	if !isValidTransition(m.state, to) {
		m.logger.Warn("invalid interaction transition", "from", m.state, "to", to)

		return
	}

	m.state = to
}

// reset clears all gesture bookkeeping and returns to idle. The selection
// set and viewport survive; they are session state, not gesture state.
func (m *Machine) reset() {
	m.state = StateIdle
	m.gestureNode = ""
	m.gestureGroup = ""
	m.members = nil
	m.pendingFrom = ""
	m.pendingPort = ""
	m.aspectLocked = false
}

func (m *Machine) publish(ctx context.Context, key string, event eventbus.Event) {
	err := m.eventBus.Publish(ctx, key, event)
	if err != nil {
		m.logger.Error("failed to publish event",
			"event_type", event.GetType(),
			"error", err.Error())
	}
}

// Package canvas holds the authoritative in-memory graph model: nodes,
// connections and groups, with invariant-preserving mutators and no I/O.
//
// All mutation happens synchronously under one lock. Asynchronous callers
// (poll callbacks, load completions) must re-check that their target node
// still exists before writing, which every mutator does on their behalf by
// returning ErrNodeNotFound for vanished IDs.
package canvas

import (
	"errors"
	"slices"
	"sync"

	"github.com/atelierhq/atelier/pkg/models"
	"github.com/atelierhq/atelier/pkg/registry"
	"github.com/google/uuid"
)

// Validation rejections. Interactive callers treat these as silent no-ops;
// the HTTP surface maps them to problem responses.
var (
	// ErrNodeNotFound indicates the referenced node is not on the canvas.
	ErrNodeNotFound = errors.New("node not found")

	// ErrGroupNotFound indicates the referenced group is not on the canvas.
	ErrGroupNotFound = errors.New("group not found")

	// ErrSelfConnection indicates a node was connected to itself.
	ErrSelfConnection = errors.New("cannot connect a node to itself")

	// ErrDuplicateConnection indicates the edge already exists.
	ErrDuplicateConnection = errors.New("connection already exists")

	// ErrPortMismatch indicates the ports cannot be wired (edges run output to input).
	ErrPortMismatch = errors.New("connections run from an output port to an input port")

	// ErrNotPermutation indicates a reorder that is not a permutation of the
	// node's current inputs.
	ErrNotPermutation = errors.New("new order is not a permutation of the node's inputs")
)

const (
	groupMinWidth  = 80.0
	groupMinHeight = 60.0
)

// Canvas is the single authoritative graph store for one canvas session.
type Canvas struct {
	mu          sync.RWMutex
	definitions *registry.Registry
	nodes       map[string]*models.Node
	order       []string // node IDs in insertion order, for stable snapshots
	connections []*models.Connection
	groups      map[string]*models.Group
	groupOrder  []string
}

// NewCanvas creates an empty canvas backed by the given node type registry.
func NewCanvas(definitions *registry.Registry) *Canvas {
	return &Canvas{
		definitions: definitions,
		nodes:       make(map[string]*models.Node),
		order:       make([]string, 0),
		connections: make([]*models.Connection, 0),
		groups:      make(map[string]*models.Group),
		groupOrder:  make([]string, 0),
	}
}

// AddNode creates a node of the given type at the given position, filling in
// the type-dependent default title, size and parameters. It never fails.
func (c *Canvas) AddNode(nodeType models.NodeType, x, y float64) *models.Node {
	c.mu.Lock()
	defer c.mu.Unlock()

	node := &models.Node{
		ID:     uuid.New().String(),
		Type:   nodeType,
		X:      x,
		Y:      y,
		Status: models.NodeStatusIdle,
		Inputs: make([]string, 0),
	}

	if def, err := c.definitions.Definition(nodeType); err == nil {
		node.Title = def.DefaultTitle

		if def.DefaultParams != nil {
			node.Data.Params = make(map[string]any, len(def.DefaultParams))
			for k, v := range def.DefaultParams {
				node.Data.Params[k] = v
			}
		}
	}

	c.nodes[node.ID] = node
	c.order = append(c.order, node.ID)

	return node.Clone()
}

// RemoveNode removes the node and cascades removal of every connection
// touching it, keeping the inputs projection of the remaining nodes
// consistent. Removing an absent node is a no-op; the return value reports
// whether anything was removed.
func (c *Canvas) RemoveNode(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.nodes[id]; !ok {
		return false
	}

	delete(c.nodes, id)

	c.order = slices.DeleteFunc(c.order, func(nodeID string) bool {
		return nodeID == id
	})

	c.connections = slices.DeleteFunc(c.connections, func(conn *models.Connection) bool {
		return conn.Touches(id)
	})

	// Edges are the source of truth; drop the removed id from every
	// remaining inputs projection.
	for _, node := range c.nodes {
		node.Inputs = slices.DeleteFunc(node.Inputs, func(inputID string) bool {
			return inputID == id
		})
	}

	return true
}

// MoveNode updates the node position. No bounds are enforced; the canvas is
// infinite.
func (c *Canvas) MoveNode(id string, x, y float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.nodes[id]
	if !ok {
		return ErrNodeNotFound
	}

	node.X = x
	node.Y = y

	return nil
}

// ResizeNode applies a partial size update. Dimensions are floored at the
// type-specific minimum, and aspect-locked types derive the unspecified
// dimension from the specified one.
func (c *Canvas) ResizeNode(id string, width, height *float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.nodes[id]
	if !ok {
		return ErrNodeNotFound
	}

	def, err := c.definitions.Definition(node.Type)
	if err != nil {
		def = nil
	}

	minWidth, minHeight := 1.0, 1.0
	aspect := 0.0

	if def != nil {
		minWidth, minHeight = def.MinWidth, def.MinHeight
		aspect = def.AspectRatio
	}

	switch {
	case width != nil && aspect > 0:
		// Width wins on aspect-locked types; height follows.
		w := max(*width, minWidth)
		h := w / aspect
		node.Width = &w
		node.Height = &h
	case height != nil && aspect > 0:
		h := max(*height, minHeight)
		w := h * aspect
		node.Width = &w
		node.Height = &h
	default:
		if width != nil {
			w := max(*width, minWidth)
			node.Width = &w
		}

		if height != nil {
			h := max(*height, minHeight)
			node.Height = &h
		}
	}

	return nil
}

// SetTitle updates the node's user-editable label.
func (c *Canvas) SetTitle(id, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.nodes[id]
	if !ok {
		return ErrNodeNotFound
	}

	node.Title = title

	return nil
}

// SetStatus updates the node's lifecycle status.
func (c *Canvas) SetStatus(id string, status models.NodeStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.nodes[id]
	if !ok {
		return ErrNodeNotFound
	}

	node.Status = status

	return nil
}

// UpdateData mutates the node's data payload under the canvas lock. The
// callback receives the live payload and must not retain it.
func (c *Canvas) UpdateData(id string, update func(*models.NodeData)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.nodes[id]
	if !ok {
		return ErrNodeNotFound
	}

	update(&node.Data)

	return nil
}

// Connect wires fromID's output port to toID's input port. Self connections,
// duplicate edges and port mismatches are rejected. A new edge appends fromID
// to the target node's inputs projection.
func (c *Canvas) Connect(fromID string, fromPort models.Port, toID string, toPort models.Port) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if fromID == toID {
		return ErrSelfConnection
	}

	if fromPort != models.PortOutput || toPort != models.PortInput {
		return ErrPortMismatch
	}

	if _, ok := c.nodes[fromID]; !ok {
		return ErrNodeNotFound
	}

	target, ok := c.nodes[toID]
	if !ok {
		return ErrNodeNotFound
	}

	for _, conn := range c.connections {
		if conn.From == fromID && conn.To == toID {
			return ErrDuplicateConnection
		}
	}

	c.connections = append(c.connections, &models.Connection{From: fromID, To: toID})
	target.Inputs = append(target.Inputs, fromID)

	return nil
}

// Disconnect removes the edge between the two nodes and drops fromID from the
// target's inputs projection, preserving the relative order of the rest.
func (c *Canvas) Disconnect(fromID, toID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := len(c.connections)

	c.connections = slices.DeleteFunc(c.connections, func(conn *models.Connection) bool {
		return conn.From == fromID && conn.To == toID
	})

	if len(c.connections) == before {
		return ErrNodeNotFound
	}

	if target, ok := c.nodes[toID]; ok {
		target.Inputs = slices.DeleteFunc(target.Inputs, func(inputID string) bool {
			return inputID == fromID
		})
	}

	return nil
}

// ReorderInputs replaces the node's input order. The new order must be a
// permutation of the current inputs; anything else is rejected and the
// original order is preserved.
func (c *Canvas) ReorderInputs(id string, newOrder []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.nodes[id]
	if !ok {
		return ErrNodeNotFound
	}

	if !isPermutation(node.Inputs, newOrder) {
		return ErrNotPermutation
	}

	node.Inputs = slices.Clone(newOrder)

	return nil
}

func isPermutation(current, proposed []string) bool {
	if len(current) != len(proposed) {
		return false
	}

	counts := make(map[string]int, len(current))
	for _, id := range current {
		counts[id]++
	}

	for _, id := range proposed {
		counts[id]--
		if counts[id] < 0 {
			return false
		}
	}

	return true
}

// Node returns a deep copy of the node with the given ID.
func (c *Canvas) Node(id string) (*models.Node, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	node, ok := c.nodes[id]
	if !ok {
		return nil, false
	}

	return node.Clone(), true
}

// NodeExists reports whether the node is still on the canvas. Asynchronous
// callbacks use this to discard results targeting deleted nodes.
func (c *Canvas) NodeExists(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.nodes[id]

	return ok
}

// Nodes returns deep copies of all nodes in insertion order.
func (c *Canvas) Nodes() []*models.Node {
	c.mu.RLock()
	defer c.mu.RUnlock()

	nodes := make([]*models.Node, 0, len(c.order))
	for _, id := range c.order {
		nodes = append(nodes, c.nodes[id].Clone())
	}

	return nodes
}

// Connections returns copies of all edges.
func (c *Canvas) Connections() []*models.Connection {
	c.mu.RLock()
	defer c.mu.RUnlock()

	connections := make([]*models.Connection, 0, len(c.connections))
	for _, conn := range c.connections {
		connections = append(connections, conn.Clone())
	}

	return connections
}

// NodeCount returns the number of nodes on the canvas.
func (c *Canvas) NodeCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.nodes)
}

// ConnectionCount returns the number of edges on the canvas.
func (c *Canvas) ConnectionCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.connections)
}

// AddGroup creates a visual group rectangle.
func (c *Canvas) AddGroup(x, y, width, height float64, title string) *models.Group {
	c.mu.Lock()
	defer c.mu.Unlock()

	group := &models.Group{
		ID:     uuid.New().String(),
		X:      x,
		Y:      y,
		Width:  max(width, groupMinWidth),
		Height: max(height, groupMinHeight),
		Title:  title,
	}

	c.groups[group.ID] = group
	c.groupOrder = append(c.groupOrder, group.ID)

	return group.Clone()
}

// RemoveGroup removes the group rectangle. Contained nodes are unaffected;
// membership is never persisted. Idempotent for absent IDs.
func (c *Canvas) RemoveGroup(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.groups[id]; !ok {
		return false
	}

	delete(c.groups, id)

	c.groupOrder = slices.DeleteFunc(c.groupOrder, func(groupID string) bool {
		return groupID == id
	})

	return true
}

// MoveGroup updates the group rectangle's position. Translating contained
// nodes is the interaction layer's job; it captures membership at drag start.
func (c *Canvas) MoveGroup(id string, x, y float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	group, ok := c.groups[id]
	if !ok {
		return ErrGroupNotFound
	}

	group.X = x
	group.Y = y

	return nil
}

// ResizeGroup updates the group rectangle's size with a minimum floor.
func (c *Canvas) ResizeGroup(id string, width, height float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	group, ok := c.groups[id]
	if !ok {
		return ErrGroupNotFound
	}

	group.Width = max(width, groupMinWidth)
	group.Height = max(height, groupMinHeight)

	return nil
}

// SetGroupTitle updates the group's label.
func (c *Canvas) SetGroupTitle(id, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	group, ok := c.groups[id]
	if !ok {
		return ErrGroupNotFound
	}

	group.Title = title

	return nil
}

// Group returns a copy of the group with the given ID.
func (c *Canvas) Group(id string) (*models.Group, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	group, ok := c.groups[id]
	if !ok {
		return nil, false
	}

	return group.Clone(), true
}

// Groups returns copies of all groups in insertion order.
func (c *Canvas) Groups() []*models.Group {
	c.mu.RLock()
	defer c.mu.RUnlock()

	groups := make([]*models.Group, 0, len(c.groupOrder))
	for _, id := range c.groupOrder {
		groups = append(groups, c.groups[id].Clone())
	}

	return groups
}

// NodesWithin returns the IDs of nodes whose position lies inside the given
// bounds, in insertion order. Containment is judged by the node's position
// point, matching how group membership is derived at drag start.
func (c *Canvas) NodesWithin(x, y, width, height float64) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0)

	for _, id := range c.order {
		node := c.nodes[id]
		if node.X >= x && node.X <= x+width && node.Y >= y && node.Y <= y+height {
			ids = append(ids, id)
		}
	}

	return ids
}

// Snapshot returns a deep copy of the whole graph as a workflow record with
// identity fields left blank for the serializer to fill.
func (c *Canvas) Snapshot() *models.Workflow {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := &models.Workflow{
		Nodes:       make([]*models.Node, 0, len(c.order)),
		Connections: make([]*models.Connection, 0, len(c.connections)),
		Groups:      make([]*models.Group, 0, len(c.groupOrder)),
	}

	for _, id := range c.order {
		snapshot.Nodes = append(snapshot.Nodes, c.nodes[id].Clone())
	}

	for _, conn := range c.connections {
		snapshot.Connections = append(snapshot.Connections, conn.Clone())
	}

	for _, id := range c.groupOrder {
		snapshot.Groups = append(snapshot.Groups, c.groups[id].Clone())
	}

	return snapshot
}

// Restore replaces the whole graph with the workflow's snapshot. The incoming
// records are deep-copied so later canvas mutations never leak into the
// caller's workflow.
func (c *Canvas) Restore(workflow *models.Workflow) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nodes = make(map[string]*models.Node, len(workflow.Nodes))
	c.order = make([]string, 0, len(workflow.Nodes))

	for _, node := range workflow.Nodes {
		clone := node.Clone()
		if clone.Inputs == nil {
			clone.Inputs = make([]string, 0)
		}

		c.nodes[clone.ID] = clone
		c.order = append(c.order, clone.ID)
	}

	c.connections = make([]*models.Connection, 0, len(workflow.Connections))
	for _, conn := range workflow.Connections {
		c.connections = append(c.connections, conn.Clone())
	}

	c.groups = make(map[string]*models.Group, len(workflow.Groups))
	c.groupOrder = make([]string, 0, len(workflow.Groups))

	for _, group := range workflow.Groups {
		clone := group.Clone()
		c.groups[clone.ID] = clone
		c.groupOrder = append(c.groupOrder, clone.ID)
	}
}

// Clear removes everything from the canvas.
func (c *Canvas) Clear() {
	c.Restore(&models.Workflow{})
}

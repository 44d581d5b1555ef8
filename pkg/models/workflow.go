package models

import "time"

// Workflow is a saved, named snapshot of the entire canvas graph: nodes,
// connections and groups, plus a best-effort thumbnail. Workflows are
// immutable once saved except via an explicit overwrite-save.
type Workflow struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"                validate:"required,min=1"`
	Thumbnail   string        `json:"thumbnail"`
	Nodes       []*Node       `json:"nodes"`
	Connections []*Connection `json:"connections"`
	Groups      []*Group      `json:"groups"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Node returns the workflow node with the given ID, or nil.
func (w *Workflow) Node(id string) *Node {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// Clone returns a deep copy of the workflow snapshot.
func (w *Workflow) Clone() *Workflow {
	clone := *w

	clone.Nodes = make([]*Node, len(w.Nodes))
	for i, node := range w.Nodes {
		clone.Nodes[i] = node.Clone()
	}

	clone.Connections = make([]*Connection, len(w.Connections))
	for i, conn := range w.Connections {
		clone.Connections[i] = conn.Clone()
	}

	clone.Groups = make([]*Group, len(w.Groups))
	for i, group := range w.Groups {
		clone.Groups[i] = group.Clone()
	}

	return &clone
}

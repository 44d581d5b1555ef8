package interaction

import "github.com/atelierhq/atelier/pkg/models"

// TargetKind classifies what the pointer went down on or was released over.
type TargetKind string

const (
	TargetNodeBody     TargetKind = "node_body"
	TargetNodeTitle    TargetKind = "node_title"
	TargetPort         TargetKind = "port"
	TargetResizeHandle TargetKind = "resize_handle"
	TargetGroupBody    TargetKind = "group_body"
	TargetCanvas       TargetKind = "canvas"
)

// Target identifies one hit target. The renderer performs hit testing and
// hands the machine the resolved target; the machine never does geometry
// lookups of its own beyond group containment.
type Target struct {
	Kind    TargetKind
	NodeID  string
	GroupID string
	Port    models.Port
}

func NodeBody(nodeID string) Target {
	return Target{Kind: TargetNodeBody, NodeID: nodeID}
}

func NodeTitle(nodeID string) Target {
	return Target{Kind: TargetNodeTitle, NodeID: nodeID}
}

func NodePort(nodeID string, port models.Port) Target {
	return Target{Kind: TargetPort, NodeID: nodeID, Port: port}
}

func ResizeHandle(nodeID string) Target {
	return Target{Kind: TargetResizeHandle, NodeID: nodeID}
}

func GroupBody(groupID string) Target {
	return Target{Kind: TargetGroupBody, GroupID: groupID}
}

func EmptyCanvas() Target {
	return Target{Kind: TargetCanvas}
}

// Pointer is one pointer sample in canvas coordinates. Modifier reports
// whether the platform's multi-select modifier was held.
type Pointer struct {
	X        float64
	Y        float64
	Modifier bool
}

// Viewport is the camera offset for the canvas view. It is session state
// owned by the machine and is never persisted with workflows.
type Viewport struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

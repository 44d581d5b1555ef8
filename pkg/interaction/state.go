package interaction

// State identifies the machine's current pointer gesture.
type State string

const (
	// StateIdle means no gesture is active.
	StateIdle State = "idle"

	// StateDraggingNode tracks a node body drag; position updates
	// continuously from the pointer delta.
	StateDraggingNode State = "dragging_node"

	// StateDraggingGroup tracks a group body drag; the contained node set is
	// captured once at drag start and translated as a rigid unit.
	StateDraggingGroup State = "dragging_group"

	// StateResizingNode tracks a resize handle drag with per-type minimum
	// floors and aspect locking.
	StateResizingNode State = "resizing_node"

	// StateConnectingFromPort tracks a pending edge following the pointer
	// from the grabbed port.
	StateConnectingFromPort State = "connecting_from_port"

	// StateMultiSelecting tracks a marquee rectangle; releasing it replaces
	// the selection set.
	StateMultiSelecting State = "multi_selecting"

	// StateEditingTitle is an open title editor on one node. Unlike the drag
	// states it survives the pointer-up that opened it and ends on commit,
	// cancel or a pointer-down elsewhere.
	StateEditingTitle State = "editing_title"

	// StatePanningCanvas tracks a viewport pan; it never mutates the graph.
	StatePanningCanvas State = "panning_canvas"
)

// validTransitions defines the allowed gesture transitions. Every gesture
// starts from idle and ends back in idle; gestures never chain directly.
var validTransitions = map[State][]State{
	StateIdle: {
		StateDraggingNode,
		StateDraggingGroup,
		StateResizingNode,
		StateConnectingFromPort,
		StateMultiSelecting,
		StateEditingTitle,
		StatePanningCanvas,
	},
	StateDraggingNode:       {StateIdle},
	StateDraggingGroup:      {StateIdle},
	StateResizingNode:       {StateIdle},
	StateConnectingFromPort: {StateIdle},
	StateMultiSelecting:     {StateIdle},
	StateEditingTitle:       {StateIdle},
	StatePanningCanvas:      {StateIdle},
}

func isValidTransition(from, to State) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}

	for _, candidate := range allowed {
		if candidate == to {
			return true
		}
	}

	return false
}

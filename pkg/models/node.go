// Package models defines the core domain models for the node canvas.
package models

// NodeType identifies one of the built-in creative node types.
type NodeType string

const (
	NodeTypePromptInput    NodeType = "prompt-input"
	NodeTypeImageGenerator NodeType = "image-generator"
	NodeTypeVideoGenerator NodeType = "video-generator"
	NodeTypeVideoAnalyzer  NodeType = "video-analyzer"
	NodeTypeImageEditor    NodeType = "image-editor"
	NodeTypeAudioGenerator NodeType = "audio-generator"
	NodeTypeStoryGenerator NodeType = "story-generator"
)

// NodeTypes lists every built-in node type.
func NodeTypes() []NodeType {
	return []NodeType{
		NodeTypePromptInput,
		NodeTypeImageGenerator,
		NodeTypeVideoGenerator,
		NodeTypeVideoAnalyzer,
		NodeTypeImageEditor,
		NodeTypeAudioGenerator,
		NodeTypeStoryGenerator,
	}
}

// NodeStatus defines the lifecycle states of a node on the canvas.
type NodeStatus string

const (
	NodeStatusIdle    NodeStatus = "idle"
	NodeStatusWorking NodeStatus = "working"
	NodeStatusSuccess NodeStatus = "success"
	NodeStatusError   NodeStatus = "error"
)

// Node represents a single unit of work placed on the canvas.
//
// Width and Height are optional; when absent the type-dependent default from
// the node definition registry applies. Inputs is the ordered list of upstream
// node IDs feeding this node's input port. The order is semantically
// meaningful (multi-image composition order) and is a derived projection of
// the connection set: connections are the source of truth, Inputs only adds
// ordering on top of them.
type Node struct {
	ID     string     `json:"id"     validate:"required"`
	Type   NodeType   `json:"type"   validate:"required"`
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	Width  *float64   `json:"width,omitempty"`
	Height *float64   `json:"height,omitempty"`
	Title  string     `json:"title"`
	Status NodeStatus `json:"status"`
	Data   NodeData   `json:"data"`
	Inputs []string   `json:"inputs"`
}

// NodeData holds the type-tagged payload of a node: the prompt, produced media
// URIs, per-node generation parameters, and transient error/progress strings.
type NodeData struct {
	Prompt       string         `json:"prompt,omitempty"`
	Image        string         `json:"image,omitempty"`
	Video        string         `json:"video,omitempty"`
	Audio        string         `json:"audio,omitempty"`
	Text         string         `json:"text,omitempty"`
	SourceImages []string       `json:"source_images,omitempty"`
	Params       map[string]any `json:"params,omitempty"`
	Error        string         `json:"error,omitempty"`
	Progress     string         `json:"progress,omitempty"`
}

// Result field names used by node definitions to declare where a completed
// generation writes its output.
const (
	ResultFieldImage = "image"
	ResultFieldVideo = "video"
	ResultFieldAudio = "audio"
	ResultFieldText  = "text"
)

// SetResult writes a produced media URI into the named result field.
// Unknown field names are ignored.
func (d *NodeData) SetResult(field, uri string) {
	switch field {
	case ResultFieldImage:
		d.Image = uri
	case ResultFieldVideo:
		d.Video = uri
	case ResultFieldAudio:
		d.Audio = uri
	case ResultFieldText:
		d.Text = uri
	}
}

// Result reads the named result field.
func (d *NodeData) Result(field string) string {
	switch field {
	case ResultFieldImage:
		return d.Image
	case ResultFieldVideo:
		return d.Video
	case ResultFieldAudio:
		return d.Audio
	case ResultFieldText:
		return d.Text
	default:
		return ""
	}
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	clone := *n

	if n.Width != nil {
		w := *n.Width
		clone.Width = &w
	}

	if n.Height != nil {
		h := *n.Height
		clone.Height = &h
	}

	clone.Inputs = make([]string, len(n.Inputs))
	copy(clone.Inputs, n.Inputs)

	clone.Data = n.Data.Clone()

	return &clone
}

// Clone returns a deep copy of the node data payload.
func (d NodeData) Clone() NodeData {
	clone := d

	if d.SourceImages != nil {
		clone.SourceImages = make([]string, len(d.SourceImages))
		copy(clone.SourceImages, d.SourceImages)
	}

	if d.Params != nil {
		clone.Params = make(map[string]any, len(d.Params))
		for k, v := range d.Params {
			clone.Params[k] = v
		}
	}

	return clone
}

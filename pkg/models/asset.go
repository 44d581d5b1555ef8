package models

import "time"

// Asset records one completed generation in the asset history: which node
// produced it, the node type, the media URI and when it finished.
type Asset struct {
	NodeID string    `json:"node_id" validate:"required"`
	Type   NodeType  `json:"type"    validate:"required"`
	URI    string    `json:"uri"     validate:"required"`
	At     time.Time `json:"at"`
}

// Package models defines the connection model linking node ports.
package models

// Port identifies a node's attachment point for connections.
type Port string

const (
	PortInput  Port = "input"
	PortOutput Port = "output"
)

// Connection is a directed edge from one node's output port to another
// node's input port. The stored shape carries only the two node IDs; ports
// are implicit because edges always run output to input.
type Connection struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to"   validate:"required"`
}

// Touches reports whether the connection references the given node on
// either end.
func (c *Connection) Touches(nodeID string) bool {
	return c.From == nodeID || c.To == nodeID
}

// Clone returns a copy of the connection.
func (c *Connection) Clone() *Connection {
	clone := *c

	return &clone
}

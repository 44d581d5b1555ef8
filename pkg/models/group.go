package models

// Group is a visual rectangle used to move a spatial cluster of nodes
// together. Membership is never stored: it is derived by spatial containment
// at the moment a group drag starts.
type Group struct {
	ID     string  `json:"id"     validate:"required"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Title  string  `json:"title"`
}

// Contains reports whether the point (x, y) lies inside the group's bounds.
func (g *Group) Contains(x, y float64) bool {
	return x >= g.X && x <= g.X+g.Width && y >= g.Y && y <= g.Y+g.Height
}

// Clone returns a copy of the group.
func (g *Group) Clone() *Group {
	clone := *g

	return &clone
}

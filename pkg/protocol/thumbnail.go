package protocol

import (
	"context"

	"github.com/atelierhq/atelier/pkg/models"
)

// Thumbnailer renders a small preview of a workflow snapshot, returned as a
// data URI. Rendering is best effort: a failure never blocks a workflow save.
type Thumbnailer interface {
	Render(ctx context.Context, workflow *models.Workflow) (string, error)
}

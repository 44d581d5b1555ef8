package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/atelierhq/atelier/pkg/canvas"
	"github.com/atelierhq/atelier/pkg/generation"
	"github.com/atelierhq/atelier/pkg/workflows"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleCanvasError maps graph mutation errors onto problem responses. The
// canvas itself treats invalid mutations as silent no-ops; the typed errors
// only surface here, at the API boundary.
func handleCanvasError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, canvas.ErrNodeNotFound):
		return notFound(c, "node not found")

	case errors.Is(err, canvas.ErrGroupNotFound):
		return notFound(c, "group not found")

	case errors.Is(err, canvas.ErrSelfConnection),
		errors.Is(err, canvas.ErrDuplicateConnection),
		errors.Is(err, canvas.ErrPortMismatch),
		errors.Is(err, canvas.ErrNotPermutation):
		return badRequest(c, err.Error())

	default:
		return internalError(c, err)
	}
}

// handleGenerationError maps orchestrator errors onto problem responses.
// ErrAlreadyRunning never reaches here; the generate handler answers it with
// the existing task instead.
func handleGenerationError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, canvas.ErrNodeNotFound):
		return notFound(c, "node not found")

	case errors.Is(err, generation.ErrNoActiveTask):
		return notFound(c, "no active task for node")

	case errors.Is(err, generation.ErrNotGenerator),
		errors.Is(err, generation.ErrInvalidParams):
		return badRequest(c, err.Error())

	default:
		return internalError(c, err)
	}
}

// handleWorkflowError provides typed error handling for the workflow service.
func handleWorkflowError(c fiber.Ctx, err error) error {
	switch {
	case workflows.IsNotFound(err):
		return notFound(c, "workflow not found")

	case workflows.IsValidationError(err):
		return badRequest(c, err.Error())

	default:
		return internalError(c, err)
	}
}

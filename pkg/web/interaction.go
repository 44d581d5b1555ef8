package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/atelierhq/atelier/pkg/interaction"
)

// Pointer event endpoints. The renderer forwards resolved hit targets and
// canvas-space coordinates; the machine owns every gesture rule.

func (h *APIHandlers) GetInteraction(c fiber.Ctx) error {
	return c.JSON(h.interactionState())
}

func (h *APIHandlers) PointerDown(c fiber.Ctx) error {
	var req PointerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req.Target); err != nil {
		return badRequest(c, err.Error())
	}

	h.machine.PointerDown(req.Target.Target(), interaction.Pointer{X: req.X, Y: req.Y, Modifier: req.Modifier})

	return c.JSON(h.interactionState())
}

func (h *APIHandlers) PointerMove(c fiber.Ctx) error {
	var req PointerMoveRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	h.machine.PointerMove(interaction.Pointer{X: req.X, Y: req.Y})

	return c.JSON(h.interactionState())
}

func (h *APIHandlers) PointerUp(c fiber.Ctx) error {
	var req PointerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req.Target); err != nil {
		return badRequest(c, err.Error())
	}

	h.machine.PointerUp(c.Context(), req.Target.Target(), interaction.Pointer{X: req.X, Y: req.Y, Modifier: req.Modifier})

	return c.JSON(h.interactionState())
}

// CancelInteraction aborts the gesture in progress (Escape, pointer-capture
// loss). Preview mutations stay where they are; there is no rollback.
func (h *APIHandlers) CancelInteraction(c fiber.Ctx) error {
	h.machine.Cancel(c.Context())

	return c.JSON(h.interactionState())
}

// CommitTitle finishes the title edit the machine is in.
func (h *APIHandlers) CommitTitle(c fiber.Ctx) error {
	var req CommitTitleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.machine.CommitTitle(c.Context(), req.Title); err != nil {
		if errors.Is(err, interaction.ErrNotEditing) {
			return conflict(c, err.Error())
		}

		return handleCanvasError(c, err)
	}

	return c.JSON(h.interactionState())
}

// RetitleSelection applies one title to every node in the current
// multi-selection. Nodes that left the canvas since selection are skipped.
func (h *APIHandlers) RetitleSelection(c fiber.Ctx) error {
	var req RetitleSelectionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	retitled := 0

	for _, id := range h.machine.Selection() {
		if err := h.canvas.SetTitle(id, req.Title); err == nil {
			retitled++
		}
	}

	return c.JSON(fiber.Map{"retitled": retitled})
}

// DeleteSelection removes every node in the current multi-selection,
// cancelling in-flight generations first.
func (h *APIHandlers) DeleteSelection(c fiber.Ctx) error {
	ids := h.machine.Selection()
	removed := h.removeNodes(c, ids)

	return c.JSON(fiber.Map{"removed": removed})
}

func (h *APIHandlers) interactionState() InteractionResponse {
	return InteractionResponse{
		State:     string(h.machine.State()),
		Selection: h.machine.Selection(),
		Viewport:  h.machine.Viewport(),
	}
}

package web

import (
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/atelierhq/atelier/pkg/workflows"
)

func (h *APIHandlers) ListWorkflows(c fiber.Ctx) error {
	req, err := h.parseListRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.workflowService.List(c.Context(), *req)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	summaries := make([]WorkflowSummary, 0, len(result))
	for _, workflow := range result {
		summaries = append(summaries, TransformWorkflowSummary(workflow))
	}

	return c.JSON(fiber.Map{
		"workflows": summaries,
		"count":     len(summaries),
		"loaded_id": h.workflowService.LoadedID(),
		"pagination": fiber.Map{
			"limit":  req.Limit,
			"offset": req.Offset,
		},
		"sorting": fiber.Map{
			"sort_by":    req.SortBy,
			"sort_order": req.SortOrder,
		},
	})
}

// parseListRequest parses and validates query parameters for listing
// workflows.
func (h *APIHandlers) parseListRequest(c fiber.Ctx) (*workflows.ListRequest, error) {
	req := &workflows.ListRequest{}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		req.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, err
		}

		req.Offset = offset
	}

	req.SortBy = c.Query("sort_by")
	req.SortOrder = c.Query("sort_order")

	return req, nil
}

// SaveWorkflow snapshots the live canvas under a new workflow id.
func (h *APIHandlers) SaveWorkflow(c fiber.Ctx) error {
	var req SaveWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.workflowService.Save(c.Context(), req.Title)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.JSON(workflow)
}

// LoadWorkflow replaces the live canvas with the stored snapshot. In-flight
// generations are cancelled before the replace.
func (h *APIHandlers) LoadWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.Load(c.Context(), c.Params("id"))
	if err != nil {
		return handleWorkflowError(c, err)
	}

	h.machine.ClearSelection()

	return c.JSON(workflow)
}

// OverwriteWorkflow re-captures the live canvas into an existing workflow id.
func (h *APIHandlers) OverwriteWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.Overwrite(c.Context(), c.Params("id"))
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) RenameWorkflow(c fiber.Ctx) error {
	var req RenameWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.workflowService.Rename(c.Context(), c.Params("id"), req.Title)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.workflowService.Delete(c.Context(), c.Params("id")); err != nil {
		return handleWorkflowError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

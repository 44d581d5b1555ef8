package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/atelierhq/atelier/pkg/assets"
	"github.com/atelierhq/atelier/pkg/canvas"
	"github.com/atelierhq/atelier/pkg/generation"
	"github.com/atelierhq/atelier/pkg/interaction"
	"github.com/atelierhq/atelier/pkg/models"
	"github.com/atelierhq/atelier/pkg/registry"
	"github.com/atelierhq/atelier/pkg/tasks"
	"github.com/atelierhq/atelier/pkg/workflows"
)

// APIHandlers serves the canvas engine's REST surface.
type APIHandlers struct {
	canvas          *canvas.Canvas
	registry        *registry.Registry
	orchestrator    *generation.Orchestrator
	tasks           *tasks.Registry
	workflowService *workflows.Service
	history         *assets.History
	machine         *interaction.Machine
	validator       *validator.Validate
}

func NewAPIHandlers(
	cv *canvas.Canvas,
	reg *registry.Registry,
	orchestrator *generation.Orchestrator,
	taskRegistry *tasks.Registry,
	workflowService *workflows.Service,
	history *assets.History,
	machine *interaction.Machine,
	validate *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		canvas:          cv,
		registry:        reg,
		orchestrator:    orchestrator,
		tasks:           taskRegistry,
		workflowService: workflowService,
		history:         history,
		machine:         machine,
		validator:       validate,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	storeCheck, storeOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Atelier API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && storeOk {
		status = "healthy"
		message = "Atelier API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry": registryCheck,
			"store":    storeCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// GetCanvas returns the full live document: every node, connection and group.
func (h *APIHandlers) GetCanvas(c fiber.Ctx) error {
	return c.JSON(CanvasResponse{
		Nodes:       h.canvas.Nodes(),
		Connections: h.canvas.Connections(),
		Groups:      h.canvas.Groups(),
	})
}

// GetNodeTypes returns the registered node type palette.
func (h *APIHandlers) GetNodeTypes(c fiber.Ctx) error {
	types := h.registry.Types()
	response := make([]NodeTypeResponse, 0, len(types))

	for _, nodeType := range types {
		def, err := h.registry.Definition(nodeType)
		if err != nil {
			continue
		}

		response = append(response, NodeTypeResponse{
			Type:          string(def.Type),
			Name:          def.Name,
			Description:   def.Description,
			DefaultWidth:  def.DefaultWidth,
			DefaultHeight: def.DefaultHeight,
			MinWidth:      def.MinWidth,
			MinHeight:     def.MinHeight,
			AspectRatio:   def.AspectRatio,
			Generates:     def.Generates,
			DefaultParams: def.DefaultParams,
			Schema:        def.Schema,
		})
	}

	return c.JSON(fiber.Map{"node_types": response})
}

func (h *APIHandlers) CreateNode(c fiber.Ctx) error {
	var req CreateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	nodeType := models.NodeType(req.Type)
	if _, err := h.registry.Definition(nodeType); err != nil {
		return badRequest(c, "unknown node type '"+req.Type+"'")
	}

	node := h.canvas.AddNode(nodeType, req.X, req.Y)

	if req.Title != "" {
		_ = h.canvas.SetTitle(node.ID, req.Title)
		node.Title = req.Title
	}

	return c.Status(fiber.StatusCreated).JSON(node)
}

func (h *APIHandlers) GetNode(c fiber.Ctx) error {
	node, ok := h.canvas.Node(c.Params("id"))
	if !ok {
		return notFound(c, "node not found")
	}

	return c.JSON(node)
}

func (h *APIHandlers) UpdateNode(c fiber.Ctx) error {
	id := c.Params("id")

	var req UpdateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	current, ok := h.canvas.Node(id)
	if !ok {
		return notFound(c, "node not found")
	}

	if req.X != nil || req.Y != nil {
		x, y := current.X, current.Y

		if req.X != nil {
			x = *req.X
		}

		if req.Y != nil {
			y = *req.Y
		}

		if err := h.canvas.MoveNode(id, x, y); err != nil {
			return handleCanvasError(c, err)
		}
	}

	if req.Width != nil || req.Height != nil {
		if err := h.canvas.ResizeNode(id, req.Width, req.Height); err != nil {
			return handleCanvasError(c, err)
		}
	}

	if req.Title != nil {
		if err := h.canvas.SetTitle(id, *req.Title); err != nil {
			return handleCanvasError(c, err)
		}
	}

	if req.Prompt != nil || req.Params != nil {
		err := h.canvas.UpdateData(id, func(data *models.NodeData) {
			if req.Prompt != nil {
				data.Prompt = *req.Prompt
			}

			if req.Params != nil {
				data.Params = req.Params
			}
		})
		if err != nil {
			return handleCanvasError(c, err)
		}
	}

	node, ok := h.canvas.Node(id)
	if !ok {
		return notFound(c, "node not found")
	}

	return c.JSON(node)
}

// DeleteNode cancels any in-flight generation for the node before removing
// it; the cascade drops every touching connection.
func (h *APIHandlers) DeleteNode(c fiber.Ctx) error {
	id := c.Params("id")

	if _, err := h.orchestrator.Cancel(c.Context(), id); err != nil && !errors.Is(err, generation.ErrNoActiveTask) {
		return handleGenerationError(c, err)
	}

	if !h.canvas.RemoveNode(id) {
		return notFound(c, "node not found")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// BatchDeleteNodes removes a multi-selection in one call. Missing nodes are
// skipped; the response reports how many were actually removed.
func (h *APIHandlers) BatchDeleteNodes(c fiber.Ctx) error {
	var req BatchDeleteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	removed := h.removeNodes(c, req.IDs)

	return c.JSON(fiber.Map{"removed": removed})
}

func (h *APIHandlers) removeNodes(c fiber.Ctx, ids []string) int {
	removed := 0

	for _, id := range ids {
		_, _ = h.orchestrator.Cancel(c.Context(), id)

		if h.canvas.RemoveNode(id) {
			removed++
		}
	}

	if removed > 0 {
		h.machine.ClearSelection()
	}

	return removed
}

func (h *APIHandlers) ReorderInputs(c fiber.Ctx) error {
	id := c.Params("id")

	var req ReorderInputsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.canvas.ReorderInputs(id, req.Inputs); err != nil {
		return handleCanvasError(c, err)
	}

	node, _ := h.canvas.Node(id)

	return c.JSON(node)
}

func (h *APIHandlers) CreateConnection(c fiber.Ctx) error {
	var req CreateConnectionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.canvas.Connect(req.From, models.PortOutput, req.To, models.PortInput); err != nil {
		return handleCanvasError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(models.Connection{From: req.From, To: req.To})
}

func (h *APIHandlers) DeleteConnection(c fiber.Ctx) error {
	from := c.Params("from")
	to := c.Params("to")

	if err := h.canvas.Disconnect(from, to); err != nil {
		return notFound(c, "connection not found")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CreateGroup(c fiber.Ctx) error {
	var req CreateGroupRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	group := h.canvas.AddGroup(req.X, req.Y, req.Width, req.Height, req.Title)

	return c.Status(fiber.StatusCreated).JSON(group)
}

func (h *APIHandlers) UpdateGroup(c fiber.Ctx) error {
	id := c.Params("id")

	var req UpdateGroupRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	current, ok := h.canvas.Group(id)
	if !ok {
		return notFound(c, "group not found")
	}

	if req.X != nil || req.Y != nil {
		x, y := current.X, current.Y

		if req.X != nil {
			x = *req.X
		}

		if req.Y != nil {
			y = *req.Y
		}

		if err := h.canvas.MoveGroup(id, x, y); err != nil {
			return handleCanvasError(c, err)
		}
	}

	if req.Width != nil || req.Height != nil {
		width, height := current.Width, current.Height

		if req.Width != nil {
			width = *req.Width
		}

		if req.Height != nil {
			height = *req.Height
		}

		if err := h.canvas.ResizeGroup(id, width, height); err != nil {
			return handleCanvasError(c, err)
		}
	}

	if req.Title != nil {
		if err := h.canvas.SetGroupTitle(id, *req.Title); err != nil {
			return handleCanvasError(c, err)
		}
	}

	group, _ := h.canvas.Group(id)

	return c.JSON(group)
}

// DeleteGroup removes the frame only; member nodes stay on the canvas.
func (h *APIHandlers) DeleteGroup(c fiber.Ctx) error {
	if !h.canvas.RemoveGroup(c.Params("id")) {
		return notFound(c, "group not found")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Generate starts a generation for the node. A node that is already working
// answers 202 with its existing task rather than an error; both outcomes look
// the same to a renderer that just wants something to poll.
func (h *APIHandlers) Generate(c fiber.Ctx) error {
	id := c.Params("id")

	task, err := h.orchestrator.Generate(c.Context(), id)
	if err != nil {
		if errors.Is(err, generation.ErrAlreadyRunning) {
			if existing, ok := h.tasks.ActiveForNode(id); ok {
				return c.Status(fiber.StatusAccepted).JSON(existing)
			}
		}

		return handleGenerationError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(task)
}

func (h *APIHandlers) CancelGeneration(c fiber.Ctx) error {
	task, err := h.orchestrator.Cancel(c.Context(), c.Params("id"))
	if err != nil {
		return handleGenerationError(c, err)
	}

	return c.JSON(task)
}

func (h *APIHandlers) GetTasks(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"tasks": h.tasks.Tasks()})
}

func (h *APIHandlers) GetNodeTask(c fiber.Ctx) error {
	task, ok := h.tasks.ActiveForNode(c.Params("id"))
	if !ok {
		return notFound(c, "no active task for node")
	}

	return c.JSON(task)
}

// GetAssets returns the generation history, newest first, optionally filtered
// by node.
func (h *APIHandlers) GetAssets(c fiber.Ctx) error {
	history, err := h.history.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	if nodeID := c.Query("node_id"); nodeID != "" {
		filtered := make([]models.Asset, 0, len(history))

		for _, asset := range history {
			if asset.NodeID == nodeID {
				filtered = append(filtered, asset)
			}
		}

		history = filtered
	}

	return c.JSON(fiber.Map{"assets": history})
}

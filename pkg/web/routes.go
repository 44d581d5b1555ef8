package web

import "github.com/gofiber/fiber/v3"

// RegisterRoutes wires every handler onto the app. The route table lives here
// so the server binary and the handler tests drive the same surface.
func RegisterRoutes(app *fiber.App, handlers *APIHandlers) {
	app.Get("/health", handlers.HealthCheck)
	app.Get("/canvas", handlers.GetCanvas)
	app.Get("/node-types", handlers.GetNodeTypes)

	nodes := app.Group("/nodes")
	nodes.Post("/", handlers.CreateNode)
	// Literal route first so it never shadows as an id.
	nodes.Post("/batch-delete", handlers.BatchDeleteNodes)
	nodes.Get("/:id", handlers.GetNode)
	nodes.Patch("/:id", handlers.UpdateNode)
	nodes.Delete("/:id", handlers.DeleteNode)
	nodes.Patch("/:id/inputs", handlers.ReorderInputs)
	nodes.Post("/:id/generate", handlers.Generate)
	nodes.Post("/:id/cancel", handlers.CancelGeneration)
	nodes.Get("/:id/task", handlers.GetNodeTask)

	app.Post("/connections", handlers.CreateConnection)
	app.Delete("/connections/:from/:to", handlers.DeleteConnection)

	groups := app.Group("/groups")
	groups.Post("/", handlers.CreateGroup)
	groups.Patch("/:id", handlers.UpdateGroup)
	groups.Delete("/:id", handlers.DeleteGroup)

	app.Get("/tasks", handlers.GetTasks)
	app.Get("/assets", handlers.GetAssets)

	pointer := app.Group("/interaction")
	pointer.Get("/", handlers.GetInteraction)
	pointer.Post("/pointer-down", handlers.PointerDown)
	pointer.Post("/pointer-move", handlers.PointerMove)
	pointer.Post("/pointer-up", handlers.PointerUp)
	pointer.Post("/cancel", handlers.CancelInteraction)
	pointer.Post("/title", handlers.CommitTitle)
	pointer.Patch("/selection", handlers.RetitleSelection)
	pointer.Delete("/selection", handlers.DeleteSelection)

	w := app.Group("/workflows")
	w.Get("/", handlers.ListWorkflows)
	w.Post("/", handlers.SaveWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.RenameWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/load", handlers.LoadWorkflow)
	w.Post("/:id/save", handlers.OverwriteWorkflow)
}

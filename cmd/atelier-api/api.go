// Package main provides the Atelier API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/atelierhq/atelier/pkg/assets"
	"github.com/atelierhq/atelier/pkg/canvas"
	"github.com/atelierhq/atelier/pkg/cmd"
	"github.com/atelierhq/atelier/pkg/eventbus"
	"github.com/atelierhq/atelier/pkg/generation"
	"github.com/atelierhq/atelier/pkg/interaction"
	"github.com/atelierhq/atelier/pkg/persistence"
	"github.com/atelierhq/atelier/pkg/protocol"
	"github.com/atelierhq/atelier/pkg/tasks"
	"github.com/atelierhq/atelier/pkg/web"
	"github.com/atelierhq/atelier/pkg/workflows"
)

type API struct {
	logger       *slog.Logger
	store        persistence.Persistence
	eventBus     eventbus.EventBus
	orchestrator *generation.Orchestrator
	autosaver    *workflows.Autosaver
	handlers     *web.APIHandlers
}

// NewAPI assembles the canvas engine behind the REST surface: node type
// registry, live canvas, task registry and poller, generation orchestrator,
// workflow store, autosaver and the interaction machine.
func NewAPI(
	logger *slog.Logger,
	store persistence.Persistence,
	eventBus eventbus.EventBus,
	service protocol.GenerationService,
	autosaveSpec string,
) (*API, error) {
	types := cmd.NewRegistry(logger)
	cv := canvas.NewCanvas(types)
	history := assets.NewHistory(store, logger, assets.DefaultHistoryLimit)

	taskRegistry := tasks.NewRegistry(logger)
	poller := tasks.NewPoller(taskRegistry, logger, tasks.DefaultPollInterval, tasks.DefaultMaxAttempts)
	orchestrator := generation.NewOrchestrator(cv, types, taskRegistry, poller, service, eventBus, history, logger)

	workflowService := workflows.NewService(cv, store, orchestrator, nil, eventBus, logger)

	autosaver, err := workflows.NewAutosaver(workflowService, autosaveSpec, logger)
	if err != nil {
		return nil, err
	}

	machine := interaction.NewMachine(cv, types, eventBus, logger)

	handlers := web.NewAPIHandlers(
		cv,
		types,
		orchestrator,
		taskRegistry,
		workflowService,
		history,
		machine,
		validator.New(validator.WithRequiredStructEnabled()),
	)

	return &API{
		logger:       logger,
		store:        store,
		eventBus:     eventBus,
		orchestrator: orchestrator,
		autosaver:    autosaver,
		handlers:     handlers,
	}, nil
}

func (a *API) App() *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Atelier API")
	})

	web.RegisterRoutes(app, a.handlers)

	return app
}

func (a *API) Start(ctx context.Context, port int) error {
	err := a.autosaver.Start(ctx)
	if err != nil {
		return err
	}

	return a.App().Listen(":" + strconv.Itoa(port))
}

// Shutdown stops the autosave schedule and every task polling loop.
func (a *API) Shutdown() {
	a.autosaver.Stop()
	a.orchestrator.Close()
}

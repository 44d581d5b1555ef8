package workflows

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// AutosaveID is the reserved workflow slot the autosaver overwrites on each
// tick. It is listed and loadable like any other workflow.
const AutosaveID = "autosave"

const autosaveTitle = "Autosave"

// Autosaver periodically captures the canvas into the reserved autosave
// slot. An empty schedule disables it.
type Autosaver struct {
	service *Service
	logger  *slog.Logger
	spec    string
	cron    *cron.Cron
}

// NewAutosaver validates the cron schedule up front. An empty spec produces
// a disabled autosaver whose Start is a no-op.
func NewAutosaver(service *Service, spec string, logger *slog.Logger) (*Autosaver, error) {
	if spec != "" {
		_, err := cron.ParseStandard(spec)
		if err != nil {
			return nil, fmt.Errorf("invalid autosave schedule '%s': %w", spec, err)
		}
	}

	return &Autosaver{
		service: service,
		logger:  logger,
		spec:    spec,
	}, nil
}

// Start begins the autosave schedule.
func (a *Autosaver) Start(ctx context.Context) error {
	if a.spec == "" {
		a.logger.Info("autosave disabled")

		return nil
	}

	a.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := a.cron.AddFunc(a.spec, func() {
		a.run(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule autosave: %w", err)
	}

	a.cron.Start()
	a.logger.Info("autosave started", "schedule", a.spec)

	return nil
}

// Stop halts the schedule. A tick already running finishes.
func (a *Autosaver) Stop() {
	if a.cron != nil {
		a.cron.Stop()
	}
}

// run captures one autosave. An empty canvas is skipped so the slot never
// clobbers real work with nothing. Autosaves do not publish workflow events
// and do not change which workflow counts as loaded.
func (a *Autosaver) run(ctx context.Context) {
	if a.service.canvas.NodeCount() == 0 {
		return
	}

	createdAt := time.Now().UTC()
	if existing, err := a.service.Get(ctx, AutosaveID); err == nil {
		createdAt = existing.CreatedAt
	}

	workflow, err := a.service.capture(ctx, AutosaveID, autosaveTitle, createdAt)
	if err != nil {
		a.logger.ErrorContext(ctx, "autosave failed", "error", err.Error())

		return
	}

	a.logger.DebugContext(ctx, "autosaved canvas", "nodes", len(workflow.Nodes))
}

package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultPollInterval is the delay between status checks for one task.
	DefaultPollInterval = 5 * time.Second
	// DefaultMaxAttempts bounds how many polls a task gets before it is
	// declared expired (120 polls at 5s is roughly ten minutes).
	DefaultMaxAttempts = 120
)

// PollFunc performs one status check against the generation service and
// applies the outcome. It reports whether the task reached a terminal state.
type PollFunc func(ctx context.Context) (bool, error)

// ExpireFunc is invoked once when a task exhausts its attempt budget while
// still non-terminal.
type ExpireFunc func(ctx context.Context, attempts int)

// Poller runs one polling loop per asynchronous task. Loops stop on
// terminal results, on cancellation, when the task leaves the registry, or
// when the attempt budget runs out.
type Poller struct {
	registry    *Registry
	logger      *slog.Logger
	interval    time.Duration
	maxAttempts int

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewPoller creates a poller bound to the registry. Zero interval or
// maxAttempts select the defaults.
func NewPoller(registry *Registry, logger *slog.Logger, interval time.Duration, maxAttempts int) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Poller{
		registry:    registry,
		logger:      logger,
		interval:    interval,
		maxAttempts: maxAttempts,
		cancels:     make(map[string]context.CancelFunc),
	}
}

// Start launches the polling loop for the task. Starting an already-polled
// task is a no-op.
func (p *Poller) Start(ctx context.Context, taskID string, poll PollFunc, expire ExpireFunc) {
	loopCtx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	if _, ok := p.cancels[taskID]; ok {
		p.mu.Unlock()
		cancel()

		return
	}

	p.cancels[taskID] = cancel
	p.mu.Unlock()

	p.wg.Add(1)

	go p.loop(loopCtx, taskID, poll, expire)
}

func (p *Poller) loop(ctx context.Context, taskID string, poll PollFunc, expire ExpireFunc) {
	defer p.wg.Done()
	defer p.Stop(taskID)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			attempts, ok := p.registry.IncrementAttempts(taskID)
			if !ok {
				// Cancelled or cleared; nothing left to poll.
				return
			}

			done, err := poll(ctx)
			if err != nil {
				p.logger.Warn("poll attempt failed",
					"task_id", taskID,
					"attempt", attempts,
					"error", err.Error())
			}

			if done {
				return
			}

			if attempts >= p.maxAttempts {
				expire(ctx, attempts)

				return
			}
		}
	}
}

// Stop cancels the polling loop for the task, if one is running.
func (p *Poller) Stop(taskID string) {
	p.mu.Lock()
	cancel, ok := p.cancels[taskID]

	if ok {
		delete(p.cancels, taskID)
	}
	p.mu.Unlock()

	if ok {
		cancel()
	}
}

// StopAll cancels every polling loop and waits for them to exit.
func (p *Poller) StopAll() {
	p.mu.Lock()
	cancels := p.cancels
	p.cancels = make(map[string]context.CancelFunc)
	p.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}

	p.wg.Wait()
}

// Polling reports whether a loop is currently running for the task.
func (p *Poller) Polling(taskID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.cancels[taskID]

	return ok
}

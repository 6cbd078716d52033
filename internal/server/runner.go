// Package server runs fetcharr's background work.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrAlreadyRunning is returned when another instance holds the lock file.
var ErrAlreadyRunning = errors.New("another fetcharr instance is already running")

// Task is periodic work. A failing run is logged and retried on the next tick.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Config for the runner.
type Config struct {
	LockFile string // empty disables the single-instance lock
}

// Runner runs tasks on their intervals until its context is canceled.
type Runner struct {
	config Config
	tasks  []Task
	logger *slog.Logger
}

// NewRunner creates a new runner.
func NewRunner(cfg Config, logger *slog.Logger, tasks ...Task) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		config: cfg,
		tasks:  tasks,
		logger: logger.With("component", "runner"),
	}
}

// Run starts every task and blocks until the context is canceled. Each task
// runs once immediately, then on its interval.
func (r *Runner) Run(ctx context.Context) error {
	if r.config.LockFile != "" {
		lock := flock.New(r.config.LockFile)
		ok, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, r.config.LockFile)
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				r.logger.Warn("failed to release lock", "lock", r.config.LockFile, "error", err)
			}
		}()
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, task := range r.tasks {
		if task.Interval <= 0 {
			return fmt.Errorf("task %s: interval must be positive", task.Name)
		}
		g.Go(func() error {
			r.loop(ctx, task)
			return nil
		})
	}
	r.logger.Info("runner started", "tasks", len(r.tasks))

	err := g.Wait()
	r.logger.Info("runner stopped")
	return err
}

func (r *Runner) loop(ctx context.Context, task Task) {
	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		r.runOnce(ctx, task)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, task Task) {
	log := r.logger.With("task", task.Name, "run_id", uuid.NewString())
	start := time.Now()
	if err := task.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error("task failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return
	}
	log.Debug("task complete", "duration_ms", time.Since(start).Milliseconds())
}

// Package supervisor starts, monitors, and restarts the fetch, push, and
// cleanup workers plus the ops HTTP server for one edge node, per
// spec.md §4.G. The context+WaitGroup+os/signal graceful-shutdown shape is
// the idiomatic pattern the rest of the corpus uses for long-running
// daemons (no single teacher file owns an equivalent supervisor — the
// teacher's own "scheduler" is a single cron loop, not a multi-worker
// restart supervisor).
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// livenessPollInterval is how often the supervisor checks whether each
// managed task's goroutine is still running (spec.md §4.G).
const livenessPollInterval = 30 * time.Second

// shutdownGrace is the per-worker budget for a clean exit before the
// supervisor gives up waiting on it (spec.md §5).
const shutdownGrace = 10 * time.Second

// Task is anything the supervisor can run and restart: the three workers
// and the ops server all satisfy this with their Run(ctx) method.
type Task interface {
	Run(ctx context.Context) error
}

// managedTask pairs a Task with bookkeeping the supervisor needs to
// restart it in place.
type managedTask struct {
	name string
	task Task
	done chan struct{}
}

// Supervisor runs a fixed set of named tasks, restarting any that exit
// unexpectedly, and coordinates their graceful shutdown.
type Supervisor struct {
	tasks []*managedTask
	log   zerolog.Logger
}

// New builds a Supervisor over the given name->Task set. Tasks are kept in
// map iteration order, which is not defined; all tasks start concurrently.
func New(logger zerolog.Logger, named map[string]Task) *Supervisor {
	s := &Supervisor{log: logger}
	for name, task := range named {
		s.tasks = append(s.tasks, &managedTask{name: name, task: task})
	}
	return s
}

// Run starts every task and blocks until ctx is cancelled, restarting any
// task whose Run returns (other than from cancellation) and polling
// liveness every 30s. On cancellation it waits up to shutdownGrace per
// worker for an orderly exit.
func (s *Supervisor) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, mt := range s.tasks {
		mt.done = make(chan struct{})
		wg.Add(1)
		go s.runAndRestart(ctx, mt, &wg)
	}

	ticker := time.NewTicker(livenessPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.waitWithGrace(&wg)
			return
		case <-ticker.C:
			s.logLiveness()
		}
	}
}

func (s *Supervisor) runAndRestart(ctx context.Context, mt *managedTask, wg *sync.WaitGroup) {
	defer wg.Done()
	defer close(mt.done)

	for {
		if ctx.Err() != nil {
			return
		}

		err := mt.task.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.log.Error().Err(err).Str("task", mt.name).Msg("task exited unexpectedly, restarting")
		} else {
			s.log.Warn().Str("task", mt.name).Msg("task returned without error outside shutdown, restarting")
		}
	}
}

func (s *Supervisor) waitWithGrace(wg *sync.WaitGroup) {
	doneCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneCh)
	}()

	grace := shutdownGrace * time.Duration(len(s.tasks))
	if grace <= 0 {
		grace = shutdownGrace
	}
	select {
	case <-doneCh:
		s.log.Info().Msg("all tasks exited cleanly")
	case <-time.After(grace):
		s.log.Warn().Msg("shutdown grace period exceeded, proceeding without waiting further")
	}
}

func (s *Supervisor) logLiveness() {
	for _, mt := range s.tasks {
		select {
		case <-mt.done:
			s.log.Warn().Str("task", mt.name).Msg("liveness poll: task goroutine has exited")
		default:
		}
	}
}

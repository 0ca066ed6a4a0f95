package worker

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/edgegate/ticketgate/internal/config"
	"github.com/edgegate/ticketgate/internal/metrics"
	"github.com/edgegate/ticketgate/internal/model"
	"github.com/edgegate/ticketgate/internal/store"
)

// topOfHourTolerance is how far from :00 the cleanup worker still considers
// itself "at the top of the hour" (spec.md §4.F).
const topOfHourTolerance = 5 * time.Minute

// afterFireSleep is long enough that the worker cannot fire twice within
// the same hour window after a successful trigger: the window spans
// topOfHourTolerance on each side of :00, so the sleep covers both sides.
const afterFireSleep = 2 * topOfHourTolerance

// pollInterval is how often the worker checks the clock while waiting for
// the next top-of-hour window.
const pollInterval = 30 * time.Second

// CleanupWorker purges stale rows from every co-located per-gate store once
// an hour, after a file-copy backup (spec.md §4.F).
type CleanupWorker struct {
	stores    map[model.GateID]*store.Store
	backupDir string
	metrics   *metrics.Registry
	log       zerolog.Logger
	now       func() time.Time
}

// NewCleanupWorker builds a CleanupWorker over every store in stores.
func NewCleanupWorker(stores map[model.GateID]*store.Store, cfg config.Config, reg *metrics.Registry, logger zerolog.Logger) *CleanupWorker {
	return &CleanupWorker{
		stores:    stores,
		backupDir: cfg.BackupDir,
		metrics:   reg,
		log:       logger,
		now:       time.Now,
	}
}

// Run waits for each top-of-hour window and runs one purge pass per
// window, until ctx is cancelled.
func (w *CleanupWorker) Run(ctx context.Context) error {
	for {
		if !w.waitForTopOfHour(ctx) {
			return ctx.Err()
		}
		w.runOnce(ctx)
		if !sleep(ctx, afterFireSleep) {
			return ctx.Err()
		}
	}
}

func (w *CleanupWorker) waitForTopOfHour(ctx context.Context) bool {
	for {
		if ctx.Err() != nil {
			return false
		}
		if atTopOfHour(w.now(), topOfHourTolerance) {
			return true
		}
		if !sleep(ctx, pollInterval) {
			return false
		}
	}
}

func atTopOfHour(t time.Time, tolerance time.Duration) bool {
	minute := t.Minute()
	sinceHour := time.Duration(minute)*time.Minute + time.Duration(t.Second())*time.Second
	untilHour := time.Hour - sinceHour
	return sinceHour <= tolerance || untilHour <= tolerance
}

func (w *CleanupWorker) runOnce(ctx context.Context) {
	yesterday := w.now().AddDate(0, 0, -1).Format("2006-01-02")

	for gate, st := range w.stores {
		backupPath, err := backupFile(st.Path(), w.backupDir, w.now())
		if err != nil {
			w.log.Error().Err(err).Str("gate", string(gate)).Msg("cleanup: backup failed, skipping this store")
			w.metrics.CleanupRuns.WithLabelValues("backup_error").Inc()
			continue
		}

		result, err := st.PurgeBefore(ctx, yesterday)
		if err != nil {
			w.log.Error().Err(err).Str("gate", string(gate)).Str("backup", backupPath).Msg("cleanup: purge failed")
			w.metrics.CleanupRuns.WithLabelValues("purge_error").Inc()
			continue
		}

		log := w.log.With().
			Str("gate", string(gate)).
			Str("backup", backupPath).
			Int64("tickets_deleted", result.TicketsDeleted).
			Int64("history_deleted", result.HistoryDeleted).
			Logger()
		if result.ReclaimSkipped {
			log.Warn().Err(result.ReclaimError).Msg("cleanup: storage reclaim skipped, store busy")
		} else {
			log.Info().Msg("cleanup: purge complete")
		}

		w.metrics.CleanupRowsDeleted.Add(float64(result.TicketsDeleted + result.HistoryDeleted))
		w.metrics.CleanupRuns.WithLabelValues("success").Inc()
	}
}

// backupFile copies src to a timestamped path under dir and returns that
// path. Runs entirely outside any database transaction (spec.md §5).
func backupFile(src, dir string, at time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("mkdir backup dir: %w", err)
	}

	name := fmt.Sprintf("%s.%s.bak", filepath.Base(src), at.Format("20060102T150405"))
	dst := filepath.Join(dir, name)

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create backup: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return "", fmt.Errorf("copy backup: %w", err)
	}
	return dst, nil
}

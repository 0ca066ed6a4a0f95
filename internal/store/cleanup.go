package store

import (
	"context"
	"fmt"
	"strings"
)

// PurgeResult reports what PurgeBefore did.
type PurgeResult struct {
	TicketsDeleted int64
	HistoryDeleted int64
	// ReclaimSkipped is true when the post-purge storage reclamation (VACUUM)
	// was skipped because the database was busy, per spec.md §4.B.8.
	ReclaimSkipped bool
	ReclaimError   error
}

// PurgeBefore deletes tickets with booking_date <= date and scan_history
// rows with scan_time on or before date, per spec.md §4.B.8. Deletion runs
// inside a transaction; the subsequent VACUUM runs outside any transaction
// and tolerates a "database is locked/busy" error by skipping reclamation
// rather than failing the whole purge.
func (s *Store) PurgeBefore(ctx context.Context, date string) (PurgeResult, error) {
	var result PurgeResult

	txCtx, cancel := s.ctx(ctx)
	defer cancel()

	tx, err := s.db.BeginTxx(txCtx, nil)
	if err != nil {
		return result, fmt.Errorf("purge_before %s: begin tx: %w", date, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(txCtx, `DELETE FROM tickets WHERE booking_date <= ?`, date)
	if err != nil {
		return result, fmt.Errorf("purge_before %s: delete tickets: %w", date, err)
	}
	result.TicketsDeleted, _ = res.RowsAffected()

	res, err = tx.ExecContext(txCtx, `DELETE FROM scan_history WHERE date(scan_time) <= ?`, date)
	if err != nil {
		return result, fmt.Errorf("purge_before %s: delete scan_history: %w", date, err)
	}
	result.HistoryDeleted, _ = res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("purge_before %s: commit: %w", date, err)
	}

	// Reset the scan_history auto-increment sequence now that old rows are
	// gone, matching spec.md §4.F step 2. Best-effort: sqlite_sequence may
	// not exist if no row has ever been inserted.
	_, _ = s.db.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name = 'scan_history'`)

	reclaimCtx, reclaimCancel := s.ctx(ctx)
	defer reclaimCancel()
	if _, err := s.db.ExecContext(reclaimCtx, `VACUUM`); err != nil {
		if isBusy(err) {
			result.ReclaimSkipped = true
			result.ReclaimError = err
		} else {
			return result, fmt.Errorf("purge_before %s: vacuum: %w", date, err)
		}
	}

	return result, nil
}

func isBusy(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "busy") || strings.Contains(msg, "locked")
}

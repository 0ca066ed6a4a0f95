package store

import (
	"context"
	"time"
)

// LogScan appends one scan_history row. Per spec.md §4.B.7, this never
// fails the caller: the admission decision has already been made (and, on
// success, already committed), so a history write failure is logged and
// swallowed rather than returned.
func (s *Store) LogScan(ctx context.Context, ref, result, reason string) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scan_history (ticket_ref, scan_time, result, reason)
		VALUES (?, ?, ?, ?)`, ref, time.Now().UTC(), result, reason)
	if err != nil {
		s.log.Error().Err(err).Str("ref", ref).Str("result", result).Msg("failed to write scan_history row")
	}
}

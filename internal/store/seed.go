package store

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// SeedDummyTickets inserts count synthetic, unscanned tickets dated
// bookingDate (YYYY-MM-DD) with a random pax count per gate (1-6, mirroring
// the original add_test_tickets.py load-test generator) for local load
// testing. Every reference carries suffix so services.skip_dummy_sync can
// exclude them from the push cycle; it is the caller's responsibility to
// only call this when services.add_dummy_tickets is set.
func (s *Store) SeedDummyTickets(ctx context.Context, count int, bookingDate, suffix string) error {
	if count <= 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	dateCompact := strings.ReplaceAll(bookingDate, "-", "")

	ctx, cancel := s.ctx(ctx)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed dummy tickets: begin tx: %w", err)
	}
	defer tx.Rollback()

	const sql = `
		INSERT INTO tickets (reference_no, booking_date, pax_a, used_a, pax_b, used_b, pax_c, used_c, is_synced, created_at, last_scan)
		VALUES (?, ?, ?, 0, ?, 0, ?, 0, 0, ?, ?)
		ON CONFLICT(reference_no) DO NOTHING`

	now := time.Now().UTC()
	for i := 0; i < count; i++ {
		ref := fmt.Sprintf("%s-%06d%s", dateCompact, rng.Intn(1_000_000), suffix)
		if _, err := tx.ExecContext(ctx, sql,
			ref, bookingDate,
			1+rng.Intn(6), 1+rng.Intn(6), 1+rng.Intn(6),
			now, now,
		); err != nil {
			return fmt.Errorf("seed dummy tickets: insert %s: %w", ref, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed dummy tickets: commit: %w", err)
	}

	s.log.Info().Int("count", count).Str("booking_date", bookingDate).Msg("seeded dummy tickets")
	return nil
}

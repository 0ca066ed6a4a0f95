package store

import (
	"context"
	"fmt"
	"time"

	"github.com/edgegate/ticketgate/internal/model"
)

// UpsertFromServer inserts or merges a server-seeded record, per spec.md
// §4.B.2. On insert, is_synced is set to 0. On update, used[G] is raised to
// the max of the local and server values (never lowered) and pax[G] is
// taken from the server (capacity is server-authoritative); is_synced is
// left untouched so a pending local admission is never silently cleared.
//
// The statement is a single INSERT ... ON CONFLICT DO UPDATE, making the
// operation idempotent: applying the same server record twice leaves the
// store identical to applying it once (testable property, spec.md §8).
func (s *Store) UpsertFromServer(ctx context.Context, ref, bookingDate string, counts map[model.GateID]model.GateCounts) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	now := time.Now().UTC()
	a := counts[model.GateA]
	b := counts[model.GateB]
	c := counts[model.GateC]

	const sql = `
		INSERT INTO tickets (reference_no, booking_date, pax_a, used_a, pax_b, used_b, pax_c, used_c, is_synced, created_at, last_scan)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(reference_no) DO UPDATE SET
			booking_date = excluded.booking_date,
			pax_a = excluded.pax_a, used_a = MAX(tickets.used_a, excluded.used_a),
			pax_b = excluded.pax_b, used_b = MAX(tickets.used_b, excluded.used_b),
			pax_c = excluded.pax_c, used_c = MAX(tickets.used_c, excluded.used_c)`

	_, err := s.db.ExecContext(ctx, sql,
		ref, bookingDate,
		a.Pax, a.Used, b.Pax, b.Used, c.Pax, c.Used,
		now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert_from_server %s: %w", ref, err)
	}
	return nil
}

// CreateFromParsed performs the "offline birth" insert described in spec.md
// §3/§9: a ticket reference unknown to this store is created directly from
// its MAC-verified encoded payload, with used[G]=0 for every gate. It is a
// no-op if the reference already exists (the caller is expected to have
// already checked, but the insert is defensively idempotent via DO NOTHING).
func (s *Store) CreateFromParsed(ctx context.Context, ref, bookingDate string, pax map[model.GateID]int) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	now := time.Now().UTC()

	const sql = `
		INSERT INTO tickets (reference_no, booking_date, pax_a, used_a, pax_b, used_b, pax_c, used_c, is_synced, created_at, last_scan)
		VALUES (?, ?, ?, 0, ?, 0, ?, 0, 0, ?, ?)
		ON CONFLICT(reference_no) DO NOTHING`

	_, err := s.db.ExecContext(ctx, sql,
		ref, bookingDate,
		pax[model.GateA], pax[model.GateB], pax[model.GateC],
		now, now,
	)
	if err != nil {
		return fmt.Errorf("create_from_parsed %s: %w", ref, err)
	}
	return nil
}

// Get returns the ticket row for ref, or (nil, nil) if it does not exist.
func (s *Store) Get(ctx context.Context, ref string) (*model.Ticket, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	var t model.Ticket
	err := s.db.GetContext(ctx, &t, `SELECT * FROM tickets WHERE reference_no = ?`, ref)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ticket %s: %w", ref, err)
	}
	return &t, nil
}

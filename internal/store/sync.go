package store

import (
	"context"
	"fmt"

	"github.com/edgegate/ticketgate/internal/model"
)

// SnapshotForSync returns ref's current state in the wire shape the push
// worker POSTs to the central service (spec.md §4.B.4).
func (s *Store) SnapshotForSync(ctx context.Context, ref string) (*model.SyncPayload, error) {
	t, err := s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, nil
	}
	return &model.SyncPayload{
		BookingDate: t.BookingDate,
		ReferenceNo: t.ReferenceNo,
		Attractions: model.AttractionsFromGateCounts(t.AsGateMap()),
	}, nil
}

// ListUnsynced returns every reference_no with is_synced=0, ordered oldest
// pending first (last_scan ASC, created_at ASC), per spec.md §4.B.5.
func (s *Store) ListUnsynced(ctx context.Context) ([]string, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	var refs []string
	err := s.db.SelectContext(ctx, &refs, `
		SELECT reference_no FROM tickets
		WHERE is_synced = 0
		ORDER BY last_scan ASC, created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list_unsynced: %w", err)
	}
	return refs, nil
}

// MarkSynced sets is_synced=1 for ref and reports whether a row was
// actually updated. It is idempotent: marking an already-synced ticket
// synced again is a no-op that still reports true if the row exists.
func (s *Store) MarkSynced(ctx context.Context, ref string) (bool, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `UPDATE tickets SET is_synced = 1 WHERE reference_no = ?`, ref)
	if err != nil {
		return false, fmt.Errorf("mark_synced %s: %w", ref, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark_synced %s: rows affected: %w", ref, err)
	}
	if n > 0 {
		return true, nil
	}

	// The UPDATE matches on reference_no alone, so a zero count normally
	// means the row does not exist; confirm with a read so the result
	// reports whether the row exists, already synced or not.
	t, err := s.Get(ctx, ref)
	if err != nil {
		return false, err
	}
	return t != nil, nil
}

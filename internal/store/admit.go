package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/edgegate/ticketgate/internal/model"
)

// TryAdmit atomically attempts to admit one passenger for ref at this
// store's gate, per spec.md §4.B.1. The increment is a single conditional
// UPDATE so that two concurrent calls against the same ticket cannot both
// succeed past capacity (testable property 4); a zero-row update is treated
// as a lost race, equivalent to Exhausted.
func (s *Store) TryAdmit(ctx context.Context, ref string) (model.AdmitResult, error) {
	paxCol, usedCol, ok := gateColumns(s.gate)
	if !ok {
		return model.AdmitResult{}, fmt.Errorf("store configured with unknown gate %q", s.gate)
	}

	ctx, cancel := s.ctx(ctx)
	defer cancel()

	now := time.Now().UTC()

	updateSQL := fmt.Sprintf(`
		UPDATE tickets
		SET %[1]s = %[1]s + 1, is_synced = 0, last_scan = ?
		WHERE reference_no = ? AND %[2]s > 0 AND %[1]s < %[2]s
		RETURNING %[2]s, %[1]s`, usedCol, paxCol)

	var pax, usedAfter int
	err := s.db.QueryRowxContext(ctx, updateSQL, now, ref).Scan(&pax, &usedAfter)
	if err == nil {
		return model.AdmitResult{Status: model.Admitted, Pax: pax, UsedAfter: usedAfter}, nil
	}
	if err != sql.ErrNoRows {
		return model.AdmitResult{}, fmt.Errorf("try_admit update for %s: %w", ref, err)
	}

	// The conditional UPDATE matched nothing: either the row doesn't exist,
	// this gate has zero capacity on it, or it is already exhausted (or we
	// lost a race to a concurrent admission). Disambiguate with a read.
	selectSQL := fmt.Sprintf(`SELECT %[1]s, %[2]s FROM tickets WHERE reference_no = ?`, paxCol, usedCol)
	var currentPax, currentUsed int
	err = s.db.QueryRowxContext(ctx, selectSQL, ref).Scan(&currentPax, &currentUsed)
	if err == sql.ErrNoRows {
		return model.AdmitResult{Status: model.NotFound}, nil
	}
	if err != nil {
		return model.AdmitResult{}, fmt.Errorf("try_admit lookup for %s: %w", ref, err)
	}
	if currentPax == 0 {
		return model.AdmitResult{Status: model.NotValidHere, Pax: currentPax, UsedAfter: currentUsed}, nil
	}
	return model.AdmitResult{Status: model.Exhausted, Pax: currentPax, UsedAfter: currentUsed}, nil
}

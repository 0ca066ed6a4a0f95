package store

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/edgegate/ticketgate/internal/model"
)

func newMockStore(t *testing.T, gate model.GateID) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := &Store{
		db:      sqlx.NewDb(db, "sqlite3"),
		gate:    gate,
		dbPath:  "mock.db",
		timeout: 5 * time.Second,
		log:     zerolog.Nop(),
	}
	return s, mock
}

func TestTryAdmitAdmitted(t *testing.T) {
	s, mock := newMockStore(t, model.GateA)

	rows := sqlmock.NewRows([]string{"pax_a", "used_a"}).AddRow(7, 3)
	mock.ExpectQuery(`UPDATE tickets`).WillReturnRows(rows)

	res, err := s.TryAdmit(context.Background(), "20251015-000003")
	require.NoError(t, err)
	require.Equal(t, model.Admitted, res.Status)
	require.Equal(t, 7, res.Pax)
	require.Equal(t, 3, res.UsedAfter)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTryAdmitExhaustedLostRace(t *testing.T) {
	s, mock := newMockStore(t, model.GateA)

	mock.ExpectQuery(`UPDATE tickets`).WillReturnRows(sqlmock.NewRows([]string{"pax_a", "used_a"}))
	mock.ExpectQuery(`SELECT pax_a, used_a FROM tickets`).
		WillReturnRows(sqlmock.NewRows([]string{"pax_a", "used_a"}).AddRow(7, 7))

	res, err := s.TryAdmit(context.Background(), "20251015-000003")
	require.NoError(t, err)
	require.Equal(t, model.Exhausted, res.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTryAdmitNotValidHere(t *testing.T) {
	s, mock := newMockStore(t, model.GateB)

	mock.ExpectQuery(`UPDATE tickets`).WillReturnRows(sqlmock.NewRows([]string{"pax_b", "used_b"}))
	mock.ExpectQuery(`SELECT pax_b, used_b FROM tickets`).
		WillReturnRows(sqlmock.NewRows([]string{"pax_b", "used_b"}).AddRow(0, 0))

	res, err := s.TryAdmit(context.Background(), "20251015-000003")
	require.NoError(t, err)
	require.Equal(t, model.NotValidHere, res.Status)
}

func TestTryAdmitNotFound(t *testing.T) {
	s, mock := newMockStore(t, model.GateA)

	mock.ExpectQuery(`UPDATE tickets`).WillReturnRows(sqlmock.NewRows([]string{"pax_a", "used_a"}))
	mock.ExpectQuery(`SELECT pax_a, used_a FROM tickets`).
		WillReturnRows(sqlmock.NewRows([]string{"pax_a", "used_a"}))

	res, err := s.TryAdmit(context.Background(), "unknown-ref")
	require.NoError(t, err)
	require.Equal(t, model.NotFound, res.Status)
}

func TestMarkSyncedUpdatesExistingRow(t *testing.T) {
	s, mock := newMockStore(t, model.GateA)

	mock.ExpectExec(`UPDATE tickets SET is_synced = 1`).WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := s.MarkSynced(context.Background(), "ref-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSyncedIdempotentOnAlreadySynced(t *testing.T) {
	s, mock := newMockStore(t, model.GateA)

	// The update reports no affected row, but the follow-up read finds the ref.
	mock.ExpectExec(`UPDATE tickets SET is_synced = 1`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM tickets`).
		WillReturnRows(sqlmock.NewRows([]string{
			"reference_no", "booking_date", "pax_a", "used_a", "pax_b", "used_b",
			"pax_c", "used_c", "is_synced", "created_at", "last_scan",
		}).AddRow("ref-1", "2025-10-15", 7, 7, 0, 0, 0, 0, 1, time.Now(), time.Now()))

	ok, err := s.MarkSynced(context.Background(), "ref-1")
	require.NoError(t, err)
	require.True(t, ok, "marking an already-synced ticket again should still report success")
}

func TestUpsertFromServerIsMonotoneMerge(t *testing.T) {
	s, mock := newMockStore(t, model.GateA)

	mock.ExpectExec(`(?s)INSERT INTO tickets.*used_a = MAX\(tickets\.used_a, excluded\.used_a\)`).WillReturnResult(sqlmock.NewResult(0, 1))

	counts := map[model.GateID]model.GateCounts{
		model.GateA: {Pax: 7, Used: 2},
		model.GateB: {Pax: 8, Used: 0},
		model.GateC: {Pax: 9, Used: 0},
	}
	err := s.UpsertFromServer(context.Background(), "ref-1", "2025-10-15", counts)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

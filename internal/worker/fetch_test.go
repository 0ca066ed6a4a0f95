package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/edgegate/ticketgate/internal/config"
	"github.com/edgegate/ticketgate/internal/httpclient"
	"github.com/edgegate/ticketgate/internal/metrics"
	"github.com/edgegate/ticketgate/internal/model"
	"github.com/edgegate/ticketgate/internal/store"

	"github.com/prometheus/client_golang/prometheus"
)

type fixedToday string

func (f fixedToday) TodayDashed() string { return string(f) }

func openTestStore(t *testing.T, gate model.GateID) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), string(gate)+".db")
	s, err := store.Open(store.Config{GateName: gate, DBPath: path, QueryTimeout: 2 * time.Second}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testStores(t *testing.T) map[model.GateID]*store.Store {
	return map[model.GateID]*store.Store{
		model.GateA: openTestStore(t, model.GateA),
		model.GateB: openTestStore(t, model.GateB),
		model.GateC: openTestStore(t, model.GateC),
	}
}

func TestFetchCycleSeedsAllStoresFromTodayRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"referenceNo":"20251015-000001","bookingDate":"2025-10-15","attractions":{"A":{"pax":2,"used":0},"B":{"pax":0,"used":0},"C":{"pax":0,"used":0}}},
			{"ReferenceNo":"20251014-000002","BookingDate":"2025-10-14","Attractions":{"A":{"pax":1,"used":0}}}
		]`))
	}))
	defer srv.Close()

	stores := testStores(t)
	apiCfg := config.Default()
	apiCfg.API.BaseURL = srv.URL
	apiCfg.API.FetchEndpoint = ""

	client := httpclient.New(apiCfg.API, "fetch", zerolog.Nop())
	reg := metrics.New(prometheus.NewRegistry())
	w := NewFetchWorker(client, stores, apiCfg, fixedToday("2025-10-15"), reg, zerolog.Nop())

	ok := w.cycle(context.Background())
	require.True(t, ok)

	for _, st := range stores {
		ticket, err := st.Get(context.Background(), "20251015-000001")
		require.NoError(t, err)
		require.NotNil(t, ticket)
		require.Equal(t, 2, ticket.PaxA)

		stale, err := st.Get(context.Background(), "20251014-000002")
		require.NoError(t, err)
		require.Nil(t, stale, "non-today records must be skipped")
	}
}

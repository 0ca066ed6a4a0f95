package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/edgegate/ticketgate/internal/config"
	"github.com/edgegate/ticketgate/internal/httpclient"
	"github.com/edgegate/ticketgate/internal/metrics"
	"github.com/edgegate/ticketgate/internal/model"
)

func TestPushCycleMergesAcrossStoresAndMarksSynced(t *testing.T) {
	stores := testStores(t)

	require.NoError(t, stores[model.GateA].UpsertFromServer(context.Background(), "20251015-000001", "2025-10-15", map[model.GateID]model.GateCounts{
		model.GateA: {Pax: 2, Used: 1},
		model.GateB: {Pax: 3, Used: 0},
		model.GateC: {Pax: 0, Used: 0},
	}))
	require.NoError(t, stores[model.GateB].UpsertFromServer(context.Background(), "20251015-000001", "2025-10-15", map[model.GateID]model.GateCounts{
		model.GateA: {Pax: 2, Used: 0},
		model.GateB: {Pax: 3, Used: 2},
		model.GateC: {Pax: 0, Used: 0},
	}))

	var received model.SyncPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	apiCfg := config.Default()
	apiCfg.API.BaseURL = srv.URL
	apiCfg.API.SyncEndpoint = ""

	client := httpclient.New(apiCfg.API, "push", zerolog.Nop())
	reg := metrics.New(prometheus.NewRegistry())
	w := NewPushWorker(client, stores, apiCfg, reg, zerolog.Nop())

	processed := w.cycle(context.Background())
	require.Equal(t, 1, processed)
	require.Equal(t, "20251015-000001", received.ReferenceNo)
	require.Equal(t, 1, received.Attractions["A"].Used)
	require.Equal(t, 2, received.Attractions["B"].Used)

	// Only gates A and B hold the ref; gate C's store never saw it.
	for _, g := range []model.GateID{model.GateA, model.GateB} {
		ticket, err := stores[g].Get(context.Background(), "20251015-000001")
		require.NoError(t, err)
		require.True(t, ticket.IsSynced)
	}
}

func TestPushCycleSkipsDummySuffix(t *testing.T) {
	stores := testStores(t)
	require.NoError(t, stores[model.GateA].CreateFromParsed(context.Background(), "20251015-000099-TEST", "2025-10-15", map[model.GateID]int{
		model.GateA: 1,
	}))

	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	apiCfg := config.Default()
	apiCfg.API.BaseURL = srv.URL
	apiCfg.API.SyncEndpoint = ""
	apiCfg.Services.SkipDummySync = true
	apiCfg.Services.DummySuffix = "-TEST"

	client := httpclient.New(apiCfg.API, "push", zerolog.Nop())
	reg := metrics.New(prometheus.NewRegistry())
	w := NewPushWorker(client, stores, apiCfg, reg, zerolog.Nop())

	processed := w.cycle(context.Background())
	require.Equal(t, 0, processed)
	require.False(t, called)
}

package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/edgegate/ticketgate/internal/config"
	"github.com/edgegate/ticketgate/internal/httpclient"
	"github.com/edgegate/ticketgate/internal/metrics"
	"github.com/edgegate/ticketgate/internal/model"
	"github.com/edgegate/ticketgate/internal/store"
)

// shortRetryDelay is the inter-cycle sleep used when a push cycle processed
// at least one ref, giving the server room before the next batch
// (spec.md §4.E step 4).
const shortRetryDelay = 1 * time.Second

// PushWorker reports local admissions back to the central service, merging
// each ref's state across every co-located per-gate store by taking the
// maximum of used[G] and pax[G] (spec.md §4.E).
type PushWorker struct {
	client   *httpclient.Client
	stores   map[model.GateID]*store.Store
	cfg      config.API
	services config.Services
	metrics  *metrics.Registry
	log      zerolog.Logger
}

// NewPushWorker builds a PushWorker over every store in stores.
func NewPushWorker(client *httpclient.Client, stores map[model.GateID]*store.Store, cfg config.Config, reg *metrics.Registry, logger zerolog.Logger) *PushWorker {
	return &PushWorker{
		client:   client,
		stores:   stores,
		cfg:      cfg.API,
		services: cfg.Services,
		metrics:  reg,
		log:      logger,
	}
}

// Run loops push cycles until ctx is cancelled.
func (w *PushWorker) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		processed := w.cycle(ctx)

		sleepFor := w.services.SyncInterval
		if processed > 0 {
			sleepFor = shortRetryDelay
		}
		if !sleep(ctx, sleepFor) {
			return ctx.Err()
		}
	}
}

func (w *PushWorker) cycle(ctx context.Context) int {
	refs := w.collectUnsyncedRefs(ctx)
	processed := 0

	for _, ref := range refs {
		if w.services.SkipDummySync && w.services.DummySuffix != "" && strings.HasSuffix(ref, w.services.DummySuffix) {
			continue
		}

		merged, bookingDate, ok := w.mergeAcrossStores(ctx, ref)
		if !ok {
			continue
		}

		payload := model.SyncPayload{
			BookingDate: bookingDate,
			ReferenceNo: ref,
			Attractions: model.AttractionsFromGateCounts(merged),
		}
		body, err := json.Marshal(payload)
		if err != nil {
			w.log.Error().Err(err).Str("ref", ref).Msg("push cycle: marshal failed")
			continue
		}

		url := w.cfg.BaseURL + w.cfg.SyncEndpoint
		if _, err := w.client.Do(ctx, http.MethodPost, url, body); err != nil {
			w.log.Warn().Err(err).Str("ref", ref).Msg("push cycle: sync request failed, leaving unsynced")
			w.metrics.PushCycles.WithLabelValues("error").Inc()
			continue
		}

		for _, st := range w.stores {
			if _, err := st.MarkSynced(ctx, ref); err != nil {
				w.log.Error().Err(err).Str("ref", ref).Str("gate", string(st.Gate())).Msg("push cycle: mark_synced failed")
			}
		}
		w.metrics.PushRefsSynced.Inc()
		processed++
	}

	if processed > 0 {
		w.metrics.PushCycles.WithLabelValues("success").Inc()
	}
	return processed
}

// collectUnsyncedRefs is the union of unsynced refs across every
// co-located store: any gate that recorded a fresh admission needs its ref
// pushed, even if another gate's copy of the same ref is already synced.
func (w *PushWorker) collectUnsyncedRefs(ctx context.Context) []string {
	seen := make(map[string]bool)
	var refs []string
	for _, st := range w.stores {
		local, err := st.ListUnsynced(ctx)
		if err != nil {
			w.log.Error().Err(err).Str("gate", string(st.Gate())).Msg("push cycle: list_unsynced failed")
			continue
		}
		for _, ref := range local {
			if !seen[ref] {
				seen[ref] = true
				refs = append(refs, ref)
			}
		}
	}
	return refs
}

// mergeAcrossStores builds the cross-store union for ref: used[G] and
// pax[G] are each taken as the maximum observed in any store that holds
// ref (spec.md §4.E step 2).
func (w *PushWorker) mergeAcrossStores(ctx context.Context, ref string) (map[model.GateID]model.GateCounts, string, bool) {
	merged := make(map[model.GateID]model.GateCounts, len(model.Gates))
	var bookingDate string
	found := false

	for _, st := range w.stores {
		t, err := st.Get(ctx, ref)
		if err != nil {
			w.log.Error().Err(err).Str("ref", ref).Str("gate", string(st.Gate())).Msg("push cycle: snapshot failed")
			continue
		}
		if t == nil {
			continue
		}
		found = true
		bookingDate = t.BookingDate
		for gate, counts := range t.AsGateMap() {
			existing := merged[gate]
			if counts.Pax > existing.Pax {
				existing.Pax = counts.Pax
			}
			if counts.Used > existing.Used {
				existing.Used = counts.Used
			}
			merged[gate] = existing
		}
	}

	return merged, bookingDate, found
}

package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/edgegate/ticketgate/internal/config"
	"github.com/edgegate/ticketgate/internal/httpclient"
	"github.com/edgegate/ticketgate/internal/metrics"
	"github.com/edgegate/ticketgate/internal/model"
	"github.com/edgegate/ticketgate/internal/store"
)

// Today reports the current venue-local booking date, YYYY-MM-DD. Workers
// take this as an interface (rather than calling time.Now directly) so
// tests can pin "today" without sleeping past midnight.
type Today interface {
	TodayDashed() string
}

// FetchWorker pulls the daily manifest and seeds every co-located per-gate
// store with the server-authoritative capacity (spec.md §4.D). The set of
// stores is a constructor input, per spec.md §9's "multiple per-gate
// databases on one host" design note — never a filesystem scan.
type FetchWorker struct {
	client  *httpclient.Client
	stores  map[model.GateID]*store.Store
	cfg     config.API
	interval config.Services
	today   Today
	metrics *metrics.Registry
	log     zerolog.Logger

	consecutiveFailures int
}

// NewFetchWorker builds a FetchWorker over every store in stores.
func NewFetchWorker(client *httpclient.Client, stores map[model.GateID]*store.Store, cfg config.Config, today Today, reg *metrics.Registry, logger zerolog.Logger) *FetchWorker {
	return &FetchWorker{
		client:   client,
		stores:   stores,
		cfg:      cfg.API,
		interval: cfg.Services,
		today:    today,
		metrics:  reg,
		log:      logger,
	}
}

// Run loops fetch cycles until ctx is cancelled.
func (w *FetchWorker) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		ok := w.cycle(ctx)

		sleepFor := w.interval.FetchInterval
		if !ok {
			w.consecutiveFailures++
			multiplier := w.consecutiveFailures
			if multiplier > 5 {
				multiplier = 5
			}
			sleepFor = w.interval.FetchInterval * time.Duration(multiplier)
		} else {
			w.consecutiveFailures = 0
		}

		if !sleep(ctx, sleepFor) {
			return ctx.Err()
		}
	}
}

func (w *FetchWorker) cycle(ctx context.Context) bool {
	url := w.cfg.BaseURL + w.cfg.FetchEndpoint
	body, err := w.client.Do(ctx, http.MethodGet, url, nil)
	if err != nil {
		w.log.Error().Err(err).Msg("fetch cycle: manifest request failed, skipping cycle")
		w.metrics.FetchCycles.WithLabelValues("error").Inc()
		return false
	}

	var records []model.ManifestRecord
	if err := json.Unmarshal(body, &records); err != nil {
		w.log.Error().Err(err).Msg("fetch cycle: manifest decode failed, skipping cycle")
		w.metrics.FetchCycles.WithLabelValues("error").Inc()
		return false
	}

	today := w.today.TodayDashed()
	var created, updated, skipped int
	for _, rec := range records {
		if rec.BookingDate != today {
			skipped++
			continue
		}

		counts := model.GateCountsFromAttractions(rec.Attractions)
		existed, err := w.existsInAnyStore(ctx, rec.ReferenceNo)
		if err != nil {
			w.log.Error().Err(err).Str("ref", rec.ReferenceNo).Msg("fetch cycle: lookup failed")
			continue
		}

		for _, st := range w.stores {
			if err := st.UpsertFromServer(ctx, rec.ReferenceNo, rec.BookingDate, counts); err != nil {
				w.log.Error().Err(err).Str("ref", rec.ReferenceNo).Str("gate", string(st.Gate())).Msg("fetch cycle: upsert failed")
			}
		}
		w.metrics.FetchTicketsSeen.Inc()
		if existed {
			updated++
		} else {
			created++
		}
	}

	w.log.Info().
		Int("created", created).
		Int("updated", updated).
		Int("skipped", skipped).
		Int("total", len(records)).
		Msg("fetch cycle complete")
	w.metrics.FetchCycles.WithLabelValues("success").Inc()
	return true
}

// existsInAnyStore checks a single representative store (every store
// receives the same upsert in the same cycle, so their "ref known" state
// stays in lockstep) purely to label the summary log as created/updated.
func (w *FetchWorker) existsInAnyStore(ctx context.Context, ref string) (bool, error) {
	for _, st := range w.stores {
		t, err := st.Get(ctx, ref)
		if err != nil {
			return false, fmt.Errorf("get %s: %w", ref, err)
		}
		return t != nil, nil
	}
	return false, nil
}

// Package metrics exposes the Prometheus counters/gauges the ops surface
// serves at /metrics, grounded on the teacher's
// internal/interfaces/http.MetricsRegistry (NewX + prometheus.MustRegister
// pattern), trimmed to the admission/fetch/push/cleanup concerns of this
// system.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry holds every metric this gateway emits.
type Registry struct {
	AdmissionsTotal *prometheus.CounterVec
	FetchCycles     *prometheus.CounterVec
	FetchTicketsSeen prometheus.Counter
	PushCycles      *prometheus.CounterVec
	PushRefsSynced  prometheus.Counter
	CleanupRuns     *prometheus.CounterVec
	CleanupRowsDeleted prometheus.Counter
}

// New builds and registers a Registry against reg.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		AdmissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ticketgate_admissions_total",
				Help: "Total scan decisions by gate and status.",
			},
			[]string{"gate", "status"},
		),
		FetchCycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ticketgate_fetch_cycles_total",
				Help: "Total fetch worker cycles by outcome.",
			},
			[]string{"outcome"},
		),
		FetchTicketsSeen: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ticketgate_fetch_tickets_seen_total",
				Help: "Total manifest records processed (today-dated) by the fetch worker.",
			},
		),
		PushCycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ticketgate_push_cycles_total",
				Help: "Push worker outcomes: success once per cycle that synced at least one ref, error once per failed sync request.",
			},
			[]string{"outcome"},
		),
		PushRefsSynced: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ticketgate_push_refs_synced_total",
				Help: "Total reference numbers successfully marked synced.",
			},
		),
		CleanupRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ticketgate_cleanup_runs_total",
				Help: "Total per-store cleanup passes by outcome.",
			},
			[]string{"outcome"},
		),
		CleanupRowsDeleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ticketgate_cleanup_rows_deleted_total",
				Help: "Total ticket + scan_history rows deleted by cleanup.",
			},
		),
	}

	reg.MustRegister(
		r.AdmissionsTotal,
		r.FetchCycles,
		r.FetchTicketsSeen,
		r.PushCycles,
		r.PushRefsSynced,
		r.CleanupRuns,
		r.CleanupRowsDeleted,
	)
	return r
}

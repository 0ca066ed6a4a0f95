package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/edgegate/ticketgate/internal/config"
	"github.com/edgegate/ticketgate/internal/httpclient"
	"github.com/edgegate/ticketgate/internal/logging"
	"github.com/edgegate/ticketgate/internal/metrics"
	"github.com/edgegate/ticketgate/internal/model"
	"github.com/edgegate/ticketgate/internal/opsserver"
	"github.com/edgegate/ticketgate/internal/store"
	"github.com/edgegate/ticketgate/internal/supervisor"
	"github.com/edgegate/ticketgate/internal/worker"
)

var opsAddr string

// dummyTicketSeedCount is the per-gate load-test ticket count seeded on
// startup when services.add_dummy_tickets is set, scaled down from the
// original add_test_tickets.py's 100,000-ticket batch to a size suitable for
// seeding on every boot of an edge node rather than a one-off load test.
const dummyTicketSeedCount = 25

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the fetch/push/cleanup workers and ops server for this node",
		RunE:  runServe,
	}
	cmd.Flags().StringVar(&opsAddr, "ops-addr", ":9090", "address for the /healthz and /metrics HTTP surface")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fatal(err)
		return err
	}

	stores := make(map[model.GateID]*store.Store, len(cfg.Gates))
	for _, g := range cfg.Gates {
		gateLog := logging.ForGate(g.Name)
		st, err := store.Open(store.Config{
			GateName:     model.GateID(g.Name),
			DBPath:       g.DBPath,
			QueryTimeout: cfg.API.Timeout,
		}, gateLog)
		if err != nil {
			fatal(err)
			return err
		}
		defer st.Close()
		stores[model.GateID(g.Name)] = st
	}

	if cfg.Services.AddDummyTickets {
		today := venueClock{}.TodayDashed()
		for name, st := range stores {
			if err := st.SeedDummyTickets(context.Background(), dummyTicketSeedCount, today, cfg.Services.DummySuffix); err != nil {
				log.Error().Err(err).Str("gate", string(name)).Msg("failed to seed dummy tickets")
			}
		}
	}

	reg := prometheus.NewRegistry()
	metricsReg := metrics.New(reg)

	fetchClient := httpclient.New(cfg.API, "fetch", log.Logger)
	pushClient := httpclient.New(cfg.API, "push", log.Logger)

	tasks := map[string]supervisor.Task{}
	if cfg.Services.FetchEnabled {
		tasks["fetch"] = worker.NewFetchWorker(fetchClient, stores, *cfg, venueClock{}, metricsReg, log.Logger)
	}
	if cfg.Services.SyncEnabled {
		tasks["push"] = worker.NewPushWorker(pushClient, stores, *cfg, metricsReg, log.Logger)
	}
	if cfg.Services.CleanupEnabled {
		tasks["cleanup"] = worker.NewCleanupWorker(stores, *cfg, metricsReg, log.Logger)
	}

	gateNames := make([]string, 0, len(cfg.Gates))
	for _, g := range cfg.Gates {
		gateNames = append(gateNames, g.Name)
	}
	tasks["ops"] = opsserver.New(opsAddr, gateNames, reg, log.Logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info().Int("gates", len(stores)).Strs("tasks", taskNames(tasks)).Msg("ticketgate serve starting")
	supervisor.New(log.Logger, tasks).Run(ctx)
	return nil
}

func taskNames(tasks map[string]supervisor.Task) []string {
	names := make([]string, 0, len(tasks))
	for name := range tasks {
		names = append(names, name)
	}
	return names
}

// venueClock adapts time.Now to worker.Today using the host's local zone,
// the venue being assumed co-located with its edge nodes.
type venueClock struct{}

func (venueClock) TodayDashed() string {
	return nowFormatted("2006-01-02")
}

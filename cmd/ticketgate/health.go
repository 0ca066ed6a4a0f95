package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/edgegate/ticketgate/internal/model"
	"github.com/edgegate/ticketgate/internal/secrets"
	"github.com/edgegate/ticketgate/internal/store"
)

var healthJSON bool

// HealthStatus is a one-shot snapshot of this node's ability to serve
// scans: can every configured gate store be opened and pinged, and is the
// HMAC secret present. It does not report fetch/push/cleanup worker state,
// since this command has no access to a live supervisor.
type HealthStatus struct {
	Overall string                 `json:"overall"` // HEALTHY or UNHEALTHY
	AsOf    time.Time              `json:"as_of"`
	Secret  string                 `json:"hmac_secret"`
	Gates   map[string]GateHealth  `json:"gates"`
}

// GateHealth is one gate store's connectivity check.
type GateHealth struct {
	Status  string        `json:"status"`
	DBPath  string        `json:"db_path"`
	Latency time.Duration `json:"latency"`
	Error   string        `json:"error,omitempty"`
}

func healthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that every configured gate store is reachable",
		RunE:  runHealth,
	}
	cmd.Flags().BoolVar(&healthJSON, "json", false, "output the health snapshot as JSON")
	return cmd
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fatal(err)
		return err
	}

	status := &HealthStatus{
		AsOf:  time.Now().UTC(),
		Gates: make(map[string]GateHealth, len(cfg.Gates)),
	}

	if _, err := secrets.MustLoadHMACSecret(cfg.HMACSecretEnv); err != nil {
		status.Secret = "MISSING"
	} else {
		status.Secret = "PRESENT"
	}

	unhealthy := 0
	for _, g := range cfg.Gates {
		start := time.Now()
		st, err := store.Open(store.Config{
			GateName:     model.GateID(g.Name),
			DBPath:       g.DBPath,
			QueryTimeout: cfg.API.Timeout,
		}, log.Logger)
		latency := time.Since(start)

		if err != nil {
			unhealthy++
			status.Gates[g.Name] = GateHealth{
				Status:  "UNHEALTHY",
				DBPath:  g.DBPath,
				Latency: latency,
				Error:   err.Error(),
			}
			continue
		}
		st.Close()
		status.Gates[g.Name] = GateHealth{
			Status:  "HEALTHY",
			DBPath:  g.DBPath,
			Latency: latency,
		}
	}

	switch {
	case unhealthy > 0 || status.Secret == "MISSING":
		status.Overall = "UNHEALTHY"
	default:
		status.Overall = "HEALTHY"
	}

	if healthJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	return printHealthText(status)
}

func printHealthText(status *HealthStatus) error {
	fmt.Printf("ticketgate health: %s (as of %s)\n", status.Overall, status.AsOf.Format(time.RFC3339))
	fmt.Printf("hmac secret: %s\n", status.Secret)
	for name, g := range status.Gates {
		if g.Status == "HEALTHY" {
			fmt.Printf("  gate %-3s %-9s %s (%s)\n", name, g.Status, g.DBPath, g.Latency)
		} else {
			fmt.Printf("  gate %-3s %-9s %s: %s\n", name, g.Status, g.DBPath, g.Error)
		}
	}
	if status.Overall != "HEALTHY" {
		os.Exit(1)
	}
	return nil
}

// Command ticketgate runs the edge-node ticket validation gateway: one
// supervisor per host managing a fetch worker, a push worker, a cleanup
// worker, and an ops HTTP surface across every configured gate. Bootstrap
// follows the teacher's cmd/cryptorun/main.go shape (root cobra command plus
// zerolog global configuration); each subcommand configures zerolog from the
// loaded config in loadConfig, after cobra dispatch.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/edgegate/ticketgate/internal/config"
	"github.com/edgegate/ticketgate/internal/logging"
)

const appName = "ticketgate"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Offline-capable ticket validation gateway",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(healthCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := logging.Configure(cfg.Logging); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fatal(err error) {
	log.Error().Err(err).Msg("fatal initialization failure")
	os.Exit(1)
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/edgegate/ticketgate/internal/codec"
	"github.com/edgegate/ticketgate/internal/model"
	"github.com/edgegate/ticketgate/internal/secrets"
	"github.com/edgegate/ticketgate/internal/store"
	"github.com/edgegate/ticketgate/internal/validator"
)

var validateGate string

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <ticket-string>",
		Short: "Run a single scan against one gate's store (manual/ops testing)",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}
	cmd.Flags().StringVar(&validateGate, "gate", "A", "gate letter to validate against (A/B/C)")
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fatal(err)
		return err
	}

	dbPath := ""
	for _, g := range cfg.Gates {
		if g.Name == validateGate {
			dbPath = g.DBPath
			break
		}
	}
	if dbPath == "" {
		fatal(fmt.Errorf("no gate configured with name %q", validateGate))
		return nil
	}

	secret, err := secrets.MustLoadHMACSecret(cfg.HMACSecretEnv)
	if err != nil {
		fatal(err)
		return nil
	}
	log.Debug().Str("hmac_secret_env", cfg.HMACSecretEnv).Str("hmac_secret", secrets.Redact(secret)).Msg("loaded HMAC secret")

	st, err := store.Open(store.Config{
		GateName:     model.GateID(validateGate),
		DBPath:       dbPath,
		QueryTimeout: cfg.API.Timeout,
	}, log.Logger)
	if err != nil {
		fatal(err)
		return nil
	}
	defer st.Close()

	c := codec.New(secret)
	// nil registry: this is a one-shot CLI scan with no /metrics surface to
	// serve counters from (the live admissions counter is exercised by the
	// scan path a running node actually takes, not by ops tooling).
	v, err := validator.New(c, st, cfg, model.GateID(validateGate), validator.NewSystemClock(time.Local), nil, log.Logger)
	if err != nil {
		fatal(err)
		return nil
	}

	decision := v.Validate(context.Background(), args[0])
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(decision)
}

// cmd/supersetcfg/main.go
//
// supersetcfg – Superset runtime configuration entry point.
//
// Life-cycle (every subcommand)
// -----------------------------
//
//  1. Parse persistent flags (--env-file, --overlay, --strict, --log-dir).
//
//  2. Start the logger (file sink when --log-dir is set, stderr otherwise).
//
//  3. Attach a Vault resolver when VAULT_ADDR is present, so `vault:`
//     references in the Superset variables resolve before assembly.
//
//  4. Load the snapshot once.
//
//  5. Hand it to the subcommand:
//
//     • render – write superset_config.py (or json, yaml, env)
//     • check  – probe database and cache, non-zero exit on failure
//     • serve  – HTTP control surface until SIGINT or SIGTERM
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AdeptTravel/superset-config/internal/config"
	"github.com/AdeptTravel/superset-config/internal/logger"
	"github.com/AdeptTravel/superset-config/internal/probe"
	"github.com/AdeptTravel/superset-config/internal/vault"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	envFile  string
	overlay  string
	strict   bool
	logDir   string
	logLevel string

	// probers overrides the database and cache checks; zero means real ones.
	probers probe.Probers
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "supersetcfg:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(&globalFlags{})
}

func buildRootCmd(gf *globalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:           "supersetcfg",
		Short:         "Assemble and serve Superset runtime configuration",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_, err := logger.New(logger.Options{
				Dir:   gf.logDir,
				Tee:   logger.RunningInTTY(),
				Level: gf.logLevel,
			})
			return err
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = zap.L().Sync()
		},
	}

	defaults := config.OptionsFromEnv()
	pf := root.PersistentFlags()
	pf.StringVar(&gf.envFile, "env-file", defaults.EnvFile, "dotenv file read below the environment (missing is fine)")
	pf.StringVar(&gf.overlay, "overlay", defaults.OverlayFile, "YAML overlay read below the environment (env "+config.EnvOverlayFile+")")
	pf.BoolVar(&gf.strict, "strict", defaults.Strict, "fail on missing or malformed variables (env "+config.EnvStrict+")")
	pf.StringVar(&gf.logDir, "log-dir", "", "write rotated JSON logs here")
	pf.StringVar(&gf.logLevel, "log-level", "info", "debug, info, warn, or error")

	root.AddCommand(
		newRenderCmd(gf),
		newCheckCmd(gf),
		newServeCmd(gf),
	)
	return root
}

// load builds loader options from flags and publishes the first snapshot.
func (gf *globalFlags) load(ctx context.Context) (*config.Snapshot, error) {
	opts := config.Options{
		EnvFile:     gf.envFile,
		OverlayFile: gf.overlay,
		Strict:      gf.strict,
	}

	if os.Getenv("VAULT_ADDR") != "" {
		cli, err := vault.New(ctx, vault.DefaultTTL)
		if err != nil {
			return nil, err
		}
		opts.Resolver = cli
	}

	return config.Load(ctx, opts)
}

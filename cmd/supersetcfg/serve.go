package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AdeptTravel/superset-config/internal/server"
)

func newServeCmd(gf *globalFlags) *cobra.Command {
	var (
		listen       string
		probeTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the redacted snapshot, probes, reload, and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if _, err := gf.load(ctx); err != nil {
				return err
			}

			srv := server.New(listen, server.NewHandler(server.Deps{
				Probers:      gf.probers,
				ProbeTimeout: probeTimeout,
			}))

			errCh := make(chan error, 1)
			go func() {
				zap.S().Infow("listening", "addr", listen)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			zap.S().Infow("shutting down")
			shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutCtx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", ":8088", "listen address")
	cmd.Flags().DurationVar(&probeTimeout, "probe-timeout", 5*time.Second, "per-target timeout for GET /probe")
	return cmd
}

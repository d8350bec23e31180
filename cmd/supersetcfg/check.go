package main

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/AdeptTravel/superset-config/internal/probe"
)

var errProbeFailed = errors.New("one or more probes failed")

func newCheckCmd(gf *globalFlags) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Probe the database and cache named by the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := gf.load(cmd.Context())
			if err != nil {
				return err
			}

			rep := probe.Run(cmd.Context(), snap, timeout, gf.probers)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(rep); err != nil {
				return err
			}
			if !rep.OK() {
				return errProbeFailed
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "per-target probe timeout")
	return cmd
}

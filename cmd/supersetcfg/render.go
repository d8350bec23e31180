package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AdeptTravel/superset-config/internal/render"
)

func newRenderCmd(gf *globalFlags) *cobra.Command {
	var (
		format string
		out    string
	)

	names := make([]string, len(render.Formats))
	for i, f := range render.Formats {
		names[i] = string(f)
	}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write the exported values for the runtime",
		Long: "Render writes SQLALCHEMY_DATABASE_URI, CACHE_CONFIG, SECRET_KEY, and\n" +
			"WTF_CSRF_ENABLED with literal values.  The default python format is a\n" +
			"drop-in superset_config.py.  Output is unredacted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := render.ParseFormat(format)
			if err != nil {
				return err
			}

			snap, err := gf.load(cmd.Context())
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				return render.Write(cmd.OutOrStdout(), snap.Exports(), f)
			}
			if err := writeFileAtomic(out, func(w io.Writer) error {
				return render.Write(w, snap.Exports(), f)
			}); err != nil {
				return err
			}
			zap.S().Infow("config rendered", "file", out, "format", f)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(render.FormatPython), "one of "+strings.Join(names, ", "))
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	return cmd
}

// writeFileAtomic writes to a temp file beside path and renames it into
// place, so the runtime never imports a half-written module.
func writeFileAtomic(path string, fill func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("render %s: %w", path, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

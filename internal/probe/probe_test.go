package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AdeptTravel/superset-config/internal/config"
)

func TestRun_ReportsEachTarget(t *testing.T) {
	snap := &config.Snapshot{DatabaseURI: "postgresql://u:p@h:1/d"}

	rep := Run(context.Background(), snap, time.Second, Probers{
		Database: func(_ context.Context, s *config.Snapshot) error {
			if s != snap {
				t.Errorf("probe received a different snapshot")
			}
			return nil
		},
		Cache: func(context.Context, *config.Snapshot) error {
			return errors.New("connection refused")
		},
	})

	if rep.OK() {
		t.Fatalf("report OK with a failing target")
	}
	if len(rep.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(rep.Results))
	}
	if r := rep.Results[0]; r.Target != TargetDatabase || !r.OK {
		t.Fatalf("database result = %+v", r)
	}
	if r := rep.Results[1]; r.Target != TargetCache || r.OK || r.Error != "connection refused" {
		t.Fatalf("cache result = %+v", r)
	}
}

func TestRun_TimeoutBoundsSlowTarget(t *testing.T) {
	slow := func(ctx context.Context, _ *config.Snapshot) error {
		<-ctx.Done()
		return ctx.Err()
	}
	ok := func(context.Context, *config.Snapshot) error { return nil }

	start := time.Now()
	rep := Run(context.Background(), &config.Snapshot{}, 50*time.Millisecond, Probers{Database: slow, Cache: ok})

	if time.Since(start) > 2*time.Second {
		t.Fatalf("timeout not applied")
	}
	if rep.Results[0].OK || !rep.Results[1].OK {
		t.Fatalf("unexpected results: %+v", rep.Results)
	}
}

// Package probe checks that the endpoints named by a configuration snapshot
// are reachable.  It never repairs anything; it only reports, so operators
// can catch the latent failures the loader lets through before the runtime
// starts serving.
//
// Both targets run concurrently under one errgroup, each bounded by the
// caller's timeout.  A failing target does not cancel the other.
package probe

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AdeptTravel/superset-config/internal/cache"
	"github.com/AdeptTravel/superset-config/internal/config"
	"github.com/AdeptTravel/superset-config/internal/database"
	"github.com/AdeptTravel/superset-config/internal/metrics"
)

// Target names used in reports and metric labels.
const (
	TargetDatabase = "database"
	TargetCache    = "cache"
)

// Func checks one target.
type Func func(ctx context.Context, snap *config.Snapshot) error

// Probers selects the check for each target.  Nil entries fall back to
// the real database and Redis checks.
type Probers struct {
	Database Func
	Cache    Func
}

// Result is the outcome for one target.
type Result struct {
	Target  string        `json:"target"`
	OK      bool          `json:"ok"`
	Latency time.Duration `json:"latency_ns"`
	Error   string        `json:"error,omitempty"`
}

// Report lists results in target order.
type Report struct {
	Results []Result `json:"results"`
}

// OK reports whether every target passed.
func (r Report) OK() bool {
	for _, res := range r.Results {
		if !res.OK {
			return false
		}
	}
	return true
}

// Run probes the database and cache named by snap.
func Run(ctx context.Context, snap *config.Snapshot, timeout time.Duration, p Probers) Report {
	if p.Database == nil {
		p.Database = databaseProbe
	}
	if p.Cache == nil {
		p.Cache = cacheProbe
	}

	targets := []struct {
		name string
		fn   Func
	}{
		{TargetDatabase, p.Database},
		{TargetCache, p.Cache},
	}

	results := make([]Result, len(targets))
	var g errgroup.Group
	for i, tgt := range targets {
		g.Go(func() error {
			results[i] = runOne(ctx, snap, timeout, tgt.name, tgt.fn)
			return nil
		})
	}
	_ = g.Wait()

	return Report{Results: results}
}

func runOne(ctx context.Context, snap *config.Snapshot, timeout time.Duration, name string, fn Func) Result {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx, snap)
	lat := time.Since(start)

	metrics.ProbeDuration.WithLabelValues(name).Observe(lat.Seconds())
	res := Result{Target: name, OK: err == nil, Latency: lat}
	if err != nil {
		res.Error = err.Error()
		metrics.ProbeUp.WithLabelValues(name).Set(0)
		zap.S().Warnw("probe failed", "target", name, "err", err)
	} else {
		metrics.ProbeUp.WithLabelValues(name).Set(1)
		zap.S().Debugw("probe ok", "target", name, "latency", lat)
	}
	return res
}

func databaseProbe(ctx context.Context, snap *config.Snapshot) error {
	db, err := database.Open(ctx, snap.DatabaseURI)
	if err != nil {
		return err
	}
	return db.Close()
}

func cacheProbe(ctx context.Context, snap *config.Snapshot) error {
	rc := cache.NewClient(snap.Cache)
	defer rc.Close()
	return cache.Ping(ctx, rc, snap.Cache.KeyPrefix)
}

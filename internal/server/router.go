// internal/server/router.go
//
// chi router for the control surface.
//
/*
Context
--------
The surface lets operators and deploy tooling inspect the snapshot the
runtime is about to import, without shell access to the host:

  GET  /healthz          liveness, always 200 once serving
  GET  /config           redacted exports as JSON
  GET  /config/{format}  redacted exports as python, json, yaml, or env
  GET  /csrf             fresh token for unsafe requests
  POST /reload           re-read the environment (CSRF-protected)
  GET  /probe            database and cache reachability, 503 on failure
  GET  /metrics          Prometheus

Secrets never leave through this surface: every config view is built from
`Snapshot.Redacted()`.

The CSRF protector is rebuilt whenever the published snapshot changes, so
a reload that rotates SUPERSET_SECRET_KEY invalidates older tokens.
*/
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/AdeptTravel/superset-config/internal/config"
	"github.com/AdeptTravel/superset-config/internal/csrf"
	"github.com/AdeptTravel/superset-config/internal/middleware"
	"github.com/AdeptTravel/superset-config/internal/probe"
	"github.com/AdeptTravel/superset-config/internal/render"
)

// Deps wires the router to the loader.  Snapshot and Reload default to
// config.Get and config.Reload.
type Deps struct {
	Snapshot     func() *config.Snapshot
	Reload       func(ctx context.Context) error
	Probers      probe.Probers
	ProbeTimeout time.Duration
}

type api struct {
	deps Deps

	mu       sync.Mutex
	protSnap *config.Snapshot
	prot     *csrf.Protector
}

// NewHandler builds the full middleware chain and routes.
func NewHandler(d Deps) http.Handler {
	if d.Snapshot == nil {
		d.Snapshot = config.Get
	}
	if d.Reload == nil {
		d.Reload = config.Reload
	}
	if d.ProbeTimeout <= 0 {
		d.ProbeTimeout = 5 * time.Second
	}
	a := &api{deps: d}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(middleware.Security)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(a.requireSnapshot)
		r.Get("/config", a.configJSON)
		r.Get("/config/{format}", a.configFormat)
		r.Get("/csrf", a.csrfToken)
		r.Get("/probe", a.probe)
		r.With(a.csrfGuard).Post("/reload", a.reload)
	})

	return r
}

/*──────────────────────────── middleware ──────────────────────────────────*/

func (a *api) requireSnapshot(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.deps.Snapshot() == nil {
			http.Error(w, "configuration not loaded", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *api) csrfGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.protector().Middleware(next).ServeHTTP(w, r)
	})
}

// protector returns the Protector for the current snapshot.
func (a *api) protector() *csrf.Protector {
	snap := a.deps.Snapshot()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.prot == nil || a.protSnap != snap {
		a.prot = csrf.New(snap.SecretKey.Value, snap.CSRFEnabled)
		a.protSnap = snap
	}
	return a.prot
}

/*──────────────────────────── handlers ────────────────────────────────────*/

func (a *api) configJSON(w http.ResponseWriter, r *http.Request) {
	a.writeFormat(w, render.FormatJSON)
}

func (a *api) configFormat(w http.ResponseWriter, r *http.Request) {
	f, err := render.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	a.writeFormat(w, f)
}

func (a *api) writeFormat(w http.ResponseWriter, f render.Format) {
	w.Header().Set("Content-Type", f.ContentType())
	if err := render.Write(w, a.deps.Snapshot().Redacted(), f); err != nil {
		zap.S().Errorw("render failed", "format", f, "err", err)
	}
}

func (a *api) csrfToken(w http.ResponseWriter, _ *http.Request) {
	p := a.protector()
	tok, err := p.Generate()
	if err != nil {
		http.Error(w, "token generation failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":   tok,
		"header":  csrf.HeaderName,
		"enabled": p.Enabled(),
	})
}

func (a *api) reload(w http.ResponseWriter, r *http.Request) {
	if err := a.deps.Reload(r.Context()); err != nil {
		zap.S().Errorw("reload failed", "err", err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error()})
		return
	}
	snap := a.deps.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"loaded_at": snap.LoadedAt,
		"missing":   snap.Missing,
	})
}

func (a *api) probe(w http.ResponseWriter, r *http.Request) {
	rep := probe.Run(r.Context(), a.deps.Snapshot(), a.deps.ProbeTimeout, a.deps.Probers)
	status := http.StatusOK
	if !rep.OK() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, rep)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

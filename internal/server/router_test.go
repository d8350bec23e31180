// internal/server/router_test.go
//
// Unit-tests for the control-surface router.
//
// Context
// -------
// The router is exercised with an injected snapshot and fake probers, so no
// database, Redis, or environment is touched.  The tests cover:
//
//   • redacted config views in JSON and Python,
//   • CSRF round trip on POST /reload,
//   • probe status mapping, and
//   • 503 before the first load.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AdeptTravel/superset-config/internal/config"
	"github.com/AdeptTravel/superset-config/internal/csrf"
	"github.com/AdeptTravel/superset-config/internal/probe"
)

func testSnapshot() *config.Snapshot {
	db := config.DatabaseParts{
		User:     config.Part{Value: "superset", Set: true},
		Password: config.Part{Value: "pw", Set: true},
		Host:     config.Part{Value: "db", Set: true},
		Port:     config.Part{Value: "5432", Set: true},
		DB:       config.Part{Value: "analytics", Set: true},
	}
	return &config.Snapshot{
		DatabaseURI: config.ComposeDatabaseURI(db),
		Database:    db,
		Cache: config.Cache{
			Type: config.CacheType, DefaultTimeout: config.CacheDefaultTimeout,
			KeyPrefix: config.CacheKeyPrefix, RedisHost: "localhost",
			RedisPort: "6379", RedisDB: config.CacheRedisDB,
		},
		SecretKey:   config.Part{Value: "top-secret", Set: true},
		CSRFEnabled: true,
	}
}

func okProbe(context.Context, *config.Snapshot) error { return nil }

func newTestHandler(snap *config.Snapshot, reload func(context.Context) error) http.Handler {
	return NewHandler(Deps{
		Snapshot: func() *config.Snapshot { return snap },
		Reload:   reload,
		Probers:  probe.Probers{Database: okProbe, Cache: okProbe},
	})
}

func do(h http.Handler, method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestConfig_Redacted(t *testing.T) {
	h := newTestHandler(testSnapshot(), nil)

	rr := do(h, http.MethodGet, "/config", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	if strings.Contains(body, "top-secret") || strings.Contains(body, ":pw@") {
		t.Fatalf("secret leaked: %s", body)
	}
	var got map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("json: %v", err)
	}
	if got["WTF_CSRF_ENABLED"] != true {
		t.Fatalf("csrf flag = %v", got["WTF_CSRF_ENABLED"])
	}

	rr = do(h, http.MethodGet, "/config/python", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "WTF_CSRF_ENABLED = True") {
		t.Fatalf("python view: %d %s", rr.Code, rr.Body.String())
	}

	if rr := do(h, http.MethodGet, "/config/toml", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown format status = %d, want 404", rr.Code)
	}
}

func TestReload_RequiresCSRF(t *testing.T) {
	calls := 0
	h := newTestHandler(testSnapshot(), func(context.Context) error {
		calls++
		return nil
	})

	if rr := do(h, http.MethodPost, "/reload", nil); rr.Code != http.StatusForbidden {
		t.Fatalf("status without token = %d, want 403", rr.Code)
	}

	rr := do(h, http.MethodGet, "/csrf", nil)
	var tok struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &tok); err != nil || tok.Token == "" {
		t.Fatalf("csrf body: %s (%v)", rr.Body.String(), err)
	}

	rr = do(h, http.MethodPost, "/reload", map[string]string{csrf.HeaderName: tok.Token})
	if rr.Code != http.StatusOK || calls != 1 {
		t.Fatalf("reload status = %d, calls = %d", rr.Code, calls)
	}
}

func TestReload_ErrorIs422(t *testing.T) {
	snap := testSnapshot()
	snap.CSRFEnabled = false
	h := newTestHandler(snap, func(context.Context) error {
		return errors.New("invalid configuration: DATABASE_PORT")
	})

	if rr := do(h, http.MethodPost, "/reload", nil); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rr.Code)
	}
}

func TestProbe_Status(t *testing.T) {
	h := NewHandler(Deps{
		Snapshot: testSnapshot,
		Probers: probe.Probers{
			Database: okProbe,
			Cache:    func(context.Context, *config.Snapshot) error { return errors.New("refused") },
		},
	})

	if rr := do(h, http.MethodGet, "/probe", nil); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
}

func TestNotLoaded(t *testing.T) {
	h := newTestHandler(nil, nil)

	if rr := do(h, http.MethodGet, "/healthz", nil); rr.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rr.Code)
	}
	if rr := do(h, http.MethodGet, "/config", nil); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("config before load = %d, want 503", rr.Code)
	}
}

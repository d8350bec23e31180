package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AdeptTravel/superset-config/internal/config"
	"github.com/AdeptTravel/superset-config/internal/probe"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// isolateEnv unsets every variable the loader or the Vault hook reads.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"DATABASE_USER", "DATABASE_PASSWORD", "DATABASE_HOST", "DATABASE_PORT",
		"DATABASE_DB", "REDIS_HOST", "REDIS_PORT", "SUPERSET_SECRET_KEY", "VAULT_ADDR",
	} {
		if old, ok := os.LookupEnv(name); ok {
			t.Cleanup(func() { os.Setenv(name, old) })
			os.Unsetenv(name)
		}
	}
}

func TestRender_PythonToFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "superset.env")
	body := "DATABASE_USER=superset\nDATABASE_PASSWORD=pw\nDATABASE_HOST=db\n" +
		"DATABASE_PORT=5432\nDATABASE_DB=analytics\nREDIS_HOST=redis\nSUPERSET_SECRET_KEY=k\n"
	if err := os.WriteFile(envFile, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	isolateEnv(t)

	out := filepath.Join(dir, "superset_config.py")
	if _, err := runCLI(t, "render", "--env-file", envFile, "--out", out); err != nil {
		t.Fatalf("render: %v", err)
	}

	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	for _, want := range []string{
		`SQLALCHEMY_DATABASE_URI = "postgresql://superset:pw@db:5432/analytics"`,
		`"CACHE_REDIS_HOST": "redis",`,
		`"CACHE_REDIS_PORT": "6379",`,
		`SECRET_KEY = "k"`,
		`WTF_CSRF_ENABLED = True`,
	} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("output missing %q:\n%s", want, raw)
		}
	}
}

func TestRender_UnknownFormat(t *testing.T) {
	if _, err := runCLI(t, "render", "--env-file", "", "--format", "toml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestCheck_FailingTargetExitsWithError(t *testing.T) {
	isolateEnv(t)

	gf := &globalFlags{probers: probe.Probers{
		Database: func(context.Context, *config.Snapshot) error { return nil },
		Cache:    func(context.Context, *config.Snapshot) error { return errors.New("connection refused") },
	}}
	var out bytes.Buffer
	root := buildRootCmd(gf)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"check", "--env-file", "", "--timeout", "1s"})

	err := root.Execute()
	if !errors.Is(err, errProbeFailed) {
		t.Fatalf("err = %v, want errProbeFailed", err)
	}
	for _, want := range []string{`"ok": false`, `"target": "cache"`, "connection refused"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("report missing %q:\n%s", want, out.String())
		}
	}
}

func TestCheck_AllTargetsOK(t *testing.T) {
	isolateEnv(t)

	ok := func(context.Context, *config.Snapshot) error { return nil }
	root := buildRootCmd(&globalFlags{probers: probe.Probers{Database: ok, Cache: ok}})
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"check", "--env-file", ""})

	if err := root.Execute(); err != nil {
		t.Fatalf("check: %v", err)
	}
}

func TestServe_StopsWhenContextCancelled(t *testing.T) {
	isolateEnv(t)

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"serve", "--listen", "127.0.0.1:0", "--env-file", ""})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not stop after context cancel")
	}
}

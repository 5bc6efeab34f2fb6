package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cli2468/Vision-sub000/internal/config"
	"github.com/cli2468/Vision-sub000/internal/logging"
)

func TestValidateConfigRejectsWeakValues(t *testing.T) {
	cfg := config.Default()
	cfg.AuthSecret = "short"
	if err := validateConfig(cfg); err == nil {
		t.Fatalf("expected short auth secret to be rejected")
	}

	cfg = config.Default()
	cfg.DatabaseURL = "postgres://localhost/resell"
	if err := validateConfig(cfg); err == nil {
		t.Fatalf("expected database without auth secret to be rejected")
	}

	cfg = config.Default()
	cfg.Timezone = "Mars/Olympus"
	if err := validateConfig(cfg); err == nil {
		t.Fatalf("expected unknown timezone to be rejected")
	}
}

func TestValidateConfigAcceptsLocalAndCloudSetups(t *testing.T) {
	if err := validateConfig(config.Default()); err != nil {
		t.Fatalf("expected local-only defaults to pass, got %v", err)
	}
	cfg := config.Default()
	cfg.AuthSecret = "0123456789abcdef0123456789abcdef"
	if err := validateConfig(cfg); err != nil {
		t.Fatalf("expected cloud config to pass, got %v", err)
	}
}

func TestBuildWiresCloudWithInMemoryBackends(t *testing.T) {
	cfg := config.Default()
	cfg.LedgerPath = filepath.Join(t.TempDir(), "ledger.json")
	cfg.AuthSecret = "0123456789abcdef0123456789abcdef"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := build(ctx, cfg, logging.NewSilentLogger())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer app.close(ctx, logging.NewSilentLogger())

	if app.bridge == nil {
		t.Fatalf("expected a sync bridge when AUTH_SECRET is set")
	}
	state := app.service.Session()
	if !state.CloudEnabled || !state.SignInEnabled {
		t.Fatalf("unexpected session state: %+v", state)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/login",
		strings.NewReader(`{"email":"nobody@example.com","password":"wrong-password"}`))
	res := httptest.NewRecorder()
	app.api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown account, got %d", res.Code)
	}
}

func TestBuildLocalOnly(t *testing.T) {
	cfg := config.Default()
	cfg.LedgerPath = filepath.Join(t.TempDir(), "ledger.json")

	app, err := build(context.Background(), cfg, logging.NewSilentLogger())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if app.bridge != nil {
		t.Fatalf("expected no bridge without AUTH_SECRET")
	}
	if state := app.service.Session(); state.CloudEnabled || state.SignInEnabled {
		t.Fatalf("expected cloud features off, got %+v", state)
	}
}

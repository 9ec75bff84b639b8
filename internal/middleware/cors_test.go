package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"courier-backend/internal/config"
)

func corsConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.CorsAllowedOrigins = []string{"http://app.local"}
	cfg.Server.CorsAllowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	cfg.Server.CorsAllowedHeaders = []string{"Content-Type"}
	cfg.Server.CorsMaxAge = 600
	return cfg
}

func preflight(t *testing.T, cfg *config.Config, requestHeaders string) *httptest.ResponseRecorder {
	t.Helper()
	handler := NewCORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/clients", nil)
	req.Header.Set("Origin", "http://app.local")
	req.Header.Set("Access-Control-Request-Method", "POST")
	if requestHeaders != "" {
		req.Header.Set("Access-Control-Request-Headers", requestHeaders)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCORSAlwaysAllowsOwnerHeader(t *testing.T) {
	// Config lists only Content-Type; the owner header must still pass.
	rec := preflight(t, corsConfig(), "X-Owner-ID")

	allowed := rec.Header().Get("Access-Control-Allow-Headers")
	if !strings.Contains(strings.ToLower(allowed), "x-owner-id") {
		t.Errorf("expected X-Owner-ID in Access-Control-Allow-Headers, got %q", allowed)
	}
}

func TestCORSMaxAgeFromConfig(t *testing.T) {
	rec := preflight(t, corsConfig(), "")
	if got := rec.Header().Get("Access-Control-Max-Age"); got != "600" {
		t.Errorf("expected max age 600, got %q", got)
	}

	cfg := corsConfig()
	cfg.Server.CorsMaxAge = 0
	rec = preflight(t, cfg, "")
	if got := rec.Header().Get("Access-Control-Max-Age"); got != "300" {
		t.Errorf("expected default max age 300, got %q", got)
	}
}

package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.API.BaseURL != "https://api.example.test" {
		t.Fatalf("unexpected base url %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Fatalf("expected default timeout 10s, got %v", cfg.API.Timeout)
	}
	if cfg.Catalog.PageSize != 8 || cfg.Catalog.SellerPageSize != 10 || cfg.Orders.PageSize != 5 {
		t.Fatalf("unexpected page sizes %+v %+v", cfg.Catalog, cfg.Orders)
	}
	if cfg.Pricing.DiscountRate.StringFixed(2) != "0.10" || cfg.Pricing.TaxRate.StringFixed(2) != "0.05" {
		t.Fatalf("unexpected pricing %+v", cfg.Pricing)
	}
	if cfg.Session.Backend != SessionBackendMemory {
		t.Fatalf("expected memory session backend, got %q", cfg.Session.Backend)
	}
	if cfg.Metrics.Enabled() {
		t.Fatalf("metrics should be disabled without an address")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	unsetEnv(t, EnvAPIBaseURL)

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_RejectsRelativeBaseURL(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvAPIBaseURL, "/products")

	if _, err := Load(); err == nil {
		t.Fatal("expected relative base url to be rejected")
	}
}

func TestLoad_RedisBackendRequiresURL(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvSessionBackend, "REDIS")

	if _, err := Load(); err == nil {
		t.Fatal("expected redis backend without url to fail")
	}

	t.Setenv(EnvRedisURL, "redis://localhost:6379/0")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Session.Backend != SessionBackendRedis {
		t.Fatalf("expected normalized redis backend, got %q", cfg.Session.Backend)
	}
}

func TestLoad_RejectsNonPositivePageSize(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvOrdersPage, "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected zero page size to fail")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "dev")
	t.Setenv(EnvAPIBaseURL, "https://api.example.test")
	unsetEnv(t, EnvSessionBackend)
	unsetEnv(t, EnvRedisURL)
	unsetEnv(t, EnvOrdersPage)
	unsetEnv(t, EnvMetricsAddr)
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset %s: %v", key, err)
	}
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	prodConfig := AppConfig{Env: "prod"}
	if !prodConfig.IsProd() {
		t.Fatalf("expected IsProd true for %q", prodConfig.Env)
	}
}

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

	if cfg.App.Env != "production" {
		t.Fatalf("expected App.Env to be production, got %q", cfg.App.Env)
	}
	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Fatalf("unexpected Redis URL: %q", cfg.Redis.URL)
	}
	if got := cfg.Sessions.TTL; got != 2*time.Hour {
		t.Fatalf("expected default session ttl 2h, got %v", got)
	}
	if got := cfg.Audit.Timeout; got != 10*time.Second {
		t.Fatalf("expected default audit timeout 10s, got %v", got)
	}
	if got := cfg.Audit.Grace; got != 500*time.Millisecond {
		t.Fatalf("expected default audit grace 500ms, got %v", got)
	}
	if len(cfg.Attachments.AllowedTypes) != 3 {
		t.Fatalf("expected three default attachment types, got %v", cfg.Attachments.AllowedTypes)
	}
	if !cfg.Stripe.VoidAbandoned {
		t.Fatal("expected abandoned intents to be voided by default")
	}
	if cfg.RateLimit.Window != 10*time.Minute || cfg.RateLimit.PerIP != 30 || cfg.RateLimit.PerEmail != 10 {
		t.Fatalf("unexpected rate limit defaults: %+v", cfg.RateLimit)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAppEnv); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAppEnv, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_RedisRequiredForRedisSessions(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvRedisURL); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvRedisURL, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected redis sessions without redis url to fail")
	}

	t.Setenv(EnvSessionBackend, SessionBackendMemory)
	if _, err := Load(); err != nil {
		t.Fatalf("memory sessions should not need redis: %v", err)
	}
}

func TestLoad_PerDeploymentOverrides(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvPricingOverrides, "passport.1:45,translation.2:50.50")
	t.Setenv(EnvAttachmentMaxByForm, "translation:10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	overrides := cfg.Pricing.OverridesFor("passport")
	if overrides["1"] != "45" || len(overrides) != 1 {
		t.Fatalf("unexpected passport overrides %v", overrides)
	}
	if got := cfg.Attachments.MaxBytesFor("translation", 5); got != 10<<20 {
		t.Fatalf("expected translation limit of 10MB, got %d", got)
	}
	if got := cfg.Attachments.MaxBytesFor("passport", 0); got != 5<<20 {
		t.Fatalf("expected default limit of 5MB, got %d", got)
	}
}

func TestLoad_DefaultAttachmentLimit(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvAttachmentMaxMB, "1")
	t.Setenv(EnvAttachmentMaxByForm, "cie:3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if got := cfg.Attachments.MaxBytesFor("passport", 0); got != 1<<20 {
		t.Fatalf("expected passport to use the 1MB default, got %d", got)
	}
	if got := cfg.Attachments.MaxBytesFor("translation", 10); got != 10<<20 {
		t.Fatalf("expected translation to keep its 10MB limit, got %d", got)
	}
	if got := cfg.Attachments.MaxBytesFor("cie", 0); got != 3<<20 {
		t.Fatalf("expected cie override of 3MB, got %d", got)
	}
}

func TestLoad_RejectsMalformedOverride(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvPricingOverrides, "passport.1:forty")

	if _, err := Load(); err == nil {
		t.Fatal("expected non-numeric override to fail")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "production")
	t.Setenv(EnvPort, "8081")
	t.Setenv(EnvPublicBaseURL, "https://sportello.example")
	t.Setenv(EnvRedisURL, "redis://localhost:6379/0")
	t.Setenv(EnvAuditURL, "https://audit.example/exec")
	t.Setenv(EnvAuditToken, "audit-token")
	t.Setenv(EnvOnboardingURL, "https://forms.example/submit")
	t.Setenv(EnvStripeAPIKey, "sk_test_123")
	t.Setenv(EnvStripePublishableKey, "pk_test_123")
}

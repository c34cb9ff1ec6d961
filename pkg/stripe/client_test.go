package stripe

import (
	"context"
	"testing"

	"github.com/sportello-uk/sportello-backend/pkg/config"
)

func TestNewClientValidatesKeys(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		cfg  config.StripeConfig
		ok   bool
	}{
		{"test key", config.StripeConfig{APIKey: "sk_test_1", PublishableKey: "pk_test_1", Env: "test"}, true},
		{"restricted test key", config.StripeConfig{APIKey: "rk_test_1", PublishableKey: "pk_test_1"}, true},
		{"live key in test", config.StripeConfig{APIKey: "sk_live_1", PublishableKey: "pk_live_1", Env: "test"}, false},
		{"missing publishable", config.StripeConfig{APIKey: "sk_test_1"}, false},
		{"bad env", config.StripeConfig{APIKey: "sk_test_1", PublishableKey: "pk", Env: "staging"}, false},
	}
	for _, tt := range tests {
		_, err := NewClient(ctx, tt.cfg, nil)
		if (err == nil) != tt.ok {
			t.Fatalf("%s: expected ok=%v got err=%v", tt.name, tt.ok, err)
		}
	}
}

func TestNewClientDefaultsCurrency(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{APIKey: "sk_test_1", PublishableKey: "pk_test_1"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Currency() != "gbp" {
		t.Fatalf("expected gbp default, got %q", client.Currency())
	}
	if client.PublishableKey() != "pk_test_1" || client.Environment() != "test" {
		t.Fatalf("unexpected client %+v", client)
	}
}

func TestRedactSensitiveKeys(t *testing.T) {
	if got := redact("client_secret", "pi_123_secret_abc"); got != "[REDACTED]" {
		t.Fatalf("expected client secret to be redacted, got %v", got)
	}
	if got := redact("amount", int64(4000)); got != int64(4000) {
		t.Fatalf("amount should pass through, got %v", got)
	}
}

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"BFF_UPSTREAM_BASE_URL": "https://api.momiji-market.jp",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Upstream.Timeout != 10*time.Second {
		t.Errorf("unexpected upstream timeout: %s", cfg.Upstream.Timeout)
	}
	if !cfg.Features.EnableReviews || !cfg.Features.EnableFavorites {
		t.Errorf("expected feature flags on by default, got %+v", cfg.Features)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"BFF_SERVER_PORT":            "9090",
		"BFF_SERVER_READ_TIMEOUT":    "20s",
		"BFF_SERVER_WRITE_TIMEOUT":   "25s",
		"BFF_SERVER_IDLE_TIMEOUT":    "2m",
		"BFF_UPSTREAM_BASE_URL":      "https://api.momiji-market.jp",
		"BFF_UPSTREAM_TIMEOUT":       "5s",
		"BFF_UPSTREAM_SERVICE_TOKEN": "svc-token",
		"BFF_PSP_STRIPE_API_KEY":     "sk_test_123",
		"BFF_FEATURE_REVIEWS":        "false",
		"BFF_FEATURE_FAVORITES":      "true",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("unexpected port: %s", cfg.Server.Port)
	}
	if cfg.Server.WriteTimeout != 25*time.Second {
		t.Errorf("unexpected write timeout: %s", cfg.Server.WriteTimeout)
	}
	if cfg.Upstream.Timeout != 5*time.Second {
		t.Errorf("unexpected upstream timeout: %s", cfg.Upstream.Timeout)
	}
	if cfg.Upstream.ServiceToken != "svc-token" {
		t.Errorf("unexpected service token: %s", cfg.Upstream.ServiceToken)
	}
	if cfg.PSP.StripeAPIKey != "sk_test_123" {
		t.Errorf("unexpected stripe key: %s", cfg.PSP.StripeAPIKey)
	}
	if cfg.Features.EnableReviews {
		t.Error("expected reviews disabled")
	}
}

func TestLoadValidatesUpstream(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"missing base url", map[string]string{}},
		{"relative base url", map[string]string{"BFF_UPSTREAM_BASE_URL": "/api"}},
		{"zero timeout", map[string]string{
			"BFF_UPSTREAM_BASE_URL": "https://api.momiji-market.jp",
			"BFF_UPSTREAM_TIMEOUT":  "0s",
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(context.Background(), WithEnvMap(tc.env), WithoutSystemEnv(), WithEnvFile(""))
			var validation *ValidationError
			if !errors.As(err, &validation) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	contents := "# local overrides\nexport BFF_UPSTREAM_BASE_URL=\"https://staging.momiji-market.jp\"\nBFF_SERVER_PORT=7070\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(path))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Upstream.BaseURL != "https://staging.momiji-market.jp" {
		t.Errorf("unexpected base url: %s", cfg.Upstream.BaseURL)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("unexpected port: %s", cfg.Server.Port)
	}
}

func TestEnvMapTakesPrecedenceOverDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("BFF_SERVER_PORT=7070\nBFF_UPSTREAM_BASE_URL=https://a.example.com\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, err := Load(context.Background(),
		WithEnvMap(map[string]string{"BFF_SERVER_PORT": "9999"}),
		WithoutSystemEnv(),
		WithEnvFile(path),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "9999" {
		t.Errorf("explicit map must win, got %s", cfg.Server.Port)
	}
}

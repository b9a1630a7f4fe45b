//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	t.Setenv("VERIFYCTL_API_KEY", "")
	cfg, err := Parse([]byte("api:\n  base_url: https://verify.example.com\n"), false)
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if cfg.API.ProtectedPrefix != "/api/v1/" {
		t.Errorf("expected default protected prefix, got %q", cfg.API.ProtectedPrefix)
	}
	if cfg.API.RequestTimeout != 0 {
		t.Errorf("expected no request timeout by default, got %s", cfg.API.RequestTimeout)
	}
	if cfg.Credentials.Persistence != "ephemeral" {
		t.Errorf("expected ephemeral persistence, got %q", cfg.Credentials.Persistence)
	}
	if cfg.Reconcile.SettleDelay != 5*time.Second {
		t.Errorf("expected 5s settle delay, got %s", cfg.Reconcile.SettleDelay)
	}
	if cfg.Reconcile.PollInterval != 0 {
		t.Errorf("expected polling disabled, got %s", cfg.Reconcile.PollInterval)
	}
	if cfg.Redis.TTL != time.Hour {
		t.Errorf("expected redis ttl 1h, got %s", cfg.Redis.TTL)
	}
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing base url", "log:\n  level: debug\n", "api.base_url is required"},
		{"redis backend without url", "api:\n  base_url: https://x.test\ncredentials:\n  backend: redis\n", "redis.url is required"},
		{"unknown cache backend", "api:\n  base_url: https://x.test\ncache:\n  backend: etcd\n", "not supported"},
		{"short seal key", "api:\n  base_url: https://x.test\ncredentials:\n  seal_key: abc\n", "seal_key must be 16, 24 or 32 bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), false)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "api:\n  base_url: https://verify.example.com\nreconcile:\n  settle_delay: 2s\n  poll_interval: 30s\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VERIFYCTL_API_KEY", "from-env")

	cfg, err := LoadConfig(path, true)
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if !cfg.Runtime.Dev {
		t.Error("expected dev runtime flag")
	}
	if cfg.Reconcile.SettleDelay != 2*time.Second || cfg.Reconcile.PollInterval != 30*time.Second {
		t.Errorf("unexpected reconcile config: %+v", cfg.Reconcile)
	}
	if cfg.Server.APIKey != "from-env" {
		t.Errorf("expected env api key override, got %q", cfg.Server.APIKey)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), false); err == nil {
		t.Fatal("expected error for missing file")
	}
}

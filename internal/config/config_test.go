package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

// isolate runs the test in an empty directory so no stray tickerview.yaml is read.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	Flags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return fs
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Client.BaseURL != "http://localhost:8000" {
		t.Errorf("unexpected base url %q", cfg.Client.BaseURL)
	}
	if cfg.Client.APIKey != "demo-key-123" {
		t.Errorf("unexpected api key %q", cfg.Client.APIKey)
	}
	if cfg.Client.Timeout != 15*time.Second {
		t.Errorf("unexpected timeout %s", cfg.Client.Timeout)
	}
	if cfg.Client.StrictStatus || cfg.Viewer.DiscardStale {
		t.Error("expected strict status and discard stale off by default")
	}
	if cfg.Viewer.Exchange != "binance" || cfg.Viewer.Symbol != "BTC/USDT" {
		t.Errorf("unexpected initial query %q %q", cfg.Viewer.Exchange, cfg.Viewer.Symbol)
	}
	if cfg.Log.Level != "info" || cfg.Log.File != "" {
		t.Errorf("unexpected log config %+v", cfg.Log)
	}
}

func TestLoadEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("TICKERVIEW_API_KEY", "secret")
	t.Setenv("TICKERVIEW_STRICT_STATUS", "true")
	t.Setenv("TICKERVIEW_TIMEOUT", "3s")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Client.APIKey != "secret" {
		t.Errorf("expected api key from env, got %q", cfg.Client.APIKey)
	}
	if !cfg.Client.StrictStatus {
		t.Error("expected strict status from env")
	}
	if cfg.Client.Timeout != 3*time.Second {
		t.Errorf("expected 3s timeout, got %s", cfg.Client.Timeout)
	}
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("TICKERVIEW_EXCHANGE", "kraken")
	t.Setenv("TICKERVIEW_SYMBOL", "ETH/EUR")

	cfg, err := Load(newFlags(t, "-e", "coinbase", "--discard-stale"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Viewer.Exchange != "coinbase" {
		t.Errorf("expected flag to win, got %q", cfg.Viewer.Exchange)
	}
	if cfg.Viewer.Symbol != "ETH/EUR" {
		t.Errorf("expected unset flag to fall back to env, got %q", cfg.Viewer.Symbol)
	}
	if !cfg.Viewer.DiscardStale {
		t.Error("expected discard stale from flag")
	}
}

func TestLoadConfigFile(t *testing.T) {
	isolate(t)
	body := "base_url: https://ticker.example.com\nsymbol: SOL/USDT\nlog_level: debug\n"
	if err := os.WriteFile("tickerview.yaml", []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Client.BaseURL != "https://ticker.example.com" {
		t.Errorf("unexpected base url %q", cfg.Client.BaseURL)
	}
	if cfg.Viewer.Symbol != "SOL/USDT" {
		t.Errorf("unexpected symbol %q", cfg.Viewer.Symbol)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("unexpected log level %q", cfg.Log.Level)
	}
}

func TestLoadExplicitConfigMissing(t *testing.T) {
	isolate(t)

	_, err := Load(newFlags(t, "--config", filepath.Join(t.TempDir(), "nope.yaml")))
	if err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	isolate(t)

	_, err := Load(newFlags(t, "--base-url", "ftp://example.com", "--timeout=-1s"))
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"base_url", "timeout"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got %v", want, err)
		}
	}
}

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PoolMaxTotal != 500 || cfg.PoolMaxPerRoute != 100 {
		t.Fatalf("pool defaults = %d/%d", cfg.PoolMaxTotal, cfg.PoolMaxPerRoute)
	}
	if cfg.RequestTimeout != 60*time.Second {
		t.Fatalf("RequestTimeout = %s", cfg.RequestTimeout)
	}
	if cfg.RunInterval != 0 {
		t.Fatalf("RunInterval = %s, want 0", cfg.RunInterval)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("POOL_MAX_TOTAL", "20")
	t.Setenv("POOL_MAX_PER_ROUTE", "5")
	t.Setenv("RUN_INTERVAL", "30")
	t.Setenv("HEADER_MATCH", "literal")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PoolMaxTotal != 20 || cfg.PoolMaxPerRoute != 5 {
		t.Fatalf("pool = %d/%d", cfg.PoolMaxTotal, cfg.PoolMaxPerRoute)
	}
	if cfg.RunInterval != 30*time.Second || cfg.HeaderMatch != "literal" {
		t.Fatalf("unexpected cfg %+v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"POOL_MAX_PER_ROUTE":      "1000",
		"REQUEST_TIMEOUT_SECONDS": "0",
		"HEADER_MATCH":            "exact",
		"RUN_INTERVAL":            "-1",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, val)
			}
		})
	}
}

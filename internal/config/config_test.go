package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NETCHESS_SERVER", "")
	t.Setenv("NETCHESS_DIAL_TIMEOUT", "")
	t.Setenv("NETCHESS_TICK", "")
	t.Setenv("NETCHESS_LOG", "")

	cfg := Load()
	if cfg.ServerAddr != DefaultServerAddr {
		t.Fatalf("server: got %q", cfg.ServerAddr)
	}
	if cfg.DialTimeout != 10*time.Second {
		t.Fatalf("dial timeout: got %v", cfg.DialTimeout)
	}
	if cfg.LogFile != "netchess.log" {
		t.Fatalf("log file: got %q", cfg.LogFile)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("NETCHESS_SERVER", "relay.example:7000")
	t.Setenv("NETCHESS_DIAL_TIMEOUT", "3s")
	t.Setenv("NETCHESS_TICK", "not-a-duration")

	cfg := Load()
	if cfg.ServerAddr != "relay.example:7000" {
		t.Fatalf("server: got %q", cfg.ServerAddr)
	}
	if cfg.DialTimeout != 3*time.Second {
		t.Fatalf("dial timeout: got %v", cfg.DialTimeout)
	}
	if cfg.Tick != 30*time.Millisecond {
		t.Fatalf("bad tick must keep the default, got %v", cfg.Tick)
	}
}

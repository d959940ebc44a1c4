// Package config reads process configuration from the environment, with a
// .env file honored when present.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// DefaultServerAddr is used when neither flag nor environment names a
// relay.
const DefaultServerAddr = "127.0.0.1:6000"

type Config struct {
	ServerAddr  string
	DialTimeout time.Duration
	Tick        time.Duration
	LogFile     string
}

// Load fills in defaults and then applies NETCHESS_* overrides. Values
// that fail to parse fall back to the default rather than aborting.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		ServerAddr:  DefaultServerAddr,
		DialTimeout: 10 * time.Second,
		Tick:        30 * time.Millisecond,
		LogFile:     "netchess.log",
	}

	if v := os.Getenv("NETCHESS_SERVER"); v != "" {
		cfg.ServerAddr = v
	}
	if v := os.Getenv("NETCHESS_LOG"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("NETCHESS_DIAL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.DialTimeout = d
		}
	}
	if v := os.Getenv("NETCHESS_TICK"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Tick = d
		}
	}
	return cfg
}

// Package config reads the environment-driven tunables named in the
// spec: the upstream API base URL and the query fan-out parameters.
// CLI flags (bind host/port, data directory) are owned by cmd/kia-live
// via cobra; these are the handful of knobs the spec says are read
// from the environment directly, matching the original service's
// os.getenv-based config.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	DefaultQueryInterval = 5 * time.Minute
	DefaultQueryAmount   = 2
	DefaultBindHost      = "0.0.0.0"
	DefaultPort          = 59966
	DefaultPollInterval  = 20 * time.Second
	MaxEmptyTries        = 2
	MatchWindow          = 2 * time.Minute
)

// Config holds the tunables read from the environment.
type Config struct {
	// UpstreamBaseURL is KIA_BMTC_API_URL, e.g.
	// https://bmtcmobileapi.karnataka.gov.in/WebAPI
	UpstreamBaseURL string

	// QueryInterval is KIA_QUERY_INTERVAL (minutes), the spacing
	// between polling opportunities fanned out around a trip's
	// scheduled start.
	QueryInterval time.Duration

	// QueryAmount is KIA_QUERY_AMOUNT, the number of probes before
	// (and after) the scheduled start; 2*QueryAmount+1 total.
	QueryAmount int
}

// FromEnv reads KIA_BMTC_API_URL, KIA_QUERY_INTERVAL and
// KIA_QUERY_AMOUNT, applying the spec's defaults when unset.
func FromEnv() (Config, error) {
	cfg := Config{
		UpstreamBaseURL: os.Getenv("KIA_BMTC_API_URL"),
		QueryInterval:   DefaultQueryInterval,
		QueryAmount:     DefaultQueryAmount,
	}

	if cfg.UpstreamBaseURL == "" {
		return Config{}, fmt.Errorf("KIA_BMTC_API_URL is required")
	}

	if v := os.Getenv("KIA_QUERY_INTERVAL"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parsing KIA_QUERY_INTERVAL: %w", err)
		}
		cfg.QueryInterval = time.Duration(minutes) * time.Minute
	}

	if v := os.Getenv("KIA_QUERY_AMOUNT"); v != "" {
		amount, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parsing KIA_QUERY_AMOUNT: %w", err)
		}
		cfg.QueryAmount = amount
	}

	return cfg, nil
}

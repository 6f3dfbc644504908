// MIT License
//
// Copyright (c) 2024-2026 CoordKit Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package config reads the coordination layer's settings from the
// environment at startup.
package config

import (
	"time"

	"github.com/coordkit/coordkit/internal/validation"
)

// Config is the startup configuration of the coordination layer.
type Config struct {
	// StoreAddresses lists the shared store endpoints.
	StoreAddresses []string
	// ClusterEnabled switches the store client to cluster mode.
	ClusterEnabled bool
	// StoreUsername and StorePassword are the optional store credentials.
	StoreUsername string
	StorePassword string
	// StoreDB selects the logical database. Ignored in cluster mode.
	StoreDB int
	// KeyPrefix namespaces every key written by this layer.
	KeyPrefix string
	// DefaultLockTTL is the lease duration used when an acquisition does
	// not specify one.
	DefaultLockTTL time.Duration
	// MaxRetries caps attempts against transient store errors.
	MaxRetries int
	// RetryBackoff is the base delay of the exponential retry backoff.
	RetryBackoff time.Duration
	// ReplicaReads routes reads to replicas in cluster mode.
	ReplicaReads bool
	// HealthInterval is the period of the background health runs.
	HealthInterval time.Duration
}

var _ validation.Validator = (*Config)(nil)

// Load reads the configuration from the environment, applying defaults
// for everything left unset.
func Load() (*Config, error) {
	cfg := &Config{
		StoreAddresses: getenvList("COORD_STORE_ADDRESSES", []string{"localhost:6379"}),
		ClusterEnabled: getenvBool("COORD_CLUSTER_ENABLED", false),
		StoreUsername:  getenvDefault("COORD_STORE_USERNAME", ""),
		StorePassword:  getenvDefault("COORD_STORE_PASSWORD", ""),
		StoreDB:        getenvInt("COORD_STORE_DB", 0),
		KeyPrefix:      getenvDefault("COORD_KEY_PREFIX", "coordkit:"),
		DefaultLockTTL: getenvDuration("COORD_LOCK_TTL", time.Minute),
		MaxRetries:     getenvInt("COORD_MAX_RETRIES", 3),
		RetryBackoff:   getenvDuration("COORD_RETRY_BACKOFF", 100*time.Millisecond),
		ReplicaReads:   getenvBool("COORD_REPLICA_READS", false),
		HealthInterval: getenvDuration("COORD_HEALTH_INTERVAL", 30*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks whether the configuration is usable.
func (c *Config) Validate() error {
	return validation.New().
		AddAssertion(len(c.StoreAddresses) > 0, "at least one store address is required").
		AddAssertion(c.StoreDB >= 0, "the store DB must not be negative").
		AddAssertion(c.DefaultLockTTL > 0, "the default lock TTL must be positive").
		AddAssertion(c.MaxRetries >= 1, "the retry count must be at least 1").
		AddAssertion(c.RetryBackoff > 0, "the retry backoff must be positive").
		AddAssertion(c.HealthInterval > 0, "the health interval must be positive").
		Validate()
}

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

// Package coordinator wires the coordination primitives into one
// explicitly constructed, dependency-injected unit whose lifecycle is
// owned by the host process's startup and teardown sequence.
package coordinator

import (
	"context"

	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/coordkit/coordkit/breaker"
	"github.com/coordkit/coordkit/config"
	"github.com/coordkit/coordkit/health"
	"github.com/coordkit/coordkit/internal/syncmap"
	"github.com/coordkit/coordkit/lock"
	"github.com/coordkit/coordkit/log"
	"github.com/coordkit/coordkit/state"
	"github.com/coordkit/coordkit/store"
)

const storeCheckName = "store"

// Coordinator owns the store client, lock manager, state store, health
// checker and a per-dependency breaker registry.
type Coordinator struct {
	cfg    *config.Config
	logger log.Logger

	client   store.Client
	locks    *lock.Manager
	state    *state.Store
	health   *health.Checker
	breakers *syncmap.SyncMap[string, *breaker.CircuitBreaker]

	started *atomic.Bool
}

// Option is the functional option of the coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger shared by every component.
func WithLogger(logger log.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithClient injects a store client, overriding the one built from the
// configuration. Intended for tests with fakes.
func WithClient(client store.Client) Option {
	return func(c *Coordinator) { c.client = client }
}

// New creates a coordinator from the given configuration. Nothing
// connects until Connect is called.
func New(cfg *config.Config, opts ...Option) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Coordinator{
		cfg:      cfg,
		logger:   log.DefaultLogger,
		breakers: syncmap.New[string, *breaker.CircuitBreaker](),
		started:  atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.client == nil {
		client, err := store.NewRedis(&store.Config{
			Addresses:      cfg.StoreAddresses,
			Username:       cfg.StoreUsername,
			Password:       cfg.StorePassword,
			DB:             cfg.StoreDB,
			ClusterEnabled: cfg.ClusterEnabled,
			ReplicaReads:   cfg.ReplicaReads,
		}, store.WithLogger(c.logger))
		if err != nil {
			return nil, err
		}
		c.client = client
	}

	c.locks = lock.NewManager(c.client,
		lock.WithKeyPrefix(cfg.KeyPrefix),
		lock.WithDefaultTTL(cfg.DefaultLockTTL),
		lock.WithMaxRetries(cfg.MaxRetries),
		lock.WithRetryBackoff(cfg.RetryBackoff),
		lock.WithLogger(c.logger))

	c.state = state.NewStore(c.client,
		state.WithKeyPrefix(cfg.KeyPrefix),
		state.WithMaxRetries(cfg.MaxRetries),
		state.WithRetryBackoff(cfg.RetryBackoff),
		state.WithLogger(c.logger))

	c.health = health.NewChecker(
		health.WithInterval(cfg.HealthInterval),
		health.WithLogger(c.logger))
	c.health.AddCheck(storeCheckName, health.StorePing(c.client), 0, true)

	return c, nil
}

// Connect establishes the store connection and starts the periodic
// health runs. A failed initial connection is returned to the host,
// which decides whether that is fatal.
func (c *Coordinator) Connect(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return nil
	}
	if err := c.client.Connect(ctx); err != nil {
		c.started.Store(false)
		return err
	}
	c.health.StartPeriodic()
	c.logger.Info("coordinator started")
	return nil
}

// Shutdown stops the health runs, best-effort releases every held
// lease, then disconnects from the store.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	if !c.started.CompareAndSwap(true, false) {
		return nil
	}

	c.health.StopPeriodic()
	err := c.locks.ReleaseAll(ctx)
	err = multierr.Append(err, c.client.Disconnect(ctx))
	c.logger.Info("coordinator stopped")
	return err
}

// Locks returns the lock manager.
func (c *Coordinator) Locks() *lock.Manager { return c.locks }

// State returns the state store.
func (c *Coordinator) State() *state.Store { return c.state }

// Health returns the health checker.
func (c *Coordinator) Health() *health.Checker { return c.health }

// Store returns the underlying store client.
func (c *Coordinator) Store() store.Client { return c.client }

// Breaker returns the circuit breaker guarding the given dependency,
// creating it on first use. Breakers are independent: one per name.
func (c *Coordinator) Breaker(name string, opts ...breaker.Option) *breaker.CircuitBreaker {
	if cb, ok := c.breakers.Get(name); ok {
		return cb
	}
	cb, _ := c.breakers.GetOrSet(name, breaker.New(name, opts...))
	return cb
}

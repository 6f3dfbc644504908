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

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/atomic"

	"github.com/coordkit/coordkit/internal/syncmap"
	"github.com/coordkit/coordkit/log"
)

// Redis implements Client on top of a Redis standalone node or cluster.
// Atomicity of Eval is provided by Redis' single-threaded Lua execution.
type Redis struct {
	config    *Config
	client    redis.UniversalClient
	logger    log.Logger
	connected *atomic.Bool
	scripts   *syncmap.SyncMap[string, *redis.Script]
}

// enforce compilation and linter error
var _ Client = (*Redis)(nil)

// RedisOption configures the Redis client.
type RedisOption func(*Redis)

// WithLogger sets the logger.
func WithLogger(logger log.Logger) RedisOption {
	return func(r *Redis) { r.logger = logger }
}

// NewRedis creates a Redis store client from the given configuration.
// The client is not connected until Connect is called.
func NewRedis(config *Config, opts ...RedisOption) (*Redis, error) {
	config.Sanitize()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	r := &Redis{
		config:    config,
		logger:    log.DefaultLogger,
		connected: atomic.NewBool(false),
		scripts:   syncmap.New[string, *redis.Script](),
	}

	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Connect establishes the connection and verifies it with a ping. A
// failed initial ping leaves the client disconnected.
func (r *Redis) Connect(ctx context.Context) error {
	if r.connected.Load() {
		return nil
	}

	if r.config.ClusterEnabled {
		options := &redis.ClusterOptions{
			Addrs:    r.config.Addresses,
			Username: r.config.Username,
			Password: r.config.Password,
		}
		if r.config.ReplicaReads {
			options.ReadOnly = true
			options.RouteRandomly = true
		}
		r.client = redis.NewClusterClient(options)
	} else {
		r.client = redis.NewClient(&redis.Options{
			Addr:     r.config.Addresses[0],
			Username: r.config.Username,
			Password: r.config.Password,
			DB:       r.config.DB,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.ConnectTimeout)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		_ = r.client.Close()
		r.client = nil
		return fmt.Errorf("failed to connect to the store: %w", err)
	}

	r.connected.Store(true)
	r.logger.Infof("connected to store at %v", r.config.Addresses)
	return nil
}

// Disconnect releases the underlying connections.
func (r *Redis) Disconnect(context.Context) error {
	if !r.connected.CompareAndSwap(true, false) {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	r.logger.Info("store client disconnected")
	return err
}

// Ping verifies the store is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	if !r.connected.Load() {
		return ErrNotConnected
	}
	return r.client.Ping(ctx).Err()
}

// Get returns the value stored under key.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	if !r.connected.Load() {
		return nil, ErrNotConnected
	}
	value, err := r.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrKeyNotFound
	case err != nil:
		return nil, err
	}
	return value, nil
}

// Set writes the value under key with the given ttl.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !r.connected.Load() {
		return ErrNotConnected
	}
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Delete removes the key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if !r.connected.Load() {
		return ErrNotConnected
	}
	return r.client.Del(ctx, key).Err()
}

// Keys enumerates keys matching the given pattern using SCAN.
func (r *Redis) Keys(ctx context.Context, pattern string) ([]string, error) {
	if !r.connected.Load() {
		return nil, ErrNotConnected
	}

	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

// Eval runs a Lua script atomically. Scripts are cached and executed by
// digest, falling back to a full EVAL when the store has not seen the
// script yet.
func (r *Redis) Eval(ctx context.Context, script string, keys []string, args ...any) (any, error) {
	if !r.connected.Load() {
		return nil, ErrNotConnected
	}

	cached, ok := r.scripts.Get(script)
	if !ok {
		cached, _ = r.scripts.GetOrSet(script, redis.NewScript(script))
	}
	return cached.Run(ctx, r.client, keys, args...).Result()
}

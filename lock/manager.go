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

// Package lock implements a lease-based distributed lock manager over
// the shared store. Mutual exclusion is enforced by atomic server-side
// scripts; leases expire unless renewed, so a crashed owner blocks
// others for at most one TTL.
package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/coordkit/coordkit/internal/syncmap"
	"github.com/coordkit/coordkit/internal/ticker"
	"github.com/coordkit/coordkit/store"
)

const keyCategory = "lock:"

// Manager grants time-bounded, ownership-verified exclusive leases.
// First writer wins; there is no queueing or fairness guarantee, so
// callers that fail to acquire apply their own backoff.
//
// Renewal depends on this process staying alive and scheduled: a pause
// longer than the TTL lets another process legitimately seize the lease.
// Callers performing non-idempotent side effects re-verify with IsHeld
// or Info before any externally visible commit point.
type Manager struct {
	client   store.Client
	opts     *options
	owner    string
	renewals *syncmap.SyncMap[string, *renewal]
}

// renewal is the bookkeeping of one held lease.
type renewal struct {
	kind   Kind
	ttl    time.Duration
	ticker *ticker.Ticker
	stop   chan struct{}
	once   sync.Once
}

// cancel stops the renewal loop. Safe to call multiple times; returns
// only after no further renew attempt can be issued.
func (r *renewal) cancel() {
	r.once.Do(func() {
		r.ticker.Stop()
		close(r.stop)
	})
}

// NewManager creates a lock manager over the given store client.
// The owner token is fixed for the manager's lifetime: instance
// identity, process id and creation time.
func NewManager(client store.Client, opts ...Option) *Manager {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	o.Sanitize()

	instanceID := o.instanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}

	return &Manager{
		client:   client,
		opts:     o,
		owner:    instanceID + ":" + strconv.Itoa(os.Getpid()) + ":" + strconv.FormatInt(o.clock().UnixMilli(), 10),
		renewals: syncmap.New[string, *renewal](),
	}
}

// Owner returns the opaque owner token of this manager instance.
func (m *Manager) Owner() string { return m.owner }

// Acquire attempts to take the lease on key. Exactly one of N
// concurrent callers with distinct owners receives StatusAcquired; a
// repeat call by the same manager receives StatusAlreadyHeld with the
// expiry refreshed. Transient store errors are retried with bounded
// exponential backoff; a context cut short maps to StatusTimeout.
func (m *Manager) Acquire(ctx context.Context, key string, kind Kind, opts ...AcquireOption) (Status, error) {
	cfg := &acquireOptions{ttl: m.opts.defaultTTL}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.ttl <= 0 {
		cfg.ttl = m.opts.defaultTTL
	}

	now := m.opts.clock()
	record := &Record{
		Key:        key,
		Owner:      m.owner,
		AcquiredAt: now.UnixMilli(),
		ExpiresAt:  now.Add(cfg.ttl).UnixMilli(),
		Kind:       kind,
		Metadata:   cfg.metadata,
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return StatusFailed, fmt.Errorf("failed to encode lock record: %w", err)
	}

	var outcome int64
	retrier := retry.NewRetrier(m.opts.maxRetries, m.opts.retryBackoff, m.opts.maxRetryBackoff)
	err = retrier.RunContext(ctx, func(ctx context.Context) error {
		result, err := m.client.Eval(ctx, acquireScript, []string{m.storageKey(key)},
			m.owner, payload, cfg.ttl.Milliseconds(), record.ExpiresAt, now.UnixMilli())
		if err != nil {
			return err
		}
		outcome = asInt64(result)
		return nil
	})

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return StatusTimeout, err
	case err != nil:
		return StatusFailed, fmt.Errorf("failed to acquire lock on [%s]: %w", key, err)
	}

	switch outcome {
	case 1:
		m.startRenewal(key, kind, cfg.ttl)
		m.opts.logger.Infof("lease on [%s] acquired by [%s]", key, m.owner)
		return StatusAcquired, nil
	case 2:
		m.startRenewal(key, kind, cfg.ttl)
		return StatusAlreadyHeld, nil
	default:
		return StatusFailed, nil
	}
}

// Release drops the lease on key. The renewal loop is cancelled before
// the delete script runs so a renewal can never fire after release.
// Releasing a lease held by another owner returns false, not an error.
func (m *Manager) Release(ctx context.Context, key string) (bool, error) {
	if ren, ok := m.renewals.GetAndDelete(key); ok {
		ren.cancel()
	}

	var outcome int64
	retrier := retry.NewRetrier(m.opts.maxRetries, m.opts.retryBackoff, m.opts.maxRetryBackoff)
	err := retrier.RunContext(ctx, func(ctx context.Context) error {
		result, err := m.client.Eval(ctx, releaseScript, []string{m.storageKey(key)}, m.owner)
		if err != nil {
			return err
		}
		outcome = asInt64(result)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to release lock on [%s]: %w", key, err)
	}

	if outcome == 1 {
		m.opts.logger.Infof("lease on [%s] released by [%s]", key, m.owner)
		return true, nil
	}
	return false, nil
}

// Info returns the current lock record for key. A record whose expiry
// has passed is reported as absent even when not yet evicted. The read
// may be served by a replica.
func (m *Manager) Info(ctx context.Context, key string) (*Record, bool, error) {
	value, err := m.client.Get(ctx, m.storageKey(key))
	switch {
	case errors.Is(err, store.ErrKeyNotFound):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}

	record := new(Record)
	if err := json.Unmarshal(value, record); err != nil {
		return nil, false, fmt.Errorf("failed to decode lock record for [%s]: %w", key, err)
	}
	if record.Expired(m.opts.clock()) {
		return nil, false, nil
	}
	return record, true, nil
}

// IsHeld reports whether this manager still believes it holds the lease
// on key. It turns false the moment a renewal discovers the lease was
// lost, so callers can re-verify before a non-idempotent commit.
func (m *Manager) IsHeld(key string) bool {
	_, ok := m.renewals.Get(key)
	return ok
}

// ReleaseAll best-effort releases every lease this manager still holds
// and cancels all renewal loops. Intended for process shutdown so
// orphaned leases do not block others for a full TTL.
func (m *Manager) ReleaseAll(ctx context.Context) error {
	var combined error
	for _, key := range m.renewals.Keys() {
		if _, err := m.Release(ctx, key); err != nil {
			combined = multierr.Append(combined, err)
		}
	}
	return combined
}

// startRenewal ensures exactly one renewal loop runs for the key,
// firing at two thirds of the TTL.
func (m *Manager) startRenewal(key string, kind Kind, ttl time.Duration) {
	interval := ttl * 2 / 3
	if interval <= 0 {
		interval = ttl
	}

	ren := &renewal{
		kind:   kind,
		ttl:    ttl,
		ticker: ticker.New(interval),
		stop:   make(chan struct{}),
	}
	if _, loaded := m.renewals.GetOrSet(key, ren); loaded {
		return
	}

	ren.ticker.Start()
	go m.runRenewal(key, ren)
}

// runRenewal extends the lease until the lease is lost or cancelled.
// A single failed attempt is logged and retried on the next tick; an
// ownership mismatch stops the loop for good.
func (m *Manager) runRenewal(key string, ren *renewal) {
	for {
		select {
		case <-ren.ticker.Ticks:
			ctx, cancel := context.WithTimeout(context.Background(), m.opts.operationTimeout)
			renewed, err := m.renewOnce(ctx, key, ren.ttl)
			cancel()

			switch {
			case err != nil:
				m.opts.logger.Warnf("failed to renew lease on [%s]: %v", key, err)
			case !renewed:
				m.opts.logger.Warnf("lease on [%s] lost to another owner", key)
				m.renewals.Delete(key)
				ren.cancel()
				return
			default:
				m.opts.logger.Debugf("lease on [%s] renewed", key)
			}
		case <-ren.stop:
			return
		}
	}
}

func (m *Manager) renewOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	expiresAt := m.opts.clock().Add(ttl).UnixMilli()
	result, err := m.client.Eval(ctx, renewScript, []string{m.storageKey(key)},
		m.owner, expiresAt, ttl.Milliseconds())
	if err != nil {
		return false, err
	}
	return asInt64(result) == 1, nil
}

func (m *Manager) storageKey(key string) string {
	return m.opts.keyPrefix + keyCategory + key
}

func asInt64(value any) int64 {
	switch v := value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

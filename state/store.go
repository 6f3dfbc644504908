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

// Package state persists structured application state in the shared
// store: JSON envelopes with writer identity and versioning metadata,
// transparently compressed above a size threshold, expiring after a
// retention window unless refreshed by a write.
//
// No read-modify-write primitive is provided; callers needing atomic
// updates hold a lock around a Get+Set sequence or use the recorded
// version for optimistic checks.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/flowchartsman/retry"
	"github.com/google/uuid"

	"github.com/coordkit/coordkit/internal/compression"
	"github.com/coordkit/coordkit/store"
)

// Store reads and writes state records. Writes surface to the caller
// only after bounded retries with backoff; there are no silent partial
// writes.
type Store struct {
	client     store.Client
	opts       *options
	instanceID string
}

// NewStore creates a state store over the given store client.
func NewStore(client store.Client, opts ...Option) *Store {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	o.Sanitize()

	instanceID := o.instanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}

	return &Store{
		client:     client,
		opts:       o,
		instanceID: instanceID,
	}
}

// Set serializes value, wraps it in an envelope and writes it under id,
// refreshing the retention window. Payloads at or above the compression
// threshold are compressed and flagged as such.
func (s *Store) Set(ctx context.Context, id string, value any, opts ...SetOption) error {
	cfg := &setOptions{version: 1}
	for _, opt := range opts {
		opt(cfg)
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode state payload for [%s]: %w", id, err)
	}

	compressed := len(payload) >= s.opts.compressThreshold
	if compressed {
		payload = compression.Compress(payload)
	}

	env := &envelope{
		ID:         id,
		Version:    cfg.version,
		InstanceID: s.instanceID,
		UpdatedAt:  s.opts.clock().UnixMilli(),
		Compressed: compressed,
		Payload:    payload,
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode state envelope for [%s]: %w", id, err)
	}

	retrier := retry.NewRetrier(s.opts.maxRetries, s.opts.retryBackoff, s.opts.maxRetryBackoff)
	err = retrier.RunContext(ctx, func(ctx context.Context) error {
		return s.client.Set(ctx, s.storageKey(id), data, s.opts.retention)
	})
	if err != nil {
		return fmt.Errorf("failed to persist state for [%s]: %w", id, err)
	}

	s.opts.logger.Debugf("state [%s] persisted (%d bytes, compressed=%t)", id, len(data), compressed)
	return nil
}

// Get reads the record stored under id into target and returns its
// envelope metadata. An absent record and an expired one are
// indistinguishable: both yield found=false. The read may be served by
// a replica, which can lag the primary.
func (s *Store) Get(ctx context.Context, id string, target any) (*Meta, bool, error) {
	data, err := s.client.Get(ctx, s.storageKey(id))
	switch {
	case errors.Is(err, store.ErrKeyNotFound):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}

	env := new(envelope)
	if err := json.Unmarshal(data, env); err != nil {
		return nil, false, fmt.Errorf("failed to decode state envelope for [%s]: %w", id, err)
	}

	payload := env.Payload
	if env.Compressed {
		if payload, err = compression.Decompress(payload); err != nil {
			return nil, false, fmt.Errorf("failed to decompress state payload for [%s]: %w", id, err)
		}
	}

	if err := json.Unmarshal(payload, target); err != nil {
		return nil, false, fmt.Errorf("failed to decode state payload for [%s]: %w", id, err)
	}
	return env.meta(), true, nil
}

// Delete removes the record stored under id.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.client.Delete(ctx, s.storageKey(id))
}

// SetDeployment writes deployment state under the deployment namespace.
func (s *Store) SetDeployment(ctx context.Context, id string, value any, opts ...SetOption) error {
	return s.Set(ctx, "deployment:"+id, value, opts...)
}

// GetDeployment reads deployment state written by SetDeployment.
func (s *Store) GetDeployment(ctx context.Context, id string, target any) (*Meta, bool, error) {
	return s.Get(ctx, "deployment:"+id, target)
}

// SetExperiment writes experiment state under the experiment namespace.
func (s *Store) SetExperiment(ctx context.Context, id string, value any, opts ...SetOption) error {
	return s.Set(ctx, "experiment:"+id, value, opts...)
}

// GetExperiment reads experiment state written by SetExperiment.
func (s *Store) GetExperiment(ctx context.Context, id string, target any) (*Meta, bool, error) {
	return s.Get(ctx, "experiment:"+id, target)
}

func (s *Store) storageKey(id string) string {
	return s.opts.keyPrefix + id
}

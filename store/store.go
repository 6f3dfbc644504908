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

// Package store abstracts the shared key-value store every coordination
// primitive is built on. The store must offer per-key atomic server-side
// script execution; everything above it (locks, state records) relies on
// that guarantee instead of in-process synchronization.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrKeyNotFound is returned by Get when the key is absent or expired.
	ErrKeyNotFound = errors.New("key not found")

	// ErrNotConnected is returned when an operation is attempted before
	// Connect or after Disconnect.
	ErrNotConnected = errors.New("store client is not connected")

	// ErrAddressesRequired is returned when no store address is configured.
	ErrAddressesRequired = errors.New("at least one store address is required")
)

// Client defines the shared store contract. Implementations must make
// Eval atomic: a script runs as one unit with no partial writes
// observable by concurrent callers.
type Client interface {
	// Connect establishes the initial connection and verifies it with a ping.
	Connect(ctx context.Context) error
	// Disconnect releases the underlying connections.
	Disconnect(ctx context.Context) error
	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
	// Get returns the value stored under key. Absent or expired keys
	// yield ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set writes the value under key. A positive ttl bounds the record's
	// lifetime; a zero ttl stores the record without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys enumerates keys matching the given pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)
	// Eval runs a server-side script atomically against the given keys.
	Eval(ctx context.Context, script string, keys []string, args ...any) (any, error)
}

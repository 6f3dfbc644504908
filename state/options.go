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

package state

import (
	"time"

	"github.com/coordkit/coordkit/log"
)

// options configures the state store.
type options struct {
	keyPrefix         string
	retention         time.Duration
	compressThreshold int
	maxRetries        int
	retryBackoff      time.Duration
	maxRetryBackoff   time.Duration
	instanceID        string
	logger            log.Logger
	clock             func() time.Time
}

// Sanitize adjusts invalid options to their default values.
func (o *options) Sanitize() {
	if o.retention <= 0 {
		o.retention = 24 * time.Hour
	}
	if o.compressThreshold <= 0 {
		o.compressThreshold = 1 << 20
	}
	if o.maxRetries < 1 {
		o.maxRetries = 3
	}
	if o.retryBackoff <= 0 {
		o.retryBackoff = 100 * time.Millisecond
	}
	if o.maxRetryBackoff <= 0 {
		o.maxRetryBackoff = 2 * time.Second
	}
	if o.logger == nil {
		o.logger = log.DefaultLogger
	}
	if o.clock == nil {
		o.clock = time.Now
	}
}

func defaultOptions() *options {
	return &options{
		keyPrefix:         "coordkit:",
		retention:         24 * time.Hour,
		compressThreshold: 1 << 20,
		maxRetries:        3,
		retryBackoff:      100 * time.Millisecond,
		maxRetryBackoff:   2 * time.Second,
		logger:            log.DefaultLogger,
		clock:             time.Now,
	}
}

// Option is the functional option of the state store.
type Option func(*options)

// WithKeyPrefix sets the namespace prefix of every stored state key.
func WithKeyPrefix(prefix string) Option { return func(o *options) { o.keyPrefix = prefix } }

// WithRetention sets how long a record lives without being refreshed by
// a subsequent write.
func WithRetention(d time.Duration) Option { return func(o *options) { o.retention = d } }

// WithCompressThreshold sets the serialized size at and above which a
// payload is compressed before storage.
func WithCompressThreshold(n int) Option { return func(o *options) { o.compressThreshold = n } }

// WithMaxRetries sets the attempt ceiling for transient store errors.
func WithMaxRetries(n int) Option { return func(o *options) { o.maxRetries = n } }

// WithRetryBackoff sets the base delay of the exponential retry backoff.
func WithRetryBackoff(d time.Duration) Option { return func(o *options) { o.retryBackoff = d } }

// WithInstanceID sets the writer identity recorded in every envelope.
// A random identity is generated when unset.
func WithInstanceID(id string) Option { return func(o *options) { o.instanceID = id } }

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option { return func(o *options) { o.logger = logger } }

// WithClock sets a custom clock function. Useful for testing.
func WithClock(c func() time.Time) Option { return func(o *options) { o.clock = c } }

// setOptions configures a single write.
type setOptions struct {
	version int64
}

// SetOption is the functional option of one write.
type SetOption func(*setOptions)

// WithVersion records the caller-supplied version in the envelope.
// Versions are recorded, not enforced: the last writer wins.
func WithVersion(v int64) SetOption { return func(o *setOptions) { o.version = v } }

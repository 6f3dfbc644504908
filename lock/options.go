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

package lock

import (
	"time"

	"github.com/coordkit/coordkit/internal/validation"
	"github.com/coordkit/coordkit/log"
)

// options configures the lock manager.
type options struct {
	keyPrefix        string
	defaultTTL       time.Duration
	maxRetries       int
	retryBackoff     time.Duration
	maxRetryBackoff  time.Duration
	operationTimeout time.Duration // bounds background renewal round-trips
	instanceID       string
	logger           log.Logger
	clock            func() time.Time
}

var _ validation.Validator = (*options)(nil)

// Validate checks if the options are valid and returns an error if not
func (o *options) Validate() error {
	return validation.New().
		AddAssertion(o.defaultTTL > 0, "defaultTTL must be positive").
		AddAssertion(o.maxRetries >= 1, "maxRetries must be at least 1").
		AddAssertion(o.retryBackoff > 0, "retryBackoff must be positive").
		AddAssertion(o.operationTimeout > 0, "operationTimeout must be positive").
		Validate()
}

// Sanitize adjusts invalid options to their default values.
func (o *options) Sanitize() {
	if o.defaultTTL <= 0 {
		o.defaultTTL = time.Minute
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
	if o.operationTimeout <= 0 {
		o.operationTimeout = 5 * time.Second
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
		keyPrefix:        "coordkit:",
		defaultTTL:       time.Minute,
		maxRetries:       3,
		retryBackoff:     100 * time.Millisecond,
		maxRetryBackoff:  2 * time.Second,
		operationTimeout: 5 * time.Second,
		logger:           log.DefaultLogger,
		clock:            time.Now,
	}
}

// Option is the functional option of the lock manager.
type Option func(*options)

// WithKeyPrefix sets the namespace prefix of every stored lock key.
func WithKeyPrefix(prefix string) Option { return func(o *options) { o.keyPrefix = prefix } }

// WithDefaultTTL sets the lease duration used when an acquisition does
// not specify one.
func WithDefaultTTL(ttl time.Duration) Option { return func(o *options) { o.defaultTTL = ttl } }

// WithMaxRetries sets the attempt ceiling for transient store errors.
func WithMaxRetries(n int) Option { return func(o *options) { o.maxRetries = n } }

// WithRetryBackoff sets the base delay of the exponential retry backoff.
func WithRetryBackoff(d time.Duration) Option { return func(o *options) { o.retryBackoff = d } }

// WithOperationTimeout bounds the store round-trips issued by the
// renewal loops, which run outside any caller context.
func WithOperationTimeout(d time.Duration) Option { return func(o *options) { o.operationTimeout = d } }

// WithInstanceID sets the stable identity component of the owner token.
// A random identity is generated when unset.
func WithInstanceID(id string) Option { return func(o *options) { o.instanceID = id } }

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option { return func(o *options) { o.logger = logger } }

// WithClock sets a custom clock function. Useful for testing.
func WithClock(c func() time.Time) Option { return func(o *options) { o.clock = c } }

// acquireOptions configures a single acquisition attempt.
type acquireOptions struct {
	ttl      time.Duration
	metadata map[string]string
}

// AcquireOption is the functional option of one acquisition attempt.
type AcquireOption func(*acquireOptions)

// WithTTL overrides the manager's default lease duration.
func WithTTL(ttl time.Duration) AcquireOption { return func(o *acquireOptions) { o.ttl = ttl } }

// WithMetadata attaches caller-supplied informational attributes to the
// lock record.
func WithMetadata(metadata map[string]string) AcquireOption {
	return func(o *acquireOptions) { o.metadata = metadata }
}

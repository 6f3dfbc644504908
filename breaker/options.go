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

package breaker

import (
	"time"

	"github.com/coordkit/coordkit/internal/validation"
	"github.com/coordkit/coordkit/log"
)

// options configures the breaker.
type options struct {
	failureThreshold int           // consecutive failures before opening
	openTimeout      time.Duration // how long to stay open before the half-open trial
	expected         []error       // errors that do not count toward tripping
	clock            func() time.Time
	logger           log.Logger
}

var _ validation.Validator = (*options)(nil)

// Validate checks if the options are valid and returns an error if not
func (o *options) Validate() error {
	return validation.New().
		AddAssertion(o.failureThreshold >= 1, "failureThreshold must be at least 1").
		AddAssertion(o.openTimeout > 0, "openTimeout must be positive").
		AddAssertion(o.clock != nil, "clock function cannot be nil").
		Validate()
}

// Sanitize adjusts invalid options to their default values.
func (o *options) Sanitize() {
	if o.failureThreshold < 1 {
		o.failureThreshold = 5
	}
	if o.openTimeout <= 0 {
		o.openTimeout = 30 * time.Second
	}
	if o.clock == nil {
		o.clock = time.Now
	}
	if o.logger == nil {
		o.logger = log.DefaultLogger
	}
}

func defaultOptions() *options {
	return &options{
		failureThreshold: 5,
		openTimeout:      30 * time.Second,
		clock:            time.Now,
		logger:           log.DefaultLogger,
	}
}

// Option is the functional option.
type Option func(*options)

// WithFailureThreshold sets how many consecutive non-excluded failures
// trip the breaker open.
func WithFailureThreshold(n int) Option { return func(o *options) { o.failureThreshold = n } }

// WithOpenTimeout sets the duration the breaker remains open before the
// next call is allowed through as a half-open trial.
func WithOpenTimeout(d time.Duration) Option { return func(o *options) { o.openTimeout = d } }

// WithExpectedErrors sets the errors that are propagated to the caller
// without counting toward tripping. Matching uses errors.Is.
func WithExpectedErrors(errs ...error) Option { return func(o *options) { o.expected = errs } }

// WithClock sets a custom clock function for retrieving the current time.
// Useful for testing or overriding time behavior.
func WithClock(c func() time.Time) Option { return func(o *options) { o.clock = c } }

// WithBreakerLogger sets the logger.
func WithBreakerLogger(logger log.Logger) Option { return func(o *options) { o.logger = logger } }

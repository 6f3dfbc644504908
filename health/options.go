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

package health

import (
	"time"

	"github.com/coordkit/coordkit/log"
)

// options configures the health checker.
type options struct {
	defaultTimeout time.Duration
	interval       time.Duration
	logger         log.Logger
	clock          func() time.Time
}

// Sanitize adjusts invalid options to their default values.
func (o *options) Sanitize() {
	if o.defaultTimeout <= 0 {
		o.defaultTimeout = 5 * time.Second
	}
	if o.interval <= 0 {
		o.interval = 30 * time.Second
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
		defaultTimeout: 5 * time.Second,
		interval:       30 * time.Second,
		logger:         log.DefaultLogger,
		clock:          time.Now,
	}
}

// Option is the functional option of the health checker.
type Option func(*options)

// WithDefaultTimeout sets the timeout used for checks registered
// without one.
func WithDefaultTimeout(d time.Duration) Option { return func(o *options) { o.defaultTimeout = d } }

// WithInterval sets the period of the background check runs.
func WithInterval(d time.Duration) Option { return func(o *options) { o.interval = d } }

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option { return func(o *options) { o.logger = logger } }

// WithClock sets a custom clock function. Useful for testing.
func WithClock(c func() time.Time) Option { return func(o *options) { o.clock = c } }

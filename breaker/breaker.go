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

// Package breaker implements a per-dependency circuit breaker.
// Breakers are independent: one per named dependency, never sharing
// phase. State is in-process only and resets on restart.
package breaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// CircuitBreaker is a thread-safe circuit breaker wrapping calls to one
// named dependency. After failureThreshold consecutive failures it
// opens and fast-fails every call until the open timeout elapses; the
// next call then goes through as a half-open trial.
type CircuitBreaker struct {
	name string
	opts *options

	state       *atomic.Int32
	nextAttempt *atomic.Int64 // unix nano when Open ends
	trial       *atomic.Bool  // half-open trial slot

	consecutiveFailures *atomic.Uint64
	failures            *atomic.Uint64
	successes           *atomic.Uint64
	lastFailure         *atomic.Int64 // unix nano
	lastSuccess         *atomic.Int64 // unix nano

	mu sync.Mutex // guards transitions
}

// New constructs a circuit breaker for the given dependency name.
// Invalid option values are replaced with sensible defaults.
func New(name string, opts ...Option) *CircuitBreaker {
	o := defaultOptions()
	for _, fn := range opts {
		fn(o)
	}
	o.Sanitize()

	return &CircuitBreaker{
		name:                name,
		opts:                o,
		state:               atomic.NewInt32(int32(Closed)),
		nextAttempt:         atomic.NewInt64(0),
		trial:               atomic.NewBool(false),
		consecutiveFailures: atomic.NewUint64(0),
		failures:            atomic.NewUint64(0),
		successes:           atomic.NewUint64(0),
		lastFailure:         atomic.NewInt64(0),
		lastSuccess:         atomic.NewInt64(0),
	}
}

// NewWithValidation constructs a circuit breaker and rejects invalid options.
func NewWithValidation(name string, opts ...Option) (*CircuitBreaker, error) {
	o := defaultOptions()
	for _, fn := range opts {
		fn(o)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}

	cb := New(name)
	cb.opts = o
	return cb, nil
}

// Name returns the dependency name the breaker guards.
func (b *CircuitBreaker) Name() string { return b.name }

// State returns the current breaker state.
func (b *CircuitBreaker) State() State { return State(b.state.Load()) }

// Execute runs fn if the breaker allows it. When the breaker is open the
// call fails immediately with an error matching ErrOpen and fn is never
// invoked. A panic inside fn is recovered and surfaced as a failure.
func (b *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	if !b.tryAllow() {
		return nil, &rejectionError{name: b.name}
	}

	value, err := b.run(ctx, fn)
	if err != nil {
		if b.isExpected(err) {
			// propagated but never counted toward tripping
			b.releaseTrial()
			return value, err
		}
		b.onFailure()
		return value, err
	}

	b.onSuccess()
	return value, nil
}

// Metrics returns a snapshot of the breaker counters and state.
func (b *CircuitBreaker) Metrics() Metrics {
	m := Metrics{
		Name:                b.name,
		State:               b.State(),
		ConsecutiveFailures: b.consecutiveFailures.Load(),
		Failures:            b.failures.Load(),
		Successes:           b.successes.Load(),
	}
	if lf := b.lastFailure.Load(); lf > 0 {
		m.LastFailure = time.Unix(0, lf)
	}
	if ls := b.lastSuccess.Load(); ls > 0 {
		m.LastSuccess = time.Unix(0, ls)
	}
	if na := b.nextAttempt.Load(); na > 0 {
		m.NextAttempt = time.Unix(0, na)
	}
	return m
}

// Reset restores the breaker to Closed with zeroed counters.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Store(int32(Closed))
	b.nextAttempt.Store(0)
	b.trial.Store(false)
	b.consecutiveFailures.Store(0)
	b.failures.Store(0)
	b.successes.Store(0)
}

// ForceOpen trips the breaker open regardless of the counters.
func (b *CircuitBreaker) ForceOpen() {
	b.toOpen()
}

func (b *CircuitBreaker) run(ctx context.Context, fn func(context.Context) (any, error)) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn(ctx)
}

// tryAllow returns whether a call is permitted at this moment.
func (b *CircuitBreaker) tryAllow() bool {
	switch b.State() {
	case Closed:
		return true
	case Open:
		if b.opts.clock().UnixNano() < b.nextAttempt.Load() {
			return false
		}
		b.toHalfOpen()
		return b.trial.CompareAndSwap(false, true)
	default:
		// half-open: a single trial at a time
		return b.trial.CompareAndSwap(false, true)
	}
}

func (b *CircuitBreaker) onSuccess() {
	b.successes.Inc()
	b.consecutiveFailures.Store(0)
	b.lastSuccess.Store(b.opts.clock().UnixNano())
	if b.State() == HalfOpen {
		b.toClosed()
	}
}

func (b *CircuitBreaker) onFailure() {
	b.failures.Inc()
	count := b.consecutiveFailures.Inc()
	b.lastFailure.Store(b.opts.clock().UnixNano())

	if b.State() == HalfOpen || count >= uint64(b.opts.failureThreshold) {
		b.toOpen()
	}
}

func (b *CircuitBreaker) isExpected(err error) bool {
	for _, expected := range b.opts.expected {
		if errors.Is(err, expected) {
			return true
		}
	}
	return false
}

// releaseTrial frees the half-open trial slot without deciding the outcome.
func (b *CircuitBreaker) releaseTrial() {
	if b.State() == HalfOpen {
		b.trial.Store(false)
	}
}

func (b *CircuitBreaker) toOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextAttempt.Store(b.opts.clock().Add(b.opts.openTimeout).UnixNano())
	b.trial.Store(false)
	if b.state.Swap(int32(Open)) != int32(Open) {
		b.opts.logger.Warnf("circuit breaker [%s] is now open", b.name)
	}
}

func (b *CircuitBreaker) toHalfOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()
	// only an open breaker can move to half-open
	if b.state.CompareAndSwap(int32(Open), int32(HalfOpen)) {
		b.trial.Store(false)
		b.opts.logger.Infof("circuit breaker [%s] is now half-open", b.name)
	}
}

func (b *CircuitBreaker) toClosed() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trial.Store(false)
	b.nextAttempt.Store(0)
	if b.state.Swap(int32(Closed)) != int32(Closed) {
		b.opts.logger.Infof("circuit breaker [%s] is now closed", b.name)
	}
}

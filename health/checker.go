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

// Package health runs a registry of named dependency probes and
// aggregates them into one system-wide status: any failing critical
// check makes the system Unhealthy, any failing non-critical check
// makes it Degraded, and an empty registry reports Unknown.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/coordkit/coordkit/internal/syncmap"
	"github.com/coordkit/coordkit/internal/ticker"
)

// ErrCheckNotFound is returned by RunCheck for an unregistered name.
var ErrCheckNotFound = fmt.Errorf("health check not found")

// check is one registered probe.
type check struct {
	name     string
	fn       CheckFunc
	timeout  time.Duration
	critical bool
}

// Checker runs registered probes on demand and on a timer.
type Checker struct {
	opts   *options
	checks *syncmap.SyncMap[string, *check]

	mu   sync.RWMutex
	last *Report

	running  *atomic.Bool
	startMu  sync.Mutex
	interval *ticker.Ticker
	stop     chan struct{}
}

// NewChecker creates a health checker.
func NewChecker(opts ...Option) *Checker {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	o.Sanitize()

	return &Checker{
		opts:    o,
		checks:  syncmap.New[string, *check](),
		running: atomic.NewBool(false),
	}
}

// AddCheck registers a named probe. A zero timeout uses the checker's
// default; critical marks the probe as one whose failure alone forces
// the aggregate status to Unhealthy. Re-registering a name replaces the
// previous probe.
func (c *Checker) AddCheck(name string, fn CheckFunc, timeout time.Duration, critical bool) {
	if timeout <= 0 {
		timeout = c.opts.defaultTimeout
	}
	c.checks.Set(name, &check{
		name:     name,
		fn:       fn,
		timeout:  timeout,
		critical: critical,
	})
}

// RemoveCheck unregisters a probe.
func (c *Checker) RemoveCheck(name string) {
	c.checks.Delete(name)
}

// RunCheck executes one probe under its timeout. A timed-out probe is
// reported as Unhealthy with a descriptive message, never as an
// uncaught failure.
func (c *Checker) RunCheck(ctx context.Context, name string) (Result, error) {
	chk, ok := c.checks.Get(name)
	if !ok {
		return Result{Status: Unknown, Timestamp: c.opts.clock().UnixMilli()},
			fmt.Errorf("%w: [%s]", ErrCheckNotFound, name)
	}
	return c.execute(ctx, chk), nil
}

// RunAll executes every registered probe concurrently, collects every
// result and computes the aggregate status. A failing probe never
// prevents the others from completing.
func (c *Checker) RunAll(ctx context.Context) *Report {
	start := c.opts.clock()

	var (
		group   errgroup.Group
		mu      sync.Mutex
		results = make(map[string]Result)
	)

	c.checks.Range(func(name string, chk *check) {
		group.Go(func() error {
			result := c.execute(ctx, chk)
			mu.Lock()
			results[name] = result
			mu.Unlock()
			return nil
		})
	})
	_ = group.Wait()

	report := &Report{
		Status:         aggregate(results),
		Checks:         results,
		Timestamp:      start.UnixMilli(),
		ResponseTimeMs: c.opts.clock().Sub(start).Milliseconds(),
	}

	c.mu.Lock()
	c.last = report
	c.mu.Unlock()
	return report
}

// LastReport returns the most recent report, if any run completed yet.
func (c *Checker) LastReport() (*Report, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last, c.last != nil
}

// StartPeriodic begins running all checks on the configured interval.
// Starting an already started checker is a no-op.
func (c *Checker) StartPeriodic() {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	if !c.running.CompareAndSwap(false, true) {
		return
	}

	c.interval = ticker.New(c.opts.interval)
	c.stop = make(chan struct{})
	c.interval.Start()
	go c.runPeriodic(c.interval, c.stop)
	c.opts.logger.Infof("periodic health checks started (every %s)", c.opts.interval)
}

// StopPeriodic stops the background runs. Safe to call concurrently and
// repeatedly.
func (c *Checker) StopPeriodic() {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	if !c.running.CompareAndSwap(true, false) {
		return
	}

	c.interval.Stop()
	close(c.stop)
	c.opts.logger.Info("periodic health checks stopped")
}

// Running reports whether the periodic runner is live.
func (c *Checker) Running() bool {
	return c.running.Load()
}

func (c *Checker) runPeriodic(interval *ticker.Ticker, stop chan struct{}) {
	for {
		select {
		case <-interval.Ticks:
			report := c.RunAll(context.Background())
			if report.Status != Healthy {
				c.opts.logger.Warnf("health status is %s", report.Status)
			}
		case <-stop:
			return
		}
	}
}

// execute races the probe against its timeout.
func (c *Checker) execute(ctx context.Context, chk *check) Result {
	start := c.opts.clock()
	ctx, cancel := context.WithTimeout(ctx, chk.timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errCh <- fmt.Errorf("panic during check: %v", r)
			}
		}()
		errCh <- chk.fn(ctx)
	}()

	var err error
	select {
	case <-ctx.Done():
		err = fmt.Errorf("check [%s] timed out after %s", chk.name, chk.timeout)
	case err = <-errCh:
	}

	result := Result{
		Status:         Healthy,
		Critical:       chk.critical,
		ResponseTimeMs: c.opts.clock().Sub(start).Milliseconds(),
		Timestamp:      start.UnixMilli(),
	}
	if err != nil {
		result.Status = Unhealthy
		result.Message = err.Error()
	}
	return result
}

// aggregate computes the system-wide status from individual results.
func aggregate(results map[string]Result) Status {
	if len(results) == 0 {
		return Unknown
	}

	status := Healthy
	for _, result := range results {
		if result.Status == Healthy {
			continue
		}
		if result.Critical {
			return Unhealthy
		}
		status = Degraded
	}
	return status
}

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
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/coordkit/coordkit/internal/pause"
	"github.com/coordkit/coordkit/log"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClock is a manually advanced clock shared between managers.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(client *fakeStore, instanceID string, opts ...Option) *Manager {
	base := []Option{
		WithInstanceID(instanceID),
		WithLogger(log.DiscardLogger),
		WithRetryBackoff(time.Millisecond),
	}
	return NewManager(client, append(base, opts...)...)
}

func TestAcquire(t *testing.T) {
	ctx := context.Background()

	t.Run("With a free key", func(t *testing.T) {
		client := newFakeStore()
		manager := newTestManager(client, "node-1")

		status, err := manager.Acquire(ctx, "deploy-api", Deployment)
		require.NoError(t, err)
		require.Equal(t, StatusAcquired, status)
		assert.True(t, manager.IsHeld("deploy-api"))

		record, ok := client.record("coordkit:lock:deploy-api")
		require.True(t, ok)
		assert.Equal(t, manager.Owner(), record.Owner)
		assert.Equal(t, Deployment, record.Kind)
		assert.Greater(t, record.ExpiresAt, record.AcquiredAt)

		_, err = manager.Release(ctx, "deploy-api")
		require.NoError(t, err)
	})

	t.Run("With a key held by another owner", func(t *testing.T) {
		client := newFakeStore()
		first := newTestManager(client, "node-1")
		second := newTestManager(client, "node-2")

		status, err := first.Acquire(ctx, "deploy-api", Deployment)
		require.NoError(t, err)
		require.Equal(t, StatusAcquired, status)

		status, err = second.Acquire(ctx, "deploy-api", Deployment)
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, status)
		assert.False(t, second.IsHeld("deploy-api"))

		_, err = first.Release(ctx, "deploy-api")
		require.NoError(t, err)
	})

	t.Run("With a repeat call by the same owner", func(t *testing.T) {
		client := newFakeStore()
		clock := newFakeClock()
		manager := newTestManager(client, "node-1", WithClock(clock.Now))

		status, err := manager.Acquire(ctx, "deploy-api", Deployment)
		require.NoError(t, err)
		require.Equal(t, StatusAcquired, status)
		before, _ := client.record("coordkit:lock:deploy-api")

		clock.Advance(10 * time.Second)
		status, err = manager.Acquire(ctx, "deploy-api", Deployment)
		require.NoError(t, err)
		assert.Equal(t, StatusAlreadyHeld, status)

		after, _ := client.record("coordkit:lock:deploy-api")
		assert.Greater(t, after.ExpiresAt, before.ExpiresAt)

		_, err = manager.Release(ctx, "deploy-api")
		require.NoError(t, err)
	})

	t.Run("With an expired lease treated as free", func(t *testing.T) {
		client := newFakeStore()
		clock := newFakeClock()
		first := newTestManager(client, "node-1", WithClock(clock.Now))
		second := newTestManager(client, "node-2", WithClock(clock.Now))

		status, err := first.Acquire(ctx, "deploy-api", Deployment, WithTTL(time.Second))
		require.NoError(t, err)
		require.Equal(t, StatusAcquired, status)

		// stop the renewal loop without deleting the record, as a
		// crashed process would
		if ren, ok := first.renewals.GetAndDelete("deploy-api"); ok {
			ren.cancel()
		}

		clock.Advance(2 * time.Second)
		status, err = second.Acquire(ctx, "deploy-api", Deployment)
		require.NoError(t, err)
		assert.Equal(t, StatusAcquired, status)

		_, err = second.Release(ctx, "deploy-api")
		require.NoError(t, err)
	})

	t.Run("With exactly one winner among concurrent callers", func(t *testing.T) {
		client := newFakeStore()

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			acquired int
			winners  []*Manager
		)
		for i := 0; i < 10; i++ {
			manager := newTestManager(client, "node-"+string(rune('a'+i)))
			wg.Add(1)
			go func(m *Manager) {
				defer wg.Done()
				status, err := m.Acquire(ctx, "deploy-api", Deployment)
				require.NoError(t, err)
				if status == StatusAcquired {
					mu.Lock()
					acquired++
					winners = append(winners, m)
					mu.Unlock()
				}
			}(manager)
		}
		wg.Wait()

		require.Equal(t, 1, acquired)
		_, err := winners[0].Release(ctx, "deploy-api")
		require.NoError(t, err)
	})

	t.Run("With metadata and kind persisted", func(t *testing.T) {
		client := newFakeStore()
		manager := newTestManager(client, "node-1")

		status, err := manager.Acquire(ctx, "exp-42", Experiment,
			WithMetadata(map[string]string{"initiator": "rollout"}))
		require.NoError(t, err)
		require.Equal(t, StatusAcquired, status)

		record, found, err := manager.Info(ctx, "exp-42")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, Experiment, record.Kind)
		assert.Equal(t, "rollout", record.Metadata["initiator"])

		_, err = manager.Release(ctx, "exp-42")
		require.NoError(t, err)
	})

	t.Run("With transient store errors retried", func(t *testing.T) {
		client := newFakeStore()
		manager := newTestManager(client, "node-1")

		client.failNext(2)
		status, err := manager.Acquire(ctx, "deploy-api", Deployment)
		require.NoError(t, err)
		assert.Equal(t, StatusAcquired, status)

		_, err = manager.Release(ctx, "deploy-api")
		require.NoError(t, err)
	})

	t.Run("With a cancelled context", func(t *testing.T) {
		client := newFakeStore()
		manager := newTestManager(client, "node-1")

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		client.failNext(10)

		status, err := manager.Acquire(cancelled, "deploy-api", Deployment)
		require.Error(t, err)
		assert.Equal(t, StatusTimeout, status)
	})
}

func TestRelease(t *testing.T) {
	ctx := context.Background()

	t.Run("With the owner releasing", func(t *testing.T) {
		client := newFakeStore()
		manager := newTestManager(client, "node-1")

		_, err := manager.Acquire(ctx, "deploy-api", Deployment)
		require.NoError(t, err)

		released, err := manager.Release(ctx, "deploy-api")
		require.NoError(t, err)
		require.True(t, released)
		assert.False(t, manager.IsHeld("deploy-api"))

		_, found, err := manager.Info(ctx, "deploy-api")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("With a non-owner releasing", func(t *testing.T) {
		client := newFakeStore()
		first := newTestManager(client, "node-1")
		second := newTestManager(client, "node-2")

		_, err := first.Acquire(ctx, "deploy-api", Deployment)
		require.NoError(t, err)

		released, err := second.Release(ctx, "deploy-api")
		require.NoError(t, err)
		require.False(t, released)

		// the lease is untouched
		record, ok := client.record("coordkit:lock:deploy-api")
		require.True(t, ok)
		assert.Equal(t, first.Owner(), record.Owner)

		_, err = first.Release(ctx, "deploy-api")
		require.NoError(t, err)
	})

	t.Run("With an absent key", func(t *testing.T) {
		client := newFakeStore()
		manager := newTestManager(client, "node-1")

		released, err := manager.Release(ctx, "never-acquired")
		require.NoError(t, err)
		assert.False(t, released)
	})
}

func TestReleaseAll(t *testing.T) {
	ctx := context.Background()

	client := newFakeStore()
	manager := newTestManager(client, "node-1")

	_, err := manager.Acquire(ctx, "deploy-api", Deployment)
	require.NoError(t, err)
	_, err = manager.Acquire(ctx, "exp-42", Experiment)
	require.NoError(t, err)

	require.NoError(t, manager.ReleaseAll(ctx))
	assert.False(t, manager.IsHeld("deploy-api"))
	assert.False(t, manager.IsHeld("exp-42"))

	_, found, err := manager.Info(ctx, "deploy-api")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInfo(t *testing.T) {
	ctx := context.Background()

	t.Run("With an absent key", func(t *testing.T) {
		client := newFakeStore()
		manager := newTestManager(client, "node-1")

		record, found, err := manager.Info(ctx, "missing")
		require.NoError(t, err)
		require.False(t, found)
		assert.Nil(t, record)
	})

	t.Run("With a logically expired record reported as absent", func(t *testing.T) {
		client := newFakeStore()
		clock := newFakeClock()
		manager := newTestManager(client, "node-1", WithClock(clock.Now))

		_, err := manager.Acquire(ctx, "deploy-api", Deployment, WithTTL(time.Second))
		require.NoError(t, err)
		if ren, ok := manager.renewals.GetAndDelete("deploy-api"); ok {
			ren.cancel()
		}

		clock.Advance(2 * time.Second)
		record, found, err := manager.Info(ctx, "deploy-api")
		require.NoError(t, err)
		require.False(t, found)
		assert.Nil(t, record)
	})
}

func TestRenewal(t *testing.T) {
	ctx := context.Background()

	t.Run("With the lease extended in the background", func(t *testing.T) {
		client := newFakeStore()
		manager := newTestManager(client, "node-1")

		_, err := manager.Acquire(ctx, "deploy-api", Deployment, WithTTL(90*time.Millisecond))
		require.NoError(t, err)
		before, _ := client.record("coordkit:lock:deploy-api")

		pause.For(250 * time.Millisecond)

		after, ok := client.record("coordkit:lock:deploy-api")
		require.True(t, ok)
		assert.Greater(t, after.ExpiresAt, before.ExpiresAt)
		assert.True(t, manager.IsHeld("deploy-api"))

		_, err = manager.Release(ctx, "deploy-api")
		require.NoError(t, err)
	})

	t.Run("With a lost lease stopping the loop", func(t *testing.T) {
		client := newFakeStore()
		manager := newTestManager(client, "node-1")

		_, err := manager.Acquire(ctx, "deploy-api", Deployment, WithTTL(90*time.Millisecond))
		require.NoError(t, err)

		client.overwriteOwner("coordkit:lock:deploy-api", "intruder")
		pause.For(250 * time.Millisecond)

		assert.False(t, manager.IsHeld("deploy-api"))
	})
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "acquired", StatusAcquired.String())
	assert.Equal(t, "already-held", StatusAlreadyHeld.String())
	assert.Equal(t, "timeout", StatusTimeout.String())
	assert.Equal(t, "failed", StatusFailed.String())
}

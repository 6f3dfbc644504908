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
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coordkit/coordkit/log"
)

type deploymentState struct {
	Phase    string   `json:"phase"`
	Services []string `json:"services"`
}

func newTestStore(client *fakeStore, opts ...Option) *Store {
	base := []Option{
		WithInstanceID("node-1"),
		WithLogger(log.DiscardLogger),
		WithRetryBackoff(time.Millisecond),
	}
	return NewStore(client, append(base, opts...)...)
}

func TestSetGet(t *testing.T) {
	ctx := context.Background()

	t.Run("With a small payload stored uncompressed", func(t *testing.T) {
		client := newFakeStore()
		store := newTestStore(client)

		expected := &deploymentState{Phase: "rolling", Services: []string{"api", "worker"}}
		require.NoError(t, store.Set(ctx, "rollout-7", expected))

		actual := new(deploymentState)
		meta, found, err := store.Get(ctx, "rollout-7", actual)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, expected, actual)
		assert.False(t, meta.Compressed)
		assert.Equal(t, "rollout-7", meta.ID)
		assert.Equal(t, "node-1", meta.InstanceID)
		assert.EqualValues(t, 1, meta.Version)
	})

	t.Run("With a large payload compressed transparently", func(t *testing.T) {
		client := newFakeStore()
		store := newTestStore(client, WithCompressThreshold(1024))

		expected := &deploymentState{
			Phase:    strings.Repeat("expansion", 1024),
			Services: []string{"api"},
		}
		require.NoError(t, store.Set(ctx, "rollout-7", expected))

		// the stored envelope carries a compressed payload
		data, ok := client.raw("coordkit:rollout-7")
		require.True(t, ok)
		env := new(envelope)
		require.NoError(t, json.Unmarshal(data, env))
		require.True(t, env.Compressed)

		actual := new(deploymentState)
		meta, found, err := store.Get(ctx, "rollout-7", actual)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, expected, actual)
		assert.True(t, meta.Compressed)
	})

	t.Run("With an absent record", func(t *testing.T) {
		client := newFakeStore()
		store := newTestStore(client)

		meta, found, err := store.Get(ctx, "missing", new(deploymentState))
		require.NoError(t, err)
		require.False(t, found)
		assert.Nil(t, meta)
	})

	t.Run("With the retention window applied", func(t *testing.T) {
		client := newFakeStore()
		store := newTestStore(client, WithRetention(time.Hour))

		require.NoError(t, store.Set(ctx, "rollout-7", &deploymentState{Phase: "done"}))
		assert.Equal(t, time.Hour, client.lastTTL)
	})

	t.Run("With an explicit version recorded", func(t *testing.T) {
		client := newFakeStore()
		store := newTestStore(client)

		require.NoError(t, store.Set(ctx, "rollout-7", &deploymentState{Phase: "done"}, WithVersion(4)))

		meta, found, err := store.Get(ctx, "rollout-7", new(deploymentState))
		require.NoError(t, err)
		require.True(t, found)
		assert.EqualValues(t, 4, meta.Version)
	})

	t.Run("With the last writer winning", func(t *testing.T) {
		client := newFakeStore()
		first := newTestStore(client)
		second := NewStore(client,
			WithInstanceID("node-2"),
			WithLogger(log.DiscardLogger),
			WithRetryBackoff(time.Millisecond))

		require.NoError(t, first.Set(ctx, "rollout-7", &deploymentState{Phase: "rolling"}))
		require.NoError(t, second.Set(ctx, "rollout-7", &deploymentState{Phase: "done"}))

		actual := new(deploymentState)
		meta, found, err := first.Get(ctx, "rollout-7", actual)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "done", actual.Phase)
		assert.Equal(t, "node-2", meta.InstanceID)
	})

	t.Run("With transient store errors retried", func(t *testing.T) {
		client := newFakeStore()
		store := newTestStore(client)

		client.failNext(2)
		require.NoError(t, store.Set(ctx, "rollout-7", &deploymentState{Phase: "done"}))
	})

	t.Run("With retries exhausted", func(t *testing.T) {
		client := newFakeStore()
		store := newTestStore(client, WithMaxRetries(1))

		client.failNext(10)
		err := store.Set(ctx, "rollout-7", &deploymentState{Phase: "done"})
		require.Error(t, err)
		assert.ErrorContains(t, err, "failed to persist state")
	})

	t.Run("With an unserializable value", func(t *testing.T) {
		client := newFakeStore()
		store := newTestStore(client)

		err := store.Set(ctx, "rollout-7", func() {})
		require.Error(t, err)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	client := newFakeStore()
	store := newTestStore(client)

	require.NoError(t, store.Set(ctx, "rollout-7", &deploymentState{Phase: "done"}))
	require.NoError(t, store.Delete(ctx, "rollout-7"))

	_, found, err := store.Get(ctx, "rollout-7", new(deploymentState))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNamespaces(t *testing.T) {
	ctx := context.Background()

	t.Run("With deployment state", func(t *testing.T) {
		client := newFakeStore()
		store := newTestStore(client)

		expected := &deploymentState{Phase: "rolling"}
		require.NoError(t, store.SetDeployment(ctx, "api-v2", expected))

		_, ok := client.raw("coordkit:deployment:api-v2")
		require.True(t, ok)

		actual := new(deploymentState)
		_, found, err := store.GetDeployment(ctx, "api-v2", actual)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, expected, actual)
	})

	t.Run("With experiment state", func(t *testing.T) {
		client := newFakeStore()
		store := newTestStore(client)

		require.NoError(t, store.SetExperiment(ctx, "exp-42", map[string]int{"cohort": 3}))

		_, ok := client.raw("coordkit:experiment:exp-42")
		require.True(t, ok)

		actual := make(map[string]int)
		_, found, err := store.GetExperiment(ctx, "exp-42", &actual)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, 3, actual["cohort"])
	})

	t.Run("With namespaces isolated", func(t *testing.T) {
		client := newFakeStore()
		store := newTestStore(client)

		require.NoError(t, store.SetDeployment(ctx, "same-id", &deploymentState{Phase: "a"}))
		require.NoError(t, store.SetExperiment(ctx, "same-id", &deploymentState{Phase: "b"}))

		actual := new(deploymentState)
		_, found, err := store.GetDeployment(ctx, "same-id", actual)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "a", actual.Phase)
	})
}

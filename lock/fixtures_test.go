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
	"encoding/json"
	"errors"
	"path"
	"sync"
	"time"

	"github.com/coordkit/coordkit/store"
)

// fakeStore is an in-memory store.Client whose Eval reproduces the
// semantics of the lock scripts under a single mutex, giving tests the
// same atomicity the real store provides.
type fakeStore struct {
	mu       sync.Mutex
	data     map[string][]byte
	failures int
}

var _ store.Client = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string][]byte)}
}

// failNext makes the next n operations fail with a transient error.
func (f *fakeStore) failNext(n int) {
	f.mu.Lock()
	f.failures = n
	f.mu.Unlock()
}

func (f *fakeStore) transientError() error {
	if f.failures > 0 {
		f.failures--
		return errors.New("transient store error")
	}
	return nil
}

func (f *fakeStore) Connect(context.Context) error    { return nil }
func (f *fakeStore) Disconnect(context.Context) error { return nil }
func (f *fakeStore) Ping(context.Context) error       { return nil }

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.transientError(); err != nil {
		return nil, err
	}
	value, ok := f.data[key]
	if !ok {
		return nil, store.ErrKeyNotFound
	}
	return value, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.transientError(); err != nil {
		return err
	}
	f.data[key] = value
	return nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.transientError(); err != nil {
		return err
	}
	delete(f.data, key)
	return nil
}

func (f *fakeStore) Keys(_ context.Context, pattern string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for key := range f.data {
		if ok, _ := path.Match(pattern, key); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (f *fakeStore) Eval(_ context.Context, script string, keys []string, args ...any) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.transientError(); err != nil {
		return nil, err
	}

	key := keys[0]
	switch script {
	case acquireScript:
		return f.evalAcquire(key, args)
	case renewScript:
		return f.evalRenew(key, args)
	case releaseScript:
		return f.evalRelease(key, args)
	default:
		return nil, errors.New("unknown script")
	}
}

func (f *fakeStore) evalAcquire(key string, args []any) (any, error) {
	owner := args[0].(string)
	payload := args[1].([]byte)
	newExpiresAt := args[3].(int64)
	now := args[4].(int64)

	if current, ok := f.data[key]; ok {
		record := new(Record)
		if err := json.Unmarshal(current, record); err != nil {
			return nil, err
		}
		if record.ExpiresAt > now {
			if record.Owner == owner {
				record.ExpiresAt = newExpiresAt
				updated, err := json.Marshal(record)
				if err != nil {
					return nil, err
				}
				f.data[key] = updated
				return int64(2), nil
			}
			return int64(0), nil
		}
	}

	f.data[key] = payload
	return int64(1), nil
}

func (f *fakeStore) evalRenew(key string, args []any) (any, error) {
	owner := args[0].(string)
	newExpiresAt := args[1].(int64)

	current, ok := f.data[key]
	if !ok {
		return int64(0), nil
	}
	record := new(Record)
	if err := json.Unmarshal(current, record); err != nil {
		return nil, err
	}
	if record.Owner != owner {
		return int64(0), nil
	}
	record.ExpiresAt = newExpiresAt
	updated, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	f.data[key] = updated
	return int64(1), nil
}

func (f *fakeStore) evalRelease(key string, args []any) (any, error) {
	owner := args[0].(string)

	current, ok := f.data[key]
	if !ok {
		return int64(0), nil
	}
	record := new(Record)
	if err := json.Unmarshal(current, record); err != nil {
		return nil, err
	}
	if record.Owner != owner {
		return int64(0), nil
	}
	delete(f.data, key)
	return int64(1), nil
}

// record returns the stored lock record for a raw storage key.
func (f *fakeStore) record(key string) (*Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.data[key]
	if !ok {
		return nil, false
	}
	record := new(Record)
	if err := json.Unmarshal(current, record); err != nil {
		return nil, false
	}
	return record, true
}

// overwriteOwner rewrites the stored owner, simulating a seizure by
// another process.
func (f *fakeStore) overwriteOwner(key, owner string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.data[key]
	if !ok {
		return
	}
	record := new(Record)
	if err := json.Unmarshal(current, record); err != nil {
		return
	}
	record.Owner = owner
	updated, _ := json.Marshal(record)
	f.data[key] = updated
}

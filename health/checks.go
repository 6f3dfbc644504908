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
	"context"
	"fmt"
	"net/http"

	"github.com/coordkit/coordkit/breaker"
	"github.com/coordkit/coordkit/store"
)

// StorePing probes the shared store with a ping.
func StorePing(client store.Client) CheckFunc {
	return client.Ping
}

// HTTPEndpoint probes a downstream HTTP service with a GET. Any
// response below 400 counts as healthy. A nil client uses
// http.DefaultClient.
func HTTPEndpoint(url string, client *http.Client) CheckFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) error {
		request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		response, err := client.Do(request)
		if err != nil {
			return err
		}
		_ = response.Body.Close()
		if response.StatusCode >= http.StatusBadRequest {
			return fmt.Errorf("endpoint [%s] returned status %d", url, response.StatusCode)
		}
		return nil
	}
}

// WithBreaker runs the probe through the given circuit breaker so a
// known-bad dependency is reported unhealthy without being hammered.
func WithBreaker(cb *breaker.CircuitBreaker, fn CheckFunc) CheckFunc {
	return func(ctx context.Context) error {
		_, err := cb.Execute(ctx, func(ctx context.Context) (any, error) {
			return nil, fn(ctx)
		})
		return err
	}
}

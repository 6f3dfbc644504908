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

import "context"

// Status is the health state of a check or of the whole system.
type Status string

const (
	// Unknown means no information is available.
	Unknown Status = "unknown"
	// Healthy means the probe passed.
	Healthy Status = "healthy"
	// Degraded means a non-critical probe failed while all critical
	// probes passed. Aggregate only.
	Degraded Status = "degraded"
	// Unhealthy means the probe failed or timed out.
	Unhealthy Status = "unhealthy"
)

// CheckFunc probes one dependency. A nil return means healthy. The
// probe must honor ctx: it is cancelled when the check times out.
type CheckFunc func(ctx context.Context) error

// Result is the outcome of one probe execution.
type Result struct {
	Status         Status `json:"status"`
	Message        string `json:"message,omitempty"`
	Critical       bool   `json:"critical"`
	ResponseTimeMs int64  `json:"responseTimeMs"`
	Timestamp      int64  `json:"timestamp"`
}

// Report aggregates every probe result into one system-wide status.
// It is shaped to back an operator-facing liveness endpoint directly.
type Report struct {
	Status         Status            `json:"status"`
	Checks         map[string]Result `json:"checks"`
	Timestamp      int64             `json:"timestamp"`
	ResponseTimeMs int64             `json:"responseTimeMs"`
}

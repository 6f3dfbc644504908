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
	"fmt"
	"time"
)

// Metrics represents a snapshot of the breaker counters and state.
type Metrics struct {
	Name                string
	State               State
	ConsecutiveFailures uint64
	Failures            uint64
	Successes           uint64
	LastFailure         time.Time
	LastSuccess         time.Time
	NextAttempt         time.Time
}

// String returns human-readable metrics for debugging.
func (m Metrics) String() string {
	return fmt.Sprintf("name=%s state=%s consecutive=%d failures=%d successes=%d",
		m.Name, m.State, m.ConsecutiveFailures, m.Failures, m.Successes)
}

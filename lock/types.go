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

import "time"

// Kind categorizes a lease for metrics partitioning. It never affects
// the locking semantics.
type Kind string

const (
	// Deployment guards rollout steps.
	Deployment Kind = "deployment"
	// Experiment guards experiment mutations.
	Experiment Kind = "experiment"
	// Configuration guards configuration changes.
	Configuration Kind = "configuration"
	// Resource guards any other exclusive resource.
	Resource Kind = "resource"
)

// Status is the outcome of an acquisition attempt.
type Status int

const (
	// StatusFailed means another owner holds the lease.
	StatusFailed Status = iota
	// StatusAcquired means the lease was granted to this attempt.
	StatusAcquired
	// StatusAlreadyHeld means this owner already holds the lease; the
	// expiry was refreshed.
	StatusAlreadyHeld
	// StatusTimeout means the attempt was cut short by the caller's context.
	StatusTimeout
)

// String returns the text representation of the status.
func (s Status) String() string {
	switch s {
	case StatusAcquired:
		return "acquired"
	case StatusAlreadyHeld:
		return "already-held"
	case StatusTimeout:
		return "timeout"
	default:
		return "failed"
	}
}

// Record identifies one lease as stored in the shared store. Timestamps
// are milliseconds since epoch; expiresAt is strictly greater than
// acquiredAt at creation and after every renewal.
type Record struct {
	Key        string            `json:"key"`
	Owner      string            `json:"owner"`
	AcquiredAt int64             `json:"acquiredAt"`
	ExpiresAt  int64             `json:"expiresAt"`
	Kind       Kind              `json:"lockType"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Expired reports whether the record is logically absent at the given
// instant, even if not yet physically evicted by the store's TTL.
func (r *Record) Expired(now time.Time) bool {
	return r.ExpiresAt <= now.UnixMilli()
}

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

package store

import (
	"time"

	"github.com/coordkit/coordkit/internal/validation"
)

// Config holds the connection settings of the shared store.
type Config struct {
	// Addresses lists the store endpoints. A single address targets a
	// standalone node; with ClusterEnabled the whole list seeds a cluster
	// client.
	Addresses []string
	// Username and Password are the optional store credentials.
	Username string
	Password string
	// DB selects the logical database. Ignored in cluster mode.
	DB int
	// ClusterEnabled switches to a cluster-aware client.
	ClusterEnabled bool
	// ReplicaReads routes read-only commands to replicas when the store
	// is clustered. Replies may lag the primary; that staleness bound is
	// owned by the store's replication.
	ReplicaReads bool
	// ConnectTimeout bounds the initial connection ping.
	ConnectTimeout time.Duration
}

var _ validation.Validator = (*Config)(nil)

// Validate checks whether the configuration is usable.
func (c *Config) Validate() error {
	return validation.New().
		AddAssertion(len(c.Addresses) > 0, ErrAddressesRequired.Error()).
		AddAssertion(c.DB >= 0, "the store DB must not be negative").
		AddAssertion(c.ConnectTimeout >= 0, "the connect timeout must not be negative").
		Validate()
}

// Sanitize applies defaults to unset values.
func (c *Config) Sanitize() {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
}

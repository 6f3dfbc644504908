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

import "time"

// envelope is the wire format of a state record. The payload is opaque
// bytes: raw JSON when Compressed is false, a zstd frame of that JSON
// when true. The flag is the single source of truth; readers never
// sniff the payload.
type envelope struct {
	ID         string `json:"id"`
	Version    int64  `json:"version"`
	InstanceID string `json:"instanceId"`
	UpdatedAt  int64  `json:"updatedAt"`
	Compressed bool   `json:"compressed"`
	Payload    []byte `json:"payload"`
}

// Meta carries the envelope fields of a state record back to the reader.
type Meta struct {
	ID         string
	Version    int64
	InstanceID string
	UpdatedAt  time.Time
	Compressed bool
}

func (e *envelope) meta() *Meta {
	return &Meta{
		ID:         e.ID,
		Version:    e.Version,
		InstanceID: e.InstanceID,
		UpdatedAt:  time.UnixMilli(e.UpdatedAt),
		Compressed: e.Compressed,
	}
}

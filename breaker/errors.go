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
	"errors"
	"fmt"
)

// ErrOpen is returned when the breaker rejects a call without attempting
// it. Callers can distinguish "dependency known bad, not attempted" from
// "attempt failed" with errors.Is(err, ErrOpen).
var ErrOpen = errors.New("circuit breaker is open")

// rejectionError carries the breaker name alongside ErrOpen.
type rejectionError struct {
	name string
}

func (e *rejectionError) Error() string {
	return fmt.Sprintf("circuit breaker [%s] is open", e.name)
}

func (e *rejectionError) Unwrap() error {
	return ErrOpen
}

// PanicError wraps a panic recovered during execution so it surfaces as
// a regular failure instead of crashing the process.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic during execution: %v", e.Value)
}

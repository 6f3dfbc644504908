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

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain(t *testing.T) {
	t.Run("With all assertions passing", func(t *testing.T) {
		err := New().
			AddAssertion(true, "first").
			AddAssertion(true, "second").
			Validate()
		require.NoError(t, err)
	})

	t.Run("With failing assertions accumulated", func(t *testing.T) {
		err := New().
			AddAssertion(false, "first violation").
			AddAssertion(true, "passing").
			AddAssertion(false, "second violation").
			Validate()
		require.Error(t, err)
		assert.ErrorContains(t, err, "first violation")
		assert.ErrorContains(t, err, "second violation")
	})

	t.Run("With AddValidator", func(t *testing.T) {
		err := New().
			AddValidator(NewEmptyStringValidator("address", "")).
			Validate()
		require.Error(t, err)
		assert.ErrorContains(t, err, "the [address] is required")
	})

	t.Run("With a non-empty string validator", func(t *testing.T) {
		err := New().
			AddValidator(NewEmptyStringValidator("address", "localhost:6379")).
			Validate()
		require.NoError(t, err)
	})
}

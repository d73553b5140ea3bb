// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
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

package errorschain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestErrorsChain(t *testing.T) {
	e1 := errors.New("close listener")
	e2 := errors.New("remove socket")

	t.Run("With ReturnFirst", func(t *testing.T) {
		called := false
		chain := New(ReturnFirst()).
			AddError(nil).
			AddErrors(e1, e2).
			AddErrorFn(func() error {
				called = true
				return nil
			})
		require.ErrorIs(t, chain.Error(), e1)
		assert.False(t, called)
	})
	t.Run("With ReturnAll", func(t *testing.T) {
		chain := New(ReturnAll()).
			AddError(e1).
			AddErrorFn(func() error { return e2 })
		errs := multierr.Errors(chain.Error())
		require.Len(t, errs, 2)
		assert.ErrorIs(t, errs[0], e1)
		assert.ErrorIs(t, errs[1], e2)
	})
	t.Run("With no errors", func(t *testing.T) {
		require.NoError(t, New().AddError(nil).Error())
	})
}

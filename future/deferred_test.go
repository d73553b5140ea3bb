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

package future

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/tochemey/gopulse/errors"
)

func TestDeferred(t *testing.T) {
	t.Run("With callbacks run in order", func(t *testing.T) {
		d := NewDeferred(nil)
		var calls []int
		d.AddCallback(func(result any) any {
			calls = append(calls, 1)
			return result.(int) + 1
		}, nil)
		d.AddCallback(func(result any) any {
			calls = append(calls, 2)
			return result.(int) * 10
		}, nil)

		assert.False(t, d.Done())
		assert.Equal(t, Pending, d.State())
		result, err := d.Callback(1)
		require.NoError(t, err)
		assert.Equal(t, 20, result)
		assert.Equal(t, []int{1, 2}, calls)
		assert.Equal(t, Finished, d.State())
		assert.False(t, d.Cancelled())
	})
	t.Run("With callback added after resolution", func(t *testing.T) {
		d := Resolved(nil, "hello")
		var got any
		d.AddCallback(func(result any) any {
			got = result
			return result
		}, nil)
		assert.Equal(t, "hello", got)
	})
	t.Run("With errback recovering a failure", func(t *testing.T) {
		d := NewDeferred(nil)
		var successCalled bool
		d.AddCallback(func(result any) any {
			successCalled = true
			return result
		}, nil)
		d.AddErrback(func(result any) any {
			failure, ok := AsFailure(result)
			require.True(t, ok)
			assert.EqualError(t, failure, "boom")
			return "recovered"
		})
		var next any
		d.AddCallback(func(result any) any {
			next = result
			return result
		}, nil)

		_, err := d.Callback(errors.New("boom"))
		require.NoError(t, err)
		assert.False(t, successCalled)
		assert.Equal(t, "recovered", next)
		value, err := d.Result()
		require.NoError(t, err)
		assert.Equal(t, "recovered", value)
	})
	t.Run("With failure reported by Result", func(t *testing.T) {
		d := NewDeferred(nil)
		_, err := d.Callback(errors.New("boom"))
		require.NoError(t, err)
		value, err := d.Result()
		assert.Nil(t, value)
		require.Error(t, err)
		assert.EqualError(t, err, "boom")
		assert.True(t, err.(*Failure).retrieved.Load())
	})
	t.Run("With Result on a pending deferred", func(t *testing.T) {
		d := NewDeferred(nil)
		_, err := d.Result()
		assert.ErrorIs(t, err, gerrors.ErrInvalidState)
	})
	t.Run("With second callback rejected", func(t *testing.T) {
		d := NewDeferred(nil)
		_, err := d.Callback(1)
		require.NoError(t, err)
		_, err = d.Callback(2)
		require.Error(t, err)
		assert.ErrorIs(t, err, gerrors.ErrInvalidState)
		assert.ErrorIs(t, err, gerrors.ErrAlreadyCalled)
		value, err := d.Result()
		require.NoError(t, err)
		assert.Equal(t, 1, value)
	})
	t.Run("With cancel tolerating the first late callback", func(t *testing.T) {
		d := NewDeferred(nil)
		require.True(t, d.Cancel("stop"))
		assert.True(t, d.Cancelled())
		assert.Equal(t, Cancelled, d.State())

		_, err := d.Callback("late")
		require.NoError(t, err)

		_, err = d.Callback("later")
		assert.ErrorIs(t, err, gerrors.ErrAlreadyCalled)

		_, err = d.Result()
		assert.ErrorIs(t, err, gerrors.ErrCancelled)
		assert.False(t, d.Cancel("again"))
	})
	t.Run("With a future as result", func(t *testing.T) {
		d := NewDeferred(nil)
		_, err := d.Callback(NewDeferred(nil))
		assert.ErrorIs(t, err, gerrors.ErrInvalidState)
		assert.False(t, d.Done())
	})
	t.Run("With panicking callback", func(t *testing.T) {
		d := NewDeferred(nil)
		d.AddCallback(func(any) any { panic("kaboom") }, nil)
		var caught error
		d.AddErrback(func(result any) any {
			caught = result.(error)
			return nil
		})
		_, err := d.Callback(1)
		require.NoError(t, err)
		require.Error(t, caught)
		assert.Contains(t, caught.Error(), "kaboom")
	})
	t.Run("With chain paused on a returned future", func(t *testing.T) {
		inner := NewDeferred(nil)
		outer := NewDeferred(nil)
		outer.AddCallback(func(any) any { return inner }, nil)
		var got any
		outer.AddCallback(func(result any) any {
			got = result
			return result
		}, nil)

		_, err := outer.Callback("start")
		require.NoError(t, err)
		assert.True(t, outer.Paused())
		assert.Nil(t, got)

		_, err = inner.Callback("inner")
		require.NoError(t, err)
		assert.False(t, outer.Paused())
		assert.Equal(t, "inner", got)
	})
	t.Run("With cancel forwarded to the inner future", func(t *testing.T) {
		inner := NewDeferred(nil)
		outer := NewDeferred(nil)
		outer.AddCallback(func(any) any { return inner }, nil)
		_, err := outer.Callback("start")
		require.NoError(t, err)

		require.True(t, outer.Cancel("stop"))
		assert.True(t, inner.Cancelled())
		_, err = outer.Result()
		assert.ErrorIs(t, err, gerrors.ErrCancelled)
	})
	t.Run("With Then", func(t *testing.T) {
		d := NewDeferred(nil)
		other := NewDeferred(nil)
		d.Then(other)
		_, err := d.Callback(42)
		require.NoError(t, err)
		value, err := other.Result()
		require.NoError(t, err)
		assert.Equal(t, 42, value)
	})
}

func TestDeferredTimeout(t *testing.T) {
	t.Run("With timeout elapsed", func(t *testing.T) {
		loop := newTestLoop()
		d := NewDeferred(loop).SetTimeout(time.Second)
		loop.clock.Add(2 * time.Second)

		require.Eventually(t, func() bool {
			loop.drain()
			return d.Done()
		}, time.Second, 10*time.Millisecond)

		assert.True(t, d.Cancelled())
		_, err := d.Result()
		assert.ErrorIs(t, err, gerrors.ErrTimeout)
		assert.ErrorIs(t, err, gerrors.ErrCancelled)
	})
	t.Run("With timeout cleared on resolution", func(t *testing.T) {
		loop := newTestLoop()
		d := NewDeferred(loop).SetTimeout(time.Second)
		_, err := d.Callback("ok")
		require.NoError(t, err)

		loop.clock.Add(2 * time.Second)
		time.Sleep(20 * time.Millisecond)
		loop.drain()

		value, err := d.Result()
		require.NoError(t, err)
		assert.Equal(t, "ok", value)
	})
	t.Run("With timeout replaced", func(t *testing.T) {
		loop := newTestLoop()
		d := NewDeferred(loop).SetTimeout(time.Second).SetTimeout(time.Minute)
		loop.clock.Add(2 * time.Second)
		time.Sleep(20 * time.Millisecond)
		loop.drain()
		assert.False(t, d.Done())
	})
}

func TestDeferredAwait(t *testing.T) {
	t.Run("With result from the loop", func(t *testing.T) {
		loop := newTestLoop()
		d := NewDeferred(loop)

		type outcome struct {
			value any
			err   error
		}
		done := make(chan outcome, 1)
		go func() {
			value, err := d.Await(context.Background())
			done <- outcome{value, err}
		}()

		require.Eventually(t, func() bool { return loop.pending() == 1 }, time.Second, 5*time.Millisecond)
		loop.drain()
		_, err := d.Callback("done")
		require.NoError(t, err)

		out := <-done
		require.NoError(t, out.err)
		assert.Equal(t, "done", out.value)
	})
	t.Run("With context done", func(t *testing.T) {
		d := NewDeferred(nil)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := d.Await(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

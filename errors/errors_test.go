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

package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelledError(t *testing.T) {
	t.Run("With plain cancellation", func(t *testing.T) {
		err := NewCancelledError("stopped", false)
		require.EqualError(t, err, "cancelled: stopped")
		assert.ErrorIs(t, err, ErrCancelled)
		assert.NotErrorIs(t, err, ErrTimeout)
		assert.False(t, err.Timeout())
	})
	t.Run("With timeout", func(t *testing.T) {
		err := NewCancelledError("", true)
		require.EqualError(t, err, "timeout")
		assert.ErrorIs(t, err, ErrCancelled)
		assert.ErrorIs(t, err, ErrTimeout)
		assert.True(t, err.Timeout())
	})
}

func TestKind(t *testing.T) {
	assert.Equal(t, "command_not_found", Kind(NewErrCommandNotFound("foo")))
	assert.Equal(t, "unknown_actor", Kind(NewErrUnknownActor("abc")))
	assert.Equal(t, "timeout", Kind(NewCancelledError("", true)))
	assert.Equal(t, "cancelled", Kind(NewCancelledError("", false)))
	assert.Equal(t, "error", Kind(errors.New("boom")))
}

func TestCommandError(t *testing.T) {
	t.Run("With known kind", func(t *testing.T) {
		err := NewCommandError("foo", "command_not_found", "command=(foo) command not found")
		assert.ErrorIs(t, err, ErrCommandNotFound)
		assert.Equal(t, "foo", err.Command())
		assert.Equal(t, "command_not_found", err.Kind())
		assert.EqualError(t, err, "command=(foo) command=(foo) command not found")
	})
	t.Run("With unknown kind", func(t *testing.T) {
		err := NewCommandError("echo", "error", "boom")
		assert.ErrorIs(t, err, ErrRemoteCommand)
		assert.NotErrorIs(t, err, ErrCommandNotFound)
	})
}

func TestPanicError(t *testing.T) {
	cause := errors.New("boom")
	err := NewPanicError(cause)
	require.EqualError(t, err, "panic: boom")
	assert.ErrorIs(t, err, cause)
	assert.NoError(t, NewPanicError("text").Unwrap())
}

func TestWrappers(t *testing.T) {
	assert.ErrorIs(t, NewErrReservedName("arbiter"), ErrReservedName)
	assert.ErrorIs(t, NewErrSpawnFailed(errors.New("fork")), ErrSpawnFailed)
	assert.EqualError(t, NewErrUnknownActor("x1"), "actor=(x1) unknown actor")
}

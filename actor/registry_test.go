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

package actor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/tochemey/gopulse/errors"
)

func TestRegistry(t *testing.T) {
	noop := func(*Request, []any, map[string]any) (any, error) { return nil, nil }

	t.Run("With builtin commands", func(t *testing.T) {
		registry := NewRegistry()
		assert.Equal(t,
			[]string{"echo", "info", "kill_actor", "notify", "ping", "run", "spawn", "stop", "workers"},
			registry.Commands())

		notify, ok := registry.Command("notify")
		require.True(t, ok)
		assert.False(t, notify.Ack)
		assert.True(t, notify.Internal)
	})
	t.Run("With case insensitive names", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register(Command{Name: "Greet", Ack: true, Fn: noop}))

		command, ok := registry.Command("GREET")
		require.True(t, ok)
		assert.Equal(t, "greet", command.Name)
	})
	t.Run("With invalid commands", func(t *testing.T) {
		registry := NewRegistry()
		require.ErrorIs(t, registry.Register(Command{Fn: noop}), gerrors.ErrInvalidConfig)
		require.ErrorIs(t, registry.Register(Command{Name: "nothing"}), gerrors.ErrInvalidConfig)
		require.ErrorIs(t, registry.Register(Command{Name: "ping", Fn: noop}), gerrors.ErrCommandExists)
	})
	t.Run("With behaviors", func(t *testing.T) {
		registry := NewRegistry()
		factory := func() Behavior { return Hooks{} }

		require.ErrorIs(t, registry.RegisterBehavior("monitor", factory), gerrors.ErrReservedName)
		require.ErrorIs(t, registry.RegisterBehavior("arbiter", factory), gerrors.ErrReservedName)
		require.ErrorIs(t, registry.RegisterBehavior("", factory), gerrors.ErrInvalidConfig)
		require.NoError(t, registry.RegisterBehavior("plain", factory))
		require.ErrorIs(t, registry.RegisterBehavior("plain", factory), gerrors.ErrInvalidConfig)

		behavior, err := registry.Behavior("plain")
		require.NoError(t, err)
		assert.NotNil(t, behavior)

		behavior, err = registry.Behavior("")
		require.NoError(t, err)
		assert.Equal(t, Hooks{}, behavior)

		_, err = registry.Behavior("missing")
		require.ErrorIs(t, err, gerrors.ErrBehaviorNotRegistered)
	})
	t.Run("With tasks", func(t *testing.T) {
		registry := testRegistry()
		_, ok := registry.Task("forward")
		assert.True(t, ok)
		_, ok = registry.Task("missing")
		assert.False(t, ok)
	})
}

func TestSplitArgs(t *testing.T) {
	args, kwargs := splitArgs([]any{1, "two", Kwargs{"three": 3}})
	assert.Equal(t, []any{1, "two"}, args)
	assert.Equal(t, map[string]any{"three": 3}, kwargs)

	args, kwargs = splitArgs(nil)
	assert.Empty(t, args)
	assert.Empty(t, kwargs)
}

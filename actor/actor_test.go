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
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tochemey/gopulse/config"
	gerrors "github.com/tochemey/gopulse/errors"
	"github.com/tochemey/gopulse/future"
	"github.com/tochemey/gopulse/log"
)

func TestMain(m *testing.M) {
	if IsChild() {
		os.Exit(RunChild(testRegistry()))
	}
	goleak.VerifyTestMain(m)
}

// testRegistry is built the same way by the test process and its children.
func testRegistry() *Registry {
	registry := NewRegistry()
	mustRegister(registry.Register(Command{Name: "square", Ack: true, Fn: func(_ *Request, args []any, _ map[string]any) (any, error) {
		value, ok := args[0].(int64)
		if !ok {
			if i, isInt := args[0].(int); isInt {
				value, ok = int64(i), true
			}
		}
		if !ok {
			return nil, errors.New("square needs an integer")
		}
		return value * value, nil
	}}))
	mustRegister(registry.Register(Command{Name: "boom", Ack: true, Fn: func(*Request, []any, map[string]any) (any, error) {
		panic("boom")
	}}))
	mustRegister(registry.RegisterBehavior("greeter", func() Behavior {
		return Hooks{OnStart: func(actor *Actor) error {
			actor.Extra()["greeting"] = "hello"
			return nil
		}}
	}))
	mustRegister(registry.RegisterTask("forward", func(actor *Actor, args []any) (any, error) {
		target, err := stringArg(args, 0, "target")
		if err != nil {
			return nil, err
		}
		return actor.Send(target, "echo", args[1]), nil
	}))
	return registry
}

func mustRegister(err error) {
	if err != nil {
		panic(err)
	}
}

func testConfig(t *testing.T, opts ...config.Option) *config.Config {
	t.Helper()
	defaults := []config.Option{
		config.WithLogger(log.DiscardLogger),
		config.WithPollTimeout(20 * time.Millisecond),
		config.WithActionTimeout(2 * time.Second),
	}
	cfg, err := config.New("arbiter", append(defaults, opts...)...)
	require.NoError(t, err)
	return cfg
}

// onLoop runs fn on the actor loop and returns its result.
func onLoop[T any](t *testing.T, a *Actor, fn func() T) T {
	t.Helper()
	out := make(chan T, 1)
	a.loop.CallSoonThreadsafe(func() { out <- fn() })
	select {
	case value := <-out:
		return value
	case <-time.After(10 * time.Second):
		require.FailNow(t, "loop did not run the callback")
	}
	var zero T
	return zero
}

func await(t *testing.T, f future.Future) (any, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return f.Await(ctx)
}

func ask(t *testing.T, a *Actor, target, command string, args ...any) (any, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.Ask(ctx, target, command, args...)
}

func newTestActor(t *testing.T, behavior Behavior) *Actor {
	t.Helper()
	a, err := newActor(actorParams{
		name:     "tester",
		kind:     ThreadConcurrency,
		cfg:      testConfig(t),
		registry: testRegistry(),
		behavior: behavior,
		ownLoop:  true,
	})
	require.NoError(t, err)
	return a
}

// runActor starts a on its own goroutine and waits for it to run.
func runActor(t *testing.T, a *Actor) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- a.Start() }()
	require.Eventually(t, func() bool { return a.State() == Run }, 5*time.Second, time.Millisecond)
	return done
}

func stopActor(t *testing.T, a *Actor, done <-chan error) {
	t.Helper()
	a.loop.CallSoonThreadsafe(func() { a.Stop(false) })
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		require.FailNow(t, "actor did not stop")
	}
}

func TestActor(t *testing.T) {
	t.Run("With local requests", func(t *testing.T) {
		a := newTestActor(t, nil)
		done := runActor(t, a)

		value, err := ask(t, a, "", "ping")
		require.NoError(t, err)
		assert.Equal(t, "pong", value)

		value, err = ask(t, a, a.AID(), "square", 7)
		require.NoError(t, err)
		assert.EqualValues(t, 49, value)

		_, err = ask(t, a, "", "unknown")
		require.ErrorIs(t, err, gerrors.ErrCommandNotFound)

		_, err = ask(t, a, "", "boom")
		var panicErr *gerrors.PanicError
		require.ErrorAs(t, err, &panicErr)

		// the actor survives failing commands
		value, err = ask(t, a, "", "echo", "still here")
		require.NoError(t, err)
		assert.Equal(t, "still here", value)
		assert.EqualValues(t, 4, a.Processed())

		stopActor(t, a, done)
		assert.Equal(t, Close, a.State())
	})
	t.Run("With lifecycle events in order", func(t *testing.T) {
		var (
			mu    sync.Mutex
			fired []string
		)
		record := func(name string) func(any) error {
			return func(any) error {
				mu.Lock()
				fired = append(fired, name)
				mu.Unlock()
				return nil
			}
		}

		a := newTestActor(t, Hooks{
			OnStart: func(*Actor) error { return record("pre_start")(nil) },
			OnStop:  func(*Actor) error { return record("post_stop")(nil) },
		})
		a.BindEvent(StartEvent, record(StartEvent))
		a.BindEvent(StoppingEvent, record(StoppingEvent))
		a.BindEvent(StopEvent, record(StopEvent))

		done := runActor(t, a)
		stopActor(t, a, done)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{"pre_start", StartEvent, StoppingEvent, "post_stop", StopEvent}, fired)
	})
	t.Run("With failing start hook", func(t *testing.T) {
		a := newTestActor(t, Hooks{OnStart: func(*Actor) error { return errors.New("no way") }})
		done := make(chan error, 1)
		go func() { done <- a.Start() }()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(10 * time.Second):
			require.FailNow(t, "actor did not stop")
		}
		assert.Equal(t, Close, a.State())
	})
	t.Run("With start only once", func(t *testing.T) {
		a := newTestActor(t, nil)
		done := runActor(t, a)
		require.ErrorIs(t, a.Start(), gerrors.ErrInvalidStateTransition)
		stopActor(t, a, done)
	})
	t.Run("With stop before start", func(t *testing.T) {
		a := newTestActor(t, nil)
		f := a.Stop(false)
		assert.True(t, f.Done())
		assert.Equal(t, Close, a.State())
		require.ErrorIs(t, a.Start(), gerrors.ErrInvalidStateTransition)
		require.NoError(t, a.loop.Close())
	})
	t.Run("With stop returning the same future", func(t *testing.T) {
		a := newTestActor(t, nil)
		done := runActor(t, a)
		same := onLoop(t, a, func() bool {
			return a.Stop(false) == a.Stop(true)
		})
		assert.True(t, same)
		<-done
	})
	t.Run("With info", func(t *testing.T) {
		a := newTestActor(t, nil)
		done := runActor(t, a)

		value, err := ask(t, a, "", "info")
		require.NoError(t, err)
		data, ok := value.(map[string]any)
		require.True(t, ok)
		actor := data["actor"].(map[string]any)
		assert.Equal(t, "tester", actor["name"])
		assert.Equal(t, a.AID(), actor["actor_id"])
		assert.Equal(t, "running", actor["state"])
		assert.Equal(t, false, actor["is_process"])
		assert.Contains(t, data, "events")

		stopActor(t, a, done)
	})
	t.Run("With ask on a stopped actor", func(t *testing.T) {
		a := newTestActor(t, nil)
		done := runActor(t, a)
		stopActor(t, a, done)

		_, err := ask(t, a, "", "ping")
		require.ErrorIs(t, err, gerrors.ErrActorNotRunning)
	})
	t.Run("With supervisor commands refused by workers", func(t *testing.T) {
		a := newTestActor(t, nil)
		done := runActor(t, a)

		_, err := ask(t, a, "", "spawn")
		require.ErrorIs(t, err, gerrors.ErrCommandNotAllowed)
		_, err = ask(t, a, "", "workers")
		require.ErrorIs(t, err, gerrors.ErrCommandNotAllowed)

		stopActor(t, a, done)
	})
}

func TestState(t *testing.T) {
	assert.Equal(t, "running", Run.String())
	assert.Equal(t, "terminated", Terminate.String())
	assert.False(t, Stopping.Stopped())
	assert.True(t, Close.Stopped())
	assert.True(t, Terminate.Stopped())
}

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

package mailbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	gerrors "github.com/tochemey/gopulse/errors"
	"github.com/tochemey/gopulse/eventloop"
	"github.com/tochemey/gopulse/future"
	"github.com/tochemey/gopulse/log"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// runLoop starts a loop on its own goroutine and stops it on cleanup.
func runLoop(t *testing.T) *eventloop.Loop {
	t.Helper()
	loop, err := eventloop.New(eventloop.WithLogger(log.DiscardLogger), eventloop.WithPollTimeout(10*time.Millisecond))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- loop.RunForever() }()
	require.Eventually(t, loop.IsRunning, time.Second, time.Millisecond)

	t.Cleanup(func() {
		loop.Stop()
		require.NoError(t, <-done)
		require.NoError(t, loop.Close())
	})
	return loop
}

// onLoop runs fn on the loop goroutine and returns its result.
func onLoop[T any](loop *eventloop.Loop, fn func() T) T {
	out := make(chan T, 1)
	loop.CallSoonThreadsafe(func() { out <- fn() })
	return <-out
}

func request(t *testing.T, conn *Connection, msg *Message) (any, error) {
	t.Helper()
	deferred := onLoop(conn.Loop(), func() *future.Deferred { return conn.Request(msg) })
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return deferred.Await(ctx)
}

// echoHandler answers echo with its first argument and fail with an error.
func echoHandler() Handler {
	return HandlerFunc(func(conn *Connection, msg *Message) {
		switch msg.Command {
		case "echo":
			var result any
			if len(msg.Args) > 0 {
				result = msg.Args[0]
			}
			_ = conn.Reply(msg, result, nil)
		case "fail":
			_ = conn.Reply(msg, nil, gerrors.ErrUnknownActor)
		default:
			_ = conn.Reply(msg, nil, gerrors.NewErrCommandNotFound(msg.Command))
		}
	})
}

func newCodec(t *testing.T, opts ...CodecOption) *Codec {
	t.Helper()
	codec, err := NewCodec(opts...)
	require.NoError(t, err)
	return codec
}

func queuePair(t *testing.T, loop *eventloop.Loop, handler Handler) (*Connection, *Connection) {
	t.Helper()
	codec := newCodec(t)
	left, right := NewQueuePair(t.Name())
	client := NewConnection(loop, left, codec, nil, log.DiscardLogger)
	server := NewConnection(loop, right, codec, handler, log.DiscardLogger)
	client.Start()
	server.Start()
	t.Cleanup(func() {
		onLoop(loop, func() error { return multiClose(client, server) })
	})
	return client, server
}

func multiClose(conns ...*Connection) error {
	var errs []error
	for _, conn := range conns {
		errs = append(errs, conn.Close())
	}
	return errors.Join(errs...)
}

func TestConnection(t *testing.T) {
	t.Run("With request and reply", func(t *testing.T) {
		loop := runLoop(t)
		client, _ := queuePair(t, loop, echoHandler())

		result, err := request(t, client, NewMessage("echo", "a", "b", []any{"hello"}, nil))
		require.NoError(t, err)
		assert.Equal(t, "hello", result)
		assert.Zero(t, onLoop(loop, client.Pending))
	})
	t.Run("With errback reply", func(t *testing.T) {
		loop := runLoop(t)
		client, _ := queuePair(t, loop, echoHandler())

		_, err := request(t, client, NewMessage("fail", "a", "b", nil, nil))
		require.Error(t, err)
		assert.ErrorIs(t, err, gerrors.ErrUnknownActor)
		var commandErr *gerrors.CommandError
		require.True(t, errors.As(err, &commandErr))
		assert.Equal(t, "fail", commandErr.Command())
		assert.Equal(t, gerrors.Kind(gerrors.ErrUnknownActor), commandErr.Kind())
	})
	t.Run("With replies matched to concurrent requests", func(t *testing.T) {
		loop := runLoop(t)
		client, _ := queuePair(t, loop, echoHandler())

		deferreds := onLoop(loop, func() []*future.Deferred {
			var out []*future.Deferred
			for i := range 20 {
				out = append(out, client.Request(NewMessage("echo", "", "", []any{int64(i)}, nil)))
			}
			return out
		})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for i, deferred := range deferreds {
			result, err := deferred.Await(ctx)
			require.NoError(t, err)
			assert.EqualValues(t, i, result)
		}
	})
	t.Run("With no handler", func(t *testing.T) {
		loop := runLoop(t)
		client, _ := queuePair(t, loop, nil)

		_, err := request(t, client, NewMessage("echo", "", "", nil, nil))
		assert.ErrorIs(t, err, gerrors.ErrCommandNotFound)
		var commandErr *gerrors.CommandError
		require.True(t, errors.As(err, &commandErr))
		assert.Equal(t, gerrors.Kind(gerrors.ErrCommandNotFound), commandErr.Kind())
	})
	t.Run("With pending requests failed on close", func(t *testing.T) {
		loop := runLoop(t)
		silent := HandlerFunc(func(*Connection, *Message) {})
		client, _ := queuePair(t, loop, silent)

		closed := make(chan error, 1)
		deferred := onLoop(loop, func() *future.Deferred {
			client.OnClose(func(err error) { closed <- err })
			d := client.Request(NewMessage("echo", "", "", nil, nil))
			_ = client.Close()
			return d
		})

		_, err := deferred.Await(context.Background())
		assert.ErrorIs(t, err, gerrors.ErrConnectionClosed)
		assert.ErrorIs(t, <-closed, gerrors.ErrConnectionClosed)
		assert.True(t, client.Closed())

		deferred = onLoop(loop, func() *future.Deferred {
			return client.Request(NewMessage("echo", "", "", nil, nil))
		})
		_, err = deferred.Await(context.Background())
		assert.ErrorIs(t, err, gerrors.ErrConnectionClosed)
		assert.ErrorIs(t, client.Send(NewMessage("echo", "", "", nil, nil)), gerrors.ErrConnectionClosed)
	})
	t.Run("With peer close observed", func(t *testing.T) {
		loop := runLoop(t)
		client, server := queuePair(t, loop, echoHandler())

		closed := make(chan error, 1)
		onLoop(loop, func() bool {
			server.OnClose(func(err error) { closed <- err })
			return client.Close() == nil
		})

		select {
		case err := <-closed:
			assert.ErrorIs(t, err, gerrors.ErrConnectionClosed)
		case <-time.After(5 * time.Second):
			t.Fatal("peer close was not observed")
		}
		assert.True(t, server.Closed())
	})
	t.Run("With malformed input closing the connection", func(t *testing.T) {
		loop := runLoop(t)
		left, right := NewQueuePair(t.Name())
		server := NewConnection(loop, right, newCodec(t), echoHandler(), log.DiscardLogger)
		closed := make(chan error, 1)
		onLoop(loop, func() bool {
			server.OnClose(func(err error) { closed <- err })
			server.Start()
			return true
		})

		require.NoError(t, left.Send([]byte("?garbage")))
		select {
		case <-closed:
		case <-time.After(5 * time.Second):
			t.Fatal("malformed input did not close the connection")
		}
		assert.True(t, server.Closed())
		_ = left.Close()
	})
	t.Run("With metadata and peer", func(t *testing.T) {
		loop := runLoop(t)
		client, _ := queuePair(t, loop, nil)
		onLoop(loop, func() bool {
			client.SetPeer("worker-1")
			client.Set("wid", 3)
			return true
		})
		assert.Equal(t, "worker-1", client.Peer())
		value := onLoop(loop, func() any {
			v, ok := client.Get("wid")
			assert.True(t, ok)
			return v
		})
		assert.Equal(t, 3, value)
		assert.Contains(t, client.RemoteAddr(), "queue://")
	})
}

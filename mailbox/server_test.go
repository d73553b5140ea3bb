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
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travisjeffery/go-dynaport"

	gerrors "github.com/tochemey/gopulse/errors"
	"github.com/tochemey/gopulse/eventloop"
	"github.com/tochemey/gopulse/log"
)

func startServer(t *testing.T, loop *eventloop.Loop, addr Address, codec *Codec) *Server {
	t.Helper()
	server := NewServer(loop, codec, echoHandler(), log.DiscardLogger)
	require.NoError(t, server.Listen(addr))
	t.Cleanup(func() {
		require.NoError(t, onLoop(loop, server.Close))
	})
	return server
}

func dial(t *testing.T, loop *eventloop.Loop, addr Address, codec *Codec) *Connection {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := Dial(ctx, loop, addr, DialConfig{Codec: codec, Logger: log.DiscardLogger, Retries: 3})
	require.NoError(t, err)
	t.Cleanup(func() {
		onLoop(loop, conn.Close)
	})
	return conn
}

func TestServer(t *testing.T) {
	t.Run("With unix socket", func(t *testing.T) {
		loop := runLoop(t)
		codec := newCodec(t)
		server := startServer(t, loop, AddressFor(t.TempDir(), "a1b2c3d4"), codec)
		assert.Equal(t, NetworkUnix, server.Address().Network)

		connected := make(chan *Connection, 1)
		onLoop(loop, func() bool {
			server.OnConnect(func(conn *Connection) { connected <- conn })
			return true
		})

		client := dial(t, loop, server.Address(), codec)
		result, err := request(t, client, NewMessage("echo", "", "", []any{"over unix"}, nil))
		require.NoError(t, err)
		assert.Equal(t, "over unix", result)

		select {
		case <-connected:
		case <-time.After(5 * time.Second):
			t.Fatal("server did not report the connection")
		}
		assert.Equal(t, 1, onLoop(loop, server.Connections))
	})
	t.Run("With tcp socket", func(t *testing.T) {
		loop := runLoop(t)
		codec := newCodec(t)
		port := dynaport.Get(1)[0]
		server := startServer(t, loop, Address{Network: NetworkTCP, Address: fmt.Sprintf("127.0.0.1:%d", port)}, codec)
		assert.Equal(t, fmt.Sprintf("127.0.0.1:%d", port), server.Address().Address)

		client := dial(t, loop, server.Address(), codec)
		_, err := request(t, client, NewMessage("fail", "", "", nil, nil))
		assert.ErrorIs(t, err, gerrors.ErrUnknownActor)
	})
	t.Run("With multi megabyte payloads", func(t *testing.T) {
		loop := runLoop(t)
		codec := newCodec(t)
		server := startServer(t, loop, AddressFor(t.TempDir(), "big"), codec)
		client := dial(t, loop, server.Address(), codec)

		payload := make([]byte, 6<<20)
		_, err := rand.Read(payload)
		require.NoError(t, err)

		result, err := request(t, client, NewMessage("echo", "", "", []any{payload}, nil))
		require.NoError(t, err)
		echoed, ok := result.([]byte)
		require.True(t, ok)
		assert.True(t, bytes.Equal(payload, echoed))
	})
	t.Run("With compressed frames", func(t *testing.T) {
		loop := runLoop(t)
		codec := newCodec(t, WithCompression("zstd", 512))
		server := startServer(t, loop, AddressFor(t.TempDir(), "zstd"), codec)
		client := dial(t, loop, server.Address(), codec)

		payload := bytes.Repeat([]byte("frame "), 1<<16)
		result, err := request(t, client, NewMessage("echo", "", "", []any{payload}, nil))
		require.NoError(t, err)
		assert.Equal(t, payload, result)
	})
	t.Run("With connections closed on server close", func(t *testing.T) {
		loop := runLoop(t)
		codec := newCodec(t)
		server := NewServer(loop, codec, echoHandler(), log.DiscardLogger)
		require.NoError(t, server.Listen(AddressFor(t.TempDir(), "close")))

		client := dial(t, loop, server.Address(), codec)
		_, err := request(t, client, NewMessage("echo", "", "", nil, nil))
		require.NoError(t, err)

		closed := make(chan error, 1)
		onLoop(loop, func() bool {
			client.OnClose(func(err error) { closed <- err })
			return true
		})
		require.NoError(t, onLoop(loop, server.Close))

		select {
		case err := <-closed:
			assert.ErrorIs(t, err, gerrors.ErrConnectionClosed)
		case <-time.After(5 * time.Second):
			t.Fatal("client did not observe the server close")
		}
		assert.Zero(t, onLoop(loop, server.Connections))
	})
	t.Run("With dial failure", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, err := DialConn(ctx, AddressFor(t.TempDir(), "missing"), 2)
		assert.Error(t, err)
	})
}

func TestRequester(t *testing.T) {
	loop := runLoop(t)
	codec := newCodec(t)
	server := startServer(t, loop, AddressFor(t.TempDir(), "requester"), codec)

	requester := NewRequester(codec, "cli")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	t.Run("With blocking requests", func(t *testing.T) {
		for i := range 5 {
			result, err := requester.Request(ctx, server.Address(), NewMessage("echo", "", "", []any{int64(i)}, nil))
			require.NoError(t, err)
			assert.EqualValues(t, i, result)
		}
	})
	t.Run("With errback", func(t *testing.T) {
		_, err := requester.Request(ctx, server.Address(), NewMessage("nope", "", "", nil, nil))
		assert.ErrorIs(t, err, gerrors.ErrCommandNotFound)
	})
	t.Run("With fire and forget", func(t *testing.T) {
		require.NoError(t, requester.Send(ctx, server.Address(), NewMessage("echo", "", "", []any{"ignored"}, nil)))
		result, err := requester.Request(ctx, server.Address(), NewMessage("echo", "", "", []any{"after"}, nil))
		require.NoError(t, err)
		assert.Equal(t, "after", result)
	})
	t.Run("With closed requester", func(t *testing.T) {
		require.NoError(t, requester.Close())
		_, err := requester.Request(ctx, server.Address(), NewMessage("echo", "", "", nil, nil))
		assert.ErrorIs(t, err, gerrors.ErrPoolClosed)
	})
}

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

package tcp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func startEchoServer(t *testing.T) net.Listener {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				buf := make([]byte, 1024)
				for {
					n, err := conn.Read(buf)
					if err != nil {
						return
					}
					if _, err := conn.Write(buf[:n]); err != nil {
						return
					}
				}
			}()
		}
	}()
	return listener
}

func TestClient(t *testing.T) {
	t.Run("With connections reused", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		listener := startEchoServer(t)
		client := NewClient("tcp", listener.Addr().String(), WithMaxIdleConns(2))

		conn, err := client.Get(context.Background())
		require.NoError(t, err)
		_, err = conn.Write([]byte("ping"))
		require.NoError(t, err)
		buf := make([]byte, 4)
		_, err = conn.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, "ping", string(buf))

		client.Put(conn)
		assert.Equal(t, 1, client.Idle())

		again, err := client.Get(context.Background())
		require.NoError(t, err)
		assert.Same(t, conn, again)
		assert.Zero(t, client.Idle())

		client.Discard(again)
		require.NoError(t, client.Close())
		require.NoError(t, listener.Close())
	})
	t.Run("With stale connections evicted", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		listener := startEchoServer(t)
		client := NewClient("tcp", listener.Addr().String(), WithIdleTimeout(time.Millisecond))

		conn, err := client.Get(context.Background())
		require.NoError(t, err)
		client.Put(conn)
		time.Sleep(5 * time.Millisecond)

		fresh, err := client.Get(context.Background())
		require.NoError(t, err)
		assert.NotSame(t, conn, fresh)
		client.Discard(fresh)
		require.NoError(t, client.Close())
		require.NoError(t, listener.Close())
	})
	t.Run("With pooling disabled", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		listener := startEchoServer(t)
		client := NewClient("tcp", listener.Addr().String(), WithMaxIdleConns(0), WithDialTimeout(time.Second))
		conn, err := client.Get(context.Background())
		require.NoError(t, err)
		client.Put(conn)
		assert.Zero(t, client.Idle())
		require.NoError(t, client.Close())
		require.NoError(t, listener.Close())
	})
	t.Run("With closed client", func(t *testing.T) {
		client := NewClient("tcp", "127.0.0.1:1")
		require.NoError(t, client.Close())
		require.NoError(t, client.Close())
		_, err := client.Get(context.Background())
		assert.ErrorIs(t, err, ErrClientClosed)
	})
}

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
	"fmt"
	"net"
	"time"

	"github.com/flowchartsman/retry"

	"github.com/tochemey/gopulse/eventloop"
	"github.com/tochemey/gopulse/log"
)

// DialConfig holds what Dial needs besides the address.
type DialConfig struct {
	Codec   *Codec
	Handler Handler
	Logger  log.Logger
	Retries int
}

// Dial connects to the mailbox server at addr, retrying with an exponential
// backoff, and returns a started Connection dispatching on loop. It must be
// called from the loop goroutine or before the loop runs.
func Dial(ctx context.Context, loop *eventloop.Loop, addr Address, config DialConfig) (*Connection, error) {
	conn, err := DialConn(ctx, addr, config.Retries)
	if err != nil {
		return nil, err
	}

	c := NewConnection(loop, NewSocketTransport(conn), config.Codec, config.Handler, config.Logger)
	c.Start()
	return c, nil
}

// DialConn opens a raw stream connection to addr with retries.
func DialConn(ctx context.Context, addr Address, retries int) (net.Conn, error) {
	var (
		conn   net.Conn
		dialer net.Dialer
	)

	retrier := retry.NewRetrier(max(retries, 1), 50*time.Millisecond, time.Second)
	err := retrier.RunContext(ctx, func(ctx context.Context) error {
		c, err := dialer.DialContext(ctx, addr.Network, addr.Address)
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to (%s): %w", addr, err)
	}
	return conn, nil
}

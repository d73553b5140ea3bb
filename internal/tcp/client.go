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
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
)

// ErrClientClosed is returned when using a closed Client
var ErrClientClosed = errors.New("tcp: client is closed")

// Client keeps a LIFO pool of idle stream connections to one address.
// A connection obtained with Get belongs to the caller until it is handed
// back with Put or Discard. Stale idle connections are evicted on Get.
type Client struct {
	network     string
	address     string
	dialer      net.Dialer
	maxIdle     int
	idleTimeout time.Duration

	mu     sync.Mutex
	idle   []idleConn
	closed *atomic.Bool
}

type idleConn struct {
	conn  net.Conn
	since time.Time
}

// ClientOption configures a Client
type ClientOption func(*Client)

// NewClient creates a Client for address on network ("tcp" or "unix").
//
// Defaults: 8 idle connections, 30s idle timeout, 5s dial timeout and 15s
// keep-alive.
func NewClient(network, address string, opts ...ClientOption) *Client {
	c := &Client{
		network:     network,
		address:     address,
		maxIdle:     8,
		idleTimeout: 30 * time.Second,
		closed:      atomic.NewBool(false),
		dialer: net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.idle = make([]idleConn, 0, c.maxIdle)
	return c
}

// WithMaxIdleConns sets the number of idle connections kept. Zero disables
// pooling.
func WithMaxIdleConns(n int) ClientOption {
	return func(c *Client) { c.maxIdle = max(n, 0) }
}

// WithIdleTimeout sets how long an idle connection stays pooled
func WithIdleTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.idleTimeout = d }
}

// WithDialTimeout sets the timeout for establishing new connections
func WithDialTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.dialer.Timeout = d }
}

// Address returns the address the client dials
func (c *Client) Address() string {
	return c.address
}

// Idle returns the number of pooled connections
func (c *Client) Idle() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.idle)
}

// Get returns a pooled connection or dials a new one.
func (c *Client) Get(ctx context.Context) (net.Conn, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	cutoff := time.Now().Add(-c.idleTimeout)
	c.mu.Lock()
	for len(c.idle) > 0 {
		n := len(c.idle)
		ic := c.idle[n-1]
		c.idle[n-1] = idleConn{}
		c.idle = c.idle[:n-1]

		if ic.since.Before(cutoff) {
			c.mu.Unlock()
			_ = ic.conn.Close()
			c.mu.Lock()
			continue
		}

		c.mu.Unlock()
		return ic.conn, nil
	}
	c.mu.Unlock()

	return c.dialer.DialContext(ctx, c.network, c.address)
}

// Put hands a healthy connection back to the pool. It is closed when the
// pool is full or the client closed.
func (c *Client) Put(conn net.Conn) {
	if c.closed.Load() {
		_ = conn.Close()
		return
	}

	if err := conn.SetDeadline(time.Time{}); err != nil {
		_ = conn.Close()
		return
	}

	c.mu.Lock()
	if len(c.idle) < c.maxIdle {
		c.idle = append(c.idle, idleConn{conn: conn, since: time.Now()})
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	_ = conn.Close()
}

// Discard closes a connection that failed instead of pooling it
func (c *Client) Discard(conn net.Conn) {
	_ = conn.Close()
}

// Close closes every pooled connection. Later calls are no-ops.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	idle := c.idle
	c.idle = nil
	c.mu.Unlock()

	var err error
	for _, ic := range idle {
		err = multierr.Append(err, ic.conn.Close())
	}
	return err
}

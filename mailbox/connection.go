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
	"errors"
	"strconv"

	"go.uber.org/atomic"

	gerrors "github.com/tochemey/gopulse/errors"
	"github.com/tochemey/gopulse/eventloop"
	"github.com/tochemey/gopulse/future"
	"github.com/tochemey/gopulse/log"
)

// Handler processes the requests received by a Connection. It runs on the
// loop goroutine.
type Handler interface {
	HandleMessage(conn *Connection, msg *Message)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(conn *Connection, msg *Message)

// HandleMessage calls f
func (f HandlerFunc) HandleMessage(conn *Connection, msg *Message) {
	f(conn, msg)
}

type pendingReply struct {
	command  string
	deferred *future.Deferred
}

// Connection is a mailbox endpoint bound to a loop. Frames received on its
// transport are decoded and dispatched on the loop in arrival order. Replies
// resolve the Deferred returned by the matching Request.
type Connection struct {
	loop      *eventloop.Loop
	transport Transport
	codec     *Codec
	decoder   *Decoder
	handler   Handler
	logger    log.Logger

	pending  map[string]*pendingReply
	acks     *atomic.Uint64
	closed   *atomic.Bool
	onClose  []func(error)
	peer     string
	metadata map[string]any
}

// NewConnection creates a Connection. Start must be called to receive.
func NewConnection(loop *eventloop.Loop, transport Transport, codec *Codec, handler Handler, logger log.Logger) *Connection {
	if logger == nil {
		logger = log.DefaultLogger
	}
	return &Connection{
		loop:      loop,
		transport: transport,
		codec:     codec,
		decoder:   codec.NewDecoder(),
		handler:   handler,
		logger:    logger,
		pending:   make(map[string]*pendingReply),
		acks:      atomic.NewUint64(0),
		closed:    atomic.NewBool(false),
		metadata:  make(map[string]any),
	}
}

// Start begins receiving frames
func (c *Connection) Start() {
	c.transport.Start(
		func(data []byte) {
			c.loop.CallSoonThreadsafe(func() { c.feed(data) })
		},
		func(err error) {
			c.loop.CallSoonThreadsafe(func() { c.shutdown(err) })
		})
}

// Loop returns the loop the connection dispatches on
func (c *Connection) Loop() *eventloop.Loop {
	return c.loop
}

// Codec returns the connection codec
func (c *Connection) Codec() *Codec {
	return c.codec
}

// Peer returns the identifier of the remote endpoint, once known.
func (c *Connection) Peer() string {
	return c.peer
}

// SetPeer records the identifier of the remote endpoint
func (c *Connection) SetPeer(peer string) {
	c.peer = peer
}

// Set stores a value on the connection. Loop goroutine only.
func (c *Connection) Set(key string, value any) {
	c.metadata[key] = value
}

// Get returns a value stored on the connection. Loop goroutine only.
func (c *Connection) Get(key string) (any, bool) {
	value, ok := c.metadata[key]
	return value, ok
}

// RemoteAddr returns the transport remote address
func (c *Connection) RemoteAddr() string {
	return c.transport.RemoteAddr()
}

// Closed reports whether the connection is closed
func (c *Connection) Closed() bool {
	return c.closed.Load()
}

// Pending returns the number of requests waiting for a reply
func (c *Connection) Pending() int {
	return len(c.pending)
}

// Send writes msg without waiting for a reply. It is safe to call from any
// goroutine.
func (c *Connection) Send(msg *Message) error {
	if c.closed.Load() {
		return gerrors.ErrConnectionClosed
	}
	frame, err := c.codec.Encode(msg)
	if err != nil {
		return err
	}
	return c.transport.Send(frame)
}

// Request writes msg and returns a Deferred resolved with the reply.
// It must be called from the loop goroutine.
func (c *Connection) Request(msg *Message) *future.Deferred {
	deferred := future.NewDeferred(c.loop)
	if c.closed.Load() {
		_, _ = deferred.Callback(gerrors.ErrConnectionClosed)
		return deferred
	}

	ack := strconv.FormatUint(c.acks.Inc(), 36)
	msg.Ack = ack
	c.pending[ack] = &pendingReply{command: msg.Command, deferred: deferred}
	deferred.AddBoth(func(result any) any {
		delete(c.pending, ack)
		return result
	})

	if err := c.Send(msg); err != nil {
		_, _ = deferred.Callback(err)
	}
	return deferred
}

// Reply answers req with result or err. Requests sent without
// acknowledgement are not answered.
func (c *Connection) Reply(req *Message, result any, err error) error {
	if req.Ack == "" {
		return nil
	}
	if err != nil {
		return c.Send(NewErrback(req, err))
	}
	return c.Send(NewCallback(req, result))
}

// OnClose registers fn to run on the loop once the connection closes.
func (c *Connection) OnClose(fn func(error)) {
	if c.closed.Load() {
		c.loop.CallSoon(func() { fn(gerrors.ErrConnectionClosed) })
		return
	}
	c.onClose = append(c.onClose, fn)
}

// Close flushes queued frames and closes the connection. Pending requests
// fail with ErrConnectionClosed.
func (c *Connection) Close() error {
	err := c.transport.Close()
	c.shutdown(gerrors.ErrConnectionClosed)
	return err
}

func (c *Connection) feed(data []byte) {
	if c.closed.Load() {
		return
	}

	c.decoder.Feed(data)
	for !c.closed.Load() {
		frame, err := c.decoder.Next()
		if err != nil {
			if errors.Is(err, gerrors.ErrIncompleteFrame) {
				return
			}
			c.logger.Errorf("closing connection to (%s): %v", c.RemoteAddr(), err)
			_ = c.Close()
			return
		}

		msg, err := c.codec.Decode(frame)
		if err != nil {
			c.logger.Errorf("closing connection to (%s): %v", c.RemoteAddr(), err)
			_ = c.Close()
			return
		}
		c.dispatch(msg)
	}
}

func (c *Connection) dispatch(msg *Message) {
	if msg.IsReply() {
		pending, ok := c.pending[msg.Ack]
		if !ok {
			c.logger.Warnf("no request waiting for reply ack=(%s)", msg.Ack)
			return
		}
		delete(c.pending, msg.Ack)
		result, err := msg.Outcome(pending.command)
		if err != nil {
			_, _ = pending.deferred.Callback(err)
			return
		}
		_, _ = pending.deferred.Callback(result)
		return
	}

	if c.handler == nil {
		_ = c.Reply(msg, nil, gerrors.NewErrCommandNotFound(msg.Command))
		return
	}
	c.handler.HandleMessage(c, msg)
}

func (c *Connection) shutdown(reason error) {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	_ = c.transport.Close()

	for ack, pending := range c.pending {
		delete(c.pending, ack)
		_, _ = pending.deferred.Callback(reason)
	}

	callbacks := c.onClose
	c.onClose = nil
	for _, fn := range callbacks {
		fn(reason)
	}
}

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
	"net"
	"strconv"

	"go.uber.org/atomic"
	"go.uber.org/multierr"

	gerrors "github.com/tochemey/gopulse/errors"
	"github.com/tochemey/gopulse/internal/tcp"
	"github.com/tochemey/gopulse/internal/xsync"
)

// Requester sends blocking requests to mailbox servers from goroutines
// that do not run a loop. Connections are pooled per address and each one
// carries a single request at a time. It is safe for concurrent use.
type Requester struct {
	codec   *Codec
	sender  string
	clients *xsync.Map[string, *tcp.Client]
	acks    *atomic.Uint64
	closed  *atomic.Bool
}

// NewRequester creates a Requester. sender identifies the requester in the
// messages it sends.
func NewRequester(codec *Codec, sender string) *Requester {
	return &Requester{
		codec:   codec,
		sender:  sender,
		clients: xsync.NewMap[string, *tcp.Client](),
		acks:    atomic.NewUint64(0),
		closed:  atomic.NewBool(false),
	}
}

// Request sends msg to addr and waits for the reply or ctx.
func (r *Requester) Request(ctx context.Context, addr Address, msg *Message) (any, error) {
	if msg.Sender == "" {
		msg.Sender = r.sender
	}
	msg.Ack = "r" + strconv.FormatUint(r.acks.Inc(), 36)

	client, conn, err := r.open(ctx, addr, msg)
	if err != nil {
		return nil, err
	}

	reply, clean, err := r.readReply(conn, msg.Ack)
	if err != nil {
		client.Discard(conn)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	if clean {
		client.Put(conn)
	} else {
		client.Discard(conn)
	}
	return reply.Outcome(msg.Command)
}

// Send writes msg to addr without waiting for a reply.
func (r *Requester) Send(ctx context.Context, addr Address, msg *Message) error {
	if msg.Sender == "" {
		msg.Sender = r.sender
	}
	msg.Ack = ""

	client, conn, err := r.open(ctx, addr, msg)
	if err != nil {
		return err
	}
	client.Put(conn)
	return nil
}

// Close closes every pooled connection
func (r *Requester) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	var err error
	for _, client := range r.clients.Reset() {
		err = multierr.Append(err, client.Close())
	}
	return err
}

// open writes msg on a pooled connection to addr.
func (r *Requester) open(ctx context.Context, addr Address, msg *Message) (*tcp.Client, net.Conn, error) {
	if r.closed.Load() {
		return nil, nil, gerrors.ErrPoolClosed
	}

	frame, err := r.codec.Encode(msg)
	if err != nil {
		return nil, nil, err
	}

	client := r.clients.GetOrSet(addr.String(), func() *tcp.Client {
		return tcp.NewClient(addr.Network, addr.Address)
	})

	conn, err := client.Get(ctx)
	if err != nil {
		if errors.Is(err, tcp.ErrClientClosed) {
			return nil, nil, gerrors.ErrPoolClosed
		}
		return nil, nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			client.Discard(conn)
			return nil, nil, err
		}
	}

	if _, err := conn.Write(frame); err != nil {
		client.Discard(conn)
		return nil, nil, err
	}
	return client, conn, nil
}

// readReply reads frames until the reply to ack. clean is false when bytes
// followed the reply on the connection.
func (r *Requester) readReply(conn net.Conn, ack string) (reply *Message, clean bool, err error) {
	decoder := r.codec.NewDecoder()
	buffer := make([]byte, readBufferSize)
	for {
		frame, err := decoder.Next()
		switch {
		case err == nil:
			msg, err := r.codec.Decode(frame)
			if err != nil {
				return nil, false, err
			}
			if msg.IsReply() && msg.Ack == ack {
				return msg, decoder.Buffered() == 0, nil
			}
			continue
		case !errors.Is(err, gerrors.ErrIncompleteFrame):
			return nil, false, err
		}

		n, err := conn.Read(buffer)
		if n > 0 {
			decoder.Feed(buffer[:n])
		}
		if err != nil {
			return nil, false, closeReason(err)
		}
	}
}

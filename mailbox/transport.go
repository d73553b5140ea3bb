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
	"fmt"
	"io"
	"net"
	"sync"

	"go.uber.org/atomic"

	gerrors "github.com/tochemey/gopulse/errors"
	"github.com/tochemey/gopulse/internal/queue"
)

const readBufferSize = 64 << 10

// Transport moves frames between two mailboxes. Send may be called from any
// goroutine. The callbacks given to Start run on a goroutine owned by the
// transport, onData sequentially in arrival order and onClose once.
type Transport interface {
	// Start begins delivering received bytes
	Start(onData func([]byte), onClose func(error))
	// Send queues a frame for writing. The frame must not be modified afterwards.
	Send(frame []byte) error
	// Close flushes queued frames and closes the transport
	Close() error
	// LocalAddr returns the local address
	LocalAddr() string
	// RemoteAddr returns the remote address
	RemoteAddr() string
}

// socketTransport is a Transport over a stream connection. Writes are
// queued and flushed in batches by a dedicated goroutine.
type socketTransport struct {
	conn    net.Conn
	outbox  *queue.Queue[[]byte]
	closed  *atomic.Bool
	started *atomic.Bool
	once    sync.Once
	onClose func(error)
}

var _ Transport = (*socketTransport)(nil)

// NewSocketTransport creates a Transport over conn
func NewSocketTransport(conn net.Conn) Transport {
	return &socketTransport{
		conn:    conn,
		outbox:  queue.New[[]byte](),
		closed:  atomic.NewBool(false),
		started: atomic.NewBool(false),
	}
}

func (t *socketTransport) Start(onData func([]byte), onClose func(error)) {
	if !t.started.CompareAndSwap(false, true) {
		return
	}
	t.onClose = onClose
	go t.read(onData)
	go t.write()
}

func (t *socketTransport) Send(frame []byte) error {
	if t.closed.Load() || !t.outbox.Push(frame) {
		return gerrors.ErrConnectionClosed
	}
	return nil
}

func (t *socketTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.outbox.Close()
	if !t.started.Load() {
		return t.conn.Close()
	}
	return nil
}

func (t *socketTransport) LocalAddr() string {
	return t.conn.LocalAddr().String()
}

func (t *socketTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

func (t *socketTransport) read(onData func([]byte)) {
	buffer := make([]byte, readBufferSize)
	for {
		n, err := t.conn.Read(buffer)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buffer[:n])
			onData(data)
		}
		if err != nil {
			t.shutdown(err)
			return
		}
	}
}

func (t *socketTransport) write() {
	for {
		frames := t.outbox.WaitAll()
		if frames == nil {
			// closed and flushed
			_ = t.conn.Close()
			return
		}

		buffers := net.Buffers(frames)
		if _, err := buffers.WriteTo(t.conn); err != nil {
			t.shutdown(err)
			return
		}
	}
}

func (t *socketTransport) shutdown(err error) {
	t.once.Do(func() {
		t.closed.Store(true)
		t.outbox.Close()
		_ = t.conn.Close()
		if t.onClose != nil {
			t.onClose(closeReason(err))
		}
	})
}

func closeReason(err error) error {
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return gerrors.ErrConnectionClosed
	}
	return fmt.Errorf("%w: %w", gerrors.ErrConnectionClosed, err)
}

// queueTransport is one end of an in-process Transport pair.
type queueTransport struct {
	name    string
	inbox   *queue.Queue[[]byte]
	peer    *queueTransport
	closed  *atomic.Bool
	started *atomic.Bool
}

var _ Transport = (*queueTransport)(nil)

// NewQueuePair creates two connected in-process transports. Frames sent on
// one end are received by the other.
func NewQueuePair(name string) (Transport, Transport) {
	left := newQueueTransport(name + ".left")
	right := newQueueTransport(name + ".right")
	left.peer = right
	right.peer = left
	return left, right
}

func newQueueTransport(name string) *queueTransport {
	return &queueTransport{
		name:    name,
		inbox:   queue.New[[]byte](),
		closed:  atomic.NewBool(false),
		started: atomic.NewBool(false),
	}
}

func (t *queueTransport) Start(onData func([]byte), onClose func(error)) {
	if !t.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		for {
			frames := t.inbox.WaitAll()
			if frames == nil {
				t.closed.Store(true)
				if onClose != nil {
					onClose(gerrors.ErrConnectionClosed)
				}
				return
			}
			for _, frame := range frames {
				onData(frame)
			}
		}
	}()
}

func (t *queueTransport) Send(frame []byte) error {
	if t.closed.Load() || !t.peer.inbox.Push(frame) {
		return gerrors.ErrConnectionClosed
	}
	return nil
}

func (t *queueTransport) Close() error {
	t.closed.Store(true)
	t.inbox.Close()
	t.peer.inbox.Close()
	return nil
}

func (t *queueTransport) LocalAddr() string {
	return "queue://" + t.name
}

func (t *queueTransport) RemoteAddr() string {
	return "queue://" + t.peer.name
}

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
	"net"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/tochemey/gopulse/eventloop"
	"github.com/tochemey/gopulse/log"
)

// Server accepts mailbox connections and serves them on a loop.
type Server struct {
	loop      *eventloop.Loop
	codec     *Codec
	handler   Handler
	logger    log.Logger
	onConnect func(*Connection)

	listener net.Listener
	address  Address
	conns    map[*Connection]struct{}
	closed   *atomic.Bool
	wg       sync.WaitGroup
}

// NewServer creates a Server dispatching requests to handler.
func NewServer(loop *eventloop.Loop, codec *Codec, handler Handler, logger log.Logger) *Server {
	if logger == nil {
		logger = log.DefaultLogger
	}
	return &Server{
		loop:    loop,
		codec:   codec,
		handler: handler,
		logger:  logger,
		conns:   make(map[*Connection]struct{}),
		closed:  atomic.NewBool(false),
	}
}

// OnConnect sets a function called on the loop for every new connection.
func (s *Server) OnConnect(fn func(*Connection)) {
	s.onConnect = fn
}

// Listen binds addr and starts accepting socket connections.
func (s *Server) Listen(addr Address) error {
	listener, bound, err := Listen(addr)
	if err != nil {
		return err
	}

	s.listener = listener
	s.address = bound
	s.wg.Add(1)
	go s.accept()
	s.logger.Debugf("mailbox server listening on (%s)", bound)
	return nil
}

// Address returns the address peers dial
func (s *Server) Address() Address {
	return s.address
}

// Serve attaches an already connected transport. It must be called from the
// loop goroutine.
func (s *Server) Serve(transport Transport) *Connection {
	conn := NewConnection(s.loop, transport, s.codec, s.handler, s.logger)
	s.conns[conn] = struct{}{}
	conn.OnClose(func(error) {
		delete(s.conns, conn)
	})
	conn.Start()
	if s.onConnect != nil {
		s.onConnect(conn)
	}
	return conn
}

// Connections returns the number of open connections. Loop goroutine only.
func (s *Server) Connections() int {
	return len(s.conns)
}

// Close stops accepting and closes every connection. It must be called from
// the loop goroutine or once the loop stopped.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	if s.listener != nil {
		if cerr := s.listener.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = multierr.Append(err, cerr)
		}
		s.wg.Wait()
	}

	for conn := range s.conns {
		err = multierr.Append(err, conn.Close())
	}
	clear(s.conns)
	return err
}

func (s *Server) accept() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.closed.Load() {
				s.logger.Errorf("mailbox server on (%s) stopped accepting: %v", s.address, err)
			}
			return
		}

		transport := NewSocketTransport(conn)
		s.loop.CallSoonThreadsafe(func() {
			if s.closed.Load() {
				_ = transport.Close()
				return
			}
			s.Serve(transport)
		})
	}
}

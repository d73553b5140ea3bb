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

//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package eventloop

import (
	"errors"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// waker is the self-pipe a poller watches to be interrupted from other
// goroutines. Once closed, Wake never touches the pipe descriptors again
// since their numbers can be reused by the process.
type waker struct {
	mu     sync.RWMutex
	closed bool
	read   int
	write  int
	sent   *atomic.Bool
}

func newWaker() (*waker, error) {
	var pipe [2]int
	if err := unix.Pipe(pipe[:]); err != nil {
		return nil, err
	}
	for _, end := range pipe {
		unix.CloseOnExec(end)
		if err := unix.SetNonblock(end, true); err != nil {
			_ = unix.Close(pipe[0])
			_ = unix.Close(pipe[1])
			return nil, err
		}
	}
	return &waker{read: pipe[0], write: pipe[1], sent: atomic.NewBool(false)}, nil
}

// Wake writes a single byte until the loop drains it. It is a no-op once
// the waker is closed.
func (w *waker) Wake() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return nil
	}
	if !w.sent.CompareAndSwap(false, true) {
		return nil
	}
	if _, err := unix.Write(w.write, []byte{1}); err != nil && !errors.Is(err, unix.EAGAIN) {
		w.sent.Store(false)
		return err
	}
	return nil
}

func (w *waker) drain() {
	buf := make([]byte, 64)
	for {
		if n, err := unix.Read(w.read, buf); n <= 0 || err != nil {
			break
		}
	}
	w.sent.Store(false)
}

func (w *waker) close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return multierr.Combine(unix.Close(w.read), unix.Close(w.write))
}

func socketError(fd int) error {
	code, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if code != 0 {
		return unix.Errno(code)
	}
	return nil
}

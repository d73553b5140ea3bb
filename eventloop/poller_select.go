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
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	gerrors "github.com/tochemey/gopulse/errors"
)

// selectPoller is the readiness poller of the platforms without epoll or
// kqueue. Descriptors are limited to FD_SETSIZE.
type selectPoller struct {
	*waker
	registered map[int][2]bool
}

var _ poller = (*selectPoller)(nil)

func newSelectPoller() (*selectPoller, error) {
	w, err := newWaker()
	if err != nil {
		return nil, err
	}
	return &selectPoller{waker: w, registered: make(map[int][2]bool)}, nil
}

func (p *selectPoller) Set(fd int, read, write bool) error {
	if fd < 0 || fd >= unix.FD_SETSIZE {
		return fmt.Errorf("%w: descriptor %d is out of the select range", gerrors.ErrIONotSupported, fd)
	}
	if !read && !write {
		delete(p.registered, fd)
		return nil
	}
	p.registered[fd] = [2]bool{read, write}
	return nil
}

func (p *selectPoller) Poll(timeout time.Duration) ([]ioEvent, error) {
	var readSet, writeSet unix.FdSet
	readSet.Set(p.waker.read)
	highest := p.waker.read
	for fd, interest := range p.registered {
		if interest[0] {
			readSet.Set(fd)
		}
		if interest[1] {
			writeSet.Set(fd)
		}
		highest = max(highest, fd)
	}

	var tv *unix.Timeval
	if timeout >= 0 {
		value := unix.NsecToTimeval(timeout.Nanoseconds())
		tv = &value
	}

	if _, err := unix.Select(highest+1, &readSet, &writeSet, nil, tv); err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, nil
		}
		return nil, err
	}

	if readSet.IsSet(p.waker.read) {
		p.waker.drain()
	}

	var ready []ioEvent
	for fd := range p.registered {
		event := ioEvent{fd: fd, read: readSet.IsSet(fd), write: writeSet.IsSet(fd)}
		if event.read || event.write {
			ready = append(ready, event)
		}
	}
	return ready, nil
}

func (p *selectPoller) Close() error {
	clear(p.registered)
	return p.waker.close()
}

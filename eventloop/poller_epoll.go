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

//go:build linux

package eventloop

import (
	"errors"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

type epoll struct {
	*waker
	fd         int
	registered map[int]uint32
	events     []unix.EpollEvent
}

var _ poller = (*epoll)(nil)

func newPoller() (poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}

	w, err := newWaker()
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	event := &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(w.read)}
	if err := unix.EpollCtl(fd, unix.EPOLL_CTL_ADD, w.read, event); err != nil {
		_ = unix.Close(fd)
		_ = w.close()
		return nil, err
	}

	return &epoll{
		fd:         fd,
		waker:      w,
		registered: make(map[int]uint32),
		events:     make([]unix.EpollEvent, 128),
	}, nil
}

func (p *epoll) Set(fd int, read, write bool) error {
	var mask uint32
	if read {
		mask |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if write {
		mask |= unix.EPOLLOUT
	}

	current, ok := p.registered[fd]
	switch {
	case mask == 0 && !ok:
		return nil
	case mask == 0:
		delete(p.registered, fd)
		return unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, fd, nil)
	case !ok:
		if err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: mask, Fd: int32(fd)}); err != nil {
			return err
		}
	case current != mask:
		if err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{Events: mask, Fd: int32(fd)}); err != nil {
			return err
		}
	}
	p.registered[fd] = mask
	return nil
}

func (p *epoll) Poll(timeout time.Duration) ([]ioEvent, error) {
	n, err := unix.EpollWait(p.fd, p.events, pollMillis(timeout))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, nil
		}
		return nil, err
	}

	var ready []ioEvent
	for _, event := range p.events[:n] {
		fd := int(event.Fd)
		if fd == p.waker.read {
			p.waker.drain()
			continue
		}

		failed := event.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0
		ready = append(ready, ioEvent{
			fd:    fd,
			read:  failed || event.Events&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0,
			write: failed || event.Events&unix.EPOLLOUT != 0,
		})
	}
	return ready, nil
}

func (p *epoll) Close() error {
	return multierr.Combine(p.waker.close(), unix.Close(p.fd))
}

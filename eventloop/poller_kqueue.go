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

//go:build darwin || freebsd

package eventloop

import (
	"errors"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

type kqueue struct {
	*waker
	fd         int
	registered map[int][2]bool
	events     []unix.Kevent_t
}

var _ poller = (*kqueue)(nil)

func newPoller() (poller, error) {
	fd, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(fd)

	w, err := newWaker()
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	p := &kqueue{
		fd:         fd,
		waker:      w,
		registered: make(map[int][2]bool),
		events:     make([]unix.Kevent_t, 128),
	}
	if err := p.change(w.read, unix.EVFILT_READ, unix.EV_ADD); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

func (p *kqueue) change(fd int, filter int, flags int) error {
	changes := make([]unix.Kevent_t, 1)
	unix.SetKevent(&changes[0], fd, filter, flags)
	_, err := unix.Kevent(p.fd, changes, nil, nil)
	return err
}

func (p *kqueue) Set(fd int, read, write bool) error {
	current := p.registered[fd]
	if current[0] != read {
		flags := unix.EV_ADD
		if !read {
			flags = unix.EV_DELETE
		}
		if err := p.change(fd, unix.EVFILT_READ, flags); err != nil {
			return err
		}
	}
	if current[1] != write {
		flags := unix.EV_ADD
		if !write {
			flags = unix.EV_DELETE
		}
		if err := p.change(fd, unix.EVFILT_WRITE, flags); err != nil {
			return err
		}
	}

	if !read && !write {
		delete(p.registered, fd)
		return nil
	}
	p.registered[fd] = [2]bool{read, write}
	return nil
}

func (p *kqueue) Poll(timeout time.Duration) ([]ioEvent, error) {
	var ts *unix.Timespec
	if timeout >= 0 {
		spec := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &spec
	}

	n, err := unix.Kevent(p.fd, nil, p.events, ts)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, nil
		}
		return nil, err
	}

	var ready []ioEvent
	for _, event := range p.events[:n] {
		fd := int(event.Ident)
		if fd == p.waker.read {
			p.waker.drain()
			continue
		}

		failed := event.Flags&(unix.EV_EOF|unix.EV_ERROR) != 0
		ready = append(ready, ioEvent{
			fd:    fd,
			read:  failed || event.Filter == unix.EVFILT_READ,
			write: failed || event.Filter == unix.EVFILT_WRITE,
		})
	}
	return ready, nil
}

func (p *kqueue) Close() error {
	return multierr.Combine(p.waker.close(), unix.Close(p.fd))
}

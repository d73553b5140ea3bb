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

package eventloop

import (
	"fmt"

	gerrors "github.com/tochemey/gopulse/errors"
)

// AddReader calls fn every time fd is readable. A file descriptor has at
// most one reader.
func (l *Loop) AddReader(fd int, fn func()) error {
	if _, ok := l.readers[fd]; ok {
		return fmt.Errorf("%w: reader for fd=(%d)", gerrors.ErrEventAlreadyRegistered, fd)
	}
	_, writing := l.writers[fd]
	if err := l.poller.Set(fd, true, writing); err != nil {
		return err
	}
	l.readers[fd] = newHandle(fn)
	return nil
}

// AddWriter calls fn every time fd is writable. A file descriptor has at
// most one writer.
func (l *Loop) AddWriter(fd int, fn func()) error {
	if _, ok := l.writers[fd]; ok {
		return fmt.Errorf("%w: writer for fd=(%d)", gerrors.ErrEventAlreadyRegistered, fd)
	}
	_, reading := l.readers[fd]
	if err := l.poller.Set(fd, reading, true); err != nil {
		return err
	}
	l.writers[fd] = newHandle(fn)
	return nil
}

// AddConnector waits for a non-blocking connect on fd to complete. It calls
// onConnect once the socket is connected, or onError with the socket error.
// The writer slot of fd is used until then.
func (l *Loop) AddConnector(fd int, onConnect func(), onError func(error)) error {
	return l.AddWriter(fd, func() {
		l.RemoveWriter(fd)
		if err := socketError(fd); err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		if onConnect != nil {
			onConnect()
		}
	})
}

// RemoveReader stops watching fd for reads. It reports whether a reader was
// registered.
func (l *Loop) RemoveReader(fd int) bool {
	handle, ok := l.readers[fd]
	if !ok {
		return false
	}
	handle.Cancel()
	delete(l.readers, fd)
	_, writing := l.writers[fd]
	if err := l.poller.Set(fd, false, writing); err != nil {
		l.logger.Warnf("failed to remove reader fd=(%d): %v", fd, err)
	}
	return true
}

// RemoveWriter stops watching fd for writes. It reports whether a writer
// was registered.
func (l *Loop) RemoveWriter(fd int) bool {
	handle, ok := l.writers[fd]
	if !ok {
		return false
	}
	handle.Cancel()
	delete(l.writers, fd)
	_, reading := l.readers[fd]
	if err := l.poller.Set(fd, reading, false); err != nil {
		l.logger.Warnf("failed to remove writer fd=(%d): %v", fd, err)
	}
	return true
}

// dispatchIO queues the handlers of ready descriptors. Readiness handlers
// are reused across iterations and run through the ready queue like any
// other callback.
func (l *Loop) dispatchIO(events []ioEvent) {
	for _, event := range events {
		if event.read {
			if handle, ok := l.readers[event.fd]; ok {
				l.pushReady(l.ioCall(handle))
			}
		}
		if event.write {
			if handle, ok := l.writers[event.fd]; ok {
				l.pushReady(l.ioCall(handle))
			}
		}
	}
}

func (l *Loop) ioCall(handle *Handle) *Handle {
	return newHandle(func() {
		if !handle.Cancelled() {
			handle.fn()
		}
	})
}

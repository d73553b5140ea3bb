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

//go:build !aix && !darwin && !dragonfly && !freebsd && !linux && !netbsd && !openbsd && !solaris

package eventloop

import (
	"time"

	gerrors "github.com/tochemey/gopulse/errors"
)

// waitPoller only supports waking up. File descriptors cannot be watched.
type waitPoller struct {
	wake chan struct{}
}

var _ poller = (*waitPoller)(nil)

func newPoller() (poller, error) {
	return &waitPoller{wake: make(chan struct{}, 1)}, nil
}

func (p *waitPoller) Set(int, bool, bool) error {
	return gerrors.ErrIONotSupported
}

func (p *waitPoller) Poll(timeout time.Duration) ([]ioEvent, error) {
	if timeout < 0 {
		<-p.wake
		return nil, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-p.wake:
	case <-timer.C:
	}
	return nil, nil
}

func (p *waitPoller) Wake() error {
	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

func (p *waitPoller) Close() error {
	return nil
}

func socketError(int) error {
	return nil
}

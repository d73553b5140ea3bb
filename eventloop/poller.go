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

import "time"

// ioEvent is the readiness reported for one file descriptor.
type ioEvent struct {
	fd    int
	read  bool
	write bool
}

// poller waits for file descriptor readiness. Wake interrupts a blocked Poll
// from any goroutine; every other method is called from the loop goroutine.
type poller interface {
	// Set registers interest for fd. Clearing both flags unregisters it.
	Set(fd int, read, write bool) error
	// Poll waits at most timeout for readiness.
	Poll(timeout time.Duration) ([]ioEvent, error)
	// Wake interrupts a blocked Poll
	Wake() error
	// Close releases the poller resources
	Close() error
}

func pollMillis(timeout time.Duration) int {
	switch {
	case timeout < 0:
		return -1
	case timeout > 0 && timeout < time.Millisecond:
		return 1
	default:
		return int(timeout / time.Millisecond)
	}
}

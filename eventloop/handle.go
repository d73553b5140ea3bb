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
	"time"

	"go.uber.org/atomic"

	"github.com/tochemey/gopulse/future"
)

const (
	handlePending int32 = iota
	handleDone
	handleCancelled
)

// Handle is a callback scheduled on a Loop.
type Handle struct {
	fn     func()
	state  *atomic.Int32
	when   time.Time
	period time.Duration
	index  int
}

var _ future.Timer = (*Handle)(nil)

func newHandle(fn func()) *Handle {
	return &Handle{fn: fn, state: atomic.NewInt32(handlePending), index: -1}
}

// Cancel prevents the callback from running. It returns false when the
// callback already ran or was cancelled. A periodic callback can be
// cancelled at any time.
func (h *Handle) Cancel() bool {
	return h.state.CompareAndSwap(handlePending, handleCancelled)
}

// Cancelled reports whether the handle was cancelled
func (h *Handle) Cancelled() bool {
	return h.state.Load() == handleCancelled
}

// When returns the deadline of a timed handle
func (h *Handle) When() time.Time {
	return h.when
}

func (h *Handle) periodic() bool {
	return h.period > 0
}

// timerHeap orders timed handles by deadline.
type timerHeap []*Handle

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool { return h[i].when.Before(h[j].when) }

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	handle := x.(*Handle)
	handle.index = len(*h)
	*h = append(*h, handle)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	handle := old[n-1]
	old[n-1] = nil
	handle.index = -1
	*h = old[:n-1]
	return handle
}

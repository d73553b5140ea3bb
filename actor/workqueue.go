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

package actor

import (
	"fmt"
	"time"

	gods "github.com/Workiva/go-datastructures/queue"
	"go.uber.org/atomic"

	gerrors "github.com/tochemey/gopulse/errors"
)

// job is a request queued for the CPU-bound workers of a monitor.
type job struct {
	command string
	args    []any
	kwargs  map[string]any
	done    func(result any)
}

// WorkQueue is the bounded queue shared by the CPU-bound workers of a
// monitor. Producers never block: Offer fails with ErrBacklogFull when the
// queue is full. Idle consumers park until a job arrives or their poll times
// out. It is safe for concurrent use.
type WorkQueue struct {
	underlying *gods.Queue
	capacity   int64
	// slots counts queued jobs, including the ones being put
	slots *atomic.Int64
}

// NewWorkQueue creates a WorkQueue holding up to size jobs
func NewWorkQueue(size int) *WorkQueue {
	return &WorkQueue{
		underlying: gods.New(int64(size)),
		capacity:   int64(size),
		slots:      atomic.NewInt64(0),
	}
}

// offer queues j without blocking
func (q *WorkQueue) offer(j *job) error {
	if q.slots.Inc() > q.capacity {
		q.slots.Dec()
		return gerrors.ErrBacklogFull
	}
	if err := q.underlying.Put(j); err != nil {
		q.slots.Dec()
		return fmt.Errorf("work queue: %w", err)
	}
	return nil
}

// poll waits up to timeout for a job. timeout must be positive.
func (q *WorkQueue) poll(timeout time.Duration) (*job, bool) {
	// ErrTimeout and ErrDisposed both mean no job
	items, err := q.underlying.Poll(1, timeout)
	if err != nil || len(items) == 0 {
		return nil, false
	}
	q.slots.Dec()
	j, ok := items[0].(*job)
	return j, ok
}

// Len returns the number of queued jobs
func (q *WorkQueue) Len() int {
	return int(q.underlying.Len())
}

// Cap returns the capacity of the queue
func (q *WorkQueue) Cap() int {
	return int(q.capacity)
}

// Dispose releases the queue and wakes blocked workers
func (q *WorkQueue) Dispose() {
	q.underlying.Dispose()
}

// Disposed reports whether Dispose was called
func (q *WorkQueue) Disposed() bool {
	return q.underlying.Disposed()
}

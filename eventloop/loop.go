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
	"container/heap"
	"fmt"
	"runtime"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edwingeng/deque"
	"go.uber.org/atomic"

	gerrors "github.com/tochemey/gopulse/errors"
	"github.com/tochemey/gopulse/future"
	"github.com/tochemey/gopulse/internal/queue"
	"github.com/tochemey/gopulse/internal/workerpool"
	"github.com/tochemey/gopulse/log"
)

// DefaultPollTimeout caps how long an idle iteration waits for I/O.
const DefaultPollTimeout = 500 * time.Millisecond

// stopSignal unwinds RunForever. It is the only panic a callback may let
// escape.
type stopSignal struct{}

// Loop is a single goroutine scheduler. It runs callbacks scheduled with
// CallSoon, timed callbacks scheduled with CallLater, CallAt and CallEvery,
// I/O readiness handlers and signal handlers.
//
// Blocking work is handed to a pool of goroutines with RunInExecutor.
//
// Every method must be called from the goroutine running the loop, or
// before the loop runs, except CallSoonThreadsafe, Stop, IsRunning,
// NumCallbacks and Iterations.
type Loop struct {
	name        string
	logger      log.Logger
	clock       clock.Clock
	pollTimeout time.Duration

	ready   deque.Deque
	timers  timerHeap
	ingress *queue.Mpsc[*Handle]
	poller  poller

	readers map[int]*Handle
	writers map[int]*Handle
	signals *signals

	executor     *workerpool.WorkerPool
	executorIdle time.Duration

	running    *atomic.Bool
	closed     *atomic.Bool
	iterations *atomic.Uint64
	pending    *atomic.Int64
}

var _ future.Loop = (*Loop)(nil)

// New creates a Loop.
func New(opts ...Option) (*Loop, error) {
	l := &Loop{
		logger:       log.DefaultLogger,
		clock:        clock.New(),
		pollTimeout:  DefaultPollTimeout,
		executorIdle: workerpool.DefaultPassivateAfter,
		ready:        deque.NewDeque(),
		ingress:      queue.NewMpsc[*Handle](),
		readers:      make(map[int]*Handle),
		writers:      make(map[int]*Handle),
		running:      atomic.NewBool(false),
		closed:       atomic.NewBool(false),
		iterations:   atomic.NewUint64(0),
		pending:      atomic.NewInt64(0),
	}

	for _, opt := range opts {
		opt.Apply(l)
	}

	if l.name != "" {
		l.logger = l.logger.With("loop", l.name)
	}

	p, err := newPoller()
	if err != nil {
		return nil, fmt.Errorf("failed to create the loop poller: %w", err)
	}
	l.poller = p
	l.signals = newSignals(l)
	return l, nil
}

// Name returns the loop name
func (l *Loop) Name() string {
	return l.name
}

// Logger returns the loop logger
func (l *Loop) Logger() log.Logger {
	return l.logger
}

// Clock returns the loop clock
func (l *Loop) Clock() clock.Clock {
	return l.clock
}

// Time returns the loop time
func (l *Loop) Time() time.Time {
	return l.clock.Now()
}

// IsRunning reports whether the loop is running
func (l *Loop) IsRunning() bool {
	return l.running.Load()
}

// Iterations returns the number of completed iterations
func (l *Loop) Iterations() uint64 {
	return l.iterations.Load()
}

// NumCallbacks returns the number of callbacks waiting to run in a coming
// iteration, timed callbacks excluded.
func (l *Loop) NumCallbacks() int {
	return int(l.pending.Load())
}

// CallSoon schedules fn for the next iteration. Callbacks run in the order
// they were scheduled.
func (l *Loop) CallSoon(fn func()) future.Timer {
	handle := newHandle(fn)
	l.pushReady(handle)
	return handle
}

// CallSoonThreadsafe schedules fn from any goroutine and wakes the loop.
// It is a no-op once the loop is closed.
func (l *Loop) CallSoonThreadsafe(fn func()) {
	if l.closed.Load() {
		return
	}
	l.ingress.Push(newHandle(fn))
	l.pending.Inc()
	if err := l.poller.Wake(); err != nil {
		l.logger.Warnf("failed to wake the loop: %v", err)
	}
}

// CallLater schedules fn to run after delay.
func (l *Loop) CallLater(delay time.Duration, fn func()) future.Timer {
	return l.CallAt(l.clock.Now().Add(delay), fn)
}

// CallAt schedules fn to run at deadline.
func (l *Loop) CallAt(deadline time.Time, fn func()) future.Timer {
	handle := newHandle(fn)
	handle.when = deadline
	heap.Push(&l.timers, handle)
	return handle
}

// CallEvery runs fn every period until the returned timer is cancelled.
func (l *Loop) CallEvery(period time.Duration, fn func()) future.Timer {
	if period <= 0 {
		period = time.Millisecond
	}
	handle := newHandle(fn)
	handle.period = period
	handle.when = l.clock.Now().Add(period)
	heap.Push(&l.timers, handle)
	return handle
}

// Stop makes a running loop return after the callbacks scheduled before
// the stop request. It is safe to call from any goroutine. Calling Stop on
// a loop that does not run makes its next run return after one iteration.
func (l *Loop) Stop() {
	l.CallSoonThreadsafe(func() { panic(stopSignal{}) })
}

// RunForever runs iterations until Stop is called. The calling goroutine is
// locked to its OS thread while the loop runs.
func (l *Loop) RunForever() error {
	if l.closed.Load() {
		return gerrors.ErrLoopClosed
	}
	if !l.running.CompareAndSwap(false, true) {
		return gerrors.ErrLoopRunning
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer l.running.Store(false)

	l.logger.Debug("event loop started")
	for {
		stopped, err := l.iterate()
		if err != nil {
			return err
		}
		if stopped {
			l.logger.Debug("event loop stopped")
			return nil
		}
	}
}

// RunUntilComplete runs the loop until f is done and returns its result.
func (l *Loop) RunUntilComplete(f future.Future) (any, error) {
	if !f.Done() {
		f.AddBoth(func(result any) any {
			l.Stop()
			return result
		})
		if err := l.RunForever(); err != nil {
			return nil, err
		}
	}

	if !f.Done() {
		return nil, fmt.Errorf("%w: loop stopped before the future completed", gerrors.ErrInvalidState)
	}
	return f.Result()
}

// RunOnce runs a single iteration. Stop requests are honoured by skipping
// the remaining callbacks of the iteration.
func (l *Loop) RunOnce() error {
	if l.closed.Load() {
		return gerrors.ErrLoopClosed
	}
	_, err := l.iterate()
	return err
}

// Close releases the loop resources. A running loop must be stopped first.
func (l *Loop) Close() error {
	if l.running.Load() {
		return gerrors.ErrLoopRunning
	}
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}

	l.signals.close()
	for fd := range l.readers {
		_ = l.poller.Set(fd, false, false)
	}
	for fd := range l.writers {
		_ = l.poller.Set(fd, false, false)
	}
	clear(l.readers)
	clear(l.writers)
	if l.executor != nil {
		l.executor.Stop()
	}
	return l.poller.Close()
}

func (l *Loop) iterate() (stopped bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(stopSignal); !ok {
				panic(r)
			}
			stopped = true
		}
		l.iterations.Inc()
	}()

	l.drainIngress()

	timeout := l.pollTimeout
	switch {
	case l.ready.Len() > 0:
		timeout = 0
	case len(l.timers) > 0:
		if wait := l.timers[0].when.Sub(l.clock.Now()); wait < timeout {
			timeout = max(wait, 0)
		}
	}

	events, err := l.poller.Poll(timeout)
	if err != nil {
		return false, fmt.Errorf("loop poll failed: %w", err)
	}

	l.drainIngress()
	l.dispatchIO(events)
	l.moveDueTimers()

	for count := l.ready.Len(); count > 0; count-- {
		handle := l.ready.PopFront().(*Handle)
		l.pending.Dec()
		l.run(handle)
	}
	return false, nil
}

func (l *Loop) pushReady(handle *Handle) {
	l.ready.PushBack(handle)
	l.pending.Inc()
}

func (l *Loop) drainIngress() {
	for {
		handle, ok := l.ingress.Pop()
		if !ok {
			return
		}
		// already counted when pushed to the ingress
		l.ready.PushBack(handle)
	}
}

func (l *Loop) moveDueTimers() {
	now := l.clock.Now()
	for len(l.timers) > 0 && !l.timers[0].when.After(now) {
		handle := heap.Pop(&l.timers).(*Handle)
		if handle.Cancelled() {
			continue
		}
		if handle.periodic() {
			handle.when = handle.when.Add(handle.period)
			if handle.when.Before(now) {
				handle.when = now.Add(handle.period)
			}
			heap.Push(&l.timers, handle)
		}
		l.pushReady(handle)
	}
}

func (l *Loop) run(handle *Handle) {
	if handle.Cancelled() {
		return
	}
	if !handle.periodic() && !handle.state.CompareAndSwap(handlePending, handleDone) {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(stopSignal); ok {
				panic(r)
			}
			l.logger.Errorf("callback panicked: %v", r)
		}
	}()
	handle.fn()
}

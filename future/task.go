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

package future

import (
	"iter"

	gerrors "github.com/tochemey/gopulse/errors"
)

// Coroutine is the body of a Task. It suspends with Co.Await and Co.Yield
// and its return values resolve the Task.
type Coroutine func(co *Co) (any, error)

// Co is the handle a Coroutine uses to suspend itself.
type Co struct {
	task  *Task
	yield func(Future) bool
	sent  any
	value any
	err   error
}

// Await suspends the coroutine until v resolves when v is an unfinished
// Future, and returns its value. A Failure comes back as the error.
// Anything else is returned immediately.
func (co *Co) Await(v any) (any, error) {
	switch x := v.(type) {
	case Future:
		if x.Done() {
			return x.Result()
		}
		if !co.yield(x) {
			return nil, NewFailure(gerrors.NewCancelledError("task stopped", false))
		}
		return unpack(co.sent)
	case Coroutine:
		return co.Await(NewTask(co.task.loop, x))
	case func(co *Co) (any, error):
		return co.Await(NewTask(co.task.loop, x))
	case error:
		return nil, x
	default:
		return v, nil
	}
}

// Yield hands control back to the loop for one iteration.
func (co *Co) Yield() error {
	if !co.yield(nil) {
		return NewFailure(gerrors.NewCancelledError("task stopped", false))
	}
	return nil
}

// Task is a Deferred driven by a Coroutine. Every step of the coroutine runs
// on the loop goroutine. A Task waits on at most one Future at a time.
type Task struct {
	*Deferred
	co      *Co
	next    func() (Future, bool)
	stop    func()
	waiting Future
	stopped bool
}

var _ Future = (*Task)(nil)

// NewTask creates a Task and schedules its first step on loop. With a nil
// loop the coroutine starts immediately and resumes synchronously.
func NewTask(loop Loop, fn Coroutine) *Task {
	t := &Task{Deferred: NewDeferred(loop)}
	t.Deferred.self = t
	t.co = &Co{task: t}

	seq := func(yield func(Future) bool) {
		t.co.yield = yield
		defer func() {
			if r := recover(); r != nil {
				t.co.value = nil
				t.co.err = NewFailure(gerrors.NewPanicError(r))
			}
		}()
		t.co.value, t.co.err = fn(t.co)
	}

	t.next, t.stop = iter.Pull(seq)
	t.schedule(func() { t.step(nil) })
	return t
}

// Waiting returns the Future the coroutine is suspended on, if any.
func (t *Task) Waiting() Future {
	return t.waiting
}

func (t *Task) cancelWith(err *gerrors.CancelledError) bool {
	if t.Done() {
		return t.Deferred.cancelWith(err)
	}
	if t.waiting != nil && !t.waiting.Done() {
		return cancelFuture(t.waiting, err)
	}
	return t.Deferred.cancelWith(err)
}

func (t *Task) schedule(fn func()) {
	if t.loop == nil {
		fn()
		return
	}
	t.loop.CallSoonThreadsafe(fn)
}

func (t *Task) step(result any) {
	t.waiting = nil
	if t.Done() {
		t.finish()
		return
	}

	t.co.sent = result
	waiting, ok := t.next()
	t.co.sent = nil
	if !ok {
		t.finish()
		t.complete()
		return
	}

	if waiting == nil {
		t.schedule(func() { t.step(nil) })
		return
	}

	t.waiting = waiting
	waiting.AddBoth(func(result any) any {
		t.schedule(func() { t.step(result) })
		return result
	})
}

func (t *Task) complete() {
	var result any = t.co.value
	if t.co.err != nil {
		result = t.co.err
	}

	if inner, ok := result.(Future); ok {
		inner.AddBoth(func(result any) any {
			_, _ = t.Callback(result)
			return result
		})
		return
	}

	_, _ = t.Callback(result)
}

func (t *Task) finish() {
	if !t.stopped {
		t.stopped = true
		t.stop()
	}
}

// MaybeAsync turns v into a Future. A Future is returned as is, a Coroutine
// becomes a Task, an error becomes a failed Deferred and any other value a
// resolved Deferred.
func MaybeAsync(loop Loop, v any) Future {
	switch x := v.(type) {
	case Future:
		return x
	case Coroutine:
		return NewTask(loop, x)
	case func(co *Co) (any, error):
		return NewTask(loop, x)
	default:
		return Resolved(loop, v)
	}
}

// IsAsync reports whether v is an unfinished Future.
func IsAsync(v any) bool {
	f, ok := v.(Future)
	return ok && !f.Done()
}

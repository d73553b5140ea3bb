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
	"context"
	"fmt"
	"time"

	gerrors "github.com/tochemey/gopulse/errors"
)

// canceller is implemented by futures that can be cancelled with a
// specific cancellation error.
type canceller interface {
	cancelWith(err *gerrors.CancelledError) bool
}

type link struct {
	success Callback
	failure Callback
}

// Deferred is a single-assignment result cell with an ordered chain of
// callbacks. It is owned by the goroutine running its loop and is not safe
// for concurrent use; other goroutines reach it through the loop's
// CallSoonThreadsafe or through Await.
//
// Each link of the chain picks its branch from the current result: the
// failure callback runs when the result is a Failure, the success callback
// otherwise. A failure callback returning a plain value clears the failure
// for the links that follow.
type Deferred struct {
	loop     Loop
	state    State
	result   any
	links    []link
	paused   int
	running  bool
	suppress bool
	timeout  Timer
	self     canceller
}

var _ Future = (*Deferred)(nil)

// NewDeferred creates a pending Deferred bound to loop. loop may be nil
// when the Deferred never needs a timeout and is awaited from its owner.
func NewDeferred(loop Loop) *Deferred {
	d := &Deferred{loop: loop}
	d.self = d
	return d
}

// Resolved returns a Deferred already holding value.
func Resolved(loop Loop, value any) *Deferred {
	d := NewDeferred(loop)
	_, _ = d.Callback(value)
	return d
}

// Loop returns the loop the Deferred is bound to.
func (d *Deferred) Loop() Loop {
	return d.loop
}

// State returns the current state
func (d *Deferred) State() State {
	return d.state
}

// Done reports whether a result is available
func (d *Deferred) Done() bool {
	return d.state != Pending
}

// Cancelled reports whether the result is a cancellation
func (d *Deferred) Cancelled() bool {
	return d.state == Cancelled
}

// Paused reports whether the chain waits on a Future returned by a callback.
func (d *Deferred) Paused() bool {
	return d.paused > 0
}

// Result returns the current result. A Failure is returned as the error and
// is no longer reported as unretrieved. Calling Result on a pending
// Deferred returns ErrInvalidState.
func (d *Deferred) Result() (any, error) {
	if d.state == Pending {
		return nil, fmt.Errorf("%w: result is not available", gerrors.ErrInvalidState)
	}
	return unpack(d.result)
}

// AddCallback appends a pair of callbacks. A nil callback passes the result
// through. When the Deferred is already resolved the chain runs at once.
func (d *Deferred) AddCallback(success, failure Callback) *Deferred {
	d.links = append(d.links, link{success: success, failure: failure})
	if d.state != Pending {
		d.runCallbacks()
	}
	return d
}

// AddErrback appends a callback invoked only for failures.
func (d *Deferred) AddErrback(failure Callback) *Deferred {
	return d.AddCallback(nil, failure)
}

// AddBoth appends a callback invoked for both outcomes.
func (d *Deferred) AddBoth(fn Callback) *Deferred {
	return d.AddCallback(fn, fn)
}

// Then resolves other with the result of d once the chain reaches this point.
func (d *Deferred) Then(other *Deferred) *Deferred {
	return d.AddBoth(func(result any) any {
		if failure, ok := AsFailure(result); ok {
			_, _ = other.Callback(failure)
			failure.markRetrieved()
			return result
		}
		_, _ = other.Callback(result)
		return result
	})
}

// Callback resolves the Deferred and runs its callbacks in order. An error
// result becomes a Failure; a cancellation Failure moves the Deferred to
// Cancelled. It fails with ErrInvalidState when the Deferred is already
// resolved, except right after a Cancel, where the first late call is
// tolerated and returns the existing result.
func (d *Deferred) Callback(result any) (any, error) {
	if d.state != Pending {
		if d.suppress {
			d.suppress = false
			return d.result, nil
		}
		return nil, fmt.Errorf("%w: %w", gerrors.ErrInvalidState, gerrors.ErrAlreadyCalled)
	}

	if _, ok := result.(Future); ok {
		return nil, fmt.Errorf("%w: cannot resolve with an asynchronous value", gerrors.ErrInvalidState)
	}

	result = normalize(result)
	if failure, ok := AsFailure(result); ok && failure.IsCancellation() {
		d.state = Cancelled
	} else {
		d.state = Finished
	}

	d.result = result
	d.stopTimeout()
	d.runCallbacks()
	return d.result, nil
}

// Cancel resolves a pending Deferred with a cancellation Failure. When the
// current result is a pending Future, the cancellation is forwarded to it.
func (d *Deferred) Cancel(msg string) bool {
	return d.self.cancelWith(gerrors.NewCancelledError(msg, false))
}

// SetTimeout cancels the Deferred with a timeout Failure if it is still
// pending after timeout. It replaces any previous timeout. A Deferred
// without a loop ignores the call.
func (d *Deferred) SetTimeout(timeout time.Duration) *Deferred {
	if d.loop == nil || d.Done() {
		return d
	}
	d.stopTimeout()
	d.timeout = d.loop.CallLater(timeout, func() {
		d.timeout = nil
		d.self.cancelWith(gerrors.NewCancelledError(fmt.Sprintf("timed out after %s", timeout), true))
	})
	return d
}

// Await blocks until the result is available or ctx is done. It may be
// called from any goroutine when the Deferred has a loop.
func (d *Deferred) Await(ctx context.Context) (any, error) {
	type outcome struct {
		value any
		err   error
	}

	done := make(chan outcome, 1)
	register := func() {
		d.AddBoth(func(result any) any {
			value, err := unpack(result)
			done <- outcome{value: value, err: err}
			return result
		})
	}

	if d.loop != nil {
		d.loop.CallSoonThreadsafe(register)
	} else {
		register()
	}

	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *Deferred) cancelWith(err *gerrors.CancelledError) bool {
	if d.state == Pending {
		_, _ = d.Callback(NewFailure(err))
		d.suppress = true
		return true
	}
	if inner, ok := d.result.(Future); ok && !inner.Done() {
		return cancelFuture(inner, err)
	}
	return false
}

func cancelFuture(f Future, err *gerrors.CancelledError) bool {
	if c, ok := f.(canceller); ok {
		return c.cancelWith(err)
	}
	return f.Cancel(err.Error())
}

func (d *Deferred) stopTimeout() {
	if d.timeout != nil {
		d.timeout.Cancel()
		d.timeout = nil
	}
}

func (d *Deferred) runCallbacks() {
	if d.running || d.paused > 0 {
		return
	}

	d.running = true
	defer func() { d.running = false }()

	for len(d.links) > 0 && d.paused == 0 {
		next := d.links[0]
		d.links[0] = link{}
		d.links = d.links[1:]

		callback := next.success
		if failure, ok := AsFailure(d.result); ok {
			callback = next.failure
			if callback != nil {
				failure.markRetrieved()
			}
		}
		if callback == nil {
			continue
		}

		d.result = invoke(callback, d.result)
		if inner, ok := d.result.(Future); ok {
			d.paused++
			inner.AddBoth(d.resume)
		}
	}
}

// resume receives the result of a Future returned by a callback.
func (d *Deferred) resume(result any) any {
	if failure, ok := AsFailure(result); ok {
		// the failure now travels through this chain
		failure.release()
	}
	d.result = result
	d.paused--
	d.runCallbacks()
	return result
}

func invoke(callback Callback, result any) (out any) {
	defer func() {
		if r := recover(); r != nil {
			out = NewFailure(gerrors.NewPanicError(r))
		}
	}()
	out = normalize(callback(result))
	if failure, ok := AsFailure(out); ok {
		failure.release()
	}
	return out
}

func normalize(result any) any {
	if err, ok := result.(error); ok && err != nil {
		return NewFailure(err)
	}
	return result
}

func unpack(result any) (any, error) {
	if failure, ok := AsFailure(result); ok {
		failure.markRetrieved()
		return nil, failure
	}
	return result, nil
}

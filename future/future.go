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
	"time"
)

// State is the state of a Deferred.
type State int32

const (
	// Pending means no result is available yet.
	Pending State = iota
	// Cancelled means the result is a cancellation Failure.
	Cancelled
	// Finished means a result is available.
	Finished
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Cancelled:
		return "CANCELLED"
	case Finished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// Callback receives the current result of a Deferred and returns the result
// handed to the next callback. Returning an error, or panicking, turns the
// result into a Failure. Returning a Future pauses the chain until that
// Future resolves.
type Callback func(result any) any

// Timer is a scheduled call that can be cancelled.
type Timer interface {
	// Cancel prevents the call from running. It returns false when the call
	// already ran or was already cancelled.
	Cancel() bool
}

// Loop is the part of an event loop a Deferred relies on.
type Loop interface {
	// CallSoonThreadsafe schedules fn on the loop from any goroutine.
	CallSoonThreadsafe(fn func())
	// CallLater schedules fn after delay. It must be called from the loop goroutine.
	CallLater(delay time.Duration, fn func()) Timer
}

// Future is a single-assignment asynchronous result. Deferred and Task
// implement it. Except for Await, methods must be called from the goroutine
// running the owning loop.
type Future interface {
	// State returns the current state
	State() State
	// Done reports whether a result is available
	Done() bool
	// Cancelled reports whether the result is a cancellation
	Cancelled() bool
	// Result returns the result. A Failure result is returned as the error.
	Result() (any, error)
	// AddCallback appends a pair of callbacks; a nil callback passes the result through.
	AddCallback(success, failure Callback) *Deferred
	// AddErrback appends a callback invoked only for failures.
	AddErrback(failure Callback) *Deferred
	// AddBoth appends a callback invoked for both outcomes.
	AddBoth(fn Callback) *Deferred
	// Cancel cancels the future or what it is waiting on.
	Cancel(msg string) bool
	// Await blocks the calling goroutine until the result is available or ctx is done.
	Await(ctx context.Context) (any, error)
}

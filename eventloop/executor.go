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
	gerrors "github.com/tochemey/gopulse/errors"
	"github.com/tochemey/gopulse/future"
	"github.com/tochemey/gopulse/internal/workerpool"
)

// RunInExecutor runs fn on a pooled goroutine and returns a Deferred
// resolved on the loop with its outcome. An error or a panic resolves it
// with a Failure. The pool is created on first use and stopped by Close.
func (l *Loop) RunInExecutor(fn func() (any, error)) *future.Deferred {
	result := future.NewDeferred(l)
	if l.closed.Load() {
		_, _ = result.Callback(gerrors.ErrLoopClosed)
		return result
	}

	if l.executor == nil {
		l.executor = workerpool.New(
			workerpool.WithClock(l.clock),
			workerpool.WithPassivateAfter(l.executorIdle))
		l.executor.Start()
	}

	err := l.executor.SubmitWork(func() {
		outcome := execute(fn)
		l.CallSoonThreadsafe(func() { _, _ = result.Callback(outcome) })
	})
	if err != nil {
		_, _ = result.Callback(err)
	}
	return result
}

func execute(fn func() (any, error)) (outcome any) {
	defer func() {
		if r := recover(); r != nil {
			outcome = gerrors.NewPanicError(r)
		}
	}()
	value, err := fn()
	if err != nil {
		return err
	}
	return value
}

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

	"github.com/benbjohnson/clock"

	"github.com/tochemey/gopulse/log"
)

// Option configures a Loop
type Option interface {
	// Apply sets the Option value of a Loop.
	Apply(*Loop)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Loop)

// Apply applies the option
func (f OptionFunc) Apply(l *Loop) {
	f(l)
}

// WithLogger sets the loop logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(l *Loop) {
		l.logger = logger
	})
}

// WithClock sets the clock used to schedule timed calls
func WithClock(clk clock.Clock) Option {
	return OptionFunc(func(l *Loop) {
		l.clock = clk
	})
}

// WithPollTimeout caps how long one iteration waits for I/O when nothing
// is ready.
func WithPollTimeout(timeout time.Duration) Option {
	return OptionFunc(func(l *Loop) {
		l.pollTimeout = timeout
	})
}

// WithName sets the loop name used in logs
func WithName(name string) Option {
	return OptionFunc(func(l *Loop) {
		l.name = name
	})
}

// WithExecutorIdleTimeout sets how long an idle goroutine of the
// RunInExecutor pool is kept
func WithExecutorIdleTimeout(timeout time.Duration) Option {
	return OptionFunc(func(l *Loop) {
		l.executorIdle = timeout
	})
}

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

package event

import (
	"fmt"

	gerrors "github.com/tochemey/gopulse/errors"
	"github.com/tochemey/gopulse/future"
	"github.com/tochemey/gopulse/log"
)

// Listener receives the data an event is fired with.
type Listener func(data any) error

// Event is a named notification with an ordered list of listeners.
type Event interface {
	// Bind appends a listener
	Bind(listener Listener)
	// Fire notifies every listener with data
	Fire(data any) error
	// Fired returns the number of times the event fired
	Fired() int
	// Silence stops the event from firing
	Silence()
	// Silenced reports whether the event is silenced
	Silenced() bool
	// Clear removes every listener
	Clear()
}

// Many is an event that fires any number of times.
type Many struct {
	listeners []Listener
	fired     int
	silenced  bool
	logger    log.Logger
}

var _ Event = (*Many)(nil)

func newMany(logger log.Logger) *Many {
	return &Many{logger: logger}
}

// Bind appends a listener
func (e *Many) Bind(listener Listener) {
	e.listeners = append(e.listeners, listener)
}

// Fire calls every listener in binding order. A failing listener is logged
// and does not stop the others.
func (e *Many) Fire(data any) error {
	if e.silenced {
		return nil
	}
	e.fired++
	for _, listener := range e.listeners {
		notify(e.logger, listener, data)
	}
	return nil
}

// Fired returns the number of times the event fired
func (e *Many) Fired() int { return e.fired }

// Silence stops the event from firing
func (e *Many) Silence() { e.silenced = true }

// Silenced reports whether the event is silenced
func (e *Many) Silenced() bool { return e.silenced }

// Clear removes every listener
func (e *Many) Clear() { e.listeners = nil }

// Listeners returns a copy of the bound listeners
func (e *Many) Listeners() []Listener {
	out := make([]Listener, len(e.listeners))
	copy(out, e.listeners)
	return out
}

// OneTime is an event that fires at most once. Listeners bound after the
// event fired are called immediately with the data it fired with.
type OneTime struct {
	listeners []Listener
	done      *future.Deferred
	data      any
	silenced  bool
	logger    log.Logger
}

var _ Event = (*OneTime)(nil)

func newOneTime(logger log.Logger) *OneTime {
	return &OneTime{logger: logger, done: future.NewDeferred(nil)}
}

// Bind appends a listener, or calls it right away when the event already fired.
func (e *OneTime) Bind(listener Listener) {
	if e.done.Done() {
		notify(e.logger, listener, e.data)
		return
	}
	e.listeners = append(e.listeners, listener)
}

// Fire calls the listeners in binding order then resolves the event's
// Deferred with data. Firing twice returns ErrInvalidState.
func (e *OneTime) Fire(data any) error {
	if e.silenced {
		return nil
	}
	if e.done.Done() {
		return fmt.Errorf("%w: event already fired", gerrors.ErrInvalidState)
	}

	e.data = data
	listeners := e.listeners
	e.listeners = nil
	for _, listener := range listeners {
		notify(e.logger, listener, data)
	}

	if err, ok := data.(error); ok {
		// listeners already saw it
		failure := future.NewFailure(err)
		failure.Mute()
		data = failure
	}
	_, err := e.done.Callback(data)
	return err
}

// Fired returns 1 once the event fired, 0 otherwise
func (e *OneTime) Fired() int {
	if e.done.Done() {
		return 1
	}
	return 0
}

// Silence stops the event from firing
func (e *OneTime) Silence() { e.silenced = true }

// Silenced reports whether the event is silenced
func (e *OneTime) Silenced() bool { return e.silenced }

// Clear removes every listener
func (e *OneTime) Clear() { e.listeners = nil }

// Future returns the Deferred resolved when the event fires.
func (e *OneTime) Future() *future.Deferred {
	return e.done
}

func notify(logger log.Logger, listener Listener, data any) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("event listener panicked: %v", r)
		}
	}()
	if err := listener(data); err != nil {
		logger.Errorf("event listener failed: %v", err)
	}
}

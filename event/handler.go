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
	"sort"
	"sync"

	"github.com/tochemey/gopulse/log"
)

// Handler holds the named events of an owner. Events fired without data
// receive the owner.
type Handler struct {
	mu     sync.RWMutex
	owner  any
	logger log.Logger
	events map[string]Event
}

// NewHandler creates a Handler with the given one-time and many-times events.
func NewHandler(owner any, logger log.Logger, oneTime, manyTimes []string) *Handler {
	if logger == nil {
		logger = log.DefaultLogger
	}

	h := &Handler{
		owner:  owner,
		logger: logger,
		events: make(map[string]Event, len(oneTime)+len(manyTimes)),
	}

	for _, name := range oneTime {
		h.events[name] = newOneTime(logger)
	}
	for _, name := range manyTimes {
		h.events[name] = newMany(logger)
	}
	return h
}

// Event returns the event registered under name.
func (h *Handler) Event(name string) (Event, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	event, ok := h.events[name]
	return event, ok
}

// Events returns the registered event names, sorted.
func (h *Handler) Events() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.events))
	for name := range h.events {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BindEvent binds listener to the event name. An unknown name registers a
// new many-times event.
func (h *Handler) BindEvent(name string, listener Listener) {
	h.mu.Lock()
	event, ok := h.events[name]
	if !ok {
		event = newMany(h.logger)
		h.events[name] = event
	}
	h.mu.Unlock()
	event.Bind(listener)
}

// FireEvent fires the event name with data, or with the owner when no data
// is given. Unknown events and one-time events fired twice are logged and
// ignored. It reports whether the event was found.
func (h *Handler) FireEvent(name string, data ...any) bool {
	var arg any = h.owner
	if len(data) > 0 {
		arg = data[0]
	}

	event, ok := h.Event(name)
	if !ok {
		h.logger.Warnf("unknown event (%s)", name)
		return false
	}

	if err := event.Fire(arg); err != nil {
		h.logger.Warnf("event (%s) not fired: %v", name, err)
	}
	return true
}

// Fired returns how many times the event name fired.
func (h *Handler) Fired(name string) int {
	event, ok := h.Event(name)
	if !ok {
		return 0
	}
	return event.Fired()
}

// SilenceEvent stops the event name from firing.
func (h *Handler) SilenceEvent(name string) {
	if event, ok := h.Event(name); ok {
		event.Silence()
	}
}

// CopyManyTimesEvents binds the listeners of other's many-times events to
// the events of the same name in h.
func (h *Handler) CopyManyTimesEvents(other *Handler) {
	if other == nil || other == h {
		return
	}

	for _, name := range other.Events() {
		event, _ := other.Event(name)
		many, ok := event.(*Many)
		if !ok {
			continue
		}
		for _, listener := range many.Listeners() {
			h.BindEvent(name, listener)
		}
	}
}

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
	"os"
	"os/signal"
	"sync"
)

// signals relays OS signals to handlers running on the loop.
type signals struct {
	mu       sync.Mutex
	loop     *Loop
	notifier chan os.Signal
	handlers map[os.Signal]func()
	done     chan struct{}
	started  bool
}

func newSignals(loop *Loop) *signals {
	return &signals{
		loop:     loop,
		notifier: make(chan os.Signal, 8),
		handlers: make(map[os.Signal]func()),
		done:     make(chan struct{}),
	}
}

// AddSignalHandler calls fn on the loop every time sig is received. It
// replaces a previous handler of sig.
func (l *Loop) AddSignalHandler(sig os.Signal, fn func()) {
	l.signals.add(sig, fn)
}

// RemoveSignalHandler removes the handler of sig. It reports whether one was
// registered.
func (l *Loop) RemoveSignalHandler(sig os.Signal) bool {
	return l.signals.remove(sig)
}

func (s *signals) add(sig os.Signal, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[sig] = fn
	signal.Notify(s.notifier, sig)
	if !s.started {
		s.started = true
		go s.relay()
	}
}

func (s *signals) remove(sig os.Signal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.handlers[sig]; !ok {
		return false
	}
	delete(s.handlers, sig)
	signal.Reset(sig)
	return true
}

func (s *signals) relay() {
	for {
		select {
		case sig := <-s.notifier:
			s.loop.CallSoonThreadsafe(func() { s.dispatch(sig) })
		case <-s.done:
			return
		}
	}
}

func (s *signals) dispatch(sig os.Signal) {
	s.mu.Lock()
	fn, ok := s.handlers[sig]
	s.mu.Unlock()
	if !ok {
		return
	}
	s.loop.logger.Infof("received an OS signal (%s)", sig.String())
	fn()
}

func (s *signals) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	signal.Stop(s.notifier)
	clear(s.handlers)
	if s.started {
		close(s.done)
		s.started = false
	}
}

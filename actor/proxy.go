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
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tochemey/gopulse/future"
	"github.com/tochemey/gopulse/mailbox"
)

// proxyTag is the CBOR tag Proxy values travel under
const proxyTag = 27001

// CreateAID returns a new short actor id
func CreateAID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Proxy is a serializable handle to an actor.
type Proxy struct {
	AID  string
	Name string
}

// String returns name(aid)
func (p Proxy) String() string {
	return fmt.Sprintf("%s(%s)", p.Name, p.AID)
}

// IsZero reports whether the proxy is unset
func (p Proxy) IsZero() bool {
	return p.AID == ""
}

// ProxyMonitor is the supervisor-side view of a spawned actor. It lives on
// the arbiter loop and is never sent over a mailbox.
type ProxyMonitor struct {
	Proxy
	// WID is the worker identity, the smallest one free when spawned
	WID int
	// Kind is the concurrency of the actor
	Kind string
	// LastNotified is the arbiter time of the last notify received
	LastNotified time.Time
	// Info is the last info snapshot received
	Info map[string]any
	// Callback resolves to the Proxy once the actor announced itself
	Callback *future.Deferred

	spawnedAt  time.Time
	stoppingAt time.Time
	conn       *mailbox.Connection
	worker     worker
	pool       *pool
}

// Age returns how long ago the actor was spawned
func (p *ProxyMonitor) Age(now time.Time) time.Duration {
	return now.Sub(p.spawnedAt)
}

// Connection returns the mailbox connection of the actor, nil until its
// first notify.
func (p *ProxyMonitor) Connection() *mailbox.Connection {
	return p.conn
}

// IsAlive reports whether the underlying thread or process is alive
func (p *ProxyMonitor) IsAlive() bool {
	return p.worker.isAlive()
}

// Terminate kills the underlying thread or process
func (p *ProxyMonitor) Terminate() {
	p.worker.terminate()
}

// Join waits for the underlying thread or process to exit.
func (p *ProxyMonitor) Join(timeout time.Duration) bool {
	return p.worker.join(timeout)
}

// Stopping reports whether a stop request was sent
func (p *ProxyMonitor) Stopping() bool {
	return !p.stoppingAt.IsZero()
}

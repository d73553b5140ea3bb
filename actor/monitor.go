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

	gerrors "github.com/tochemey/gopulse/errors"
	"github.com/tochemey/gopulse/future"
	"github.com/tochemey/gopulse/mailbox"
)

// Monitor keeps a pool of workers running the same behavior alive. It runs
// on the arbiter loop and, besides the thread-safe accessors of Actor, its
// methods must be called from that loop.
type Monitor struct {
	*Actor
	arbiter *Arbiter
	pool    *pool
}

var _ supervisor = (*Monitor)(nil)

func newMonitor(arbiter *Arbiter, core *Actor, behavior string) (*Monitor, error) {
	var work *WorkQueue
	if core.cfg.WorkQueueSize > 0 {
		work = NewWorkQueue(core.cfg.WorkQueueSize)
	}

	p, err := newPool(core, arbiter, behavior, work)
	if err != nil {
		return nil, err
	}

	m := &Monitor{Actor: core, arbiter: arbiter, pool: p}
	core.sup = m
	core.router = monitorRouter{m}
	core.attach(arbiter.loop, false)
	return m, nil
}

// start enters Run and schedules the supervision task
func (m *Monitor) start() error {
	if !m.state.CompareAndSwap(int32(Initial), int32(Starting)) {
		return fmt.Errorf("%w: %s is %s", gerrors.ErrInvalidStateTransition, m, m.State())
	}
	if err := m.behavior.PreStart(m.Actor); err != nil {
		m.Stop(true)
		return err
	}

	m.startedAt = m.clock.Now()
	m.state.Store(int32(Run))
	m.FireEvent(StartEvent)
	m.logger.Infof("%s started with %d workers", m, m.cfg.Workers)

	if err := m.periodicTask(); err != nil {
		return err
	}
	m.periodic = m.loop.CallEvery(m.cfg.MonitorPeriod, func() {
		if err := m.periodicTask(); err != nil {
			m.arbiter.abort(err)
		}
	})
	return nil
}

func (m *Monitor) periodicTask() error {
	if m.State() != Run {
		return nil
	}
	m.pool.manageActors()
	if err := m.pool.spawnActors(); err != nil {
		return err
	}
	m.pool.stopActors()
	return nil
}

// Spawn starts a worker outside of the pool sizing and returns a future
// resolved with its Proxy once it notified.
func (m *Monitor) Spawn(opts ...SpawnOption) future.Future {
	return m.spawn(opts...)
}

// Submit puts command on the work queue shared by the workers and returns
// the future of its result. It needs a work queue.
func (m *Monitor) Submit(command string, args ...any) future.Future {
	if m.pool.work == nil {
		return future.Resolved(m.loop, fmt.Errorf("%w: %s has no work queue", gerrors.ErrCommandNotAllowed, m))
	}
	if m.State() != Run {
		return future.Resolved(m.loop, gerrors.ErrActorNotRunning)
	}

	positional, kwargs := splitArgs(args)
	result := future.NewDeferred(m.loop)
	j := &job{
		command: command,
		args:    positional,
		kwargs:  kwargs,
		done: func(outcome any) {
			m.loop.CallSoonThreadsafe(func() { _, _ = result.Callback(outcome) })
		},
	}
	if err := m.pool.work.offer(j); err != nil {
		return future.Resolved(m.loop, err)
	}
	return result
}

// ManageActors runs the liveness pass over the workers
func (m *Monitor) ManageActors() {
	m.pool.manageActors()
}

// SpawnActors spawns the missing workers
func (m *Monitor) SpawnActors() error {
	return m.pool.spawnActors()
}

// StopActors stops the excess workers, oldest first
func (m *Monitor) StopActors() {
	m.pool.stopActors()
}

// CloseActors stops every worker. The returned future resolves once all of
// them exited.
func (m *Monitor) CloseActors() future.Future {
	return m.pool.closeActors()
}

// Managed returns the workers that notified at least once, ordered by
// worker identity.
func (m *Monitor) Managed() []*ProxyMonitor {
	proxies := m.pool.proxies()
	managed := proxies[:0]
	for _, pm := range proxies {
		if _, ok := m.pool.managed[pm.AID]; ok {
			managed = append(managed, pm)
		}
	}
	return managed
}

// Spawning returns the number of workers that did not notify yet
func (m *Monitor) Spawning() int {
	return len(m.pool.spawning)
}

// Terminated returns the ids of the workers terminated by the monitor
func (m *Monitor) Terminated() []string {
	return m.pool.terminated.ToSlice()
}

// Workers returns the number of workers the monitor keeps alive
func (m *Monitor) Workers() int {
	return m.cfg.Workers
}

// WorkQueue returns the shared work queue, nil for I/O-bound workers
func (m *Monitor) WorkQueue() *WorkQueue {
	return m.pool.work
}

func (m *Monitor) spawn(opts ...SpawnOption) future.Future {
	if m.State() != Run {
		return future.Resolved(m.loop, gerrors.ErrActorNotRunning)
	}
	return m.pool.spawn(opts...)
}

func (m *Monitor) kill(aid string) bool {
	pm := m.pool.lookup(aid)
	if pm == nil {
		return false
	}
	m.pool.stopActor(pm, m.clock.Now())
	return true
}

func (m *Monitor) workers() []any {
	return m.pool.infos()
}

func (m *Monitor) info(data map[string]any) {
	if actor, ok := data["actor"].(map[string]any); ok {
		actor["workers"] = len(m.pool.managed)
		actor["spawning"] = len(m.pool.spawning)
		actor["target"] = m.cfg.Workers
	}
	data["workers"] = m.pool.infos()
	if work := m.pool.work; work != nil {
		data["queue"] = map[string]any{
			"size":     work.Len(),
			"capacity": work.Cap(),
		}
	}
}

func (m *Monitor) close() future.Future {
	closing := m.pool.closeActors()
	if work := m.pool.work; work != nil {
		closing.AddBoth(func(result any) any {
			work.Dispose()
			return result
		})
	}
	return closing
}

// monitorRouter resolves targets from the arbiter loop.
type monitorRouter struct {
	m *Monitor
}

func (r monitorRouter) route(target string) (*Actor, *mailbox.Connection, error) {
	switch target {
	case "", monitorName, r.m.aid, r.m.name:
		return r.m.Actor, nil, nil
	}
	return r.m.arbiter.route(target)
}

func (r monitorRouter) caller(sender string) any {
	return r.m.arbiter.caller(sender)
}

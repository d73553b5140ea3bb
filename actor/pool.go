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
	"context"
	"fmt"
	"slices"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/tochemey/gopulse/config"
	gerrors "github.com/tochemey/gopulse/errors"
	"github.com/tochemey/gopulse/future"
	"github.com/tochemey/gopulse/internal/metric"
	"github.com/tochemey/gopulse/mailbox"
)

// closePollInterval is how often CloseActors checks its actors
const closePollInterval = 20 * time.Millisecond

// pool holds the actors spawned by a monitor or by the arbiter. It lives on
// the arbiter loop.
type pool struct {
	owner      *Actor
	arbiter    *Arbiter
	cfg        *config.Config
	behavior   string
	work       *WorkQueue
	managed    map[string]*ProxyMonitor
	spawning   map[string]*ProxyMonitor
	terminated mapset.Set[string]
	metric     *metric.MonitorMetric
}

func newPool(owner *Actor, arbiter *Arbiter, behavior string, work *WorkQueue) (*pool, error) {
	monitorMetric, err := metric.NewMonitorMetric(metric.NewProvider(owner.cfg.MeterProvider).Meter())
	if err != nil {
		return nil, err
	}
	return &pool{
		owner:      owner,
		arbiter:    arbiter,
		cfg:        owner.cfg,
		behavior:   behavior,
		work:       work,
		managed:    make(map[string]*ProxyMonitor),
		spawning:   make(map[string]*ProxyMonitor),
		terminated: mapset.NewThreadUnsafeSet[string](),
		metric:     monitorMetric,
	}, nil
}

// spawn starts a new actor and returns a future resolved with its Proxy
// once it announced itself.
func (p *pool) spawn(opts ...SpawnOption) future.Future {
	pm, err := p.spawnActor(opts...)
	if err != nil {
		return future.Resolved(p.owner.loop, err)
	}
	return pm.Callback
}

func (p *pool) spawnActor(opts ...SpawnOption) (*ProxyMonitor, error) {
	spawnCfg := &spawnConfig{behavior: p.behavior, name: p.owner.name}
	for _, opt := range opts {
		opt.Apply(spawnCfg)
	}

	now := p.owner.clock.Now()
	pm := &ProxyMonitor{
		Proxy:     Proxy{AID: CreateAID(), Name: spawnCfg.name},
		WID:       p.freeWID(),
		Kind:      p.cfg.Concurrency,
		Callback:  future.NewDeferred(p.owner.loop),
		spawnedAt: now,
		pool:      p,
	}

	w, err := p.newWorker(pm, spawnCfg)
	if err != nil {
		return nil, gerrors.NewErrSpawnFailed(err)
	}
	pm.worker = w
	if err := w.start(); err != nil {
		return nil, gerrors.NewErrSpawnFailed(err)
	}

	p.spawning[pm.AID] = pm
	p.metric.Spawned(context.Background(), p.owner.name)
	p.owner.logger.Debugf("%s spawned %s as worker %d", p.owner, pm, pm.WID)
	return pm, nil
}

func (p *pool) newWorker(pm *ProxyMonitor, spawnCfg *spawnConfig) (worker, error) {
	cfg := p.cfg.Copy()
	cfg.Name = spawnCfg.name

	if cfg.Concurrency == ProcessConcurrency {
		params := &spawnParams{
			AID:        pm.AID,
			Name:       pm.Name,
			WID:        pm.WID,
			Behavior:   spawnCfg.behavior,
			Monitor:    p.owner.Proxy(),
			Supervisor: p.arbiter.Address().String(),
			Config:     cfg,
		}
		return newProcessWorker(params, p.owner.logger), nil
	}

	behavior, err := p.owner.registry.Behavior(spawnCfg.behavior)
	if err != nil {
		return nil, err
	}

	var connect connector
	if cfg.UseQueue() {
		local, remote := mailbox.NewQueuePair(pm.AID)
		p.arbiter.server.Serve(remote)
		connect = queueConnector(local)
	} else {
		connect = dialConnector(p.arbiter.Address())
	}

	a, err := newActor(actorParams{
		aid:      pm.AID,
		name:     pm.Name,
		kind:     ThreadConcurrency,
		wid:      pm.WID,
		cfg:      cfg,
		registry: p.owner.registry,
		behavior: behavior,
		monitor:  p.owner.Proxy(),
		work:     p.work,
		connect:  connect,
		ownLoop:  true,
	})
	if err != nil {
		return nil, err
	}
	return newThreadWorker(a), nil
}

// freeWID returns the smallest worker identity not in use
func (p *pool) freeWID() int {
	used := mapset.NewThreadUnsafeSet[int]()
	for _, pm := range p.managed {
		used.Add(pm.WID)
	}
	for _, pm := range p.spawning {
		used.Add(pm.WID)
	}
	wid := 1
	for used.Contains(wid) {
		wid++
	}
	return wid
}

// notified records a notify from pm received on conn. The first one moves
// the actor from spawning to managed.
func (p *pool) notified(conn *mailbox.Connection, pm *ProxyMonitor, info map[string]any) {
	pm.LastNotified = p.owner.clock.Now()
	if info != nil {
		pm.Info = info
	}
	if _, ok := p.spawning[pm.AID]; !ok {
		return
	}

	delete(p.spawning, pm.AID)
	pm.conn = conn
	conn.SetPeer(pm.AID)
	p.managed[pm.AID] = pm
	p.owner.linked.Add(pm.Proxy)
	p.metric.Managed(context.Background(), p.owner.name, 1)
	p.owner.logger.Debugf("%s manages %s", p.owner, pm)
	_, _ = pm.Callback.Callback(pm.Proxy)
}

// lookup returns the actor with the given id, managed or spawning
func (p *pool) lookup(aid string) *ProxyMonitor {
	if pm, ok := p.managed[aid]; ok {
		return pm
	}
	return p.spawning[aid]
}

// proxies returns every actor of the pool ordered by worker identity
func (p *pool) proxies() []*ProxyMonitor {
	proxies := make([]*ProxyMonitor, 0, len(p.managed)+len(p.spawning))
	for _, pm := range p.managed {
		proxies = append(proxies, pm)
	}
	for _, pm := range p.spawning {
		proxies = append(proxies, pm)
	}
	slices.SortFunc(proxies, func(a, b *ProxyMonitor) int {
		return a.WID - b.WID
	})
	return proxies
}

// sweep forgets the actors whose thread or process is gone and returns the
// number still alive.
func (p *pool) sweep() int {
	alive := 0
	for _, pm := range p.proxies() {
		if pm.IsAlive() {
			alive++
			continue
		}
		p.remove(pm)
	}
	return alive
}

func (p *pool) remove(pm *ProxyMonitor) {
	if _, ok := p.managed[pm.AID]; ok {
		delete(p.managed, pm.AID)
		p.metric.Managed(context.Background(), p.owner.name, -1)
	}
	delete(p.spawning, pm.AID)
	p.owner.linked.Remove(pm.Proxy)
	p.arbiter.retire(pm)

	if !pm.Callback.Done() {
		_, _ = pm.Callback.Callback(gerrors.NewErrSpawnFailed(fmt.Errorf("%s exited before notifying", pm)))
	}
	p.owner.logger.Debugf("%s removed %s", p.owner, pm)
}

// manageActors removes dead actors, asks the silent ones to stop and
// terminates those that ignored a stop request.
func (p *pool) manageActors() {
	now := p.owner.clock.Now()
	for _, pm := range p.proxies() {
		if !pm.IsAlive() {
			p.remove(pm)
			continue
		}
		p.manageActor(pm, now)
	}
}

func (p *pool) manageActor(pm *ProxyMonitor, now time.Time) {
	if pm.Stopping() {
		if now.Sub(pm.stoppingAt) > p.cfg.ActionTimeout {
			p.owner.logger.Warnf("%s did not stop in %s, terminating", pm, p.cfg.ActionTimeout)
			p.terminateActor(pm)
		}
		return
	}

	if p.cfg.Timeout <= 0 {
		return
	}
	last := pm.LastNotified
	if last.IsZero() {
		last = pm.spawnedAt
	}
	if now.Sub(last) > p.cfg.Timeout {
		p.owner.logger.Warnf("%s silent for %s, stopping", pm, now.Sub(last))
		p.stopActor(pm, now)
	}
}

// stopActor asks pm to stop. An actor without a mailbox is terminated.
func (p *pool) stopActor(pm *ProxyMonitor, now time.Time) {
	if pm.Stopping() {
		return
	}
	pm.stoppingAt = now
	p.metric.StopRequested(context.Background(), p.owner.name)

	if pm.conn == nil || pm.conn.Closed() {
		p.terminateActor(pm)
		return
	}
	msg := mailbox.NewMessage("stop", p.owner.aid, pm.AID, nil, nil)
	if err := pm.conn.Send(msg); err != nil {
		p.owner.logger.Warnf("%s failed to stop %s: %v", p.owner, pm, err)
		p.terminateActor(pm)
	}
}

func (p *pool) terminateActor(pm *ProxyMonitor) {
	pm.Terminate()
	p.terminated.Add(pm.AID)
	p.metric.Terminated(context.Background(), p.owner.name)
}

// spawnActors spawns the missing workers. Nothing is spawned while a
// previous spawn has not notified yet.
func (p *pool) spawnActors() error {
	missing := p.cfg.Workers - len(p.managed)
	if p.cfg.Workers <= 0 || missing <= 0 || len(p.spawning) > 0 {
		return nil
	}
	for range missing {
		pm, err := p.spawnActor()
		if err != nil {
			return err
		}
		pm.Callback.AddErrback(func(result any) any {
			p.owner.logger.Warnf("%s: %v", p.owner, result)
			return nil
		})
	}
	return nil
}

// stopActors asks the oldest excess workers to stop.
func (p *pool) stopActors() {
	if p.cfg.Workers <= 0 {
		return
	}

	running := make([]*ProxyMonitor, 0, len(p.managed))
	for _, pm := range p.managed {
		if !pm.Stopping() {
			running = append(running, pm)
		}
	}
	excess := len(running) - p.cfg.Workers
	if excess <= 0 {
		return
	}

	slices.SortFunc(running, func(a, b *ProxyMonitor) int {
		return a.spawnedAt.Compare(b.spawnedAt)
	})
	now := p.owner.clock.Now()
	for _, pm := range running[:excess] {
		p.owner.logger.Infof("%s stopping excess %s", p.owner, pm)
		p.stopActor(pm, now)
	}
}

// closeActors stops every actor of the pool and resolves once all of them
// exited. Actors still alive after the action timeout are terminated.
func (p *pool) closeActors() future.Future {
	return future.NewTask(p.owner.loop, func(co *future.Co) (any, error) {
		started := p.owner.clock.Now()
		for _, pm := range p.proxies() {
			p.stopActor(pm, started)
		}

		killed := false
		for p.sweep() > 0 {
			if _, err := co.Await(p.sleep(closePollInterval)); err != nil {
				return nil, err
			}

			elapsed := p.owner.clock.Since(started)
			switch {
			case elapsed > 2*p.cfg.ActionTimeout:
				p.owner.logger.Errorf("%s could not close %d actors", p.owner, len(p.managed)+len(p.spawning))
				return false, nil
			case elapsed > p.cfg.ActionTimeout && !killed:
				killed = true
				for _, pm := range p.proxies() {
					p.owner.logger.Warnf("%s did not stop in %s, terminating", pm, p.cfg.ActionTimeout)
					p.terminateActor(pm)
				}
			}
		}
		return true, nil
	})
}

func (p *pool) sleep(d time.Duration) *future.Deferred {
	deferred := future.NewDeferred(p.owner.loop)
	p.owner.loop.CallLater(d, func() {
		_, _ = deferred.Callback(nil)
	})
	return deferred
}

// infos returns the last info of every managed actor
func (p *pool) infos() []any {
	now := p.owner.clock.Now()
	infos := make([]any, 0, len(p.managed))
	for _, pm := range p.proxies() {
		if _, ok := p.managed[pm.AID]; !ok {
			continue
		}
		infos = append(infos, map[string]any{
			"aid":      pm.AID,
			"name":     pm.Name,
			"wid":      pm.WID,
			"age":      pm.Age(now).Seconds(),
			"stopping": pm.Stopping(),
			"info":     pm.Info,
		})
	}
	return infos
}

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
	"syscall"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/tochemey/gopulse/config"
	gerrors "github.com/tochemey/gopulse/errors"
	"github.com/tochemey/gopulse/future"
	"github.com/tochemey/gopulse/internal/errorschain"
	"github.com/tochemey/gopulse/mailbox"
)

// arbiterExists guards the single arbiter of a process
var arbiterExists = atomic.NewBool(false)

// Arbiter is the root supervisor of a process. It owns the master loop, the
// mailbox server every worker connects to, the monitors and the actors
// spawned outside of a monitor.
type Arbiter struct {
	*Actor
	server   *mailbox.Server
	address  mailbox.Address
	monitors map[string]*Monitor
	pool     *pool
	retired  []*ProxyMonitor
	startErr error
}

var (
	_ supervisor      = (*Arbiter)(nil)
	_ router          = (*Arbiter)(nil)
	_ mailbox.Handler = (*Arbiter)(nil)
)

// NewArbiter creates the arbiter of the process. Only one arbiter may exist
// at a time.
func NewArbiter(registry *Registry, cfg *config.Config) (*Arbiter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is required", gerrors.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !arbiterExists.CompareAndSwap(false, true) {
		return nil, gerrors.ErrArbiterExists
	}

	arbiter, err := newArbiter(registry, cfg)
	if err != nil {
		arbiterExists.Store(false)
		return nil, err
	}
	return arbiter, nil
}

func newArbiter(registry *Registry, cfg *config.Config) (*Arbiter, error) {
	cfg = cfg.Copy()
	if cfg.Name == "" {
		cfg.Name = arbiterName
	}

	core, err := newActor(actorParams{
		name:     cfg.Name,
		kind:     ArbiterConcurrency,
		cfg:      cfg,
		registry: registry,
		ownLoop:  true,
	})
	if err != nil {
		return nil, err
	}

	a := &Arbiter{
		Actor:    core,
		monitors: make(map[string]*Monitor),
	}
	core.sup = a
	core.router = a

	if a.pool, err = newPool(core, a, "", nil); err != nil {
		_ = core.loop.Close()
		return nil, err
	}
	a.server = mailbox.NewServer(core.loop, core.codec, a, core.logger)
	return a, nil
}

// AddMonitor adds a monitor keeping cfg.Workers workers of behavior alive.
// The arbiter settings apply unless overridden by opts. It must be called
// before Start or from the arbiter loop.
func (a *Arbiter) AddMonitor(name, behavior string, opts ...config.Option) (*Monitor, error) {
	switch name {
	case arbiterName, monitorName, a.name:
		return nil, gerrors.NewErrReservedName(name)
	}
	if _, ok := a.monitors[name]; ok {
		return nil, fmt.Errorf("%w: monitor (%s) already exists", gerrors.ErrInvalidConfig, name)
	}
	if a.State().Stopped() || a.State() == Stopping {
		return nil, gerrors.ErrActorNotRunning
	}
	if _, err := a.registry.Behavior(behavior); err != nil {
		return nil, err
	}

	cfg := a.cfg.Copy()
	cfg.Name = name
	for _, opt := range opts {
		opt.Apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	core, err := newActor(actorParams{
		name:     name,
		kind:     MonitorConcurrency,
		cfg:      cfg,
		registry: a.registry,
		monitor:  a.Proxy(),
	})
	if err != nil {
		return nil, err
	}

	m, err := newMonitor(a, core, behavior)
	if err != nil {
		return nil, err
	}
	a.monitors[name] = m
	a.linked.Add(m.Proxy())

	if a.State() == Run {
		if err := m.start(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Monitor returns the monitor with the given name
func (a *Arbiter) Monitor(name string) (*Monitor, bool) {
	m, ok := a.monitors[name]
	return m, ok
}

// Monitors returns the monitors ordered by name
func (a *Arbiter) Monitors() []*Monitor {
	monitors := make([]*Monitor, 0, len(a.monitors))
	for _, m := range a.monitors {
		monitors = append(monitors, m)
	}
	slices.SortFunc(monitors, func(x, y *Monitor) int {
		switch {
		case x.name < y.name:
			return -1
		case x.name > y.name:
			return 1
		}
		return 0
	})
	return monitors
}

// Address returns the address workers connect to, set once started
func (a *Arbiter) Address() mailbox.Address {
	return a.address
}

// Start binds the mailbox server, starts the monitors and runs the arbiter
// loop until the arbiter stops. SIGINT and SIGTERM stop the arbiter.
func (a *Arbiter) Start() error {
	if !a.state.CompareAndSwap(int32(Initial), int32(Starting)) {
		return fmt.Errorf("%w: %s is %s", gerrors.ErrInvalidStateTransition, a, a.State())
	}
	defer arbiterExists.Store(false)
	defer close(a.done)

	loop := a.loop
	if err := a.server.Listen(mailbox.AddressFor(a.cfg.SocketDir, a.aid)); err != nil {
		a.state.Store(int32(Terminate))
		_ = loop.Close()
		return fmt.Errorf("%s failed to bind its mailbox: %w", a, err)
	}
	a.address = a.server.Address()

	for _, sig := range []syscall.Signal{syscall.SIGINT, syscall.SIGTERM} {
		loop.AddSignalHandler(sig, func() {
			a.logger.Infof("%s received %s, stopping", a, sig)
			a.Actor.Stop(false)
		})
	}

	loop.CallSoon(a.enterRun)
	runErr := loop.RunForever()
	if a.State() < Close {
		a.state.Store(int32(Terminate))
	}

	return errorschain.New(errorschain.ReturnAll()).
		AddError(runErr).
		AddError(a.startErr).
		AddErrorFn(a.server.Close).
		AddErrorFn(a.joinWorkers).
		AddErrorFn(loop.Close).
		Error()
}

func (a *Arbiter) enterRun() {
	if a.State() != Starting {
		return
	}
	if err := a.behavior.PreStart(a.Actor); err != nil {
		a.abort(err)
		return
	}

	a.startedAt = a.clock.Now()
	a.state.Store(int32(Run))
	a.FireEvent(StartEvent)
	a.logger.Infof("%s listening on %s", a, a.address)

	for _, m := range a.Monitors() {
		if err := m.start(); err != nil {
			a.abort(err)
			return
		}
	}
	a.periodic = a.loop.CallEvery(a.cfg.MonitorPeriod, a.pool.manageActors)
}

// abort stops the arbiter after a failure of the supervision machinery.
// Start returns err.
func (a *Arbiter) abort(err error) {
	if a.startErr == nil {
		a.startErr = err
	}
	a.logger.Errorf("%s aborting: %v", a, err)
	a.Actor.Stop(true)
}

// Stop stops the arbiter from any goroutine and waits for Start to return.
func (a *Arbiter) Stop(ctx context.Context) error {
	if a.state.CompareAndSwap(int32(Initial), int32(Close)) {
		arbiterExists.Store(false)
		close(a.done)
		return a.loop.Close()
	}

	a.loop.CallSoonThreadsafe(func() { a.Actor.Stop(false) })
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Spawn starts an actor supervised by the arbiter itself and returns a
// future resolved with its Proxy once it notified. It must be called from
// the arbiter loop.
func (a *Arbiter) Spawn(opts ...SpawnOption) future.Future {
	return a.spawn(opts...)
}

// Lookup returns the supervised actor with the given id
func (a *Arbiter) Lookup(aid string) (*ProxyMonitor, bool) {
	pm := a.lookup(aid)
	return pm, pm != nil
}

func (a *Arbiter) lookup(aid string) *ProxyMonitor {
	if pm := a.pool.lookup(aid); pm != nil {
		return pm
	}
	for _, m := range a.monitors {
		if pm := m.pool.lookup(aid); pm != nil {
			return pm
		}
	}
	return nil
}

func (a *Arbiter) monitorByID(target string) *Monitor {
	if m, ok := a.monitors[target]; ok {
		return m
	}
	for _, m := range a.monitors {
		if m.aid == target {
			return m
		}
	}
	return nil
}

// supervisorOf returns the actor supervising sender, the arbiter by default
func (a *Arbiter) supervisorOf(sender string) *Actor {
	if pm := a.lookup(sender); pm != nil {
		return pm.pool.owner
	}
	return a.Actor
}

// retire keeps track of a removed actor until its thread or process exited
func (a *Arbiter) retire(pm *ProxyMonitor) {
	a.retired = slices.DeleteFunc(a.retired, func(x *ProxyMonitor) bool {
		return x.worker.exited()
	})
	if !pm.worker.exited() {
		a.retired = append(a.retired, pm)
	}
}

// joinWorkers waits for every thread and process spawned to exit
func (a *Arbiter) joinWorkers() error {
	proxies := slices.Clone(a.retired)
	proxies = append(proxies, a.pool.proxies()...)
	for _, m := range a.monitors {
		proxies = append(proxies, m.pool.proxies()...)
	}

	var group errgroup.Group
	for _, pm := range proxies {
		group.Go(func() error {
			if pm.Join(a.cfg.ActionTimeout) {
				return nil
			}
			pm.Terminate()
			if pm.Join(a.cfg.ActionTimeout) {
				return nil
			}
			return fmt.Errorf("%s did not exit", pm)
		})
	}
	return group.Wait()
}

// HandleMessage implements mailbox.Handler for the connections of the
// arbiter server.
func (a *Arbiter) HandleMessage(conn *mailbox.Connection, msg *mailbox.Message) {
	switch msg.Receiver {
	case arbiterName, a.aid, a.name:
		a.dispatch(conn, msg)
		return
	case monitorName:
		a.supervisorOf(msg.Sender).dispatch(conn, msg)
		return
	}

	if m := a.monitorByID(msg.Receiver); m != nil {
		m.dispatch(conn, msg)
		return
	}
	if pm := a.lookup(msg.Receiver); pm != nil {
		a.forward(conn, msg, pm)
		return
	}
	a.supervisorOf(msg.Sender).dispatch(conn, msg)
}

// forward relays msg to pm and the reply back to conn.
func (a *Arbiter) forward(conn *mailbox.Connection, msg *mailbox.Message, pm *ProxyMonitor) {
	if pm.conn == nil || pm.conn.Closed() {
		_ = conn.Reply(msg, nil, fmt.Errorf("%w: %s", gerrors.ErrActorNotRunning, pm))
		return
	}

	relayed := *msg
	if msg.Ack == "" {
		if err := pm.conn.Send(&relayed); err != nil {
			a.logger.Warnf("%s failed to forward (%s) to %s: %v", a, msg.Command, pm, err)
		}
		return
	}

	pm.conn.Request(&relayed).AddBoth(func(result any) any {
		if failure, ok := future.AsFailure(result); ok {
			_ = conn.Reply(msg, nil, failure)
			return nil
		}
		if err := conn.Reply(msg, result, nil); err != nil {
			a.logger.Warnf("%s failed to relay (%s) to (%s): %v", a, msg.Command, msg.Sender, err)
		}
		return nil
	})
}

func (a *Arbiter) route(target string) (*Actor, *mailbox.Connection, error) {
	switch target {
	case "", arbiterName, monitorName, a.aid, a.name:
		return a.Actor, nil, nil
	}
	if m := a.monitorByID(target); m != nil {
		return m.Actor, nil, nil
	}

	pm := a.lookup(target)
	if pm == nil {
		return nil, nil, gerrors.NewErrUnknownActor(target)
	}
	if pm.conn == nil || pm.conn.Closed() {
		return nil, nil, fmt.Errorf("%w: %s", gerrors.ErrActorNotRunning, pm)
	}
	return nil, pm.conn, nil
}

func (a *Arbiter) caller(sender string) any {
	if pm := a.lookup(sender); pm != nil {
		return pm
	}
	if m := a.monitorByID(sender); m != nil {
		return m.Proxy()
	}
	return Proxy{AID: sender}
}

func (a *Arbiter) spawn(opts ...SpawnOption) future.Future {
	if a.State() != Run {
		return future.Resolved(a.loop, gerrors.ErrActorNotRunning)
	}
	return a.pool.spawn(opts...)
}

func (a *Arbiter) kill(aid string) bool {
	pm := a.lookup(aid)
	if pm == nil {
		return false
	}
	pm.pool.stopActor(pm, a.clock.Now())
	return true
}

func (a *Arbiter) workers() []any {
	return a.pool.infos()
}

func (a *Arbiter) info(data map[string]any) {
	monitors := make(map[string]any, len(a.monitors))
	for _, m := range a.Monitors() {
		monitors[m.name] = m.Info()
	}
	data["monitors"] = monitors
	data["workers"] = a.pool.infos()
	data["server"] = map[string]any{
		"address":     a.address.String(),
		"connections": a.server.Connections(),
	}
}

func (a *Arbiter) close() future.Future {
	closing := make([]any, 0, len(a.monitors)+1)
	for _, m := range a.Monitors() {
		closing = append(closing, m.Stop(false))
	}
	closing = append(closing, a.pool.closeActors())
	return future.Gather(a.loop, closing...)
}

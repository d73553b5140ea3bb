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
	"os"
	"time"

	"github.com/benbjohnson/clock"
	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/tochemey/gopulse/config"
	gerrors "github.com/tochemey/gopulse/errors"
	"github.com/tochemey/gopulse/event"
	"github.com/tochemey/gopulse/eventloop"
	"github.com/tochemey/gopulse/future"
	"github.com/tochemey/gopulse/internal/metric"
	"github.com/tochemey/gopulse/log"
	"github.com/tochemey/gopulse/mailbox"
)

// router resolves the targets of the messages an actor sends.
type router interface {
	// route returns the local actor serving target, or the connection the
	// message must be written to.
	route(target string) (*Actor, *mailbox.Connection, error)
	// caller returns what internal commands receive for sender
	caller(sender string) any
}

// supervisor is implemented by the actors managing a pool: monitors and
// the arbiter.
type supervisor interface {
	spawn(opts ...SpawnOption) future.Future
	kill(aid string) bool
	workers() []any
	info(data map[string]any)
	close() future.Future
}

// connector opens the mailbox of a worker on loop.
type connector func(a *Actor, loop *eventloop.Loop, handler mailbox.Handler) (*mailbox.Connection, error)

// Actor is a unit of concurrency with its own loop and mailbox. Besides the
// thread-safe accessors, its methods must be called from the actor loop.
type Actor struct {
	aid      string
	name     string
	kind     string
	wid      int
	cfg      *config.Config
	registry *Registry
	behavior Behavior
	logger   log.Logger
	clock    clock.Clock
	codec    *mailbox.Codec
	metric   *metric.ActorMetric

	loop     *eventloop.Loop
	ioLoop   *eventloop.Loop
	ownsLoop bool
	events   *event.Handler
	state    *atomic.Int32

	router  router
	sup     supervisor
	connect connector
	conn    *mailbox.Connection
	monitor Proxy
	linked  mapset.Set[Proxy]
	work    *WorkQueue

	processed  *atomic.Uint64
	concurrent *atomic.Int64
	startedAt  time.Time
	extra      map[string]any
	periodic   future.Timer
	stopped    *future.Deferred
	done       chan struct{}
}

type actorParams struct {
	aid      string
	name     string
	kind     string
	wid      int
	cfg      *config.Config
	registry *Registry
	behavior Behavior
	monitor  Proxy
	work     *WorkQueue
	connect  connector
	ownLoop  bool
}

func newActor(params actorParams) (*Actor, error) {
	if params.registry == nil {
		return nil, fmt.Errorf("%w: registry is required", gerrors.ErrInvalidConfig)
	}
	if params.aid == "" {
		params.aid = CreateAID()
	}
	if params.behavior == nil {
		params.behavior = Hooks{}
	}

	codec, err := newCodec(params.cfg)
	if err != nil {
		return nil, err
	}

	actorMetric, err := metric.NewActorMetric(metric.NewProvider(params.cfg.MeterProvider).Meter())
	if err != nil {
		return nil, err
	}

	a := &Actor{
		aid:        params.aid,
		name:       params.name,
		kind:       params.kind,
		wid:        params.wid,
		cfg:        params.cfg,
		registry:   params.registry,
		behavior:   params.behavior,
		logger:     params.cfg.Logger.With("actor", params.name, "aid", params.aid),
		clock:      params.cfg.Clock,
		codec:      codec,
		metric:     actorMetric,
		state:      atomic.NewInt32(int32(Initial)),
		connect:    params.connect,
		monitor:    params.monitor,
		linked:     mapset.NewThreadUnsafeSet[Proxy](),
		work:       params.work,
		processed:  atomic.NewUint64(0),
		concurrent: atomic.NewInt64(0),
		extra:      make(map[string]any),
		done:       make(chan struct{}),
	}
	a.events = event.NewHandler(a, a.logger, []string{StartEvent, StoppingEvent, StopEvent}, nil)
	a.router = workerRouter{a}

	if params.ownLoop {
		loop, err := a.newLoop(a.name)
		if err != nil {
			return nil, err
		}
		a.attach(loop, true)
	}
	return a, nil
}

func newCodec(cfg *config.Config) (*mailbox.Codec, error) {
	return mailbox.NewCodec(
		mailbox.WithType(proxyTag, Proxy{}),
		mailbox.WithCompression(cfg.Compression, cfg.CompressionThreshold),
		mailbox.WithMaxFrameSize(cfg.MaxFrameSize))
}

// AID returns the actor id
func (a *Actor) AID() string {
	return a.aid
}

// Name returns the actor name
func (a *Actor) Name() string {
	return a.name
}

// Kind returns the actor concurrency kind
func (a *Actor) Kind() string {
	return a.kind
}

// WID returns the worker identity assigned by the supervisor
func (a *Actor) WID() int {
	return a.wid
}

// State returns the actor state. It is safe to call from any goroutine.
func (a *Actor) State() State {
	return State(a.state.Load())
}

// Proxy returns the handle of the actor
func (a *Actor) Proxy() Proxy {
	return Proxy{AID: a.aid, Name: a.name}
}

// Monitor returns the handle of the supervisor the actor reports to
func (a *Actor) Monitor() Proxy {
	return a.monitor
}

// Loop returns the request loop of the actor, nil before Start.
func (a *Actor) Loop() *eventloop.Loop {
	return a.loop
}

// Config returns the actor settings
func (a *Actor) Config() *config.Config {
	return a.cfg
}

// Logger returns the actor logger
func (a *Actor) Logger() log.Logger {
	return a.logger
}

// Registry returns the registry the actor resolves commands with
func (a *Actor) Registry() *Registry {
	return a.registry
}

// Extra returns the user data reported by Info
func (a *Actor) Extra() map[string]any {
	return a.extra
}

// Linked returns the actors this one reports to
func (a *Actor) Linked() []Proxy {
	return a.linked.ToSlice()
}

// Processed returns the number of requests executed
func (a *Actor) Processed() uint64 {
	return a.processed.Load()
}

// Concurrent returns the number of requests in flight
func (a *Actor) Concurrent() int64 {
	return a.concurrent.Load()
}

// Done is closed once Start returned
func (a *Actor) Done() <-chan struct{} {
	return a.done
}

// Events returns the event handler of the actor
func (a *Actor) Events() *event.Handler {
	return a.events
}

// BindEvent binds listener to the event name
func (a *Actor) BindEvent(name string, listener event.Listener) {
	a.events.BindEvent(name, listener)
}

// FireEvent fires the event name, with the actor as data by default
func (a *Actor) FireEvent(name string, data ...any) bool {
	return a.events.FireEvent(name, data...)
}

func (a *Actor) String() string {
	return fmt.Sprintf("%s(%s)", a.name, a.aid)
}

// attach binds the actor to loop. Monitors and the arbiter share the
// arbiter loop; workers own theirs.
func (a *Actor) attach(loop *eventloop.Loop, owns bool) {
	a.loop = loop
	a.ownsLoop = owns
	a.stopped = future.NewDeferred(loop)
}

// Start runs the actor: it builds the actor loops, opens the mailbox to the
// supervisor, enters Run and blocks until the actor stops. It is only
// valid from Initial.
func (a *Actor) Start() error {
	if !a.state.CompareAndSwap(int32(Initial), int32(Starting)) {
		return fmt.Errorf("%w: %s is %s", gerrors.ErrInvalidStateTransition, a, a.State())
	}
	defer close(a.done)

	if a.loop == nil {
		loop, err := a.newLoop(a.name)
		if err != nil {
			a.state.Store(int32(Terminate))
			return err
		}
		a.attach(loop, true)
	}
	loop := a.loop
	defer func() {
		_ = loop.Close()
	}()

	var err error
	mailboxLoop := loop
	var handler mailbox.Handler = a
	if a.work != nil {
		if a.ioLoop, err = a.newLoop(a.name + ".io"); err != nil {
			a.state.Store(int32(Terminate))
			return err
		}
		mailboxLoop = a.ioLoop
		handler = mailbox.HandlerFunc(func(conn *mailbox.Connection, msg *mailbox.Message) {
			a.loop.CallSoonThreadsafe(func() { a.dispatch(conn, msg) })
		})
	}

	if a.connect != nil {
		conn, err := a.connect(a, mailboxLoop, handler)
		if err != nil {
			a.state.Store(int32(Terminate))
			a.closeIOLoop()
			return err
		}
		a.conn = conn
		conn.OnClose(func(error) {
			loop.CallSoonThreadsafe(a.supervisorLost)
		})
	}

	ioDone := make(chan error, 1)
	if a.ioLoop != nil {
		go func() { ioDone <- a.ioLoop.RunForever() }()
	}

	loop.CallSoon(a.enterRun)
	err = loop.RunForever()

	if a.State() < Close {
		a.state.Store(int32(Terminate))
		a.logger.Warnf("%s terminated", a)
	}
	if a.ioLoop != nil {
		if a.conn != nil {
			a.ioLoop.CallSoonThreadsafe(func() { _ = a.conn.Close() })
		}
		a.ioLoop.Stop()
		err = multierr.Append(err, <-ioDone)
		a.closeIOLoop()
	} else if a.conn != nil && !a.conn.Closed() {
		_ = a.conn.Close()
	}
	return err
}

func (a *Actor) newLoop(name string) (*eventloop.Loop, error) {
	return eventloop.New(
		eventloop.WithName(name),
		eventloop.WithLogger(a.logger),
		eventloop.WithClock(a.clock),
		eventloop.WithPollTimeout(a.cfg.PollTimeout))
}

func (a *Actor) closeIOLoop() {
	if a.ioLoop != nil {
		_ = a.ioLoop.Close()
	}
}

func (a *Actor) enterRun() {
	if a.State() != Starting {
		return
	}

	if err := a.behavior.PreStart(a); err != nil {
		a.logger.Errorf("%s failed to start: %v", a, err)
		a.Stop(true)
		return
	}

	a.startedAt = a.clock.Now()
	a.state.Store(int32(Run))
	a.FireEvent(StartEvent)
	a.logger.Debugf("%s running", a)

	if !a.monitor.IsZero() {
		a.linked.Add(a.monitor)
		a.notify()
		a.periodic = a.loop.CallEvery(a.cfg.NotifyInterval(), a.notify)
	}
	if a.work != nil {
		a.loop.CallSoon(a.pollWork)
	}
}

// Stop stops the actor: it fires the stopping event, closes the actors it
// supervises, calls the PostStop hook, closes the mailbox, enters Close and
// fires the stop event. The returned future resolves once stopped. Calling
// Stop again returns the same future.
func (a *Actor) Stop(force bool) future.Future {
	switch state := a.State(); {
	case state == Initial:
		a.state.Store(int32(Close))
		return future.Resolved(nil, true)
	case state >= Stopping:
		return a.stopped
	case state == Starting && !force:
		a.logger.Debugf("%s stopped before running", a)
	}

	a.state.Store(int32(Stopping))
	a.FireEvent(StoppingEvent)
	if a.periodic != nil {
		a.periodic.Cancel()
		a.periodic = nil
	}

	var closing future.Future = future.Resolved(a.loop, nil)
	if a.sup != nil {
		closing = a.sup.close()
	}

	closing.AddBoth(func(result any) any {
		if err := a.behavior.PostStop(a); err != nil {
			a.logger.Errorf("%s stop hook failed: %v", a, err)
		}
		a.closeMailbox()
		a.state.Store(int32(Close))
		a.FireEvent(StopEvent)
		a.logger.Debugf("%s closed", a)
		_, _ = a.stopped.Callback(true)
		if a.ownsLoop {
			a.loop.Stop()
		}
		return nil
	})
	return a.stopped
}

func (a *Actor) closeMailbox() {
	conn := a.conn
	if conn == nil {
		return
	}
	if a.ioLoop != nil {
		a.ioLoop.CallSoonThreadsafe(func() { _ = conn.Close() })
		return
	}
	_ = conn.Close()
}

func (a *Actor) supervisorLost() {
	if a.State() == Run {
		a.logger.Warnf("%s lost its supervisor, stopping", a)
		a.Stop(true)
	}
}

// Send sends command to target and returns the future of the reply. target
// is an actor id or one of the reserved names arbiter and monitor. A
// trailing Kwargs argument carries the keyword arguments. Commands that do
// not acknowledge resolve to nil once written.
func (a *Actor) Send(target, command string, args ...any) future.Future {
	if a.loop == nil {
		return future.Resolved(nil, gerrors.ErrActorNotRunning)
	}

	positional, kwargs := splitArgs(args)
	msg := mailbox.NewMessage(command, a.aid, target, positional, kwargs)

	local, conn, err := a.router.route(target)
	if err != nil {
		return future.Resolved(a.loop, err)
	}
	if local != nil {
		cmd, ok := local.registry.Command(command)
		if !ok {
			return future.Resolved(a.loop, gerrors.NewErrCommandNotFound(command))
		}
		return local.execute(&Request{Actor: local, Message: msg}, cmd)
	}

	ack := true
	if cmd, ok := a.registry.Command(command); ok {
		ack = cmd.Ack
	}
	return a.request(conn, msg, ack)
}

// Ask sends command to target from any goroutine and waits for the reply.
func (a *Actor) Ask(ctx context.Context, target, command string, args ...any) (any, error) {
	if a.loop == nil || a.State().Stopped() {
		return nil, gerrors.ErrActorNotRunning
	}

	sent := make(chan future.Future, 1)
	a.loop.CallSoonThreadsafe(func() { sent <- a.Send(target, command, args...) })
	select {
	case f := <-sent:
		return f.Await(ctx)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// request writes msg on conn from the actor loop. The reply is delivered
// on the actor loop even when conn runs on the I/O loop.
func (a *Actor) request(conn *mailbox.Connection, msg *mailbox.Message, ack bool) future.Future {
	if conn.Loop() == a.loop {
		if !ack {
			return future.Resolved(a.loop, conn.Send(msg))
		}
		return conn.Request(msg)
	}

	if !ack {
		return future.Resolved(a.loop, conn.Send(msg))
	}

	deferred := future.NewDeferred(a.loop)
	conn.Loop().CallSoonThreadsafe(func() {
		conn.Request(msg).AddBoth(func(result any) any {
			a.loop.CallSoonThreadsafe(func() { _, _ = deferred.Callback(result) })
			return nil
		})
	})
	return deferred
}

func (a *Actor) notify() {
	if a.State() != Run || a.conn == nil {
		return
	}
	msg := mailbox.NewMessage("notify", a.aid, monitorName, []any{a.Info()}, nil)
	if err := a.conn.Send(msg); err != nil {
		a.logger.Warnf("%s failed to notify its supervisor: %v", a, err)
	}
}

// Info returns a snapshot of the actor status.
func (a *Actor) Info() map[string]any {
	var uptime float64
	if !a.startedAt.IsZero() {
		uptime = a.clock.Since(a.startedAt).Seconds()
	}

	data := map[string]any{
		"actor": map[string]any{
			"name":        a.name,
			"actor_id":    a.aid,
			"state":       a.State().String(),
			"concurrency": a.kind,
			"wid":         a.wid,
			"uptime":      uptime,
			"process_id":  os.Getpid(),
			"is_process":  a.kind == ProcessConcurrency,
		},
		"extra": a.extra,
		"requests": map[string]any{
			"processed":  a.processed.Load(),
			"concurrent": a.concurrent.Load(),
		},
	}
	if a.loop != nil {
		data["events"] = map[string]any{
			"callbacks":  a.loop.NumCallbacks(),
			"iterations": a.loop.Iterations(),
		}
	}
	if a.sup != nil {
		a.sup.info(data)
	}
	return data
}

// workerRouter routes every foreign target through the supervisor mailbox.
type workerRouter struct {
	a *Actor
}

func (r workerRouter) route(target string) (*Actor, *mailbox.Connection, error) {
	if target == "" || target == r.a.aid {
		return r.a, nil, nil
	}
	if r.a.conn == nil || r.a.conn.Closed() {
		return nil, nil, fmt.Errorf("%w: %s has no supervisor mailbox", gerrors.ErrActorNotRunning, r.a)
	}
	return nil, r.a.conn, nil
}

func (r workerRouter) caller(sender string) any {
	if sender == r.a.monitor.AID {
		return r.a.monitor
	}
	return Proxy{AID: sender}
}

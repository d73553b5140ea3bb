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
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"

	"github.com/tochemey/gopulse/config"
	gerrors "github.com/tochemey/gopulse/errors"
	"github.com/tochemey/gopulse/eventloop"
	"github.com/tochemey/gopulse/log"
	"github.com/tochemey/gopulse/mailbox"
)

// childEnv carries the spawn parameters of a process worker
const childEnv = "GOPULSE_ACTOR"

// worker is the thread or process an actor runs in.
type worker interface {
	start() error
	isAlive() bool
	exited() bool
	terminate()
	join(timeout time.Duration) bool
}

// threadWorker runs an actor on its own goroutine. The actor loop locks the
// goroutine to an OS thread while it runs.
type threadWorker struct {
	actor *Actor
	dead  *atomic.Bool
	done  chan struct{}
}

var _ worker = (*threadWorker)(nil)

func newThreadWorker(actor *Actor) *threadWorker {
	return &threadWorker{
		actor: actor,
		dead:  atomic.NewBool(false),
		done:  make(chan struct{}),
	}
}

func (w *threadWorker) start() error {
	go func() {
		defer close(w.done)
		if err := w.actor.Start(); err != nil {
			w.actor.logger.Errorf("%s exited: %v", w.actor, err)
		}
	}()
	return nil
}

func (w *threadWorker) isAlive() bool {
	return !w.dead.Load() && !w.exited()
}

func (w *threadWorker) exited() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

// terminate stops the actor loop without the stop sequence
func (w *threadWorker) terminate() {
	if !w.dead.CompareAndSwap(false, true) {
		return
	}
	a := w.actor
	a.loop.CallSoonThreadsafe(func() {
		a.state.Store(int32(Terminate))
		a.closeMailbox()
	})
	a.loop.Stop()
}

func (w *threadWorker) join(timeout time.Duration) bool {
	return waitDone(w.done, timeout)
}

// spawnParams is what a process worker needs to rebuild its actor
type spawnParams struct {
	AID        string
	Name       string
	WID        int
	Behavior   string
	Monitor    Proxy
	Supervisor string
	Config     *config.Config
}

func (p *spawnParams) encode() (string, error) {
	codec, err := mailbox.NewCodec()
	if err != nil {
		return "", err
	}
	data, err := codec.Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func decodeSpawnParams(value string) (*spawnParams, error) {
	data, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, err
	}
	codec, err := mailbox.NewCodec()
	if err != nil {
		return nil, err
	}
	params := new(spawnParams)
	if err := codec.Unmarshal(data, params); err != nil {
		return nil, err
	}
	if params.Config == nil {
		return nil, fmt.Errorf("%w: missing config", gerrors.ErrInvalidConfig)
	}
	return params, nil
}

// processWorker runs an actor in a child process started from the current
// executable.
type processWorker struct {
	params *spawnParams
	logger log.Logger
	cmd    *exec.Cmd
	done   chan struct{}
}

var _ worker = (*processWorker)(nil)

func newProcessWorker(params *spawnParams, logger log.Logger) *processWorker {
	return &processWorker{
		params: params,
		logger: logger,
		done:   make(chan struct{}),
	}
}

func (w *processWorker) start() error {
	encoded, err := w.params.encode()
	if err != nil {
		return err
	}
	executable, err := os.Executable()
	if err != nil {
		return err
	}

	cmd := exec.Command(executable, os.Args[1:]...)
	cmd.Env = append(os.Environ(), childEnv+"="+encoded)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return err
	}
	w.cmd = cmd

	go func() {
		defer close(w.done)
		if err := cmd.Wait(); err != nil {
			w.logger.Debugf("actor process %d of %s(%s) exited: %v", cmd.Process.Pid, w.params.Name, w.params.AID, err)
		}
	}()
	return nil
}

func (w *processWorker) isAlive() bool {
	return w.cmd != nil && !w.exited()
}

func (w *processWorker) exited() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

func (w *processWorker) terminate() {
	if w.isAlive() {
		_ = w.cmd.Process.Kill()
	}
}

func (w *processWorker) join(timeout time.Duration) bool {
	if w.cmd == nil {
		return true
	}
	return waitDone(w.done, timeout)
}

func waitDone(done <-chan struct{}, timeout time.Duration) bool {
	if timeout <= 0 {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// IsChild reports whether the current process was started to run a
// process worker.
func IsChild() bool {
	_, ok := os.LookupEnv(childEnv)
	return ok
}

// RunChild runs the process worker the current process was started for and
// returns the process exit code. Programs using process concurrency call it
// first thing in main:
//
//	if actor.IsChild() {
//		os.Exit(actor.RunChild(registry))
//	}
func RunChild(registry *Registry) int {
	value, ok := os.LookupEnv(childEnv)
	if !ok {
		log.DefaultLogger.Error(gerrors.ErrNotChildProcess)
		return 2
	}

	params, err := decodeSpawnParams(value)
	if err != nil {
		log.DefaultLogger.Errorf("invalid actor parameters: %v", err)
		return 2
	}

	cfg := params.Config
	cfg.Logger = log.NewZap(cfg.LogLevel, os.Stderr)
	cfg.Clock = clock.New()
	defer func() {
		_ = cfg.Logger.Flush()
	}()

	addr, err := mailbox.ParseAddress(params.Supervisor)
	if err != nil {
		cfg.Logger.Errorf("invalid supervisor address: %v", err)
		return 2
	}

	behavior, err := registry.Behavior(params.Behavior)
	if err != nil {
		cfg.Logger.Error(err)
		return 2
	}

	a, err := newActor(actorParams{
		aid:      params.AID,
		name:     params.Name,
		kind:     ProcessConcurrency,
		wid:      params.WID,
		cfg:      cfg,
		registry: registry,
		behavior: behavior,
		monitor:  params.Monitor,
		connect:  dialConnector(addr),
	})
	if err != nil {
		cfg.Logger.Error(err)
		return 1
	}

	if err := a.Start(); err != nil {
		cfg.Logger.Errorf("%s exited: %v", a, err)
		return 1
	}
	return 0
}

// dialConnector connects to the supervisor at addr.
func dialConnector(addr mailbox.Address) connector {
	return func(a *Actor, loop *eventloop.Loop, handler mailbox.Handler) (*mailbox.Connection, error) {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ActionTimeout)
		defer cancel()
		return mailbox.Dial(ctx, loop, addr, mailbox.DialConfig{
			Codec:   a.codec,
			Handler: handler,
			Logger:  a.logger,
			Retries: a.cfg.ConnectRetries,
		})
	}
}

// queueConnector opens the mailbox over the worker end of a queue pair.
func queueConnector(transport mailbox.Transport) connector {
	return func(a *Actor, loop *eventloop.Loop, handler mailbox.Handler) (*mailbox.Connection, error) {
		conn := mailbox.NewConnection(loop, transport, a.codec, handler, a.logger)
		conn.Start()
		return conn, nil
	}
}

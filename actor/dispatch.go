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
	"time"

	gerrors "github.com/tochemey/gopulse/errors"
	"github.com/tochemey/gopulse/future"
	"github.com/tochemey/gopulse/mailbox"
)

// workPollTimeout bounds how long an idle CPU-bound worker parks on the work
// queue before its loop runs again
const workPollTimeout = 20 * time.Millisecond

// HandleMessage implements mailbox.Handler
func (a *Actor) HandleMessage(conn *mailbox.Connection, msg *mailbox.Message) {
	a.dispatch(conn, msg)
}

// dispatch executes a request received on conn and replies when the
// command acknowledges.
func (a *Actor) dispatch(conn *mailbox.Connection, msg *mailbox.Message) {
	if a.State() != Run {
		a.logger.Warnf("%s is %s, dropping (%s) from (%s)", a, a.State(), msg.Command, msg.Sender)
		_ = conn.Reply(msg, nil, gerrors.ErrActorNotRunning)
		return
	}

	switch msg.Receiver {
	case "", a.aid, a.name, arbiterName, monitorName:
	default:
		a.logger.Warnf("unknown receiver (%s) for (%s), delivering to %s", msg.Receiver, msg.Command, a)
	}

	cmd, ok := a.registry.Command(msg.Command)
	if !ok {
		a.logger.Warnf("%s received unknown command (%s) from (%s)", a, msg.Command, msg.Sender)
		_ = conn.Reply(msg, nil, gerrors.NewErrCommandNotFound(msg.Command))
		return
	}

	result := a.execute(&Request{Actor: a, Conn: conn, Message: msg}, cmd)
	if !cmd.Ack || msg.Ack == "" {
		return
	}
	result.AddBoth(func(outcome any) any {
		if failure, ok := future.AsFailure(outcome); ok {
			_ = conn.Reply(msg, nil, failure)
			return outcome
		}
		if err := conn.Reply(msg, outcome, nil); err != nil {
			a.logger.Errorf("%s failed to reply (%s) to (%s): %v", a, msg.Command, msg.Sender, err)
		}
		return outcome
	})
}

// execute runs cmd for req and returns the future of its result. Failures
// are logged once; they never escape the actor.
func (a *Actor) execute(req *Request, cmd Command) future.Future {
	args := req.Message.Args
	if cmd.Internal {
		args = append([]any{a.router.caller(req.Message.Sender)}, args...)
	}

	ctx := context.Background()
	started := a.clock.Now()
	a.concurrent.Inc()
	a.metric.RequestStarted(ctx, a.name)

	result := future.MaybeAsync(a.loop, a.invoke(cmd, req, args))
	result.AddBoth(func(outcome any) any {
		a.concurrent.Dec()
		a.processed.Inc()
		failure, failed := future.AsFailure(outcome)
		a.metric.RequestDone(ctx, a.name, cmd.Name, a.clock.Since(started), failed)
		if failed {
			failure.Log(a.logger)
		}
		return outcome
	})
	return result
}

func (a *Actor) invoke(cmd Command, req *Request, args []any) (result any) {
	defer func() {
		if r := recover(); r != nil {
			result = gerrors.NewPanicError(r)
		}
	}()

	value, err := cmd.Fn(req, args, req.Message.Kwargs)
	if err != nil {
		return err
	}
	return value
}

// pollWork takes jobs from the shared work queue while the actor has room
// for them.
func (a *Actor) pollWork() {
	if a.State() != Run || a.work.Disposed() {
		return
	}
	if a.concurrent.Load() >= int64(a.cfg.Backlog) {
		a.loop.CallLater(workPollTimeout, a.pollWork)
		return
	}
	if j, ok := a.work.poll(workPollTimeout); ok {
		a.runJob(j)
	}
	a.loop.CallSoon(a.pollWork)
}

func (a *Actor) runJob(j *job) {
	cmd, ok := a.registry.Command(j.command)
	if !ok {
		j.done(gerrors.NewErrCommandNotFound(j.command))
		return
	}
	msg := mailbox.NewMessage(j.command, "", a.aid, j.args, j.kwargs)
	a.execute(&Request{Actor: a, Message: msg}, cmd).AddBoth(func(outcome any) any {
		j.done(outcome)
		return outcome
	})
}

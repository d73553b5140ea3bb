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
)

func builtinCommands() []Command {
	return []Command{
		{Name: "ping", Ack: true, Fn: ping},
		{Name: "echo", Ack: true, Fn: echo},
		{Name: "info", Ack: true, Fn: info},
		{Name: "stop", Ack: true, Fn: stop},
		{Name: "notify", Internal: true, Fn: notify},
		{Name: "spawn", Ack: true, Internal: true, Fn: spawn},
		{Name: "kill_actor", Ack: true, Fn: killActor},
		{Name: "run", Ack: true, Fn: run},
		{Name: "workers", Ack: true, Fn: workers},
	}
}

func ping(*Request, []any, map[string]any) (any, error) {
	return "pong", nil
}

func echo(_ *Request, args []any, _ map[string]any) (any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	return args[0], nil
}

func info(req *Request, _ []any, _ map[string]any) (any, error) {
	return req.Actor.Info(), nil
}

// stop replies before the actor stops so the reply is flushed with the mailbox.
func stop(req *Request, _ []any, _ map[string]any) (any, error) {
	actor := req.Actor
	actor.loop.CallSoon(func() { actor.Stop(false) })
	return true, nil
}

func notify(req *Request, args []any, _ map[string]any) (any, error) {
	caller, ok := args[0].(*ProxyMonitor)
	if !ok {
		return nil, gerrors.NewErrUnknownActor(req.Sender())
	}

	var snapshot map[string]any
	if len(args) > 1 {
		snapshot, _ = args[1].(map[string]any)
	}
	caller.pool.notified(req.Conn, caller, snapshot)
	return nil, nil
}

func spawn(req *Request, _ []any, kwargs map[string]any) (any, error) {
	sup := req.Actor.sup
	if sup == nil {
		return nil, fmt.Errorf("command=(spawn) %w on (%s)", gerrors.ErrCommandNotAllowed, req.Actor.Name())
	}

	var opts []SpawnOption
	if behavior, ok := kwargs["behavior"].(string); ok {
		opts = append(opts, WithBehavior(behavior))
	}
	if name, ok := kwargs["name"].(string); ok {
		opts = append(opts, WithName(name))
	}
	return sup.spawn(opts...), nil
}

func killActor(req *Request, args []any, _ map[string]any) (any, error) {
	sup := req.Actor.sup
	if sup == nil {
		return nil, fmt.Errorf("command=(kill_actor) %w on (%s)", gerrors.ErrCommandNotAllowed, req.Actor.Name())
	}
	aid, err := stringArg(args, 0, "aid")
	if err != nil {
		return nil, err
	}
	return sup.kill(aid), nil
}

func run(req *Request, args []any, _ map[string]any) (any, error) {
	name, err := stringArg(args, 0, "task")
	if err != nil {
		return nil, err
	}
	fn, ok := req.Actor.registry.Task(name)
	if !ok {
		return nil, fmt.Errorf("task=(%s) %w", name, gerrors.ErrCommandNotFound)
	}
	return fn(req.Actor, args[1:])
}

func workers(req *Request, _ []any, _ map[string]any) (any, error) {
	sup := req.Actor.sup
	if sup == nil {
		return nil, fmt.Errorf("command=(workers) %w on (%s)", gerrors.ErrCommandNotAllowed, req.Actor.Name())
	}
	return sup.workers(), nil
}

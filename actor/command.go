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

	"github.com/tochemey/gopulse/mailbox"
)

// Kwargs carries the keyword arguments of a message. Passed as the last
// argument of Send or Ask.
type Kwargs map[string]any

// CommandFunc executes a command. It may return a plain value, a
// future.Future or a future.Coroutine; the last two are awaited before the
// reply is sent.
type CommandFunc func(req *Request, args []any, kwargs map[string]any) (any, error)

// Command is a named function an actor executes on request.
type Command struct {
	// Name is the name the command is addressed by
	Name string
	// Ack tells whether the sender expects a reply
	Ack bool
	// Internal commands receive the caller prepended to their arguments:
	// a *ProxyMonitor in the supervisor domain, a Proxy elsewhere.
	Internal bool
	// Fn is the command implementation
	Fn CommandFunc
}

// Request is the context of a command execution.
type Request struct {
	// Actor is the actor executing the command
	Actor *Actor
	// Conn is the connection the request came from, nil for local requests
	Conn *mailbox.Connection
	// Message is the request message
	Message *mailbox.Message
}

// Sender returns the id of the requesting actor
func (r *Request) Sender() string {
	return r.Message.Sender
}

// splitArgs separates trailing Kwargs from positional arguments.
func splitArgs(args []any) ([]any, map[string]any) {
	if n := len(args); n > 0 {
		switch kwargs := args[n-1].(type) {
		case Kwargs:
			return args[:n-1], map[string]any(kwargs)
		}
	}
	return args, map[string]any{}
}

func stringArg(args []any, index int, name string) (string, error) {
	if index >= len(args) {
		return "", fmt.Errorf("missing argument (%s)", name)
	}
	value, ok := args[index].(string)
	if !ok {
		return "", fmt.Errorf("argument (%s) must be a string, got %T", name, args[index])
	}
	return value, nil
}

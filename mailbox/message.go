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

package mailbox

import (
	"fmt"

	gerrors "github.com/tochemey/gopulse/errors"
)

const (
	// CallbackCommand carries a successful reply
	CallbackCommand = "callback"
	// ErrbackCommand carries a failed reply
	ErrbackCommand = "errback"
)

// Message is the unit exchanged between mailboxes.
type Message struct {
	_        struct{} `cbor:",toarray"`
	Command  string
	Sender   string
	Receiver string
	Args     []any
	Kwargs   map[string]any
	Ack      string
}

// NewMessage creates a request message
func NewMessage(command, sender, receiver string, args []any, kwargs map[string]any) *Message {
	return &Message{
		Command:  command,
		Sender:   sender,
		Receiver: receiver,
		Args:     args,
		Kwargs:   kwargs,
	}
}

// IsReply reports whether the message answers a request
func (m *Message) IsReply() bool {
	return m.Command == CallbackCommand || m.Command == ErrbackCommand
}

// NewCallback creates the successful reply of req.
func NewCallback(req *Message, result any) *Message {
	return &Message{
		Command:  CallbackCommand,
		Sender:   req.Receiver,
		Receiver: req.Sender,
		Args:     []any{result},
		Kwargs:   map[string]any{},
		Ack:      req.Ack,
	}
}

// NewErrback creates the failed reply of req. It carries the error kind so
// the requester can match it with errors.Is.
func NewErrback(req *Message, err error) *Message {
	return &Message{
		Command:  ErrbackCommand,
		Sender:   req.Receiver,
		Receiver: req.Sender,
		Args:     []any{gerrors.Kind(err), err.Error()},
		Kwargs:   map[string]any{},
		Ack:      req.Ack,
	}
}

// Outcome returns the result carried by a reply. An errback becomes a
// CommandError for command.
func (m *Message) Outcome(command string) (any, error) {
	switch m.Command {
	case CallbackCommand:
		if len(m.Args) == 0 {
			return nil, nil
		}
		return m.Args[0], nil
	case ErrbackCommand:
		kind, message := "error", ""
		if len(m.Args) > 0 {
			kind = fmt.Sprint(m.Args[0])
		}
		if len(m.Args) > 1 {
			message = fmt.Sprint(m.Args[1])
		}
		return nil, gerrors.NewCommandError(command, kind, message)
	default:
		return nil, fmt.Errorf("%w: (%s) is not a reply", gerrors.ErrMalformedFrame, m.Command)
	}
}

func (m *Message) normalize() {
	if m.Args == nil {
		m.Args = []any{}
	}
	if m.Kwargs == nil {
		m.Kwargs = map[string]any{}
	}
}

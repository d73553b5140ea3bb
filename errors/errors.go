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

package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is returned when a Deferred is resolved twice or resolved
	// with another asynchronous value.
	ErrInvalidState = errors.New("invalid state")

	// ErrAlreadyCalled is wrapped by ErrInvalidState when a Deferred already
	// holds a result.
	ErrAlreadyCalled = errors.New("already called")

	// ErrCancelled is the root of every cancellation failure.
	ErrCancelled = errors.New("cancelled")

	// ErrTimeout marks a cancellation triggered by a timeout.
	ErrTimeout = errors.New("timeout")

	// ErrCommandNotFound is returned when a message names a command that is not registered.
	ErrCommandNotFound = errors.New("command not found")

	// ErrCommandExists is returned when a command name is registered twice.
	ErrCommandExists = errors.New("command already registered")

	// ErrCommandNotAllowed is returned when an actor does not expose the requested command.
	ErrCommandNotAllowed = errors.New("command not allowed")

	// ErrUnknownActor is returned when an actor id cannot be resolved.
	ErrUnknownActor = errors.New("unknown actor")

	// ErrActorNotRunning is returned when a message reaches an actor that is not in the run state.
	ErrActorNotRunning = errors.New("actor is not running")

	// ErrInvalidStateTransition is returned on an illegal actor state change.
	ErrInvalidStateTransition = errors.New("invalid actor state transition")

	// ErrArbiterExists is returned when a second arbiter is created in the same process.
	ErrArbiterExists = errors.New("arbiter already exists in this process")

	// ErrArbiterRequired is returned when an operation needs a running arbiter.
	ErrArbiterRequired = errors.New("arbiter is required")

	// ErrReservedName is returned when an actor uses a reserved logical name.
	ErrReservedName = errors.New("name is reserved")

	// ErrBehaviorNotRegistered is returned when a spawn names an unknown behavior.
	ErrBehaviorNotRegistered = errors.New("behavior is not registered")

	// ErrSpawnFailed is returned when a worker could not be launched.
	ErrSpawnFailed = errors.New("spawn failed")

	// ErrNotChildProcess is returned when RunChild is called outside a spawned process.
	ErrNotChildProcess = errors.New("not a spawned actor process")

	// ErrEventAlreadyRegistered is returned when a handler is added twice for the same fd and event kind.
	ErrEventAlreadyRegistered = errors.New("event already registered")

	// ErrLoopRunning is returned when a running event loop is started again.
	ErrLoopRunning = errors.New("event loop is already running")

	// ErrLoopClosed is returned when a closed event loop is used.
	ErrLoopClosed = errors.New("event loop is closed")

	// ErrIONotSupported is returned when the platform has no readiness poller.
	ErrIONotSupported = errors.New("I/O readiness polling is not supported on this platform")

	// ErrIncompleteFrame is returned by the frame decoder while it needs more bytes.
	ErrIncompleteFrame = errors.New("incomplete frame")

	// ErrMalformedFrame is returned when a frame header or payload cannot be decoded.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrFrameTooLarge is returned when a frame exceeds the configured maximum size.
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrConnectionClosed is returned when writing to, or waiting on, a closed mailbox connection.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrPoolClosed is returned when a closed connection pool is used.
	ErrPoolClosed = errors.New("connection pool is closed")

	// ErrBacklogFull is returned when a work queue rejects an item.
	ErrBacklogFull = errors.New("backlog is full")

	// ErrWorkerPoolStopped is returned when a task is submitted to a stopped
	// worker pool.
	ErrWorkerPoolStopped = errors.New("worker pool is stopped")

	// ErrRemoteCommand is the fallback sentinel of a failure relayed by another actor.
	ErrRemoteCommand = errors.New("remote command failed")

	// ErrInvalidConfig is returned when the configuration is not valid.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// kinds maps the wire name of a relayed failure to its sentinel.
var kinds = map[string]error{
	"command_not_found":   ErrCommandNotFound,
	"command_not_allowed": ErrCommandNotAllowed,
	"unknown_actor":       ErrUnknownActor,
	"not_running":         ErrActorNotRunning,
	"timeout":             ErrTimeout,
	"cancelled":           ErrCancelled,
	"backlog_full":        ErrBacklogFull,
	"connection_closed":   ErrConnectionClosed,
}

// Kind returns the wire name of err used when relaying it to another actor.
func Kind(err error) string {
	// timeout before cancelled: a timeout is also a cancellation
	for _, name := range []string{
		"command_not_found",
		"command_not_allowed",
		"unknown_actor",
		"not_running",
		"timeout",
		"cancelled",
		"backlog_full",
		"connection_closed",
	} {
		if errors.Is(err, kinds[name]) {
			return name
		}
	}
	return "error"
}

// NewErrCommandNotFound formats an ErrCommandNotFound with the given command name.
func NewErrCommandNotFound(command string) error {
	return fmt.Errorf("command=(%s) %w", command, ErrCommandNotFound)
}

// NewErrUnknownActor formats an ErrUnknownActor with the given actor id.
func NewErrUnknownActor(aid string) error {
	return fmt.Errorf("actor=(%s) %w", aid, ErrUnknownActor)
}

// NewErrReservedName formats an ErrReservedName with the given name.
func NewErrReservedName(name string) error {
	return fmt.Errorf("name=(%s) %w", name, ErrReservedName)
}

// NewErrSpawnFailed wraps the cause of a failed spawn.
func NewErrSpawnFailed(err error) error {
	return errors.Join(ErrSpawnFailed, err)
}

// CancelledError is the payload of a cancellation failure.
type CancelledError struct {
	msg     string
	timeout bool
}

// enforce compilation error
var _ error = (*CancelledError)(nil)

// NewCancelledError creates a cancellation error. When timeout is true the
// error also matches ErrTimeout.
func NewCancelledError(msg string, timeout bool) *CancelledError {
	return &CancelledError{msg: msg, timeout: timeout}
}

// Error implements the standard error interface
func (e *CancelledError) Error() string {
	prefix := ErrCancelled.Error()
	if e.timeout {
		prefix = ErrTimeout.Error()
	}
	if e.msg == "" {
		return prefix
	}
	return prefix + ": " + e.msg
}

// Is matches ErrCancelled and, for timeouts, ErrTimeout.
func (e *CancelledError) Is(target error) bool {
	return target == ErrCancelled || (e.timeout && target == ErrTimeout)
}

// Timeout reports whether the cancellation was triggered by a timeout.
func (e *CancelledError) Timeout() bool {
	return e.timeout
}

// PanicError wraps a value recovered from a panicking callback or command.
type PanicError struct {
	value any
}

// enforce compilation error
var _ error = (*PanicError)(nil)

// NewPanicError creates an instance of PanicError
func NewPanicError(value any) *PanicError {
	return &PanicError{value: value}
}

// Error implements the standard error interface
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// Unwrap returns the recovered value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.value.(error); ok {
		return err
	}
	return nil
}

// CommandError is a failure relayed through an errback frame.
type CommandError struct {
	command string
	kind    string
	message string
}

// enforce compilation error
var _ error = (*CommandError)(nil)

// NewCommandError rebuilds a failure received from another actor.
func NewCommandError(command, kind, message string) *CommandError {
	return &CommandError{command: command, kind: kind, message: message}
}

// Error implements the standard error interface
func (e *CommandError) Error() string {
	return fmt.Sprintf("command=(%s) %s", e.command, e.message)
}

// Kind returns the relayed failure kind.
func (e *CommandError) Kind() string {
	return e.kind
}

// Command returns the name of the command that failed.
func (e *CommandError) Command() string {
	return e.command
}

// Unwrap returns the sentinel named by the failure kind.
func (e *CommandError) Unwrap() error {
	if sentinel, ok := kinds[e.kind]; ok {
		return sentinel
	}
	return ErrRemoteCommand
}

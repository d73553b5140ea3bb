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
	"sort"
	"strings"
	"sync"

	gerrors "github.com/tochemey/gopulse/errors"
)

// TaskFunc is a function the run command executes by name.
type TaskFunc func(actor *Actor, args []any) (any, error)

// Registry holds the commands, behaviors and named tasks known to a process.
// It is built once at start and shared by every actor of the process; a
// child process must build the same registry before calling RunChild.
type Registry struct {
	mu        sync.RWMutex
	commands  map[string]Command
	behaviors map[string]BehaviorFactory
	tasks     map[string]TaskFunc
}

// NewRegistry creates a Registry holding the builtin commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands:  make(map[string]Command),
		behaviors: make(map[string]BehaviorFactory),
		tasks:     make(map[string]TaskFunc),
	}
	for _, command := range builtinCommands() {
		if err := r.Register(command); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a command. Names are case-insensitive.
func (r *Registry) Register(command Command) error {
	name := strings.ToLower(strings.TrimSpace(command.Name))
	if name == "" {
		return fmt.Errorf("%w: command name is required", gerrors.ErrInvalidConfig)
	}
	if command.Fn == nil {
		return fmt.Errorf("%w: command (%s) has no function", gerrors.ErrInvalidConfig, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.commands[name]; ok {
		return fmt.Errorf("command=(%s) %w", name, gerrors.ErrCommandExists)
	}
	command.Name = name
	r.commands[name] = command
	return nil
}

// Command returns the command registered under name.
func (r *Registry) Command(name string) (Command, bool) {
	r.mu.RLock()
	command, ok := r.commands[strings.ToLower(name)]
	r.mu.RUnlock()
	return command, ok
}

// Commands returns the sorted names of the registered commands
func (r *Registry) Commands() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// RegisterBehavior adds a behavior workers can be spawned with.
func (r *Registry) RegisterBehavior(name string, factory BehaviorFactory) error {
	if name == arbiterName || name == monitorName {
		return gerrors.NewErrReservedName(name)
	}
	if name == "" || factory == nil {
		return fmt.Errorf("%w: behavior name and factory are required", gerrors.ErrInvalidConfig)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.behaviors[name]; ok {
		return fmt.Errorf("%w: behavior (%s) already registered", gerrors.ErrInvalidConfig, name)
	}
	r.behaviors[name] = factory
	return nil
}

// Behavior creates the behavior registered under name. The empty name is
// the behavior without hooks.
func (r *Registry) Behavior(name string) (Behavior, error) {
	if name == "" {
		return Hooks{}, nil
	}

	r.mu.RLock()
	factory, ok := r.behaviors[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("behavior=(%s) %w", name, gerrors.ErrBehaviorNotRegistered)
	}
	return factory(), nil
}

// RegisterTask adds a task the run command can execute.
func (r *Registry) RegisterTask(name string, fn TaskFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("%w: task name and function are required", gerrors.ErrInvalidConfig)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[name]; ok {
		return fmt.Errorf("%w: task (%s) already registered", gerrors.ErrInvalidConfig, name)
	}
	r.tasks[name] = fn
	return nil
}

// Task returns the task registered under name
func (r *Registry) Task(name string) (TaskFunc, bool) {
	r.mu.RLock()
	fn, ok := r.tasks[name]
	r.mu.RUnlock()
	return fn, ok
}

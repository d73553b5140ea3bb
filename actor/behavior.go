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

// Behavior holds the hooks of a worker actor. PreStart runs on the actor
// loop before the actor enters Run, PostStop while it stops.
type Behavior interface {
	PreStart(actor *Actor) error
	PostStop(actor *Actor) error
}

// BehaviorFactory creates the Behavior of a new actor
type BehaviorFactory func() Behavior

// Hooks is a Behavior made of optional functions.
type Hooks struct {
	OnStart func(actor *Actor) error
	OnStop  func(actor *Actor) error
}

// enforce compilation error
var _ Behavior = Hooks{}

// PreStart calls OnStart when set
func (h Hooks) PreStart(actor *Actor) error {
	if h.OnStart == nil {
		return nil
	}
	return h.OnStart(actor)
}

// PostStop calls OnStop when set
func (h Hooks) PostStop(actor *Actor) error {
	if h.OnStop == nil {
		return nil
	}
	return h.OnStop(actor)
}

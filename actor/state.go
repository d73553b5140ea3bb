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

// State is the lifecycle state of an actor. States only move forward, except
// Terminate which a supervisor may force from any state.
type State int32

const (
	// Initial is the state of an actor not started yet
	Initial State = iota
	// Starting is the state of an actor building its loop and mailbox
	Starting
	// Run is the state of an actor dispatching requests
	Run
	// Stopping is the state of an actor tearing down
	Stopping
	// Close is the state of an actor that stopped cleanly
	Close
	// Terminate is the state of an actor killed by its supervisor
	Terminate
)

var stateNames = [...]string{
	Initial:   "initial",
	Starting:  "starting",
	Run:       "running",
	Stopping:  "stopping",
	Close:     "closed",
	Terminate: "terminated",
}

func (s State) String() string {
	if s < Initial || s > Terminate {
		return "unknown"
	}
	return stateNames[s]
}

// Stopped reports whether the actor no longer runs
func (s State) Stopped() bool {
	return s >= Close
}

const (
	// ArbiterConcurrency is the kind of the root supervisor
	ArbiterConcurrency = "arbiter"
	// MonitorConcurrency is the kind of monitors, which run inline in the arbiter loop
	MonitorConcurrency = "monitor"
	// ThreadConcurrency is the kind of workers running on a locked OS thread
	ThreadConcurrency = "thread"
	// ProcessConcurrency is the kind of workers running in a child process
	ProcessConcurrency = "process"
)

// reserved logical addresses, resolved against the supervision chain
const (
	arbiterName = "arbiter"
	monitorName = "monitor"
)

// one-time events of an actor
const (
	// StartEvent fires once the actor runs
	StartEvent = "start"
	// StoppingEvent fires when the actor begins to stop
	StoppingEvent = "stopping"
	// StopEvent fires once the actor stopped
	StopEvent = "stop"
)

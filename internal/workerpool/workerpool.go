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

// Package workerpool runs blocking tasks on reusable goroutines so event
// loops never block on them.
package workerpool

import (
	"runtime"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"

	gerrors "github.com/tochemey/gopulse/errors"
)

const (
	// maximum number of shards supported by the worker pool
	maxShards = 128
	// DefaultPassivateAfter is how long an idle goroutine is kept
	DefaultPassivateAfter = 10 * time.Second
)

// WorkerPool runs submitted tasks on goroutines it keeps around for reuse.
// Goroutines idle for longer than the passivation delay exit. Idle workers
// are spread across shards to reduce contention.
type WorkerPool struct {
	passivateAfter time.Duration
	numShards      int
	clock          clock.Clock

	mu      sync.RWMutex
	shards  []*poolShard
	next    *atomic.Uint32
	started *atomic.Bool
	stopped *atomic.Bool
	spawned *atomic.Int64

	done    chan struct{}
	cleaned chan struct{}
}

type worker struct {
	work  chan func()
	shard *poolShard
	// guarded by the shard lock
	lastUsed time.Time
}

// poolShard keeps idle workers ordered from the least to the most recently
// used.
type poolShard struct {
	pool    *WorkerPool
	mu      sync.Mutex
	idle    []*worker
	stopped bool
}

// New creates a WorkerPool. It must be started before use.
func New(opts ...Option) *WorkerPool {
	wp := &WorkerPool{
		passivateAfter: DefaultPassivateAfter,
		numShards:      runtime.GOMAXPROCS(0),
		clock:          clock.New(),
		next:           atomic.NewUint32(0),
		started:        atomic.NewBool(false),
		stopped:        atomic.NewBool(false),
		spawned:        atomic.NewInt64(0),
		done:           make(chan struct{}),
		cleaned:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt.Apply(wp)
	}

	wp.numShards = min(max(wp.numShards, 1), maxShards)
	if wp.passivateAfter <= 0 {
		wp.passivateAfter = DefaultPassivateAfter
	}
	return wp
}

// Start creates the shards and the passivation routine. Calling Start more
// than once is a no-op.
func (wp *WorkerPool) Start() {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.started.Load() || wp.stopped.Load() {
		return
	}

	wp.shards = make([]*poolShard, wp.numShards)
	for i := range wp.shards {
		wp.shards[i] = &poolShard{pool: wp}
	}
	wp.started.Store(true)
	go wp.cleanup()
}

// Stop closes the idle workers and refuses new tasks. Busy workers exit once
// their task returns.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if !wp.started.Load() || wp.stopped.Swap(true) {
		wp.mu.Unlock()
		return
	}
	close(wp.done)
	for _, shard := range wp.shards {
		shard.stop()
	}
	wp.mu.Unlock()
	<-wp.cleaned
}

// SpawnedWorkers returns the number of live worker goroutines
func (wp *WorkerPool) SpawnedWorkers() int {
	return int(wp.spawned.Load())
}

// IdleWorkers returns the number of workers waiting for a task
func (wp *WorkerPool) IdleWorkers() int {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	idle := 0
	for _, shard := range wp.shards {
		shard.mu.Lock()
		idle += len(shard.idle)
		shard.mu.Unlock()
	}
	return idle
}

// SubmitWork hands task to an idle worker or to a new one. It never waits
// for the task to run.
func (wp *WorkerPool) SubmitWork(task func()) error {
	wp.mu.RLock()
	if !wp.started.Load() || wp.stopped.Load() {
		wp.mu.RUnlock()
		return gerrors.ErrWorkerPoolStopped
	}
	shard := wp.shards[wp.next.Inc()%uint32(len(wp.shards))]
	wp.mu.RUnlock()
	return shard.acquire(task)
}

func (s *poolShard) acquire(task func()) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return gerrors.ErrWorkerPoolStopped
	}
	if n := len(s.idle); n > 0 {
		w := s.idle[n-1]
		s.idle[n-1] = nil
		s.idle = s.idle[:n-1]
		s.mu.Unlock()
		w.work <- task
		return nil
	}
	s.mu.Unlock()

	w := &worker{work: make(chan func()), shard: s}
	s.pool.spawned.Inc()
	go w.run()
	w.work <- task
	return nil
}

// release parks w as idle. It returns false once the shard is stopped.
func (s *poolShard) release(w *worker) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	w.lastUsed = s.pool.clock.Now()
	s.idle = append(s.idle, w)
	return true
}

func (s *poolShard) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for i, w := range s.idle {
		close(w.work)
		s.idle[i] = nil
	}
	s.idle = nil
}

// passivate closes the workers idle since before cutoff
func (s *poolShard) passivate(cutoff time.Time) int {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return 0
	}
	expired := 0
	for expired < len(s.idle) && s.idle[expired].lastUsed.Before(cutoff) {
		expired++
	}
	closing := make([]*worker, expired)
	copy(closing, s.idle[:expired])
	remaining := copy(s.idle, s.idle[expired:])
	clear(s.idle[remaining:])
	s.idle = s.idle[:remaining]
	s.mu.Unlock()

	for _, w := range closing {
		close(w.work)
	}
	return expired
}

func (w *worker) run() {
	defer w.shard.pool.spawned.Dec()
	for task := range w.work {
		task()
		if !w.shard.release(w) {
			return
		}
	}
}

func (wp *WorkerPool) cleanup() {
	defer close(wp.cleaned)
	ticker := wp.clock.Ticker(wp.passivateAfter)
	defer ticker.Stop()

	for {
		select {
		case <-wp.done:
			return
		case now := <-ticker.C:
			cutoff := now.Add(-wp.passivateAfter)
			for _, shard := range wp.shards {
				shard.passivate(cutoff)
			}
		}
	}
}

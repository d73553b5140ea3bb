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

package workerpool

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/goleak"

	gerrors "github.com/tochemey/gopulse/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWorkerPool(t *testing.T) {
	t.Run("With tasks run and workers reused", func(t *testing.T) {
		pool := New(WithNumShards(1))
		pool.Start()
		defer pool.Stop()

		executed := atomic.NewInt64(0)
		for range 100 {
			require.NoError(t, pool.SubmitWork(func() { executed.Inc() }))
		}
		require.Eventually(t, func() bool { return executed.Load() == 100 }, 5*time.Second, time.Millisecond)
		require.Eventually(t, func() bool { return pool.IdleWorkers() == pool.SpawnedWorkers() }, 5*time.Second, time.Millisecond)
		assert.Less(t, pool.SpawnedWorkers(), 100)
	})
	t.Run("With idle workers passivated", func(t *testing.T) {
		mock := clock.NewMock()
		pool := New(WithNumShards(2), WithClock(mock), WithPassivateAfter(time.Second))
		pool.Start()
		defer pool.Stop()

		release := make(chan struct{})
		for range 4 {
			require.NoError(t, pool.SubmitWork(func() { <-release }))
		}
		assert.Equal(t, 4, pool.SpawnedWorkers())
		close(release)
		require.Eventually(t, func() bool { return pool.IdleWorkers() == 4 }, 5*time.Second, time.Millisecond)

		require.Eventually(t, func() bool {
			mock.Add(time.Second)
			return pool.SpawnedWorkers() == 0
		}, 5*time.Second, 10*time.Millisecond)
		assert.Zero(t, pool.IdleWorkers())
	})
	t.Run("When not started", func(t *testing.T) {
		pool := New()
		require.ErrorIs(t, pool.SubmitWork(func() {}), gerrors.ErrWorkerPoolStopped)
		pool.Stop()
	})
	t.Run("When stopped", func(t *testing.T) {
		pool := New()
		pool.Start()
		pool.Stop()
		pool.Stop()
		pool.Start()
		require.ErrorIs(t, pool.SubmitWork(func() {}), gerrors.ErrWorkerPoolStopped)
		require.Eventually(t, func() bool { return pool.SpawnedWorkers() == 0 }, 5*time.Second, time.Millisecond)
	})
}

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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/gopulse/config"
	gerrors "github.com/tochemey/gopulse/errors"
)

func TestWorkQueue(t *testing.T) {
	t.Run("With bounded capacity", func(t *testing.T) {
		queue := NewWorkQueue(4)
		defer queue.Dispose()

		for i := range 4 {
			require.NoError(t, queue.offer(&job{command: "square", args: []any{i}}))
		}
		require.ErrorIs(t, queue.offer(&job{command: "square"}), gerrors.ErrBacklogFull)
		assert.Equal(t, 4, queue.Len())
		assert.Equal(t, 4, queue.Cap())

		j, ok := queue.poll(time.Millisecond)
		require.True(t, ok)
		assert.Equal(t, []any{0}, j.args)
		assert.Equal(t, 3, queue.Len())
	})
	t.Run("With empty queue", func(t *testing.T) {
		queue := NewWorkQueue(2)
		defer queue.Dispose()

		_, ok := queue.poll(time.Millisecond)
		assert.False(t, ok)
	})
	t.Run("With parked consumer woken by a job", func(t *testing.T) {
		queue := NewWorkQueue(2)
		defer queue.Dispose()

		polled := make(chan *job, 1)
		go func() {
			j, _ := queue.poll(5 * time.Second)
			polled <- j
		}()

		time.Sleep(20 * time.Millisecond)
		require.NoError(t, queue.offer(&job{command: "square", args: []any{3}}))
		select {
		case j := <-polled:
			require.NotNil(t, j)
			assert.Equal(t, []any{3}, j.args)
		case <-time.After(time.Second):
			t.Fatal("parked consumer was not woken")
		}
		assert.Zero(t, queue.Len())
		require.NoError(t, queue.offer(&job{command: "square"}))
		require.NoError(t, queue.offer(&job{command: "square"}))
		require.ErrorIs(t, queue.offer(&job{command: "square"}), gerrors.ErrBacklogFull)
	})
	t.Run("With dispose releasing a parked consumer", func(t *testing.T) {
		queue := NewWorkQueue(2)
		released := make(chan bool, 1)
		go func() {
			_, ok := queue.poll(5 * time.Second)
			released <- ok
		}()

		time.Sleep(20 * time.Millisecond)
		queue.Dispose()
		select {
		case ok := <-released:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("dispose did not release the consumer")
		}
	})
	t.Run("With disposed queue", func(t *testing.T) {
		queue := NewWorkQueue(2)
		queue.Dispose()
		assert.True(t, queue.Disposed())

		_, ok := queue.poll(time.Millisecond)
		assert.False(t, ok)
		require.Error(t, queue.offer(&job{command: "square"}))
	})
}

func TestSpawnParams(t *testing.T) {
	cfg, err := config.New("workers", config.WithWorkers(3), config.WithTimeout(time.Minute))
	require.NoError(t, err)

	params := &spawnParams{
		AID:        CreateAID(),
		Name:       "workers",
		WID:        2,
		Behavior:   "greeter",
		Monitor:    Proxy{AID: CreateAID(), Name: "workers"},
		Supervisor: "unix:///tmp/gopulse.sock",
		Config:     cfg,
	}
	encoded, err := params.encode()
	require.NoError(t, err)

	decoded, err := decodeSpawnParams(encoded)
	require.NoError(t, err)
	assert.Equal(t, params.AID, decoded.AID)
	assert.Equal(t, params.Monitor, decoded.Monitor)
	assert.Equal(t, 2, decoded.WID)
	assert.Equal(t, 3, decoded.Config.Workers)
	assert.Equal(t, time.Minute, decoded.Config.Timeout)
	assert.Nil(t, decoded.Config.Logger)

	_, err = decodeSpawnParams("not base64!")
	require.Error(t, err)
	assert.False(t, IsChild())
}

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

package config

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/multierr"

	"github.com/tochemey/gopulse/log"
)

func TestNew(t *testing.T) {
	t.Run("With defaults", func(t *testing.T) {
		cfg, err := New("workers")
		require.NoError(t, err)
		assert.Equal(t, "workers", cfg.Name)
		assert.Equal(t, 1, cfg.Workers)
		assert.Equal(t, DefaultTimeout, cfg.Timeout)
		assert.Equal(t, DefaultBacklog, cfg.Backlog)
		assert.Equal(t, ThreadConcurrency, cfg.Concurrency)
		assert.Equal(t, AutoTransport, cfg.Transport)
		assert.Equal(t, MonitorTaskPeriod, cfg.MonitorPeriod)
		assert.Equal(t, ActorActionTimeout, cfg.ActionTimeout)
		assert.Equal(t, "none", cfg.Compression)
		assert.True(t, cfg.UseQueue())
	})
	t.Run("With invalid settings", func(t *testing.T) {
		cfg, err := New("-bad",
			WithWorkers(-1),
			WithBacklog(0),
			WithConcurrency("fiber"),
			WithCompression("lz4", 10),
		)
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Len(t, multierr.Errors(err), 5)
	})
	t.Run("With work queue on processes", func(t *testing.T) {
		_, err := New("cpu", WithConcurrency(ProcessConcurrency), WithWorkQueue(10))
		require.Error(t, err)
	})
	t.Run("With queue transport on processes", func(t *testing.T) {
		_, err := New("cpu", WithConcurrency(ProcessConcurrency), WithTransport(QueueTransport))
		require.Error(t, err)
	})
}

func TestOptions(t *testing.T) {
	mock := clock.NewMock()
	provider := noop.NewMeterProvider()
	cfg, err := New("echo",
		WithWorkers(4),
		WithTimeout(time.Minute),
		WithBacklog(16),
		WithConcurrency(ProcessConcurrency),
		WithTransport(SocketTransport),
		WithMonitorPeriod(time.Second),
		WithActionTimeout(time.Second),
		WithPollTimeout(10*time.Millisecond),
		WithCompression("zstd", 1024),
		WithMaxFrameSize(1<<20),
		WithSocketDir("/tmp"),
		WithConnectRetries(3),
		WithLogger(log.DiscardLogger),
		WithMeterProvider(provider),
		WithClock(mock),
	)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, time.Minute, cfg.Timeout)
	assert.Equal(t, 16, cfg.Backlog)
	assert.Equal(t, ProcessConcurrency, cfg.Concurrency)
	assert.Equal(t, SocketTransport, cfg.Transport)
	assert.Equal(t, time.Second, cfg.MonitorPeriod)
	assert.Equal(t, time.Second, cfg.ActionTimeout)
	assert.Equal(t, 10*time.Millisecond, cfg.PollTimeout)
	assert.Equal(t, "zstd", cfg.Compression)
	assert.Equal(t, 1024, cfg.CompressionThreshold)
	assert.Equal(t, 1<<20, cfg.MaxFrameSize)
	assert.Equal(t, "/tmp", cfg.SocketDir)
	assert.Equal(t, 3, cfg.ConnectRetries)
	assert.Equal(t, log.DiscardLogger, cfg.Logger)
	assert.Equal(t, log.InfoLevel, cfg.LogLevel)
	assert.Equal(t, provider, cfg.MeterProvider)
	assert.Equal(t, mock, cfg.Clock)
	assert.False(t, cfg.UseQueue())
}

func TestNotifyInterval(t *testing.T) {
	testCases := []struct {
		name     string
		timeout  time.Duration
		expected time.Duration
	}{
		{name: "With short timeout", timeout: time.Second, expected: MinNotify},
		{name: "With zero timeout", timeout: 0, expected: MinNotify},
		{name: "With default timeout", timeout: 30 * time.Second, expected: 9 * time.Second},
		{name: "With long timeout", timeout: time.Hour, expected: MaxNotify},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.Timeout = tc.timeout
			assert.Equal(t, tc.expected, cfg.NotifyInterval())
		})
	}
}

func TestCopy(t *testing.T) {
	cfg := Default()
	cfg.Name = "origin"
	clone := cfg.Copy()
	clone.Name = "clone"
	clone.Workers = 8
	assert.Equal(t, "origin", cfg.Name)
	assert.Equal(t, 1, cfg.Workers)
}

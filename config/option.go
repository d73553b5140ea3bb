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
	"time"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel/metric"

	"github.com/tochemey/gopulse/log"
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(config *Config)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Config)

// Apply applies the option to the config
func (f OptionFunc) Apply(c *Config) {
	f(c)
}

// WithWorkers sets the number of workers of a monitor.
func WithWorkers(workers int) Option {
	return OptionFunc(func(c *Config) {
		c.Workers = workers
	})
}

// WithTimeout sets the worker silence timeout.
func WithTimeout(timeout time.Duration) Option {
	return OptionFunc(func(c *Config) {
		c.Timeout = timeout
	})
}

// WithBacklog sets the admission limit of concurrent requests.
func WithBacklog(backlog int) Option {
	return OptionFunc(func(c *Config) {
		c.Backlog = backlog
	})
}

// WithConcurrency sets how workers are launched.
func WithConcurrency(concurrency string) Option {
	return OptionFunc(func(c *Config) {
		c.Concurrency = concurrency
	})
}

// WithTransport sets the mailbox transport.
func WithTransport(transport string) Option {
	return OptionFunc(func(c *Config) {
		c.Transport = transport
	})
}

// WithMonitorPeriod sets the period of the supervision task.
func WithMonitorPeriod(period time.Duration) Option {
	return OptionFunc(func(c *Config) {
		c.MonitorPeriod = period
	})
}

// WithActionTimeout sets the grace period between stop and terminate.
func WithActionTimeout(timeout time.Duration) Option {
	return OptionFunc(func(c *Config) {
		c.ActionTimeout = timeout
	})
}

// WithPollTimeout sets the maximum poll duration of event loops.
func WithPollTimeout(timeout time.Duration) Option {
	return OptionFunc(func(c *Config) {
		c.PollTimeout = timeout
	})
}

// WithWorkQueue makes the workers CPU-bound, sharing a queue of the given size.
func WithWorkQueue(size int) Option {
	return OptionFunc(func(c *Config) {
		c.WorkQueueSize = size
	})
}

// WithCompression sets the payload compression applied from threshold bytes.
func WithCompression(algorithm string, threshold int) Option {
	return OptionFunc(func(c *Config) {
		c.Compression = algorithm
		c.CompressionThreshold = threshold
	})
}

// WithMaxFrameSize sets the maximum size of a mailbox frame.
func WithMaxFrameSize(size int) Option {
	return OptionFunc(func(c *Config) {
		c.MaxFrameSize = size
	})
}

// WithSocketDir sets the directory of unix sockets.
func WithSocketDir(dir string) Option {
	return OptionFunc(func(c *Config) {
		c.SocketDir = dir
	})
}

// WithConnectRetries sets the number of mailbox connect attempts.
func WithConnectRetries(retries int) Option {
	return OptionFunc(func(c *Config) {
		c.ConnectRetries = retries
	})
}

// WithLogger sets the logger and the level handed to child processes.
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(c *Config) {
		c.Logger = logger
		c.LogLevel = logger.LogLevel()
	})
}

// WithMeterProvider sets the metrics provider.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return OptionFunc(func(c *Config) {
		c.MeterProvider = provider
	})
}

// WithClock sets the clock. Tests use clock.NewMock.
func WithClock(clk clock.Clock) Option {
	return OptionFunc(func(c *Config) {
		c.Clock = clk
	})
}

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
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel/metric"

	"github.com/tochemey/gopulse/internal/compression"
	"github.com/tochemey/gopulse/internal/validation"
	"github.com/tochemey/gopulse/log"
)

const (
	// MinNotify is the lower bound of the heartbeat interval.
	MinNotify = 3 * time.Second
	// MaxNotify is the upper bound of the heartbeat interval.
	MaxNotify = 30 * time.Second
	// TimeoutTolerance is the fraction of the actor timeout used as heartbeat interval.
	TimeoutTolerance = 0.3
	// ActorActionTimeout is the grace period granted to an actor asked to stop.
	ActorActionTimeout = 5 * time.Second
	// MonitorTaskPeriod is the period of the supervision task.
	MonitorTaskPeriod = 2 * time.Second

	// DefaultTimeout is the default actor timeout.
	DefaultTimeout = 30 * time.Second
	// DefaultBacklog is the default admission limit of concurrent requests.
	DefaultBacklog = 2048
	// DefaultPollTimeout caps the time an event loop blocks in its poller.
	DefaultPollTimeout = 500 * time.Millisecond
	// DefaultCompressionThreshold is the payload size from which compression applies.
	DefaultCompressionThreshold = 64 << 10
	// DefaultMaxFrameSize bounds a single mailbox frame.
	DefaultMaxFrameSize = 256 << 20
	// DefaultConnectRetries is the number of mailbox connect attempts.
	DefaultConnectRetries = 5
)

const (
	// ThreadConcurrency runs workers as goroutines locked to an OS thread.
	ThreadConcurrency = "thread"
	// ProcessConcurrency runs workers as child OS processes.
	ProcessConcurrency = "process"

	// AutoTransport uses queues for thread workers and sockets for processes.
	AutoTransport = "auto"
	// SocketTransport always uses sockets.
	SocketTransport = "socket"
	// QueueTransport always uses in-process queues. Thread workers only.
	QueueTransport = "queue"
)

// Config holds the settings read by event loops, actors and supervisors.
// The core never mutates a Config it was given; monitors and workers get a Copy.
type Config struct {
	// Specifies the actor or monitor name
	Name string
	// Specifies the number of workers a monitor keeps alive
	Workers int
	// Specifies how long a worker may stay silent before being asked to stop.
	// Zero disables the check.
	Timeout time.Duration
	// Specifies the maximum number of concurrent requests a CPU-bound worker accepts
	Backlog int
	// Specifies how workers are launched: thread or process
	Concurrency string
	// Specifies the mailbox transport: auto, socket or queue
	Transport string
	// Specifies the period of the supervision task
	MonitorPeriod time.Duration
	// Specifies the grace period between a stop request and a forced terminate
	ActionTimeout time.Duration
	// Specifies the maximum time an event loop blocks in its poller
	PollTimeout time.Duration
	// Specifies the capacity of the shared work queue. Zero means I/O-bound workers.
	WorkQueueSize int
	// Specifies the payload compression: none, zstd or brotli
	Compression string
	// Specifies the payload size from which compression applies
	CompressionThreshold int
	// Specifies the maximum size of a mailbox frame
	MaxFrameSize int
	// Specifies where unix sockets are created
	SocketDir string
	// Specifies how many times a worker tries to reach its supervisor
	ConnectRetries int
	// Specifies the log level of child processes
	LogLevel log.Level

	// Specifies the logger to use
	Logger log.Logger `cbor:"-"`
	// Specifies the meter provider used for metrics
	MeterProvider metric.MeterProvider `cbor:"-"`
	// Specifies the clock used by loops and supervisors
	Clock clock.Clock `cbor:"-"`
}

// New creates a validated instance of Config
func New(name string, options ...Option) (*Config, error) {
	config := Default()
	config.Name = name
	for _, opt := range options {
		opt.Apply(config)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Default returns the default settings with an empty name.
func Default() *Config {
	return &Config{
		Workers:              1,
		Timeout:              DefaultTimeout,
		Backlog:              DefaultBacklog,
		Concurrency:          ThreadConcurrency,
		Transport:            AutoTransport,
		MonitorPeriod:        MonitorTaskPeriod,
		ActionTimeout:        ActorActionTimeout,
		PollTimeout:          DefaultPollTimeout,
		Compression:          compression.None,
		CompressionThreshold: DefaultCompressionThreshold,
		MaxFrameSize:         DefaultMaxFrameSize,
		SocketDir:            os.TempDir(),
		ConnectRetries:       DefaultConnectRetries,
		LogLevel:             log.InfoLevel,
		Logger:               log.DefaultLogger,
		Clock:                clock.New(),
	}
}

// Validate checks the settings and returns every violation.
func (c *Config) Validate() error {
	return validation.New(validation.AllErrors()).
		AddValidator(validation.NewNameValidator(c.Name)).
		AddAssertion(c.Workers >= 0, "workers must not be negative").
		AddAssertion(c.Timeout >= 0, "timeout must not be negative").
		AddAssertion(c.Backlog > 0, "backlog must be positive").
		AddValidator(validation.NewOneOfValidator("concurrency", c.Concurrency, ThreadConcurrency, ProcessConcurrency)).
		AddValidator(validation.NewOneOfValidator("transport", c.Transport, AutoTransport, SocketTransport, QueueTransport)).
		AddValidator(validation.NewOneOfValidator("compression", c.Compression, compression.None, compression.Zstd, compression.Brotli)).
		AddAssertion(c.MonitorPeriod > 0, "monitor period must be positive").
		AddAssertion(c.ActionTimeout > 0, "action timeout must be positive").
		AddAssertion(c.PollTimeout > 0, "poll timeout must be positive").
		AddAssertion(c.WorkQueueSize >= 0, "work queue size must not be negative").
		AddAssertion(c.WorkQueueSize == 0 || c.Concurrency == ThreadConcurrency, "a work queue requires thread concurrency").
		AddAssertion(c.Transport != QueueTransport || c.Concurrency == ThreadConcurrency, "queue transport requires thread concurrency").
		AddAssertion(c.CompressionThreshold >= 0, "compression threshold must not be negative").
		AddAssertion(c.MaxFrameSize > 0, "max frame size must be positive").
		AddAssertion(c.ConnectRetries > 0, "connect retries must be positive").
		AddAssertion(c.Logger != nil, "logger is required").
		AddAssertion(c.Clock != nil, "clock is required").
		Validate()
}

// NotifyInterval returns the heartbeat interval of a worker:
// max(MinNotify, min(TimeoutTolerance*Timeout, MaxNotify)).
func (c *Config) NotifyInterval() time.Duration {
	interval := time.Duration(TimeoutTolerance * float64(c.Timeout))
	if interval > MaxNotify {
		interval = MaxNotify
	}
	if interval < MinNotify {
		interval = MinNotify
	}
	return interval
}

// Copy returns a shallow copy of the config.
func (c *Config) Copy() *Config {
	clone := *c
	return &clone
}

// UseQueue reports whether thread workers talk to their supervisor through
// in-process queues.
func (c *Config) UseQueue() bool {
	if c.Concurrency != ThreadConcurrency {
		return false
	}
	return c.Transport == AutoTransport || c.Transport == QueueTransport
}

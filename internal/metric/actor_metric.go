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

package metric

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ActorMetric defines the actor instrumentation
type ActorMetric struct {
	// total number of commands processed
	processedCount metric.Int64Counter
	// total number of commands that resolved to a failure
	failureCount metric.Int64Counter
	// command processing duration in milliseconds
	requestDuration metric.Int64Histogram
	// commands currently in flight
	inflight metric.Int64UpDownCounter
}

// NewActorMetric creates an instance of ActorMetric
func NewActorMetric(meter metric.Meter) (*ActorMetric, error) {
	actorMetric := new(ActorMetric)
	var err error
	if actorMetric.processedCount, err = meter.Int64Counter(
		"actor_processed_count",
		metric.WithDescription("Total number of commands processed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create processedCount instrument, %w", err)
	}

	if actorMetric.failureCount, err = meter.Int64Counter(
		"actor_failure_count",
		metric.WithDescription("Total number of commands that failed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create failureCount instrument, %w", err)
	}

	if actorMetric.requestDuration, err = meter.Int64Histogram(
		"actor_request_duration",
		metric.WithDescription("The latency of commands processed in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create requestDuration instrument, %w", err)
	}

	if actorMetric.inflight, err = meter.Int64UpDownCounter(
		"actor_concurrent_requests",
		metric.WithDescription("Number of commands in flight"),
	); err != nil {
		return nil, fmt.Errorf("failed to create inflight instrument, %w", err)
	}

	return actorMetric, nil
}

// RequestStarted records a command entering the actor.
func (x *ActorMetric) RequestStarted(ctx context.Context, actor string) {
	x.inflight.Add(ctx, 1, metric.WithAttributes(attribute.String("actor", actor)))
}

// RequestDone records a command leaving the actor.
func (x *ActorMetric) RequestDone(ctx context.Context, actor, command string, took time.Duration, failed bool) {
	attrs := metric.WithAttributes(attribute.String("actor", actor), attribute.String("command", command))
	x.inflight.Add(ctx, -1, metric.WithAttributes(attribute.String("actor", actor)))
	x.processedCount.Add(ctx, 1, attrs)
	x.requestDuration.Record(ctx, took.Milliseconds(), attrs)
	if failed {
		x.failureCount.Add(ctx, 1, attrs)
	}
}

// ProcessedCount returns the processed commands counter
func (x *ActorMetric) ProcessedCount() metric.Int64Counter {
	return x.processedCount
}

// FailureCount returns the failed commands counter
func (x *ActorMetric) FailureCount() metric.Int64Counter {
	return x.failureCount
}

// RequestDuration returns the command latency histogram
func (x *ActorMetric) RequestDuration() metric.Int64Histogram {
	return x.requestDuration
}

// Inflight returns the in-flight commands counter
func (x *ActorMetric) Inflight() metric.Int64UpDownCounter {
	return x.inflight
}

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

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MonitorMetric defines the supervision instrumentation
type MonitorMetric struct {
	spawnCount     metric.Int64Counter
	stopCount      metric.Int64Counter
	terminateCount metric.Int64Counter
	managedActors  metric.Int64UpDownCounter
}

// NewMonitorMetric creates an instance of MonitorMetric
func NewMonitorMetric(meter metric.Meter) (*MonitorMetric, error) {
	monitorMetric := new(MonitorMetric)
	var err error
	if monitorMetric.spawnCount, err = meter.Int64Counter(
		"monitor_spawn_count",
		metric.WithDescription("Total number of workers spawned"),
	); err != nil {
		return nil, fmt.Errorf("failed to create spawnCount instrument, %w", err)
	}

	if monitorMetric.stopCount, err = meter.Int64Counter(
		"monitor_stop_count",
		metric.WithDescription("Total number of stop requests sent to workers"),
	); err != nil {
		return nil, fmt.Errorf("failed to create stopCount instrument, %w", err)
	}

	if monitorMetric.terminateCount, err = meter.Int64Counter(
		"monitor_terminate_count",
		metric.WithDescription("Total number of workers forcibly terminated"),
	); err != nil {
		return nil, fmt.Errorf("failed to create terminateCount instrument, %w", err)
	}

	if monitorMetric.managedActors, err = meter.Int64UpDownCounter(
		"monitor_managed_actors",
		metric.WithDescription("Number of workers managed by a monitor"),
	); err != nil {
		return nil, fmt.Errorf("failed to create managedActors instrument, %w", err)
	}

	return monitorMetric, nil
}

// Spawned records a spawned worker.
func (x *MonitorMetric) Spawned(ctx context.Context, monitor string) {
	x.spawnCount.Add(ctx, 1, metric.WithAttributes(attribute.String("monitor", monitor)))
}

// StopRequested records a stop request sent to a worker.
func (x *MonitorMetric) StopRequested(ctx context.Context, monitor string) {
	x.stopCount.Add(ctx, 1, metric.WithAttributes(attribute.String("monitor", monitor)))
}

// Terminated records a forced termination.
func (x *MonitorMetric) Terminated(ctx context.Context, monitor string) {
	x.terminateCount.Add(ctx, 1, metric.WithAttributes(attribute.String("monitor", monitor)))
}

// Managed records a change of the managed pool size.
func (x *MonitorMetric) Managed(ctx context.Context, monitor string, delta int64) {
	x.managedActors.Add(ctx, delta, metric.WithAttributes(attribute.String("monitor", monitor)))
}

// SpawnCount returns the spawn counter
func (x *MonitorMetric) SpawnCount() metric.Int64Counter {
	return x.spawnCount
}

// StopCount returns the stop request counter
func (x *MonitorMetric) StopCount() metric.Int64Counter {
	return x.stopCount
}

// TerminateCount returns the termination counter
func (x *MonitorMetric) TerminateCount() metric.Int64Counter {
	return x.terminateCount
}

// ManagedActors returns the managed pool size counter
func (x *MonitorMetric) ManagedActors() metric.Int64UpDownCounter {
	return x.managedActors
}

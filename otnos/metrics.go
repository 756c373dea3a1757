// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otnos

import (
	"context"

	"github.com/petenewcomb/nossim-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type metricsTiming struct {
	timing       nossim.Timing
	stepCounter  metric.Int64Counter
	stepDuration metric.Float64Histogram
	startCounter metric.Int64Counter
	errorCounter metric.Int64Counter
}

// MetricsTiming adds metrics collection to a timing strategy. It counts steps
// and started tasks, per device, and records step durations in cycles.
func MetricsTiming(metricName string, timing nossim.Timing) nossim.Timing {
	meter := otel.GetMeterProvider().Meter(instrumentationName)
	m := &metricsTiming{timing: timing}
	m.stepCounter, _ = meter.Int64Counter(metricName + ".steps")
	m.stepDuration, _ = meter.Float64Histogram(metricName + ".step_duration")
	m.startCounter, _ = meter.Int64Counter(metricName + ".started")
	m.errorCounter, _ = meter.Int64Counter(metricName + ".errors")
	return m
}

func (m *metricsTiming) Advance(cat *nossim.Catalogue, prev, step *nossim.Step) (bool, error) {
	ctx := context.Background()
	more, err := m.timing.Advance(cat, prev, step)
	if err != nil {
		m.errorCounter.Add(ctx, 1)
		return more, err
	}
	if !more {
		return false, nil
	}
	m.stepCounter.Add(ctx, 1)
	m.stepDuration.Record(ctx, float64(step.Duration))
	for _, o := range step.Started {
		m.startCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("device", o.Device)))
	}
	return true, nil
}

func (m *metricsTiming) Validate(cat *nossim.Catalogue) error {
	return validate(m.timing, cat)
}

type metricsExecution struct {
	execution    nossim.Execution
	endCounter   metric.Int64Counter
	taskDuration metric.Float64Histogram
	errorCounter metric.Int64Counter
}

// MetricsExecution adds metrics collection to an execution strategy. It counts
// ending tasks and records their total durations in cycles, per device and
// task.
func MetricsExecution(metricName string, execution nossim.Execution) nossim.Execution {
	meter := otel.GetMeterProvider().Meter(instrumentationName)
	m := &metricsExecution{execution: execution}
	m.endCounter, _ = meter.Int64Counter(metricName + ".ended")
	m.taskDuration, _ = meter.Float64Histogram(metricName + ".task_duration")
	m.errorCounter, _ = meter.Int64Counter(metricName + ".errors")
	return m
}

func (m *metricsExecution) Settle(cat *nossim.Catalogue, step *nossim.Step) error {
	ctx := context.Background()
	if err := m.execution.Settle(cat, step); err != nil {
		m.errorCounter.Add(ctx, 1)
		return err
	}
	for _, o := range step.Ending {
		attrs := metric.WithAttributes(
			attribute.String("device", o.Device),
			attribute.String("task", o.Task),
		)
		m.endCounter.Add(ctx, 1, attrs)
		m.taskDuration.Record(ctx, float64(o.Duration), attrs)
	}
	return nil
}

func (m *metricsExecution) Validate(cat *nossim.Catalogue) error {
	return validate(m.execution, cat)
}

// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otnos

import (
	"context"

	"github.com/petenewcomb/nossim-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/petenewcomb/nossim-go/otnos"

func startStepSpan(ctx context.Context, operationName string, step *nossim.Step) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, operationName,
		trace.WithAttributes(
			attribute.Int("nossim.step", step.Index),
			attribute.Float64("nossim.timestamp", float64(step.Timestamp)),
		))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

type tracedTiming struct {
	ctx           context.Context
	operationName string
	timing        nossim.Timing
}

// TracedTiming records every call to Advance as a span with the given
// operation name, parented to ctx.
func TracedTiming(ctx context.Context, operationName string, timing nossim.Timing) nossim.Timing {
	return &tracedTiming{ctx: ctx, operationName: operationName, timing: timing}
}

func (t *tracedTiming) Advance(cat *nossim.Catalogue, prev, step *nossim.Step) (bool, error) {
	_, span := startStepSpan(t.ctx, t.operationName, step)
	more, err := t.timing.Advance(cat, prev, step)
	if err == nil {
		span.SetAttributes(
			attribute.Bool("nossim.more", more),
			attribute.Float64("nossim.duration", float64(step.Duration)),
			attribute.StringSlice("nossim.started", step.Started.Tasks()),
			attribute.Int("nossim.running", len(step.Running)),
		)
	}
	endSpan(span, err)
	return more, err
}

func (t *tracedTiming) Validate(cat *nossim.Catalogue) error {
	return validate(t.timing, cat)
}

type tracedExecution struct {
	ctx           context.Context
	operationName string
	execution     nossim.Execution
}

// TracedExecution records every call to Settle as a span with the given
// operation name, parented to ctx.
func TracedExecution(ctx context.Context, operationName string, execution nossim.Execution) nossim.Execution {
	return &tracedExecution{ctx: ctx, operationName: operationName, execution: execution}
}

func (t *tracedExecution) Settle(cat *nossim.Catalogue, step *nossim.Step) error {
	_, span := startStepSpan(t.ctx, t.operationName, step)
	err := t.execution.Settle(cat, step)
	if err == nil {
		span.SetAttributes(attribute.StringSlice("nossim.ending", step.Ending.Tasks()))
	}
	endSpan(span, err)
	return err
}

func (t *tracedExecution) Validate(cat *nossim.Catalogue) error {
	return validate(t.execution, cat)
}

type tracedHardware struct {
	ctx           context.Context
	operationName string
	hardware      nossim.Hardware
}

// TracedHardware records every call to Observe as a span with the given
// operation name, parented to ctx. The span carries one attribute per device
// listing its active peripherals.
func TracedHardware(ctx context.Context, operationName string, hardware nossim.Hardware) nossim.Hardware {
	return &tracedHardware{ctx: ctx, operationName: operationName, hardware: hardware}
}

func (t *tracedHardware) Observe(cat *nossim.Catalogue, step *nossim.Step) error {
	_, span := startStepSpan(t.ctx, t.operationName, step)
	err := t.hardware.Observe(cat, step)
	if err == nil {
		for device, hw := range step.ActivePeripherals {
			span.SetAttributes(attribute.StringSlice("nossim.hardware."+device, hw))
		}
	}
	endSpan(span, err)
	return err
}

func (t *tracedHardware) Validate(cat *nossim.Catalogue) error {
	return validate(t.hardware, cat)
}

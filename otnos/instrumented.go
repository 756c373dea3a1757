// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otnos

import (
	"context"

	"github.com/petenewcomb/nossim-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Instrument combines tracing, metrics, and logging for a set of strategies.
// Spans are named after operationName with ".advance", ".settle" and
// ".observe" suffixes; metrics are prefixed with operationName.
func Instrument(
	ctx context.Context,
	operationName string,
	timing nossim.Timing,
	execution nossim.Execution,
	hardware nossim.Hardware,
) (nossim.Timing, nossim.Execution, nossim.Hardware) {
	// Apply wrappers inside-out: logging, then metrics, then tracing.
	timing = TracedTiming(ctx, operationName+".advance",
		MetricsTiming(operationName, LoggedTiming(operationName, timing)))
	execution = TracedExecution(ctx, operationName+".settle",
		MetricsExecution(operationName, LoggedExecution(operationName, execution)))
	hardware = TracedHardware(ctx, operationName+".observe", hardware)
	return timing, execution, hardware
}

// Run is like [nossim.Run] but runs within a span named operationName with
// instrumented strategies.
func Run(
	ctx context.Context,
	operationName string,
	cat *nossim.Catalogue,
	timing nossim.Timing,
	execution nossim.Execution,
	hardware nossim.Hardware,
	opts ...nossim.Option,
) (*nossim.Timeline, error) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, operationName)
	timing, execution, hardware = Instrument(ctx, operationName, timing, execution, hardware)
	tl, err := nossim.Run(ctx, cat, timing, execution, hardware, opts...)
	if tl != nil {
		span.SetAttributes(
			attribute.Int("nossim.steps", len(tl.Steps)),
			attribute.Float64("nossim.end", float64(tl.End)),
			attribute.Int("nossim.blocked", len(tl.Blocked)),
		)
	}
	endSpan(span, err)
	return tl, err
}

func validate(strategy any, cat *nossim.Catalogue) error {
	if v, ok := strategy.(nossim.Validator); ok {
		return v.Validate(cat)
	}
	return nil
}

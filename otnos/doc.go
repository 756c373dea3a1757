// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package otnos instruments nossim strategies with OpenTelemetry tracing and
// metrics and with zap logging. Each wrapper takes a strategy and returns one
// with the same behavior, so instrumentation can be layered freely:
//
//	timing, execution, hardware := otnos.Instrument(ctx, "run", nossim.FixedTiming{}, nossim.SymbolicExecution{}, nossim.StartedHardware{})
//	tl, err := nossim.Run(ctx, cat, timing, execution, hardware)
//
// Spans measure wall-clock time spent computing each step. Simulated time is
// recorded as span attributes and metric values, in cycles.
package otnos

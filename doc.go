// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package nossim simulates a network of devices, each with one or more cores,
// executing a fixed schedule of symbolic tasks. Tasks are gated by data
// dependencies: a task starts only once the values it consumes are present in
// its device's cache, and when it ends it delivers its outputs to the caches of
// other devices, where they may unblock further tasks.
//
// Each core runs its schedule strictly in order. A core whose next task is
// waiting for a dependency stalls, but other cores and devices carry on. Time
// is discrete-event: every step lasts until the earliest running task ends, so
// the simulation jumps from one completion to the next rather than ticking.
//
// A step is produced by three interchangeable strategies. A [Timing] strategy
// starts eligible tasks and chooses the step duration, an [Execution] strategy
// consumes and produces cache values, and a [Hardware] strategy records the
// peripherals in use. The resulting [Step] records form a [Timeline] that
// downstream tools can use for energy accounting or visualization.
//
// Everything happens on the caller's goroutine. Concurrency between devices is
// purely logical: all cores are examined before any value produced in a step
// is delivered, so no task observes a sibling's output from the same step.
package nossim

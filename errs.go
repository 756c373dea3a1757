// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package nossim

import (
	"fmt"
	"strings"

	"github.com/petenewcomb/nossim-go/internal/cerr"
)

// Specification errors, reported by [NewCatalogue] before any simulation
// starts.
const (
	ErrInvalidSpec   = cerr.Error("invalid device specification")
	ErrUnknownTask   = cerr.Error("unknown task")
	ErrUnknownDevice = cerr.Error("unknown device")
	ErrUnknownFunc   = cerr.Error("unknown registry function")
)

// Run errors, reported by [Simulation.Next] and [Run].
const (
	ErrDependencyMissing = cerr.Error("dependency missing from cache")
	ErrInvalidDuration   = cerr.Error("invalid task duration")
	ErrMissingRule       = cerr.Error("task has no rule for the selected strategy")
	ErrOutputArity       = cerr.Error("output function result count does not match declared outputs")
	ErrStepLimit         = cerr.Error("step limit exceeded")
	ErrStalled           = cerr.Error("schedule stalled")
	ErrUnknownStrategy   = cerr.Error("unknown strategy")
	ErrConsumed          = cerr.Error("simulation steps already consumed")
)

// SpecError describes a problem found in a device specification. Err is one of
// the specification sentinel errors, or an error returned while resolving a
// registry function.
type SpecError struct {
	Device string
	Core   string
	Task   string
	Err    error
}

func (e *SpecError) Error() string {
	return "nossim: " + location(e.Device, e.Core, e.Task) + e.Err.Error()
}

func (e *SpecError) Unwrap() error {
	return e.Err
}

func specErrorf(device, core, task string, kind error, format string, args ...any) error {
	return &SpecError{
		Device: device,
		Core:   core,
		Task:   task,
		Err:    fmt.Errorf("%w: "+format, append([]any{kind}, args...)...),
	}
}

// RunError reports a failure during a simulation run along with the index of
// the step being produced and, when known, the offending device, core and task.
type RunError struct {
	Step   int
	Device string
	Core   string
	Task   string
	Err    error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("nossim: step %d: %s%v", e.Step, location(e.Device, e.Core, e.Task), e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// StallError is wrapped by a [RunError] when a run ends with work that can
// never start. It unwraps to [ErrStalled].
type StallError struct {
	Blocked []Blocked
}

func (e *StallError) Error() string {
	parts := make([]string, len(e.Blocked))
	for i, b := range e.Blocked {
		parts[i] = b.String()
	}
	return fmt.Sprintf("%v: %s", ErrStalled, strings.Join(parts, "; "))
}

func (e *StallError) Unwrap() error {
	return ErrStalled
}

func location(device, core, task string) string {
	var sb strings.Builder
	if device != "" {
		fmt.Fprintf(&sb, "device %q: ", device)
	}
	if core != "" {
		fmt.Fprintf(&sb, "core %q: ", core)
	}
	if task != "" {
		fmt.Fprintf(&sb, "task %q: ", task)
	}
	return sb.String()
}

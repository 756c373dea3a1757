// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package nossim

import (
	"fmt"
	"strings"
)

// Timing decides which tasks start in a step and how long the step lasts.
//
// Advance fills in step.Started, step.Running and step.Duration given the
// previous step (nil for the first step), popping started tasks from their
// core queues. It returns false when nothing is started or running, which
// ends the simulation.
type Timing interface {
	Advance(cat *Catalogue, prev, step *Step) (bool, error)
}

// Execution consumes and produces cache values for a step.
//
// Settle removes the dependencies of step.Started tasks from their device
// caches, ages every occupying task to [Step.End], fills in step.Ending and
// delivers the outputs of ending tasks to their target devices.
type Execution interface {
	Settle(cat *Catalogue, step *Step) error
}

// Hardware records which peripherals are active during a step by filling in
// step.ActivePeripherals. It must not modify the catalogue.
type Hardware interface {
	Observe(cat *Catalogue, step *Step) error
}

// Validator may be implemented by a strategy to reject a catalogue it cannot
// run before the first step is produced.
type Validator interface {
	Validate(cat *Catalogue) error
}

// NewTiming returns the timing strategy with the given identifier: "unit"
// (or "v0.0"), "fixed" ("v0.1") or "func" ("v0.2"). level is passed to
// [FixedTiming] and ignored otherwise.
func NewTiming(id, level string) (Timing, error) {
	switch strings.ToLower(id) {
	case "unit", "v0.0":
		return UnitTiming{}, nil
	case "fixed", "v0.1":
		return FixedTiming{Level: level}, nil
	case "func", "v0.2":
		return FuncTiming{}, nil
	default:
		return nil, fmt.Errorf("%w: timing %q", ErrUnknownStrategy, id)
	}
}

// NewExecution returns the execution strategy with the given identifier:
// "symbolic" (or "v0.0") or "value" ("v0.1").
func NewExecution(id string) (Execution, error) {
	switch strings.ToLower(id) {
	case "symbolic", "v0.0":
		return SymbolicExecution{}, nil
	case "value", "v0.1":
		return ValueExecution{}, nil
	default:
		return nil, fmt.Errorf("%w: execution %q", ErrUnknownStrategy, id)
	}
}

// NewHardware returns the hardware strategy with the given identifier:
// "started" (or "v0.0") or "sustained".
func NewHardware(id string) (Hardware, error) {
	switch strings.ToLower(id) {
	case "started", "v0.0":
		return StartedHardware{}, nil
	case "sustained":
		return SustainedHardware{}, nil
	default:
		return nil, fmt.Errorf("%w: hardware %q", ErrUnknownStrategy, id)
	}
}

// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package nossim

// DeviceSpec is the static description of one device from which a
// [Catalogue] is built.
type DeviceSpec struct {
	Name  string
	Cores []CoreSpec
	Tasks map[string]TaskSpec
	// Cache holds the values available before the simulation starts, in
	// production order per key.
	Cache map[string][]Value
}

// CoreSpec describes one core and its initial schedule.
type CoreSpec struct {
	Name string
	// Frequency is the core's clock multiplier: a task of n cycles occupies
	// the core for n/Frequency. Zero means 1.
	Frequency float64
	// Schedule lists task names in execution order.
	Schedule []string
}

// TaskSpec describes a task. Function-valued rules may be given either by
// registry name or directly as closures; a closure wins over a name.
type TaskSpec struct {
	Dependencies []Dependency
	Outputs      []Output
	Hardware     []string
	Timing       TimingSpec
	// Execution names an output function in the registry.
	Execution  string
	OutputFunc OutputFunc
}

// TimingSpec describes a task's timing rule.
type TimingSpec struct {
	Duration Cycles
	Levels   map[string]Cycles
	// Func names a duration function in the registry.
	Func         string
	DurationFunc DurationFunc
}

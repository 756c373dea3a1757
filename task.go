// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package nossim

import (
	"fmt"
	"strconv"
)

// Cycles measures simulated time. Timestamps and durations share the unit.
type Cycles float64

func (c Cycles) String() string {
	return strconv.FormatFloat(float64(c), 'g', -1, 64)
}

// Value is an item stored in a device cache. Symbolic execution stores
// placeholders; value-computing execution stores whatever the task output
// functions return.
type Value = any

// Dependency names a cache key and the number of values a task consumes from
// it when it starts.
type Dependency struct {
	Key   string
	Count int
}

// Output names a cache key a task produces when it ends and the devices whose
// caches receive a copy.
type Output struct {
	Key     string
	Targets []string
}

// Input holds the values consumed for one dependency.
type Input struct {
	Key    string  `json:"key"`
	Values []Value `json:"values"`
}

// Inputs are the values consumed by a task, in dependency declaration order.
type Inputs []Input

// Count returns the total number of consumed values.
func (in Inputs) Count() int {
	n := 0
	for _, i := range in {
		n += len(i.Values)
	}
	return n
}

// Get returns the values consumed for key.
func (in Inputs) Get(key string) []Value {
	for _, i := range in {
		if i.Key == key {
			return i.Values
		}
	}
	return nil
}

// Flat returns all consumed values in dependency order.
func (in Inputs) Flat() []Value {
	vals := make([]Value, 0, in.Count())
	for _, i := range in {
		vals = append(vals, i.Values...)
	}
	return vals
}

// DurationFunc computes a task duration, in cycles, from the values the task
// is about to consume.
type DurationFunc func(in Inputs) (Cycles, error)

// OutputFunc computes one value per declared output, in declaration order,
// from the values the task consumed.
type OutputFunc func(in Inputs) ([]Value, error)

// TimingRule describes how long a task runs. Which part is used depends on the
// selected [Timing] strategy.
type TimingRule struct {
	// Duration is the constant duration in cycles.
	Duration Cycles
	// Levels optionally overrides Duration per named duration level.
	Levels map[string]Cycles
	// Func computes the duration from the consumed values.
	Func DurationFunc
}

// Level returns the duration for the named level, falling back to Duration
// when level is empty or not present.
func (r *TimingRule) Level(level string) Cycles {
	if level != "" {
		if d, ok := r.Levels[level]; ok {
			return d
		}
	}
	return r.Duration
}

// Task is an immutable task descriptor, defined once per device and referenced
// by name from core schedules.
type Task struct {
	Name         string
	Dependencies []Dependency
	Outputs      []Output
	Hardware     []string
	Timing       TimingRule
	Execute      OutputFunc
}

// Format implements fmt.Formatter. %v prints the task name, %#v a summary of
// its dependencies and outputs.
func (t *Task) Format(f fmt.State, verb rune) {
	if verb != 'v' {
		panic("unsupported verb")
	}
	if !f.Flag('#') {
		_, _ = fmt.Fprintf(f, "Task(%s)", t.Name)
		return
	}
	_, _ = fmt.Fprintf(f, "Task(%s): deps=%v outputs=%v hw=%v duration=%v", t.Name, t.Dependencies, t.Outputs, t.Hardware, t.Timing.Duration)
}

// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package nossim

import (
	"fmt"
)

// SymbolicExecution moves values through caches without computing them: every
// output of an ending task is a copy of Placeholder. A nil Placeholder is
// replaced by the integer 1.
type SymbolicExecution struct {
	Placeholder Value
}

func (se SymbolicExecution) Settle(cat *Catalogue, step *Step) error {
	placeholder := se.Placeholder
	if placeholder == nil {
		placeholder = 1
	}
	return settle(cat, step, func(task *Task, _ Inputs) ([]Value, error) {
		results := make([]Value, len(task.Outputs))
		for i := range results {
			results[i] = placeholder
		}
		return results, nil
	})
}

// ValueExecution computes output values by calling each ending task's output
// function with the values it consumed when it started.
type ValueExecution struct{}

func (ValueExecution) Settle(cat *Catalogue, step *Step) error {
	return settle(cat, step, func(task *Task, in Inputs) ([]Value, error) {
		if len(task.Outputs) == 0 && task.Execute == nil {
			return nil, nil
		}
		if task.Execute == nil {
			return nil, ErrMissingRule
		}
		results, err := task.Execute(in)
		if err != nil {
			return nil, err
		}
		if len(results) != len(task.Outputs) {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrOutputArity, len(results), len(task.Outputs))
		}
		return results, nil
	})
}

// Validate reports a scheduled task that declares outputs but has no output
// function.
func (ValueExecution) Validate(cat *Catalogue) error {
	for _, d := range cat.devices {
		for _, core := range d.cores {
			for i := range core.queue.Len() {
				t := core.queue.At(i)
				if len(t.Outputs) > 0 && t.Execute == nil {
					return specErrorf(d.name, core.name, t.Name, ErrMissingRule, "no output function")
				}
			}
		}
	}
	return nil
}

type produceFunc func(task *Task, in Inputs) ([]Value, error)

// settle implements the part of a step common to all execution strategies.
// Started tasks consume their dependencies, every occupying task ages to the
// step end, and tasks with no time left deliver their outputs. All
// deliveries happen after all consumption, so no task sees a value produced in
// the same step.
func settle(cat *Catalogue, step *Step, produce produceFunc) error {
	for i := range step.Started {
		o := &step.Started[i]
		d, task, err := lookup(cat, step, o)
		if err != nil {
			return err
		}
		o.Inputs = make(Inputs, len(task.Dependencies))
		for j, dep := range task.Dependencies {
			vals, ok := d.cache.Take(dep.Key, dep.Count)
			if !ok {
				return &RunError{
					Step:   step.Index,
					Device: o.Device,
					Core:   o.Core,
					Task:   o.Task,
					Err:    fmt.Errorf("%w: %q has %d of %d", ErrDependencyMissing, dep.Key, d.cache.Len(dep.Key), dep.Count),
				}
			}
			o.Inputs[j] = Input{Key: dep.Key, Values: vals}
		}
	}

	step.Ending = step.Ending[:0]
	for _, b := range []Bucket{step.Started, step.Running} {
		for i := range b {
			o := &b[i]
			if o.End() <= step.End() {
				o.Left = 0
				step.Ending = append(step.Ending, *o)
			} else {
				o.Left = o.End() - step.End()
			}
		}
	}
	step.Ending.sort()

	for i := range step.Ending {
		o := &step.Ending[i]
		_, task, err := lookup(cat, step, o)
		if err != nil {
			return err
		}
		results, err := produce(task, o.Inputs)
		if err != nil {
			return &RunError{Step: step.Index, Device: o.Device, Core: o.Core, Task: o.Task, Err: err}
		}
		o.Results = results
		for j, out := range task.Outputs {
			for _, target := range out.Targets {
				td, ok := cat.byName[target]
				if !ok {
					return &RunError{
						Step:   step.Index,
						Device: o.Device,
						Core:   o.Core,
						Task:   o.Task,
						Err:    fmt.Errorf("%w: output %q targets %q", ErrUnknownDevice, out.Key, target),
					}
				}
				td.cache.Put(out.Key, results[j])
			}
		}
	}
	return nil
}

func lookup(cat *Catalogue, step *Step, o *Occupancy) (*Device, *Task, error) {
	d, ok := cat.byName[o.Device]
	if !ok {
		return nil, nil, &RunError{Step: step.Index, Device: o.Device, Err: ErrUnknownDevice}
	}
	task, ok := d.tasks[o.Task]
	if !ok {
		return nil, nil, &RunError{Step: step.Index, Device: o.Device, Core: o.Core, Task: o.Task, Err: ErrUnknownTask}
	}
	return d, task, nil
}

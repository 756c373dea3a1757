// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package nossim

import (
	"slices"
)

// StartedHardware reports, per device, the peripherals declared by the tasks
// that started in the step.
type StartedHardware struct{}

func (StartedHardware) Observe(cat *Catalogue, step *Step) error {
	return observe(cat, step, step.Started)
}

// SustainedHardware reports, per device, the peripherals declared by every
// task occupying a core during the step, so a peripheral stays active for the
// whole duration of the task that uses it.
type SustainedHardware struct{}

func (SustainedHardware) Observe(cat *Catalogue, step *Step) error {
	all := make(Bucket, 0, len(step.Started)+len(step.Running))
	all = append(all, step.Started...)
	all = append(all, step.Running...)
	all.sort()
	return observe(cat, step, all)
}

func observe(cat *Catalogue, step *Step, b Bucket) error {
	active := make(map[string][]string)
	for i := range b {
		o := &b[i]
		_, task, err := lookup(cat, step, o)
		if err != nil {
			return err
		}
		if len(task.Hardware) == 0 {
			continue
		}
		active[o.Device] = append(active[o.Device], task.Hardware...)
	}
	for dev, hw := range active {
		slices.Sort(hw)
		active[dev] = slices.Compact(hw)
	}
	step.ActivePeripherals = active
	return nil
}

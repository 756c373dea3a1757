// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package nossim

import (
	"cmp"
	"fmt"

	"github.com/addrummond/heap"
)

// UnitTiming treats every task as lasting exactly one cycle regardless of its
// declared duration or the core frequency.
type UnitTiming struct{}

func (UnitTiming) Advance(cat *Catalogue, prev, step *Step) (bool, error) {
	return advance(cat, prev, step, func(*Core, *Task, Inputs) (Cycles, error) {
		return 1, nil
	})
}

// FixedTiming uses each task's declared duration divided by the frequency of
// the core it runs on. If Level is set and the task declares a duration for
// that level, the level duration is used instead of the constant one.
type FixedTiming struct {
	Level string
}

func (ft FixedTiming) Advance(cat *Catalogue, prev, step *Step) (bool, error) {
	return advance(cat, prev, step, func(core *Core, task *Task, _ Inputs) (Cycles, error) {
		return core.scale(task.Timing.Level(ft.Level)), nil
	})
}

// FuncTiming calls each task's duration function with the values the task is
// about to consume and divides the result by the core frequency.
type FuncTiming struct{}

func (FuncTiming) Advance(cat *Catalogue, prev, step *Step) (bool, error) {
	return advance(cat, prev, step, func(core *Core, task *Task, in Inputs) (Cycles, error) {
		if task.Timing.Func == nil {
			return 0, ErrMissingRule
		}
		d, err := task.Timing.Func(in)
		if err != nil {
			return 0, err
		}
		return core.scale(d), nil
	})
}

// Validate reports a scheduled task without a duration function.
func (FuncTiming) Validate(cat *Catalogue) error {
	for _, d := range cat.devices {
		for _, core := range d.cores {
			for i := range core.queue.Len() {
				t := core.queue.At(i)
				if t.Timing.Func == nil {
					return specErrorf(d.name, core.name, t.Name, ErrMissingRule, "no duration function")
				}
			}
		}
	}
	return nil
}

func (c *Core) scale(d Cycles) Cycles {
	return Cycles(float64(d) / c.frequency)
}

type durationRule func(core *Core, task *Task, in Inputs) (Cycles, error)

// advance implements the part of a step common to all timing strategies: carry
// unfinished tasks forward, start every core head whose dependencies are
// available, and end the step at the earliest task end.
func advance(cat *Catalogue, prev, step *Step, rule durationRule) (bool, error) {
	occupied := make(map[int]bool)
	if prev != nil {
		for _, b := range []Bucket{prev.Started, prev.Running} {
			for _, o := range b {
				if o.End() <= step.Timestamp {
					continue
				}
				o.Remaining = o.End() - step.Timestamp
				o.Left = 0
				o.Results = nil
				step.Running = append(step.Running, o)
				occupied[o.core] = true
			}
		}
		step.Running.sort()
	}

	for _, d := range cat.devices {
		// Values claimed by heads already started this step, so that two
		// cores never count on the same cached value.
		reserved := make(map[string]int)
		for _, core := range d.cores {
			if occupied[core.id] {
				continue
			}
			task, ok := core.Head()
			if !ok {
				continue
			}
			in, ok := reserve(d.cache, task, reserved)
			if !ok {
				// Head-of-line blocking: this core waits, the others carry on.
				continue
			}
			dur, err := rule(core, task, in)
			if err == nil && !validDuration(dur) {
				err = fmt.Errorf("%w: %v", ErrInvalidDuration, dur)
			}
			if err != nil {
				return false, &RunError{Step: step.Index, Device: d.name, Core: core.name, Task: task.Name, Err: err}
			}
			core.pop()
			step.Started = append(step.Started, Occupancy{
				Device:    d.name,
				Core:      core.name,
				Task:      task.Name,
				Start:     step.Timestamp,
				Duration:  dur,
				Remaining: dur,
				device:    d.id,
				core:      core.id,
			})
		}
	}

	var deadlines heap.Heap[deadline, heap.Min]
	for _, b := range []Bucket{step.Started, step.Running} {
		for i := range b {
			heap.PushOrderable(&deadlines, deadline{
				End:    b[i].End(),
				Device: b[i].device,
				Core:   b[i].core,
			})
		}
	}
	next, ok := heap.PopOrderable(&deadlines)
	if !ok {
		// End of schedule.
		return false, nil
	}
	step.Duration = next.End - step.Timestamp
	step.end = next.End
	step.hasEnd = true
	return true, nil
}

// reserve checks whether task's dependencies can be met from cache after the
// values in reserved have been set aside. If so, it returns the values the task
// will consume and adds them to reserved.
func reserve(cache *Cache, task *Task, reserved map[string]int) (Inputs, bool) {
	for _, dep := range task.Dependencies {
		if cache.Len(dep.Key)-reserved[dep.Key] < dep.Count {
			return nil, false
		}
	}
	in := make(Inputs, len(task.Dependencies))
	for i, dep := range task.Dependencies {
		vals, _ := cache.Peek(dep.Key, reserved[dep.Key], dep.Count)
		in[i] = Input{Key: dep.Key, Values: vals}
		reserved[dep.Key] += dep.Count
	}
	return in, true
}

// deadline orders tasks by absolute end time. Ends are compared rather than
// remaining times so that tasks ending at the same instant end in the same
// step whatever the core frequencies.
type deadline struct {
	End    Cycles
	Device int
	Core   int
}

func (a *deadline) Cmp(b *deadline) int {
	return cmp.Or(
		cmp.Compare(a.End, b.End),
		cmp.Compare(a.Device, b.Device),
		cmp.Compare(a.Core, b.Core),
	)
}

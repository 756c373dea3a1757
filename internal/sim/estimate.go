// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sim

import (
	"cmp"

	"github.com/addrummond/heap"
	"github.com/gammazero/deque"
	"github.com/petenewcomb/nossim-go"
)

type deviceState struct {
	spec   *nossim.DeviceSpec
	counts map[string]int
	cores  []*coreState
}

type coreState struct {
	device *deviceState
	name   string
	freq   float64
	queue  deque.Deque[string]
	busy   bool
}

// EstimateNetwork predicts the result of running specs with fixed timing.
// Values are counted rather than stored, and consumption happens as soon as a
// task starts, which has the same effect as reserving values for the heads
// started earlier in the same step.
func EstimateNetwork(specs []nossim.DeviceSpec) *Result {
	r := &Result{
		Starts: make(map[string][]nossim.Cycles),
		Caches: make(map[string]map[string]int),
	}

	devices := make([]*deviceState, len(specs))
	byName := make(map[string]*deviceState, len(specs))
	for i := range specs {
		d := &deviceState{
			spec:   &specs[i],
			counts: make(map[string]int),
		}
		for key, vals := range specs[i].Cache {
			d.counts[key] = len(vals)
		}
		for _, cs := range specs[i].Cores {
			c := &coreState{
				device: d,
				name:   cs.Name,
				freq:   cs.Frequency,
			}
			if c.freq == 0 {
				c.freq = 1
			}
			for _, name := range cs.Schedule {
				c.queue.PushBack(name)
			}
			d.cores = append(d.cores, c)
		}
		devices[i] = d
		byName[d.spec.Name] = d
	}

	var events heap.Heap[taskEvent, heap.Min]
	var now nossim.Cycles
	seq := 0
	for {
		for _, d := range devices {
			for _, c := range d.cores {
				if c.busy || c.queue.Len() == 0 {
					continue
				}
				name := c.queue.Front()
				task := d.spec.Tasks[name]
				if !available(d.counts, task.Dependencies) {
					continue
				}
				for _, dep := range task.Dependencies {
					d.counts[dep.Key] -= dep.Count
				}
				c.queue.PopFront()
				c.busy = true
				key := d.spec.Name + "/" + c.name
				r.Starts[key] = append(r.Starts[key], now)
				heap.PushOrderable(&events, taskEvent{
					Time: now + nossim.Cycles(float64(task.Timing.Duration)/c.freq),
					Seq:  seq,
					Core: c,
					Task: name,
				})
				seq++
			}
		}

		event, ok := heap.PopOrderable(&events)
		if !ok {
			break
		}
		r.Steps++
		now = event.Time
		ending := []taskEvent{event}
		for {
			event, ok = heap.Peek(&events)
			if !ok || event.Time != now {
				break
			}
			_, _ = heap.PopOrderable(&events)
			ending = append(ending, event)
		}
		for _, e := range ending {
			e.Core.busy = false
			task := e.Core.device.spec.Tasks[e.Task]
			for _, out := range task.Outputs {
				for _, target := range out.Targets {
					byName[target].counts[out.Key]++
				}
			}
		}
	}

	r.End = now
	for _, d := range devices {
		for _, c := range d.cores {
			if c.queue.Len() > 0 {
				r.Blocked++
			}
		}
		for key, n := range d.counts {
			if n > 0 {
				r.cache(d.spec.Name)[key] = n
			}
		}
	}
	return r
}

func available(counts map[string]int, deps []nossim.Dependency) bool {
	for _, dep := range deps {
		if counts[dep.Key] < dep.Count {
			return false
		}
	}
	return true
}

type taskEvent struct {
	Time nossim.Cycles
	Seq  int
	Core *coreState
	Task string
}

func (a *taskEvent) Cmp(b *taskEvent) int {
	return cmp.Or(cmp.Compare(a.Time, b.Time), cmp.Compare(a.Seq, b.Seq))
}

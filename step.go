// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package nossim

import (
	"cmp"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Occupancy records a task occupying a core during a step.
type Occupancy struct {
	Device string `json:"-"`
	Core   string `json:"-"`
	Task   string `json:"task"`
	// Start is the simulated time at which the task started.
	Start Cycles `json:"start"`
	// Duration is the total duration fixed when the task started.
	Duration Cycles `json:"duration"`
	// Remaining is the time left at the start of the step.
	Remaining Cycles `json:"remaining"`
	// Left is the time left at the end of the step, set by the Execution
	// strategy. Zero means the task ends with the step.
	Left Cycles `json:"left"`
	// Inputs are the dependency values the task consumed when it started.
	Inputs Inputs `json:"inputs,omitempty"`
	// Results are the output values produced, recorded on ending entries.
	Results []Value `json:"results,omitempty"`

	device int
	core   int
}

// End returns the simulated time at which the task finishes.
func (o *Occupancy) End() Cycles {
	return o.Start + o.Duration
}

func (o *Occupancy) cmp(other *Occupancy) int {
	return cmp.Or(cmp.Compare(o.device, other.device), cmp.Compare(o.core, other.core))
}

// Bucket is a set of occupancies ordered by device then core. A core appears at
// most once in a bucket.
type Bucket []Occupancy

// Get returns the entry for the given device and core.
func (b Bucket) Get(device, core string) (*Occupancy, bool) {
	for i := range b {
		if b[i].Device == device && b[i].Core == core {
			return &b[i], true
		}
	}
	return nil, false
}

// Device returns the entries for one device, in core order.
func (b Bucket) Device(device string) Bucket {
	var sub Bucket
	for _, o := range b {
		if o.Device == device {
			sub = append(sub, o)
		}
	}
	return sub
}

// Tasks returns the task names in bucket order.
func (b Bucket) Tasks() []string {
	names := make([]string, len(b))
	for i, o := range b {
		names[i] = o.Task
	}
	return names
}

// MarshalJSON encodes the bucket keyed by device then core.
func (b Bucket) MarshalJSON() ([]byte, error) {
	m := make(map[string]map[string]Occupancy)
	for _, o := range b {
		cores := m[o.Device]
		if cores == nil {
			cores = make(map[string]Occupancy)
			m[o.Device] = cores
		}
		cores[o.Core] = o
	}
	return json.Marshal(m)
}

func (b Bucket) sort() {
	slices.SortFunc(b, func(x, y Occupancy) int {
		return x.cmp(&y)
	})
}

// Step is one iteration of the simulation loop. A step is never modified once
// it has been returned by [Simulation.Next].
type Step struct {
	Index     int    `json:"index"`
	Timestamp Cycles `json:"timestamp"`
	Duration  Cycles `json:"duration"`
	// Started holds tasks that began this step.
	Started Bucket `json:"started"`
	// Running holds tasks that began in an earlier step and had not finished
	// when this step started.
	Running Bucket `json:"running"`
	// Ending holds the tasks of Started and Running that finish with this step.
	Ending Bucket `json:"ending"`
	// ActivePeripherals lists, per device, the hardware peripherals the
	// Hardware strategy reports active. Devices with none are omitted.
	ActivePeripherals map[string][]string `json:"active_peripherals"`

	// end is the earliest task end, set when the duration is chosen. Adding
	// Duration back to Timestamp can round away from it.
	end    Cycles
	hasEnd bool
}

// End returns the simulated time at which the step ends.
func (s *Step) End() Cycles {
	if s.hasEnd {
		return s.end
	}
	return s.Timestamp + s.Duration
}

// Format implements fmt.Formatter. %v prints a short identifier, %#v the full
// step.
func (s *Step) Format(f fmt.State, verb rune) {
	if verb != 'v' {
		panic("unsupported verb")
	}
	if !f.Flag('#') {
		_, _ = fmt.Fprintf(f, "Step#%d", s.Index)
		return
	}
	_, _ = fmt.Fprintf(f, "Step#%d @%v +%v", s.Index, s.Timestamp, s.Duration)
	dump := func(label string, b Bucket) {
		for _, o := range b {
			_, _ = fmt.Fprintf(f, "\n  %s %s/%s %s (%v of %v left)", label, o.Device, o.Core, o.Task, o.Left, o.Duration)
		}
	}
	dump("started", s.Started)
	dump("running", s.Running)
	dump("ending ", s.Ending)
	for _, dev := range slices.Sorted(maps.Keys(s.ActivePeripherals)) {
		_, _ = fmt.Fprintf(f, "\n  hw %s %v", dev, s.ActivePeripherals[dev])
	}
}

// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package nossim

import (
	"encoding/json"

	"github.com/cespare/xxhash/v2"
)

// Timeline is the complete record of a simulation run.
type Timeline struct {
	Steps []*Step `json:"steps"`
	// End is the simulated time at which the last step ended.
	End Cycles `json:"end"`
	// Blocked lists the cores whose queues were not empty when the run ended.
	Blocked []Blocked `json:"blocked,omitempty"`
}

// Step returns the step with the given index.
func (tl *Timeline) Step(i int) (*Step, bool) {
	if i < 0 || i >= len(tl.Steps) {
		return nil, false
	}
	return tl.Steps[i], true
}

// Digest returns a hash of the timeline's JSON encoding. Two runs of identical
// catalogues with identical strategies have equal digests.
func (tl *Timeline) Digest() (uint64, error) {
	b, err := json.Marshal(tl)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(b), nil
}

// Utilization is the share of a run during which a core was occupied.
type Utilization struct {
	Device   string  `json:"device"`
	Core     string  `json:"core"`
	Busy     Cycles  `json:"busy"`
	Fraction float64 `json:"fraction"`
}

// Utilization returns the busy time of every core of cat that ran at least one
// task, in device then core order.
func (tl *Timeline) Utilization(cat *Catalogue) []Utilization {
	busy := make(map[int]Cycles)
	for _, step := range tl.Steps {
		for _, b := range []Bucket{step.Started, step.Running} {
			for _, o := range b {
				busy[o.core] += step.Duration
			}
		}
	}
	var us []Utilization
	for _, d := range cat.devices {
		for _, core := range d.cores {
			t, ok := busy[core.id]
			if !ok {
				continue
			}
			u := Utilization{Device: d.name, Core: core.name, Busy: t}
			if tl.End > 0 {
				u.Fraction = float64(t) / float64(tl.End)
			}
			us = append(us, u)
		}
	}
	return us
}

// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sim

import (
	"github.com/petenewcomb/nossim-go"
)

// Result summarizes a run in terms that do not depend on how it was produced.
type Result struct {
	Steps int
	End   nossim.Cycles
	// Starts holds, per "device/core", the start time of every task the core
	// ran, in start order.
	Starts map[string][]nossim.Cycles
	// Blocked is the number of cores with tasks still queued at the end.
	Blocked int
	// Caches holds the number of values left per device and key. Empty keys
	// are omitted.
	Caches map[string]map[string]int
}

// ResultOf summarizes tl, a run of cat.
func ResultOf(tl *nossim.Timeline, cat *nossim.Catalogue) *Result {
	r := &Result{
		Steps:   len(tl.Steps),
		End:     tl.End,
		Starts:  make(map[string][]nossim.Cycles),
		Blocked: len(tl.Blocked),
		Caches:  make(map[string]map[string]int),
	}
	for _, step := range tl.Steps {
		for _, o := range step.Started {
			key := o.Device + "/" + o.Core
			r.Starts[key] = append(r.Starts[key], o.Start)
		}
	}
	for _, d := range cat.Devices() {
		for _, key := range d.Cache().Keys() {
			r.cache(d.Name())[key] = d.Cache().Len(key)
		}
	}
	return r
}

func (r *Result) cache(device string) map[string]int {
	m := r.Caches[device]
	if m == nil {
		m = make(map[string]int)
		r.Caches[device] = m
	}
	return m
}

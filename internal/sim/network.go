// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sim

import (
	"fmt"
	"maps"
	"slices"

	"github.com/petenewcomb/nossim-go"
	"pgregory.net/rapid"
)

// Network is a generated set of device specifications.
type Network struct {
	Specs []nossim.DeviceSpec
	Keys  []string
	// TaskCount is the number of scheduled task instances across all cores.
	TaskCount int
}

// NewNetwork draws a network of devices according to config.
func NewNetwork(t *rapid.T, config *Config) *Network {
	n := &Network{}

	keyCount := config.Key.Count.Draw(t, "KeyCount")
	n.Keys = make([]string, keyCount)
	for i := range n.Keys {
		n.Keys[i] = fmt.Sprintf("k%d", i)
	}

	deviceCount := config.Device.Count.Draw(t, "DeviceCount")
	devices := make([]string, deviceCount)
	for i := range devices {
		devices[i] = fmt.Sprintf("dev%d", i)
	}

	n.Specs = make([]nossim.DeviceSpec, deviceCount)
	for i, name := range devices {
		spec := nossim.DeviceSpec{
			Name:  name,
			Tasks: make(map[string]nossim.TaskSpec),
			Cache: make(map[string][]nossim.Value),
		}

		taskNames := make([]string, config.Task.Count.Draw(t, name+".TaskCount"))
		for j := range taskNames {
			taskNames[j] = fmt.Sprintf("t%d", j)
			spec.Tasks[taskNames[j]] = newTask(t, config, name+"."+taskNames[j], n.Keys, devices)
		}

		coreCount := config.Device.CoreCount.Draw(t, name+".CoreCount")
		for j := range coreCount {
			coreName := fmt.Sprintf("%s.c%d", name, j)
			cs := nossim.CoreSpec{
				Name:      fmt.Sprintf("c%d", j),
				Frequency: rapid.SampledFrom(config.Device.Frequencies).Draw(t, coreName+".Frequency"),
			}
			length := config.Schedule.Length.Draw(t, coreName+".ScheduleLength")
			for k := range length {
				cs.Schedule = append(cs.Schedule, rapid.SampledFrom(taskNames).Draw(t, fmt.Sprintf("%s.Schedule[%d]", coreName, k)))
			}
			n.TaskCount += len(cs.Schedule)
			spec.Cores = append(spec.Cores, cs)
		}

		for _, key := range n.Keys {
			count := config.Key.Initial.Draw(t, name+"."+key+".Initial")
			for v := range count {
				spec.Cache[key] = append(spec.Cache[key], fmt.Sprintf("%s/%s#%d", name, key, v))
			}
		}
		n.Specs[i] = spec
	}
	t.Logf("%#v", n)
	return n
}

func newTask(t *rapid.T, config *Config, name string, keys, devices []string) nossim.TaskSpec {
	ts := nossim.TaskSpec{
		Timing: nossim.TimingSpec{
			Duration: nossim.Cycles(config.Task.Duration.Draw(t, name+".Duration")),
		},
	}
	for _, key := range keys {
		if config.Task.Depend.Draw(t, name+".Depends."+key) {
			ts.Dependencies = append(ts.Dependencies, nossim.Dependency{
				Key:   key,
				Count: config.Task.DependencyCount.Draw(t, name+".DependencyCount."+key),
			})
		}
		if config.Task.Produce.Draw(t, name+".Produces."+key) {
			targets := rapid.SliceOfNDistinct(rapid.SampledFrom(devices), 1, len(devices), rapid.ID[string]).
				Draw(t, name+".Targets."+key)
			ts.Outputs = append(ts.Outputs, nossim.Output{Key: key, Targets: targets})
		}
	}
	if len(config.Task.Peripherals) > 0 {
		ts.Hardware = rapid.SliceOfNDistinct(rapid.SampledFrom(config.Task.Peripherals), 0, 2, rapid.ID[string]).
			Draw(t, name+".Hardware")
	}
	return ts
}

// Format implements fmt.Formatter for pretty-printing a network.
func (n *Network) Format(f fmt.State, verb rune) {
	if verb != 'v' {
		panic("unsupported verb")
	}
	if !f.Flag('#') {
		_, _ = fmt.Fprintf(f, "Network(%d devices, %d tasks)", len(n.Specs), n.TaskCount)
		return
	}
	_, _ = fmt.Fprintf(f, "Network: devices=%d keys=%v taskCount=%d", len(n.Specs), n.Keys, n.TaskCount)
	for _, spec := range n.Specs {
		_, _ = fmt.Fprintf(f, "\n  %s:", spec.Name)
		for _, name := range slices.Sorted(maps.Keys(spec.Tasks)) {
			ts := spec.Tasks[name]
			_, _ = fmt.Fprintf(f, "\n    task %s: duration=%v deps=%v outputs=%v hw=%v",
				name, ts.Timing.Duration, ts.Dependencies, ts.Outputs, ts.Hardware)
		}
		for _, cs := range spec.Cores {
			_, _ = fmt.Fprintf(f, "\n    core %s x%v: %v", cs.Name, cs.Frequency, cs.Schedule)
		}
		for _, key := range slices.Sorted(maps.Keys(spec.Cache)) {
			_, _ = fmt.Fprintf(f, "\n    cache %s: %d", key, len(spec.Cache[key]))
		}
	}
}

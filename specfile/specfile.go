// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package specfile reads device specifications from JSON or YAML files.
//
// A file is an object mapping device names to devices:
//
//	{
//	  "sensor": {
//	    "cores": {"core_0": {"frequency": 1}},
//	    "schedule": {"core_0": ["measure"]},
//	    "tasks": {
//	      "measure": {
//	        "hardware": ["adc"],
//	        "timing": {"duration": 3, "levels": {"level_1": 2}, "func": "count"},
//	        "execution": {
//	          "dependencies": {"trigger": 1},
//	          "outputs": {"reading": ["gateway"]},
//	          "func": "passthrough"
//	        }
//	      }
//	    },
//	    "cache": {"trigger": [1]}
//	  }
//	}
//
// Object keys carry no order, so devices, cores, dependencies and outputs are
// converted in sorted key order. Fields not listed above, such as energy
// figures, are ignored.
package specfile

import (
	"encoding/json"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/petenewcomb/nossim-go"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Format identifies a file encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// FormatOf returns the format implied by a file name's extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	default:
		return "", errors.Errorf("specfile: cannot tell the format of %q from its extension", path)
	}
}

// File is the decoded form of a specification file, keyed by device name.
type File map[string]Device

type Device struct {
	Cores    map[string]Core     `json:"cores" yaml:"cores"`
	Schedule map[string][]string `json:"schedule" yaml:"schedule"`
	Tasks    map[string]Task     `json:"tasks" yaml:"tasks"`
	Cache    map[string][]any    `json:"cache" yaml:"cache"`
}

type Core struct {
	Frequency float64 `json:"frequency" yaml:"frequency"`
}

type Task struct {
	Hardware  []string  `json:"hardware" yaml:"hardware"`
	Timing    Timing    `json:"timing" yaml:"timing"`
	Execution Execution `json:"execution" yaml:"execution"`
}

type Timing struct {
	Duration float64            `json:"duration" yaml:"duration"`
	Levels   map[string]float64 `json:"levels" yaml:"levels"`
	Func     string             `json:"func" yaml:"func"`
}

type Execution struct {
	Dependencies map[string]int      `json:"dependencies" yaml:"dependencies"`
	Outputs      map[string][]string `json:"outputs" yaml:"outputs"`
	Func         string              `json:"func" yaml:"func"`
}

// Load reads the file at path, choosing the decoder from its extension.
func Load(path string) ([]nossim.DeviceSpec, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "specfile")
	}
	defer f.Close()
	specs, err := Decode(f, format)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return specs, nil
}

// Decode reads a specification in the given format from r.
func Decode(r io.Reader, format Format) ([]nossim.DeviceSpec, error) {
	var file File
	switch format {
	case JSON:
		if err := json.NewDecoder(r).Decode(&file); err != nil {
			return nil, errors.Wrap(err, "specfile: decoding JSON")
		}
	case YAML:
		if err := yaml.NewDecoder(r).Decode(&file); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrap(err, "specfile: decoding YAML")
		}
	default:
		return nil, errors.Errorf("specfile: unknown format %q", format)
	}
	return file.Specs()
}

// Specs converts f to device specifications.
func (f File) Specs() ([]nossim.DeviceSpec, error) {
	specs := make([]nossim.DeviceSpec, 0, len(f))
	for _, name := range slices.Sorted(maps.Keys(f)) {
		d := f[name]
		spec, err := d.spec(name)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (d *Device) spec(name string) (nossim.DeviceSpec, error) {
	spec := nossim.DeviceSpec{
		Name:  name,
		Tasks: make(map[string]nossim.TaskSpec, len(d.Tasks)),
	}
	for core := range d.Schedule {
		if _, ok := d.Cores[core]; !ok {
			return nossim.DeviceSpec{}, errors.Wrapf(nossim.ErrInvalidSpec, "specfile: device %q: schedule for undeclared core %q", name, core)
		}
	}
	for _, core := range slices.Sorted(maps.Keys(d.Cores)) {
		spec.Cores = append(spec.Cores, nossim.CoreSpec{
			Name:      core,
			Frequency: d.Cores[core].Frequency,
			Schedule:  slices.Clone(d.Schedule[core]),
		})
	}
	for task, t := range d.Tasks {
		spec.Tasks[task] = t.spec()
	}
	if len(d.Cache) > 0 {
		spec.Cache = make(map[string][]nossim.Value, len(d.Cache))
		for key, vals := range d.Cache {
			spec.Cache[key] = slices.Clone(vals)
		}
	}
	return spec, nil
}

func (t *Task) spec() nossim.TaskSpec {
	ts := nossim.TaskSpec{
		Hardware: slices.Clone(t.Hardware),
		Timing: nossim.TimingSpec{
			Duration: nossim.Cycles(t.Timing.Duration),
			Func:     t.Timing.Func,
		},
		Execution: t.Execution.Func,
	}
	if len(t.Timing.Levels) > 0 {
		ts.Timing.Levels = make(map[string]nossim.Cycles, len(t.Timing.Levels))
		for level, d := range t.Timing.Levels {
			ts.Timing.Levels[level] = nossim.Cycles(d)
		}
	}
	for _, key := range slices.Sorted(maps.Keys(t.Execution.Dependencies)) {
		ts.Dependencies = append(ts.Dependencies, nossim.Dependency{Key: key, Count: t.Execution.Dependencies[key]})
	}
	for _, key := range slices.Sorted(maps.Keys(t.Execution.Outputs)) {
		ts.Outputs = append(ts.Outputs, nossim.Output{Key: key, Targets: slices.Clone(t.Execution.Outputs[key])})
	}
	return ts
}

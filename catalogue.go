// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package nossim

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/gammazero/deque"
)

// A Catalogue is the validated set of devices a simulation runs over. Task
// descriptors are read-only once built. Core queues shrink as tasks start and
// caches change as tasks consume and produce values, so a catalogue is owned by
// at most one [Simulation] at a time. Use [Catalogue.Clone] to run the same
// catalogue more than once.
type Catalogue struct {
	devices []*Device
	byName  map[string]*Device
}

// A Device owns cores, a task catalogue and a resource cache.
type Device struct {
	id    int
	name  string
	cores []*Core
	tasks map[string]*Task
	cache *Cache
}

// A Core is a FIFO execution queue within a device. At most one task occupies
// a core at any simulated instant.
type Core struct {
	id        int
	name      string
	frequency float64
	queue     deque.Deque[*Task]
}

// NewCatalogue validates specs and builds a catalogue from them. Devices and
// cores receive sequential IDs in spec order. Function names in the specs are
// resolved against registry, which may be nil if no names are used.
func NewCatalogue(specs []DeviceSpec, registry *Registry) (*Catalogue, error) {
	c := &Catalogue{
		byName: make(map[string]*Device, len(specs)),
	}
	nextCoreID := 0
	for i := range specs {
		spec := &specs[i]
		if spec.Name == "" {
			return nil, specErrorf("", "", "", ErrInvalidSpec, "device %d has no name", i)
		}
		if _, dup := c.byName[spec.Name]; dup {
			return nil, specErrorf(spec.Name, "", "", ErrInvalidSpec, "duplicate device name")
		}
		d := &Device{
			id:    len(c.devices),
			name:  spec.Name,
			tasks: make(map[string]*Task, len(spec.Tasks)),
			cache: &Cache{},
		}
		c.devices = append(c.devices, d)
		c.byName[d.name] = d
		for _, name := range slices.Sorted(maps.Keys(spec.Tasks)) {
			t, err := newTask(d.name, name, spec.Tasks[name], registry)
			if err != nil {
				return nil, err
			}
			d.tasks[name] = t
		}
		for _, key := range slices.Sorted(maps.Keys(spec.Cache)) {
			for _, v := range spec.Cache[key] {
				d.cache.Put(key, v)
			}
		}
	}

	// Cores and targets are checked once every device name is known.
	for i := range specs {
		spec := &specs[i]
		d := c.devices[i]
		coreNames := make(map[string]bool, len(spec.Cores))
		for j, cs := range spec.Cores {
			if cs.Name == "" {
				return nil, specErrorf(d.name, "", "", ErrInvalidSpec, "core %d has no name", j)
			}
			if coreNames[cs.Name] {
				return nil, specErrorf(d.name, cs.Name, "", ErrInvalidSpec, "duplicate core name")
			}
			coreNames[cs.Name] = true
			freq := cs.Frequency
			if freq == 0 {
				freq = 1
			}
			if freq < 0 || math.IsNaN(freq) || math.IsInf(freq, 0) {
				return nil, specErrorf(d.name, cs.Name, "", ErrInvalidSpec, "invalid frequency %v", cs.Frequency)
			}
			core := &Core{
				id:        nextCoreID,
				name:      cs.Name,
				frequency: freq,
			}
			nextCoreID++
			for _, taskName := range cs.Schedule {
				t, ok := d.tasks[taskName]
				if !ok {
					return nil, specErrorf(d.name, cs.Name, taskName, ErrUnknownTask, "scheduled task is not in the device catalogue")
				}
				core.queue.PushBack(t)
			}
			d.cores = append(d.cores, core)
		}
		for _, name := range slices.Sorted(maps.Keys(d.tasks)) {
			for _, out := range d.tasks[name].Outputs {
				for _, target := range out.Targets {
					if _, ok := c.byName[target]; !ok {
						return nil, specErrorf(d.name, "", name, ErrUnknownDevice, "output %q targets %q", out.Key, target)
					}
				}
			}
		}
	}
	return c, nil
}

func newTask(device, name string, spec TaskSpec, registry *Registry) (*Task, error) {
	t := &Task{
		Name:         name,
		Dependencies: slices.Clone(spec.Dependencies),
		Outputs:      make([]Output, len(spec.Outputs)),
		Hardware:     slices.Clone(spec.Hardware),
		Timing: TimingRule{
			Duration: spec.Timing.Duration,
			Levels:   maps.Clone(spec.Timing.Levels),
			Func:     spec.Timing.DurationFunc,
		},
		Execute: spec.OutputFunc,
	}
	seen := make(map[string]bool, len(spec.Dependencies))
	for _, dep := range t.Dependencies {
		if dep.Key == "" {
			return nil, specErrorf(device, "", name, ErrInvalidSpec, "dependency with empty key")
		}
		if seen[dep.Key] {
			return nil, specErrorf(device, "", name, ErrInvalidSpec, "duplicate dependency %q", dep.Key)
		}
		seen[dep.Key] = true
		if dep.Count < 1 {
			return nil, specErrorf(device, "", name, ErrInvalidSpec, "dependency %q count %d is less than 1", dep.Key, dep.Count)
		}
	}
	for i, out := range spec.Outputs {
		if out.Key == "" {
			return nil, specErrorf(device, "", name, ErrInvalidSpec, "output with empty key")
		}
		t.Outputs[i] = Output{Key: out.Key, Targets: slices.Clone(out.Targets)}
	}
	if !validDuration(t.Timing.Duration) {
		return nil, specErrorf(device, "", name, ErrInvalidDuration, "%v", t.Timing.Duration)
	}
	for level, d := range t.Timing.Levels {
		if !validDuration(d) {
			return nil, specErrorf(device, "", name, ErrInvalidDuration, "level %q: %v", level, d)
		}
	}
	if t.Timing.Func == nil && spec.Timing.Func != "" {
		fn, ok := registry.Duration(spec.Timing.Func)
		if !ok {
			return nil, specErrorf(device, "", name, ErrUnknownFunc, "duration function %q", spec.Timing.Func)
		}
		t.Timing.Func = fn
	}
	if t.Execute == nil && spec.Execution != "" {
		fn, ok := registry.Output(spec.Execution)
		if !ok {
			return nil, specErrorf(device, "", name, ErrUnknownFunc, "output function %q", spec.Execution)
		}
		t.Execute = fn
	}
	return t, nil
}

// validDuration reports whether d is a finite, non-negative duration.
func validDuration(d Cycles) bool {
	return d >= 0 && !math.IsInf(float64(d), 0)
}

// Devices returns the devices in ID order.
func (c *Catalogue) Devices() []*Device {
	return slices.Clone(c.devices)
}

// Device returns the named device.
func (c *Catalogue) Device(name string) (*Device, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// Pending returns the number of tasks still queued across all cores.
func (c *Catalogue) Pending() int {
	n := 0
	for _, d := range c.devices {
		for _, core := range d.cores {
			n += core.queue.Len()
		}
	}
	return n
}

// ready reports whether the head of any core has its dependencies available.
func (c *Catalogue) ready() bool {
	for _, d := range c.devices {
		for _, core := range d.cores {
			head, ok := core.Head()
			if !ok {
				continue
			}
			available := true
			for _, dep := range head.Dependencies {
				if d.cache.Len(dep.Key) < dep.Count {
					available = false
					break
				}
			}
			if available {
				return true
			}
		}
	}
	return false
}

// Clone returns a copy of c with independent queues and caches. Task
// descriptors are shared.
func (c *Catalogue) Clone() *Catalogue {
	n := &Catalogue{
		devices: make([]*Device, len(c.devices)),
		byName:  make(map[string]*Device, len(c.devices)),
	}
	for i, d := range c.devices {
		nd := &Device{
			id:    d.id,
			name:  d.name,
			cores: make([]*Core, len(d.cores)),
			tasks: d.tasks,
			cache: d.cache.clone(),
		}
		for j, core := range d.cores {
			nc := &Core{
				id:        core.id,
				name:      core.name,
				frequency: core.frequency,
			}
			for k := range core.queue.Len() {
				nc.queue.PushBack(core.queue.At(k))
			}
			nd.cores[j] = nc
		}
		n.devices[i] = nd
		n.byName[nd.name] = nd
	}
	return n
}

// Blocked describes a core whose queue is not empty, the task at its head and
// the dependencies that task is still missing.
type Blocked struct {
	Device  string      `json:"device"`
	Core    string      `json:"core"`
	Task    string      `json:"task"`
	Pending int         `json:"pending"`
	Missing []Shortfall `json:"missing,omitempty"`
}

// Shortfall is a dependency that does not have enough values available.
type Shortfall struct {
	Key  string `json:"key"`
	Have int    `json:"have"`
	Need int    `json:"need"`
}

func (b Blocked) String() string {
	parts := make([]string, len(b.Missing))
	for i, m := range b.Missing {
		parts[i] = fmt.Sprintf("%s %d/%d", m.Key, m.Have, m.Need)
	}
	return fmt.Sprintf("%s/%s head %s (%d queued) missing [%s]", b.Device, b.Core, b.Task, b.Pending, strings.Join(parts, ", "))
}

// Blocked reports every core with a non-empty queue, in device then core
// order.
func (c *Catalogue) Blocked() []Blocked {
	var blocked []Blocked
	for _, d := range c.devices {
		for _, core := range d.cores {
			head, ok := core.Head()
			if !ok {
				continue
			}
			b := Blocked{
				Device:  d.name,
				Core:    core.name,
				Task:    head.Name,
				Pending: core.queue.Len(),
			}
			for _, dep := range head.Dependencies {
				if have := d.cache.Len(dep.Key); have < dep.Count {
					b.Missing = append(b.Missing, Shortfall{Key: dep.Key, Have: have, Need: dep.Count})
				}
			}
			blocked = append(blocked, b)
		}
	}
	return blocked
}

// ID returns the identifier assigned when the catalogue was built.
func (d *Device) ID() int { return d.id }

// Name returns the device name.
func (d *Device) Name() string { return d.name }

// Cores returns the device's cores in spec order.
func (d *Device) Cores() []*Core { return slices.Clone(d.cores) }

// Core returns the named core.
func (d *Device) Core(name string) (*Core, bool) {
	for _, core := range d.cores {
		if core.name == name {
			return core, true
		}
	}
	return nil, false
}

// Task returns the named task descriptor.
func (d *Device) Task(name string) (*Task, bool) {
	t, ok := d.tasks[name]
	return t, ok
}

// Cache returns the device's resource cache.
func (d *Device) Cache() *Cache { return d.cache }

// ID returns the identifier assigned when the catalogue was built. Core IDs
// are unique across the catalogue.
func (c *Core) ID() int { return c.id }

// Name returns the core name.
func (c *Core) Name() string { return c.name }

// Frequency returns the core's clock multiplier.
func (c *Core) Frequency() float64 { return c.frequency }

// Len returns the number of tasks still queued.
func (c *Core) Len() int { return c.queue.Len() }

// Head returns the next task without removing it.
func (c *Core) Head() (*Task, bool) {
	if c.queue.Len() == 0 {
		return nil, false
	}
	return c.queue.Front(), true
}

// Queue returns the names of the queued tasks in execution order.
func (c *Core) Queue() []string {
	names := make([]string, c.queue.Len())
	for i := range names {
		names[i] = c.queue.At(i).Name
	}
	return names
}

func (c *Core) pop() *Task {
	return c.queue.PopFront()
}

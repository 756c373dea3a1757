// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package nossim_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/petenewcomb/nossim-go"
	"github.com/petenewcomb/nossim-go/internal/sim"
	"github.com/stretchr/testify/require"
)

func newCatalogue(t *testing.T, specs ...nossim.DeviceSpec) *nossim.Catalogue {
	t.Helper()
	cat, err := nossim.NewCatalogue(specs, nil)
	require.NoError(t, err)
	return cat
}

func runFixed(t *testing.T, cat *nossim.Catalogue, opts ...nossim.Option) (*nossim.Timeline, error) {
	t.Helper()
	return nossim.Run(context.Background(), cat, nossim.FixedTiming{}, nossim.SymbolicExecution{}, nossim.StartedHardware{}, opts...)
}

func timestamps(tl *nossim.Timeline) []nossim.Cycles {
	ts := make([]nossim.Cycles, len(tl.Steps))
	for i, s := range tl.Steps {
		ts[i] = s.Timestamp
	}
	return ts
}

func TestRunSequentialCore(t *testing.T) {
	chk := require.New(t)
	cat := newCatalogue(t, nossim.DeviceSpec{
		Name:  "dev0",
		Cores: []nossim.CoreSpec{core("c0", "a", "b")},
		Tasks: map[string]nossim.TaskSpec{
			"a": fixed(5, nil),
			"b": fixed(10, nil),
		},
	})
	tl, err := runFixed(t, cat)
	chk.NoError(err)
	chk.Len(tl.Steps, 2)
	chk.Equal([]nossim.Cycles{0, 5}, timestamps(tl))
	chk.Equal(nossim.Cycles(15), tl.End)
	chk.Empty(tl.Blocked)

	s0, s1 := tl.Steps[0], tl.Steps[1]
	chk.Equal([]string{"a"}, s0.Started.Tasks())
	chk.Equal([]string{"a"}, s0.Ending.Tasks())
	chk.Equal(nossim.Cycles(5), s0.Duration)
	chk.Equal([]string{"b"}, s1.Started.Tasks())
	chk.Empty(s1.Running)
	chk.Equal(nossim.Cycles(10), s1.Duration)
	chk.Equal(nossim.Cycles(15), s1.End())
}

func TestRunCrossDeviceDependency(t *testing.T) {
	chk := require.New(t)
	cat := newCatalogue(t,
		nossim.DeviceSpec{
			Name:  "sensor",
			Cores: []nossim.CoreSpec{core("c0", "produce")},
			Tasks: map[string]nossim.TaskSpec{"produce": fixed(3, nil, out("msg", "hub"))},
		},
		nossim.DeviceSpec{
			Name:  "hub",
			Cores: []nossim.CoreSpec{core("c0", "consume")},
			Tasks: map[string]nossim.TaskSpec{"consume": fixed(2, []string{"msg"})},
		},
	)
	tl, err := runFixed(t, cat)
	chk.NoError(err)
	chk.Len(tl.Steps, 2)

	s0 := tl.Steps[0]
	chk.Equal([]string{"produce"}, s0.Started.Tasks())
	_, ok := s0.Started.Get("hub", "c0")
	chk.False(ok, "consumer must wait for the message")
	chk.Equal([]nossim.Value{1}, s0.Ending[0].Results)

	s1 := tl.Steps[1]
	consume, ok := s1.Started.Get("hub", "c0")
	chk.True(ok)
	chk.Equal(nossim.Cycles(3), consume.Start)
	chk.Equal(nossim.Inputs{{Key: "msg", Values: []nossim.Value{1}}}, consume.Inputs)
	chk.Equal(nossim.Cycles(5), tl.End)

	hub, _ := cat.Device("hub")
	chk.Empty(hub.Cache().Keys())
}

func TestRunBlockedCoreDoesNotBlockSibling(t *testing.T) {
	specs := func() nossim.DeviceSpec {
		return nossim.DeviceSpec{
			Name:  "dev0",
			Cores: []nossim.CoreSpec{core("c0", "stuck", "never"), core("c1", "x", "y")},
			Tasks: map[string]nossim.TaskSpec{
				"stuck": fixed(1, []string{"ghost"}),
				"never": fixed(1, nil),
				"x":     fixed(1, nil),
				"y":     fixed(2, nil),
			},
		}
	}
	want := []nossim.Blocked{{
		Device:  "dev0",
		Core:    "c0",
		Task:    "stuck",
		Pending: 2,
		Missing: []nossim.Shortfall{{Key: "ghost", Have: 0, Need: 1}},
	}}

	t.Run("Warn", func(t *testing.T) {
		chk := require.New(t)
		cat := newCatalogue(t, specs())
		tl, err := runFixed(t, cat)
		chk.NoError(err)
		chk.Len(tl.Steps, 2)
		chk.Equal([]nossim.Cycles{0, 1}, timestamps(tl))
		chk.Equal(nossim.Cycles(3), tl.End)
		chk.Equal(want, tl.Blocked)
		for _, s := range tl.Steps {
			_, ok := s.Started.Get("dev0", "c0")
			chk.False(ok)
		}
	})

	t.Run("Fail", func(t *testing.T) {
		chk := require.New(t)
		cat := newCatalogue(t, specs())
		tl, err := runFixed(t, cat, nossim.WithFailOnBlocked(true))
		chk.ErrorIs(err, nossim.ErrStalled)
		var se *nossim.StallError
		chk.True(errors.As(err, &se))
		chk.Equal(want, se.Blocked)
		chk.Len(tl.Steps, 2)
	})
}

func TestRunFuncTimingAndValueExecution(t *testing.T) {
	chk := require.New(t)
	one := func(nossim.Inputs) (nossim.Cycles, error) { return 1, nil }
	cat := newCatalogue(t, nossim.DeviceSpec{
		Name:  "dev0",
		Cores: []nossim.CoreSpec{core("c0", "sample", "sample", "sample", "aggregate")},
		Tasks: map[string]nossim.TaskSpec{
			"sample": {
				Timing:  nossim.TimingSpec{DurationFunc: one},
				Outputs: []nossim.Output{out("reading", "dev0")},
				OutputFunc: func(nossim.Inputs) ([]nossim.Value, error) {
					return []nossim.Value{2}, nil
				},
			},
			"aggregate": {
				Dependencies: []nossim.Dependency{{Key: "reading", Count: 3}},
				Timing: nossim.TimingSpec{DurationFunc: func(in nossim.Inputs) (nossim.Cycles, error) {
					return nossim.Cycles(2 * in.Count()), nil
				}},
				Outputs: []nossim.Output{out("total", "dev0")},
				OutputFunc: func(in nossim.Inputs) ([]nossim.Value, error) {
					sum := 0
					for _, v := range in.Get("reading") {
						sum += v.(int)
					}
					return []nossim.Value{sum}, nil
				},
			},
		},
	})
	tl, err := nossim.Run(context.Background(), cat, nossim.FuncTiming{}, nossim.ValueExecution{}, nossim.StartedHardware{})
	chk.NoError(err)
	chk.Len(tl.Steps, 4)
	chk.Equal([]nossim.Cycles{0, 1, 2, 3}, timestamps(tl))

	last := tl.Steps[3]
	chk.Equal(nossim.Cycles(6), last.Duration)
	chk.Equal(nossim.Inputs{{Key: "reading", Values: []nossim.Value{2, 2, 2}}}, last.Started[0].Inputs)
	chk.Equal([]nossim.Value{6}, last.Ending[0].Results)
	chk.Equal(nossim.Cycles(9), tl.End)

	dev, _ := cat.Device("dev0")
	chk.Equal(map[string][]nossim.Value{"total": {6}}, dev.Cache().Snapshot())
}

func TestRunLongTaskSpansSteps(t *testing.T) {
	specs := nossim.DeviceSpec{
		Name:  "dev0",
		Cores: []nossim.CoreSpec{core("c0", "long"), core("c1", "s", "s", "s")},
		Tasks: map[string]nossim.TaskSpec{
			"long": {Timing: nossim.TimingSpec{Duration: 10}, Hardware: []string{"radio"}},
			"s":    {Timing: nossim.TimingSpec{Duration: 2}, Hardware: []string{"adc"}},
		},
	}

	chk := require.New(t)
	cat := newCatalogue(t, specs)
	tl, err := runFixed(t, cat)
	chk.NoError(err)
	chk.Len(tl.Steps, 4)
	chk.Equal([]nossim.Cycles{0, 2, 4, 6}, timestamps(tl))
	chk.Equal(nossim.Cycles(10), tl.End)

	for i, remaining := range []nossim.Cycles{8, 6, 4} {
		s := tl.Steps[i+1]
		long, ok := s.Running.Get("dev0", "c0")
		chk.True(ok, "step %d", s.Index)
		chk.Equal(nossim.Cycles(0), long.Start)
		chk.Equal(nossim.Cycles(10), long.Duration)
		chk.Equal(remaining, long.Remaining)
		_, started := s.Started.Get("dev0", "c0")
		chk.False(started, "a running core cannot start another task")
	}
	last := tl.Steps[3]
	chk.Empty(last.Started)
	chk.Equal([]string{"long"}, last.Ending.Tasks())
	chk.Equal(nossim.Cycles(4), last.Duration)

	chk.Equal(map[string][]string{"dev0": {"adc"}}, tl.Steps[1].ActivePeripherals)
	chk.Empty(last.ActivePeripherals)

	us := tl.Utilization(cat)
	chk.Len(us, 2)
	chk.Equal("c0", us[0].Core)
	chk.Equal(nossim.Cycles(10), us[0].Busy)
	chk.InDelta(1.0, us[0].Fraction, 1e-9)
	chk.Equal("c1", us[1].Core)
	chk.Equal(nossim.Cycles(6), us[1].Busy)
	chk.InDelta(0.6, us[1].Fraction, 1e-9)

	t.Run("SustainedHardware", func(t *testing.T) {
		chk := require.New(t)
		cat := newCatalogue(t, specs)
		tl, err := nossim.Run(context.Background(), cat, nossim.FixedTiming{}, nossim.SymbolicExecution{}, nossim.SustainedHardware{})
		chk.NoError(err)
		chk.Equal(map[string][]string{"dev0": {"adc", "radio"}}, tl.Steps[1].ActivePeripherals)
		chk.Equal(map[string][]string{"dev0": {"radio"}}, tl.Steps[3].ActivePeripherals)
	})
}

func TestRunSameStepOutputsAreNotVisible(t *testing.T) {
	chk := require.New(t)
	cat := newCatalogue(t, nossim.DeviceSpec{
		Name:  "dev0",
		Cores: []nossim.CoreSpec{core("c0", "p"), core("c1", "c")},
		Tasks: map[string]nossim.TaskSpec{
			"p": fixed(0, nil, out("k", "dev0")),
			"c": fixed(1, []string{"k"}),
		},
	})
	tl, err := runFixed(t, cat)
	chk.NoError(err)
	chk.Len(tl.Steps, 2)
	chk.Equal(nossim.Cycles(0), tl.Steps[0].Duration)
	chk.Equal([]string{"p"}, tl.Steps[0].Started.Tasks())
	chk.Equal([]string{"c"}, tl.Steps[1].Started.Tasks())
	chk.Equal(nossim.Cycles(0), tl.Steps[1].Timestamp)
	chk.Equal(nossim.Cycles(1), tl.End)
}

func TestRunCoresDoNotShareCachedValues(t *testing.T) {
	chk := require.New(t)
	cat := newCatalogue(t, nossim.DeviceSpec{
		Name:  "dev0",
		Cores: []nossim.CoreSpec{core("c0", "a"), core("c1", "b")},
		Tasks: map[string]nossim.TaskSpec{
			"a": fixed(1, []string{"tok"}),
			"b": fixed(1, []string{"tok"}),
		},
		Cache: map[string][]nossim.Value{"tok": {"only"}},
	})
	tl, err := runFixed(t, cat)
	chk.NoError(err)
	chk.Len(tl.Steps, 1)
	chk.Equal([]string{"a"}, tl.Steps[0].Started.Tasks())
	chk.Equal([]nossim.Blocked{{
		Device:  "dev0",
		Core:    "c1",
		Task:    "b",
		Pending: 1,
		Missing: []nossim.Shortfall{{Key: "tok", Have: 0, Need: 1}},
	}}, tl.Blocked)
}

func TestRunDependencyCount(t *testing.T) {
	chk := require.New(t)
	cat := newCatalogue(t, nossim.DeviceSpec{
		Name:  "dev0",
		Cores: []nossim.CoreSpec{core("c0", "p", "p"), core("c1", "c")},
		Tasks: map[string]nossim.TaskSpec{
			"p": fixed(1, nil, out("k", "dev0")),
			"c": {
				Dependencies: []nossim.Dependency{{Key: "k", Count: 2}},
				Timing:       nossim.TimingSpec{Duration: 1},
			},
		},
	})
	tl, err := runFixed(t, cat)
	chk.NoError(err)
	chk.Len(tl.Steps, 3)
	c, ok := tl.Steps[2].Started.Get("dev0", "c1")
	chk.True(ok)
	chk.Equal(nossim.Cycles(2), c.Start)
	chk.Equal([]nossim.Value{1, 1}, c.Inputs.Get("k"))
}

func TestRunFrequencyAndLevels(t *testing.T) {
	spec := nossim.DeviceSpec{
		Name:  "dev0",
		Cores: []nossim.CoreSpec{{Name: "fast", Frequency: 2, Schedule: []string{"a"}}},
		Tasks: map[string]nossim.TaskSpec{
			"a": {Timing: nossim.TimingSpec{Duration: 10, Levels: map[string]nossim.Cycles{"level_1": 3}}},
		},
	}
	cases := []struct {
		name   string
		timing nossim.Timing
		end    nossim.Cycles
	}{
		{"Fixed", nossim.FixedTiming{}, 5},
		{"Level", nossim.FixedTiming{Level: "level_1"}, 1.5},
		{"MissingLevel", nossim.FixedTiming{Level: "level_9"}, 5},
		{"Unit", nossim.UnitTiming{}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chk := require.New(t)
			cat := newCatalogue(t, spec)
			tl, err := nossim.Run(context.Background(), cat, tc.timing, nossim.SymbolicExecution{}, nossim.StartedHardware{})
			chk.NoError(err)
			chk.Equal(tc.end, tl.End)
		})
	}
}

func TestRunStepLimit(t *testing.T) {
	chk := require.New(t)
	cat := newCatalogue(t, nossim.DeviceSpec{
		Name:  "dev0",
		Cores: []nossim.CoreSpec{core("c0", "a", "a", "a")},
		Tasks: map[string]nossim.TaskSpec{"a": fixed(1, nil)},
	})
	tl, err := runFixed(t, cat, nossim.WithMaxSteps(2))
	chk.ErrorIs(err, nossim.ErrStepLimit)
	var re *nossim.RunError
	chk.True(errors.As(err, &re))
	chk.Equal(2, re.Step)
	chk.Len(tl.Steps, 2)
	chk.Equal(nossim.Cycles(2), tl.End)

	// The task refused by the limit is still queued.
	chk.Equal(1, cat.Pending())
	chk.Equal([]nossim.Blocked{{Device: "dev0", Core: "c0", Task: "a", Pending: 1}}, tl.Blocked)

	t.Run("Exact", func(t *testing.T) {
		chk := require.New(t)
		cat := newCatalogue(t, nossim.DeviceSpec{
			Name:  "dev0",
			Cores: []nossim.CoreSpec{core("c0", "stuck"), core("c1", "x", "y")},
			Tasks: map[string]nossim.TaskSpec{
				"stuck": fixed(1, []string{"ghost"}),
				"x":     fixed(1, nil),
				"y":     fixed(2, nil),
			},
		})
		tl, err := runFixed(t, cat, nossim.WithMaxSteps(2))
		chk.NoError(err)
		chk.Len(tl.Steps, 2)
		chk.Len(tl.Blocked, 1)
	})

	t.Run("Running", func(t *testing.T) {
		chk := require.New(t)
		cat := newCatalogue(t, nossim.DeviceSpec{
			Name:  "dev0",
			Cores: []nossim.CoreSpec{core("c0", "long"), core("c1", "short")},
			Tasks: map[string]nossim.TaskSpec{
				"long":  fixed(10, nil),
				"short": fixed(2, nil),
			},
		})
		tl, err := runFixed(t, cat, nossim.WithMaxSteps(1))
		chk.ErrorIs(err, nossim.ErrStepLimit)
		chk.Len(tl.Steps, 1)
		chk.Equal(0, cat.Pending())
	})
}

func TestRunFrequencyTies(t *testing.T) {
	chk := require.New(t)
	specs := []nossim.DeviceSpec{{
		Name: "dev0",
		Cores: []nossim.CoreSpec{
			{Name: "slow", Frequency: 1, Schedule: []string{"long"}},
			{Name: "fast", Frequency: 3, Schedule: []string{"s", "s", "s"}},
		},
		Tasks: map[string]nossim.TaskSpec{
			"long": fixed(1, nil),
			"s":    fixed(1, nil),
		},
	}}
	cat, err := nossim.NewCatalogue(specs, nil)
	chk.NoError(err)
	tl, err := runFixed(t, cat)
	chk.NoError(err)

	// Three thirds end together with the one-cycle task.
	chk.Len(tl.Steps, 3)
	chk.Equal(nossim.Cycles(1), tl.End)
	last := tl.Steps[2]
	chk.Equal([]string{"long", "s"}, last.Ending.Tasks())
	chk.Equal(nossim.Cycles(1), last.End())
	for _, o := range last.Ending {
		chk.Equal(nossim.Cycles(0), o.Left)
		chk.Equal(last.End(), o.End())
	}
	long, ok := tl.Steps[1].Running.Get("dev0", "slow")
	chk.True(ok)
	chk.Greater(long.Left, nossim.Cycles(0))

	chk.Equal(sim.EstimateNetwork(specs), sim.ResultOf(tl, cat))
}

// drainingTiming empties a cache key after the heads gated on it have
// started, so that consumption finds the key missing.
type drainingTiming struct {
	nossim.FixedTiming
	device string
	key    string
}

func (dt drainingTiming) Advance(cat *nossim.Catalogue, prev, step *nossim.Step) (bool, error) {
	more, err := dt.FixedTiming.Advance(cat, prev, step)
	d, _ := cat.Device(dt.device)
	d.Cache().Take(dt.key, d.Cache().Len(dt.key))
	return more, err
}

func TestRunDependencyMissing(t *testing.T) {
	chk := require.New(t)
	ctx := context.Background()
	cat := newCatalogue(t, nossim.DeviceSpec{
		Name:  "dev0",
		Cores: []nossim.CoreSpec{core("c0", "use")},
		Tasks: map[string]nossim.TaskSpec{"use": fixed(1, []string{"k"})},
		Cache: map[string][]nossim.Value{"k": {"v"}},
	})
	s, err := nossim.NewSimulation(cat, drainingTiming{device: "dev0", key: "k"}, nossim.SymbolicExecution{}, nossim.StartedHardware{})
	chk.NoError(err)

	step, ok, err := s.Next(ctx)
	chk.Nil(step)
	chk.False(ok)
	chk.ErrorIs(err, nossim.ErrDependencyMissing)
	var re *nossim.RunError
	chk.True(errors.As(err, &re))
	chk.Equal(0, re.Step)
	chk.Equal("dev0", re.Device)
	chk.Equal("c0", re.Core)
	chk.Equal("use", re.Task)
	chk.True(s.Done())

	_, _, err2 := s.Next(ctx)
	chk.Equal(err, err2)
}

func TestHardwareOmitsIdleDevices(t *testing.T) {
	strategies := map[string]nossim.Hardware{
		"Started":   nossim.StartedHardware{},
		"Sustained": nossim.SustainedHardware{},
	}
	for name, hw := range strategies {
		t.Run(name, func(t *testing.T) {
			chk := require.New(t)
			cat := newCatalogue(t,
				nossim.DeviceSpec{
					Name:  "a",
					Cores: []nossim.CoreSpec{core("c0", "measure")},
					Tasks: map[string]nossim.TaskSpec{"measure": {Timing: nossim.TimingSpec{Duration: 1}, Hardware: []string{"adc"}}},
				},
				nossim.DeviceSpec{
					Name:  "b",
					Cores: []nossim.CoreSpec{core("c0", "think")},
					Tasks: map[string]nossim.TaskSpec{"think": fixed(1, nil)},
				},
			)
			tl, err := nossim.Run(context.Background(), cat, nossim.FixedTiming{}, nossim.SymbolicExecution{}, hw)
			chk.NoError(err)
			chk.Len(tl.Steps, 1)
			chk.Equal(map[string][]string{"a": {"adc"}}, tl.Steps[0].ActivePeripherals)
			b, err := json.Marshal(tl.Steps[0].ActivePeripherals)
			chk.NoError(err)
			chk.JSONEq(`{"a":["adc"]}`, string(b))
		})
	}
}

func TestRunStrategyErrors(t *testing.T) {
	t.Run("NegativeFuncDuration", func(t *testing.T) {
		chk := require.New(t)
		cat := newCatalogue(t, nossim.DeviceSpec{
			Name:  "dev0",
			Cores: []nossim.CoreSpec{core("c0", "a")},
			Tasks: map[string]nossim.TaskSpec{"a": {Timing: nossim.TimingSpec{
				DurationFunc: func(nossim.Inputs) (nossim.Cycles, error) { return -1, nil },
			}}},
		})
		_, err := nossim.Run(context.Background(), cat, nossim.FuncTiming{}, nossim.SymbolicExecution{}, nossim.StartedHardware{})
		chk.ErrorIs(err, nossim.ErrInvalidDuration)
		var re *nossim.RunError
		chk.True(errors.As(err, &re))
		chk.Equal("a", re.Task)
		chk.Equal("c0", re.Core)
	})

	t.Run("MissingDurationFunc", func(t *testing.T) {
		chk := require.New(t)
		cat := newCatalogue(t, nossim.DeviceSpec{
			Name:  "dev0",
			Cores: []nossim.CoreSpec{core("c0", "a")},
			Tasks: map[string]nossim.TaskSpec{"a": fixed(1, nil)},
		})
		_, err := nossim.NewSimulation(cat, nossim.FuncTiming{}, nossim.SymbolicExecution{}, nossim.StartedHardware{})
		chk.ErrorIs(err, nossim.ErrMissingRule)
		var se *nossim.SpecError
		chk.True(errors.As(err, &se))
		chk.Equal("a", se.Task)
	})

	t.Run("OutputArity", func(t *testing.T) {
		chk := require.New(t)
		cat := newCatalogue(t, nossim.DeviceSpec{
			Name:  "dev0",
			Cores: []nossim.CoreSpec{core("c0", "a")},
			Tasks: map[string]nossim.TaskSpec{"a": {
				Timing:  nossim.TimingSpec{Duration: 1},
				Outputs: []nossim.Output{out("k", "dev0")},
				OutputFunc: func(nossim.Inputs) ([]nossim.Value, error) {
					return []nossim.Value{1, 2}, nil
				},
			}},
		})
		tl, err := nossim.Run(context.Background(), cat, nossim.FixedTiming{}, nossim.ValueExecution{}, nossim.StartedHardware{})
		chk.ErrorIs(err, nossim.ErrOutputArity)
		chk.Empty(tl.Steps)
	})

	t.Run("MissingOutputFunc", func(t *testing.T) {
		chk := require.New(t)
		cat := newCatalogue(t, nossim.DeviceSpec{
			Name:  "dev0",
			Cores: []nossim.CoreSpec{core("c0", "a")},
			Tasks: map[string]nossim.TaskSpec{"a": fixed(1, nil, out("k", "dev0"))},
		})
		_, err := nossim.NewSimulation(cat, nossim.FixedTiming{}, nossim.ValueExecution{}, nossim.StartedHardware{})
		chk.ErrorIs(err, nossim.ErrMissingRule)
	})
}

func TestSimulationNext(t *testing.T) {
	chk := require.New(t)
	ctx := context.Background()
	cat := newCatalogue(t, nossim.DeviceSpec{
		Name:  "dev0",
		Cores: []nossim.CoreSpec{core("c0", "a", "b")},
		Tasks: map[string]nossim.TaskSpec{"a": fixed(2, nil), "b": fixed(3, nil)},
	})
	sim, err := nossim.NewSimulation(cat, nossim.FixedTiming{}, nossim.SymbolicExecution{}, nossim.StartedHardware{})
	chk.NoError(err)
	chk.Same(cat, sim.Catalogue())

	step, ok, err := sim.Next(ctx)
	chk.NoError(err)
	chk.True(ok)
	chk.Equal(0, step.Index)
	chk.Equal(nossim.Cycles(2), sim.Now())
	chk.False(sim.Done())

	step, ok, err = sim.Next(ctx)
	chk.NoError(err)
	chk.True(ok)
	chk.Equal(1, step.Index)
	chk.Equal(nossim.Cycles(5), sim.Now())

	step, ok, err = sim.Next(ctx)
	chk.NoError(err)
	chk.False(ok)
	chk.Nil(step)
	chk.True(sim.Done())

	_, ok, err = sim.Next(ctx)
	chk.NoError(err)
	chk.False(ok)
}

func TestSimulationStepsConsumedOnce(t *testing.T) {
	chk := require.New(t)
	ctx := context.Background()
	cat := newCatalogue(t, nossim.DeviceSpec{
		Name:  "dev0",
		Cores: []nossim.CoreSpec{core("c0", "a", "a")},
		Tasks: map[string]nossim.TaskSpec{"a": fixed(1, nil)},
	})
	sim, err := nossim.NewSimulation(cat, nossim.FixedTiming{}, nossim.SymbolicExecution{}, nossim.StartedHardware{})
	chk.NoError(err)

	n := 0
	for _, err := range sim.Steps(ctx) {
		chk.NoError(err)
		n++
	}
	chk.Equal(2, n)

	var errs []error
	for step, err := range sim.Steps(ctx) {
		chk.Nil(step)
		errs = append(errs, err)
	}
	chk.Len(errs, 1)
	chk.ErrorIs(errs[0], nossim.ErrConsumed)
}

func TestSimulationCanceled(t *testing.T) {
	chk := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cat := newCatalogue(t, nossim.DeviceSpec{
		Name:  "dev0",
		Cores: []nossim.CoreSpec{core("c0", "a")},
		Tasks: map[string]nossim.TaskSpec{"a": fixed(1, nil)},
	})
	sim, err := nossim.NewSimulation(cat, nossim.FixedTiming{}, nossim.SymbolicExecution{}, nossim.StartedHardware{})
	chk.NoError(err)
	_, _, err = sim.Next(ctx)
	chk.ErrorIs(err, context.Canceled)
	chk.True(sim.Done())

	// Errors are sticky.
	_, _, err2 := sim.Next(context.Background())
	chk.Equal(err, err2)
	chk.Equal(1, cat.Pending())
}

func TestRunDeterministic(t *testing.T) {
	chk := require.New(t)
	cat := newCatalogue(t,
		nossim.DeviceSpec{
			Name:  "a",
			Cores: []nossim.CoreSpec{core("c0", "p", "p"), core("c1", "q")},
			Tasks: map[string]nossim.TaskSpec{
				"p": fixed(2, nil, out("x", "a", "b")),
				"q": fixed(3, []string{"x"}),
			},
		},
		nossim.DeviceSpec{
			Name:  "b",
			Cores: []nossim.CoreSpec{core("c0", "r", "r")},
			Tasks: map[string]nossim.TaskSpec{"r": fixed(1, []string{"x"}, out("y", "a"))},
		},
	)
	first, err := runFixed(t, cat.Clone())
	chk.NoError(err)
	second, err := runFixed(t, cat.Clone())
	chk.NoError(err)

	d1, err := first.Digest()
	chk.NoError(err)
	d2, err := second.Digest()
	chk.NoError(err)
	chk.Equal(d1, d2)
	chk.Equal(timestamps(first), timestamps(second))

	// The original was never run.
	chk.Equal(5, cat.Pending())
}

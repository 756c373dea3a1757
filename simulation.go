// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package nossim

import (
	"context"
	"errors"
	"iter"

	"go.uber.org/zap"
)

// A Simulation drives a [Catalogue] through a sequence of steps using one
// timing, one execution and one hardware strategy. It owns the simulated clock
// and nothing else: queues and caches live in the catalogue, which the
// simulation mutates as it runs.
//
// A Simulation is not safe for concurrent use.
type Simulation struct {
	cat           *Catalogue
	timing        Timing
	execution     Execution
	hardware      Hardware
	maxSteps      int
	failOnBlocked bool
	logger        *zap.Logger

	clock     Cycles
	prev      *Step
	count     int
	done      bool
	err       error
	iterating bool
}

// Option configures a [Simulation].
type Option func(*Simulation)

// WithMaxSteps limits the number of steps a simulation may produce. If more
// work remains after n steps the simulation fails with [ErrStepLimit]. Zero
// means no limit.
func WithMaxSteps(n int) Option {
	if n < 0 {
		panic("negative step limit")
	}
	return func(s *Simulation) {
		s.maxSteps = n
	}
}

// WithLogger sets the logger used to report progress. The default discards
// everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Simulation) {
		if logger == nil {
			logger = zap.NewNop()
		}
		s.logger = logger
	}
}

// WithFailOnBlocked makes a simulation that ends with tasks still queued fail
// with [ErrStalled] instead of only logging a warning.
func WithFailOnBlocked(fail bool) Option {
	return func(s *Simulation) {
		s.failOnBlocked = fail
	}
}

// NewSimulation prepares a simulation of cat. Strategies implementing
// [Validator] are given the chance to reject the catalogue before anything
// runs.
func NewSimulation(cat *Catalogue, timing Timing, execution Execution, hardware Hardware, opts ...Option) (*Simulation, error) {
	if cat == nil {
		panic("nil catalogue")
	}
	if timing == nil || execution == nil || hardware == nil {
		panic("nil strategy")
	}
	s := &Simulation{
		cat:       cat,
		timing:    timing,
		execution: execution,
		hardware:  hardware,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, strategy := range []any{timing, execution, hardware} {
		if v, ok := strategy.(Validator); ok {
			if err := v.Validate(cat); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// Catalogue returns the catalogue being simulated.
func (s *Simulation) Catalogue() *Catalogue {
	return s.cat
}

// Now returns the simulated time: the end of the last step produced.
func (s *Simulation) Now() Cycles {
	return s.clock
}

// Done reports whether the simulation has reached the end of its schedule or
// failed.
func (s *Simulation) Done() bool {
	return s.done || s.err != nil
}

// Next produces the next step. It returns false once no task is running and no
// queued task can start. After an error every call returns the same error.
func (s *Simulation) Next(ctx context.Context) (*Step, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	if s.done {
		return nil, false, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, false, s.fail(err)
	}
	// Checked before Advance so that tasks refused by the limit stay queued.
	if s.maxSteps > 0 && s.count >= s.maxSteps && s.workRemains() {
		return nil, false, s.fail(ErrStepLimit)
	}

	step := &Step{
		Index:     s.count,
		Timestamp: s.clock,
	}
	more, err := s.timing.Advance(s.cat, s.prev, step)
	if err != nil {
		return nil, false, s.fail(err)
	}
	if !more {
		return nil, false, s.finish()
	}
	if err := s.execution.Settle(s.cat, step); err != nil {
		return nil, false, s.fail(err)
	}
	if err := s.hardware.Observe(s.cat, step); err != nil {
		return nil, false, s.fail(err)
	}
	if len(step.Started) == 0 && len(step.Ending) == 0 {
		return nil, false, s.fail(&StallError{Blocked: s.cat.Blocked()})
	}

	s.clock = step.End()
	s.prev = step
	s.count++
	if ce := s.logger.Check(zap.DebugLevel, "step"); ce != nil {
		ce.Write(
			zap.Int("index", step.Index),
			zap.Float64("timestamp", float64(step.Timestamp)),
			zap.Float64("duration", float64(step.Duration)),
			zap.Strings("started", step.Started.Tasks()),
			zap.Strings("running", step.Running.Tasks()),
			zap.Strings("ending", step.Ending.Tasks()),
		)
	}
	return step, true, nil
}

// Steps returns an iterator over the remaining steps. The sequence ends at the
// end of the schedule or after yielding an error. It can be ranged over only
// once; a second iteration yields [ErrConsumed].
func (s *Simulation) Steps(ctx context.Context) iter.Seq2[*Step, error] {
	return func(yield func(*Step, error) bool) {
		if s.iterating {
			yield(nil, ErrConsumed)
			return
		}
		s.iterating = true
		for {
			step, ok, err := s.Next(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok || !yield(step, nil) {
				return
			}
		}
	}
}

// workRemains reports whether another step would start or continue a task.
func (s *Simulation) workRemains() bool {
	if s.prev != nil {
		end := s.prev.End()
		for _, b := range []Bucket{s.prev.Started, s.prev.Running} {
			for i := range b {
				if b[i].End() > end {
					return true
				}
			}
		}
	}
	return s.cat.ready()
}

func (s *Simulation) finish() error {
	s.done = true
	blocked := s.cat.Blocked()
	if len(blocked) > 0 {
		if s.failOnBlocked {
			return s.fail(&StallError{Blocked: blocked})
		}
		for _, b := range blocked {
			s.logger.Warn("core blocked at end of schedule",
				zap.String("device", b.Device),
				zap.String("core", b.Core),
				zap.String("task", b.Task),
				zap.Int("queued", b.Pending),
			)
		}
	}
	s.logger.Info("simulation complete",
		zap.Int("steps", s.count),
		zap.Float64("end", float64(s.clock)),
		zap.Int("blocked", len(blocked)),
	)
	return nil
}

func (s *Simulation) fail(err error) error {
	var re *RunError
	if !errors.As(err, &re) {
		re = &RunError{Step: s.count, Err: err}
	}
	s.err = re
	s.logger.Error("simulation failed",
		zap.Int("step", re.Step),
		zap.String("device", re.Device),
		zap.String("task", re.Task),
		zap.Error(re.Err),
	)
	return re
}

// Run simulates cat to the end of its schedule and returns the timeline. On
// failure the timeline holds the steps produced before the error and the cores
// that still had queued tasks.
func Run(ctx context.Context, cat *Catalogue, timing Timing, execution Execution, hardware Hardware, opts ...Option) (*Timeline, error) {
	sim, err := NewSimulation(cat, timing, execution, hardware, opts...)
	if err != nil {
		return nil, err
	}
	tl := &Timeline{}
	for step, err := range sim.Steps(ctx) {
		if err != nil {
			tl.End = sim.Now()
			tl.Blocked = cat.Blocked()
			return tl, err
		}
		tl.Steps = append(tl.Steps, step)
	}
	tl.End = sim.Now()
	tl.Blocked = cat.Blocked()
	return tl, nil
}

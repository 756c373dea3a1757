// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otnos

import (
	"github.com/petenewcomb/nossim-go"
	"go.uber.org/zap"
)

type loggedTiming struct {
	operationName string
	timing        nossim.Timing
}

// LoggedTiming logs every task start at debug level, and failures at error
// level, using the global zap logger.
func LoggedTiming(operationName string, timing nossim.Timing) nossim.Timing {
	return &loggedTiming{operationName: operationName, timing: timing}
}

func (l *loggedTiming) Advance(cat *nossim.Catalogue, prev, step *nossim.Step) (bool, error) {
	logger := zap.L()
	more, err := l.timing.Advance(cat, prev, step)
	if err != nil {
		logger.Error("Advance failed",
			zap.String("operation", l.operationName),
			zap.String("component", "otnos"),
			zap.Int("step", step.Index),
			zap.Error(err))
		return more, err
	}
	for _, o := range step.Started {
		logger.Debug("Task started",
			zap.String("operation", l.operationName),
			zap.String("component", "otnos"),
			zap.String("device", o.Device),
			zap.String("core", o.Core),
			zap.String("task", o.Task),
			zap.Float64("start", float64(o.Start)),
			zap.Float64("duration", float64(o.Duration)))
	}
	return more, nil
}

func (l *loggedTiming) Validate(cat *nossim.Catalogue) error {
	return validate(l.timing, cat)
}

type loggedExecution struct {
	operationName string
	execution     nossim.Execution
}

// LoggedExecution logs every task end at debug level, and failures at error
// level, using the global zap logger.
func LoggedExecution(operationName string, execution nossim.Execution) nossim.Execution {
	return &loggedExecution{operationName: operationName, execution: execution}
}

func (l *loggedExecution) Settle(cat *nossim.Catalogue, step *nossim.Step) error {
	logger := zap.L()
	if err := l.execution.Settle(cat, step); err != nil {
		logger.Error("Settle failed",
			zap.String("operation", l.operationName),
			zap.String("component", "otnos"),
			zap.Int("step", step.Index),
			zap.Error(err))
		return err
	}
	for _, o := range step.Ending {
		logger.Debug("Task ended",
			zap.String("operation", l.operationName),
			zap.String("component", "otnos"),
			zap.String("device", o.Device),
			zap.String("core", o.Core),
			zap.String("task", o.Task),
			zap.Float64("end", float64(step.End())),
			zap.Int("results", len(o.Results)))
	}
	return nil
}

func (l *loggedExecution) Validate(cat *nossim.Catalogue) error {
	return validate(l.execution, cat)
}

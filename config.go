// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package nossim

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultConfig selects fixed timing, symbolic execution and started-task
// hardware with no step limit.
var DefaultConfig = Config{
	Timing:    "fixed",
	Execution: "symbolic",
	Hardware:  "started",
}

// Config selects strategies and run limits by name, so a run can be described
// in a file.
type Config struct {
	Timing    string `yaml:"timing"`
	Level     string `yaml:"level,omitempty"`
	Execution string `yaml:"execution"`
	// Placeholder is the value symbolic execution stores for every output.
	Placeholder   Value  `yaml:"placeholder,omitempty"`
	Hardware      string `yaml:"hardware"`
	MaxSteps      int    `yaml:"max_steps,omitempty"`
	FailOnBlocked bool   `yaml:"fail_on_blocked,omitempty"`
}

// LoadConfig decodes a YAML configuration from r on top of [DefaultConfig].
// Unknown fields are rejected.
func LoadConfig(r io.Reader) (Config, error) {
	c := DefaultConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("nossim: decoding config: %w", err)
	}
	if c.MaxSteps < 0 {
		return Config{}, fmt.Errorf("nossim: negative max_steps %d", c.MaxSteps)
	}
	return c, nil
}

// Strategies builds the strategies named by c. Unknown names fail with
// [ErrUnknownStrategy].
func (c *Config) Strategies() (Timing, Execution, Hardware, error) {
	timing, err := NewTiming(c.Timing, c.Level)
	if err != nil {
		return nil, nil, nil, err
	}
	execution, err := NewExecution(c.Execution)
	if err != nil {
		return nil, nil, nil, err
	}
	if se, ok := execution.(SymbolicExecution); ok && c.Placeholder != nil {
		se.Placeholder = c.Placeholder
		execution = se
	}
	hardware, err := NewHardware(c.Hardware)
	if err != nil {
		return nil, nil, nil, err
	}
	return timing, execution, hardware, nil
}

// Options returns the run options described by c.
func (c *Config) Options() []Option {
	return []Option{
		WithMaxSteps(c.MaxSteps),
		WithFailOnBlocked(c.FailOnBlocked),
	}
}

// Run simulates cat with the strategies and limits of c. Extra options are
// applied after the ones from c.
func (c *Config) Run(ctx context.Context, cat *Catalogue, logger *zap.Logger, opts ...Option) (*Timeline, error) {
	timing, execution, hardware, err := c.Strategies()
	if err != nil {
		return nil, err
	}
	opts = append(append(c.Options(), WithLogger(logger)), opts...)
	return Run(ctx, cat, timing, execution, hardware, opts...)
}

// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Command nossim runs a device specification file through the simulator and
// prints the resulting timeline as JSON.
//
//	nossim -spec devices.yaml [-config run.yaml] [-timing fixed] [-digest]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/petenewcomb/nossim-go"
	"github.com/petenewcomb/nossim-go/otnos"
	"github.com/petenewcomb/nossim-go/specfile"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "nossim:", err)
		}
		os.Exit(1)
	}
}

type options struct {
	spec      string
	config    string
	timing    string
	level     string
	execution string
	hardware  string
	maxSteps  int
	digest    bool
	trace     bool
	verbose   bool
}

func parse(args []string, stderr io.Writer) (*options, map[string]bool, error) {
	var o options
	fs := flag.NewFlagSet("nossim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.spec, "spec", "", "device specification `file` (.json, .yaml or .yml)")
	fs.StringVar(&o.config, "config", "", "YAML run configuration `file`")
	fs.StringVar(&o.timing, "timing", "", "timing strategy (unit, fixed, func or v0.0, v0.1, v0.2)")
	fs.StringVar(&o.level, "level", "", "timing level for fixed timing")
	fs.StringVar(&o.execution, "execution", "", "execution strategy (symbolic, value)")
	fs.StringVar(&o.hardware, "hardware", "", "hardware strategy (started, sustained)")
	fs.IntVar(&o.maxSteps, "max-steps", 0, "stop with an error after this many steps (0 means no limit)")
	fs.BoolVar(&o.digest, "digest", false, "print only the timeline digest")
	fs.BoolVar(&o.trace, "trace", false, "write OpenTelemetry spans to stderr")
	fs.BoolVar(&o.verbose, "v", false, "log every step")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if fs.NArg() > 0 {
		return nil, nil, errors.Errorf("unexpected arguments %q", fs.Args())
	}
	if o.spec == "" {
		return nil, nil, errors.New("-spec is required")
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return &o, set, nil
}

// loadConfig reads the configuration file, if any, and applies the flags that
// were given on top of it.
func loadConfig(o *options, set map[string]bool) (nossim.Config, error) {
	c := nossim.DefaultConfig
	if o.config != "" {
		f, err := os.Open(o.config)
		if err != nil {
			return c, errors.Wrap(err, "reading config")
		}
		defer f.Close()
		c, err = nossim.LoadConfig(f)
		if err != nil {
			return c, errors.Wrap(err, o.config)
		}
	}
	if set["timing"] {
		c.Timing = o.timing
	}
	if set["level"] {
		c.Level = o.level
	}
	if set["execution"] {
		c.Execution = o.execution
	}
	if set["hardware"] {
		c.Hardware = o.hardware
	}
	if set["max-steps"] {
		if o.maxSteps < 0 {
			return c, errors.Errorf("negative -max-steps %d", o.maxSteps)
		}
		c.MaxSteps = o.maxSteps
	}
	return c, nil
}

func newLogger(w io.Writer, verbose bool) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	level := zapcore.InfoLevel
	if verbose {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(w), level)
	return zap.New(core)
}

type report struct {
	Timeline    *nossim.Timeline     `json:"timeline"`
	Utilization []nossim.Utilization `json:"utilization"`
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, set, err := parse(args, stderr)
	if err != nil {
		return err
	}
	config, err := loadConfig(o, set)
	if err != nil {
		return err
	}
	specs, err := specfile.Load(o.spec)
	if err != nil {
		return err
	}
	cat, err := nossim.NewCatalogue(specs, builtins())
	if err != nil {
		return err
	}

	logger := newLogger(stderr, o.verbose)
	defer logger.Sync() //nolint:errcheck

	var tl *nossim.Timeline
	if o.trace {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(stderr))
		if err != nil {
			return err
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
		defer tp.Shutdown(context.Background()) //nolint:errcheck
		otel.SetTracerProvider(tp)
		defer zap.ReplaceGlobals(logger)()

		timing, execution, hardware, err := config.Strategies()
		if err != nil {
			return err
		}
		opts := append(config.Options(), nossim.WithLogger(logger))
		tl, err = otnos.Run(ctx, "nossim", cat, timing, execution, hardware, opts...)
		if err != nil {
			return err
		}
	} else {
		tl, err = config.Run(ctx, cat, logger)
		if err != nil {
			return err
		}
	}

	if o.digest {
		d, err := tl.Digest()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(stdout, "%016x\n", d)
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report{Timeline: tl, Utilization: tl.Utilization(cat)})
}

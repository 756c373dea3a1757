// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package main

import (
	"github.com/petenewcomb/nossim-go"
	"github.com/pkg/errors"
)

// builtins returns the functions that specification files may name.
//
// Durations:
//
//	count  one cycle per consumed value
//	sum    the sum of the consumed values, which must be numbers
//
// Outputs:
//
//	passthrough  the consumed values in dependency order, one per output
//	constant     a single 1
func builtins() *nossim.Registry {
	return nossim.NewRegistry().
		RegisterDuration("count", func(in nossim.Inputs) (nossim.Cycles, error) {
			return nossim.Cycles(in.Count()), nil
		}).
		RegisterDuration("sum", func(in nossim.Inputs) (nossim.Cycles, error) {
			var total float64
			for _, v := range in.Flat() {
				x, err := number(v)
				if err != nil {
					return 0, err
				}
				total += x
			}
			return nossim.Cycles(total), nil
		}).
		RegisterOutput("passthrough", func(in nossim.Inputs) ([]nossim.Value, error) {
			return in.Flat(), nil
		}).
		RegisterOutput("constant", func(nossim.Inputs) ([]nossim.Value, error) {
			return []nossim.Value{1}, nil
		})
}

// number converts the numeric types produced by the JSON and YAML decoders.
func number(v nossim.Value) (float64, error) {
	switch x := v.(type) {
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case float64:
		return x, nil
	default:
		return 0, errors.Errorf("not a number: %v (%T)", v, v)
	}
}

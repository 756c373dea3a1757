// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package nossim

// Registry maps names used in device specifications to duration and output
// functions. Names are resolved once, when a [Catalogue] is built.
//
// The zero value is an empty registry ready to use.
type Registry struct {
	durations map[string]DurationFunc
	outputs   map[string]OutputFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// RegisterDuration binds name to fn, replacing any previous binding. Returns
// the registry to allow chaining.
func (r *Registry) RegisterDuration(name string, fn DurationFunc) *Registry {
	if fn == nil {
		panic("nil DurationFunc")
	}
	if r.durations == nil {
		r.durations = make(map[string]DurationFunc)
	}
	r.durations[name] = fn
	return r
}

// RegisterOutput binds name to fn, replacing any previous binding. Returns the
// registry to allow chaining.
func (r *Registry) RegisterOutput(name string, fn OutputFunc) *Registry {
	if fn == nil {
		panic("nil OutputFunc")
	}
	if r.outputs == nil {
		r.outputs = make(map[string]OutputFunc)
	}
	r.outputs[name] = fn
	return r
}

// Duration returns the duration function bound to name.
func (r *Registry) Duration(name string) (DurationFunc, bool) {
	if r == nil {
		return nil, false
	}
	fn, ok := r.durations[name]
	return fn, ok
}

// Output returns the output function bound to name.
func (r *Registry) Output(name string) (OutputFunc, bool) {
	if r == nil {
		return nil, false
	}
	fn, ok := r.outputs[name]
	return fn, ok
}

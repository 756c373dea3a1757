// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package nossim

import (
	"slices"

	"github.com/gammazero/deque"
)

// Cache is a device's store of available resource values. Each key holds a
// FIFO of values: the first value produced is the first consumed.
//
// The zero value is an empty cache ready to use.
type Cache struct {
	entries map[string]*deque.Deque[Value]
}

// Len returns the number of values available for key.
func (c *Cache) Len(key string) int {
	q := c.entries[key]
	if q == nil {
		return 0
	}
	return q.Len()
}

// Peek returns n values for key starting at offset without removing them.
// Returns false if fewer than offset+n values are available.
func (c *Cache) Peek(key string, offset, n int) ([]Value, bool) {
	if offset < 0 || n < 0 || c.Len(key) < offset+n {
		return nil, false
	}
	q := c.entries[key]
	vals := make([]Value, n)
	for i := range n {
		vals[i] = q.At(offset + i)
	}
	return vals, true
}

// Take removes and returns the first n values for key. Nothing is removed if
// fewer than n values are available.
func (c *Cache) Take(key string, n int) ([]Value, bool) {
	if n < 0 || c.Len(key) < n {
		return nil, false
	}
	q := c.entries[key]
	vals := make([]Value, n)
	for i := range n {
		vals[i] = q.PopFront()
	}
	return vals, true
}

// Put appends a value for key.
func (c *Cache) Put(key string, v Value) {
	if c.entries == nil {
		c.entries = make(map[string]*deque.Deque[Value])
	}
	q := c.entries[key]
	if q == nil {
		q = &deque.Deque[Value]{}
		c.entries[key] = q
	}
	q.PushBack(v)
}

// Keys returns the sorted keys that currently hold at least one value.
func (c *Cache) Keys() []string {
	keys := make([]string, 0, len(c.entries))
	for k, q := range c.entries {
		if q.Len() > 0 {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// Snapshot returns a copy of the cache contents.
func (c *Cache) Snapshot() map[string][]Value {
	snap := make(map[string][]Value, len(c.entries))
	for _, k := range c.Keys() {
		vals, _ := c.Peek(k, 0, c.Len(k))
		snap[k] = vals
	}
	return snap
}

func (c *Cache) clone() *Cache {
	n := &Cache{}
	for _, k := range c.Keys() {
		q := c.entries[k]
		for i := range q.Len() {
			n.Put(k, q.At(i))
		}
	}
	return n
}

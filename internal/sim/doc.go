// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package sim generates random device networks for property-based testing
// and predicts how they should run. A network is a set of device
// specifications whose tasks depend on and produce values under a shared pool
// of cache keys, so generated schedules exercise gating, cross-device delivery
// and blocking. Networks are drawn according to a set of configuration
// parameters that determine their size and how densely tasks are connected.
//
// [EstimateNetwork] is a reference model of the stepping rules written
// directly against the specifications, without strategies or buckets. Its
// [Result] can be compared with the one [ResultOf] extracts from a timeline.
package sim

// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sim

var DefaultConfig = Config{
	Device: DeviceConfig{
		Count:       BiasedIntConfig{Min: 1, Med: 2, Max: 4},
		CoreCount:   BiasedIntConfig{Min: 1, Med: 2, Max: 3},
		Frequencies: []float64{1, 2, 3, 4},
	},
	Key: KeyConfig{
		Count:   BiasedIntConfig{Min: 1, Med: 2, Max: 4},
		Initial: BiasedIntConfig{Min: 0, Med: 0, Max: 2},
	},
	Task: TaskConfig{
		Count:           BiasedIntConfig{Min: 1, Med: 3, Max: 6},
		Duration:        BiasedIntConfig{Min: 0, Med: 4, Max: 20},
		Depend:          BiasedBoolConfig{Probability: 0.3},
		DependencyCount: BiasedIntConfig{Min: 1, Med: 1, Max: 3},
		Produce:         BiasedBoolConfig{Probability: 0.4},
		Peripherals:     []string{"adc", "led", "radio"},
	},
	Schedule: ScheduleConfig{
		Length: BiasedIntConfig{Min: 0, Med: 3, Max: 8},
	},
}

type Config struct {
	Device   DeviceConfig
	Key      KeyConfig
	Task     TaskConfig
	Schedule ScheduleConfig
}

type DeviceConfig struct {
	Count     BiasedIntConfig
	CoreCount BiasedIntConfig
	// Frequencies include 3 so that scaled durations are not always exact.
	Frequencies []float64
}

type KeyConfig struct {
	Count BiasedIntConfig
	// Initial is the number of values each device starts with per key.
	Initial BiasedIntConfig
}

type TaskConfig struct {
	// Count is the number of task descriptors per device.
	Count           BiasedIntConfig
	Duration        BiasedIntConfig
	Depend          BiasedBoolConfig
	DependencyCount BiasedIntConfig
	Produce         BiasedBoolConfig
	Peripherals     []string
}

type ScheduleConfig struct {
	Length BiasedIntConfig
}

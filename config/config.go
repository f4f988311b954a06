// Package config provides YAML-based machine configuration: serial
// link settings, traverse geometry and limits, spindle parameters,
// and winding job defaults. Firmware targets bake Default() in;
// the host tool loads a file and overrides it.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Serial struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

type Scheduler struct {
	TickPeriodUS uint32 `yaml:"tick_period_us"`
}

type Traverse struct {
	StepsPerMM      float64 `yaml:"steps_per_mm"`
	MaxTravelMM     float64 `yaml:"max_travel_mm"`
	MaxFeedMMPerMin float64 `yaml:"max_feed_mm_per_min"`
	RapidSpeedSPS   float64 `yaml:"rapid_speed_steps_per_sec"`
	RapidAccelSPS2  float64 `yaml:"rapid_accel_steps_per_sec2"`
	HomingSpeedSPS  float64 `yaml:"homing_speed_steps_per_sec"`
	HomingTimeoutS  float64 `yaml:"homing_timeout_sec"`
}

type Spindle struct {
	MaxRPM        float32 `yaml:"max_rpm"`
	MinRPM        float32 `yaml:"min_rpm"`
	RampRPMPerSec float32 `yaml:"ramp_rpm_per_sec"`
	PulsesPerRev  float32 `yaml:"hall_pulses_per_rev"`
	DebounceUS    uint32  `yaml:"hall_debounce_us"`
	StallUS       uint32  `yaml:"hall_stall_us"`
	Smoothing     float32 `yaml:"rpm_smoothing"`
}

type Winding struct {
	TargetTurns    uint32  `yaml:"target_turns"`
	SpindleRPM     float32 `yaml:"spindle_rpm"`
	WireDiameterMM float64 `yaml:"wire_diameter_mm"`
	WidthMM        float64 `yaml:"width_mm"`
	StartPosMM     float64 `yaml:"start_pos_mm"`
}

type Machine struct {
	Serial    Serial    `yaml:"serial"`
	Scheduler Scheduler `yaml:"scheduler"`
	Traverse  Traverse  `yaml:"traverse"`
	Spindle   Spindle   `yaml:"spindle"`
	Winding   Winding   `yaml:"winding"`
}

// Default returns the configuration matching the stock SKR Pico
// build: 1.8 degree stepper at 16x microstepping on an 8 mm lead
// screw, 18 pole pair Hall feedback, 0 to 3000 RPM spindle.
func Default() Machine {
	return Machine{
		Serial: Serial{
			Port: "/dev/ttyUSB0",
			Baud: 115200,
		},
		Scheduler: Scheduler{
			TickPeriodUS: 100,
		},
		Traverse: Traverse{
			StepsPerMM:      400,
			MaxTravelMM:     200,
			MaxFeedMMPerMin: 3000,
			RapidSpeedSPS:   3000,
			RapidAccelSPS2:  5000,
			HomingSpeedSPS:  1500,
			HomingTimeoutS:  15,
		},
		Spindle: Spindle{
			MaxRPM:        3000,
			MinRPM:        0,
			RampRPMPerSec: 300,
			PulsesPerRev:  18,
			DebounceUS:    200,
			StallUS:       500000,
			Smoothing:     0.1,
		},
		Winding: Winding{
			TargetTurns:    1000,
			SpindleRPM:     120,
			WireDiameterMM: 0.064,
			WidthMM:        50,
			StartPosMM:     20,
		},
	}
}

// Load reads a YAML machine configuration. Missing keys keep their
// defaults; present keys must validate.
func Load(path string) (Machine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Machine{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (Machine, error) {
	m := Default()
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Machine{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Machine{}, fmt.Errorf("config validation failed: %w", err)
	}
	return m, nil
}

func (m *Machine) Validate() error {
	if m.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive, got %d", m.Serial.Baud)
	}
	if m.Scheduler.TickPeriodUS == 0 || m.Scheduler.TickPeriodUS > 1000 {
		return fmt.Errorf("scheduler.tick_period_us must be in 1..1000, got %d", m.Scheduler.TickPeriodUS)
	}
	if m.Traverse.StepsPerMM <= 0 {
		return fmt.Errorf("traverse.steps_per_mm must be positive")
	}
	if m.Traverse.MaxTravelMM <= 0 {
		return fmt.Errorf("traverse.max_travel_mm must be positive")
	}
	if m.Traverse.MaxFeedMMPerMin <= 0 {
		return fmt.Errorf("traverse.max_feed_mm_per_min must be positive")
	}
	if m.Traverse.RapidSpeedSPS <= 0 || m.Traverse.RapidAccelSPS2 <= 0 {
		return fmt.Errorf("traverse rapid speed and accel must be positive")
	}
	if m.Traverse.HomingSpeedSPS <= 0 || m.Traverse.HomingTimeoutS <= 0 {
		return fmt.Errorf("traverse homing speed and timeout must be positive")
	}
	if m.Spindle.MaxRPM <= 0 {
		return fmt.Errorf("spindle.max_rpm must be positive")
	}
	if m.Spindle.MinRPM < 0 || m.Spindle.MinRPM > m.Spindle.MaxRPM {
		return fmt.Errorf("spindle.min_rpm must be in 0..max_rpm")
	}
	if m.Spindle.RampRPMPerSec <= 0 {
		return fmt.Errorf("spindle.ramp_rpm_per_sec must be positive")
	}
	if m.Spindle.PulsesPerRev <= 0 {
		return fmt.Errorf("spindle.hall_pulses_per_rev must be positive")
	}
	if m.Spindle.Smoothing <= 0 || m.Spindle.Smoothing > 1 {
		return fmt.Errorf("spindle.rpm_smoothing must be in (0,1]")
	}
	if m.Winding.WireDiameterMM <= 0 || m.Winding.WidthMM <= 0 {
		return fmt.Errorf("winding wire diameter and width must be positive")
	}
	if m.Winding.StartPosMM < 0 ||
		m.Winding.StartPosMM+m.Winding.WidthMM > m.Traverse.MaxTravelMM {
		return fmt.Errorf("winding window exceeds traverse travel")
	}
	if m.Winding.SpindleRPM <= 0 || m.Winding.SpindleRPM > m.Spindle.MaxRPM {
		return fmt.Errorf("winding.spindle_rpm must be in (0,max_rpm]")
	}
	return nil
}

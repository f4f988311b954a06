package config

import (
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	m := Default()
	if err := m.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if m.Traverse.StepsPerMM != 400 {
		t.Errorf("StepsPerMM = %f, want 400", m.Traverse.StepsPerMM)
	}
	if m.Spindle.MaxRPM != 3000 {
		t.Errorf("MaxRPM = %f, want 3000", m.Spindle.MaxRPM)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	m, err := Parse([]byte(`
serial:
  port: /dev/ttyAMA0
spindle:
  max_rpm: 2000
winding:
  target_turns: 250
  spindle_rpm: 150
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if m.Serial.Port != "/dev/ttyAMA0" {
		t.Errorf("port = %q, want /dev/ttyAMA0", m.Serial.Port)
	}
	if m.Spindle.MaxRPM != 2000 {
		t.Errorf("max_rpm = %f, want 2000", m.Spindle.MaxRPM)
	}
	if m.Winding.TargetTurns != 250 {
		t.Errorf("target_turns = %d, want 250", m.Winding.TargetTurns)
	}

	// Untouched keys keep their defaults.
	if m.Serial.Baud != 115200 {
		t.Errorf("baud = %d, want default 115200", m.Serial.Baud)
	}
	if m.Traverse.StepsPerMM != 400 {
		t.Errorf("steps_per_mm = %f, want default 400", m.Traverse.StepsPerMM)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			"bad yaml",
			"serial: [",
			"failed to parse",
		},
		{
			"zero steps per mm",
			"traverse:\n  steps_per_mm: 0",
			"steps_per_mm",
		},
		{
			"rpm above max",
			"winding:\n  spindle_rpm: 5000",
			"spindle_rpm",
		},
		{
			"winding window too wide",
			"winding:\n  start_pos_mm: 180\n  width_mm: 50",
			"travel",
		},
		{
			"tick period too long",
			"scheduler:\n  tick_period_us: 5000",
			"tick_period_us",
		},
		{
			"smoothing out of range",
			"spindle:\n  rpm_smoothing: 1.5",
			"rpm_smoothing",
		},
	}

	for _, tc := range cases {
		_, err := Parse([]byte(tc.yaml))
		if err == nil {
			t.Errorf("%s: Parse succeeded, want error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: error %q does not mention %q", tc.name, err, tc.want)
		}
	}
}

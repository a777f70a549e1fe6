package movement

import (
	"fmt"
	"strings"
)

// Setting names one tunable of a movement state.
type Setting uint8

const (
	MaxGroundSpeed Setting = iota
	MaxAirSpeed
	GroundAcceleration
	AirAcceleration
	GroundFriction
	BrakingDeceleration
	GravityZ
	JumpZVelocity
	MaxSlopeAngleDeg
	GroundProbeLength
	settingCount
)

var settingNames = [settingCount]string{
	MaxGroundSpeed:      "max_ground_speed",
	MaxAirSpeed:         "max_air_speed",
	GroundAcceleration:  "ground_acceleration",
	AirAcceleration:     "air_acceleration",
	GroundFriction:      "ground_friction",
	BrakingDeceleration: "braking_deceleration",
	GravityZ:            "gravity_z",
	JumpZVelocity:       "jump_z_velocity",
	MaxSlopeAngleDeg:    "max_slope_angle_deg",
	GroundProbeLength:   "ground_probe_length",
}

func (s Setting) String() string {
	if s < settingCount {
		return settingNames[s]
	}
	return fmt.Sprintf("setting(%d)", s)
}

// ParseSetting maps a setting name such as "max_ground_speed" to a Setting.
func ParseSetting(name string) (Setting, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range settingNames {
		if n == name {
			return Setting(i), nil
		}
	}
	return 0, fmt.Errorf("unknown movement setting %q", name)
}

// Settings is one full set of movement tunables.
type Settings [settingCount]float64

// DefaultSettings returns the stock movement tuning.
func DefaultSettings() Settings {
	var s Settings
	s[MaxGroundSpeed] = 600
	s[MaxAirSpeed] = 600
	s[GroundAcceleration] = 4000
	s[AirAcceleration] = 800
	s[GroundFriction] = 8
	s[BrakingDeceleration] = 2048
	s[GravityZ] = -980
	s[JumpZVelocity] = 500
	s[MaxSlopeAngleDeg] = 45
	s[GroundProbeLength] = 60
	return s
}

// Overlay returns s with every named value in m replaced. Unknown names are
// an error.
func (s Settings) Overlay(m map[string]float64) (Settings, error) {
	for name, v := range m {
		k, err := ParseSetting(name)
		if err != nil {
			return s, err
		}
		s[k] = v
	}
	return s, nil
}

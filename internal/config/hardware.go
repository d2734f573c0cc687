package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

const defaultHardwareTOML = `# fieldbot hardware map. Ports are controller channel numbers.

[drivetrain]
left_motor = 0
right_motor = 1
left_encoder = 0
right_encoder = 1
track_width_m = 0.6
max_speed_mps = 3.0

[lift]
motor = 2
top_switch = 0
bottom_switch = 1
travel_m = 1.2
max_speed_mps = 0.8

[grabber]
solenoid = 0

# Joystick bindings, re-read on every input poll cycle when this file changes.
[[binding]]
key = "lift-up"
port = 0
button = 4

[[binding]]
key = "lift-down"
port = 0
button = 2

[[binding]]
key = "grabber-toggle"
port = 0
button = 1

[[binding]]
key = "run-auto"
port = 0
button = 8

[[binding]]
key = "cancel-all"
port = 0
button = 7

[[axis]]
key = "drive-forward"
port = 0
axis = 1
inverted = true
deadband = 0.08

[[axis]]
key = "drive-turn"
port = 0
axis = 0
deadband = 0.08
`

// DrivetrainConfig maps the drive motors and encoders.
type DrivetrainConfig struct {
	LeftMotor    int     `toml:"left_motor"`
	RightMotor   int     `toml:"right_motor"`
	LeftEncoder  int     `toml:"left_encoder"`
	RightEncoder int     `toml:"right_encoder"`
	TrackWidthM  float64 `toml:"track_width_m"`
	MaxSpeedMPS  float64 `toml:"max_speed_mps"`
}

// LiftConfig maps the lift motor and its end-of-travel switches.
type LiftConfig struct {
	Motor        int     `toml:"motor"`
	TopSwitch    int     `toml:"top_switch"`
	BottomSwitch int     `toml:"bottom_switch"`
	TravelM      float64 `toml:"travel_m"`
	MaxSpeedMPS  float64 `toml:"max_speed_mps"`
}

// GrabberConfig maps the grabber solenoid.
type GrabberConfig struct {
	Solenoid int `toml:"solenoid"`
}

// HardwareConfig models the hardware sections of .fieldbot/robot.toml.
type HardwareConfig struct {
	Drivetrain DrivetrainConfig `toml:"drivetrain"`
	Lift       LiftConfig       `toml:"lift"`
	Grabber    GrabberConfig    `toml:"grabber"`
}

// LoadHardwareFile decodes and validates robot.toml. Binding sections are
// left to the bindings package.
func LoadHardwareFile(path string) (HardwareConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return HardwareConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	return ParseHardwareTOML(data)
}

// ParseHardwareTOML decodes robot.toml contents over the defaults.
func ParseHardwareTOML(data []byte) (HardwareConfig, error) {
	cfg := defaultHardwareConfig()
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return HardwareConfig{}, fmt.Errorf("config parse failed: %w", err)
	}
	if err := ValidateHardware(cfg); err != nil {
		return HardwareConfig{}, err
	}
	return cfg, nil
}

// ValidateHardware rejects negative ports, shared motor channels and
// non-physical geometry.
func ValidateHardware(cfg HardwareConfig) error {
	motors := map[int]string{}
	for name, port := range map[string]int{
		"drivetrain.left_motor":  cfg.Drivetrain.LeftMotor,
		"drivetrain.right_motor": cfg.Drivetrain.RightMotor,
		"lift.motor":             cfg.Lift.Motor,
	} {
		if port < 0 {
			return fmt.Errorf("hardware %s must be >= 0", name)
		}
		if other, taken := motors[port]; taken {
			return fmt.Errorf("hardware motor port %d shared by %s and %s", port, other, name)
		}
		motors[port] = name
	}
	if cfg.Drivetrain.LeftEncoder < 0 || cfg.Drivetrain.RightEncoder < 0 {
		return fmt.Errorf("hardware drivetrain encoders must be >= 0")
	}
	if cfg.Drivetrain.LeftEncoder == cfg.Drivetrain.RightEncoder {
		return fmt.Errorf("hardware drivetrain encoders must differ")
	}
	if cfg.Lift.TopSwitch < 0 || cfg.Lift.BottomSwitch < 0 {
		return fmt.Errorf("hardware lift switches must be >= 0")
	}
	if cfg.Lift.TopSwitch == cfg.Lift.BottomSwitch {
		return fmt.Errorf("hardware lift switches must differ")
	}
	if cfg.Grabber.Solenoid < 0 {
		return fmt.Errorf("hardware grabber.solenoid must be >= 0")
	}
	if cfg.Drivetrain.TrackWidthM <= 0 {
		return fmt.Errorf("hardware drivetrain.track_width_m must be > 0")
	}
	if cfg.Drivetrain.MaxSpeedMPS <= 0 || cfg.Lift.MaxSpeedMPS <= 0 {
		return fmt.Errorf("hardware max_speed_mps must be > 0")
	}
	if cfg.Lift.TravelM <= 0 {
		return fmt.Errorf("hardware lift.travel_m must be > 0")
	}
	return nil
}

func defaultHardwareConfig() HardwareConfig {
	return HardwareConfig{
		Drivetrain: DrivetrainConfig{
			LeftMotor:    0,
			RightMotor:   1,
			LeftEncoder:  0,
			RightEncoder: 1,
			TrackWidthM:  0.6,
			MaxSpeedMPS:  3.0,
		},
		Lift: LiftConfig{
			Motor:        2,
			TopSwitch:    0,
			BottomSwitch: 1,
			TravelM:      1.2,
			MaxSpeedMPS:  0.8,
		},
		Grabber: GrabberConfig{Solenoid: 0},
	}
}

// DefaultHardware returns the built-in hardware map.
func DefaultHardware() HardwareConfig {
	return defaultHardwareConfig()
}

// Package sim provides in-memory devices that stand in for the robot's
// controllers when running routines off the field.
package sim

import (
	"sync"

	"github.com/kingrea/fieldbot/internal/config"
	"github.com/kingrea/fieldbot/internal/robot"
)

// Motor records the last commanded output.
type Motor struct {
	mu     sync.Mutex
	output float64
}

func (m *Motor) Set(output float64) {
	m.mu.Lock()
	m.output = output
	m.mu.Unlock()
}

func (m *Motor) Get() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.output
}

// Encoder accumulates distance fed by the simulation step.
type Encoder struct {
	mu       sync.Mutex
	distance float64
}

func (e *Encoder) Distance() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.distance
}

func (e *Encoder) Reset() {
	e.mu.Lock()
	e.distance = 0
	e.mu.Unlock()
}

func (e *Encoder) add(delta float64) {
	e.mu.Lock()
	e.distance += delta
	e.mu.Unlock()
}

// Solenoid holds a boolean valve state.
type Solenoid struct {
	mu       sync.Mutex
	extended bool
}

func (s *Solenoid) Set(extended bool) {
	s.mu.Lock()
	s.extended = extended
	s.mu.Unlock()
}

func (s *Solenoid) Get() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extended
}

// Switch is a limit switch whose state is computed from a predicate.
type Switch struct {
	pressed func() bool
}

func (s *Switch) Pressed() bool {
	if s == nil || s.pressed == nil {
		return false
	}
	return s.pressed()
}

// Hardware is a simulated robot built from a hardware map.
type Hardware struct {
	LeftMotor, RightMotor     *Motor
	LeftEncoder, RightEncoder *Encoder
	LiftMotor                 *Motor
	Grabber                   *Solenoid

	top, bottom *Switch

	mu         sync.Mutex
	liftHeight float64
	liftTravel float64
	liftSpeed  float64
	driveSpeed float64
	trackWidth float64
}

// NewHardware builds simulated devices sized by cfg. The lift starts at the
// bottom of its travel.
func NewHardware(cfg config.HardwareConfig) *Hardware {
	h := &Hardware{
		LeftMotor:    &Motor{},
		RightMotor:   &Motor{},
		LeftEncoder:  &Encoder{},
		RightEncoder: &Encoder{},
		LiftMotor:    &Motor{},
		Grabber:      &Solenoid{},
		liftTravel:   cfg.Lift.TravelM,
		liftSpeed:    cfg.Lift.MaxSpeedMPS,
		driveSpeed:   cfg.Drivetrain.MaxSpeedMPS,
		trackWidth:   cfg.Drivetrain.TrackWidthM,
	}
	h.top = &Switch{pressed: func() bool { return h.LiftHeight() >= h.liftTravel }}
	h.bottom = &Switch{pressed: func() bool { return h.LiftHeight() <= 0 }}
	return h
}

// Robot returns the device bundle consumed by robot.New.
func (h *Hardware) Robot() robot.Hardware {
	return robot.Hardware{
		LeftDrive:    h.LeftMotor,
		RightDrive:   h.RightMotor,
		LeftEncoder:  h.LeftEncoder,
		RightEncoder: h.RightEncoder,
		TrackWidthM:  h.trackWidth,
		LiftMotor:    h.LiftMotor,
		LiftTop:      h.top,
		LiftBottom:   h.bottom,
		Grabber:      h.Grabber,
	}
}

// LiftHeight returns the lift carriage position in meters above the bottom.
func (h *Hardware) LiftHeight() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.liftHeight
}

// Step integrates motor outputs over dt seconds.
func (h *Hardware) Step(dt float64) {
	if dt <= 0 {
		return
	}
	h.LeftEncoder.add(h.LeftMotor.Get() * h.driveSpeed * dt)
	h.RightEncoder.add(h.RightMotor.Get() * h.driveSpeed * dt)

	h.mu.Lock()
	h.liftHeight += h.LiftMotor.Get() * h.liftSpeed * dt
	if h.liftHeight > h.liftTravel {
		h.liftHeight = h.liftTravel
	}
	if h.liftHeight < 0 {
		h.liftHeight = 0
	}
	h.mu.Unlock()
}

// NewRobot is a shortcut for a robot context backed by simulated hardware.
func NewRobot(cfg config.HardwareConfig, opts ...robot.Option) (*robot.Robot, *Hardware, error) {
	hw := NewHardware(cfg)
	opts = append([]robot.Option{robot.WithStepper(hw)}, opts...)
	r, err := robot.New(hw.Robot(), opts...)
	if err != nil {
		return nil, nil, err
	}
	return r, hw, nil
}

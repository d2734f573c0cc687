package robot

import (
	"errors"
	"time"
)

var ErrMissingDevice = errors.New("robot: missing hardware device")

// Robot owns every subsystem. One instance is built at startup and passed to
// whatever needs hardware access.
type Robot struct {
	Drivetrain *Drivetrain
	Lift       *Lift
	Grabber    *Grabber

	stepper Stepper
	clock   func() time.Time
}

// Option customizes Robot construction.
type Option func(*Robot)

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(r *Robot) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithStepper registers simulated hardware advanced by Periodic.
func WithStepper(s Stepper) Option {
	return func(r *Robot) {
		r.stepper = s
	}
}

// New wires subsystems to the provided hardware.
func New(hw Hardware, opts ...Option) (*Robot, error) {
	if hw.LeftDrive == nil || hw.RightDrive == nil || hw.LeftEncoder == nil || hw.RightEncoder == nil {
		return nil, errors.Join(ErrMissingDevice, errors.New("drivetrain requires two motors and two encoders"))
	}
	if hw.LiftMotor == nil || hw.LiftTop == nil || hw.LiftBottom == nil {
		return nil, errors.Join(ErrMissingDevice, errors.New("lift requires a motor and two limit switches"))
	}
	if hw.Grabber == nil {
		return nil, errors.Join(ErrMissingDevice, errors.New("grabber requires a solenoid"))
	}
	r := &Robot{
		Drivetrain: newDrivetrain(hw),
		Lift:       &Lift{motor: hw.LiftMotor, top: hw.LiftTop, bottom: hw.LiftBottom},
		Grabber:    &Grabber{solenoid: hw.Grabber},
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Now returns the robot clock.
func (r *Robot) Now() time.Time {
	return r.clock()
}

// Periodic runs once per scheduler tick. It re-applies lift safety limits and
// advances simulated hardware.
func (r *Robot) Periodic(dt time.Duration) {
	r.Lift.enforceLimits()
	if r.stepper != nil {
		r.stepper.Step(dt.Seconds())
	}
}

// Stop zeroes every motor output.
func (r *Robot) Stop() {
	r.Drivetrain.Stop()
	r.Lift.Stop()
}

package robot

import "math"

// Drivetrain is a differential drive.
type Drivetrain struct {
	left, right       MotorController
	leftEnc, rightEnc Encoder
	trackWidth        float64
}

func newDrivetrain(hw Hardware) *Drivetrain {
	track := hw.TrackWidthM
	if track <= 0 {
		track = 0.6
	}
	return &Drivetrain{
		left:       hw.LeftDrive,
		right:      hw.RightDrive,
		leftEnc:    hw.LeftEncoder,
		rightEnc:   hw.RightEncoder,
		trackWidth: track,
	}
}

// Tank sets each side independently.
func (d *Drivetrain) Tank(left, right float64) {
	d.left.Set(clamp(left))
	d.right.Set(clamp(right))
}

// Arcade mixes forward speed and turn rate. Positive turn rotates clockwise.
func (d *Drivetrain) Arcade(speed, turn float64) {
	left := speed + turn
	right := speed - turn
	if m := math.Max(math.Abs(left), math.Abs(right)); m > 1 {
		left /= m
		right /= m
	}
	d.Tank(left, right)
}

// Stop zeroes both sides.
func (d *Drivetrain) Stop() {
	d.Tank(0, 0)
}

// Distance is the mean travel of both sides since the last reset.
func (d *Drivetrain) Distance() float64 {
	return (d.leftEnc.Distance() + d.rightEnc.Distance()) / 2
}

// Heading is the clockwise rotation in degrees derived from encoder
// difference.
func (d *Drivetrain) Heading() float64 {
	radians := (d.leftEnc.Distance() - d.rightEnc.Distance()) / d.trackWidth
	return radians * 180 / math.Pi
}

// ResetEncoders zeroes distance and heading.
func (d *Drivetrain) ResetEncoders() {
	d.leftEnc.Reset()
	d.rightEnc.Reset()
}

// Outputs returns the last commanded left and right outputs.
func (d *Drivetrain) Outputs() (float64, float64) {
	return d.left.Get(), d.right.Get()
}

// Lift raises and lowers the manipulator between two limit switches.
type Lift struct {
	motor       MotorController
	top, bottom LimitSwitch
}

// Set drives the lift; positive is up. Travel into a pressed switch is
// refused.
func (l *Lift) Set(output float64) {
	output = clamp(output)
	if output > 0 && l.top.Pressed() {
		output = 0
	}
	if output < 0 && l.bottom.Pressed() {
		output = 0
	}
	l.motor.Set(output)
}

// AtTop reports the upper switch.
func (l *Lift) AtTop() bool { return l.top.Pressed() }

// AtBottom reports the lower switch.
func (l *Lift) AtBottom() bool { return l.bottom.Pressed() }

// Output returns the last commanded motor output.
func (l *Lift) Output() float64 { return l.motor.Get() }

// Stop holds the lift.
func (l *Lift) Stop() { l.motor.Set(0) }

func (l *Lift) enforceLimits() {
	l.Set(l.motor.Get())
}

// Grabber is the pneumatic claw. Extended means open.
type Grabber struct {
	solenoid Solenoid
}

func (g *Grabber) Open()        { g.solenoid.Set(true) }
func (g *Grabber) Close()       { g.solenoid.Set(false) }
func (g *Grabber) IsOpen() bool { return g.solenoid.Get() }

// Toggle flips the claw and returns the new state.
func (g *Grabber) Toggle() bool {
	open := !g.solenoid.Get()
	g.solenoid.Set(open)
	return open
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

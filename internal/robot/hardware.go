package robot

// MotorController drives one motor channel. Output is in [-1, 1].
type MotorController interface {
	Set(output float64)
	Get() float64
}

// Solenoid is a single-acting pneumatic valve.
type Solenoid interface {
	Set(extended bool)
	Get() bool
}

// LimitSwitch reports whether an end-of-travel switch is closed.
type LimitSwitch interface {
	Pressed() bool
}

// Encoder reports accumulated travel in meters.
type Encoder interface {
	Distance() float64
	Reset()
}

// Hardware bundles the devices the robot's subsystems own, by role.
type Hardware struct {
	LeftDrive    MotorController
	RightDrive   MotorController
	LeftEncoder  Encoder
	RightEncoder Encoder
	TrackWidthM  float64

	LiftMotor  MotorController
	LiftTop    LimitSwitch
	LiftBottom LimitSwitch

	Grabber Solenoid
}

// Stepper is implemented by simulated hardware that integrates motor output
// over time.
type Stepper interface {
	Step(dt float64)
}

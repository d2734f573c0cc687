package actions

import (
	"fmt"
	"math"
	"time"

	"github.com/kingrea/fieldbot/internal/command"
	"github.com/kingrea/fieldbot/internal/robot"
)

// Builtin action identifiers.
const (
	DriveDistance = "drive-distance"
	Turn          = "turn"
	Arcade        = "arcade"
	Lift          = "lift"
	Grabber       = "grabber"
	Wait          = "wait"
)

// RegisterBuiltins installs the stock command primitives.
func RegisterBuiltins(reg *Registry) {
	reg.MustRegister(DriveDistance, newDriveDistance)
	reg.MustRegister(Turn, newTurn)
	reg.MustRegister(Arcade, newArcade)
	reg.MustRegister(Lift, newLift)
	reg.MustRegister(Grabber, newGrabber)
	reg.MustRegister(Wait, newWait)
}

// NewBuiltinRegistry returns a registry holding only the stock primitives.
func NewBuiltinRegistry() *Registry {
	reg := NewRegistry()
	RegisterBuiltins(reg)
	return reg
}

func requireRobot(rb *robot.Robot) error {
	if rb == nil {
		return fmt.Errorf("robot is required")
	}
	return nil
}

func speedParam(p Params, def float64) (float64, error) {
	speed, err := p.Float("speed", def)
	if err != nil {
		return 0, err
	}
	if speed <= 0 || speed > 1 {
		return 0, fmt.Errorf("param speed must be in (0, 1], got %g", speed)
	}
	return speed, nil
}

// driveDistance drives straight until the mean encoder travel reaches the
// target. Negative distances drive backwards. Mirroring has no effect.
type driveDistance struct {
	rb       *robot.Robot
	distance float64
	speed    float64
	start    float64
}

func newDriveDistance(rb *robot.Robot, p Params) (command.Behavior, error) {
	if err := requireRobot(rb); err != nil {
		return nil, err
	}
	distance, err := p.Float("distance", 0)
	if err != nil {
		return nil, err
	}
	if distance == 0 {
		return nil, fmt.Errorf("param distance is required")
	}
	speed, err := speedParam(p, 0.6)
	if err != nil {
		return nil, err
	}
	return &driveDistance{rb: rb, distance: distance, speed: speed}, nil
}

func (d *driveDistance) Initialize(bool) error {
	d.start = d.rb.Drivetrain.Distance()
	return nil
}

func (d *driveDistance) Execute(bool) error {
	d.rb.Drivetrain.Arcade(math.Copysign(d.speed, d.distance), 0)
	return nil
}

func (d *driveDistance) IsFinished() bool {
	return math.Abs(d.rb.Drivetrain.Distance()-d.start) >= math.Abs(d.distance)
}

func (d *driveDistance) End(bool) { d.rb.Drivetrain.Stop() }

// turn rotates in place. Positive degrees turn clockwise; a mirrored leaf
// turns the other way.
type turn struct {
	rb      *robot.Robot
	degrees float64
	speed   float64
	start   float64
}

func newTurn(rb *robot.Robot, p Params) (command.Behavior, error) {
	if err := requireRobot(rb); err != nil {
		return nil, err
	}
	degrees, err := p.Float("degrees", 0)
	if err != nil {
		return nil, err
	}
	if degrees == 0 {
		return nil, fmt.Errorf("param degrees is required")
	}
	speed, err := speedParam(p, 0.4)
	if err != nil {
		return nil, err
	}
	return &turn{rb: rb, degrees: degrees, speed: speed}, nil
}

// Target returns the signed rotation the behavior will perform.
func (t *turn) Target(mirrored bool) float64 {
	if mirrored {
		return -t.degrees
	}
	return t.degrees
}

func (t *turn) Initialize(bool) error {
	t.start = t.rb.Drivetrain.Heading()
	return nil
}

func (t *turn) Execute(mirrored bool) error {
	t.rb.Drivetrain.Arcade(0, math.Copysign(t.speed, t.Target(mirrored)))
	return nil
}

func (t *turn) IsFinished() bool {
	return math.Abs(t.rb.Drivetrain.Heading()-t.start) >= math.Abs(t.degrees)
}

func (t *turn) End(bool) { t.rb.Drivetrain.Stop() }

// arcade drives open loop for a fixed time. Mirroring negates the turn.
type arcade struct {
	rb       *robot.Robot
	speed    float64
	turn     float64
	duration time.Duration
	started  time.Time
}

func newArcade(rb *robot.Robot, p Params) (command.Behavior, error) {
	if err := requireRobot(rb); err != nil {
		return nil, err
	}
	speed, err := p.Float("speed", 0)
	if err != nil {
		return nil, err
	}
	turnRate, err := p.Float("turn", 0)
	if err != nil {
		return nil, err
	}
	duration, err := p.Duration("seconds", 0)
	if err != nil {
		return nil, err
	}
	if duration <= 0 {
		return nil, fmt.Errorf("param seconds must be > 0")
	}
	return &arcade{rb: rb, speed: speed, turn: turnRate, duration: duration}, nil
}

func (a *arcade) Initialize(bool) error {
	a.started = a.rb.Now()
	return nil
}

func (a *arcade) Execute(mirrored bool) error {
	turnRate := a.turn
	if mirrored {
		turnRate = -turnRate
	}
	a.rb.Drivetrain.Arcade(a.speed, turnRate)
	return nil
}

func (a *arcade) IsFinished() bool {
	return a.rb.Now().Sub(a.started) >= a.duration
}

func (a *arcade) End(bool) { a.rb.Drivetrain.Stop() }

// lift runs the lift until the requested end switch closes.
type lift struct {
	rb    *robot.Robot
	up    bool
	speed float64
}

func newLift(rb *robot.Robot, p Params) (command.Behavior, error) {
	if err := requireRobot(rb); err != nil {
		return nil, err
	}
	position, err := p.String("position", "")
	if err != nil {
		return nil, err
	}
	var up bool
	switch position {
	case "top":
		up = true
	case "bottom":
		up = false
	default:
		return nil, fmt.Errorf("param position must be top or bottom, got %q", position)
	}
	speed, err := speedParam(p, 1)
	if err != nil {
		return nil, err
	}
	return &lift{rb: rb, up: up, speed: speed}, nil
}

func (l *lift) Initialize(bool) error { return nil }

func (l *lift) Execute(bool) error {
	if l.up {
		l.rb.Lift.Set(l.speed)
	} else {
		l.rb.Lift.Set(-l.speed)
	}
	return nil
}

func (l *lift) IsFinished() bool {
	if l.up {
		return l.rb.Lift.AtTop()
	}
	return l.rb.Lift.AtBottom()
}

func (l *lift) End(bool) { l.rb.Lift.Stop() }

func newGrabber(rb *robot.Robot, p Params) (command.Behavior, error) {
	if err := requireRobot(rb); err != nil {
		return nil, err
	}
	state, err := p.String("state", "")
	if err != nil {
		return nil, err
	}
	switch state {
	case "open":
		return command.Instant(func(bool) error {
			rb.Grabber.Open()
			return nil
		}), nil
	case "close", "closed":
		return command.Instant(func(bool) error {
			rb.Grabber.Close()
			return nil
		}), nil
	default:
		return nil, fmt.Errorf("param state must be open or close, got %q", state)
	}
}

type wait struct {
	rb       *robot.Robot
	duration time.Duration
	started  time.Time
}

func newWait(rb *robot.Robot, p Params) (command.Behavior, error) {
	if err := requireRobot(rb); err != nil {
		return nil, err
	}
	duration, err := p.Duration("seconds", 0)
	if err != nil {
		return nil, err
	}
	if duration < 0 {
		return nil, fmt.Errorf("param seconds must be >= 0")
	}
	return &wait{rb: rb, duration: duration}, nil
}

func (w *wait) Initialize(bool) error {
	w.started = w.rb.Now()
	return nil
}

func (w *wait) Execute(bool) error { return nil }

func (w *wait) IsFinished() bool {
	return w.rb.Now().Sub(w.started) >= w.duration
}

func (w *wait) End(bool) {}

package teleop

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kingrea/fieldbot/internal/bindings"
	"github.com/kingrea/fieldbot/internal/robot"
)

// Handler runs when a bound button changes state.
type Handler func() error

// Recorder receives teleop metrics. metrics.Recorder satisfies it.
type Recorder interface {
	BindingTriggered(key string)
}

// Poller reads the operator input once per cycle. It re-resolves the binding
// table every cycle, fires press handlers on rising edges and release
// handlers on falling edges, and drives the robot from the arcade axes while
// driving is enabled.
type Poller struct {
	source bindings.Source
	input  bindings.Input
	robot  *robot.Robot
	log    zerolog.Logger
	rec    Recorder

	mu        sync.Mutex
	onPress   map[bindings.Key][]Handler
	onRelease map[bindings.Key][]Handler
	held      map[bindings.Key]bool
	drive     bool
}

// Option customizes the poller.
type Option func(*Poller)

// WithLogger attaches a structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Poller) {
		p.log = log
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(rec Recorder) Option {
	return func(p *Poller) {
		p.rec = rec
	}
}

// New wires a poller to its binding source, input and robot.
func New(source bindings.Source, input bindings.Input, rb *robot.Robot, opts ...Option) (*Poller, error) {
	if source == nil {
		return nil, fmt.Errorf("teleop: binding source is required")
	}
	if input == nil {
		return nil, fmt.Errorf("teleop: input is required")
	}
	if rb == nil {
		return nil, fmt.Errorf("teleop: robot is required")
	}
	p := &Poller{
		source:    source,
		input:     input,
		robot:     rb,
		log:       zerolog.Nop(),
		onPress:   map[bindings.Key][]Handler{},
		onRelease: map[bindings.Key][]Handler{},
		held:      map[bindings.Key]bool{},
		drive:     true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// OnPress registers h for the rising edge of key.
func (p *Poller) OnPress(key bindings.Key, h Handler) {
	if h == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onPress[key] = append(p.onPress[key], h)
}

// OnRelease registers h for the falling edge of key.
func (p *Poller) OnRelease(key bindings.Key, h Handler) {
	if h == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onRelease[key] = append(p.onRelease[key], h)
}

// SetDriveEnabled turns joystick driving on or off. Autonomous routines
// disable it so the sticks do not fight the drivetrain commands.
func (p *Poller) SetDriveEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drive = enabled
}

// DriveEnabled reports whether the sticks drive the robot.
func (p *Poller) DriveEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drive
}

// Poll runs one input cycle. Handler errors are joined and returned after
// every handler has run.
func (p *Poller) Poll() error {
	table, err := p.source.Resolve()
	if err != nil {
		if table.Empty() {
			return fmt.Errorf("teleop: %w", err)
		}
		p.log.Warn().Err(err).Msg("binding reload failed; keeping previous table")
	}

	p.mu.Lock()
	var fire []Handler
	var fired []bindings.Key
	for _, key := range table.BoundKeys() {
		b, _ := table.Button(key)
		pressed := p.input.Button(b.Port, b.Button)
		was := p.held[key]
		p.held[key] = pressed
		switch {
		case pressed && !was:
			fire = append(fire, p.onPress[key]...)
			fired = append(fired, key)
		case !pressed && was:
			fire = append(fire, p.onRelease[key]...)
		}
	}
	drive := p.drive
	p.mu.Unlock()

	for _, key := range fired {
		if p.rec != nil {
			p.rec.BindingTriggered(string(key))
		}
		p.log.Debug().Str("key", string(key)).Msg("binding triggered")
	}
	var errs []error
	for _, h := range fire {
		if err := h(); err != nil {
			errs = append(errs, err)
		}
	}
	if drive {
		p.arcade(table)
	}
	return errors.Join(errs...)
}

func (p *Poller) arcade(table bindings.Table) {
	fwd, okF := table.Axis(bindings.DriveForward)
	turn, okT := table.Axis(bindings.DriveTurn)
	if !okF || !okT {
		return
	}
	speed := fwd.Apply(p.input.Axis(fwd.Port, fwd.Axis))
	rate := turn.Apply(p.input.Axis(turn.Port, turn.Axis))
	p.robot.Drivetrain.Arcade(speed, rate)
}

package teleop

import (
	"errors"
	"strings"
	"testing"

	"github.com/kingrea/fieldbot/internal/bindings"
	"github.com/kingrea/fieldbot/internal/config"
	"github.com/kingrea/fieldbot/internal/robot"
	"github.com/kingrea/fieldbot/internal/robot/sim"
)

type keyRecorder struct{ keys []string }

func (r *keyRecorder) BindingTriggered(key string) { r.keys = append(r.keys, key) }

// swapSource lets a test change the table between cycles.
type swapSource struct {
	table bindings.Table
	err   error
}

func (s *swapSource) Resolve() (bindings.Table, error) { return s.table, s.err }

func newPoller(t *testing.T, src bindings.Source, opts ...Option) (*Poller, *bindings.StaticInput, *robot.Robot) {
	t.Helper()
	rb, _, err := sim.NewRobot(config.DefaultHardware())
	if err != nil {
		t.Fatalf("sim robot: %v", err)
	}
	in := bindings.NewStaticInput()
	p, err := New(src, in, rb, opts...)
	if err != nil {
		t.Fatalf("new poller: %v", err)
	}
	return p, in, rb
}

func TestPollFiresOnEdgesOnly(t *testing.T) {
	rec := &keyRecorder{}
	table := bindings.DefaultTable()
	p, in, _ := newPoller(t, bindings.StaticSource{Table: table}, WithRecorder(rec))
	presses, releases := 0, 0
	p.OnPress(bindings.LiftUp, func() error { presses++; return nil })
	p.OnRelease(bindings.LiftUp, func() error { releases++; return nil })

	in.Press(table, bindings.LiftUp, true)
	for i := 0; i < 3; i++ {
		if err := p.Poll(); err != nil {
			t.Fatalf("poll: %v", err)
		}
	}
	in.Press(table, bindings.LiftUp, false)
	if err := p.Poll(); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if presses != 1 || releases != 1 {
		t.Fatalf("presses=%d releases=%d, want 1 and 1", presses, releases)
	}
	if strings.Join(rec.keys, ",") != "lift-up" {
		t.Fatalf("recorded keys %v", rec.keys)
	}
}

func TestPollUsesReboundButtonNextCycle(t *testing.T) {
	src := &swapSource{table: bindings.DefaultTable()}
	p, in, _ := newPoller(t, src)
	fired := 0
	p.OnPress(bindings.GrabberToggle, func() error { fired++; return nil })

	in.SetButton(0, 9, true)
	_ = p.Poll()
	if fired != 0 {
		t.Fatalf("button 9 is not bound yet")
	}
	src.table = bindings.NewTable(map[bindings.Key]bindings.Binding{
		bindings.GrabberToggle: {Port: 0, Button: 9},
	}, nil)
	_ = p.Poll()
	if fired != 1 {
		t.Fatalf("rebinding should take effect on the next cycle, fired=%d", fired)
	}
}

func TestPollDrivesFromAxes(t *testing.T) {
	table := bindings.DefaultTable()
	p, in, rb := newPoller(t, bindings.StaticSource{Table: table})
	in.SetAxis(0, 1, -1) // forward stick is inverted
	in.SetAxis(0, 0, 0)
	_ = p.Poll()
	left, right := rb.Drivetrain.Outputs()
	if left <= 0.99 || right <= 0.99 {
		t.Fatalf("full forward stick should drive forward, got %f,%f", left, right)
	}
	p.SetDriveEnabled(false)
	in.SetAxis(0, 1, 0)
	_ = p.Poll()
	if l, _ := rb.Drivetrain.Outputs(); l == 0 {
		t.Fatalf("disabled drive must leave outputs alone")
	}
	if p.DriveEnabled() {
		t.Fatalf("drive should report disabled")
	}
}

func TestPollJoinsHandlerErrorsAndKeepsGoing(t *testing.T) {
	table := bindings.DefaultTable()
	p, in, _ := newPoller(t, bindings.StaticSource{Table: table})
	ran := 0
	p.OnPress(bindings.RunAuto, func() error { return errors.New("no routine") })
	p.OnPress(bindings.RunAuto, func() error { ran++; return nil })
	in.Press(table, bindings.RunAuto, true)
	err := p.Poll()
	if err == nil || !strings.Contains(err.Error(), "no routine") {
		t.Fatalf("expected handler error, got %v", err)
	}
	if ran != 1 {
		t.Fatalf("later handlers should still run")
	}
}

func TestPollSourceErrors(t *testing.T) {
	src := &swapSource{err: errors.New("missing file")}
	p, _, _ := newPoller(t, src)
	if err := p.Poll(); err == nil {
		t.Fatalf("empty table with error should fail the poll")
	}
	src.table = bindings.DefaultTable()
	if err := p.Poll(); err != nil {
		t.Fatalf("stale table should be used with a warning, got %v", err)
	}
}

func TestNewValidatesDependencies(t *testing.T) {
	rb, _, _ := sim.NewRobot(config.DefaultHardware())
	in := bindings.NewStaticInput()
	if _, err := New(nil, in, rb); err == nil {
		t.Fatalf("expected source error")
	}
	if _, err := New(bindings.StaticSource{}, nil, rb); err == nil {
		t.Fatalf("expected input error")
	}
	if _, err := New(bindings.StaticSource{}, in, nil); err == nil {
		t.Fatalf("expected robot error")
	}
}

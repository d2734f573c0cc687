package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kingrea/fieldbot/internal/bindings"
	"github.com/kingrea/fieldbot/internal/command"
	"github.com/kingrea/fieldbot/internal/config"
	"github.com/kingrea/fieldbot/internal/routine"
	"github.com/kingrea/fieldbot/internal/scheduler"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func openTestSession(t *testing.T) (*Session, *testClock) {
	t.Helper()
	t.Setenv(config.EnvSide, "")
	t.Setenv(config.EnvPeriodMS, "")
	t.Setenv(config.EnvLogLevel, "")
	clock := &testClock{now: time.Date(2024, 4, 6, 10, 0, 0, 0, time.UTC)}
	s, err := Open(t.TempDir(), WithClock(clock.Now), WithOrigin("test"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, clock
}

func stepUntilIdle(t *testing.T, s *Session, clock *testClock) []scheduler.Result {
	t.Helper()
	var all []scheduler.Result
	for i := 0; i < 5000; i++ {
		results, err := s.Step()
		if err != nil {
			t.Fatalf("step: %v", err)
		}
		all = append(all, results...)
		clock.now = clock.now.Add(s.Scheduler.Period())
		if len(s.Scheduler.Active()) == 0 {
			return all
		}
	}
	t.Fatalf("routine never finished")
	return nil
}

func TestOpenWiresBundledRoutines(t *testing.T) {
	s, _ := openTestSession(t)
	if s.Catalog.Len() < 3 {
		t.Fatalf("expected bundled routines, got %v", s.Catalog.IDs())
	}
	if s.Side() != routine.SideLeft {
		t.Fatalf("default side should be left, got %s", s.Side())
	}
	if s.Origin != "test" {
		t.Fatalf("origin not recorded")
	}
}

func TestStartRoutineMirrorsAndJournals(t *testing.T) {
	s, clock := openTestSession(t)
	cmd, runID, err := s.StartRoutine("cross-line", routine.SideRight, map[string]any{"drive-distance.distance": 1.0})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !cmd.IsMirrored() || len(command.Unmirrored(cmd)) != 0 {
		t.Fatalf("right-side run of a left routine must be fully mirrored")
	}
	if s.Teleop.DriveEnabled() {
		t.Fatalf("stick driving should be disabled during a routine")
	}
	results := stepUntilIdle(t, s, clock)
	if len(results) != 1 || results[0].RunID != runID || results[0].Status != scheduler.StatusCompleted {
		t.Fatalf("unexpected results %+v", results)
	}
	if !s.Teleop.DriveEnabled() {
		t.Fatalf("driving should be handed back after the routine")
	}
	lines := s.Journal.Tail(1)
	if len(lines) != 1 || !strings.Contains(lines[0], "cross-line side=right mirrored=true status=completed") {
		t.Fatalf("unexpected journal %v", lines)
	}
}

func TestStartRoutineErrors(t *testing.T) {
	s, _ := openTestSession(t)
	if _, _, err := s.StartRoutine("missing", routine.SideLeft, nil); err == nil {
		t.Fatalf("expected unknown routine error")
	}
	if _, _, err := s.StartRoutine("cross-line", routine.SideLeft, map[string]any{"lift.position": "top"}); err == nil {
		t.Fatalf("expected unmatched override error")
	}
	if _, _, err := s.StartRoutine("cross-line", routine.SideLeft, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, _, err := s.StartRoutine("cross-line", routine.SideLeft, nil); err == nil {
		t.Fatalf("expected already scheduled error")
	}
}

func TestOperatorButtonsRunAndCancel(t *testing.T) {
	s, _ := openTestSession(t)
	table := bindings.DefaultTable()

	s.Input.Press(table, bindings.RunAuto, true)
	if _, err := s.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if got := s.Scheduler.Active(); len(got) != 1 || got[0] != s.Config.DefaultRoutine() {
		t.Fatalf("run-auto should start the default routine, active %v", got)
	}
	s.Input.Press(table, bindings.RunAuto, false)

	s.Input.Press(table, bindings.CancelAll, true)
	if _, err := s.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if len(s.Scheduler.Active()) != 0 {
		t.Fatalf("cancel-all should clear the scheduler")
	}
	if lines := s.Journal.Tail(1); len(lines) != 1 || !strings.Contains(lines[0], "status=interrupted") {
		t.Fatalf("cancelled run should be journaled, got %v", lines)
	}

	s.Input.Press(table, bindings.GrabberToggle, true)
	_, _ = s.Step()
	if !s.Robot.Grabber.IsOpen() {
		t.Fatalf("grabber toggle should open the claw")
	}
}

func TestWarnUnmirroredJournalsLateChildren(t *testing.T) {
	s, _ := openTestSession(t)
	root := command.NewGroup("late")
	root.AddSequential(command.NewLeaf("early", command.Instant(nil)))
	root.Mirror()
	root.AddParallel(command.NewLeaf("after", command.Instant(nil)))
	if n := s.WarnUnmirrored(root); n != 1 {
		t.Fatalf("expected 1 unmirrored node, got %d", n)
	}
	if lines := s.Journal.Tail(1); len(lines) != 1 || !strings.Contains(lines[0], "late: 1 node(s) attached after mirroring") {
		t.Fatalf("unexpected journal %v", lines)
	}
	if s.WarnUnmirrored(command.NewGroup("plain")) != 0 {
		t.Fatalf("unmirrored roots are not checked")
	}
}

type countdown struct{ left int }

func (c *countdown) Initialize(bool) error { return nil }
func (c *countdown) Execute(bool) error    { c.left--; return nil }
func (c *countdown) IsFinished() bool      { return c.left <= 0 }
func (c *countdown) End(bool)              {}

func TestSchedulerRunJournalsRoutinesFinishingAlongside(t *testing.T) {
	s, _ := openTestSession(t)
	overrides := map[string]any{"wait.seconds": 0, "drive-distance.distance": 0.1}
	_, runID, err := s.StartRoutine("cross-line", routine.SideLeft, overrides)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	res, err := s.Scheduler.Run(context.Background(), command.NewLeaf("hold", &countdown{left: 30}))
	if err != nil || res.Status != scheduler.StatusCompleted {
		t.Fatalf("unexpected run result %+v err=%v", res, err)
	}
	lines := s.Journal.Tail(1)
	if len(lines) != 1 || !strings.Contains(lines[0], "cross-line") || !strings.Contains(lines[0], runID) {
		t.Fatalf("expected the routine finishing during Run to be journaled, got %v", lines)
	}
	if !s.Teleop.DriveEnabled() {
		t.Fatalf("driving should be handed back once the routine finished")
	}
}

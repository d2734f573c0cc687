package routine

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/kingrea/fieldbot/internal/actions"
	"github.com/kingrea/fieldbot/internal/command"
	"github.com/kingrea/fieldbot/internal/config"
	"github.com/kingrea/fieldbot/internal/robot"
	"github.com/kingrea/fieldbot/internal/robot/sim"
	"github.com/kingrea/fieldbot/internal/scheduler"
)

type buildRecord struct {
	routine, side string
	mirrored      bool
}

type stubRecorder struct{ builds []buildRecord }

func (r *stubRecorder) RoutineBuilt(routine, side string, mirrored bool) {
	r.builds = append(r.builds, buildRecord{routine, side, mirrored})
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestRobot(t *testing.T) (*robot.Robot, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)}
	rb, _, err := sim.NewRobot(config.DefaultHardware(), robot.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("sim robot: %v", err)
	}
	return rb, clock
}

func TestBuildMirrorsOnlyForOppositeSide(t *testing.T) {
	def, err := ParseDefinitionYAML([]byte(sampleRoutine))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rb, _ := newTestRobot(t)
	reg := actions.NewBuiltinRegistry()
	rec := &stubRecorder{}

	same, err := Build(def, reg, rb, SideRight, WithRecorder(rec))
	if err != nil {
		t.Fatalf("build same side: %v", err)
	}
	if same.IsMirrored() || len(command.Unmirrored(same)) != command.Count(same) {
		t.Fatalf("same-side build must leave every node unmirrored")
	}
	if same.Name() != "sample" || command.Count(same) != 5 {
		t.Fatalf("unexpected tree %s with %d nodes", same.Name(), command.Count(same))
	}

	other, err := Build(def, reg, rb, SideLeft, WithRecorder(rec))
	if err != nil {
		t.Fatalf("build opposite side: %v", err)
	}
	if !other.IsMirrored() || len(command.Unmirrored(other)) != 0 {
		t.Fatalf("opposite-side build must mirror every node, unmirrored: %v", command.Unmirrored(other))
	}
	if len(rec.builds) != 2 || rec.builds[0].mirrored || !rec.builds[1].mirrored || rec.builds[1].side != "left" {
		t.Fatalf("unexpected recorder calls %+v", rec.builds)
	}
}

func TestBuildReportsStepPathOnActionError(t *testing.T) {
	def, err := ParseDefinitionYAML([]byte(`
id: broken
side: left
root:
  sequential:
    - action: wait
      params: {seconds: 1}
    - parallel:
        - action: teleport
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rb, _ := newTestRobot(t)
	_, err = Build(def, actions.NewBuiltinRegistry(), rb, SideLeft)
	if err == nil || !strings.Contains(err.Error(), "root.sequential[1].parallel[0]") || !strings.Contains(err.Error(), "unknown id teleport") {
		t.Fatalf("unexpected error %v", err)
	}
	if _, err := Build(def, nil, rb, SideLeft); err == nil {
		t.Fatalf("expected nil registry error")
	}
	if _, err := Build(def, actions.NewBuiltinRegistry(), rb, Side("up")); err == nil {
		t.Fatalf("expected bad side error")
	}
}

func runToCompletion(t *testing.T, cmd command.Command, rb *robot.Robot, clock *fakeClock) scheduler.Result {
	t.Helper()
	period := 20 * time.Millisecond
	s := scheduler.New(scheduler.WithPeriod(period), scheduler.WithTickHook(func(dt time.Duration) {
		rb.Periodic(dt)
		clock.now = clock.now.Add(dt)
	}))
	if _, err := s.Schedule(cmd); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	for i := 0; i < 5000; i++ {
		if results := s.Tick(); len(results) > 0 {
			return results[0]
		}
	}
	t.Fatalf("routine %s did not finish", cmd.Name())
	return scheduler.Result{}
}

func TestTwoCubeMirroredRunReflectsHeading(t *testing.T) {
	catalog, err := LoadCatalog()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	def, ok := catalog.Get("two-cube")
	if !ok {
		t.Fatalf("two-cube not bundled")
	}
	reg := actions.NewBuiltinRegistry()

	leftRobot, leftClock := newTestRobot(t)
	leftCmd, err := Build(def, reg, leftRobot, SideLeft)
	if err != nil {
		t.Fatalf("build left: %v", err)
	}
	rightRobot, rightClock := newTestRobot(t)
	rightCmd, err := Build(def, reg, rightRobot, SideRight)
	if err != nil {
		t.Fatalf("build right: %v", err)
	}

	leftRes := runToCompletion(t, leftCmd, leftRobot, leftClock)
	rightRes := runToCompletion(t, rightCmd, rightRobot, rightClock)
	if leftRes.Status != scheduler.StatusCompleted || rightRes.Status != scheduler.StatusCompleted {
		t.Fatalf("runs did not complete: %+v %+v", leftRes, rightRes)
	}
	if leftRes.Ticks != rightRes.Ticks {
		t.Fatalf("mirrored run should take the same number of cycles: %d vs %d", leftRes.Ticks, rightRes.Ticks)
	}
	lh, rh := leftRobot.Drivetrain.Heading(), rightRobot.Drivetrain.Heading()
	if lh == 0 || math.Abs(lh+rh) > 1e-9 {
		t.Fatalf("headings should be reflections, got %f and %f", lh, rh)
	}
	if math.Abs(leftRobot.Drivetrain.Distance()-rightRobot.Drivetrain.Distance()) > 1e-9 {
		t.Fatalf("distance travelled should match")
	}
	if !leftRobot.Grabber.IsOpen() || !rightRobot.Grabber.IsOpen() {
		t.Fatalf("both runs should end with the grabber open")
	}
}

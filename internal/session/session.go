package session

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/kingrea/fieldbot/internal/actions"
	"github.com/kingrea/fieldbot/internal/bindings"
	"github.com/kingrea/fieldbot/internal/command"
	"github.com/kingrea/fieldbot/internal/config"
	"github.com/kingrea/fieldbot/internal/journal"
	"github.com/kingrea/fieldbot/internal/logging"
	"github.com/kingrea/fieldbot/internal/metrics"
	"github.com/kingrea/fieldbot/internal/robot"
	"github.com/kingrea/fieldbot/internal/robot/sim"
	"github.com/kingrea/fieldbot/internal/routine"
	"github.com/kingrea/fieldbot/internal/scheduler"
	"github.com/kingrea/fieldbot/internal/teleop"
)

// Session carries the shared runtime dependencies of one fieldbot process.
// Nothing in fieldbot reaches hardware except through a Session's Robot.
type Session struct {
	Config    *config.Config
	Logger    *logging.Logger
	Robot     *robot.Robot
	Sim       *sim.Hardware
	Actions   *actions.Registry
	Catalog   *routine.Catalog
	Scheduler *scheduler.Scheduler
	Journal   *journal.Journal
	Bindings  bindings.Source
	Input     *bindings.StaticInput
	Teleop    *teleop.Poller

	// Origin names the executable that opened the session.
	Origin string

	log     zerolog.Logger
	ownsLog bool
	runs    map[string]runInfo
}

type runInfo struct {
	routine  string
	side     routine.Side
	mirrored bool
}

type options struct {
	logger *logging.Logger
	clock  func() time.Time
	origin string
}

// Option customizes Open.
type Option func(*options)

// WithLogger reuses an existing logger instead of opening the project log
// file.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithClock injects a deterministic robot clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithOrigin records which executable opened the session.
func WithOrigin(name string) Option {
	return func(o *options) {
		o.origin = name
	}
}

// Open loads the project configuration and wires a simulated robot, the
// action registry, the routine catalog, the scheduler, the run journal and the
// teleop poller.
func Open(projectDir string, opts ...Option) (*Session, error) {
	o := options{origin: "fieldbot"}
	for _, opt := range opts {
		opt(&o)
	}
	if err := config.InitProjectDir(projectDir); err != nil {
		return nil, fmt.Errorf("session: init project dir: %w", err)
	}
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return nil, err
	}

	s := &Session{Config: cfg, Origin: o.origin, runs: map[string]runInfo{}}
	s.Logger = o.logger
	if s.Logger == nil {
		level, _ := logging.ParseLevel(cfg.LogLevel())
		if s.Logger, err = logging.New(projectDir, level); err != nil {
			return nil, err
		}
		s.ownsLog = true
	}
	s.log = s.Logger.Component("session")

	var robotOpts []robot.Option
	if o.clock != nil {
		robotOpts = append(robotOpts, robot.WithClock(o.clock))
	}
	s.Robot, s.Sim, err = sim.NewRobot(cfg.Hardware, robotOpts...)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("session: build robot: %w", err)
	}

	s.Actions = actions.NewBuiltinRegistry()
	s.Catalog, err = routine.LoadCatalog(cfg.RoutineDirs()...)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Scheduler = scheduler.New(
		scheduler.WithPeriod(cfg.Period()),
		scheduler.WithLogger(s.Logger.Component("scheduler")),
		scheduler.WithRecorder(metrics.Recorder{}),
		scheduler.WithResultHandler(func(res scheduler.Result) {
			s.finish([]scheduler.Result{res})
		}),
		scheduler.WithTickHook(s.Robot.Periodic),
	)

	s.Journal, err = journal.New(filepath.Join(cfg.LogsDir(), "runs.log"))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("session: open journal: %w", err)
	}

	s.Bindings = bindings.NewFileSource(cfg.HardwarePath())
	s.Input = bindings.NewStaticInput()
	s.Teleop, err = teleop.New(s.Bindings, s.Input, s.Robot,
		teleop.WithLogger(s.Logger.Component("teleop")),
		teleop.WithRecorder(metrics.Recorder{}),
	)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.wireOperatorControls()

	s.log.Info().
		Str("origin", s.Origin).
		Str("side", cfg.Side()).
		Int("routines", s.Catalog.Len()).
		Dur("period", cfg.Period()).
		Msg("session opened")
	return s, nil
}

// Side returns the configured starting side.
func (s *Session) Side() routine.Side {
	side, err := routine.ParseSide(s.Config.Side())
	if err != nil {
		return routine.SideLeft
	}
	return side
}

// BuildRoutine looks up id, applies overrides and builds it for side.
func (s *Session) BuildRoutine(id string, side routine.Side, overrides map[string]any) (command.Command, routine.Definition, error) {
	def, ok := s.Catalog.Get(id)
	if !ok {
		return nil, routine.Definition{}, fmt.Errorf("session: unknown routine %s", id)
	}
	if len(overrides) > 0 {
		var err error
		if def, err = routine.ApplyOverrides(def, overrides); err != nil {
			return nil, routine.Definition{}, err
		}
	}
	cmd, err := routine.Build(def, s.Actions, s.Robot, side, routine.WithRecorder(metrics.Recorder{}))
	if err != nil {
		return nil, routine.Definition{}, err
	}
	return cmd, def, nil
}

// StartRoutine builds and schedules a routine, disabling joystick driving
// until it leaves the scheduler.
func (s *Session) StartRoutine(id string, side routine.Side, overrides map[string]any) (command.Command, string, error) {
	cmd, def, err := s.BuildRoutine(id, side, overrides)
	if err != nil {
		return nil, "", err
	}
	s.WarnUnmirrored(cmd)
	runID, err := s.Scheduler.Schedule(cmd)
	if err != nil {
		return nil, "", err
	}
	s.runs[runID] = runInfo{routine: def.ID, side: side, mirrored: cmd.IsMirrored()}
	s.Teleop.SetDriveEnabled(false)
	return cmd, runID, nil
}

// WarnUnmirrored logs and journals nodes that missed a mirror pass because
// they were attached after Mirror ran. It returns how many were found.
func (s *Session) WarnUnmirrored(cmd command.Command) int {
	if cmd == nil || !cmd.IsMirrored() {
		return 0
	}
	stale := command.Unmirrored(cmd)
	for _, node := range stale {
		s.log.Warn().Str("routine", cmd.Name()).Str("node", node.Name()).Msg("node attached after mirroring runs unmirrored")
	}
	if len(stale) > 0 {
		_ = s.Journal.Note(journal.LevelWarn, "%s: %d node(s) attached after mirroring", cmd.Name(), len(stale))
	}
	return len(stale)
}

// Step runs one control cycle: operator input first, then the scheduler.
// Finished routines are journaled and hand driving back to the sticks.
func (s *Session) Step() ([]scheduler.Result, error) {
	pollErr := s.Teleop.Poll()
	results := s.Scheduler.Tick()
	s.finish(results)
	return results, pollErr
}

// CancelAll interrupts every scheduled command.
func (s *Session) CancelAll() []scheduler.Result {
	results := s.Scheduler.CancelAll()
	s.finish(results)
	s.Robot.Stop()
	return results
}

func (s *Session) finish(results []scheduler.Result) {
	for _, res := range results {
		info, ok := s.runs[res.RunID]
		if !ok {
			continue
		}
		delete(s.runs, res.RunID)
		s.Record(info.routine, info.side, info.mirrored, res)
	}
	if len(s.runs) == 0 {
		s.Teleop.SetDriveEnabled(true)
	}
}

// Record journals a finished run.
func (s *Session) Record(routineID string, side routine.Side, mirrored bool, res scheduler.Result) {
	entry := journal.Entry{
		RunID:    res.RunID,
		Routine:  routineID,
		Side:     string(side),
		Mirrored: mirrored,
		Status:   string(res.Status),
		Ticks:    res.Ticks,
		Duration: res.Finished.Sub(res.Started),
		Err:      res.Err,
	}
	if err := s.Journal.Record(entry); err != nil {
		s.log.Error().Err(err).Msg("journal write failed")
	}
}

// Close releases the log file when the session opened it.
func (s *Session) Close() error {
	if s == nil || !s.ownsLog {
		return nil
	}
	return s.Logger.Close()
}

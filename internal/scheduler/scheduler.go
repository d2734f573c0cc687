package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kingrea/fieldbot/internal/command"
)

const defaultPeriod = 20 * time.Millisecond

var (
	ErrNilCommand       = errors.New("scheduler: command is required")
	ErrAlreadyScheduled = errors.New("scheduler: command already scheduled")
)

// Status enumerates how a top-level command left the scheduler.
type Status string

const (
	StatusCompleted   Status = "completed"
	StatusInterrupted Status = "interrupted"
	StatusFailed      Status = "failed"
)

// Result describes a finished top-level command.
type Result struct {
	RunID    string
	Name     string
	Status   Status
	Ticks    int
	Started  time.Time
	Finished time.Time
	Err      error
}

// Recorder receives scheduler metrics. metrics.Recorder satisfies it.
type Recorder interface {
	CommandStarted(name string)
	CommandFinished(name, status string)
	Tick(d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) CommandStarted(string)         {}
func (nopRecorder) CommandFinished(string, string) {}
func (nopRecorder) Tick(time.Duration)            {}

// Scheduler advances scheduled command trees. It is safe to cancel from
// another goroutine while Run or Tick is in progress.
type Scheduler struct {
	mu       sync.Mutex
	period   time.Duration
	log      zerolog.Logger
	recorder Recorder
	clock    func() time.Time
	tickHook func(time.Duration)
	onResult func(Result)

	active map[string]*entry
	order  []string
}

type entry struct {
	runID   string
	cmd     command.Command
	root    runner
	ticks   int
	started time.Time
	// done receives the entry's Result when it leaves the scheduler.
	done chan Result
}

// Option customizes the scheduler instance.
type Option func(*Scheduler)

// WithPeriod sets the cycle length used by Run and passed to the tick hook.
func WithPeriod(period time.Duration) Option {
	return func(s *Scheduler) {
		if period > 0 {
			s.period = period
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Scheduler) {
		s.log = log
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(rec Recorder) Option {
	return func(s *Scheduler) {
		if rec != nil {
			s.recorder = rec
		}
	}
}

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithTickHook registers a function run at the start of every cycle with the
// configured period. The robot context uses it to run Periodic.
func WithTickHook(hook func(time.Duration)) Option {
	return func(s *Scheduler) {
		s.tickHook = hook
	}
}

// WithResultHandler receives the results of other commands that finish
// while Run is waiting on its own.
func WithResultHandler(fn func(Result)) Option {
	return func(s *Scheduler) {
		s.onResult = fn
	}
}

// New returns an idle scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		period:   defaultPeriod,
		log:      zerolog.Nop(),
		recorder: nopRecorder{},
		clock:    time.Now,
		active:   map[string]*entry{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Period returns the configured cycle length.
func (s *Scheduler) Period() time.Duration {
	return s.period
}

// Schedule registers cmd as a top-level command. It starts on the next Tick.
func (s *Scheduler) Schedule(cmd command.Command) (string, error) {
	e, err := s.schedule(cmd)
	if err != nil {
		return "", err
	}
	return e.runID, nil
}

func (s *Scheduler) schedule(cmd command.Command) (*entry, error) {
	if cmd == nil {
		return nil, ErrNilCommand
	}
	root, err := newRunner(cmd)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	name := cmd.Name()
	if _, exists := s.active[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyScheduled, name)
	}
	e := &entry{
		runID:   uuid.NewString(),
		cmd:     cmd,
		root:    root,
		started: s.clock(),
		done:    make(chan Result, 1),
	}
	s.active[name] = e
	s.order = append(s.order, name)
	s.recorder.CommandStarted(name)
	s.log.Info().Str("command", name).Str("run_id", e.runID).Bool("mirrored", cmd.IsMirrored()).Msg("command scheduled")
	return e, nil
}

// Tick runs one cycle over every active command in scheduling order and
// returns the commands that left the scheduler during it.
func (s *Scheduler) Tick() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	begin := time.Now()
	if s.tickHook != nil {
		s.tickHook(s.period)
	}
	var results []Result
	remaining := s.order[:0]
	for _, name := range s.order {
		e := s.active[name]
		e.ticks++
		done, err := e.root.step()
		switch {
		case err != nil:
			e.root.interrupt()
			results = append(results, s.finishLocked(e, StatusFailed, fmt.Errorf("scheduler: %s: %w", name, err)))
		case done:
			results = append(results, s.finishLocked(e, StatusCompleted, nil))
		default:
			remaining = append(remaining, name)
		}
	}
	s.order = remaining
	s.recorder.Tick(time.Since(begin))
	return results
}

// Cancel interrupts the named command. It reports false when nothing by that
// name is active.
func (s *Scheduler) Cancel(name string) (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.active[name]
	if !ok {
		return Result{}, false
	}
	e.root.interrupt()
	s.removeLocked(name)
	return s.finishLocked(e, StatusInterrupted, nil), true
}

// CancelAll interrupts every active command in scheduling order.
func (s *Scheduler) CancelAll() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	var results []Result
	for _, name := range s.order {
		e := s.active[name]
		e.root.interrupt()
		results = append(results, s.finishLocked(e, StatusInterrupted, nil))
	}
	s.order = nil
	return results
}

// Active returns the sorted names of scheduled commands.
func (s *Scheduler) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.active))
	for name := range s.active {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsScheduled reports whether a command by that name is active.
func (s *Scheduler) IsScheduled(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[name]
	return ok
}

// Run schedules cmd and ticks every period until it finishes, is cancelled
// from elsewhere, or ctx is done. Other active commands keep ticking
// alongside it; their results go to the WithResultHandler callback.
func (s *Scheduler) Run(ctx context.Context, cmd command.Command) (Result, error) {
	e, err := s.schedule(cmd)
	if err != nil {
		return Result{}, err
	}
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if res, ok := s.Cancel(cmd.Name()); ok {
				return res, ctx.Err()
			}
			select {
			case res := <-e.done:
				return res, res.Err
			default:
				return Result{RunID: e.runID, Name: cmd.Name(), Status: StatusInterrupted}, ctx.Err()
			}
		case res := <-e.done:
			return res, res.Err
		case <-ticker.C:
			for _, res := range s.Tick() {
				if res.RunID != e.runID && s.onResult != nil {
					s.onResult(res)
				}
			}
		}
	}
}

func (s *Scheduler) removeLocked(name string) {
	for idx, candidate := range s.order {
		if candidate == name {
			s.order = append(s.order[:idx], s.order[idx+1:]...)
			return
		}
	}
}

func (s *Scheduler) finishLocked(e *entry, status Status, err error) Result {
	name := e.cmd.Name()
	delete(s.active, name)
	res := Result{
		RunID:    e.runID,
		Name:     name,
		Status:   status,
		Ticks:    e.ticks,
		Started:  e.started,
		Finished: s.clock(),
		Err:      err,
	}
	e.done <- res
	s.recorder.CommandFinished(name, string(status))
	event := s.log.Info()
	if err != nil {
		event = s.log.Error().Err(err)
	}
	event.Str("command", name).Str("run_id", e.runID).Str("status", string(status)).Int("ticks", e.ticks).Msg("command finished")
	return res
}

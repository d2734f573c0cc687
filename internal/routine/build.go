package routine

import (
	"fmt"

	"github.com/kingrea/fieldbot/internal/actions"
	"github.com/kingrea/fieldbot/internal/command"
	"github.com/kingrea/fieldbot/internal/robot"
)

// Recorder receives one event per built routine. metrics.Recorder satisfies
// it.
type Recorder interface {
	RoutineBuilt(routine, side string, mirrored bool)
}

// BuildOption customizes Build.
type BuildOption func(*buildOptions)

type buildOptions struct {
	recorder Recorder
}

// WithRecorder reports each build to rec.
func WithRecorder(rec Recorder) BuildOption {
	return func(o *buildOptions) {
		o.recorder = rec
	}
}

// Build turns def into a command tree bound to rb. The tree is assembled
// bottom up, so every node is attached before the root is mirrored; the root
// is mirrored exactly when side differs from the side def was authored for.
func Build(def Definition, reg *actions.Registry, rb *robot.Robot, side Side, opts ...BuildOption) (command.Command, error) {
	if reg == nil {
		return nil, fmt.Errorf("routine: action registry is required")
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	requested, err := ParseSide(string(side))
	if err != nil {
		return nil, err
	}
	options := buildOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	normalized := def.Normalized()
	root, err := buildStep(normalized.Root, "root", reg, rb)
	if err != nil {
		return nil, fmt.Errorf("routine %s: %w", normalized.ID, err)
	}
	mirrored := requested != normalized.Side
	if mirrored {
		root.Mirror()
	}
	if options.recorder != nil {
		options.recorder.RoutineBuilt(normalized.ID, string(requested), mirrored)
	}
	return root, nil
}

func buildStep(step Step, path string, reg *actions.Registry, rb *robot.Robot) (command.Command, error) {
	if step.IsLeaf() {
		behavior, err := reg.Resolve(step.Action, rb, step.Params)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return command.NewLeaf(step.Name, behavior), nil
	}
	group := command.NewGroup(step.Name)
	for i, child := range step.Sequential {
		built, err := buildStep(child, fmt.Sprintf("%s.sequential[%d]", path, i), reg, rb)
		if err != nil {
			return nil, err
		}
		group.AddSequential(built)
	}
	for i, child := range step.Parallel {
		built, err := buildStep(child, fmt.Sprintf("%s.parallel[%d]", path, i), reg, rb)
		if err != nil {
			return nil, err
		}
		group.AddParallel(built)
	}
	return group, nil
}

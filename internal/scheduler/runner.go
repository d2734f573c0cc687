package scheduler

import (
	"fmt"

	"github.com/kingrea/fieldbot/internal/command"
)

// behaviorCommand is a leaf the scheduler can drive.
type behaviorCommand interface {
	command.Command
	Behavior() command.Behavior
}

type runner interface {
	// step advances one cycle and reports whether the node finished.
	step() (bool, error)
	// interrupt ends any started, unfinished work.
	interrupt()
}

func newRunner(cmd command.Command) (runner, error) {
	switch c := cmd.(type) {
	case behaviorCommand:
		return &leafRunner{leaf: c}, nil
	case command.Composite:
		return &groupRunner{group: c}, nil
	default:
		return nil, fmt.Errorf("%s: unsupported command type %T", cmd.Name(), cmd)
	}
}

type leafRunner struct {
	leaf     behaviorCommand
	started  bool
	finished bool
}

func (r *leafRunner) step() (bool, error) {
	if r.finished {
		return true, nil
	}
	behavior := r.leaf.Behavior()
	if behavior == nil {
		r.finished = true
		return true, nil
	}
	mirrored := r.leaf.IsMirrored()
	if !r.started {
		r.started = true
		if err := behavior.Initialize(mirrored); err != nil {
			return false, fmt.Errorf("%s: initialize: %w", r.leaf.Name(), err)
		}
	}
	if err := behavior.Execute(mirrored); err != nil {
		return false, fmt.Errorf("%s: execute: %w", r.leaf.Name(), err)
	}
	if behavior.IsFinished() {
		r.finished = true
		behavior.End(false)
		return true, nil
	}
	return false, nil
}

func (r *leafRunner) interrupt() {
	if !r.started || r.finished {
		return
	}
	r.finished = true
	if behavior := r.leaf.Behavior(); behavior != nil {
		behavior.End(true)
	}
}

type groupRunner struct {
	group      command.Composite
	started    bool
	sequential []runner
	parallel   []runner
	parDone    []bool
	seqIdx     int
}

func (r *groupRunner) expand() error {
	for _, child := range r.group.Sequential() {
		cr, err := newRunner(child)
		if err != nil {
			return err
		}
		r.sequential = append(r.sequential, cr)
	}
	for _, child := range r.group.Parallel() {
		cr, err := newRunner(child)
		if err != nil {
			return err
		}
		r.parallel = append(r.parallel, cr)
	}
	r.parDone = make([]bool, len(r.parallel))
	return nil
}

func (r *groupRunner) step() (bool, error) {
	if !r.started {
		r.started = true
		if err := r.expand(); err != nil {
			return false, fmt.Errorf("%s: %w", r.group.Name(), err)
		}
	}
	for idx, child := range r.parallel {
		if r.parDone[idx] {
			continue
		}
		done, err := child.step()
		if err != nil {
			return false, err
		}
		r.parDone[idx] = done
	}
	if r.seqIdx < len(r.sequential) {
		done, err := r.sequential[r.seqIdx].step()
		if err != nil {
			return false, err
		}
		if done {
			r.seqIdx++
		}
	}
	return r.finished(), nil
}

func (r *groupRunner) finished() bool {
	if r.seqIdx < len(r.sequential) {
		return false
	}
	for _, done := range r.parDone {
		if !done {
			return false
		}
	}
	return true
}

func (r *groupRunner) interrupt() {
	for idx, child := range r.parallel {
		if !r.parDone[idx] {
			child.interrupt()
		}
	}
	if r.seqIdx < len(r.sequential) {
		r.sequential[r.seqIdx].interrupt()
	}
}

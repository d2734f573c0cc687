package command

// Mirrorable is implemented by every unit that can take part in a mirrored
// routine tree.
type Mirrorable interface {
	// IsMirrored reports the node's own flag.
	IsMirrored() bool
	// Mirror marks the node (and, for groups, every child held at call time)
	// as mirrored and returns the node. The flag never resets.
	Mirror() Mirrorable
}

// Command is a named, schedulable node of a routine tree.
type Command interface {
	Mirrorable
	Name() string
}

// Composite is a command holding sequential and parallel children. Group
// is the stock implementation; Walk and the scheduler accept any Composite.
type Composite interface {
	Command
	Sequential() []Command
	Parallel() []Command
}

// Behavior is the lifecycle a leaf drives on behalf of the scheduler. The
// mirrored argument is the leaf's flag at call time; behaviors use it to pick
// the physically reflected variant of their action.
type Behavior interface {
	Initialize(mirrored bool) error
	Execute(mirrored bool) error
	IsFinished() bool
	End(interrupted bool)
}

// Instant adapts a one-shot function into a Behavior that finishes after its
// first Execute.
func Instant(fn func(mirrored bool) error) Behavior {
	return &instantBehavior{fn: fn}
}

type instantBehavior struct {
	fn   func(mirrored bool) error
	done bool
}

func (b *instantBehavior) Initialize(bool) error {
	b.done = false
	return nil
}

func (b *instantBehavior) Execute(mirrored bool) error {
	if b.done {
		return nil
	}
	b.done = true
	if b.fn == nil {
		return nil
	}
	return b.fn(mirrored)
}

func (b *instantBehavior) IsFinished() bool { return b.done }

func (b *instantBehavior) End(bool) {}

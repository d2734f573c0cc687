package command

// Group is a composite command. Sequential children run one after another in
// insertion order; parallel children run alongside them. The distinction only
// matters to the scheduler: mirroring treats both lists the same way.
type Group struct {
	name       string
	mirrored   bool
	sequential []Command
	parallel   []Command
}

var _ Composite = (*Group)(nil)

// NewGroup returns an empty, unmirrored group.
func NewGroup(name string) *Group {
	return &Group{name: name}
}

// Name implements Command.
func (g *Group) Name() string { return g.name }

// AddSequential appends child to the sequential list. A child added after the
// group was mirrored stays unmirrored until Mirror runs again. Nil is ignored.
func (g *Group) AddSequential(child Command) {
	if child == nil {
		return
	}
	g.sequential = append(g.sequential, child)
}

// AddParallel appends child to the parallel list with the same non-retroactive
// semantics as AddSequential.
func (g *Group) AddParallel(child Command) {
	if child == nil {
		return
	}
	g.parallel = append(g.parallel, child)
}

// IsMirrored reports the group's own flag; children are not consulted.
func (g *Group) IsMirrored() bool { return g.mirrored }

// Mirror sets the group's flag, then mirrors every sequential child followed
// by every parallel child, depth first. Only children present at call time
// are reached.
func (g *Group) Mirror() Mirrorable {
	g.mirrored = true
	for _, child := range g.sequential {
		child.Mirror()
	}
	for _, child := range g.parallel {
		child.Mirror()
	}
	return g
}

// Sequential returns a copy of the sequential children.
func (g *Group) Sequential() []Command {
	return cloneCommands(g.sequential)
}

// Parallel returns a copy of the parallel children.
func (g *Group) Parallel() []Command {
	return cloneCommands(g.parallel)
}

// Len returns the number of direct children.
func (g *Group) Len() int {
	return len(g.sequential) + len(g.parallel)
}

func cloneCommands(in []Command) []Command {
	if len(in) == 0 {
		return nil
	}
	out := make([]Command, len(in))
	copy(out, in)
	return out
}

package command

// Leaf is a terminal command wrapping one Behavior.
type Leaf struct {
	name     string
	behavior Behavior
	mirrored bool
}

// NewLeaf wraps behavior under the given name. The leaf starts unmirrored.
func NewLeaf(name string, behavior Behavior) *Leaf {
	return &Leaf{name: name, behavior: behavior}
}

// Name implements Command.
func (l *Leaf) Name() string { return l.name }

// Behavior returns the wrapped lifecycle.
func (l *Leaf) Behavior() Behavior { return l.behavior }

// IsMirrored implements Mirrorable.
func (l *Leaf) IsMirrored() bool { return l.mirrored }

// Mirror implements Mirrorable.
func (l *Leaf) Mirror() Mirrorable {
	l.mirrored = true
	return l
}

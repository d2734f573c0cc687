package command

// Role describes how a node is attached to its parent.
type Role string

const (
	RoleRoot       Role = "root"
	RoleSequential Role = "sequential"
	RoleParallel   Role = "parallel"
)

// Visit is handed to Walk callbacks for each reachable node.
type Visit struct {
	Command Command
	Depth   int
	Role    Role
	// Index is the position within the parent's sequential or parallel list.
	Index int
}

// Walk traverses root depth first in the order Mirror uses: a group's
// sequential children, then its parallel children. Returning false from visit
// skips the node's subtree.
func Walk(root Command, visit func(Visit) bool) {
	if root == nil || visit == nil {
		return
	}
	walk(Visit{Command: root, Role: RoleRoot}, visit)
}

func walk(v Visit, visit func(Visit) bool) {
	if !visit(v) {
		return
	}
	group, ok := v.Command.(Composite)
	if !ok {
		return
	}
	for idx, child := range group.Sequential() {
		walk(Visit{Command: child, Depth: v.Depth + 1, Role: RoleSequential, Index: idx}, visit)
	}
	for idx, child := range group.Parallel() {
		walk(Visit{Command: child, Depth: v.Depth + 1, Role: RoleParallel, Index: idx}, visit)
	}
}

// Unmirrored returns every reachable node whose flag is still false, in walk
// order. After mirroring a root it is empty unless children were attached
// late.
func Unmirrored(root Command) []Command {
	var out []Command
	Walk(root, func(v Visit) bool {
		if !v.Command.IsMirrored() {
			out = append(out, v.Command)
		}
		return true
	})
	return out
}

// Count returns the number of nodes reachable from root.
func Count(root Command) int {
	n := 0
	Walk(root, func(Visit) bool {
		n++
		return true
	})
	return n
}

package bindings

import (
	"fmt"
	"math"
	"sort"
)

// Key names a button-triggered operator action.
type Key string

const (
	LiftUp        Key = "lift-up"
	LiftDown      Key = "lift-down"
	GrabberToggle Key = "grabber-toggle"
	RunAuto       Key = "run-auto"
	CancelAll     Key = "cancel-all"
)

// Keys lists every known button key.
func Keys() []Key {
	return []Key{LiftUp, LiftDown, GrabberToggle, RunAuto, CancelAll}
}

// AxisKey names an analog operator input.
type AxisKey string

const (
	DriveForward AxisKey = "drive-forward"
	DriveTurn    AxisKey = "drive-turn"
)

// AxisKeys lists every known axis key.
func AxisKeys() []AxisKey {
	return []AxisKey{DriveForward, DriveTurn}
}

func knownKey(k Key) bool {
	for _, candidate := range Keys() {
		if candidate == k {
			return true
		}
	}
	return false
}

func knownAxisKey(k AxisKey) bool {
	for _, candidate := range AxisKeys() {
		if candidate == k {
			return true
		}
	}
	return false
}

// Binding maps a key to a joystick button. Buttons are numbered from 1.
type Binding struct {
	Port   int
	Button int
}

// AxisBinding maps an axis key to a joystick axis.
type AxisBinding struct {
	Port     int
	Axis     int
	Inverted bool
	Deadband float64
}

// Apply shapes a raw reading: inversion, then a deadband rescaled so output
// stays continuous at the edge of the band.
func (b AxisBinding) Apply(raw float64) float64 {
	v := math.Max(-1, math.Min(1, raw))
	if b.Inverted {
		v = -v
	}
	if math.Abs(v) <= b.Deadband {
		return 0
	}
	return math.Copysign((math.Abs(v)-b.Deadband)/(1-b.Deadband), v)
}

// Table is a resolved set of bindings. It is immutable once handed out.
type Table struct {
	buttons map[Key]Binding
	axes    map[AxisKey]AxisBinding
}

// NewTable copies the provided maps into a table.
func NewTable(buttons map[Key]Binding, axes map[AxisKey]AxisBinding) Table {
	t := Table{buttons: map[Key]Binding{}, axes: map[AxisKey]AxisBinding{}}
	for k, v := range buttons {
		t.buttons[k] = v
	}
	for k, v := range axes {
		t.axes[k] = v
	}
	return t
}

// Button looks up the binding for key.
func (t Table) Button(key Key) (Binding, bool) {
	b, ok := t.buttons[key]
	return b, ok
}

// Axis looks up the binding for key.
func (t Table) Axis(key AxisKey) (AxisBinding, bool) {
	b, ok := t.axes[key]
	return b, ok
}

// BoundKeys returns the bound button keys in a stable order.
func (t Table) BoundKeys() []Key {
	keys := make([]Key, 0, len(t.buttons))
	for k := range t.buttons {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Empty reports whether nothing is bound.
func (t Table) Empty() bool {
	return len(t.buttons) == 0 && len(t.axes) == 0
}

// Validate rejects unknown keys, bad ports and two keys sharing a button.
func (t Table) Validate() error {
	used := map[Binding]Key{}
	for _, key := range t.BoundKeys() {
		b := t.buttons[key]
		if !knownKey(key) {
			return fmt.Errorf("bindings: unknown key %q", key)
		}
		if b.Port < 0 || b.Button < 1 {
			return fmt.Errorf("bindings: %s needs port >= 0 and button >= 1", key)
		}
		if other, taken := used[b]; taken {
			return fmt.Errorf("bindings: %s and %s share port %d button %d", other, key, b.Port, b.Button)
		}
		used[b] = key
	}
	for key, b := range t.axes {
		if !knownAxisKey(key) {
			return fmt.Errorf("bindings: unknown axis %q", key)
		}
		if b.Port < 0 || b.Axis < 0 {
			return fmt.Errorf("bindings: %s needs port >= 0 and axis >= 0", key)
		}
		if b.Deadband < 0 || b.Deadband >= 1 {
			return fmt.Errorf("bindings: %s deadband must be in [0, 1)", key)
		}
	}
	return nil
}

// DefaultTable matches the bindings written to a fresh robot.toml.
func DefaultTable() Table {
	return NewTable(
		map[Key]Binding{
			LiftUp:        {Port: 0, Button: 4},
			LiftDown:      {Port: 0, Button: 2},
			GrabberToggle: {Port: 0, Button: 1},
			RunAuto:       {Port: 0, Button: 8},
			CancelAll:     {Port: 0, Button: 7},
		},
		map[AxisKey]AxisBinding{
			DriveForward: {Port: 0, Axis: 1, Inverted: true, Deadband: 0.08},
			DriveTurn:    {Port: 0, Axis: 0, Deadband: 0.08},
		},
	)
}

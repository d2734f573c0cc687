package bindings

import "sync"

// Input reads the operator's joysticks.
type Input interface {
	Button(port, button int) bool
	Axis(port, axis int) float64
}

type inputAddr struct{ port, index int }

// StaticInput is a settable Input used by tests and the keyboard-driven TUI.
type StaticInput struct {
	mu      sync.Mutex
	buttons map[inputAddr]bool
	axes    map[inputAddr]float64
}

// NewStaticInput returns an input with nothing pressed.
func NewStaticInput() *StaticInput {
	return &StaticInput{buttons: map[inputAddr]bool{}, axes: map[inputAddr]float64{}}
}

func (in *StaticInput) Button(port, button int) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.buttons[inputAddr{port, button}]
}

func (in *StaticInput) Axis(port, axis int) float64 {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.axes[inputAddr{port, axis}]
}

// SetButton presses or releases a button.
func (in *StaticInput) SetButton(port, button int, pressed bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.buttons[inputAddr{port, button}] = pressed
}

// SetAxis stores a raw axis reading.
func (in *StaticInput) SetAxis(port, axis int, value float64) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.axes[inputAddr{port, axis}] = value
}

// Press presses the button bound to key in table. It reports false when the
// key is unbound.
func (in *StaticInput) Press(table Table, key Key, pressed bool) bool {
	b, ok := table.Button(key)
	if !ok {
		return false
	}
	in.SetButton(b.Port, b.Button, pressed)
	return true
}

// ReleaseAll clears every button and centers every axis.
func (in *StaticInput) ReleaseAll() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.buttons = map[inputAddr]bool{}
	in.axes = map[inputAddr]float64{}
}

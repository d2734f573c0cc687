package bindings

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleTOML = `
[drivetrain]
left_motor = 0

[[binding]]
key = "lift-up"
port = 1
button = 3

[[binding]]
key = " Cancel-All "
port = 0
button = 7

[[axis]]
key = "drive-forward"
port = 1
axis = 2
inverted = true
deadband = 0.1
`

func TestParseTOMLReadsBindingArrays(t *testing.T) {
	table, err := ParseTOML([]byte(sampleTOML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if b, ok := table.Button(LiftUp); !ok || b.Port != 1 || b.Button != 3 {
		t.Fatalf("lift-up = %+v %v", b, ok)
	}
	if _, ok := table.Button(CancelAll); !ok {
		t.Fatalf("cancel-all key should be normalized")
	}
	if _, ok := table.Button(RunAuto); ok {
		t.Fatalf("run-auto should be unbound")
	}
	if a, ok := table.Axis(DriveForward); !ok || !a.Inverted || a.Axis != 2 {
		t.Fatalf("drive-forward = %+v %v", a, ok)
	}
}

func TestParseTOMLValidation(t *testing.T) {
	cases := map[string]string{
		"unknown key":   "[[binding]]\nkey = \"jump\"\nport = 0\nbutton = 1\n",
		"shared button": "[[binding]]\nkey = \"lift-up\"\nport = 0\nbutton = 1\n[[binding]]\nkey = \"lift-down\"\nport = 0\nbutton = 1\n",
		"button zero":   "[[binding]]\nkey = \"lift-up\"\nport = 0\nbutton = 0\n",
		"bound twice":   "[[binding]]\nkey = \"lift-up\"\nport = 0\nbutton = 1\n[[binding]]\nkey = \"lift-up\"\nport = 0\nbutton = 2\n",
		"deadband":      "[[axis]]\nkey = \"drive-turn\"\nport = 0\naxis = 0\ndeadband = 1.0\n",
		"unknown axis":  "[[axis]]\nkey = \"strafe\"\nport = 0\naxis = 0\n",
	}
	for name, payload := range cases {
		if _, err := ParseTOML([]byte(payload)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestDefaultTableMatchesDefaultFile(t *testing.T) {
	if err := DefaultTable().Validate(); err != nil {
		t.Fatalf("default table invalid: %v", err)
	}
	if got := len(DefaultTable().BoundKeys()); got != len(Keys()) {
		t.Fatalf("default table binds %d keys, want %d", got, len(Keys()))
	}
}

func TestAxisApply(t *testing.T) {
	b := AxisBinding{Inverted: true, Deadband: 0.2}
	if got := b.Apply(0.1); got != 0 {
		t.Fatalf("inside deadband should be zero, got %f", got)
	}
	if got := b.Apply(-1); math.Abs(got-1) > 1e-9 {
		t.Fatalf("full deflection should map to 1, got %f", got)
	}
	if got := b.Apply(-0.6); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("rescaled value = %f, want 0.5", got)
	}
	if got := b.Apply(-3); math.Abs(got-1) > 1e-9 {
		t.Fatalf("out of range input should clamp, got %f", got)
	}
}

func TestFileSourceReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robot.toml")
	if err := os.WriteFile(path, []byte(sampleTOML), 0644); err != nil {
		t.Fatal(err)
	}
	src := NewFileSource(path)
	table, err := src.Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if b, _ := table.Button(LiftUp); b.Button != 3 {
		t.Fatalf("unexpected first table %+v", b)
	}

	updated := strings.Replace(sampleTOML, "button = 3", "button = 5", 1)
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatal(err)
	}
	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}
	table, err = src.Resolve()
	if err != nil {
		t.Fatalf("resolve after edit: %v", err)
	}
	if b, _ := table.Button(LiftUp); b.Button != 5 {
		t.Fatalf("edit not picked up, got %+v", b)
	}

	if err := os.WriteFile(path, []byte("[[binding]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	evenLater := later.Add(2 * time.Second)
	if err := os.Chtimes(path, evenLater, evenLater); err != nil {
		t.Fatal(err)
	}
	table, err = src.Resolve()
	if err == nil {
		t.Fatalf("expected parse error after broken edit")
	}
	if b, _ := table.Button(LiftUp); b.Button != 5 {
		t.Fatalf("last good table should be kept, got %+v", b)
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "absent.toml"))
	table, err := src.Resolve()
	if err == nil || !table.Empty() {
		t.Fatalf("expected error and empty table, got %v", err)
	}
}

func TestStaticInputPress(t *testing.T) {
	in := NewStaticInput()
	table := DefaultTable()
	if !in.Press(table, GrabberToggle, true) {
		t.Fatalf("grabber-toggle should be bound")
	}
	if !in.Button(0, 1) {
		t.Fatalf("button 1 should be pressed")
	}
	in.SetAxis(0, 1, -0.5)
	in.ReleaseAll()
	if in.Button(0, 1) || in.Axis(0, 1) != 0 {
		t.Fatalf("release all should reset input")
	}
	if in.Press(NewTable(nil, nil), LiftUp, true) {
		t.Fatalf("unbound key should report false")
	}
}

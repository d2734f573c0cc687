package bindings

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
)

// Source yields the binding table for the current poll cycle.
type Source interface {
	Resolve() (Table, error)
}

// StaticSource always resolves to the same table.
type StaticSource struct {
	Table Table
}

func (s StaticSource) Resolve() (Table, error) {
	return s.Table, nil
}

type fileBindings struct {
	Buttons []struct {
		Key    string `toml:"key"`
		Port   int    `toml:"port"`
		Button int    `toml:"button"`
	} `toml:"binding"`
	Axes []struct {
		Key      string  `toml:"key"`
		Port     int     `toml:"port"`
		Axis     int     `toml:"axis"`
		Inverted bool    `toml:"inverted"`
		Deadband float64 `toml:"deadband"`
	} `toml:"axis"`
}

// ParseTOML decodes [[binding]] and [[axis]] arrays. Other tables in the
// document are ignored so the hardware map can share the file.
func ParseTOML(data []byte) (Table, error) {
	var raw fileBindings
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return Table{}, fmt.Errorf("bindings: decode: %w", err)
	}
	buttons := map[Key]Binding{}
	for _, entry := range raw.Buttons {
		key := Key(strings.ToLower(strings.TrimSpace(entry.Key)))
		if _, dup := buttons[key]; dup {
			return Table{}, fmt.Errorf("bindings: %s bound twice", key)
		}
		buttons[key] = Binding{Port: entry.Port, Button: entry.Button}
	}
	axes := map[AxisKey]AxisBinding{}
	for _, entry := range raw.Axes {
		key := AxisKey(strings.ToLower(strings.TrimSpace(entry.Key)))
		if _, dup := axes[key]; dup {
			return Table{}, fmt.Errorf("bindings: axis %s bound twice", key)
		}
		axes[key] = AxisBinding{Port: entry.Port, Axis: entry.Axis, Inverted: entry.Inverted, Deadband: entry.Deadband}
	}
	table := NewTable(buttons, axes)
	if err := table.Validate(); err != nil {
		return Table{}, err
	}
	return table, nil
}

// FileSource resolves bindings from a TOML file, re-reading it whenever its
// modification time changes. Edits made while the robot is running take
// effect on the next poll cycle.
type FileSource struct {
	path string

	mu      sync.Mutex
	modTime time.Time
	size    int64
	table   Table
	loaded  bool
}

// NewFileSource watches path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the watched file.
func (s *FileSource) Path() string { return s.path }

// Resolve returns the current table. When the file changed but no longer
// parses, the last good table is returned together with the error.
func (s *FileSource) Resolve() (Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, err := os.Stat(s.path)
	if err != nil {
		return s.table, fmt.Errorf("bindings: stat %s: %w", s.path, err)
	}
	if s.loaded && info.ModTime().Equal(s.modTime) && info.Size() == s.size {
		return s.table, nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return s.table, fmt.Errorf("bindings: read %s: %w", s.path, err)
	}
	s.modTime = info.ModTime()
	s.size = info.Size()
	table, err := ParseTOML(data)
	if err != nil {
		return s.table, fmt.Errorf("bindings: %s: %w", s.path, err)
	}
	s.table = table
	s.loaded = true
	return table, nil
}

package journal

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level is the severity column of a note.
type Level string

const (
	LevelRun  Level = "RUN"
	LevelInfo Level = "INFO"
	LevelWarn Level = "WARN"
)

// Entry summarizes one routine run.
type Entry struct {
	RunID    string
	Routine  string
	Side     string
	Mirrored bool
	Status   string
	Ticks    int
	Duration time.Duration
	Err      error
}

func (e Entry) String() string {
	line := fmt.Sprintf("%s side=%s mirrored=%t status=%s ticks=%d duration=%s run=%s",
		e.Routine, e.Side, e.Mirrored, e.Status, e.Ticks, e.Duration.Round(time.Millisecond), e.RunID)
	if e.Err != nil {
		line += " err=" + strings.ReplaceAll(e.Err.Error(), "\n", " ")
	}
	return line
}

// Journal appends one line per routine run to .fieldbot/logs/runs.log so the
// drive team can review what ran in previous matches.
type Journal struct {
	path  string
	clock func() time.Time
	mu    sync.Mutex
}

// New creates a journal that writes to path.
func New(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &Journal{path: path, clock: time.Now}, nil
}

// Path returns the file backing this journal.
func (j *Journal) Path() string {
	if j == nil {
		return ""
	}
	return j.path
}

// Record appends a run entry.
func (j *Journal) Record(e Entry) error {
	return j.append(LevelRun, e.String())
}

// Note appends a free-form line, used for warnings such as children attached
// after a tree was mirrored.
func (j *Journal) Note(level Level, format string, args ...any) error {
	return j.append(level, fmt.Sprintf(format, args...))
}

func (j *Journal) append(level Level, message string) error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	line := fmt.Sprintf("%s %-4s %s\n",
		j.clock().UTC().Format(time.RFC3339),
		string(level),
		strings.TrimSpace(message),
	)
	file, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("journal: open %s: %w", j.path, err)
	}
	defer file.Close()
	if _, err := file.WriteString(line); err != nil {
		return fmt.Errorf("journal: write: %w", err)
	}
	return nil
}

// Tail returns up to maxLines of the most recent lines.
func (j *Journal) Tail(maxLines int) []string {
	if j == nil || maxLines <= 0 {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	file, err := os.Open(j.path)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > maxLines {
			lines = lines[1:]
		}
	}
	if len(lines) == 0 {
		return nil
	}
	return lines
}

// internal/config/config.go
//
// This package handles configuration and the .fieldbot directory structure.
// Every robot project gets a .fieldbot/ folder created in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// ProjectDirName is the name of the directory we create in each project
	ProjectDirName = ".fieldbot"

	defaultRoutineID = "two-cube"
	defaultPeriodMS  = 20
)

// Environment overrides, applied after config.yaml and .env are read.
const (
	EnvSide     = "FIELDBOT_SIDE"
	EnvLogLevel = "FIELDBOT_LOG_LEVEL"
	EnvPeriodMS = "FIELDBOT_PERIOD_MS"
)

const defaultProjectConfigYAML = `# fieldbot project configuration
version: 1
team: 0

# Side of the field the robot starts on. Routines authored for the other
# side are mirrored when they are built.
side: left

routines:
  # Extra directories holding *.yaml or *.go routine definitions, relative
  # to the project root.
  dirs:
    - .fieldbot/routines
  default: two-cube

scheduler:
  period_ms: 20

logging:
  level: info
`

// RoutineConfig captures routine discovery preferences.
type RoutineConfig struct {
	Dirs    []string `yaml:"dirs,omitempty"`
	Default string   `yaml:"default"`
}

// SchedulerConfig configures the command scheduler loop.
type SchedulerConfig struct {
	PeriodMS int `yaml:"period_ms"`
}

// LoggingConfig configures the log file.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ProjectConfig models .fieldbot/config.yaml.
type ProjectConfig struct {
	Version   int             `yaml:"version"`
	Team      int             `yaml:"team"`
	Side      string          `yaml:"side"`
	Routines  RoutineConfig   `yaml:"routines"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Config holds the runtime configuration for fieldbot.
type Config struct {
	// ProjectDir is the directory fieldbot was started from
	ProjectDir string

	// FieldbotDir is ProjectDir/.fieldbot
	FieldbotDir string

	Project  ProjectConfig
	Hardware HardwareConfig
}

// InitProjectDir creates the .fieldbot directory structure in the given
// project directory and writes default config files when they are missing.
//
// Structure created:
// .fieldbot/
// ├── config.yaml
// ├── robot.toml
// ├── logs/       <- fieldbot.log and runs.log
// ├── routines/   <- project routine definitions
// └── state/
func InitProjectDir(projectDir string) error {
	root := filepath.Join(projectDir, ProjectDirName)
	dirs := []string{
		filepath.Join(root, "logs"),
		filepath.Join(root, "routines"),
		filepath.Join(root, "state"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := ensureFile(filepath.Join(root, "config.yaml"), defaultProjectConfigYAML); err != nil {
		return err
	}
	if err := ensureFile(filepath.Join(root, "robot.toml"), defaultHardwareTOML); err != nil {
		return err
	}
	return nil
}

// NewConfig loads .env, config.yaml and robot.toml for the project.
func NewConfig(projectDir string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(projectDir, ".env")); err != nil {
		return nil, err
	}
	cfg := &Config{
		ProjectDir:  projectDir,
		FieldbotDir: filepath.Join(projectDir, ProjectDirName),
		Project:     defaultProjectConfig(),
		Hardware:    defaultHardwareConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	hw, err := LoadHardwareFile(cfg.HardwarePath())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		cfg.Hardware = hw
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.FieldbotDir, "logs")
}

// StateDir returns the path to the state directory
func (c *Config) StateDir() string {
	return filepath.Join(c.FieldbotDir, "state")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.FieldbotDir, "config.yaml")
}

// HardwarePath returns the robot.toml location. Bindings live in the same file.
func (c *Config) HardwarePath() string {
	return filepath.Join(c.FieldbotDir, "robot.toml")
}

// RoutineDirs returns absolute routine directories in declaration order.
func (c *Config) RoutineDirs() []string {
	return append([]string{}, c.Project.Routines.Dirs...)
}

// DefaultRoutine returns the configured default routine identifier.
func (c *Config) DefaultRoutine() string {
	return c.Project.Routines.Default
}

// Side returns the configured starting side.
func (c *Config) Side() string {
	return c.Project.Side
}

// Period returns the scheduler loop period.
func (c *Config) Period() time.Duration {
	return time.Duration(c.Project.Scheduler.PeriodMS) * time.Millisecond
}

// LogLevel returns the configured log level string.
func (c *Config) LogLevel() string {
	return c.Project.Logging.Level
}

// SetDefaultRoutine updates the default routine and persists config.yaml.
func (c *Config) SetDefaultRoutine(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("config: routine id is required")
	}
	c.Project.Routines.Default = id
	return c.saveProjectConfig()
}

// SetSide updates the starting side and persists config.yaml.
func (c *Config) SetSide(side string) error {
	side = normalizeSide(side)
	if err := validateSide(side); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Project.Side = side
	return c.saveProjectConfig()
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.Project.normalize(c.ProjectDir)
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize(c.ProjectDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func (c *Config) applyEnv() error {
	if raw, ok := os.LookupEnv(EnvSide); ok && strings.TrimSpace(raw) != "" {
		side := normalizeSide(raw)
		if err := validateSide(side); err != nil {
			return fmt.Errorf("config: %s: %w", EnvSide, err)
		}
		c.Project.Side = side
	}
	if raw, ok := os.LookupEnv(EnvLogLevel); ok && strings.TrimSpace(raw) != "" {
		c.Project.Logging.Level = strings.ToLower(strings.TrimSpace(raw))
	}
	if raw, ok := os.LookupEnv(EnvPeriodMS); ok && strings.TrimSpace(raw) != "" {
		ms, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || ms <= 0 {
			return fmt.Errorf("config: %s must be a positive integer, got %q", EnvPeriodMS, raw)
		}
		c.Project.Scheduler.PeriodMS = ms
	}
	return nil
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Side:    "left",
		Routines: RoutineConfig{
			Default: defaultRoutineID,
		},
		Scheduler: SchedulerConfig{PeriodMS: defaultPeriodMS},
		Logging:   LoggingConfig{Level: "info"},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if pc.Scheduler.PeriodMS == 0 {
		pc.Scheduler.PeriodMS = defaultPeriodMS
	}
	if strings.TrimSpace(pc.Logging.Level) == "" {
		pc.Logging.Level = "info"
	}
	if strings.TrimSpace(pc.Side) == "" {
		pc.Side = "left"
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Side = normalizeSide(pc.Side)
	pc.Logging.Level = strings.ToLower(strings.TrimSpace(pc.Logging.Level))
	pc.Routines.Default = strings.TrimSpace(pc.Routines.Default)
	if pc.Routines.Default == "" {
		pc.Routines.Default = defaultRoutineID
	}
	dirs := make([]string, 0, len(pc.Routines.Dirs))
	for _, dir := range pc.Routines.Dirs {
		if resolved := resolvePath(base, dir); resolved != "" {
			dirs = append(dirs, resolved)
		}
	}
	pc.Routines.Dirs = dirs
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if pc.Team < 0 {
		return fmt.Errorf("team must be >= 0")
	}
	if err := validateSide(pc.Side); err != nil {
		return err
	}
	if pc.Scheduler.PeriodMS <= 0 {
		return fmt.Errorf("scheduler.period_ms must be > 0")
	}
	if strings.TrimSpace(pc.Routines.Default) == "" {
		return fmt.Errorf("routines.default is required")
	}
	return nil
}

func normalizeSide(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func validateSide(side string) error {
	switch side {
	case "left", "right":
		return nil
	default:
		return fmt.Errorf("side must be 'left' or 'right', got %q", side)
	}
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureFile(path, contents string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(contents), 0644)
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Project.applyDefaults()
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.FieldbotDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure fieldbot dir: %w", err)
	}
	persisted := c.Project
	persisted.Routines.Dirs = relativeDirs(c.ProjectDir, c.Project.Routines.Dirs)
	data, err := yaml.Marshal(persisted)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}

func relativeDirs(base string, dirs []string) []string {
	if len(dirs) == 0 {
		return nil
	}
	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if rel, err := filepath.Rel(base, dir); err == nil && !strings.HasPrefix(rel, "..") {
			out = append(out, rel)
			continue
		}
		out = append(out, dir)
	}
	return out
}

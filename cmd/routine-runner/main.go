// cmd/routine-runner/main.go
//
// routine-runner builds one autonomous routine for a starting side and runs
// it against the simulated robot in real time, without the TUI.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/fieldbot/internal/command"
	"github.com/kingrea/fieldbot/internal/metrics"
	"github.com/kingrea/fieldbot/internal/routine"
	"github.com/kingrea/fieldbot/internal/scheduler"
	"github.com/kingrea/fieldbot/internal/session"
)

func main() {
	routineID := flag.StringP("routine", "r", "", "routine identifier to run (defaults to the project default)")
	sideFlag := flag.StringP("side", "s", "", "starting side, left or right (defaults to the project side)")
	projectDir := flag.StringP("project", "p", "", "path to the robot project (defaults to cwd)")
	timeout := flag.Duration("timeout", 30*time.Second, "give up and interrupt the routine after this long")
	configFile := flag.String("config-file", "", "path to a YAML file with step param overrides")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	treeOnly := flag.Bool("tree", false, "print the built command tree and exit")
	sets := keyValueFlag{}
	flag.Var(&sets, "set", "step param override (target.param=value, repeatable)")
	flag.Parse()

	project := *projectDir
	if project == "" {
		var err error
		project, err = os.Getwd()
		if err != nil {
			die("determine working directory: %v", err)
		}
	}
	absoluteProject, err := filepath.Abs(project)
	if err != nil {
		die("resolve project dir: %v", err)
	}
	s, err := session.Open(absoluteProject, session.WithOrigin("routine-runner"))
	if err != nil {
		die("open project: %v", err)
	}
	defer s.Close()

	id := strings.TrimSpace(*routineID)
	if id == "" {
		id = s.Config.DefaultRoutine()
	}
	side := s.Side()
	if strings.TrimSpace(*sideFlag) != "" {
		if side, err = routine.ParseSide(*sideFlag); err != nil {
			die("%v", err)
		}
	}
	overrides, err := buildOverrides(*configFile, sets)
	if err != nil {
		die("load overrides: %v", err)
	}

	cmd, def, err := s.BuildRoutine(id, side, overrides)
	if err != nil {
		die("build routine: %v", err)
	}
	if stale := s.WarnUnmirrored(cmd); stale > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d node(s) were attached after mirroring and run unmirrored\n", stale)
	}
	if *treeOnly {
		fmt.Print(formatTree(cmd))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *metricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, *metricsAddr); err != nil {
				fmt.Fprintf(os.Stderr, "metrics server stopped: %v\n", err)
			}
		}()
	}
	runCtx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	fmt.Printf("Running %s on the %s side (authored %s, mirrored=%t)\n", def.Name, side, def.Side, cmd.IsMirrored())
	res, runErr := s.Scheduler.Run(runCtx, cmd)
	s.Robot.Stop()
	if res.RunID != "" {
		s.Record(def.ID, side, cmd.IsMirrored(), res)
	}
	fmt.Printf("Run %s: %s after %d cycles (%s)\n", res.RunID, res.Status, res.Ticks, res.Finished.Sub(res.Started).Round(time.Millisecond))
	fmt.Printf("Final pose: %.2f m, %+.1f°\n", s.Robot.Drivetrain.Distance(), s.Robot.Drivetrain.Heading())
	if runErr != nil {
		die("run %s: %v", def.ID, runErr)
	}
	if res.Status != scheduler.StatusCompleted {
		os.Exit(1)
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// keyValueFlag collects repeated --set target.param=value flags.
type keyValueFlag map[string]string

func (kv *keyValueFlag) String() string {
	if kv == nil || len(*kv) == 0 {
		return ""
	}
	var pairs []string
	for key, value := range *kv {
		pairs = append(pairs, fmt.Sprintf("%s=%s", key, value))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ", ")
}

func (kv *keyValueFlag) Set(value string) error {
	parts := strings.SplitN(value, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	key := strings.TrimSpace(parts[0])
	if key == "" {
		return fmt.Errorf("override key is empty in %q", value)
	}
	if *kv == nil {
		*kv = keyValueFlag{}
	}
	(*kv)[key] = strings.TrimSpace(parts[1])
	return nil
}

func (kv *keyValueFlag) Type() string { return "key=value" }

// buildOverrides merges the config file with --set flags. Flags win.
func buildOverrides(configFile string, sets keyValueFlag) (map[string]any, error) {
	var out map[string]any
	if path := strings.TrimSpace(configFile); path != "" {
		fileOverrides, err := readOverridesFile(path)
		if err != nil {
			return nil, err
		}
		out = fileOverrides
	}
	if len(sets) > 0 {
		if out == nil {
			out = map[string]any{}
		}
		for key, value := range sets {
			out[key] = value
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// readOverridesFile accepts either flat "target.param: value" keys or one
// level of nesting ("target: {param: value}").
func readOverridesFile(path string) (map[string]any, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open config file %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, expected a file", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("config file %s is empty", path)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	out := make(map[string]any, len(raw))
	for key, value := range raw {
		nested, ok := value.(map[string]any)
		if !ok {
			out[key] = value
			continue
		}
		for param, v := range nested {
			out[key+"."+param] = v
		}
	}
	return out, nil
}

func formatTree(root command.Command) string {
	var b strings.Builder
	command.Walk(root, func(v command.Visit) bool {
		mark := " "
		if v.Command.IsMirrored() {
			mark = "M"
		}
		role := ""
		if v.Role != command.RoleRoot {
			role = fmt.Sprintf("%s[%d] ", v.Role, v.Index)
		}
		fmt.Fprintf(&b, "[%s] %s%s%s\n", mark, strings.Repeat("  ", v.Depth), role, v.Command.Name())
		return true
	})
	return b.String()
}

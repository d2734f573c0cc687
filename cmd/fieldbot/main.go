// cmd/fieldbot/main.go
//
// This is the entry point for the fieldbot pit display.
// Run `fieldbot` from a robot project directory to browse routines, preview
// their mirrored command trees and drive the simulated robot.
//
// Flow:
// 1. Open a session for the project (creates .fieldbot/ on first run)
// 2. Optionally expose Prometheus metrics
// 3. Launch the TUI

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	flag "github.com/spf13/pflag"

	"github.com/kingrea/fieldbot/internal/metrics"
	"github.com/kingrea/fieldbot/internal/session"
	"github.com/kingrea/fieldbot/internal/tui"
)

func main() {
	projectDir := flag.StringP("project", "p", "", "path to the robot project (defaults to cwd)")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9102)")
	flag.Parse()

	project := *projectDir
	if project == "" {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting working directory: %v\n", err)
			os.Exit(1)
		}
		project = cwd
	}
	project, err := filepath.Abs(project)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving project directory: %v\n", err)
		os.Exit(1)
	}

	s, err := session.Open(project, session.WithOrigin("fieldbot"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening project: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if *metricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, *metricsAddr); err != nil {
				s.Logger.Printf("metrics server stopped: %v", err)
			}
		}()
	}

	app, err := tui.NewApp(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building TUI: %v\n", err)
		os.Exit(1)
	}
	// Run blocks until the user quits
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

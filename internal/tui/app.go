// internal/tui/app.go
//
// The fieldbot pit display. It follows The Elm Architecture via bubbletea:
// messages come in through Update, state lives on App, View renders it.
//
// Screens:
// 1. Routine list: pick a routine, flip the starting side, set the default
// 2. Routine detail: the built command tree with per-node mirror flags,
//    run it in simulation or cancel it
// 3. Teleop: drive the simulated robot from the keyboard through the same
//    binding table a joystick uses

package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/fieldbot/internal/bindings"
	"github.com/kingrea/fieldbot/internal/routine"
	"github.com/kingrea/fieldbot/internal/scheduler"
	"github.com/kingrea/fieldbot/internal/session"
)

// appState represents which screen we're on
type appState int

const (
	stateRoutineList appState = iota
	stateRoutineDetail
	stateTeleop
)

// tickMsg drives one control cycle.
type tickMsg time.Time

// App is the main application model.
type App struct {
	state   appState
	session *session.Session

	routineMenu list.Model
	side        routine.Side
	detail      *routineView

	// ticking is true while a tickMsg is in flight.
	ticking bool
	// momentary holds buttons pressed from the keyboard, released after one
	// cycle.
	momentary []bindings.Key
	// tickNow lets tests advance time without sleeping.
	tickNow func() tea.Cmd

	statusMsg string
	err       error

	width  int
	height int
}

// routineItem implements list.Item for the routine menu.
type routineItem struct {
	id    string
	title string
	desc  string
}

func (i routineItem) Title() string       { return i.title }
func (i routineItem) Description() string { return i.desc }
func (i routineItem) FilterValue() string { return i.id }

// NewApp builds the model around an open session.
func NewApp(s *session.Session) (*App, error) {
	if s == nil {
		return nil, fmt.Errorf("tui: session is required")
	}
	menu := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	menu.Title = "Routines"
	menu.SetShowStatusBar(false)
	menu.SetFilteringEnabled(false)
	app := &App{
		state:       stateRoutineList,
		session:     s,
		routineMenu: menu,
		side:        s.Side(),
	}
	app.refreshRoutineMenu()
	return app, nil
}

func (a *App) refreshRoutineMenu() {
	catalog := a.session.Catalog
	ids := catalog.IDs()
	items := make([]list.Item, 0, len(ids))
	selected := 0
	for idx, id := range ids {
		def, _ := catalog.Get(id)
		item := routineItem{id: id, title: def.Name}
		var parts []string
		if def.Description != "" {
			parts = append(parts, def.Description)
		}
		parts = append(parts, fmt.Sprintf("authored %s", def.Side))
		if id == a.session.Config.DefaultRoutine() {
			item.title += " ★"
			selected = idx
		}
		item.desc = strings.Join(parts, " · ")
		items = append(items, item)
	}
	a.routineMenu.SetItems(items)
	if len(items) > 0 {
		a.routineMenu.Select(selected)
	}
}

func (a *App) selectedRoutine() string {
	item, ok := a.routineMenu.SelectedItem().(routineItem)
	if !ok {
		return ""
	}
	return item.id
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.routineMenu.SetSize(max(0, msg.Width-6), max(0, msg.Height-12))
		return a, nil

	case tickMsg:
		return a, a.handleTick()

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "ctrl+c":
			a.session.CancelAll()
			return a, tea.Quit
		case "q":
			if a.state == stateRoutineList {
				a.session.CancelAll()
				return a, tea.Quit
			}
		case "esc":
			if a.state != stateRoutineList {
				a.state = stateRoutineList
				a.statusMsg = ""
				return a, nil
			}
		case "tab":
			if a.state == stateTeleop {
				a.state = stateRoutineList
				return a, nil
			}
			a.state = stateTeleop
			a.statusMsg = "Teleop: arrows drive, u/j lift, space grabber, g run auto, c cancel"
			return a, a.ensureTicking()
		}
		switch a.state {
		case stateRoutineList:
			if cmd, handled := a.handleListKey(key); handled {
				return a, cmd
			}
		case stateRoutineDetail:
			return a, a.handleDetailKey(key)
		case stateTeleop:
			return a, a.handleTeleopKey(key)
		}
	}

	var cmd tea.Cmd
	if a.state == stateRoutineList {
		a.routineMenu, cmd = a.routineMenu.Update(msg)
	}
	return a, cmd
}

func (a *App) handleListKey(key string) (tea.Cmd, bool) {
	switch key {
	case "enter":
		id := a.selectedRoutine()
		if id == "" {
			return nil, true
		}
		a.openDetail(id)
		return nil, true
	case "s":
		a.toggleSide()
		return nil, true
	case "d":
		id := a.selectedRoutine()
		if id == "" {
			return nil, true
		}
		if err := a.session.Config.SetDefaultRoutine(id); err != nil {
			a.err = err
			return nil, true
		}
		a.statusMsg = fmt.Sprintf("Default routine set to %s", id)
		a.refreshRoutineMenu()
		return nil, true
	}
	return nil, false
}

func (a *App) toggleSide() {
	next := a.side.Opposite()
	if err := a.session.Config.SetSide(string(next)); err != nil {
		a.err = err
		return
	}
	a.side = next
	a.statusMsg = fmt.Sprintf("Starting side: %s", next)
	if a.detail != nil {
		a.detail.rebuild(a.side)
	}
}

func (a *App) openDetail(id string) {
	view, err := newRoutineView(a.session, id, a.side)
	if err != nil {
		a.err = err
		return
	}
	a.err = nil
	a.detail = view
	a.state = stateRoutineDetail
	a.statusMsg = "r run · m mirror · s flip side · x cancel · esc back"
}

func (a *App) handleDetailKey(key string) tea.Cmd {
	v := a.detail
	if v == nil {
		return nil
	}
	switch key {
	case "m":
		v.mirror()
		a.statusMsg = "Mirrored the preview tree"
	case "s":
		a.toggleSide()
	case "r":
		if err := v.run(); err != nil {
			a.err = err
			return nil
		}
		a.err = nil
		a.statusMsg = fmt.Sprintf("Running %s on the %s side", v.routineID, v.side)
		return a.ensureTicking()
	case "x":
		a.applyResults(a.session.CancelAll())
	}
	return nil
}

func (a *App) handleTeleopKey(key string) tea.Cmd {
	in := a.session.Input
	table, err := a.session.Bindings.Resolve()
	if err != nil && table.Empty() {
		a.err = err
		return nil
	}
	setAxis := func(axis bindings.AxisKey, value float64) {
		b, ok := table.Axis(axis)
		if !ok {
			return
		}
		if b.Inverted {
			value = -value
		}
		in.SetAxis(b.Port, b.Axis, value)
	}
	switch key {
	case "up":
		setAxis(bindings.DriveForward, 1)
		setAxis(bindings.DriveTurn, 0)
	case "down":
		setAxis(bindings.DriveForward, -1)
		setAxis(bindings.DriveTurn, 0)
	case "left":
		setAxis(bindings.DriveTurn, -1)
	case "right":
		setAxis(bindings.DriveTurn, 1)
	case "space", " ":
		a.press(table, bindings.GrabberToggle)
	case "g":
		a.press(table, bindings.RunAuto)
	case "c":
		a.press(table, bindings.CancelAll)
	case "u":
		a.press(table, bindings.LiftUp)
	case "j":
		a.press(table, bindings.LiftDown)
	case "0":
		in.ReleaseAll()
	}
	return a.ensureTicking()
}

func (a *App) press(table bindings.Table, key bindings.Key) {
	if a.session.Input.Press(table, key, true) {
		a.momentary = append(a.momentary, key)
	}
}

func (a *App) ensureTicking() tea.Cmd {
	if a.ticking {
		return nil
	}
	a.ticking = true
	return a.nextTick()
}

func (a *App) nextTick() tea.Cmd {
	if a.tickNow != nil {
		return a.tickNow()
	}
	return tea.Tick(a.session.Scheduler.Period(), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a *App) handleTick() tea.Cmd {
	results, err := a.session.Step()
	if err != nil {
		a.err = err
	}
	released := len(a.momentary) > 0
	if released {
		if table, resolveErr := a.session.Bindings.Resolve(); resolveErr == nil || !table.Empty() {
			for _, key := range a.momentary {
				a.session.Input.Press(table, key, false)
			}
		}
		a.momentary = nil
	}
	a.applyResults(results)
	if a.state == stateTeleop || len(a.session.Scheduler.Active()) > 0 || released {
		return a.nextTick()
	}
	a.ticking = false
	return nil
}

func (a *App) applyResults(results []scheduler.Result) {
	for _, res := range results {
		switch res.Status {
		case scheduler.StatusCompleted:
			a.statusMsg = fmt.Sprintf("%s completed in %d cycles", res.Name, res.Ticks)
		case scheduler.StatusInterrupted:
			a.statusMsg = fmt.Sprintf("%s interrupted", res.Name)
		case scheduler.StatusFailed:
			a.statusMsg = fmt.Sprintf("%s failed", res.Name)
			a.err = res.Err
		}
		if a.detail != nil && a.detail.runID == res.RunID {
			a.detail.finished(res)
		}
	}
}

// View renders the current screen.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	var content string
	switch a.state {
	case stateRoutineList:
		content = a.routineMenu.View()
	case stateRoutineDetail:
		if a.detail != nil {
			content = a.detail.View()
		}
	case stateTeleop:
		content = a.renderTeleop()
	}
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF6B6B")).
		MarginBottom(1).
		Render(fmt.Sprintf("⬡ FIELDBOT · side %s", strings.ToUpper(string(a.side))))
	main := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Width(max(20, width-4)).
		Render(content)
	parts := []string{header, main}
	if panel := a.renderJournalPanel(); panel != "" {
		parts = append(parts, panel)
	}
	parts = append(parts, a.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (a *App) renderFooter() string {
	var lines []string
	if a.statusMsg != "" {
		lines = append(lines, a.statusMsg)
	}
	if a.err != nil {
		lines = append(lines, lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Render("Error: "+a.err.Error()))
	}
	lines = append(lines, "enter open · s side · d default · tab teleop · q quit")
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Render(strings.Join(lines, "\n"))
}

func (a *App) renderJournalPanel() string {
	j := a.session.Journal
	lines := j.Tail(6)
	if len(lines) == 0 {
		return ""
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("RUNS · %s", filepath.Base(j.Path())))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(fmt.Sprintf("%s\n%s", head, body))
}

func (a *App) renderTeleop() string {
	rb := a.session.Robot
	left, right := rb.Drivetrain.Outputs()
	claw := "closed"
	if rb.Grabber.IsOpen() {
		claw = "open"
	}
	lift := fmt.Sprintf("%.2f m", a.session.Sim.LiftHeight())
	switch {
	case rb.Lift.AtTop():
		lift += " (top)"
	case rb.Lift.AtBottom():
		lift += " (bottom)"
	}
	driving := "sticks"
	if !a.session.Teleop.DriveEnabled() {
		driving = "autonomous"
	}
	rows := []string{
		labelStyleRunning.Render("TELEOP"),
		fmt.Sprintf("drive    L %+.2f  R %+.2f  (%s)", left, right, driving),
		fmt.Sprintf("pose     %.2f m  %+.1f°", rb.Drivetrain.Distance(), rb.Drivetrain.Heading()),
		fmt.Sprintf("lift     %s", lift),
		fmt.Sprintf("grabber  %s", claw),
	}
	if active := a.session.Scheduler.Active(); len(active) > 0 {
		rows = append(rows, fmt.Sprintf("running  %s", strings.Join(active, ", ")))
	}
	return strings.Join(rows, "\n")
}

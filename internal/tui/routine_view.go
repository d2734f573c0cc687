package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/fieldbot/internal/command"
	"github.com/kingrea/fieldbot/internal/routine"
	"github.com/kingrea/fieldbot/internal/scheduler"
	"github.com/kingrea/fieldbot/internal/session"
)

var (
	labelStyleReady    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	labelStyleFailed   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	labelStyleRunning  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	labelStyleMirrored = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	labelStyleMuted    = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	labelStyleNode     = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	detailStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
)

// routineView previews one routine as the command tree it builds into.
type routineView struct {
	session   *session.Session
	routineID string
	side      routine.Side
	def       routine.Definition
	preview   command.Command
	err       error

	// runID is set while the routine is scheduled.
	runID  string
	last   *scheduler.Result
	passes int
}

func newRoutineView(s *session.Session, id string, side routine.Side) (*routineView, error) {
	v := &routineView{session: s, routineID: id}
	v.rebuild(side)
	if v.err != nil {
		return nil, v.err
	}
	return v, nil
}

func (v *routineView) rebuild(side routine.Side) {
	v.side = side
	v.passes = 0
	cmd, def, err := v.session.BuildRoutine(v.routineID, side, nil)
	if err != nil {
		v.err = err
		return
	}
	v.err = nil
	v.def = def
	v.preview = cmd
	if cmd.IsMirrored() {
		v.passes = 1
	}
}

// mirror runs another mirror pass over the preview. The tree is unchanged
// after the first pass.
func (v *routineView) mirror() {
	if v.preview == nil {
		return
	}
	v.preview.Mirror()
	v.passes++
}

func (v *routineView) run() error {
	if v.runID != "" && v.session.Scheduler.IsScheduled(v.preview.Name()) {
		return fmt.Errorf("%s is already running", v.routineID)
	}
	cmd, runID, err := v.session.StartRoutine(v.routineID, v.side, nil)
	if err != nil {
		return err
	}
	v.preview = cmd
	v.runID = runID
	v.last = nil
	return nil
}

func (v *routineView) finished(res scheduler.Result) {
	v.runID = ""
	v.last = &res
}

func (v *routineView) View() string {
	var b strings.Builder
	title := v.def.Name
	if title == "" {
		title = v.routineID
	}
	fmt.Fprintf(&b, "%s\n", labelStyleRunning.Render(strings.ToUpper(title)))
	if v.def.Description != "" {
		fmt.Fprintf(&b, "%s\n", detailStyle.Render(v.def.Description))
	}
	fmt.Fprintf(&b, "%s\n\n", detailStyle.Render(fmt.Sprintf("authored %s · running %s · %s", v.def.Side, v.side, v.mirrorSummary())))
	if v.err != nil {
		fmt.Fprintf(&b, "%s\n", labelStyleFailed.Render("Error: "+v.err.Error()))
		return b.String()
	}
	b.WriteString(renderTree(v.preview))
	b.WriteString("\n")
	b.WriteString(v.statusLine())
	return b.String()
}

func (v *routineView) mirrorSummary() string {
	switch {
	case v.passes == 0:
		return "not mirrored"
	case v.passes == 1:
		return "mirrored"
	default:
		return fmt.Sprintf("mirrored (%d passes)", v.passes)
	}
}

func (v *routineView) statusLine() string {
	switch {
	case v.runID != "":
		return labelStyleRunning.Render("RUNNING") + " " + labelStyleMuted.Render(v.runID)
	case v.last == nil:
		return labelStyleMuted.Render("idle")
	case v.last.Status == scheduler.StatusCompleted:
		return labelStyleReady.Render("COMPLETED") + " " + labelStyleMuted.Render(fmt.Sprintf("%d cycles", v.last.Ticks))
	case v.last.Status == scheduler.StatusFailed:
		msg := "FAILED"
		if v.last.Err != nil {
			msg += " " + v.last.Err.Error()
		}
		return labelStyleFailed.Render(msg)
	default:
		return labelStyleMirrored.Render(strings.ToUpper(string(v.last.Status)))
	}
}

// renderTree draws root one node per line, indented by depth. Sequential
// children are numbered; parallel ones are marked with ∥.
func renderTree(root command.Command) string {
	var b strings.Builder
	command.Walk(root, func(visit command.Visit) bool {
		indent := strings.Repeat("  ", visit.Depth)
		marker := ""
		switch visit.Role {
		case command.RoleSequential:
			marker = fmt.Sprintf("%d.", visit.Index+1)
		case command.RoleParallel:
			marker = "∥"
		}
		name := visit.Command.Name()
		if _, ok := visit.Command.(*command.Group); ok {
			name += "/"
		}
		flag := labelStyleMuted.Render("·")
		if visit.Command.IsMirrored() {
			flag = labelStyleMirrored.Render("⇄")
		}
		line := strings.TrimSpace(fmt.Sprintf("%s %s", marker, labelStyleNode.Render(name)))
		fmt.Fprintf(&b, "%s%s %s\n", indent, flag, line)
		return true
	})
	return b.String()
}

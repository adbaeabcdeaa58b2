package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/claude/coachtrack/internal/workout"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("63")).
			Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	setStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	prStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	restStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

func (m *model) View() string {
	if m.done {
		return ""
	}
	switch m.snap.Phase {
	case workout.PhaseLoading:
		return m.loadingView()
	case workout.PhaseComplete:
		return m.completeView()
	}

	var b strings.Builder
	b.WriteString(m.headerView() + "\n")
	b.WriteString(m.dotsView() + "\n\n")

	card := m.cardView()
	if off := int(m.swipe.Offset()); off > 0 {
		card = lipgloss.NewStyle().MarginLeft(off).Render(card)
	}
	b.WriteString(card + "\n")

	if m.snap.Phase == workout.PhaseResting {
		b.WriteString(restStyle.Render(fmt.Sprintf("Rest %s / %s", clock(m.snap.RestLeft), clock(m.snap.RestTotal))))
		b.WriteString(dimStyle.Render("  s: skip") + "\n")
	}

	switch m.mode {
	case entryMode:
		label := "Log set"
		if m.editIdx >= 0 {
			label = fmt.Sprintf("Edit set %d", m.editIdx+1)
		}
		b.WriteString(promptStyle.Render(label+": ") + m.input.View() + "\n")
	case confirmMode:
		b.WriteString(promptStyle.Render(m.prompt+" (y/n)") + "\n")
	}
	if m.snap.Submitting {
		b.WriteString(dimStyle.Render("Saving workout...") + "\n")
	}
	if m.status != "" {
		b.WriteString(errorStyle.Render(m.status) + "\n")
	}
	b.WriteString("\n" + m.footerView())
	return b.String()
}

func (m *model) loadingView() string {
	if m.err == nil {
		return "\n  Loading workout...\n"
	}
	msg := "Could not load workout: " + m.err.Error()
	if errors.Is(m.err, workout.ErrNoWorkout) {
		msg = "No workout scheduled today."
	}
	return "\n  " + errorStyle.Render(msg) + "\n\n  " + dimStyle.Render("q: quit") + "\n"
}

func (m *model) completeView() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Workout complete") + "\n\n")
	if s := m.snap.Summary; s != nil {
		fmt.Fprintf(&b, "  %s  %d exercises\n", titleStyle.Render(m.snap.WorkoutName), s.Exercises)
		fmt.Fprintf(&b, "  %d sets, %s volume\n", s.TotalSets, strconv.FormatFloat(s.Volume, 'f', -1, 64))
		fmt.Fprintf(&b, "  %s\n", workout.FormatElapsed(s.Duration))
	}
	b.WriteString("\n  " + dimStyle.Render("enter: done"))
	return b.String()
}

func (m *model) headerView() string {
	return headerStyle.Render(m.snap.WorkoutName) + " " + dimStyle.Render(workout.FormatElapsed(m.snap.Elapsed))
}

// dotsView marks each exercise: the current one, finished ones and the rest.
func (m *model) dotsView() string {
	dots := make([]string, len(m.snap.Exercises))
	for i, ex := range m.snap.Exercises {
		switch {
		case i == m.snap.Cursor:
			dots[i] = titleStyle.Render("●")
		case ex.Done:
			dots[i] = restStyle.Render("✓")
		default:
			dots[i] = dimStyle.Render("○")
		}
	}
	return strings.Join(dots, " ")
}

func (m *model) cardView() string {
	cur, ok := m.snap.Current()
	if !ok {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(cur.Name) + "\n")
	b.WriteString(dimStyle.Render(target(cur)) + "\n")
	if cur.Notes != "" {
		b.WriteString(dimStyle.Render(cur.Notes) + "\n")
	}
	if cur.Last != nil && len(cur.Last.Sets) > 0 {
		last := make([]string, len(cur.Last.Sets))
		for i, s := range cur.Last.Sets {
			last[i] = fmt.Sprintf("%s×%d", strconv.FormatFloat(s.Weight, 'f', -1, 64), s.Reps)
		}
		b.WriteString(dimStyle.Render("Last: "+strings.Join(last, ", ")) + "\n")
	}

	b.WriteString("\n")
	for i, set := range cur.Sets {
		line := fmt.Sprintf("%d. %s×%d", i+1, strconv.FormatFloat(set.Weight, 'f', -1, 64), set.Reps)
		if set.RPE != nil {
			line += " @" + strconv.FormatFloat(*set.RPE, 'f', -1, 64)
		}
		b.WriteString(setStyle.Render(line))
		if set.PR {
			b.WriteString(" " + prStyle.Render("PR"))
		}
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("Set %d of %d", min(len(cur.Sets)+1, cur.PlannedExercise.Sets), cur.PlannedExercise.Sets)))

	style := cardStyle
	if m.width > 4 {
		style = style.Width(m.width - 4)
	}
	return style.Render(b.String())
}

// target describes the prescription, for example "3 × 6-8 @ RPE 8, rest 2:30".
func target(ex workout.ExerciseView) string {
	reps := strconv.Itoa(ex.RepsMin)
	if ex.RepsMax != nil && *ex.RepsMax != ex.RepsMin {
		reps += "-" + strconv.Itoa(*ex.RepsMax)
	}
	out := fmt.Sprintf("%d × %s", ex.PlannedExercise.Sets, reps)
	if ex.RPETarget != nil {
		out += " @ RPE " + strconv.FormatFloat(*ex.RPETarget, 'f', -1, 64)
	}
	if ex.RestSeconds > 0 {
		out += ", rest " + clock(ex.RestSeconds)
	}
	if ex.Tempo != "" {
		out += ", tempo " + ex.Tempo
	}
	return out
}

func clock(seconds int) string {
	return workout.FormatElapsed(time.Duration(seconds) * time.Second)
}

func (m *model) footerView() string {
	info := "←/→: exercise • enter: log set • e: edit • u: undo"
	if m.snap.Phase == workout.PhaseResting {
		info += " • s: skip rest"
	}
	info += " • f: finish • q: quit"
	return dimStyle.Render(info)
}

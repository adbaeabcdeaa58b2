// Package tui is the terminal workout screen.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/claude/coachtrack/internal/swipe"
	"github.com/claude/coachtrack/internal/workout"
)

type mode int

const (
	browseMode mode = iota
	entryMode
	confirmMode
)

// Swipe distances in terminal cells.
const (
	swipeThreshold    = 4
	swipeLockDistance = 2
	swipeVerticalLock = 2
)

// SessionFactory builds a session with the given options filled in.
type SessionFactory func(workout.Options) *workout.Session

type model struct {
	ctx     context.Context
	session *workout.Session
	signals *signals
	swipe   *swipe.Detector

	snap    workout.Snapshot
	input   textinput.Model
	mode    mode
	editIdx int // -1 when entering a new set
	prompt  string
	status  string
	err     error
	width   int
	done    bool
}

// newModel creates the screen and its session. Passing nil for feedback
// keeps rest endings silent.
func newModel(ctx context.Context, factory SessionFactory, feedback workout.Feedback) *model {
	sig := newSignals()
	input := textinput.New()
	input.Placeholder = "weight reps [rpe]"
	input.CharLimit = 24
	input.Width = 24

	m := &model{
		ctx:     ctx,
		signals: sig,
		input:   input,
		editIdx: -1,
	}
	m.session = factory(workout.Options{
		Feedback: feedback,
		OnChange: sig.onChange,
		OnExit:   sig.onExit,
	})

	d := swipe.NewDetector()
	d.Threshold = swipeThreshold
	d.LockDistance = swipeLockDistance
	d.VerticalLock = swipeVerticalLock
	d.Enabled = func() bool { return m.mode == browseMode && m.session.Phase() == workout.PhaseActive }
	m.swipe = d
	return m
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(startCmd(m.ctx, m.session), m.signals.waitCmd())
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case startedMsg:
		m.err = msg.Err
		m.refresh()

	case changedMsg:
		m.refresh()
		return m, m.signals.waitCmd()

	case exitedMsg:
		return m.quit()

	case finishedMsg:
		m.refresh()
		switch {
		case msg.Prompt != "":
			m.mode = confirmMode
			m.prompt = msg.Prompt
		case msg.Err != nil:
			m.status = "Could not save workout: " + msg.Err.Error() + ". Press f to retry."
		default:
			m.status = ""
		}

	case tea.MouseMsg:
		m.handleMouse(msg)
		m.refresh()

	case tea.KeyMsg:
		cmd := m.handleKey(msg)
		m.refresh()
		return m, cmd
	}
	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyCtrlC {
		_, cmd := m.quit()
		return cmd
	}

	switch m.mode {
	case entryMode:
		return m.handleEntryKey(msg)
	case confirmMode:
		switch msg.String() {
		case "y", "Y":
			m.mode = browseMode
			m.prompt = ""
			return finishCmd(m.ctx, m.session, true)
		case "n", "N", "esc":
			m.mode = browseMode
			m.prompt = ""
		}
		return nil
	}

	if m.snap.Phase == workout.PhaseComplete {
		switch msg.String() {
		case "q", "enter", "esc":
			m.session.Dismiss()
		}
		return nil
	}

	switch msg.String() {
	case "q":
		_, cmd := m.quit()
		return cmd
	case "left", "h":
		m.session.Prev()
	case "right", "l":
		m.session.Next()
	case "enter", "a":
		return m.beginEntry(-1, "")
	case "e":
		cur, ok := m.snap.Current()
		if !ok || len(cur.Sets) == 0 {
			return nil
		}
		idx := len(cur.Sets) - 1
		return m.beginEntry(idx, formatSet(cur.Sets[idx]))
	case "u":
		m.session.UndoLastSet()
	case "s":
		m.session.SkipRest()
	case "f":
		m.status = ""
		return finishCmd(m.ctx, m.session, false)
	}
	return nil
}

func (m *model) beginEntry(idx int, value string) tea.Cmd {
	if m.snap.Submitting || (m.snap.Phase != workout.PhaseActive && m.snap.Phase != workout.PhaseResting) {
		return nil
	}
	m.mode = entryMode
	m.editIdx = idx
	m.status = ""
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *model) endEntry() {
	m.mode = browseMode
	m.editIdx = -1
	m.input.Reset()
	m.input.Blur()
}

func (m *model) handleEntryKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.endEntry()
		return nil
	case tea.KeyEnter:
		set, err := parseSet(m.input.Value())
		if err != nil {
			m.status = err.Error()
			return nil
		}
		var ok bool
		if m.editIdx >= 0 {
			ok = m.session.EditSet(m.editIdx, set)
		} else {
			ok = m.session.LogSet(set)
		}
		if !ok {
			m.status = "set not logged"
			return nil
		}
		m.endEntry()
		return nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *model) handleMouse(msg tea.MouseMsg) {
	x, y := float64(msg.X), float64(msg.Y)
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return
		}
		target := ""
		if m.mode == entryMode {
			target = "input"
		}
		m.swipe.Start(x, y, target)
	case tea.MouseActionMotion:
		m.swipe.Move(x, y)
	case tea.MouseActionRelease:
		swipe.Dispatch(m.swipe.End(), m.session)
	}
}

func (m *model) refresh() {
	m.snap = m.session.Snapshot()
}

func (m *model) quit() (tea.Model, tea.Cmd) {
	m.done = true
	m.session.Close()
	return m, tea.Quit
}

// Run shows the workout screen until the user quits or the completed
// session is dismissed.
func Run(ctx context.Context, factory SessionFactory, out io.Writer) error {
	m := newModel(ctx, factory, Bell{W: out})
	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithOutput(out),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running workout screen: %w", err)
	}
	if fm, ok := final.(*model); ok && fm.err != nil {
		return fm.err
	}
	return nil
}

package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/claude/coachtrack/internal/workout"
)

// Message types for session events
type (
	// startedMsg reports the result of loading today's workout
	startedMsg struct {
		Err error
	}

	// changedMsg signals that the session changed outside Update, such as a timer tick
	changedMsg struct{}

	// exitedMsg signals that the completion screen was dismissed
	exitedMsg struct{}

	// finishedMsg reports a submission attempt. Prompt is set when the
	// session asked for confirmation and it was not yet given.
	finishedMsg struct {
		Err    error
		Prompt string
	}
)

// signals coalesces session callbacks into at most one pending message of
// each kind, so callbacks never block on the event loop.
type signals struct {
	changed chan struct{}
	exited  chan struct{}
}

func newSignals() *signals {
	return &signals{
		changed: make(chan struct{}, 1),
		exited:  make(chan struct{}, 1),
	}
}

func (s *signals) onChange() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func (s *signals) onExit() {
	select {
	case s.exited <- struct{}{}:
	default:
	}
}

// waitCmd blocks until the session signals and reports what happened
func (s *signals) waitCmd() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-s.exited:
			return exitedMsg{}
		default:
		}
		select {
		case <-s.exited:
			return exitedMsg{}
		case <-s.changed:
			return changedMsg{}
		}
	}
}

// startCmd loads today's workout asynchronously
func startCmd(ctx context.Context, s *workout.Session) tea.Cmd {
	return func() tea.Msg {
		return startedMsg{Err: s.Start(ctx)}
	}
}

// finishCmd submits the session. With confirmed unset, a session that
// needs confirmation comes back with the question instead of submitting.
func finishCmd(ctx context.Context, s *workout.Session, confirmed bool) tea.Cmd {
	return func() tea.Msg {
		var prompt string
		err := s.Finish(ctx, func(message string) bool {
			prompt = message
			return confirmed
		})
		if !errors.Is(err, workout.ErrFinishDeclined) {
			prompt = ""
		}
		return finishedMsg{Err: err, Prompt: prompt}
	}
}

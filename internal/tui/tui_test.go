package tui

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/claude/coachtrack/internal/api"
	"github.com/claude/coachtrack/internal/models"
	"github.com/claude/coachtrack/internal/workout"
)

type fakeAPI struct {
	data      *models.WorkoutSessionData
	submitted []models.WorkoutLogPayload
	// When set, LogWorkout closes entered and waits for release.
	entered, release chan struct{}
}

func (a *fakeAPI) StartWorkout(ctx context.Context) (*models.WorkoutSessionData, error) {
	return a.data, nil
}

func (a *fakeAPI) LogWorkout(ctx context.Context, p models.WorkoutLogPayload) (*api.Result, error) {
	if a.entered != nil {
		close(a.entered)
		<-a.release
	}
	a.submitted = append(a.submitted, p)
	return &api.Result{}, nil
}

type countingFeedback struct {
	rests atomic.Int32
}

func (f *countingFeedback) RestFinished() { f.rests.Add(1) }

func plan() *models.WorkoutSessionData {
	return &models.WorkoutSessionData{
		Available:   true,
		WorkoutName: "Upper A",
		DayPlanID:   "day-1",
		Exercises: []models.PlannedExercise{
			{ID: "pe-1", ExerciseID: "ex-1", Name: "Bench Press", Order: 1, Sets: 2, RepsMin: 5, RestSeconds: 60},
			{ID: "pe-2", ExerciseID: "ex-2", Name: "Row", Order: 2, Sets: 2, RepsMin: 8, RestSeconds: 60},
		},
	}
}

type fixture struct {
	m        *model
	api      *fakeAPI
	clock    *workout.ManualClock
	feedback *countingFeedback
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		api:      &fakeAPI{data: plan()},
		clock:    workout.NewManualClock(time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)),
		feedback: &countingFeedback{},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	factory := func(o workout.Options) *workout.Session {
		o.Clock = f.clock
		o.Log = log
		return workout.NewSession(f.api, o)
	}
	f.m = newModel(context.Background(), factory, f.feedback)
	t.Cleanup(f.m.session.Close)

	f.m.Update(startCmd(context.Background(), f.m.session)())
	if f.m.snap.Phase != workout.PhaseActive {
		t.Fatalf("phase after start = %v, want active", f.m.snap.Phase)
	}
	return f
}

func (f *fixture) press(keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = f.m.Update(keyMsg(k))
	}
	return cmd
}

func (f *fixture) logSet(t *testing.T, text string) {
	t.Helper()
	f.press("enter")
	if f.m.mode != entryMode {
		t.Fatalf("mode = %v, want entry", f.m.mode)
	}
	f.m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	f.press("enter")
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// TestLogSetFromInput verifies a typed set is logged and starts the rest timer.
func TestLogSetFromInput(t *testing.T) {
	f := newFixture(t)
	f.logSet(t, "80 5 8")

	cur, _ := f.m.snap.Current()
	if len(cur.Sets) != 1 || cur.Sets[0].Weight != 80 || cur.Sets[0].Reps != 5 || *cur.Sets[0].RPE != 8 {
		t.Fatalf("sets = %+v", cur.Sets)
	}
	if f.m.mode != browseMode {
		t.Errorf("mode = %v, want browse", f.m.mode)
	}
	if f.m.snap.Phase != workout.PhaseResting || f.m.snap.RestLeft != 60 {
		t.Errorf("phase = %v, rest = %d; want resting 60", f.m.snap.Phase, f.m.snap.RestLeft)
	}
	if !strings.Contains(f.m.View(), "Rest 01:00") {
		t.Errorf("view lacks rest countdown:\n%s", f.m.View())
	}
}

// TestInvalidInputStaysInEntry verifies a bad set is reported and nothing is logged.
func TestInvalidInputStaysInEntry(t *testing.T) {
	f := newFixture(t)
	f.logSet(t, "heavy")

	if f.m.mode != entryMode {
		t.Errorf("mode = %v, want entry", f.m.mode)
	}
	if f.m.status == "" {
		t.Error("no error shown")
	}
	if cur, _ := f.m.snap.Current(); len(cur.Sets) != 0 {
		t.Errorf("sets = %d, want 0", len(cur.Sets))
	}

	f.press("esc")
	if f.m.mode != browseMode {
		t.Errorf("mode after esc = %v, want browse", f.m.mode)
	}
}

// TestEditAndUndo verifies e edits the last set and u removes it.
func TestEditAndUndo(t *testing.T) {
	f := newFixture(t)
	f.logSet(t, "80 5")

	f.press("e")
	if got := f.m.input.Value(); got != "80 5" {
		t.Errorf("prefill = %q, want %q", got, "80 5")
	}
	f.m.input.SetValue("82.5 5")
	f.press("enter")
	if cur, _ := f.m.snap.Current(); cur.Sets[0].Weight != 82.5 {
		t.Errorf("edited weight = %v, want 82.5", cur.Sets[0].Weight)
	}

	f.press("u")
	if cur, _ := f.m.snap.Current(); len(cur.Sets) != 0 {
		t.Errorf("sets after undo = %d, want 0", len(cur.Sets))
	}
}

// TestNavigationKeys verifies arrow and vi keys move between exercises.
func TestNavigationKeys(t *testing.T) {
	f := newFixture(t)

	f.press("right")
	if f.m.snap.Cursor != 1 {
		t.Errorf("cursor after right = %d, want 1", f.m.snap.Cursor)
	}
	f.press("l")
	if f.m.snap.Cursor != 1 {
		t.Errorf("cursor past the end = %d, want 1", f.m.snap.Cursor)
	}
	f.press("h")
	if f.m.snap.Cursor != 0 {
		t.Errorf("cursor after h = %d, want 0", f.m.snap.Cursor)
	}
}

// TestRestEndsWithFeedback verifies the countdown runs out on the clock and rings once.
func TestRestEndsWithFeedback(t *testing.T) {
	f := newFixture(t)
	f.logSet(t, "80 5")

	f.clock.Advance(60 * time.Second)
	f.m.Update(changedMsg{})
	if f.m.snap.Phase != workout.PhaseActive {
		t.Errorf("phase = %v, want active", f.m.snap.Phase)
	}
	if n := f.feedback.rests.Load(); n != 1 {
		t.Errorf("feedback = %d, want 1", n)
	}
}

// TestSkipRest verifies s ends the countdown.
func TestSkipRest(t *testing.T) {
	f := newFixture(t)
	f.logSet(t, "80 5")
	f.press("s")
	if f.m.snap.Phase != workout.PhaseActive {
		t.Errorf("phase = %v, want active", f.m.snap.Phase)
	}
}

// TestSwipeNavigation verifies a horizontal drag changes exercise and a vertical one does not.
func TestSwipeNavigation(t *testing.T) {
	f := newFixture(t)

	drag := func(x0, y0, x1, y1 int) {
		f.m.Update(tea.MouseMsg{X: x0, Y: y0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
		f.m.Update(tea.MouseMsg{X: x1, Y: y1, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
		f.m.Update(tea.MouseMsg{X: x1, Y: y1, Action: tea.MouseActionRelease})
	}

	drag(30, 5, 10, 5)
	if f.m.snap.Cursor != 1 {
		t.Fatalf("cursor after left drag = %d, want 1", f.m.snap.Cursor)
	}
	drag(10, 5, 10, 15)
	if f.m.snap.Cursor != 1 {
		t.Errorf("cursor after vertical drag = %d, want 1", f.m.snap.Cursor)
	}
	drag(10, 5, 30, 5)
	if f.m.snap.Cursor != 0 {
		t.Errorf("cursor after right drag = %d, want 0", f.m.snap.Cursor)
	}
}

// TestFinishAsksBeforeSubmittingPartial verifies the y/n prompt gates a partial submission.
func TestFinishAsksBeforeSubmittingPartial(t *testing.T) {
	f := newFixture(t)
	f.logSet(t, "80 5")

	cmd := f.press("f")
	f.m.Update(cmd())
	if f.m.mode != confirmMode || !strings.Contains(f.m.prompt, "1 exercise has no sets logged") {
		t.Fatalf("mode = %v, prompt = %q", f.m.mode, f.m.prompt)
	}
	if len(f.api.submitted) != 0 {
		t.Fatal("submitted before confirmation")
	}

	cmd = f.press("y")
	f.m.Update(cmd())
	if f.m.snap.Phase != workout.PhaseComplete {
		t.Errorf("phase = %v, want complete", f.m.snap.Phase)
	}
	if len(f.api.submitted) != 1 || f.api.submitted[0].CompletedFully {
		t.Errorf("submitted = %+v", f.api.submitted)
	}
	if !strings.Contains(f.m.View(), "Workout complete") {
		t.Errorf("view:\n%s", f.m.View())
	}
}

// TestDeclineKeepsSession verifies n leaves the session running.
func TestDeclineKeepsSession(t *testing.T) {
	f := newFixture(t)
	cmd := f.press("f")
	f.m.Update(cmd())
	f.press("n")

	if f.m.mode != browseMode || f.m.snap.Phase != workout.PhaseActive {
		t.Errorf("mode = %v, phase = %v", f.m.mode, f.m.snap.Phase)
	}
	if len(f.api.submitted) != 0 {
		t.Error("submitted after decline")
	}
}

// TestCompletionExits verifies the completion screen quits after its delay.
func TestCompletionExits(t *testing.T) {
	f := newFixture(t)
	for range 2 {
		f.logSet(t, "80 5")
		f.press("s")
	}
	f.press("right")
	for range 2 {
		f.logSet(t, "60 8")
		f.press("s")
	}

	cmd := f.press("f")
	f.m.Update(cmd())
	if f.m.mode == confirmMode {
		t.Fatal("asked to confirm a full session")
	}

	f.clock.Advance(workout.DefaultCompleteDelay)
	msg := f.m.signals.waitCmd()()
	if _, ok := msg.(exitedMsg); !ok {
		t.Fatalf("msg = %T, want exitedMsg", msg)
	}
	_, cmd = f.m.Update(msg)
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("exit did not quit")
	}
}

// TestQuit verifies q closes the session and quits.
func TestQuit(t *testing.T) {
	f := newFixture(t)
	cmd := f.press("q")
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
	if !f.m.done {
		t.Error("model not marked done")
	}
}

// TestParseSet covers the accepted set formats.
func TestParseSet(t *testing.T) {
	tests := []struct {
		in      string
		weight  float64
		reps    int
		rpe     float64
		wantErr bool
	}{
		{in: "80 8", weight: 80, reps: 8},
		{in: "82.5x8", weight: 82.5, reps: 8},
		{in: " 100 5 8.5 ", weight: 100, reps: 5, rpe: 8.5},
		{in: "80", wantErr: true},
		{in: "80 8 9 10", wantErr: true},
		{in: "eighty 8", wantErr: true},
		{in: "80 0", wantErr: true},
		{in: "80 8 11", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseSet(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseSet(%q) = %+v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSet(%q): %v", tt.in, err)
			}
			if got.Weight != tt.weight || got.Reps != tt.reps {
				t.Errorf("got %v×%d, want %v×%d", got.Weight, got.Reps, tt.weight, tt.reps)
			}
			if tt.rpe != 0 && (got.RPE == nil || *got.RPE != tt.rpe) {
				t.Errorf("rpe = %v, want %v", got.RPE, tt.rpe)
			}
		})
	}
}

// TestNoEntryWhileSaving verifies the set prompt stays closed while the workout is being sent.
func TestNoEntryWhileSaving(t *testing.T) {
	f := newFixture(t)
	f.logSet(t, "80 5")
	f.api.entered = make(chan struct{})
	f.api.release = make(chan struct{})

	msgs := make(chan tea.Msg, 1)
	go func() { msgs <- finishCmd(context.Background(), f.m.session, true)() }()
	<-f.api.entered

	f.m.Update(changedMsg{})
	if !f.m.snap.Submitting {
		t.Fatal("snapshot not submitting")
	}
	f.press("enter")
	if f.m.mode != browseMode {
		t.Errorf("mode = %v, want browse while saving", f.m.mode)
	}
	if !strings.Contains(f.m.View(), "Saving workout") {
		t.Errorf("view missing saving notice:\n%s", f.m.View())
	}

	close(f.api.release)
	f.m.Update(<-msgs)
	if f.m.snap.Phase != workout.PhaseComplete {
		t.Fatalf("phase = %v, want complete", f.m.snap.Phase)
	}
	if got := len(f.api.submitted[0].Exercises[0].Sets); got != 1 {
		t.Errorf("submitted sets = %d, want 1", got)
	}
}

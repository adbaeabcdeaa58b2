package workout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/claude/coachtrack/internal/api"
	"github.com/claude/coachtrack/internal/cache"
	"github.com/claude/coachtrack/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rpe(v float64) *float64 { return &v }

type fakeAPI struct {
	data      *models.WorkoutSessionData
	startErr  error
	logErr    error
	submitted []models.WorkoutLogPayload
}

func (a *fakeAPI) StartWorkout(ctx context.Context) (*models.WorkoutSessionData, error) {
	if a.startErr != nil {
		return nil, a.startErr
	}
	return a.data, nil
}

func (a *fakeAPI) LogWorkout(ctx context.Context, p models.WorkoutLogPayload) (*api.Result, error) {
	if a.logErr != nil {
		return nil, a.logErr
	}
	a.submitted = append(a.submitted, p)
	return &api.Result{}, nil
}

type recordingCache struct {
	prefixes []cache.Key
}

func (c *recordingCache) Invalidate(ctx context.Context, prefixes ...cache.Key) error {
	c.prefixes = append(c.prefixes, prefixes...)
	return nil
}

type countingFeedback struct {
	rests atomic.Int32
}

func (f *countingFeedback) RestFinished() { f.rests.Add(1) }

func twoByTwo() *models.WorkoutSessionData {
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

var start = time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)

func newSession(t *testing.T, data *models.WorkoutSessionData) (*Session, *fakeAPI, *ManualClock) {
	t.Helper()
	a := &fakeAPI{data: data}
	clock := NewManualClock(start)
	s := NewSession(a, Options{Clock: clock, Log: testLogger()})
	t.Cleanup(s.Close)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return s, a, clock
}

// TestEndToEndSession walks two exercises of two sets each through to submission.
func TestEndToEndSession(t *testing.T) {
	s, a, clock := newSession(t, twoByTwo())

	if !s.LogSet(CompletedSet{Weight: 80, Reps: 5}) {
		t.Fatal("LogSet returned false")
	}
	snap := s.Snapshot()
	if snap.Phase != PhaseResting || snap.RestLeft != 60 {
		t.Fatalf("after set 1: phase = %v, rest = %d; want resting 60", snap.Phase, snap.RestLeft)
	}

	s.SkipRest()
	if s.Phase() != PhaseActive {
		t.Fatalf("after skip: phase = %v", s.Phase())
	}

	s.LogSet(CompletedSet{Weight: 82.5, Reps: 5})
	if snap := s.Snapshot(); snap.Phase != PhaseActive || snap.Exercises[0].Sets[1].PR {
		t.Fatalf("after set 2: phase = %v, pr = %v; want active without PR", snap.Phase, snap.Exercises[0].Sets[1].PR)
	}

	s.Next()
	s.LogSet(CompletedSet{Weight: 60, Reps: 8})
	s.LogSet(CompletedSet{Weight: 60, Reps: 8, RPE: rpe(9)})
	clock.Advance(45 * time.Minute)

	confirmed := false
	err := s.Finish(context.Background(), func(string) bool {
		confirmed = true
		return true
	})
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if confirmed {
		t.Error("confirmation asked although every exercise has sets")
	}
	if s.Phase() != PhaseComplete {
		t.Errorf("phase = %v, want complete", s.Phase())
	}

	if len(a.submitted) != 1 {
		t.Fatalf("submissions = %d, want 1", len(a.submitted))
	}
	p := a.submitted[0]
	if !p.CompletedFully || len(p.Exercises) != 2 {
		t.Fatalf("payload = %+v", p)
	}
	for i, ex := range p.Exercises {
		if len(ex.Sets) != 2 || ex.Sets[0].SetNumber != 1 || ex.Sets[1].SetNumber != 2 {
			t.Errorf("exercise %d sets = %+v", i, ex.Sets)
		}
	}
	if p.Exercises[1].PlannedExerciseID != "pe-2" || p.Exercises[1].ExerciseID != "ex-2" {
		t.Errorf("exercise ids = %+v", p.Exercises[1])
	}
	if p.DurationMinutes != 45 || p.Date != "2026-03-02" || p.Source != "pwa" {
		t.Errorf("duration = %d, date = %s, source = %s", p.DurationMinutes, p.Date, p.Source)
	}
}

// TestLogSetValidation verifies invalid sets are ignored.
func TestLogSetValidation(t *testing.T) {
	s, _, _ := newSession(t, twoByTwo())
	invalid := []CompletedSet{
		{Weight: 0, Reps: 5},
		{Weight: 80, Reps: 0},
		{Weight: -5, Reps: 5},
		{Weight: 80, Reps: 5, RPE: rpe(0.5)},
		{Weight: 80, Reps: 5, RPE: rpe(10.5)},
	}
	for _, set := range invalid {
		if s.LogSet(set) {
			t.Errorf("LogSet(%+v) = true, want false", set)
		}
	}
	if n := len(s.Progress()[0]); n != 0 {
		t.Errorf("logged sets = %d, want 0", n)
	}
	if !s.LogSet(CompletedSet{Weight: 80, Reps: 5, RPE: rpe(10)}) {
		t.Error("LogSet with RPE 10 = false")
	}
}

// TestLogSetPhase verifies rest starts only before the target set count.
func TestLogSetPhase(t *testing.T) {
	data := twoByTwo()
	data.Exercises[0].Sets = 3
	s, _, _ := newSession(t, data)

	want := []Phase{PhaseResting, PhaseResting, PhaseActive, PhaseActive}
	for i, w := range want {
		s.LogSet(CompletedSet{Weight: 100, Reps: 3})
		if got := s.Phase(); got != w {
			t.Errorf("after set %d: phase = %v, want %v", i+1, got, w)
		}
	}
	if n := len(s.Progress()[0]); n != 4 {
		t.Errorf("logged sets = %d, want 4 beyond the target", n)
	}
}

// TestRestCountdown verifies the countdown ticks down and ends with feedback.
func TestRestCountdown(t *testing.T) {
	a := &fakeAPI{data: twoByTwo()}
	clock := NewManualClock(start)
	fb := &countingFeedback{}
	s := NewSession(a, Options{Clock: clock, Feedback: fb, Log: testLogger()})
	defer s.Close()
	_ = s.Start(context.Background())

	s.LogSet(CompletedSet{Weight: 80, Reps: 5})
	clock.Advance(10 * time.Second)
	if snap := s.Snapshot(); snap.RestLeft != 50 || snap.Phase != PhaseResting {
		t.Fatalf("after 10s: rest = %d, phase = %v", snap.RestLeft, snap.Phase)
	}
	if got := s.Snapshot().Elapsed; got != 10*time.Second {
		t.Errorf("elapsed = %v, want 10s", got)
	}

	clock.Advance(50 * time.Second)
	if snap := s.Snapshot(); snap.RestLeft != 0 || snap.Phase != PhaseActive {
		t.Errorf("after 60s: rest = %d, phase = %v", snap.RestLeft, snap.Phase)
	}
	if fb.rests.Load() != 1 {
		t.Errorf("rest feedback = %d, want 1", fb.rests.Load())
	}
	if clock.Pending() != 1 {
		t.Errorf("pending timers = %d, want only the elapsed clock", clock.Pending())
	}
}

// TestNavigationCancelsRest verifies moving between exercises stops the countdown.
func TestNavigationCancelsRest(t *testing.T) {
	s, _, clock := newSession(t, twoByTwo())
	s.LogSet(CompletedSet{Weight: 80, Reps: 5})
	if clock.Pending() != 2 {
		t.Fatalf("pending timers = %d, want 2", clock.Pending())
	}

	if !s.Next() {
		t.Fatal("Next = false")
	}
	snap := s.Snapshot()
	if snap.Phase != PhaseActive || snap.Cursor != 1 || snap.RestLeft != 0 {
		t.Errorf("after Next: %+v", snap)
	}
	if clock.Pending() != 1 {
		t.Errorf("pending timers = %d, want 1", clock.Pending())
	}

	if s.Next() {
		t.Error("Next past the last exercise = true")
	}
	if s.GoTo(5) || s.GoTo(-1) {
		t.Error("GoTo out of range = true")
	}
	if !s.Prev() || s.Snapshot().Cursor != 0 {
		t.Error("Prev did not return to exercise 0")
	}
}

// TestEditAndUndo verifies edits happen in place and undo pops the last set.
func TestEditAndUndo(t *testing.T) {
	s, _, _ := newSession(t, twoByTwo())
	if s.UndoLastSet() {
		t.Error("UndoLastSet on empty exercise = true")
	}

	s.LogSet(CompletedSet{Weight: 80, Reps: 5})
	if !s.EditSet(0, CompletedSet{Weight: 85, Reps: 4}) {
		t.Fatal("EditSet = false")
	}
	if s.EditSet(1, CompletedSet{Weight: 85, Reps: 4}) {
		t.Error("EditSet past the end = true")
	}
	if got := s.Progress()[0][0]; got.Weight != 85 || got.Reps != 4 {
		t.Errorf("edited set = %+v", got)
	}
	if s.Phase() != PhaseResting {
		t.Errorf("phase after edit = %v, want resting", s.Phase())
	}

	s.LogSet(CompletedSet{Weight: 90, Reps: 3})
	s.UndoLastSet()
	sets := s.Progress()[0]
	if len(sets) != 1 || sets[0].Weight != 85 {
		t.Errorf("sets after undo = %+v", sets)
	}
}

// TestPersonalRecords verifies sets are flagged against the matching last-session set.
func TestPersonalRecords(t *testing.T) {
	data := twoByTwo()
	data.LastSession = &models.LastSession{
		Available: true,
		Exercises: []models.LastSessionExercise{{
			Name: "bench press",
			Sets: []models.SetRecord{{SetNumber: 1, Weight: 80, Reps: 5}, {SetNumber: 2, Weight: 80, Reps: 5}},
		}},
	}
	s, _, _ := newSession(t, data)

	s.LogSet(CompletedSet{Weight: 80, Reps: 5})
	s.SkipRest()
	s.LogSet(CompletedSet{Weight: 82.5, Reps: 5})

	sets := s.Snapshot().Exercises[0].Sets
	if sets[0].PR || !sets[1].PR {
		t.Errorf("PR flags = %v, %v; want false, true", sets[0].PR, sets[1].PR)
	}
	if s.Snapshot().Exercises[0].Last == nil {
		t.Error("last session not matched case-insensitively")
	}
}

// TestFinishConfirmation verifies unlogged exercises require confirmation.
func TestFinishConfirmation(t *testing.T) {
	s, a, _ := newSession(t, twoByTwo())
	s.LogSet(CompletedSet{Weight: 80, Reps: 5})

	var asked string
	err := s.Finish(context.Background(), func(msg string) bool {
		asked = msg
		return false
	})
	if !errors.Is(err, ErrFinishDeclined) {
		t.Fatalf("error = %v, want ErrFinishDeclined", err)
	}
	if asked != "1 exercise has no sets logged. Finish anyway?" {
		t.Errorf("message = %q", asked)
	}
	if s.Phase() != PhaseResting || len(a.submitted) != 0 {
		t.Errorf("phase = %v, submissions = %d; want unchanged", s.Phase(), len(a.submitted))
	}

	if err := s.Finish(context.Background(), func(string) bool { return true }); err != nil {
		t.Fatalf("confirmed Finish: %v", err)
	}
	p := a.submitted[0]
	if p.CompletedFully || len(p.Exercises) != 1 {
		t.Errorf("payload = %+v, want one partial exercise", p)
	}
}

// TestFinishFailureKeepsState verifies a failed submission can be retried.
func TestFinishFailureKeepsState(t *testing.T) {
	s, a, _ := newSession(t, twoByTwo())
	for range 2 {
		s.LogSet(CompletedSet{Weight: 80, Reps: 5})
	}
	s.Next()
	for range 2 {
		s.LogSet(CompletedSet{Weight: 60, Reps: 8})
	}

	a.logErr = &api.StatusError{Status: 500, Body: "down"}
	if err := s.Finish(context.Background(), nil); !api.IsStatus(err, 500) {
		t.Fatalf("error = %v, want status 500", err)
	}
	if s.Phase() != PhaseActive || len(s.Progress()[1]) != 2 {
		t.Fatalf("state after failure: phase = %v", s.Phase())
	}

	a.logErr = nil
	if err := s.Finish(context.Background(), nil); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if s.Phase() != PhaseComplete {
		t.Errorf("phase = %v, want complete", s.Phase())
	}
}

// blockingAPI holds LogWorkout until release is closed.
type blockingAPI struct {
	*fakeAPI
	entered chan struct{}
	release chan struct{}
}

func (a *blockingAPI) LogWorkout(ctx context.Context, p models.WorkoutLogPayload) (*api.Result, error) {
	close(a.entered)
	<-a.release
	return a.fakeAPI.LogWorkout(ctx, p)
}

// TestSubmitFreezesProgress verifies sets cannot change while the workout is being sent.
func TestSubmitFreezesProgress(t *testing.T) {
	a := &blockingAPI{
		fakeAPI: &fakeAPI{data: twoByTwo()},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := NewSession(a, Options{Clock: NewManualClock(start), Log: testLogger()})
	defer s.Close()
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.LogSet(CompletedSet{Weight: 80, Reps: 5})
	s.Next()
	s.LogSet(CompletedSet{Weight: 60, Reps: 8})

	done := make(chan error, 1)
	go func() { done <- s.Finish(context.Background(), func(string) bool { return true }) }()
	<-a.entered

	if !s.Snapshot().Submitting {
		t.Error("snapshot does not report the submission")
	}
	if s.LogSet(CompletedSet{Weight: 62, Reps: 8}) {
		t.Error("LogSet accepted during submission")
	}
	if s.EditSet(0, CompletedSet{Weight: 70, Reps: 8}) || s.UndoLastSet() || s.Prev() || s.GoTo(0) {
		t.Error("mutation accepted during submission")
	}

	close(a.release)
	if err := <-done; err != nil {
		t.Fatalf("Finish: %v", err)
	}

	submitted := a.submitted[0].Exercises[1].Sets
	local := s.Progress()[1]
	if len(submitted) != 1 || len(local) != 1 || local[0].Weight != 60 {
		t.Errorf("submitted sets = %+v, local sets = %+v", submitted, local)
	}
	if sum := s.Snapshot().Summary; sum == nil || sum.TotalSets != 2 {
		t.Errorf("summary = %+v", sum)
	}
}

// TestCompleteExitsOnce verifies the exit hook fires after the delay or on dismiss, never twice.
func TestCompleteExitsOnce(t *testing.T) {
	a := &fakeAPI{data: twoByTwo()}
	clock := NewManualClock(start)
	rc := &recordingCache{}
	var exits atomic.Int32
	s := NewSession(a, Options{Clock: clock, Cache: rc, Log: testLogger(), OnExit: func() { exits.Add(1) }})
	defer s.Close()
	_ = s.Start(context.Background())

	s.LogSet(CompletedSet{Weight: 80, Reps: 5})
	if err := s.Finish(context.Background(), func(string) bool { return true }); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if len(rc.prefixes) != 2 || rc.prefixes[0].String() != "client/training" || rc.prefixes[1].String() != "client/workout" {
		t.Errorf("invalidated = %v", rc.prefixes)
	}

	if s.LogSet(CompletedSet{Weight: 80, Reps: 5}) || s.Next() {
		t.Error("mutation accepted after completion")
	}
	if err := s.Finish(context.Background(), nil); !errors.Is(err, ErrSessionComplete) {
		t.Errorf("second Finish error = %v", err)
	}
	sum := s.Snapshot().Summary
	if sum == nil || sum.TotalSets != 1 || sum.Volume != 400 {
		t.Errorf("summary = %+v", sum)
	}

	clock.Advance(2 * time.Second)
	if exits.Load() != 0 {
		t.Fatal("exited before the delay")
	}
	clock.Advance(time.Second)
	s.Dismiss()
	if exits.Load() != 1 {
		t.Errorf("exits = %d, want 1", exits.Load())
	}
	if clock.Pending() != 0 {
		t.Errorf("pending timers = %d, want 0", clock.Pending())
	}
}

// TestStartErrors verifies empty and failed loads.
func TestStartErrors(t *testing.T) {
	empty := NewSession(&fakeAPI{data: &models.WorkoutSessionData{Available: false}}, Options{Clock: NewManualClock(start), Log: testLogger()})
	if err := empty.Start(context.Background()); !errors.Is(err, ErrNoWorkout) {
		t.Errorf("error = %v, want ErrNoWorkout", err)
	}
	if empty.Phase() != PhaseLoading {
		t.Errorf("phase = %v, want loading", empty.Phase())
	}

	boom := errors.New("connection refused")
	failing := NewSession(&fakeAPI{startErr: boom}, Options{Clock: NewManualClock(start), Log: testLogger()})
	err := failing.Start(context.Background())
	var le *LoadError
	if !errors.As(err, &le) || !errors.Is(err, boom) {
		t.Errorf("error = %v, want LoadError wrapping the cause", err)
	}

	s, _, _ := newSession(t, twoByTwo())
	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start error = %v", err)
	}
}

// TestSystemClock verifies real tickers fire and stop without leaking goroutines.
func TestSystemClock(t *testing.T) {
	var clock SystemClock
	ticks := make(chan struct{}, 10)
	tk := clock.Every(5*time.Millisecond, func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	})
	<-ticks
	tk.Stop()
	tk.Stop()

	fired := make(chan struct{})
	clock.After(time.Millisecond, func() { close(fired) })
	<-fired

	never := clock.After(time.Hour, func() { t.Error("stopped timer fired") })
	never.Stop()
}

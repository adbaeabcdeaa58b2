// Package workout drives an active training session: set logging, rest and
// elapsed timers, navigation between exercises and submission of the log.
package workout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/coachtrack/internal/api"
	"github.com/claude/coachtrack/internal/cache"
	"github.com/claude/coachtrack/internal/models"
)

// Phase is the session's state.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseActive
	PhaseResting
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseActive:
		return "active"
	case PhaseResting:
		return "resting"
	case PhaseComplete:
		return "complete"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// DefaultCompleteDelay is how long the completion screen stays up.
const DefaultCompleteDelay = 3 * time.Second

var (
	ErrNoWorkout       = errors.New("workout: no workout scheduled")
	ErrAlreadyStarted  = errors.New("workout: session already started")
	ErrNotStarted      = errors.New("workout: session not started")
	ErrSessionComplete = errors.New("workout: session complete")
	ErrSubmitting      = errors.New("workout: submission in progress")
	ErrFinishDeclined  = errors.New("workout: finish not confirmed")
)

// Cache keys refreshed after a workout is logged.
var (
	TrainingPrefix = cache.Key{"client", "training"}
	WorkoutPrefix  = cache.Key{"client", "workout"}
)

// LoadError reports a failure to fetch the session.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string { return "loading workout: " + e.Err.Error() }

func (e *LoadError) Unwrap() error { return e.Err }

// API is the subset of the coaching API a session needs.
type API interface {
	StartWorkout(ctx context.Context) (*models.WorkoutSessionData, error)
	LogWorkout(ctx context.Context, p models.WorkoutLogPayload) (*api.Result, error)
}

type Invalidator interface {
	Invalidate(ctx context.Context, prefixes ...cache.Key) error
}

// Feedback signals events the user should notice without looking.
type Feedback interface {
	RestFinished()
}

// ConfirmFunc asks the user a yes/no question.
type ConfirmFunc func(message string) bool

type Options struct {
	Clock         Clock
	Feedback      Feedback
	Cache         Invalidator
	CompleteDelay time.Duration
	// OnExit runs once, after the completion delay or on Dismiss.
	OnExit func()
	// OnChange runs after any state change, including timer ticks.
	OnChange func()
	Log      *slog.Logger
}

// Session is one training session. All methods are safe for concurrent use.
type Session struct {
	api  API
	opts Options
	log  *slog.Logger

	mu         sync.Mutex
	phase      Phase
	data       *models.WorkoutSessionData
	cursor     int
	progress   Progress
	startedAt  time.Time
	elapsed    time.Duration
	restLeft   int
	restTotal  int
	restGen    uint64
	rest       Ticker
	clockTick  Ticker
	exitTimer  Ticker
	starting   bool
	submitting bool
	exited     bool
	summary    *Summary
}

func NewSession(a API, opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.CompleteDelay <= 0 {
		opts.CompleteDelay = DefaultCompleteDelay
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	return &Session{api: a, opts: opts, log: log, progress: make(Progress)}
}

func (s *Session) notify() {
	if s.opts.OnChange != nil {
		s.opts.OnChange()
	}
}

// Start fetches today's session and moves to Active. When no workout is
// scheduled it returns ErrNoWorkout and the session stays in Loading.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.data != nil || s.starting {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.starting = true
	s.mu.Unlock()

	data, err := s.api.StartWorkout(ctx)

	defer s.notify()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starting = false
	if err != nil {
		return &LoadError{Err: err}
	}
	if !data.Available || len(data.Exercises) == 0 {
		return ErrNoWorkout
	}

	s.data = data
	s.phase = PhaseActive
	s.startedAt = s.opts.Clock.Now()
	s.clockTick = s.opts.Clock.Every(time.Second, s.tickElapsed)
	s.log.Info("workout started", "workout", data.WorkoutName, "exercises", len(data.Exercises))
	return nil
}

// LogSet appends set to the current exercise. Invalid sets and sets logged
// outside Active or Resting are ignored and report false. Unless the set
// reaches the exercise's target, the rest countdown (re)starts.
func (s *Session) LogSet(set CompletedSet) bool {
	defer s.notify()
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.live() || !set.Valid() {
		return false
	}
	ex := s.data.Exercises[s.cursor]
	sets := s.progress[s.cursor]
	set.PR = IsPR(set.Weight, set.Reps, len(sets), MatchLastSession(s.data.LastSession, ex.Name))
	s.progress[s.cursor] = append(sets, set)

	if len(sets)+1 >= ex.Sets || ex.RestSeconds <= 0 {
		s.stopRest()
		s.phase = PhaseActive
		return true
	}
	s.startRest(ex.RestSeconds)
	return true
}

// EditSet replaces the set at index idx of the current exercise. The rest
// timer is untouched.
func (s *Session) EditSet(idx int, set CompletedSet) bool {
	defer s.notify()
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.live() || !set.Valid() {
		return false
	}
	sets := s.progress[s.cursor]
	if idx < 0 || idx >= len(sets) {
		return false
	}
	ex := s.data.Exercises[s.cursor]
	set.PR = IsPR(set.Weight, set.Reps, idx, MatchLastSession(s.data.LastSession, ex.Name))
	sets[idx] = set
	return true
}

// UndoLastSet removes the most recent set of the current exercise.
func (s *Session) UndoLastSet() bool {
	defer s.notify()
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.live() {
		return false
	}
	sets := s.progress[s.cursor]
	if len(sets) == 0 {
		return false
	}
	s.progress[s.cursor] = sets[:len(sets)-1]
	return true
}

// GoTo moves to exercise idx, cancelling any rest in progress.
func (s *Session) GoTo(idx int) bool {
	defer s.notify()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goTo(idx)
}

func (s *Session) Next() bool {
	defer s.notify()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goTo(s.cursor + 1)
}

func (s *Session) Prev() bool {
	defer s.notify()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goTo(s.cursor - 1)
}

func (s *Session) goTo(idx int) bool {
	if !s.live() || idx < 0 || idx >= len(s.data.Exercises) {
		return false
	}
	s.stopRest()
	s.phase = PhaseActive
	s.cursor = idx
	return true
}

// SkipRest ends the rest countdown early.
func (s *Session) SkipRest() bool {
	defer s.notify()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseResting {
		return false
	}
	s.stopRest()
	s.phase = PhaseActive
	return true
}

// Finish submits the session. When some exercise has no sets, confirm is
// asked first and a refusal leaves the session as it was. A failed
// submission keeps every logged set so Finish can be retried.
func (s *Session) Finish(ctx context.Context, confirm ConfirmFunc) error {
	s.mu.Lock()
	unlogged, err := s.finishable()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if unlogged > 0 && (confirm == nil || !confirm(unloggedMessage(unlogged))) {
		return ErrFinishDeclined
	}

	s.mu.Lock()
	if _, err := s.finishable(); err != nil {
		s.mu.Unlock()
		return err
	}
	now := s.opts.Clock.Now()
	duration := now.Sub(s.startedAt)
	payload := BuildPayload(s.data, s.progress, duration, DateString(now))
	s.submitting = true
	s.mu.Unlock()
	s.notify()

	res, err := s.api.LogWorkout(ctx, payload)

	defer s.notify()
	s.mu.Lock()
	s.submitting = false
	if err != nil {
		s.mu.Unlock()
		s.log.Warn("submitting workout", "error", err)
		return fmt.Errorf("submitting workout: %w", err)
	}

	s.stopRest()
	s.stop(&s.clockTick)
	s.elapsed = duration
	s.phase = PhaseComplete
	sum := summarize(s.progress, duration)
	s.summary = &sum
	s.exitTimer = s.opts.Clock.After(s.opts.CompleteDelay, s.Dismiss)
	s.mu.Unlock()

	s.log.Info("workout logged",
		"exercises", len(payload.Exercises),
		"completed_fully", payload.CompletedFully,
		"duration_minutes", payload.DurationMinutes,
		"queued", res != nil && res.Queued)

	if s.opts.Cache != nil {
		if err := s.opts.Cache.Invalidate(ctx, TrainingPrefix, WorkoutPrefix); err != nil {
			s.log.Warn("refreshing training after workout", "error", err)
		}
	}
	return nil
}

// Dismiss leaves the completion screen. OnExit runs at most once.
func (s *Session) Dismiss() {
	s.mu.Lock()
	if s.phase != PhaseComplete || s.exited {
		s.mu.Unlock()
		return
	}
	s.exited = true
	s.stop(&s.exitTimer)
	s.mu.Unlock()

	if s.opts.OnExit != nil {
		s.opts.OnExit()
	}
}

// Close stops every timer the session owns.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopRest()
	s.stop(&s.clockTick)
	s.stop(&s.exitTimer)
}

// finishable reports how many exercises have no sets, or why the session
// cannot be finished now.
func (s *Session) finishable() (int, error) {
	switch {
	case s.phase == PhaseComplete:
		return 0, ErrSessionComplete
	case s.data == nil:
		return 0, ErrNotStarted
	case s.submitting:
		return 0, ErrSubmitting
	}
	unlogged := 0
	for i := range s.data.Exercises {
		if len(s.progress[i]) == 0 {
			unlogged++
		}
	}
	return unlogged, nil
}

// live reports whether progress may change. It is false while a submission
// is in flight so the logged sets match what the server receives.
func (s *Session) live() bool {
	return s.data != nil && !s.submitting && (s.phase == PhaseActive || s.phase == PhaseResting)
}

func (s *Session) startRest(seconds int) {
	s.stopRest()
	s.phase = PhaseResting
	s.restLeft = seconds
	s.restTotal = seconds
	gen := s.restGen
	s.rest = s.opts.Clock.Every(time.Second, func() { s.tickRest(gen) })
}

// stopRest cancels the countdown. Ticks already scheduled against the old
// generation are ignored.
func (s *Session) stopRest() {
	s.restGen++
	s.restLeft = 0
	s.stop(&s.rest)
}

func (s *Session) stop(t *Ticker) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

func (s *Session) tickRest(gen uint64) {
	s.mu.Lock()
	if gen != s.restGen || s.phase != PhaseResting {
		s.mu.Unlock()
		return
	}
	if s.restLeft > 1 {
		s.restLeft--
		s.mu.Unlock()
		s.notify()
		return
	}
	s.stopRest()
	s.phase = PhaseActive
	s.mu.Unlock()

	if s.opts.Feedback != nil {
		s.opts.Feedback.RestFinished()
	}
	s.notify()
}

func (s *Session) tickElapsed() {
	s.mu.Lock()
	if s.phase != PhaseActive && s.phase != PhaseResting {
		s.mu.Unlock()
		return
	}
	s.elapsed = s.opts.Clock.Now().Sub(s.startedAt)
	s.mu.Unlock()
	s.notify()
}

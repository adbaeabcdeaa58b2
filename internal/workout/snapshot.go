package workout

import (
	"time"

	"github.com/claude/coachtrack/internal/models"
)

// ExerciseView is one exercise as a renderer sees it.
type ExerciseView struct {
	models.PlannedExercise
	Sets []CompletedSet
	// Last is the same exercise in the previous session, if any.
	Last *models.LastSessionExercise
	Done bool
}

// Snapshot is a copy of the session state. It is not updated after it is taken.
type Snapshot struct {
	Phase       Phase
	WorkoutName string
	Cursor      int
	Exercises   []ExerciseView
	AllDone     bool
	RestLeft    int
	RestTotal   int
	Elapsed     time.Duration
	Submitting  bool
	Summary     *Summary
}

// Current returns the exercise under the cursor.
func (s Snapshot) Current() (ExerciseView, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.Exercises) {
		return ExerciseView{}, false
	}
	return s.Exercises[s.Cursor], true
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Phase:      s.phase,
		Cursor:     s.cursor,
		RestLeft:   s.restLeft,
		RestTotal:  s.restTotal,
		Elapsed:    s.elapsed,
		Submitting: s.submitting,
	}
	if s.summary != nil {
		sum := *s.summary
		snap.Summary = &sum
	}
	if s.data == nil {
		return snap
	}

	snap.WorkoutName = s.data.WorkoutName
	snap.AllDone = true
	snap.Exercises = make([]ExerciseView, len(s.data.Exercises))
	for i, ex := range s.data.Exercises {
		sets := append([]CompletedSet(nil), s.progress[i]...)
		done := len(sets) >= ex.Sets
		snap.Exercises[i] = ExerciseView{
			PlannedExercise: ex,
			Sets:            sets,
			Last:            MatchLastSession(s.data.LastSession, ex.Name),
			Done:            done,
		}
		snap.AllDone = snap.AllDone && done
	}
	return snap
}

// Progress returns a copy of the logged sets.
func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(Progress, len(s.progress))
	for i, sets := range s.progress {
		out[i] = append([]CompletedSet(nil), sets...)
	}
	return out
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

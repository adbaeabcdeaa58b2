package workout

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/claude/coachtrack/internal/models"
)

// CompletedSet is one set the user performed.
type CompletedSet struct {
	Weight float64  `json:"weight"`
	Reps   int      `json:"reps"`
	RPE    *float64 `json:"rpe,omitempty"`
	// PR is set when the set beat the matching set of the last session.
	PR bool `json:"pr,omitempty"`
}

// Valid reports whether the set can be logged.
func (s CompletedSet) Valid() bool {
	if s.Weight <= 0 || s.Reps <= 0 {
		return false
	}
	return s.RPE == nil || (*s.RPE >= 1 && *s.RPE <= 10)
}

func (s CompletedSet) volume() float64 {
	return s.Weight * float64(s.Reps)
}

// Progress holds the logged sets keyed by exercise index.
type Progress map[int][]CompletedSet

// MatchLastSession finds the exercise in last with the same name, ignoring case.
func MatchLastSession(last *models.LastSession, name string) *models.LastSessionExercise {
	if last == nil || !last.Available {
		return nil
	}
	for i := range last.Exercises {
		if strings.EqualFold(last.Exercises[i].Name, name) {
			return &last.Exercises[i]
		}
	}
	return nil
}

// IsPR reports whether weight×reps beats the set numbered setIdx+1 in the
// last session of the same exercise.
func IsPR(weight float64, reps, setIdx int, last *models.LastSessionExercise) bool {
	if last == nil {
		return false
	}
	for _, s := range last.Sets {
		if s.SetNumber == setIdx+1 {
			return weight*float64(reps) > s.Weight*float64(s.Reps)
		}
	}
	return false
}

// BuildPayload assembles the workout log from what was actually performed.
// Exercises without sets are left out and sets are renumbered from 1.
func BuildPayload(data *models.WorkoutSessionData, progress Progress, duration time.Duration, date string) models.WorkoutLogPayload {
	p := models.WorkoutLogPayload{
		DayPlanID:       data.DayPlanID,
		Date:            date,
		CompletedFully:  completedFully(data.Exercises, progress),
		DurationMinutes: int(math.Round(duration.Minutes())),
		Source:          models.SourceClient,
		Exercises:       []models.WorkoutLogExercise{},
	}
	for i, ex := range data.Exercises {
		sets := progress[i]
		if len(sets) == 0 {
			continue
		}
		records := make([]models.SetRecord, len(sets))
		for n, s := range sets {
			records[n] = models.SetRecord{SetNumber: n + 1, Weight: s.Weight, Reps: s.Reps, RPE: s.RPE}
		}
		p.Exercises = append(p.Exercises, models.WorkoutLogExercise{
			PlannedExerciseID: ex.ID,
			ExerciseID:        ex.ExerciseID,
			Sets:              records,
		})
	}
	return p
}

func completedFully(exercises []models.PlannedExercise, progress Progress) bool {
	for i, ex := range exercises {
		if len(progress[i]) < ex.Sets {
			return false
		}
	}
	return true
}

// Summary describes a submitted session.
type Summary struct {
	Exercises int
	TotalSets int
	Volume    float64
	Duration  time.Duration
}

func summarize(progress Progress, duration time.Duration) Summary {
	s := Summary{Duration: duration}
	for _, sets := range progress {
		if len(sets) > 0 {
			s.Exercises++
		}
		s.TotalSets += len(sets)
		for _, set := range sets {
			s.Volume += set.volume()
		}
	}
	return s
}

// FormatElapsed renders d as MM:SS. Minutes keep counting past an hour.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// DateString is the calendar date of t in t's location.
func DateString(t time.Time) string {
	return t.Format(time.DateOnly)
}

func unloggedMessage(n int) string {
	if n == 1 {
		return "1 exercise has no sets logged. Finish anyway?"
	}
	return fmt.Sprintf("%d exercises have no sets logged. Finish anyway?", n)
}

package models

// PlannedExercise is one prescribed exercise in a training day. Immutable once received.
type PlannedExercise struct {
	// ID and ExerciseID are present when the server links the plan entry to
	// catalog rows; they are echoed back in the workout log.
	ID         string `json:"id,omitempty"`
	ExerciseID string `json:"exercise_id,omitempty"`

	Name            string   `json:"name"`
	Order           int      `json:"order"`
	Sets            int      `json:"sets"`
	RepsMin         int      `json:"reps_min"`
	RepsMax         *int     `json:"reps_max"`
	RPETarget       *float64 `json:"rpe_target"`
	RestSeconds     int      `json:"rest_seconds"`
	Tempo           string   `json:"tempo"`
	SupersetGroup   string   `json:"superset_group"`
	DropSet         bool     `json:"drop_set"`
	DropSetRounds   *int     `json:"drop_set_rounds"`
	RestPause       bool     `json:"rest_pause"`
	RestPauseRounds *int     `json:"rest_pause_rounds"`
	Notes           string   `json:"notes"`
}

// TrainingTodayData is returned by GET /training/today.
type TrainingTodayData struct {
	Available     bool              `json:"available"`
	IsTrainingDay bool              `json:"is_training_day"`
	WorkoutName   *string           `json:"workout_name"`
	ExerciseCount int               `json:"exercise_count"`
	Exercises     []PlannedExercise `json:"exercises"`
}

type TrainingDayPlan struct {
	DayOfWeek     int               `json:"day_of_week"`
	DayName       string            `json:"day_name"`
	IsTrainingDay bool              `json:"is_training_day"`
	Exercises     []PlannedExercise `json:"exercises"`
}

// TrainingWeekData is returned by GET /training/week.
type TrainingWeekData struct {
	Available  bool              `json:"available"`
	WeekNumber int               `json:"week_number"`
	IsDeload   bool              `json:"is_deload"`
	Days       []TrainingDayPlan `json:"days"`
}

// SetRecord is a set as the server stores it.
type SetRecord struct {
	SetNumber int      `json:"set_number"`
	Weight    float64  `json:"weight"`
	Reps      int      `json:"reps"`
	RPE       *float64 `json:"rpe"`
}

type LastSessionExercise struct {
	ExerciseID        string      `json:"exercise_id"`
	PlannedExerciseID string      `json:"planned_exercise_id"`
	Name              string      `json:"name"`
	Sets              []SetRecord `json:"sets"`
}

// LastSession is the previous session for the same day plan, used for PR comparison.
type LastSession struct {
	Available bool                  `json:"available"`
	Date      string                `json:"date"`
	DayPlanID string                `json:"day_plan_id"`
	Exercises []LastSessionExercise `json:"exercises"`
}

// WorkoutSessionData is returned by POST /workout/start.
type WorkoutSessionData struct {
	Available   bool              `json:"available"`
	WorkoutName string            `json:"workout_name"`
	DayPlanID   string            `json:"day_plan_id"`
	Exercises   []PlannedExercise `json:"exercises"`
	LastSession *LastSession      `json:"last_session"`
}

type WorkoutLogExercise struct {
	PlannedExerciseID string      `json:"planned_exercise_id"`
	ExerciseID        string      `json:"exercise_id"`
	Sets              []SetRecord `json:"sets"`
}

// SourceClient tags entries written by this client.
const SourceClient = "pwa"

// WorkoutLogPayload is the body of POST /workout/log.
type WorkoutLogPayload struct {
	DayPlanID       string               `json:"day_plan_id"`
	Date            string               `json:"date"`
	CompletedFully  bool                 `json:"completed_fully"`
	DurationMinutes int                  `json:"duration_minutes"`
	Source          string               `json:"source"`
	Exercises       []WorkoutLogExercise `json:"exercises"`
}

type ExerciseHistoryEntry struct {
	Date string      `json:"date"`
	Sets []SetRecord `json:"sets"`
}

// ExerciseHistoryData is returned by GET /exercise/history.
type ExerciseHistoryData struct {
	ExerciseName string                 `json:"exercise_name"`
	History      []ExerciseHistoryEntry `json:"history"`
}

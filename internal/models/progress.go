package models

import "encoding/json"

type WeightEntry struct {
	Date         string   `json:"date"`
	Weight       float64  `json:"weight"`
	WeeklyChange *float64 `json:"weekly_change"`
}

type RollingAverage struct {
	Date string  `json:"date"`
	Avg  float64 `json:"avg"`
}

// WeightData is returned by GET /weight.
type WeightData struct {
	StartWeight    *float64         `json:"start_weight"`
	GoalWeight     *float64         `json:"goal_weight"`
	CurrentWeight  *float64         `json:"current_weight"`
	Unit           string           `json:"unit"`
	TotalChange    *float64         `json:"total_change"`
	Entries        []WeightEntry    `json:"entries"`
	RollingAverage []RollingAverage `json:"rolling_average"`
}

// WeightLogPayload is the body of POST /weight.
type WeightLogPayload struct {
	Date   string  `json:"date"`
	Weight float64 `json:"weight"`
	Unit   string  `json:"unit"`
	Source string  `json:"source"`
}

type BodyMeasurement struct {
	ID         string   `json:"id"`
	Date       string   `json:"date"`
	Chest      *float64 `json:"chest"`
	Waist      *float64 `json:"waist"`
	Hips       *float64 `json:"hips"`
	LeftArm    *float64 `json:"left_arm"`
	RightArm   *float64 `json:"right_arm"`
	LeftThigh  *float64 `json:"left_thigh"`
	RightThigh *float64 `json:"right_thigh"`
	LeftCalf   *float64 `json:"left_calf"`
	RightCalf  *float64 `json:"right_calf"`
	Neck       *float64 `json:"neck"`
	Shoulders  *float64 `json:"shoulders"`
	CreatedAt  string   `json:"created_at"`
}

type MeasurementsData struct {
	Measurements []BodyMeasurement `json:"measurements"`
}

// MeasurementPayload is the body of POST /measurements. Unset sites are omitted.
type MeasurementPayload struct {
	Date       string   `json:"date"`
	Chest      *float64 `json:"chest,omitempty"`
	Waist      *float64 `json:"waist,omitempty"`
	Hips       *float64 `json:"hips,omitempty"`
	LeftArm    *float64 `json:"left_arm,omitempty"`
	RightArm   *float64 `json:"right_arm,omitempty"`
	LeftThigh  *float64 `json:"left_thigh,omitempty"`
	RightThigh *float64 `json:"right_thigh,omitempty"`
	LeftCalf   *float64 `json:"left_calf,omitempty"`
	RightCalf  *float64 `json:"right_calf,omitempty"`
	Neck       *float64 `json:"neck,omitempty"`
	Shoulders  *float64 `json:"shoulders,omitempty"`
}

type ProgressPhoto struct {
	ID           string  `json:"id"`
	ContactID    string  `json:"contact_id"`
	OriginalURL  string  `json:"original_url"`
	ProcessedURL *string `json:"processed_url"`
	PhotoType    string  `json:"photo_type"`
	ProgramWeek  *int    `json:"program_week"`
	TakenAt      *string `json:"taken_at"`
	Source       *string `json:"source"`
	CreatedAt    *string `json:"created_at"`
}

type PhotosData struct {
	Photos []ProgressPhoto `json:"photos"`
}

type Streak struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

type HeatmapDay struct {
	Date  string `json:"date"`
	Level int    `json:"level"`
}

type Target struct {
	Completed int `json:"completed"`
	Target    int `json:"target"`
}

type ThisWeek struct {
	Training        Target `json:"training"`
	Nutrition       Target `json:"nutrition"`
	OfficialCheckin Target `json:"official_checkin"`
	Touchpoints     Target `json:"touchpoints"`
}

// ComplianceData is returned by GET /compliance.
type ComplianceData struct {
	Streak   Streak       `json:"streak"`
	Heatmap  []HeatmapDay `json:"heatmap"`
	ThisWeek ThisWeek     `json:"this_week"`
	Trends   struct {
		Training  []float64 `json:"training"`
		Nutrition []float64 `json:"nutrition"`
	} `json:"trends"`
}

type WeeklySummary struct {
	WeekNumber         int      `json:"week_number"`
	WeekStart          string   `json:"week_start"`
	ComplianceScore    float64  `json:"compliance_score"`
	WeightDelta        *float64 `json:"weight_delta"`
	TrainingSessions   int      `json:"training_sessions"`
	TrainingTarget     int      `json:"training_target"`
	NutritionAdherence *float64 `json:"nutrition_adherence"`
	Highlights         []string `json:"highlights"`
}

// SummaryData is returned by GET /weekly-summaries.
type SummaryData struct {
	Summaries       []WeeklySummary `json:"summaries"`
	ProgramProgress struct {
		CurrentWeek     int     `json:"current_week"`
		TotalWeeks      int     `json:"total_weeks"`
		PercentComplete float64 `json:"percent_complete"`
	} `json:"program_progress"`
}

type TopExercise struct {
	ExerciseID string `json:"exercise_id"`
	Name       string `json:"name"`
	Count      int    `json:"count"`
}

type TopExercisesData struct {
	Exercises []TopExercise `json:"exercises"`
}

// Analytics series are passed through untouched; the client never computes them.
type StrengthProgressionData struct {
	ExerciseID   string          `json:"exercise_id"`
	ExerciseName string          `json:"exercise_name"`
	Data         json.RawMessage `json:"data"`
}

type VolumeProgressionData struct {
	ExerciseID   string          `json:"exercise_id"`
	ExerciseName string          `json:"exercise_name"`
	Data         json.RawMessage `json:"data"`
}

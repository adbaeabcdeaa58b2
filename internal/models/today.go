package models

// Profile is the client's program profile as returned alongside a token exchange
// and embedded in several reads.
type Profile struct {
	FirstName     *string  `json:"first_name"`
	StartDate     *string  `json:"start_date"`
	GoalWeight    *float64 `json:"goal_weight"`
	CurrentWeight *float64 `json:"current_weight"`
	StartWeight   *float64 `json:"start_weight"`
	WeightUnit    string   `json:"weight_unit"`
	CheckinDay    string   `json:"checkin_day"`
	CheckinTime   string   `json:"checkin_time"`
	Timezone      string   `json:"timezone"`
	ProgramWeek   *int     `json:"program_week"`
	TotalWeeks    int      `json:"total_weeks"`
}

// Status values for check-ins and touchpoints.
const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
	StatusUpcoming  = "upcoming"
)

// TodayData is the dashboard summary returned by GET /today.
type TodayData struct {
	Date       string          `json:"date"`
	Training   TodayTraining   `json:"training"`
	Nutrition  TodayNutrition  `json:"nutrition"`
	Checkin    TodayCheckin    `json:"checkin"`
	Touchpoint TodayTouchpoint `json:"touchpoint"`
}

type TodayTraining struct {
	Available     bool   `json:"available"`
	IsTrainingDay bool   `json:"is_training_day,omitempty"`
	WorkoutName   string `json:"workout_name,omitempty"`
	ExerciseCount int    `json:"exercise_count,omitempty"`
}

type TodayNutrition struct {
	Available     bool    `json:"available"`
	DayType       string  `json:"day_type,omitempty"`
	TotalProtein  float64 `json:"total_protein,omitempty"`
	TotalCarbs    float64 `json:"total_carbs,omitempty"`
	TotalFat      float64 `json:"total_fat,omitempty"`
	TotalCalories float64 `json:"total_calories,omitempty"`
}

type TodayCheckin struct {
	IsCheckinDay bool   `json:"is_checkin_day"`
	Status       string `json:"status"`
	NextCheckin  string `json:"next_checkin"`
}

type TodayTouchpoint struct {
	IsTouchpointDay bool   `json:"is_touchpoint_day"`
	Status          string `json:"status"`
}

// AuthResponse is returned by the token exchange.
type AuthResponse struct {
	JWT       string `json:"jwt"`
	ExpiresAt string `json:"expires_at"`
	Profile   struct {
		FirstName string `json:"first_name"`
	} `json:"profile"`
}

// CheckinStart is the body of POST /checkin/start.
type CheckinStart struct {
	Date string `json:"date"`
}

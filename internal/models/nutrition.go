package models

type MealFood struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	GramsRaw    float64 `json:"grams_raw"`
	GramsCooked float64 `json:"grams_cooked"`
	TargetMacro string  `json:"target_macro"`
	PrepNotes   *string `json:"prep_notes"`
}

// MealPlan is one planned meal with its macro targets.
type MealPlan struct {
	MealNumber     int        `json:"meal_number"`
	MealLabel      string     `json:"meal_label"`
	Protein        float64    `json:"protein"`
	Carbs          float64    `json:"carbs"`
	Fat            float64    `json:"fat"`
	IsIntraWorkout bool       `json:"is_intra_workout"`
	Foods          []MealFood `json:"foods"`
}

type FoodSearchResult struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	UKName          *string  `json:"uk_name"`
	Category        string   `json:"category"`
	ProteinPer100g  float64  `json:"protein_per_100g"`
	CarbsPer100g    float64  `json:"carbs_per_100g"`
	FatPer100g      float64  `json:"fat_per_100g"`
	CaloriesPer100g float64  `json:"calories_per_100g"`
	CookRatio       float64  `json:"cook_ratio"`
	ServingSize     *float64 `json:"serving_size"`
	ServingUnit     *string  `json:"serving_unit"`
}

// NutritionTodayData is returned by GET /nutrition/today.
type NutritionTodayData struct {
	Available     bool       `json:"available"`
	DayType       *string    `json:"day_type"`
	TotalProtein  float64    `json:"total_protein"`
	TotalCarbs    float64    `json:"total_carbs"`
	TotalFat      float64    `json:"total_fat"`
	TotalCalories float64    `json:"total_calories"`
	Meals         []MealPlan `json:"meals"`
	MealsPerDay   int        `json:"meals_per_day,omitempty"`
}

// Meal returns the planned meal with the given number.
func (n *NutritionTodayData) Meal(number int) (MealPlan, bool) {
	for _, m := range n.Meals {
		if m.MealNumber == number {
			return m, true
		}
	}
	return MealPlan{}, false
}

type NutritionDayPlan struct {
	DayOfWeek     string     `json:"day_of_week"`
	DayType       string     `json:"day_type"`
	TotalProtein  float64    `json:"total_protein"`
	TotalCarbs    float64    `json:"total_carbs"`
	TotalFat      float64    `json:"total_fat"`
	TotalCalories float64    `json:"total_calories"`
	Meals         []MealPlan `json:"meals"`
}

// NutritionWeekData is returned by GET /nutrition/week.
type NutritionWeekData struct {
	Available bool               `json:"available"`
	PlanName  string             `json:"plan_name"`
	Days      []NutritionDayPlan `json:"days"`
}

// Meal log statuses.
const (
	MealCompleted = "COMPLETED"
	MealModified  = "MODIFIED"
	MealSkipped   = "SKIPPED"
	MealPartial   = "PARTIAL"
)

// ValidMealStatus reports whether s is an accepted meal log status.
func ValidMealStatus(s string) bool {
	switch s {
	case MealCompleted, MealModified, MealSkipped, MealPartial:
		return true
	}
	return false
}

type LoggedFood struct {
	FoodName       string   `json:"food_name"`
	GramsActual    *float64 `json:"grams_actual"`
	IsSubstitution bool     `json:"is_substitution"`
	OriginalFood   *string  `json:"original_food"`
	Protein        *float64 `json:"protein"`
	Carbs          *float64 `json:"carbs"`
	Fat            *float64 `json:"fat"`
	Calories       *float64 `json:"calories"`
}

type LoggedMeal struct {
	ID         string       `json:"id,omitempty"`
	MealNumber int          `json:"meal_number"`
	MealLabel  string       `json:"meal_label,omitempty"`
	Status     string       `json:"status"`
	Adherence  *float64     `json:"adherence"`
	Notes      *string      `json:"notes,omitempty"`
	Source     string       `json:"source,omitempty"`
	Foods      []LoggedFood `json:"foods,omitempty"`
}

type DailyTotals struct {
	ProteinConsumed  float64 `json:"protein_consumed"`
	CarbsConsumed    float64 `json:"carbs_consumed"`
	FatConsumed      float64 `json:"fat_consumed"`
	CaloriesConsumed float64 `json:"calories_consumed"`
}

type DailyTargets struct {
	ProteinTarget  float64 `json:"protein_target"`
	CarbsTarget    float64 `json:"carbs_target"`
	FatTarget      float64 `json:"fat_target"`
	CaloriesTarget float64 `json:"calories_target"`
}

// MealLogsToday is returned by GET /nutrition/meal-logs/today.
type MealLogsToday struct {
	Date         string       `json:"date"`
	LoggedMeals  []LoggedMeal `json:"logged_meals"`
	DailyTotals  DailyTotals  `json:"daily_totals"`
	DailyTargets DailyTargets `json:"daily_targets"`
}

type MealLogFood struct {
	FoodName       string   `json:"food_name"`
	GramsActual    float64  `json:"grams_actual"`
	IsSubstitution bool     `json:"is_substitution"`
	OriginalFood   string   `json:"original_food,omitempty"`
	FoodID         string   `json:"food_id,omitempty"`
	Protein        *float64 `json:"protein,omitempty"`
	Carbs          *float64 `json:"carbs,omitempty"`
	Fat            *float64 `json:"fat,omitempty"`
	Calories       *float64 `json:"calories,omitempty"`
}

// MealLogPayload is the body of POST and DELETE /nutrition/meal-log.
type MealLogPayload struct {
	Date       string        `json:"date"`
	MealNumber int           `json:"meal_number"`
	MealLabel  string        `json:"meal_label"`
	Status     string        `json:"status"`
	Adherence  float64       `json:"adherence"`
	Notes      *string       `json:"notes"`
	Source     string        `json:"source"`
	Foods      []MealLogFood `json:"foods"`
}

package devserver

import (
	"time"

	"github.com/claude/coachtrack/internal/models"
)

func ptr[T any](v T) *T { return &v }

// seed loads a twelve-week hypertrophy block with today as an upper-body day.
func (s *Server) seed() {
	s.profile = models.Profile{
		FirstName:     ptr("Sam"),
		StartDate:     ptr(s.now().AddDate(0, 0, -21).Format(time.DateOnly)),
		GoalWeight:    ptr(78.0),
		CurrentWeight: ptr(84.2),
		StartWeight:   ptr(86.0),
		WeightUnit:    "kg",
		CheckinDay:    "Monday",
		CheckinTime:   "08:00",
		Timezone:      "Europe/London",
		ProgramWeek:   ptr(4),
		TotalWeeks:    12,
	}

	s.workoutName = "Upper A"
	s.dayPlanID = "day-upper-a"
	s.plan = []models.PlannedExercise{
		{ID: "pe-bench", ExerciseID: "ex-bench", Name: "Bench Press", Order: 1, Sets: 3, RepsMin: 6, RepsMax: ptr(8), RPETarget: ptr(8.0), RestSeconds: 150, Tempo: "3010"},
		{ID: "pe-row", ExerciseID: "ex-row", Name: "Chest Supported Row", Order: 2, Sets: 3, RepsMin: 8, RepsMax: ptr(10), RestSeconds: 120},
		{ID: "pe-press", ExerciseID: "ex-ohp", Name: "Seated DB Press", Order: 3, Sets: 2, RepsMin: 10, RepsMax: ptr(12), RestSeconds: 90},
		{ID: "pe-curl", ExerciseID: "ex-curl", Name: "Cable Curl", Order: 4, Sets: 2, RepsMin: 12, RepsMax: ptr(15), RestSeconds: 60, SupersetGroup: "A", DropSet: true, DropSetRounds: ptr(1)},
	}

	days := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	s.week = models.TrainingWeekData{Available: true, WeekNumber: 4}
	for i, name := range days {
		day := models.TrainingDayPlan{DayOfWeek: i + 1, DayName: name, IsTrainingDay: i%2 == 0}
		if day.IsTrainingDay {
			day.Exercises = s.plan
		}
		s.week.Days = append(s.week.Days, day)
	}

	s.nutrition = models.NutritionTodayData{
		Available: true,
		DayType:   ptr("training"),
		Meals: []models.MealPlan{
			{MealNumber: 1, MealLabel: "Breakfast", Protein: 40, Carbs: 60, Fat: 15, Foods: []models.MealFood{
				{Name: "Oats", Category: "carb", GramsRaw: 80, GramsCooked: 80, TargetMacro: "carbs"},
				{Name: "Whey Protein", Category: "protein", GramsRaw: 30, GramsCooked: 30, TargetMacro: "protein"},
			}},
			{MealNumber: 2, MealLabel: "Lunch", Protein: 45, Carbs: 70, Fat: 12, Foods: []models.MealFood{
				{Name: "Chicken Breast", Category: "protein", GramsRaw: 180, GramsCooked: 135, TargetMacro: "protein"},
				{Name: "White Rice", Category: "carb", GramsRaw: 90, GramsCooked: 225, TargetMacro: "carbs"},
			}},
			{MealNumber: 3, MealLabel: "Intra-workout", Protein: 0, Carbs: 40, Fat: 0, IsIntraWorkout: true},
			{MealNumber: 4, MealLabel: "Dinner", Protein: 50, Carbs: 60, Fat: 20, Foods: []models.MealFood{
				{Name: "Salmon", Category: "protein", GramsRaw: 200, GramsCooked: 170, TargetMacro: "protein"},
				{Name: "Potatoes", Category: "carb", GramsRaw: 300, GramsCooked: 300, TargetMacro: "carbs"},
			}},
		},
		MealsPerDay: 4,
	}
	for _, m := range s.nutrition.Meals {
		s.nutrition.TotalProtein += m.Protein
		s.nutrition.TotalCarbs += m.Carbs
		s.nutrition.TotalFat += m.Fat
	}
	s.nutrition.TotalCalories = 4*s.nutrition.TotalProtein + 4*s.nutrition.TotalCarbs + 9*s.nutrition.TotalFat

	s.foods = []models.FoodSearchResult{
		{ID: "f-oats", Name: "Oats", Category: "carb", ProteinPer100g: 13, CarbsPer100g: 60, FatPer100g: 7, CaloriesPer100g: 375, CookRatio: 1},
		{ID: "f-whey", Name: "Whey Protein", Category: "protein", ProteinPer100g: 80, CarbsPer100g: 8, FatPer100g: 5, CaloriesPer100g: 397, CookRatio: 1},
		{ID: "f-chicken", Name: "Chicken Breast", Category: "protein", ProteinPer100g: 23, CarbsPer100g: 0, FatPer100g: 2, CaloriesPer100g: 110, CookRatio: 0.75},
		{ID: "f-rice", Name: "White Rice", UKName: ptr("Basmati Rice"), Category: "carb", ProteinPer100g: 7, CarbsPer100g: 80, FatPer100g: 0.6, CaloriesPer100g: 365, CookRatio: 2.5},
		{ID: "f-salmon", Name: "Salmon", Category: "protein", ProteinPer100g: 20, CarbsPer100g: 0, FatPer100g: 13, CaloriesPer100g: 208, CookRatio: 0.85},
		{ID: "f-potato", Name: "Potatoes", Category: "carb", ProteinPer100g: 2, CarbsPer100g: 17, FatPer100g: 0.1, CaloriesPer100g: 77, CookRatio: 1},
	}

	s.weight = models.WeightData{
		StartWeight: s.profile.StartWeight,
		GoalWeight:  s.profile.GoalWeight,
		Unit:        "kg",
	}
	for i, w := range []float64{86.0, 85.6, 85.1, 84.9, 84.2} {
		s.weight.Entries = append(s.weight.Entries, models.WeightEntry{
			Date:   s.now().AddDate(0, 0, (i-5)*5).Format(time.DateOnly),
			Weight: w,
		})
	}
	s.recomputeWeight()
}

package devserver

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/claude/coachtrack/internal/models"
	"github.com/claude/coachtrack/internal/nutrition"
)

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	date := s.today()
	checkin := models.StatusUpcoming
	isCheckinDay := s.now().Weekday().String() == s.profile.CheckinDay
	if isCheckinDay {
		checkin = models.StatusPending
	}
	if s.checkins[date] {
		checkin = models.StatusCompleted
	}

	writeJSON(w, http.StatusOK, models.TodayData{
		Date: date,
		Training: models.TodayTraining{
			Available:     true,
			IsTrainingDay: true,
			WorkoutName:   s.workoutName,
			ExerciseCount: len(s.plan),
		},
		Nutrition: models.TodayNutrition{
			Available:     s.nutrition.Available,
			DayType:       *s.nutrition.DayType,
			TotalProtein:  s.nutrition.TotalProtein,
			TotalCarbs:    s.nutrition.TotalCarbs,
			TotalFat:      s.nutrition.TotalFat,
			TotalCalories: s.nutrition.TotalCalories,
		},
		Checkin: models.TodayCheckin{
			IsCheckinDay: isCheckinDay,
			Status:       checkin,
			NextCheckin:  s.profile.CheckinDay,
		},
		Touchpoint: models.TodayTouchpoint{Status: models.StatusUpcoming},
	})
}

func (s *Server) handleTrainingToday(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := s.workoutName
	writeJSON(w, http.StatusOK, models.TrainingTodayData{
		Available:     true,
		IsTrainingDay: true,
		WorkoutName:   &name,
		ExerciseCount: len(s.plan),
		Exercises:     s.plan,
	})
}

func (s *Server) handleTrainingWeek(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.week)
}

func (s *Server) handleNutritionToday(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.nutrition)
}

func (s *Server) handleNutritionWeek(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	week := models.NutritionWeekData{Available: true, PlanName: "Lean Gain"}
	for _, d := range s.week.Days {
		dayType := "rest"
		if d.IsTrainingDay {
			dayType = "training"
		}
		week.Days = append(week.Days, models.NutritionDayPlan{
			DayOfWeek:     d.DayName,
			DayType:       dayType,
			TotalProtein:  s.nutrition.TotalProtein,
			TotalCarbs:    s.nutrition.TotalCarbs,
			TotalFat:      s.nutrition.TotalFat,
			TotalCalories: s.nutrition.TotalCalories,
			Meals:         s.nutrition.Meals,
		})
	}
	writeJSON(w, http.StatusOK, week)
}

func (s *Server) handleFoodSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	if q == "" {
		writeError(w, http.StatusBadRequest, "q parameter required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	foods := []models.FoodSearchResult{}
	for _, f := range s.foods {
		if strings.Contains(strings.ToLower(f.Name), q) || (f.UKName != nil && strings.Contains(strings.ToLower(*f.UKName), q)) {
			foods = append(foods, f)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"foods": foods})
}

func (s *Server) handleMealLogsToday(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	date := s.today()
	out := models.MealLogsToday{
		Date:        date,
		LoggedMeals: []models.LoggedMeal{},
		DailyTargets: models.DailyTargets{
			ProteinTarget:  s.nutrition.TotalProtein,
			CarbsTarget:    s.nutrition.TotalCarbs,
			FatTarget:      s.nutrition.TotalFat,
			CaloriesTarget: s.nutrition.TotalCalories,
		},
	}

	numbers := make([]int, 0, len(s.meals[date]))
	for n := range s.meals[date] {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	var total nutrition.Macros
	for _, n := range numbers {
		p := s.meals[date][n]
		foods := nutrition.LoggedFoods(p.Foods)
		adherence := p.Adherence
		out.LoggedMeals = append(out.LoggedMeals, models.LoggedMeal{
			ID:         mealID(date, n),
			MealNumber: n,
			MealLabel:  p.MealLabel,
			Status:     p.Status,
			Adherence:  &adherence,
			Notes:      p.Notes,
			Source:     p.Source,
			Foods:      foods,
		})

		var plan *models.MealPlan
		if m, ok := s.nutrition.Meal(n); ok {
			plan = &m
		}
		c := nutrition.Contribution(p.Status, foods, plan)
		total.Protein += c.Protein
		total.Carbs += c.Carbs
		total.Fat += c.Fat
		total.Calories += c.Calories
	}
	out.DailyTotals = models.DailyTotals{
		ProteinConsumed:  total.Protein,
		CarbsConsumed:    total.Carbs,
		FatConsumed:      total.Fat,
		CaloriesConsumed: total.Calories,
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMeasurements(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, models.MeasurementsData{Measurements: append([]models.BodyMeasurement{}, s.measurements...)})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.currentProfile())
}

// currentProfile reports the latest logged weight as the current weight.
// Callers hold s.mu.
func (s *Server) currentProfile() models.Profile {
	p := s.profile
	if s.weight.CurrentWeight != nil {
		current := *s.weight.CurrentWeight
		p.CurrentWeight = &current
	}
	return p
}

func (s *Server) handleWeight(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.weight)
}

func (s *Server) handlePhotos(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, models.PhotosData{Photos: append([]models.ProgressPhoto{}, s.photos...)})
}

func (s *Server) handleCompliance(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var c models.ComplianceData
	trained := make(map[string]bool)
	for _, wl := range s.workouts {
		trained[wl.Date] = true
	}
	for i := 27; i >= 0; i-- {
		date := s.now().AddDate(0, 0, -i).Format(time.DateOnly)
		level := 0
		if trained[date] {
			level++
		}
		if len(s.meals[date]) > 0 {
			level++
		}
		c.Heatmap = append(c.Heatmap, models.HeatmapDay{Date: date, Level: level})
		if level > 0 {
			c.Streak.Current++
		} else {
			c.Streak.Current = 0
		}
		c.Streak.Longest = max(c.Streak.Longest, c.Streak.Current)
	}
	c.ThisWeek.Training = models.Target{Completed: len(trained), Target: 4}
	c.ThisWeek.Nutrition = models.Target{Completed: len(s.meals), Target: 7}
	c.ThisWeek.OfficialCheckin = models.Target{Completed: len(s.checkins), Target: 1}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleWeeklySummaries(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out models.SummaryData
	week := *s.profile.ProgramWeek
	for n := 1; n < week; n++ {
		out.Summaries = append(out.Summaries, models.WeeklySummary{
			WeekNumber:       n,
			WeekStart:        s.now().AddDate(0, 0, -7*(week-n)).Format(time.DateOnly),
			ComplianceScore:  80 + float64(n),
			WeightDelta:      ptr(-0.5),
			TrainingSessions: 4,
			TrainingTarget:   4,
		})
	}
	out.ProgramProgress.CurrentWeek = week
	out.ProgramProgress.TotalWeeks = s.profile.TotalWeeks
	out.ProgramProgress.PercentComplete = float64(week) / float64(s.profile.TotalWeeks) * 100
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTopExercises(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 5
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int)
	for _, wl := range s.workouts {
		for _, ex := range wl.Exercises {
			counts[ex.ExerciseID]++
		}
	}
	out := models.TopExercisesData{Exercises: []models.TopExercise{}}
	for _, pe := range s.plan {
		out.Exercises = append(out.Exercises, models.TopExercise{ExerciseID: pe.ExerciseID, Name: pe.Name, Count: counts[pe.ExerciseID]})
	}
	sort.SliceStable(out.Exercises, func(i, j int) bool { return out.Exercises[i].Count > out.Exercises[j].Count })
	if len(out.Exercises) > limit {
		out.Exercises = out.Exercises[:limit]
	}
	writeJSON(w, http.StatusOK, out)
}

type seriesPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

func (s *Server) handleStrength(w http.ResponseWriter, r *http.Request) {
	s.writeSeries(w, r, func(sets []models.SetRecord) float64 {
		best := 0.0
		for _, set := range sets {
			// Epley estimated one-rep max
			best = max(best, set.Weight*(1+float64(set.Reps)/30))
		}
		return best
	})
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	s.writeSeries(w, r, func(sets []models.SetRecord) float64 {
		total := 0.0
		for _, set := range sets {
			total += set.Weight * float64(set.Reps)
		}
		return total
	})
}

func (s *Server) writeSeries(w http.ResponseWriter, r *http.Request, value func([]models.SetRecord) float64) {
	id := r.URL.Query().Get("exercise_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "exercise_id parameter required")
		return
	}
	weeks, err := strconv.Atoi(r.URL.Query().Get("weeks"))
	if err != nil || weeks <= 0 {
		weeks = 8
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	name := ""
	for _, pe := range s.plan {
		if pe.ExerciseID == id {
			name = pe.Name
		}
	}
	if name == "" {
		writeError(w, http.StatusNotFound, "unknown exercise")
		return
	}

	cutoff := s.now().AddDate(0, 0, -7*weeks).Format(time.DateOnly)
	points := []seriesPoint{}
	for _, wl := range s.workouts {
		if wl.Date < cutoff {
			continue
		}
		for _, ex := range wl.Exercises {
			if ex.ExerciseID == id {
				points = append(points, seriesPoint{Date: wl.Date, Value: value(ex.Sets)})
			}
		}
	}
	data, _ := json.Marshal(points)
	writeJSON(w, http.StatusOK, models.StrengthProgressionData{ExerciseID: id, ExerciseName: name, Data: data})
}

func (s *Server) handleExerciseHistory(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name parameter required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := models.ExerciseHistoryData{ExerciseName: name, History: []models.ExerciseHistoryEntry{}}
	ids := s.exerciseIDs(name)
	for i := len(s.workouts) - 1; i >= 0; i-- {
		wl := s.workouts[i]
		for _, ex := range wl.Exercises {
			if ids[ex.ExerciseID] {
				out.History = append(out.History, models.ExerciseHistoryEntry{Date: wl.Date, Sets: ex.Sets})
			}
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// exerciseIDs returns the catalog ids of plan exercises called name.
func (s *Server) exerciseIDs(name string) map[string]bool {
	ids := make(map[string]bool)
	for _, pe := range s.plan {
		if strings.EqualFold(pe.Name, name) {
			ids[pe.ExerciseID] = true
		}
	}
	return ids
}

func mealID(date string, number int) string {
	return date + "-" + strconv.Itoa(number)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

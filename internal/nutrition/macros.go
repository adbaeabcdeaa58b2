// Package nutrition logs meals against the day's plan with optimistic updates
// of the cached daily totals.
package nutrition

import (
	"math"

	"github.com/claude/coachtrack/internal/models"
)

// Macros is a macro-nutrient amount in grams, plus calories.
type Macros struct {
	Protein  float64
	Carbs    float64
	Fat      float64
	Calories float64
}

func (m Macros) add(o Macros) Macros {
	return Macros{m.Protein + o.Protein, m.Carbs + o.Carbs, m.Fat + o.Fat, m.Calories + o.Calories}
}

func (m Macros) sub(o Macros) Macros {
	return Macros{m.Protein - o.Protein, m.Carbs - o.Carbs, m.Fat - o.Fat, m.Calories - o.Calories}
}

func round1(n float64) float64 {
	return math.Round(n*10) / 10
}

// CalculateMacros scales a food's per-100g values to a cooked portion.
// Cooked grams are converted back to raw weight using the food's cook ratio.
func CalculateMacros(food models.FoodSearchResult, gramsCooked float64) Macros {
	ratio := food.CookRatio
	if ratio == 0 {
		ratio = 1
	}
	multiplier := gramsCooked / ratio / 100
	return Macros{
		Protein:  round1(food.ProteinPer100g * multiplier),
		Carbs:    round1(food.CarbsPer100g * multiplier),
		Fat:      round1(food.FatPer100g * multiplier),
		Calories: math.Round(food.CaloriesPer100g * multiplier),
	}
}

// planMacros is the meal-level aggregate from the plan. Calories use 4/4/9 kcal per gram.
func planMacros(m models.MealPlan) Macros {
	return Macros{
		Protein:  m.Protein,
		Carbs:    m.Carbs,
		Fat:      m.Fat,
		Calories: 4*m.Protein + 4*m.Carbs + 9*m.Fat,
	}
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// Contribution is what one logged meal adds to the daily totals: the sum of
// per-food macros when any food carries them, otherwise the planned meal's
// aggregate. Skipped meals contribute nothing.
func Contribution(status string, foods []models.LoggedFood, plan *models.MealPlan) Macros {
	if status == models.MealSkipped {
		return Macros{}
	}

	hasFoodMacros := false
	for _, f := range foods {
		if f.Protein != nil {
			hasFoodMacros = true
			break
		}
	}
	if hasFoodMacros {
		var total Macros
		for _, f := range foods {
			total = total.add(Macros{deref(f.Protein), deref(f.Carbs), deref(f.Fat), deref(f.Calories)})
		}
		return total
	}

	if plan != nil {
		return planMacros(*plan)
	}
	return Macros{}
}

func LoggedFoods(foods []models.MealLogFood) []models.LoggedFood {
	out := make([]models.LoggedFood, 0, len(foods))
	for _, f := range foods {
		grams := f.GramsActual
		lf := models.LoggedFood{
			FoodName:       f.FoodName,
			GramsActual:    &grams,
			IsSubstitution: f.IsSubstitution,
			Protein:        f.Protein,
			Carbs:          f.Carbs,
			Fat:            f.Fat,
			Calories:       f.Calories,
		}
		if f.OriginalFood != "" {
			orig := f.OriginalFood
			lf.OriginalFood = &orig
		}
		out = append(out, lf)
	}
	return out
}

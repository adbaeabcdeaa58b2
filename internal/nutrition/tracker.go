package nutrition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/claude/coachtrack/internal/api"
	"github.com/claude/coachtrack/internal/cache"
	"github.com/claude/coachtrack/internal/models"
)

// Cache keys owned by this package.
var (
	MealLogsTodayKey  = cache.Key{"client", "meal-logs", "today"}
	MealLogsPrefix    = cache.Key{"client", "meal-logs"}
	NutritionTodayKey = cache.Key{"client", "nutrition", "today"}
	NutritionPrefix   = cache.Key{"client", "nutrition"}
)

var (
	ErrInvalidStatus = errors.New("nutrition: invalid meal status")
	ErrInvalidMeal   = errors.New("nutrition: meal number must be positive")
)

// API is the subset of the coaching API used for meal logging.
type API interface {
	MealLogsToday(ctx context.Context) (*models.MealLogsToday, error)
	NutritionToday(ctx context.Context) (*models.NutritionTodayData, error)
	LogMeal(ctx context.Context, p models.MealLogPayload) (*api.Result, error)
	DeleteMeal(ctx context.Context, p models.MealLogPayload) (*api.Result, error)
}

// Tracker reads today's plan and meal logs through the cache and logs meals.
type Tracker struct {
	api   API
	cache *cache.Cache
	log   *slog.Logger
}

// NewTracker registers the nutrition queries on c.
func NewTracker(a API, c *cache.Cache, log *slog.Logger) *Tracker {
	t := &Tracker{api: a, cache: c, log: log}
	c.Register(MealLogsTodayKey, time.Minute, func(ctx context.Context) (any, error) {
		return a.MealLogsToday(ctx)
	})
	c.Register(NutritionTodayKey, 5*time.Minute, func(ctx context.Context) (any, error) {
		return a.NutritionToday(ctx)
	})
	return t
}

// Today returns today's logged meals and totals.
func (t *Tracker) Today(ctx context.Context) (*models.MealLogsToday, error) {
	var out models.MealLogsToday
	if err := t.cache.Get(ctx, MealLogsTodayKey, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Plan returns today's nutrition plan.
func (t *Tracker) Plan(ctx context.Context) (*models.NutritionTodayData, error) {
	var out models.NutritionTodayData
	if err := t.cache.Get(ctx, NutritionTodayKey, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LogMeal records p, replacing any entry already logged for the same meal
// number. Cached totals change immediately and are rolled back if the server
// rejects the log.
func (t *Tracker) LogMeal(ctx context.Context, p models.MealLogPayload) error {
	if !models.ValidMealStatus(p.Status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, p.Status)
	}
	if p.MealNumber <= 0 {
		return ErrInvalidMeal
	}
	if p.Source == "" {
		p.Source = models.SourceClient
	}

	var plan *models.MealPlan
	var nt models.NutritionTodayData
	if t.cache.Data(NutritionTodayKey, &nt) {
		if m, ok := nt.Meal(p.MealNumber); ok {
			plan = &m
		}
	}

	replacing := false
	var current models.MealLogsToday
	if t.cache.Data(MealLogsTodayKey, &current) {
		for _, m := range current.LoggedMeals {
			if m.MealNumber == p.MealNumber {
				replacing = true
				break
			}
		}
	}

	return cache.Optimistic(ctx, t.cache, cache.Transaction[models.MealLogsToday]{
		Key:        MealLogsTodayKey,
		Cancel:     []cache.Key{MealLogsPrefix},
		Apply:      func(prev models.MealLogsToday) models.MealLogsToday { return upsert(prev, p, plan) },
		Invalidate: []cache.Key{MealLogsPrefix, NutritionPrefix},
	}, func(ctx context.Context) error {
		return t.commit(ctx, p, replacing)
	})
}

// commit performs the server side of the upsert. The server keeps one log per
// (date, meal number), so an existing entry is deleted before the create, and
// a conflicting create is retried once after a delete.
func (t *Tracker) commit(ctx context.Context, p models.MealLogPayload, replacing bool) error {
	if replacing {
		if err := t.deleteMeal(ctx, p); err != nil {
			return err
		}
	}

	_, err := t.api.LogMeal(ctx, p)
	if api.IsStatus(err, http.StatusConflict) {
		t.log.Info("meal already logged, replacing", "meal_number", p.MealNumber, "date", p.Date)
		if err := t.deleteMeal(ctx, p); err != nil {
			return err
		}
		_, err = t.api.LogMeal(ctx, p)
	}
	if err != nil {
		return fmt.Errorf("logging meal %d: %w", p.MealNumber, err)
	}
	return nil
}

func (t *Tracker) deleteMeal(ctx context.Context, p models.MealLogPayload) error {
	_, err := t.api.DeleteMeal(ctx, p)
	if err != nil && !api.IsStatus(err, http.StatusNotFound) {
		return fmt.Errorf("deleting meal %d: %w", p.MealNumber, err)
	}
	return nil
}

// upsert returns prev with p's entry replacing any entry for the same meal number.
func upsert(prev models.MealLogsToday, p models.MealLogPayload, plan *models.MealPlan) models.MealLogsToday {
	totals := Macros{
		Protein:  prev.DailyTotals.ProteinConsumed,
		Carbs:    prev.DailyTotals.CarbsConsumed,
		Fat:      prev.DailyTotals.FatConsumed,
		Calories: prev.DailyTotals.CaloriesConsumed,
	}

	meals := make([]models.LoggedMeal, 0, len(prev.LoggedMeals)+1)
	for _, m := range prev.LoggedMeals {
		if m.MealNumber == p.MealNumber {
			totals = totals.sub(Contribution(m.Status, m.Foods, plan))
			continue
		}
		meals = append(meals, m)
	}

	adherence := p.Adherence
	entry := models.LoggedMeal{
		MealNumber: p.MealNumber,
		MealLabel:  p.MealLabel,
		Status:     p.Status,
		Adherence:  &adherence,
		Notes:      p.Notes,
		Source:     p.Source,
		Foods:      LoggedFoods(p.Foods),
	}
	totals = totals.add(Contribution(entry.Status, entry.Foods, plan))
	meals = append(meals, entry)

	prev.LoggedMeals = meals
	prev.DailyTotals = models.DailyTotals{
		ProteinConsumed:  totals.Protein,
		CarbsConsumed:    totals.Carbs,
		FatConsumed:      totals.Fat,
		CaloriesConsumed: totals.Calories,
	}
	return prev
}

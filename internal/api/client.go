package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/claude/coachtrack/internal/models"
)

// Client exposes one typed method per coaching API endpoint.
type Client struct {
	gw         *Gateway
	retryDelay time.Duration
}

// NewClient wraps gw.
func NewClient(gw *Gateway) *Client {
	return &Client{gw: gw, retryDelay: time.Second}
}

// Gateway returns the underlying gateway.
func (c *Client) Gateway() *Gateway { return c.gw }

func get[T any](ctx context.Context, c *Client, endpoint string) (*T, error) {
	res, err := c.gw.Request(ctx, endpoint, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := res.Decode(out); err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	return out, nil
}

func withQuery(endpoint string, params url.Values) string {
	return endpoint + "?" + params.Encode()
}

func (c *Client) Today(ctx context.Context) (*models.TodayData, error) {
	return get[models.TodayData](ctx, c, "/today")
}

func (c *Client) TrainingToday(ctx context.Context) (*models.TrainingTodayData, error) {
	return get[models.TrainingTodayData](ctx, c, "/training/today")
}

func (c *Client) TrainingWeek(ctx context.Context) (*models.TrainingWeekData, error) {
	return get[models.TrainingWeekData](ctx, c, "/training/week")
}

func (c *Client) NutritionToday(ctx context.Context) (*models.NutritionTodayData, error) {
	return get[models.NutritionTodayData](ctx, c, "/nutrition/today")
}

func (c *Client) NutritionWeek(ctx context.Context) (*models.NutritionWeekData, error) {
	return get[models.NutritionWeekData](ctx, c, "/nutrition/week")
}

// Profile returns the client's program profile.
func (c *Client) Profile(ctx context.Context) (*models.Profile, error) {
	return get[models.Profile](ctx, c, "/profile")
}

func (c *Client) Measurements(ctx context.Context) (*models.MeasurementsData, error) {
	return get[models.MeasurementsData](ctx, c, "/measurements")
}

func (c *Client) Weight(ctx context.Context) (*models.WeightData, error) {
	return get[models.WeightData](ctx, c, "/weight")
}

func (c *Client) Photos(ctx context.Context) (*models.PhotosData, error) {
	return get[models.PhotosData](ctx, c, "/photos")
}

func (c *Client) Compliance(ctx context.Context) (*models.ComplianceData, error) {
	return get[models.ComplianceData](ctx, c, "/compliance")
}

func (c *Client) WeeklySummaries(ctx context.Context) (*models.SummaryData, error) {
	return get[models.SummaryData](ctx, c, "/weekly-summaries")
}

func (c *Client) TopExercises(ctx context.Context, limit int) (*models.TopExercisesData, error) {
	return get[models.TopExercisesData](ctx, c, withQuery("/analytics/top-exercises", url.Values{
		"limit": {strconv.Itoa(limit)},
	}))
}

func (c *Client) Strength(ctx context.Context, exerciseID string, weeks int) (*models.StrengthProgressionData, error) {
	return get[models.StrengthProgressionData](ctx, c, withQuery("/analytics/strength", url.Values{
		"exercise_id": {exerciseID},
		"weeks":       {strconv.Itoa(weeks)},
	}))
}

func (c *Client) Volume(ctx context.Context, exerciseID string, weeks int) (*models.VolumeProgressionData, error) {
	return get[models.VolumeProgressionData](ctx, c, withQuery("/analytics/volume", url.Values{
		"exercise_id": {exerciseID},
		"weeks":       {strconv.Itoa(weeks)},
	}))
}

func (c *Client) ExerciseHistory(ctx context.Context, name string) (*models.ExerciseHistoryData, error) {
	return get[models.ExerciseHistoryData](ctx, c, withQuery("/exercise/history", url.Values{"name": {name}}))
}

// SearchFoods queries the food catalog.
func (c *Client) SearchFoods(ctx context.Context, query string) ([]models.FoodSearchResult, error) {
	res, err := get[struct {
		Foods []models.FoodSearchResult `json:"foods"`
	}](ctx, c, withQuery("/nutrition/foods/search", url.Values{"q": {query}}))
	if err != nil {
		return nil, err
	}
	return res.Foods, nil
}

func (c *Client) MealLogsToday(ctx context.Context) (*models.MealLogsToday, error) {
	return get[models.MealLogsToday](ctx, c, "/nutrition/meal-logs/today")
}

// StartWorkout begins a session. It is never queued, and a failure other than
// ErrUnauthorized or ErrOffline is retried once.
func (c *Client) StartWorkout(ctx context.Context) (*models.WorkoutSessionData, error) {
	var lastErr error
	for attempt := range 2 {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		res, err := c.gw.Do(ctx, Call{Endpoint: "/workout/start", Method: http.MethodPost, NoQueue: true})
		if err == nil {
			var data models.WorkoutSessionData
			if err := res.Decode(&data); err != nil {
				return nil, err
			}
			return &data, nil
		}
		if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrOffline) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("starting workout: %w", lastErr)
}

func (c *Client) LogWorkout(ctx context.Context, p models.WorkoutLogPayload) (*Result, error) {
	return c.gw.Do(ctx, Call{Endpoint: "/workout/log", Method: http.MethodPost, Body: p})
}

func (c *Client) LogMeal(ctx context.Context, p models.MealLogPayload) (*Result, error) {
	return c.gw.Request(ctx, "/nutrition/meal-log", http.MethodPost, p)
}

func (c *Client) DeleteMeal(ctx context.Context, p models.MealLogPayload) (*Result, error) {
	return c.gw.Request(ctx, "/nutrition/meal-log", http.MethodDelete, p)
}

func (c *Client) LogWeight(ctx context.Context, p models.WeightLogPayload) (*Result, error) {
	return c.gw.Request(ctx, "/weight", http.MethodPost, p)
}

func (c *Client) LogMeasurement(ctx context.Context, p models.MeasurementPayload) (*Result, error) {
	return c.gw.Request(ctx, "/measurements", http.MethodPost, p)
}

// UploadPhoto sends a progress photo of the given type.
func (c *Client) UploadPhoto(ctx context.Context, filename, photoType string, r io.Reader) (*models.ProgressPhoto, error) {
	res, err := c.gw.Upload(ctx, "/photos", "photo", filename, r, map[string]string{"photo_type": photoType})
	if err != nil {
		return nil, err
	}
	var photo models.ProgressPhoto
	if err := res.Decode(&photo); err != nil {
		return nil, err
	}
	return &photo, nil
}

func (c *Client) StartCheckin(ctx context.Context, date string) (*Result, error) {
	return c.gw.Request(ctx, "/checkin/start", http.MethodPost, models.CheckinStart{Date: date})
}

// ExchangeToken trades a login link token for a credential.
func (c *Client) ExchangeToken(ctx context.Context, loginToken string) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.gw.Exchange(ctx, loginToken, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

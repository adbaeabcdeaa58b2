// Package progress logs body weight, measurements and progress photos.
package progress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/claude/coachtrack/internal/api"
	"github.com/claude/coachtrack/internal/cache"
	"github.com/claude/coachtrack/internal/models"
)

var (
	WeightKey       = cache.Key{"client", "weight"}
	MeasurementsKey = cache.Key{"client", "measurements"}
	PhotosKey       = cache.Key{"client", "photos"}
	ComplianceKey   = cache.Key{"client", "analytics", "compliance"}
	SummariesKey    = cache.Key{"client", "analytics", "weekly-summaries"}
)

// MaxWeight is the largest body weight accepted, in either unit.
const MaxWeight = 700

const (
	defaultUnit = "kg"
	staleTime   = 5 * time.Minute
)

var (
	ErrInvalidWeight = errors.New("progress: weight must be above 0 and at most 700")
	ErrNoMeasurement = errors.New("progress: no measurement sites given")
)

// API is the subset of the coaching API used for progress tracking.
type API interface {
	Weight(ctx context.Context) (*models.WeightData, error)
	Measurements(ctx context.Context) (*models.MeasurementsData, error)
	Photos(ctx context.Context) (*models.PhotosData, error)
	Compliance(ctx context.Context) (*models.ComplianceData, error)
	WeeklySummaries(ctx context.Context) (*models.SummaryData, error)
	LogWeight(ctx context.Context, p models.WeightLogPayload) (*api.Result, error)
	LogMeasurement(ctx context.Context, p models.MeasurementPayload) (*api.Result, error)
	UploadPhoto(ctx context.Context, filename, photoType string, r io.Reader) (*models.ProgressPhoto, error)
}

type Tracker struct {
	api   API
	cache *cache.Cache
	log   *slog.Logger
}

func NewTracker(a API, c *cache.Cache, log *slog.Logger) *Tracker {
	c.Register(WeightKey, staleTime, func(ctx context.Context) (any, error) { return a.Weight(ctx) })
	c.Register(MeasurementsKey, staleTime, func(ctx context.Context) (any, error) { return a.Measurements(ctx) })
	c.Register(PhotosKey, staleTime, func(ctx context.Context) (any, error) { return a.Photos(ctx) })
	c.Register(ComplianceKey, staleTime, func(ctx context.Context) (any, error) { return a.Compliance(ctx) })
	c.Register(SummariesKey, staleTime, func(ctx context.Context) (any, error) { return a.WeeklySummaries(ctx) })
	return &Tracker{api: a, cache: c, log: log}
}

func (t *Tracker) Weight(ctx context.Context) (*models.WeightData, error) {
	var out models.WeightData
	if err := t.cache.Get(ctx, WeightKey, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *Tracker) Measurements(ctx context.Context) (*models.MeasurementsData, error) {
	var out models.MeasurementsData
	if err := t.cache.Get(ctx, MeasurementsKey, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *Tracker) Photos(ctx context.Context) (*models.PhotosData, error) {
	var out models.PhotosData
	if err := t.cache.Get(ctx, PhotosKey, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *Tracker) Compliance(ctx context.Context) (*models.ComplianceData, error) {
	var out models.ComplianceData
	if err := t.cache.Get(ctx, ComplianceKey, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *Tracker) WeeklySummaries(ctx context.Context) (*models.SummaryData, error) {
	var out models.SummaryData
	if err := t.cache.Get(ctx, SummariesKey, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DefaultUnit is the unit of the cached weight history, or kg.
func (t *Tracker) DefaultUnit() string {
	var w models.WeightData
	if t.cache.Data(WeightKey, &w) && w.Unit != "" {
		return w.Unit
	}
	return defaultUnit
}

// LogWeight records a weigh-in. The cached history shows the entry at once
// and is rolled back if the server rejects it.
func (t *Tracker) LogWeight(ctx context.Context, p models.WeightLogPayload) error {
	if !(p.Weight > 0 && p.Weight <= MaxWeight) {
		return fmt.Errorf("%w: got %v", ErrInvalidWeight, p.Weight)
	}
	if p.Unit == "" {
		p.Unit = t.DefaultUnit()
	}
	if p.Source == "" {
		p.Source = models.SourceClient
	}

	return cache.Optimistic(ctx, t.cache, cache.Transaction[models.WeightData]{
		Key:   WeightKey,
		Apply: func(prev models.WeightData) models.WeightData { return withEntry(prev, p) },
	}, func(ctx context.Context) error {
		if _, err := t.api.LogWeight(ctx, p); err != nil {
			return fmt.Errorf("logging weight: %w", err)
		}
		return nil
	})
}

// LogMeasurement records body measurements and refreshes the history.
func (t *Tracker) LogMeasurement(ctx context.Context, p models.MeasurementPayload) error {
	if !hasSite(p) {
		return ErrNoMeasurement
	}
	_, err := t.api.LogMeasurement(ctx, p)
	t.refresh(ctx, MeasurementsKey)
	if err != nil {
		return fmt.Errorf("logging measurements: %w", err)
	}
	return nil
}

// UploadPhoto sends a progress photo and refreshes the gallery.
func (t *Tracker) UploadPhoto(ctx context.Context, filename, photoType string, r io.Reader) (*models.ProgressPhoto, error) {
	photo, err := t.api.UploadPhoto(ctx, filename, photoType, r)
	if err != nil {
		return nil, fmt.Errorf("uploading photo: %w", err)
	}
	t.refresh(ctx, PhotosKey)
	return photo, nil
}

func (t *Tracker) refresh(ctx context.Context, key cache.Key) {
	if err := t.cache.Invalidate(ctx, key); err != nil {
		t.log.Warn("refreshing after log", "key", key.String(), "error", err)
	}
}

// withEntry replaces any entry for p's date, or appends one, and updates the
// current weight and the change since the start weight.
func withEntry(prev models.WeightData, p models.WeightLogPayload) models.WeightData {
	entries := make([]models.WeightEntry, 0, len(prev.Entries)+1)
	for _, e := range prev.Entries {
		if e.Date != p.Date {
			entries = append(entries, e)
		}
	}
	entries = append(entries, models.WeightEntry{Date: p.Date, Weight: p.Weight})
	prev.Entries = entries

	current := p.Weight
	prev.CurrentWeight = &current
	if prev.StartWeight != nil {
		change := math.Round((current-*prev.StartWeight)*10) / 10
		prev.TotalChange = &change
	}
	return prev
}

func hasSite(p models.MeasurementPayload) bool {
	for _, v := range []*float64{
		p.Chest, p.Waist, p.Hips, p.LeftArm, p.RightArm, p.LeftThigh,
		p.RightThigh, p.LeftCalf, p.RightCalf, p.Neck, p.Shoulders,
	} {
		if v != nil {
			return true
		}
	}
	return false
}

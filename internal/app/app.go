// Package app wires the client stack: credential store, connectivity
// monitor, offline queue, gateway, cache and the domain trackers.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/claude/coachtrack/internal/api"
	"github.com/claude/coachtrack/internal/auth"
	"github.com/claude/coachtrack/internal/cache"
	"github.com/claude/coachtrack/internal/config"
	"github.com/claude/coachtrack/internal/kv"
	"github.com/claude/coachtrack/internal/models"
	"github.com/claude/coachtrack/internal/netstatus"
	"github.com/claude/coachtrack/internal/nutrition"
	"github.com/claude/coachtrack/internal/offline"
	"github.com/claude/coachtrack/internal/progress"
	"github.com/claude/coachtrack/internal/workout"
)

// Cache keys for the dashboard and plan reads.
var (
	TodayKey         = cache.Key{"client", "today"}
	ProfileKey       = cache.Key{"client", "profile"}
	TrainingTodayKey = cache.Key{"client", "training", "today"}
	TrainingWeekKey  = cache.Key{"client", "training", "week"}
	NutritionWeekKey = cache.Key{"client", "nutrition", "week"}
)

// Deps are the environment-specific pieces of the stack.
type Deps struct {
	Store      kv.Store
	HTTPClient *http.Client
	// Prober checks connectivity. Nil means the monitor only changes on Set.
	Prober         netstatus.Prober
	OnUnauthorized func()
	Log            *slog.Logger
}

type App struct {
	Config    *config.Config
	Creds     *auth.Store
	Monitor   *netstatus.Monitor
	Queue     *offline.Queue
	Gateway   *api.Gateway
	Client    *api.Client
	Cache     *cache.Cache
	Syncer    *offline.Syncer
	Nutrition *nutrition.Tracker
	Progress  *progress.Tracker

	log *slog.Logger
}

func New(cfg *config.Config, d Deps) *App {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	hc := d.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.API.Timeout}
	}

	creds := auth.NewStore(d.Store, log)
	monitor := netstatus.NewMonitor(d.Prober, cfg.Sync.ProbeInterval, log)
	queue := offline.NewQueue(d.Store, nil, monitor, log)
	gw := api.NewGateway(api.Options{
		Root:           cfg.API.URL(),
		PathPrefix:     cfg.API.PathPrefix,
		HTTPClient:     hc,
		Credentials:    creds,
		Connectivity:   monitor,
		Queue:          queue,
		OnUnauthorized: d.OnUnauthorized,
		Log:            log,
	})
	queue.SetReplayer(gw)

	client := api.NewClient(gw)
	c := cache.New(cfg.Cache.SizeMB, log)

	a := &App{
		Config:    cfg,
		Creds:     creds,
		Monitor:   monitor,
		Queue:     queue,
		Gateway:   gw,
		Client:    client,
		Cache:     c,
		Syncer:    &offline.Syncer{Queue: queue, Cache: c, Log: log},
		Nutrition: nutrition.NewTracker(client, c, log),
		Progress:  progress.NewTracker(client, c, log),
		log:       log,
	}
	a.register()
	return a
}

func (a *App) register() {
	a.Cache.Register(TodayKey, time.Minute, func(ctx context.Context) (any, error) { return a.Client.Today(ctx) })
	a.Cache.Register(ProfileKey, 5*time.Minute, func(ctx context.Context) (any, error) { return a.Client.Profile(ctx) })
	a.Cache.Register(TrainingTodayKey, 5*time.Minute, func(ctx context.Context) (any, error) { return a.Client.TrainingToday(ctx) })
	a.Cache.Register(TrainingWeekKey, 5*time.Minute, func(ctx context.Context) (any, error) { return a.Client.TrainingWeek(ctx) })
	a.Cache.Register(NutritionWeekKey, 5*time.Minute, func(ctx context.Context) (any, error) { return a.Client.NutritionWeek(ctx) })
}

// Run probes connectivity and replays the queue each time it comes back,
// until ctx is cancelled. Mutations left by an earlier offline run are
// replayed at once when the API is already reachable.
func (a *App) Run(ctx context.Context) {
	unsubscribe := a.Monitor.Subscribe(a.Syncer.OnReconnect(ctx))
	defer unsubscribe()
	if a.Monitor.Online() && a.Queue.PendingCount() > 0 {
		stats := a.Syncer.Sync(ctx)
		a.log.Info("replayed mutations queued earlier", "replayed", stats.Replayed, "retained", stats.Retained)
	}
	a.Monitor.Run(ctx)
}

// Login exchanges a one-time login token for a stored credential.
func (a *App) Login(ctx context.Context, loginToken string) (*models.AuthResponse, error) {
	res, err := a.Client.ExchangeToken(ctx, loginToken)
	if err != nil {
		return nil, err
	}
	if err := a.Creds.Set(res.JWT); err != nil {
		return nil, fmt.Errorf("storing credential: %w", err)
	}
	a.log.Info("logged in", "name", res.Profile.FirstName, "expires_at", res.ExpiresAt)
	return res, nil
}

func (a *App) Today(ctx context.Context) (*models.TodayData, error) {
	var out models.TodayData
	if err := a.Cache.Get(ctx, TodayKey, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *App) Profile(ctx context.Context) (*models.Profile, error) {
	var out models.Profile
	if err := a.Cache.Get(ctx, ProfileKey, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *App) TrainingToday(ctx context.Context) (*models.TrainingTodayData, error) {
	var out models.TrainingTodayData
	if err := a.Cache.Get(ctx, TrainingTodayKey, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *App) TrainingWeek(ctx context.Context) (*models.TrainingWeekData, error) {
	var out models.TrainingWeekData
	if err := a.Cache.Get(ctx, TrainingWeekKey, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *App) NutritionWeek(ctx context.Context) (*models.NutritionWeekData, error) {
	var out models.NutritionWeekData
	if err := a.Cache.Get(ctx, NutritionWeekKey, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartCheckin opens today's check-in and refreshes the dashboard.
func (a *App) StartCheckin(ctx context.Context, date string) (*api.Result, error) {
	res, err := a.Client.StartCheckin(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("starting check-in: %w", err)
	}
	if err := a.Cache.Invalidate(ctx, TodayKey); err != nil {
		a.log.Warn("refreshing dashboard after check-in", "error", err)
	}
	return res, nil
}

// NewSession creates a workout session bound to this stack.
func (a *App) NewSession(opts workout.Options) *workout.Session {
	if opts.Cache == nil {
		opts.Cache = a.Cache
	}
	if opts.CompleteDelay == 0 {
		opts.CompleteDelay = a.Config.Workout.CompleteDelay
	}
	if opts.Log == nil {
		opts.Log = a.log
	}
	return workout.NewSession(a.Client, opts)
}

// Package devserver is an in-memory coaching API for local development and
// end-to-end tests. It serves every client endpoint against a seeded plan.
package devserver

import (
	"crypto/rand"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/claude/coachtrack/internal/auth"
	"github.com/claude/coachtrack/internal/models"
)

// PathPrefix is where the client API is mounted.
const PathPrefix = "/api/client"

// TokenLifetime is how long issued credentials stay valid.
const TokenLifetime = 30 * 24 * time.Hour

// Server holds the in-memory state behind the HTTP handlers.
type Server struct {
	log    *slog.Logger
	now    func() time.Time
	router chi.Router
	key    []byte

	mu           sync.Mutex
	profile      models.Profile
	workoutName  string
	dayPlanID    string
	plan         []models.PlannedExercise
	week         models.TrainingWeekData
	nutrition    models.NutritionTodayData
	foods        []models.FoodSearchResult
	meals        map[string]map[int]models.MealLogPayload
	workouts     []models.WorkoutLogPayload
	weight       models.WeightData
	measurements []models.BodyMeasurement
	photos       []models.ProgressPhoto
	checkins     map[string]bool
	logins       map[string]string
	revoked      map[string]bool
	faults       map[string][]int
}

// New creates a Server seeded with a sample program.
func New(log *slog.Logger) *Server {
	s := &Server{
		log:      log,
		now:      time.Now,
		router:   chi.NewRouter(),
		key:      make([]byte, 32),
		meals:    make(map[string]map[int]models.MealLogPayload),
		checkins: make(map[string]bool),
		logins:   make(map[string]string),
		revoked:  make(map[string]bool),
		faults:   make(map[string][]int),
	}
	rand.Read(s.key)
	s.seed()
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(LogRequests(s.log))
	s.router.Use(CORS)

	s.router.Head("/healthz", s.handleHealth)
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route(PathPrefix, func(r chi.Router) {
		r.Use(s.injectFaults)
		r.Post("/auth", s.handleAuth)

		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(s.validToken))

			r.Get("/today", s.handleToday)
			r.Get("/profile", s.handleProfile)
			r.Get("/training/today", s.handleTrainingToday)
			r.Get("/training/week", s.handleTrainingWeek)
			r.Get("/nutrition/today", s.handleNutritionToday)
			r.Get("/nutrition/week", s.handleNutritionWeek)
			r.Get("/nutrition/foods/search", s.handleFoodSearch)
			r.Get("/nutrition/meal-logs/today", s.handleMealLogsToday)
			r.Get("/measurements", s.handleMeasurements)
			r.Get("/weight", s.handleWeight)
			r.Get("/photos", s.handlePhotos)
			r.Get("/compliance", s.handleCompliance)
			r.Get("/weekly-summaries", s.handleWeeklySummaries)
			r.Get("/analytics/top-exercises", s.handleTopExercises)
			r.Get("/analytics/strength", s.handleStrength)
			r.Get("/analytics/volume", s.handleVolume)
			r.Get("/exercise/history", s.handleExerciseHistory)

			r.Post("/workout/start", s.handleWorkoutStart)
			r.Post("/workout/log", s.handleWorkoutLog)
			r.Post("/nutrition/meal-log", s.handleMealLog)
			r.Delete("/nutrition/meal-log", s.handleMealDelete)
			r.Post("/weight", s.handleWeightLog)
			r.Post("/measurements", s.handleMeasurementLog)
			r.Post("/photos", s.handlePhotoUpload)
			r.Post("/checkin/start", s.handleCheckinStart)
		})
	})
}

// IssueLoginLink creates a one-time login token for subject.
func (s *Server) IssueLoginLink(subject string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := uuid.NewString()
	s.logins[token] = subject
	return token
}

// Credential mints a valid bearer token without a login round trip.
func (s *Server) Credential(subject string) string {
	return s.Mint(subject, s.now().Add(TokenLifetime))
}

// Mint signs a bearer token for subject with this server's key.
func (s *Server) Mint(subject string, expiresAt time.Time) string {
	token, err := auth.Mint(subject, expiresAt, s.key)
	if err != nil {
		s.log.Error("minting credential", "subject", subject, "error", err)
	}
	return token
}

// Revoke makes the server reject token with 401.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[token] = true
}

// FailNext makes the next calls to method and endpoint (relative to the
// prefix) answer with the given statuses, one per call.
func (s *Server) FailNext(method, endpoint string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + PathPrefix + endpoint
	s.faults[key] = append(s.faults[key], statuses...)
}

// Profile returns the profile as GET /profile reports it.
func (s *Server) Profile() models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentProfile()
}

// Workouts returns the workout logs received so far.
func (s *Server) Workouts() []models.WorkoutLogPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.WorkoutLogPayload(nil), s.workouts...)
}

func (s *Server) validToken(token string) bool {
	if _, err := auth.Verify(token, s.key, s.now); err != nil {
		s.log.Debug("rejecting credential", "error", err)
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.revoked[token]
}

func (s *Server) today() string {
	return s.now().Format(time.DateOnly)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

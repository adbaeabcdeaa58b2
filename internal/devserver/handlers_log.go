package devserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/claude/coachtrack/internal/models"
)

const maxPhotoBytes = 10 << 20

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid JSON: " + err.Error())
	}
	return nil
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	subject, ok := s.logins[body.Token]
	delete(s.logins, body.Token)
	first := *s.profile.FirstName
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid or used login link")
		return
	}

	expires := s.now().Add(TokenLifetime)
	var out models.AuthResponse
	out.JWT = s.Credential(subject)
	out.ExpiresAt = expires.UTC().Format(time.RFC3339)
	out.Profile.FirstName = first
	s.log.Info("login link exchanged", "subject", subject)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleWorkoutStart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	writeJSON(w, http.StatusOK, models.WorkoutSessionData{
		Available:   true,
		WorkoutName: s.workoutName,
		DayPlanID:   s.dayPlanID,
		Exercises:   s.plan,
		LastSession: s.lastSession(),
	})
}

// lastSession is the latest logged workout for today's day plan.
func (s *Server) lastSession() *models.LastSession {
	for i := len(s.workouts) - 1; i >= 0; i-- {
		wl := s.workouts[i]
		if wl.DayPlanID != s.dayPlanID {
			continue
		}
		last := &models.LastSession{Available: true, Date: wl.Date, DayPlanID: wl.DayPlanID}
		for _, ex := range wl.Exercises {
			name := ""
			for _, pe := range s.plan {
				if pe.ID == ex.PlannedExerciseID {
					name = pe.Name
				}
			}
			last.Exercises = append(last.Exercises, models.LastSessionExercise{
				ExerciseID:        ex.ExerciseID,
				PlannedExerciseID: ex.PlannedExerciseID,
				Name:              name,
				Sets:              ex.Sets,
			})
		}
		return last
	}
	return &models.LastSession{Available: false}
}

func (s *Server) handleWorkoutLog(w http.ResponseWriter, r *http.Request) {
	var p models.WorkoutLogPayload
	if err := decode(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if p.DayPlanID == "" || p.Date == "" {
		writeError(w, http.StatusBadRequest, "day_plan_id and date are required")
		return
	}

	s.mu.Lock()
	s.workouts = append(s.workouts, p)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"id": uuid.NewString(), "exercises": len(p.Exercises)})
}

func (s *Server) handleMealLog(w http.ResponseWriter, r *http.Request) {
	var p models.MealLogPayload
	if err := decode(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !models.ValidMealStatus(p.Status) || p.Date == "" || p.MealNumber <= 0 {
		writeError(w, http.StatusBadRequest, "date, meal_number and a valid status are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	day := s.meals[p.Date]
	if day == nil {
		day = make(map[int]models.MealLogPayload)
		s.meals[p.Date] = day
	}
	if _, exists := day[p.MealNumber]; exists {
		writeError(w, http.StatusConflict, "duplicate key value violates unique constraint")
		return
	}
	day[p.MealNumber] = p
	writeJSON(w, http.StatusCreated, map[string]string{"id": mealID(p.Date, p.MealNumber)})
}

func (s *Server) handleMealDelete(w http.ResponseWriter, r *http.Request) {
	var p models.MealLogPayload
	if err := decode(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.meals[p.Date][p.MealNumber]; !exists {
		writeError(w, http.StatusNotFound, "meal log not found")
		return
	}
	delete(s.meals[p.Date], p.MealNumber)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWeightLog(w http.ResponseWriter, r *http.Request) {
	var p models.WeightLogPayload
	if err := decode(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if p.Weight <= 0 || p.Date == "" {
		writeError(w, http.StatusBadRequest, "date and a positive weight are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.weight.Entries[:0:0]
	for _, e := range s.weight.Entries {
		if e.Date != p.Date {
			entries = append(entries, e)
		}
	}
	s.weight.Entries = append(entries, models.WeightEntry{Date: p.Date, Weight: p.Weight})
	s.recomputeWeight()
	writeJSON(w, http.StatusCreated, map[string]any{"date": p.Date, "weight": p.Weight})
}

// recomputeWeight refreshes the derived weight fields. Caller holds s.mu.
func (s *Server) recomputeWeight() {
	entries := s.weight.Entries
	if len(entries) == 0 {
		return
	}
	current := entries[len(entries)-1].Weight
	s.weight.CurrentWeight = &current
	if s.weight.StartWeight != nil {
		change := current - *s.weight.StartWeight
		s.weight.TotalChange = &change
	}

	s.weight.RollingAverage = s.weight.RollingAverage[:0]
	for i := range entries {
		lo := max(0, i-6)
		sum := 0.0
		for _, e := range entries[lo : i+1] {
			sum += e.Weight
		}
		s.weight.RollingAverage = append(s.weight.RollingAverage, models.RollingAverage{
			Date: entries[i].Date,
			Avg:  sum / float64(i+1-lo),
		})
		if i >= 1 {
			delta := entries[i].Weight - entries[i-1].Weight
			entries[i].WeeklyChange = &delta
		}
	}
}

func (s *Server) handleMeasurementLog(w http.ResponseWriter, r *http.Request) {
	var p models.MeasurementPayload
	if err := decode(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if p.Date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	m := models.BodyMeasurement{
		ID: uuid.NewString(), Date: p.Date,
		Chest: p.Chest, Waist: p.Waist, Hips: p.Hips,
		LeftArm: p.LeftArm, RightArm: p.RightArm,
		LeftThigh: p.LeftThigh, RightThigh: p.RightThigh,
		LeftCalf: p.LeftCalf, RightCalf: p.RightCalf,
		Neck: p.Neck, Shoulders: p.Shoulders,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}
	s.mu.Lock()
	s.measurements = append(s.measurements, m)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handlePhotoUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes+1<<20)
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body: "+err.Error())
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "photo file required")
		return
	}
	file.Close()
	if header.Size > maxPhotoBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "photo exceeds 10MB")
		return
	}

	photoType := r.FormValue("photo_type")
	if photoType == "" {
		photoType = "front"
	}
	now := s.now().UTC().Format(time.RFC3339)
	source := "client"

	s.mu.Lock()
	photo := models.ProgressPhoto{
		ID:          uuid.NewString(),
		ContactID:   "contact-1",
		OriginalURL: "/photos/" + uuid.NewString() + filepath.Ext(header.Filename),
		PhotoType:   photoType,
		ProgramWeek: s.profile.ProgramWeek,
		TakenAt:     &now,
		Source:      &source,
		CreatedAt:   &now,
	}
	s.photos = append(s.photos, photo)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, photo)
}

func (s *Server) handleCheckinStart(w http.ResponseWriter, r *http.Request) {
	var body models.CheckinStart
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Date == "" {
		body.Date = s.today()
	}
	s.mu.Lock()
	s.checkins[body.Date] = true
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]string{"date": body.Date, "status": models.StatusCompleted})
}

package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/ecohabit-ai/ecohabit-backend/internal/models"
	"github.com/ecohabit-ai/ecohabit-backend/internal/services"
	"github.com/google/uuid"
)

type ProfileResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Profile *models.Profile `json:"profile,omitempty"`
}

func writeProfile(w http.ResponseWriter, status int, resp ProfileResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// requireCoordinator resolves the request's session and returns its sync
// coordinator, hydrating it on first touch. nil means unauthenticated.
func requireCoordinator(w http.ResponseWriter, r *http.Request) *services.Coordinator {
	sess := resolveSession(r)
	if sess.IsZero() {
		writeProfile(w, http.StatusUnauthorized, ProfileResponse{Message: "Authentication required"})
		return nil
	}
	return engine.Attach(r.Context(), sess)
}

// GetProfile returns the current in-memory profile snapshot.
func GetProfile(w http.ResponseWriter, r *http.Request) {
	c := requireCoordinator(w, r)
	if c == nil {
		return
	}
	snap := c.Snapshot()
	writeProfile(w, http.StatusOK, ProfileResponse{Success: true, Profile: &snap})
}

type ImpactRequest struct {
	Percent float64 `json:"percent"`
}

// ApplyImpact moves the impact score by a bounded delta. Used directly by
// lightweight interactions (e.g. breathing exercises award +2).
func ApplyImpact(w http.ResponseWriter, r *http.Request) {
	c := requireCoordinator(w, r)
	if c == nil {
		return
	}

	var req ImpactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProfile(w, http.StatusBadRequest, ProfileResponse{Message: "Invalid request body"})
		return
	}
	if math.IsNaN(req.Percent) || math.IsInf(req.Percent, 0) || req.Percent < -100 || req.Percent > 100 {
		writeProfile(w, http.StatusBadRequest, ProfileResponse{Message: "percent must be within [-100, 100]"})
		return
	}

	now := time.Now().UnixMilli()
	snap := c.Mutate(func(p models.Profile) models.Profile {
		return services.ApplyImpactDelta(p, req.Percent, now)
	})
	writeProfile(w, http.StatusOK, ProfileResponse{Success: true, Profile: &snap})
}

type MoodRequest struct {
	Mood string `json:"mood"`
}

// RecordMood logs a mood check-in.
func RecordMood(w http.ResponseWriter, r *http.Request) {
	c := requireCoordinator(w, r)
	if c == nil {
		return
	}

	var req MoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Mood == "" {
		writeProfile(w, http.StatusBadRequest, ProfileResponse{Message: "mood is required"})
		return
	}

	now := time.Now().UnixMilli()
	entry := models.MoodLog{ID: uuid.NewString(), Mood: req.Mood, Timestamp: now}
	snap := c.Mutate(func(p models.Profile) models.Profile {
		return services.RecordMood(p, entry, now)
	})
	writeProfile(w, http.StatusOK, ProfileResponse{Success: true, Profile: &snap})
}

// RecordTopic stores an explored topic. Duplicate topics (case-insensitive)
// leave the history untouched but still count as an action.
func RecordTopic(w http.ResponseWriter, r *http.Request) {
	c := requireCoordinator(w, r)
	if c == nil {
		return
	}

	var topic models.TopicStructure
	if err := json.NewDecoder(r.Body).Decode(&topic); err != nil || topic.Topic == "" {
		writeProfile(w, http.StatusBadRequest, ProfileResponse{Message: "topic is required"})
		return
	}

	now := time.Now().UnixMilli()
	snap := c.Mutate(func(p models.Profile) models.Profile {
		p = services.RecordTopic(p, topic)
		return services.ApplyImpactDelta(p, services.TopicImpactGain, now)
	})
	writeProfile(w, http.StatusOK, ProfileResponse{Success: true, Profile: &snap})
}

type EcoShiftRequest struct {
	Activity    string `json:"activity"`
	Shift       string `json:"shift"`
	PersonalWin string `json:"personalWin"`
	EcoWin      string `json:"ecoWin"`
}

// RecordEcoShift logs a completed habit swap.
func RecordEcoShift(w http.ResponseWriter, r *http.Request) {
	c := requireCoordinator(w, r)
	if c == nil {
		return
	}

	var req EcoShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Activity == "" {
		writeProfile(w, http.StatusBadRequest, ProfileResponse{Message: "activity is required"})
		return
	}

	now := time.Now().UnixMilli()
	shift := models.EcoShift{
		ID:          uuid.NewString(),
		Activity:    req.Activity,
		Shift:       req.Shift,
		PersonalWin: req.PersonalWin,
		EcoWin:      req.EcoWin,
		Timestamp:   now,
	}
	snap := c.Mutate(func(p models.Profile) models.Profile {
		return services.RecordEcoShift(p, shift, now)
	})
	writeProfile(w, http.StatusOK, ProfileResponse{Success: true, Profile: &snap})
}

type QuizResultRequest struct {
	Topic string `json:"topic"`
	Score int    `json:"score"`
	Total int    `json:"total"`
}

// RecordQuizResult logs a completed quiz.
func RecordQuizResult(w http.ResponseWriter, r *http.Request) {
	c := requireCoordinator(w, r)
	if c == nil {
		return
	}

	var req QuizResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Topic == "" {
		writeProfile(w, http.StatusBadRequest, ProfileResponse{Message: "topic is required"})
		return
	}
	if req.Total <= 0 || req.Score < 0 || req.Score > req.Total {
		writeProfile(w, http.StatusBadRequest, ProfileResponse{Message: "score must be within [0, total]"})
		return
	}

	result := models.QuizResult{
		Topic:     req.Topic,
		Score:     req.Score,
		Total:     req.Total,
		Timestamp: time.Now().UnixMilli(),
	}
	snap := c.Mutate(func(p models.Profile) models.Profile {
		return services.RecordQuizResult(p, result)
	})
	writeProfile(w, http.StatusOK, ProfileResponse{Success: true, Profile: &snap})
}

// FlushProfile writes any pending state immediately. Frontends call it on
// tab close instead of waiting out the debounce window.
func FlushProfile(w http.ResponseWriter, r *http.Request) {
	c := requireCoordinator(w, r)
	if c == nil {
		return
	}
	c.Flush()
	snap := c.Snapshot()
	writeProfile(w, http.StatusOK, ProfileResponse{Success: true, Profile: &snap})
}

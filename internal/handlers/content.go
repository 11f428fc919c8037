package handlers

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/ecohabit-ai/ecohabit-backend/internal/models"
	"github.com/ecohabit-ai/ecohabit-backend/internal/services"
)

type ContentResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeContent(w http.ResponseWriter, status int, resp ContentResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// requireGenerator gates all content routes on a configured Gemini key and a
// valid session.
func requireGenerator(w http.ResponseWriter, r *http.Request) bool {
	if resolveSession(r).IsZero() {
		writeContent(w, http.StatusUnauthorized, ContentResponse{Message: "Authentication required"})
		return false
	}
	if gemini == nil {
		writeContent(w, http.StatusServiceUnavailable, ContentResponse{Message: "Content generation not configured"})
		return false
	}
	return true
}

type SupportRequest struct {
	Mood string `json:"mood"`
}

// SupportContent returns a supportive text plus serene visual for a mood.
// Not cached: the validation is personal to the moment.
func SupportContent(w http.ResponseWriter, r *http.Request) {
	if !requireGenerator(w, r) {
		return
	}

	var req SupportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Mood == "" {
		writeContent(w, http.StatusBadRequest, ContentResponse{Message: "mood is required"})
		return
	}

	content, err := gemini.SupportiveContent(r.Context(), req.Mood)
	if err != nil {
		log.Printf("support content generation failed: %v", err)
		writeContent(w, http.StatusBadGateway, ContentResponse{Message: "Content generation failed. Please try again."})
		return
	}

	writeContent(w, http.StatusOK, ContentResponse{Success: true, Data: content})
}

type TopicRequest struct {
	Topic string `json:"topic"`
}

// TopicContent generates (or serves from cache) a knowledge report.
func TopicContent(w http.ResponseWriter, r *http.Request) {
	if !requireGenerator(w, r) {
		return
	}

	var req TopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Topic == "" {
		writeContent(w, http.StatusBadRequest, ContentResponse{Message: "topic is required"})
		return
	}

	cacheKey := services.CacheKey("topic", strings.ToLower(req.Topic))
	var cached models.TopicStructure
	if hit, _ := services.Cache.Get(cacheKey, &cached); hit {
		writeContent(w, http.StatusOK, ContentResponse{Success: true, Data: &cached})
		return
	}

	structure, err := gemini.TopicStructure(r.Context(), req.Topic)
	if err != nil {
		log.Printf("topic generation failed: %v", err)
		writeContent(w, http.StatusBadGateway, ContentResponse{Message: "Content generation failed. Please try again."})
		return
	}

	if err := services.Cache.Set(cacheKey, structure); err != nil {
		log.Printf("failed to cache topic %q: %v", req.Topic, err)
	}

	writeContent(w, http.StatusOK, ContentResponse{Success: true, Data: structure})
}

type SubtopicRequest struct {
	Topic    string `json:"topic"`
	Subtopic string `json:"subtopic"`
}

// SubtopicContent expands one subtopic as plain text.
func SubtopicContent(w http.ResponseWriter, r *http.Request) {
	if !requireGenerator(w, r) {
		return
	}

	var req SubtopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Topic == "" || req.Subtopic == "" {
		writeContent(w, http.StatusBadRequest, ContentResponse{Message: "topic and subtopic are required"})
		return
	}

	cacheKey := services.CacheKey("subtopic", strings.ToLower(req.Topic+"/"+req.Subtopic))
	var cached string
	if hit, _ := services.Cache.Get(cacheKey, &cached); hit {
		writeContent(w, http.StatusOK, ContentResponse{Success: true, Data: cached})
		return
	}

	text, err := gemini.SubtopicExplanation(r.Context(), req.Topic, req.Subtopic)
	if err != nil {
		log.Printf("subtopic generation failed: %v", err)
		writeContent(w, http.StatusBadGateway, ContentResponse{Message: "Content generation failed. Please try again."})
		return
	}

	if err := services.Cache.Set(cacheKey, text); err != nil {
		log.Printf("failed to cache subtopic: %v", err)
	}

	writeContent(w, http.StatusOK, ContentResponse{Success: true, Data: text})
}

type GuideRequest struct {
	Activity string `json:"activity"`
}

// ActivityGuideContent generates a stepped protocol with visuals. Not
// cached: generated step images dominate the payload and go stale anyway.
func ActivityGuideContent(w http.ResponseWriter, r *http.Request) {
	if !requireGenerator(w, r) {
		return
	}

	var req GuideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Activity == "" {
		writeContent(w, http.StatusBadRequest, ContentResponse{Message: "activity is required"})
		return
	}

	guide, err := gemini.ActivityGuide(r.Context(), req.Activity)
	if err != nil {
		log.Printf("activity guide generation failed: %v", err)
		writeContent(w, http.StatusBadGateway, ContentResponse{Message: "Content generation failed. Please try again."})
		return
	}

	writeContent(w, http.StatusOK, ContentResponse{Success: true, Data: guide})
}

// QuizContent generates (or serves from cache) a quiz for a topic.
func QuizContent(w http.ResponseWriter, r *http.Request) {
	if !requireGenerator(w, r) {
		return
	}

	var req TopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Topic == "" {
		writeContent(w, http.StatusBadRequest, ContentResponse{Message: "topic is required"})
		return
	}

	cacheKey := services.CacheKey("quiz", strings.ToLower(req.Topic))
	var cached []models.QuizQuestion
	if hit, _ := services.Cache.Get(cacheKey, &cached); hit {
		writeContent(w, http.StatusOK, ContentResponse{Success: true, Data: cached})
		return
	}

	questions, err := gemini.QuizQuestions(r.Context(), req.Topic)
	if err != nil {
		log.Printf("quiz generation failed: %v", err)
		writeContent(w, http.StatusBadGateway, ContentResponse{Message: "Content generation failed. Please try again."})
		return
	}

	if err := services.Cache.Set(cacheKey, questions); err != nil {
		log.Printf("failed to cache quiz %q: %v", req.Topic, err)
	}

	writeContent(w, http.StatusOK, ContentResponse{Success: true, Data: questions})
}

type SpeakRequest struct {
	Text string `json:"text"`
}

type SpeakResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	Audio      string `json:"audio,omitempty"` // base64 PCM, 24 kHz mono
	SampleRate int    `json:"sampleRate,omitempty"`
}

// SpeakContent synthesizes speech for a phrase.
func SpeakContent(w http.ResponseWriter, r *http.Request) {
	if !requireGenerator(w, r) {
		return
	}

	var req SpeakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeContent(w, http.StatusBadRequest, ContentResponse{Message: "text is required"})
		return
	}

	audio, err := gemini.SpeakPhrase(r.Context(), req.Text)
	if err != nil {
		log.Printf("speech synthesis failed: %v", err)
		writeContent(w, http.StatusBadGateway, ContentResponse{Message: "Speech synthesis failed. Please try again."})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SpeakResponse{
		Success:    true,
		Audio:      base64.StdEncoding.EncodeToString(audio),
		SampleRate: 24000,
	})
}

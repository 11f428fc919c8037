package routes

import (
	"github.com/ecohabit-ai/ecohabit-backend/internal/handlers"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes(r *chi.Mux) {
	// Auth routes
	r.Post("/api/auth/signup", handlers.Signup)
	r.Post("/api/auth/signin", handlers.Signin)
	r.Post("/api/auth/signout", handlers.Signout)
	r.Get("/api/auth/me", handlers.Me)

	// Profile routes (sync core surface)
	r.Get("/api/profile", handlers.GetProfile)
	r.Post("/api/profile/impact", handlers.ApplyImpact)
	r.Post("/api/profile/mood", handlers.RecordMood)
	r.Post("/api/profile/topics", handlers.RecordTopic)
	r.Post("/api/profile/eco", handlers.RecordEcoShift)
	r.Post("/api/profile/quiz", handlers.RecordQuizResult)
	r.Post("/api/profile/flush", handlers.FlushProfile)

	// Generative content routes
	r.Post("/api/content/support", handlers.SupportContent)
	r.Post("/api/content/topic", handlers.TopicContent)
	r.Post("/api/content/subtopic", handlers.SubtopicContent)
	r.Post("/api/content/guide", handlers.ActivityGuideContent)
	r.Post("/api/content/quiz", handlers.QuizContent)
	r.Post("/api/content/speak", handlers.SpeakContent)

	// WebSocket endpoint streaming committed profile snapshots
	r.Get("/ws/profile", handlers.ProfileWebSocket)
}

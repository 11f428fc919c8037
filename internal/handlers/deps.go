package handlers

import (
	"github.com/ecohabit-ai/ecohabit-backend/internal/services"
)

// Package-level collaborators, wired once from main.
var (
	resolver      *services.Resolver
	engine        *services.Engine
	gemini        *services.GeminiService // nil when GEMINI_API_KEY is unset
	authEnabled   bool
	guestFallback bool
)

// InitServices wires the handler package. gemini may be nil; content routes
// then answer 503.
func InitServices(r *services.Resolver, e *services.Engine, g *services.GeminiService, withAuth bool) {
	resolver = r
	engine = e
	gemini = g
	authEnabled = withAuth
	guestFallback = !withAuth
}

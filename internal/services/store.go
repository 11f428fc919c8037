package services

import (
	"sync"

	"github.com/ecohabit-ai/ecohabit-backend/internal/models"
)

// Store is the in-memory profile for one active session: the single source
// of truth the API serves from. Mutations are whole-profile transforms
// applied under the lock, so readers never observe a half-applied change.
type Store struct {
	mu      sync.Mutex
	profile models.Profile
}

func NewStore(p models.Profile) *Store {
	return &Store{profile: p}
}

// Snapshot returns a copy of the current profile.
func (s *Store) Snapshot() models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Apply runs mut atomically against the current profile and returns the
// resulting snapshot. mut must be a pure Profile -> Profile function.
func (s *Store) Apply(mut func(models.Profile) models.Profile) models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = mut(s.profile)
	return s.profile
}

// Replace swaps in an entirely new profile (session hydration). Hydration is
// always full replacement, never a field-by-field merge with stale local
// state.
func (s *Store) Replace(p models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = p
}

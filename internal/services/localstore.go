package services

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ecohabit-ai/ecohabit-backend/internal/models"
)

// LocalStoreFile is the fixed namespace for locally stored profiles, the
// on-disk equivalent of the frontend's "ecohabit_db_users" localStorage key.
const LocalStoreFile = "ecohabit_users.json"

// LocalStore is the device-storage fallback: one JSON blob mapping session
// IDs to profiles. It backs guest sessions and every session when no remote
// row store is configured. Corrupt data on read is treated as no data.
type LocalStore struct {
	mu   sync.Mutex
	path string
}

func NewLocalStore(dataDir string) (*LocalStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{path: filepath.Join(dataDir, LocalStoreFile)}, nil
}

// Load returns the stored profile for id, or the default profile when the
// file is missing, unreadable, or malformed.
func (ls *LocalStore) Load(id string) models.Profile {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	users := ls.readAll()
	if p, ok := users[id]; ok {
		return p
	}
	return models.DefaultProfile(time.Now().UnixMilli())
}

// Save upserts the profile for id.
func (ls *LocalStore) Save(id string, p models.Profile) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	users := ls.readAll()
	users[id] = p

	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return err
	}

	// Write-then-rename so a crash mid-write never corrupts the blob.
	tmp := ls.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, ls.path)
}

func (ls *LocalStore) readAll() map[string]models.Profile {
	users := make(map[string]models.Profile)
	data, err := os.ReadFile(ls.path)
	if err != nil {
		return users
	}
	if err := json.Unmarshal(data, &users); err != nil {
		log.Printf("local profile store is corrupt, starting fresh: %v", err)
		return make(map[string]models.Profile)
	}
	return users
}

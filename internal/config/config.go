package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	MongoURI       string // Optional: empty means profiles live in the local file store
	PostgresURI    string // Optional: empty means no account auth, guest sessions only
	RedisURI       string
	Port           string
	FrontendURL    string
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)
	Environment    string   // ENV: production, development, etc.

	GeminiAPIKey        string
	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	DataDir      string        // Directory for the local profile store fallback
	SyncWindow   time.Duration // Debounce window for profile write-back
	GuestMode    bool          // Force guest sessions even when auth is configured
}

// DefaultSyncWindow matches the frontend's original debounced-save delay.
const DefaultSyncWindow = 2 * time.Second

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{getEnv("FRONTEND_URL", "http://localhost:3000"), getEnv("FRONTEND_URL_2", "")} {
			u = strings.TrimSpace(u)
			if u != "" {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	syncWindow := DefaultSyncWindow
	if ms, err := strconv.Atoi(getEnv("SYNC_WINDOW_MS", "")); err == nil && ms > 0 {
		syncWindow = time.Duration(ms) * time.Millisecond
	}

	guestMode := getEnv("GUEST_MODE", "") == "1"

	return &Config{
		MongoURI:            getEnv("MONGODB_URI", getEnv("MONGO_URI", "")),
		PostgresURI:         getEnv("POSTGRES_URI", ""),
		RedisURI:            getEnv("REDIS_URI", "redis://localhost:6379/0"),
		Port:                getEnv("PORT", "8080"),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:3000"),
		AllowedOrigins:      allowedOrigins,
		Environment:         env,
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", getEnv("API_KEY", "")),
		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		DataDir:             getEnv("DATA_DIR", "./data"),
		SyncWindow:          syncWindow,
		GuestMode:           guestMode,
	}
}

// RemoteStoreConfigured reports whether profiles should be persisted to MongoDB.
func (c *Config) RemoteStoreConfigured() bool {
	return c.MongoURI != ""
}

// AuthConfigured reports whether real account auth is available.
func (c *Config) AuthConfigured() bool {
	return c.PostgresURI != "" && !c.GuestMode
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ecohabit-ai/ecohabit-backend/internal/database"
	"github.com/ecohabit-ai/ecohabit-backend/internal/services"
	"github.com/ecohabit-ai/ecohabit-backend/pkg/utils"
	"github.com/google/uuid"
)

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries a single human-readable message for every auth
// outcome; background persistence errors never surface here.
type AuthResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	User    map[string]interface{} `json:"user,omitempty"`
	Token   string                 `json:"token,omitempty"`
}

func writeAuth(w http.ResponseWriter, status int, resp AuthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// extractBearerToken pulls the token out of an "Authorization: Bearer x" header.
func extractBearerToken(header string) string {
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

// requestToken returns the session token from the bearer header, falling
// back to the query parameter for browser WebSocket clients.
func requestToken(r *http.Request) string {
	if token := extractBearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	return r.URL.Query().Get("token")
}

// resolveSession maps a request to a session: validated token ->
// authenticated; no token in guest fallback -> the fixed guest identity;
// otherwise none.
func resolveSession(r *http.Request) services.Session {
	if token := requestToken(r); token != "" {
		if userID, ok, _ := services.ValidateSession(token); ok {
			return services.Session{Kind: services.SessionAuthenticated, ID: userID.String()}
		}
	}
	if guestFallback {
		return services.GuestSession
	}
	return services.Session{}
}

// Signup handles account registration and establishes a session.
func Signup(w http.ResponseWriter, r *http.Request) {
	if !authEnabled {
		writeAuth(w, http.StatusServiceUnavailable, AuthResponse{Message: "Account service not configured; running in guest mode"})
		return
	}

	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAuth(w, http.StatusBadRequest, AuthResponse{Message: "Invalid request body"})
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		writeAuth(w, http.StatusBadRequest, AuthResponse{Message: "Email and password are required"})
		return
	}

	var existingEmail string
	err := database.PostgresDB.QueryRow("SELECT email FROM users WHERE LOWER(email) = $1", email).Scan(&existingEmail)
	if err == nil {
		writeAuth(w, http.StatusConflict, AuthResponse{Message: "Email already registered!"})
		return
	} else if err != sql.ErrNoRows {
		writeAuth(w, http.StatusInternalServerError, AuthResponse{Message: "Database error"})
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		writeAuth(w, http.StatusInternalServerError, AuthResponse{Message: "Failed to hash password"})
		return
	}

	userID := uuid.New()
	now := time.Now()

	_, err = database.PostgresDB.Exec(`
		INSERT INTO users (id, email, password_hash, created_at, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
	`, userID, email, hashedPassword, now)
	if err != nil {
		writeAuth(w, http.StatusInternalServerError, AuthResponse{Message: "Failed to create account"})
		return
	}

	finishSignin(w, r, userID, email, http.StatusCreated, "Account created successfully")
}

// Signin handles login.
func Signin(w http.ResponseWriter, r *http.Request) {
	if !authEnabled {
		writeAuth(w, http.StatusServiceUnavailable, AuthResponse{Message: "Account service not configured; running in guest mode"})
		return
	}

	var req SigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAuth(w, http.StatusBadRequest, AuthResponse{Message: "Invalid request body"})
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		writeAuth(w, http.StatusBadRequest, AuthResponse{Message: "Email and password are required"})
		return
	}

	var userID uuid.UUID
	var passwordHash string
	err := database.PostgresDB.QueryRow(`
		SELECT id, password_hash FROM users WHERE LOWER(email) = $1 AND is_active = TRUE
	`, email).Scan(&userID, &passwordHash)
	if err != nil {
		if err == sql.ErrNoRows {
			writeAuth(w, http.StatusUnauthorized, AuthResponse{Message: "Invalid email or password"})
		} else {
			writeAuth(w, http.StatusInternalServerError, AuthResponse{Message: "Database error"})
		}
		return
	}

	valid, err := utils.VerifyPassword(req.Password, passwordHash)
	if err != nil || !valid {
		writeAuth(w, http.StatusUnauthorized, AuthResponse{Message: "Invalid email or password"})
		return
	}

	finishSignin(w, r, userID, email, http.StatusOK, "Login successful")
}

// finishSignin issues the session token, publishes the session (which
// hydrates the sync coordinator), and writes the response.
func finishSignin(w http.ResponseWriter, r *http.Request, userID uuid.UUID, email string, status int, message string) {
	token, err := services.CreateSession(userID)
	if err != nil {
		writeAuth(w, http.StatusInternalServerError, AuthResponse{Message: "Failed to create session"})
		return
	}

	sess := services.Session{Kind: services.SessionAuthenticated, ID: userID.String(), Email: email}
	resolver.Establish(sess)
	engine.Attach(r.Context(), sess)

	writeAuth(w, status, AuthResponse{
		Success: true,
		Message: message,
		Token:   token,
		User: map[string]interface{}{
			"id":    userID.String(),
			"email": email,
		},
	})
}

// Signout flushes pending profile state, durably clears the cached identity,
// then notifies subscribers.
func Signout(w http.ResponseWriter, r *http.Request) {
	token := requestToken(r)
	sess := resolveSession(r)

	if sess.Kind == services.SessionAuthenticated {
		engine.Detach(sess, true)
	}
	// A failed token clear still signs the client out: the resolver has
	// already dropped the identity locally and the token expires on its own.
	_ = resolver.SignOut(token, guestFallback)

	writeAuth(w, http.StatusOK, AuthResponse{Success: true, Message: "Signed out"})
}

// Me returns the authenticated account for the request's token.
func Me(w http.ResponseWriter, r *http.Request) {
	sess := resolveSession(r)
	if sess.Kind != services.SessionAuthenticated {
		if sess.Kind == services.SessionGuest {
			writeAuth(w, http.StatusOK, AuthResponse{
				Success: true,
				Message: "Guest session",
				User:    map[string]interface{}{"id": sess.ID, "email": sess.Email, "guest": true},
			})
			return
		}
		writeAuth(w, http.StatusUnauthorized, AuthResponse{Message: "Authentication required"})
		return
	}

	var email string
	var createdAt time.Time
	err := database.PostgresDB.QueryRow(`
		SELECT email, created_at FROM users WHERE id = $1 AND is_active = TRUE
	`, sess.ID).Scan(&email, &createdAt)
	if err != nil {
		writeAuth(w, http.StatusUnauthorized, AuthResponse{Message: "Authentication required"})
		return
	}

	writeAuth(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "OK",
		User: map[string]interface{}{
			"id":         sess.ID,
			"email":      email,
			"created_at": createdAt,
		},
	})
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ecohabit-ai/ecohabit-backend/internal/config"
	"github.com/ecohabit-ai/ecohabit-backend/internal/database"
	"github.com/ecohabit-ai/ecohabit-backend/internal/handlers"
	"github.com/ecohabit-ai/ecohabit-backend/internal/middleware"
	"github.com/ecohabit-ai/ecohabit-backend/internal/models"
	"github.com/ecohabit-ai/ecohabit-backend/internal/routes"
	"github.com/ecohabit-ai/ecohabit-backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	// Load configuration
	cfg := config.Load()

	// Connect to Redis (sessions, rate limiting, cache, pub/sub)
	log.Printf("Connecting to Redis...")
	if err := database.ConnectRedis(cfg.RedisURI); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer database.DisconnectRedis()

	// Connect to PostgreSQL (accounts) when auth is configured
	if cfg.AuthConfigured() {
		log.Printf("Connecting to PostgreSQL...")
		if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
			log.Fatal("Failed to connect to PostgreSQL:", err)
		}
		defer database.DisconnectPostgres()
	} else {
		log.Println("⚠️  POSTGRES_URI not set (or GUEST_MODE=1): account auth disabled, running with a guest session")
	}

	// Connect to MongoDB (profile rows) when the remote store is configured
	var remote services.RowStore
	if cfg.RemoteStoreConfigured() {
		log.Printf("Connecting to MongoDB...")
		if err := database.ConnectMongo(cfg.MongoURI); err != nil {
			log.Fatal("Failed to connect to MongoDB:", err)
		}
		defer database.DisconnectMongo()
		remote = services.NewMongoRowStore()
	} else {
		log.Println("⚠️  MONGODB_URI not set: profiles will persist to the local file store")
	}

	// Local file store backs guest sessions and the unconfigured-remote path
	local, err := services.NewLocalStore(cfg.DataDir)
	if err != nil {
		log.Fatal("Failed to initialize local profile store:", err)
	}

	// Cloudinary hosts generated images (optional)
	var uploads *services.CloudinaryService
	if cfg.CloudinaryName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		uploads, err = services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			log.Printf("Warning: Failed to initialize Cloudinary: %v", err)
			log.Println("Generated images will be returned as data URLs")
			uploads = nil
		} else {
			log.Println("✅ Cloudinary service initialized")
		}
	} else {
		log.Println("Warning: Cloudinary credentials not found. Generated images will be returned as data URLs")
	}

	// Gemini content generation (optional)
	var gemini *services.GeminiService
	if cfg.GeminiAPIKey != "" {
		gemini, err = services.NewGeminiService(context.Background(), cfg.GeminiAPIKey, uploads)
		if err != nil {
			log.Printf("Warning: Failed to initialize Gemini: %v", err)
			log.Println("Content generation will not be available")
		} else {
			log.Println("✅ Gemini content service initialized")
		}
	} else {
		log.Println("Warning: GEMINI_API_KEY not found. Content generation will not be available")
	}

	// Sync core: gateway (remote + local routing), resolver, engine
	gateway := services.NewGateway(remote, local)
	resolver := services.NewResolver(!cfg.AuthConfigured(), services.InvalidateSession)
	engine := services.NewEngine(gateway, cfg.SyncWindow, nil, func(sess services.Session, snap models.Profile) {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		services.PublishProfileEvent(ctx, sess, snap)
	})

	subCtx, subCancel := context.WithCancel(context.Background())
	defer subCancel()
	services.StartProfileEventSubscriber(subCtx)

	unbind := engine.Bind(resolver)
	defer unbind()

	handlers.InitServices(resolver, engine, gemini, cfg.AuthConfigured())

	// Setup router
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Production: security headers + in-process limits; otherwise Redis-based rate limit only
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity() {
			r.Use(mw)
		}
		log.Println("✅ Production security enabled (security headers, per-IP + login rate limiting)")
	} else {
		r.Use(middleware.RateLimitMiddleware)
	}

	// Health check (no auth)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Setup routes
	routes.SetupRoutes(r)

	log.Printf("🚀 EcoHabit backend running on :%s", cfg.Port)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Flush pending profile writes before exit
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	engine.Shutdown()
}

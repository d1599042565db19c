package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/phraseflow/backend/internal/auth"
	"github.com/phraseflow/backend/internal/credits"
	"github.com/phraseflow/backend/internal/database"
	"github.com/phraseflow/backend/internal/distribution"
	"github.com/phraseflow/backend/internal/ingest"
	"github.com/phraseflow/backend/internal/middleware"
	"github.com/phraseflow/backend/internal/progress"
	"github.com/rs/cors"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	// Initialize database
	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize handlers
	authHandler := auth.NewHandler(db)

	progressStore := progress.NewStore(db)
	progressService := progress.NewService(progressStore)
	progressHandler := progress.NewHandler(progressService, progressStore)

	distributionStore := distribution.NewStore(db)
	distributionService := distribution.NewService(distributionStore)
	distributionHandler := distribution.NewHandler(distributionService)

	creditsStore := credits.NewStore(db)
	creditsHandler := credits.NewHandler(creditsStore)

	ingestStore := ingest.NewStore(db)
	ingestService := ingest.NewService(ingestStore, ingest.NewGenerator())
	ingestHandler := ingest.NewHandler(ingestService)

	// Background workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go distributionService.StartExpirySweepWorker(ctx)
	go ingestService.StartExtractionWorker(ctx)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")

	protected.HandleFunc("/events", progressHandler.LogEvent).Methods("POST")
	protected.HandleFunc("/progress", progressHandler.GetMyProgress).Methods("GET")

	protected.HandleFunc("/distributions/available", distributionHandler.Available).Methods("GET")
	protected.HandleFunc("/distributions/claim", distributionHandler.Claim).Methods("POST")

	protected.HandleFunc("/cards/import", ingestHandler.Import).Methods("POST")
	protected.HandleFunc("/cards", ingestHandler.ListCards).Methods("GET")
	protected.HandleFunc("/extraction-jobs", ingestHandler.CreateJob).Methods("POST")
	protected.HandleFunc("/extraction-jobs/{id}", ingestHandler.GetJob).Methods("GET")

	// Admin routes
	admin := protected.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireAdmin)

	admin.HandleFunc("/recalculate", progressHandler.Recalculate).Methods("POST")
	admin.HandleFunc("/events", progressHandler.ListEvents).Methods("GET")
	admin.HandleFunc("/events/stats", progressHandler.EventStats).Methods("GET")
	admin.HandleFunc("/events/seed", progressHandler.SeedEvents).Methods("POST")

	admin.HandleFunc("/xp-settings", progressHandler.ListXPSettings).Methods("GET")
	admin.HandleFunc("/xp-settings", progressHandler.UpsertXPSetting).Methods("PUT")
	admin.HandleFunc("/xp-settings/{event_type}", progressHandler.DeleteXPSetting).Methods("DELETE")
	admin.HandleFunc("/levels", progressHandler.ListLevels).Methods("GET")
	admin.HandleFunc("/levels", progressHandler.UpsertLevel).Methods("PUT")
	admin.HandleFunc("/levels/{level}", progressHandler.DeleteLevel).Methods("DELETE")

	admin.HandleFunc("/distributions", distributionHandler.Create).Methods("POST")
	admin.HandleFunc("/distributions", distributionHandler.List).Methods("GET")
	admin.HandleFunc("/distributions/{id}", distributionHandler.Update).Methods("PUT")
	admin.HandleFunc("/distributions/{id}/publish", distributionHandler.Publish).Methods("POST")
	admin.HandleFunc("/distributions/{id}/cancel", distributionHandler.Cancel).Methods("POST")

	admin.HandleFunc("/users/{id}/balances", creditsHandler.GetBalances).Methods("GET")
	admin.HandleFunc("/users/{id}/balances", creditsHandler.UpdateBalances).Methods("PUT")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

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

	"github.com/gin-gonic/gin"

	"coachpoint/checkin-app/internal/api"
	"coachpoint/checkin-app/internal/config"
	"coachpoint/checkin-app/internal/notify"
	"coachpoint/checkin-app/internal/repository/mongo"
	"coachpoint/checkin-app/internal/schedule"
	"coachpoint/checkin-app/internal/service"
	"coachpoint/checkin-app/internal/storage"
)

func main() {
	log.Println("Starting CoachPoint Check-In Server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Println("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Println("Database connection established.")

	// --- Ensure Indexes ---
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongo.EnsureFormIndexes(ctx, appDB.Collection("checkin_forms"))
		mongo.EnsureSeriesIndexes(ctx, appDB.Collection("checkin_series"))
		mongo.EnsureAssignmentIndexes(ctx, appDB.Collection("checkin_assignments"))
		mongo.EnsureResponseIndexes(ctx, appDB.Collection("checkin_responses"))
		log.Println("Index creation process completed.")
	}()

	// --- Initialize Storage ---
	fileStorage, err := storage.NewS3Storage(cfg.S3)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
	}

	// --- Initialize Repositories ---
	userRepo := mongo.NewMongoUserRepository(appDB)
	formRepo := mongo.NewMongoFormRepository(appDB)
	seriesRepo := mongo.NewMongoSeriesRepository(appDB)
	assignmentRepo := mongo.NewMongoAssignmentRepository(appDB)
	responseRepo := mongo.NewMongoResponseRepository(appDB)

	// --- Initialize Services ---
	precreated := cfg.Features.PrecreateAssignments
	materializer := service.NewMaterializer(precreated, seriesRepo, assignmentRepo)

	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	coachService := service.NewCoachService(userRepo, formRepo, seriesRepo, assignmentRepo, responseRepo,
		precreated, cfg.Features.PrecreateHorizonWeeks)
	clientService := service.NewClientService(materializer, seriesRepo, assignmentRepo, responseRepo,
		fileStorage, precreated)

	// --- Reminder Sweep ---
	var notifier notify.Notifier
	switch cfg.Notifier.Provider {
	case "resend":
		notifier = notify.NewResendNotifier(cfg.Notifier.APIKey, cfg.Notifier.FromAddress)
	default:
		notifier = notify.NewConsoleNotifier()
	}
	sweeper := schedule.NewSweeper(seriesRepo, assignmentRepo, userRepo, notifier,
		precreated, cfg.Scheduler.SweepInterval, cfg.Scheduler.ItemTimeout)
	sweeper.Start()
	defer sweeper.Stop()
	log.Printf("Reminder sweep running every %s", cfg.Scheduler.SweepInterval)

	// --- Initialize Gin Engine ---
	router := gin.Default() // Includes Logger and Recovery middleware

	// --- Setup Routes ---
	api.SetupRoutes(router, cfg.JWT.Secret, authService, coachService, clientService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}

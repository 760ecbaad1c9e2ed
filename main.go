package main

import (
	"log"

	api "schoolsync-backend/cmd/api"
	authdomain "schoolsync-backend/internal/auth/domain"
	authRepo "schoolsync-backend/internal/auth/repository"
	authUsecase "schoolsync-backend/internal/auth/usecase"
	childdomain "schoolsync-backend/internal/child/domain"
	childRepo "schoolsync-backend/internal/child/repository"
	childUsecase "schoolsync-backend/internal/child/usecase"
	emaildomain "schoolsync-backend/internal/email/domain"
	emailRepo "schoolsync-backend/internal/email/repository"
	emailUsecase "schoolsync-backend/internal/email/usecase"
	syncdomain "schoolsync-backend/internal/sync/domain"
	syncRepo "schoolsync-backend/internal/sync/repository"
	"schoolsync-backend/internal/sync/scheduler"
	syncUsecase "schoolsync-backend/internal/sync/usecase"
	"schoolsync-backend/pkg/ai"
	"schoolsync-backend/pkg/config"
	"schoolsync-backend/pkg/database"
	"schoolsync-backend/pkg/gmail"
	"schoolsync-backend/pkg/imap"
	"schoolsync-backend/pkg/sse"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&authdomain.User{},
		&authdomain.RefreshToken{},
		&childdomain.Child{},
		&emaildomain.Email{},
		&emaildomain.SchoolEvent{},
		&emaildomain.ActionItem{},
		&syncdomain.SchedulerState{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	userRepo := authRepo.NewUserRepository(db)
	childRepository := childRepo.NewChildRepository(db)
	emailRepository := emailRepo.NewEmailRepository(db)
	eventRepository := emailRepo.NewEventRepository(db)
	actionRepository := emailRepo.NewActionRepository(db)
	schedulerStateRepo := syncRepo.NewSchedulerStateRepository(db)

	// Initialize SSE Manager
	sseManager := sse.NewManager()
	go sseManager.Run()

	// Initialize mail sources
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.SyncMaxResults)
	imapService := imap.NewService(int(cfg.SyncMaxResults))

	// Initialize AI analyzer
	analyzer, err := ai.NewAnalyzerService(ai.Config{
		Provider:      ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:  cfg.GeminiAPIKey,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
	})
	if err != nil {
		log.Fatal("Failed to initialize AI analyzer:", err)
	}
	log.Printf("AI analyzer initialized with provider: %s", cfg.AIProvider)

	// Initialize use cases (dependency injection)
	authUsecaseInstance := authUsecase.NewAuthUsecase(userRepo, cfg)
	childUsecaseInstance := childUsecase.NewChildUsecase(childRepository)
	emailUsecaseInstance := emailUsecase.NewEmailUsecase(emailRepository, eventRepository, actionRepository, analyzer)
	syncUsecaseInstance := syncUsecase.NewSyncUsecase(
		childRepository, emailRepository, eventRepository, actionRepository,
		userRepo, schedulerStateRepo,
		gmailService, imapService, analyzer, sseManager, cfg,
	)

	// Start the auto-sync scheduler
	sched := scheduler.NewScheduler(schedulerStateRepo, syncUsecaseInstance, cfg.SchedulerPollInterval)
	go sched.Start()

	// Initialize HTTP handler
	handler := api.NewHandler(authUsecaseInstance, childUsecaseInstance, emailUsecaseInstance, syncUsecaseInstance, sseManager, cfg)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

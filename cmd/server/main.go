package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizdrill/internal/config"
	"quizdrill/internal/database"
	"quizdrill/internal/handlers"
	"quizdrill/internal/repository"
	"quizdrill/internal/security"
	"quizdrill/internal/service"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()

	handlers.SetCurrentStep("Connecting to database...")
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()
	handlers.CompleteStep("Database connection")

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	handlers.SetCurrentStep("Running migrations...")
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	handlers.CompleteStep("Running migrations")

	log.Println("Migrations completed successfully")

	handlers.SetCurrentStep("Initializing services...")

	userRepo := repository.NewUserRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	practiceRepo := repository.NewPracticeRepository(db)

	authService := service.NewAuthService(userRepo, cfg.SessionDuration)
	quizService := service.NewQuizService(quizRepo)
	practiceService := service.NewPracticeService(practiceRepo, quizRepo, cfg.PracticeQuestionLimit)
	backupService := service.NewBackupService(db)

	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.EmailFrom, cfg.EmailFromName, cfg.AppBaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}

	csrf := security.NewCSRFGenerator(cfg.SessionSecret)
	rateLimiter := security.NewRateLimiter(10, time.Minute)

	middleware := handlers.NewMiddleware(authService, csrf, rateLimiter)
	authHandler := handlers.NewAuthHandler(authService, emailService, csrf)
	oauthHandler := handlers.NewOAuthHandler(authService, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.OAuthRedirectBase)
	quizHandler := handlers.NewQuizHandler(quizService, practiceService)
	practiceHandler := handlers.NewPracticeHandler(practiceService)
	adminHandler := handlers.NewAdminHandler(userRepo, backupService, version)

	handlers.CompleteStep("Initializing services")

	mux := http.NewServeMux()

	// Diagnostics
	mux.HandleFunc("GET /healthz", handlers.Healthz)
	mux.HandleFunc("GET /api/startup", handlers.ShowStartupStatus)

	// Auth
	mux.HandleFunc("POST /api/register", middleware.RateLimit(authHandler.Register))
	mux.HandleFunc("POST /api/login", middleware.RateLimit(authHandler.Login))
	mux.HandleFunc("POST /api/logout", authHandler.Logout)
	mux.HandleFunc("GET /api/me", middleware.RequireAuth(authHandler.Me))
	mux.HandleFunc("POST /api/password/forgot", middleware.RateLimit(authHandler.ForgotPassword))
	mux.HandleFunc("POST /api/password/reset", middleware.RateLimit(authHandler.ResetPassword))
	mux.HandleFunc("GET /auth/google/start", oauthHandler.Start)
	mux.HandleFunc("GET /auth/google/callback", oauthHandler.Callback)

	// Quizzes
	mux.HandleFunc("GET /api/quizzes", middleware.RequireAuth(quizHandler.List))
	mux.HandleFunc("POST /api/quizzes", middleware.RequireAuth(middleware.CSRFProtect(quizHandler.Create)))
	mux.HandleFunc("GET /api/quizzes/{id}", middleware.RequireAuth(quizHandler.Get))
	mux.HandleFunc("PUT /api/quizzes/{id}", middleware.RequireAuth(middleware.CSRFProtect(quizHandler.Update)))
	mux.HandleFunc("DELETE /api/quizzes/{id}", middleware.RequireAuth(middleware.CSRFProtect(quizHandler.Delete)))
	mux.HandleFunc("GET /api/quizzes/{id}/stats", middleware.RequireAuth(quizHandler.Stats))
	mux.HandleFunc("POST /api/quizzes/{id}/questions", middleware.RequireAuth(middleware.CSRFProtect(quizHandler.AddQuestion)))
	mux.HandleFunc("POST /api/quizzes/{id}/questions/import", middleware.RequireAuth(middleware.CSRFProtect(quizHandler.ImportQuestions)))
	mux.HandleFunc("PUT /api/questions/{id}", middleware.RequireAuth(middleware.CSRFProtect(quizHandler.UpdateQuestion)))
	mux.HandleFunc("DELETE /api/questions/{id}", middleware.RequireAuth(middleware.CSRFProtect(quizHandler.DeleteQuestion)))

	// Practice
	mux.HandleFunc("POST /api/practice/start/{quizID}", middleware.RequireAuth(middleware.CSRFProtect(practiceHandler.Start)))
	mux.HandleFunc("GET /api/practice/question", middleware.RequireAuth(practiceHandler.Question))
	mux.HandleFunc("POST /api/practice/answer", middleware.RequireAuth(middleware.CSRFProtect(practiceHandler.Answer)))
	mux.HandleFunc("POST /api/practice/exit", middleware.RequireAuth(middleware.CSRFProtect(practiceHandler.Exit)))
	mux.HandleFunc("GET /api/practice/results/{sessionID}", middleware.RequireAuth(practiceHandler.Results))
	mux.HandleFunc("GET /api/practice/history", middleware.RequireAuth(practiceHandler.History))

	// Admin
	mux.HandleFunc("GET /api/admin/users", middleware.RequireAdmin(adminHandler.ListUsers))
	mux.HandleFunc("PUT /api/admin/users/{id}", middleware.RequireAdmin(middleware.CSRFProtect(adminHandler.UpdateUser)))
	mux.HandleFunc("DELETE /api/admin/users/{id}", middleware.RequireAdmin(middleware.CSRFProtect(adminHandler.DeleteUser)))
	mux.HandleFunc("GET /api/admin/backup", middleware.RequireAdmin(adminHandler.ExportBackup))

	handler := handlers.Logging(mux)

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go cleanupExpired(authService)

	go func() {
		handlers.CompleteStep("Server ready")
		handlers.MarkReady()
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// cleanupExpired periodically removes expired sessions and reset tokens
func cleanupExpired(authService *service.AuthService) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if err := authService.CleanupExpiredSessions(); err != nil {
			log.Printf("Error cleaning up expired sessions: %v", err)
		}
		if err := authService.CleanupExpiredPasswordResetTokens(); err != nil {
			log.Printf("Error cleaning up expired password reset tokens: %v", err)
		}
	}
}

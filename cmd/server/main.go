package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"examportal-backend/internal/config"
	"examportal-backend/internal/database"
	"examportal-backend/internal/handlers"
	"examportal-backend/internal/middleware"
	"examportal-backend/internal/repository"
	"examportal-backend/internal/router"
	"examportal-backend/internal/services"
	"examportal-backend/internal/worker"
	"examportal-backend/migrations"
)

func main() {
	log.Println("🚀 Starting Exam Portal Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Client ────
	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClient.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, migrationSource(cfg.MigrationsDir)); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	if err := os.MkdirAll(cfg.StoragePath, 0o755); err != nil {
		log.Fatalf("✗ Storage path %s unusable: %v", cfg.StoragePath, err)
	}

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	assignmentRepo := repository.NewAssignmentRepo(pool)
	resultRepo := repository.NewResultRepo(pool)
	jobRepo := repository.NewJobRepo(pool)

	// ──── Step 5: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Printf("✓ Gemini client initialized (%s)", cfg.GeminiModel)

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	extractor := services.NewTextExtractor()
	authService := services.NewAuthService(userRepo, redisClient, jwtAuth)
	examService := services.NewExamService(assignmentRepo, resultRepo)
	tutorService := services.NewTutorService(extractor, geminiService, 3000)
	pipeline := services.NewContentPipeline(extractor, geminiService, assignmentRepo, services.PipelineConfig{
		ContextBudget: cfg.ContextBudget,
		QuizSize:      cfg.QuizSize,
	})
	queue := worker.NewQueue(redisClient, jobRepo)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	assignmentHandler := handlers.NewAssignmentHandler(assignmentRepo, queue, examService, cfg.Syllabus, cfg.StoragePath)
	examHandler := handlers.NewExamHandler(examService)
	dashboardHandler := handlers.NewDashboardHandler(examService, cfg.Syllabus)
	chatHandler := handlers.NewChatHandler(tutorService, cfg.StoragePath)

	// ──── Step 6: Start Job Worker Pool ────
	workerPool := worker.NewPool(redisClient, pipeline, jobRepo, cfg.WorkerCount)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	// ──── Step 7: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		assignmentHandler,
		examHandler,
		dashboardHandler,
		chatHandler,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("✓ Exam Portal Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)

	if err := serve(server, workerPool, sigChan, 30*time.Second); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("✓ Shutdown complete")
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

type stopper interface {
	Stop()
}

// serve runs the HTTP server until a signal arrives, then stops accepting
// requests and waits for in-flight generation jobs. It returns only after
// the workers have stopped so no assignment is left PENDING by an exit.
func serve(server httpServer, workers stopper, sig <-chan os.Signal, timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-sig

		log.Println("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("HTTP shutdown: %v", err)
		}
		workers.Stop()
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	<-done
	return nil
}

// migrationSource prefers an on-disk migrations directory so SQL can be
// edited without a rebuild; otherwise the embedded copy is used.
func migrationSource(dir string) fs.FS {
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return os.DirFS(dir)
	}
	return migrations.FS
}

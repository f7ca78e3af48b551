package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"closingbinder/internal/auth"
	"closingbinder/internal/binder"
	"closingbinder/internal/binder/layouts"
	"closingbinder/internal/binder/pdfengine"
	"closingbinder/internal/config"
	"closingbinder/internal/handler"
	"closingbinder/internal/middleware"
	"closingbinder/internal/repository/postgres"
	"closingbinder/internal/repository/redisstore"
	"closingbinder/internal/service"
	"closingbinder/internal/storage"
	"closingbinder/internal/uploads"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Create JWT verifier for Supabase authentication
	jwtVerifier, err := auth.NewJWTVerifier(cfg.SupabaseJWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Create pgx connection pool
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	// Create repositories
	tables := postgres.NewTableNames(cfg.TablePrefix)
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	projectRepo := postgres.NewProjectRepository(repoConfig)
	logoRepo := postgres.NewLogoRepository(repoConfig)
	sectionRepo := postgres.NewSectionRepository(repoConfig)
	docRepo := postgres.NewDocumentRepository(repoConfig)
	binderRepo := postgres.NewBinderRepository(repoConfig)
	accessLogRepo := postgres.NewAccessLogRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Object storage for uploaded PDFs
	store, err := storage.NewMinioStore(cfg)
	if err != nil {
		log.Fatalf("Failed to create object store: %v", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		log.Fatalf("Failed to ensure bucket: %v", err)
	}
	logger.Info("object store ready", "bucket", cfg.StorageBucket)

	// Optional Redis-backed view counters and attempt throttling
	tracker := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
	defer tracker.Close()

	// Upload queue: one drain goroutine, strictly sequential
	uploadQueue := uploads.NewManager(store, docRepo, logger)
	uploadQueue.Start(ctx)

	// Binder assembly engine
	themes, err := layouts.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load cover themes: %v", err)
	}
	coverRenderer := binder.NewCoverRenderer(themes, "default", logger)
	tocRenderer := binder.NewTOCRenderer(themes, "default", logger)
	fetcher := binder.NewFetcher(store)
	engine := binder.NewEngine(pdfengine.New(), coverRenderer, tocRenderer, fetcher, logger)

	// Create services
	projectService := service.NewProjectService(projectRepo, logoRepo, logger)
	sectionService := service.NewSectionService(sectionRepo, projectRepo, logger)
	docService := service.NewDocumentService(docRepo, sectionRepo, projectRepo, store, txManager, logger)
	binderService := service.NewBinderService(engine, projectRepo, logoRepo, sectionRepo, docRepo, logger)
	publishService := service.NewPublishService(binderRepo, projectRepo, sectionRepo, docRepo, accessLogRepo, tracker, logger)

	// Create handlers
	projectHandler := handler.NewProjectHandler(projectService, logger)
	sectionHandler := handler.NewSectionHandler(sectionService, logger)
	docHandler := handler.NewDocumentHandler(docService, logger)
	uploadHandler := handler.NewUploadHandler(uploadQueue, projectService, logger)
	binderHandler := handler.NewBinderHandler(binderService, handler.NewJobRegistry(), logger)
	publishHandler := handler.NewPublishHandler(publishService, logger)
	clientHandler := handler.NewClientHandler(publishService, binderService, docService, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", handler.HealthCheck)

	// Project routes
	mux.HandleFunc("GET /api/projects", projectHandler.ListProjects)
	mux.HandleFunc("POST /api/projects", projectHandler.CreateProject)
	mux.HandleFunc("GET /api/projects/{id}", projectHandler.GetProject)
	mux.HandleFunc("PATCH /api/projects/{id}", projectHandler.UpdateProject)
	mux.HandleFunc("DELETE /api/projects/{id}", projectHandler.DeleteProject)

	// Cover-page logos
	mux.HandleFunc("GET /api/projects/{id}/logos", projectHandler.ListLogos)
	mux.HandleFunc("POST /api/projects/{id}/logos", projectHandler.AddLogo)
	mux.HandleFunc("DELETE /api/projects/{id}/logos/{logoID}", projectHandler.RemoveLogo)

	// Section routes
	mux.HandleFunc("POST /api/sections", sectionHandler.CreateSection)
	mux.HandleFunc("GET /api/projects/{id}/sections", sectionHandler.ListSections)
	mux.HandleFunc("PATCH /api/sections/{id}", sectionHandler.UpdateSection)
	mux.HandleFunc("DELETE /api/sections/{id}", sectionHandler.DeleteSection)

	// Document routes
	mux.HandleFunc("GET /api/projects/{id}/documents", docHandler.ListDocuments)
	mux.HandleFunc("PUT /api/documents/reorder", docHandler.ReorderDocuments) // literal segment outranks {id}
	mux.HandleFunc("GET /api/documents/{id}", docHandler.GetDocument)
	mux.HandleFunc("PATCH /api/documents/{id}", docHandler.UpdateDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", docHandler.DeleteDocument)
	mux.HandleFunc("GET /api/documents/{id}/download", docHandler.DownloadDocument)

	// Upload queue routes
	mux.HandleFunc("POST /api/projects/{id}/uploads", uploadHandler.Enqueue)
	mux.HandleFunc("GET /api/uploads", uploadHandler.Queue)
	mux.HandleFunc("POST /api/uploads/{id}/retry", uploadHandler.Retry)
	mux.HandleFunc("DELETE /api/uploads/{id}", uploadHandler.Remove)
	mux.HandleFunc("DELETE /api/uploads", uploadHandler.Clear)

	// Binder assembly routes
	mux.HandleFunc("GET /api/projects/{id}/binder/toc", binderHandler.GetTOC)
	mux.HandleFunc("GET /api/projects/{id}/binder/download", binderHandler.Download)
	mux.HandleFunc("POST /api/projects/{id}/binder/build", binderHandler.StartBuild)
	mux.HandleFunc("GET /api/binder/jobs/{id}/progress", binderHandler.Progress) // SSE progress stream
	mux.HandleFunc("GET /api/binder/jobs/{id}/download", binderHandler.Claim)

	// Publishing routes
	mux.HandleFunc("POST /api/projects/{id}/publish", publishHandler.Publish)
	mux.HandleFunc("GET /api/projects/{id}/publish", publishHandler.ListPublished)
	mux.HandleFunc("DELETE /api/projects/{id}/publish/{binderID}", publishHandler.Unpublish)

	// Client binder routes (access-code gated, no JWT)
	mux.HandleFunc("POST /client-binder/{accessCode}", clientHandler.Access)
	mux.HandleFunc("POST /client-binder/{accessCode}/download", clientHandler.Download)
	mux.HandleFunc("POST /client-binder/{accessCode}/documents/{docID}", clientHandler.Document)

	// Build middleware chain
	var root http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	root = middleware.AuthMiddleware(jwtVerifier)(root)
	root = middleware.Recovery(logger)(root)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams and big binder downloads
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/JustinPerea/youtube-to-notes-sub002/config"
	"github.com/JustinPerea/youtube-to-notes-sub002/handlers"
	"github.com/JustinPerea/youtube-to-notes-sub002/logger"
	"github.com/JustinPerea/youtube-to-notes-sub002/queue"
	"github.com/JustinPerea/youtube-to-notes-sub002/repository/sqlite"
	"github.com/JustinPerea/youtube-to-notes-sub002/services/generation"
	"github.com/JustinPerea/youtube-to-notes-sub002/services/notes"
	"github.com/JustinPerea/youtube-to-notes-sub002/services/transcript"
	"github.com/JustinPerea/youtube-to-notes-sub002/storage"
	"github.com/JustinPerea/youtube-to-notes-sub002/validation"
	"github.com/JustinPerea/youtube-to-notes-sub002/youtube"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberLogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize loggers
	serviceLog, accessLog, err := logger.New(cfg.LogDir, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Initialize database
	db, err := sqlite.InitDB(cfg.Database.Path, sqlite.Config{
		MaxConnections:     cfg.Database.MaxConnections,
		MaxIdleConnections: cfg.Database.MaxIdleConnections,
	})
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	repo, err := sqlite.NewRepository(db)
	if err != nil {
		log.Fatalf("Failed to initialize repository: %v", err)
	}

	// Model hierarchy: video-capable models first, then text-only models.
	var backends []generation.Backend
	for _, model := range cfg.Models.VideoModels {
		backends = append(backends, generation.NewGeminiBackend(generation.GeminiConfig{
			Model:       model,
			APIBase:     cfg.Models.GeminiAPIBase,
			APIKey:      cfg.Models.GeminiAPIKey,
			MaxTokens:   cfg.Models.MaxTokens,
			Temperature: cfg.Models.Temperature,
		}))
	}
	for _, model := range cfg.Models.TextModels {
		backends = append(backends, generation.NewAnthropicBackend(generation.AnthropicConfig{
			Model:       model,
			APIKey:      cfg.Models.AnthropicAPIKey,
			MaxTokens:   cfg.Models.MaxTokens,
			Temperature: cfg.Models.Temperature,
		}))
	}
	invoker := generation.NewInvoker(backends, serviceLog)

	// Upstream collaborators
	ytClient := youtube.NewClient(youtube.Config{
		CaptionsAPIURL: cfg.YouTube.CaptionsAPIURL,
		CaptionsAPIKey: cfg.YouTube.CaptionsAPIKey,
		MetadataAPIURL: cfg.YouTube.MetadataAPIURL,
		MetadataAPIKey: cfg.YouTube.MetadataAPIKey,
		Timeout:        cfg.YouTube.FetchTimeout,
		Retries:        cfg.YouTube.FetchRetries,
	})

	transcriptService := transcript.NewService(ytClient, invoker, serviceLog)

	// One limiter enforces the upstream per-minute budget for every
	// generation call the orchestrator makes.
	generateLimiter := rate.NewLimiter(
		rate.Limit(float64(cfg.Processing.GenerateRPM)/60.0),
		cfg.Processing.GenerateBurst,
	)

	estimator := notes.NewCostEstimator(cfg.Pricing.InputCentsPer1K, cfg.Pricing.OutputCentsPer1K)

	progress := func(percent int, message string) {
		serviceLog.Debug().Int("percent", percent).Str("message", message).Msg("Progress")
	}

	notesService := notes.NewService(
		ytClient,
		transcriptService,
		invoker,
		generateLimiter,
		estimator,
		progress,
		notes.Config{
			ChunkSeconds:     cfg.Processing.ChunkSeconds,
			LongVideoSeconds: cfg.Processing.LongVideoSeconds,
			ProcessTimeout:   cfg.Processing.ProcessTimeout,
			Selector: notes.SelectorConfig{
				EducationalTags:  cfg.Selector.EducationalTags,
				VisualHints:      cfg.Selector.VisualHints,
				MinHybridSeconds: cfg.Selector.MinHybridSeconds,
				MaxHybridSeconds: cfg.Selector.MaxHybridSeconds,
			},
		},
		serviceLog,
	)

	// Optional notes archival
	var archiver queue.Archiver
	var archive handlers.NotesArchive
	if cfg.Storage.Enabled {
		spaces, err := storage.NewSpacesClient(storage.SpacesConfig{
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Region:    cfg.Storage.Region,
			Endpoint:  cfg.Storage.Endpoint,
			Bucket:    cfg.Storage.Bucket,
		})
		if err != nil {
			log.Fatalf("Failed to initialize storage: %v", err)
		}
		archiver = spaces
		archive = spaces
	}

	// Background queue
	jobQueue := queue.New(
		notesService.ProcessVideo,
		repo,
		archiver,
		queue.Config{
			Workers:        cfg.Queue.Workers,
			MaxSize:        cfg.Queue.MaxSize,
			MaxRetries:     cfg.Queue.MaxRetries,
			ItemDelay:      cfg.Queue.ItemDelay,
			ProcessTimeout: cfg.Processing.ProcessTimeout,
		},
		serviceLog,
	)
	jobQueue.Start()

	validator := validation.NewValidator()

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		IdleTimeout:           cfg.IdleTimeout,
		ErrorHandler:          handlers.ErrorHandler,
		DisableStartupMessage: !cfg.Debug,
		StrictRouting:         true,
		CaseSensitive:         true,
		AppName:               "yt-notes " + cfg.Version,
	})

	setupMiddleware(app, cfg, accessLog)

	// Setup routes
	notesHandler := handlers.NewNotesHandler(
		notesService,
		jobQueue,
		repo,
		archive,
		validator,
		notes.DefaultTemplates(),
	)

	app.Post("/api/notes", notesHandler.ProcessVideo)
	app.Post("/api/notes/queue", notesHandler.Enqueue)
	app.Get("/api/notes/:id", notesHandler.GetJob)
	app.Get("/api/notes/:id/archive", notesHandler.GetArchivedNotes)
	app.Get("/api/queue/status", notesHandler.QueueStatus)
	app.Get("/health", notesHandler.HealthCheck)

	// Graceful shutdown setup
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-shutdownChan
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := app.ShutdownWithContext(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}

		jobQueue.Close()

		if err := db.Close(); err != nil {
			log.Printf("Database shutdown error: %v", err)
		}
	}()

	// Start server
	serverAddr := ":" + cfg.ServerPort
	if cfg.Debug {
		log.Printf("Server starting on http://localhost%s", serverAddr)
	}

	if err := app.Listen(serverAddr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}

func setupMiddleware(app *fiber.App, cfg *config.Config, accessLog *fiberLogger.Config) {
	if cfg.Middleware.EnableRecover {
		app.Use(recover.New(recover.Config{
			EnableStackTrace: cfg.Debug,
		}))
	}

	if cfg.Middleware.EnableRequestID {
		app.Use(requestid.New(requestid.Config{
			Header: "X-Request-ID",
			Generator: func() string {
				return uuid.New().String()
			},
		}))
	}

	if cfg.Middleware.EnableLogger {
		app.Use(fiberLogger.New(*accessLog))
	}

	if cfg.Middleware.EnableTimeout {
		app.Use(timeout.New(func(c *fiber.Ctx) error {
			return c.Next()
		}, cfg.RequestTimeout))
	}

	if cfg.Middleware.EnableCORS {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(cfg.CORS.AllowedOrigins, ","),
			AllowMethods:     strings.Join(cfg.CORS.AllowedMethods, ","),
			AllowHeaders:     strings.Join(cfg.CORS.AllowedHeaders, ","),
			ExposeHeaders:    strings.Join(cfg.CORS.ExposedHeaders, ","),
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           cfg.CORS.MaxAge,
		}))
	}

	if cfg.Middleware.EnableRateLimit && cfg.RateLimit.Enabled {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit.RequestsPerMinute,
			Expiration: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "Rate limit exceeded",
				})
			},
		}))
	}

	if cfg.Middleware.EnableCompress {
		app.Use(compress.New(compress.Config{
			Level: compress.LevelDefault,
		}))
	}

	if cfg.Middleware.EnableETag {
		app.Use(etag.New())
	}
}

package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/framecut/api/internal/auth"
	"github.com/framecut/api/internal/client"
	"github.com/framecut/api/internal/config"
	"github.com/framecut/api/internal/encoder"
	"github.com/framecut/api/internal/handler"
	"github.com/framecut/api/internal/logging"
	"github.com/framecut/api/internal/middleware"
	"github.com/framecut/api/internal/raster"
	"github.com/framecut/api/internal/repository"
	"github.com/framecut/api/internal/service"
	ws "github.com/framecut/api/internal/websocket"
	"github.com/framecut/api/internal/worker"
	"github.com/framecut/api/pkg/response"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(cfg.Server.LogLevel, cfg.Server.Env == "development")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Timeline store
	db, err := repository.Open(cfg.Database, logging.WithComponent("database"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	if err := repository.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	repo := repository.NewGormRepository(db)

	// Redis holds job state and rate limit counters
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis not available")
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()

	// Render output storage: bucket when configured, local dir otherwise
	var storage client.StorageClient
	storageKind := "s3"
	if s3Client, err := client.NewS3Client(&cfg.Storage); err == nil {
		storage = s3Client
	} else {
		storageKind = "local"
		log.Warn().Err(err).Str("dir", cfg.Render.OutputDir).Msg("object storage not configured, writing renders locally")
		local, err := client.NewLocalStorage(cfg.Render.OutputDir)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to prepare local storage")
		}
		storage = local
	}

	ffmpeg, err := encoder.New(logging.WithComponent("encoder"), cfg.Render.FFmpegPath)
	if err != nil {
		log.Warn().Err(err).Msg("ffmpeg unavailable, render jobs will produce poster frames")
	}

	// Zitadel JWKS verifier (optional, falls back to legacy JWT)
	var jwksVerifier *auth.JWKSVerifier
	if cfg.Zitadel.Issuer != "" {
		jwksVerifier, err = auth.NewJWKSVerifier(&cfg.Zitadel)
		if err != nil {
			log.Warn().Err(err).Msg("JWKS verifier not initialized")
		} else {
			defer jwksVerifier.Close()
		}
	}

	var authMiddleware *middleware.AuthMiddleware
	switch {
	case jwksVerifier != nil && cfg.JWT.Secret != "":
		authMiddleware = middleware.NewAuthMiddlewareWithFallback(jwksVerifier, cfg.JWT.Secret)
	case jwksVerifier != nil:
		authMiddleware = middleware.NewAuthMiddleware(jwksVerifier)
	default:
		authMiddleware = middleware.NewLegacyAuthMiddleware(cfg.JWT.Secret)
	}
	rateLimiter := middleware.NewRateLimiter(redisClient, logging.WithComponent("ratelimit"))

	hub := ws.NewHub(logging.WithComponent("ws-hub"))
	go hub.Run(ctx)

	// Services
	painter := raster.NewPainter(cfg.Render.AssetDir)
	timelineService := service.NewTimelineService(repo)
	previewService := service.NewPreviewService(repo, painter)
	renderService := service.NewRenderService(redisClient, asynqClient, repo)
	previewServer := ws.NewPreviewServer(previewService, logging.WithComponent("preview"))

	validate := handler.NewValidator()
	routes := &handler.Routes{
		Timelines:    handler.NewTimelineHandler(timelineService, validate),
		Tracks:       handler.NewTrackHandler(timelineService, validate),
		Clips:        handler.NewClipHandler(timelineService, validate),
		Preview:      handler.NewPreviewHandler(previewService),
		Render:       handler.NewRenderHandler(renderService, validate),
		Auth:         authMiddleware.Authenticate(),
		RenderLimit:  rateLimiter.RenderLimit(cfg.RateLimit.RenderPerHour),
		PreviewLimit: rateLimiter.PreviewLimit(cfg.RateLimit.PreviewPerMin),
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    4 * 1024 * 1024,
	})

	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body}\n"
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":   redisClient.Ping(c.UserContext()).Err() == nil,
				"ffmpeg":  ffmpeg != nil,
				"storage": storageKind,
				"auth":    jwksVerifier != nil || cfg.JWT.Secret != "",
			},
		})
	})

	routes.Register(app)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}, authMiddleware.Authenticate())

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("jobId"))
	}))
	app.Get("/ws/preview/:timelineId", websocket.New(func(c *websocket.Conn) {
		previewServer.HandleConnection(ctx, c, c.Params("timelineId"))
	}))

	// Asynq worker server
	renderWorker := worker.NewRenderWorker(
		renderService,
		previewService,
		painter,
		ffmpeg,
		storage,
		hub,
		logging.WithComponent("render-worker"),
		cfg.Render.OutputDir,
		cfg.Render.FrameBatch,
	)
	workerServer := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Render.Concurrency,
		Queues: map[string]int{
			service.RenderQueue: 1,
		},
		Logger: newAsynqLogger(logging.WithComponent("asynq")),
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeRender, renderWorker.ProcessTask)
	if err := workerServer.Start(mux); err != nil {
		log.Fatal().Err(err).Msg("failed to start worker server")
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
	}()

	addr := ":" + cfg.Server.Port
	log.Info().Str("addr", addr).Msg("server starting")
	if err := app.Listen(addr); err != nil {
		log.Error().Err(err).Msg("server error")
	}

	workerServer.Shutdown()
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return response.Error(c, code, response.CodeServiceError, message, nil)
}

package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/harentsoaR/counsel-api/internal/broker"
	"github.com/harentsoaR/counsel-api/internal/cache"
	"github.com/harentsoaR/counsel-api/internal/config"
	"github.com/harentsoaR/counsel-api/internal/handlers"
	"github.com/harentsoaR/counsel-api/internal/services"
	"github.com/harentsoaR/counsel-api/internal/tasks"
	"github.com/harentsoaR/counsel-api/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := utils.NewLogger(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	backend, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.String("backend", cfg.StorageBackend), zap.Error(err))
	}
	defer backend.close()
	store := backend.store

	// --- Redis: chat fan-out and hotline cache ---
	var (
		chatBroker   broker.Broker = broker.NewMemoryBroker()
		hotlineCache cache.Cache   = cache.NewMemoryCache()
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Fatal("Failed to reach Redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		chatBroker = broker.NewRedisBroker(rdb, logger)
		hotlineCache = cache.NewRedisCache(rdb, "counsel:")
		logger.Info("Redis connected", zap.String("addr", cfg.RedisAddr))
	} else {
		logger.Info("REDIS_ADDR not set, chat and cache stay in process")
	}

	// --- Notifications ---
	sms := services.NewSMSNotifier(store.Users, cfg.TextbeltAPIKey, logger)
	var notifier services.Notifier = services.NopNotifier{}
	switch {
	case cfg.TextbeltAPIKey == "":
		logger.Info("TEXTBELT_API_KEY not set, SMS notifications disabled")
	case cfg.NotifyViaQueue:
		opt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisQueueDB}
		queue := asynq.NewClient(opt)
		defer queue.Close()
		notifier = tasks.NewQueueNotifier(queue, logger)

		worker := tasks.NewServer(opt, logger)
		if err := worker.Start(tasks.NewServeMux(sms, logger)); err != nil {
			logger.Fatal("Failed to start notification worker", zap.Error(err))
		}
		defer worker.Shutdown()
	default:
		notifier = sms
	}

	// --- Services ---
	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	audit := services.NewAuditService(store.Audit, logger)
	hotlines := services.NewHotlineService(hotlineCache, cfg.HotlineSourceURL, cfg.HotlineCacheTTL, logger)

	auth := services.NewAuthService(store.Users, store.Profiles, tokens, cfg.BcryptCost, audit, logger)
	if err := auth.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.Fatal("Failed to provision admin account", zap.Error(err))
	}

	h := &handlers.Handler{
		Auth:        auth,
		Profiles:    services.NewProfileService(store.Users, store.Profiles, store.Sessions, audit),
		Booking:     services.NewBookingService(store.Users, store.Profiles, store.Sessions, audit, notifier, logger),
		Reviews:     services.NewReviewService(store.Reviews, store.Sessions, audit),
		Chat:        services.NewChatService(store.Chat, store.Sessions, store.Profiles, chatBroker, audit, logger, cfg.AnonSalt),
		Hotlines:    hotlines,
		Emergencies: services.NewEmergencyService(store.Emergencies, hotlines, audit, logger),
		Audit:       audit,
		Logger:      logger,
	}

	router := handlers.NewRouter(h, handlers.RouterConfig{
		CORSOrigins:       cfg.CORSOrigins,
		MaxRequestsPerMin: cfg.MaxRequestsPerMin,
		Tokens:            tokens,
		Logger:            logger,
		Ready:             backend.ping,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts end on shutdown, which closes open chat streams.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.AppPort), zap.String("storage", cfg.StorageBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

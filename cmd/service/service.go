package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	configs "grading_service/config"
	"grading_service/internal/cache"
	"grading_service/internal/client"
	"grading_service/internal/metrics"
	"grading_service/internal/repository"
	"grading_service/internal/server/httpapi"
	"grading_service/internal/service"
	"grading_service/pkg/db"
	"grading_service/pkg/kafka"
	"grading_service/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zapLogger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = zapLogger.Sync() }()

	logger := logging.New(zapLogger)

	cfg, err := configs.Load()
	if err != nil {
		logger.Fatal(ctx, "cannot load config", zap.Error(err))
	}

	pg, err := db.NewPostgres(db.Config{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		DBName:   cfg.DB.DBName,
		SSLMode:  cfg.DB.SSLMode,
	})
	if err != nil {
		logger.Fatal(ctx, "cannot connect to database", zap.Error(err))
	}
	defer func() { _ = pg.Close() }()

	submissionRepo := repository.NewSubmissionRepository(pg.DB())
	gradeRepo := repository.NewGradeRepository(pg.DB())

	kafkaProducer, err := kafka.NewProducer(kafka.Config{Brokers: cfg.Kafka.Brokers})
	if err != nil {
		logger.Fatal(ctx, "cannot create kafka producer", zap.Error(err))
	}
	defer func() { _ = kafkaProducer.Close() }()

	events := metrics.NewPublisher(kafkaProducer, logger)

	redisConn := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Address,
	})
	defer func() { _ = redisConn.Close() }()

	statsClient := client.NewMLStatsClient(client.MLStatsConfig{
		Address:  cfg.Services.MLStats.Address,
		Timeout:  cfg.Services.MLStats.Timeout,
		CacheTTL: cfg.Redis.CacheTTL,
	}, cache.NewRedisCache(redisConn))

	authClient := client.NewAuthClient(client.AuthConfig{
		Address: cfg.Services.Auth.Address,
		Timeout: cfg.Services.Auth.Timeout,
	})

	selector := service.NewSelectorService(submissionRepo, events, cfg.Grading.MinToUseML)
	progress := service.NewProgressService(submissionRepo, cfg.Grading.MinToUseML)
	recorder := service.NewRecorderService(submissionRepo, gradeRepo, events)
	grading := service.NewGradingService(selector, progress, submissionRepo, statsClient, cfg.Grading.MinToUseML)

	handler := httpapi.NewGradingHandler(grading, recorder, progress, logger)

	router := chi.NewRouter()
	router.Use(httpapi.NewLoggingMiddleware(logger))
	handler.RegisterRoutes(router, httpapi.NewAuthMiddleware(authClient))

	worker := NewStaleClaimWorker(submissionRepo, kafkaProducer, logger, cfg.Grading)
	go worker.Start(ctx)

	srv := &http.Server{
		Addr:        cfg.HTTP.Address,
		Handler:     router,
		ReadTimeout: cfg.HTTP.Timeout,
	}

	go func() {
		logger.Info(ctx, "starting http server", zap.String("address", cfg.HTTP.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	logger.Info(ctx, "shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.Timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "shutdown failed", zap.Error(err))
	}
	logger.Info(ctx, "server stopped")
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"studwerk/internal/app"
	"studwerk/internal/config"
	"studwerk/internal/database"
	"studwerk/internal/docstore"
	memorystore "studwerk/internal/docstore/memory"
	pgstore "studwerk/internal/docstore/postgres"
	"studwerk/internal/events"
	apphttp "studwerk/internal/http"
	"studwerk/internal/http/handlers"
	httpmw "studwerk/internal/http/middleware"
	"studwerk/internal/observability"
	"studwerk/internal/repository"
	"studwerk/internal/security"
)

func main() {
	cfg := config.Load()
	logger := observability.NewLogger()

	var store docstore.Store
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db := database.NewPostgres(database.PostgresConfig{
			DSN:             cfg.PostgresDSN,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxIdle:     cfg.DBConnMaxIdle,
			ConnMaxLifetime: cfg.DBConnMaxLife,
			PingDeadline:    cfg.DBPingDeadline,
		})
		defer db.Close()
		pg := pgstore.NewStore(db)
		if err := pg.Migrate(context.Background()); err != nil {
			log.Fatal(err)
		}
		store = pg
	case config.BackendMemory:
		store = memorystore.New(memorystore.WithUniqueGuard("applications", "job_id", "student_id"))
	}

	jobRepo := repository.NewJobRepository(store)
	applicationRepo := repository.NewApplicationRepository(store)

	var publisher events.Publisher = events.NewLogPublisher(logger)
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			log.Fatal(err)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	jobService := app.NewJobService(jobRepo, applicationRepo, publisher)
	applicationService := app.NewApplicationService(applicationRepo, jobRepo, publisher)
	lifecycleService := app.NewLifecycleService(store, jobRepo, applicationRepo, publisher)

	var limiter httpmw.Limiter = httpmw.NewRateLimiter()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal(err)
		}
		limiter = httpmw.NewRedisLimiter(redis.NewClient(opts))
	}

	jwtProvider := security.NewJWTProvider(cfg.JWTSecret)
	jobHandler := handlers.NewJobHandler(jobService, cfg.ListLimit, cfg.MaxListLimit)
	applicationHandler := handlers.NewApplicationHandler(applicationService, lifecycleService, limiter)
	authMiddleware := httpmw.NewAuthMiddleware(jwtProvider)

	router := apphttp.NewRouter(apphttp.RouterDependencies{
		JobHandler:         jobHandler,
		ApplicationHandler: applicationHandler,
		AuthMiddleware:     authMiddleware,
		Logger:             logger,
		RequestTimeout:     cfg.RequestTimeout,
	})
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("API started on :" + cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}

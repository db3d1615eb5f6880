package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/tracktime-io/tracktime/internal/api"
	"github.com/tracktime-io/tracktime/internal/config"
	"github.com/tracktime-io/tracktime/internal/crypto"
	"github.com/tracktime-io/tracktime/internal/jira"
	"github.com/tracktime-io/tracktime/internal/repository"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	if err := config.Load(configPath); err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	cfg := config.Get()

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	db, err := sql.Open("postgres", cfg.Database.GetDSN())
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnLifetime)

	if err := db.Ping(); err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// Repositories
	tokenRepo := repository.NewSQLTokenRepository(db)
	entryRepo := repository.NewSQLEntryRepository(db)
	ticketSystemRepo := repository.NewSQLTicketSystemRepository(db)
	userRepo := repository.NewSQLUserRepository(db)

	// Sync core
	cipher := crypto.NewTokenCipher(cfg.Jira.TokenSecret)
	authService := jira.NewAuthService(tokenRepo, cipher, cfg.Jira.CallbackURL, cfg.Jira.RequestTimeout)
	clientService := jira.NewHTTPClientService(authService, cfg.Jira.RequestTimeout)
	ticketService := jira.NewTicketService(clientService)
	worklogService := jira.NewWorklogService(clientService, authService, ticketService, entryRepo)

	var locker jira.SyncLocker = jira.NewLocalSyncLocker()
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetRedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		locker = jira.NewRedisSyncLocker(redisClient, cfg.Jira.SyncLockTTL)
	}

	integrationService := jira.NewIntegrationService(
		worklogService, authService, ticketSystemRepo, tokenRepo, userRepo, locker,
	)

	// Scheduled bulk sync
	scheduler := cron.New()
	if cfg.Jira.SyncSchedule != "" {
		_, err := scheduler.AddFunc(cfg.Jira.SyncSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()
			integrationService.SyncAll(ctx, cfg.Jira.SyncLimit)
		})
		if err != nil {
			log.Fatalf("invalid sync schedule %q: %v", cfg.Jira.SyncSchedule, err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	// HTTP surface
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.App.Debug {
		router.Use(gin.Logger())
	}

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	handler := api.NewHandler(integrationService, authService, entryRepo, ticketSystemRepo, userRepo, tokenRepo)
	handler.RegisterRoutes(router, metricsPath)

	server := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
}

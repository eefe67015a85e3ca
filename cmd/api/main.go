package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"database/sql"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gridwatch/capri/internal/application"
	appai "github.com/gridwatch/capri/internal/application/ai"
	appfeeds "github.com/gridwatch/capri/internal/application/feeds"
	"github.com/gridwatch/capri/internal/config"
	"github.com/gridwatch/capri/internal/domain/analyst"
	"github.com/gridwatch/capri/internal/domain/threats"
	"github.com/gridwatch/capri/internal/infra/ai/anthropic"
	mysqlp "github.com/gridwatch/capri/internal/infra/db/mysql"
	postgresp "github.com/gridwatch/capri/internal/infra/db/postgres"
	"github.com/gridwatch/capri/internal/infra/feeds"
	"github.com/gridwatch/capri/internal/infra/httpserver"
	minioStore "github.com/gridwatch/capri/internal/infra/storage"
	"github.com/gridwatch/capri/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	zl, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer zl.Sync()
	logger := zl.Sugar()

	ctx := context.Background()

	// connect database per configured driver
	var (
		db          *sql.DB
		analystRepo analyst.Repository
		threatRepo  threats.Repository
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			logger.Fatalw("postgres connect error", "error", err)
		}
		analystRepo = postgresp.NewAnalystRepository(db)
		threatRepo = postgresp.NewThreatRepository(db)
	default:
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			logger.Fatalw("mysql connect error", "error", err)
		}
		analystRepo = mysqlp.NewAnalystRepository(db)
		threatRepo = mysqlp.NewThreatRepository(db)
	}
	defer db.Close()

	// init archive (optional)
	var archive analyst.ReplyArchive
	if cfg.Minio.Endpoint != "" {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			logger.Fatalw("minio init error", "error", err)
		}
		archive = store
	}

	// init AI service; a missing key is a valid state, analysis then
	// degrades to empty results with a warning
	aiSvc := &appai.Service{
		Repo:    analystRepo,
		Archive: archive,
		Clock:   application.SystemClock{},
		Log:     logger,
	}
	if cfg.AI.APIKey != "" {
		client := anthropic.NewClient(cfg.AI.APIKey, cfg.AI.Model)
		aiSvc.Client = client
		aiSvc.Model = client.Model()
	} else {
		logger.Warnw("no AI API key configured; threat analysis will return empty results")
	}

	// init feeds service
	if err := middleware.ValidateFeedURL(cfg.Feeds.CISAURL); err != nil {
		logger.Fatalw("invalid CISA feed URL", "error", err)
	}
	feedsSvc := &appfeeds.Service{
		Fetcher:  feeds.NewCISAClient(cfg.Feeds.CISAURL),
		Repo:     threatRepo,
		Analysis: aiSvc,
		Archive:  archive,
		Clock:    application.SystemClock{},
		Log:      logger,
	}

	// init router
	checkers := map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}
	mux := chi.NewRouter()
	mux.Use(middleware.LoggingMiddleware(logger))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.RateLimitMiddleware(30, 1))
	if len(cfg.Auth.APIKeys) > 0 {
		mux.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
	}
	mux.Mount("/", httpserver.NewRouter(aiSvc, feedsSvc, checkers))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		logger.Infow("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("server error", "error", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Infow("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Errorw("shutdown error", "error", err)
	}
}

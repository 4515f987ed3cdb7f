package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	log "github.com/sirupsen/logrus"

	"github.com/kush-rc/brain-tumor-detection/internal/classifier"
	"github.com/kush-rc/brain-tumor-detection/internal/config"
	"github.com/kush-rc/brain-tumor-detection/internal/dto"
	"github.com/kush-rc/brain-tumor-detection/internal/explain"
	"github.com/kush-rc/brain-tumor-detection/internal/handler"
	"github.com/kush-rc/brain-tumor-detection/internal/middleware"
	"github.com/kush-rc/brain-tumor-detection/internal/repository"
	"github.com/kush-rc/brain-tumor-detection/internal/storage"
	"github.com/kush-rc/brain-tumor-detection/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	initLogger(cfg)

	// Create database pool
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("parse db config: %v", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.Database.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		log.Fatalf("create db pool: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		log.Fatalf("ping db: %v", err)
	}
	log.Info("database connection established")

	// Persistence
	repo := repository.NewPredictionRepository(pool)
	images, err := storage.NewFileImageStore(cfg.Storage.Dir)
	if err != nil {
		log.Fatalf("init image store: %v", err)
	}

	// Model. Loading is lazy; warmup just pulls it forward so the first
	// request does not pay for it.
	holder := classifier.NewHolder(cfg.Model.Path, cfg.Model.FallbackPath)
	if cfg.Model.Warmup {
		if _, err := holder.Get(); err != nil {
			log.WithError(err).Warn("model warmup failed")
		} else {
			log.WithField("path", holder.Path()).Info("model loaded")
		}
	}
	cls := classifier.New(holder)
	engine := explain.NewEngine(cfg.Explain.Timeout)

	// Use cases
	analysisUC := usecase.NewAnalysisUseCase(cls, engine, repo, images, cfg.Explain.Opacity)
	historyUC := usecase.NewHistoryUseCase(repo, images)
	modelUC := usecase.NewModelInfoUseCase(holder)

	h := handler.New(analysisUC, historyUC, modelUC)

	// Setup router
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())

	api := router.Group("/api/v1")
	api.Use(middleware.RateLimit(cfg.RateLimit.Rate))
	h.RegisterRoutes(api)

	// Health check with DB ping
	router.GET("/healthz", func(c *gin.Context) {
		resp := dto.HealthResponse{Status: "ok", Database: "up", ModelLoaded: holder.Loaded()}
		if err := pool.Ping(c.Request.Context()); err != nil {
			resp.Status = "unhealthy"
			resp.Database = "down"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
		c.JSON(http.StatusOK, resp)
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced shutdown: %v", err)
	}

	log.Info("server stopped")
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	if cfg.Logger.File != "" {
		rl, err := rotatelogs.New(
			cfg.Logger.File+"_%Y%m%d",
			rotatelogs.WithMaxAge(7*24*time.Hour),
			rotatelogs.WithRotationTime(24*time.Hour),
		)
		if err != nil {
			log.WithError(err).Warn("log rotation disabled")
			return
		}
		log.SetOutput(rl)
	}
}

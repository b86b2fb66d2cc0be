package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"spec-registry-service/internal/adapters/primary/http/handlers"
	"spec-registry-service/internal/adapters/primary/http/middleware"
	"spec-registry-service/internal/adapters/secondary/xlsx"
	"spec-registry-service/internal/app"
	"spec-registry-service/internal/config"
	"spec-registry-service/internal/core/services"
	"spec-registry-service/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	initLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backends, err := app.Open(ctx, cfg)
	if err != nil {
		backends.Close()
		log.Fatalf("open backends: %v", err)
	}
	defer backends.Close()

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	// ============================================================================
	// Hexagonal Architecture Wiring
	// ============================================================================

	store := services.NewRecordStore(backends.Specifications)
	specSvc := services.NewSpecificationService(store, backends.Blobs, backends.Queue,
		services.WithPresignTTL(cfg.Blob.PresignTTL),
		services.WithArtifactContentType(xlsx.NewFiller().ContentType()))
	groupSvc := services.NewGroupService(backends.Groups, store)

	// An in-memory queue is invisible to a separate renderer process.
	consumerDone := make(chan struct{})
	if backends.InProcess() {
		renderer := services.NewRenderService(
			xlsx.NewBlobTemplates(backends.Blobs, cfg.Template.Prefix, cfg.Template.Default),
			xlsx.NewFiller(),
		)
		consumer := services.NewChangeConsumer(backends.Queue, store, backends.Blobs, renderer,
			services.WithWorkers(cfg.Render.Workers),
			services.WithBatchSize(cfg.Render.BatchSize),
			services.WithObserver(m),
		)
		go func() {
			defer close(consumerDone)
			_ = consumer.Run(ctx)
		}()
		log.Info("in-process change consumer started")
	} else {
		close(consumerDone)
	}

	// Primary Adapter (HTTP Handlers)
	h := handlers.New(specSvc, groupSvc)

	// Setup router
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())
	if cfg.Metrics.Enabled {
		router.Use(middleware.Metrics(m))
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := router.Group("/api/v1/spec-registry")
	h.RegisterRoutes(api)

	router.GET("/healthz", func(c *gin.Context) {
		if err := backends.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("server forced shutdown: %v", err)
	}
	<-consumerDone

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
}

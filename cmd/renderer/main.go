package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

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

	if cfg.Queue.Driver == "memory" {
		log.Fatal("renderer needs a shared queue; set QUEUE_DRIVER to redis or sqs")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backends, err := app.Open(ctx, cfg)
	if err != nil {
		backends.Close()
		log.Fatalf("open backends: %v", err)
	}
	defer backends.Close()

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	renderer := services.NewRenderService(
		xlsx.NewBlobTemplates(backends.Blobs, cfg.Template.Prefix, cfg.Template.Default),
		xlsx.NewFiller(),
	)
	consumer := services.NewChangeConsumer(backends.Queue, services.NewRecordStore(backends.Specifications), backends.Blobs, renderer,
		services.WithWorkers(cfg.Render.Workers),
		services.WithBatchSize(cfg.Render.BatchSize),
		services.WithObserver(m),
	)

	// Health and metrics listener
	router := gin.New()
	router.Use(middleware.RequestID(), gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) {
		if err := backends.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infof("starting health listener on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("health listener error: %v", err)
		}
	}()

	if err := consumer.Run(ctx); err != nil {
		log.Errorf("change consumer: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("health listener forced shutdown: %v", err)
	}

	log.Info("renderer stopped")
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

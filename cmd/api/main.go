package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"expense_tracker/internal/cache"
	"expense_tracker/internal/config"
	"expense_tracker/internal/db"
	"expense_tracker/internal/handler"
	"expense_tracker/internal/middleware"
	"expense_tracker/internal/observability"
	"expense_tracker/internal/ocr"
	"expense_tracker/internal/queue"
	"expense_tracker/internal/storage"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg := config.Load()
	database := db.Init(&cfg.DB)
	defer func() {
		if err := database.Close(); err != nil {
			logrus.WithError(err).Fatal("Failed to close database connection")
		}
	}()

	rdb := cache.SetupRedis(&cfg.Redis)
	defer func() {
		if err := rdb.Close(); err != nil {
			logrus.WithError(err).Fatal("Failed to close redis connection")
		}
	}()

	conn := queue.SetupRabbitMQ(&cfg.RabbitMQ)
	defer func() {
		if err := conn.Close(); err != nil {
			logrus.WithError(err).Fatal("Failed to close RabbitMQ connection")
		}
	}()

	fileStore := storage.SetupMinio(&cfg.Storage)

	// Missing OCR credentials are a configuration error; fail at startup
	// rather than on the first receipt.
	provider, err := ocr.NewVisionClient(ocr.ProviderConfig{
		CredentialsJSON: cfg.Vision.CredentialsJSON,
		CredentialsFile: cfg.Vision.CredentialsFile,
		Endpoint:        cfg.Vision.Endpoint,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to construct OCR provider")
	}
	runner := ocr.NewRunner(provider, cache.NewOCRCache(rdb))

	// Initialize Prometheus metrics
	observability.InitMetrics()
	logrus.Info("Metrics initialized")

	r := handler.SetupHandler(database, conn, rdb, fileStore, runner, cfg)

	// Add Prometheus middleware
	r.Use(middleware.PrometheusMiddleware(observability.GlobalMetrics))

	// Expose /metrics endpoint for Prometheus to scrape
	r.GET("/metrics", func(c *gin.Context) {
		promhttp.Handler().ServeHTTP(c.Writer, c.Request)
	})
	logrus.Info("Metrics endpoint exposed at /metrics")

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logrus.Info("Starting server on :" + cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")
}

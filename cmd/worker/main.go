package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"expense_tracker/internal/cache"
	"expense_tracker/internal/config"
	"expense_tracker/internal/db"
	"expense_tracker/internal/expense"
	"expense_tracker/internal/export"
	"expense_tracker/internal/observability"
	"expense_tracker/internal/ocr"
	"expense_tracker/internal/queue"
	"expense_tracker/internal/storage"
	"expense_tracker/internal/task"
	"expense_tracker/internal/worker"
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
			logrus.Fatalf("Failed to close RabbitMQ connection")
		}
	}()

	fileStore := storage.SetupMinio(&cfg.Storage)

	provider, err := ocr.NewVisionClient(ocr.ProviderConfig{
		CredentialsJSON: cfg.Vision.CredentialsJSON,
		CredentialsFile: cfg.Vision.CredentialsFile,
		Endpoint:        cfg.Vision.Endpoint,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to construct OCR provider")
	}
	runner := ocr.NewRunner(provider, cache.NewOCRCache(rdb))

	taskRepo := task.NewTaskRepository()
	expenseRepo := expense.NewExpenseRepository()
	exportService := export.NewExportService(expenseRepo, database, fileStore)

	processor := task.NewProcessor(
		taskRepo,
		expense.NewStore(expenseRepo, database),
		database,
		fileStore,
		runner,
		exportService,
		cache.NewTaskCache(rdb),
		ocr.RunOptions{
			Template:        cfg.OCR.Template,
			UseCache:        cfg.OCR.UseCache,
			PreprocessImage: cfg.OCR.PreprocessImage,
			MaxRetries:      cfg.OCR.MaxRetries,
		},
	)

	consumerChannel, err := queue.CreateChannel(conn)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create RabbitMQ channel")
	}

	if _, err := queue.DeclareQueue(consumerChannel, queue.TaskQueue); err != nil {
		logrus.WithError(err).Fatal("Failed to declare RabbitMQ queue")
	}

	if err := consumerChannel.Close(); err != nil {
		logrus.WithError(err).Fatal("Failed to close RabbitMQ channel")
	}

	// Initialize Prometheus metrics
	observability.InitMetrics()
	logrus.Info("Metrics initialized")

	// Start metrics HTTP server for Prometheus scraping
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		logrus.Info("Worker metrics server started on :8088")
		if err := http.ListenAndServe(":8088", nil); err != nil {
			logrus.WithError(err).Fatal("Failed to start metrics server")
		}
	}()

	for i := 1; i <= 3; i++ {
		go worker.StartWorker(conn, database, taskRepo, processor, i)
	}

	select {}
}

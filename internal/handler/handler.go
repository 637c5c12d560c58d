package handler

import (
	"database/sql"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/rabbitmq/amqp091-go"

	"expense_tracker/internal/cache"
	"expense_tracker/internal/config"
	"expense_tracker/internal/expense"
	"expense_tracker/internal/export"
	"expense_tracker/internal/middleware"
	"expense_tracker/internal/ocr"
	"expense_tracker/internal/storage"
	"expense_tracker/internal/task"
	"expense_tracker/internal/trip"
	"expense_tracker/internal/user"
)

// SetupHandler initializes all dependencies and routes
func SetupHandler(
	db *sql.DB,
	conn *amqp091.Connection,
	redisClient *redis.Client,
	fileStore storage.FileStore,
	recognizer task.Recognizer,
	cfg *config.Config,
) *gin.Engine {

	r := gin.Default()

	// Initialize repositories
	userRepo := user.NewUserRepository()
	tripRepo := trip.NewTripRepository()
	expenseRepo := expense.NewExpenseRepository()
	taskRepo := task.NewTaskRepository()

	// Initialize services
	userService := user.NewUserService(userRepo, db)
	tripService := trip.NewTripService(tripRepo, db)
	expenseService := expense.NewExpenseService(expenseRepo, db)
	taskService := task.NewTaskService(taskRepo, db, conn, redisClient)
	exportService := export.NewExportService(expenseRepo, db, fileStore)

	// The processor shares the API process so clients can drive tasks
	// synchronously through the processing endpoint.
	processor := task.NewProcessor(
		taskRepo,
		expense.NewStore(expenseRepo, db),
		db,
		fileStore,
		recognizer,
		exportService,
		cache.NewTaskCache(redisClient),
		ocr.RunOptions{
			Template:        cfg.OCR.Template,
			UseCache:        cfg.OCR.UseCache,
			PreprocessImage: cfg.OCR.PreprocessImage,
			MaxRetries:      cfg.OCR.MaxRetries,
		},
	)

	// Initialize controllers
	userController := user.NewUserController(userService, cfg.JWT.Secret)
	tripController := trip.NewTripController(tripService)
	expenseController := expense.NewExpenseController(expenseService, fileStore, taskService)
	taskController := task.NewTaskController(taskService, processor)

	// Public routes - Authentication
	userController.SetupRoutes(r)

	// Protected routes - API v1
	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	api.Use(middleware.RateLimiterMiddleware(redisClient, middleware.DefaultRateLimiterConfig()))
	{
		tripController.SetupRoutes(api)
		expenseController.SetupRoutes(api)
		taskController.SetupRoutes(api)
	}

	return r
}

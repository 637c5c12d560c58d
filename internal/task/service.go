package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"expense_tracker/internal/apperr"
	"expense_tracker/internal/cache"
	"expense_tracker/internal/observability"
	"expense_tracker/internal/queue"
	"expense_tracker/internal/utils"
)

type TaskServiceInterface interface {
	CreateTask(userID int, taskType string, params interface{}) (int, error)
	GetTask(userID, taskID int) (*Task, error)
	GetTasks(userID int) ([]*Task, error)
}

type TaskService struct {
	repo  TaskRepositoryInterface
	conn  *amqp.Connection
	DB    *sql.DB
	cache *cache.TaskCache
}

func NewTaskService(repo TaskRepositoryInterface, db *sql.DB, conn *amqp.Connection, redisClient *redis.Client) TaskServiceInterface {
	return &TaskService{
		repo:  repo,
		DB:    db,
		conn:  conn,
		cache: cache.NewTaskCache(redisClient),
	}
}

// CreateTask inserts a pending task and publishes its envelope to the queue.
// Params are stored on the row so the processor can read them back later.
func (s *TaskService) CreateTask(userID int, taskType string, params interface{}) (int, error) {
	if userID == 0 {
		return 0, apperr.Validationf("user id is required")
	}
	if !ValidType(taskType) {
		return 0, apperr.Validationf("invalid task type: %s", taskType)
	}

	task := &Task{
		UserID:   userID,
		TaskType: taskType,
		Status:   StatusPending,
	}
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return 0, apperr.Validationf("invalid task params: %v", err)
		}
		task.Result = encoded
	}

	if err := utils.WithTransaction(s.DB, func(tx *sql.Tx) error {
		taskID, err := s.repo.Create(tx, task)
		if err != nil {
			return err
		}
		task.ID = taskID
		return nil
	}); err != nil {
		return 0, err
	}

	if observability.GlobalMetrics != nil {
		observability.GlobalMetrics.TasksCreatedTotal.WithLabelValues(taskType).Inc()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.cache.Invalidate(ctx, task.ID, userID); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate task cache")
	}

	if err := s.publish(task); err != nil {
		logrus.WithError(err).Error("Failed to publish task to queue")
		return 0, err
	}

	logrus.WithFields(logrus.Fields{
		"task_id":   task.ID,
		"user_id":   userID,
		"task_type": taskType,
	}).Info("Task created and queued")

	return task.ID, nil
}

func (s *TaskService) publish(task *Task) error {
	ch, err := queue.CreateChannel(s.conn)
	if err != nil {
		return err
	}
	defer ch.Close()

	body, err := json.Marshal(QueueMessage{
		ID:       task.ID,
		UserID:   task.UserID,
		TaskType: task.TaskType,
	})
	if err != nil {
		return err
	}

	if err := ch.Publish(
		"",
		queue.TaskQueue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	); err != nil {
		return err
	}

	if observability.GlobalMetrics != nil {
		observability.GlobalMetrics.QueueMessagesPublished.WithLabelValues(queue.TaskQueue).Inc()
	}
	return nil
}

// GetTask retrieves a task owned by the given user, read-through cached.
func (s *TaskService) GetTask(userID, taskID int) (*Task, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cacheKey := cache.TaskKey(taskID)
	cachedData, err := s.cache.Get(ctx, cacheKey)
	if err == nil && cachedData != nil {
		var task Task
		if json.Unmarshal(cachedData, &task) == nil {
			countCache("task", true)
			if task.UserID != userID {
				return nil, apperr.NotFoundf("task %d", taskID)
			}
			return &task, nil
		}
	}
	countCache("task", false)

	task, err := s.repo.GetByID(s.DB, taskID)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, apperr.NotFoundf("task %d", taskID)
	}

	if err := s.cache.Set(ctx, cacheKey, task); err != nil {
		logrus.WithError(err).Warn("Failed to set cache for task")
	}

	return task, nil
}

func (s *TaskService) GetTasks(userID int) ([]*Task, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cacheKey := cache.UserTasksKey(userID)
	cachedData, err := s.cache.Get(ctx, cacheKey)
	if err == nil && cachedData != nil {
		var tasks []*Task
		if json.Unmarshal(cachedData, &tasks) == nil {
			countCache("user_tasks", true)
			return tasks, nil
		}
	}
	countCache("user_tasks", false)

	tasks, err := s.repo.GetByUserID(s.DB, userID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey, tasks); err != nil {
		logrus.WithError(err).Warn("Failed to set cache for user tasks")
	}

	return tasks, nil
}

func countCache(keyType string, hit bool) {
	if observability.GlobalMetrics == nil {
		return
	}
	if hit {
		observability.GlobalMetrics.CacheHitsTotal.WithLabelValues(keyType).Inc()
	} else {
		observability.GlobalMetrics.CacheMissesTotal.WithLabelValues(keyType).Inc()
	}
}

package task

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"expense_tracker/internal/apperr"
	"expense_tracker/internal/auth"
)

type TaskController struct {
	taskService TaskServiceInterface
	processor   ProcessorInterface
}

func NewTaskController(taskService TaskServiceInterface, processor ProcessorInterface) *TaskController {
	return &TaskController{
		taskService: taskService,
		processor:   processor,
	}
}

// SetupRoutes registers task routes on an authenticated group
func (t *TaskController) SetupRoutes(rg *gin.RouterGroup) {
	tasks := rg.Group("/tasks")
	{
		tasks.POST("", t.CreateTask)
		tasks.GET("", t.GetTasks)
		tasks.GET("/:id", t.GetTask)
		tasks.POST("/process", t.ProcessNext)
	}
}

func (t *TaskController) CreateTask(c *gin.Context) {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		TaskType string          `json:"task_type" binding:"required"`
		Params   json.RawMessage `json:"params"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var params interface{}
	if len(req.Params) > 0 {
		params = req.Params
	}

	taskID, err := t.taskService.CreateTask(userID, req.TaskType, params)
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": apperr.Message(err)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Task created successfully",
		"task_id": taskID,
	})
}

func (t *TaskController) GetTasks(c *gin.Context) {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	tasks, err := t.taskService.GetTasks(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get tasks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (t *TaskController) GetTask(c *gin.Context) {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	taskID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID"})
		return
	}

	task, err := t.taskService.GetTask(userID, taskID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get task"})
		return
	}

	c.JSON(http.StatusOK, task)
}

// ProcessNext synchronously advances the caller's oldest pending task and
// returns the typed outcome.
func (t *TaskController) ProcessNext(c *gin.Context) {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	outcome, err := t.processor.ProcessNext(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process task"})
		return
	}

	if outcome.Err != "" {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   outcome.Err,
			"task_id": outcome.TaskID,
		})
		return
	}

	c.JSON(http.StatusOK, outcome)
}

package expense

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"expense_tracker/internal/apperr"
	"expense_tracker/internal/auth"
	"expense_tracker/internal/storage"
)

// maxReceiptSize caps uploads at 10 MB, matching typical provider limits.
const maxReceiptSize = 10 << 20

// TaskCreator is the slice of the task service the receipt upload endpoint
// needs to enqueue OCR work.
type TaskCreator interface {
	CreateTask(userID int, taskType string, params interface{}) (int, error)
}

type ExpenseController struct {
	expenseService ExpenseServiceInterface
	fileStore      storage.FileStore
	taskCreator    TaskCreator
}

func NewExpenseController(expenseService ExpenseServiceInterface, fileStore storage.FileStore, taskCreator TaskCreator) *ExpenseController {
	return &ExpenseController{
		expenseService: expenseService,
		fileStore:      fileStore,
		taskCreator:    taskCreator,
	}
}

// SetupRoutes registers expense routes on an authenticated group
func (e *ExpenseController) SetupRoutes(rg *gin.RouterGroup) {
	expenses := rg.Group("/expenses")
	{
		expenses.POST("", e.CreateExpense)
		expenses.GET("", e.GetExpenses)
		expenses.GET("/:id", e.GetExpense)
		expenses.PUT("/:id", e.UpdateExpense)
		expenses.DELETE("/:id", e.DeleteExpense)
		expenses.POST("/:id/receipt", e.UploadReceipt)
	}
}

type expenseRequest struct {
	TripID   *int   `json:"trip_id"`
	Vendor   string `json:"vendor" binding:"max=200"`
	Date     string `json:"date"`
	Cost     string `json:"cost"`
	Location string `json:"location" binding:"max=200"`
	Type     string `json:"type" binding:"max=100"`
	Comments string `json:"comments"`
}

func (e *ExpenseController) CreateExpense(c *gin.Context) {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req expenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	expense := &Expense{
		UserID:   userID,
		TripID:   req.TripID,
		Vendor:   req.Vendor,
		Date:     req.Date,
		Cost:     req.Cost,
		Location: req.Location,
		Type:     req.Type,
		Comments: req.Comments,
	}

	id, err := e.expenseService.CreateExpense(expense)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create expense"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Expense created successfully",
		"expense_id": id,
	})
}

func (e *ExpenseController) GetExpenses(c *gin.Context) {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	expenses, err := e.expenseService.GetExpenses(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get expenses"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"expenses": expenses})
}

func (e *ExpenseController) GetExpense(c *gin.Context) {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	expenseID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expense ID"})
		return
	}

	expense, err := e.expenseService.GetExpense(userID, expenseID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get expense"})
		return
	}

	c.JSON(http.StatusOK, expense)
}

func (e *ExpenseController) UpdateExpense(c *gin.Context) {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	expenseID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expense ID"})
		return
	}

	var req expenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	expense := &Expense{
		ID:       expenseID,
		UserID:   userID,
		TripID:   req.TripID,
		Vendor:   req.Vendor,
		Date:     req.Date,
		Cost:     req.Cost,
		Location: req.Location,
		Type:     req.Type,
		Comments: req.Comments,
	}

	updated, err := e.expenseService.UpdateExpense(userID, expense)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update expense"})
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (e *ExpenseController) DeleteExpense(c *gin.Context) {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	expenseID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expense ID"})
		return
	}

	if err := e.expenseService.DeleteExpense(userID, expenseID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete expense"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Expense deleted successfully"})
}

// UploadReceipt stores the receipt image in object storage, records its path
// on the expense and enqueues a receipt_ocr task for it.
func (e *ExpenseController) UploadReceipt(c *gin.Context) {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	expenseID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expense ID"})
		return
	}

	fileHeader, err := c.FormFile("receipt")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Receipt file is required"})
		return
	}
	if fileHeader.Size > maxReceiptSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Receipt file too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read receipt file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read receipt file"})
		return
	}

	receiptPath := fmt.Sprintf("receipts/user_%d/%s%s", userID, uuid.NewString(), filepath.Ext(fileHeader.Filename))
	contentType := fileHeader.Header.Get("Content-Type")

	if err := e.fileStore.Upload(c.Request.Context(), receiptPath, data, contentType); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store receipt"})
		return
	}

	if err := e.expenseService.AttachReceipt(userID, expenseID, receiptPath); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to attach receipt"})
		return
	}

	taskID, err := e.taskCreator.CreateTask(userID, "receipt_ocr", struct {
		ExpenseID   int    `json:"expenseId"`
		ReceiptPath string `json:"receiptPath"`
	}{
		ExpenseID:   expenseID,
		ReceiptPath: receiptPath,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue OCR task"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":      "Receipt uploaded successfully",
		"receipt_path": receiptPath,
		"task_id":      taskID,
	})
}

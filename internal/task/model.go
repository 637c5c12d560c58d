package task

import (
	"encoding/json"
	"time"

	"expense_tracker/internal/ocr"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const (
	TypeBatchUpload   = "batch_upload"
	TypeExpenseExport = "expense_export"
	TypeReceiptOCR    = "receipt_ocr"
)

// ValidType reports whether the type belongs to the closed set accepted at
// creation time. The processor additionally guards against unknown types at
// dispatch, since rows may predate a type's removal.
func ValidType(taskType string) bool {
	switch taskType {
	case TypeBatchUpload, TypeExpenseExport, TypeReceiptOCR:
		return true
	}
	return false
}

// Task tracks one unit of asynchronous work. The result column carries the
// task's input parameters while pending and is overwritten with the outcome
// payload once the task completes.
type Task struct {
	ID           int             `json:"id"`
	UserID       int             `json:"user_id"`
	TaskType     string          `json:"task_type"`
	Status       string          `json:"status"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Parameter and result payloads use camelCase keys; that is the wire contract
// clients submit and poll against, independent of the snake_case row fields.

type ReceiptOCRParams struct {
	ExpenseID   int    `json:"expenseId"`
	ReceiptPath string `json:"receiptPath"`
	Template    string `json:"template,omitempty"`
}

type ExpenseExportParams struct {
	Template string `json:"template,omitempty"`
}

type BatchUploadParams struct {
	ReceiptPaths []string `json:"receiptPaths"`
	TripID       *int     `json:"tripId,omitempty"`
	Template     string   `json:"template,omitempty"`
}

type ReceiptOCRResult struct {
	Message       string           `json:"message"`
	ExpenseID     int              `json:"expenseId"`
	ExtractedData *ocr.ReceiptData `json:"extractedData"`
}

type ExpenseExportResult struct {
	Message  string `json:"message"`
	FilePath string `json:"filePath"`
}

type BatchUploadResult struct {
	Message string `json:"message"`
	Created int    `json:"created"`
	Failed  int    `json:"failed"`
}

// QueueMessage is the envelope published to the task queue. The consumer
// re-reads the authoritative row; the envelope only identifies it.
type QueueMessage struct {
	ID       int    `json:"id"`
	UserID   int    `json:"user_id"`
	TaskType string `json:"task_type"`
}

package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"expense_tracker/internal/apperr"
	"expense_tracker/internal/cache"
	"expense_tracker/internal/expense"
	"expense_tracker/internal/observability"
	"expense_tracker/internal/ocr"
	"expense_tracker/internal/storage"
)

// NoPendingTasks is the outcome message when the user has nothing queued.
const NoPendingTasks = "No pending tasks found"

// Recognizer runs OCR with the orchestration knobs applied. Satisfied by
// *ocr.Runner.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, mimeType string, opts ocr.RunOptions) ocr.RecognizeResult
}

// ExpenseStore is the expense surface the processor mutates. Satisfied by
// *expense.Store.
type ExpenseStore interface {
	GetExpense(id int) (*expense.Expense, error)
	UpdateExpense(id int, patch expense.Patch) error
	SetExpenseStatus(id int, status string) error
	CreateExpense(e *expense.Expense) (int, error)
}

// Exporter renders a user's expenses to a file and returns its storage path.
type Exporter interface {
	ExportExpenses(ctx context.Context, userID int, template string) (string, error)
}

// Outcome is the typed result of one processing invocation. Err is the task
// failure message; transport errors travel separately as Go errors.
type Outcome struct {
	Message       string           `json:"message"`
	TaskID        int              `json:"taskId,omitempty"`
	ExpenseID     int              `json:"expenseId,omitempty"`
	ExtractedData *ocr.ReceiptData `json:"extractedData,omitempty"`
	FilePath      string           `json:"filePath,omitempty"`
	Created       int              `json:"created,omitempty"`
	Failed        int              `json:"failed,omitempty"`
	Err           string           `json:"error,omitempty"`
}

// ProcessorInterface is what the HTTP controller and the queue worker drive.
type ProcessorInterface interface {
	ProcessNext(ctx context.Context, userID int) (*Outcome, error)
	ProcessTask(ctx context.Context, t *Task) *Outcome
}

// Processor advances tasks through their lifecycle. One task moves at most
// one state forward per invocation; every path out of processing is terminal.
type Processor struct {
	repo       TaskRepositoryInterface
	expenses   ExpenseStore
	db         *sql.DB
	fileStore  storage.FileStore
	recognizer Recognizer
	exporter   Exporter
	cache      *cache.TaskCache // nil skips invalidation
	runOpts    ocr.RunOptions
}

func NewProcessor(
	repo TaskRepositoryInterface,
	expenses ExpenseStore,
	db *sql.DB,
	fileStore storage.FileStore,
	recognizer Recognizer,
	exporter Exporter,
	taskCache *cache.TaskCache,
	runOpts ocr.RunOptions,
) *Processor {
	return &Processor{
		repo:       repo,
		expenses:   expenses,
		db:         db,
		fileStore:  fileStore,
		recognizer: recognizer,
		exporter:   exporter,
		cache:      taskCache,
		runOpts:    runOpts,
	}
}

// ProcessNext claims and processes the user's oldest pending task. When every
// pending task is claimed by a concurrent processor first, the call reports
// no pending tasks rather than blocking.
func (p *Processor) ProcessNext(ctx context.Context, userID int) (*Outcome, error) {
	tasks, err := p.repo.GetByUserID(p.db, userID)
	if err != nil {
		return nil, err
	}

	for _, t := range tasks {
		if t.Status != StatusPending {
			continue
		}
		claimed, err := p.repo.MarkProcessing(p.db, t.ID)
		if err != nil {
			return nil, err
		}
		if !claimed {
			continue
		}
		p.invalidate(ctx, t)
		return p.ProcessTask(ctx, t), nil
	}

	return &Outcome{Message: NoPendingTasks}, nil
}

// ProcessTask runs one claimed task to a terminal status. Panics are caught
// and recorded on the task so it never sticks in processing.
func (p *Processor) ProcessTask(ctx context.Context, t *Task) (outcome *Outcome) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"task_id": t.ID,
				"panic":   r,
			}).Error("Panic during task processing")
			outcome = p.fail(ctx, t, fmt.Sprintf("%v", r))
		}
		if observability.GlobalMetrics != nil {
			observability.GlobalMetrics.TaskProcessingDuration.WithLabelValues(t.TaskType).Observe(time.Since(start).Seconds())
		}
	}()

	logrus.WithFields(logrus.Fields{
		"task_id":   t.ID,
		"task_type": t.TaskType,
		"user_id":   t.UserID,
	}).Info("Processing task")

	switch t.TaskType {
	case TypeReceiptOCR:
		outcome = p.processReceiptOCR(ctx, t)
	case TypeExpenseExport:
		outcome = p.processExpenseExport(ctx, t)
	case TypeBatchUpload:
		outcome = p.processBatchUpload(ctx, t)
	default:
		outcome = p.fail(ctx, t, fmt.Sprintf("Unknown task type: %s", t.TaskType))
	}

	return outcome
}

func (p *Processor) processReceiptOCR(ctx context.Context, t *Task) *Outcome {
	var params ReceiptOCRParams
	if len(t.Result) > 0 {
		if err := json.Unmarshal(t.Result, &params); err != nil {
			return p.fail(ctx, t, fmt.Sprintf("Invalid task parameters: %v", err))
		}
	}
	if params.ExpenseID == 0 || params.ReceiptPath == "" {
		return p.fail(ctx, t, "Missing required parameters: expenseId and receiptPath")
	}

	exp, err := p.expenses.GetExpense(params.ExpenseID)
	if err != nil {
		return p.fail(ctx, t, apperr.Message(err))
	}

	data, contentType, err := p.fileStore.Download(ctx, params.ReceiptPath)
	if err != nil {
		return p.fail(ctx, t, fmt.Sprintf("Failed to download receipt: %v", err))
	}
	if len(data) == 0 {
		return p.fail(ctx, t, "Receipt file is empty or missing")
	}

	opts := p.runOpts
	if params.Template != "" {
		opts.Template = params.Template
	}

	res := p.recognizer.Recognize(ctx, data, contentType, opts)
	if !res.Success {
		if err := p.expenses.SetExpenseStatus(exp.ID, expense.StatusOCRFailed); err != nil {
			logrus.WithError(err).Error("Failed to flag expense after OCR failure")
		}
		return p.fail(ctx, t, res.Error)
	}

	extracted := ocr.ExtractReceiptData(res.Text)
	patch := expense.BuildReconcilePatch(exp, &extracted)
	if err := p.expenses.UpdateExpense(exp.ID, patch); err != nil {
		return p.fail(ctx, t, fmt.Sprintf("Failed to update expense: %v", err))
	}

	return p.complete(ctx, t, ReceiptOCRResult{
		Message:       "Receipt processed successfully",
		ExpenseID:     exp.ID,
		ExtractedData: &extracted,
	}, &Outcome{
		Message:       "Receipt processed successfully",
		TaskID:        t.ID,
		ExpenseID:     exp.ID,
		ExtractedData: &extracted,
	})
}

func (p *Processor) processExpenseExport(ctx context.Context, t *Task) *Outcome {
	var params ExpenseExportParams
	if len(t.Result) > 0 {
		if err := json.Unmarshal(t.Result, &params); err != nil {
			return p.fail(ctx, t, fmt.Sprintf("Invalid task parameters: %v", err))
		}
	}

	filePath, err := p.exporter.ExportExpenses(ctx, t.UserID, params.Template)
	if err != nil {
		return p.fail(ctx, t, apperr.Message(err))
	}

	return p.complete(ctx, t, ExpenseExportResult{
		Message:  "Export completed successfully",
		FilePath: filePath,
	}, &Outcome{
		Message:  "Export completed successfully",
		TaskID:   t.ID,
		FilePath: filePath,
	})
}

func (p *Processor) processBatchUpload(ctx context.Context, t *Task) *Outcome {
	var params BatchUploadParams
	if len(t.Result) > 0 {
		if err := json.Unmarshal(t.Result, &params); err != nil {
			return p.fail(ctx, t, fmt.Sprintf("Invalid task parameters: %v", err))
		}
	}
	if len(params.ReceiptPaths) == 0 {
		return p.fail(ctx, t, "Missing required parameter: receiptPaths")
	}

	opts := p.runOpts
	if params.Template != "" {
		opts.Template = params.Template
	}

	created, failed := 0, 0
	for _, path := range params.ReceiptPaths {
		if err := p.createExpenseFromReceipt(ctx, t.UserID, params.TripID, path, opts); err != nil {
			logrus.WithError(err).WithField("receipt_path", path).Warn("Batch upload entry failed")
			failed++
			continue
		}
		created++
	}

	message := fmt.Sprintf("Batch upload processed: %d created, %d failed", created, failed)
	return p.complete(ctx, t, BatchUploadResult{
		Message: message,
		Created: created,
		Failed:  failed,
	}, &Outcome{
		Message: message,
		TaskID:  t.ID,
		Created: created,
		Failed:  failed,
	})
}

// createExpenseFromReceipt OCRs one stored receipt and inserts a new expense
// from whatever fields the extraction yields.
func (p *Processor) createExpenseFromReceipt(ctx context.Context, userID int, tripID *int, path string, opts ocr.RunOptions) error {
	data, contentType, err := p.fileStore.Download(ctx, path)
	if err != nil {
		return fmt.Errorf("download receipt: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("receipt file is empty: %s", path)
	}

	res := p.recognizer.Recognize(ctx, data, contentType, opts)
	if !res.Success {
		return fmt.Errorf("%w: %s", apperr.ErrProvider, res.Error)
	}

	extracted := ocr.ExtractReceiptData(res.Text)
	exp := &expense.Expense{
		UserID:      userID,
		TripID:      tripID,
		Vendor:      extracted.Vendor,
		Date:        extracted.Date,
		Cost:        extracted.Total,
		Location:    extracted.Location,
		Type:        extracted.Category,
		Comments:    extracted.Description,
		Status:      expense.StatusComplete,
		ReceiptPath: path,
	}
	if exp.Vendor == "" {
		exp.Vendor = expense.PlaceholderVendor
	}
	if exp.Cost == "" {
		exp.Cost = expense.PlaceholderCost
	}
	if exp.Location == "" {
		exp.Location = expense.PlaceholderLocation
	}
	if exp.Type == "" {
		exp.Type = expense.PlaceholderType
	}

	_, err = p.expenses.CreateExpense(exp)
	return err
}

func (p *Processor) complete(ctx context.Context, t *Task, result interface{}, outcome *Outcome) *Outcome {
	encoded, err := json.Marshal(result)
	if err != nil {
		return p.fail(ctx, t, fmt.Sprintf("Failed to encode task result: %v", err))
	}
	if err := p.repo.MarkCompleted(p.db, t.ID, encoded); err != nil {
		logrus.WithError(err).WithField("task_id", t.ID).Error("Failed to mark task completed")
		return p.fail(ctx, t, fmt.Sprintf("Failed to record task result: %v", err))
	}
	p.invalidate(ctx, t)
	countProcessed(t.TaskType, StatusCompleted)

	logrus.WithFields(logrus.Fields{
		"task_id":   t.ID,
		"task_type": t.TaskType,
	}).Info("Task completed")

	return outcome
}

func (p *Processor) fail(ctx context.Context, t *Task, message string) *Outcome {
	if err := p.repo.MarkFailed(p.db, t.ID, message); err != nil {
		logrus.WithError(err).WithField("task_id", t.ID).Error("Failed to mark task failed")
	}
	p.invalidate(ctx, t)
	countProcessed(t.TaskType, StatusFailed)
	if observability.GlobalMetrics != nil {
		observability.GlobalMetrics.TasksFailedTotal.WithLabelValues(t.TaskType, "processing").Inc()
	}

	logrus.WithFields(logrus.Fields{
		"task_id":   t.ID,
		"task_type": t.TaskType,
		"error":     message,
	}).Warn("Task failed")

	return &Outcome{TaskID: t.ID, Err: message}
}

func (p *Processor) invalidate(ctx context.Context, t *Task) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Invalidate(ctx, t.ID, t.UserID); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate task cache")
	}
}

func countProcessed(taskType, status string) {
	if observability.GlobalMetrics != nil {
		observability.GlobalMetrics.TasksProcessedTotal.WithLabelValues(taskType, status).Inc()
	}
}

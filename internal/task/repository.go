package task

import (
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/sirupsen/logrus"

	"expense_tracker/internal/apperr"
)

type TaskRepository struct{}

type TaskRepositoryInterface interface {
	Create(tx *sql.Tx, task *Task) (int, error)
	GetByID(db *sql.DB, id int) (*Task, error)
	GetByUserID(db *sql.DB, userID int) ([]*Task, error)
	MarkProcessing(db *sql.DB, id int) (bool, error)
	MarkCompleted(db *sql.DB, id int, result json.RawMessage) error
	MarkFailed(db *sql.DB, id int, errorMessage string) error
}

func NewTaskRepository() TaskRepositoryInterface {
	return &TaskRepository{}
}

func (r *TaskRepository) Create(tx *sql.Tx, task *Task) (int, error) {
	query := `
		INSERT INTO tasks (
			user_id, task_type, status, result, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id
	`

	var result interface{}
	if len(task.Result) > 0 {
		result = []byte(task.Result)
	}

	var id int
	err := tx.QueryRow(
		query,
		task.UserID,
		task.TaskType,
		task.Status,
		result,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	return id, nil
}

func (r *TaskRepository) GetByID(db *sql.DB, id int) (*Task, error) {
	query := `
		SELECT
			id, user_id, task_type, status,
			result, error_message,
			created_at, updated_at
		FROM tasks
		WHERE id = $1
	`

	row := db.QueryRow(query, id)

	var t Task
	var result []byte
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.TaskType,
		&t.Status,
		&result,
		&t.ErrorMessage,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFoundf("task %d", id)
		}
		return nil, err
	}
	t.Result = result

	return &t, nil
}

// GetByUserID returns the user's tasks oldest first. The processor depends on
// this ordering to pick the oldest pending task.
func (r *TaskRepository) GetByUserID(db *sql.DB, userID int) ([]*Task, error) {
	query := `
		SELECT
			id, user_id, task_type, status,
			result, error_message,
			created_at, updated_at
		FROM tasks
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		var t Task
		var result []byte
		err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.TaskType,
			&t.Status,
			&result,
			&t.ErrorMessage,
			&t.CreatedAt,
			&t.UpdatedAt,
		)
		if err != nil {
			logrus.Error("Error scanning task row: ", err)
			continue
		}
		t.Result = result
		tasks = append(tasks, &t)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return tasks, nil
}

// MarkProcessing claims a pending task. The conditional update makes the
// claim atomic; a false return means another processor won the race.
func (r *TaskRepository) MarkProcessing(db *sql.DB, id int) (bool, error) {
	query := `
		UPDATE tasks
		SET status = 'processing', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	result, err := db.Exec(query, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 1 {
		logrus.Info("Marked task as processing: ", id)
	}

	return affected == 1, nil
}

func (r *TaskRepository) MarkCompleted(db *sql.DB, id int, result json.RawMessage) error {
	query := `
		UPDATE tasks
		SET status = 'completed',
		    result = $1,
		    error_message = NULL,
		    updated_at = NOW()
		WHERE id = $2
	`
	_, err := db.Exec(query, []byte(result), id)
	return err
}

func (r *TaskRepository) MarkFailed(db *sql.DB, id int, errorMessage string) error {
	query := `
		UPDATE tasks
		SET status = 'failed',
		    result = NULL,
		    error_message = $1,
		    updated_at = NOW()
		WHERE id = $2
	`
	_, err := db.Exec(query, errorMessage, id)
	return err
}

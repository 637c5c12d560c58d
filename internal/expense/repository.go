package expense

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"expense_tracker/internal/apperr"
)

type ExpenseRepository struct{}

type ExpenseRepositoryInterface interface {
	Create(tx *sql.Tx, expense *Expense) (int, error)
	GetByID(db *sql.DB, id int) (*Expense, error)
	GetByUserID(db *sql.DB, userID int) ([]Expense, error)
	Update(db *sql.DB, id int, patch Patch) error
	UpdateDetails(db *sql.DB, expense *Expense) error
	UpdateStatus(db *sql.DB, id int, status string) error
	Delete(db *sql.DB, id int) error
}

func NewExpenseRepository() ExpenseRepositoryInterface {
	return &ExpenseRepository{}
}

// patchColumns is the closed set of columns a partial update may touch.
// Iterating this list keeps the generated SQL deterministic.
var patchColumns = []string{"vendor", "date", "cost", "location", "type", "comments", "status", "receipt_path"}

func (r *ExpenseRepository) Create(tx *sql.Tx, expense *Expense) (int, error) {
	query := `
		INSERT INTO expenses (
			user_id, trip_id, vendor, date, cost, location, type,
			comments, status, receipt_path, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id
	`

	var id int
	err := tx.QueryRow(query,
		expense.UserID,
		expense.TripID,
		expense.Vendor,
		expense.Date,
		expense.Cost,
		expense.Location,
		expense.Type,
		expense.Comments,
		expense.Status,
		expense.ReceiptPath,
	).Scan(&id)
	if err != nil {
		logrus.WithError(err).Error("Failed to create expense")
		return 0, err
	}

	logrus.WithFields(logrus.Fields{
		"expense_id": id,
		"user_id":    expense.UserID,
	}).Info("Expense created successfully")

	return id, nil
}

func (r *ExpenseRepository) GetByID(db *sql.DB, id int) (*Expense, error) {
	query := `
		SELECT id, user_id, trip_id, vendor, date, cost, location, type,
		       comments, status, receipt_path, created_at, updated_at
		FROM expenses
		WHERE id = $1
	`

	expense := &Expense{}
	err := db.QueryRow(query, id).Scan(
		&expense.ID,
		&expense.UserID,
		&expense.TripID,
		&expense.Vendor,
		&expense.Date,
		&expense.Cost,
		&expense.Location,
		&expense.Type,
		&expense.Comments,
		&expense.Status,
		&expense.ReceiptPath,
		&expense.CreatedAt,
		&expense.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFoundf("expense %d", id)
		}
		logrus.WithError(err).Error("Failed to get expense by ID")
		return nil, err
	}

	return expense, nil
}

func (r *ExpenseRepository) GetByUserID(db *sql.DB, userID int) ([]Expense, error) {
	query := `
		SELECT id, user_id, trip_id, vendor, date, cost, location, type,
		       comments, status, receipt_path, created_at, updated_at
		FROM expenses
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := db.Query(query, userID)
	if err != nil {
		logrus.WithError(err).Error("Failed to get expenses by user ID")
		return nil, err
	}
	defer rows.Close()

	expenses := []Expense{}
	for rows.Next() {
		var expense Expense
		if err := rows.Scan(
			&expense.ID,
			&expense.UserID,
			&expense.TripID,
			&expense.Vendor,
			&expense.Date,
			&expense.Cost,
			&expense.Location,
			&expense.Type,
			&expense.Comments,
			&expense.Status,
			&expense.ReceiptPath,
			&expense.CreatedAt,
			&expense.UpdatedAt,
		); err != nil {
			logrus.WithError(err).Error("Failed to scan expense row")
			return nil, err
		}
		expenses = append(expenses, expense)
	}

	return expenses, rows.Err()
}

// Update applies a partial column patch. Unknown columns in the patch are
// ignored rather than interpolated into SQL.
func (r *ExpenseRepository) Update(db *sql.DB, id int, patch Patch) error {
	if len(patch) == 0 {
		return nil
	}

	setClauses := []string{}
	args := []interface{}{}
	for _, column := range patchColumns {
		value, ok := patch[column]
		if !ok {
			continue
		}
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if len(setClauses) == 0 {
		return nil
	}
	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf("UPDATE expenses SET %s WHERE id = $%d",
		strings.Join(setClauses, ", "), len(args))

	result, err := db.Exec(query, args...)
	if err != nil {
		logrus.WithError(err).Error("Failed to update expense")
		return err
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperr.NotFoundf("expense %d", id)
	}

	return nil
}

func (r *ExpenseRepository) UpdateDetails(db *sql.DB, expense *Expense) error {
	query := `
		UPDATE expenses
		SET trip_id = $1, vendor = $2, date = $3, cost = $4, location = $5,
		    type = $6, comments = $7, status = $8, updated_at = NOW()
		WHERE id = $9
	`

	result, err := db.Exec(query,
		expense.TripID,
		expense.Vendor,
		expense.Date,
		expense.Cost,
		expense.Location,
		expense.Type,
		expense.Comments,
		expense.Status,
		expense.ID,
	)
	if err != nil {
		logrus.WithError(err).Error("Failed to update expense details")
		return err
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperr.NotFoundf("expense %d", expense.ID)
	}

	return nil
}

func (r *ExpenseRepository) UpdateStatus(db *sql.DB, id int, status string) error {
	query := `UPDATE expenses SET status = $1, updated_at = NOW() WHERE id = $2`

	result, err := db.Exec(query, status, id)
	if err != nil {
		logrus.WithError(err).Error("Failed to update expense status")
		return err
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperr.NotFoundf("expense %d", id)
	}

	return nil
}

func (r *ExpenseRepository) Delete(db *sql.DB, id int) error {
	result, err := db.Exec(`DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		logrus.WithError(err).Error("Failed to delete expense")
		return err
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperr.NotFoundf("expense %d", id)
	}

	return nil
}

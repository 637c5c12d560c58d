package expense

import (
	"database/sql"

	"github.com/sirupsen/logrus"

	"expense_tracker/internal/apperr"
)

type ExpenseService struct {
	repo ExpenseRepositoryInterface
	db   *sql.DB
}

type ExpenseServiceInterface interface {
	CreateExpense(expense *Expense) (int, error)
	GetExpense(userID, expenseID int) (*Expense, error)
	GetExpenses(userID int) ([]Expense, error)
	UpdateExpense(userID int, expense *Expense) (*Expense, error)
	DeleteExpense(userID, expenseID int) error
	AttachReceipt(userID, expenseID int, receiptPath string) error
}

func NewExpenseService(repo ExpenseRepositoryInterface, db *sql.DB) ExpenseServiceInterface {
	return &ExpenseService{
		repo: repo,
		db:   db,
	}
}

// CreateExpense inserts a new expense, filling unset fields with placeholder
// defaults so OCR reconciliation can later tell them apart from user input.
func (s *ExpenseService) CreateExpense(expense *Expense) (int, error) {
	if expense.Vendor == "" {
		expense.Vendor = PlaceholderVendor
	}
	if expense.Cost == "" {
		expense.Cost = PlaceholderCost
	}
	if expense.Location == "" {
		expense.Location = PlaceholderLocation
	}
	if expense.Type == "" {
		expense.Type = PlaceholderType
	}
	if expense.Status == "" {
		expense.Status = StatusPending
	}

	tx, err := s.db.Begin()
	if err != nil {
		logrus.WithError(err).Error("Failed to begin transaction")
		return 0, err
	}
	defer tx.Rollback()

	id, err := s.repo.Create(tx, expense)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		logrus.WithError(err).Error("Failed to commit transaction")
		return 0, err
	}

	return id, nil
}

// GetExpense retrieves an expense owned by the given user. Another user's
// expense is reported as not found.
func (s *ExpenseService) GetExpense(userID, expenseID int) (*Expense, error) {
	expense, err := s.repo.GetByID(s.db, expenseID)
	if err != nil {
		return nil, err
	}
	if expense.UserID != userID {
		return nil, apperr.NotFoundf("expense %d", expenseID)
	}
	return expense, nil
}

func (s *ExpenseService) GetExpenses(userID int) ([]Expense, error) {
	return s.repo.GetByUserID(s.db, userID)
}

func (s *ExpenseService) UpdateExpense(userID int, expense *Expense) (*Expense, error) {
	current, err := s.GetExpense(userID, expense.ID)
	if err != nil {
		return nil, err
	}

	if expense.Status == "" {
		expense.Status = current.Status
	}
	if err := s.repo.UpdateDetails(s.db, expense); err != nil {
		return nil, err
	}

	return s.repo.GetByID(s.db, expense.ID)
}

func (s *ExpenseService) DeleteExpense(userID, expenseID int) error {
	if _, err := s.GetExpense(userID, expenseID); err != nil {
		return err
	}
	return s.repo.Delete(s.db, expenseID)
}

// AttachReceipt records the stored receipt object path on the expense.
func (s *ExpenseService) AttachReceipt(userID, expenseID int, receiptPath string) error {
	if _, err := s.GetExpense(userID, expenseID); err != nil {
		return err
	}
	return s.repo.Update(s.db, expenseID, Patch{"receipt_path": receiptPath})
}

package expense

import (
	"database/sql"

	"expense_tracker/internal/utils"
)

// Store adapts the repository to the id-keyed surface the task processor
// consumes, hiding the db handle and transaction handling.
type Store struct {
	repo ExpenseRepositoryInterface
	db   *sql.DB
}

func NewStore(repo ExpenseRepositoryInterface, db *sql.DB) *Store {
	return &Store{repo: repo, db: db}
}

func (s *Store) GetExpense(id int) (*Expense, error) {
	return s.repo.GetByID(s.db, id)
}

func (s *Store) UpdateExpense(id int, patch Patch) error {
	return s.repo.Update(s.db, id, patch)
}

func (s *Store) SetExpenseStatus(id int, status string) error {
	return s.repo.UpdateStatus(s.db, id, status)
}

func (s *Store) CreateExpense(e *Expense) (int, error) {
	var id int
	err := utils.WithTransaction(s.db, func(tx *sql.Tx) error {
		createdID, err := s.repo.Create(tx, e)
		if err != nil {
			return err
		}
		id = createdID
		return nil
	})
	return id, err
}

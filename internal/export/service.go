package export

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"expense_tracker/internal/apperr"
	"expense_tracker/internal/expense"
	"expense_tracker/internal/storage"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExportService struct {
	expenseRepo expense.ExpenseRepositoryInterface
	db          *sql.DB
	fileStore   storage.FileStore
}

type ExportServiceInterface interface {
	ExportExpenses(ctx context.Context, userID int, template string) (string, error)
}

func NewExportService(expenseRepo expense.ExpenseRepositoryInterface, db *sql.DB, fileStore storage.FileStore) ExportServiceInterface {
	return &ExportService{
		expenseRepo: expenseRepo,
		db:          db,
		fileStore:   fileStore,
	}
}

var columnHeaders = []string{"ID", "Trip ID", "Vendor", "Date", "Cost", "Location", "Type", "Comments", "Status"}

// ExportExpenses renders all of the user's expenses into an XLSX workbook,
// uploads it to object storage and returns the object path.
func (s *ExportService) ExportExpenses(ctx context.Context, userID int, template string) (string, error) {
	expenses, err := s.expenseRepo.GetByUserID(s.db, userID)
	if err != nil {
		return "", err
	}
	if len(expenses) == 0 {
		return "", apperr.NotFoundf("no expenses to export for user %d", userID)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Expenses"
	f.SetSheetName("Sheet1", sheet)

	for i, header := range columnHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	for row, e := range expenses {
		tripID := ""
		if e.TripID != nil {
			tripID = fmt.Sprintf("%d", *e.TripID)
		}
		values := []interface{}{e.ID, tripID, e.Vendor, e.Date, e.Cost, e.Location, e.Type, e.Comments, e.Status}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		logrus.WithError(err).Error("Failed to render export workbook")
		return "", err
	}

	filePath := fmt.Sprintf("exports/user_%d/%s.xlsx", userID, uuid.NewString())
	if err := s.fileStore.Upload(ctx, filePath, buf.Bytes(), xlsxContentType); err != nil {
		logrus.WithError(err).Error("Failed to upload export workbook")
		return "", err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":   userID,
		"file_path": filePath,
		"rows":      len(expenses),
		"template":  template,
	}).Info("Expense export generated")

	return filePath, nil
}

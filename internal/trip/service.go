package trip

import (
	"database/sql"

	"github.com/sirupsen/logrus"

	"expense_tracker/internal/apperr"
)

type TripService struct {
	repo TripRepositoryInterface
	db   *sql.DB
}

type TripServiceInterface interface {
	CreateTrip(userID int, name, location, startDate, endDate string) (int, error)
	GetTrip(userID, tripID int) (*Trip, error)
	GetTrips(userID int) ([]Trip, error)
}

func NewTripService(repo TripRepositoryInterface, db *sql.DB) TripServiceInterface {
	return &TripService{
		repo: repo,
		db:   db,
	}
}

func (s *TripService) CreateTrip(userID int, name, location, startDate, endDate string) (int, error) {
	trip := &Trip{
		UserID:    userID,
		Name:      name,
		Location:  location,
		StartDate: startDate,
		EndDate:   endDate,
	}

	tx, err := s.db.Begin()
	if err != nil {
		logrus.WithError(err).Error("Failed to begin transaction")
		return 0, err
	}
	defer tx.Rollback()

	id, err := s.repo.Create(tx, trip)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		logrus.WithError(err).Error("Failed to commit transaction")
		return 0, err
	}

	return id, nil
}

// GetTrip retrieves a trip owned by the given user. Another user's trip
// is reported as not found.
func (s *TripService) GetTrip(userID, tripID int) (*Trip, error) {
	trip, err := s.repo.GetByID(s.db, tripID)
	if err != nil {
		return nil, err
	}
	if trip.UserID != userID {
		return nil, apperr.NotFoundf("trip %d", tripID)
	}
	return trip, nil
}

func (s *TripService) GetTrips(userID int) ([]Trip, error) {
	return s.repo.GetByUserID(s.db, userID)
}

package trip

import (
	"database/sql"
	"errors"

	"github.com/sirupsen/logrus"

	"expense_tracker/internal/apperr"
)

type TripRepository struct{}

type TripRepositoryInterface interface {
	Create(tx *sql.Tx, trip *Trip) (int, error)
	GetByID(db *sql.DB, id int) (*Trip, error)
	GetByUserID(db *sql.DB, userID int) ([]Trip, error)
}

func NewTripRepository() TripRepositoryInterface {
	return &TripRepository{}
}

func (r *TripRepository) Create(tx *sql.Tx, trip *Trip) (int, error) {
	query := `
		INSERT INTO trips (
			user_id, name, location, start_date, end_date, created_at
		)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id
	`

	var id int
	err := tx.QueryRow(query,
		trip.UserID,
		trip.Name,
		trip.Location,
		trip.StartDate,
		trip.EndDate,
	).Scan(&id)
	if err != nil {
		logrus.WithError(err).Error("Failed to create trip")
		return 0, err
	}

	logrus.WithFields(logrus.Fields{
		"trip_id": id,
		"user_id": trip.UserID,
	}).Info("Trip created successfully")

	return id, nil
}

func (r *TripRepository) GetByID(db *sql.DB, id int) (*Trip, error) {
	query := `
		SELECT id, user_id, name, location, start_date, end_date, created_at
		FROM trips
		WHERE id = $1
	`

	trip := &Trip{}
	err := db.QueryRow(query, id).Scan(
		&trip.ID,
		&trip.UserID,
		&trip.Name,
		&trip.Location,
		&trip.StartDate,
		&trip.EndDate,
		&trip.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFoundf("trip %d", id)
		}
		logrus.WithError(err).Error("Failed to get trip by ID")
		return nil, err
	}

	return trip, nil
}

func (r *TripRepository) GetByUserID(db *sql.DB, userID int) ([]Trip, error) {
	query := `
		SELECT id, user_id, name, location, start_date, end_date, created_at
		FROM trips
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := db.Query(query, userID)
	if err != nil {
		logrus.WithError(err).Error("Failed to get trips by user ID")
		return nil, err
	}
	defer rows.Close()

	trips := []Trip{}
	for rows.Next() {
		var trip Trip
		if err := rows.Scan(
			&trip.ID,
			&trip.UserID,
			&trip.Name,
			&trip.Location,
			&trip.StartDate,
			&trip.EndDate,
			&trip.CreatedAt,
		); err != nil {
			logrus.WithError(err).Error("Failed to scan trip row")
			return nil, err
		}
		trips = append(trips, trip)
	}

	return trips, rows.Err()
}

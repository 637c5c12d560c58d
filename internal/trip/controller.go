package trip

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"expense_tracker/internal/apperr"
	"expense_tracker/internal/auth"
)

type TripController struct {
	tripService TripServiceInterface
}

func NewTripController(tripService TripServiceInterface) *TripController {
	return &TripController{tripService: tripService}
}

// SetupRoutes registers trip routes on an authenticated group
func (t *TripController) SetupRoutes(rg *gin.RouterGroup) {
	trips := rg.Group("/trips")
	{
		trips.POST("", t.CreateTrip)
		trips.GET("", t.GetTrips)
		trips.GET("/:id", t.GetTrip)
	}
}

func (t *TripController) CreateTrip(c *gin.Context) {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		Name      string `json:"name" binding:"required,max=100"`
		Location  string `json:"location" binding:"max=100"`
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := t.tripService.CreateTrip(userID, req.Name, req.Location, req.StartDate, req.EndDate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create trip"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Trip created successfully",
		"trip_id": id,
	})
}

func (t *TripController) GetTrips(c *gin.Context) {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	trips, err := t.tripService.GetTrips(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get trips"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"trips": trips})
}

func (t *TripController) GetTrip(c *gin.Context) {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	tripID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	trip, err := t.tripService.GetTrip(userID, tripID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get trip"})
		return
	}

	c.JSON(http.StatusOK, trip)
}

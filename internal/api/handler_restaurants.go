package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"table-booking-backend/internal/booking"
	"table-booking-backend/internal/mw"
	"table-booking-backend/internal/rejection"
	"table-booking-backend/internal/store"
)

// ListRestaurants handles GET /api/restaurants.
func (h *Handler) ListRestaurants(c *gin.Context) {
	restaurants, err := h.catalog.ListRestaurants(c.Request.Context())
	if err != nil {
		respondError(c, rejection.Wrap(rejection.StorageFailure, err, "list restaurants"))
		return
	}

	responses := make([]RestaurantResponse, 0, len(restaurants))
	for _, r := range restaurants {
		responses = append(responses, newRestaurantResponse(r))
	}
	c.JSON(http.StatusOK, responses)
}

// GetRestaurant handles GET /api/restaurants/:id.
func (h *Handler) GetRestaurant(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	r, err := h.catalog.GetRestaurant(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, rejection.New(rejection.RestaurantNotFound, "restaurant %d not found", id))
		} else {
			respondError(c, rejection.Wrap(rejection.StorageFailure, err, "load restaurant"))
		}
		return
	}
	c.JSON(http.StatusOK, newRestaurantResponse(r))
}

// AvailabilityResponse is an advisory snapshot for one window.
type AvailabilityResponse struct {
	RestaurantID int64  `json:"restaurantId"`
	Date         string `json:"date"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	TableCount   int    `json:"tableCount"`
	Overlapping  int    `json:"overlapping"`
	Remaining    int    `json:"remaining"`
}

// GetAvailability handles GET /api/restaurants/:id/availability.
func (h *Handler) GetAvailability(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	a, err := h.coordinator.CheckAvailability(c.Request.Context(), id,
		c.Query("date"), c.Query("startTime"), c.Query("endTime"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, AvailabilityResponse{
		RestaurantID: a.RestaurantID,
		Date:         a.Date,
		StartTime:    a.Start.Format("15:04"),
		EndTime:      a.End.Format("15:04"),
		TableCount:   a.TableCount,
		Overlapping:  a.Overlapping,
		Remaining:    a.Remaining,
	})
}

type restaurantRequest struct {
	Name       string `json:"name" binding:"required"`
	Location   string `json:"location" binding:"required"`
	Mobile     string `json:"mobile"`
	TableCount int    `json:"tableCount" binding:"required"`
}

func (r restaurantRequest) input() booking.RestaurantInput {
	return booking.RestaurantInput{
		Name:       r.Name,
		Location:   r.Location,
		Mobile:     r.Mobile,
		TableCount: r.TableCount,
	}
}

// CreateRestaurant handles POST /api/admin/restaurants.
func (h *Handler) CreateRestaurant(c *gin.Context) {
	var req restaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name, location and tableCount are required")
		return
	}

	r, err := h.coordinator.CreateRestaurant(c.Request.Context(), mw.PrincipalFrom(c), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	h.invalidateRestaurants()
	c.JSON(http.StatusCreated, newRestaurantResponse(r))
}

// UpdateRestaurant handles PUT /api/admin/restaurants/:id.
func (h *Handler) UpdateRestaurant(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req restaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name, location and tableCount are required")
		return
	}

	r, err := h.coordinator.UpdateRestaurant(c.Request.Context(), mw.PrincipalFrom(c), id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	h.invalidateRestaurants()
	c.JSON(http.StatusOK, newRestaurantResponse(r))
}

type removeRestaurantRequest struct {
	RestaurantID int64 `json:"restaurantId" binding:"required"`
}

// RemoveRestaurant handles DELETE /api/admin/restaurants. The restaurant and
// all of its reservations are deleted together.
func (h *Handler) RemoveRestaurant(c *gin.Context) {
	var req removeRestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "restaurantId is required")
		return
	}

	if err := h.coordinator.RemoveRestaurant(c.Request.Context(), mw.PrincipalFrom(c), req.RestaurantID); err != nil {
		respondError(c, err)
		return
	}
	h.invalidateRestaurants()
	c.JSON(http.StatusOK, gin.H{"removed": true, "restaurantId": req.RestaurantID})
}

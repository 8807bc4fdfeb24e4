package api

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"table-booking-backend/internal/auth"
	"table-booking-backend/internal/booking"
	"table-booking-backend/internal/model"
	"table-booking-backend/internal/mw"
)

// Catalog is the read side of restaurants and reservations used by handlers.
type Catalog interface {
	ListRestaurants(ctx context.Context) ([]model.Restaurant, error)
	GetRestaurant(ctx context.Context, id int64) (model.Restaurant, error)
	GetReservation(ctx context.Context, id int64) (model.Reservation, error)
	ListUserReservations(ctx context.Context, userID int64) ([]model.Reservation, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	catalog     Catalog
	coordinator *booking.Coordinator
	accounts    *auth.Service
	cache       *mw.ResponseCache
	cookieName  string
	secure      bool
}

// Deps lists what NewHandler needs.
type Deps struct {
	Catalog     Catalog
	Coordinator *booking.Coordinator
	Accounts    *auth.Service
	Cache       *mw.ResponseCache
	CookieName  string
	// SecureCookie marks the session cookie Secure (HTTPS deployments).
	SecureCookie bool
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		catalog:     d.Catalog,
		coordinator: d.Coordinator,
		accounts:    d.Accounts,
		cache:       d.Cache,
		cookieName:  d.CookieName,
		secure:      d.SecureCookie,
	}
}

func (h *Handler) loc() *time.Location { return h.coordinator.Location() }

// invalidateRestaurants drops cached restaurant reads after an admin write.
func (h *Handler) invalidateRestaurants() {
	if h.cache != nil {
		h.cache.Invalidate("/api/restaurants")
	}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid %s %q", name, c.Param(name))
		return 0, false
	}
	return id, true
}

// RestaurantResponse is the public view of a restaurant.
type RestaurantResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Location   string `json:"location"`
	Mobile     string `json:"mobile"`
	TableCount int    `json:"tableCount"`
}

func newRestaurantResponse(r model.Restaurant) RestaurantResponse {
	return RestaurantResponse{
		ID:         r.ID,
		Name:       r.Name,
		Location:   r.Location,
		Mobile:     r.Mobile,
		TableCount: r.TableCount,
	}
}

// ReservationResponse renders a reservation in the booking timezone.
type ReservationResponse struct {
	ID           int64     `json:"id"`
	RestaurantID int64     `json:"restaurantId"`
	UserID       int64     `json:"userId"`
	Date         string    `json:"date"`
	StartTime    string    `json:"startTime"`
	EndTime      string    `json:"endTime"`
	GuestCount   int       `json:"guestCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

func newReservationResponse(r model.Reservation, loc *time.Location) ReservationResponse {
	return ReservationResponse{
		ID:           r.ID,
		RestaurantID: r.RestaurantID,
		UserID:       r.UserID,
		Date:         r.Date,
		StartTime:    r.StartAt.In(loc).Format("15:04"),
		EndTime:      r.EndAt.In(loc).Format("15:04"),
		GuestCount:   r.GuestCount,
		CreatedAt:    r.CreatedAt,
	}
}

// UserResponse is the caller's own account, without the password hash.
type UserResponse struct {
	ID     int64          `json:"id"`
	Name   string         `json:"name"`
	Mobile string         `json:"mobile"`
	Email  string         `json:"email"`
	Role   model.UserRole `json:"role"`
}

func newUserResponse(u model.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Mobile: u.Mobile, Email: u.Email, Role: u.Role}
}

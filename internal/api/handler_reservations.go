package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/skip2/go-qrcode"

	"table-booking-backend/internal/booking"
	"table-booking-backend/internal/mw"
	"table-booking-backend/internal/rejection"
	"table-booking-backend/internal/store"
)

type createReservationRequest struct {
	RestaurantID int64  `json:"restaurantId" binding:"required"`
	Date         string `json:"date" binding:"required"`
	StartTime    string `json:"startTime" binding:"required"`
	EndTime      string `json:"endTime" binding:"required"`
	GuestCount   count  `json:"guestCount"`
}

// count accepts a JSON number or a numeric string, as sent by HTML number
// inputs.
type count int

func (n *count) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	if raw == "" || raw == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("guestCount must be a whole number, got %s", b)
	}
	*n = count(v)
	return nil
}

// CreateReservation handles POST /api/reservations.
func (h *Handler) CreateReservation(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var missing validator.ValidationErrors
		if errors.As(err, &missing) {
			respondError(c, rejection.New(rejection.InvalidWindow, "restaurantId, date, startTime and endTime are required"))
			return
		}
		badRequest(c, "invalid request body: %v", err)
		return
	}

	res, err := h.coordinator.SubmitBooking(c.Request.Context(), mw.PrincipalFrom(c), booking.Request{
		RestaurantID: req.RestaurantID,
		Date:         req.Date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		GuestCount:   int(req.GuestCount),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"reservationId": res.ID,
		"reservation":   newReservationResponse(res, h.loc()),
	})
}

// ListReservations handles GET /api/reservations for the caller.
func (h *Handler) ListReservations(c *gin.Context) {
	p := mw.PrincipalFrom(c)
	reservations, err := h.catalog.ListUserReservations(c.Request.Context(), p.UserID)
	if err != nil {
		respondError(c, rejection.Wrap(rejection.StorageFailure, err, "list reservations"))
		return
	}

	responses := make([]ReservationResponse, 0, len(reservations))
	for _, r := range reservations {
		responses = append(responses, newReservationResponse(r, h.loc()))
	}
	c.JSON(http.StatusOK, responses)
}

// CancelReservation handles DELETE /api/reservations/:id.
func (h *Handler) CancelReservation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.coordinator.CancelBooking(c.Request.Context(), mw.PrincipalFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetReservationQR handles GET /api/reservations/:id/qr and renders a PNG
// voucher the restaurant can scan at the door.
func (h *Handler) GetReservationQR(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	res, err := h.catalog.GetReservation(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, rejection.New(rejection.ReservationNotFound, "reservation %d not found", id))
		} else {
			respondError(c, rejection.Wrap(rejection.StorageFailure, err, "load reservation"))
		}
		return
	}
	p := mw.PrincipalFrom(c)
	if res.UserID != p.UserID && !p.IsAdmin() {
		respondError(c, rejection.New(rejection.Unauthorized, "reservation belongs to another user"))
		return
	}

	view := newReservationResponse(res, h.loc())
	payload := fmt.Sprintf("reservation:%d|restaurant:%d|%s %s-%s",
		view.ID, view.RestaurantID, view.Date, view.StartTime, view.EndTime)
	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		respondError(c, fmt.Errorf("encode qr: %w", err))
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

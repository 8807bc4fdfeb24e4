package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"table-booking-backend/internal/rejection"
)

func TestMapError(t *testing.T) {
	testCases := []struct {
		name           string
		err            error
		expectedStatus int
		expectedReason string
	}{
		{"Unauthenticated", rejection.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"Unauthorized", rejection.New(rejection.Unauthorized, "admins only"), http.StatusForbidden, "UNAUTHORIZED"},
		{"Restaurant not found", rejection.New(rejection.RestaurantNotFound, "gone"), http.StatusNotFound, "RESTAURANT_NOT_FOUND"},
		{"Reservation not found", rejection.ErrReservationNotFound, http.StatusNotFound, "RESERVATION_NOT_FOUND"},
		{"Invalid window", rejection.New(rejection.InvalidWindow, "start after end"), http.StatusBadRequest, "INVALID_WINDOW"},
		{"Invalid input", rejection.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
		{"Capacity exceeded", rejection.New(rejection.CapacityExceeded, "full"), http.StatusConflict, "CAPACITY_EXCEEDED"},
		{"Email taken", rejection.ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN"},
		{"Storage failure", rejection.Wrap(rejection.StorageFailure, assert.AnError, "insert"), http.StatusInternalServerError, "STORAGE_FAILURE"},
		{"Lock wait timed out", fmt.Errorf("waiting: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "TIMEOUT"},
		{"Client went away", context.Canceled, http.StatusServiceUnavailable, "CANCELLED"},
		{"Timeout rejection", rejection.ErrTimeout, http.StatusGatewayTimeout, "TIMEOUT"},
		{"Cancelled rejection", rejection.FromContext(context.Canceled, "waiting for restaurant 3"), http.StatusServiceUnavailable, "CANCELLED"},
		{"Unknown error", assert.AnError, http.StatusInternalServerError, "STORAGE_FAILURE"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := mapError(tc.err)
			assert.Equal(t, tc.expectedStatus, status)
			assert.Equal(t, tc.expectedReason, body.Reason)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestMapError_StorageCauseNotLeaked(t *testing.T) {
	_, body := mapError(rejection.Wrap(rejection.StorageFailure, fmt.Errorf("pq: password authentication failed"), "insert"))
	assert.NotContains(t, body.Message, "pq:")
}

func TestMapError_EveryReasonHasStatus(t *testing.T) {
	reasons := []rejection.Reason{
		rejection.Unauthenticated, rejection.Unauthorized, rejection.RestaurantNotFound,
		rejection.InvalidWindow, rejection.CapacityExceeded, rejection.StorageFailure,
		rejection.ReservationNotFound, rejection.EmailTaken, rejection.InvalidInput,
	}
	for _, r := range reasons {
		_, ok := reasonStatus[r]
		assert.True(t, ok, "no status for %s", r)
	}
}

package api

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"table-booking-backend/internal/rejection"
)

// reasonStatus maps every rejection reason to the HTTP status it is served with.
var reasonStatus = map[rejection.Reason]int{
	rejection.Unauthenticated:     http.StatusUnauthorized,
	rejection.Unauthorized:        http.StatusForbidden,
	rejection.RestaurantNotFound:  http.StatusNotFound,
	rejection.ReservationNotFound: http.StatusNotFound,
	rejection.InvalidWindow:       http.StatusBadRequest,
	rejection.InvalidInput:        http.StatusBadRequest,
	rejection.CapacityExceeded:    http.StatusConflict,
	rejection.EmailTaken:          http.StatusConflict,
	rejection.StorageFailure:      http.StatusInternalServerError,
	rejection.Timeout:             http.StatusGatewayTimeout,
	rejection.Cancelled:           http.StatusServiceUnavailable,
}

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// mapError converts err into a status and body. Storage failures and
// unknown errors never leak their cause to the client.
func mapError(err error) (int, errorBody) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, rejection.ErrTimeout) {
		return reasonStatus[rejection.Timeout], errorBody{Reason: string(rejection.Timeout), Message: "request timeout"}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, rejection.ErrCancelled) {
		return reasonStatus[rejection.Cancelled], errorBody{Reason: string(rejection.Cancelled), Message: "request cancelled"}
	}

	var rej *rejection.Error
	if errors.As(err, &rej) {
		status, ok := reasonStatus[rej.Reason]
		if !ok {
			status = http.StatusInternalServerError
		}
		message := rej.Detail
		if rej.Reason == rejection.StorageFailure {
			message = "storage failure, please retry"
		} else if message == "" && rej.Err != nil {
			message = rej.Err.Error()
		}
		if message == "" {
			message = string(rej.Reason)
		}
		return status, errorBody{Reason: string(rej.Reason), Message: message}
	}

	return http.StatusInternalServerError, errorBody{Reason: string(rejection.StorageFailure), Message: "internal server error"}
}

// respondError writes err as a structured JSON error and aborts the chain.
func respondError(c *gin.Context, err error) {
	status, body := mapError(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

func badRequest(c *gin.Context, format string, args ...any) {
	respondError(c, rejection.New(rejection.InvalidInput, format, args...))
}

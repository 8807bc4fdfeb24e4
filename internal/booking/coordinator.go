// Package booking serializes check-then-insert per restaurant so that
// concurrent requests can never jointly over-commit a restaurant's tables.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"table-booking-backend/internal/auth"
	"table-booking-backend/internal/availability"
	"table-booking-backend/internal/model"
	"table-booking-backend/internal/parse"
	"table-booking-backend/internal/rejection"
	"table-booking-backend/internal/store"
)

// Store is the persistence the coordinator needs.
type Store interface {
	CreateRestaurant(ctx context.Context, r *model.Restaurant) error
	UpdateRestaurant(ctx context.Context, r *model.Restaurant) error
	GetRestaurant(ctx context.Context, id int64) (model.Restaurant, error)
	DeleteRestaurant(ctx context.Context, id int64) error
	CreateReservation(ctx context.Context, r *model.Reservation) error
	GetReservation(ctx context.Context, id int64) (model.Reservation, error)
	ReservationsOn(ctx context.Context, restaurantID int64, date string) ([]model.Reservation, error)
	DeleteReservation(ctx context.Context, id int64) error
}

// Request is a booking submission as received from the Booking API.
type Request struct {
	RestaurantID int64
	Date         string
	StartTime    string
	EndTime      string
	GuestCount   int
}

// RestaurantInput carries the admin-editable restaurant fields.
type RestaurantInput struct {
	Name       string
	Location   string
	Mobile     string
	TableCount int
}

// Availability is an advisory snapshot for one window.
type Availability struct {
	RestaurantID int64
	Date         string
	Start        time.Time
	End          time.Time
	TableCount   int
	Overlapping  int
	Remaining    int
}

// Options configures a Coordinator.
type Options struct {
	Location    *time.Location
	LockTimeout time.Duration
	Policy      availability.Policy
	Now         func() time.Time
}

// Coordinator runs every operation that reads then writes a restaurant's
// reservation set inside that restaurant's exclusive scope.
type Coordinator struct {
	store       Store
	locker      Locker
	engine      *availability.Engine
	loc         *time.Location
	lockTimeout time.Duration
	now         func() time.Time
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(s Store, l Locker, opts Options) *Coordinator {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Coordinator{
		store:       s,
		locker:      l,
		engine:      availability.NewEngine(opts.Policy),
		loc:         opts.Location,
		lockTimeout: opts.LockTimeout,
		now:         opts.Now,
	}
}

// Location is the timezone booking windows are interpreted in.
func (c *Coordinator) Location() *time.Location { return c.loc }

func restaurantKey(id int64) string { return fmt.Sprintf("restaurant:%d", id) }

// withRestaurant runs fn inside the exclusive scope of one restaurant. A
// caller that times out while waiting leaves no trace.
func (c *Coordinator) withRestaurant(ctx context.Context, restaurantID int64, fn func() error) error {
	lockCtx := ctx
	if c.lockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, c.lockTimeout)
		defer cancel()
	}
	unlock, err := c.locker.Lock(lockCtx, restaurantKey(restaurantID))
	if err != nil {
		return rejection.FromContext(fmt.Errorf("waiting for restaurant %d: %w", restaurantID, err), "")
	}
	defer unlock()
	return fn()
}

// SubmitBooking validates, authorizes and then, inside the restaurant's
// exclusive scope, checks capacity and persists the reservation.
func (c *Coordinator) SubmitBooking(ctx context.Context, p auth.Principal, req Request) (model.Reservation, error) {
	if p.IsZero() {
		return model.Reservation{}, rejection.New(rejection.Unauthenticated, "login required to book a table")
	}

	// Validation happens before any scope is taken.
	window, err := parse.Window(req.Date, req.StartTime, req.EndTime, c.loc)
	if err != nil {
		return model.Reservation{}, rejection.Wrap(rejection.InvalidWindow, err, "")
	}
	candidate := availability.Request{
		Window:     availability.Interval{Start: window.Start, End: window.End},
		GuestCount: req.GuestCount,
	}
	if err := c.engine.Validate(candidate, c.now()); err != nil {
		return model.Reservation{}, err
	}

	var reservation model.Reservation
	err = c.withRestaurant(ctx, req.RestaurantID, func() error {
		restaurant, err := c.store.GetRestaurant(ctx, req.RestaurantID)
		if err != nil {
			return storeError(err, rejection.RestaurantNotFound, "load restaurant")
		}

		existing, err := c.store.ReservationsOn(ctx, restaurant.ID, window.Date)
		if err != nil {
			return rejection.Wrap(rejection.StorageFailure, err, "load reservations")
		}
		if err := c.engine.Check(restaurant.TableCount, intervals(existing), candidate, c.now()); err != nil {
			return err
		}

		reservation = model.Reservation{
			RestaurantID: restaurant.ID,
			UserID:       p.UserID,
			Date:         window.Date,
			StartAt:      window.Start,
			EndAt:        window.End,
			GuestCount:   req.GuestCount,
		}
		// Once this write commits the reservation stands, whatever happens
		// to the caller afterwards.
		if err := c.store.CreateReservation(ctx, &reservation); err != nil {
			return rejection.Wrap(rejection.StorageFailure, err, "persist reservation")
		}
		return nil
	})
	if err != nil {
		return model.Reservation{}, err
	}

	log.Printf("Reservation %d accepted: restaurant %d, %s %s-%s, %d guests",
		reservation.ID, reservation.RestaurantID, reservation.Date,
		req.StartTime, req.EndTime, reservation.GuestCount)
	return reservation, nil
}

// CancelBooking deletes a reservation owned by p (admins may cancel any).
func (c *Coordinator) CancelBooking(ctx context.Context, p auth.Principal, reservationID int64) error {
	if p.IsZero() {
		return rejection.ErrUnauthenticated
	}
	existing, err := c.store.GetReservation(ctx, reservationID)
	if err != nil {
		return storeError(err, rejection.ReservationNotFound, "load reservation")
	}
	if existing.UserID != p.UserID && !p.IsAdmin() {
		return rejection.New(rejection.Unauthorized, "reservation belongs to another user")
	}

	return c.withRestaurant(ctx, existing.RestaurantID, func() error {
		if err := c.store.DeleteReservation(ctx, reservationID); err != nil {
			return storeError(err, rejection.ReservationNotFound, "delete reservation")
		}
		log.Printf("Reservation %d cancelled by user %d", reservationID, p.UserID)
		return nil
	})
}

// RemoveRestaurant deletes a restaurant and every reservation it holds.
// Only admins may do this.
func (c *Coordinator) RemoveRestaurant(ctx context.Context, p auth.Principal, restaurantID int64) error {
	if err := requireAdmin(p); err != nil {
		return err
	}

	return c.withRestaurant(ctx, restaurantID, func() error {
		if err := c.store.DeleteRestaurant(ctx, restaurantID); err != nil {
			return storeError(err, rejection.RestaurantNotFound, "delete restaurant")
		}
		log.Printf("Restaurant %d removed by admin %d", restaurantID, p.UserID)
		return nil
	})
}

// CreateRestaurant registers a new restaurant. Only admins may do this.
func (c *Coordinator) CreateRestaurant(ctx context.Context, p auth.Principal, in RestaurantInput) (model.Restaurant, error) {
	if err := requireAdmin(p); err != nil {
		return model.Restaurant{}, err
	}
	if err := in.validate(); err != nil {
		return model.Restaurant{}, err
	}
	r := model.Restaurant{
		Name:       strings.TrimSpace(in.Name),
		Location:   strings.TrimSpace(in.Location),
		Mobile:     strings.TrimSpace(in.Mobile),
		TableCount: in.TableCount,
	}
	if err := c.store.CreateRestaurant(ctx, &r); err != nil {
		return model.Restaurant{}, rejection.Wrap(rejection.StorageFailure, err, "create restaurant")
	}
	return r, nil
}

// UpdateRestaurant changes a restaurant's details. It runs inside the
// restaurant's scope so a capacity change never interleaves with a booking.
// Existing reservations are kept even if they exceed a lowered table count.
func (c *Coordinator) UpdateRestaurant(ctx context.Context, p auth.Principal, restaurantID int64, in RestaurantInput) (model.Restaurant, error) {
	if err := requireAdmin(p); err != nil {
		return model.Restaurant{}, err
	}
	if err := in.validate(); err != nil {
		return model.Restaurant{}, err
	}

	var updated model.Restaurant
	err := c.withRestaurant(ctx, restaurantID, func() error {
		r := model.Restaurant{
			ID:         restaurantID,
			Name:       strings.TrimSpace(in.Name),
			Location:   strings.TrimSpace(in.Location),
			Mobile:     strings.TrimSpace(in.Mobile),
			TableCount: in.TableCount,
		}
		if err := c.store.UpdateRestaurant(ctx, &r); err != nil {
			return storeError(err, rejection.RestaurantNotFound, "update restaurant")
		}
		var err error
		updated, err = c.store.GetRestaurant(ctx, restaurantID)
		if err != nil {
			return storeError(err, rejection.RestaurantNotFound, "reload restaurant")
		}
		return nil
	})
	return updated, err
}

// CheckAvailability reports how many tables remain for a window. It takes no
// scope; the answer is advisory and SubmitBooking re-checks.
func (c *Coordinator) CheckAvailability(ctx context.Context, restaurantID int64, date, startTime, endTime string) (Availability, error) {
	window, err := parse.Window(date, startTime, endTime, c.loc)
	if err != nil {
		return Availability{}, rejection.Wrap(rejection.InvalidWindow, err, "")
	}
	restaurant, err := c.store.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return Availability{}, storeError(err, rejection.RestaurantNotFound, "load restaurant")
	}
	existing, err := c.store.ReservationsOn(ctx, restaurantID, window.Date)
	if err != nil {
		return Availability{}, rejection.Wrap(rejection.StorageFailure, err, "load reservations")
	}

	span := availability.Interval{Start: window.Start, End: window.End}
	booked := intervals(existing)
	return Availability{
		RestaurantID: restaurantID,
		Date:         window.Date,
		Start:        window.Start,
		End:          window.End,
		TableCount:   restaurant.TableCount,
		Overlapping:  availability.Overlapping(booked, span),
		Remaining:    availability.Remaining(restaurant.TableCount, booked, span),
	}, nil
}

func (in RestaurantInput) validate() error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Location) == "" {
		return rejection.New(rejection.InvalidInput, "name and location are required")
	}
	if in.TableCount < 1 {
		return rejection.New(rejection.InvalidInput, "table count must be at least 1")
	}
	return nil
}

func requireAdmin(p auth.Principal) error {
	if p.IsZero() {
		return rejection.ErrUnauthenticated
	}
	if !p.IsAdmin() {
		return rejection.New(rejection.Unauthorized, "admin role required")
	}
	return nil
}

// storeError maps store.ErrNotFound to the given reason and anything else to
// STORAGE_FAILURE.
func storeError(err error, notFound rejection.Reason, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		what := strings.ToLower(strings.ReplaceAll(string(notFound), "_", " "))
		return rejection.Wrap(notFound, err, what)
	}
	return rejection.Wrap(rejection.StorageFailure, err, op)
}

func intervals(reservations []model.Reservation) []availability.Interval {
	out := make([]availability.Interval, len(reservations))
	for i, r := range reservations {
		out[i] = availability.Interval{Start: r.StartAt, End: r.EndAt}
	}
	return out
}

package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"table-booking-backend/internal/model"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a write violates a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

// Store defines the interface for all database operations.
type Store interface {
	CreateRestaurant(ctx context.Context, r *model.Restaurant) error
	UpdateRestaurant(ctx context.Context, r *model.Restaurant) error
	GetRestaurant(ctx context.Context, id int64) (model.Restaurant, error)
	ListRestaurants(ctx context.Context) ([]model.Restaurant, error)
	DeleteRestaurant(ctx context.Context, id int64) error

	CreateReservation(ctx context.Context, r *model.Reservation) error
	GetReservation(ctx context.Context, id int64) (model.Reservation, error)
	ReservationsOn(ctx context.Context, restaurantID int64, date string) ([]model.Reservation, error)
	ListUserReservations(ctx context.Context, userID int64) ([]model.Reservation, error)
	DeleteReservation(ctx context.Context, id int64) error
	PurgeReservationsBefore(ctx context.Context, date string) (int64, error)

	CreateUser(ctx context.Context, u *model.User) error
	UpdateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id int64) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) CreateRestaurant(ctx context.Context, r *model.Restaurant) error {
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("failed to create restaurant %q: %w", r.Name, err)
	}
	return nil
}

func (s *gormStore) UpdateRestaurant(ctx context.Context, r *model.Restaurant) error {
	res := s.db.WithContext(ctx).Model(&model.Restaurant{ID: r.ID}).Updates(map[string]any{
		"name":        r.Name,
		"location":    r.Location,
		"mobile":      r.Mobile,
		"table_count": r.TableCount,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update restaurant %d: %w", r.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) GetRestaurant(ctx context.Context, id int64) (model.Restaurant, error) {
	var r model.Restaurant
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return model.Restaurant{}, wrapNotFound(err, "restaurant", id)
	}
	return r, nil
}

func (s *gormStore) ListRestaurants(ctx context.Context) ([]model.Restaurant, error) {
	var restaurants []model.Restaurant
	if err := s.db.WithContext(ctx).Order("id").Find(&restaurants).Error; err != nil {
		return nil, fmt.Errorf("failed to list restaurants: %w", err)
	}
	return restaurants, nil
}

// DeleteRestaurant removes a restaurant and all of its reservations in one
// transaction, so no reservation can outlive its restaurant.
func (s *gormStore) DeleteRestaurant(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("restaurant_id = ?", id).Delete(&model.Reservation{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete reservations of restaurant %d: %w", id, res.Error)
		}
		removed := res.RowsAffected

		res = tx.Delete(&model.Restaurant{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete restaurant %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		log.Printf("Deleted restaurant %d with %d reservations", id, removed)
		return nil
	})
}

func (s *gormStore) CreateReservation(ctx context.Context, r *model.Reservation) error {
	r.StartAt = r.StartAt.UTC()
	r.EndAt = r.EndAt.UTC()
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("failed to create reservation for restaurant %d: %w", r.RestaurantID, err)
	}
	return nil
}

func (s *gormStore) GetReservation(ctx context.Context, id int64) (model.Reservation, error) {
	var r model.Reservation
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return model.Reservation{}, wrapNotFound(err, "reservation", id)
	}
	return r, nil
}

// ReservationsOn returns every reservation of a restaurant on one calendar
// date. Windows never cross midnight, so this is a superset of the
// reservations that can overlap any window on that date.
func (s *gormStore) ReservationsOn(ctx context.Context, restaurantID int64, date string) ([]model.Reservation, error) {
	var reservations []model.Reservation
	if err := s.db.WithContext(ctx).
		Where(`restaurant_id = ? AND "date" = ?`, restaurantID, date).
		Order("start_at").
		Find(&reservations).Error; err != nil {
		return nil, fmt.Errorf("failed to load reservations of restaurant %d on %s: %w", restaurantID, date, err)
	}
	return reservations, nil
}

func (s *gormStore) ListUserReservations(ctx context.Context, userID int64) ([]model.Reservation, error) {
	var reservations []model.Reservation
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("start_at DESC").
		Find(&reservations).Error; err != nil {
		return nil, fmt.Errorf("failed to list reservations of user %d: %w", userID, err)
	}
	return reservations, nil
}

func (s *gormStore) DeleteReservation(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.Reservation{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete reservation %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeReservationsBefore deletes reservations dated strictly before date.
func (s *gormStore) PurgeReservationsBefore(ctx context.Context, date string) (int64, error) {
	res := s.db.WithContext(ctx).Where(`"date" < ?`, date).Delete(&model.Reservation{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge reservations before %s: %w", date, res.Error)
	}
	return res.RowsAffected, nil
}

func (s *gormStore) CreateUser(ctx context.Context, u *model.User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("user %q: %w", u.Email, ErrDuplicate)
		}
		return fmt.Errorf("failed to create user %q: %w", u.Email, err)
	}
	return nil
}

func (s *gormStore) UpdateUser(ctx context.Context, u *model.User) error {
	res := s.db.WithContext(ctx).Model(&model.User{ID: u.ID}).Updates(map[string]any{
		"name":          u.Name,
		"mobile":        u.Mobile,
		"password_hash": u.PasswordHash,
		"role":          u.Role,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update user %d: %w", u.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) GetUser(ctx context.Context, id int64) (model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return model.User{}, wrapNotFound(err, "user", id)
	}
	return u, nil
}

func (s *gormStore) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return model.User{}, wrapNotFound(err, "user", email)
	}
	return u, nil
}

func wrapNotFound(err error, kind string, key any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to load %s %v: %w", kind, key, err)
}

// isDuplicate recognizes unique violations from translating drivers and the
// raw sqlite3 error, which the sqlite dialector passes through untranslated.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

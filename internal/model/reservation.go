package model

import "time"

// Reservation holds one table of a restaurant for the half-open window [StartAt, EndAt).
type Reservation struct {
	ID           int64     `gorm:"primaryKey"`
	RestaurantID int64     `gorm:"not null;index:idx_reservation_restaurant_date,priority:1"`
	UserID       int64     `gorm:"not null;index"`
	Date         string    `gorm:"size:10;not null;index:idx_reservation_restaurant_date,priority:2"` // YYYY-MM-DD in the booking timezone
	StartAt      time.Time `gorm:"not null"`
	EndAt        time.Time `gorm:"not null"`
	GuestCount   int       `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

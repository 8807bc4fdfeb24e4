package model

import "time"

// Restaurant is a bookable venue with a pool of interchangeable tables.
type Restaurant struct {
	ID         int64     `gorm:"primaryKey"`
	Name       string    `gorm:"size:128;not null"`
	Location   string    `gorm:"size:256;not null"`
	Mobile     string    `gorm:"size:32"`
	TableCount int       `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`

	// Associations
	Reservations []Reservation `gorm:"foreignKey:RestaurantID;constraint:OnDelete:CASCADE"`
}

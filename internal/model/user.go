package model

import "time"

// UserRole defines allowed roles in the system.
type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleAdmin    UserRole = "admin"
)

// User is an account that can hold reservations. Reservations is a lookup
// back-reference only; a reservation's lifecycle belongs to its restaurant.
type User struct {
	ID           int64     `gorm:"primaryKey"`
	Name         string    `gorm:"size:128;not null"`
	Mobile       string    `gorm:"size:32;not null"`
	Email        string    `gorm:"uniqueIndex;size:256;not null"`
	PasswordHash string    `gorm:"size:128;not null"`
	Role         UserRole  `gorm:"size:16;not null;default:'customer'"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`

	Reservations []Reservation `gorm:"foreignKey:UserID"`
}

package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"table-booking-backend/config"
	"table-booking-backend/internal/model"
)

func TestInit_SQLite(t *testing.T) {
	gormDB, err := Init(&config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          "file:db_init_test?mode=memory&cache=shared",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	sqlDB, _ := gormDB.DB()
	defer sqlDB.Close()

	for _, m := range []any{&model.User{}, &model.Restaurant{}, &model.Reservation{}} {
		assert.True(t, gormDB.Migrator().HasTable(m))
	}
	assert.True(t, gormDB.Migrator().HasIndex(&model.Reservation{}, "idx_reservation_restaurant_date"))
}

func TestInit_UnknownDriver(t *testing.T) {
	_, err := Init(&config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

package store

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"table-booking-backend/config"
	"table-booking-backend/internal/db"
	"table-booking-backend/internal/model"
)

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqlDB,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// newSQLiteDB opens a private in-memory database with the schema migrated.
func newSQLiteDB(t *testing.T) *gorm.DB {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gormDB, err := db.Init(&config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          "file:" + name + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := gormDB.DB()
		sqlDB.Close()
	})
	return gormDB
}

func seed(t *testing.T, s Store) (model.User, model.Restaurant) {
	t.Helper()
	ctx := context.Background()
	u := model.User{Name: "Asha", Mobile: "9999999999", Email: "asha@example.com", PasswordHash: "x", Role: model.RoleCustomer}
	require.NoError(t, s.CreateUser(ctx, &u))
	r := model.Restaurant{Name: "Spice Route", Location: "MG Road", Mobile: "080-1234", TableCount: 2}
	require.NoError(t, s.CreateRestaurant(ctx, &r))
	return u, r
}

func reservationAt(restaurantID, userID int64, date string, startHour, endHour int) model.Reservation {
	day, _ := time.Parse("2006-01-02", date)
	return model.Reservation{
		RestaurantID: restaurantID,
		UserID:       userID,
		Date:         date,
		StartAt:      day.Add(time.Duration(startHour) * time.Hour),
		EndAt:        day.Add(time.Duration(endHour) * time.Hour),
		GuestCount:   2,
	}
}

func TestGormStore_RestaurantCRUD(t *testing.T) {
	s := NewGormStore(newSQLiteDB(t))
	ctx := context.Background()
	_, r := seed(t, s)

	got, err := s.GetRestaurant(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Spice Route", got.Name)
	assert.Equal(t, 2, got.TableCount)

	got.TableCount = 5
	got.Location = "Brigade Road"
	require.NoError(t, s.UpdateRestaurant(ctx, &got))

	updated, err := s.GetRestaurant(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.TableCount)
	assert.Equal(t, "Brigade Road", updated.Location)

	all, err := s.ListRestaurants(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = s.GetRestaurant(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.UpdateRestaurant(ctx, &model.Restaurant{ID: 9999, Name: "x", Location: "y", TableCount: 1}), ErrNotFound)
}

func TestGormStore_ReservationsOn(t *testing.T) {
	s := NewGormStore(newSQLiteDB(t))
	ctx := context.Background()
	u, r := seed(t, s)

	late := reservationAt(r.ID, u.ID, "2030-06-01", 20, 21)
	early := reservationAt(r.ID, u.ID, "2030-06-01", 18, 19)
	otherDay := reservationAt(r.ID, u.ID, "2030-06-02", 18, 19)
	for _, res := range []*model.Reservation{&late, &early, &otherDay} {
		require.NoError(t, s.CreateReservation(ctx, res))
		assert.NotZero(t, res.ID)
	}

	onDay, err := s.ReservationsOn(ctx, r.ID, "2030-06-01")
	require.NoError(t, err)
	require.Len(t, onDay, 2)
	assert.Equal(t, early.ID, onDay[0].ID)
	assert.True(t, early.StartAt.Equal(onDay[0].StartAt))
	assert.True(t, early.EndAt.Equal(onDay[0].EndAt))

	mine, err := s.ListUserReservations(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 3)
	assert.Equal(t, otherDay.ID, mine[0].ID)

	require.NoError(t, s.DeleteReservation(ctx, late.ID))
	assert.ErrorIs(t, s.DeleteReservation(ctx, late.ID), ErrNotFound)
	_, err = s.GetReservation(ctx, late.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_DeleteRestaurantCascades(t *testing.T) {
	s := NewGormStore(newSQLiteDB(t))
	ctx := context.Background()
	u, r := seed(t, s)

	other := model.Restaurant{Name: "Dosa Corner", Location: "Indiranagar", TableCount: 1}
	require.NoError(t, s.CreateRestaurant(ctx, &other))

	first := reservationAt(r.ID, u.ID, "2030-06-01", 18, 19)
	second := reservationAt(r.ID, u.ID, "2030-06-03", 18, 19)
	kept := reservationAt(other.ID, u.ID, "2030-06-01", 18, 19)
	for _, res := range []*model.Reservation{&first, &second, &kept} {
		require.NoError(t, s.CreateReservation(ctx, res))
	}

	require.NoError(t, s.DeleteRestaurant(ctx, r.ID))

	_, err := s.GetRestaurant(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	for _, id := range []int64{first.ID, second.ID} {
		_, err := s.GetReservation(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	_, err = s.GetReservation(ctx, kept.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, s.DeleteRestaurant(ctx, r.ID), ErrNotFound)
}

func TestGormStore_DeleteRestaurantSQL(t *testing.T) {
	testCases := []struct {
		name             string
		mockExpectations func(mock sqlmock.Sqlmock)
		expectedErr      error
	}{
		{
			name: "Reservations and restaurant removed in one transaction",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "reservations" WHERE restaurant_id = $1`)).
					WithArgs(7).
					WillReturnResult(sqlmock.NewResult(0, 3))
				mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "restaurants" WHERE "restaurants"."id" = $1`)).
					WithArgs(7).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "Unknown restaurant rolls back",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "reservations" WHERE restaurant_id = $1`)).
					WithArgs(7).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "restaurants" WHERE "restaurants"."id" = $1`)).
					WithArgs(7).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectRollback()
			},
			expectedErr: ErrNotFound,
		},
		{
			name: "Failed restaurant delete keeps the reservations",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "reservations" WHERE restaurant_id = $1`)).
					WithArgs(7).
					WillReturnResult(sqlmock.NewResult(0, 2))
				mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "restaurants"`)).
					WithArgs(7).
					WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			expectedErr: assert.AnError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newMockDB(t)
			s := NewGormStore(gormDB)

			tc.mockExpectations(mock)

			err := s.DeleteRestaurant(context.Background(), 7)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormStore_PurgeReservationsBefore(t *testing.T) {
	s := NewGormStore(newSQLiteDB(t))
	ctx := context.Background()
	u, r := seed(t, s)

	old := reservationAt(r.ID, u.ID, "2030-01-01", 18, 19)
	edge := reservationAt(r.ID, u.ID, "2030-02-01", 18, 19)
	recent := reservationAt(r.ID, u.ID, "2030-03-01", 18, 19)
	for _, res := range []*model.Reservation{&old, &edge, &recent} {
		require.NoError(t, s.CreateReservation(ctx, res))
	}

	n, err := s.PurgeReservationsBefore(ctx, "2030-02-01")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := s.ListUserReservations(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, left, 2)
}

func TestGormStore_Users(t *testing.T) {
	s := NewGormStore(newSQLiteDB(t))
	ctx := context.Background()
	u, _ := seed(t, s)

	byEmail, err := s.GetUserByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, model.RoleCustomer, byEmail.Role)

	byEmail.Role = model.RoleAdmin
	require.NoError(t, s.UpdateUser(ctx, &byEmail))
	byID, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, byID.Role)

	dup := model.User{Name: "Other", Mobile: "1", Email: "asha@example.com", PasswordHash: "y"}
	assert.ErrorIs(t, s.CreateUser(ctx, &dup), ErrDuplicate)

	_, err = s.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

// pgError marshals like a driver error carrying a SQLSTATE code.
type pgError struct{ Code string }

func (e pgError) Error() string { return "pq: error " + e.Code }

func TestGormStore_CreateUserDuplicateOnPostgres(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnError(pgError{Code: "23505"})
	mock.ExpectRollback()

	u := model.User{Name: "Asha", Mobile: "1", Email: "asha@example.com", PasswordHash: "x", Role: model.RoleCustomer}
	err = s.CreateUser(context.Background(), &u)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

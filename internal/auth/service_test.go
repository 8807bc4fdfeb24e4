package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"table-booking-backend/internal/model"
	"table-booking-backend/internal/rejection"
	"table-booking-backend/internal/store"
)

// memUsers is an in-memory UserStore.
type memUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]model.User
}

func newMemUsers() *memUsers { return &memUsers{byID: map[int64]model.User{}} }

func (m *memUsers) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	u.ID = m.nextID
	m.byID[u.ID] = *u
	return nil
}

func (m *memUsers) UpdateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[u.ID]; !ok {
		return store.ErrNotFound
	}
	m.byID[u.ID] = *u
	return nil
}

func (m *memUsers) GetUser(_ context.Context, id int64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, store.ErrNotFound
}

func newTestService() (*Service, *memUsers, *Tokens) {
	users := newMemUsers()
	tokens := NewTokens("svc-secret", time.Hour)
	return NewService(users, NewHasher(bcrypt.MinCost), tokens), users, tokens
}

func TestService_RegisterAndLogin(t *testing.T) {
	svc, users, tokens := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, Registration{Name: "Ravi", Mobile: "98450", Email: "Ravi@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleCustomer, user.Role)
	assert.Equal(t, "ravi@example.com", user.Email)

	stored, err := users.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)

	session, err := svc.Login(ctx, "ravi@example.com", "secret1")
	require.NoError(t, err)
	p, err := tokens.Authenticate(session.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, p.UserID)
	assert.Equal(t, model.RoleCustomer, p.Role)

	profile, err := svc.Profile(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "Ravi", profile.Name)
}

func TestService_RegisterValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, Registration{Name: "A", Mobile: "1", Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)

	testCases := []struct {
		name     string
		reg      Registration
		expected error
	}{
		{"Duplicate email", Registration{Name: "B", Mobile: "2", Email: "A@example.com", Password: "secret1"}, rejection.ErrEmailTaken},
		{"Short password", Registration{Name: "B", Mobile: "2", Email: "b@example.com", Password: "12345"}, rejection.ErrInvalidInput},
		{"Bad email", Registration{Name: "B", Mobile: "2", Email: "not-an-email", Password: "secret1"}, rejection.ErrInvalidInput},
		{"Missing name", Registration{Mobile: "2", Email: "c@example.com", Password: "secret1"}, rejection.ErrInvalidInput},
		{"Missing mobile", Registration{Name: "C", Email: "c@example.com", Password: "secret1"}, rejection.ErrInvalidInput},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.reg)
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

// lateDuplicate hides existing accounts from lookups, as happens when another
// sign-up commits between the lookup and the insert.
type lateDuplicate struct{ *memUsers }

func (lateDuplicate) GetUserByEmail(context.Context, string) (model.User, error) {
	return model.User{}, store.ErrNotFound
}

func (l lateDuplicate) CreateUser(ctx context.Context, u *model.User) error {
	if _, err := l.memUsers.GetUserByEmail(ctx, u.Email); err == nil {
		return fmt.Errorf("user %q: %w", u.Email, store.ErrDuplicate)
	}
	return l.memUsers.CreateUser(ctx, u)
}

func TestService_RegisterLosesRaceToUniqueIndex(t *testing.T) {
	svc := NewService(lateDuplicate{newMemUsers()}, NewHasher(bcrypt.MinCost), NewTokens("svc-secret", time.Hour))
	ctx := context.Background()

	_, err := svc.Register(ctx, Registration{Name: "A", Mobile: "1", Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, Registration{Name: "B", Mobile: "2", Email: "a@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, rejection.ErrEmailTaken)
	assert.NotErrorIs(t, err, rejection.ErrStorageFailure)
}

func TestService_LoginFailuresLookAlike(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Register(ctx, Registration{Name: "A", Mobile: "1", Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, "a@example.com", "secret2")
	_, unknownEmail := svc.Login(ctx, "b@example.com", "secret1")

	assert.ErrorIs(t, wrongPassword, rejection.ErrUnauthenticated)
	assert.ErrorIs(t, unknownEmail, rejection.ErrUnauthenticated)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestService_ChangePasswordUsesFreshSalt(t *testing.T) {
	svc, users, _ := newTestService()
	ctx := context.Background()
	user, err := svc.Register(ctx, Registration{Name: "A", Mobile: "1", Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)
	before, _ := users.GetUser(ctx, user.ID)

	p := Principal{UserID: user.ID, Role: user.Role}
	assert.ErrorIs(t, svc.ChangePassword(ctx, p, "wrong!", "secret2"), rejection.ErrUnauthenticated)
	require.NoError(t, svc.ChangePassword(ctx, p, "secret1", "secret1"))

	after, _ := users.GetUser(ctx, user.ID)
	assert.NotEqual(t, before.PasswordHash, after.PasswordHash)

	_, err = svc.Login(ctx, "a@example.com", "secret1")
	assert.NoError(t, err)
}

func TestService_SeedAdmin(t *testing.T) {
	svc, _, tokens := newTestService()
	ctx := context.Background()

	admin, err := svc.SeedAdmin(ctx, Registration{Email: "root@example.com", Password: "rootpass"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)
	assert.Equal(t, "Administrator", admin.Name)

	customer, err := svc.Register(ctx, Registration{Name: "C", Mobile: "1", Email: "c@example.com", Password: "secret1"})
	require.NoError(t, err)
	promoted, err := svc.SeedAdmin(ctx, Registration{Email: "c@example.com", Password: "newpass1"})
	require.NoError(t, err)
	assert.Equal(t, customer.ID, promoted.ID)
	assert.Equal(t, model.RoleAdmin, promoted.Role)

	session, err := svc.Login(ctx, "c@example.com", "newpass1")
	require.NoError(t, err)
	p, err := tokens.Authenticate(session.Token)
	require.NoError(t, err)
	assert.True(t, p.IsAdmin())
}

func TestService_ProfileRequiresPrincipal(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Profile(context.Background(), Principal{})
	assert.ErrorIs(t, err, rejection.ErrUnauthenticated)
}

package auth

import (
	"context"
	"errors"
	"log"
	"net/mail"
	"strings"
	"time"

	"table-booking-backend/internal/model"
	"table-booking-backend/internal/rejection"
	"table-booking-backend/internal/store"
)

const (
	minPasswordLen = 6
	maxPasswordLen = 72 // bcrypt rejects longer inputs
)

// UserStore is the persistence the account service needs.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	UpdateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id int64) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
}

// Service handles registration, login and admin seeding.
type Service struct {
	users  UserStore
	hasher *Hasher
	tokens *Tokens
}

// NewService creates an account service.
func NewService(users UserStore, hasher *Hasher, tokens *Tokens) *Service {
	return &Service{users: users, hasher: hasher, tokens: tokens}
}

// Registration is the input for a new customer account.
type Registration struct {
	Name     string
	Mobile   string
	Email    string
	Password string
}

// Session is a freshly issued login token.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      model.User
}

// Register creates a customer account. Admins are only created via SeedAdmin.
func (s *Service) Register(ctx context.Context, reg Registration) (model.User, error) {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Mobile = strings.TrimSpace(reg.Mobile)
	email, err := normalizeEmail(reg.Email)
	if err != nil {
		return model.User{}, err
	}
	if reg.Name == "" || reg.Mobile == "" {
		return model.User{}, rejection.New(rejection.InvalidInput, "name and mobile are required")
	}
	if err := checkPassword(reg.Password); err != nil {
		return model.User{}, err
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return model.User{}, rejection.New(rejection.EmailTaken, "email already exists, please login")
	} else if !errors.Is(err, store.ErrNotFound) {
		return model.User{}, rejection.Wrap(rejection.StorageFailure, err, "look up email")
	}

	hash, err := s.hasher.HashSecret(reg.Password)
	if err != nil {
		return model.User{}, rejection.Wrap(rejection.StorageFailure, err, "hash password")
	}
	user := model.User{
		Name:         reg.Name,
		Mobile:       reg.Mobile,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleCustomer,
	}
	// The lookup above is only a fast path; the unique index decides races.
	if err := s.users.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return model.User{}, rejection.New(rejection.EmailTaken, "email already exists, please login")
		}
		return model.User{}, rejection.Wrap(rejection.StorageFailure, err, "create user")
	}
	return user, nil
}

// Login verifies credentials and issues a session token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, rejection.New(rejection.Unauthenticated, "invalid email or password")
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, rejection.New(rejection.Unauthenticated, "invalid email or password")
		}
		return Session{}, rejection.Wrap(rejection.StorageFailure, err, "look up user")
	}
	if !s.hasher.VerifySecret(password, user.PasswordHash) {
		return Session{}, rejection.New(rejection.Unauthenticated, "invalid email or password")
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Profile returns the account behind a principal.
func (s *Service) Profile(ctx context.Context, p Principal) (model.User, error) {
	if p.IsZero() {
		return model.User{}, rejection.ErrUnauthenticated
	}
	user, err := s.users.GetUser(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.User{}, rejection.New(rejection.Unauthenticated, "account no longer exists")
		}
		return model.User{}, rejection.Wrap(rejection.StorageFailure, err, "load profile")
	}
	return user, nil
}

// ChangePassword re-hashes the new password with a fresh salt.
func (s *Service) ChangePassword(ctx context.Context, p Principal, current, next string) error {
	user, err := s.Profile(ctx, p)
	if err != nil {
		return err
	}
	if !s.hasher.VerifySecret(current, user.PasswordHash) {
		return rejection.New(rejection.Unauthenticated, "current password does not match")
	}
	if err := checkPassword(next); err != nil {
		return err
	}
	hash, err := s.hasher.HashSecret(next)
	if err != nil {
		return rejection.Wrap(rejection.StorageFailure, err, "hash password")
	}
	user.PasswordHash = hash
	if err := s.users.UpdateUser(ctx, &user); err != nil {
		return rejection.Wrap(rejection.StorageFailure, err, "update password")
	}
	return nil
}

// SeedAdmin creates an admin account, or promotes and re-keys an existing one.
func (s *Service) SeedAdmin(ctx context.Context, reg Registration) (model.User, error) {
	email, err := normalizeEmail(reg.Email)
	if err != nil {
		return model.User{}, err
	}
	if err := checkPassword(reg.Password); err != nil {
		return model.User{}, err
	}
	hash, err := s.hasher.HashSecret(reg.Password)
	if err != nil {
		return model.User{}, err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		user.Role = model.RoleAdmin
		user.PasswordHash = hash
		if err := s.users.UpdateUser(ctx, &user); err != nil {
			return model.User{}, err
		}
		log.Printf("Promoted %s to admin", email)
		return user, nil
	case errors.Is(err, store.ErrNotFound):
		user = model.User{
			Name:         firstNonEmpty(strings.TrimSpace(reg.Name), "Administrator"),
			Mobile:       firstNonEmpty(strings.TrimSpace(reg.Mobile), "-"),
			Email:        email,
			PasswordHash: hash,
			Role:         model.RoleAdmin,
		}
		if err := s.users.CreateUser(ctx, &user); err != nil {
			return model.User{}, err
		}
		log.Printf("Created admin %s", email)
		return user, nil
	default:
		return model.User{}, err
	}
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Address != strings.TrimSpace(raw) {
		return "", rejection.New(rejection.InvalidInput, "invalid email %q", raw)
	}
	return strings.ToLower(addr.Address), nil
}

func checkPassword(pw string) error {
	if n := len(pw); n < minPasswordLen || n > maxPasswordLen {
		return rejection.New(rejection.InvalidInput, "password must be %d to %d characters long", minPasswordLen, maxPasswordLen)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

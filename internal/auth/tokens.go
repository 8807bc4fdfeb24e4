package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"table-booking-backend/internal/model"
	"table-booking-backend/internal/rejection"
)

// Principal is the authenticated caller of an operation.
type Principal struct {
	UserID int64
	Role   model.UserRole
}

// IsZero reports whether p carries no identity.
func (p Principal) IsZero() bool { return p.UserID == 0 }

// IsAdmin reports whether p may perform administrative operations.
func (p Principal) IsAdmin() bool { return p.Role == model.RoleAdmin }

// Gate resolves request credentials into a Principal.
type Gate interface {
	Authenticate(credentials string) (Principal, error)
}

// Claims is the JWT payload issued at login.
type Claims struct {
	Role model.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and validates HS256 session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a token issuer/validator.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(strings.TrimSpace(secret)), ttl: ttl, now: time.Now}
}

// Issue creates a signed token for user.
func (t *Tokens) Issue(user model.User) (string, time.Time, error) {
	issuedAt := t.now()
	expiresAt := issuedAt.Add(t.ttl)
	claims := Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Authenticate validates a token and returns its Principal. Any failure is
// reported as UNAUTHENTICATED.
func (t *Tokens) Authenticate(token string) (Principal, error) {
	if strings.TrimSpace(token) == "" {
		return Principal{}, rejection.New(rejection.Unauthenticated, "missing token")
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, rejection.New(rejection.Unauthenticated, "token expired")
		}
		return Principal{}, rejection.Wrap(rejection.Unauthenticated, err, "invalid token")
	}
	if !parsed.Valid {
		return Principal{}, rejection.New(rejection.Unauthenticated, "invalid token")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Principal{}, rejection.New(rejection.Unauthenticated, "invalid subject")
	}
	role := claims.Role
	if role != model.RoleAdmin {
		role = model.RoleCustomer
	}
	return Principal{UserID: userID, Role: role}, nil
}

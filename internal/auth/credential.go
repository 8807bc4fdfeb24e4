package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher salts and hashes secrets with bcrypt. Every call to HashSecret
// draws a fresh random salt, so hashing the same plaintext twice yields
// different hashes.
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher; costs outside bcrypt's range use the default.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// HashSecret returns the bcrypt hash of plaintext.
func (h *Hasher) HashSecret(plaintext string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	return string(b), err
}

// VerifySecret reports whether plaintext matches hash.
func (h *Hasher) VerifySecret(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

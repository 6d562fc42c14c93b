package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when no stored hash exists so the response
// time does not reveal whether the account exists.
var dummyHash = mustHash("authd-dummy-password-never-matches")

// HashPassword returns the bcrypt hash of password at the default cost.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// ComparePassword reports whether password matches hash. A nil hash is
// compared against a fixed dummy hash and always fails.
func ComparePassword(hash *string, password string) bool {
	if hash == nil || *hash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*hash), []byte(password)) == nil
}

func mustHash(password string) []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return hash
}

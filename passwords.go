package users

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// unusablePrefix marks password hashes that can never verify. bcrypt
// hashes always start with "$", so the prefix cannot collide.
const unusablePrefix = "!"

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password. Unusable hashes never match.
func ComparePasswordAndHash(password, hash string) error {
	if strings.HasPrefix(hash, unusablePrefix) {
		return ErrMismatchedHashAndPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// UnusablePassword returns a hash value that disables password login for
// the account until a real password is set through the confirmation link.
func UnusablePassword() string {
	return unusablePrefix + uuid.New().String()
}

// HasUsablePassword reports whether the user can log in with a password.
func HasUsablePassword(u *User) bool {
	return u != nil && u.PasswordHash != "" && !strings.HasPrefix(u.PasswordHash, unusablePrefix)
}
